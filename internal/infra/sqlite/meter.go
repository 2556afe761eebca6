package sqlite

import (
	"context"
	"time"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Meter Reading Operations ───────────────────────────────────────────────

// CreateMeterReading records one meter value.
func (db *DB) CreateMeterReading(ctx context.Context, r *domain.MeterReading) (*domain.MeterReading, error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO meter_readings (user_id, type, value_centi, date)
		VALUES (?, ?, ?, ?)
	`, r.UserID, string(r.Type), toCents(r.Value), r.Date.Format(dateLayout))
	if err != nil {
		return nil, wrapErr(err)
	}
	id, _ := res.LastInsertId()
	out := *r
	out.ID = id
	return &out, nil
}

// ListMeterReadings returns the user's readings in scope, oldest first
// (the chart consumers want chronological series).
func (db *DB) ListMeterReadings(ctx context.Context, userID int64, scope domain.Scope) ([]domain.MeterReading, error) {
	query := `
		SELECT id, user_id, type, value_centi, date
		FROM meter_readings WHERE user_id = ?`
	args := []interface{}{userID}
	if !scope.IsAllTime() {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, scope.MonthKey())
	}
	query += ` ORDER BY date ASC, id ASC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []domain.MeterReading
	for rows.Next() {
		var r domain.MeterReading
		var typeStr, dateStr string
		var centi int64
		if err := rows.Scan(&r.ID, &r.UserID, &typeStr, &centi, &dateStr); err != nil {
			return nil, err
		}
		r.Type = domain.MeterType(typeStr)
		r.Value = fromCents(centi)
		r.Date = parseDate(dateStr)
		out = append(out, r)
	}
	return out, rows.Err()
}

// MeterReadingsSince returns all readings on or after the given date,
// oldest first. Used by the statistics view (last-year window).
func (db *DB) MeterReadingsSince(ctx context.Context, userID int64, since time.Time) ([]domain.MeterReading, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, type, value_centi, date
		FROM meter_readings WHERE user_id = ? AND date >= ?
		ORDER BY date ASC, id ASC
	`, userID, since.Format(dateLayout))
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []domain.MeterReading
	for rows.Next() {
		var r domain.MeterReading
		var typeStr, dateStr string
		var centi int64
		if err := rows.Scan(&r.ID, &r.UserID, &typeStr, &centi, &dateStr); err != nil {
			return nil, err
		}
		r.Type = domain.MeterType(typeStr)
		r.Value = fromCents(centi)
		r.Date = parseDate(dateStr)
		out = append(out, r)
	}
	return out, rows.Err()
}
