// Package sqlite is the durable ledger store. It persists users,
// categories, expenses, payments, allocations, credits, and meter
// readings, all scoped per user, and provides the transactional
// settlement primitive the allocation engine runs inside.
package sqlite

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite connection pool.
type DB struct {
	db *sql.DB
}

// Open opens (or creates) the database at path and applies migrations.
// Foreign keys are enabled so allocation rows cascade with their owning
// payment or expense; write transactions take the lock immediately so
// racing settlements serialize instead of deadlocking on lock upgrade.
func Open(path string) (*DB, error) {
	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_txlock=immediate", path)
	conn, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	db := &DB{db: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the underlying connection pool.
func (db *DB) Close() error { return db.db.Close() }

// ─── Schema ─────────────────────────────────────────────────────────────────

// Migrations returns the schema migration statements.
// Each string is a single SQL statement (SQLite executes one at a time).
//
// Monetary columns hold integer cents. That keeps amounts exact and lets
// paid_cents move by relative increment inside the store
// (paid_cents = paid_cents + ?) rather than by application-level
// read-modify-write.
func Migrations() []string {
	return []string{
		`CREATE TABLE IF NOT EXISTS users (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			username      TEXT NOT NULL UNIQUE,
			password_hash TEXT NOT NULL,
			created_at    TEXT NOT NULL DEFAULT (datetime('now'))
		)`,

		`CREATE TABLE IF NOT EXISTS sessions (
			token      TEXT PRIMARY KEY,
			user_id    INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			expires_at TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS categories (
			id       INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id  INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			name     TEXT NOT NULL,
			priority INTEGER NOT NULL,
			UNIQUE(user_id, name)
		)`,

		// month is derived from date at write time; the (user, category,
		// month) uniqueness rule is enforced here, at the store boundary.
		`CREATE TABLE IF NOT EXISTS expenses (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id  INTEGER NOT NULL REFERENCES categories(id) ON DELETE CASCADE,
			amount_cents INTEGER NOT NULL CHECK(amount_cents >= 0),
			paid_cents   INTEGER NOT NULL DEFAULT 0 CHECK(paid_cents >= 0 AND paid_cents <= amount_cents),
			date         TEXT NOT NULL,
			month        TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT '',
			UNIQUE(user_id, category_id, month)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_expenses_user_month ON expenses(user_id, month)`,

		`CREATE TABLE IF NOT EXISTS payments (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			category_id  INTEGER REFERENCES categories(id) ON DELETE SET NULL,
			amount_cents INTEGER NOT NULL CHECK(amount_cents > 0),
			date         TEXT NOT NULL,
			description  TEXT NOT NULL DEFAULT ''
		)`,
		`CREATE INDEX IF NOT EXISTS idx_payments_user_date ON payments(user_id, date)`,

		// Allocation rows are owned jointly by their payment and expense:
		// deleting either cascades here.
		`CREATE TABLE IF NOT EXISTS payment_allocations (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			payment_id   INTEGER NOT NULL REFERENCES payments(id) ON DELETE CASCADE,
			expense_id   INTEGER NOT NULL REFERENCES expenses(id) ON DELETE CASCADE,
			amount_cents INTEGER NOT NULL CHECK(amount_cents > 0),
			UNIQUE(payment_id, expense_id)
		)`,

		`CREATE TABLE IF NOT EXISTS credits (
			id           INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id      INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			amount_cents INTEGER NOT NULL CHECK(amount_cents > 0),
			date         TEXT NOT NULL
		)`,

		`CREATE TABLE IF NOT EXISTS meter_readings (
			id          INTEGER PRIMARY KEY AUTOINCREMENT,
			user_id     INTEGER NOT NULL REFERENCES users(id) ON DELETE CASCADE,
			type        TEXT NOT NULL CHECK(type IN ('cold_water','hot_water','electricity')),
			value_centi INTEGER NOT NULL CHECK(value_centi >= 0),
			date        TEXT NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_meter_user_date ON meter_readings(user_id, date)`,
	}
}

func (db *DB) migrate() error {
	for _, m := range Migrations() {
		if _, err := db.db.Exec(m); err != nil {
			return err
		}
	}
	return nil
}

// ─── Cents Conversion ───────────────────────────────────────────────────────
// Amounts cross the store boundary as exact 2-dp decimals and are held
// as integer cents inside sqlite.

func toCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

func fromCents(c int64) decimal.Decimal {
	return decimal.New(c, -2)
}

const dateLayout = "2006-01-02"

func parseDate(s string) time.Time {
	t, _ := time.Parse(dateLayout, s)
	return t
}

// ─── Error Classification ───────────────────────────────────────────────────

// wrapErr maps driver errors onto domain sentinels so callers can test
// with errors.Is instead of sniffing sqlite strings.
func wrapErr(err error) error {
	if err == nil {
		return nil
	}
	if err == sql.ErrNoRows {
		return domain.ErrNotFound
	}
	msg := err.Error()
	switch {
	case strings.Contains(msg, "constraint"):
		return fmt.Errorf("%w: %v", domain.ErrConstraint, err)
	case strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked"):
		return fmt.Errorf("%w: %v", domain.ErrConcurrencyConflict, err)
	}
	return err
}
