package api

import (
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Presentation Views ─────────────────────────────────────────────────────
// Read-only consumers of ledger data. Debt is always recomputed from
// amount − paid_amount here; nothing trusts a cached value.

// monthStatus summarizes one month in the dashboard strip.
type monthStatus struct {
	Year   int    `json:"year"`
	Month  int    `json:"month"`
	Name   string `json:"name"`
	Status string `json:"status"` // green: settled, red: indebted, gray: future
}

// handleDashboard returns the current month's expenses and readings
// plus a 12-month debt status strip.
// GET /api/dashboard
func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	user := userFrom(r)
	now := time.Now()
	scope := domain.Month(now.Year(), now.Month())

	expenses, err := s.db.ListExpenses(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	readings, err := s.db.ListMeterReadings(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	totalExpense := decimal.Zero
	for _, e := range expenses {
		totalExpense = totalExpense.Add(e.Amount)
	}

	months := make([]monthStatus, 0, 12)
	for i := 11; i >= 0; i-- {
		monthDate := time.Date(now.Year(), now.Month()-time.Month(i), 1, 0, 0, 0, 0, now.Location())
		status := "green"
		if monthDate.After(now) {
			status = "gray"
		} else {
			debts, err := s.db.OutstandingDebts(r.Context(), user.ID, domain.Month(monthDate.Year(), monthDate.Month()))
			if err != nil {
				writeDomainError(w, err)
				return
			}
			if len(debts) > 0 {
				status = "red"
			}
		}
		months = append(months, monthStatus{
			Year:   monthDate.Year(),
			Month:  int(monthDate.Month()),
			Name:   monthDate.Format("Jan"),
			Status: status,
		})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"expenses":       expenses,
		"meter_readings": readings,
		"total_expense":  totalExpense,
		"months":         months,
	})
}

// handleMonthDetail returns one month's expenses, readings, total
// outstanding debt, and total payments.
// GET /api/months/{year}/{month}
func (s *Server) handleMonthDetail(w http.ResponseWriter, r *http.Request) {
	year, month, ok := pathMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	user := userFrom(r)
	scope := domain.Month(year, month)

	expenses, err := s.db.ListExpenses(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	readings, err := s.db.ListMeterReadings(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	totalPayments, err := s.db.TotalPayments(r.Context(), user.ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	totalDebt := decimal.Zero
	for _, e := range expenses {
		totalDebt = totalDebt.Add(e.Debt())
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"year":           year,
		"month":          int(month),
		"expenses":       expenses,
		"meter_readings": readings,
		"total_debt":     totalDebt,
		"total_payments": totalPayments,
	})
}

// ─── Meter Statistics ───────────────────────────────────────────────────────

type meterPoint struct {
	X string  `json:"x"` // YYYY-MM
	Y float64 `json:"y"`
}

type meterSeries struct {
	Points []meterPoint `json:"points"`
	Min    float64      `json:"min"`
	Max    float64      `json:"max"`
	Avg    float64      `json:"avg"`
}

// handleMeterStats returns per-type chart series and min/max/avg over
// the last year.
// GET /api/meter-stats
func (s *Server) handleMeterStats(w http.ResponseWriter, r *http.Request) {
	oneYearAgo := time.Now().AddDate(-1, 0, 0)
	readings, err := s.db.MeterReadingsSince(r.Context(), userFrom(r).ID, oneYearAgo)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	series := map[domain.MeterType][]meterPoint{}
	var labels []string
	seen := map[string]bool{}
	for _, reading := range readings {
		month := reading.Date.Format("2006-01")
		if !seen[month] {
			seen[month] = true
			labels = append(labels, month)
		}
		v, _ := reading.Value.Float64()
		series[reading.Type] = append(series[reading.Type], meterPoint{X: month, Y: v})
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"cold_water":  summarize(series[domain.MeterColdWater]),
		"hot_water":   summarize(series[domain.MeterHotWater]),
		"electricity": summarize(series[domain.MeterElectricity]),
		"labels":      labels,
	})
}

func summarize(points []meterPoint) meterSeries {
	s := meterSeries{Points: points}
	if len(points) == 0 {
		s.Points = []meterPoint{}
		return s
	}
	s.Min, s.Max = points[0].Y, points[0].Y
	var sum float64
	for _, p := range points {
		if p.Y < s.Min {
			s.Min = p.Y
		}
		if p.Y > s.Max {
			s.Max = p.Y
		}
		sum += p.Y
	}
	s.Avg = sum / float64(len(points))
	return s
}
