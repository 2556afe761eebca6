package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Request Parsing Helpers ────────────────────────────────────────────────
// Field-level validation lives here, at the collaborator layer. The
// settlement engine itself only checks amount positivity.

const dateLayout = "2006-01-02"

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func pathMonth(r *http.Request) (int, time.Month, bool) {
	year, err1 := strconv.Atoi(chi.URLParam(r, "year"))
	month, err2 := strconv.Atoi(chi.URLParam(r, "month"))
	if err1 != nil || err2 != nil || year < 1970 || month < 1 || month > 12 {
		return 0, 0, false
	}
	return year, time.Month(month), true
}

// scopeFromQuery reads optional ?year=&month= parameters; absent both,
// the scope is all-time.
func scopeFromQuery(r *http.Request) (domain.Scope, bool) {
	ys, ms := r.URL.Query().Get("year"), r.URL.Query().Get("month")
	if ys == "" && ms == "" {
		return domain.AllTime(), true
	}
	year, err1 := strconv.Atoi(ys)
	month, err2 := strconv.Atoi(ms)
	if err1 != nil || err2 != nil || month < 1 || month > 12 {
		return domain.Scope{}, false
	}
	return domain.Month(year, time.Month(month)), true
}

// validMoney reports whether d is a well-formed monetary value:
// at most two decimal places.
func validMoney(d decimal.Decimal) bool {
	return d.Exponent() >= -2
}

// ─── Category Handlers ──────────────────────────────────────────────────────

type categoryRequest struct {
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// GET /api/categories
func (s *Server) handleListCategories(w http.ResponseWriter, r *http.Request) {
	cats, err := s.db.ListCategories(r.Context(), userFrom(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, cats)
}

// POST /api/categories
func (s *Server) handleCreateCategory(w http.ResponseWriter, r *http.Request) {
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Priority < 1 {
		writeError(w, http.StatusBadRequest, "name and positive priority required")
		return
	}
	cat, err := s.db.CreateCategory(r.Context(), userFrom(r).ID, req.Name, req.Priority)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, cat)
}

// PUT /api/categories/{id}
func (s *Server) handleUpdateCategory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid category id")
		return
	}
	var req categoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Name == "" || req.Priority < 1 {
		writeError(w, http.StatusBadRequest, "name and positive priority required")
		return
	}
	if err := s.db.UpdateCategory(r.Context(), userFrom(r).ID, id, req.Name, req.Priority); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "updated"})
}

// ─── Expense Handlers ───────────────────────────────────────────────────────

type expenseRequest struct {
	CategoryID  int64           `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

func (req expenseRequest) toExpense(userID int64) (*domain.Expense, string) {
	if req.CategoryID <= 0 {
		return nil, "category_id required"
	}
	if req.Amount.IsNegative() || !validMoney(req.Amount) {
		return nil, "amount must be a non-negative value with at most two decimal places"
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		return nil, "date must be YYYY-MM-DD"
	}
	return &domain.Expense{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Date:        date,
		Description: req.Description,
	}, ""
}

// GET /api/expenses?year=&month=
func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	expenses, err := s.db.ListExpenses(r.Context(), userFrom(r).ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

// POST /api/expenses
func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, msg := req.toExpense(userFrom(r).ID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	created, err := s.db.CreateExpense(r.Context(), e)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

// PUT /api/expenses/{id}
func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	var req expenseRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	e, msg := req.toExpense(userFrom(r).ID)
	if msg != "" {
		writeError(w, http.StatusBadRequest, msg)
		return
	}
	e.ID = id
	if err := s.db.UpdateExpense(r.Context(), e); err != nil {
		writeDomainError(w, err)
		return
	}
	updated, err := s.db.GetExpense(r.Context(), e.UserID, id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

// DELETE /api/expenses/{id}
func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid expense id")
		return
	}
	if err := s.db.DeleteExpense(r.Context(), userFrom(r).ID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ─── Payment Handlers ───────────────────────────────────────────────────────

type paymentRequest struct {
	CategoryID  *int64          `json:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        string          `json:"date"`
	Description string          `json:"description"`
}

// GET /api/payments?year=&month=
func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	payments, err := s.db.ListPayments(r.Context(), userFrom(r).ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, payments)
}

// handleCreatePayment records a payment. Without a category the payment
// runs through generic settlement and the response carries the full
// audit trail: allocations, remainder, and any credit. With a category
// the payment is recorded directly and bypasses the engine.
// POST /api/payments
func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var req paymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Amount.IsPositive() || !validMoney(req.Amount) {
		writeError(w, http.StatusBadRequest, "amount must be a positive value with at most two decimal places")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	user := userFrom(r)

	if req.CategoryID != nil {
		if _, err := s.db.GetCategory(r.Context(), user.ID, *req.CategoryID); err != nil {
			writeDomainError(w, err)
			return
		}
		payment, err := s.db.CreatePayment(r.Context(), &domain.Payment{
			UserID:      user.ID,
			CategoryID:  req.CategoryID,
			Amount:      req.Amount,
			Date:        date,
			Description: req.Description,
		})
		if err != nil {
			writeDomainError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]interface{}{"payment": payment})
		return
	}

	settled, err := s.settler.SettlePayment(r.Context(), user.ID, req.Amount, date, req.Description)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settled)
}

// DELETE /api/payments/{id}
func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid payment id")
		return
	}
	if err := s.db.DeletePayment(r.Context(), userFrom(r).ID, id); err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ─── Credit & Debt Handlers ─────────────────────────────────────────────────

// GET /api/credits
func (s *Server) handleListCredits(w http.ResponseWriter, r *http.Request) {
	credits, err := s.db.ListCredits(r.Context(), userFrom(r).ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

// GET /api/debts?year=&month=
func (s *Server) handleListDebts(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	debts, err := s.settler.ResolveDebts(r.Context(), userFrom(r).ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, debts)
}

// ─── Pay-All Handler ────────────────────────────────────────────────────────

// POST /api/months/{year}/{month}/payall
func (s *Server) handlePayAll(w http.ResponseWriter, r *http.Request) {
	year, month, ok := pathMonth(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	settled, err := s.settler.PayAllMonth(r.Context(), userFrom(r).ID, year, month, time.Now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, settled)
}

// ─── Meter Reading Handlers ─────────────────────────────────────────────────

type meterReadingRequest struct {
	Type  domain.MeterType `json:"type"`
	Value decimal.Decimal  `json:"value"`
	Date  string           `json:"date"`
}

// GET /api/meter-readings?year=&month=
func (s *Server) handleListMeterReadings(w http.ResponseWriter, r *http.Request) {
	scope, ok := scopeFromQuery(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid year/month")
		return
	}
	readings, err := s.db.ListMeterReadings(r.Context(), userFrom(r).ID, scope)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, readings)
}

// POST /api/meter-readings
func (s *Server) handleCreateMeterReading(w http.ResponseWriter, r *http.Request) {
	var req meterReadingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !req.Type.Valid() {
		writeError(w, http.StatusBadRequest, "type must be cold_water, hot_water, or electricity")
		return
	}
	if req.Value.IsNegative() || !validMoney(req.Value) {
		writeError(w, http.StatusBadRequest, "value must be non-negative with at most two decimal places")
		return
	}
	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "date must be YYYY-MM-DD")
		return
	}
	created, err := s.db.CreateMeterReading(r.Context(), &domain.MeterReading{
		UserID: userFrom(r).ID,
		Type:   req.Type,
		Value:  req.Value,
		Date:   date,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}
