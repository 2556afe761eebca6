package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/app/settlement"
	"github.com/homeledger/homeledger/internal/domain"
	"github.com/homeledger/homeledger/internal/infra/sqlite"
)

// ─── Test Harness ───────────────────────────────────────────────────────────

func newTestHandler(t *testing.T) http.Handler {
	t.Helper()
	db, err := sqlite.Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	srv := NewServer(db, settlement.NewService(db), time.Hour)
	return srv.Handler()
}

func doJSON(t *testing.T, h http.Handler, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding %q: %v", rec.Body.String(), err)
	}
}

// register creates a user and returns a session token.
func register(t *testing.T, h http.Handler, username string) string {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/register", "", map[string]string{
		"username": username,
		"password": "correct-horse",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("register: status %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Token string `json:"token"`
	}
	decodeBody(t, rec, &out)
	if out.Token == "" {
		t.Fatal("register: empty token")
	}
	return out.Token
}

// ─── Auth Tests ─────────────────────────────────────────────────────────────

func TestRegisterAndLogin(t *testing.T) {
	h := newTestHandler(t)
	register(t, h, "alice")

	rec := doJSON(t, h, "POST", "/api/login", "", map[string]string{
		"username": "alice",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("login: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/login", "", map[string]string{
		"username": "alice",
		"password": "wrong",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad password: status %d, want 400", rec.Code)
	}
}

func TestRegister_Validation(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, "POST", "/api/register", "", map[string]string{
		"username": "has spaces",
		"password": "correct-horse",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad username: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, "POST", "/api/register", "", map[string]string{
		"username": "bob",
		"password": "short",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("short password: status %d, want 400", rec.Code)
	}
}

func TestRegister_SeedsDefaultCategories(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")

	rec := doJSON(t, h, "GET", "/api/categories", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories: status %d", rec.Code)
	}
	var cats []domain.Category
	decodeBody(t, rec, &cats)
	if len(cats) != 3 {
		t.Fatalf("categories = %d, want 3 defaults", len(cats))
	}
	if cats[0].Name != "Rent" {
		t.Errorf("first category = %s, want Rent", cats[0].Name)
	}
}

func TestRequireSession(t *testing.T) {
	h := newTestHandler(t)

	rec := doJSON(t, h, "GET", "/api/expenses", "", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("no token: status %d, want 401", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/expenses", "bogus-token", nil)
	if rec.Code != http.StatusUnauthorized {
		t.Errorf("bad token: status %d, want 401", rec.Code)
	}
}

func TestLogout_InvalidatesToken(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")

	if rec := doJSON(t, h, "POST", "/api/logout", token, nil); rec.Code != http.StatusOK {
		t.Fatalf("logout: status %d", rec.Code)
	}
	if rec := doJSON(t, h, "GET", "/api/expenses", token, nil); rec.Code != http.StatusUnauthorized {
		t.Errorf("after logout: status %d, want 401", rec.Code)
	}
}

// ─── Ledger Flow Tests ──────────────────────────────────────────────────────

func createExpense(t *testing.T, h http.Handler, token string, categoryID int64, amount, date string) domain.Expense {
	t.Helper()
	rec := doJSON(t, h, "POST", "/api/expenses", token, map[string]interface{}{
		"category_id": categoryID,
		"amount":      amount,
		"date":        date,
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create expense: status %d, body %s", rec.Code, rec.Body.String())
	}
	var e domain.Expense
	decodeBody(t, rec, &e)
	return e
}

func listCategories(t *testing.T, h http.Handler, token string) []domain.Category {
	t.Helper()
	rec := doJSON(t, h, "GET", "/api/categories", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list categories: status %d", rec.Code)
	}
	var cats []domain.Category
	decodeBody(t, rec, &cats)
	return cats
}

func TestExpenseCRUD(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)

	e := createExpense(t, h, token, cats[0].ID, "850.00", "2026-03-01")
	if !e.Amount.Equal(decimal.RequireFromString("850")) {
		t.Errorf("amount = %s, want 850", e.Amount)
	}
	if !e.PaidAmount.IsZero() {
		t.Errorf("paid = %s, want 0 on creation", e.PaidAmount)
	}

	// Duplicate (category, month) is rejected.
	rec := doJSON(t, h, "POST", "/api/expenses", token, map[string]interface{}{
		"category_id": cats[0].ID,
		"amount":      "900",
		"date":        "2026-03-20",
	})
	if rec.Code != http.StatusConflict {
		t.Errorf("duplicate month: status %d, want 409", rec.Code)
	}

	// Update amount; paid survives untouched.
	rec = doJSON(t, h, "PUT", fmt.Sprintf("/api/expenses/%d", e.ID), token, map[string]interface{}{
		"category_id": cats[0].ID,
		"amount":      "900.00",
		"date":        "2026-03-01",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("update: status %d, body %s", rec.Code, rec.Body.String())
	}
	var updated domain.Expense
	decodeBody(t, rec, &updated)
	if !updated.Amount.Equal(decimal.RequireFromString("900")) {
		t.Errorf("updated amount = %s, want 900", updated.Amount)
	}

	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), token, nil)
	if rec.Code != http.StatusOK {
		t.Errorf("delete: status %d", rec.Code)
	}
	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), token, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("double delete: status %d, want 404", rec.Code)
	}
}

func TestExpense_InvalidInput(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)

	tests := []struct {
		name string
		body map[string]interface{}
	}{
		{"negative amount", map[string]interface{}{"category_id": cats[0].ID, "amount": "-5", "date": "2026-03-01"}},
		{"three decimals", map[string]interface{}{"category_id": cats[0].ID, "amount": "10.001", "date": "2026-03-01"}},
		{"bad date", map[string]interface{}{"category_id": cats[0].ID, "amount": "10", "date": "03/01/2026"}},
		{"missing category", map[string]interface{}{"amount": "10", "date": "2026-03-01"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := doJSON(t, h, "POST", "/api/expenses", token, tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status %d, want 400; body %s", rec.Code, rec.Body.String())
			}
		})
	}
}

func TestPaymentSettlement_AuditTrail(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)

	rent := createExpense(t, h, token, cats[0].ID, "100.00", "2026-03-01")
	utilities := createExpense(t, h, token, cats[1].ID, "50.00", "2026-03-01")

	// 120 covers rent fully and utilities partially.
	rec := doJSON(t, h, "POST", "/api/payments", token, map[string]interface{}{
		"amount": "120.00",
		"date":   "2026-03-05",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	var settled domain.Settlement
	decodeBody(t, rec, &settled)
	if len(settled.Allocations) != 2 {
		t.Fatalf("allocations = %d, want 2", len(settled.Allocations))
	}
	if settled.Allocations[0].ExpenseID != rent.ID || !settled.Allocations[0].Amount.Equal(decimal.RequireFromString("100")) {
		t.Errorf("allocations[0] = %+v, want 100 against rent", settled.Allocations[0])
	}
	if settled.Allocations[1].ExpenseID != utilities.ID || !settled.Allocations[1].Amount.Equal(decimal.RequireFromString("20")) {
		t.Errorf("allocations[1] = %+v, want 20 against utilities", settled.Allocations[1])
	}
	if !settled.Remainder.IsZero() || settled.Credit != nil {
		t.Errorf("remainder = %s, credit = %v; want zero and none", settled.Remainder, settled.Credit)
	}

	// Remaining debt is just the utilities balance.
	rec = doJSON(t, h, "GET", "/api/debts", token, nil)
	var debts []domain.DebtItem
	decodeBody(t, rec, &debts)
	if len(debts) != 1 || !debts[0].Owed.Equal(decimal.RequireFromString("30")) {
		t.Errorf("debts = %+v, want single 30 owed", debts)
	}
}

func TestPaymentSurplus_CreatesCredit(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)
	createExpense(t, h, token, cats[0].ID, "100.00", "2026-03-01")

	rec := doJSON(t, h, "POST", "/api/payments", token, map[string]interface{}{
		"amount": "130.00",
		"date":   "2026-03-05",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	var settled domain.Settlement
	decodeBody(t, rec, &settled)
	if settled.Credit == nil {
		t.Fatal("want a credit for the 30 surplus")
	}
	if !settled.Credit.Amount.Equal(decimal.RequireFromString("30")) {
		t.Errorf("credit = %s, want 30", settled.Credit.Amount)
	}

	rec = doJSON(t, h, "GET", "/api/credits", token, nil)
	var credits []domain.Credit
	decodeBody(t, rec, &credits)
	if len(credits) != 1 {
		t.Errorf("credits = %d, want 1", len(credits))
	}
}

func TestPayment_InvalidAmount(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")

	for _, amount := range []string{"0", "-10", "1.005"} {
		rec := doJSON(t, h, "POST", "/api/payments", token, map[string]interface{}{
			"amount": amount,
			"date":   "2026-03-05",
		})
		if rec.Code != http.StatusBadRequest {
			t.Errorf("amount %s: status %d, want 400", amount, rec.Code)
		}
	}
}

func TestCategoryPayment_BypassesEngine(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)
	e := createExpense(t, h, token, cats[0].ID, "100.00", "2026-03-01")

	rec := doJSON(t, h, "POST", "/api/payments", token, map[string]interface{}{
		"category_id": cats[0].ID,
		"amount":      "100.00",
		"date":        "2026-03-05",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("payment: status %d, body %s", rec.Code, rec.Body.String())
	}
	var out struct {
		Payment domain.Payment `json:"payment"`
	}
	decodeBody(t, rec, &out)
	if out.Payment.CategoryID == nil || *out.Payment.CategoryID != cats[0].ID {
		t.Errorf("payment category = %v, want %d", out.Payment.CategoryID, cats[0].ID)
	}

	// No allocation happened: the expense still owes its full amount.
	rec = doJSON(t, h, "GET", "/api/debts", token, nil)
	var debts []domain.DebtItem
	decodeBody(t, rec, &debts)
	if len(debts) != 1 || debts[0].ExpenseID != e.ID {
		t.Fatalf("debts = %+v, want the untouched expense", debts)
	}
	if !debts[0].Owed.Equal(decimal.RequireFromString("100")) {
		t.Errorf("owed = %s, want 100", debts[0].Owed)
	}
}

func TestCategoryPayment_UnknownCategory(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")

	rec := doJSON(t, h, "POST", "/api/payments", token, map[string]interface{}{
		"category_id": 9999,
		"amount":      "10.00",
		"date":        "2026-03-05",
	})
	if rec.Code != http.StatusNotFound {
		t.Errorf("status %d, want 404", rec.Code)
	}
}

func TestPayAll(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)
	createExpense(t, h, token, cats[0].ID, "100.00", "2026-03-01")
	createExpense(t, h, token, cats[1].ID, "50.00", "2026-03-10")

	rec := doJSON(t, h, "POST", "/api/months/2026/3/payall", token, nil)
	if rec.Code != http.StatusCreated {
		t.Fatalf("payall: status %d, body %s", rec.Code, rec.Body.String())
	}
	var settled domain.Settlement
	decodeBody(t, rec, &settled)
	if !settled.Payment.Amount.Equal(decimal.RequireFromString("150")) {
		t.Errorf("payment = %s, want 150", settled.Payment.Amount)
	}
	if !settled.Remainder.IsZero() || settled.Credit != nil {
		t.Errorf("remainder = %s, credit = %v; pay-all must never overshoot", settled.Remainder, settled.Credit)
	}

	// Second pay-all: nothing left.
	rec = doJSON(t, h, "POST", "/api/months/2026/3/payall", token, nil)
	if rec.Code != http.StatusConflict {
		t.Errorf("empty payall: status %d, want 409", rec.Code)
	}
}

func TestMeterReadings(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")

	rec := doJSON(t, h, "POST", "/api/meter-readings", token, map[string]interface{}{
		"type":  "cold_water",
		"value": "123.45",
		"date":  "2026-03-01",
	})
	if rec.Code != http.StatusCreated {
		t.Fatalf("create reading: status %d, body %s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, h, "POST", "/api/meter-readings", token, map[string]interface{}{
		"type":  "gas",
		"value": "1",
		"date":  "2026-03-01",
	})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("unknown type: status %d, want 400", rec.Code)
	}

	rec = doJSON(t, h, "GET", "/api/meter-readings?year=2026&month=3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("list: status %d", rec.Code)
	}
	var readings []domain.MeterReading
	decodeBody(t, rec, &readings)
	if len(readings) != 1 {
		t.Errorf("readings = %d, want 1", len(readings))
	}
}

func TestDashboard(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)

	now := time.Now().UTC()
	createExpense(t, h, token, cats[0].ID, "100.00", now.Format("2006-01-02"))

	rec := doJSON(t, h, "GET", "/api/dashboard", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard: status %d, body %s", rec.Code, rec.Body.String())
	}
	var dash map[string]json.RawMessage
	decodeBody(t, rec, &dash)
	for _, key := range []string{"expenses", "total_expense", "months"} {
		if _, ok := dash[key]; !ok {
			t.Errorf("dashboard missing %q", key)
		}
	}
}

func TestMonthDetail(t *testing.T) {
	h := newTestHandler(t)
	token := register(t, h, "alice")
	cats := listCategories(t, h, token)
	createExpense(t, h, token, cats[0].ID, "100.00", "2026-03-01")

	rec := doJSON(t, h, "GET", "/api/months/2026/3", token, nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("month detail: status %d, body %s", rec.Code, rec.Body.String())
	}
	var detail struct {
		TotalDebt decimal.Decimal `json:"total_debt"`
	}
	decodeBody(t, rec, &detail)
	if !detail.TotalDebt.Equal(decimal.RequireFromString("100")) {
		t.Errorf("total_debt = %s, want 100", detail.TotalDebt)
	}
}

func TestUserIsolation(t *testing.T) {
	h := newTestHandler(t)
	alice := register(t, h, "alice")
	bob := register(t, h, "bob")

	cats := listCategories(t, h, alice)
	e := createExpense(t, h, alice, cats[0].ID, "100.00", "2026-03-01")

	// Bob cannot see or delete alice's expense.
	rec := doJSON(t, h, "GET", "/api/debts", bob, nil)
	var debts []domain.DebtItem
	decodeBody(t, rec, &debts)
	if len(debts) != 0 {
		t.Errorf("bob sees %d debts, want 0", len(debts))
	}
	rec = doJSON(t, h, "DELETE", fmt.Sprintf("/api/expenses/%d", e.ID), bob, nil)
	if rec.Code != http.StatusNotFound {
		t.Errorf("cross-user delete: status %d, want 404", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	h := newTestHandler(t)
	rec := doJSON(t, h, "GET", "/health", "", nil)
	if rec.Code != http.StatusOK {
		t.Errorf("health: status %d", rec.Code)
	}
}
