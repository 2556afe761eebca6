// Package domain contains pure business types with ZERO infrastructure
// imports. This is the innermost ring — every other package depends on it,
// it depends on nothing but the decimal type.
package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ─── Identity ───────────────────────────────────────────────────────────────

// User owns every other entity. No entity is ever visible across users.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Session is a logged-in browser/CLI session.
type Session struct {
	Token     string    `json:"token"`
	UserID    int64     `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// ─── Ledger Types ───────────────────────────────────────────────────────────

// Category groups expenses and carries the settlement priority.
// Lower priority number settles first. Name is unique per user.
type Category struct {
	ID       int64  `json:"id"`
	UserID   int64  `json:"-"`
	Name     string `json:"name"`
	Priority int    `json:"priority"`
}

// Expense is one billing-period obligation. At most one expense exists
// per (user, category, month). Only the allocation engine raises
// PaidAmount; 0 ≤ PaidAmount ≤ Amount holds after every mutation.
type Expense struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	CategoryID  int64           `json:"category_id"`
	Amount      decimal.Decimal `json:"amount"`
	PaidAmount  decimal.Decimal `json:"paid_amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// Debt is the outstanding portion of the expense. Always recomputed,
// never cached.
func (e Expense) Debt() decimal.Decimal {
	return e.Amount.Sub(e.PaidAmount)
}

// MonthKey returns the billing period of the expense as "YYYY-MM".
func (e Expense) MonthKey() string {
	return e.Date.Format("2006-01")
}

// Payment is an incoming sum of money. Immutable once recorded.
// A payment without a category triggers generic settlement; a payment
// against a specific category is recorded directly and bypasses the
// allocation engine.
type Payment struct {
	ID          int64           `json:"id"`
	UserID      int64           `json:"-"`
	CategoryID  *int64          `json:"category_id,omitempty"`
	Amount      decimal.Decimal `json:"amount"`
	Date        time.Time       `json:"date"`
	Description string          `json:"description,omitempty"`
}

// PaymentAllocation records that a payment contributed Amount toward an
// expense. Unique per (payment, expense); created only by the engine;
// removed only by cascade from its payment or expense.
type PaymentAllocation struct {
	ID        int64           `json:"id"`
	PaymentID int64           `json:"payment_id"`
	ExpenseID int64           `json:"expense_id"`
	Amount    decimal.Decimal `json:"amount"`
}

// Credit records the unspent surplus of an over-sized payment, dated to
// the payment that generated it. Advisory only: credits are not drawn
// down automatically against future debt.
type Credit struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"-"`
	Amount decimal.Decimal `json:"amount"`
	Date   time.Time       `json:"date"`
}

// ─── Meter Readings ─────────────────────────────────────────────────────────

// MeterType identifies a household meter.
type MeterType string

const (
	MeterColdWater   MeterType = "cold_water"
	MeterHotWater    MeterType = "hot_water"
	MeterElectricity MeterType = "electricity"
)

// Valid reports whether t is a known meter type.
func (t MeterType) Valid() bool {
	switch t {
	case MeterColdWater, MeterHotWater, MeterElectricity:
		return true
	}
	return false
}

// MeterReading is one recorded meter value.
type MeterReading struct {
	ID     int64           `json:"id"`
	UserID int64           `json:"-"`
	Type   MeterType       `json:"type"`
	Value  decimal.Decimal `json:"value"`
	Date   time.Time       `json:"date"`
}

// ─── Settlement Types ───────────────────────────────────────────────────────

// Scope selects which expenses the debt resolver considers.
// The zero value is invalid; use AllTime or Month.
type Scope struct {
	allTime bool
	year    int
	month   time.Month
}

// AllTime scopes resolution to every unpaid expense of the user.
func AllTime() Scope { return Scope{allTime: true} }

// Month scopes resolution to a single billing period.
func Month(year int, month time.Month) Scope {
	return Scope{year: year, month: month}
}

// IsAllTime reports whether the scope covers every period.
func (s Scope) IsAllTime() bool { return s.allTime }

// MonthKey returns the "YYYY-MM" key for a month scope.
func (s Scope) MonthKey() string {
	return time.Date(s.year, s.month, 1, 0, 0, 0, 0, time.UTC).Format("2006-01")
}

// DebtItem is one entry of the resolver's ordered debt list:
// an expense and how much is still owed on it.
type DebtItem struct {
	ExpenseID  int64           `json:"expense_id"`
	CategoryID int64           `json:"category_id"`
	Priority   int             `json:"priority"`
	Date       time.Time       `json:"date"`
	Owed       decimal.Decimal `json:"owed"`
}

// AllocationDraft is the engine's decision for one expense before it is
// persisted as a PaymentAllocation row.
type AllocationDraft struct {
	ExpenseID int64
	Amount    decimal.Decimal
}

// AllocateFunc maps a payment amount and an ordered debt list to
// allocation drafts and the unallocated remainder. Implemented by the
// allocation engine; the store invokes it inside the settlement
// transaction so reads and writes share one snapshot.
type AllocateFunc func(amount decimal.Decimal, debts []DebtItem) ([]AllocationDraft, decimal.Decimal, error)

// Settlement is the auditable result of one settlement run.
type Settlement struct {
	Payment     Payment             `json:"payment"`
	Allocations []PaymentAllocation `json:"allocations"`
	Remainder   decimal.Decimal     `json:"remainder"`
	Credit      *Credit             `json:"credit,omitempty"`
}
