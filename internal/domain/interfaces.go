package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// ─── Store Interfaces ───────────────────────────────────────────────────────
// Boundaries between layers: infrastructure implements them, the
// application layer depends on them.

// SettlementStore is the transactional surface the settlement
// orchestrator runs against. Both settle methods execute the full run
// (payment row, allocations, increments, credit) as one transaction and
// invoke allocate on that transaction's snapshot.
type SettlementStore interface {
	// OutstandingDebts returns the ordered debt list for a user.
	OutstandingDebts(ctx context.Context, userID int64, scope Scope) ([]DebtItem, error)

	// SettlePayment records a category-less payment and applies it
	// across the user's outstanding debts in scope.
	SettlePayment(ctx context.Context, userID int64, amount decimal.Decimal, date time.Time, description string, scope Scope, allocate AllocateFunc) (*Settlement, error)

	// SettleMonth synthesizes a payment covering the scope's exact
	// total debt. Returns ErrNoOutstandingDebt when nothing is owed.
	SettleMonth(ctx context.Context, userID int64, scope Scope, date time.Time, allocate AllocateFunc) (*Settlement, error)
}
