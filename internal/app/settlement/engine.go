// Package settlement implements the payment allocation core: debt
// resolution, the greedy allocation engine, credit issuance, and the
// orchestrator that runs all three as one atomic unit of work.
package settlement

import (
	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Allocation Engine ──────────────────────────────────────────────────────

// Allocate distributes a payment across an ordered debt list.
//
// The walk is greedy and deterministic: debts arrive from the resolver
// already sorted by category priority then expense date, and each debt
// receives min(owed, remaining) until the payment is exhausted. The
// returned drafts plus the remainder sum to amount exactly — decimal
// arithmetic, no rounding loss. A debt list entry with nothing owed is
// skipped without emitting a zero draft.
//
// Allocate is a pure function. It never touches storage; the store
// applies the drafts inside the settlement transaction.
func Allocate(amount decimal.Decimal, debts []domain.DebtItem) ([]domain.AllocationDraft, decimal.Decimal, error) {
	if !amount.IsPositive() {
		return nil, decimal.Zero, domain.ErrInvalidAmount
	}

	remaining := amount
	var drafts []domain.AllocationDraft
	for _, d := range debts {
		if !remaining.IsPositive() {
			break
		}
		if !d.Owed.IsPositive() {
			continue
		}
		payHere := decimal.Min(d.Owed, remaining)
		drafts = append(drafts, domain.AllocationDraft{
			ExpenseID: d.ExpenseID,
			Amount:    payHere,
		})
		remaining = remaining.Sub(payHere)
	}
	return drafts, remaining, nil
}

// TotalOwed sums the outstanding amounts of a debt list.
func TotalOwed(debts []domain.DebtItem) decimal.Decimal {
	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Owed)
	}
	return total
}
