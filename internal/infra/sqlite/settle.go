package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Settlement Transactions ────────────────────────────────────────────────
// One settlement is one transaction: the payment row, every allocation
// row, every paid_cents increment, and any credit commit together or not
// at all. The allocation decision itself is delegated to the engine via
// allocate, called on the transaction's own snapshot so it never sees a
// stale owed amount.

// SettlePayment records a category-less payment and applies it across
// the user's outstanding debts in scope.
func (db *DB) SettlePayment(ctx context.Context, userID int64, amount decimal.Decimal, date time.Time, description string, scope domain.Scope, allocate domain.AllocateFunc) (*domain.Settlement, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}

	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (user_id, amount_cents, date, description)
		VALUES (?, ?, ?, ?)
	`, userID, toCents(amount), date.Format(dateLayout), description)
	if err != nil {
		return nil, wrapErr(err)
	}
	paymentID, _ := res.LastInsertId()

	debts, err := queryDebts(ctx, tx, userID, scope)
	if err != nil {
		return nil, err
	}

	drafts, remainder, err := allocate(amount, debts)
	if err != nil {
		return nil, err
	}

	settlement, err := applyAllocations(ctx, tx, userID, paymentID, date, drafts, remainder)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err)
	}

	settlement.Payment = domain.Payment{
		ID:          paymentID,
		UserID:      userID,
		Amount:      amount,
		Date:        date,
		Description: description,
	}
	return settlement, nil
}

// SettleMonth synthesizes a payment equal to the month's total
// outstanding debt and applies it against exactly those expenses. The
// remainder is zero by construction. Returns domain.ErrNoOutstandingDebt
// — and creates nothing — when the month owes nothing.
func (db *DB) SettleMonth(ctx context.Context, userID int64, scope domain.Scope, date time.Time, allocate domain.AllocateFunc) (*domain.Settlement, error) {
	tx, err := db.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer tx.Rollback()

	debts, err := queryDebts(ctx, tx, userID, scope)
	if err != nil {
		return nil, err
	}

	total := decimal.Zero
	for _, d := range debts {
		total = total.Add(d.Owed)
	}
	if !total.IsPositive() {
		return nil, domain.ErrNoOutstandingDebt
	}

	description := "pay all " + scope.MonthKey()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments (user_id, amount_cents, date, description)
		VALUES (?, ?, ?, ?)
	`, userID, toCents(total), date.Format(dateLayout), description)
	if err != nil {
		return nil, wrapErr(err)
	}
	paymentID, _ := res.LastInsertId()

	drafts, remainder, err := allocate(total, debts)
	if err != nil {
		return nil, err
	}

	settlement, err := applyAllocations(ctx, tx, userID, paymentID, date, drafts, remainder)
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, wrapErr(err)
	}

	settlement.Payment = domain.Payment{
		ID:          paymentID,
		UserID:      userID,
		Amount:      total,
		Date:        date,
		Description: description,
	}
	return settlement, nil
}

// applyAllocations persists the engine's drafts inside tx.
//
// paid_cents moves by relative increment, guarded so it can never pass
// amount_cents. A guard miss means another settlement raised paid_cents
// after our snapshot was taken — that is a concurrency conflict, and the
// whole transaction rolls back for the orchestrator to retry.
func applyAllocations(ctx context.Context, tx *sql.Tx, userID, paymentID int64, date time.Time, drafts []domain.AllocationDraft, remainder decimal.Decimal) (*domain.Settlement, error) {
	settlement := &domain.Settlement{Remainder: remainder}

	for _, d := range drafts {
		cents := toCents(d.Amount)

		res, err := tx.ExecContext(ctx, `
			UPDATE expenses SET paid_cents = paid_cents + ?
			WHERE id = ? AND user_id = ? AND paid_cents + ? <= amount_cents
		`, cents, d.ExpenseID, userID, cents)
		if err != nil {
			return nil, wrapErr(err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			return nil, fmt.Errorf("%w: expense %d", domain.ErrConcurrencyConflict, d.ExpenseID)
		}

		ins, err := tx.ExecContext(ctx, `
			INSERT INTO payment_allocations (payment_id, expense_id, amount_cents)
			VALUES (?, ?, ?)
		`, paymentID, d.ExpenseID, cents)
		if err != nil {
			return nil, wrapErr(err)
		}
		allocID, _ := ins.LastInsertId()
		settlement.Allocations = append(settlement.Allocations, domain.PaymentAllocation{
			ID:        allocID,
			PaymentID: paymentID,
			ExpenseID: d.ExpenseID,
			Amount:    d.Amount,
		})
	}

	if remainder.IsPositive() {
		res, err := tx.ExecContext(ctx, `
			INSERT INTO credits (user_id, amount_cents, date) VALUES (?, ?, ?)
		`, userID, toCents(remainder), date.Format(dateLayout))
		if err != nil {
			return nil, wrapErr(err)
		}
		creditID, _ := res.LastInsertId()
		settlement.Credit = &domain.Credit{
			ID:     creditID,
			UserID: userID,
			Amount: remainder,
			Date:   date,
		}
	}
	return settlement, nil
}
