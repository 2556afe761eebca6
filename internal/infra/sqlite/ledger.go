package sqlite

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
)

// ─── Category Operations ────────────────────────────────────────────────────

// defaultCategories are seeded at registration, in settlement priority
// order: rent first, then utilities, then electricity.
var defaultCategories = []struct {
	Name     string
	Priority int
}{
	{"Rent", 1},
	{"Utilities", 2},
	{"Electricity", 3},
}

// SeedDefaultCategories creates the default category set for a new user.
// Existing categories with the same name are left untouched.
func (db *DB) SeedDefaultCategories(ctx context.Context, userID int64) error {
	for _, c := range defaultCategories {
		_, err := db.db.ExecContext(ctx, `
			INSERT INTO categories (user_id, name, priority) VALUES (?, ?, ?)
			ON CONFLICT(user_id, name) DO NOTHING
		`, userID, c.Name, c.Priority)
		if err != nil {
			return wrapErr(err)
		}
	}
	return nil
}

// CreateCategory adds a category for the user.
func (db *DB) CreateCategory(ctx context.Context, userID int64, name string, priority int) (*domain.Category, error) {
	res, err := db.db.ExecContext(ctx,
		`INSERT INTO categories (user_id, name, priority) VALUES (?, ?, ?)`,
		userID, name, priority,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	id, _ := res.LastInsertId()
	return &domain.Category{ID: id, UserID: userID, Name: name, Priority: priority}, nil
}

// UpdateCategory renames or reprioritizes a category owned by the user.
func (db *DB) UpdateCategory(ctx context.Context, userID, id int64, name string, priority int) error {
	res, err := db.db.ExecContext(ctx,
		`UPDATE categories SET name = ?, priority = ? WHERE id = ? AND user_id = ?`,
		name, priority, id, userID,
	)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListCategories returns the user's categories ordered by priority.
func (db *DB) ListCategories(ctx context.Context, userID int64) ([]domain.Category, error) {
	rows, err := db.db.QueryContext(ctx,
		`SELECT id, user_id, name, priority FROM categories WHERE user_id = ? ORDER BY priority, name`,
		userID,
	)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var cats []domain.Category
	for rows.Next() {
		var c domain.Category
		if err := rows.Scan(&c.ID, &c.UserID, &c.Name, &c.Priority); err != nil {
			return nil, err
		}
		cats = append(cats, c)
	}
	return cats, rows.Err()
}

// GetCategory retrieves one category owned by the user.
func (db *DB) GetCategory(ctx context.Context, userID, id int64) (*domain.Category, error) {
	var c domain.Category
	err := db.db.QueryRowContext(ctx,
		`SELECT id, user_id, name, priority FROM categories WHERE id = ? AND user_id = ?`,
		id, userID,
	).Scan(&c.ID, &c.UserID, &c.Name, &c.Priority)
	if err != nil {
		return nil, wrapErr(err)
	}
	return &c, nil
}

// ─── Expense Operations ─────────────────────────────────────────────────────

// CreateExpense inserts an expense. The (user, category, month)
// uniqueness rule is enforced by the schema; a duplicate surfaces as
// domain.ErrConstraint.
func (db *DB) CreateExpense(ctx context.Context, e *domain.Expense) (*domain.Expense, error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO expenses (user_id, category_id, amount_cents, paid_cents, date, month, description)
		VALUES (?, ?, ?, 0, ?, ?, ?)
	`, e.UserID, e.CategoryID, toCents(e.Amount), e.Date.Format(dateLayout), e.MonthKey(), e.Description)
	if err != nil {
		return nil, wrapErr(err)
	}
	id, _ := res.LastInsertId()
	return db.GetExpense(ctx, e.UserID, id)
}

// UpdateExpense edits amount, category, date, and description of an
// expense owned by the user. paid_cents is never touched here — only the
// allocation engine raises it.
func (db *DB) UpdateExpense(ctx context.Context, e *domain.Expense) error {
	res, err := db.db.ExecContext(ctx, `
		UPDATE expenses SET category_id = ?, amount_cents = ?, date = ?, month = ?, description = ?
		WHERE id = ? AND user_id = ?
	`, e.CategoryID, toCents(e.Amount), e.Date.Format(dateLayout), e.MonthKey(), e.Description, e.ID, e.UserID)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// DeleteExpense removes an expense; its allocation rows cascade away.
func (db *DB) DeleteExpense(ctx context.Context, userID, id int64) error {
	res, err := db.db.ExecContext(ctx,
		`DELETE FROM expenses WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// GetExpense retrieves one expense owned by the user.
func (db *DB) GetExpense(ctx context.Context, userID, id int64) (*domain.Expense, error) {
	return scanExpense(db.db.QueryRowContext(ctx, `
		SELECT id, user_id, category_id, amount_cents, paid_cents, date, description
		FROM expenses WHERE id = ? AND user_id = ?
	`, id, userID))
}

func scanExpense(row *sql.Row) (*domain.Expense, error) {
	var e domain.Expense
	var amountCents, paidCents int64
	var dateStr string
	if err := row.Scan(&e.ID, &e.UserID, &e.CategoryID, &amountCents, &paidCents, &dateStr, &e.Description); err != nil {
		return nil, wrapErr(err)
	}
	e.Amount = fromCents(amountCents)
	e.PaidAmount = fromCents(paidCents)
	e.Date = parseDate(dateStr)
	return &e, nil
}

// ListExpenses returns the user's expenses in scope, newest first.
func (db *DB) ListExpenses(ctx context.Context, userID int64, scope domain.Scope) ([]domain.Expense, error) {
	query := `
		SELECT id, user_id, category_id, amount_cents, paid_cents, date, description
		FROM expenses WHERE user_id = ?`
	args := []interface{}{userID}
	if !scope.IsAllTime() {
		query += ` AND month = ?`
		args = append(args, scope.MonthKey())
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []domain.Expense
	for rows.Next() {
		var e domain.Expense
		var amountCents, paidCents int64
		var dateStr string
		if err := rows.Scan(&e.ID, &e.UserID, &e.CategoryID, &amountCents, &paidCents, &dateStr, &e.Description); err != nil {
			return nil, err
		}
		e.Amount = fromCents(amountCents)
		e.PaidAmount = fromCents(paidCents)
		e.Date = parseDate(dateStr)
		out = append(out, e)
	}
	return out, rows.Err()
}

// ─── Debt Resolution ────────────────────────────────────────────────────────

// OutstandingDebts computes the ordered debt list for a user: expenses
// with paid_cents < amount_cents, sorted by category priority ascending
// then expense date ascending (expense id breaks remaining ties so the
// order is fully deterministic). Read-only; returns an empty slice when
// nothing is owed.
func (db *DB) OutstandingDebts(ctx context.Context, userID int64, scope domain.Scope) ([]domain.DebtItem, error) {
	return queryDebts(ctx, db.db, userID, scope)
}

// queryer is satisfied by both *sql.DB and *sql.Tx so the settlement
// transaction can resolve debts on its own snapshot.
type queryer interface {
	QueryContext(ctx context.Context, query string, args ...interface{}) (*sql.Rows, error)
}

func queryDebts(ctx context.Context, q queryer, userID int64, scope domain.Scope) ([]domain.DebtItem, error) {
	query := `
		SELECT e.id, e.category_id, c.priority, e.date, e.amount_cents - e.paid_cents
		FROM expenses e
		JOIN categories c ON c.id = e.category_id
		WHERE e.user_id = ? AND e.paid_cents < e.amount_cents`
	args := []interface{}{userID}
	if !scope.IsAllTime() {
		query += ` AND e.month = ?`
		args = append(args, scope.MonthKey())
	}
	query += ` ORDER BY c.priority ASC, e.date ASC, e.id ASC`

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	debts := []domain.DebtItem{}
	for rows.Next() {
		var d domain.DebtItem
		var owedCents int64
		var dateStr string
		if err := rows.Scan(&d.ExpenseID, &d.CategoryID, &d.Priority, &dateStr, &owedCents); err != nil {
			return nil, err
		}
		d.Date = parseDate(dateStr)
		d.Owed = fromCents(owedCents)
		debts = append(debts, d)
	}
	return debts, rows.Err()
}

// ─── Payment Operations ─────────────────────────────────────────────────────

// CreatePayment records a payment directly, without settlement. Used for
// payments made against a specific category, which bypass the engine.
func (db *DB) CreatePayment(ctx context.Context, p *domain.Payment) (*domain.Payment, error) {
	res, err := db.db.ExecContext(ctx, `
		INSERT INTO payments (user_id, category_id, amount_cents, date, description)
		VALUES (?, ?, ?, ?, ?)
	`, p.UserID, p.CategoryID, toCents(p.Amount), p.Date.Format(dateLayout), p.Description)
	if err != nil {
		return nil, wrapErr(err)
	}
	id, _ := res.LastInsertId()
	out := *p
	out.ID = id
	return &out, nil
}

// DeletePayment removes a payment; its allocation rows cascade away.
func (db *DB) DeletePayment(ctx context.Context, userID, id int64) error {
	res, err := db.db.ExecContext(ctx,
		`DELETE FROM payments WHERE id = ? AND user_id = ?`, id, userID)
	if err != nil {
		return wrapErr(err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListPayments returns the user's payments in scope, newest first.
func (db *DB) ListPayments(ctx context.Context, userID int64, scope domain.Scope) ([]domain.Payment, error) {
	query := `
		SELECT id, user_id, category_id, amount_cents, date, description
		FROM payments WHERE user_id = ?`
	args := []interface{}{userID}
	if !scope.IsAllTime() {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, scope.MonthKey())
	}
	query += ` ORDER BY date DESC, id DESC`

	rows, err := db.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []domain.Payment
	for rows.Next() {
		var p domain.Payment
		var amountCents int64
		var dateStr string
		var catID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.UserID, &catID, &amountCents, &dateStr, &p.Description); err != nil {
			return nil, err
		}
		if catID.Valid {
			v := catID.Int64
			p.CategoryID = &v
		}
		p.Amount = fromCents(amountCents)
		p.Date = parseDate(dateStr)
		out = append(out, p)
	}
	return out, rows.Err()
}

// TotalPayments sums the user's payments in scope.
func (db *DB) TotalPayments(ctx context.Context, userID int64, scope domain.Scope) (decimal.Decimal, error) {
	query := `SELECT COALESCE(SUM(amount_cents), 0) FROM payments WHERE user_id = ?`
	args := []interface{}{userID}
	if !scope.IsAllTime() {
		query += ` AND substr(date, 1, 7) = ?`
		args = append(args, scope.MonthKey())
	}
	var cents int64
	if err := db.db.QueryRowContext(ctx, query, args...).Scan(&cents); err != nil {
		return decimal.Zero, wrapErr(err)
	}
	return fromCents(cents), nil
}

// ─── Allocation & Credit Reads ──────────────────────────────────────────────

// ListAllocations returns the allocations recorded for a payment.
func (db *DB) ListAllocations(ctx context.Context, paymentID int64) ([]domain.PaymentAllocation, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, payment_id, expense_id, amount_cents
		FROM payment_allocations WHERE payment_id = ? ORDER BY id
	`, paymentID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()
	return collectAllocations(rows)
}

func collectAllocations(rows *sql.Rows) ([]domain.PaymentAllocation, error) {
	var out []domain.PaymentAllocation
	for rows.Next() {
		var a domain.PaymentAllocation
		var cents int64
		if err := rows.Scan(&a.ID, &a.PaymentID, &a.ExpenseID, &cents); err != nil {
			return nil, err
		}
		a.Amount = fromCents(cents)
		out = append(out, a)
	}
	return out, rows.Err()
}

// ListCredits returns the user's credits, newest first.
func (db *DB) ListCredits(ctx context.Context, userID int64) ([]domain.Credit, error) {
	rows, err := db.db.QueryContext(ctx, `
		SELECT id, user_id, amount_cents, date FROM credits
		WHERE user_id = ? ORDER BY date DESC, id DESC
	`, userID)
	if err != nil {
		return nil, wrapErr(err)
	}
	defer rows.Close()

	var out []domain.Credit
	for rows.Next() {
		var c domain.Credit
		var cents int64
		var dateStr string
		if err := rows.Scan(&c.ID, &c.UserID, &cents, &dateStr); err != nil {
			return nil, err
		}
		c.Amount = fromCents(cents)
		c.Date = parseDate(dateStr)
		out = append(out, c)
	}
	return out, rows.Err()
}
