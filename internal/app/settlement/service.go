package settlement

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/homeledger/homeledger/internal/domain"
	"github.com/homeledger/homeledger/internal/infra/observability"
)

// ─── Settlement Orchestrator ────────────────────────────────────────────────

// Service wires the debt resolver, the allocation engine, and credit
// issuance into atomic settlement runs against the ledger store.
type Service struct {
	db domain.SettlementStore
}

// NewService creates the settlement service.
func NewService(db domain.SettlementStore) *Service {
	return &Service{db: db}
}

// ResolveDebts returns the ordered outstanding debt list for a user.
// Read-only; calling it twice without intervening writes returns
// identical results.
func (s *Service) ResolveDebts(ctx context.Context, userID int64, scope domain.Scope) ([]domain.DebtItem, error) {
	return s.db.OutstandingDebts(ctx, userID, scope)
}

// SettlePayment applies a category-less payment across every
// outstanding debt of the user (all periods, all categories), highest
// priority category first, oldest expense first. Any surplus becomes a
// credit dated to the payment. One atomic transaction; a concurrency
// conflict is retried once before it surfaces.
//
// TODO: existing credits are not drawn down here. The resolver computes
// owed amounts without subtracting the credit balance, so credits only
// accumulate — kept for parity with the long-standing behavior, likely
// a latent bug worth revisiting.
func (s *Service) SettlePayment(ctx context.Context, userID int64, amount decimal.Decimal, date time.Time, description string) (*domain.Settlement, error) {
	if !amount.IsPositive() {
		return nil, domain.ErrInvalidAmount
	}
	settlement, err := s.withRetry(func() (*domain.Settlement, error) {
		return s.db.SettlePayment(ctx, userID, amount, date, description, domain.AllTime(), Allocate)
	})
	if err != nil {
		observability.SettlementFailures.WithLabelValues("payment").Inc()
		return nil, err
	}
	s.record("payment", settlement)
	return settlement, nil
}

// PayAllMonth settles every unpaid expense of one billing period by
// synthesizing a payment equal to the month's exact total debt.
// Returns domain.ErrNoOutstandingDebt — creating nothing — when the
// month owes nothing.
func (s *Service) PayAllMonth(ctx context.Context, userID int64, year int, month time.Month, date time.Time) (*domain.Settlement, error) {
	scope := domain.Month(year, month)
	settlement, err := s.withRetry(func() (*domain.Settlement, error) {
		return s.db.SettleMonth(ctx, userID, scope, date, Allocate)
	})
	if err != nil {
		if !errors.Is(err, domain.ErrNoOutstandingDebt) {
			observability.SettlementFailures.WithLabelValues("payall").Inc()
		}
		return nil, err
	}
	s.record("payall", settlement)
	return settlement, nil
}

// withRetry runs one settlement attempt and retries exactly once on a
// concurrency conflict. The conflicting transaction has rolled back
// completely, so the retry re-resolves debts on a fresh snapshot.
func (s *Service) withRetry(attempt func() (*domain.Settlement, error)) (*domain.Settlement, error) {
	settlement, err := attempt()
	if err != nil && errors.Is(err, domain.ErrConcurrencyConflict) {
		observability.SettlementRetries.Inc()
		settlement, err = attempt()
	}
	return settlement, err
}

func (s *Service) record(mode string, settlement *domain.Settlement) {
	observability.SettlementsTotal.WithLabelValues(mode).Inc()
	observability.AllocationsTotal.Add(float64(len(settlement.Allocations)))
	if settlement.Credit != nil {
		observability.CreditsIssued.Inc()
	}
}
