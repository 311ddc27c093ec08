// Package ledger is the credit ledger: the only component that mutates
// balances. Every public operation is a thin, auditable wrapper over the
// store's atomic ApplyDelta, so for any account the transaction log always
// fully explains the balance.
package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/loguvo/loguvo/internal/domain"
	"github.com/loguvo/loguvo/internal/infra/observability"
)

// Service exposes debit, credit and refund over the ledger store.
type Service struct {
	store domain.LedgerStore
}

// New creates a credit ledger over the given store.
func New(store domain.LedgerStore) *Service {
	return &Service{store: store}
}

// Debit removes amount credits from an account. It fails with
// ErrInsufficientFunds when the resulting balance would be negative; callers
// must not perform the side effect they are paying for until this succeeds.
func (s *Service) Debit(ctx context.Context, accountID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("debit amount must be positive, got %d", amount)
	}
	balance, _, err := s.store.ApplyDelta(ctx, accountID, -amount, domain.KindSpent, reason)
	if err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			observability.InsufficientFunds.Inc()
		}
		return 0, err
	}
	observability.CreditsSpent.Add(float64(amount))
	return balance, nil
}

// Credit adds amount credits to an account. Kind must be earned or purchased;
// refunds go through Refund so they are tagged as compensation.
func (s *Service) Credit(ctx context.Context, accountID string, amount int64, kind domain.TxKind, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("credit amount must be positive, got %d", amount)
	}
	if kind != domain.KindEarned && kind != domain.KindPurchased {
		return 0, fmt.Errorf("invalid credit kind %q", kind)
	}
	balance, _, err := s.store.ApplyDelta(ctx, accountID, amount, kind, reason)
	if err != nil {
		return 0, err
	}
	observability.CreditsGranted.WithLabelValues(string(kind)).Add(float64(amount))
	return balance, nil
}

// Refund returns amount credits to an account, undoing an earlier Debit after
// a downstream step failed. Semantically a credit tagged kind=refund.
func (s *Service) Refund(ctx context.Context, accountID string, amount int64, reason string) (int64, error) {
	if amount <= 0 {
		return 0, fmt.Errorf("refund amount must be positive, got %d", amount)
	}
	balance, _, err := s.store.ApplyDelta(ctx, accountID, amount, domain.KindRefund, reason)
	if err != nil {
		return 0, err
	}
	observability.CreditsGranted.WithLabelValues(string(domain.KindRefund)).Add(float64(amount))
	return balance, nil
}
