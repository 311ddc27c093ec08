// Package referral tracks referral relationships and grants the reward for
// each validated referral exactly once.
//
// A referral is created pending at signup when the new user arrived through a
// referral link. It becomes valid the first time the referred user produces a
// logo. Validation and reward are deliberately two steps: the validity flip
// is an atomic conditional update in the store, so however many triggers race
// (a generation event, a reconciliation pass), only one caller proceeds to
// pay the referrer.
package referral

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/loguvo/loguvo/internal/app/ledger"
	"github.com/loguvo/loguvo/internal/domain"
	"github.com/loguvo/loguvo/internal/infra/observability"
)

// DefaultRewardAmount is the referrer's payout per validated referral.
const DefaultRewardAmount = 5

// Engine owns referral state transitions. It never writes balances directly;
// all payouts route through the credit ledger.
type Engine struct {
	store  domain.LedgerStore
	ledger *ledger.Service
	reward int64
}

// New creates a referral engine. reward <= 0 falls back to the default.
func New(store domain.LedgerStore, ledger *ledger.Service, reward int64) *Engine {
	if reward <= 0 {
		reward = DefaultRewardAmount
	}
	return &Engine{store: store, ledger: ledger, reward: reward}
}

// RegisterSignup records the referral relationship for a new account that
// signed up through a referral link. An unknown code is a logged no-op:
// signup itself must still succeed. Self-referrals are ignored.
func (e *Engine) RegisterSignup(ctx context.Context, accountID, refCode string) error {
	if refCode == "" {
		return nil
	}
	referrer, err := e.store.GetAccountByReferralCode(ctx, refCode)
	if errors.Is(err, domain.ErrAccountNotFound) {
		log.Printf("referral: unknown code %q at signup of %s, ignoring", refCode, accountID)
		return nil
	}
	if err != nil {
		return fmt.Errorf("resolve referral code: %w", err)
	}
	if referrer.ID == accountID {
		log.Printf("referral: account %s used its own code, ignoring", accountID)
		return nil
	}

	if err := e.store.SetReferredBy(ctx, accountID, referrer.ID); err != nil {
		if errors.Is(err, domain.ErrReferralExists) {
			return nil
		}
		return fmt.Errorf("set referrer: %w", err)
	}
	err = e.store.CreateReferral(ctx, &domain.Referral{
		ID:         uuid.NewString(),
		ReferrerID: referrer.ID,
		ReferredID: accountID,
	})
	if errors.Is(err, domain.ErrReferralExists) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

// ValidateReferralActivity checks whether the given user has performed the
// qualifying activity (at least one generation) and, if so, validates their
// pending referral and pays the referrer. Safe to call any number of times
// from any trigger: the validity flip admits exactly one winner, and every
// other call is a no-op.
//
// If the payout fails after a won flip, the validation stands; the gap is
// logged and counted for manual reconciliation, never retried here.
func (e *Engine) ValidateReferralActivity(ctx context.Context, userID string) error {
	generations, err := e.store.CountGenerations(ctx, userID)
	if err != nil {
		return fmt.Errorf("count generations: %w", err)
	}
	if generations == 0 {
		return nil
	}

	ref, err := e.store.PendingReferralFor(ctx, userID)
	if err != nil {
		return fmt.Errorf("find pending referral: %w", err)
	}
	if ref == nil {
		// No referral, or already validated.
		return nil
	}

	won, err := e.store.MarkReferralValid(ctx, ref.ID)
	if err != nil {
		return fmt.Errorf("mark referral valid: %w", err)
	}
	if !won {
		return nil
	}

	reason := fmt.Sprintf("referral reward for %s", userID)
	if _, err := e.ledger.Credit(ctx, ref.ReferrerID, e.reward, domain.KindEarned, reason); err != nil {
		observability.ReferralRewardFailures.Inc()
		log.Printf("referral: reward payout to %s failed after validating %s: %v (needs reconciliation)",
			ref.ReferrerID, ref.ID, err)
		return nil
	}
	observability.ReferralRewards.Inc()
	return nil
}
