package domain

import "context"

// ─── Service Interfaces ─────────────────────────────────────────────────────
// These interfaces define boundaries between layers.
// Infrastructure implements them; application layer depends on them.

// Generator abstracts the external logo-generation service. It may be slow
// or fail; callers bound it with a context deadline and treat any error as
// a transient external failure.
type Generator interface {
	Generate(ctx context.Context, prompt string) (imageRef string, err error)
}

// LedgerStore abstracts durable account, transaction, referral, generation
// and webhook-event storage. ApplyDelta, MarkReferralValid and
// RecordWebhookEvent must each be atomic at the storage layer; they are the
// serialization points the rest of the system relies on.
type LedgerStore interface {
	// Accounts
	CreateAccount(ctx context.Context, acc *Account) error
	GetAccount(ctx context.Context, id string) (*Account, error)
	GetAccountByReferralCode(ctx context.Context, code string) (*Account, error)
	SetReferredBy(ctx context.Context, accountID, referrerID string) error

	// ApplyDelta atomically adjusts an account's balance and appends the
	// matching transaction. It rejects the whole operation when the new
	// balance would be negative. This is the only path that mutates balances.
	ApplyDelta(ctx context.Context, accountID string, amount int64, kind TxKind, reason string) (int64, *Transaction, error)
	ListTransactions(ctx context.Context, accountID string, limit int) ([]Transaction, error)
	SumTransactions(ctx context.Context, accountID string) (int64, error)

	// Generations
	InsertGeneration(ctx context.Context, rec *GenerationRecord) error
	CountGenerations(ctx context.Context, accountID string) (int64, error)
	ListGenerations(ctx context.Context, accountID string, limit int) ([]GenerationRecord, error)

	// Referrals
	CreateReferral(ctx context.Context, ref *Referral) error
	PendingReferralFor(ctx context.Context, referredID string) (*Referral, error)
	// MarkReferralValid flips pending → validated and reports whether this
	// caller performed the flip. A false return means another caller won.
	MarkReferralValid(ctx context.Context, referralID string) (bool, error)
	CountValidReferrals(ctx context.Context, referrerID string) (int64, error)

	// Webhook idempotency
	// RecordWebhookEvent claims (provider, externalID). The first caller gets
	// accepted=true; every replay gets accepted=false.
	RecordWebhookEvent(ctx context.Context, provider, externalID string, amount int64) (accepted bool, err error)
	MarkWebhookError(ctx context.Context, provider, externalID, msg string) error

	// Read-only projections
	Leaderboard(ctx context.Context, limit int) ([]Account, error)
}
