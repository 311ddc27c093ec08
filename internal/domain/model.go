// Package domain contains pure business types with ZERO infrastructure imports.
// This is the innermost ring of clean architecture — it depends on nothing.
package domain

import "time"

// ─── Account Types ──────────────────────────────────────────────────────────

// Account is a user's credit account. Balance is the number of whole credits
// available; one credit pays for one logo generation. Balance never goes
// negative in any committed state — the store enforces this, not callers.
type Account struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	Balance      int64     `json:"balance"`
	ReferralCode string    `json:"referral_code"`
	ReferredBy   *string   `json:"referred_by,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// ─── Transaction Types ──────────────────────────────────────────────────────

// TxKind classifies why a transaction moved credits.
type TxKind string

const (
	KindSpent     TxKind = "spent"     // consumed by a generation
	KindEarned    TxKind = "earned"    // signup bonus, referral reward
	KindPurchased TxKind = "purchased" // payment-provider top-up
	KindRefund    TxKind = "refund"    // compensation for a failed generation
)

// Valid reports whether k is a known transaction kind.
func (k TxKind) Valid() bool {
	switch k {
	case KindSpent, KindEarned, KindPurchased, KindRefund:
		return true
	default:
		return false
	}
}

// Transaction is one append-only ledger row. The sum of all transactions for
// an account always equals that account's current balance; rows are never
// updated or deleted after creation.
type Transaction struct {
	ID        int64     `json:"id"`
	AccountID string    `json:"account_id"`
	Amount    int64     `json:"amount"` // signed: negative for spends
	Kind      TxKind    `json:"kind"`
	Reason    string    `json:"reason"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Referral Types ─────────────────────────────────────────────────────────

// Referral tracks one referred signup. At most one referral exists per
// referred account. Lifecycle is a single one-way transition:
// pending (valid=false) → validated (valid=true, activity_confirmed=true),
// after which the record is terminal.
type Referral struct {
	ID                string    `json:"id"`
	ReferrerID        string    `json:"referrer_id"`
	ReferredID        string    `json:"referred_id"`
	Valid             bool      `json:"valid"`
	ActivityConfirmed bool      `json:"activity_confirmed"`
	CreatedAt         time.Time `json:"created_at"`
}

// ─── Generation Types ───────────────────────────────────────────────────────

// GenerationRecord is a produced logo. It is created only after a successful
// debit; the referral engine uses it solely as proof of qualifying activity.
type GenerationRecord struct {
	ID        string    `json:"id"`
	AccountID string    `json:"account_id"`
	Prompt    string    `json:"prompt"`
	ImageRef  string    `json:"image_ref"`
	CreatedAt time.Time `json:"created_at"`
}

// ─── Webhook Types ──────────────────────────────────────────────────────────

// WebhookEvent records one payment-provider notification. (Provider,
// ExternalID) is the idempotency key: a provider's at-least-once delivery
// never credits an account twice.
type WebhookEvent struct {
	Provider   string    `json:"provider"`
	ExternalID string    `json:"external_id"`
	Amount     int64     `json:"amount"`
	Processed  bool      `json:"processed"`
	Error      string    `json:"error,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}
