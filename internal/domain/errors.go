package domain

import "errors"

// ─── Sentinel Errors ────────────────────────────────────────────────────────
// Domain errors are pure — no infrastructure dependency.

var (
	// Ledger errors
	ErrInsufficientFunds = errors.New("insufficient credits")
	ErrAccountNotFound   = errors.New("account not found")
	ErrAccountExists     = errors.New("account already exists")

	// Referral errors
	ErrReferralExists = errors.New("account already has a referrer")

	// Webhook errors
	ErrAlreadyProcessed = errors.New("webhook event already processed")
	ErrMalformedPayload = errors.New("malformed webhook payload")
)
