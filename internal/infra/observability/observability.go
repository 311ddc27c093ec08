// Package observability holds the Prometheus metrics for the credit core.
// Webhook and referral flows have no user-facing surface, so these counters
// (plus logs) are the only way operators see them.
package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// ─── Ledger Metrics ─────────────────────────────────────────────────────────

var (
	// CreditsGranted counts credits added to balances, labeled by kind
	// (earned, purchased, refund).
	CreditsGranted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loguvo_credits_granted_total",
		Help: "Credits added to account balances, by transaction kind.",
	}, []string{"kind"})

	// CreditsSpent counts credits consumed by generations.
	CreditsSpent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loguvo_credits_spent_total",
		Help: "Credits debited from account balances.",
	})

	// InsufficientFunds counts debit attempts rejected for lack of credits.
	InsufficientFunds = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loguvo_insufficient_funds_total",
		Help: "Debits rejected because the balance would have gone negative.",
	})
)

// ─── Generation Metrics ─────────────────────────────────────────────────────

var (
	// Generations counts generation attempts by outcome
	// (ok, insufficient_funds, generator_error, store_error).
	Generations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loguvo_generations_total",
		Help: "Logo generation attempts by outcome.",
	}, []string{"outcome"})

	// StrandedDebits counts debits whose compensating refund also failed.
	// Any nonzero value needs manual reconciliation.
	StrandedDebits = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loguvo_stranded_debits_total",
		Help: "Failed generations whose refund also failed.",
	})
)

// ─── Referral Metrics ───────────────────────────────────────────────────────

var (
	// ReferralRewards counts rewards granted after a validated referral.
	ReferralRewards = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loguvo_referral_rewards_total",
		Help: "Referral rewards credited to referrers.",
	})

	// ReferralRewardFailures counts validated referrals whose reward credit
	// failed. The validation is not rolled back; these are reconciliation
	// gaps to be resolved manually.
	ReferralRewardFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "loguvo_referral_reward_failures_total",
		Help: "Validated referrals whose reward payout failed.",
	})
)

// ─── Webhook Metrics ────────────────────────────────────────────────────────

var (
	// WebhookEvents counts provider notifications by provider and outcome
	// (credited, replay, unresolvable, rejected, error).
	WebhookEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "loguvo_webhook_events_total",
		Help: "Payment-provider webhook deliveries by outcome.",
	}, []string{"provider", "outcome"})
)
