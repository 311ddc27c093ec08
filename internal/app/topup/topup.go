// Package topup turns payment-provider webhook notifications into ledger
// credits, exactly once per event. Providers deliver at least once; the
// store's atomic claim on (provider, external_id) is the idempotency
// boundary that makes replays harmless.
package topup

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/loguvo/loguvo/internal/app/ledger"
	"github.com/loguvo/loguvo/internal/domain"
	"github.com/loguvo/loguvo/internal/infra/observability"
)

// Notification is a provider-agnostic top-up event. The API layer normalizes
// each provider's payload into this shape before processing.
type Notification struct {
	Provider   string
	ExternalID string
	AccountRef string
	Amount     int64 // credits, must be positive
}

// Ingestor processes normalized top-up notifications.
type Ingestor struct {
	store  domain.LedgerStore
	ledger *ledger.Service
}

// New creates a webhook ingestor.
func New(store domain.LedgerStore, ledger *ledger.Service) *Ingestor {
	return &Ingestor{store: store, ledger: ledger}
}

// Process handles one notification. A nil return means the event was applied
// and the provider should receive a success response; so does
// ErrAlreadyProcessed, which reports an at-least-once replay the caller must
// also answer with success so the provider stops retrying. Events whose
// account could not be resolved return nil too: they stay claimed, logged and
// left for manual reconciliation.
//
// Malformed notifications fail with ErrMalformedPayload before the
// idempotency claim, so garbage never consumes an idempotency slot.
func (i *Ingestor) Process(ctx context.Context, n Notification) error {
	if n.Provider == "" || n.ExternalID == "" || n.AccountRef == "" || n.Amount <= 0 {
		observability.WebhookEvents.WithLabelValues(orUnknown(n.Provider), "rejected").Inc()
		return fmt.Errorf("%w: provider=%q external_id=%q amount=%d",
			domain.ErrMalformedPayload, n.Provider, n.ExternalID, n.Amount)
	}

	accepted, err := i.store.RecordWebhookEvent(ctx, n.Provider, n.ExternalID, n.Amount)
	if err != nil {
		observability.WebhookEvents.WithLabelValues(n.Provider, "error").Inc()
		return err
	}
	if !accepted {
		observability.WebhookEvents.WithLabelValues(n.Provider, "replay").Inc()
		return fmt.Errorf("%w: %s/%s", domain.ErrAlreadyProcessed, n.Provider, n.ExternalID)
	}

	reason := fmt.Sprintf("%s top-up %s", n.Provider, n.ExternalID)
	_, err = i.ledger.Credit(ctx, n.AccountRef, n.Amount, domain.KindPurchased, reason)
	if errors.Is(err, domain.ErrAccountNotFound) {
		// The event stays claimed so the provider is not re-triggered; the
		// credit needs manual reconciliation.
		observability.WebhookEvents.WithLabelValues(n.Provider, "unresolvable").Inc()
		log.Printf("topup: %s event %s references unknown account %q (needs reconciliation)",
			n.Provider, n.ExternalID, n.AccountRef)
		if markErr := i.store.MarkWebhookError(ctx, n.Provider, n.ExternalID, "account not found: "+n.AccountRef); markErr != nil {
			log.Printf("topup: marking webhook error: %v", markErr)
		}
		return nil
	}
	if err != nil {
		observability.WebhookEvents.WithLabelValues(n.Provider, "error").Inc()
		log.Printf("topup: crediting %s for %s event %s: %v (claimed, needs reconciliation)",
			n.AccountRef, n.Provider, n.ExternalID, err)
		if markErr := i.store.MarkWebhookError(ctx, n.Provider, n.ExternalID, err.Error()); markErr != nil {
			log.Printf("topup: marking webhook error: %v", markErr)
		}
		return nil
	}

	observability.WebhookEvents.WithLabelValues(n.Provider, "credited").Inc()
	return nil
}

func orUnknown(provider string) string {
	if provider == "" {
		return "unknown"
	}
	return provider
}
