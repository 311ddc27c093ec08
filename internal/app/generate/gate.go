// Package generate orchestrates one user-initiated logo generation:
// debit one credit, invoke the external generator, persist the result.
// The sequence is not atomic across the external call, so the refund
// compensation on the failure path is part of the contract, not an
// optimization.
package generate

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/loguvo/loguvo/internal/app/ledger"
	"github.com/loguvo/loguvo/internal/domain"
	"github.com/loguvo/loguvo/internal/infra/observability"
)

// DefaultCost is the number of credits one generation consumes.
const DefaultCost = 1

// DefaultTimeout bounds the external generator call.
const DefaultTimeout = 30 * time.Second

// ActivityValidator is notified after a successful generation so referral
// validation can run. Implemented by the referral engine.
type ActivityValidator interface {
	ValidateReferralActivity(ctx context.Context, userID string) error
}

// Config controls gate behavior.
type Config struct {
	Cost    int64         // credits per generation (default 1)
	Timeout time.Duration // external call deadline (default 30s)
}

// Gate runs the debit → generate → record sequence for one account action.
type Gate struct {
	ledger    *ledger.Service
	store     domain.LedgerStore
	generator domain.Generator
	validator ActivityValidator // optional
	cost      int64
	timeout   time.Duration
}

// New creates a generation gate. validator may be nil.
func New(cfg Config, ledger *ledger.Service, store domain.LedgerStore, gen domain.Generator, validator ActivityValidator) *Gate {
	if cfg.Cost <= 0 {
		cfg.Cost = DefaultCost
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Gate{
		ledger:    ledger,
		store:     store,
		generator: gen,
		validator: validator,
		cost:      cfg.Cost,
		timeout:   cfg.Timeout,
	}
}

// Generate produces one logo for the account. The debit happens first; if it
// fails with ErrInsufficientFunds no external call is made. If the external
// call or the record insert fails afterwards, the debit is refunded before
// the error is returned — a debit is never left stranded. The generator is
// called at most once per debited credit.
func (g *Gate) Generate(ctx context.Context, accountID, prompt string) (*domain.GenerationRecord, error) {
	prompt = strings.TrimSpace(prompt)
	if prompt == "" {
		return nil, fmt.Errorf("prompt must not be empty")
	}

	if _, err := g.ledger.Debit(ctx, accountID, g.cost, "generated logo"); err != nil {
		if errors.Is(err, domain.ErrInsufficientFunds) {
			observability.Generations.WithLabelValues("insufficient_funds").Inc()
		}
		return nil, err
	}

	genCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()
	imageRef, err := g.generator.Generate(genCtx, prompt)
	if err != nil {
		observability.Generations.WithLabelValues("generator_error").Inc()
		g.refund(ctx, accountID)
		return nil, fmt.Errorf("generator: %w", err)
	}

	rec := &domain.GenerationRecord{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Prompt:    prompt,
		ImageRef:  imageRef,
		CreatedAt: time.Now().UTC(),
	}
	if err := g.store.InsertGeneration(ctx, rec); err != nil {
		observability.Generations.WithLabelValues("store_error").Inc()
		g.refund(ctx, accountID)
		return nil, fmt.Errorf("record generation: %w", err)
	}

	observability.Generations.WithLabelValues("ok").Inc()

	if g.validator != nil {
		// Referral validation rides on the generation event but must never
		// fail the generation itself.
		if err := g.validator.ValidateReferralActivity(ctx, accountID); err != nil {
			log.Printf("generate: referral validation for %s: %v", accountID, err)
		}
	}
	return rec, nil
}

// refund compensates a debit after a downstream failure. A refund that also
// fails leaves a stranded debit; that is logged and counted for manual
// reconciliation.
func (g *Gate) refund(ctx context.Context, accountID string) {
	if _, err := g.ledger.Refund(ctx, accountID, g.cost, "generation failed"); err != nil {
		observability.StrandedDebits.Inc()
		log.Printf("generate: refund of %d credits to %s failed: %v (stranded debit)",
			g.cost, accountID, err)
	}
}
