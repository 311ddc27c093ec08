package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/loguvo/loguvo/internal/app/topup"
	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Payment Provider Webhooks ──────────────────────────────────────────────
// Each provider gets its own endpoint and payload shape; both normalize into
// a topup.Notification. The response is success-coded whenever the event is
// durably recorded as processed — including the idempotent-replay case — so
// the provider stops retrying.

// rampWebhook is the Ramp Network notification payload.
type rampWebhook struct {
	Type     string `json:"type"` // only RELEASED purchases credit accounts
	Purchase struct {
		ID         string `json:"id"`
		AccountRef string `json:"account_ref"`
		Credits    int64  `json:"credits"`
	} `json:"purchase"`
}

// handleRampWebhook ingests Ramp purchase notifications.
// POST /api/ramp/webhook
func (s *Server) handleRampWebhook(w http.ResponseWriter, r *http.Request) {
	var payload rampWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Type != "RELEASED" {
		// Status updates we don't act on; acknowledge and move on.
		log.Printf("api: ignored ramp event type %q", payload.Type)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	s.ingest(w, r, topup.Notification{
		Provider:   "ramp",
		ExternalID: payload.Purchase.ID,
		AccountRef: payload.Purchase.AccountRef,
		Amount:     payload.Purchase.Credits,
	})
}

// coinRemitterWebhook is the CoinRemitter invoice notification payload.
type coinRemitterWebhook struct {
	InvoiceID  string `json:"invoice_id"`
	Status     string `json:"status"` // only Paid invoices credit accounts
	AccountRef string `json:"account_ref"`
	Credits    int64  `json:"credits"`
}

// handleCoinRemitterWebhook ingests CoinRemitter invoice notifications.
// POST /api/coinremitter/webhook
func (s *Server) handleCoinRemitterWebhook(w http.ResponseWriter, r *http.Request) {
	var payload coinRemitterWebhook
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if payload.Status != "Paid" {
		log.Printf("api: ignored coinremitter invoice status %q", payload.Status)
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
		return
	}
	s.ingest(w, r, topup.Notification{
		Provider:   "coinremitter",
		ExternalID: payload.InvoiceID,
		AccountRef: payload.AccountRef,
		Amount:     payload.Credits,
	})
}

// ingest runs a normalized notification through the ingestor and maps the
// outcome to a provider-facing status code.
func (s *Server) ingest(w http.ResponseWriter, r *http.Request, n topup.Notification) {
	err := s.topups.Process(r.Context(), n)
	switch {
	case errors.Is(err, domain.ErrAlreadyProcessed):
		// Replay of an event we already applied; success stops the retries.
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	case errors.Is(err, domain.ErrMalformedPayload):
		// Rejected before any state mutation; the provider should fix, not retry.
		log.Printf("api: %v", err)
		writeError(w, http.StatusBadRequest, "malformed webhook payload")
	case err != nil:
		// Nothing durably recorded yet; a retry is safe and wanted.
		log.Printf("api: webhook processing: %v", err)
		writeError(w, http.StatusInternalServerError, "webhook processing failed")
	default:
		writeJSON(w, http.StatusOK, map[string]bool{"received": true})
	}
}
