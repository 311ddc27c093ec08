package api

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/loguvo/loguvo/internal/domain"
)

// ─── Signup ─────────────────────────────────────────────────────────────────

type signupRequest struct {
	AccountID string `json:"account_id"` // from the auth collaborator
	Email     string `json:"email"`
	Ref       string `json:"ref,omitempty"` // referral code from the invite link
}

// handleSignup creates the credit account for a freshly authenticated user,
// grants the signup bonus through the ledger, and registers the referral if
// the signup came through an invite link.
// POST /api/signup
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req signupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccountID == "" {
		writeError(w, http.StatusBadRequest, "account_id is required")
		return
	}

	ctx := r.Context()
	acc := &domain.Account{
		ID:           req.AccountID,
		Email:        req.Email,
		ReferralCode: domain.NewReferralCode(),
	}
	err := s.store.CreateAccount(ctx, acc)
	if errors.Is(err, domain.ErrAccountExists) {
		// The code column is unique too; an 8-hex collision is the only other
		// way to land here, and one retry settles which it was.
		acc.ReferralCode = domain.NewReferralCode()
		err = s.store.CreateAccount(ctx, acc)
	}
	if errors.Is(err, domain.ErrAccountExists) {
		writeError(w, http.StatusConflict, "account already exists")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not create account")
		return
	}

	if s.signupBonus > 0 {
		if _, err := s.ledger.Credit(ctx, acc.ID, s.signupBonus, domain.KindEarned, "signup bonus"); err != nil {
			log.Printf("api: signup bonus for %s: %v", acc.ID, err)
		}
	}

	// Unknown or missing codes are no-ops; signup still succeeds.
	if err := s.referrals.RegisterSignup(ctx, acc.ID, req.Ref); err != nil {
		log.Printf("api: referral registration for %s: %v", acc.ID, err)
	}

	fresh, err := s.store.GetAccount(ctx, acc.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load account")
		return
	}
	writeJSON(w, http.StatusCreated, fresh)
}

// ─── Generation ─────────────────────────────────────────────────────────────

type generateRequest struct {
	AccountID string `json:"account_id"`
	Prompt    string `json:"prompt"`
}

// handleGenerate runs one paid generation.
// POST /api/generate
func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	var req generateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.AccountID == "" || req.Prompt == "" {
		writeError(w, http.StatusBadRequest, "account_id and prompt are required")
		return
	}

	rec, err := s.gate.Generate(r.Context(), req.AccountID, req.Prompt)
	switch {
	case errors.Is(err, domain.ErrInsufficientFunds):
		// User-correctable, surfaced verbatim.
		writeError(w, http.StatusPaymentRequired, "not enough credits")
		return
	case errors.Is(err, domain.ErrAccountNotFound):
		log.Printf("api: generate for unknown account %s", req.AccountID)
		writeError(w, http.StatusInternalServerError, "generation failed")
		return
	case err != nil:
		// External failure; the debit has already been refunded.
		log.Printf("api: generate for %s: %v", req.AccountID, err)
		writeError(w, http.StatusBadGateway, "generation failed, credit refunded")
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// ─── Account Reads ──────────────────────────────────────────────────────────

// handleAccount returns the account with its validated-referral count.
// GET /api/accounts/{id}
func (s *Server) handleAccount(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	acc, err := s.store.GetAccount(r.Context(), id)
	if errors.Is(err, domain.ErrAccountNotFound) {
		writeError(w, http.StatusNotFound, "account not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load account")
		return
	}
	validReferrals, err := s.store.CountValidReferrals(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load account")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"account":         acc,
		"valid_referrals": validReferrals,
	})
}

// handleHistory returns the account's recent ledger rows.
// GET /api/accounts/{id}/history
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	txs, err := s.store.ListTransactions(r.Context(), id, limitParam(r, 20))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load history")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"transactions": txs})
}

// handleLogos returns the account's recent generations.
// GET /api/accounts/{id}/logos
func (s *Server) handleLogos(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	recs, err := s.store.ListGenerations(r.Context(), id, limitParam(r, 12))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load logos")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"logos": recs})
}

// handleLeaderboard returns the top accounts by balance.
// GET /api/leaderboard
func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	top, err := s.store.Leaderboard(r.Context(), limitParam(r, 10))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "could not load leaderboard")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"leaders": top})
}

// limitParam reads ?limit=, clamped to [1, 100].
func limitParam(r *http.Request, def int) int {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 1 {
		return def
	}
	if n > 100 {
		return 100
	}
	return n
}
