// Package api provides the HTTP server for the credit core: signup,
// generation, account reads, the leaderboard, and the payment-provider
// webhook endpoints.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/loguvo/loguvo/internal/app/generate"
	"github.com/loguvo/loguvo/internal/app/ledger"
	"github.com/loguvo/loguvo/internal/app/referral"
	"github.com/loguvo/loguvo/internal/app/topup"
	"github.com/loguvo/loguvo/internal/domain"
)

// Server is the Loguvo HTTP API server. Authentication is an external
// collaborator: handlers trust the account id they are handed, exactly as
// the rest of the core does.
type Server struct {
	store          domain.LedgerStore
	ledger         *ledger.Service
	gate           *generate.Gate
	referrals      *referral.Engine
	topups         *topup.Ingestor
	signupBonus    int64
	metricsEnabled bool
}

// NewServer creates an API server over the assembled services.
func NewServer(store domain.LedgerStore, ledger *ledger.Service, gate *generate.Gate, referrals *referral.Engine, topups *topup.Ingestor, signupBonus int64) *Server {
	return &Server{
		store:       store,
		ledger:      ledger,
		gate:        gate,
		referrals:   referrals,
		topups:      topups,
		signupBonus: signupBonus,
	}
}

// EnableMetrics enables the /metrics Prometheus endpoint.
func (s *Server) EnableMetrics() { s.metricsEnabled = true }

// Handler returns the chi router with all routes mounted.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(2 * time.Minute))
	r.Use(corsMiddleware)

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api", func(r chi.Router) {
		r.Post("/signup", s.handleSignup)
		r.Post("/generate", s.handleGenerate)
		r.Get("/leaderboard", s.handleLeaderboard)

		r.Route("/accounts/{id}", func(r chi.Router) {
			r.Get("/", s.handleAccount)
			r.Get("/history", s.handleHistory)
			r.Get("/logos", s.handleLogos)
		})

		// Payment-provider callbacks.
		r.Post("/ramp/webhook", s.handleRampWebhook)
		r.Post("/coinremitter/webhook", s.handleCoinRemitterWebhook)
	})

	if s.metricsEnabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	return r
}

// ─── Response Helpers ───────────────────────────────────────────────────────

// writeJSON writes a JSON response.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a JSON error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]interface{}{
		"error": map[string]interface{}{
			"message": msg,
			"type":    "error",
		},
	})
}

// corsMiddleware adds CORS headers for the web client.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}
