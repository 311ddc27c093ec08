package cli

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/loguvo/loguvo/internal/api"
	"github.com/loguvo/loguvo/internal/app/generate"
	"github.com/loguvo/loguvo/internal/app/ledger"
	"github.com/loguvo/loguvo/internal/app/referral"
	"github.com/loguvo/loguvo/internal/app/topup"
	"github.com/loguvo/loguvo/internal/daemon"
	"github.com/loguvo/loguvo/internal/domain"
	"github.com/loguvo/loguvo/internal/infra/generator"
	"github.com/loguvo/loguvo/internal/infra/sqlite"
)

// ─── serve ──────────────────────────────────────────────────────────────────

var configPath string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the Loguvo API server",
	Long:  `Start the HTTP API server with the sqlite ledger store. Stops cleanly on SIGINT/SIGTERM.`,
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVarP(&configPath, "config", "c", "", "Path to the TOML config file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := daemon.Load(configPath)
	if err != nil {
		return err
	}

	db, err := sqlite.Open(cfg.Storage.Path)
	if err != nil {
		return err
	}
	defer db.Close()

	// An empty endpoint selects the built-in placeholder generator, which
	// keeps local development free of any external service.
	var gen domain.Generator
	if cfg.Generator.Endpoint != "" {
		gen = generator.NewClient(cfg.Generator.Endpoint, cfg.Generator.TimeoutDuration())
	} else {
		log.Printf("cli: no generator endpoint configured, using placeholder art")
		gen = generator.Placeholder{}
	}

	led := ledger.New(db)
	referrals := referral.New(db, led, cfg.Credits.ReferralReward)
	gate := generate.New(generate.Config{
		Cost:    cfg.Credits.GenerationCost,
		Timeout: cfg.Generator.TimeoutDuration(),
	}, led, db, gen, referrals)
	topups := topup.New(db, led)

	server := api.NewServer(db, led, gate, referrals, topups, cfg.Credits.SignupBonus)
	if cfg.API.MetricsEnabled {
		server.EnableMetrics()
	}

	srv := &http.Server{
		Addr:         cfg.API.Addr(),
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 2 * time.Minute,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("cli: listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-quit:
		log.Printf("cli: received %s, shutting down", sig)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
