package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/vaultclub/vault-api/internal/api"
	"github.com/vaultclub/vault-api/internal/auth"
	"github.com/vaultclub/vault-api/internal/infra/logging"
	"github.com/vaultclub/vault-api/internal/infra/pgutils"
	accesslogspg "github.com/vaultclub/vault-api/internal/repos/accesslogs/postgres"
	"github.com/vaultclub/vault-api/internal/policy"
	"github.com/vaultclub/vault-api/internal/services/vault"
	"github.com/vaultclub/vault-api/pkg/envconf"
	"github.com/vaultclub/vault-api/pkg/shutdownqueue"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	err := run(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error running api: %v", err)
		//nolint:gocritic
		os.Exit(1)
	}
}

func run(ctx context.Context) (retErr error) {
	// Local development convenience; a missing .env is fine.
	_ = godotenv.Load()

	cfg := new(apiConfig)

	err := envconf.Load(cfg)
	if err != nil {
		return fmt.Errorf("init config: %w", err)
	}

	logging.SetupJSON(cfg.LogLevel)

	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()

		serr := shutdownqueue.Shutdown(shutdownCtx)
		if serr != nil {
			retErr = errors.Join(retErr, serr)
		}
	}()

	// --- Infra ---
	dbConns, err := pgutils.OpenDB(ctx, cfg.Postgres)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}

	shutdownqueue.Add(func(context.Context) error {
		slog.Info("Close database pool")

		return dbConns.Close()
	})

	pol := policy.Default()
	if cfg.PolicyFile != "" {
		pol, err = policy.LoadFile(cfg.PolicyFile)
		if err != nil {
			return fmt.Errorf("load policy file: %w", err)
		}
	}

	if err := pol.Validate(); err != nil {
		return fmt.Errorf("validate policy: %w", err)
	}

	verifier := auth.NewGoTrueVerifier(cfg.AuthBaseURL, cfg.AuthAnonKey)

	vaultSrv := vault.New(dbConns, pol)

	// --- HTTP server ---
	srv := api.NewServer(cfg.Port, api.RouterConfig{
		Service:        vaultSrv,
		Verifier:       verifier,
		ServiceAPIKey:  cfg.ServiceAPIKey,
		AllowedOrigins: cfg.origins(),
		AccessLogs:     accesslogspg.New(dbConns),
	})

	// Register HTTP server graceful shutdown
	shutdownqueue.Add(func(c context.Context) error {
		slog.Info("Shut down server")

		err := srv.Shutdown(c)
		if err != nil {
			return fmt.Errorf("shutdown srv: %w", err)
		}

		return nil
	})

	// Run server
	errCh := make(chan error, 1)

	go func() {
		serr := srv.ListenAndServe()
		// http.ErrServerClosed is the normal path during Shutdown
		if serr != nil && !errors.Is(serr, http.ErrServerClosed) {
			errCh <- serr
			return
		}

		errCh <- nil
	}()

	slog.Info("API started", "port", cfg.Port, "policy_version", pol.Version)

	// --- Wait until either context cancels or server errors out ---
	select {
	case <-ctx.Done():
		// graceful path; deferred shutdownqueue.Shutdown will run
		return nil
	case serr := <-errCh:
		if serr != nil {
			return fmt.Errorf("server error: %w", serr)
		}

		return nil
	}
}
