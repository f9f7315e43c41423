package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/roomledger/roomledger/internal/api"
	"github.com/roomledger/roomledger/internal/auth"
	"github.com/roomledger/roomledger/internal/config"
	"github.com/roomledger/roomledger/internal/gateway"
	"github.com/roomledger/roomledger/internal/ledger"
	"github.com/roomledger/roomledger/internal/metrics"
	"github.com/roomledger/roomledger/internal/storage/sqlite"
	"github.com/roomledger/roomledger/pkg/logging"
)

func main() {
	// Setup structured logging
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// Initialize SQLite storage
	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	m := metrics.New()
	transfers := ledger.NewTransferService(store, m)
	reconciler := ledger.NewReconciler(store, m)
	authn := auth.NewPasswordAuthenticator(store)
	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenDuration)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Background reconciliation sweep, only when a gateway is configured;
	// without one, offline captures reconcile through the API alone.
	if cfg.GatewayURL != "" && cfg.SweepInterval > 0 {
		sweeper := ledger.NewSweeper(reconciler, gateway.New(cfg.GatewayURL), m, cfg.SweepInterval)
		go sweeper.Run(ctx)
	} else {
		slog.Info("Sync sweeper disabled", "reason", "no GATEWAY_URL configured")
	}

	srv := &http.Server{
		Addr:    cfg.Bind,
		Handler: api.New(store, transfers, reconciler, authn, jwtManager, m).Handler(),
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			slog.Error("Shutdown failed", "error", err)
		}
	}()

	slog.Info("Server starting", "address", cfg.Bind)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Server stopped")
}
