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

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/shosatojp/kakeibo-back/internal/amqp"
	"github.com/shosatojp/kakeibo-back/internal/config"
	apphttp "github.com/shosatojp/kakeibo-back/internal/http"
	applog "github.com/shosatojp/kakeibo-back/internal/log"
	"github.com/shosatojp/kakeibo-back/internal/services"
	"github.com/shosatojp/kakeibo-back/internal/storage"
)

func main() {
	// Load .env file for local development (ignore errors in production/docker)
	_ = godotenv.Load()

	cfg := config.Load()

	// Setup structured logging
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: applog.ParseLevel(cfg.LogLevel),
	}))
	slog.SetDefault(logger)

	logger.Info("Starting kakeibo server")

	if err := cfg.Validate(); err != nil {
		logger.Error("Configuration validation failed", "error", err)
		os.Exit(1)
	}

	repo, err := storage.NewSQLiteRepository(cfg.SQLiteDBPath)
	if err != nil {
		logger.Error("Failed to initialize SQLite repository", "error", err, "path", cfg.SQLiteDBPath)
		os.Exit(1)
	}
	defer repo.Close()

	// AMQP is optional: without a URL, entry events are simply not published
	var events services.EventPublisher
	if cfg.AMQPURL != "" {
		amqpClient, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
		if err != nil {
			logger.Error("Failed to initialize AMQP client", "error", err)
			os.Exit(1)
		}
		defer amqpClient.Close()
		events = amqpClient
		logger.Info("AMQP publisher initialized", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	} else {
		logger.Info("AMQP disabled - no AMQP_URL provided")
	}

	auth := services.NewAuthService(repo, services.SHA256Digester{}, cfg.MinPasswordLength)
	sessions := services.NewSessionService(auth, repo, nil, nil, cfg.SessionLifetime, cfg.SessionTokenLength)
	ledger := services.NewLedgerService(repo, events, nil, cfg.ScopeDeleteToOwner)
	summary := services.NewSummaryService(repo, repo, nil)
	reaper := services.NewSessionReaper(repo, nil, cfg.ReaperInterval, cfg.SessionLifetime)

	if !cfg.ScopeDeleteToOwner {
		logger.Warn("Entry deletion is not scoped to the owning user")
	}

	srv := apphttp.NewServer(":"+cfg.Port, auth, sessions, ledger, summary)

	// Configure server timeouts and limits
	srv.ReadTimeout = 10 * time.Second
	srv.WriteTimeout = 10 * time.Second
	srv.IdleTimeout = 60 * time.Second
	srv.MaxHeaderBytes = 1 << 16 // 64KB

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("Starting HTTP server", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return reaper.Run(gctx)
	})

	g.Go(func() error {
		<-gctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", "error", err)
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Server error", "error", err)
		os.Exit(1)
	}

	logger.Info("Server stopped gracefully")
}
