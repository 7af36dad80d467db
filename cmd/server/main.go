package main

import (
	"context"
	"log/slog"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"

	"github.com/prospectline/crm/internal/config"
	"github.com/prospectline/crm/internal/core"
	"github.com/prospectline/crm/internal/logging"
	"github.com/prospectline/crm/internal/metrics"
	"github.com/prospectline/crm/internal/store"
	"github.com/prospectline/crm/internal/store/memory"
	"github.com/prospectline/crm/internal/store/postgres"
	"github.com/prospectline/crm/internal/web"
)

func main() {
	// Load .env if present; Overload overwrites existing env vars.
	if err := godotenv.Overload(); err != nil {
		slog.Info("no .env file found, using environment variables")
	} else {
		slog.Info("loaded .env file (overwriting existing env vars)")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logging.Setup(cfg.Logging.Level, cfg.Logging.Format)

	slog.Info("configuration loaded",
		"port", cfg.Server.Port,
		"import_max_concurrent", cfg.Import.MaxConcurrent,
		"rate_limit_enabled", cfg.Rate.Enabled,
	)

	ctx := context.Background()

	var (
		contacts store.ContactStore
		events   store.EventRegistry
		history  store.HistoryStore
	)

	if cfg.Database.URL != "" {
		poolConfig, err := pgxpool.ParseConfig(cfg.Database.URL)
		if err != nil {
			slog.Error("failed to parse database URL", "error", err)
			os.Exit(1)
		}
		poolConfig.MaxConns = int32(cfg.Database.MaxConns)
		poolConfig.MinConns = int32(cfg.Database.MinConns)
		poolConfig.MaxConnLifetime = cfg.Database.MaxConnLifetime
		poolConfig.MaxConnIdleTime = cfg.Database.MaxConnIdleTime

		pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			slog.Error("failed to connect to database", "error", err)
			os.Exit(1)
		}
		defer pool.Close()

		if err := postgres.Ping(ctx, pool); err != nil {
			slog.Error("failed to ping database", "error", err)
			os.Exit(1)
		}

		if u, err := url.Parse(cfg.Database.URL); err == nil {
			slog.Info("connected to database", "name", strings.TrimPrefix(u.Path, "/"))
		}

		contacts = postgres.NewContactStore(pool)
		events = postgres.NewEventRegistry(pool)
		history = postgres.NewHistoryStore(pool)
	} else {
		// Local development mode. Everything lives in memory and a couple of
		// events are seeded so the workflow is usable out of the box.
		slog.Warn("DATABASE_URL not set, using in-memory stores")
		contacts = memory.NewContactStore()
		events = memory.NewEventRegistry(
			store.Event{ID: "demo-webinar", Name: "Demo Webinar"},
			store.Event{ID: "demo-summit", Name: "Demo Summit"},
		)
		history = memory.NewHistoryStore()
	}

	m := metrics.New()

	service := core.NewService(core.Options{
		Contacts:       contacts,
		Events:         events,
		History:        history,
		Metrics:        m,
		MaxConcurrent:  cfg.Import.MaxConcurrent,
		Workers:        cfg.Import.Workers,
		ProcessTimeout: cfg.Import.Timeout,
		SessionTTL:     cfg.Import.SessionTTL,
	})

	server := web.NewServer(service, m, cfg)

	// Graceful shutdown: stop accepting requests, then let in-flight batches
	// finish so no terminal outcome is lost mid-write.
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if active := service.Limiter().Active(); active > 0 {
			slog.Info("waiting for imports to complete", "active", active)
			if !service.Limiter().WaitForDrain(cfg.Server.ShutdownTimeout) {
				slog.Warn("imports did not complete in time")
			} else {
				slog.Info("all imports completed")
			}
		}

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("shutdown error", "error", err)
		}
	}()

	if err := server.Start(cfg.Server.Addr()); err != nil {
		slog.Info("server stopped", "error", err)
	}
}
