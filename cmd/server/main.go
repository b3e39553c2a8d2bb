// Package main is the entrypoint for the checkd API server.
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
	"time"

	"github.com/ifcore/checkd/internal/api"
	"github.com/ifcore/checkd/internal/api/handler"
	mw "github.com/ifcore/checkd/internal/api/middleware"
	"github.com/ifcore/checkd/internal/api/response"
	"github.com/ifcore/checkd/internal/cache"
	"github.com/ifcore/checkd/internal/checks"
	"github.com/ifcore/checkd/internal/config"
	"github.com/ifcore/checkd/internal/engine"
	"github.com/ifcore/checkd/internal/job"
	"github.com/ifcore/checkd/internal/model"
	"github.com/ifcore/checkd/internal/orchestrator"
	"github.com/ifcore/checkd/internal/registry"
	"github.com/ifcore/checkd/internal/store"
)

const shutdownTimeout = 30 * time.Second

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// 1. Load config — fail fast on invalid config
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	slog.Info("config loaded", "env", cfg.Server.Env, "concurrency", cfg.Engine.Concurrency)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Connect to database
	pool, err := store.Connect(ctx, cfg.Database)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}
	defer pool.Close()
	slog.Info("database connected")

	// 3. Run migrations
	if err := store.RunMigrations(cfg.Database.URL, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}
	slog.Info("database migrations applied")

	// 4. Create Redis cache
	redisCache, err := cache.NewRedisCache(cfg.Redis.URL)
	if err != nil {
		return fmt.Errorf("create redis cache: %w", err)
	}
	defer redisCache.Close()

	if err := redisCache.Ping(ctx); err != nil {
		return fmt.Errorf("ping redis: %w", err)
	}
	slog.Info("redis connected")

	// 5. Build the check catalog
	reg := registry.New()
	for _, c := range checks.All() {
		if _, err := reg.Register(c); err != nil {
			slog.Warn("check excluded from catalog", "error", err)
		}
	}
	slog.Info("check catalog loaded", "checks", len(reg.List()), "rejected", len(reg.Rejected()))

	// 6. Create store, tracker, engine, orchestrator
	pgStore := store.NewPostgresStore(pool)
	tracker := job.NewTracker(pgStore, redisCache, cfg.Engine.JobMaxAge)
	eng := engine.New(cfg.Engine.Concurrency, cfg.Engine.CheckTimeout)
	loader := model.NewFileLoader(cfg.Model.Dir)
	svc := orchestrator.New(reg, loader, eng, tracker)

	// 7. Start the watchdog
	go tracker.Watchdog(ctx, cfg.Engine.WatchdogInterval)

	// 8. Build router with dependencies
	deps := api.Dependencies{
		RateLimit: mw.NewRateLimit(redisCache, cfg.Server.RateLimitPerMin),

		HealthHandler:        healthHandler(pgStore, redisCache),
		StartJobHandler:      handler.NewStartJobHandler(svc),
		GetJobHandler:        handler.NewGetJobHandler(svc),
		CompleteCheckHandler: handler.NewCompleteCheckHandler(svc),
		ListChecksHandler:    handler.NewListChecksHandler(svc),
	}

	router := api.NewRouter(deps)

	// 9. Start HTTP server
	addr := fmt.Sprintf(":%d", cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
		slog.Info("shutdown signal received, draining connections...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	slog.Info("server stopped gracefully")
	return nil
}

// healthHandler checks database and cache connectivity.
func healthHandler(s store.Store, c cache.Cache) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"database": "ok",
			"cache":    "ok",
		}

		if err := s.Ping(r.Context()); err != nil {
			checks["database"] = "degraded"
		}
		if err := c.Ping(r.Context()); err != nil {
			checks["cache"] = "degraded"
		}

		degraded := checks["database"] != "ok" || checks["cache"] != "ok"
		if degraded {
			response.Error(w, http.StatusServiceUnavailable, "DEGRADED",
				"One or more services degraded", checks)
			return
		}

		response.JSON(w, map[string]any{
			"status":   "ok",
			"services": checks,
		})
	}
}
