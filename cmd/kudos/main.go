package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/danielgtaylor/huma/v2"
	"github.com/danielgtaylor/huma/v2/adapters/humachi"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/riandyrn/otelchi"

	"github.com/kudoware/kudos/internal/adapter/fsm"
	"github.com/kudoware/kudos/internal/adapter/otel"
	"github.com/kudoware/kudos/internal/adapter/sqlite"
	"github.com/kudoware/kudos/internal/adapter/ttlcache"
	"github.com/kudoware/kudos/internal/app"
	"github.com/kudoware/kudos/internal/domain"

	handler "github.com/kudoware/kudos/internal/adapter/http"
	riveradapter "github.com/kudoware/kudos/internal/adapter/river"
)

// Config holds all runtime settings, populated from the environment.
type Config struct {
	Port         string        `env:"PORT" envDefault:"8080"`
	DatabasePath string        `env:"DATABASE_PATH" envDefault:"kudos.db"`
	CacheTTL     time.Duration `env:"CACHE_TTL" envDefault:"5m"`

	// RequireApproval controls the intake state: when false, new
	// submissions publish immediately as approved.
	RequireApproval bool `env:"REQUIRE_APPROVAL" envDefault:"true"`

	// StatsExcludeArchived keeps archived testimonials out of the
	// average rating (counts always include them).
	StatsExcludeArchived bool `env:"STATS_EXCLUDE_ARCHIVED" envDefault:"true"`

	BulkWorkers     int `env:"BULK_WORKERS" envDefault:"4"`
	BulkChunkSize   int `env:"BULK_CHUNK_SIZE" envDefault:"100"`
	BulkMaxAttempts int `env:"BULK_MAX_ATTEMPTS" envDefault:"4"`
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	ctx := context.Background()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return fmt.Errorf("parsing config: %w", err)
	}

	// --- Observability ---
	providers, err := otel.Setup(ctx, otel.ConfigFromEnv())
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}

	// --- Adapters (out) ---
	db, err := otel.OpenDB(cfg.DatabasePath)
	if err != nil {
		return fmt.Errorf("database: %w", err)
	}
	defer db.Close()

	sqliteStore, err := sqlite.NewFromDB(db)
	if err != nil {
		return fmt.Errorf("store: %w", err)
	}
	store := otel.NewTracingStore(sqliteStore)

	memCache := ttlcache.New(cfg.CacheTTL)
	defer memCache.Stop()
	cache, err := otel.NewMeteredCache(memCache)
	if err != nil {
		return fmt.Errorf("cache metrics: %w", err)
	}

	// --- Application ---
	bus := app.NewBus()
	svc := app.NewModerationService(store, fsm.New(), bus, cfg.RequireApproval)
	tracker := app.NewBatchTracker()

	client, err := riveradapter.Setup(ctx, db,
		riveradapter.Config{MaxWorkers: cfg.BulkWorkers},
		svc, tracker, store, riveradapter.LogSender{},
	)
	if err != nil {
		return fmt.Errorf("river: %w", err)
	}

	// Invalidation runs before notification enqueueing; both finish
	// before any moderation call returns.
	bus.Subscribe(app.NewCacheCoordinator(cache, slog.Default()))
	bus.Subscribe(riveradapter.NewNotificationEnqueuer(client))

	dispatcher := app.NewBulkDispatcher(
		riveradapter.NewEnqueuer(client, cfg.BulkMaxAttempts),
		tracker, cfg.BulkChunkSize, slog.Default(),
	)
	stats := app.NewStatsAggregator(store, cache,
		domain.StatsPolicy{ExcludeArchived: cfg.StatsExcludeArchived}, cfg.CacheTTL)
	listings := app.NewListingService(store, cache, cfg.CacheTTL)

	// --- Adapters (in) ---
	router := chi.NewMux()
	router.Use(otelchi.Middleware("kudos", otelchi.WithChiRoutes(router)))
	router.Use(middleware.Logger)
	router.Use(middleware.Recoverer)
	router.Use(middleware.RequestID)

	api := humachi.New(router, huma.DefaultConfig("kudos", "0.1.0"))
	handler.Register(api, svc, listings, stats, dispatcher)

	// --- Job queue ---
	if err := client.Start(ctx); err != nil {
		return fmt.Errorf("starting river: %w", err)
	}

	// --- Server ---
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	done := make(chan os.Signal, 1)
	signal.Notify(done, os.Interrupt, syscall.SIGTERM)

	serverErr := make(chan error, 1)
	go func() {
		log.Printf("kudos listening on :%s", cfg.Port)
		log.Printf("API docs: http://localhost:%s/docs", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	select {
	case err := <-serverErr:
		return fmt.Errorf("server: %w", err)
	case <-done:
	}
	log.Println("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown error: %v", err)
	}
	if err := client.Stop(shutdownCtx); err != nil {
		log.Printf("river shutdown error: %v", err)
	}
	if err := providers.Shutdown(shutdownCtx); err != nil {
		log.Printf("otel shutdown error: %v", err)
	}

	log.Println("stopped")
	return nil
}
