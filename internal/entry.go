// Package internal provides the main application initialization and runtime logic.
package internal

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

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/starford/graphlens/internal/api"
	"github.com/starford/graphlens/internal/dataset"
	"github.com/starford/graphlens/internal/index"
	"github.com/starford/graphlens/internal/metrics"
	"github.com/starford/graphlens/internal/sse"
)

var errConfigRequired = errors.New("config is required")

// Run starts the HTTP server: it imports the dataset directory, keeps it in
// sync while running and serves the entity API until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app, err := newApplication(opts)
	if err != nil {
		return err
	}
	cfg := app.config
	logger := newLogger(cfg, app.logOutput)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("dataset_path", cfg.Dataset.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("chunk_backend", cfg.Chunks.Backend),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure dataset directory exists.
	if err := os.MkdirAll(cfg.Dataset.Path, 0o755); err != nil {
		return fmt.Errorf("create dataset dir: %w", err)
	}

	st, err := openStores(cfg)
	if err != nil {
		return err
	}
	defer st.Close()

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	importer := st.importer(cfg, logger, datasetCallback(ctx, st.db, broker))

	// Run initial sync.
	if rep, err := importer.Sync(ctx); err != nil {
		logger.Warn("initial sync failed", slog.String("error", err.Error()))
	} else {
		logger.Info("initial sync done",
			slog.Int("imported", rep.Imported),
			slog.Int("skipped", rep.Skipped),
			slog.Int("removed", rep.Removed),
			slog.Int("failed", rep.Failed))
	}
	refreshEntityGauge(ctx, st.db)

	engine := st.engine(cfg, logger)
	apiRouter := api.NewRouter(engine, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := st.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	if cfg.Metrics.Enabled {
		r.Handle("/metrics", promhttp.Handler())
	}

	// Mount API routes under /api (SSE lives at /api/events).
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Watch the dataset directory; changes reach SSE clients via the callback.
	if cfg.Dataset.Watch {
		g.Go(func() error {
			if err := importer.Watch(gCtx); err != nil {
				logger.Error("dataset watcher stopped", slog.String("error", err.Error()))
			}
			return nil
		})
	}

	// Start HTTP server.
	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

	// Handle shutdown signals.
	g.Go(func() error {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		defer signal.Stop(quit)

		select {
		case sig := <-quit:
			logger.Info("Received shutdown signal", slog.String("signal", sig.String()))
		case <-gCtx.Done():
			logger.Info("Context cancelled, initiating shutdown")
		}

		logger.Info("Shutting down server...")

		// Close SSE streams first so Shutdown does not wait on them.
		broker.Close()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group context so the watcher stops with the server.
var errShutdown = errors.New("shutdown")

// datasetCallback fans dataset changes out to SSE clients and metrics.
func datasetCallback(ctx context.Context, db *index.DB, broker *sse.Broker) dataset.EventCallback {
	return func(ev dataset.Event) {
		metrics.DatasetImportsTotal.WithLabelValues(string(ev.Kind)).Inc()

		change := sse.DatasetChange{
			Kind:          string(ev.Kind),
			Name:          ev.Name,
			Entities:      ev.Entities,
			Relationships: ev.Relationships,
			Chunks:        ev.Chunks,
		}
		if ev.Err != nil {
			change.Error = ev.Err.Error()
		}
		broker.PublishDatasetChange(change)

		if ev.Kind != dataset.EventFailed {
			refreshEntityGauge(ctx, db)
		}
	}
}

func refreshEntityGauge(ctx context.Context, db *index.DB) {
	n, err := db.CountEntities(ctx)
	if err != nil {
		slog.Warn("count entities failed", slog.String("error", err.Error()))
		return
	}
	metrics.Entities.Set(float64(n))
}
