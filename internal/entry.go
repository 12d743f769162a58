// Package internal provides the workspace wiring and the serve runtime.
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
	"golang.org/x/sync/errgroup"

	"github.com/starford/cbl/internal/api"
	"github.com/starford/cbl/internal/docservice"
	"github.com/starford/cbl/internal/sse"
	"github.com/starford/cbl/internal/watch"
)

// Run serves the HTTP API for a workspace until ctx is cancelled or a
// shutdown signal arrives.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}
	if app.layout.Root == "" {
		app.layout = NewLayout("")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("root", app.layout.Root),
		slog.String("sections", cfg.Display.Sections),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	ws, err := OpenWorkspace(app.layout, cfg, false, logger, docservice.WithOnAdd(func(a docservice.Added) {
		broker.PublishObjectAdded(sse.ObjectAdded{
			Project:  a.Project,
			Name:     a.Record.Name,
			Version:  a.Record.Version,
			Section:  a.Record.SectionLabel(),
			Audience: a.Record.AudienceLabel(),
			Digest:   a.Record.Digest,
		})
	}))
	if err != nil {
		return err
	}
	defer ws.Close()

	apiRouter := api.NewRouter(ws.Service, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := ws.DB.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	// Mount API routes under /api.
	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:    cfg.App.HTTP.Address(),
		Handler: r,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gCtx := errgroup.WithContext(runCtx)

	// Reload section order and defaults when the config file changes.
	if app.configPath != "" {
		g.Go(func() error {
			err := watch.File(gCtx, app.configPath, watch.DefaultDebounce, logger, func() {
				reloadConfig(app.configPath, ws.Service, broker, logger)
			})
			if err != nil {
				logger.Warn("config watcher disabled", slog.String("error", err.Error()))
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		stop()

		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// reloadConfig applies a changed config file to the running service.
// An invalid file is logged and the previous settings stay in effect.
func reloadConfig(path string, svc *docservice.Service, broker *sse.Broker, logger *slog.Logger) {
	cfg, err := LoadConfig(path)
	if err != nil {
		logger.Warn("config reload failed", slog.String("error", err.Error()))
		return
	}
	settings := cfg.ServiceSettings()
	svc.SetSettings(settings)
	broker.PublishConfigReloaded(settings.Sections)
	logger.Info("config reloaded",
		slog.String("sections", cfg.Display.Sections),
		slog.String("default_audience", settings.DefaultAudience))
}
