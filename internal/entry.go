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
	"golang.org/x/sync/errgroup"

	"github.com/starford/enigma/internal/api"
	"github.com/starford/enigma/internal/docservice"
	"github.com/starford/enigma/internal/index"
	"github.com/starford/enigma/internal/integrity"
	"github.com/starford/enigma/internal/mcpserver"
	"github.com/starford/enigma/internal/sse"
	"github.com/starford/enigma/internal/storage"
)

// services is everything Run and RunMCP share.
type services struct {
	cfg     *Config
	logger  *slog.Logger
	db      *index.DB
	indexer *index.Indexer
	docs    *docservice.Service
	version string
}

func (s *services) Close() error {
	return s.db.Close()
}

func setup(opts []Option) (*services, error) {
	app := &application{logOutput: os.Stdout, version: "dev"}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOutput, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	strict := cfg.Integrity.Strict()
	integrity.SetDefault(&integrity.Checker{Strict: strict, Sink: integrity.LogSink{Logger: logger}})

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("library_path", cfg.Library.Path),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("integrity_mode", cfg.Integrity.Mode),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// Ensure library directory exists.
	if err := os.MkdirAll(cfg.Library.Path, 0o755); err != nil {
		return nil, fmt.Errorf("create library dir: %w", err)
	}

	store, err := storage.NewFS(cfg.Library.Path)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	indexer := index.NewIndexer(db, store, logger, strict)
	return &services{
		cfg:     cfg,
		logger:  logger,
		db:      db,
		indexer: indexer,
		docs:    docservice.NewService(store, db, indexer, strict, logger),
		version: app.version,
	}, nil
}

// initialSync brings the index up to date before serving.
func (s *services) initialSync(ctx context.Context) {
	start := time.Now()
	stats, err := s.indexer.Sync(ctx)
	if err != nil {
		s.logger.Warn("initial sync failed", slog.String("error", err.Error()))
		return
	}
	s.logger.Info("initial sync done",
		slog.Int("indexed", len(stats.Indexed)),
		slog.Int("removed", len(stats.Removed)),
		slog.Int("unchanged", stats.Unchanged),
		slog.Int("failed", stats.Failed),
		slog.Duration("took", time.Since(start)))
}

// Run starts the HTTP server with the given options.
func Run(ctx context.Context, opts ...Option) error {
	svc, err := setup(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	cfg, logger := svc.cfg, svc.logger
	svc.initialSync(ctx)

	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	apiRouter := api.NewRouter(svc.docs, cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

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
		if err := svc.db.Ping(); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"unavailable"}`))
			return
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Mount("/api", apiRouter)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Library.Watch {
		g.Go(func() error {
			return svc.indexer.Watch(gCtx, func(c index.Change) {
				svc.docs.HandleChange(c)
				broker.PublishChange(c)
			})
		})
	}

	g.Go(func() error {
		logger.Info("Starting HTTP server", slog.String("address", cfg.App.HTTP.Address()))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("HTTP server error: %w", err)
		}
		return nil
	})

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

		// Stops the watcher.
		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

var errShutdown = errors.New("shutdown")

// RunMCP syncs the index and serves MCP tools over stdio. Logs must not
// go to stdout, which carries the protocol.
func RunMCP(ctx context.Context, opts ...Option) error {
	opts = append([]Option{WithLogOutput(os.Stderr)}, opts...)
	svc, err := setup(opts)
	if err != nil {
		return err
	}
	defer svc.Close()

	svc.initialSync(ctx)
	return mcpserver.New(svc.docs, svc.version).ServeStdio()
}
