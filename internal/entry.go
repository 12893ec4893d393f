// Package internal provides the main application initialization and runtime logic.
package internal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/sync/errgroup"

	"github.com/starford/ansuz/internal/api"
	"github.com/starford/ansuz/internal/compliance"
	"github.com/starford/ansuz/internal/docservice"
	"github.com/starford/ansuz/internal/history"
	"github.com/starford/ansuz/internal/mcpserver"
	"github.com/starford/ansuz/internal/normalizer"
	"github.com/starford/ansuz/internal/report"
	"github.com/starford/ansuz/internal/sse"
	"github.com/starford/ansuz/internal/storage"
	"github.com/starford/ansuz/internal/watch"
)

// components is the wired object graph shared by every command.
type components struct {
	store   *storage.FS
	hist    history.Store
	norm    *normalizer.Normalizer
	checker *compliance.Checker
	svc     *docservice.Service
}

// Run starts the application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	app := &application{
		command: CommandUpdate,
		stdout:  os.Stdout,
		stderr:  os.Stderr,
	}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return fmt.Errorf("config is required")
	}

	cfg := app.config

	logger, closeLog, err := newLogger(cfg.App, app.stderr)
	if err != nil {
		return err
	}
	defer closeLog()
	slog.SetDefault(logger)

	logger.Debug("Configuration loaded",
		slog.String("command", string(app.command)),
		slog.String("root", cfg.Docs.Root),
		slog.String("mode", string(cfg.Docs.Mode)),
		slog.String("history_path", cfg.History.Path),
		slog.String("log_level", cfg.App.LogLevel.String()))

	// The SSE broker only exists for serve; the normalizer publishes to it.
	var broker *sse.Broker
	var normOpts []normalizer.Option
	if app.command == CommandServe {
		broker = sse.NewBroker(sse.DefaultTreeThrottle, sse.WithKeepAlive(30*time.Second))
		defer broker.Close()
		normOpts = append(normOpts,
			normalizer.WithObserver(broker.PublishOutcome),
			normalizer.WithRunObserver(func(res *normalizer.Result) {
				broker.Publish(sse.Event{Type: sse.EventRunFinished, Data: res.Summary})
			}))
	}
	if app.command == CommandWatch {
		printer := report.New(app.stdout)
		normOpts = append(normOpts, normalizer.WithObserver(printer.Outcome))
	}

	c, err := wire(cfg, logger, app.command.usesHistory(), normOpts...)
	if err != nil {
		return err
	}
	if c.hist != nil {
		defer c.hist.Close()
	}

	switch app.command {
	case CommandUpdate:
		return runUpdate(ctx, c, app.stdout)
	case CommandCheck:
		return runCheck(ctx, c, app.stdout)
	case CommandWatch:
		return runWatch(ctx, c, cfg, logger)
	case CommandServe:
		return runServe(ctx, c, cfg, broker, logger)
	case CommandMCP:
		return mcpserver.New(c.svc, cfg.Check.RequiredFields).ServeStdio()
	case CommandHistory:
		return runHistory(ctx, c, app.stdout, app.historyLimit)
	default:
		return fmt.Errorf("unknown command %q", app.command)
	}
}

func wire(cfg *Config, logger *slog.Logger, withHistory bool, normOpts ...normalizer.Option) (*components, error) {
	store, err := storage.NewFS(cfg.Docs.Root,
		storage.WithExtensions(cfg.Docs.Extensions...),
		storage.WithExclude(cfg.Docs.Exclude...))
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}

	c := &components{store: store}
	opts := []normalizer.Option{normalizer.WithLogger(logger)}

	if withHistory && cfg.History.Enabled() {
		db, err := history.Open(cfg.History.Path)
		if err != nil {
			return nil, fmt.Errorf("init history: %w", err)
		}
		// Assigned only here so a disabled history stays a nil interface.
		c.hist = db
		opts = append(opts, normalizer.WithRecorder(db))
	}

	c.norm = normalizer.New(store, cfg.Docs.Normalizer(cfg.Project), append(opts, normOpts...)...)
	c.checker = compliance.New(store, cfg.Check, logger)
	c.svc = docservice.NewService(store, c.norm, c.checker, c.hist)
	return c, nil
}

func runUpdate(ctx context.Context, c *components, w io.Writer) error {
	res, err := c.norm.Run(ctx, "")
	if res != nil {
		report.New(w).Normalize(c.store.Root(), res)
	}
	return err
}

func runCheck(ctx context.Context, c *components, w io.Writer) error {
	rep, err := c.checker.Check(ctx)
	if err != nil {
		return err
	}
	report.New(w).Compliance(rep)
	return rep.Err()
}

func runHistory(ctx context.Context, c *components, w io.Writer, limit int) error {
	runs, err := c.svc.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	report.New(w).Runs(runs)
	return nil
}

func runWatch(ctx context.Context, c *components, cfg *Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Bring the tree up to date before reacting to changes.
	if _, err := c.norm.Run(ctx, ""); err != nil {
		return err
	}
	err := watch.Watch(ctx, c.norm, c.store, cfg.Watch.Debounce, logger)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watcher: %w", err)
	}
	return nil
}

func runServe(ctx context.Context, c *components, cfg *Config, broker *sse.Broker, logger *slog.Logger) error {
	apiRouter := api.NewRouter(c.svc, broker)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health/live", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Get("/health/ready", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if _, err := c.store.Stat(""); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte(`{"status":"root unavailable"}`))
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

	g, gCtx := errgroup.WithContext(ctx)

	if cfg.Watch.Enabled {
		g.Go(func() error {
			err := watch.Watch(gCtx, c.norm, c.store, cfg.Watch.Debounce, logger)
			if err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("watcher: %w", err)
			}
			return nil
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

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("HTTP server shutdown error", slog.String("error", err.Error()))
		}
		// Stops the watcher when shutdown came from a signal.
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
