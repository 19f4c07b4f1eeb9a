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

	"github.com/starford/postdeck/internal/mcpserver"
	"github.com/starford/postdeck/internal/poller"
	"github.com/starford/postdeck/internal/postclient"
	"github.com/starford/postdeck/internal/postview"
	"github.com/starford/postdeck/internal/settings"
	"github.com/starford/postdeck/internal/sse"
	"github.com/starford/postdeck/internal/web"
)

// core holds the pieces shared by the HTTP and MCP modes.
type core struct {
	cfg    *Config
	logger *slog.Logger
	db     *settings.DB
	client *postclient.Client
}

func setup(opts []Option) (*application, *core, error) {
	app := &application{version: "dev", logOut: os.Stdout}

	for _, opt := range opts {
		opt(app)
	}

	if app.config == nil {
		return nil, nil, fmt.Errorf("config is required")
	}

	cfg := app.config

	// Initialize structured JSON logger.
	logger := slog.New(slog.NewJSONHandler(app.logOut, &slog.HandlerOptions{
		Level: cfg.App.LogLevel,
	}))
	slog.SetDefault(logger)

	logger.Info("Configuration loaded",
		slog.String("http_address", cfg.App.HTTP.Address()),
		slog.String("api_base_url", cfg.API.BaseURL),
		slog.String("sqlite_path", cfg.SQLite.Path),
		slog.String("locale", cfg.Web.Locale),
		slog.String("log_level", cfg.App.LogLevel.String()))

	db, err := settings.Open(cfg.SQLite.Path, logger)
	if err != nil {
		return nil, nil, fmt.Errorf("init settings: %w", err)
	}

	clientOpts := []postclient.Option{postclient.WithTimeout(cfg.API.Timeout)}
	if cfg.API.Token != "" {
		clientOpts = append(clientOpts, postclient.WithToken(cfg.API.Token))
	}

	return app, &core{
		cfg:    cfg,
		logger: logger,
		db:     db,
		client: postclient.New(clientOpts...),
	}, nil
}

func (c *core) controller(ctx context.Context, opts ...postview.Option) (*postview.Controller, error) {
	opts = append(opts, postview.WithLocale(c.cfg.Web.Language()))
	ctrl := postview.New(c.client, c.db, c.logger, opts...)
	if err := ctrl.Init(ctx, c.cfg.API.BaseURL); err != nil {
		return nil, fmt.Errorf("init controller: %w", err)
	}
	if ctrl.BaseURL() == "" {
		c.logger.Warn("no posts API base URL configured; set one on the page or with api.base_url")
	}
	return ctrl, nil
}

// Run starts the HTTP application with the given options.
func Run(ctx context.Context, opts ...Option) error {
	_, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	cfg, logger := c.cfg, c.logger

	// SSE broker.
	broker := sse.NewBroker(2 * time.Second)
	defer broker.Close()

	ctrl, err := c.controller(ctx, postview.WithNotifier(broker))
	if err != nil {
		return err
	}

	renderer, err := web.NewRenderer(cfg.Web.TemplatesDir)
	if err != nil {
		return fmt.Errorf("init templates: %w", err)
	}

	pages := web.NewRouter(web.NewHandler(ctrl, renderer), cfg.Auth.AuthEnabled(), cfg.Auth.Token, broker)

	// Build chi router.
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	// Health check endpoints (unauthenticated).
	r.Get("/health/live", web.Health)
	r.Get("/health/ready", web.Health)

	r.Mount("/", pages)

	httpServer := &http.Server{
		Addr:              cfg.App.HTTP.Address(),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("Server starting...", slog.String("http_address", cfg.App.HTTP.Address()))

	g, gCtx := errgroup.WithContext(ctx)

	// Reload templates from disk and tell open pages to refresh.
	g.Go(func() error {
		err := web.WatchTemplates(gCtx, renderer, logger, func() {
			broker.Publish(sse.Event{Type: sse.TypeViewReloaded, Data: map[string]string{"dir": renderer.Dir()}})
		})
		if err != nil {
			logger.Warn("template watcher stopped", slog.String("error", err.Error()))
		}
		return nil
	})

	// Announce remote changes to the post list.
	if cfg.API.PollEnabled() {
		p := poller.New(gCtx, cfg.API.PollSpec, c.client, ctrl.BaseURL, broker, logger)
		if err := p.Start(); err != nil {
			return fmt.Errorf("start poller: %w", err)
		}
		g.Go(func() error {
			<-gCtx.Done()
			p.Stop()
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

		return errShutdown
	})

	if err := g.Wait(); err != nil && !errors.Is(err, errShutdown) {
		logger.Error("Application error", slog.String("error", err.Error()))
		return err
	}

	logger.Info("Server stopped successfully")
	return nil
}

// errShutdown cancels the group so that the watcher and poller stop
// together with the HTTP server.
var errShutdown = errors.New("shutdown")

// RunMCP serves the post tools over stdio until stdin closes.
func RunMCP(ctx context.Context, opts ...Option) error {
	app, c, err := setup(opts)
	if err != nil {
		return err
	}
	defer c.db.Close()

	ctrl, err := c.controller(ctx)
	if err != nil {
		return err
	}

	c.logger.Info("MCP server starting on stdio", slog.String("base_url", ctrl.BaseURL()))
	if err := mcpserver.New(ctrl, app.version).ServeStdio(); err != nil {
		return fmt.Errorf("mcp server: %w", err)
	}
	return nil
}
