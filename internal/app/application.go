// Package app wires the coordinator together and owns its lifecycle.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"sketchroom/internal/api"
	"sketchroom/internal/auth"
	"sketchroom/internal/config"
	"sketchroom/internal/room"
	"sketchroom/internal/store"
	"sketchroom/internal/websocket"
)

// Application coordinates all components. Initialization follows
// dependency order: store, engine, registry, broadcaster, gate, gateway,
// API, HTTP server.
type Application struct {
	cfg        *config.Config
	log        *slog.Logger
	store      *store.Store
	engine     *room.Engine
	registry   *websocket.Registry
	gateway    *websocket.Gateway
	httpServer *http.Server
}

// New builds the application from a validated configuration.
func New(cfg *config.Config) (*Application, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	log := newLogger(cfg.LogLevel)

	st, err := store.Open(&store.Config{
		Path:            cfg.Database.Path,
		MaxConnections:  cfg.Database.MaxConnections,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}, log.With("component", "store"))
	if err != nil {
		return nil, fmt.Errorf("failed to open store: %w", err)
	}

	engine := room.NewEngine(st, log.With("component", "engine"))
	registry := websocket.NewRegistry()
	broadcaster := websocket.NewBroadcaster(registry, log.With("component", "broadcast"))
	gate := auth.NewGate(cfg.Auth.AccessSecret, cfg.Auth.RefreshSecret, cfg.Auth.AccessTTL, cfg.Auth.RefreshTTL)
	gateway := websocket.NewGateway(registry, broadcaster, engine, gate, cfg.WebSocket, log.With("component", "gateway"))

	authService := auth.NewService(st, gate, log.With("component", "auth"))
	apiServer := api.NewServer(authService, st, registry, log.With("component", "api"))

	mux := http.NewServeMux()
	mux.Handle("/auth/", apiServer)
	mux.Handle("/health", apiServer)
	mux.HandleFunc("/ws", gateway.HandleWebSocket)

	httpServer := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.HTTP.Host, cfg.HTTP.Port),
		Handler:      mux,
		ReadTimeout:  cfg.HTTP.ReadTimeout,
		WriteTimeout: cfg.HTTP.WriteTimeout,
	}

	return &Application{
		cfg:        cfg,
		log:        log,
		store:      st,
		engine:     engine,
		registry:   registry,
		gateway:    gateway,
		httpServer: httpServer,
	}, nil
}

// Start begins serving and returns once the listener is up.
func (app *Application) Start(ctx context.Context) error {
	app.log.Info("starting sketchroom", "addr", app.httpServer.Addr)

	serverErrCh := make(chan error, 1)
	go func() {
		if err := app.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErrCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case err := <-serverErrCh:
		return err
	case <-time.After(100 * time.Millisecond):
		app.log.Info("sketchroom started")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop shuts down in reverse dependency order: HTTP first, store last.
func (app *Application) Stop(ctx context.Context) error {
	app.log.Info("shutting down sketchroom")

	if err := app.httpServer.Shutdown(ctx); err != nil {
		app.log.Error("http shutdown error", "error", err)
	}
	if err := app.store.Close(); err != nil {
		app.log.Error("store shutdown error", "error", err)
	}

	app.log.Info("shutdown complete")
	return nil
}

// Addr returns the server address for external clients.
func (app *Application) Addr() string {
	return app.httpServer.Addr
}

func newLogger(level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: lvl}))
}
