package application

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/eugenenazirov/dais/internal/api"
	"github.com/eugenenazirov/dais/internal/config"
	"github.com/eugenenazirov/dais/internal/logging"
)

// Runtime is the application entry point handed the resolved configuration.
// It serves the sidecar until ctx is cancelled.
type Runtime struct {
	Version string

	// NewLogger overrides logger construction, primarily for tests.
	NewLogger func(cfg config.Config) (*zap.Logger, error)
	// Listener, when set, is served instead of listening on cfg.Addr().
	Listener net.Listener
}

// Run builds the logger and the App from cfg and runs it. Failures are logged
// here and returned unchanged.
func (r Runtime) Run(ctx context.Context, cfg config.Config) error {
	newLogger := r.NewLogger
	if newLogger == nil {
		newLogger = func(cfg config.Config) (*zap.Logger, error) {
			return logging.New(cfg.LogLevel, cfg.LogFormat)
		}
	}

	logger, err := newLogger(cfg)
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	logger.Info("starting runtime", zap.String("version", r.Version), zap.Object("config", cfg))

	opts := []Option{WithVersion(r.Version)}
	if r.Listener != nil {
		opts = append(opts, WithListener(r.Listener))
	}

	if err := New(cfg, logger, opts...).Run(ctx); err != nil {
		logger.Error("runtime failed", zap.Error(err))
		return err
	}
	logger.Info("runtime stopped")
	return nil
}

// App encapsulates the sidecar HTTP server and its dependencies.
type App struct {
	cfg      config.Config
	logger   *zap.Logger
	server   *http.Server
	listener net.Listener
}

// Option configures an App.
type Option func(*appOptions)

type appOptions struct {
	version  string
	listener net.Listener
}

// WithVersion sets the version reported by the health endpoint.
func WithVersion(version string) Option {
	return func(o *appOptions) {
		o.version = version
	}
}

// WithListener serves on an existing listener instead of cfg.Addr().
func WithListener(ln net.Listener) Option {
	return func(o *appOptions) {
		o.listener = ln
	}
}

// New wires the handler, router and HTTP server from the configuration.
func New(cfg config.Config, logger *zap.Logger, opts ...Option) *App {
	options := appOptions{version: "dev"}
	for _, opt := range opts {
		opt(&options)
	}

	handler := api.NewHandler(api.WithVersion(options.version))
	router := api.NewRouter(handler, logger,
		api.WithLogging(cfg.EnableRequestLogging),
		api.WithRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst),
	)

	return &App{
		cfg:      cfg,
		logger:   logger,
		server:   NewServer(cfg, router),
		listener: options.listener,
	}
}

// NewServer creates an HTTP server from the provided configuration.
func NewServer(cfg config.Config, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
}

// Server returns the HTTP server instance.
func (a *App) Server() *http.Server {
	return a.server
}

// Run listens and serves until ctx is cancelled, then shuts down within the
// configured grace period. Listen errors are returned before serving starts.
func (a *App) Run(ctx context.Context) error {
	ln := a.listener
	if ln == nil {
		var err error
		ln, err = net.Listen("tcp", a.server.Addr)
		if err != nil {
			return fmt.Errorf("listen on %s: %w", a.server.Addr, err)
		}
	}

	serveErr := make(chan error, 1)
	go func() {
		a.logger.Info("server listening", zap.String("addr", ln.Addr().String()))
		serveErr <- a.server.Serve(ln)
	}()

	select {
	case err := <-serveErr:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	a.logger.Info("shutting down server")
	return a.shutdown()
}

func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownGracePeriod)
	defer cancel()

	err := a.server.Shutdown(ctx)
	if err == nil {
		return nil
	}

	// In-flight requests are cut off by Close, so the stop is reported as a
	// failure even when Close succeeds.
	a.logger.Warn("graceful shutdown failed, closing connections", zap.Error(err))
	err = fmt.Errorf("graceful shutdown within %s: %w", a.cfg.ShutdownGracePeriod, err)
	if closeErr := a.server.Close(); closeErr != nil {
		a.logger.Error("forced close failed", zap.Error(closeErr))
		return multierr.Append(err, closeErr)
	}
	return err
}
