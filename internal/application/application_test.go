package application

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"strconv"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"github.com/eugenenazirov/dais/internal/config"
)

func baseTestConfig() config.Config {
	cfg := config.Default()
	cfg.Host = "127.0.0.1"
	cfg.Port = 0
	cfg.ShutdownGracePeriod = time.Second
	cfg.ReadHeaderTimeout = 20 * time.Millisecond
	cfg.WriteTimeout = 30 * time.Millisecond
	cfg.IdleTimeout = 40 * time.Millisecond
	cfg.EnableRequestLogging = false
	cfg.RateLimitRPS = 0
	cfg.RateLimitBurst = 0
	return cfg
}

func newTestListener(t *testing.T) net.Listener {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	return ln
}

func TestNewServerAppliesConfig(t *testing.T) {
	cfg := baseTestConfig()
	cfg.Port = 9090
	handler := http.NewServeMux()

	server := NewServer(cfg, handler)
	if server.Addr != "127.0.0.1:9090" {
		t.Fatalf("expected address 127.0.0.1:9090, got %s", server.Addr)
	}
	if server.Handler != handler {
		t.Fatalf("expected handler to be applied")
	}
	if server.ReadHeaderTimeout != cfg.ReadHeaderTimeout ||
		server.WriteTimeout != cfg.WriteTimeout ||
		server.IdleTimeout != cfg.IdleTimeout {
		t.Fatalf("server timeouts do not match configuration")
	}
}

func TestNewInitializesServer(t *testing.T) {
	app := New(baseTestConfig(), zaptest.NewLogger(t))
	if app.Server() == nil || app.Server().Handler == nil {
		t.Fatalf("expected server and handler to be initialized")
	}
	if app.Server() != app.server {
		t.Fatalf("Server accessor did not return underlying instance")
	}
}

func TestAppRunServesUntilCancelled(t *testing.T) {
	ln := newTestListener(t)
	app := New(baseTestConfig(), zaptest.NewLogger(t), WithListener(ln), WithVersion("test"))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/api/health")
	if err != nil {
		t.Fatalf("health request failed: %v", err)
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 from health, got %d", resp.StatusCode)
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestAppRunReportsShutdownPastGracePeriod(t *testing.T) {
	ln := newTestListener(t)
	cfg := baseTestConfig()
	cfg.ShutdownGracePeriod = 20 * time.Millisecond
	cfg.WriteTimeout = 0
	app := New(cfg, zaptest.NewLogger(t), WithListener(ln))

	entered := make(chan struct{})
	release := make(chan struct{})
	defer close(release)
	app.server.Handler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		close(entered)
		<-release
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := make(chan error, 1)
	go func() {
		done <- app.Run(ctx)
	}()

	go func() {
		resp, err := http.Get("http://" + ln.Addr().String() + "/")
		if err == nil {
			_ = resp.Body.Close()
		}
	}()

	select {
	case <-entered:
	case <-time.After(2 * time.Second):
		t.Fatalf("request never reached the handler")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.DeadlineExceeded) {
			t.Fatalf("expected deadline exceeded after forced close, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}

func TestAppRunReturnsListenError(t *testing.T) {
	occupied := newTestListener(t)
	defer occupied.Close()

	cfg := baseTestConfig()
	cfg.Port = occupied.Addr().(*net.TCPAddr).Port

	err := New(cfg, zaptest.NewLogger(t)).Run(context.Background())
	if err == nil {
		t.Fatalf("expected listen error for occupied port %s", strconv.Itoa(cfg.Port))
	}
}

func TestRuntimeRunReportsLoggerFailure(t *testing.T) {
	boom := errors.New("no logger")
	rt := Runtime{NewLogger: func(config.Config) (*zap.Logger, error) { return nil, boom }}

	if err := rt.Run(context.Background(), baseTestConfig()); !errors.Is(err, boom) {
		t.Fatalf("expected logger error, got %v", err)
	}
}

func TestRuntimeRunRejectsUnknownLogLevel(t *testing.T) {
	cfg := baseTestConfig()
	cfg.LogLevel = "loud"

	if err := (Runtime{}).Run(context.Background(), cfg); err == nil {
		t.Fatalf("expected error for unknown log level")
	}
}

func TestRuntimeRunStopsOnCancellation(t *testing.T) {
	ln := newTestListener(t)
	rt := Runtime{
		Version:   "test",
		Listener:  ln,
		NewLogger: func(config.Config) (*zap.Logger, error) { return zaptest.NewLogger(t), nil },
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- rt.Run(ctx, baseTestConfig())
	}()

	resp, err := http.Get("http://" + ln.Addr().String() + "/")
	if err != nil {
		t.Fatalf("index request failed: %v", err)
	}
	_ = resp.Body.Close()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("expected clean shutdown, got %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancellation")
	}
}
