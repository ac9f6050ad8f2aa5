package main

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/eugenenazirov/dais/internal/application"
	"github.com/eugenenazirov/dais/internal/config"
	"github.com/eugenenazirov/dais/internal/launcher"
)

// version is set at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	notifyContext = signal.NotifyContext
	lookupEnv     = os.LookupEnv
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr, application.Runtime{Version: version}))
}

func run(args []string, stdout, stderr io.Writer, runtime launcher.Runtime) int {
	ctx, stop := notifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	resolver := config.NewResolver(
		config.WithVersion(version),
		config.WithUsageWriter(stdout),
		config.WithEnv(lookupEnv),
	)

	return launcher.New(resolver, runtime,
		launcher.WithName(resolver.Name()),
		launcher.WithStderr(stderr),
	).Launch(ctx, args)
}
