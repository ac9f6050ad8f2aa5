package launcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"

	"github.com/eugenenazirov/dais/internal/config"
)

// Process exit statuses.
const (
	ExitOK      = 0
	ExitFailure = 1
	ExitUsage   = 2
)

// ErrAlreadyLaunched is reported when Launch is called more than once.
var ErrAlreadyLaunched = errors.New("launcher already used")

// Resolver produces the Configuration from the raw argument list.
type Resolver interface {
	Resolve(args []string) (config.Config, error)
}

// Runtime owns the application for the rest of the process lifetime. It takes
// the resolved Configuration by value; its returned error is the process
// outcome.
type Runtime interface {
	Run(ctx context.Context, cfg config.Config) error
}

// RuntimeFunc adapts a function to Runtime.
type RuntimeFunc func(ctx context.Context, cfg config.Config) error

// Run calls f(ctx, cfg).
func (f RuntimeFunc) Run(ctx context.Context, cfg config.Config) error {
	return f(ctx, cfg)
}

// State is the resolution stage of a Launcher.
type State int32

const (
	StateUnresolved State = iota
	StateResolved
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnresolved:
		return "unresolved"
	case StateResolved:
		return "resolved"
	case StateFailed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

// Launcher resolves the Configuration once and hands it to the Runtime.
type Launcher struct {
	name     string
	resolver Resolver
	runtime  Runtime
	stderr   io.Writer

	launched atomic.Bool
	state    atomic.Int32
}

// Option configures a Launcher.
type Option func(*Launcher)

// WithStderr sets where resolution diagnostics are written.
func WithStderr(w io.Writer) Option {
	return func(l *Launcher) {
		l.stderr = w
	}
}

// WithName sets the program name used as the diagnostic prefix.
func WithName(name string) Option {
	return func(l *Launcher) {
		l.name = name
	}
}

// New creates a Launcher for the given resolver and runtime.
func New(resolver Resolver, runtime Runtime, opts ...Option) *Launcher {
	l := &Launcher{
		name:     "dais",
		resolver: resolver,
		runtime:  runtime,
		stderr:   os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// State reports how far the launcher got.
func (l *Launcher) State() State {
	return State(l.state.Load())
}

// Launch resolves args and, on success, runs the runtime exactly once. It
// returns the process exit status: ExitUsage for resolution failures, ExitOK
// for --help/--version, and ExitCode of the runtime's result otherwise.
func (l *Launcher) Launch(ctx context.Context, args []string) int {
	if l.launched.Swap(true) {
		fmt.Fprintf(l.stderr, "%s: error: %v\n", l.name, ErrAlreadyLaunched)
		return ExitFailure
	}

	cfg, err := l.resolver.Resolve(args)
	if err != nil {
		l.state.Store(int32(StateFailed))
		if errors.Is(err, config.ErrHelpRequested) {
			return ExitOK
		}
		fmt.Fprintf(l.stderr, "%s: error: %v, try --help\n", l.name, err)
		return ExitUsage
	}
	l.state.Store(int32(StateResolved))

	return ExitCode(l.runtime.Run(ctx, cfg))
}

// ExitCode maps a runtime result to a process exit status. A nil error is
// ExitOK; an error exposing ExitCode() int keeps its code; anything else is
// ExitFailure. A failure never maps to ExitOK.
func ExitCode(err error) int {
	if err == nil {
		return ExitOK
	}
	var coder interface{ ExitCode() int }
	if errors.As(err, &coder) {
		if code := coder.ExitCode(); code > 0 {
			return code
		}
	}
	return ExitFailure
}
