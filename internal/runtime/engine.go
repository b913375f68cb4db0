package runtime

import (
	"context"
	"errors"
	"log/slog"
	"sync/atomic"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/domain"
)

// DefaultMaxCallDepth bounds nested custom node calls.
const DefaultMaxCallDepth = 64

// ErrRunInProgress is returned when Run is entered while another run is active.
var ErrRunInProgress = errors.New("a run is already in progress")

// ErrCallDepthExceeded is returned when custom node calls nest too deeply.
var ErrCallDepthExceeded = errors.New("maximum custom node call depth exceeded")

// Engine is the dependency-driven evaluator.
// It is driven by a single owner goroutine; only Cancel may be called from
// other goroutines.
type Engine struct {
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	shortCircuit bool
	maxDepth     int

	cancelled atomic.Bool
	running   atomic.Bool
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) EngineOption {
	return func(e *Engine) {
		e.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) EngineOption {
	return func(e *Engine) {
		e.hooks = hooks
	}
}

// WithShortCircuit skips re-evaluation of nodes whose upstream values did not
// change during the run.
func WithShortCircuit(enabled bool) EngineOption {
	return func(e *Engine) {
		e.shortCircuit = enabled
	}
}

// WithMaxCallDepth bounds nested custom node calls.
func WithMaxCallDepth(depth int) EngineOption {
	return func(e *Engine) {
		if depth > 0 {
			e.maxDepth = depth
		}
	}
}

// NewEngine creates an evaluator.
func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		logger:   logging.NewNop(),
		maxDepth: DefaultMaxCallDepth,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Cancel requests that the current dynamic run stops scheduling nodes.
func (e *Engine) Cancel() {
	e.cancelled.Store(true)
}

// IsRunning reports whether a run is active.
func (e *Engine) IsRunning() bool {
	return e.running.Load()
}

func (e *Engine) shouldStop(ctx context.Context, dynamic bool) bool {
	if ctx.Err() != nil {
		return true
	}
	return dynamic && e.cancelled.Load()
}
