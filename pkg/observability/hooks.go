package observability

import (
	"context"
	"log/slog"

	"github.com/aretw0/dynamo/pkg/domain"
)

// LoggingHooks logs run boundaries at info level and node events at debug
// level, failures at error level.
func LoggingHooks(logger *slog.Logger) domain.LifecycleHooks {
	return domain.LifecycleHooks{
		OnRunStart: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run started", "run_id", e.RunID, "workspace", e.Workspace)
		},
		OnRunFinish: func(ctx context.Context, e *domain.RunEvent) {
			logger.InfoContext(ctx, "run finished",
				"run_id", e.RunID,
				"workspace", e.Workspace,
				"evaluated", e.Evaluated,
				"failed", e.Failed,
				"blocked", e.Blocked,
				"cancelled", e.Cancelled,
				"duration", e.Duration)
		},
		OnNodeEnter: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node enter", "run_id", e.RunID, "node", e.NodeID, "kind", e.Kind)
		},
		OnNodeLeave: func(ctx context.Context, e *domain.NodeEvent) {
			logger.DebugContext(ctx, "node leave", "run_id", e.RunID, "node", e.NodeID, "kind", e.Kind, "duration", e.Duration)
		},
		OnNodeError: func(ctx context.Context, e *domain.NodeEvent) {
			logger.ErrorContext(ctx, "node failed", "run_id", e.RunID, "node", e.NodeID, "kind", e.Kind, "err", e.Err)
		},
	}
}

// Combine chains hook sets; each callback runs in argument order.
func Combine(sets ...domain.LifecycleHooks) domain.LifecycleHooks {
	var out domain.LifecycleHooks
	for _, h := range sets {
		out.OnRunStart = chain(out.OnRunStart, h.OnRunStart)
		out.OnRunFinish = chain(out.OnRunFinish, h.OnRunFinish)
		out.OnNodeEnter = chain(out.OnNodeEnter, h.OnNodeEnter)
		out.OnNodeLeave = chain(out.OnNodeLeave, h.OnNodeLeave)
		out.OnNodeError = chain(out.OnNodeError, h.OnNodeError)
	}
	return out
}

func chain[E any](a, b func(context.Context, E)) func(context.Context, E) {
	switch {
	case a == nil:
		return b
	case b == nil:
		return a
	}
	return func(ctx context.Context, e E) {
		a(ctx, e)
		b(ctx, e)
	}
}
