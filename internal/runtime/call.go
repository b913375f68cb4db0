package runtime

import (
	"context"
	"fmt"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

type depthKey struct{}

// CallDepth returns the custom node nesting depth carried by ctx.
func CallDepth(ctx context.Context) int {
	d, _ := ctx.Value(depthKey{}).(int)
	return d
}

// Call evaluates g as a pure function. bindings supplies the single output
// value of each bound node (custom node Inputs); the result holds the first
// argument received by each sink node (custom node Outputs), in order.
// Cached node state is neither read nor written.
func (e *Engine) Call(ctx context.Context, g *domain.Graph, bindings map[uuid.UUID]domain.Value, sinks []uuid.UUID) ([]domain.Value, error) {
	depth := CallDepth(ctx) + 1
	if depth > e.maxDepth {
		return nil, fmt.Errorf("%w (%d)", ErrCallDepthExceeded, e.maxDepth)
	}
	ctx = context.WithValue(ctx, depthKey{}, depth)

	order, err := topoOrder(g.Nodes())
	if err != nil {
		return nil, fmt.Errorf("call %q: %w", g.Name, err)
	}

	values := make(map[*domain.Node][]domain.Value, len(order))
	lookup := func(src *domain.Node, index int) (domain.Value, bool) {
		out, ok := values[src]
		if !ok || index >= len(out) {
			return nil, false
		}
		return out[index], true
	}

	for _, n := range order {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if v, bound := bindings[n.ID]; bound {
			out := make([]domain.Value, len(n.Outputs))
			if len(out) > 0 {
				out[0] = v
			}
			values[n] = out
			continue
		}
		out, err := e.apply(ctx, n, gatherArgs(n, lookup))
		if err != nil {
			return nil, &domain.NodeEvaluationError{NodeID: n.ID, Kind: n.Kind, Cause: err}
		}
		values[n] = out
	}

	results := make([]domain.Value, len(sinks))
	for i, id := range sinks {
		n, ok := g.Node(id)
		if !ok {
			return nil, fmt.Errorf("%w: sink %s", domain.ErrNodeNotFound, id)
		}
		if args := gatherArgs(n, lookup); len(args) > 0 {
			results[i] = args[0]
		}
	}
	return results, nil
}
