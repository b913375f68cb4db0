package runtime

import (
	"context"
	"fmt"
	"slices"

	"github.com/aretw0/dynamo/pkg/domain"
)

// apply evaluates n, or partially applies it when its behavior allows it and
// some inputs have neither a connection nor a default.
func (e *Engine) apply(ctx context.Context, n *domain.Node, args []domain.Value) ([]domain.Value, error) {
	missing := missingInputs(n)
	if len(missing) == 0 {
		return e.invoke(ctx, n, args)
	}
	if p, ok := n.Behavior.(domain.Partial); !ok || !p.AllowPartial() {
		return e.invoke(ctx, n, args)
	}
	outputs := make([]domain.Value, len(n.Outputs))
	for i := range outputs {
		outputs[i] = &partial{engine: e, node: n, args: slices.Clone(args), missing: missing, output: i}
	}
	return outputs, nil
}

func missingInputs(n *domain.Node) []int {
	var missing []int
	for i, p := range n.Inputs {
		if !p.IsConnected() && p.Default == nil {
			missing = append(missing, i)
		}
	}
	return missing
}

// partial is a node applied to some of its inputs. Calling it with the
// remaining inputs, in port order, yields the value of one output.
type partial struct {
	engine  *Engine
	node    *domain.Node
	args    []domain.Value
	missing []int
	output  int
}

func (p *partial) Call(ctx context.Context, args []domain.Value) (domain.Value, error) {
	if len(args) > len(p.missing) {
		return nil, fmt.Errorf("%s: got %d argument(s), want at most %d", p.node.Kind, len(args), len(p.missing))
	}
	filled := slices.Clone(p.args)
	for k, v := range args {
		filled[p.missing[k]] = v
	}
	if len(args) < len(p.missing) {
		return &partial{engine: p.engine, node: p.node, args: filled, missing: p.missing[len(args):], output: p.output}, nil
	}
	out, err := p.engine.invoke(ctx, p.node, filled)
	if err != nil {
		return nil, &domain.NodeEvaluationError{NodeID: p.node.ID, Kind: p.node.Kind, Cause: err}
	}
	return out[p.output], nil
}

func (p *partial) String() string {
	return fmt.Sprintf("<%s: %d argument(s)>", p.node.Kind, len(p.missing))
}
