package kinds

import (
	"context"

	"github.com/aretw0/dynamo/pkg/domain"
)

const paramName = "name"

// Parameter is implemented by the Input and Output kinds that make up a
// custom node signature.
type Parameter interface {
	ParameterName() string
	IsOutput() bool
}

// parameter is a custom node Input (one output port) or Output (one input
// port). Inside a call the evaluator binds Input values directly and reads
// the argument of each Output node.
type parameter struct {
	name   string
	output bool
}

func newInput() domain.Behavior {
	return &parameter{name: "input"}
}

func newOutput() domain.Behavior {
	return &parameter{name: "output", output: true}
}

func (p *parameter) Layout() domain.Layout {
	port := []domain.PortSpec{{Name: p.name}}
	if p.output {
		return domain.Layout{Inputs: port}
	}
	return domain.Layout{Outputs: port}
}

func (p *parameter) Evaluate(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	if p.output {
		return []domain.Value{}, nil
	}
	return []domain.Value{nil}, nil
}

func (p *parameter) ParameterName() string {
	return p.name
}

func (p *parameter) IsOutput() bool {
	return p.output
}

// SetName renames the parameter. Callers refresh the node ports afterwards.
func (p *parameter) SetName(name string) {
	if name != "" {
		p.name = name
	}
}

func (p *parameter) Params() map[string]string {
	return map[string]string{paramName: p.name}
}

func (p *parameter) Configure(n *domain.Node, params map[string]string) error {
	if name := params[paramName]; name != "" {
		p.name = name
		return nil
	}
	if n != nil && n.NickName != "" && n.NickName != n.Kind {
		p.name = n.NickName
	}
	return nil
}
