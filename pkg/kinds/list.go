package kinds

import (
	"context"
	"fmt"
	"strconv"

	"github.com/aretw0/dynamo/pkg/domain"
)

const (
	paramInputs       = "inputs"
	defaultListInputs = 2
)

// list collects its connected inputs into a []any. The number of item ports
// is variable.
type list struct {
	count int
}

func newList() domain.Behavior {
	return &list{count: defaultListInputs}
}

func (l *list) Layout() domain.Layout {
	in := make([]domain.PortSpec, l.count)
	for i := range in {
		in[i] = domain.PortSpec{Name: fmt.Sprintf("item%d", i)}
	}
	return domain.Layout{Inputs: in, Outputs: []domain.PortSpec{{Name: "list"}}}
}

func (l *list) Evaluate(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	items := make([]any, 0, len(args))
	for _, a := range args {
		if a != nil {
			items = append(items, a)
		}
	}
	return []domain.Value{items}, nil
}

func (l *list) InputCount() int {
	return l.count
}

func (l *list) SetInputCount(n int) error {
	if n < 1 {
		return fmt.Errorf("list needs at least one input, got %d", n)
	}
	l.count = n
	return nil
}

func (l *list) Params() map[string]string {
	return map[string]string{paramInputs: strconv.Itoa(l.count)}
}

func (l *list) Configure(_ *domain.Node, params map[string]string) error {
	raw, ok := params[paramInputs]
	if !ok {
		return nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", paramInputs, err)
	}
	return l.SetInputCount(n)
}

// mapper applies f to every element of list. An unconnected f maps identity.
type mapper struct{}

func newMap() domain.Behavior {
	return mapper{}
}

func (mapper) Layout() domain.Layout {
	return domain.Layout{
		Inputs:  []domain.PortSpec{{Name: "list"}, {Name: "f"}},
		Outputs: []domain.PortSpec{{Name: "list"}},
	}
}

func (mapper) Evaluate(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
	items, ok := args[0].([]any)
	if !ok {
		return nil, fmt.Errorf("map: expected a list, got %T", args[0])
	}
	out := make([]any, len(items))
	switch f := args[1].(type) {
	case nil:
		copy(out, items)
	case domain.Function:
		for i, item := range items {
			v, err := f.Call(ctx, []domain.Value{item})
			if err != nil {
				return nil, fmt.Errorf("map: element %d: %w", i, err)
			}
			out[i] = v
		}
	default:
		return nil, fmt.Errorf("map: second input is not a function (%T)", f)
	}
	return []domain.Value{out}, nil
}
