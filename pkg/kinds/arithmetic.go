package kinds

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/dynamo/pkg/domain"
)

var errDivideByZero = errors.New("division by zero")

type binaryOp struct {
	name string
	fn   func(x, y float64) (float64, error)
}

func (b binaryOp) Layout() domain.Layout {
	return domain.Layout{
		Inputs:  []domain.PortSpec{{Name: "x"}, {Name: "y"}},
		Outputs: []domain.PortSpec{{Name: "result"}},
	}
}

func (b binaryOp) Evaluate(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	x, err := ToNumber(args[0])
	if err != nil {
		return nil, fmt.Errorf("%s: x: %w", b.name, err)
	}
	y, err := ToNumber(args[1])
	if err != nil {
		return nil, fmt.Errorf("%s: y: %w", b.name, err)
	}
	r, err := b.fn(x, y)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", b.name, err)
	}
	return []domain.Value{r}, nil
}

func (binaryOp) AllowPartial() bool { return true }

func arithmetic(name string, fn func(x, y float64) (float64, error)) Factory {
	return func() domain.Behavior { return binaryOp{name: name, fn: fn} }
}

func add(x, y float64) (float64, error)      { return x + y, nil }
func subtract(x, y float64) (float64, error) { return x - y, nil }
func multiply(x, y float64) (float64, error) { return x * y, nil }

func divide(x, y float64) (float64, error) {
	if y == 0 {
		return 0, errDivideByZero
	}
	return x / y, nil
}

// identity passes its input through.
type identity struct{}

func (identity) Layout() domain.Layout {
	return domain.Layout{
		Inputs:  []domain.PortSpec{{Name: "x"}},
		Outputs: []domain.PortSpec{{Name: "x"}},
	}
}

func (identity) Evaluate(_ context.Context, args []domain.Value) ([]domain.Value, error) {
	return []domain.Value{args[0]}, nil
}

// Watch passes its input through and remembers it for presentation.
type Watch struct {
	identity
	last domain.Value
}

func (w *Watch) Evaluate(ctx context.Context, args []domain.Value) ([]domain.Value, error) {
	w.last = args[0]
	return w.identity.Evaluate(ctx, args)
}

// Last returns the most recently observed value.
func (w *Watch) Last() domain.Value {
	return w.last
}
