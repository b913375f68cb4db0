package kinds

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/aretw0/dynamo/pkg/domain"
)

const paramValue = "value"

// literal is a node holding one user-editable value of type T.
type literal[T any] struct {
	v      T
	coerce func(any) (T, error)
	format func(T) string
	parse  func(string) (T, error)
}

func (l *literal[T]) Layout() domain.Layout {
	return domain.Layout{Outputs: []domain.PortSpec{{Name: "value"}}}
}

func (l *literal[T]) Evaluate(context.Context, []domain.Value) ([]domain.Value, error) {
	return []domain.Value{l.v}, nil
}

func (l *literal[T]) Value() domain.Value {
	return l.v
}

func (l *literal[T]) SetValue(v domain.Value) error {
	t, err := l.coerce(v)
	if err != nil {
		return err
	}
	l.v = t
	return nil
}

func (l *literal[T]) Params() map[string]string {
	return map[string]string{paramValue: l.format(l.v)}
}

func (l *literal[T]) Configure(_ *domain.Node, params map[string]string) error {
	raw, ok := params[paramValue]
	if !ok {
		return nil
	}
	t, err := l.parse(raw)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", paramValue, err)
	}
	l.v = t
	return nil
}

func newNumber() domain.Behavior {
	return &literal[float64]{
		coerce: ToNumber,
		format: func(f float64) string { return strconv.FormatFloat(f, 'g', -1, 64) },
		parse:  func(s string) (float64, error) { return strconv.ParseFloat(s, 64) },
	}
}

func newString() domain.Behavior {
	return &literal[string]{
		coerce: func(v any) (string, error) { return ToText(v), nil },
		format: func(s string) string { return s },
		parse:  func(s string) (string, error) { return s, nil },
	}
}

func newBoolean() domain.Behavior {
	return &literal[bool]{
		coerce: ToBool,
		format: strconv.FormatBool,
		parse:  strconv.ParseBool,
	}
}

// ToNumber converts the numeric representations produced by decoders
// (JSON, YAML, mapstructure) to float64.
func ToNumber(v any) (float64, error) {
	switch n := v.(type) {
	case float64:
		return n, nil
	case float32:
		return float64(n), nil
	case int:
		return float64(n), nil
	case int32:
		return float64(n), nil
	case int64:
		return float64(n), nil
	case uint:
		return float64(n), nil
	case uint64:
		return float64(n), nil
	case json.Number:
		return n.Float64()
	case string:
		return strconv.ParseFloat(n, 64)
	case nil:
		return 0, fmt.Errorf("missing numeric value")
	}
	return 0, fmt.Errorf("cannot use %T as a number", v)
}

// ToBool converts booleans and their textual forms.
func ToBool(v any) (bool, error) {
	switch b := v.(type) {
	case bool:
		return b, nil
	case string:
		return strconv.ParseBool(b)
	}
	return false, fmt.Errorf("cannot use %T as a boolean", v)
}

// ToText renders any value as text.
func ToText(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return fmt.Sprint(v)
}
