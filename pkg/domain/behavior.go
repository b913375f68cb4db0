package domain

import (
	"context"

	"github.com/google/uuid"
)

// Value is any datum flowing along a connector.
// Numbers are float64, text is string, lists are []any.
type Value = any

// Function is a callable value. Map applies it element-wise.
type Function interface {
	Call(ctx context.Context, args []Value) (Value, error)
}

// PortSpec describes one port of a node layout.
type PortSpec struct {
	Name    string
	Default Value
}

// Layout is the ordered port signature of a node kind.
type Layout struct {
	Inputs  []PortSpec
	Outputs []PortSpec
	States  []PortSpec
}

// Behavior is the kind-specific part of a node.
// Evaluate receives the input values followed by the state values and must
// return exactly one value per output port.
type Behavior interface {
	Layout() Layout
	Evaluate(ctx context.Context, args []Value) ([]Value, error)
}

// Resolver turns a kind descriptor into a fresh Behavior.
// It returns ErrUnknownNodeKind when the descriptor is not known.
type Resolver interface {
	Resolve(kind string) (canonical string, b Behavior, err error)
}

// ResolverFunc adapts a function to the Resolver interface.
type ResolverFunc func(kind string) (string, Behavior, error)

func (f ResolverFunc) Resolve(kind string) (string, Behavior, error) {
	return f(kind)
}

// SettableValue is implemented by kinds holding a literal value
// (numbers, strings, booleans). Setting a value dirties the node.
type SettableValue interface {
	Value() Value
	SetValue(v Value) error
}

// Configurable is implemented by kinds with persisted parameters.
// Configure receives the owning node so that kinds can fall back on its
// nickname or other attributes.
type Configurable interface {
	Params() map[string]string
	Configure(n *Node, params map[string]string) error
}

// VariableInputs is implemented by kinds whose input count can change.
type VariableInputs interface {
	InputCount() int
	SetInputCount(n int) error
}

// Attachable behaviors are told which node owns them.
type Attachable interface {
	Attach(n *Node)
}

// Destroyer behaviors release resources when their node is removed.
type Destroyer interface {
	Destroy()
}

// FunctionInstance is implemented by custom node instances.
type FunctionInstance interface {
	DefinitionID() uuid.UUID
}

// Partial is implemented by kinds that may be partially applied. When
// AllowPartial reports true and some inputs are neither connected nor
// defaulted, each output yields a Function taking the missing inputs in
// port order.
type Partial interface {
	AllowPartial() bool
}
