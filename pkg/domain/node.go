package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// NodeStatus is the evaluation state of a node.
type NodeStatus string

const (
	StatusClean      NodeStatus = "clean"
	StatusDirty      NodeStatus = "dirty"
	StatusEvaluating NodeStatus = "evaluating"
	// StatusError is terminal until the node is dirtied again.
	StatusError NodeStatus = "error"
)

// Built-in kind names the graph itself needs to know about.
const (
	KindList     = "List"
	KindMap      = "Map"
	KindFunction = "Function"
)

// Node is a unit of computation placed in a Graph.
type Node struct {
	ID       uuid.UUID
	Kind     string
	NickName string
	X, Y     float64
	Lacing   Lacing

	Inputs  []*Port
	Outputs []*Port
	States  []*Port

	Behavior Behavior

	status    NodeStatus
	outputs   []Value
	hasResult bool
	err       error
	selfDirty bool
	reporting bool
	graph     *Graph

	// version increases every time the cached outputs change. consumed holds
	// the versions of the upstream nodes read by the last evaluation.
	version  uint64
	consumed map[*Node]uint64
}

func newNode(id uuid.UUID, kind string, b Behavior, x, y float64) *Node {
	n := &Node{
		ID:        id,
		Kind:      kind,
		NickName:  kind,
		X:         x,
		Y:         y,
		Lacing:    LacingDisabled,
		Behavior:  b,
		status:    StatusDirty,
		selfDirty: true,
		reporting: true,
	}
	n.applyLayout(b.Layout())
	if a, ok := b.(Attachable); ok {
		a.Attach(n)
	}
	return n
}

// Graph returns the workspace the node belongs to, or nil once removed.
func (n *Node) Graph() *Graph {
	return n.graph
}

// Status returns the current evaluation state.
func (n *Node) Status() NodeStatus {
	return n.status
}

// IsDirty reports whether the cached result is stale.
func (n *Node) IsDirty() bool {
	return n.status == StatusDirty
}

// Result returns the cached output values.
func (n *Node) Result() ([]Value, bool) {
	return n.outputs, n.hasResult
}

// Output returns the cached value of the output port at index i.
func (n *Node) Output(i int) (Value, bool) {
	if !n.hasResult || i < 0 || i >= len(n.outputs) {
		return nil, false
	}
	return n.outputs[i], true
}

// Err returns the error recorded by the last failed evaluation.
func (n *Node) Err() error {
	return n.err
}

// SelfDirty reports whether the node was dirtied directly (creation, value
// change, connection change) rather than only by an upstream cascade.
func (n *Node) SelfDirty() bool {
	return n.selfDirty
}

// IsReporting reports whether dirty changes cascade and notify observers.
func (n *Node) IsReporting() bool {
	return n.reporting
}

// SetReporting enables or disables dirty cascades and notifications.
func (n *Node) SetReporting(on bool) {
	n.reporting = on
}

// Port returns the port of the given direction and index.
func (n *Node) Port(dir PortDirection, index int) (*Port, error) {
	var ports []*Port
	switch dir {
	case PortInput:
		ports = n.Inputs
	case PortOutput:
		ports = n.Outputs
	case PortState:
		ports = n.States
	default:
		return nil, fmt.Errorf("%w: unknown port direction %q", ErrInvalidConnection, dir)
	}
	if index < 0 || index >= len(ports) {
		return nil, fmt.Errorf("%w: node %s has no %s port %d", ErrInvalidConnection, n.ID, dir, index)
	}
	return ports[index], nil
}

// Upstream returns the distinct nodes feeding this node's Input ports.
// Feedback edges into State ports are not included.
func (n *Node) Upstream() []*Node {
	return distinctOwners(n.Inputs, func(c *Connector) *Node { return c.Source.owner })
}

// Downstream returns the distinct nodes fed by this node's outputs.
func (n *Node) Downstream() []*Node {
	return distinctOwners(n.Outputs, func(c *Connector) *Node { return c.Destination.owner })
}

func distinctOwners(ports []*Port, pick func(*Connector) *Node) []*Node {
	seen := make(map[*Node]bool)
	var out []*Node
	for _, p := range ports {
		for _, c := range p.connectors {
			owner := pick(c)
			if owner == nil || seen[owner] {
				continue
			}
			seen[owner] = true
			out = append(out, owner)
		}
	}
	return out
}

// SetValue applies a literal value through the SettableValue capability and
// dirties the node.
func (n *Node) SetValue(v Value) error {
	s, ok := n.Behavior.(SettableValue)
	if !ok {
		return fmt.Errorf("node %s (%s) does not hold a settable value", n.ID, n.Kind)
	}
	if err := s.SetValue(v); err != nil {
		return fmt.Errorf("set value on node %s: %w", n.ID, err)
	}
	if n.graph != nil {
		n.graph.HasUnsavedChanges = true
	}
	n.Invalidate()
	return nil
}

// Invalidate marks the node dirty and cascades to every downstream node.
func (n *Node) Invalidate() {
	n.selfDirty = true
	n.markDirty()
}

// markDirty walks forward along connectors. Nodes with reporting disabled
// are dirtied themselves but do not cascade or notify.
func (n *Node) markDirty() {
	visited := make(map[*Node]bool)
	stack := []*Node{n}
	for len(stack) > 0 {
		m := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if visited[m] {
			continue
		}
		visited[m] = true

		was := m.status
		m.status = StatusDirty
		m.err = nil
		if !m.reporting {
			continue
		}
		if was != StatusDirty && m.graph != nil {
			m.graph.emit(GraphEvent{Type: EventNodeDirty, Node: m})
		}
		for _, p := range m.Outputs {
			for _, c := range p.connectors {
				stack = append(stack, c.Destination.owner)
			}
		}
	}
}

// SetEvaluating moves the node into the Evaluating state.
func (n *Node) SetEvaluating() {
	n.status = StatusEvaluating
}

// Version returns a counter that increases whenever the cached outputs change.
func (n *Node) Version() uint64 {
	return n.version
}

// UpToDate reports whether the cached result was computed from the current
// outputs of every upstream node.
func (n *Node) UpToDate() bool {
	if !n.hasResult {
		return false
	}
	upstream := n.Upstream()
	if len(upstream) != len(n.consumed) {
		return false
	}
	for _, up := range upstream {
		v, ok := n.consumed[up]
		if !ok || v != up.version {
			return false
		}
	}
	return true
}

// SetResult caches the outputs of a successful evaluation and marks the node
// clean. It reports whether the outputs differ from the previous cache.
// The versions of the upstream nodes are recorded as consumed.
func (n *Node) SetResult(outputs []Value) bool {
	changed := !n.hasResult || !valuesEqual(n.outputs, outputs)
	if changed {
		n.version++
	}
	upstream := n.Upstream()
	n.consumed = make(map[*Node]uint64, len(upstream))
	for _, up := range upstream {
		n.consumed[up] = up.version
	}
	n.outputs = outputs
	n.hasResult = true
	n.err = nil
	n.status = StatusClean
	n.selfDirty = false
	if n.graph != nil && n.reporting {
		n.graph.emit(GraphEvent{Type: EventNodeEvaluated, Node: n})
	}
	return changed
}

// SetClean marks the node clean while keeping its cached outputs.
func (n *Node) SetClean() {
	n.status = StatusClean
	n.selfDirty = false
}

// SetError records an evaluation failure.
func (n *Node) SetError(err error) {
	n.err = err
	n.consumed = nil
	n.status = StatusError
	n.selfDirty = false
	if n.graph != nil && n.reporting {
		n.graph.emit(GraphEvent{Type: EventNodeEvaluated, Node: n})
	}
}

// applyLayout resizes the port lists to match layout. Ports that survive keep
// their connectors; callers must detach connectors of dropped ports first.
func (n *Node) applyLayout(l Layout) {
	n.Inputs = resizePorts(n, n.Inputs, l.Inputs, PortInput)
	n.Outputs = resizePorts(n, n.Outputs, l.Outputs, PortOutput)
	n.States = resizePorts(n, n.States, l.States, PortState)
}

func resizePorts(owner *Node, ports []*Port, specs []PortSpec, dir PortDirection) []*Port {
	out := make([]*Port, len(specs))
	for i, spec := range specs {
		if i < len(ports) {
			out[i] = ports[i]
		} else {
			out[i] = &Port{Direction: dir, Index: i, owner: owner}
		}
		out[i].Name = spec.Name
		out[i].Default = spec.Default
	}
	return out
}
