package dsl

import (
	"fmt"
	"slices"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/google/uuid"
)

// NodeBuilder provides a fluent API for configuring a node.
type NodeBuilder struct {
	id       string
	kind     string
	nickname string
	x, y     float64
	lacing   domain.Lacing
	params   map[string]string
	builder  *Builder
}

// Kind sets the kind descriptor resolved when the workspace is built.
func (n *NodeBuilder) Kind(kind string) *NodeBuilder {
	n.kind = kind
	return n
}

// Instance makes the node an instance of the custom node def.
func (n *NodeBuilder) Instance(def uuid.UUID) *NodeBuilder {
	n.kind = domain.KindFunction
	n.params["symbol"] = def.String()
	return n
}

// Nick sets the display name of the node.
func (n *NodeBuilder) Nick(name string) *NodeBuilder {
	n.nickname = name
	return n
}

// At places the node.
func (n *NodeBuilder) At(x, y float64) *NodeBuilder {
	n.x, n.y = x, y
	return n
}

// Value sets the value of a literal node.
func (n *NodeBuilder) Value(v any) *NodeBuilder {
	return n.Param("value", fmt.Sprint(v))
}

// Param sets a behavior parameter.
func (n *NodeBuilder) Param(name, value string) *NodeBuilder {
	n.params[name] = value
	return n
}

// Lacing sets the lacing strategy.
func (n *NodeBuilder) Lacing(l domain.Lacing) *NodeBuilder {
	n.lacing = l
	return n
}

// To connects the first output of the node to an input of target.
func (n *NodeBuilder) To(target string, input int) *NodeBuilder {
	return n.Out(0, target, input)
}

// Out connects an output of the node to an input of target.
func (n *NodeBuilder) Out(output int, target string, input int) *NodeBuilder {
	n.builder.wires = append(n.builder.wires, wire{from: n.id, output: output, to: target, input: input})
	return n
}

// Feedback connects the first output of the node to a State port of target.
func (n *NodeBuilder) Feedback(target string, state int) *NodeBuilder {
	n.builder.wires = append(n.builder.wires, wire{from: n.id, to: target, input: state, state: true})
	return n
}

func (n *NodeBuilder) record() (format.NodeRecord, error) {
	if n.kind == "" {
		return format.NodeRecord{}, fmt.Errorf("node %q has no kind", n.id)
	}
	nick := n.nickname
	if nick == "" {
		nick = n.id
	}
	rec := format.NodeRecord{
		Type:     n.kind,
		GUID:     n.builder.NodeID(n.id).String(),
		NickName: nick,
		X:        n.x,
		Y:        n.y,
	}
	if n.lacing != "" && n.lacing != domain.LacingDisabled {
		rec.Lacing = string(n.lacing)
	}
	for _, name := range sortedKeys(n.params) {
		rec.Params = append(rec.Params, format.ParamRecord{Name: name, Value: n.params[name]})
	}
	return rec, nil
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}
