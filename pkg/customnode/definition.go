// Package customnode manages custom node definitions: workspaces that can be
// placed in other workspaces and called like a function.
//
// Definitions may reference each other and are loaded from independent files
// in any order. The Registry records which definitions wait on which ids and
// completes them as soon as their last dependency resolves.
package customnode

import (
	"context"
	"fmt"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/google/uuid"
)

// DeterministicID derives the stable id of a custom node from its name, for
// documents that carry no explicit id. The same name always yields the same id.
func DeterministicID(name string) uuid.UUID {
	return uuid.NewSHA1(uuid.NameSpaceURL, []byte(name))
}

// Definition is a custom node: a Custom graph plus its compiled signature.
type Definition struct {
	ID       uuid.UUID
	Name     string
	Category string
	Graph    *domain.Graph

	InputNames  []string
	OutputNames []string

	inputIDs  []uuid.UUID
	outputIDs []uuid.UUID
}

// NewDefinition wraps g as a definition. A zero id is derived from name.
func NewDefinition(id uuid.UUID, name, category string, g *domain.Graph) *Definition {
	if id == uuid.Nil {
		id = DeterministicID(name)
	}
	g.Kind = domain.GraphCustom
	g.ID = id
	g.Name = name
	g.Category = category
	return &Definition{ID: id, Name: name, Category: category, Graph: g}
}

// compile reads the signature from the Input and Output nodes of the graph,
// in graph order.
func (d *Definition) compile() {
	d.InputNames, d.OutputNames = nil, nil
	d.inputIDs, d.outputIDs = nil, nil
	for _, n := range d.Graph.Nodes() {
		p, ok := n.Behavior.(kinds.Parameter)
		if !ok {
			continue
		}
		if p.IsOutput() {
			d.OutputNames = append(d.OutputNames, p.ParameterName())
			d.outputIDs = append(d.outputIDs, n.ID)
		} else {
			d.InputNames = append(d.InputNames, p.ParameterName())
			d.inputIDs = append(d.inputIDs, n.ID)
		}
	}
}

// Caller evaluates a graph as a pure function.
type Caller interface {
	Call(ctx context.Context, g *domain.Graph, bindings map[uuid.UUID]domain.Value, sinks []uuid.UUID) ([]domain.Value, error)
}

func (d *Definition) call(ctx context.Context, c Caller, args []domain.Value) ([]domain.Value, error) {
	if len(args) != len(d.inputIDs) {
		return nil, fmt.Errorf("custom node %q expects %d argument(s), got %d", d.Name, len(d.inputIDs), len(args))
	}
	bindings := make(map[uuid.UUID]domain.Value, len(args))
	for i, id := range d.inputIDs {
		bindings[id] = args[i]
	}
	return c.Call(ctx, d.Graph, bindings, d.outputIDs)
}
