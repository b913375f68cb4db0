package dsl

import (
	"errors"
	"fmt"

	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/google/uuid"
)

// namespace scopes the guids derived from builder node ids.
var namespace = uuid.MustParse("6f1d3a6e-8f7c-4e43-9b1c-2d5e0c7a9b10")

// Builder manages the workspace construction.
type Builder struct {
	name     string
	category string
	nodes    map[string]*NodeBuilder
	order    []string
	wires    []wire
	notes    []format.NoteRecord
}

type wire struct {
	from   string
	output int
	to     string
	input  int
	state  bool
}

// New creates a builder for a Home workspace.
func New() *Builder {
	return &Builder{nodes: make(map[string]*NodeBuilder)}
}

// NewCustom creates a builder for a custom node document.
func NewCustom(name, category string) *Builder {
	b := New()
	b.name, b.category = name, category
	return b
}

// Add creates a new node in the workspace.
// If the node already exists, it returns the existing builder.
func (b *Builder) Add(id string) *NodeBuilder {
	if nb, ok := b.nodes[id]; ok {
		return nb
	}
	nb := &NodeBuilder{
		id:      id,
		params:  make(map[string]string),
		builder: b,
	}
	b.nodes[id] = nb
	b.order = append(b.order, id)
	return nb
}

// Note adds a text note at (x, y).
func (b *Builder) Note(text string, x, y float64) *Builder {
	b.notes = append(b.notes, format.NoteRecord{Text: text, X: x, Y: y})
	return b
}

// NodeID returns the guid the node named id carries in the built document.
func (b *Builder) NodeID(id string) uuid.UUID {
	return uuid.NewSHA1(namespace, []byte(b.name+"/"+id))
}

// Document compiles the workspace into a document in insertion order.
func (b *Builder) Document() (*format.Document, error) {
	doc := &format.Document{
		Version:  format.Version,
		Name:     b.name,
		Category: b.category,
	}
	if b.name != "" {
		doc.ID = customnode.DeterministicID(b.name).String()
	}

	var errs []error
	for _, id := range b.order {
		rec, err := b.nodes[id].record()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		doc.Elements.Nodes = append(doc.Elements.Nodes, rec)
	}
	for _, w := range b.wires {
		if _, ok := b.nodes[w.to]; !ok {
			errs = append(errs, fmt.Errorf("node %q connects to unknown node %q", w.from, w.to))
			continue
		}
		portType := format.PortTypeInput
		if w.state {
			portType = format.PortTypeState
		}
		doc.Connectors.Items = append(doc.Connectors.Items, format.ConnectorRecord{
			Start:      b.NodeID(w.from).String(),
			StartIndex: w.output,
			End:        b.NodeID(w.to).String(),
			EndIndex:   w.input,
			PortType:   portType,
		})
	}
	doc.Notes.Items = append(doc.Notes.Items, b.notes...)

	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("failed to build document: %w", err)
	}
	return doc, nil
}

// Build materializes the workspace into a new graph resolving kinds through
// resolver.
func (b *Builder) Build(resolver domain.Resolver, opts ...format.LoadOption) (*domain.Graph, *format.LoadReport, error) {
	doc, err := b.Document()
	if err != nil {
		return nil, nil, err
	}
	kind := domain.GraphHome
	if doc.IsCustom() {
		kind = domain.GraphCustom
	}
	g := domain.NewGraph(kind, b.name, resolver)
	report, err := format.Materialize(doc, g, opts...)
	if err != nil {
		return nil, nil, err
	}
	return g, report, nil
}

// Definition builds a custom node definition and the definitions it
// depends on, ready for a customnode.Registry.
func (b *Builder) Definition(resolver domain.Resolver, opts ...format.LoadOption) (*customnode.Definition, []uuid.UUID, error) {
	if b.name == "" {
		return nil, nil, errors.New("not a custom node builder")
	}
	doc, err := b.Document()
	if err != nil {
		return nil, nil, err
	}
	def, report, err := format.BuildDefinition(doc, resolver, opts...)
	if err != nil {
		return nil, nil, err
	}
	return def, report.Dependencies, nil
}
