package domain

import (
	"fmt"

	"github.com/google/uuid"
)

// GraphKind distinguishes the top-level workspace from custom node bodies.
type GraphKind string

const (
	GraphHome   GraphKind = "home"
	GraphCustom GraphKind = "custom"
)

// MapInsertOffset is the vertical offset applied to an auto-inserted Map node.
const MapInsertOffset = 20.0

// Graph is a workspace: an owned collection of nodes, connectors and notes.
// It is not safe for concurrent use; a single owner goroutine mutates it.
type Graph struct {
	Kind     GraphKind
	ID       uuid.UUID
	Name     string
	Category string
	X, Y     float64

	FilePath          string
	HasUnsavedChanges bool

	resolver   Resolver
	nodes      map[uuid.UUID]*Node
	order      []*Node
	connectors []*Connector
	notes      []*Note

	observers  map[int]Observer
	nextObsKey int
}

// NewGraph creates an empty workspace that resolves node kinds through r.
func NewGraph(kind GraphKind, name string, r Resolver) *Graph {
	return &Graph{
		Kind:      kind,
		Name:      name,
		resolver:  r,
		nodes:     make(map[uuid.UUID]*Node),
		observers: make(map[int]Observer),
	}
}

// Resolver returns the kind resolver of the graph.
func (g *Graph) Resolver() Resolver {
	return g.resolver
}

// SetResolver replaces the kind resolver.
func (g *Graph) SetResolver(r Resolver) {
	g.resolver = r
}

// Subscribe registers an observer and returns a function that removes it.
func (g *Graph) Subscribe(fn Observer) (cancel func()) {
	key := g.nextObsKey
	g.nextObsKey++
	g.observers[key] = fn
	return func() { delete(g.observers, key) }
}

func (g *Graph) emit(ev GraphEvent) {
	ev.Graph = g
	for _, fn := range g.observers {
		fn(ev)
	}
}

// Nodes returns the nodes in insertion order.
func (g *Graph) Nodes() []*Node {
	out := make([]*Node, len(g.order))
	copy(out, g.order)
	return out
}

// Connectors returns the connectors in creation order.
func (g *Graph) Connectors() []*Connector {
	out := make([]*Connector, len(g.connectors))
	copy(out, g.connectors)
	return out
}

// Notes returns the annotations in creation order.
func (g *Graph) Notes() []*Note {
	out := make([]*Note, len(g.notes))
	copy(out, g.notes)
	return out
}

// Node looks a node up by id.
func (g *Graph) Node(id uuid.UUID) (*Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Contains reports whether n is currently part of the graph.
func (g *Graph) Contains(n *Node) bool {
	return n != nil && g.nodes[n.ID] == n
}

// AddNode instantiates a node of the given kind at (x, y).
// A zero id is replaced with a fresh one.
func (g *Graph) AddNode(descriptor string, id uuid.UUID, x, y float64) (*Node, error) {
	if g.resolver == nil {
		return nil, fmt.Errorf("%w: %q (no resolver configured)", ErrUnknownNodeKind, descriptor)
	}
	kind, b, err := g.resolver.Resolve(descriptor)
	if err != nil {
		return nil, err
	}
	return g.AddBehavior(kind, b, id, x, y)
}

// AddBehavior places a node around an already constructed behavior.
func (g *Graph) AddBehavior(kind string, b Behavior, id uuid.UUID, x, y float64) (*Node, error) {
	if b == nil {
		return nil, fmt.Errorf("%w: %q has no behavior", ErrUnknownNodeKind, kind)
	}
	if id == uuid.Nil {
		id = uuid.New()
	}
	if _, exists := g.nodes[id]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateNode, id)
	}

	n := newNode(id, kind, b, x, y)
	n.graph = g
	g.nodes[id] = n
	g.order = append(g.order, n)
	g.HasUnsavedChanges = true
	g.emit(GraphEvent{Type: EventNodeAdded, Node: n})
	return n, nil
}

// RemoveNode detaches every connector touching n, then removes n.
func (g *Graph) RemoveNode(n *Node) error {
	if !g.Contains(n) {
		return ErrNodeNotFound
	}

	for _, c := range g.connectorsOf(n) {
		if err := g.Disconnect(c); err != nil {
			return err
		}
	}

	n.reporting = false
	if d, ok := n.Behavior.(Destroyer); ok {
		d.Destroy()
	}
	delete(g.nodes, n.ID)
	for i, existing := range g.order {
		if existing == n {
			g.order = append(g.order[:i], g.order[i+1:]...)
			break
		}
	}
	n.graph = nil
	g.HasUnsavedChanges = true
	g.emit(GraphEvent{Type: EventNodeRemoved, Node: n})
	return nil
}

func (g *Graph) connectorsOf(n *Node) []*Connector {
	var out []*Connector
	for _, c := range g.connectors {
		if c.Source.owner == n || c.Destination.owner == n {
			out = append(out, c)
		}
	}
	return out
}

// Connect wires source to destination.
//
// When the source belongs to a List node the connector is routed through a
// freshly inserted Map node: List -> Map.list, Map -> destination, and any
// connector already feeding destination is moved to Map.f. The returned
// connector is the one that ends on destination.
func (g *Graph) Connect(source, destination *Port) (*Connector, error) {
	listSource := source != nil && source.owner != nil && source.owner.Kind == KindList
	if err := g.checkConnect(source, destination, listSource); err != nil {
		return nil, err
	}
	if listSource {
		return g.insertMap(source, destination)
	}
	return g.link(source, destination), nil
}

// Replace wires source to destination like Connect, first removing the
// connector already feeding destination. A refused connection leaves the
// graph untouched.
func (g *Graph) Replace(source, destination *Port) (*Connector, error) {
	listSource := source != nil && source.owner != nil && source.owner.Kind == KindList
	if err := g.checkConnect(source, destination, true); err != nil {
		return nil, err
	}
	if listSource {
		return g.insertMap(source, destination)
	}
	if in := destination.Incoming(); in != nil {
		if err := g.Disconnect(in); err != nil {
			return nil, err
		}
	}
	return g.link(source, destination), nil
}

// ConnectDirect wires source to destination without the List insertion
// policy. Loaders and paste use it to restore saved topology verbatim.
func (g *Graph) ConnectDirect(source, destination *Port) (*Connector, error) {
	if err := g.checkConnect(source, destination, false); err != nil {
		return nil, err
	}
	return g.link(source, destination), nil
}

func (g *Graph) checkConnect(source, destination *Port, allowOccupied bool) error {
	if source == nil || destination == nil {
		return fmt.Errorf("%w: missing port", ErrInvalidConnection)
	}
	if !g.Contains(source.owner) || !g.Contains(destination.owner) {
		return fmt.Errorf("%w: ports must belong to nodes of this graph", ErrInvalidConnection)
	}
	if source.Direction != PortOutput {
		return fmt.Errorf("%w: source %s is not an output", ErrInvalidConnection, source.ID())
	}
	if destination.Direction == PortOutput {
		return fmt.Errorf("%w: destination %s is an output", ErrInvalidConnection, destination.ID())
	}
	if source.owner == destination.owner {
		return fmt.Errorf("%w: cannot connect node %s to itself", ErrInvalidConnection, source.owner.ID)
	}
	if in := destination.Incoming(); in != nil {
		if in.Source == source {
			return fmt.Errorf("%w: %s and %s are already connected", ErrInvalidConnection, source.ID(), destination.ID())
		}
		if !allowOccupied {
			return fmt.Errorf("%w: destination %s already has an incoming connector", ErrInvalidConnection, destination.ID())
		}
	}
	return nil
}

func (g *Graph) insertMap(source, destination *Port) (*Connector, error) {
	list := source.owner
	target := destination.owner

	x := (list.X + target.X) / 2
	y := (list.Y+target.Y)/2 + MapInsertOffset
	mapNode, err := g.AddNode(KindMap, uuid.Nil, x, y)
	if err != nil {
		return nil, fmt.Errorf("%w: cannot insert map node: %v", ErrInvalidConnection, err)
	}
	if len(mapNode.Inputs) < 2 || len(mapNode.Outputs) < 1 {
		_ = g.RemoveNode(mapNode)
		return nil, fmt.Errorf("%w: map kind must expose two inputs and one output", ErrInvalidConnection)
	}

	var upstream *Port
	if existing := destination.Incoming(); existing != nil {
		upstream = existing.Source
		if err := g.Disconnect(existing); err != nil {
			_ = g.RemoveNode(mapNode)
			return nil, err
		}
	}

	g.link(source, mapNode.Inputs[0])
	if upstream != nil {
		g.link(upstream, mapNode.Inputs[1])
	}
	return g.link(mapNode.Outputs[0], destination), nil
}

func (g *Graph) link(source, destination *Port) *Connector {
	c := &Connector{ID: uuid.New(), Source: source, Destination: destination}
	source.attach(c)
	destination.attach(c)
	g.connectors = append(g.connectors, c)
	g.HasUnsavedChanges = true
	g.emit(GraphEvent{Type: EventConnected, Connector: c})
	destination.owner.Invalidate()
	return c
}

// Disconnect removes c from both endpoints and from the graph, then dirties
// the former destination node.
func (g *Graph) Disconnect(c *Connector) error {
	idx := -1
	for i, existing := range g.connectors {
		if existing == c {
			idx = i
			break
		}
	}
	if idx < 0 {
		return fmt.Errorf("%w: connector is not part of this graph", ErrInvalidConnection)
	}

	c.detach()
	g.connectors = append(g.connectors[:idx], g.connectors[idx+1:]...)
	g.HasUnsavedChanges = true
	g.emit(GraphEvent{Type: EventDisconnected, Connector: c})
	if dst := c.Destination.owner; g.Contains(dst) {
		dst.Invalidate()
	}
	return nil
}

// RefreshPorts re-reads the behavior layout of n, disconnecting connectors on
// ports that no longer exist, and dirties n.
func (g *Graph) RefreshPorts(n *Node) error {
	if !g.Contains(n) {
		return ErrNodeNotFound
	}
	l := n.Behavior.Layout()
	var dropped []*Connector
	dropped = append(dropped, overflowConnectors(n.Inputs, len(l.Inputs))...)
	dropped = append(dropped, overflowConnectors(n.Outputs, len(l.Outputs))...)
	dropped = append(dropped, overflowConnectors(n.States, len(l.States))...)
	for _, c := range dropped {
		if err := g.Disconnect(c); err != nil {
			return err
		}
	}
	n.applyLayout(l)
	n.Invalidate()
	return nil
}

func overflowConnectors(ports []*Port, keep int) []*Connector {
	var out []*Connector
	for i := keep; i < len(ports); i++ {
		out = append(out, ports[i].connectors...)
	}
	return out
}

// Clear destroys all nodes, then all connectors, then all notes. Reporting is
// disabled on every node first so no dirty cascades fire during teardown.
func (g *Graph) Clear() {
	for _, n := range g.order {
		n.reporting = false
	}
	for _, n := range g.order {
		if d, ok := n.Behavior.(Destroyer); ok {
			d.Destroy()
		}
		n.graph = nil
	}
	for _, c := range g.connectors {
		c.detach()
	}
	g.nodes = make(map[uuid.UUID]*Node)
	g.order = nil
	g.connectors = nil
	g.notes = nil
	g.emit(GraphEvent{Type: EventCleared})
}

// AddNote places an annotation. Empty text becomes DefaultNoteText.
func (g *Graph) AddNote(text string, x, y float64) *Note {
	if text == "" {
		text = DefaultNoteText
	}
	n := &Note{ID: uuid.New(), Text: text, X: x, Y: y}
	g.notes = append(g.notes, n)
	g.HasUnsavedChanges = true
	g.emit(GraphEvent{Type: EventNoteAdded, Note: n})
	return n
}

// RemoveNote deletes an annotation by id.
func (g *Graph) RemoveNote(id uuid.UUID) error {
	for i, n := range g.notes {
		if n.ID == id {
			g.notes = append(g.notes[:i], g.notes[i+1:]...)
			g.HasUnsavedChanges = true
			g.emit(GraphEvent{Type: EventNoteRemoved, Note: n})
			return nil
		}
	}
	return fmt.Errorf("note %s not found", id)
}

// InvalidateAll marks every node dirty.
func (g *Graph) InvalidateAll() {
	for _, n := range g.order {
		n.Invalidate()
	}
}

// Validate checks the structural invariants: every connector references
// ports of nodes in this graph, is registered on both endpoints, and no
// input or state port has more than one incoming connector.
func (g *Graph) Validate() error {
	for _, c := range g.connectors {
		if c.Source == nil || c.Destination == nil {
			return fmt.Errorf("connector %s has a missing endpoint", c.ID)
		}
		if !g.Contains(c.Source.owner) || !g.Contains(c.Destination.owner) {
			return fmt.Errorf("connector %s references a node outside the graph", c.ID)
		}
		if !hasConnector(c.Source, c) || !hasConnector(c.Destination, c) {
			return fmt.Errorf("connector %s is not registered on its ports", c.ID)
		}
	}
	for _, n := range g.order {
		for _, p := range append(append([]*Port{}, n.Inputs...), n.States...) {
			if len(p.connectors) > 1 {
				return fmt.Errorf("port %s has %d incoming connectors", p.ID(), len(p.connectors))
			}
		}
	}
	return nil
}

func hasConnector(p *Port, c *Connector) bool {
	for _, existing := range p.connectors {
		if existing == c {
			return true
		}
	}
	return false
}
