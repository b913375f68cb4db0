package domain

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubBehavior struct {
	layout Layout
}

func (s *stubBehavior) Layout() Layout { return s.layout }

func (s *stubBehavior) Evaluate(_ context.Context, args []Value) ([]Value, error) {
	out := make([]Value, len(s.layout.Outputs))
	for i := range out {
		if i < len(args) {
			out[i] = args[i]
		}
	}
	return out, nil
}

func ports(names ...string) []PortSpec {
	out := make([]PortSpec, len(names))
	for i, n := range names {
		out[i] = PortSpec{Name: n}
	}
	return out
}

func stubResolver() Resolver {
	return ResolverFunc(func(kind string) (string, Behavior, error) {
		switch kind {
		case "Number":
			return kind, &stubBehavior{Layout{Outputs: ports("value")}}, nil
		case "Pass":
			return kind, &stubBehavior{Layout{Inputs: ports("x"), Outputs: ports("x")}}, nil
		case "Loop":
			return kind, &stubBehavior{Layout{Inputs: ports("x"), Outputs: ports("x"), States: ports("prev")}}, nil
		case KindList:
			return kind, &stubBehavior{Layout{Inputs: ports("item0"), Outputs: ports("list")}}, nil
		case KindMap:
			return kind, &stubBehavior{Layout{Inputs: ports("list", "f"), Outputs: ports("list")}}, nil
		}
		return "", nil, ErrUnknownNodeKind
	})
}

func mustAdd(t *testing.T, g *Graph, kind string) *Node {
	t.Helper()
	n, err := g.AddNode(kind, uuid.Nil, 0, 0)
	require.NoError(t, err)
	return n
}

func countKind(g *Graph, kind string) int {
	count := 0
	for _, n := range g.Nodes() {
		if n.Kind == kind {
			count++
		}
	}
	return count
}

func TestGraph_AddNode(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())

	n, err := g.AddNode("Number", uuid.Nil, 10, 20)
	require.NoError(t, err)
	assert.NotEqual(t, uuid.Nil, n.ID, "zero id must be replaced")
	assert.Equal(t, StatusDirty, n.Status(), "new nodes start dirty")
	assert.Equal(t, 10.0, n.X)
	assert.True(t, g.HasUnsavedChanges)

	_, err = g.AddNode("Nope", uuid.Nil, 0, 0)
	assert.ErrorIs(t, err, ErrUnknownNodeKind)

	_, err = g.AddNode("Number", n.ID, 0, 0)
	assert.ErrorIs(t, err, ErrDuplicateNode)
}

func TestGraph_ConnectRules(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	a := mustAdd(t, g, "Number")
	b := mustAdd(t, g, "Number")
	p := mustAdd(t, g, "Pass")

	_, err := g.Connect(a.Outputs[0], p.Inputs[0])
	require.NoError(t, err)

	tests := []struct {
		name string
		src  *Port
		dst  *Port
	}{
		{"destination is output", a.Outputs[0], b.Outputs[0]},
		{"source is input", p.Inputs[0], a.Outputs[0]},
		{"same node", p.Outputs[0], p.Inputs[0]},
		{"already connected", a.Outputs[0], p.Inputs[0]},
		{"destination occupied", b.Outputs[0], p.Inputs[0]},
		{"nil port", nil, p.Inputs[0]},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := len(g.Connectors())
			_, err := g.Connect(tt.src, tt.dst)
			assert.ErrorIs(t, err, ErrInvalidConnection)
			assert.Len(t, g.Connectors(), before, "graph must be unchanged")
		})
	}

	other := NewGraph(GraphHome, "Other", stubResolver())
	foreign := mustAdd(t, other, "Number")
	_, err = g.Connect(foreign.Outputs[0], p.Inputs[0])
	assert.ErrorIs(t, err, ErrInvalidConnection)
}

func TestGraph_Replace(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	a := mustAdd(t, g, "Number")
	b := mustAdd(t, g, "Number")
	p := mustAdd(t, g, "Pass")

	first, err := g.Connect(a.Outputs[0], p.Inputs[0])
	require.NoError(t, err)

	_, err = g.Replace(p.Outputs[0], p.Inputs[0])
	assert.ErrorIs(t, err, ErrInvalidConnection)
	assert.Same(t, first, p.Inputs[0].Incoming(), "refused replace keeps the existing connector")
	require.Len(t, g.Connectors(), 1)

	_, err = g.Replace(a.Outputs[0], p.Inputs[0])
	assert.ErrorIs(t, err, ErrInvalidConnection, "already connected")

	second, err := g.Replace(b.Outputs[0], p.Inputs[0])
	require.NoError(t, err)
	assert.Same(t, second, p.Inputs[0].Incoming())
	assert.Len(t, g.Connectors(), 1)
	assert.Empty(t, a.Outputs[0].Connectors())
}

func TestGraph_RemoveNodeLeavesNoDanglingConnectors(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	a := mustAdd(t, g, "Number")
	p1 := mustAdd(t, g, "Pass")
	p2 := mustAdd(t, g, "Pass")

	_, err := g.Connect(a.Outputs[0], p1.Inputs[0])
	require.NoError(t, err)
	_, err = g.Connect(p1.Outputs[0], p2.Inputs[0])
	require.NoError(t, err)

	require.NoError(t, g.RemoveNode(p1))

	for _, c := range g.Connectors() {
		assert.NotEqual(t, p1, c.Source.Owner())
		assert.NotEqual(t, p1, c.Destination.Owner())
	}
	assert.Empty(t, g.Connectors())
	assert.False(t, a.Outputs[0].IsConnected())
	assert.False(t, p2.Inputs[0].IsConnected())
	assert.Nil(t, p1.Graph())
	assert.NoError(t, g.Validate())

	assert.ErrorIs(t, g.RemoveNode(p1), ErrNodeNotFound)
}

func TestGraph_DirtyIsTransitive(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	a := mustAdd(t, g, "Pass")
	b := mustAdd(t, g, "Pass")
	c := mustAdd(t, g, "Pass")
	_, err := g.Connect(a.Outputs[0], b.Inputs[0])
	require.NoError(t, err)
	_, err = g.Connect(b.Outputs[0], c.Inputs[0])
	require.NoError(t, err)

	for _, n := range []*Node{a, b, c} {
		n.SetResult([]Value{1.0})
		require.Equal(t, StatusClean, n.Status())
	}

	a.Invalidate()

	assert.True(t, a.IsDirty())
	assert.True(t, b.IsDirty())
	assert.True(t, c.IsDirty())
	assert.True(t, a.SelfDirty())
	assert.False(t, c.SelfDirty(), "propagated dirtiness is not self-inflicted")
}

func TestGraph_DisconnectDirtiesDestination(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	a := mustAdd(t, g, "Number")
	b := mustAdd(t, g, "Pass")
	c, err := g.Connect(a.Outputs[0], b.Inputs[0])
	require.NoError(t, err)
	b.SetResult([]Value{1.0})

	require.NoError(t, g.Disconnect(c))
	assert.True(t, b.IsDirty())
	assert.Nil(t, b.Inputs[0].Incoming())
	assert.ErrorIs(t, g.Disconnect(c), ErrInvalidConnection)
}

func TestGraph_ListOutputInsertsMap(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	alpha := mustAdd(t, g, KindList)
	beta := mustAdd(t, g, "Pass")

	c, err := g.Connect(alpha.Outputs[0], beta.Inputs[0])
	require.NoError(t, err)

	require.Len(t, g.Nodes(), 3)
	require.Equal(t, 1, countKind(g, KindMap))
	mapNode := c.Source.Owner()
	assert.Equal(t, KindMap, mapNode.Kind)
	assert.Equal(t, beta, c.Destination.Owner())

	in := mapNode.Inputs[0].Incoming()
	require.NotNil(t, in)
	assert.Equal(t, alpha, in.Source.Owner())
	assert.Nil(t, mapNode.Inputs[1].Incoming())

	for _, conn := range g.Connectors() {
		if conn.Source.Owner() == alpha {
			assert.NotEqual(t, beta, conn.Destination.Owner(), "list must never feed the destination directly")
		}
	}
	assert.NoError(t, g.Validate())
}

func TestGraph_ListOutputMovesExistingUpstreamIntoMap(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	list := mustAdd(t, g, KindList)
	upstream := mustAdd(t, g, "Number")
	dst := mustAdd(t, g, "Pass")

	_, err := g.Connect(upstream.Outputs[0], dst.Inputs[0])
	require.NoError(t, err)

	c, err := g.Connect(list.Outputs[0], dst.Inputs[0])
	require.NoError(t, err)

	mapNode := c.Source.Owner()
	require.Equal(t, KindMap, mapNode.Kind)
	assert.Equal(t, list, mapNode.Inputs[0].Incoming().Source.Owner())
	assert.Equal(t, upstream, mapNode.Inputs[1].Incoming().Source.Owner())
	assert.Equal(t, mapNode, dst.Inputs[0].Incoming().Source.Owner())
	assert.Len(t, g.Connectors(), 3)
	assert.NoError(t, g.Validate())
}

func TestGraph_StatePortsAcceptFeedback(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	loop := mustAdd(t, g, "Loop")
	next := mustAdd(t, g, "Pass")
	_, err := g.Connect(loop.Outputs[0], next.Inputs[0])
	require.NoError(t, err)

	c, err := g.Connect(next.Outputs[0], loop.States[0])
	require.NoError(t, err)
	assert.True(t, c.IsFeedback())
	assert.Empty(t, loop.Upstream(), "feedback edges are not upstream dependencies")
}

func TestGraph_RefreshPortsDropsConnectorsOnRemovedPorts(t *testing.T) {
	b := &stubBehavior{Layout{Inputs: ports("a", "b"), Outputs: ports("out")}}
	g := NewGraph(GraphHome, "Home", stubResolver())
	src := mustAdd(t, g, "Number")
	n, err := g.AddBehavior("Custom", b, uuid.Nil, 0, 0)
	require.NoError(t, err)
	_, err = g.Connect(src.Outputs[0], n.Inputs[1])
	require.NoError(t, err)

	b.layout = Layout{Inputs: ports("renamed"), Outputs: ports("out")}
	require.NoError(t, g.RefreshPorts(n))

	require.Len(t, n.Inputs, 1)
	assert.Equal(t, "renamed", n.Inputs[0].Name)
	assert.Empty(t, g.Connectors())
	assert.True(t, n.IsDirty())
}

func TestGraph_ClearAndObservers(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	var events []GraphEventType
	cancel := g.Subscribe(func(ev GraphEvent) { events = append(events, ev.Type) })

	a := mustAdd(t, g, "Number")
	b := mustAdd(t, g, "Pass")
	_, err := g.Connect(a.Outputs[0], b.Inputs[0])
	require.NoError(t, err)
	g.AddNote("", 1, 2)

	assert.Contains(t, events, EventNodeAdded)
	assert.Contains(t, events, EventConnected)
	assert.Contains(t, events, EventNoteAdded)
	assert.Equal(t, DefaultNoteText, g.Notes()[0].Text)

	g.Clear()
	assert.Empty(t, g.Nodes())
	assert.Empty(t, g.Connectors())
	assert.Empty(t, g.Notes())
	assert.False(t, a.Outputs[0].IsConnected())
	assert.Equal(t, EventCleared, events[len(events)-1])

	cancel()
	n := len(events)
	mustAdd(t, g, "Number")
	assert.Len(t, events, n, "cancelled observers receive nothing")
}

func TestNode_SetValueRequiresCapability(t *testing.T) {
	g := NewGraph(GraphHome, "Home", stubResolver())
	n := mustAdd(t, g, "Pass")
	assert.Error(t, n.SetValue(1.0))
}
