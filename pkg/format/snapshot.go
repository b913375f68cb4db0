package format

import (
	"sort"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

// Snapshot captures g in graph order.
func Snapshot(g *domain.Graph) *Document {
	doc := snapshot(g.Nodes(), g.Connectors())
	doc.X, doc.Y = g.X, g.Y
	if g.Kind == domain.GraphCustom {
		doc.Name = g.Name
		doc.Category = g.Category
		if g.ID != uuid.Nil {
			doc.ID = g.ID.String()
		}
	}
	for _, n := range g.Notes() {
		doc.Notes.Items = append(doc.Notes.Items, NoteRecord{Text: n.Text, X: n.X, Y: n.Y})
	}
	return doc
}

// Fragment captures nodes and the connectors running between them. It is
// the clipboard form used by copy and paste.
func Fragment(g *domain.Graph, nodes []*domain.Node) *Document {
	in := make(map[*domain.Node]bool, len(nodes))
	for _, n := range nodes {
		in[n] = true
	}
	var inner []*domain.Connector
	for _, c := range g.Connectors() {
		if in[c.Source.Owner()] && in[c.Destination.Owner()] {
			inner = append(inner, c)
		}
	}
	return snapshot(nodes, inner)
}

func snapshot(nodes []*domain.Node, connectors []*domain.Connector) *Document {
	doc := &Document{Version: Version}
	for _, n := range nodes {
		doc.Elements.Nodes = append(doc.Elements.Nodes, nodeRecord(n))
	}
	for _, c := range connectors {
		portType := PortTypeInput
		if c.Destination.Direction == domain.PortState {
			portType = PortTypeState
		}
		doc.Connectors.Items = append(doc.Connectors.Items, ConnectorRecord{
			Start:      c.Source.Owner().ID.String(),
			StartIndex: c.Source.Index,
			End:        c.Destination.Owner().ID.String(),
			EndIndex:   c.Destination.Index,
			PortType:   portType,
		})
	}
	doc.nameElements()
	return doc
}

func nodeRecord(n *domain.Node) NodeRecord {
	typ := n.Kind
	if _, ok := n.Behavior.(domain.FunctionInstance); ok {
		typ = domain.KindFunction
	}
	rec := NodeRecord{
		Type:     typ,
		GUID:     n.ID.String(),
		NickName: n.NickName,
		X:        n.X,
		Y:        n.Y,
	}
	if n.Lacing != domain.LacingDisabled {
		rec.Lacing = string(n.Lacing)
	}
	if c, ok := n.Behavior.(domain.Configurable); ok {
		params := c.Params()
		names := make([]string, 0, len(params))
		for name := range params {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			rec.Params = append(rec.Params, ParamRecord{Name: name, Value: params[name]})
		}
	}
	return rec
}
