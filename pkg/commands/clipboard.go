package commands

import (
	"context"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
)

// PasteOffset is how far below the originals pasted nodes land.
const PasteOffset = 100

type clipboard struct {
	doc *format.Document
	// values holds the literal of every copied SettableValue node, keyed by
	// its record guid.
	values map[string]domain.Value
}

type copyParams struct {
	Nodes []string `mapstructure:"nodes"`
}

func (s *Set) registerClipboard() {
	s.add(Copy, false,
		decodes(func(p copyParams) bool {
			if len(p.Nodes) == 0 {
				return false
			}
			for _, id := range p.Nodes {
				if !s.hasNode(id) {
					return false
				}
			}
			return true
		}),
		typed(s.copy))

	s.add(Paste, true,
		func(Params) bool { return s.clipboard != nil },
		func(context.Context, Params) (any, error) { return s.paste() })
}

// copy snapshots the nodes and the connectors running between them.
func (s *Set) copy(_ context.Context, p copyParams) (any, error) {
	nodes := make([]*domain.Node, 0, len(p.Nodes))
	values := make(map[string]domain.Value)
	for _, id := range p.Nodes {
		n, err := s.node(id)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
		if sv, ok := n.Behavior.(domain.SettableValue); ok {
			values[n.ID.String()] = sv.Value()
		}
	}
	s.clipboard = &clipboard{
		doc:    format.Fragment(s.wb.CurrentSpace(), nodes),
		values: values,
	}
	return len(nodes), nil
}

// paste inserts the clipboard into the current space with fresh ids,
// offset downwards, and returns the new nodes.
func (s *Set) paste() (any, error) {
	cb := s.clipboard
	report, err := format.Materialize(cb.doc, s.wb.CurrentSpace(),
		format.AsFragment(0, PasteOffset), format.WithLogger(s.logger))
	if err != nil {
		return nil, err
	}

	bad := make(map[string]bool, len(report.BadNodes))
	for _, b := range report.BadNodes {
		bad[b.GUID] = true
	}
	i := 0
	for _, rec := range cb.doc.Elements.Nodes {
		if bad[rec.GUID] {
			continue
		}
		n := report.Nodes[i]
		i++
		if v, ok := cb.values[rec.GUID]; ok {
			if err := n.SetValue(v); err != nil {
				s.logger.Warn("could not copy value on paste", "node", n.ID, "err", err)
			}
		}
	}
	return report.Nodes, nil
}
