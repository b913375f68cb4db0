package commands

import (
	"context"
	"errors"
	"fmt"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

type createNodeParams struct {
	Kind     string            `mapstructure:"kind"`
	ID       string            `mapstructure:"id"`
	X        float64           `mapstructure:"x"`
	Y        float64           `mapstructure:"y"`
	NickName string            `mapstructure:"nickname"`
	Params   map[string]string `mapstructure:"params"`
}

type createConnectionParams struct {
	Start      string `mapstructure:"start"`
	StartIndex int    `mapstructure:"start_index"`
	End        string `mapstructure:"end"`
	EndIndex   int    `mapstructure:"end_index"`
	PortType   int    `mapstructure:"port_type"`
}

type deleteParams struct {
	Nodes      []string `mapstructure:"nodes"`
	Notes      []string `mapstructure:"notes"`
	Connectors []string `mapstructure:"connectors"`
}

type addNoteParams struct {
	Text string  `mapstructure:"text"`
	X    float64 `mapstructure:"x"`
	Y    float64 `mapstructure:"y"`
}

type setValueParams struct {
	Node  string `mapstructure:"node"`
	Value any    `mapstructure:"value"`
}

type workspaceParams struct {
	ID string `mapstructure:"id"`
}

// node looks id up in the current space.
func (s *Set) node(id string) (*domain.Node, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("node id %q: %w", id, err)
	}
	n, ok := s.wb.CurrentSpace().Node(parsed)
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrNodeNotFound, id)
	}
	return n, nil
}

func (s *Set) hasNode(id string) bool {
	_, err := s.node(id)
	return err == nil
}

func (s *Set) registerWorkspace() {
	s.add(CreateNode, true,
		decodes(func(p createNodeParams) bool { return p.Kind != "" }),
		typed(s.createNode))

	s.add(CreateConnection, true,
		decodes(func(p createConnectionParams) bool { return s.hasNode(p.Start) && s.hasNode(p.End) }),
		typed(s.createConnection))

	s.add(Delete, true,
		decodes(func(p deleteParams) bool { return len(p.Nodes)+len(p.Notes)+len(p.Connectors) > 0 }),
		typed(s.delete))

	s.add(AddNote, true, decodes[addNoteParams](nil), typed(func(_ context.Context, p addNoteParams) (any, error) {
		text := p.Text
		if text == "" {
			text = domain.DefaultNoteText
		}
		return s.wb.CurrentSpace().AddNote(text, p.X, p.Y), nil
	}))

	s.add(SetValue, true,
		decodes(func(p setValueParams) bool {
			n, err := s.node(p.Node)
			if err != nil {
				return false
			}
			_, ok := n.Behavior.(domain.SettableValue)
			return ok
		}),
		typed(func(_ context.Context, p setValueParams) (any, error) {
			n, err := s.node(p.Node)
			if err != nil {
				return nil, err
			}
			return n, n.SetValue(p.Value)
		}))

	s.add(Clear, true, nil, func(context.Context, Params) (any, error) {
		return nil, s.wb.Clear()
	})

	s.add(GoHome, false, nil, func(context.Context, Params) (any, error) {
		s.wb.ViewHome()
		return s.wb.Home(), nil
	})

	s.add(GoToWorkspace, false,
		decodes(func(p workspaceParams) bool {
			id, err := uuid.Parse(p.ID)
			if err != nil {
				return false
			}
			_, ok := s.wb.Registry().Get(id)
			return ok
		}),
		typed(func(_ context.Context, p workspaceParams) (any, error) {
			id, err := uuid.Parse(p.ID)
			if err != nil {
				return nil, err
			}
			if err := s.wb.ViewCustomNode(id); err != nil {
				return nil, err
			}
			return s.wb.CurrentSpace(), nil
		}))
}

func (s *Set) createNode(_ context.Context, p createNodeParams) (any, error) {
	id := uuid.Nil
	if p.ID != "" {
		parsed, err := uuid.Parse(p.ID)
		if err != nil {
			return nil, fmt.Errorf("node id %q: %w", p.ID, err)
		}
		id = parsed
	}
	g := s.wb.CurrentSpace()
	n, err := g.AddNode(p.Kind, id, p.X, p.Y)
	if err != nil {
		return nil, err
	}
	if p.NickName != "" {
		n.NickName = p.NickName
	}
	if len(p.Params) > 0 {
		c, ok := n.Behavior.(domain.Configurable)
		if !ok {
			_ = g.RemoveNode(n)
			return nil, fmt.Errorf("node kind %s takes no parameters", n.Kind)
		}
		if err := c.Configure(n, p.Params); err != nil {
			_ = g.RemoveNode(n)
			return nil, err
		}
		if err := g.RefreshPorts(n); err != nil {
			return nil, err
		}
	}
	return n, nil
}

// createConnection replaces any connector already feeding the destination.
func (s *Set) createConnection(_ context.Context, p createConnectionParams) (any, error) {
	start, err := s.node(p.Start)
	if err != nil {
		return nil, err
	}
	end, err := s.node(p.End)
	if err != nil {
		return nil, err
	}
	dir := domain.PortInput
	if p.PortType == 1 {
		dir = domain.PortState
	}
	src, err := start.Port(domain.PortOutput, p.StartIndex)
	if err != nil {
		return nil, err
	}
	dst, err := end.Port(dir, p.EndIndex)
	if err != nil {
		return nil, err
	}

	return s.wb.CurrentSpace().Replace(src, dst)
}

// delete removes connectors first, then nodes and notes. Ids that are not
// present are reported together after everything else was removed.
func (s *Set) delete(_ context.Context, p deleteParams) (any, error) {
	g := s.wb.CurrentSpace()
	var errs []error
	removed := 0

	for _, id := range p.Connectors {
		found := false
		for _, c := range g.Connectors() {
			if c.ID.String() == id {
				found = true
				if err := g.Disconnect(c); err != nil {
					errs = append(errs, err)
				} else {
					removed++
				}
				break
			}
		}
		if !found {
			errs = append(errs, fmt.Errorf("connector %s not found", id))
		}
	}
	for _, id := range p.Nodes {
		n, err := s.node(id)
		if err == nil {
			err = g.RemoveNode(n)
		}
		if err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}
	for _, id := range p.Notes {
		parsed, err := uuid.Parse(id)
		if err == nil {
			err = g.RemoveNote(parsed)
		}
		if err != nil {
			errs = append(errs, fmt.Errorf("note %s: %w", id, err))
			continue
		}
		removed++
	}
	return removed, errors.Join(errs...)
}
