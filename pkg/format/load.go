package format

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

// BadNode is a node record that could not be instantiated.
type BadNode struct {
	GUID string
	Type string
	Err  error
}

// DroppedConnector is a connector record that could not be restored.
type DroppedConnector struct {
	Record ConnectorRecord
	Reason string
}

// LoadReport lists everything the loader skipped or repaired.
type LoadReport struct {
	Nodes        []*domain.Node
	BadNodes     []BadNode
	Dropped      []DroppedConnector
	Warnings     []string
	Dependencies []uuid.UUID
}

// Clean reports whether the document loaded without skips or repairs.
func (r *LoadReport) Clean() bool {
	return len(r.BadNodes) == 0 && len(r.Dropped) == 0 && len(r.Warnings) == 0
}

// LoadOption configures Materialize.
type LoadOption func(*loader)

// WithLogger sets the logger receiving skip and repair messages.
func WithLogger(logger *slog.Logger) LoadOption {
	return func(l *loader) {
		l.logger = logger
	}
}

// AsFragment inserts the document into an existing graph: every node gets a
// fresh id, positions are shifted by (dx, dy) and the workspace attributes of
// the target are left alone.
func AsFragment(dx, dy float64) LoadOption {
	return func(l *loader) {
		l.fragment = true
		l.dx, l.dy = dx, dy
	}
}

type loader struct {
	logger   *slog.Logger
	fragment bool
	dx, dy   float64

	g      *domain.Graph
	report *LoadReport
	byGUID map[string]*domain.Node
	bad    map[string]bool
	deps   map[uuid.UUID]bool
}

// Materialize instantiates doc into g through the resolver of g.
//
// Unresolvable node types are skipped and reported, along with every
// connector touching them. Zero, malformed and duplicate node ids are
// replaced. Nodes do not report while loading; once done every loaded node
// is marked dirty.
func Materialize(doc *Document, g *domain.Graph, opts ...LoadOption) (*LoadReport, error) {
	if doc == nil {
		return nil, errors.New("no document to load")
	}
	l := &loader{
		logger: logging.NewNop(),
		g:      g,
		report: &LoadReport{},
		byGUID: make(map[string]*domain.Node),
		bad:    make(map[string]bool),
		deps:   make(map[uuid.UUID]bool),
	}
	for _, opt := range opts {
		opt(l)
	}

	if !l.fragment {
		g.X, g.Y = doc.X, doc.Y
		if doc.IsCustom() {
			g.Kind = domain.GraphCustom
			g.Name = doc.Name
			g.Category = doc.Category
			g.ID = DefinitionID(doc)
		}
	}

	for _, rec := range doc.Elements.Nodes {
		l.node(rec)
	}
	for _, rec := range doc.Connectors.Items {
		l.connector(rec)
	}
	for _, rec := range doc.Notes.Items {
		g.AddNote(rec.Text, rec.X+l.dx, rec.Y+l.dy)
	}

	for _, n := range l.report.Nodes {
		n.SetReporting(true)
	}
	for _, n := range l.report.Nodes {
		n.Invalidate()
	}
	if !l.fragment {
		g.HasUnsavedChanges = false
	}

	l.logger.Debug("workspace materialized",
		"workspace", g.Name,
		"nodes", len(l.report.Nodes),
		"bad_nodes", len(l.report.BadNodes),
		"dropped_connectors", len(l.report.Dropped))
	return l.report, nil
}

func (l *loader) node(rec NodeRecord) {
	id, err := uuid.Parse(rec.GUID)
	switch {
	case l.fragment:
		id = uuid.New()
	case err != nil || id == uuid.Nil:
		id = uuid.New()
		l.warn("node has an invalid guid, assigned a new one", "guid", rec.GUID, "type", rec.Type, "new_guid", id)
	default:
		if _, dup := l.g.Node(id); dup {
			id = uuid.New()
			l.warn("duplicate node guid, assigned a new one", "guid", rec.GUID, "type", rec.Type, "new_guid", id)
		}
	}

	params := rec.ParamMap()
	n, err := l.g.AddNode(rec.Type, id, rec.X+l.dx, rec.Y+l.dy)
	if errors.Is(err, domain.ErrUnknownNodeKind) {
		// Instances persisted under their definition id.
		if sym, perr := uuid.Parse(rec.Type); perr == nil {
			params["symbol"] = sym.String()
			n, err = l.g.AddNode(domain.KindFunction, id, rec.X+l.dx, rec.Y+l.dy)
		}
	}
	if err != nil {
		l.bad[rec.GUID] = true
		l.report.BadNodes = append(l.report.BadNodes, BadNode{GUID: rec.GUID, Type: rec.Type, Err: err})
		l.logger.Warn("could not load node, loading continues without it", "guid", rec.GUID, "type", rec.Type, "err", err)
		return
	}
	n.SetReporting(false)
	l.report.Nodes = append(l.report.Nodes, n)

	if rec.NickName != "" {
		n.NickName = rec.NickName
	}
	if rec.Lacing != "" {
		lacing, err := domain.ParseLacing(rec.Lacing)
		if err != nil {
			l.warn("ignoring lacing", "guid", rec.GUID, "err", err)
		}
		n.Lacing = lacing
	}
	if c, ok := n.Behavior.(domain.Configurable); ok {
		if err := c.Configure(n, params); err != nil {
			l.warn("node parameters rejected", "guid", rec.GUID, "type", rec.Type, "err", err)
		}
		if err := l.g.RefreshPorts(n); err != nil {
			l.warn("failed to refresh ports", "guid", rec.GUID, "err", err)
		}
	}
	if fi, ok := n.Behavior.(domain.FunctionInstance); ok && !l.deps[fi.DefinitionID()] {
		l.deps[fi.DefinitionID()] = true
		l.report.Dependencies = append(l.report.Dependencies, fi.DefinitionID())
	}

	if parsed, err := uuid.Parse(rec.GUID); err == nil && parsed != uuid.Nil {
		if _, seen := l.byGUID[rec.GUID]; !seen {
			l.byGUID[rec.GUID] = n
		}
	}
}

func (l *loader) connector(rec ConnectorRecord) {
	if l.bad[rec.Start] || l.bad[rec.End] {
		l.drop(rec, "connector touches a node that failed to load")
		return
	}
	start, ok := l.byGUID[rec.Start]
	if !ok {
		l.drop(rec, fmt.Sprintf("unknown start node %q", rec.Start))
		return
	}
	end, ok := l.byGUID[rec.End]
	if !ok {
		l.drop(rec, fmt.Sprintf("unknown end node %q", rec.End))
		return
	}

	if rec.StartIndex == InvalidIndex || rec.EndIndex == InvalidIndex {
		l.drop(rec, "malformed port index")
		return
	}

	var dir domain.PortDirection
	switch rec.PortType {
	case PortTypeInput:
		dir = domain.PortInput
	case PortTypeState:
		dir = domain.PortState
	default:
		l.drop(rec, fmt.Sprintf("unknown port type %d", rec.PortType))
		return
	}

	src, err := start.Port(domain.PortOutput, rec.StartIndex)
	if err != nil {
		l.drop(rec, err.Error())
		return
	}
	dst, err := end.Port(dir, rec.EndIndex)
	if err != nil {
		l.drop(rec, err.Error())
		return
	}
	if _, err := l.g.ConnectDirect(src, dst); err != nil {
		l.drop(rec, err.Error())
	}
}

func (l *loader) drop(rec ConnectorRecord, reason string) {
	l.report.Dropped = append(l.report.Dropped, DroppedConnector{Record: rec, Reason: reason})
	l.logger.Warn("dropping connector", "start", rec.Start, "start_index", rec.StartIndex,
		"end", rec.End, "end_index", rec.EndIndex, "reason", reason)
}

func (l *loader) warn(msg string, args ...any) {
	l.report.Warnings = append(l.report.Warnings, msg)
	l.logger.Warn(msg, args...)
}

// DefinitionID returns the id of a custom node document: its ID attribute,
// or the id derived from its name when the attribute is missing or invalid.
func DefinitionID(doc *Document) uuid.UUID {
	if id, err := uuid.Parse(doc.ID); err == nil && id != uuid.Nil {
		return id
	}
	return customnode.DeterministicID(doc.Name)
}

// BuildDefinition materializes a custom node document into a new graph
// resolving kinds through resolver. The report lists the definitions it
// depends on.
func BuildDefinition(doc *Document, resolver domain.Resolver, opts ...LoadOption) (*customnode.Definition, *LoadReport, error) {
	if !doc.IsCustom() {
		return nil, nil, errors.New("document is not a custom node: missing Name")
	}
	g := domain.NewGraph(domain.GraphCustom, doc.Name, resolver)
	report, err := Materialize(doc, g, opts...)
	if err != nil {
		return nil, nil, err
	}
	def := customnode.NewDefinition(DefinitionID(doc), doc.Name, doc.Category, g)
	g.HasUnsavedChanges = false
	return def, report, nil
}
