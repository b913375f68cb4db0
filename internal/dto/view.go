// Package dto holds the JSON views of workbench objects shared by the HTTP
// and MCP servers.
package dto

import (
	"fmt"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/google/uuid"
)

// Port is one port of a node.
type Port struct {
	Index     int    `json:"index"`
	Name      string `json:"name"`
	Connected bool   `json:"connected"`
}

// Node is a node with its evaluation state.
type Node struct {
	ID       string  `json:"id"`
	Kind     string  `json:"kind"`
	NickName string  `json:"nickname"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Lacing   string  `json:"lacing"`
	Status   string  `json:"status"`
	Inputs   []Port  `json:"inputs,omitempty"`
	Outputs  []Port  `json:"outputs,omitempty"`
	States   []Port  `json:"states,omitempty"`
	Value    any     `json:"value,omitempty"`
	Result   []any   `json:"result,omitempty"`
	Error    string  `json:"error,omitempty"`
}

// Connector is one edge.
type Connector struct {
	ID         string `json:"id"`
	Start      string `json:"start"`
	StartIndex int    `json:"start_index"`
	End        string `json:"end"`
	EndIndex   int    `json:"end_index"`
	PortType   int    `json:"port_type"`
}

// Note is a workspace annotation.
type Note struct {
	ID   string  `json:"id"`
	Text string  `json:"text"`
	X    float64 `json:"x"`
	Y    float64 `json:"y"`
}

// Workspace is a whole graph.
type Workspace struct {
	Kind       string      `json:"kind"`
	Name       string      `json:"name"`
	Category   string      `json:"category,omitempty"`
	ID         string      `json:"id,omitempty"`
	FilePath   string      `json:"file_path,omitempty"`
	Unsaved    bool        `json:"unsaved"`
	Nodes      []Node      `json:"nodes"`
	Connectors []Connector `json:"connectors"`
	Notes      []Note      `json:"notes"`
}

// NodeError is a failed evaluation.
type NodeError struct {
	Node  string `json:"node"`
	Kind  string `json:"kind"`
	Error string `json:"error"`
}

// RunResult summarizes a run.
type RunResult struct {
	RunID      string      `json:"run_id"`
	Workspace  string      `json:"workspace"`
	Evaluated  []string    `json:"evaluated"`
	Skipped    []string    `json:"skipped,omitempty"`
	Blocked    []string    `json:"blocked,omitempty"`
	Pending    []string    `json:"pending,omitempty"`
	Errors     []NodeError `json:"errors,omitempty"`
	Cancelled  bool        `json:"cancelled"`
	DurationMS float64     `json:"duration_ms"`
}

// Definition is a custom node signature.
type Definition struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Category string   `json:"category,omitempty"`
	Inputs   []string `json:"inputs"`
	Outputs  []string `json:"outputs"`
	FilePath string   `json:"file_path,omitempty"`
}

// LoadReport lists what an open skipped or repaired.
type LoadReport struct {
	Nodes        int      `json:"nodes"`
	BadNodes     []string `json:"bad_nodes,omitempty"`
	Dropped      []string `json:"dropped_connectors,omitempty"`
	Warnings     []string `json:"warnings,omitempty"`
	Dependencies []string `json:"dependencies,omitempty"`
}

// Event is a graph mutation notification.
type Event struct {
	Type      string `json:"type"`
	Workspace string `json:"workspace"`
	Node      string `json:"node,omitempty"`
	Connector string `json:"connector,omitempty"`
	Note      string `json:"note,omitempty"`
}

// FromNode builds the view of n.
func FromNode(n *domain.Node) Node {
	v := Node{
		ID:       n.ID.String(),
		Kind:     n.Kind,
		NickName: n.NickName,
		X:        n.X,
		Y:        n.Y,
		Lacing:   string(n.Lacing),
		Status:   string(n.Status()),
		Inputs:   ports(n.Inputs),
		Outputs:  ports(n.Outputs),
		States:   ports(n.States),
	}
	if sv, ok := n.Behavior.(domain.SettableValue); ok {
		v.Value = Value(sv.Value())
	}
	if out, ok := n.Result(); ok {
		v.Result = make([]any, len(out))
		for i, o := range out {
			v.Result[i] = Value(o)
		}
	}
	if err := n.Err(); err != nil {
		v.Error = err.Error()
	}
	return v
}

func ports(ps []*domain.Port) []Port {
	out := make([]Port, len(ps))
	for i, p := range ps {
		out[i] = Port{Index: p.Index, Name: p.Name, Connected: p.IsConnected()}
	}
	return out
}

// FromConnector builds the view of c.
func FromConnector(c *domain.Connector) Connector {
	portType := format.PortTypeInput
	if c.IsFeedback() {
		portType = format.PortTypeState
	}
	return Connector{
		ID:         c.ID.String(),
		Start:      c.Source.Owner().ID.String(),
		StartIndex: c.Source.Index,
		End:        c.Destination.Owner().ID.String(),
		EndIndex:   c.Destination.Index,
		PortType:   portType,
	}
}

// FromNote builds the view of n.
func FromNote(n *domain.Note) Note {
	return Note{ID: n.ID.String(), Text: n.Text, X: n.X, Y: n.Y}
}

// FromGraph builds the view of g.
func FromGraph(g *domain.Graph) Workspace {
	w := Workspace{
		Kind:       string(g.Kind),
		Name:       g.Name,
		Category:   g.Category,
		FilePath:   g.FilePath,
		Unsaved:    g.HasUnsavedChanges,
		Nodes:      []Node{},
		Connectors: []Connector{},
		Notes:      []Note{},
	}
	if g.ID != uuid.Nil {
		w.ID = g.ID.String()
	}
	for _, n := range g.Nodes() {
		w.Nodes = append(w.Nodes, FromNode(n))
	}
	for _, c := range g.Connectors() {
		w.Connectors = append(w.Connectors, FromConnector(c))
	}
	for _, n := range g.Notes() {
		w.Notes = append(w.Notes, FromNote(n))
	}
	return w
}

// FromRunResult builds the view of r.
func FromRunResult(r *runtime.RunResult) RunResult {
	v := RunResult{
		RunID:      r.RunID,
		Workspace:  r.Workspace,
		Evaluated:  ids(r.Evaluated),
		Skipped:    ids(r.Skipped),
		Blocked:    ids(r.Blocked),
		Pending:    ids(r.Pending),
		Cancelled:  r.Cancelled,
		DurationMS: float64(r.Duration.Microseconds()) / 1000,
	}
	for _, e := range r.Errors {
		v.Errors = append(v.Errors, NodeError{Node: e.NodeID.String(), Kind: e.Kind, Error: e.Cause.Error()})
	}
	return v
}

// FromDefinition builds the view of d.
func FromDefinition(d *customnode.Definition) Definition {
	return Definition{
		ID:       d.ID.String(),
		Name:     d.Name,
		Category: d.Category,
		Inputs:   append([]string{}, d.InputNames...),
		Outputs:  append([]string{}, d.OutputNames...),
		FilePath: d.Graph.FilePath,
	}
}

// FromLoadReport builds the view of r.
func FromLoadReport(r *format.LoadReport) LoadReport {
	v := LoadReport{Nodes: len(r.Nodes), Warnings: r.Warnings, Dependencies: ids(r.Dependencies)}
	for _, b := range r.BadNodes {
		v.BadNodes = append(v.BadNodes, fmt.Sprintf("%s (%s): %v", b.GUID, b.Type, b.Err))
	}
	for _, d := range r.Dropped {
		v.Dropped = append(v.Dropped, fmt.Sprintf("%s[%d] -> %s[%d]: %s",
			d.Record.Start, d.Record.StartIndex, d.Record.End, d.Record.EndIndex, d.Reason))
	}
	return v
}

// FromEvent builds the view of e.
func FromEvent(e domain.GraphEvent) Event {
	v := Event{Type: string(e.Type)}
	if e.Graph != nil {
		v.Workspace = e.Graph.Name
	}
	if e.Node != nil {
		v.Node = e.Node.ID.String()
	}
	if e.Connector != nil {
		v.Connector = e.Connector.ID.String()
	}
	if e.Note != nil {
		v.Note = e.Note.ID.String()
	}
	return v
}

// Result converts a command result into its view. Values without a view
// are returned unchanged.
func Result(v any) any {
	switch r := v.(type) {
	case *domain.Node:
		return FromNode(r)
	case []*domain.Node:
		out := make([]Node, len(r))
		for i, n := range r {
			out[i] = FromNode(n)
		}
		return out
	case *domain.Connector:
		return FromConnector(r)
	case *domain.Note:
		return FromNote(r)
	case *domain.Graph:
		return FromGraph(r)
	case *runtime.RunResult:
		return FromRunResult(r)
	case *customnode.Definition:
		return FromDefinition(r)
	case *format.LoadReport:
		return FromLoadReport(r)
	default:
		return v
	}
}

// Value makes a node value JSON-safe: functions become a placeholder and
// lists are converted element-wise.
func Value(v domain.Value) any {
	switch t := v.(type) {
	case nil, bool, float64, string:
		return t
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case domain.Function:
		return "<function>"
	default:
		return fmt.Sprint(t)
	}
}

func ids(in []uuid.UUID) []string {
	if len(in) == 0 {
		return nil
	}
	out := make([]string, len(in))
	for i, id := range in {
		out[i] = id.String()
	}
	return out
}
