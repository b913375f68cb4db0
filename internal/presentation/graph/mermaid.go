package graph

import (
	"fmt"
	"strings"

	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/google/uuid"
)

// Overlay contains run state to visualize on the graph.
type Overlay struct {
	Evaluated []uuid.UUID
	Failed    []uuid.UUID
	Blocked   []uuid.UUID
}

// OverlayFrom builds the overlay of a finished run.
func OverlayFrom(r *runtime.RunResult) *Overlay {
	if r == nil {
		return nil
	}
	o := &Overlay{Evaluated: r.Evaluated, Blocked: r.Blocked}
	for _, e := range r.Errors {
		o.Failed = append(o.Failed, e.NodeID)
	}
	return o
}

// GenerateMermaid produces a Mermaid flowchart of g, left to right.
// It applies semantic styling:
// - Input: [/Parallelogram/]
// - Output: [\Parallelogram\]
// - Custom node instance: [[Subroutine]]
// - Literal: (Rounded)
// - Default: [Rectangle]
// Feedback connectors are dotted.
func GenerateMermaid(g *domain.Graph, overlay *Overlay) string {
	var sb strings.Builder
	sb.WriteString("graph LR\n")

	for _, n := range g.Nodes() {
		opener, closer := shape(n)
		fmt.Fprintf(&sb, "    %s%s\"%s\"%s\n", mermaidID(n.ID), opener, label(n), closer)
	}

	for _, c := range g.Connectors() {
		src, dst := c.Source, c.Destination
		arrow := "-->"
		if c.IsFeedback() {
			arrow = "-.->"
		}
		if src.Name != "" || dst.Name != "" {
			edge := strings.ReplaceAll(src.Name+" → "+dst.Name, "\"", "'")
			arrow = fmt.Sprintf("-- \"%s\" -->", edge)
			if c.IsFeedback() {
				arrow = fmt.Sprintf("-. \"%s\" .->", edge)
			}
		}
		fmt.Fprintf(&sb, "    %s %s %s\n", mermaidID(src.Owner().ID), arrow, mermaidID(dst.Owner().ID))
	}

	if overlay != nil {
		sb.WriteString("\n    %% Overlay Styles\n")
		sb.WriteString("    classDef evaluated fill:#e1f5fe,stroke:#01579b,stroke-width:2px,color:#000;\n")
		sb.WriteString("    classDef blocked fill:#eeeeee,stroke:#9e9e9e,stroke-dasharray:4,color:#000;\n")
		sb.WriteString("    classDef failed fill:#ffcdd2,stroke:#b71c1c,stroke-width:4px,color:#000;\n")
		writeClass(&sb, "evaluated", overlay.Evaluated)
		writeClass(&sb, "blocked", overlay.Blocked)
		writeClass(&sb, "failed", overlay.Failed)
	}

	return sb.String()
}

func shape(n *domain.Node) (string, string) {
	if _, ok := n.Behavior.(domain.FunctionInstance); ok {
		return "[[", "]]"
	}
	switch n.Kind {
	case kinds.Input:
		return "[/", "/]"
	case kinds.Output:
		return "[\\", "\\]"
	case kinds.Number, kinds.String, kinds.Boolean:
		return "(", ")"
	}
	return "[", "]"
}

func label(n *domain.Node) string {
	name := n.NickName
	if name == "" {
		name = n.Kind
	}
	name = strings.ReplaceAll(name, "\"", "'")
	if v, ok := n.Output(0); ok && n.Status() == domain.StatusClean {
		preview := strings.ReplaceAll(fmt.Sprint(v), "\"", "'")
		if len(preview) > 24 {
			preview = preview[:21] + "..."
		}
		return name + " <br/> " + preview
	}
	return name
}

func writeClass(sb *strings.Builder, class string, ids []uuid.UUID) {
	seen := make(map[uuid.UUID]bool)
	for _, id := range ids {
		if seen[id] {
			continue
		}
		seen[id] = true
		fmt.Fprintf(sb, "    class %s %s;\n", mermaidID(id), class)
	}
}

// mermaidID turns a node id into a Mermaid identifier.
func mermaidID(id uuid.UUID) string {
	return "n" + strings.ReplaceAll(id.String(), "-", "")
}
