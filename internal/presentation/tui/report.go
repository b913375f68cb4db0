package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/aretw0/dynamo/internal/dto"
	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/domain"
)

// RunReport renders the outcome of a run over g as Markdown: a summary,
// a table of node values and the errors raised.
func RunReport(g *domain.Graph, res *runtime.RunResult) string {
	var sb strings.Builder
	name := g.Name
	if name == "" {
		name = "Home"
	}
	fmt.Fprintf(&sb, "# %s\n\n", name)

	if res != nil {
		status := "completed"
		switch {
		case res.Cancelled:
			status = "cancelled"
		case res.Failed():
			status = "failed"
		}
		fmt.Fprintf(&sb, "Run **%s** in %s: %d evaluated, %d skipped, %d blocked",
			status, res.Duration.Round(time.Microsecond), len(res.Evaluated), len(res.Skipped), len(res.Blocked))
		if len(res.Pending) > 0 {
			fmt.Fprintf(&sb, ", %d pending", len(res.Pending))
		}
		sb.WriteString(".\n\n")
	}

	sb.WriteString("| Node | Kind | Status | Value |\n")
	sb.WriteString("|---|---|---|---|\n")
	for _, n := range g.Nodes() {
		fmt.Fprintf(&sb, "| %s | %s | %s | %s |\n",
			cell(n.NickName), cell(n.Kind), n.Status(), cell(value(n)))
	}

	if res != nil && len(res.Errors) > 0 {
		sb.WriteString("\n## Errors\n\n")
		for _, e := range res.Errors {
			fmt.Fprintf(&sb, "- `%s` (%s): %v\n", e.NodeID, e.Kind, e.Cause)
		}
	}
	return sb.String()
}

func value(n *domain.Node) string {
	if err := n.Err(); err != nil {
		return "error"
	}
	outs, ok := n.Result()
	if !ok {
		return ""
	}
	parts := make([]string, len(outs))
	for i, v := range outs {
		parts[i] = fmt.Sprint(dto.Value(v))
	}
	return strings.Join(parts, ", ")
}

func cell(s string) string {
	return strings.ReplaceAll(s, "|", `\|`)
}
