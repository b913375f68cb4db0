package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/internal/dto"
	"github.com/aretw0/dynamo/internal/presentation/tui"
	"github.com/aretw0/dynamo/pkg/format"
)

// ErrRunFailed is returned when at least one node failed to evaluate.
var ErrRunFailed = errors.New("run failed")

// RunOptions contains all the configuration for the run command.
type RunOptions struct {
	Options
	// Path is the workspace document to open.
	Path string
	// JSON prints the outcome as a JSON object instead of a report.
	JSON bool
	// Renderer renders the Markdown report; nil prints it as is.
	Renderer tui.Renderer
}

// Outcome is the JSON form of a run.
type Outcome struct {
	Load      dto.LoadReport `json:"load"`
	Run       dto.RunResult  `json:"run"`
	Workspace dto.Workspace  `json:"workspace"`
}

// Run opens the workspace at opts.Path, evaluates it once and writes the
// outcome to w.
func Run(ctx context.Context, w io.Writer, opts RunOptions) error {
	wb, closeStore, err := NewWorkbench(opts.Options)
	if err != nil {
		return err
	}
	defer func() { _ = closeStore() }()

	if _, err := wb.LoadDefinitions(ctx); err != nil {
		return fmt.Errorf("error loading custom nodes: %w", err)
	}
	return runOnce(ctx, wb, w, opts)
}

func runOnce(ctx context.Context, wb *dynamo.Workbench, w io.Writer, opts RunOptions) error {
	report, err := wb.Open(ctx, opts.Path)
	if err != nil {
		return err
	}
	return rerun(ctx, wb, w, report, opts)
}

// rerun evaluates Home again and prints the outcome. report is nil when
// nothing was reloaded.
func rerun(ctx context.Context, wb *dynamo.Workbench, w io.Writer, report *format.LoadReport, opts RunOptions) error {
	res, err := wb.RunExpression(ctx, opts.Debug)
	if err != nil {
		return err
	}

	if opts.JSON {
		out := Outcome{Run: dto.FromRunResult(res), Workspace: dto.FromGraph(wb.Home())}
		if report != nil {
			out.Load = dto.FromLoadReport(report)
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(out); err != nil {
			return err
		}
	} else {
		render := opts.Renderer
		if render == nil {
			render = tui.Plain
		}
		md, err := render(tui.RunReport(wb.Home(), res))
		if err != nil {
			return err
		}
		fmt.Fprint(w, md)
	}

	if res.Failed() {
		return fmt.Errorf("%w: %w", ErrRunFailed, res.Err())
	}
	return nil
}
