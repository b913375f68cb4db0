package runtime

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/google/uuid"
)

// RunOptions controls a single run.
type RunOptions struct {
	// Debug logs every evaluation at info level and records a trace.
	Debug bool
	// Dynamic runs poll the cancellation flag between node evaluations.
	Dynamic bool
}

// TraceEntry records one evaluation of a debug run.
type TraceEntry struct {
	NodeID  uuid.UUID
	Kind    string
	Args    []domain.Value
	Outputs []domain.Value
	Err     error
}

// RunResult summarizes a run. A run with evaluation errors still returns a
// result; only aborts (cycles, concurrent runs) are returned as errors.
type RunResult struct {
	RunID     string
	Workspace string
	Evaluated []uuid.UUID
	Skipped   []uuid.UUID
	Blocked   []uuid.UUID
	Pending   []uuid.UUID
	// Errors lists the nodes in error after the run, including failures
	// kept from earlier runs.
	Errors    []*domain.NodeEvaluationError
	Cancelled bool
	Duration  time.Duration
	Trace     []TraceEntry
}

// Failed reports whether any node failed.
func (r *RunResult) Failed() bool {
	return len(r.Errors) > 0
}

// Completed reports whether every node is clean after the run.
func (r *RunResult) Completed() bool {
	return !r.Cancelled && len(r.Errors) == 0 && len(r.Blocked) == 0
}

// Err joins the node evaluation errors, or returns nil.
func (r *RunResult) Err() error {
	if len(r.Errors) == 0 {
		return nil
	}
	errs := make([]error, len(r.Errors))
	for i, e := range r.Errors {
		errs[i] = e
	}
	return errors.Join(errs...)
}

// Run evaluates every dirty node of g in dependency order.
func (e *Engine) Run(ctx context.Context, g *domain.Graph, opts RunOptions) (*RunResult, error) {
	if !e.running.CompareAndSwap(false, true) {
		return nil, ErrRunInProgress
	}
	defer e.running.Store(false)
	e.cancelled.Store(false)

	nodes := g.Nodes()
	order, err := topoOrder(nodes)
	if err != nil {
		e.logger.Error("run aborted", "workspace", g.Name, "err", err)
		return nil, fmt.Errorf("run %q: %w", g.Name, err)
	}

	res := &RunResult{RunID: uuid.NewString(), Workspace: g.Name}
	start := time.Now()
	e.emitRun(ctx, e.hooks.OnRunStart, domain.EventRunStart, res, 0, nil)

	for i, n := range order {
		if e.shouldStop(ctx, opts.Dynamic) {
			res.Cancelled = true
			for _, rest := range order[i:] {
				if rest.IsDirty() {
					res.Pending = append(res.Pending, rest.ID)
				}
			}
			e.logger.Info("run cancelled", "workspace", g.Name, "pending", len(res.Pending))
			break
		}
		if !n.IsDirty() {
			if n.Status() == domain.StatusError {
				res.Errors = append(res.Errors, carriedError(n))
			}
			continue
		}
		if blockedBy(n) {
			res.Blocked = append(res.Blocked, n.ID)
			continue
		}
		if e.shortCircuit && canSkip(n) {
			n.SetClean()
			res.Skipped = append(res.Skipped, n.ID)
			continue
		}
		e.evaluate(ctx, n, opts, res)
	}

	res.Duration = time.Since(start)
	e.emitRun(ctx, e.hooks.OnRunFinish, domain.EventRunFinish, res, res.Duration, res.Err())
	e.logger.Info("run finished",
		"workspace", g.Name,
		"evaluated", len(res.Evaluated),
		"failed", len(res.Errors),
		"blocked", len(res.Blocked),
		"cancelled", res.Cancelled,
		"duration", res.Duration)
	return res, nil
}

// blockedBy reports whether an upstream node of n has no usable value.
func blockedBy(n *domain.Node) bool {
	for _, p := range n.Inputs {
		if c := p.Incoming(); c != nil && c.Source.Owner().Status() != domain.StatusClean {
			return true
		}
	}
	return false
}

// canSkip reports whether a node dirtied only by propagation still holds a
// result computed from the current upstream outputs.
func canSkip(n *domain.Node) bool {
	if n.SelfDirty() {
		return false
	}
	for _, p := range n.States {
		if p.IsConnected() {
			return false
		}
	}
	return n.UpToDate()
}

// carriedError returns the failure of a node that stayed in error since an
// earlier run.
func carriedError(n *domain.Node) *domain.NodeEvaluationError {
	var evalErr *domain.NodeEvaluationError
	if errors.As(n.Err(), &evalErr) {
		return evalErr
	}
	return &domain.NodeEvaluationError{NodeID: n.ID, Kind: n.Kind, Cause: n.Err()}
}

func (e *Engine) evaluate(ctx context.Context, n *domain.Node, opts RunOptions, res *RunResult) {
	args := gatherArgs(n, func(src *domain.Node, index int) (domain.Value, bool) {
		return src.Output(index)
	})

	n.SetEvaluating()
	e.emitNode(ctx, e.hooks.OnNodeEnter, domain.EventNodeEnter, res.RunID, n, 0, nil)
	started := time.Now()

	outputs, err := e.apply(ctx, n, args)
	elapsed := time.Since(started)

	if opts.Debug {
		res.Trace = append(res.Trace, TraceEntry{NodeID: n.ID, Kind: n.Kind, Args: args, Outputs: outputs, Err: err})
		e.logger.Info("evaluated node", "node", n.ID, "kind", n.Kind, "args", args, "outputs", outputs, "err", err)
	}

	if err != nil {
		evalErr := &domain.NodeEvaluationError{NodeID: n.ID, Kind: n.Kind, Cause: err}
		n.SetError(evalErr)
		res.Errors = append(res.Errors, evalErr)
		e.logger.Error("node evaluation failed", "node", n.ID, "kind", n.Kind, "nickname", n.NickName, "err", err)
		e.emitNode(ctx, e.hooks.OnNodeError, domain.EventNodeFailed, res.RunID, n, elapsed, evalErr)
		return
	}

	changed := n.SetResult(outputs)
	res.Evaluated = append(res.Evaluated, n.ID)
	e.logger.Debug("node evaluated", "node", n.ID, "kind", n.Kind, "changed", changed, "duration", elapsed)
	e.emitNode(ctx, e.hooks.OnNodeLeave, domain.EventNodeLeave, res.RunID, n, elapsed, nil)
}

// gatherArgs collects input then state arguments. lookup returns the value a
// source node produced at an output index.
func gatherArgs(n *domain.Node, lookup func(src *domain.Node, index int) (domain.Value, bool)) []domain.Value {
	args := make([]domain.Value, 0, len(n.Inputs)+len(n.States))
	for _, group := range [][]*domain.Port{n.Inputs, n.States} {
		for _, p := range group {
			var v domain.Value = p.Default
			if c := p.Incoming(); c != nil {
				if got, ok := lookup(c.Source.Owner(), c.Source.Index); ok {
					v = got
				}
			}
			args = append(args, v)
		}
	}
	return args
}

// invoke calls the behavior, applying lacing and recovering panics.
func (e *Engine) invoke(ctx context.Context, n *domain.Node, args []domain.Value) ([]domain.Value, error) {
	sets, scalar, laced := laceArgs(n.Lacing, args)
	if !laced {
		return callBehavior(ctx, n, args)
	}

	results := make([][]any, len(n.Outputs))
	for i := range results {
		results[i] = make([]any, 0, len(sets))
	}
	for _, set := range sets {
		out, err := callBehavior(ctx, n, set)
		if err != nil {
			return nil, err
		}
		for i, v := range out {
			results[i] = append(results[i], v)
		}
	}

	outputs := make([]domain.Value, len(n.Outputs))
	for i, r := range results {
		if scalar {
			if len(r) > 0 {
				outputs[i] = r[0]
			}
			continue
		}
		outputs[i] = r
	}
	return outputs, nil
}

func callBehavior(ctx context.Context, n *domain.Node, args []domain.Value) (out []domain.Value, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic: %v", r)
		}
	}()
	out, err = n.Behavior.Evaluate(ctx, args)
	if err != nil {
		return nil, err
	}
	if len(out) != len(n.Outputs) {
		return nil, fmt.Errorf("returned %d value(s) for %d output port(s)", len(out), len(n.Outputs))
	}
	return out, nil
}

func (e *Engine) emitNode(ctx context.Context, hook func(context.Context, *domain.NodeEvent), typ domain.EventType, runID string, n *domain.Node, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.NodeEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: runID},
		NodeID:    n.ID,
		Kind:      n.Kind,
		Duration:  d,
		Err:       err,
	})
}

func (e *Engine) emitRun(ctx context.Context, hook func(context.Context, *domain.RunEvent), typ domain.EventType, res *RunResult, d time.Duration, err error) {
	if hook == nil {
		return
	}
	hook(ctx, &domain.RunEvent{
		EventBase: domain.EventBase{Timestamp: time.Now(), Type: typ, RunID: res.RunID},
		Workspace: res.Workspace,
		Evaluated: len(res.Evaluated),
		Failed:    len(res.Errors),
		Blocked:   len(res.Blocked),
		Cancelled: res.Cancelled,
		Duration:  d,
		Err:       err,
	})
}
