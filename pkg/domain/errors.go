package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// ErrInvalidConnection is returned when a connection would violate port rules.
var ErrInvalidConnection = errors.New("invalid connection")

// ErrUnknownNodeKind is returned when a kind descriptor cannot be resolved.
var ErrUnknownNodeKind = errors.New("unknown node kind")

// ErrUnresolvedDependency is returned when a custom node references a definition
// that has not been loaded (or fully resolved) yet.
var ErrUnresolvedDependency = errors.New("unresolved dependency")

// ErrNodeNotFound is returned when a node id is not part of the graph.
var ErrNodeNotFound = errors.New("node not found")

// ErrDuplicateNode is returned when a node id is already taken in the graph.
var ErrDuplicateNode = errors.New("duplicate node id")

// ErrDocumentNotFound is returned by document stores for missing documents.
var ErrDocumentNotFound = errors.New("document not found")

// ErrDuplicateDefinition is returned when a custom node name or id is already registered.
var ErrDuplicateDefinition = errors.New("duplicate custom node definition")

// ErrUILocked is returned when a mutation is attempted while the workbench is locked.
var ErrUILocked = errors.New("workbench is locked")

// ErrCyclicGraph is the sentinel matched by CyclicGraphError.
var ErrCyclicGraph = errors.New("cyclic graph")

// ErrNodeEvaluation is the sentinel matched by NodeEvaluationError.
var ErrNodeEvaluation = errors.New("node evaluation failed")

// CyclicGraphError reports a dependency cycle that is not mediated by a State port.
type CyclicGraphError struct {
	Nodes []uuid.UUID
}

func (e *CyclicGraphError) Error() string {
	ids := make([]string, len(e.Nodes))
	for i, id := range e.Nodes {
		ids[i] = id.String()
	}
	return fmt.Sprintf("cyclic graph: %d node(s) in cycle [%s]", len(e.Nodes), strings.Join(ids, ", "))
}

func (e *CyclicGraphError) Is(target error) bool {
	return target == ErrCyclicGraph
}

// NodeEvaluationError wraps a failure raised by a node's behavior.
type NodeEvaluationError struct {
	NodeID uuid.UUID
	Kind   string
	Cause  error
}

func (e *NodeEvaluationError) Error() string {
	return fmt.Sprintf("node %s (%s) failed: %v", e.NodeID, e.Kind, e.Cause)
}

func (e *NodeEvaluationError) Unwrap() error {
	return e.Cause
}

func (e *NodeEvaluationError) Is(target error) bool {
	return target == ErrNodeEvaluation
}
