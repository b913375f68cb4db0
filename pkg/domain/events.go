package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// GraphEventType defines the category of a graph mutation notification.
type GraphEventType string

const (
	EventNodeAdded     GraphEventType = "node_added"
	EventNodeRemoved   GraphEventType = "node_removed"
	EventNodeDirty     GraphEventType = "node_dirty"
	EventNodeEvaluated GraphEventType = "node_evaluated"
	EventConnected     GraphEventType = "connected"
	EventDisconnected  GraphEventType = "disconnected"
	EventNoteAdded     GraphEventType = "note_added"
	EventNoteRemoved   GraphEventType = "note_removed"
	EventCleared       GraphEventType = "cleared"
)

// GraphEvent is delivered synchronously to every subscribed Observer.
type GraphEvent struct {
	Type      GraphEventType
	Graph     *Graph
	Node      *Node
	Connector *Connector
	Note      *Note
}

// Observer reacts to graph mutations. It runs on the owner goroutine and
// must not mutate the graph.
type Observer func(GraphEvent)

// EventType defines the category of an evaluation lifecycle event.
type EventType string

const (
	EventRunStart   EventType = "run_start"
	EventRunFinish  EventType = "run_finish"
	EventNodeEnter  EventType = "node_enter"
	EventNodeLeave  EventType = "node_leave"
	EventNodeFailed EventType = "node_failed"
)

// EventBase contains common fields for all lifecycle events.
type EventBase struct {
	Timestamp time.Time `json:"timestamp"`
	Type      EventType `json:"type"`
	RunID     string    `json:"run_id"`
}

// NodeEvent represents entry into, exit from or failure of a node evaluation.
type NodeEvent struct {
	EventBase
	NodeID   uuid.UUID     `json:"node_id"`
	Kind     string        `json:"kind"`
	Duration time.Duration `json:"duration,omitempty"`
	Err      error         `json:"-"`
}

// RunEvent represents the start or end of a run.
type RunEvent struct {
	EventBase
	Workspace string        `json:"workspace"`
	Evaluated int           `json:"evaluated"`
	Failed    int           `json:"failed"`
	Blocked   int           `json:"blocked"`
	Cancelled bool          `json:"cancelled"`
	Duration  time.Duration `json:"duration,omitempty"`
	Err       error         `json:"-"`
}

// LifecycleHooks defines callbacks for evaluator observability.
type LifecycleHooks struct {
	OnRunStart  func(context.Context, *RunEvent)
	OnRunFinish func(context.Context, *RunEvent)
	OnNodeEnter func(context.Context, *NodeEvent)
	OnNodeLeave func(context.Context, *NodeEvent)
	OnNodeError func(context.Context, *NodeEvent)
}
