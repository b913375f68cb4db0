// Package http serves a workbench over HTTP: command execution, workspace
// inspection, graph change events (SSE) and Prometheus metrics.
package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/aretw0/dynamo"
	"github.com/aretw0/dynamo/internal/dto"
	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/commands"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// CommandsTopic is the event topic announcing executed commands.
const CommandsTopic = "commands"

// Server exposes a workbench through its owner.
type Server struct {
	owner   *commands.Owner
	logger  *slog.Logger
	metrics http.Handler
	Streams *StreamManager

	mu       sync.Mutex
	observed map[*domain.Graph]bool
}

// Option configures the Server.
type Option func(*Server)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		s.logger = logger
	}
}

// WithMetricsHandler replaces the default Prometheus handler served on
// /metrics.
func WithMetricsHandler(h http.Handler) Option {
	return func(s *Server) {
		s.metrics = h
	}
}

// NewHandler creates the HTTP handler. owner must be running.
func NewHandler(owner *commands.Owner, opts ...Option) http.Handler {
	s := &Server{
		owner:    owner,
		logger:   logging.NewNop(),
		metrics:  promhttp.Handler(),
		Streams:  NewStreamManager(),
		observed: make(map[*domain.Graph]bool),
	}
	for _, opt := range opts {
		opt(s)
	}

	r := chi.NewRouter()
	r.Use(enableCORS)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)
	r.Get("/commands", s.ListCommands)
	r.Post("/commands/{name}", s.ExecuteCommand)
	r.Get("/workspace", s.GetWorkspace)
	r.Get("/workspace/document", s.GetDocument)
	r.Get("/definitions", s.ListDefinitions)
	r.Get("/events", s.SubscribeEvents)
	r.Method(http.MethodGet, "/metrics", s.metrics)
	return r
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) workbench() *dynamo.Workbench {
	return s.owner.Commands().Workbench()
}

// GetHealth handles GET /health.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// GetInfo handles GET /info.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"app":            "dynamo-http",
		"version":        dynamo.Version,
		"format_version": format.Version,
	})
}

type commandInfo struct {
	Name     string `json:"name"`
	Mutating bool   `json:"mutating"`
}

// ListCommands handles GET /commands.
func (s *Server) ListCommands(w http.ResponseWriter, r *http.Request) {
	set := s.owner.Commands()
	out := make([]commandInfo, 0, len(set.Names()))
	for _, name := range set.Names() {
		c, _ := set.Get(name)
		out = append(out, commandInfo{Name: name, Mutating: c.Mutating})
	}
	writeJSON(w, http.StatusOK, out)
}

// ExecuteCommand handles POST /commands/{name}. The body is a JSON object
// of parameters and may be empty.
func (s *Server) ExecuteCommand(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	params := commands.Params{}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&params); err != nil {
			writeError(w, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
			s.logger.Warn("command rejected: invalid body", "command", name, "err", err)
			return
		}
	}

	var view any
	res, err := s.owner.Execute(r.Context(), name, params)
	if err == nil {
		err = s.owner.Do(r.Context(), func() error {
			view = dto.Result(res)
			return nil
		})
	}
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	if payload, err := json.Marshal(map[string]string{"type": "command", "name": name}); err == nil {
		s.Streams.Broadcast(CommandsTopic, string(payload))
	}
	writeJSON(w, http.StatusOK, map[string]any{"result": view})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, commands.ErrUnknownCommand), errors.Is(err, domain.ErrDocumentNotFound),
		errors.Is(err, domain.ErrNodeNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUILocked):
		return http.StatusLocked
	case errors.Is(err, commands.ErrCannotExecute), errors.Is(err, domain.ErrInvalidConnection),
		errors.Is(err, domain.ErrDuplicateDefinition), errors.Is(err, dynamo.ErrNoLocation):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnknownNodeKind):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled), errors.Is(err, commands.ErrOwnerStopped):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// GetWorkspace handles GET /workspace: the current space with node states.
func (s *Server) GetWorkspace(w http.ResponseWriter, r *http.Request) {
	var view dto.Workspace
	if err := s.owner.Do(r.Context(), func() error {
		view = dto.FromGraph(s.workbench().CurrentSpace())
		return nil
	}); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// GetDocument handles GET /workspace/document: the current space as it
// would be saved.
func (s *Server) GetDocument(w http.ResponseWriter, r *http.Request) {
	var data []byte
	err := s.owner.Do(r.Context(), func() error {
		var err error
		data, err = format.Marshal(format.Snapshot(s.workbench().CurrentSpace()))
		return err
	})
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	w.Header().Set("Content-Type", "application/xml")
	if _, err := w.Write(data); err != nil {
		s.logger.Warn("document write failed", "err", err)
	}
}

// ListDefinitions handles GET /definitions.
func (s *Server) ListDefinitions(w http.ResponseWriter, r *http.Request) {
	var out []dto.Definition
	if err := s.owner.Do(r.Context(), func() error {
		for _, d := range s.workbench().Registry().Definitions() {
			out = append(out, dto.FromDefinition(d))
		}
		return nil
	}); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if out == nil {
		out = []dto.Definition{}
	}
	writeJSON(w, http.StatusOK, out)
}

// SubscribeEvents handles GET /events (SSE). Without parameters it streams
// changes of the Home workspace; ?workspace=<definition id> streams a custom
// node body and ?workspace=commands streams executed commands.
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("streaming not supported by response writer")
		return
	}

	topic := r.URL.Query().Get("workspace")
	if topic != CommandsTopic {
		var err error
		if topic, err = s.observe(r.Context(), topic); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
	}

	ch, cancel := s.Streams.Subscribe(topic)
	defer cancel()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()
	s.logger.Info("event stream opened", "topic", topic)

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("event stream closed", "topic", topic)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// observe installs, once per graph, an observer broadcasting its events,
// and returns the topic they are published on.
func (s *Server) observe(ctx context.Context, workspace string) (string, error) {
	var topic string
	err := s.owner.Do(ctx, func() error {
		wb := s.workbench()
		g := wb.Home()
		topic = dynamo.HomeName
		if workspace != "" && workspace != dynamo.HomeName {
			id, err := uuid.Parse(workspace)
			if err != nil {
				return fmt.Errorf("%w: workspace %q", domain.ErrNodeNotFound, workspace)
			}
			def, ok := wb.Registry().Get(id)
			if !ok {
				return fmt.Errorf("%w: workspace %s", domain.ErrNodeNotFound, id)
			}
			g, topic = def.Graph, id.String()
		}

		s.mu.Lock()
		defer s.mu.Unlock()
		if s.observed[g] {
			return nil
		}
		s.observed[g] = true
		t := topic
		g.Subscribe(func(ev domain.GraphEvent) {
			if payload, err := json.Marshal(dto.FromEvent(ev)); err == nil {
				s.Streams.Broadcast(t, string(payload))
			}
		})
		return nil
	})
	return topic, err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, map[string]string{"error": err.Error()})
}
