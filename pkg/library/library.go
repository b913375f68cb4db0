// Package library loads custom node definitions from a document store.
//
// Reading and decoding documents is pure I/O and runs on worker goroutines.
// Building graphs and registering definitions touches the custom node
// registry, so that part runs on whichever goroutine owns the workbench:
// callers hand Apply the decoded entries, or pass a submit function to Watch.
package library

import (
	"context"
	"fmt"
	"log/slog"
	"path"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/aretw0/dynamo/pkg/ports"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// DefaultConcurrency bounds parallel document reads.
const DefaultConcurrency = 8

// Entry is one decoded definition document.
type Entry struct {
	Name string
	Doc  *format.Document
	Err  error
}

// Summary describes the outcome of Apply.
type Summary struct {
	Loaded  []uuid.UUID
	Failed  map[string]error
	Pending map[uuid.UUID][]uuid.UUID
}

// Library connects a document store to a custom node registry.
type Library struct {
	store       ports.DocumentStore
	registry    *customnode.Registry
	resolver    domain.Resolver
	logger      *slog.Logger
	concurrency int
	names       map[string]uuid.UUID
}

// Option configures a Library.
type Option func(*Library)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Library) {
		l.logger = logger
	}
}

// WithConcurrency bounds parallel reads.
func WithConcurrency(n int) Option {
	return func(l *Library) {
		if n > 0 {
			l.concurrency = n
		}
	}
}

// New creates a library. resolver builds the nodes of definition graphs and
// normally falls back on registry for nested custom nodes.
func New(store ports.DocumentStore, registry *customnode.Registry, resolver domain.Resolver, opts ...Option) *Library {
	l := &Library{
		store:       store,
		registry:    registry,
		resolver:    resolver,
		logger:      logging.NewNop(),
		concurrency: DefaultConcurrency,
		names:       make(map[string]uuid.UUID),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// IsDefinition reports whether a document name holds a custom node.
func IsDefinition(name string) bool {
	return path.Ext(name) == ports.CustomExt
}

// Read lists the store and decodes every definition document in parallel.
// Per-document failures are reported on the entry; only listing failures
// and cancellation abort the read. Entries keep the listing order.
func (l *Library) Read(ctx context.Context) ([]Entry, error) {
	names, err := l.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list definitions: %w", err)
	}
	var defs []string
	for _, name := range names {
		if IsDefinition(name) {
			defs = append(defs, name)
		}
	}

	entries := make([]Entry, len(defs))
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)
	for i, name := range defs {
		g.Go(func() error {
			entries[i] = l.read(gCtx, name)
			return gCtx.Err()
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return entries, nil
}

func (l *Library) read(ctx context.Context, name string) Entry {
	data, err := l.store.Load(ctx, name)
	if err != nil {
		return Entry{Name: name, Err: err}
	}
	doc, err := format.Unmarshal(data)
	if err != nil {
		return Entry{Name: name, Err: err}
	}
	if !doc.IsCustom() {
		return Entry{Name: name, Err: fmt.Errorf("%s is not a custom node document", name)}
	}
	return Entry{Name: name, Doc: doc}
}

// Apply builds and registers decoded entries. It must run on the owner
// goroutine. Entries may arrive in any order; definitions whose
// dependencies are still missing stay pending until those arrive.
// A document already registered under the same id replaces the previous
// definition.
func (l *Library) Apply(entries []Entry) Summary {
	sum := Summary{Failed: make(map[string]error)}
	for _, e := range entries {
		if e.Err != nil {
			sum.Failed[e.Name] = e.Err
			l.logger.Warn("skipping custom node document", "name", e.Name, "err", e.Err)
			continue
		}
		id, err := l.apply(e)
		if err != nil {
			sum.Failed[e.Name] = err
			l.logger.Warn("failed to register custom node", "name", e.Name, "err", err)
			continue
		}
		sum.Loaded = append(sum.Loaded, id)
	}
	sum.Pending = l.registry.Pending()
	l.logger.Info("custom node library applied",
		"loaded", len(sum.Loaded), "failed", len(sum.Failed), "pending", len(sum.Pending))
	return sum
}

func (l *Library) apply(e Entry) (uuid.UUID, error) {
	def, report, err := format.BuildDefinition(e.Doc, l.resolver, format.WithLogger(l.logger))
	if err != nil {
		return uuid.Nil, err
	}
	def.Graph.FilePath = e.Name

	if old, ok := l.registry.Get(def.ID); ok {
		old.Graph.Clear()
		err = l.registry.Replace(def, report.Dependencies)
	} else {
		err = l.registry.Register(def, report.Dependencies)
	}
	if err != nil {
		def.Graph.Clear()
		return uuid.Nil, err
	}
	l.names[e.Name] = def.ID
	return def.ID, nil
}

// Load reads the whole store and applies it on the calling goroutine.
func (l *Library) Load(ctx context.Context) (Summary, error) {
	entries, err := l.Read(ctx)
	if err != nil {
		return Summary{}, err
	}
	return l.Apply(entries), nil
}

// DefinitionName returns the document name a definition was loaded from.
func (l *Library) DefinitionName(id uuid.UUID) (string, bool) {
	for name, got := range l.names {
		if got == id {
			return name, true
		}
	}
	return "", false
}

// Watch reloads definition documents changed in a Watchable store until ctx
// is done. Changed documents are read on the watcher goroutine; each decoded
// entry is handed to submit, which must run the closure on the owner
// goroutine.
func (l *Library) Watch(ctx context.Context, submit func(func())) error {
	w, ok := l.store.(ports.Watchable)
	if !ok {
		return fmt.Errorf("document store %T cannot be watched", l.store)
	}
	changes, err := w.Watch(ctx)
	if err != nil {
		return err
	}
	for name := range changes {
		if !IsDefinition(name) {
			continue
		}
		entry := l.read(ctx, name)
		if entry.Err != nil {
			l.logger.Warn("ignoring changed custom node document", "name", name, "err", entry.Err)
			continue
		}
		l.logger.Info("reloading custom node", "name", name)
		submit(func() { l.Apply([]Entry{entry}) })
	}
	return nil
}
