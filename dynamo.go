package dynamo

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/internal/runtime"
	"github.com/aretw0/dynamo/pkg/adapters/file"
	"github.com/aretw0/dynamo/pkg/customnode"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/format"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/aretw0/dynamo/pkg/library"
	"github.com/aretw0/dynamo/pkg/ports"
	"github.com/google/uuid"
)

// HomeName is the name of the Home workspace.
const HomeName = "Home"

// DefaultLockTTL bounds how long a save holds the document lock.
const DefaultLockTTL = 30 * time.Second

// ErrNoLocation is returned by Save when the workspace was never opened or
// saved under a name.
var ErrNoLocation = errors.New("workspace has no save location")

// RunResult is the outcome of a run of the Home workspace.
type RunResult = runtime.RunResult

type location struct {
	store ports.DocumentStore
	name  string
}

// Workbench is the high-level entry point: it owns the Home workspace, the
// kind and custom node registries and the evaluator.
//
// A Workbench is not safe for concurrent use. One goroutine owns it; other
// goroutines hand it work through commands.Owner. CancelRun, IsRunning and
// IsUILocked may be called from any goroutine.
type Workbench struct {
	logger       *slog.Logger
	hooks        domain.LifecycleHooks
	kinds        *kinds.Registry
	defStore     ports.DocumentStore
	locker       ports.DocumentLocker
	shortCircuit bool
	maxDepth     int

	engine   *runtime.Engine
	registry *customnode.Registry
	library  *library.Library

	home      *domain.Graph
	current   *domain.Graph
	locations map[*domain.Graph]location
	uiLocked  atomic.Bool
}

// Option defines a functional option for configuring the Workbench.
type Option func(*Workbench)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *Workbench) {
		w.logger = logger
	}
}

// WithLifecycleHooks registers observability hooks.
func WithLifecycleHooks(hooks domain.LifecycleHooks) Option {
	return func(w *Workbench) {
		w.hooks = hooks
	}
}

// WithDefinitionStore sets the store holding custom node documents.
func WithDefinitionStore(store ports.DocumentStore) Option {
	return func(w *Workbench) {
		w.defStore = store
	}
}

// WithLocker serializes saves across processes sharing a store.
func WithLocker(locker ports.DocumentLocker) Option {
	return func(w *Workbench) {
		w.locker = locker
	}
}

// WithShortCircuit skips nodes whose upstream values did not change.
func WithShortCircuit(enabled bool) Option {
	return func(w *Workbench) {
		w.shortCircuit = enabled
	}
}

// WithMaxCallDepth bounds nested custom node calls.
func WithMaxCallDepth(depth int) Option {
	return func(w *Workbench) {
		w.maxDepth = depth
	}
}

// WithKinds replaces the built-in kind registry. The custom node registry is
// installed as its fallback.
func WithKinds(r *kinds.Registry) Option {
	return func(w *Workbench) {
		w.kinds = r
	}
}

// New creates a Workbench with an empty Home workspace.
func New(opts ...Option) *Workbench {
	w := &Workbench{locations: make(map[*domain.Graph]location)}
	for _, opt := range opts {
		opt(w)
	}
	if w.logger == nil {
		w.logger = logging.NewNop()
	}
	if w.kinds == nil {
		w.kinds = kinds.NewDefault()
	}

	w.engine = runtime.NewEngine(
		runtime.WithLogger(w.logger),
		runtime.WithLifecycleHooks(w.hooks),
		runtime.WithShortCircuit(w.shortCircuit),
		runtime.WithMaxCallDepth(w.maxDepth),
	)
	w.registry = customnode.NewRegistry(w.engine, w.kinds, customnode.WithLogger(w.logger))
	w.kinds.SetFallback(w.registry)
	if w.defStore != nil {
		w.library = library.New(w.defStore, w.registry, w.kinds, library.WithLogger(w.logger))
	}

	w.home = domain.NewGraph(domain.GraphHome, HomeName, w.kinds)
	w.current = w.home
	return w
}

// Home returns the Home workspace.
func (w *Workbench) Home() *domain.Graph { return w.home }

// CurrentSpace returns the workspace being edited.
func (w *Workbench) CurrentSpace() *domain.Graph { return w.current }

// Kinds returns the kind registry.
func (w *Workbench) Kinds() *kinds.Registry { return w.kinds }

// Registry returns the custom node registry.
func (w *Workbench) Registry() *customnode.Registry { return w.registry }

// Engine returns the evaluator.
func (w *Workbench) Engine() *runtime.Engine { return w.engine }

// Logger returns the workbench logger.
func (w *Workbench) Logger() *slog.Logger { return w.logger }

// ViewHome makes Home the current space.
func (w *Workbench) ViewHome() {
	w.current = w.home
}

// ViewCustomNode makes the body of a custom node the current space.
func (w *Workbench) ViewCustomNode(id uuid.UUID) error {
	def, ok := w.registry.Get(id)
	if !ok {
		return fmt.Errorf("custom node %s: %w", id, domain.ErrUnresolvedDependency)
	}
	w.current = def.Graph
	return nil
}

// IsUILocked reports whether an open is in progress.
func (w *Workbench) IsUILocked() bool {
	return w.uiLocked.Load()
}

// IsRunning reports whether a run is in progress.
func (w *Workbench) IsRunning() bool {
	return w.engine.IsRunning()
}

// CancelRun asks the current run to stop scheduling nodes.
func (w *Workbench) CancelRun() {
	w.engine.Cancel()
}

func (w *Workbench) lockUI() (func(), error) {
	if !w.uiLocked.CompareAndSwap(false, true) {
		return nil, domain.ErrUILocked
	}
	return func() { w.uiLocked.Store(false) }, nil
}

// Open loads the document at path. Custom node documents (.dyf) are
// registered and opened for editing; anything else replaces Home.
func (w *Workbench) Open(ctx context.Context, path string) (*format.LoadReport, error) {
	dir, name := filepath.Split(path)
	if dir == "" {
		dir = "."
	}
	return w.OpenDocument(ctx, file.New(dir), name)
}

// OpenDocument loads name from store. The UI is locked for the duration.
// A document with a Name is a custom node and goes to the registry;
// otherwise Home is cleared and reloaded. When the document cannot be read
// or decoded, Home is left cleared and the error is returned.
func (w *Workbench) OpenDocument(ctx context.Context, store ports.DocumentStore, name string) (*format.LoadReport, error) {
	unlock, err := w.lockUI()
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger := w.logger.With("document", name)
	data, err := store.Load(ctx, name)
	if err != nil {
		w.resetHome()
		logger.Error("failed to open workspace", "err", err)
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	doc, err := format.Unmarshal(data)
	if err != nil {
		w.resetHome()
		logger.Error("failed to open workspace", "err", err)
		return nil, fmt.Errorf("open %s: %w", name, err)
	}

	if doc.IsCustom() {
		return w.openDefinition(doc, store, name)
	}

	w.resetHome()
	report, err := format.Materialize(doc, w.home, format.WithLogger(logger))
	if err != nil {
		w.resetHome()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	w.home.FilePath = name
	w.locations[w.home] = location{store: store, name: name}
	w.current = w.home
	logger.Info("workspace opened", "nodes", len(report.Nodes), "bad_nodes", len(report.BadNodes),
		"dropped_connectors", len(report.Dropped))
	return report, nil
}

func (w *Workbench) openDefinition(doc *format.Document, store ports.DocumentStore, name string) (*format.LoadReport, error) {
	def, report, err := format.BuildDefinition(doc, w.kinds, format.WithLogger(w.logger.With("document", name)))
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	def.Graph.FilePath = name
	if old, ok := w.registry.Get(def.ID); ok {
		delete(w.locations, old.Graph)
		if w.current == old.Graph {
			w.current = w.home
		}
		old.Graph.Clear()
		err = w.registry.Replace(def, report.Dependencies)
	} else {
		err = w.registry.Register(def, report.Dependencies)
	}
	if err != nil {
		def.Graph.Clear()
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	w.locations[def.Graph] = location{store: store, name: name}
	w.current = def.Graph
	w.logger.Info("custom node opened", "name", def.Name, "id", def.ID, "resolved", w.registry.IsResolved(def.ID))
	return report, nil
}

func (w *Workbench) resetHome() {
	w.home.Clear()
	w.home.FilePath = ""
	w.home.HasUnsavedChanges = false
	delete(w.locations, w.home)
	w.current = w.home
}

// Clear empties Home and makes it current.
func (w *Workbench) Clear() error {
	if w.IsUILocked() {
		return domain.ErrUILocked
	}
	w.resetHome()
	return nil
}

// Save writes the current space back to where it was opened or last saved.
// Custom nodes that were never saved go to the definition store.
func (w *Workbench) Save(ctx context.Context) error {
	g := w.current
	loc, ok := w.locations[g]
	if !ok {
		if g.Kind != domain.GraphCustom || w.defStore == nil {
			return ErrNoLocation
		}
		loc = location{store: w.defStore, name: g.Name + ports.CustomExt}
	}
	return w.save(ctx, g, loc)
}

// SaveAs writes the current space to name in store and remembers the
// location for later saves.
func (w *Workbench) SaveAs(ctx context.Context, store ports.DocumentStore, name string) error {
	return w.save(ctx, w.current, location{store: store, name: name})
}

func (w *Workbench) save(ctx context.Context, g *domain.Graph, loc location) error {
	if w.IsUILocked() {
		return domain.ErrUILocked
	}
	data, err := format.Marshal(format.Snapshot(g))
	if err != nil {
		return err
	}

	if w.locker != nil {
		unlock, err := w.locker.Lock(ctx, loc.name, DefaultLockTTL)
		if err != nil {
			return fmt.Errorf("lock %s: %w", loc.name, err)
		}
		defer func() {
			if err := unlock(context.WithoutCancel(ctx)); err != nil {
				w.logger.Warn("failed to release document lock", "document", loc.name, "err", err)
			}
		}()
	}

	if err := loc.store.Save(ctx, loc.name, data); err != nil {
		w.logger.Error("failed to save workspace", "document", loc.name, "err", err)
		return fmt.Errorf("save %s: %w", loc.name, err)
	}
	g.FilePath = loc.name
	g.HasUnsavedChanges = false
	w.locations[g] = loc
	w.logger.Info("workspace saved", "workspace", g.Name, "document", loc.name)
	return nil
}

// NewCustomNode creates an empty custom node and opens it for editing.
func (w *Workbench) NewCustomNode(name, category string) (*customnode.Definition, error) {
	if w.IsUILocked() {
		return nil, domain.ErrUILocked
	}
	def, err := w.registry.New(name, category)
	if err != nil {
		return nil, err
	}
	def.Graph.HasUnsavedChanges = true
	w.current = def.Graph
	return def, nil
}

// SaveFunction recompiles a custom node, refreshing the ports of every
// instance, and writes it to its document when a location is known.
func (w *Workbench) SaveFunction(ctx context.Context, id uuid.UUID) (*customnode.Definition, error) {
	def, err := w.registry.Compile(id)
	if err != nil {
		return nil, err
	}
	loc, ok := w.locations[def.Graph]
	if !ok {
		if w.defStore == nil {
			return def, nil
		}
		loc = location{store: w.defStore, name: def.Name + ports.CustomExt}
	}
	return def, w.save(ctx, def.Graph, loc)
}

// RefactorCustomNode renames a custom node and changes its category.
func (w *Workbench) RefactorCustomNode(id uuid.UUID, name, category string) (*customnode.Definition, error) {
	if w.IsUILocked() {
		return nil, domain.ErrUILocked
	}
	return w.registry.Refactor(id, name, category)
}

// RunExpression evaluates every dirty node of Home. Workbench runs can be
// stopped with CancelRun.
func (w *Workbench) RunExpression(ctx context.Context, debug bool) (*RunResult, error) {
	if w.IsUILocked() {
		return nil, domain.ErrUILocked
	}
	return w.engine.Run(ctx, w.home, runtime.RunOptions{Debug: debug, Dynamic: true})
}

// LoadDefinitions reads every custom node document of the definition store.
func (w *Workbench) LoadDefinitions(ctx context.Context) (library.Summary, error) {
	if w.library == nil {
		return library.Summary{}, errors.New("no definition store configured")
	}
	return w.library.Load(ctx)
}

// WatchDefinitions reloads changed custom node documents until ctx is done.
// submit must run the closure it receives on the goroutine owning the
// workbench, such as commands.Owner.Post.
func (w *Workbench) WatchDefinitions(ctx context.Context, submit func(func())) error {
	if w.library == nil {
		return errors.New("no definition store configured")
	}
	return w.library.Watch(ctx, submit)
}
