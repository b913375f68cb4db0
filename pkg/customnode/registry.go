package customnode

import (
	"fmt"
	"log/slog"
	"sort"

	"github.com/aretw0/dynamo/internal/logging"
	"github.com/aretw0/dynamo/pkg/domain"
	"github.com/aretw0/dynamo/pkg/kinds"
	"github.com/google/uuid"
)

// LegacyFunctionType is the persisted type name of custom node instances in
// older documents.
const LegacyFunctionType = kinds.CurrentNamespace + "dynFunction"

type idSet map[uuid.UUID]struct{}

// Registry holds the loaded custom node definitions and resolves references
// between them incrementally.
//
// children[d] lists the definitions waiting for d; parents[c] lists the ids c
// still waits for. It is owned by a single goroutine.
type Registry struct {
	caller Caller
	kinds  domain.Resolver
	logger *slog.Logger

	defs     map[uuid.UUID]*Definition
	names    map[string]uuid.UUID
	resolved map[uuid.UUID]bool
	children map[uuid.UUID]idSet
	parents  map[uuid.UUID]idSet

	instances map[uuid.UUID]map[*instance]struct{}

	onResolved []func(*Definition)
}

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		r.logger = logger
	}
}

// WithOnResolved registers a callback run whenever a definition is compiled.
func WithOnResolved(fn func(*Definition)) Option {
	return func(r *Registry) {
		r.onResolved = append(r.onResolved, fn)
	}
}

// NewRegistry creates a registry. caller evaluates definition bodies and
// resolver builds the nodes of new definition graphs.
func NewRegistry(caller Caller, resolver domain.Resolver, opts ...Option) *Registry {
	r := &Registry{
		caller:    caller,
		kinds:     resolver,
		logger:    logging.NewNop(),
		defs:      make(map[uuid.UUID]*Definition),
		names:     make(map[string]uuid.UUID),
		resolved:  make(map[uuid.UUID]bool),
		children:  make(map[uuid.UUID]idSet),
		parents:   make(map[uuid.UUID]idSet),
		instances: make(map[uuid.UUID]map[*instance]struct{}),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve implements domain.Resolver for custom node kinds. It accepts the
// generic Function type (instances configured later from persisted params),
// a registered definition id, or a registered definition name.
func (r *Registry) Resolve(descriptor string) (string, domain.Behavior, error) {
	switch kinds.RewriteLegacy(descriptor) {
	case domain.KindFunction, LegacyFunctionType:
		return domain.KindFunction, &instance{reg: r}, nil
	}

	id, err := uuid.Parse(descriptor)
	if err != nil {
		var ok bool
		if id, ok = r.names[descriptor]; !ok {
			return "", nil, fmt.Errorf("%w: %q", domain.ErrUnknownNodeKind, descriptor)
		}
	}
	def, ok := r.defs[id]
	if !ok {
		return "", nil, fmt.Errorf("%w: custom node %s is not loaded", domain.ErrUnknownNodeKind, id)
	}
	return id.String(), &instance{
		reg:     r,
		id:      id,
		inputs:  append([]string(nil), def.InputNames...),
		outputs: append([]string(nil), def.OutputNames...),
	}, nil
}

// New creates and registers an empty definition.
func (r *Registry) New(name, category string) (*Definition, error) {
	g := domain.NewGraph(domain.GraphCustom, name, r.kinds)
	def := NewDefinition(uuid.Nil, name, category, g)
	if err := r.Register(def, nil); err != nil {
		return nil, err
	}
	return def, nil
}

// Register adds a definition whose graph references deps. When every
// dependency is already resolved the definition is compiled immediately and
// any definitions waiting for it are completed in turn.
func (r *Registry) Register(def *Definition, deps []uuid.UUID) error {
	if def.ID == uuid.Nil {
		def.ID = DeterministicID(def.Name)
	}
	if _, exists := r.defs[def.ID]; exists {
		return fmt.Errorf("%w: id %s", domain.ErrDuplicateDefinition, def.ID)
	}
	if other, exists := r.names[def.Name]; exists && other != def.ID {
		return fmt.Errorf("%w: a custom node named %q already exists", domain.ErrDuplicateDefinition, def.Name)
	}

	r.defs[def.ID] = def
	r.names[def.Name] = def.ID

	waiting := make(idSet)
	for _, dep := range deps {
		if dep == def.ID || dep == uuid.Nil || r.resolved[dep] {
			continue
		}
		waiting[dep] = struct{}{}
	}
	if len(waiting) == 0 {
		r.complete(def)
		return nil
	}

	r.parents[def.ID] = waiting
	for dep := range waiting {
		if r.children[dep] == nil {
			r.children[dep] = make(idSet)
		}
		r.children[dep][def.ID] = struct{}{}
	}
	r.logger.Info("custom node waiting for dependencies", "id", def.ID, "name", def.Name, "missing", len(waiting))
	return nil
}

// Replace swaps the definition registered under def.ID, keeping its
// instances, and re-runs dependency resolution.
func (r *Registry) Replace(def *Definition, deps []uuid.UUID) error {
	if old, ok := r.defs[def.ID]; ok {
		delete(r.names, old.Name)
		delete(r.defs, def.ID)
		delete(r.resolved, def.ID)
		for dep := range r.parents[def.ID] {
			delete(r.children[dep], def.ID)
		}
		delete(r.parents, def.ID)
	}
	return r.Register(def, deps)
}

// complete compiles def and every definition that becomes fully resolved as
// a consequence.
func (r *Registry) complete(def *Definition) {
	queue := []*Definition{def}
	for len(queue) > 0 {
		d := queue[0]
		queue = queue[1:]

		r.compile(d)
		r.resolved[d.ID] = true
		delete(r.parents, d.ID)
		r.logger.Debug("custom node resolved", "id", d.ID, "name", d.Name)

		for child := range r.children[d.ID] {
			waiting := r.parents[child]
			delete(waiting, d.ID)
			if len(waiting) == 0 {
				if c, ok := r.defs[child]; ok {
					queue = append(queue, c)
				}
			}
		}
		delete(r.children, d.ID)
	}
}

// compile refreshes the signature of d and propagates it to every instance.
func (r *Registry) compile(d *Definition) {
	d.compile()
	for inst := range r.instances[d.ID] {
		inst.inputs = append([]string(nil), d.InputNames...)
		inst.outputs = append([]string(nil), d.OutputNames...)
		if g := inst.node.Graph(); g != nil {
			if err := g.RefreshPorts(inst.node); err != nil {
				r.logger.Warn("failed to refresh custom node instance", "id", d.ID, "node", inst.node.ID, "err", err)
			}
		}
	}
	for _, fn := range r.onResolved {
		fn(d)
	}
}

// Compile recompiles a registered definition after its graph was edited.
func (r *Registry) Compile(id uuid.UUID) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnresolvedDependency, id)
	}
	if !r.resolved[id] {
		return nil, fmt.Errorf("%w: %s still waits for %d definition(s)", domain.ErrUnresolvedDependency, id, len(r.parents[id]))
	}
	r.compile(def)
	return def, nil
}

// Load returns a fully resolved definition, or ErrUnresolvedDependency.
func (r *Registry) Load(id uuid.UUID) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: custom node %s is not registered", domain.ErrUnresolvedDependency, id)
	}
	if !r.resolved[id] {
		return nil, fmt.Errorf("%w: custom node %q waits for %d definition(s)", domain.ErrUnresolvedDependency, def.Name, len(r.parents[id]))
	}
	return def, nil
}

// IsResolved reports whether id is registered and all its dependencies are.
func (r *Registry) IsResolved(id uuid.UUID) bool {
	return r.resolved[id]
}

// Lookup finds a definition by name.
func (r *Registry) Lookup(name string) (*Definition, bool) {
	id, ok := r.names[name]
	if !ok {
		return nil, false
	}
	return r.defs[id], true
}

// Get finds a definition by id, resolved or not.
func (r *Registry) Get(id uuid.UUID) (*Definition, bool) {
	def, ok := r.defs[id]
	return def, ok
}

// Definitions returns all registered definitions sorted by name.
func (r *Registry) Definitions() []*Definition {
	out := make([]*Definition, 0, len(r.defs))
	for _, d := range r.defs {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Pending returns, for each registered but unresolved definition, the ids it
// still waits for.
func (r *Registry) Pending() map[uuid.UUID][]uuid.UUID {
	out := make(map[uuid.UUID][]uuid.UUID, len(r.parents))
	for id, deps := range r.parents {
		for dep := range deps {
			out[id] = append(out[id], dep)
		}
		sort.Slice(out[id], func(i, j int) bool { return out[id][i].String() < out[id][j].String() })
	}
	return out
}

// Instances returns the nodes currently instantiating id.
func (r *Registry) Instances(id uuid.UUID) []*domain.Node {
	var out []*domain.Node
	for inst := range r.instances[id] {
		out = append(out, inst.node)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID.String() < out[j].ID.String() })
	return out
}

// Refactor renames a definition. Instances still showing the old name take
// the new one, the definition is recompiled and the signature is pushed to
// every instance. An empty category keeps the current one.
func (r *Registry) Refactor(id uuid.UUID, newName, newCategory string) (*Definition, error) {
	def, ok := r.defs[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnresolvedDependency, id)
	}
	if newName == "" {
		return nil, fmt.Errorf("custom node name cannot be empty")
	}
	if other, exists := r.names[newName]; exists && other != id {
		return nil, fmt.Errorf("%w: a custom node named %q already exists", domain.ErrDuplicateDefinition, newName)
	}

	oldName := def.Name
	for inst := range r.instances[id] {
		if inst.node.NickName == oldName {
			inst.node.NickName = newName
		}
	}

	delete(r.names, oldName)
	r.names[newName] = id
	def.Name = newName
	def.Graph.Name = newName
	if newCategory != "" {
		def.Category = newCategory
		def.Graph.Category = newCategory
	}
	def.Graph.HasUnsavedChanges = true

	if r.resolved[id] {
		r.compile(def)
	}
	r.logger.Info("custom node refactored", "id", id, "from", oldName, "to", newName)
	return def, nil
}

func (r *Registry) track(i *instance) {
	if i.id == uuid.Nil {
		return
	}
	set := r.instances[i.id]
	if set == nil {
		set = make(map[*instance]struct{})
		r.instances[i.id] = set
	}
	set[i] = struct{}{}
}

func (r *Registry) untrack(i *instance) {
	if set := r.instances[i.id]; set != nil {
		delete(set, i)
		if len(set) == 0 {
			delete(r.instances, i.id)
		}
	}
}
