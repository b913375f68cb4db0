// Package kinds maps node kind names to the factories that build their
// behaviors, and ships the built-in kinds.
package kinds

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/aretw0/dynamo/pkg/domain"
)

// Namespaces used by persisted type names.
const (
	LegacyNamespace  = "Dynamo.Elements."
	CurrentNamespace = "Dynamo.Nodes."
)

// Factory builds a fresh behavior for one node.
type Factory func() domain.Behavior

// Registry manages the available node kinds.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
	aliases   map[string]string
	fallback  domain.Resolver
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[string]Factory),
		aliases:   make(map[string]string),
	}
}

// NewDefault creates a registry populated with the built-in kinds.
func NewDefault() *Registry {
	r := NewRegistry()
	RegisterBuiltins(r)
	return r
}

// Register adds a kind. If a kind with the same name exists, it is overwritten.
// Aliases are the also-known-as names older documents may use.
func (r *Registry) Register(name string, fn Factory, aliases ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = fn
	for _, a := range aliases {
		r.aliases[a] = name
	}
}

// SetFallback installs a resolver consulted for names the table does not know,
// typically the custom node registry.
func (r *Registry) SetFallback(res domain.Resolver) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fallback = res
}

// RewriteLegacy maps the legacy namespace prefix onto the current one.
func RewriteLegacy(name string) string {
	if strings.HasPrefix(name, LegacyNamespace) {
		return CurrentNamespace + strings.TrimPrefix(name, LegacyNamespace)
	}
	return name
}

// Canonical returns the registered name a descriptor resolves to.
func (r *Registry) Canonical(descriptor string) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.canonical(descriptor)
}

func (r *Registry) canonical(descriptor string) (string, bool) {
	name := RewriteLegacy(descriptor)
	if _, ok := r.factories[name]; ok {
		return name, true
	}
	if target, ok := r.aliases[name]; ok {
		return target, true
	}
	if short := strings.TrimPrefix(name, CurrentNamespace); short != name {
		if _, ok := r.factories[short]; ok {
			return short, true
		}
		if target, ok := r.aliases[short]; ok {
			return target, true
		}
	}
	return "", false
}

// Resolve implements domain.Resolver.
func (r *Registry) Resolve(descriptor string) (string, domain.Behavior, error) {
	r.mu.RLock()
	name, ok := r.canonical(descriptor)
	fn := r.factories[name]
	fallback := r.fallback
	r.mu.RUnlock()

	if ok {
		return name, fn(), nil
	}
	if fallback != nil {
		return fallback.Resolve(descriptor)
	}
	return "", nil, fmt.Errorf("%w: %q", domain.ErrUnknownNodeKind, descriptor)
}

// Names returns the registered kind names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.factories))
	for name := range r.factories {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}
