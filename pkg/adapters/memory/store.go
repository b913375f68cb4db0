// Package memory provides an in-memory document store for tests and
// ephemeral workbenches.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/aretw0/dynamo/pkg/domain"
)

// Store implements ports.DocumentStore and ports.Watchable in memory.
// Safe for concurrent use.
type Store struct {
	mu       sync.RWMutex
	data     map[string][]byte
	watchers map[int]*watcher
	nextKey  int
}

type watcher struct {
	ctx context.Context
	ch  chan string
}

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		data:     make(map[string][]byte),
		watchers: make(map[int]*watcher),
	}
}

// NewFromDocuments creates a store seeded with raw documents keyed by name.
func NewFromDocuments(docs map[string]string) *Store {
	s := NewStore()
	for name, body := range docs {
		s.data[name] = []byte(body)
	}
	return s
}

// Save stores a copy of data.
func (s *Store) Save(_ context.Context, name string, data []byte) error {
	if name == "" {
		return fmt.Errorf("document name cannot be empty")
	}
	s.mu.Lock()
	s.data[name] = append([]byte(nil), data...)
	s.mu.Unlock()
	s.notify(name)
	return nil
}

// Load returns a copy of the stored document.
func (s *Store) Load(_ context.Context, name string) ([]byte, error) {
	if name == "" {
		return nil, fmt.Errorf("document name cannot be empty")
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, ok := s.data[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrDocumentNotFound, name)
	}
	return append([]byte(nil), data...), nil
}

// Delete removes the document.
func (s *Store) Delete(_ context.Context, name string) error {
	s.mu.Lock()
	_, existed := s.data[name]
	delete(s.data, name)
	s.mu.Unlock()
	if existed {
		s.notify(name)
	}
	return nil
}

// List returns the stored names, sorted.
func (s *Store) List(context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	names := make([]string, 0, len(s.data))
	for name := range s.data {
		names = append(names, name)
	}
	sort.Strings(names)
	return names, nil
}

// Watch reports every saved or deleted document name until ctx is done.
func (s *Store) Watch(ctx context.Context) (<-chan string, error) {
	w := &watcher{ctx: ctx, ch: make(chan string, 16)}
	s.mu.Lock()
	key := s.nextKey
	s.nextKey++
	s.watchers[key] = w
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.watchers, key)
		close(w.ch)
		s.mu.Unlock()
	}()
	return w.ch, nil
}

func (s *Store) notify(name string) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, w := range s.watchers {
		select {
		case w.ch <- name:
		case <-w.ctx.Done():
		}
	}
}
