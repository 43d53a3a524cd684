// Package registry manages registered models and their route prefixes.
// It ensures models don't claim conflicting prefixes and provides lookup
// for the serving layer.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/pnpstats/adminapi/core/schema"
)

// Entry is a registered model together with its key.
type Entry struct {
	// Key is the "<app>.<model>" identifier.
	Key string

	// App and Name are the two halves of the key.
	App  string
	Name string

	// Model is the exposure configuration.
	Model schema.Model
}

// Prefix returns the normalized route prefix (no surrounding slashes).
func (e Entry) Prefix() string {
	return strings.Trim(strings.TrimSpace(e.Model.Prefix), "/")
}

// Registry holds registered models, indexed by key and by prefix.
type Registry struct {
	mu       sync.RWMutex
	models   map[string]Entry
	prefixes map[string]string // prefix -> key
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{
		models:   make(map[string]Entry),
		prefixes: make(map[string]string),
	}
}

// FromDocument builds a registry from a parsed document.
// The document is assumed validated; conflicts still return an error.
func FromDocument(doc schema.Document) (*Registry, error) {
	r := New()
	for _, key := range doc.Keys() {
		if err := r.Register(key, doc.Models[key]); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a model under its key. It returns an error when the key
// is malformed, already registered, or the prefix is already claimed.
func (r *Registry) Register(key string, model schema.Model) error {
	app, name, err := schema.SplitKey(key)
	if err != nil {
		return err
	}

	entry := Entry{Key: key, App: app, Name: name, Model: model}
	prefix := entry.Prefix()
	if prefix == "" {
		return fmt.Errorf("model %q has no prefix", key)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.models[key]; exists {
		return fmt.Errorf("model %q already registered", key)
	}
	if other, claimed := r.prefixes[prefix]; claimed {
		return &schema.PrefixConflictError{Prefix: prefix, Keys: []string{other, key}}
	}

	r.models[key] = entry
	r.prefixes[prefix] = key
	return nil
}

// Unregister removes a model by key.
func (r *Registry) Unregister(key string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, exists := r.models[key]
	if !exists {
		return fmt.Errorf("model %q not registered", key)
	}

	delete(r.prefixes, entry.Prefix())
	delete(r.models, key)
	return nil
}

// Get returns a registered model by key.
func (r *Registry) Get(key string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, ok := r.models[key]
	return entry, ok
}

// ByPrefix returns the model mounted at the given prefix.
func (r *Registry) ByPrefix(prefix string) (Entry, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	key, ok := r.prefixes[strings.Trim(prefix, "/")]
	if !ok {
		return Entry{}, false
	}
	return r.models[key], true
}

// List returns all registered models sorted by key.
func (r *Registry) List() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries := make([]Entry, 0, len(r.models))
	for _, entry := range r.models {
		entries = append(entries, entry)
	}

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Key < entries[j].Key
	})

	return entries
}

// Len returns the number of registered models.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
