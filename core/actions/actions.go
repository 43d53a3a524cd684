// Package actions provides the registry of custom action handlers.
// The model-configuration document binds action names to handler
// identifiers; the handlers themselves are registered here by the host
// application and invoked by the serving layer at dispatch time.
package actions

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// Request carries the dispatch context for one action invocation.
type Request struct {
	// Model is the "<app>.<model>" key the action was invoked on.
	Model string

	// Record is the acting record for detail (view) actions, nil for
	// list actions.
	Record map[string]any

	// Input is the decoded request payload.
	Input map[string]any
}

// Handler executes a custom action and returns its result document.
type Handler func(ctx context.Context, req Request) (map[string]any, error)

// Definition is a registered action: its handler plus the initial input
// payload returned to clients that GET the action endpoint.
type Definition struct {
	Handler  Handler
	Template map[string]any
}

// Registry manages callable action handlers keyed by identifier.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]Definition
}

// New creates an empty handler registry.
func New() *Registry {
	return &Registry{defs: make(map[string]Definition)}
}

// Register adds a handler under its identifier, replacing any previous one.
func (r *Registry) Register(name string, def Definition) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[name] = def
}

// Call invokes a registered handler by identifier.
// Returns an error if the handler is not registered.
func (r *Registry) Call(ctx context.Context, name string, req Request) (map[string]any, error) {
	r.mu.RLock()
	def, ok := r.defs[name]
	r.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("action handler %q not registered", name)
	}

	return def.Handler(ctx, req)
}

// Template returns the initial input payload for a handler.
func (r *Registry) Template(name string) (map[string]any, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	def, ok := r.defs[name]
	if !ok {
		return nil, false
	}
	return def.Template, true
}

// Has checks if a handler is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.defs[name]
	return ok
}

// List returns all registered handler identifiers, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.defs))
	for name := range r.defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
