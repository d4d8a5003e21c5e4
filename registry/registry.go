// Package registry holds named client handles and orchestrates their
// construction from a loaded schema document.
package registry

import (
	"fmt"
	"sort"
	"sync"

	appsheet "github.com/shibukawa/appsheet"
)

// Registry maps connection names to client handles. It is built wholesale
// during manager initialization and replaced wholesale on reload.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]appsheet.Connection
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]appsheet.Connection)}
}

// Register adds or replaces a named connection.
func (r *Registry) Register(name string, conn appsheet.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns[name] = conn
}

// Get returns the connection registered under a name.
func (r *Registry) Get(name string) (appsheet.Connection, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	conn, ok := r.conns[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", appsheet.ErrUnknownConnection, name)
	}

	return conn, nil
}

// Names lists registered connection names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.conns))
	for name := range r.conns {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// ReplaceAll swaps the whole connection map in one step.
func (r *Registry) ReplaceAll(conns map[string]appsheet.Connection) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.conns = conns
}
