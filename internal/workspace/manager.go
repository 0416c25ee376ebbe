package workspace

import (
	"sync"

	"github.com/extforge/extforge/internal/event"
	"github.com/extforge/extforge/internal/provider"
)

// GeneratorSource returns the generator a scope's rounds should use.
type GeneratorSource func(scope string) provider.Generator

// Manager keeps one Workspace per identity scope for the life of the
// process.
type Manager struct {
	source GeneratorSource
	bus    *event.Bus

	mu         sync.Mutex
	workspaces map[string]*Workspace
}

// NewManager creates a manager. bus may be nil.
func NewManager(source GeneratorSource, bus *event.Bus) *Manager {
	return &Manager{
		source:     source,
		bus:        bus,
		workspaces: make(map[string]*Workspace),
	}
}

// Get returns the scope's workspace, creating it on first use.
func (m *Manager) Get(scope string) *Workspace {
	m.mu.Lock()
	defer m.mu.Unlock()

	w, ok := m.workspaces[scope]
	if !ok {
		w = New(scope, m.source(scope), m.bus)
		m.workspaces[scope] = w
	}
	return w
}

// Len returns the number of live workspaces.
func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.workspaces)
}
