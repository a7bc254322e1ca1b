// Package pool manages one sqlbridge connector per named connection
// profile, creating them lazily and rebuilding the set when profiles are
// reloaded.
package pool

import (
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog/log"

	"github.com/driftworks/sqlbridge"
	"github.com/driftworks/sqlbridge/internal/profiles"
)

// ErrUnknownConnection is returned by Get for names absent from the
// profiles file.
var ErrUnknownConnection = errors.New("unknown connection")

// Manager holds the live connectors for a profiles file.
type Manager struct {
	mu    sync.Mutex
	file  *profiles.File
	conns map[string]*sqlbridge.Connector
}

// NewManager creates a manager over the given profiles.
func NewManager(f *profiles.File) *Manager {
	return &Manager{
		file:  f,
		conns: make(map[string]*sqlbridge.Connector),
	}
}

// Get returns the connector for a named connection, creating it on first
// use.
func (m *Manager) Get(name string) (*sqlbridge.Connector, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if conn, ok := m.conns[name]; ok {
		return conn, nil
	}

	profile, ok := m.file.Connections[name]
	if !ok {
		return nil, fmt.Errorf("%w %q", ErrUnknownConnection, name)
	}
	cfg, err := profile.Config()
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}
	conn, err := sqlbridge.NewConnector(cfg)
	if err != nil {
		return nil, fmt.Errorf("connection %q: %w", name, err)
	}
	m.conns[name] = conn
	return conn, nil
}

// Names returns the configured connection names in sorted order.
func (m *Manager) Names() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.file.Names()
}

// Reload swaps in a new profiles file and disposes every open connector;
// they are recreated on next use.
func (m *Manager) Reload(f *profiles.File) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.closeLocked()
	m.file = f
}

// Close disposes every open connector.
func (m *Manager) Close() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closeLocked()
}

func (m *Manager) closeLocked() {
	for name, conn := range m.conns {
		if err := conn.Close(); err != nil {
			log.Error().Err(err).Str("connection", name).Msg("Failed to close connector")
		}
		delete(m.conns, name)
	}
}
