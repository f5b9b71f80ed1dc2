package session

import (
	"sync"
	"time"

	"github.com/sammcj/goose/internal/infrastructure/monitoring"
	"github.com/sammcj/goose/internal/shared/id"
)

// Manager tracks live sessions.
type Manager struct {
	mu       sync.RWMutex
	sessions map[id.SessionID]*Session
	metrics  *monitoring.Metrics
}

// NewManager creates a session manager.
func NewManager() *Manager {
	return &Manager{sessions: make(map[id.SessionID]*Session)}
}

// WithMetrics adds metrics tracking to the manager.
func (m *Manager) WithMetrics(metrics *monitoring.Metrics) *Manager {
	m.metrics = metrics
	return m
}

// Create registers a new session bound to an agent backend.
func (m *Manager) Create(backendAddr, backendSecret string) *Session {
	now := time.Now()
	s := &Session{
		ID:            id.NewSessionID(),
		BackendAddr:   backendAddr,
		BackendSecret: backendSecret,
		CreatedAt:     now,
		LastActiveAt:  now,
	}

	m.mu.Lock()
	m.sessions[s.ID] = s
	count := len(m.sessions)
	m.mu.Unlock()

	if m.metrics != nil {
		m.metrics.SetSessionsActive(count)
	}
	return s
}

// Get retrieves a session by ID.
func (m *Manager) Get(sessionID id.SessionID) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	s, ok := m.sessions[sessionID]
	return s, ok
}

// Touch updates a session's last-active time.
func (m *Manager) Touch(sessionID id.SessionID) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		s.LastActiveAt = time.Now()
	}
}

// Close removes a session. Reports whether it existed.
func (m *Manager) Close(sessionID id.SessionID) bool {
	m.mu.Lock()
	_, ok := m.sessions[sessionID]
	delete(m.sessions, sessionID)
	count := len(m.sessions)
	m.mu.Unlock()

	if ok && m.metrics != nil {
		m.metrics.SetSessionsActive(count)
	}
	return ok
}

// List returns all live sessions.
func (m *Manager) List() []*Session {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live sessions.
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
