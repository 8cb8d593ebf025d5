package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"brandstudio/internal/domain"
)

// DefaultTTL is how long an untouched session survives.
const DefaultTTL = 2 * time.Hour

// Manager keeps the live sessions of the process.
type Manager struct {
	deps   Dependencies
	ttl    time.Duration
	hub    *Hub
	logger zerolog.Logger

	mu       sync.Mutex
	sessions map[string]*entry
}

type entry struct {
	session  *Session
	lastSeen time.Time
}

func NewManager(deps Dependencies, ttl time.Duration) *Manager {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Manager{
		deps:     deps,
		ttl:      ttl,
		hub:      NewHub(),
		logger:   deps.Logger,
		sessions: make(map[string]*entry),
	}
}

func (m *Manager) Hub() *Hub { return m.hub }

// Create starts a new idle session.
func (m *Manager) Create(locale string) *Session {
	id := uuid.NewString()
	s := New(id, locale, m.deps, m.hub.Publish)

	m.mu.Lock()
	m.sessions[id] = &entry{session: s, lastSeen: m.deps.now()}
	total := len(m.sessions)
	m.mu.Unlock()

	m.logger.Info().Str("session", id).Str("locale", s.Locale()).Int("active", total).Msg("session: created")
	return s
}

// Get returns a session and marks it as recently used.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.sessions[id]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	e.lastSeen = m.deps.now()
	return e.session, nil
}

func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return domain.ErrSessionNotFound
	}
	m.hub.CloseSession(id)
	m.logger.Info().Str("session", id).Msg("session: deleted")
	return nil
}

func (m *Manager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Sweep drops every session idle for longer than the TTL at now and returns
// how many were removed.
func (m *Manager) Sweep(now time.Time) int {
	var expired []string
	m.mu.Lock()
	for id, e := range m.sessions {
		if now.Sub(e.lastSeen) > m.ttl {
			expired = append(expired, id)
			delete(m.sessions, id)
		}
	}
	m.mu.Unlock()

	for _, id := range expired {
		m.hub.CloseSession(id)
	}
	if len(expired) > 0 {
		m.logger.Info().Int("expired", len(expired)).Msg("session: janitor evicted idle sessions")
	}
	return len(expired)
}

// Run sweeps periodically until ctx is done.
func (m *Manager) Run(ctx context.Context) {
	interval := m.ttl / 4
	if interval > time.Minute {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.Sweep(m.deps.now())
		}
	}
}

// Close drops all sessions and their subscriptions.
func (m *Manager) Close() {
	m.mu.Lock()
	ids := make([]string, 0, len(m.sessions))
	for id := range m.sessions {
		ids = append(ids, id)
	}
	m.sessions = make(map[string]*entry)
	m.mu.Unlock()

	for _, id := range ids {
		m.hub.CloseSession(id)
	}
}
