package studio

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tiedye/internal/apperr"
	"github.com/starford/tiedye/internal/metrics"
)

// Option configures a Manager.
type Option func(*Manager)

// WithEvents forwards every session notification to sink.
func WithEvents(sink EventSink) Option {
	return func(m *Manager) {
		m.events = sink
	}
}

// WithMetrics records session activity in m.
func WithMetrics(mt *metrics.Metrics) Option {
	return func(m *Manager) {
		m.metrics = mt
	}
}

// WithMaxSessions bounds the number of live sessions.
func WithMaxSessions(n int) Option {
	return func(m *Manager) {
		if n > 0 {
			m.maxSessions = n
		}
	}
}

// DefaultMaxSessions is the session limit when none is configured.
const DefaultMaxSessions = 64

// Manager owns the live sessions.
type Manager struct {
	cfg         Config
	logger      *slog.Logger
	events      EventSink
	metrics     *metrics.Metrics
	maxSessions int

	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewManager returns a manager creating sessions from cfg.
func NewManager(cfg Config, logger *slog.Logger, opts ...Option) *Manager {
	m := &Manager{
		cfg:         cfg,
		logger:      logger,
		maxSessions: DefaultMaxSessions,
		sessions:    make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Config returns the configuration new sessions are built from.
func (m *Manager) Config() Config { return m.cfg }

// Create starts a new session. It fails with apperr.ErrTooManySessions once
// the session limit is reached.
func (m *Manager) Create() (*Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.sessions) >= m.maxSessions {
		return nil, apperr.ErrTooManySessions
	}
	id := uuid.NewString()
	s := NewSession(id, m.cfg, m.logger, m.events, m.metrics)
	m.sessions[id] = s
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(len(m.sessions)))
	}
	m.logger.Info("studio: session created", slog.String("session", id))
	return s, nil
}

// Get returns the session with the given id.
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("session %q: %w", id, apperr.ErrNotFound)
	}
	return s, nil
}

// Delete closes and forgets a session.
func (m *Manager) Delete(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	if ok {
		delete(m.sessions, id)
	}
	n := len(m.sessions)
	m.mu.Unlock()
	if !ok {
		return fmt.Errorf("session %q: %w", id, apperr.ErrNotFound)
	}
	if m.metrics != nil {
		m.metrics.SessionsActive.Set(float64(n))
	}
	m.logger.Info("studio: session deleted", slog.String("session", id))
	return s.Close()
}

// Summary is a list entry for a session.
type Summary struct {
	ID         string    `json:"id"`
	CreatedAt  time.Time `json:"created_at"`
	Folds      int       `json:"folds"`
	LayerCount int       `json:"layer_count"`
	DyePoints  int       `json:"dye_points"`
}

// List returns every session, oldest first.
func (m *Manager) List() []Summary {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	out := make([]Summary, len(sessions))
	for i, s := range sessions {
		st := s.State()
		out[i] = Summary{
			ID:         st.ID,
			CreatedAt:  st.CreatedAt,
			Folds:      len(st.Folds),
			LayerCount: st.LayerCount,
			DyePoints:  st.DyePoints,
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out
}

// Close closes every session.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := m.sessions
	m.sessions = make(map[string]*Session)
	m.mu.Unlock()
	for _, s := range sessions {
		_ = s.Close()
	}
}
