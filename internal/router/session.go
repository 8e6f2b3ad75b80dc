package router

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/scry-tutor/internal/domain"
)

// Session is the per-user routing state carried between turns.
type Session struct {
	UserID uuid.UUID `json:"user_id"`
	State  State     `json:"state"`

	// RecentTopics is the bounded topic window, oldest first. It restarts
	// whenever a quest completes.
	RecentTopics []domain.ConceptID `json:"recent_topics,omitempty"`

	// MasteryEstimates holds the latest profiler estimate per concept since
	// that concept was last completed.
	MasteryEstimates map[domain.ConceptID]float64 `json:"mastery_estimates,omitempty"`

	TurnCount int       `json:"turn_count"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates an idle session for userID.
func NewSession(userID uuid.UUID) *Session {
	return &Session{
		UserID:           userID,
		State:            Idle(),
		MasteryEstimates: make(map[domain.ConceptID]float64),
	}
}

// Clone returns a deep copy. A nil session clones to nil.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	c.RecentTopics = slices.Clone(s.RecentTopics)
	c.MasteryEstimates = maps.Clone(s.MasteryEstimates)
	if c.MasteryEstimates == nil {
		c.MasteryEstimates = make(map[domain.ConceptID]float64)
	}
	return &c
}

// recordTopic appends topic to the window, dropping the oldest entries beyond
// window.
func (s *Session) recordTopic(topic domain.ConceptID, window int) {
	if topic.IsZero() {
		return
	}
	s.RecentTopics = append(s.RecentTopics, topic)
	if window > 0 && len(s.RecentTopics) > window {
		s.RecentTopics = slices.Clone(s.RecentTopics[len(s.RecentTopics)-window:])
	}
}

// SessionStore persists sessions between turns. The router holds the user's
// turn lock around every Load/Save pair.
type SessionStore interface {
	// Load returns the user's session, or a fresh idle session if none exists.
	Load(ctx context.Context, userID uuid.UUID) (*Session, error)

	// Save replaces the stored session for sess.UserID.
	Save(ctx context.Context, sess *Session) error
}

// MemorySessionStore keeps sessions in process memory.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[uuid.UUID]*Session
}

// NewMemorySessionStore creates an empty store.
func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[uuid.UUID]*Session)}
}

// Load implements SessionStore.
func (m *MemorySessionStore) Load(ctx context.Context, userID uuid.UUID) (*Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if s, ok := m.sessions[userID]; ok {
		return s.Clone(), nil
	}
	return NewSession(userID), nil
}

// Save implements SessionStore.
func (m *MemorySessionStore) Save(ctx context.Context, sess *Session) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[sess.UserID] = sess.Clone()
	return nil
}
