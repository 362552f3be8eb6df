package mocks

import (
	"context"
	"sync"
	"time"

	"github.com/you/fueltrack/domain"
)

// MockSessionRepository implements domain.SessionRepository interface for testing.
// Without overrides it keeps sessions in memory.
type MockSessionRepository struct {
	CreateFunc        func(ctx context.Context, session *domain.Session) error
	FindByIDFunc      func(ctx context.Context, sessionID string) (*domain.Session, error)
	TouchFunc         func(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) error
	DeleteFunc        func(ctx context.Context, sessionID string) error
	DeleteByUserFunc  func(ctx context.Context, userID uint) error
	DeleteExpiredFunc func(ctx context.Context, now time.Time) (int64, error)
	UpdateEmailFunc   func(ctx context.Context, userID uint, email string) error
	StatsFunc         func(ctx context.Context, now time.Time) (domain.SessionStats, error)

	mu       sync.Mutex
	sessions map[string]domain.Session
}

// NewMockSessionRepository creates a new MockSessionRepository with default behaviors
func NewMockSessionRepository() *MockSessionRepository {
	return &MockSessionRepository{sessions: make(map[string]domain.Session)}
}

// Create stores a session
func (m *MockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[session.ID] = *session
	return nil
}

// FindByID loads a session
func (m *MockSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	return &s, nil
}

// Touch refreshes session activity
func (m *MockSessionRepository) Touch(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) error {
	if m.TouchFunc != nil {
		return m.TouchFunc(ctx, sessionID, lastActivity, expiresAt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return domain.ErrSessionNotFound
	}
	s.LastActivity = lastActivity
	s.ExpiresAt = expiresAt
	m.sessions[sessionID] = s
	return nil
}

// Delete removes a session
func (m *MockSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	return nil
}

// DeleteByUser removes every session of a user
func (m *MockSessionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if m.DeleteByUserFunc != nil {
		return m.DeleteByUserFunc(ctx, userID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			delete(m.sessions, id)
		}
	}
	return nil
}

// DeleteExpired purges expired sessions
func (m *MockSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var n int64
	for id, s := range m.sessions {
		if !s.ExpiresAt.After(now) {
			delete(m.sessions, id)
			n++
		}
	}
	return n, nil
}

// UpdateEmail rewrites the email cached on a user's sessions
func (m *MockSessionRepository) UpdateEmail(ctx context.Context, userID uint, email string) error {
	if m.UpdateEmailFunc != nil {
		return m.UpdateEmailFunc(ctx, userID, email)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, s := range m.sessions {
		if s.UserID == userID {
			s.Email = email
			m.sessions[id] = s
		}
	}
	return nil
}

// Stats counts stored and unexpired sessions
func (m *MockSessionRepository) Stats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, now)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	stats := domain.SessionStats{Total: int64(len(m.sessions))}
	for _, s := range m.sessions {
		if s.ExpiresAt.After(now) {
			stats.Active++
		}
	}
	return stats, nil
}

// Len returns the number of stored sessions (test helper)
func (m *MockSessionRepository) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions)
}

// Compile-time interface compliance verification
var _ domain.SessionRepository = (*MockSessionRepository)(nil)
