package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// sessionIDBytes yields 64 hex characters
const sessionIDBytes = 32

// SessionManager issues, validates and destroys server-side sessions
type SessionManager struct {
	repo     domain.SessionRepository
	events   domain.SecurityEventLog
	lifetime time.Duration
	nowFn    func() time.Time
	logger   *log.Entry
}

// NewSessionManager creates a session manager. lifetime is the idle timeout.
func NewSessionManager(repo domain.SessionRepository, events domain.SecurityEventLog, lifetime time.Duration, nowFn func() time.Time) *SessionManager {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &SessionManager{
		repo:     repo,
		events:   events,
		lifetime: lifetime,
		nowFn:    nowFn,
		logger:   log.WithField("component", "sessions"),
	}
}

// Lifetime returns the idle timeout
func (m *SessionManager) Lifetime() time.Duration {
	return m.lifetime
}

// NewSessionID returns a random 64 character hex identifier
func NewSessionID() (string, error) {
	b := make([]byte, sessionIDBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate session id: %w", err)
	}
	return hex.EncodeToString(b), nil
}

// Create starts a session for user bound to client. previousSessionID, when
// set, is destroyed first so a pre-login identifier never survives login.
func (m *SessionManager) Create(ctx context.Context, user *domain.User, client domain.ClientContext, previousSessionID string) (*domain.Session, error) {
	if previousSessionID != "" {
		if err := m.repo.Delete(ctx, previousSessionID); err != nil {
			return nil, fmt.Errorf("failed to discard previous session: %w", err)
		}
	}

	id, err := NewSessionID()
	if err != nil {
		return nil, err
	}

	now := m.nowFn().UTC()
	session := &domain.Session{
		ID:           id,
		UserID:       user.ID,
		Username:     user.Username,
		Email:        user.Email,
		Role:         user.Role,
		IPAddress:    client.IPAddress,
		UserAgent:    client.UserAgent,
		CreatedAt:    now,
		LastActivity: now,
		ExpiresAt:    now.Add(m.lifetime),
	}
	if err := m.repo.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

// Validate checks the session presented by client. On ErrSessionExpired and
// ErrSessionHijack the stale session is destroyed and also returned so the
// caller knows whose session ended.
func (m *SessionManager) Validate(ctx context.Context, sessionID string, client domain.ClientContext) (*domain.Session, error) {
	if sessionID == "" {
		return nil, domain.ErrSessionNotFound
	}

	session, err := m.repo.FindByID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	now := m.nowFn().UTC()
	if session.Idle(now, m.lifetime) {
		m.destroyQuietly(ctx, sessionID)
		m.record(ctx, domain.NewSecurityEvent(domain.SessionExpiredEvent, "Session expired after inactivity").
			WithUser(session.UserID).WithClientContext(&client))
		return session, domain.ErrSessionExpired
	}

	if !session.MatchesClient(client) {
		m.destroyQuietly(ctx, sessionID)
		desc := fmt.Sprintf("Session hijacking detected: bound %s, presented %s", session.IPAddress, client.IPAddress)
		m.record(ctx, domain.NewSecurityEvent(domain.SessionHijackEvent, desc).
			WithUser(session.UserID).WithClientContext(&client).WithSeverity(domain.SeverityCritical))
		return session, domain.ErrSessionHijack
	}

	if err := m.repo.Touch(ctx, sessionID, now, now.Add(m.lifetime)); err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	session.LastActivity = now
	session.ExpiresAt = now.Add(m.lifetime)
	return session, nil
}

// Destroy removes a session. Unknown identifiers are not an error.
func (m *SessionManager) Destroy(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("failed to destroy session: %w", err)
	}
	return nil
}

// DestroyAllForUser removes every session owned by userID
func (m *SessionManager) DestroyAllForUser(ctx context.Context, userID uint) error {
	if err := m.repo.DeleteByUser(ctx, userID); err != nil {
		return fmt.Errorf("failed to destroy user sessions: %w", err)
	}
	return nil
}

// UpdateEmail refreshes the email cached on every session of userID
func (m *SessionManager) UpdateEmail(ctx context.Context, userID uint, email string) error {
	if err := m.repo.UpdateEmail(ctx, userID, email); err != nil {
		return fmt.Errorf("failed to update session email: %w", err)
	}
	return nil
}

// Stats counts stored and unexpired sessions
func (m *SessionManager) Stats(ctx context.Context) (domain.SessionStats, error) {
	stats, err := m.repo.Stats(ctx, m.nowFn().UTC())
	if err != nil {
		return stats, fmt.Errorf("failed to count sessions: %w", err)
	}
	return stats, nil
}

// PurgeExpired drops sessions whose expiry has passed in stores that do not expire keys themselves
func (m *SessionManager) PurgeExpired(ctx context.Context) (int64, error) {
	n, err := m.repo.DeleteExpired(ctx, m.nowFn().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", err)
	}
	return n, nil
}

func (m *SessionManager) destroyQuietly(ctx context.Context, sessionID string) {
	if err := m.repo.Delete(ctx, sessionID); err != nil {
		m.logger.WithError(err).Error("failed to destroy invalid session")
	}
}

func (m *SessionManager) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := m.events.Record(ctx, event); err != nil {
		m.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}
