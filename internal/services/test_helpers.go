package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/you/fueltrack/domain"
	"github.com/you/fueltrack/internal/mocks"
)

// testClock is a settable clock for deterministic time-based tests
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock() *testClock {
	return &testClock{now: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// createValidUser creates a valid user entity for testing
func createValidUser(t *testing.T) *domain.User {
	t.Helper()

	return &domain.User{
		ID:           1,
		Username:     "alice",
		Email:        "alice@example.com",
		FirstName:    "Alice",
		LastName:     "Doe",
		PasswordHash: mocks.FakeHash("Correct!1"),
		Role:         domain.RoleEmployee,
		IsActive:     true,
	}
}

// stubUserStore wires a MockUserRepository to a single in-memory user and
// applies failure counting the way the credential store does.
func stubUserStore(repo *mocks.MockUserRepository, user *domain.User) {
	var mu sync.Mutex
	find := func(ctx context.Context, identifier string) (*domain.User, error) {
		mu.Lock()
		defer mu.Unlock()
		if identifier != user.Username && identifier != user.Email {
			return nil, domain.ErrUserNotFound
		}
		cp := *user
		return &cp, nil
	}
	repo.FindByUsernameOrEmailFunc = find
	repo.FindByUsernameFunc = func(ctx context.Context, username string) (*domain.User, error) {
		if username != user.Username {
			return nil, domain.ErrUserNotFound
		}
		return find(ctx, username)
	}
	repo.FindByEmailFunc = func(ctx context.Context, email string) (*domain.User, error) {
		if email != user.Email {
			return nil, domain.ErrUserNotFound
		}
		return find(ctx, email)
	}
	repo.FindByIDFunc = func(ctx context.Context, id uint) (*domain.User, error) {
		if id != user.ID {
			return nil, domain.ErrUserNotFound
		}
		return find(ctx, user.Username)
	}
	repo.RecordFailedAttemptFunc = func(ctx context.Context, userID uint, maxAttempts int, lockUntil time.Time) (domain.LoginFailure, error) {
		mu.Lock()
		defer mu.Unlock()
		user.FailedLoginAttempts++
		f := domain.LoginFailure{Attempts: user.FailedLoginAttempts}
		if user.FailedLoginAttempts >= maxAttempts {
			lu := lockUntil
			user.LockedUntil = &lu
			f.LockedUntil = &lu
		}
		return f, nil
	}
	repo.RecordSuccessfulLoginFunc = func(ctx context.Context, userID uint, at time.Time) error {
		mu.Lock()
		defer mu.Unlock()
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		user.LastLogin = &at
		return nil
	}
	repo.UpdatePasswordFunc = func(ctx context.Context, userID uint, passwordHash string) error {
		mu.Lock()
		defer mu.Unlock()
		user.PasswordHash = passwordHash
		user.FailedLoginAttempts = 0
		user.LockedUntil = nil
		return nil
	}
}

// authFixture bundles an AuthService with its collaborators
type authFixture struct {
	svc      domain.AuthService
	users    *mocks.MockUserRepository
	sessions *mocks.MockSessionRepository
	manager  *SessionManager
	limiter  *mocks.MockRateLimiter
	events   *mocks.MockSecurityEventLog
	clock    *testClock
}

func defaultAuthConfig() AuthConfig {
	return AuthConfig{
		MaxLoginAttempts: 5,
		LockoutTime:      time.Minute,
		RateLimitMax:     5,
		RateLimitWindow:  time.Minute,
	}
}

// createAuthServiceForTest creates an AuthService with mock dependencies for testing
func createAuthServiceForTest(t *testing.T, cfg AuthConfig) *authFixture {
	t.Helper()

	f := &authFixture{
		users:    mocks.NewMockUserRepository(),
		sessions: mocks.NewMockSessionRepository(),
		limiter:  mocks.NewMockRateLimiter(),
		events:   mocks.NewMockSecurityEventLog(),
		clock:    newTestClock(),
	}
	f.manager = NewSessionManager(f.sessions, f.events, 30*time.Minute, f.clock.Now)
	f.svc = NewAuthService(f.users, f.manager, f.limiter, mocks.NewMockPasswordService(), f.events, cfg, f.clock.Now)
	return f
}

func clientA() domain.ClientContext {
	return domain.ClientContext{IPAddress: "1.2.3.4", UserAgent: "UA-A"}
}

// assertEventTypes compares recorded event types in order, treating nil and empty alike
func assertEventTypes(t *testing.T, expected, got []domain.SecurityEventType) {
	t.Helper()
	if len(expected) == 0 {
		assert.Empty(t, got)
		return
	}
	assert.Equal(t, expected, got)
}
