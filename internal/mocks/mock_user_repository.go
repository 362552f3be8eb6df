package mocks

import (
	"context"
	"time"

	"github.com/you/fueltrack/domain"
)

// MockUserRepository implements domain.UserRepository interface for testing
type MockUserRepository struct {
	CreateFunc                func(ctx context.Context, user *domain.User) error
	FindByIDFunc              func(ctx context.Context, id uint) (*domain.User, error)
	FindByUsernameFunc        func(ctx context.Context, username string) (*domain.User, error)
	FindByEmailFunc           func(ctx context.Context, email string) (*domain.User, error)
	FindByUsernameOrEmailFunc func(ctx context.Context, identifier string) (*domain.User, error)
	RecordFailedAttemptFunc   func(ctx context.Context, userID uint, maxAttempts int, lockUntil time.Time) (domain.LoginFailure, error)
	RecordSuccessfulLoginFunc func(ctx context.Context, userID uint, at time.Time) error
	UpdatePasswordFunc        func(ctx context.Context, userID uint, passwordHash string) error
	UpdateProfileFunc         func(ctx context.Context, userID uint, update domain.UserProfileUpdate) error
	SetActiveFunc             func(ctx context.Context, userID uint, active bool) error
	SetRoleFunc               func(ctx context.Context, userID uint, role string) error
	UnlockFunc                func(ctx context.Context, userID uint) error
	UnlockAllFunc             func(ctx context.Context) (int64, error)
	StatsFunc                 func(ctx context.Context, now time.Time) (domain.UserStats, error)
	ListFunc                  func(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error)
	CountActiveAdminsFunc     func(ctx context.Context) (int64, error)
}

// NewMockUserRepository creates a new MockUserRepository with default behaviors
func NewMockUserRepository() *MockUserRepository {
	return &MockUserRepository{}
}

// Create creates a new user
func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, user)
	}
	user.ID = 1
	return nil
}

// FindByID finds a user by ID
func (m *MockUserRepository) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	if m.FindByIDFunc != nil {
		return m.FindByIDFunc(ctx, id)
	}
	return nil, domain.ErrUserNotFound
}

// FindByUsername finds a user by username
func (m *MockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	if m.FindByUsernameFunc != nil {
		return m.FindByUsernameFunc(ctx, username)
	}
	return nil, domain.ErrUserNotFound
}

// FindByEmail finds a user by email
func (m *MockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.FindByEmailFunc != nil {
		return m.FindByEmailFunc(ctx, email)
	}
	return nil, domain.ErrUserNotFound
}

// FindByUsernameOrEmail finds a user by either identifier
func (m *MockUserRepository) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error) {
	if m.FindByUsernameOrEmailFunc != nil {
		return m.FindByUsernameOrEmailFunc(ctx, identifier)
	}
	return nil, domain.ErrUserNotFound
}

// RecordFailedAttempt records a failed password attempt
func (m *MockUserRepository) RecordFailedAttempt(ctx context.Context, userID uint, maxAttempts int, lockUntil time.Time) (domain.LoginFailure, error) {
	if m.RecordFailedAttemptFunc != nil {
		return m.RecordFailedAttemptFunc(ctx, userID, maxAttempts, lockUntil)
	}
	return domain.LoginFailure{Attempts: 1}, nil
}

// RecordSuccessfulLogin clears the failure counter
func (m *MockUserRepository) RecordSuccessfulLogin(ctx context.Context, userID uint, at time.Time) error {
	if m.RecordSuccessfulLoginFunc != nil {
		return m.RecordSuccessfulLoginFunc(ctx, userID, at)
	}
	return nil
}

// UpdatePassword stores a new password hash
func (m *MockUserRepository) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	if m.UpdatePasswordFunc != nil {
		return m.UpdatePasswordFunc(ctx, userID, passwordHash)
	}
	return nil
}

// UpdateProfile updates profile fields
func (m *MockUserRepository) UpdateProfile(ctx context.Context, userID uint, update domain.UserProfileUpdate) error {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, userID, update)
	}
	return nil
}

// SetActive toggles the active flag
func (m *MockUserRepository) SetActive(ctx context.Context, userID uint, active bool) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, userID, active)
	}
	return nil
}

// SetRole changes the user's role
func (m *MockUserRepository) SetRole(ctx context.Context, userID uint, role string) error {
	if m.SetRoleFunc != nil {
		return m.SetRoleFunc(ctx, userID, role)
	}
	return nil
}

// Unlock clears lockout state
func (m *MockUserRepository) Unlock(ctx context.Context, userID uint) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, userID)
	}
	return nil
}

// UnlockAll clears every lockout
func (m *MockUserRepository) UnlockAll(ctx context.Context) (int64, error) {
	if m.UnlockAllFunc != nil {
		return m.UnlockAllFunc(ctx)
	}
	return 0, nil
}

// Stats counts non-admin accounts
func (m *MockUserRepository) Stats(ctx context.Context, now time.Time) (domain.UserStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx, now)
	}
	return domain.UserStats{}, nil
}

// List lists users
func (m *MockUserRepository) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

// CountActiveAdmins counts active admin accounts
func (m *MockUserRepository) CountActiveAdmins(ctx context.Context) (int64, error) {
	if m.CountActiveAdminsFunc != nil {
		return m.CountActiveAdminsFunc(ctx)
	}
	return 1, nil
}

// Compile-time interface compliance verification
var _ domain.UserRepository = (*MockUserRepository)(nil)
