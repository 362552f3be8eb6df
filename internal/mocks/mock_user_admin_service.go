package mocks

import (
	"context"

	"github.com/you/fueltrack/domain"
)

// MockUserAdminService implements domain.UserAdminService interface for testing
type MockUserAdminService struct {
	ListFunc      func(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error)
	CreateFunc    func(ctx context.Context, actor *domain.CurrentUser, req domain.CreateUserRequest) (*domain.User, error)
	SetActiveFunc func(ctx context.Context, actor *domain.CurrentUser, userID uint, active bool, client domain.ClientContext) error
	UnlockFunc    func(ctx context.Context, actor *domain.CurrentUser, userID uint, client domain.ClientContext) error
	UpdateFunc    func(ctx context.Context, actor *domain.CurrentUser, userID uint, update domain.UserProfileUpdate, role string, client domain.ClientContext) error
}

// NewMockUserAdminService creates a new MockUserAdminService with default behaviors
func NewMockUserAdminService() *MockUserAdminService {
	return &MockUserAdminService{}
}

// List lists users
func (m *MockUserAdminService) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, filter)
	}
	return nil, 0, nil
}

// Create adds an account with the requested role
func (m *MockUserAdminService) Create(ctx context.Context, actor *domain.CurrentUser, req domain.CreateUserRequest) (*domain.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, actor, req)
	}
	return &domain.User{ID: 2, Username: req.Username, Email: req.Email, Role: req.Role, IsActive: true}, nil
}

// SetActive toggles a user's active flag
func (m *MockUserAdminService) SetActive(ctx context.Context, actor *domain.CurrentUser, userID uint, active bool, client domain.ClientContext) error {
	if m.SetActiveFunc != nil {
		return m.SetActiveFunc(ctx, actor, userID, active, client)
	}
	return nil
}

// Unlock clears a lockout
func (m *MockUserAdminService) Unlock(ctx context.Context, actor *domain.CurrentUser, userID uint, client domain.ClientContext) error {
	if m.UnlockFunc != nil {
		return m.UnlockFunc(ctx, actor, userID, client)
	}
	return nil
}

// Update edits a user's profile and role
func (m *MockUserAdminService) Update(ctx context.Context, actor *domain.CurrentUser, userID uint, update domain.UserProfileUpdate, role string, client domain.ClientContext) error {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, actor, userID, update, role, client)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.UserAdminService = (*MockUserAdminService)(nil)
