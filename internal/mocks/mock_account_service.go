package mocks

import (
	"context"

	"github.com/you/fueltrack/domain"
)

// MockAccountService implements domain.AccountService interface for testing
type MockAccountService struct {
	RegisterFunc             func(ctx context.Context, req domain.RegisterRequest) (*domain.User, error)
	ProfileFunc              func(ctx context.Context, userID uint) (*domain.User, error)
	UpdateProfileFunc        func(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error)
	ChangePasswordFunc       func(ctx context.Context, req domain.ChangePasswordRequest) error
	RequestPasswordResetFunc func(ctx context.Context, email string, client domain.ClientContext) error
	ResetPasswordFunc        func(ctx context.Context, req domain.ResetPasswordRequest) error
}

// NewMockAccountService creates a new MockAccountService with default behaviors
func NewMockAccountService() *MockAccountService {
	return &MockAccountService{}
}

// Register creates an account
func (m *MockAccountService) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	if m.RegisterFunc != nil {
		return m.RegisterFunc(ctx, req)
	}
	return &domain.User{ID: 1, Username: req.Username, Email: req.Email, Role: domain.RoleEmployee, IsActive: true}, nil
}

// Profile loads the owner's account
func (m *MockAccountService) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	if m.ProfileFunc != nil {
		return m.ProfileFunc(ctx, userID)
	}
	return &domain.User{ID: userID, Role: domain.RoleEmployee, IsActive: true}, nil
}

// UpdateProfile edits the owner's names and email
func (m *MockAccountService) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	if m.UpdateProfileFunc != nil {
		return m.UpdateProfileFunc(ctx, req)
	}
	return &domain.User{ID: req.UserID, Email: req.Email, FirstName: req.FirstName, LastName: req.LastName, IsActive: true}, nil
}

// ChangePassword changes the owner's password
func (m *MockAccountService) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	if m.ChangePasswordFunc != nil {
		return m.ChangePasswordFunc(ctx, req)
	}
	return nil
}

// RequestPasswordReset starts a reset
func (m *MockAccountService) RequestPasswordReset(ctx context.Context, email string, client domain.ClientContext) error {
	if m.RequestPasswordResetFunc != nil {
		return m.RequestPasswordResetFunc(ctx, email, client)
	}
	return nil
}

// ResetPassword completes a reset
func (m *MockAccountService) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	if m.ResetPasswordFunc != nil {
		return m.ResetPasswordFunc(ctx, req)
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AccountService = (*MockAccountService)(nil)
