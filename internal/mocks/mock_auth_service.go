package mocks

import (
	"context"

	"github.com/you/fueltrack/domain"
)

// MockAuthService implements domain.AuthService interface for testing
type MockAuthService struct {
	LoginFunc       func(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error)
	IsLoggedInFunc  func(ctx context.Context, rs *domain.RequestSession) bool
	CurrentUserFunc func(ctx context.Context, rs *domain.RequestSession) *domain.CurrentUser
	HasRoleFunc     func(ctx context.Context, rs *domain.RequestSession, role string) bool
	LogoutFunc      func(ctx context.Context, rs *domain.RequestSession) error
}

// NewMockAuthService creates a new MockAuthService with default behaviors
func NewMockAuthService() *MockAuthService {
	return &MockAuthService{}
}

// Login authenticates a user
func (m *MockAuthService) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	if m.LoginFunc != nil {
		return m.LoginFunc(ctx, req)
	}
	return &domain.LoginResult{Message: "Invalid username or password."}, domain.ErrInvalidCredentials
}

// IsLoggedIn reports whether the request carries a valid session
func (m *MockAuthService) IsLoggedIn(ctx context.Context, rs *domain.RequestSession) bool {
	if m.IsLoggedInFunc != nil {
		return m.IsLoggedInFunc(ctx, rs)
	}
	return rs != nil && rs.Session != nil
}

// CurrentUser returns the logged-in user
func (m *MockAuthService) CurrentUser(ctx context.Context, rs *domain.RequestSession) *domain.CurrentUser {
	if m.CurrentUserFunc != nil {
		return m.CurrentUserFunc(ctx, rs)
	}
	if rs == nil || rs.Session == nil {
		return nil
	}
	return rs.Session.CurrentUser()
}

// HasRole reports whether the logged-in user has role
func (m *MockAuthService) HasRole(ctx context.Context, rs *domain.RequestSession, role string) bool {
	if m.HasRoleFunc != nil {
		return m.HasRoleFunc(ctx, rs, role)
	}
	u := m.CurrentUser(ctx, rs)
	return u != nil && u.Role == role
}

// Logout destroys the request's session
func (m *MockAuthService) Logout(ctx context.Context, rs *domain.RequestSession) error {
	if m.LogoutFunc != nil {
		return m.LogoutFunc(ctx, rs)
	}
	if rs != nil {
		rs.Clear()
	}
	return nil
}

// Compile-time interface compliance verification
var _ domain.AuthService = (*MockAuthService)(nil)
