package mocks

import (
	"context"
	"fmt"
	"time"

	"github.com/you/fueltrack/domain"
)

// MockResetTokenService implements domain.ResetTokenService interface for testing
type MockResetTokenService struct {
	IssueFunc func(userID uint) (string, *domain.ResetClaims, error)
	ParseFunc func(token string) (*domain.ResetClaims, error)
}

// NewMockResetTokenService creates a new MockResetTokenService with default behaviors
func NewMockResetTokenService() *MockResetTokenService {
	return &MockResetTokenService{}
}

// Issue signs a token for userID
func (m *MockResetTokenService) Issue(userID uint) (string, *domain.ResetClaims, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(userID)
	}
	jti := fmt.Sprintf("jti-%d", userID)
	return "token-" + jti, &domain.ResetClaims{UserID: userID, TokenID: jti, ExpiresAt: time.Now().Add(time.Hour)}, nil
}

// Parse verifies a token
func (m *MockResetTokenService) Parse(token string) (*domain.ResetClaims, error) {
	if m.ParseFunc != nil {
		return m.ParseFunc(token)
	}
	return nil, domain.ErrTokenInvalid
}

// MockResetTokenRepository implements domain.ResetTokenRepository interface for testing
type MockResetTokenRepository struct {
	CreateFunc            func(ctx context.Context, token *domain.PasswordResetToken) error
	ConsumeFunc           func(ctx context.Context, tokenID string, now time.Time) (*domain.PasswordResetToken, error)
	InvalidateForUserFunc func(ctx context.Context, userID uint) error
	DeleteExpiredFunc     func(ctx context.Context, now time.Time) (int64, error)
}

// NewMockResetTokenRepository creates a new MockResetTokenRepository with default behaviors
func NewMockResetTokenRepository() *MockResetTokenRepository {
	return &MockResetTokenRepository{}
}

// Create stores a token id
func (m *MockResetTokenRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, token)
	}
	return nil
}

// Consume marks a token used
func (m *MockResetTokenRepository) Consume(ctx context.Context, tokenID string, now time.Time) (*domain.PasswordResetToken, error) {
	if m.ConsumeFunc != nil {
		return m.ConsumeFunc(ctx, tokenID, now)
	}
	return nil, domain.ErrTokenInvalid
}

// InvalidateForUser marks every token of a user used
func (m *MockResetTokenRepository) InvalidateForUser(ctx context.Context, userID uint) error {
	if m.InvalidateForUserFunc != nil {
		return m.InvalidateForUserFunc(ctx, userID)
	}
	return nil
}

// DeleteExpired purges expired tokens
func (m *MockResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	if m.DeleteExpiredFunc != nil {
		return m.DeleteExpiredFunc(ctx, now)
	}
	return 0, nil
}

// Compile-time interface compliance verification
var (
	_ domain.ResetTokenService    = (*MockResetTokenService)(nil)
	_ domain.ResetTokenRepository = (*MockResetTokenRepository)(nil)
)
