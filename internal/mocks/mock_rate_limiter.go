package mocks

import (
	"context"
	"time"

	"github.com/you/fueltrack/domain"
)

// MockRateLimiter implements domain.RateLimiter interface for testing
type MockRateLimiter struct {
	AllowFunc func(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error)
}

// NewMockRateLimiter creates a new MockRateLimiter that allows everything
func NewMockRateLimiter() *MockRateLimiter {
	return &MockRateLimiter{}
}

// Allow records an attempt
func (m *MockRateLimiter) Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error) {
	if m.AllowFunc != nil {
		return m.AllowFunc(ctx, identifier, maxAttempts, window)
	}
	return true, nil
}

// Compile-time interface compliance verification
var _ domain.RateLimiter = (*MockRateLimiter)(nil)
