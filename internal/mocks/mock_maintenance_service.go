package mocks

import (
	"context"

	"github.com/you/fueltrack/domain"
)

// MockMaintenanceService implements domain.MaintenanceService for handler tests
type MockMaintenanceService struct {
	CleanupLogsFunc       func(ctx context.Context, actor *domain.CurrentUser, days int, client domain.ClientContext) (int64, error)
	CleanupSessionsFunc   func(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error)
	ResetFailedLoginsFunc func(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error)
	StatsFunc             func(ctx context.Context) (*domain.SystemStats, error)
}

func NewMockMaintenanceService() *MockMaintenanceService {
	return &MockMaintenanceService{}
}

func (m *MockMaintenanceService) CleanupLogs(ctx context.Context, actor *domain.CurrentUser, days int, client domain.ClientContext) (int64, error) {
	if m.CleanupLogsFunc != nil {
		return m.CleanupLogsFunc(ctx, actor, days, client)
	}
	return 0, nil
}

func (m *MockMaintenanceService) CleanupSessions(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
	if m.CleanupSessionsFunc != nil {
		return m.CleanupSessionsFunc(ctx, actor, client)
	}
	return 0, nil
}

func (m *MockMaintenanceService) ResetFailedLogins(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
	if m.ResetFailedLoginsFunc != nil {
		return m.ResetFailedLoginsFunc(ctx, actor, client)
	}
	return 0, nil
}

func (m *MockMaintenanceService) Stats(ctx context.Context) (*domain.SystemStats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return &domain.SystemStats{}, nil
}

var _ domain.MaintenanceService = (*MockMaintenanceService)(nil)
