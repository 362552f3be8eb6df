package services

import (
	"context"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

const (
	// MinLogRetentionDays is the shortest retention CleanupLogs accepts
	MinLogRetentionDays = 7
	// DefaultLogRetentionDays applies when no retention is given
	DefaultLogRetentionDays = 30
	recentLogWindow         = 7 * 24 * time.Hour
)

// MaintenanceServiceImpl implements domain.MaintenanceService
type MaintenanceServiceImpl struct {
	userRepo domain.UserRepository
	sessions *SessionManager
	events   domain.SecurityEventLog
	nowFn    func() time.Time
	logger   *log.Entry
}

// NewMaintenanceService creates a new maintenance service
func NewMaintenanceService(userRepo domain.UserRepository, sessions *SessionManager, events domain.SecurityEventLog, nowFn func() time.Time) domain.MaintenanceService {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &MaintenanceServiceImpl{
		userRepo: userRepo,
		sessions: sessions,
		events:   events,
		nowFn:    nowFn,
		logger:   log.WithField("component", "maintenance"),
	}
}

// CleanupLogs implements domain.MaintenanceService
func (s *MaintenanceServiceImpl) CleanupLogs(ctx context.Context, actor *domain.CurrentUser, days int, client domain.ClientContext) (int64, error) {
	switch {
	case days == 0:
		days = DefaultLogRetentionDays
	case days < MinLogRetentionDays:
		days = MinLogRetentionDays
	}

	cutoff := s.nowFn().UTC().AddDate(0, 0, -days)
	n, err := s.events.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		s.logger.WithError(err).Error("failed to clean security logs")
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	s.logger.WithFields(log.Fields{"days": days, "deleted": n}).Info("security logs cleaned")
	s.record(ctx, domain.NewSecurityEvent(domain.LogsCleanupEvent, fmt.Sprintf("Admin cleaned logs older than %d days", days)).
		WithUser(actor.ID).WithClientContext(&client))
	return n, nil
}

// CleanupSessions implements domain.MaintenanceService
func (s *MaintenanceServiceImpl) CleanupSessions(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
	n, err := s.sessions.PurgeExpired(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to clean sessions")
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	s.record(ctx, domain.NewSecurityEvent(domain.SessionsCleanupEvent, "Admin cleaned expired sessions").
		WithUser(actor.ID).WithClientContext(&client))
	return n, nil
}

// ResetFailedLogins implements domain.MaintenanceService
func (s *MaintenanceServiceImpl) ResetFailedLogins(ctx context.Context, actor *domain.CurrentUser, client domain.ClientContext) (int64, error) {
	n, err := s.userRepo.UnlockAll(ctx)
	if err != nil {
		s.logger.WithError(err).Error("failed to reset failed logins")
		return 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	s.record(ctx, domain.NewSecurityEvent(domain.FailedLoginsResetEvent, "Admin reset all failed login attempts").
		WithUser(actor.ID).WithClientContext(&client).WithSeverity(domain.SeverityWarning))
	return n, nil
}

// Stats implements domain.MaintenanceService
func (s *MaintenanceServiceImpl) Stats(ctx context.Context) (*domain.SystemStats, error) {
	now := s.nowFn().UTC()
	stats := &domain.SystemStats{}

	var err error
	if stats.Users, err = s.userRepo.Stats(ctx, now); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if stats.Sessions, err = s.sessions.Stats(ctx); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if stats.TotalLogs, err = s.events.Count(ctx, time.Time{}); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if stats.RecentLogs, err = s.events.Count(ctx, now.Add(-recentLogWindow)); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return stats, nil
}

func (s *MaintenanceServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}
