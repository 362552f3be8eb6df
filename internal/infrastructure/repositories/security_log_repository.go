package repositories

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
)

const securityLogPageSize = 50

// SecurityLogRepository implements domain.SecurityEventLog on the security_logs table
type SecurityLogRepository struct {
	db *gorm.DB
}

// NewSecurityLogRepository creates a new security log repository
func NewSecurityLogRepository(db *gorm.DB) domain.SecurityEventLog {
	return &SecurityLogRepository{db: db}
}

type securityLogRow struct {
	DBSecurityLog
	Username string
}

// Record implements domain.SecurityEventLog
func (r *SecurityLogRepository) Record(ctx context.Context, event *domain.SecurityEvent) error {
	createdAt := event.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}
	row := DBSecurityLog{
		EventType:   string(event.EventType),
		Description: event.Description,
		UserID:      event.UserID,
		IPAddress:   event.IPAddress,
		UserAgent:   event.UserAgent,
		SessionID:   event.SessionID,
		Severity:    string(event.Severity),
		CreatedAt:   createdAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to record security event: %w", err)
	}
	event.ID = row.ID
	return nil
}

// List implements domain.SecurityEventLog
func (r *SecurityLogRepository) List(ctx context.Context, filter domain.SecurityEventFilter) ([]domain.SecurityEvent, int64, error) {
	q := r.db.WithContext(ctx).Table("security_logs").
		Joins("LEFT JOIN users ON users.id = security_logs.user_id")

	if filter.EventType != "" {
		q = q.Where("security_logs.event_type = ?", string(filter.EventType))
	}
	if !filter.From.IsZero() {
		q = q.Where("security_logs.created_at >= ?", filter.From.UTC())
	}
	if !filter.To.IsZero() {
		q = q.Where("security_logs.created_at < ?", filter.To.UTC())
	}
	if filter.User != "" {
		q = q.Where("users.username LIKE ?", "%"+filter.User+"%")
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count security events: %w", err)
	}

	limit, offset := page(filter.Page, filter.Limit, securityLogPageSize)
	var rows []securityLogRow
	err := q.Select("security_logs.*, COALESCE(users.username, '') AS username").
		Order("security_logs.created_at DESC, security_logs.id DESC").
		Limit(limit).Offset(offset).
		Scan(&rows).Error
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list security events: %w", err)
	}

	events := make([]domain.SecurityEvent, 0, len(rows))
	for _, row := range rows {
		events = append(events, domain.SecurityEvent{
			ID:          row.ID,
			EventType:   domain.SecurityEventType(row.EventType),
			Description: row.Description,
			UserID:      row.UserID,
			Username:    row.Username,
			IPAddress:   row.IPAddress,
			UserAgent:   row.UserAgent,
			SessionID:   row.SessionID,
			Severity:    domain.Severity(row.Severity),
			CreatedAt:   row.CreatedAt.UTC(),
		})
	}
	return events, total, nil
}

// EventTypes implements domain.SecurityEventLog
func (r *SecurityLogRepository) EventTypes(ctx context.Context) ([]domain.SecurityEventType, error) {
	var names []string
	err := r.db.WithContext(ctx).Model(&DBSecurityLog{}).
		Distinct("event_type").Order("event_type").Pluck("event_type", &names).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list event types: %w", err)
	}
	types := make([]domain.SecurityEventType, len(names))
	for i, n := range names {
		types[i] = domain.SecurityEventType(n)
	}
	return types, nil
}

// Count implements domain.SecurityEventLog
func (r *SecurityLogRepository) Count(ctx context.Context, since time.Time) (int64, error) {
	q := r.db.WithContext(ctx).Model(&DBSecurityLog{})
	if !since.IsZero() {
		q = q.Where("created_at >= ?", since.UTC())
	}
	var n int64
	if err := q.Count(&n).Error; err != nil {
		return 0, fmt.Errorf("failed to count security events: %w", err)
	}
	return n, nil
}

// DeleteOlderThan implements domain.SecurityEventLog
func (r *SecurityLogRepository) DeleteOlderThan(ctx context.Context, before time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("created_at < ?", before.UTC()).Delete(&DBSecurityLog{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to delete security events: %w", res.Error)
	}
	return res.RowsAffected, nil
}
