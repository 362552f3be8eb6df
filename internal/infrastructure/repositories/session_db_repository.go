package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
)

// DBSessionRepository implements domain.SessionRepository on the user_sessions table
type DBSessionRepository struct {
	db *gorm.DB
}

// NewDBSessionRepository creates a durable session repository
func NewDBSessionRepository(db *gorm.DB) domain.SessionRepository {
	return &DBSessionRepository{db: db}
}

// Create implements domain.SessionRepository
func (r *DBSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	row := DBSession{
		ID:           session.ID,
		UserID:       session.UserID,
		Username:     session.Username,
		Email:        session.Email,
		Role:         session.Role,
		IPAddress:    session.IPAddress,
		UserAgent:    session.UserAgent,
		CreatedAt:    session.CreatedAt.UTC(),
		LastActivity: session.LastActivity.UTC(),
		ExpiresAt:    session.ExpiresAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	return nil
}

// FindByID implements domain.SessionRepository
func (r *DBSessionRepository) FindByID(ctx context.Context, sessionID string) (*domain.Session, error) {
	var row DBSession
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("failed to load session: %w", err)
	}
	return &domain.Session{
		ID:           row.ID,
		UserID:       row.UserID,
		Username:     row.Username,
		Email:        row.Email,
		Role:         row.Role,
		IPAddress:    row.IPAddress,
		UserAgent:    row.UserAgent,
		CreatedAt:    row.CreatedAt.UTC(),
		LastActivity: row.LastActivity.UTC(),
		ExpiresAt:    row.ExpiresAt.UTC(),
	}, nil
}

// Touch implements domain.SessionRepository
func (r *DBSessionRepository) Touch(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) error {
	res := r.db.WithContext(ctx).Model(&DBSession{}).Where("id = ?", sessionID).
		Updates(map[string]interface{}{
			"last_activity": lastActivity.UTC(),
			"expires_at":    expiresAt.UTC(),
		})
	if res.Error != nil {
		return fmt.Errorf("failed to touch session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

// Delete implements domain.SessionRepository
func (r *DBSessionRepository) Delete(ctx context.Context, sessionID string) error {
	if err := r.db.WithContext(ctx).Where("id = ?", sessionID).Delete(&DBSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}

// DeleteByUser implements domain.SessionRepository
func (r *DBSessionRepository) DeleteByUser(ctx context.Context, userID uint) error {
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&DBSession{}).Error; err != nil {
		return fmt.Errorf("failed to delete user sessions: %w", err)
	}
	return nil
}

// DeleteExpired implements domain.SessionRepository
func (r *DBSessionRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&DBSession{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge sessions: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// UpdateEmail implements domain.SessionRepository
func (r *DBSessionRepository) UpdateEmail(ctx context.Context, userID uint, email string) error {
	err := r.db.WithContext(ctx).Model(&DBSession{}).Where("user_id = ?", userID).Update("email", email).Error
	if err != nil {
		return fmt.Errorf("failed to update session email: %w", err)
	}
	return nil
}

// Stats implements domain.SessionRepository
func (r *DBSessionRepository) Stats(ctx context.Context, now time.Time) (domain.SessionStats, error) {
	var stats domain.SessionStats
	if err := r.db.WithContext(ctx).Model(&DBSession{}).Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("failed to count sessions: %w", err)
	}
	err := r.db.WithContext(ctx).Model(&DBSession{}).Where("expires_at > ?", now.UTC()).Count(&stats.Active).Error
	if err != nil {
		return stats, fmt.Errorf("failed to count active sessions: %w", err)
	}
	return stats, nil
}
