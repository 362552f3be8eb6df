package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
)

// ResetTokenRepository implements domain.ResetTokenRepository using GORM
type ResetTokenRepository struct {
	db *gorm.DB
}

// NewResetTokenRepository creates a new reset token repository
func NewResetTokenRepository(db *gorm.DB) domain.ResetTokenRepository {
	return &ResetTokenRepository{db: db}
}

// Create implements domain.ResetTokenRepository
func (r *ResetTokenRepository) Create(ctx context.Context, token *domain.PasswordResetToken) error {
	row := DBPasswordResetToken{
		UserID:    token.UserID,
		TokenID:   token.TokenID,
		ExpiresAt: token.ExpiresAt.UTC(),
		Used:      token.Used,
	}
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return fmt.Errorf("failed to store reset token: %w", err)
	}
	token.ID = row.ID
	token.CreatedAt = row.CreatedAt
	return nil
}

// Consume implements domain.ResetTokenRepository
func (r *ResetTokenRepository) Consume(ctx context.Context, tokenID string, now time.Time) (*domain.PasswordResetToken, error) {
	var row DBPasswordResetToken
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("token_id = ?", tokenID).First(&row).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrTokenInvalid
			}
			return err
		}
		if row.Used {
			return domain.ErrTokenUsed
		}
		if !row.ExpiresAt.After(now) {
			return domain.ErrTokenExpired
		}

		// the used = false guard keeps a concurrent consumer from winning twice
		res := tx.Model(&DBPasswordResetToken{}).
			Where("id = ? AND used = ?", row.ID, false).
			Update("used", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrTokenUsed
		}
		row.Used = true
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrTokenUsed) || errors.Is(err, domain.ErrTokenExpired) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to consume reset token: %w", err)
	}

	return &domain.PasswordResetToken{
		ID:        row.ID,
		UserID:    row.UserID,
		TokenID:   row.TokenID,
		ExpiresAt: row.ExpiresAt.UTC(),
		Used:      row.Used,
		CreatedAt: row.CreatedAt,
	}, nil
}

// InvalidateForUser implements domain.ResetTokenRepository
func (r *ResetTokenRepository) InvalidateForUser(ctx context.Context, userID uint) error {
	err := r.db.WithContext(ctx).Model(&DBPasswordResetToken{}).
		Where("user_id = ? AND used = ?", userID, false).
		Update("used", true).Error
	if err != nil {
		return fmt.Errorf("failed to invalidate reset tokens: %w", err)
	}
	return nil
}

// DeleteExpired implements domain.ResetTokenRepository
func (r *ResetTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).Where("expires_at <= ?", now.UTC()).Delete(&DBPasswordResetToken{})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to purge reset tokens: %w", res.Error)
	}
	return res.RowsAffected, nil
}
