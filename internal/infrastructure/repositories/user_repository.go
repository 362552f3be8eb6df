package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/you/fueltrack/domain"
)

const defaultPageSize = 20

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	dbUser := r.domainToDB(user)
	if err := r.db.WithContext(ctx).Create(dbUser).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return domain.ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	user.ID = dbUser.ID
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id uint) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByUsername implements domain.UserRepository
func (r *UserRepositoryImpl) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username)
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByUsernameOrEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByUsernameOrEmail(ctx context.Context, identifier string) (*domain.User, error) {
	return r.findOne(ctx, "username = ? OR email = ?", identifier, identifier)
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, args ...interface{}) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where(query, args...).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	return r.dbToDomain(&dbUser), nil
}

// RecordFailedAttempt implements domain.UserRepository.
// The increment is computed by the database so concurrent failures serialize on the row.
func (r *UserRepositoryImpl) RecordFailedAttempt(ctx context.Context, userID uint, maxAttempts int, lockUntil time.Time) (domain.LoginFailure, error) {
	var out domain.LoginFailure
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&DBUser{}).Where("id = ?", userID).
			UpdateColumn("failed_login_attempts", gorm.Expr("failed_login_attempts + ?", 1))
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return domain.ErrUserNotFound
		}

		var row DBUser
		if err := tx.Select("failed_login_attempts").Where("id = ?", userID).First(&row).Error; err != nil {
			return err
		}
		out.Attempts = row.FailedLoginAttempts

		if out.Attempts >= maxAttempts {
			until := lockUntil.UTC()
			if err := tx.Model(&DBUser{}).Where("id = ?", userID).UpdateColumn("locked_until", until).Error; err != nil {
				return err
			}
			out.LockedUntil = &until
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return domain.LoginFailure{}, err
		}
		return domain.LoginFailure{}, fmt.Errorf("failed to record failed attempt: %w", err)
	}
	return out, nil
}

// RecordSuccessfulLogin implements domain.UserRepository
func (r *UserRepositoryImpl) RecordSuccessfulLogin(ctx context.Context, userID uint, at time.Time) error {
	return r.update(ctx, userID, map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login":            at.UTC(),
	})
}

// UpdatePassword implements domain.UserRepository. It also clears any lockout.
func (r *UserRepositoryImpl) UpdatePassword(ctx context.Context, userID uint, passwordHash string) error {
	return r.update(ctx, userID, map[string]interface{}{
		"password_hash":         passwordHash,
		"failed_login_attempts": 0,
		"locked_until":          nil,
	})
}

// UpdateProfile implements domain.UserRepository
func (r *UserRepositoryImpl) UpdateProfile(ctx context.Context, userID uint, update domain.UserProfileUpdate) error {
	err := r.update(ctx, userID, map[string]interface{}{
		"username":   update.Username,
		"email":      update.Email,
		"first_name": update.FirstName,
		"last_name":  update.LastName,
	})
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return domain.ErrUserAlreadyExists
	}
	return err
}

// SetActive implements domain.UserRepository
func (r *UserRepositoryImpl) SetActive(ctx context.Context, userID uint, active bool) error {
	return r.update(ctx, userID, map[string]interface{}{"is_active": active})
}

// SetRole implements domain.UserRepository
func (r *UserRepositoryImpl) SetRole(ctx context.Context, userID uint, role string) error {
	return r.update(ctx, userID, map[string]interface{}{"role": role})
}

// Unlock implements domain.UserRepository
func (r *UserRepositoryImpl) Unlock(ctx context.Context, userID uint) error {
	return r.update(ctx, userID, map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
	})
}

// UnlockAll implements domain.UserRepository
func (r *UserRepositoryImpl) UnlockAll(ctx context.Context) (int64, error) {
	res := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("failed_login_attempts > 0 OR locked_until IS NOT NULL").
		Updates(map[string]interface{}{
			"failed_login_attempts": 0,
			"locked_until":          nil,
		})
	if res.Error != nil {
		return 0, fmt.Errorf("failed to reset failed logins: %w", res.Error)
	}
	return res.RowsAffected, nil
}

// Stats implements domain.UserRepository. Admin accounts are not counted.
func (r *UserRepositoryImpl) Stats(ctx context.Context, now time.Time) (domain.UserStats, error) {
	var stats domain.UserStats
	base := func() *gorm.DB {
		return r.db.WithContext(ctx).Model(&DBUser{}).Where("role <> ?", domain.RoleAdmin)
	}
	if err := base().Count(&stats.Total).Error; err != nil {
		return stats, fmt.Errorf("failed to count users: %w", err)
	}
	if err := base().Where("is_active = ?", true).Count(&stats.Active).Error; err != nil {
		return stats, fmt.Errorf("failed to count active users: %w", err)
	}
	if err := base().Where("locked_until > ?", now.UTC()).Count(&stats.Locked).Error; err != nil {
		return stats, fmt.Errorf("failed to count locked users: %w", err)
	}
	return stats, nil
}

func (r *UserRepositoryImpl) update(ctx context.Context, userID uint, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(values)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return res.Error
		}
		return fmt.Errorf("failed to update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// List implements domain.UserRepository
func (r *UserRepositoryImpl) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	q := r.db.WithContext(ctx).Model(&DBUser{})
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + s + "%"
		q = q.Where("username LIKE ? OR email LIKE ? OR first_name LIKE ? OR last_name LIKE ?", like, like, like, like)
	}
	if filter.Role != "" {
		q = q.Where("role = ?", filter.Role)
	}
	if filter.Active != nil {
		q = q.Where("is_active = ?", *filter.Active)
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to count users: %w", err)
	}

	limit, offset := page(filter.Page, filter.Limit, defaultPageSize)
	var rows []DBUser
	if err := q.Order("created_at DESC, id DESC").Limit(limit).Offset(offset).Find(&rows).Error; err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	users := make([]domain.User, 0, len(rows))
	for i := range rows {
		users = append(users, *r.dbToDomain(&rows[i]))
	}
	return users, total, nil
}

// CountActiveAdmins implements domain.UserRepository
func (r *UserRepositoryImpl) CountActiveAdmins(ctx context.Context) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&DBUser{}).
		Where("role = ? AND is_active = ?", domain.RoleAdmin, true).
		Count(&n).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count admins: %w", err)
	}
	return n, nil
}

// page converts a 1-based page into limit and offset
func page(p, limit, def int) (int, int) {
	if limit <= 0 {
		limit = def
	}
	if p < 1 {
		p = 1
	}
	return limit, (p - 1) * limit
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:                  user.ID,
		Username:            user.Username,
		Email:               user.Email,
		FirstName:           user.FirstName,
		LastName:            user.LastName,
		PasswordHash:        user.PasswordHash,
		Role:                user.Role,
		IsActive:            user.IsActive,
		FailedLoginAttempts: user.FailedLoginAttempts,
		LockedUntil:         user.LockedUntil,
		LastLogin:           user.LastLogin,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:                  dbUser.ID,
		Username:            dbUser.Username,
		Email:               dbUser.Email,
		FirstName:           dbUser.FirstName,
		LastName:            dbUser.LastName,
		PasswordHash:        dbUser.PasswordHash,
		Role:                dbUser.Role,
		IsActive:            dbUser.IsActive,
		FailedLoginAttempts: dbUser.FailedLoginAttempts,
		LockedUntil:         dbUser.LockedUntil,
		LastLogin:           dbUser.LastLogin,
		CreatedAt:           dbUser.CreatedAt,
		UpdatedAt:           dbUser.UpdatedAt,
	}
}
