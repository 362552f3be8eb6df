package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// MsgLastAdmin is shown when a role change would leave no active admin
const MsgLastAdmin = "Cannot change role - at least one active admin must exist."

// UserAdminServiceImpl implements domain.UserAdminService
type UserAdminServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	policy      domain.PasswordPolicy
	sessions    *SessionManager
	events      domain.SecurityEventLog
	validate    *validator.Validate
	logger      *log.Entry
}

// NewUserAdminService creates a new user admin service
func NewUserAdminService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	policy domain.PasswordPolicy,
	sessions *SessionManager,
	events domain.SecurityEventLog,
) domain.UserAdminService {
	return &UserAdminServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		policy:      policy,
		sessions:    sessions,
		events:      events,
		validate:    validator.New(),
		logger:      log.WithField("component", "user_admin"),
	}
}

// List implements domain.UserAdminService
func (s *UserAdminServiceImpl) List(ctx context.Context, filter domain.UserFilter) ([]domain.User, int64, error) {
	filter.Search = strings.TrimSpace(filter.Search)
	if filter.Role != "" && !domain.ValidRole(filter.Role) {
		return nil, 0, fmt.Errorf("%w: unknown role %q", domain.ErrInvalidInput, filter.Role)
	}
	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return users, total, nil
}

// Create implements domain.UserAdminService. Unlike self-registration the
// account may be given any role.
func (s *UserAdminServiceImpl) Create(ctx context.Context, actor *domain.CurrentUser, req domain.CreateUserRequest) (*domain.User, error) {
	form := req.RegisterRequest
	errs := checkNewAccount(s.validate, s.policy, &form)
	if !domain.ValidRole(req.Role) {
		errs.Add("role", "Invalid role selected.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	if taken, err := s.takenByOther(ctx, s.userRepo.FindByUsername, form.Username, 0); err != nil {
		return nil, err
	} else if taken {
		errs.Add("username", "Username already exists.")
	}
	if taken, err := s.takenByOther(ctx, s.userRepo.FindByEmail, form.Email, 0); err != nil {
		return nil, err
	} else if taken {
		errs.Add("email", "Email already registered.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	hash, err := s.passwordSvc.Hash(form.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}
	user := &domain.User{
		Username:     form.Username,
		Email:        form.Email,
		FirstName:    form.FirstName,
		LastName:     form.LastName,
		PasswordHash: hash,
		Role:         req.Role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			errs.Add("username", "Username already exists.")
			return nil, errs
		}
		return nil, s.storeError(err)
	}

	client := form.Client
	s.record(ctx, domain.NewSecurityEvent(domain.UserCreatedEvent, "Admin created new user: "+user.Username).
		WithUser(actor.ID).WithClientContext(&client))
	return user, nil
}

// SetActive implements domain.UserAdminService. Admin accounts cannot be
// toggled, and deactivation ends every session of the target.
func (s *UserAdminServiceImpl) SetActive(ctx context.Context, actor *domain.CurrentUser, userID uint, active bool, client domain.ClientContext) error {
	target, err := s.find(ctx, userID)
	if err != nil {
		return err
	}
	if target.Role == domain.RoleAdmin {
		return domain.ErrProtectedUser
	}

	if err := s.userRepo.SetActive(ctx, userID, active); err != nil {
		return s.storeError(err)
	}
	if !active {
		if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to end sessions of deactivated user")
		}
	}

	action := "deactivated"
	if active {
		action = "activated"
	}
	s.record(ctx, domain.NewSecurityEvent(domain.UserStatusChangedEvent, fmt.Sprintf("Admin %s user ID: %d", action, userID)).
		WithUser(actor.ID).WithClientContext(&client))
	return nil
}

// Unlock implements domain.UserAdminService
func (s *UserAdminServiceImpl) Unlock(ctx context.Context, actor *domain.CurrentUser, userID uint, client domain.ClientContext) error {
	if _, err := s.find(ctx, userID); err != nil {
		return err
	}
	if err := s.userRepo.Unlock(ctx, userID); err != nil {
		return s.storeError(err)
	}
	s.record(ctx, domain.NewSecurityEvent(domain.UserUnlockedEvent, fmt.Sprintf("Admin unlocked user ID: %d", userID)).
		WithUser(actor.ID).WithClientContext(&client))
	return nil
}

// Update implements domain.UserAdminService
func (s *UserAdminServiceImpl) Update(ctx context.Context, actor *domain.CurrentUser, userID uint, update domain.UserProfileUpdate, role string, client domain.ClientContext) error {
	update.Username = strings.TrimSpace(update.Username)
	update.Email = strings.TrimSpace(update.Email)
	update.FirstName = strings.TrimSpace(update.FirstName)
	update.LastName = strings.TrimSpace(update.LastName)

	errs := domain.ValidationErrors{}
	if update.Username == "" {
		errs.Add("username", "Username is required.")
	}
	switch {
	case update.Email == "":
		errs.Add("email", "Email is required.")
	case s.validate.Var(update.Email, "email") != nil:
		errs.Add("email", "Invalid email format.")
	}
	if update.FirstName == "" {
		errs.Add("first_name", "First name is required.")
	}
	if update.LastName == "" {
		errs.Add("last_name", "Last name is required.")
	}
	if !domain.ValidRole(role) {
		errs.Add("role", "Invalid role selected.")
	}
	if errs.HasErrors() {
		return errs
	}

	target, err := s.find(ctx, userID)
	if err != nil {
		return err
	}

	if update.Username != target.Username {
		if taken, err := s.takenByOther(ctx, s.userRepo.FindByUsername, update.Username, userID); err != nil {
			return err
		} else if taken {
			errs.Add("username", "Username already exists.")
		}
	}
	if update.Email != target.Email {
		if taken, err := s.takenByOther(ctx, s.userRepo.FindByEmail, update.Email, userID); err != nil {
			return err
		} else if taken {
			errs.Add("email", "Email already registered.")
		}
	}
	if errs.HasErrors() {
		return errs
	}

	demotesAdmin := target.Role == domain.RoleAdmin && role != domain.RoleAdmin && target.IsActive
	if demotesAdmin {
		admins, err := s.userRepo.CountActiveAdmins(ctx)
		if err != nil {
			return s.storeError(err)
		}
		if admins <= 1 {
			errs.Add("role", MsgLastAdmin)
			return fmt.Errorf("%w: %w", domain.ErrLastAdmin, errs)
		}
	}

	if err := s.userRepo.UpdateProfile(ctx, userID, update); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			errs.Add("username", "Username already exists.")
			return errs
		}
		return s.storeError(err)
	}
	if role != target.Role {
		if err := s.userRepo.SetRole(ctx, userID, role); err != nil {
			return s.storeError(err)
		}
		// sessions carry the role they were issued with
		if err := s.sessions.DestroyAllForUser(ctx, userID); err != nil {
			s.logger.WithError(err).WithField("user_id", userID).Error("failed to end sessions after role change")
		}
	}

	s.record(ctx, domain.NewSecurityEvent(domain.UserUpdatedEvent, "Admin updated user: "+update.Username).
		WithUser(actor.ID).WithClientContext(&client))
	return nil
}

func (s *UserAdminServiceImpl) find(ctx context.Context, userID uint) (*domain.User, error) {
	u, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, s.storeError(err)
	}
	return u, nil
}

func (s *UserAdminServiceImpl) takenByOther(ctx context.Context, find func(context.Context, string) (*domain.User, error), value string, self uint) (bool, error) {
	u, err := find(ctx, value)
	switch {
	case err == nil:
		return u.ID != self, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	default:
		return false, s.storeError(err)
	}
}

func (s *UserAdminServiceImpl) storeError(err error) error {
	s.logger.WithError(err).Error("user store operation failed")
	return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
}

func (s *UserAdminServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}
