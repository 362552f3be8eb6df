package services

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// Client-visible account messages
const (
	MsgRegistrationFailed = "An error occurred during registration. Please try again."
	MsgResetRateLimited   = "Too many password reset requests. Please try again later."
	MsgResetRequested     = "If an account with that email exists, a password reset link has been sent."
	MsgResetSuccess       = "Your password has been reset successfully. You can now log in."
	MsgResetTokenInvalid  = "Invalid or expired reset token."
	MsgPasswordChanged    = "Password changed successfully."
)

// ResetRateLimitPrefix prefixes the client IP to form the reset rate-limit key
const ResetRateLimitPrefix = "password_reset_"

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_]+$`)

// AccountConfig holds the self-service account policy
type AccountConfig struct {
	ResetRateMax    int
	ResetRateWindow time.Duration
	ResetURL        string
}

// AccountServiceImpl implements domain.AccountService
type AccountServiceImpl struct {
	userRepo    domain.UserRepository
	passwordSvc domain.PasswordService
	policy      domain.PasswordPolicy
	limiter     domain.RateLimiter
	tokens      domain.ResetTokenService
	tokenRepo   domain.ResetTokenRepository
	notifier    domain.NotificationService
	sessions    *SessionManager
	events      domain.SecurityEventLog
	cfg         AccountConfig
	nowFn       func() time.Time
	validate    *validator.Validate
	logger      *log.Entry
}

// NewAccountService creates a new account service
func NewAccountService(
	userRepo domain.UserRepository,
	passwordSvc domain.PasswordService,
	policy domain.PasswordPolicy,
	limiter domain.RateLimiter,
	tokens domain.ResetTokenService,
	tokenRepo domain.ResetTokenRepository,
	notifier domain.NotificationService,
	sessions *SessionManager,
	events domain.SecurityEventLog,
	cfg AccountConfig,
	nowFn func() time.Time,
) domain.AccountService {
	if nowFn == nil {
		nowFn = time.Now
	}
	if cfg.ResetRateMax <= 0 {
		cfg.ResetRateMax = 3
	}
	if cfg.ResetRateWindow <= 0 {
		cfg.ResetRateWindow = time.Hour
	}
	return &AccountServiceImpl{
		userRepo:    userRepo,
		passwordSvc: passwordSvc,
		policy:      policy,
		limiter:     limiter,
		tokens:      tokens,
		tokenRepo:   tokenRepo,
		notifier:    notifier,
		sessions:    sessions,
		events:      events,
		cfg:         cfg,
		nowFn:       nowFn,
		validate:    validator.New(),
		logger:      log.WithField("component", "account"),
	}
}

// Register implements domain.AccountService
func (s *AccountServiceImpl) Register(ctx context.Context, req domain.RegisterRequest) (*domain.User, error) {
	errs := checkNewAccount(s.validate, s.policy, &req)
	if errs.HasErrors() {
		return nil, errs
	}
	username, email := req.Username, req.Email
	firstName, lastName := req.FirstName, req.LastName

	client := req.Client
	if LooksMalicious(req.Username, req.Email) {
		s.record(ctx, domain.NewSecurityEvent(domain.SQLInjectionAttemptEvent, "Possible SQL injection in registration").
			WithClientContext(&client).WithSeverity(domain.SeverityWarning))
		errs.Add("form", MsgInvalidInput)
		return nil, fmt.Errorf("%w: %w", domain.ErrSuspectedInput, errs)
	}

	if taken, err := s.exists(ctx, s.userRepo.FindByUsername, username); err != nil {
		return nil, err
	} else if taken {
		errs.Add("username", "Username already exists.")
	}
	if taken, err := s.exists(ctx, s.userRepo.FindByEmail, email); err != nil {
		return nil, err
	} else if taken {
		errs.Add("email", "Email already registered.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	hash, err := s.passwordSvc.Hash(req.Password)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &domain.User{
		Username:     username,
		Email:        email,
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: hash,
		Role:         domain.RoleEmployee,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			errs.Add("username", "Username already exists.")
			return nil, errs
		}
		s.logger.WithError(err).Error("failed to create user")
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	s.record(ctx, domain.NewSecurityEvent(domain.RegistrationSuccessEvent, "New user registered: "+user.Username).
		WithUser(user.ID).WithClientContext(&client))
	return user, nil
}

// Profile implements domain.AccountService
func (s *AccountServiceImpl) Profile(ctx context.Context, userID uint) (*domain.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	return user, nil
}

// UpdateProfile implements domain.AccountService. The username and role are
// not editable by the owner.
func (s *AccountServiceImpl) UpdateProfile(ctx context.Context, req domain.UpdateProfileRequest) (*domain.User, error) {
	email := strings.TrimSpace(req.Email)
	firstName := strings.TrimSpace(req.FirstName)
	lastName := strings.TrimSpace(req.LastName)

	errs := domain.ValidationErrors{}
	if firstName == "" {
		errs.Add("first_name", "First name is required.")
	}
	if lastName == "" {
		errs.Add("last_name", "Last name is required.")
	}
	switch {
	case email == "":
		errs.Add("email", "Email is required.")
	case !s.validEmail(email):
		errs.Add("email", "Invalid email format.")
	}
	if errs.HasErrors() {
		return nil, errs
	}

	user, err := s.Profile(ctx, req.UserID)
	if err != nil {
		return nil, err
	}
	if email != user.Email {
		other, err := s.userRepo.FindByEmail(ctx, email)
		switch {
		case err == nil && other.ID != user.ID:
			errs.Add("email", "Email already registered.")
			return nil, errs
		case err != nil && !errors.Is(err, domain.ErrUserNotFound):
			return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
		}
	}

	err = s.userRepo.UpdateProfile(ctx, user.ID, domain.UserProfileUpdate{
		Username:  user.Username,
		Email:     email,
		FirstName: firstName,
		LastName:  lastName,
	})
	if err != nil {
		if errors.Is(err, domain.ErrUserAlreadyExists) {
			errs.Add("email", "Email already registered.")
			return nil, errs
		}
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to update profile")
		return nil, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if email != user.Email {
		if err := s.sessions.UpdateEmail(ctx, user.ID, email); err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to refresh session email")
		}
	}

	user.Email, user.FirstName, user.LastName = email, firstName, lastName
	client := req.Client
	s.record(ctx, domain.NewSecurityEvent(domain.ProfileUpdatedEvent, "User updated profile information").
		WithUser(user.ID).WithClientContext(&client))
	return user, nil
}

// ChangePassword implements domain.AccountService
func (s *AccountServiceImpl) ChangePassword(ctx context.Context, req domain.ChangePasswordRequest) error {
	user, err := s.userRepo.FindByID(ctx, req.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return err
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	errs := domain.ValidationErrors{}
	switch {
	case req.CurrentPassword == "":
		errs.Add("current_password", "Current password is required.")
	case !s.passwordSvc.Verify(user.PasswordHash, req.CurrentPassword):
		errs.Add("current_password", "Current password is incorrect.")
	}
	if req.NewPassword == "" {
		errs.Add("new_password", "New password is required.")
	} else {
		s.policy.Check("new_password", req.NewPassword, errs)
	}
	if req.NewPassword != req.ConfirmPassword {
		errs.Add("confirm_password", "New passwords do not match.")
	}
	if errs.HasErrors() {
		return errs
	}

	hash, err := s.passwordSvc.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to update password")
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	client := req.Client
	s.record(ctx, domain.NewSecurityEvent(domain.PasswordChangedEvent, "User changed password").
		WithUser(user.ID).WithClientContext(&client))
	return nil
}

// RequestPasswordReset implements domain.AccountService. The outcome for an
// unknown or inactive address is indistinguishable from a sent link.
func (s *AccountServiceImpl) RequestPasswordReset(ctx context.Context, email string, client domain.ClientContext) error {
	email = strings.TrimSpace(email)

	errs := domain.ValidationErrors{}
	switch {
	case email == "":
		errs.Add("email", "Email address is required.")
	case !s.validEmail(email):
		errs.Add("email", "Please enter a valid email address.")
	}
	if errs.HasErrors() {
		return errs
	}

	allowed, err := s.limiter.Allow(ctx, ResetRateLimitPrefix+client.IPAddress, s.cfg.ResetRateMax, s.cfg.ResetRateWindow)
	if err != nil {
		s.logger.WithError(err).WithField("ip", client.IPAddress).Error("rate limiter unavailable, denying reset request")
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !allowed {
		s.record(ctx, domain.NewSecurityEvent(domain.PasswordResetRateLimitEvent, "Password reset rate limit exceeded for IP: "+client.IPAddress).
			WithClientContext(&client).WithSeverity(domain.SeverityWarning))
		return domain.ErrRateLimited
	}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, domain.ErrUserNotFound) {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if user == nil || !user.IsActive {
		s.record(ctx, domain.NewSecurityEvent(domain.PasswordResetInvalidEvent, "Password reset requested for unknown email: "+email).
			WithClientContext(&client))
		return nil
	}

	token, claims, err := s.tokens.Issue(user.ID)
	if err != nil {
		return fmt.Errorf("failed to issue reset token: %w", err)
	}
	if err := s.tokenRepo.Create(ctx, &domain.PasswordResetToken{
		UserID:    user.ID,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}

	if err := s.notifier.SendEmail(user.Email, "Password Reset Request", s.resetBody(user, token, claims)); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to deliver reset link")
	}

	s.record(ctx, domain.NewSecurityEvent(domain.PasswordResetRequestEvent, "Password reset requested").
		WithUser(user.ID).WithClientContext(&client))
	return nil
}

// ResetPassword implements domain.AccountService
func (s *AccountServiceImpl) ResetPassword(ctx context.Context, req domain.ResetPasswordRequest) error {
	errs := domain.ValidationErrors{}
	if req.NewPassword == "" {
		errs.Add("new_password", "New password is required.")
	} else {
		s.policy.Check("new_password", req.NewPassword, errs)
	}
	switch {
	case req.ConfirmPassword == "":
		errs.Add("confirm_password", "Password confirmation is required.")
	case req.NewPassword != req.ConfirmPassword:
		errs.Add("confirm_password", "Passwords do not match.")
	}
	if errs.HasErrors() {
		return errs
	}

	client := req.Client
	claims, err := s.tokens.Parse(req.Token)
	if err != nil {
		return s.invalidToken(ctx, client, 0, err)
	}

	stored, err := s.tokenRepo.Consume(ctx, claims.TokenID, s.nowFn())
	if err != nil {
		if isTokenError(err) {
			return s.invalidToken(ctx, client, claims.UserID, err)
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if stored.UserID != claims.UserID {
		return s.invalidToken(ctx, client, claims.UserID, domain.ErrTokenInvalid)
	}

	user, err := s.userRepo.FindByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return s.invalidToken(ctx, client, 0, domain.ErrTokenInvalid)
		}
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if !user.IsActive {
		return s.invalidToken(ctx, client, user.ID, domain.ErrTokenInvalid)
	}

	hash, err := s.passwordSvc.Hash(req.NewPassword)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}
	if err := s.userRepo.UpdatePassword(ctx, user.ID, hash); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
	if err := s.tokenRepo.InvalidateForUser(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to invalidate reset tokens")
	}
	if err := s.sessions.DestroyAllForUser(ctx, user.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to destroy sessions after reset")
	}

	s.record(ctx, domain.NewSecurityEvent(domain.PasswordResetSuccessEvent, "Password reset completed").
		WithUser(user.ID).WithClientContext(&client))
	return nil
}

func (s *AccountServiceImpl) exists(ctx context.Context, find func(context.Context, string) (*domain.User, error), value string) (bool, error) {
	_, err := find(ctx, value)
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, domain.ErrUserNotFound):
		return false, nil
	default:
		s.logger.WithError(err).Error("uniqueness lookup failed")
		return false, fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, err)
	}
}

func (s *AccountServiceImpl) validEmail(email string) bool {
	return s.validate.Var(email, "required,email,max=100") == nil
}

func (s *AccountServiceImpl) resetBody(user *domain.User, token string, claims *domain.ResetClaims) string {
	link := s.cfg.ResetURL + "?token=" + url.QueryEscape(token)
	return fmt.Sprintf("Hello %s,\n\nYou requested a password reset. Click the link below to reset your password:\n\n%s\n\n"+
		"This link will expire at %s.\n\nIf you did not request this reset, please ignore this email.\n",
		user.FirstName, link, claims.ExpiresAt.UTC().Format(time.RFC1123))
}

func (s *AccountServiceImpl) invalidToken(ctx context.Context, client domain.ClientContext, userID uint, cause error) error {
	s.record(ctx, domain.NewSecurityEvent(domain.PasswordResetInvalidTokenEvent, "Invalid reset token used: "+cause.Error()).
		WithUser(userID).WithClientContext(&client).WithSeverity(domain.SeverityWarning))
	if isTokenError(cause) {
		return cause
	}
	return domain.ErrTokenInvalid
}

func (s *AccountServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}

// checkNewAccount trims the fields of req in place and validates them the
// same way for self-registration and admin-created accounts
func checkNewAccount(v *validator.Validate, policy domain.PasswordPolicy, req *domain.RegisterRequest) domain.ValidationErrors {
	req.Username = strings.TrimSpace(req.Username)
	req.Email = strings.TrimSpace(req.Email)
	req.FirstName = strings.TrimSpace(req.FirstName)
	req.LastName = strings.TrimSpace(req.LastName)

	errs := domain.ValidationErrors{}
	switch {
	case req.Username == "":
		errs.Add("username", "Username is required.")
	case len(req.Username) < 3:
		errs.Add("username", "Username must be at least 3 characters long.")
	case !usernamePattern.MatchString(req.Username):
		errs.Add("username", "Username can only contain letters, numbers, and underscores.")
	}
	switch {
	case req.Email == "":
		errs.Add("email", "Email is required.")
	case v.Var(req.Email, "required,email,max=100") != nil:
		errs.Add("email", "Invalid email format.")
	}
	if req.FirstName == "" {
		errs.Add("first_name", "First name is required.")
	}
	if req.LastName == "" {
		errs.Add("last_name", "Last name is required.")
	}
	if req.Password == "" {
		errs.Add("password", "Password is required.")
	} else {
		policy.Check("password", req.Password, errs)
	}
	if req.Password != req.ConfirmPassword {
		errs.Add("confirm_password", "Passwords do not match.")
	}
	return errs
}

func isTokenError(err error) bool {
	return errors.Is(err, domain.ErrTokenInvalid) || errors.Is(err, domain.ErrTokenExpired) || errors.Is(err, domain.ErrTokenUsed)
}
