package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/you/fueltrack/domain"
)

// Client-visible login messages. They never reveal which check failed.
const (
	MsgLoginSuccess     = "Login successful."
	MsgTooManyAttempts  = "Too many login attempts. Please try again later."
	MsgMissingFields    = "Username and password are required."
	MsgInvalidInput     = "Invalid input detected."
	MsgInvalidLogin     = "Invalid username or password."
	MsgAccountLocked    = "Account is temporarily locked. Please try again later."
	MsgAccountInactive  = "Account is inactive. Please contact administrator."
	MsgLoginStoreFailed = "An error occurred during login."
)

// LoginRateLimitPrefix prefixes the client IP to form the login rate-limit key
const LoginRateLimitPrefix = "login_"

// AuthConfig holds the login policy
type AuthConfig struct {
	MaxLoginAttempts int
	LockoutTime      time.Duration
	RateLimitMax     int
	RateLimitWindow  time.Duration
	Debug            bool
}

// AuthServiceImpl implements domain.AuthService
type AuthServiceImpl struct {
	userRepo    domain.UserRepository
	sessions    *SessionManager
	limiter     domain.RateLimiter
	passwordSvc domain.PasswordService
	events      domain.SecurityEventLog
	cfg         AuthConfig
	nowFn       func() time.Time
	logger      *log.Entry
}

// NewAuthService creates a new auth service
func NewAuthService(
	userRepo domain.UserRepository,
	sessions *SessionManager,
	limiter domain.RateLimiter,
	passwordSvc domain.PasswordService,
	events domain.SecurityEventLog,
	cfg AuthConfig,
	nowFn func() time.Time,
) domain.AuthService {
	if nowFn == nil {
		nowFn = time.Now
	}
	if cfg.RateLimitMax <= 0 {
		cfg.RateLimitMax = cfg.MaxLoginAttempts
	}
	if cfg.RateLimitWindow <= 0 {
		cfg.RateLimitWindow = cfg.LockoutTime
	}
	return &AuthServiceImpl{
		userRepo:    userRepo,
		sessions:    sessions,
		limiter:     limiter,
		passwordSvc: passwordSvc,
		events:      events,
		cfg:         cfg,
		nowFn:       nowFn,
		logger:      log.WithField("component", "auth"),
	}
}

// Login implements domain.AuthService
func (s *AuthServiceImpl) Login(ctx context.Context, req domain.LoginRequest) (*domain.LoginResult, error) {
	client := req.Client

	allowed, err := s.limiter.Allow(ctx, LoginRateLimitPrefix+client.IPAddress, s.cfg.RateLimitMax, s.cfg.RateLimitWindow)
	if err != nil {
		s.logger.WithError(err).WithField("ip", client.IPAddress).Error("rate limiter unavailable, denying login")
		return s.storeFailure(err)
	}
	if !allowed {
		s.record(ctx, domain.NewSecurityEvent(domain.LoginRateLimitEvent, "Rate limit exceeded for IP: "+client.IPAddress).
			WithClientContext(&client).WithSeverity(domain.SeverityWarning))
		return failed(MsgTooManyAttempts), domain.ErrRateLimited
	}

	if req.Identifier == "" || req.Password == "" {
		return failed(MsgMissingFields), domain.ErrMissingField
	}

	// the password only ever reaches the hasher
	if LooksMalicious(req.Identifier) {
		s.record(ctx, domain.NewSecurityEvent(domain.SQLInjectionAttemptEvent, "Possible SQL injection in login attempt").
			WithClientContext(&client).WithSeverity(domain.SeverityWarning))
		return failed(MsgInvalidInput), domain.ErrSuspectedInput
	}

	user, err := s.userRepo.FindByUsernameOrEmail(ctx, req.Identifier)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			s.record(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, "Invalid username: "+req.Identifier).
				WithClientContext(&client))
			return failed(MsgInvalidLogin), domain.ErrInvalidCredentials
		}
		s.logger.WithError(err).Error("credential lookup failed")
		return s.storeFailure(err)
	}

	now := s.nowFn()
	if user.IsLocked(now) {
		s.record(ctx, domain.NewSecurityEvent(domain.LoginLockedEvent, "Attempted login to locked account").
			WithUser(user.ID).WithClientContext(&client))
		return failed(MsgAccountLocked), domain.ErrAccountLocked
	}

	if !user.IsActive {
		s.record(ctx, domain.NewSecurityEvent(domain.LoginInactiveEvent, "Attempted login to inactive account").
			WithUser(user.ID).WithClientContext(&client))
		return failed(MsgAccountInactive), domain.ErrUserInactive
	}

	if !s.passwordSvc.Verify(user.PasswordHash, req.Password) {
		failure, err := s.userRepo.RecordFailedAttempt(ctx, user.ID, s.cfg.MaxLoginAttempts, now.Add(s.cfg.LockoutTime))
		if err != nil {
			s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to record failed attempt")
			return s.storeFailure(err)
		}
		if failure.Locked() {
			s.record(ctx, domain.NewSecurityEvent(domain.AccountLockedEvent,
				fmt.Sprintf("Account locked after %d failed attempts", failure.Attempts)).
				WithUser(user.ID).WithClientContext(&client).WithSeverity(domain.SeverityWarning))
		}
		s.record(ctx, domain.NewSecurityEvent(domain.LoginFailedEvent, "Invalid password for user: "+user.Username).
			WithUser(user.ID).WithClientContext(&client))
		return failed(MsgInvalidLogin), domain.ErrInvalidCredentials
	}

	if err := s.userRepo.RecordSuccessfulLogin(ctx, user.ID, now); err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to record successful login")
		return s.storeFailure(err)
	}
	user.FailedLoginAttempts = 0
	user.LockedUntil = nil
	user.LastLogin = &now

	session, err := s.sessions.Create(ctx, user, client, client.SessionID)
	if err != nil {
		s.logger.WithError(err).WithField("user_id", user.ID).Error("failed to create session")
		return s.storeFailure(err)
	}

	client.SessionID = session.ID
	s.record(ctx, domain.NewSecurityEvent(domain.LoginSuccessEvent, "User logged in successfully").
		WithUser(user.ID).WithClientContext(&client))

	return &domain.LoginResult{
		Success: true,
		Message: MsgLoginSuccess,
		Role:    user.Role,
		User:    user,
		Session: session,
	}, nil
}

// IsLoggedIn implements domain.AuthService. The result is cached on rs so a
// request validates its session at most once.
func (s *AuthServiceImpl) IsLoggedIn(ctx context.Context, rs *domain.RequestSession) bool {
	if rs == nil {
		return false
	}
	if checked, valid := rs.Resolved(); checked {
		return valid
	}
	if rs.SessionID == "" {
		rs.Clear()
		return false
	}

	session, err := s.sessions.Validate(ctx, rs.SessionID, rs.Client)
	switch {
	case err == nil:
		rs.Attach(session)
		return true
	case errors.Is(err, domain.ErrSessionExpired), errors.Is(err, domain.ErrSessionHijack):
		rs.Session = session
		if lerr := s.Logout(ctx, rs); lerr != nil {
			s.logger.WithError(lerr).Warn("logout after invalid session failed")
		}
		return false
	case errors.Is(err, domain.ErrSessionNotFound):
		rs.Clear()
		return false
	default:
		s.logger.WithError(err).Error("session validation failed")
		rs.Clear()
		return false
	}
}

// CurrentUser implements domain.AuthService
func (s *AuthServiceImpl) CurrentUser(ctx context.Context, rs *domain.RequestSession) *domain.CurrentUser {
	if !s.IsLoggedIn(ctx, rs) {
		return nil
	}
	return rs.Session.CurrentUser()
}

// HasRole implements domain.AuthService
func (s *AuthServiceImpl) HasRole(ctx context.Context, rs *domain.RequestSession, role string) bool {
	u := s.CurrentUser(ctx, rs)
	return u != nil && u.Role == role
}

// Logout implements domain.AuthService. It always leaves rs cleared; calling
// it again is a no-op.
func (s *AuthServiceImpl) Logout(ctx context.Context, rs *domain.RequestSession) error {
	if rs == nil {
		return nil
	}
	if checked, _ := rs.Resolved(); !checked && rs.Session == nil && rs.SessionID != "" {
		// validation clears rs itself when the session is not live
		if !s.IsLoggedIn(ctx, rs) {
			return nil
		}
	}
	defer rs.Clear()

	if rs.Session == nil {
		return nil
	}

	client := rs.Client
	user := rs.Session.UserID
	if err := s.sessions.Destroy(ctx, rs.Session.ID); err != nil {
		s.logger.WithError(err).WithField("user_id", user).Error("failed to remove session")
		return err
	}
	s.record(ctx, domain.NewSecurityEvent(domain.LogoutEvent, "User logged out").
		WithUser(user).WithClientContext(&client))
	return nil
}

func (s *AuthServiceImpl) record(ctx context.Context, event *domain.SecurityEvent) {
	if err := s.events.Record(ctx, event); err != nil {
		s.logger.WithError(err).WithField("event_type", event.EventType).Error("failed to record security event")
	}
}

func (s *AuthServiceImpl) storeFailure(cause error) (*domain.LoginResult, error) {
	msg := MsgLoginStoreFailed
	if s.cfg.Debug {
		msg = "Login error: " + cause.Error()
	}
	return failed(msg), fmt.Errorf("%w: %v", domain.ErrStoreUnavailable, cause)
}

func failed(message string) *domain.LoginResult {
	return &domain.LoginResult{Message: message}
}
