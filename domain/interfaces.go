package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// UserRepository defines credential store operations
type UserRepository interface {
	Create(ctx context.Context, user *User) error
	FindByID(ctx context.Context, id uint) (*User, error)
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByEmail(ctx context.Context, email string) (*User, error)
	FindByUsernameOrEmail(ctx context.Context, identifier string) (*User, error)
	// RecordFailedAttempt increments the failure counter from the stored value
	// and sets locked_until once the counter reaches maxAttempts.
	RecordFailedAttempt(ctx context.Context, userID uint, maxAttempts int, lockUntil time.Time) (LoginFailure, error)
	RecordSuccessfulLogin(ctx context.Context, userID uint, at time.Time) error
	UpdatePassword(ctx context.Context, userID uint, passwordHash string) error
	UpdateProfile(ctx context.Context, userID uint, update UserProfileUpdate) error
	SetActive(ctx context.Context, userID uint, active bool) error
	SetRole(ctx context.Context, userID uint, role string) error
	Unlock(ctx context.Context, userID uint) error
	// UnlockAll clears failure counters and lockouts on every account
	UnlockAll(ctx context.Context) (int64, error)
	Stats(ctx context.Context, now time.Time) (UserStats, error)
	List(ctx context.Context, filter UserFilter) ([]User, int64, error)
	CountActiveAdmins(ctx context.Context) (int64, error)
}

// SessionRepository defines session data access operations
type SessionRepository interface {
	Create(ctx context.Context, session *Session) error
	FindByID(ctx context.Context, sessionID string) (*Session, error)
	// Touch refreshes activity for a live session, ErrSessionNotFound if it is gone
	Touch(ctx context.Context, sessionID string, lastActivity, expiresAt time.Time) error
	Delete(ctx context.Context, sessionID string) error
	DeleteByUser(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
	// UpdateEmail rewrites the cached email on every session of userID
	UpdateEmail(ctx context.Context, userID uint, email string) error
	Stats(ctx context.Context, now time.Time) (SessionStats, error)
}

// RateLimiter tracks attempts per identifier in a trailing window
type RateLimiter interface {
	Allow(ctx context.Context, identifier string, maxAttempts int, window time.Duration) (bool, error)
}

// PasswordService defines password operations
type PasswordService interface {
	Hash(password string) (string, error)
	Verify(hashedPassword, password string) bool
}

// ResetTokenService signs and verifies password reset tokens
type ResetTokenService interface {
	Issue(userID uint) (string, *ResetClaims, error)
	Parse(token string) (*ResetClaims, error)
}

// ResetTokenRepository tracks single use of reset tokens
type ResetTokenRepository interface {
	Create(ctx context.Context, token *PasswordResetToken) error
	// Consume marks an unused, unexpired token as used; ErrTokenUsed otherwise
	Consume(ctx context.Context, tokenID string, now time.Time) (*PasswordResetToken, error)
	InvalidateForUser(ctx context.Context, userID uint) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

// NotificationService defines notification operations
type NotificationService interface {
	SendSMS(to, message string) error
	SendEmail(to, subject, body string) error
}

// FuelRepository persists fuel records and monthly limits
type FuelRepository interface {
	CreateRecord(ctx context.Context, record *FuelRecord) error
	DeleteRecord(ctx context.Context, id, userID uint) error
	ListRecords(ctx context.Context, filter FuelRecordFilter) ([]FuelRecord, int64, error)
	LastMileage(ctx context.Context, userID uint) (int, error)
	MonthlySpending(ctx context.Context, userID uint, month time.Time) (*MonthlySpending, error)
	MonthlyReport(ctx context.Context, month time.Time) ([]MonthlySpending, error)
	// YearRecords returns every record dated within year
	YearRecords(ctx context.Context, year int) ([]FuelRecord, error)
	UpsertLimit(ctx context.Context, limit *FuelLimit) error
	DeleteLimit(ctx context.Context, id uint) error
	FindLimit(ctx context.Context, userID uint, month time.Time) (*FuelLimit, error)
}

// LoginRequest carries a login form submission
type LoginRequest struct {
	Identifier string
	Password   string
	Client     ClientContext
}

// LoginResult is the outcome surfaced to page handlers
type LoginResult struct {
	Success bool
	Message string
	Role    string
	User    *User
	Session *Session
}

// RequestSession is the per-request session context threaded through handlers
type RequestSession struct {
	SessionID string
	Client    ClientContext
	Session   *Session
	checked   bool
	valid     bool
}

// NewRequestSession builds the session context for one request
func NewRequestSession(sessionID string, client ClientContext) *RequestSession {
	client.SessionID = sessionID
	return &RequestSession{SessionID: sessionID, Client: client}
}

// Resolved reports whether validation already ran for this request and its result
func (r *RequestSession) Resolved() (checked, valid bool) {
	return r.checked, r.valid
}

// Attach binds a validated session to the request
func (r *RequestSession) Attach(s *Session) {
	r.Session = s
	r.SessionID = s.ID
	r.Client.SessionID = s.ID
	r.checked = true
	r.valid = true
}

// Clear drops all session state held for the request
func (r *RequestSession) Clear() {
	r.Session = nil
	r.SessionID = ""
	r.Client.SessionID = ""
	r.checked = true
	r.valid = false
}

// AuthService defines the authentication orchestrator
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*LoginResult, error)
	IsLoggedIn(ctx context.Context, rs *RequestSession) bool
	CurrentUser(ctx context.Context, rs *RequestSession) *CurrentUser
	HasRole(ctx context.Context, rs *RequestSession, role string) bool
	Logout(ctx context.Context, rs *RequestSession) error
}

// RegisterRequest carries a self-registration
type RegisterRequest struct {
	Username        string
	Email           string
	FirstName       string
	LastName        string
	Password        string
	ConfirmPassword string
	Client          ClientContext
}

// ChangePasswordRequest carries a password change by the account owner
type ChangePasswordRequest struct {
	UserID          uint
	CurrentPassword string
	NewPassword     string
	ConfirmPassword string
	Client          ClientContext
}

// ResetPasswordRequest carries a token-based password reset
type ResetPasswordRequest struct {
	Token           string
	NewPassword     string
	ConfirmPassword string
	Client          ClientContext
}

// UpdateProfileRequest carries a profile edit by the account owner
type UpdateProfileRequest struct {
	UserID    uint
	Email     string
	FirstName string
	LastName  string
	Client    ClientContext
}

// AccountService defines self-service account operations
type AccountService interface {
	Register(ctx context.Context, req RegisterRequest) (*User, error)
	Profile(ctx context.Context, userID uint) (*User, error)
	UpdateProfile(ctx context.Context, req UpdateProfileRequest) (*User, error)
	ChangePassword(ctx context.Context, req ChangePasswordRequest) error
	RequestPasswordReset(ctx context.Context, email string, client ClientContext) error
	ResetPassword(ctx context.Context, req ResetPasswordRequest) error
}

// CreateUserRequest carries an account created by an admin
type CreateUserRequest struct {
	RegisterRequest
	Role string
}

// UserAdminService defines admin account management
type UserAdminService interface {
	List(ctx context.Context, filter UserFilter) ([]User, int64, error)
	Create(ctx context.Context, actor *CurrentUser, req CreateUserRequest) (*User, error)
	SetActive(ctx context.Context, actor *CurrentUser, userID uint, active bool, client ClientContext) error
	Unlock(ctx context.Context, actor *CurrentUser, userID uint, client ClientContext) error
	Update(ctx context.Context, actor *CurrentUser, userID uint, update UserProfileUpdate, role string, client ClientContext) error
}

// MaintenanceService defines admin housekeeping operations
type MaintenanceService interface {
	// CleanupLogs deletes security events older than days, never fewer than seven
	CleanupLogs(ctx context.Context, actor *CurrentUser, days int, client ClientContext) (int64, error)
	CleanupSessions(ctx context.Context, actor *CurrentUser, client ClientContext) (int64, error)
	ResetFailedLogins(ctx context.Context, actor *CurrentUser, client ClientContext) (int64, error)
	Stats(ctx context.Context) (*SystemStats, error)
}

// AddFuelRecordRequest carries a new fuel purchase
type AddFuelRecordRequest struct {
	UserID        uint
	Date          time.Time
	Mileage       int
	Liters        decimal.Decimal
	PricePerLiter decimal.Decimal
	Location      string
	Notes         string
	Client        ClientContext
}

// FuelService defines fuel tracking operations
type FuelService interface {
	AddRecord(ctx context.Context, req AddFuelRecordRequest) (*FuelRecord, error)
	ListRecords(ctx context.Context, filter FuelRecordFilter) ([]FuelRecord, int64, error)
	DeleteRecord(ctx context.Context, userID, recordID uint, client ClientContext) error
	Summary(ctx context.Context, userID uint, month time.Time) (*MonthlySpending, error)
	Report(ctx context.Context, month time.Time) ([]MonthlySpending, error)
	YearlyReport(ctx context.Context, year int) (*YearlyReport, error)
	SetLimit(ctx context.Context, actor *CurrentUser, userID uint, month time.Time, amount decimal.Decimal, client ClientContext) (*FuelLimit, error)
	DeleteLimit(ctx context.Context, actor *CurrentUser, limitID uint, client ClientContext) error
}

// PolicyService defines authorization policy operations
type PolicyService interface {
	AddPolicy(role, resource, action string) error
	RemovePolicy(role, resource, action string) error
	CheckPermission(role, resource, action string) (bool, error)
	GetPolicies() [][]string
}

// CasbinEnforcer interface defines the methods we need from Casbin enforcer
type CasbinEnforcer interface {
	AddPolicy(params ...interface{}) (bool, error)
	RemovePolicy(params ...interface{}) (bool, error)
	Enforce(rvals ...interface{}) (bool, error)
	GetPolicy() ([][]string, error)
	SavePolicy() error
}
