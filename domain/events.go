package domain

import (
	"context"
	"time"
)

// SecurityEventType defines the type of security event
type SecurityEventType string

const (
	// Authentication events
	LoginSuccessEvent        SecurityEventType = "LOGIN_SUCCESS"
	LoginFailedEvent         SecurityEventType = "LOGIN_FAILED"
	LoginLockedEvent         SecurityEventType = "LOGIN_LOCKED"
	LoginInactiveEvent       SecurityEventType = "LOGIN_INACTIVE"
	LoginRateLimitEvent      SecurityEventType = "LOGIN_RATE_LIMIT"
	AccountLockedEvent       SecurityEventType = "ACCOUNT_LOCKED"
	SQLInjectionAttemptEvent SecurityEventType = "SQL_INJECTION_ATTEMPT"
	LogoutEvent              SecurityEventType = "LOGOUT"

	// Session events
	SessionHijackEvent  SecurityEventType = "SESSION_HIJACK_ATTEMPT"
	SessionExpiredEvent SecurityEventType = "SESSION_EXPIRED"

	// Authorization events
	UnauthorizedAccessEvent SecurityEventType = "UNAUTHORIZED_ACCESS"
	CSRFFailedEvent         SecurityEventType = "CSRF_VALIDATION_FAILED"
	PolicyChangedEvent      SecurityEventType = "POLICY_CHANGED"

	// Account lifecycle events
	RegistrationSuccessEvent       SecurityEventType = "REGISTRATION_SUCCESS"
	PasswordChangedEvent           SecurityEventType = "PASSWORD_CHANGED"
	PasswordResetRequestEvent      SecurityEventType = "PASSWORD_RESET_REQUEST"
	PasswordResetInvalidEvent      SecurityEventType = "PASSWORD_RESET_INVALID"
	PasswordResetRateLimitEvent    SecurityEventType = "PASSWORD_RESET_RATE_LIMIT"
	PasswordResetSuccessEvent      SecurityEventType = "PASSWORD_RESET_SUCCESS"
	PasswordResetInvalidTokenEvent SecurityEventType = "PASSWORD_RESET_INVALID_TOKEN"
	UserStatusChangedEvent         SecurityEventType = "USER_STATUS_CHANGED"
	UserUnlockedEvent              SecurityEventType = "USER_UNLOCKED"
	UserUpdatedEvent               SecurityEventType = "USER_UPDATED"
	UserCreatedEvent               SecurityEventType = "USER_CREATED"
	ProfileUpdatedEvent            SecurityEventType = "PROFILE_UPDATED"

	// Maintenance events
	LogsCleanupEvent       SecurityEventType = "LOGS_CLEANUP"
	SessionsCleanupEvent   SecurityEventType = "SESSIONS_CLEANUP"
	FailedLoginsResetEvent SecurityEventType = "FAILED_LOGINS_RESET"

	// Fuel events
	FuelRecordAddedEvent   SecurityEventType = "FUEL_RECORD_ADDED"
	FuelRecordDeletedEvent SecurityEventType = "FUEL_RECORD_DELETED"
	LimitSetEvent          SecurityEventType = "LIMIT_SET"
	LimitDeletedEvent      SecurityEventType = "LIMIT_DELETED"
)

// Severity grades how urgently an event deserves attention
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

// SecurityEvent is an immutable audit record
type SecurityEvent struct {
	ID          uint              `json:"id"`
	EventType   SecurityEventType `json:"event_type"`
	Description string            `json:"description"`
	UserID      *uint             `json:"user_id,omitempty"`
	Username    string            `json:"username,omitempty"`
	IPAddress   string            `json:"ip_address,omitempty"`
	UserAgent   string            `json:"user_agent,omitempty"`
	SessionID   string            `json:"-"`
	Severity    Severity          `json:"severity"`
	CreatedAt   time.Time         `json:"created_at"`
}

// SecurityEventFilter narrows security log queries
type SecurityEventFilter struct {
	EventType SecurityEventType
	From      time.Time
	To        time.Time
	User      string
	Page      int
	Limit     int
}

// SecurityEventLog is the append-only audit sink
type SecurityEventLog interface {
	Record(ctx context.Context, event *SecurityEvent) error
	List(ctx context.Context, filter SecurityEventFilter) ([]SecurityEvent, int64, error)
	EventTypes(ctx context.Context) ([]SecurityEventType, error)
	// Count returns the number of events at or after since; zero since counts all
	Count(ctx context.Context, since time.Time) (int64, error)
	DeleteOlderThan(ctx context.Context, before time.Time) (int64, error)
}

// NewSecurityEvent creates a new event with common fields populated
func NewSecurityEvent(eventType SecurityEventType, description string) *SecurityEvent {
	return &SecurityEvent{
		EventType:   eventType,
		Description: description,
		Severity:    SeverityInfo,
		CreatedAt:   time.Now().UTC(),
	}
}

// WithUser sets the user the event concerns
func (e *SecurityEvent) WithUser(userID uint) *SecurityEvent {
	if userID != 0 {
		id := userID
		e.UserID = &id
	}
	return e
}

// WithClientContext sets client context information
func (e *SecurityEvent) WithClientContext(ctx *ClientContext) *SecurityEvent {
	if ctx != nil {
		e.IPAddress = ctx.IPAddress
		e.UserAgent = ctx.UserAgent
		e.SessionID = ctx.SessionID
	}
	return e
}

// WithSeverity overrides the default info severity
func (e *SecurityEvent) WithSeverity(s Severity) *SecurityEvent {
	e.Severity = s
	return e
}

// At overrides the event timestamp
func (e *SecurityEvent) At(t time.Time) *SecurityEvent {
	e.CreatedAt = t.UTC()
	return e
}
