package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Role names recognised by the access guards
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleAdmin    = "admin"
)

// ValidRole reports whether role is one of the known roles
func ValidRole(role string) bool {
	switch role {
	case RoleEmployee, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User represents an account in the credential store
type User struct {
	ID                  uint
	Username            string
	Email               string
	FirstName           string
	LastName            string
	PasswordHash        string
	Role                string
	IsActive            bool
	FailedLoginAttempts int
	LockedUntil         *time.Time
	LastLogin           *time.Time
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// IsLocked reports whether the lockout is still in force at now.
// An elapsed lockout unlocks the account regardless of the counter.
func (u *User) IsLocked(now time.Time) bool {
	return u.LockedUntil != nil && u.LockedUntil.After(now)
}

// CurrentUser is the identity exposed to page handlers
type CurrentUser struct {
	ID       uint   `json:"id"`
	Username string `json:"username"`
	Email    string `json:"email"`
	Role     string `json:"role"`
}

// LoginFailure is the outcome of recording a failed password attempt
type LoginFailure struct {
	Attempts    int
	LockedUntil *time.Time
}

// Locked reports whether the failure put the account into lockout
func (f LoginFailure) Locked() bool {
	return f.LockedUntil != nil
}

// ClientContext represents the transport fingerprint of a request
type ClientContext struct {
	IPAddress string
	UserAgent string
	SessionID string
}

// Session represents one authenticated browser context
type Session struct {
	ID           string    `json:"id"`
	UserID       uint      `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Role         string    `json:"role"`
	IPAddress    string    `json:"ip_address"`
	UserAgent    string    `json:"user_agent"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
}

// Idle reports whether the session has been inactive for lifetime or longer
func (s *Session) Idle(now time.Time, lifetime time.Duration) bool {
	return now.Sub(s.LastActivity) >= lifetime
}

// MatchesClient reports whether the presenting client fingerprint equals the bound one
func (s *Session) MatchesClient(client ClientContext) bool {
	return s.IPAddress == client.IPAddress && s.UserAgent == client.UserAgent
}

// CurrentUser projects the session owner
func (s *Session) CurrentUser() *CurrentUser {
	return &CurrentUser{ID: s.UserID, Username: s.Username, Email: s.Email, Role: s.Role}
}

// PasswordResetToken tracks single use of an issued reset token
type PasswordResetToken struct {
	ID        uint
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
	Used      bool
	CreatedAt time.Time
}

// ResetClaims are the verified contents of a password reset token
type ResetClaims struct {
	UserID    uint
	TokenID   string
	ExpiresAt time.Time
}

// UserFilter narrows user listings
type UserFilter struct {
	Search string
	Role   string
	Active *bool
	Page   int
	Limit  int
}

// UserProfileUpdate carries admin edits of a user record
type UserProfileUpdate struct {
	Username  string
	Email     string
	FirstName string
	LastName  string
}

// FuelRecord is a single logged fuel purchase
type FuelRecord struct {
	ID            uint
	UserID        uint
	Date          time.Time
	Mileage       int
	Liters        decimal.Decimal
	PricePerLiter decimal.Decimal
	TotalCost     decimal.Decimal
	Location      string
	Notes         string
	CreatedAt     time.Time
}

// FuelLimit is a monthly spending cap for one user
type FuelLimit struct {
	ID           uint
	UserID       uint
	Month        time.Time
	MonthlyLimit decimal.Decimal
	CreatedBy    uint
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// FuelRecordFilter narrows fuel record listings
type FuelRecordFilter struct {
	UserID uint
	Month  *time.Time
	Page   int
	Limit  int
}

// MonthlySpending aggregates one user's fuel purchases in a month
type MonthlySpending struct {
	UserID    uint
	Username  string
	Records   int64
	Liters    decimal.Decimal
	TotalCost decimal.Decimal
	Limit     *decimal.Decimal
}

// Remaining returns the unspent part of the limit, or nil when no limit is set
func (m MonthlySpending) Remaining() *decimal.Decimal {
	if m.Limit == nil {
		return nil
	}
	r := m.Limit.Sub(m.TotalCost)
	return &r
}

// MonthTotals aggregates every purchase made in one calendar month
type MonthTotals struct {
	Month       time.Month
	ActiveUsers int64
	Records     int64
	Liters      decimal.Decimal
	TotalCost   decimal.Decimal
	AvgPrice    decimal.Decimal
}

// YearlyReport breaks a year of purchases down by month. Months without
// purchases are omitted.
type YearlyReport struct {
	Year      int
	Months    []MonthTotals
	Records   int64
	Liters    decimal.Decimal
	TotalCost decimal.Decimal
}

// UserStats counts non-admin accounts
type UserStats struct {
	Total  int64
	Active int64
	Locked int64
}

// SessionStats counts stored sessions
type SessionStats struct {
	Total  int64
	Active int64
}

// SystemStats is the overview shown on the maintenance page
type SystemStats struct {
	Users      UserStats
	Sessions   SessionStats
	TotalLogs  int64
	RecentLogs int64
}

// MonthStart truncates t to the first instant of its month in UTC
func MonthStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
