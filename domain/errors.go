package domain

import (
	"errors"
	"sort"
	"strings"
)

// Input errors
var (
	ErrInvalidInput   = errors.New("invalid input")
	ErrMissingField   = errors.New("required field missing")
	ErrSuspectedInput = errors.New("suspicious input detected")
)

// Authentication errors
var (
	ErrUserNotFound       = errors.New("user not found")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrUserAlreadyExists  = errors.New("user already exists")
	ErrEmailAlreadyExists = errors.New("email already registered")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrAccountLocked      = errors.New("account temporarily locked")
	ErrRateLimited        = errors.New("too many attempts")
)

// Session errors
var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session has expired")
	ErrSessionHijack   = errors.New("session client fingerprint mismatch")
	ErrNotLoggedIn     = errors.New("not logged in")
)

// Token errors
var (
	ErrTokenInvalid = errors.New("invalid token")
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenUsed    = errors.New("token already used")
)

// Authorization errors
var (
	ErrUnauthorized     = errors.New("unauthorized access")
	ErrInsufficientRole = errors.New("insufficient role permissions")
	ErrLastAdmin        = errors.New("cannot remove the last active admin")
	ErrProtectedUser    = errors.New("admin accounts cannot be modified this way")
)

// Fuel errors
var (
	ErrRecordNotFound = errors.New("record not found")
	ErrLimitExceeded  = errors.New("monthly limit exceeded")
)

// Infrastructure errors
var (
	ErrStoreUnavailable = errors.New("store unavailable")
)

// ValidationErrors maps a field name to the messages collected for it
type ValidationErrors map[string][]string

// Add appends a message for field
func (v ValidationErrors) Add(field, message string) {
	v[field] = append(v[field], message)
}

// HasErrors reports whether any message was collected
func (v ValidationErrors) HasErrors() bool {
	return len(v) > 0
}

// Error joins all messages in field order
func (v ValidationErrors) Error() string {
	fields := make([]string, 0, len(v))
	for f := range v {
		fields = append(fields, f)
	}
	sort.Strings(fields)

	var parts []string
	for _, f := range fields {
		parts = append(parts, v[f]...)
	}
	return strings.Join(parts, " ")
}

// Unwrap lets errors.Is match ErrInvalidInput
func (v ValidationErrors) Unwrap() error {
	return ErrInvalidInput
}
