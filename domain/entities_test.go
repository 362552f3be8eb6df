package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func TestUser_IsLocked(t *testing.T) {
	now := time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)
	future := now.Add(30 * time.Second)
	past := now.Add(-time.Second)

	tests := []struct {
		name     string
		user     *User
		expected bool
	}{
		{name: "never locked", user: &User{}, expected: false},
		{name: "lock in force", user: &User{LockedUntil: &future, FailedLoginAttempts: 5}, expected: true},
		{name: "lock elapsed", user: &User{LockedUntil: &past, FailedLoginAttempts: 5}, expected: false},
		{name: "lock ends exactly now", user: &User{LockedUntil: &now}, expected: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.user.IsLocked(now))
		})
	}
}

func TestSession_Idle(t *testing.T) {
	now := time.Now()
	lifetime := 30 * time.Minute

	tests := []struct {
		name         string
		lastActivity time.Time
		expected     bool
	}{
		{name: "fresh", lastActivity: now, expected: false},
		{name: "just under lifetime", lastActivity: now.Add(-lifetime + time.Second), expected: false},
		{name: "exactly lifetime", lastActivity: now.Add(-lifetime), expected: true},
		{name: "well past lifetime", lastActivity: now.Add(-2 * lifetime), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := &Session{LastActivity: tt.lastActivity}
			assert.Equal(t, tt.expected, s.Idle(now, lifetime))
		})
	}
}

func TestSession_MatchesClient(t *testing.T) {
	s := &Session{IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"}

	assert.True(t, s.MatchesClient(ClientContext{IPAddress: "10.0.0.1", UserAgent: "Mozilla/5.0"}))
	assert.False(t, s.MatchesClient(ClientContext{IPAddress: "10.0.0.2", UserAgent: "Mozilla/5.0"}))
	assert.False(t, s.MatchesClient(ClientContext{IPAddress: "10.0.0.1", UserAgent: "curl/8.0"}))
}

func TestSession_CurrentUser(t *testing.T) {
	s := &Session{UserID: 7, Username: "jdoe", Email: "jdoe@example.com", Role: RoleManager}

	assert.Equal(t, &CurrentUser{ID: 7, Username: "jdoe", Email: "jdoe@example.com", Role: RoleManager}, s.CurrentUser())
}

func TestValidRole(t *testing.T) {
	for _, r := range []string{RoleEmployee, RoleManager, RoleAdmin} {
		assert.True(t, ValidRole(r), r)
	}
	assert.False(t, ValidRole("superuser"))
	assert.False(t, ValidRole(""))
}

func TestLoginFailure_Locked(t *testing.T) {
	until := time.Now().Add(time.Minute)

	assert.False(t, LoginFailure{Attempts: 3}.Locked())
	assert.True(t, LoginFailure{Attempts: 5, LockedUntil: &until}.Locked())
}

func TestMonthlySpending_Remaining(t *testing.T) {
	limit := decimal.RequireFromString("200.00")

	noLimit := MonthlySpending{TotalCost: decimal.RequireFromString("50")}
	assert.Nil(t, noLimit.Remaining())

	withLimit := MonthlySpending{TotalCost: decimal.RequireFromString("150.25"), Limit: &limit}
	remaining := withLimit.Remaining()
	if assert.NotNil(t, remaining) {
		assert.True(t, remaining.Equal(decimal.RequireFromString("49.75")), remaining.String())
	}
}

func TestMonthStart(t *testing.T) {
	in := time.Date(2024, 2, 29, 23, 59, 0, 0, time.FixedZone("CET", 3600))

	assert.Equal(t, time.Date(2024, 2, 1, 0, 0, 0, 0, time.UTC), MonthStart(in))
}

func TestRequestSession_Lifecycle(t *testing.T) {
	rs := NewRequestSession("abc", ClientContext{IPAddress: "1.2.3.4", UserAgent: "ua"})
	checked, _ := rs.Resolved()
	assert.False(t, checked)
	assert.Equal(t, "abc", rs.Client.SessionID)

	rs.Attach(&Session{ID: "def", UserID: 1})
	checked, valid := rs.Resolved()
	assert.True(t, checked)
	assert.True(t, valid)
	assert.Equal(t, "def", rs.SessionID)

	rs.Clear()
	checked, valid = rs.Resolved()
	assert.True(t, checked)
	assert.False(t, valid)
	assert.Nil(t, rs.Session)
	assert.Empty(t, rs.SessionID)
}
