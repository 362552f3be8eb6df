package domain

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSentinelErrors(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		expectedMsg string
	}{
		{name: "ErrUserNotFound", err: ErrUserNotFound, expectedMsg: "user not found"},
		{name: "ErrInvalidCredentials", err: ErrInvalidCredentials, expectedMsg: "invalid credentials"},
		{name: "ErrUserInactive", err: ErrUserInactive, expectedMsg: "user account is inactive"},
		{name: "ErrAccountLocked", err: ErrAccountLocked, expectedMsg: "account temporarily locked"},
		{name: "ErrRateLimited", err: ErrRateLimited, expectedMsg: "too many attempts"},
		{name: "ErrSessionHijack", err: ErrSessionHijack, expectedMsg: "session client fingerprint mismatch"},
		{name: "ErrTokenUsed", err: ErrTokenUsed, expectedMsg: "token already used"},
		{name: "ErrLastAdmin", err: ErrLastAdmin, expectedMsg: "cannot remove the last active admin"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expectedMsg, tt.err.Error())

			wrapped := fmt.Errorf("failed to do thing: %w", tt.err)
			assert.True(t, errors.Is(wrapped, tt.err))
		})
	}
}

func TestValidationErrors(t *testing.T) {
	errs := ValidationErrors{}
	assert.False(t, errs.HasErrors())

	errs.Add("username", "Username is required.")
	errs.Add("email", "Email is invalid.")
	errs.Add("email", "Email is already registered.")

	assert.True(t, errs.HasErrors())
	assert.Len(t, errs["email"], 2)
	assert.Equal(t, "Email is invalid. Email is already registered. Username is required.", errs.Error())

	var err error = fmt.Errorf("register: %w", errs)
	assert.ErrorIs(t, err, ErrInvalidInput)

	var target ValidationErrors
	assert.True(t, errors.As(err, &target))
	assert.Equal(t, errs, target)
}
