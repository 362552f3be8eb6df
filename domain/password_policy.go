package domain

import (
	"fmt"
	"strings"
	"unicode"
)

// specialChars is the set counted as special characters
const specialChars = `!@#$%^&*(),.?":{}|<>`

// PasswordPolicy describes the strength rules applied when a password is set
type PasswordPolicy struct {
	MinLength      int
	RequireUpper   bool
	RequireLower   bool
	RequireDigit   bool
	RequireSpecial bool
}

// DefaultPasswordPolicy returns the policy used when none is configured
func DefaultPasswordPolicy() PasswordPolicy {
	return PasswordPolicy{
		MinLength:      8,
		RequireUpper:   true,
		RequireLower:   true,
		RequireDigit:   true,
		RequireSpecial: true,
	}
}

// Validate returns one message per violated rule, or nil when the password passes
func (p PasswordPolicy) Validate(password string) []string {
	var upper, lower, digit, special bool
	for _, r := range password {
		switch {
		case unicode.IsUpper(r) && r < unicode.MaxASCII:
			upper = true
		case unicode.IsLower(r) && r < unicode.MaxASCII:
			lower = true
		case unicode.IsDigit(r) && r < unicode.MaxASCII:
			digit = true
		case strings.ContainsRune(specialChars, r):
			special = true
		}
	}

	var msgs []string
	if len(password) < p.MinLength {
		msgs = append(msgs, fmt.Sprintf("Password must be at least %d characters long", p.MinLength))
	}
	if p.RequireUpper && !upper {
		msgs = append(msgs, "Password must contain at least one uppercase letter")
	}
	if p.RequireLower && !lower {
		msgs = append(msgs, "Password must contain at least one lowercase letter")
	}
	if p.RequireDigit && !digit {
		msgs = append(msgs, "Password must contain at least one number")
	}
	if p.RequireSpecial && !special {
		msgs = append(msgs, "Password must contain at least one special character")
	}
	return msgs
}

// Check records every violation under field in errs
func (p PasswordPolicy) Check(field, password string, errs ValidationErrors) {
	for _, m := range p.Validate(password) {
		errs.Add(field, m)
	}
}
