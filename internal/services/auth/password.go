// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth

import (
	"fmt"
	"strings"

	"golang.org/x/crypto/bcrypt"
)

const (
	// MinPasswordLength is the minimum accepted password length.
	MinPasswordLength = 8
	// MaxPasswordLength is the bcrypt input limit.
	MaxPasswordLength = 72
)

// dummyHash is used for constant-time login to prevent timing attacks.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("dummy-password-for-timing"), bcrypt.DefaultCost)

// Hasher produces and verifies salted bcrypt password hashes. Each call to
// Hash embeds a fresh random salt, so hashing the same plaintext twice yields
// different outputs.
type Hasher struct {
	cost int
}

// NewHasher creates a Hasher with the default bcrypt work factor.
func NewHasher() *Hasher {
	return &Hasher{cost: bcrypt.DefaultCost}
}

// Hash returns an opaque hash of the plaintext with embedded salt.
func (h *Hasher) Hash(plaintext string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Verify reports whether plaintext matches the stored hash. A malformed
// stored hash verifies false, never panics or errors out.
func (h *Hasher) Verify(plaintext, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(plaintext)) == nil
}

// compareDummy burns one bcrypt comparison so lookups for unknown accounts
// take the same time as a real password check.
func (h *Hasher) compareDummy(plaintext string) {
	_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(plaintext))
}

// PasswordValidationError carries field-level detail for a rejected password.
type PasswordValidationError struct {
	Errors []string
}

func (e *PasswordValidationError) Error() string {
	return "password does not meet requirements: " + strings.Join(e.Errors, "; ")
}

// validatePassword checks a candidate password against the policy. The user
// attributes (username, email) must not appear verbatim in the password.
func validatePassword(password string, userAttributes ...string) error {
	var errs []string

	if len(password) < MinPasswordLength {
		errs = append(errs, fmt.Sprintf("must be at least %d characters", MinPasswordLength))
	}
	if len(password) > MaxPasswordLength {
		errs = append(errs, fmt.Sprintf("must be at most %d characters", MaxPasswordLength))
	}

	lower := strings.ToLower(password)
	for _, attr := range userAttributes {
		attr = strings.ToLower(strings.TrimSpace(attr))
		if attr == "" || len(attr) < 4 {
			continue
		}
		if strings.Contains(lower, attr) {
			errs = append(errs, "must not contain your username or email address")
			break
		}
	}

	if len(errs) > 0 {
		return &PasswordValidationError{Errors: errs}
	}
	return nil
}
