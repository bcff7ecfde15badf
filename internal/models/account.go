// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// Account is a registered user of the binder application.
type Account struct { //nolint:govet // fieldalignment: readability over optimization
	ID                  int64      `db:"id" json:"id"`
	Username            string     `db:"username" json:"username"`
	Email               string     `db:"email" json:"email"`
	PasswordHash        string     `db:"password_hash" json:"-"`
	DisplayName         string     `db:"display_name" json:"display_name"`
	Bio                 string     `db:"bio" json:"bio"`
	AvatarURL           string     `db:"avatar_url" json:"avatar_url"`
	EmailVerified       bool       `db:"email_verified" json:"email_verified"`
	IsActive            bool       `db:"is_active" json:"is_active"`
	FailedLoginAttempts int        `db:"failed_login_attempts" json:"-"`
	LockedUntil         *time.Time `db:"locked_until" json:"-"`
	LastLoginAt         *time.Time `db:"last_login_at" json:"last_login_at"`
	CreatedAt           time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt           time.Time  `db:"updated_at" json:"updated_at"`
}

// Locked reports whether the account lock is still in effect at the given
// instant. A lock expires implicitly; nothing clears locked_until.
func (a *Account) Locked(now time.Time) bool {
	return a.LockedUntil != nil && now.Before(*a.LockedUntil)
}
