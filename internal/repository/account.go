// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
)

// CreateAccount inserts a new account and fills in its generated ID.
func (r *Repository) CreateAccount(ctx context.Context, account *models.Account) error {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO accounts (username, email, password_hash, display_name, bio, avatar_url, email_verified, is_active)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		account.Username, account.Email, account.PasswordHash,
		account.DisplayName, account.Bio, account.AvatarURL,
		account.EmailVerified, account.IsActive)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	account.ID = id
	return nil
}

// GetAccountByID retrieves an account by its ID.
func (r *Repository) GetAccountByID(ctx context.Context, id int64) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE id = ?`, id)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByEmail retrieves an account by email. The column collates
// case-insensitively, so lookups ignore case.
func (r *Repository) GetAccountByEmail(ctx context.Context, email string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// GetAccountByUsername retrieves an account by username, case-insensitively.
func (r *Repository) GetAccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var account models.Account
	err := r.db.GetContext(ctx, &account, `SELECT * FROM accounts WHERE username = ?`, username)
	if err != nil {
		return nil, wrapError(err)
	}
	return &account, nil
}

// UpdateAccountPassword stores a new password hash.
func (r *Repository) UpdateAccountPassword(ctx context.Context, id int64, passwordHash string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		passwordHash, id)
	return err
}

// UpdateAccountEmail changes the address and clears the verified flag.
func (r *Repository) UpdateAccountEmail(ctx context.Context, id int64, email string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email = ?, email_verified = 0, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		email, id)
	return err
}

// UpdateAccountProfile updates the optional profile fields.
func (r *Repository) UpdateAccountProfile(ctx context.Context, id int64, displayName, bio, avatarURL string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET display_name = ?, bio = ?, avatar_url = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		displayName, bio, avatarURL, id)
	return err
}

// MarkEmailVerified flips the verified flag.
func (r *Repository) MarkEmailVerified(ctx context.Context, id int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET email_verified = 1, updated_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	return err
}

// IncrementFailedLogins atomically increments the failed-attempt counter and
// returns the new count. A single statement with RETURNING, so concurrent
// failures cannot lose updates the way a read-then-write pair would.
func (r *Repository) IncrementFailedLogins(ctx context.Context, id int64) (int, error) {
	var attempts int
	err := r.db.QueryRowContext(ctx,
		`UPDATE accounts SET failed_login_attempts = failed_login_attempts + 1, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ? RETURNING failed_login_attempts`, id).Scan(&attempts)
	if err != nil {
		return 0, wrapError(err)
	}
	return attempts, nil
}

// LockAccount sets the lock expiry timestamp.
func (r *Repository) LockAccount(ctx context.Context, id int64, until time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET locked_until = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		until, id)
	return err
}

// RecordLogin resets the failure counter and lock state and stamps the login.
func (r *Repository) RecordLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET failed_login_attempts = 0, locked_until = NULL, last_login_at = ?, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, at, id)
	return err
}

// ResetAccountPassword stores a new password hash, clears any lockout, and
// marks the reset token used, all in one transaction. The token update carries
// used = 0 as a precondition; when it matches no row the whole transaction
// rolls back and false comes back, so of two concurrent redemptions exactly
// one commits and only that one's password survives.
func (r *Repository) ResetAccountPassword(ctx context.Context, id int64, passwordHash string, tokenID int64) (bool, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return false, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE password_reset_tokens SET used = 1 WHERE id = ? AND used = 0`, tokenID)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	if n != 1 {
		return false, nil
	}

	_, err = tx.ExecContext(ctx,
		`UPDATE accounts SET password_hash = ?, failed_login_attempts = 0, locked_until = NULL, updated_at = CURRENT_TIMESTAMP
		 WHERE id = ?`, passwordHash, id)
	if err != nil {
		return false, err
	}

	return true, tx.Commit()
}

// SetAccountActive toggles the active flag.
func (r *Repository) SetAccountActive(ctx context.Context, id int64, active bool) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE accounts SET is_active = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?`,
		active, id)
	return err
}

// DeleteAccount removes the account and everything it owns: tokens, activity
// log entries, albums with their cards, and finally the account row itself.
// Runs in one transaction so a partial cascade never survives.
func (r *Repository) DeleteAccount(ctx context.Context, id int64) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	statements := []string{
		`DELETE FROM email_verification_tokens WHERE account_id = ?`,
		`DELETE FROM password_reset_tokens WHERE account_id = ?`,
		`DELETE FROM activity_log WHERE account_id = ?`,
		`DELETE FROM album_cards WHERE album_id IN (SELECT id FROM albums WHERE account_id = ?)`,
		`DELETE FROM albums WHERE account_id = ?`,
		`DELETE FROM accounts WHERE id = ?`,
	}
	for _, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return err
		}
	}

	return tx.Commit()
}
