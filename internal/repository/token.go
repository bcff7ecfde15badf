// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
)

// CreateEmailVerificationToken creates a new email verification token.
func (r *Repository) CreateEmailVerificationToken(ctx context.Context, accountID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO email_verification_tokens (account_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		accountID, tokenHash, expiresAt)
	return err
}

// GetEmailVerificationToken retrieves an email verification token by hash.
func (r *Repository) GetEmailVerificationToken(ctx context.Context, tokenHash string) (*models.EmailVerificationToken, error) {
	var token models.EmailVerificationToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM email_verification_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteEmailVerificationToken deletes a token by ID.
func (r *Repository) DeleteEmailVerificationToken(ctx context.Context, tokenID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE id = ?`, tokenID)
	return err
}

// DeleteAccountEmailVerificationTokens deletes all verification tokens for an
// account. Used when a fresh token is issued after an email change.
func (r *Repository) DeleteAccountEmailVerificationTokens(ctx context.Context, accountID int64) error {
	_, err := r.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE account_id = ?`, accountID)
	return err
}

// CreatePasswordResetToken creates a new password reset token.
func (r *Repository) CreatePasswordResetToken(ctx context.Context, accountID int64, tokenHash string, expiresAt time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO password_reset_tokens (account_id, token_hash, expires_at) VALUES (?, ?, ?)`,
		accountID, tokenHash, expiresAt)
	return err
}

// GetPasswordResetToken retrieves a password reset token by hash.
func (r *Repository) GetPasswordResetToken(ctx context.Context, tokenHash string) (*models.PasswordResetToken, error) {
	var token models.PasswordResetToken
	err := r.db.GetContext(ctx, &token, `SELECT * FROM password_reset_tokens WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &token, nil
}

// DeleteExpiredTokens removes expired tokens of both kinds and reports how
// many rows went away. Housekeeping only; expiry is always checked at
// redemption time as well.
func (r *Repository) DeleteExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	var total int64

	res, err := r.db.ExecContext(ctx, `DELETE FROM email_verification_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return total, err
	}
	n, _ := res.RowsAffected()
	total += n

	res, err = r.db.ExecContext(ctx, `DELETE FROM password_reset_tokens WHERE expires_at < ?`, now)
	if err != nil {
		return total, err
	}
	n, _ = res.RowsAffected()
	total += n

	return total, nil
}
