// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package token issues and redeems the opaque single-use tokens backing
// email verification and password reset.
package token

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/repository"
)

const (
	// TokenLength is the number of random bytes per token (256 bits).
	TokenLength = 32
	// VerificationTTL is how long email verification tokens are valid.
	VerificationTTL = 24 * time.Hour
	// ResetTTL is how long password reset tokens are valid.
	ResetTTL = time.Hour
	// SweepInterval is how often expired tokens are garbage-collected.
	SweepInterval = time.Hour
)

var (
	ErrTokenNotFound    = errors.New("token not found")
	ErrTokenExpired     = errors.New("token expired")
	ErrTokenAlreadyUsed = errors.New("token already used")
)

// Issuer generates, persists, and redeems tokens. Only the SHA256 hash of a
// token is ever stored; the plaintext exists solely in the email sent to the
// account holder.
type Issuer struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewIssuer creates a token issuer backed by the given repository.
func NewIssuer(repo *repository.Repository) *Issuer {
	return &Issuer{repo: repo, now: time.Now}
}

// HashToken computes the SHA256 hash of a token.
func HashToken(token string) string {
	hash := sha256.Sum256([]byte(token))
	return hex.EncodeToString(hash[:])
}

// generate returns a fresh URL-safe token and its storage hash.
func generate() (string, string, error) {
	bytes := make([]byte, TokenLength)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", fmt.Errorf("failed to generate random bytes: %w", err)
	}
	plaintext := hex.EncodeToString(bytes)
	return plaintext, HashToken(plaintext), nil
}

// IssueVerification creates an email verification token for the account and
// returns the plaintext for delivery.
func (i *Issuer) IssueVerification(ctx context.Context, accountID int64) (string, error) {
	plaintext, hash, err := generate()
	if err != nil {
		return "", err
	}
	expiresAt := i.now().Add(VerificationTTL)
	if err := i.repo.CreateEmailVerificationToken(ctx, accountID, hash, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store verification token: %w", err)
	}
	return plaintext, nil
}

// IssueReset creates a password reset token for the account and returns the
// plaintext for delivery.
func (i *Issuer) IssueReset(ctx context.Context, accountID int64) (string, error) {
	plaintext, hash, err := generate()
	if err != nil {
		return "", err
	}
	expiresAt := i.now().Add(ResetTTL)
	if err := i.repo.CreatePasswordResetToken(ctx, accountID, hash, expiresAt); err != nil {
		return "", fmt.Errorf("failed to store reset token: %w", err)
	}
	return plaintext, nil
}

// RedeemVerification consumes an email verification token and returns the
// owning account id. The token is deleted on success; expiry is checked at
// redemption regardless of the background sweep.
func (i *Issuer) RedeemVerification(ctx context.Context, plaintext string) (int64, error) {
	record, err := i.repo.GetEmailVerificationToken(ctx, HashToken(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return 0, ErrTokenNotFound
		}
		return 0, err
	}
	if i.now().After(record.ExpiresAt) {
		return 0, ErrTokenExpired
	}
	if err := i.repo.DeleteEmailVerificationToken(ctx, record.ID); err != nil {
		return 0, err
	}
	return record.AccountID, nil
}

// LookupReset validates a password reset token without consuming it.
// Consumption happens inside the repository's password-reset transaction,
// where the used flag commits together with the new password.
func (i *Issuer) LookupReset(ctx context.Context, plaintext string) (*models.PasswordResetToken, error) {
	record, err := i.repo.GetPasswordResetToken(ctx, HashToken(plaintext))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}
	if record.Used {
		return nil, ErrTokenAlreadyUsed
	}
	if i.now().After(record.ExpiresAt) {
		return nil, ErrTokenExpired
	}
	return record, nil
}

// Sweep deletes expired tokens of both kinds.
func (i *Issuer) Sweep(ctx context.Context) (int64, error) {
	return i.repo.DeleteExpiredTokens(ctx, i.now())
}

// StartSweeper runs Sweep on an interval until the context is cancelled.
// Best-effort housekeeping; failures are logged and the loop continues.
func (i *Issuer) StartSweeper(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = SweepInterval
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				n, err := i.Sweep(ctx)
				if err != nil {
					slog.Warn("token_sweep_failed", "error", err)
					continue
				}
				if n > 0 {
					slog.Debug("token_sweep", "deleted", n)
				}
			}
		}
	}()
}
