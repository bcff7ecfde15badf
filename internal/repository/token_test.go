// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmailVerificationToken_Lifecycle(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	expiresAt := time.Now().Add(24 * time.Hour).UTC()

	err := repo.CreateEmailVerificationToken(ctx, account.ID, "hash-1", expiresAt)
	require.NoError(t, err)

	tok, err := repo.GetEmailVerificationToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.Equal(t, account.ID, tok.AccountID)
	assert.WithinDuration(t, expiresAt, tok.ExpiresAt, time.Second)

	err = repo.DeleteEmailVerificationToken(ctx, tok.ID)
	require.NoError(t, err)

	_, err = repo.GetEmailVerificationToken(ctx, "hash-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestDeleteAccountEmailVerificationTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	alice := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	bob := testutil.NewTestAccount(t, repo, "bob", "bob@example.com", "longpw123")

	expiresAt := time.Now().Add(time.Hour)
	require.NoError(t, repo.CreateEmailVerificationToken(ctx, alice.ID, "a-1", expiresAt))
	require.NoError(t, repo.CreateEmailVerificationToken(ctx, alice.ID, "a-2", expiresAt))
	require.NoError(t, repo.CreateEmailVerificationToken(ctx, bob.ID, "b-1", expiresAt))

	err := repo.DeleteAccountEmailVerificationTokens(ctx, alice.ID)
	require.NoError(t, err)

	_, err = repo.GetEmailVerificationToken(ctx, "a-1")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetEmailVerificationToken(ctx, "a-2")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetEmailVerificationToken(ctx, "b-1")
	assert.NoError(t, err, "other accounts keep their tokens")
}

func TestResetAccountPassword(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	_, err := repo.IncrementFailedLogins(ctx, account.ID)
	require.NoError(t, err)
	require.NoError(t, repo.LockAccount(ctx, account.ID, time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreatePasswordResetToken(ctx, account.ID, "hash-1", time.Now().Add(time.Hour)))

	tok, err := repo.GetPasswordResetToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.False(t, tok.Used)

	ok, err := repo.ResetAccountPassword(ctx, account.ID, "winner-hash", tok.ID)
	require.NoError(t, err)
	assert.True(t, ok)

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "winner-hash", got.PasswordHash)
	assert.Zero(t, got.FailedLoginAttempts, "a completed reset lifts the lockout")
	assert.Nil(t, got.LockedUntil)

	tok, err = repo.GetPasswordResetToken(ctx, "hash-1")
	require.NoError(t, err)
	assert.True(t, tok.Used)
}

func TestResetAccountPassword_SingleUse(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	require.NoError(t, repo.CreatePasswordResetToken(ctx, account.ID, "hash-1", time.Now().Add(time.Hour)))
	tok, err := repo.GetPasswordResetToken(ctx, "hash-1")
	require.NoError(t, err)

	ok, err := repo.ResetAccountPassword(ctx, account.ID, "winner-hash", tok.ID)
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = repo.ResetAccountPassword(ctx, account.ID, "loser-hash", tok.ID)
	require.NoError(t, err)
	assert.False(t, ok, "second redemption loses the race")

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "winner-hash", got.PasswordHash,
		"the losing redemption's password never lands")
}

func TestDeleteExpiredTokens(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	now := time.Now().UTC()

	require.NoError(t, repo.CreateEmailVerificationToken(ctx, account.ID, "stale-v", now.Add(-time.Minute)))
	require.NoError(t, repo.CreateEmailVerificationToken(ctx, account.ID, "fresh-v", now.Add(time.Hour)))
	require.NoError(t, repo.CreatePasswordResetToken(ctx, account.ID, "stale-r", now.Add(-time.Minute)))
	require.NoError(t, repo.CreatePasswordResetToken(ctx, account.ID, "fresh-r", now.Add(time.Hour)))

	deleted, err := repo.DeleteExpiredTokens(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, int64(2), deleted)

	_, err = repo.GetEmailVerificationToken(ctx, "stale-v")
	assert.ErrorIs(t, err, repository.ErrNotFound)
	_, err = repo.GetPasswordResetToken(ctx, "stale-r")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetEmailVerificationToken(ctx, "fresh-v")
	assert.NoError(t, err)
	_, err = repo.GetPasswordResetToken(ctx, "fresh-r")
	assert.NoError(t, err)
}
