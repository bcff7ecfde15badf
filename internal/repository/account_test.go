// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := &models.Account{
		Username:     "alice",
		Email:        "alice@example.com",
		PasswordHash: "hash",
		IsActive:     true,
	}

	err := repo.CreateAccount(ctx, account)

	require.NoError(t, err)
	assert.NotZero(t, account.ID)

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)
	assert.Equal(t, "alice@example.com", got.Email)
	assert.False(t, got.EmailVerified)
	assert.True(t, got.IsActive)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)
	assert.Nil(t, got.LastLoginAt)
}

func TestCreateAccount_DuplicateUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")

	dup := &models.Account{Username: "ALICE", Email: "other@example.com", PasswordHash: "hash"}
	err := repo.CreateAccount(ctx, dup)

	assert.Error(t, err, "usernames are unique case-insensitively")
}

func TestGetAccountByEmail_CaseInsensitive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")

	got, err := repo.GetAccountByEmail(ctx, "ALICE@EXAMPLE.COM")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestGetAccountByEmail_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetAccountByEmail(context.Background(), "nobody@example.com")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestGetAccountByUsername(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")

	got, err := repo.GetAccountByUsername(ctx, "Alice")
	require.NoError(t, err)
	assert.Equal(t, account.ID, got.ID)
}

func TestIncrementFailedLogins(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")

	for want := 1; want <= 5; want++ {
		got, err := repo.IncrementFailedLogins(ctx, account.ID)
		require.NoError(t, err)
		assert.Equal(t, want, got, "each increment returns the new count")
	}
}

func TestIncrementFailedLogins_UnknownAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.IncrementFailedLogins(context.Background(), 9999)

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestLockAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	until := time.Now().Add(30 * time.Minute).UTC()

	err := repo.LockAccount(ctx, account.ID, until)
	require.NoError(t, err)

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	require.NotNil(t, got.LockedUntil)
	assert.WithinDuration(t, until, *got.LockedUntil, time.Second)
	assert.True(t, got.Locked(time.Now()))
	assert.False(t, got.Locked(until.Add(time.Second)), "lock expires lazily")
}

func TestRecordLogin(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	_, err := repo.IncrementFailedLogins(ctx, account.ID)
	require.NoError(t, err)
	require.NoError(t, repo.LockAccount(ctx, account.ID, time.Now().Add(time.Hour)))

	at := time.Now().UTC()
	err = repo.RecordLogin(ctx, account.ID, at)
	require.NoError(t, err)

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, got.FailedLoginAttempts)
	assert.Nil(t, got.LockedUntil)
	require.NotNil(t, got.LastLoginAt)
	assert.WithinDuration(t, at, *got.LastLoginAt, time.Second)
}

func TestUpdateAccountEmail(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	require.NoError(t, repo.MarkEmailVerified(ctx, account.ID))

	err := repo.UpdateAccountEmail(ctx, account.ID, "new@example.com")
	require.NoError(t, err)

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, "new@example.com", got.Email)
	assert.False(t, got.EmailVerified, "email change drops the verified flag")
}

func TestSetAccountActive(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")

	require.NoError(t, repo.SetAccountActive(ctx, account.ID, false))

	got, err := repo.GetAccountByID(ctx, account.ID)
	require.NoError(t, err)
	assert.False(t, got.IsActive)
}

func TestDeleteAccount_Cascades(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	album := testutil.NewTestAlbum(t, repo, account.ID, "Binder 1")

	require.NoError(t, repo.CreateEmailVerificationToken(ctx, account.ID, "vhash", time.Now().Add(time.Hour)))
	require.NoError(t, repo.CreatePasswordResetToken(ctx, account.ID, "rhash", time.Now().Add(time.Hour)))
	require.NoError(t, repo.InsertActivity(ctx, &models.ActivityEntry{
		ID: "11111111-1111-1111-1111-111111111111", AccountID: account.ID,
		Action: "login", Detail: "{}", CreatedAt: time.Now().UTC(),
	}))
	require.NoError(t, repo.AddAlbumCard(ctx, &models.AlbumCard{
		AlbumID: album.ID, Page: 1, Position: 1, CardRef: "base1-4",
	}))

	err := repo.DeleteAccount(ctx, account.ID)
	require.NoError(t, err)

	_, err = repo.GetAccountByID(ctx, account.ID)
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetEmailVerificationToken(ctx, "vhash")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	_, err = repo.GetPasswordResetToken(ctx, "rhash")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	count, err := repo.CountActivityByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, count)

	albums, err := repo.CountAlbumsByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Zero(t, albums)
}
