// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func insertTestActivity(t *testing.T, repo *repository.Repository, accountID int64, n int, action string, at time.Time) {
	t.Helper()
	err := repo.InsertActivity(context.Background(), &models.ActivityEntry{
		ID:        fmt.Sprintf("00000000-0000-0000-0000-%012d", n),
		AccountID: accountID,
		Action:    action,
		Detail:    "{}",
		IP:        "192.0.2.1",
		UserAgent: "test",
		CreatedAt: at,
	})
	require.NoError(t, err)
}

func TestListActivityByAccount_NewestFirst(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	base := time.Now().UTC()
	insertTestActivity(t, repo, account.ID, 1, "account_created", base)
	insertTestActivity(t, repo, account.ID, 2, "login", base.Add(time.Second))
	insertTestActivity(t, repo, account.ID, 3, "logout", base.Add(2*time.Second))

	entries, err := repo.ListActivityByAccount(ctx, account.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "logout", entries[0].Action)
	assert.Equal(t, "login", entries[1].Action)
	assert.Equal(t, "account_created", entries[2].Action)
}

func TestListActivityByAccount_Pagination(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	account := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	base := time.Now().UTC()
	for i := range 5 {
		insertTestActivity(t, repo, account.ID, i, "login", base.Add(time.Duration(i)*time.Second))
	}

	page, err := repo.ListActivityByAccount(ctx, account.ID, 2, 2)
	require.NoError(t, err)
	require.Len(t, page, 2)

	count, err := repo.CountActivityByAccount(ctx, account.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestListActivityByAccount_ScopedToAccount(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	alice := testutil.NewTestAccount(t, repo, "alice", "alice@example.com", "longpw123")
	bob := testutil.NewTestAccount(t, repo, "bob", "bob@example.com", "longpw123")
	insertTestActivity(t, repo, alice.ID, 1, "login", time.Now().UTC())
	insertTestActivity(t, repo, bob.ID, 2, "login", time.Now().UTC())

	entries, err := repo.ListActivityByAccount(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, alice.ID, entries[0].AccountID)
}
