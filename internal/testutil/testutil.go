// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"testing"

	"github.com/cardbinder/cardbinder/internal/database"
	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"
	"golang.org/x/crypto/bcrypt"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// NewTestAccount creates an active account with a bcrypt hash of the given
// password. MinCost keeps the test suite fast.
func NewTestAccount(t *testing.T, repo *repository.Repository, username, email, password string) *models.Account {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)

	account := &models.Account{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
	}
	err = repo.CreateAccount(context.Background(), account)
	require.NoError(t, err)
	return account
}

// NewTestAlbum creates an album owned by the given account.
func NewTestAlbum(t *testing.T, repo *repository.Repository, accountID int64, name string) *models.Album {
	t.Helper()
	album := &models.Album{
		AccountID: accountID,
		Name:      name,
	}
	err := repo.CreateAlbum(context.Background(), album)
	require.NoError(t, err)
	return album
}
