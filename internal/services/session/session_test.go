// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package session_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/cardbinder/cardbinder/internal/config"
	"github.com/cardbinder/cardbinder/internal/services/session"
	"github.com/cardbinder/cardbinder/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	_ "modernc.org/sqlite"
)

func sessionConfig(backend string) *config.SessionConfig {
	return &config.SessionConfig{
		Backend:    backend,
		CookieName: "cardbinder_session",
		IdleDays:   30,
	}
}

func TestNewManager_DurableStore(t *testing.T) {
	db, _ := testutil.NewTestDB(t)

	sm := session.NewManager(db, sessionConfig("sqlite"), false)

	assert.IsType(t, &sqlite3store.SQLite3Store{}, sm.Store)
}

func TestNewManager_MemoryConfigured(t *testing.T) {
	db, _ := testutil.NewTestDB(t)

	sm := session.NewManager(db, sessionConfig("memory"), false)

	assert.IsType(t, &memstore.MemStore{}, sm.Store)
}

func TestNewManager_FallsBackWithoutDatabase(t *testing.T) {
	sm := session.NewManager(nil, sessionConfig("sqlite"), false)

	assert.IsType(t, &memstore.MemStore{}, sm.Store,
		"unreachable durable store degrades to memory instead of failing startup")
}

func TestNewManager_FallsBackWhenTableMissing(t *testing.T) {
	db, err := sqlx.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	// No migrations ran, so the sessions table does not exist.
	sm := session.NewManager(db, sessionConfig("sqlite"), false)

	assert.IsType(t, &memstore.MemStore{}, sm.Store)
}

func TestNewManager_CookieSettings(t *testing.T) {
	db, _ := testutil.NewTestDB(t)

	sm := session.NewManager(db, sessionConfig("sqlite"), true)

	assert.Equal(t, "cardbinder_session", sm.Cookie.Name)
	assert.True(t, sm.Cookie.HttpOnly)
	assert.True(t, sm.Cookie.Secure)
	assert.Equal(t, http.SameSiteLaxMode, sm.Cookie.SameSite)
	assert.Equal(t, 30*24*time.Hour, sm.IdleTimeout, "sliding expiry follows the configured idle window")
}

func TestNewManager_IdleDefault(t *testing.T) {
	db, _ := testutil.NewTestDB(t)
	cfg := sessionConfig("sqlite")
	cfg.IdleDays = 0

	sm := session.NewManager(db, cfg, false)

	assert.Equal(t, 30*24*time.Hour, sm.IdleTimeout)
}

func TestLoginLogout(t *testing.T) {
	db, _ := testutil.NewTestDB(t)
	sm := session.NewManager(db, sessionConfig("memory"), false)

	ctx, err := sm.Load(context.Background(), "")
	require.NoError(t, err)

	assert.False(t, session.IsAuthenticated(sm, ctx))
	assert.Zero(t, session.AccountID(sm, ctx))

	require.NoError(t, session.Login(sm, ctx, 42))
	assert.True(t, session.IsAuthenticated(sm, ctx))
	assert.Equal(t, int64(42), session.AccountID(sm, ctx))

	require.NoError(t, session.Logout(sm, ctx))
	assert.False(t, session.IsAuthenticated(sm, ctx))
}
