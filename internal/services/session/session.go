// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package session selects and configures the session backing store.
//
// At startup the durable sqlite-backed store is probed; if it is unreachable
// or configured off, sessions fall back to process memory. The rest of the
// system only ever sees the scs.SessionManager, so it is indifferent to which
// backend is active.
package session

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/alexedwards/scs/sqlite3store"
	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/cardbinder/cardbinder/internal/config"
	"github.com/vinovest/sqlx"
)

// Session keys for storing user data
const (
	AccountIDKey = "account_id"
)

// lifetimeCap is the absolute upper bound on session age. The effective
// expiry is the sliding idle timeout from the configuration.
const lifetimeCap = 90 * 24 * time.Hour

// NewManager builds the session manager, choosing the backing store.
//
// The durable backend is probed with a query against the sessions table
// (created by migrations); any failure degrades to the in-memory store with a
// warning rather than refusing service. In-memory sessions are lost on
// process restart, nothing more.
func NewManager(db *sqlx.DB, cfg *config.SessionConfig, secureCookies bool) *scs.SessionManager {
	sm := scs.New()
	sm.Store = selectStore(db, cfg.Backend)

	idle := time.Duration(cfg.IdleDays) * 24 * time.Hour
	if idle <= 0 {
		idle = 30 * 24 * time.Hour
	}

	// Sliding expiry: every request pushes the deadline out again.
	sm.IdleTimeout = idle
	sm.Lifetime = lifetimeCap
	sm.Cookie.Name = cfg.CookieName
	sm.Cookie.HttpOnly = true
	sm.Cookie.Secure = secureCookies
	sm.Cookie.SameSite = http.SameSiteLaxMode
	sm.Cookie.Persist = true

	return sm
}

// selectStore resolves the backing store once, at process start.
func selectStore(db *sqlx.DB, backend string) scs.Store {
	if backend == "memory" {
		slog.Info("session_store", "backend", "memory", "reason", "configured")
		return memstore.New()
	}

	if err := probe(db); err != nil {
		slog.Warn("session_store_degraded",
			"backend", "memory",
			"reason", "durable store unreachable",
			"error", err,
		)
		return memstore.New()
	}

	slog.Info("session_store", "backend", "sqlite")
	return sqlite3store.NewWithCleanupInterval(db.DB, 30*time.Minute)
}

// probe verifies the durable backend is usable before committing to it.
func probe(db *sqlx.DB) error {
	if db == nil {
		return errors.New("no database handle")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var count int64
	return db.GetContext(ctx, &count, `SELECT count(*) FROM sessions`)
}

// Login renews the session token and binds it to the account.
func Login(sm *scs.SessionManager, ctx context.Context, accountID int64) error {
	// Renew token to prevent session fixation
	if err := sm.RenewToken(ctx); err != nil {
		return err
	}
	sm.Put(ctx, AccountIDKey, accountID)
	return nil
}

// Logout destroys the current session.
func Logout(sm *scs.SessionManager, ctx context.Context) error {
	return sm.Destroy(ctx)
}

// AccountID returns the authenticated account id, or zero when anonymous.
func AccountID(sm *scs.SessionManager, ctx context.Context) int64 {
	return sm.GetInt64(ctx, AccountIDKey)
}

// IsAuthenticated checks if a user is logged in.
func IsAuthenticated(sm *scs.SessionManager, ctx context.Context) bool {
	return sm.GetInt64(ctx, AccountIDKey) != 0
}
