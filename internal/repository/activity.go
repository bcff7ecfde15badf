// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"

	"github.com/cardbinder/cardbinder/internal/models"
)

// InsertActivity appends one entry to the activity log. Entries are never
// updated or deleted individually; only the account deletion cascade removes
// them.
func (r *Repository) InsertActivity(ctx context.Context, entry *models.ActivityEntry) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO activity_log (id, account_id, action, detail, ip, user_agent, created_at) VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID, entry.AccountID, entry.Action, entry.Detail, entry.IP, entry.UserAgent, entry.CreatedAt)
	return err
}

// ListActivityByAccount returns log entries for an account, newest first.
func (r *Repository) ListActivityByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.ActivityEntry, error) {
	var entries []models.ActivityEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM activity_log WHERE account_id = ? ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`,
		accountID, limit, offset)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountActivityByAccount returns the number of log entries for an account.
func (r *Repository) CountActivityByAccount(ctx context.Context, accountID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count, `SELECT count(*) FROM activity_log WHERE account_id = ?`, accountID)
	if err != nil {
		return 0, err
	}
	return count, nil
}
