// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import "time"

// ActivityEntry is one row of the append-only security audit trail.
type ActivityEntry struct { //nolint:govet // fieldalignment: readability over optimization
	ID        string    `db:"id" json:"id"` // uuid
	AccountID int64     `db:"account_id" json:"account_id"`
	Action    string    `db:"action" json:"action"`
	Detail    string    `db:"detail" json:"detail"` // JSON payload
	IP        string    `db:"ip" json:"ip"`
	UserAgent string    `db:"user_agent" json:"user_agent"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}
