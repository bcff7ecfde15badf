// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package activity maintains the append-only security audit trail.
package activity

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/google/uuid"
)

// Actions recorded in the audit trail.
const (
	ActionAccountCreated         = "account_created"
	ActionLogin                  = "login"
	ActionLogout                 = "logout"
	ActionAccountLocked          = "account_locked"
	ActionEmailVerified          = "email_verified"
	ActionPasswordChanged        = "password_changed"
	ActionPasswordResetRequested = "password_reset_requested"
	ActionPasswordResetCompleted = "password_reset_completed"
	ActionEmailChanged           = "email_changed"
	ActionProfileUpdated         = "profile_updated"
	ActionAccountDeactivated     = "account_deactivated"
	ActionAccountDeleted         = "account_deleted"
)

// DefaultPageSize bounds activity listings when the caller asks for nothing.
const DefaultPageSize = 50

// Service records and reads audit entries.
type Service struct {
	repo *repository.Repository
	now  func() time.Time
}

// NewService creates the activity log service.
func NewService(repo *repository.Repository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Record appends one entry. A failed append is logged and swallowed: the
// audit trail must never fail the security operation that produced it.
func (s *Service) Record(ctx context.Context, accountID int64, action string, detail map[string]any, ip, userAgent string) {
	payload := "{}"
	if len(detail) > 0 {
		data, err := json.Marshal(detail)
		if err != nil {
			slog.Warn("activity_detail_marshal_failed", "action", action, "error", err)
		} else {
			payload = string(data)
		}
	}

	entry := &models.ActivityEntry{
		ID:        uuid.NewString(),
		AccountID: accountID,
		Action:    action,
		Detail:    payload,
		IP:        ip,
		UserAgent: userAgent,
		CreatedAt: s.now().UTC(),
	}

	if err := s.repo.InsertActivity(ctx, entry); err != nil {
		slog.Warn("activity_append_failed", "action", action, "account_id", accountID, "error", err)
	}
}

// ListByAccount returns an account's entries, most recent first.
func (s *Service) ListByAccount(ctx context.Context, accountID int64, limit, offset int) ([]models.ActivityEntry, error) {
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListActivityByAccount(ctx, accountID, limit, offset)
}
