// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"
	"strconv"

	"github.com/alexedwards/scs/v2"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/services/activity"
	"github.com/cardbinder/cardbinder/internal/services/auth"
	"github.com/cardbinder/cardbinder/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AccountHandlers contains handlers for the authenticated account surface.
type AccountHandlers struct {
	auth     *auth.Service
	activity *activity.Service
	repo     *repository.Repository
	sessions *scs.SessionManager
}

// NewAccount creates a new AccountHandlers instance.
func NewAccount(svc *auth.Service, log *activity.Service, repo *repository.Repository, sessions *scs.SessionManager) *AccountHandlers {
	return &AccountHandlers{auth: svc, activity: log, repo: repo, sessions: sessions}
}

// Me returns the authenticated account.
func (h *AccountHandlers) Me(c echo.Context) error {
	ctx := c.Request().Context()
	account, err := h.repo.GetAccountByID(ctx, session.AccountID(h.sessions, ctx))
	if err != nil {
		return serviceError(c, err)
	}
	return c.JSON(http.StatusOK, account)
}

// ChangePasswordRequest is the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password"`
	NewPassword     string `json:"new_password"`
}

// ChangePassword replaces the password after re-verifying the current one.
func (h *AccountHandlers) ChangePassword(c echo.Context) error {
	var req ChangePasswordRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	err := h.auth.ChangePassword(ctx, session.AccountID(h.sessions, ctx),
		req.CurrentPassword, req.NewPassword, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}

// ChangeEmailRequest is the request body for an email change.
type ChangeEmailRequest struct {
	Password string `json:"password"`
	NewEmail string `json:"new_email"`
}

// ChangeEmail updates the address and triggers re-verification.
func (h *AccountHandlers) ChangeEmail(c echo.Context) error {
	var req ChangeEmailRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	err := h.auth.ChangeEmail(ctx, session.AccountID(h.sessions, ctx),
		req.Password, req.NewEmail, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "email updated, verification sent"})
}

// UpdateProfileRequest is the request body for a profile update.
type UpdateProfileRequest struct {
	DisplayName string `json:"display_name"`
	Bio         string `json:"bio"`
	AvatarURL   string `json:"avatar_url"`
}

// UpdateProfile stores the optional profile fields.
func (h *AccountHandlers) UpdateProfile(c echo.Context) error {
	var req UpdateProfileRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	account, err := h.auth.UpdateProfile(ctx, session.AccountID(h.sessions, ctx),
		req.DisplayName, req.Bio, req.AvatarURL, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, account)
}

// Activity returns the account's audit trail, newest first.
func (h *AccountHandlers) Activity(c echo.Context) error {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	offset, _ := strconv.Atoi(c.QueryParam("offset"))

	ctx := c.Request().Context()
	entries, err := h.activity.ListByAccount(ctx, session.AccountID(h.sessions, ctx), limit, offset)
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, entries)
}

// DeactivateRequest is the request body for account deactivation.
type DeactivateRequest struct {
	Password string `json:"password"`
}

// Deactivate flips the account inactive and terminates the session.
func (h *AccountHandlers) Deactivate(c echo.Context) error {
	var req DeactivateRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	err := h.auth.Deactivate(ctx, session.AccountID(h.sessions, ctx),
		req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	if err := session.Logout(h.sessions, ctx); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "account deactivated"})
}

// DeleteRequest is the request body for account deletion.
type DeleteRequest struct {
	Password     string `json:"password"`
	Confirmation string `json:"confirmation"`
}

// Delete removes the account and everything it owns, then terminates the
// session.
func (h *AccountHandlers) Delete(c echo.Context) error {
	var req DeleteRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	err := h.auth.Delete(ctx, session.AccountID(h.sessions, ctx), req.Password, req.Confirmation)
	if err != nil {
		return serviceError(c, err)
	}

	if err := session.Logout(h.sessions, ctx); err != nil {
		return serviceError(c, err)
	}

	return c.NoContent(http.StatusOK)
}
