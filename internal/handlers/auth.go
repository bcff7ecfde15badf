// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"net/http"

	"github.com/alexedwards/scs/v2"
	"github.com/cardbinder/cardbinder/internal/services/auth"
	"github.com/cardbinder/cardbinder/internal/services/session"
	"github.com/labstack/echo/v4"
)

// AuthHandlers contains handlers for the public authentication surface.
type AuthHandlers struct {
	auth     *auth.Service
	sessions *scs.SessionManager
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(svc *auth.Service, sessions *scs.SessionManager) *AuthHandlers {
	return &AuthHandlers{auth: svc, sessions: sessions}
}

// RegisterRequest is the request body for registration.
type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Register creates a new account and sends the verification email.
func (h *AuthHandlers) Register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	account, err := h.auth.Register(c.Request().Context(), auth.RegisterParams{
		Username: req.Username,
		Email:    req.Email,
		Password: req.Password,
	}, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusCreated, account)
}

// LoginRequest is the request body for login.
type LoginRequest struct {
	Identifier string `json:"identifier"` // email or username
	Password   string `json:"password"`
}

// Login authenticates and establishes a session.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	ctx := c.Request().Context()
	account, err := h.auth.Login(ctx, req.Identifier, req.Password, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	if err := session.Login(h.sessions, ctx, account.ID); err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, account)
}

// Logout destroys the session.
func (h *AuthHandlers) Logout(c echo.Context) error {
	ctx := c.Request().Context()

	if accountID := session.AccountID(h.sessions, ctx); accountID != 0 {
		h.auth.Logout(ctx, accountID, c.RealIP(), c.Request().UserAgent())
	}
	if err := session.Logout(h.sessions, ctx); err != nil {
		return serviceError(c, err)
	}

	return c.NoContent(http.StatusOK)
}

// VerifyEmail redeems the token from the verification link.
func (h *AuthHandlers) VerifyEmail(c echo.Context) error {
	tokenPlaintext := c.QueryParam("token")
	if tokenPlaintext == "" {
		return jsonError(c, http.StatusBadRequest, "token is required")
	}

	account, err := h.auth.VerifyEmail(c.Request().Context(), tokenPlaintext, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, account)
}

// PasswordResetRequest is the request body for requesting a reset link.
type PasswordResetRequest struct {
	Email string `json:"email"`
}

// RequestPasswordReset acknowledges identically whether or not the address is
// registered.
func (h *AuthHandlers) RequestPasswordReset(c echo.Context) error {
	var req PasswordResetRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	err := h.auth.RequestPasswordReset(c.Request().Context(), req.Email, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{
		"message": "if the address is registered, a reset link is on its way",
	})
}

// PasswordResetCompleteRequest is the request body for completing a reset.
type PasswordResetCompleteRequest struct {
	Token       string `json:"token"`
	NewPassword string `json:"new_password"`
}

// CompletePasswordReset redeems the token and stores the new password.
func (h *AuthHandlers) CompletePasswordReset(c echo.Context) error {
	var req PasswordResetCompleteRequest
	if err := c.Bind(&req); err != nil {
		return jsonError(c, http.StatusBadRequest, "invalid request")
	}

	err := h.auth.CompletePasswordReset(c.Request().Context(), req.Token, req.NewPassword, c.RealIP(), c.Request().UserAgent())
	if err != nil {
		return serviceError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]string{"message": "password updated"})
}
