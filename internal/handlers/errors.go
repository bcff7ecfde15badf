// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/services/auth"
	"github.com/cardbinder/cardbinder/internal/services/token"
	"github.com/labstack/echo/v4"
)

// jsonError writes a uniform error body.
func jsonError(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}

// serviceError maps service errors onto the HTTP status contract. Security
// sensitive distinctions (which credential field failed, which way a token
// was invalid) are collapsed before they reach the client.
func serviceError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, auth.ErrTooManyAttempts):
		return jsonError(c, http.StatusTooManyRequests, "too many attempts, try again later")

	case errors.Is(err, auth.ErrInvalidCredentials):
		return jsonError(c, http.StatusUnauthorized, "invalid credentials")

	case errors.Is(err, auth.ErrAccountLocked):
		return jsonError(c, http.StatusForbidden, "account is temporarily locked")

	case errors.Is(err, auth.ErrAccountInactive):
		return jsonError(c, http.StatusForbidden, "account is deactivated")

	case errors.Is(err, token.ErrTokenNotFound),
		errors.Is(err, token.ErrTokenExpired),
		errors.Is(err, token.ErrTokenAlreadyUsed):
		return jsonError(c, http.StatusBadRequest, "invalid or expired token")

	case errors.Is(err, auth.ErrUsernameTaken),
		errors.Is(err, auth.ErrEmailTaken),
		errors.Is(err, auth.ErrInvalidEmail),
		errors.Is(err, auth.ErrInvalidUsername),
		errors.Is(err, auth.ErrWrongConfirmation):
		return jsonError(c, http.StatusBadRequest, err.Error())

	case errors.Is(err, repository.ErrNotFound):
		return jsonError(c, http.StatusNotFound, "not found")
	}

	var pve *auth.PasswordValidationError
	if errors.As(err, &pve) {
		return jsonError(c, http.StatusBadRequest, pve.Error())
	}

	slog.Error("request_failed", "path", c.Path(), "error", err)
	return jsonError(c, http.StatusInternalServerError, "internal error")
}
