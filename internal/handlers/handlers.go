// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers holds the HTTP layer over the authentication service.
package handlers

import (
	"net/http"

	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/labstack/echo/v4"
)

// Handlers contains the basic application handlers.
type Handlers struct {
	repo *repository.Repository
}

// New creates a new Handlers instance.
func New(repo *repository.Repository) *Handlers {
	return &Handlers{repo: repo}
}

// Health responds with a simple health check status.
func (h *Handlers) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}
