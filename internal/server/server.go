// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package server wires configuration, storage, services, and HTTP routes.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/cardbinder/cardbinder/internal/config"
	"github.com/cardbinder/cardbinder/internal/database"
	"github.com/cardbinder/cardbinder/internal/handlers"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/services/activity"
	"github.com/cardbinder/cardbinder/internal/services/auth"
	"github.com/cardbinder/cardbinder/internal/services/email"
	"github.com/cardbinder/cardbinder/internal/services/session"
	"github.com/cardbinder/cardbinder/internal/services/token"
	"github.com/labstack/echo/v4"
	"github.com/urfave/cli/v3"
)

// Run starts the server with the given CLI command.
func Run(ctx context.Context, cmd *cli.Command) error {
	cfg := config.NewFromCLI(cmd)
	setupLogger(cfg.Log.Level, cfg.Log.Format)

	slog.Info("starting server",
		"host", cfg.Server.Host,
		"port", cfg.Server.Port,
		"base_url", cfg.Server.BaseURL,
	)

	// Database (migrations run on open)
	db, err := database.Open(cfg.Database.DSN)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if closeErr := db.Close(); closeErr != nil {
			slog.Error("failed to close database", "error", closeErr)
		}
	}()

	repo := repository.New(db)

	// Mailer is optional; without SMTP config, token emails are skipped.
	var mailer auth.Mailer
	if cfg.SMTP.Host != "" {
		svc, mailErr := email.NewService(&cfg.SMTP, cfg.Server.BaseURL)
		if mailErr != nil {
			return fmt.Errorf("failed to configure mailer: %w", mailErr)
		}
		mailer = svc
	} else {
		slog.Warn("smtp not configured, account emails disabled")
	}

	// Services
	tokens := token.NewIssuer(repo)
	activityLog := activity.NewService(repo)
	authService := auth.NewService(repo, tokens, activityLog, mailer)

	// Session store: durable sqlite backend with in-memory fallback.
	sessions := session.NewManager(repo.DB(), &cfg.Session, cfg.SecureCookies())

	// Background housekeeping: expired tokens and idle limiter windows.
	janitorCtx, stopJanitors := context.WithCancel(ctx)
	defer stopJanitors()
	tokens.StartSweeper(janitorCtx, token.SweepInterval)
	authService.StartLimiterJanitors(janitorCtx)

	// Echo
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	setupMiddleware(e, cfg, sessions)
	setupRoutes(e, repo, authService, activityLog, sessions)

	return startWithGracefulShutdown(ctx, e, cfg)
}

func setupRoutes(e *echo.Echo, repo *repository.Repository, authService *auth.Service, activityLog *activity.Service, sessions *scs.SessionManager) {
	h := handlers.New(repo)
	authHandlers := handlers.NewAuth(authService, sessions)
	accountHandlers := handlers.NewAccount(authService, activityLog, repo, sessions)

	e.GET("/health", h.Health)

	// Public authentication surface
	authGroup := e.Group("/auth")
	authGroup.POST("/register", authHandlers.Register)
	authGroup.POST("/login", authHandlers.Login)
	authGroup.POST("/logout", authHandlers.Logout)
	authGroup.GET("/verify-email", authHandlers.VerifyEmail)
	authGroup.POST("/password-reset/request", authHandlers.RequestPasswordReset)
	authGroup.POST("/password-reset/complete", authHandlers.CompletePasswordReset)

	// Authenticated account surface
	accountGroup := e.Group("/account", requireAuth(sessions))
	accountGroup.GET("/me", accountHandlers.Me)
	accountGroup.POST("/password", accountHandlers.ChangePassword)
	accountGroup.POST("/email", accountHandlers.ChangeEmail)
	accountGroup.PATCH("/profile", accountHandlers.UpdateProfile)
	accountGroup.GET("/activity", accountHandlers.Activity)
	accountGroup.POST("/deactivate", accountHandlers.Deactivate)
	accountGroup.DELETE("", accountHandlers.Delete)
}

func startWithGracefulShutdown(ctx context.Context, e *echo.Echo, cfg *config.Config) error {
	errChan := make(chan error, 1)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	go func() {
		slog.Info("server running", "url", cfg.Server.BaseURL)
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errChan <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errChan:
		return err
	case <-ctx.Done():
	case <-quit:
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return e.Shutdown(shutdownCtx)
}
