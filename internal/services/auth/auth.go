// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package auth orchestrates credential verification, brute-force lockout,
// token lifecycles, and the audit trail for the account subsystem.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/mail"
	"regexp"
	"time"

	"github.com/cardbinder/cardbinder/internal/models"
	"github.com/cardbinder/cardbinder/internal/ratelimit"
	"github.com/cardbinder/cardbinder/internal/repository"
	"github.com/cardbinder/cardbinder/internal/services/activity"
	"github.com/cardbinder/cardbinder/internal/services/token"
)

const (
	// LockThreshold is the failed-attempt count that locks an account.
	LockThreshold = 5
	// LockDuration is how long a lockout lasts from the triggering failure.
	LockDuration = 30 * time.Minute

	// DeleteConfirmationPhrase must accompany account deletion.
	DeleteConfirmationPhrase = "delete my account"
)

// Endpoint-class rate limits.
const (
	loginLimit     = 5
	loginWindow    = 15 * time.Minute
	registerLimit  = 3
	registerWindow = time.Hour
	resetLimit     = 3
	resetWindow    = time.Hour
)

var usernamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{3,30}$`)

// Mailer delivers account emails. Failures are logged but never fail the
// request that triggered the send.
type Mailer interface {
	SendVerificationEmail(to, tokenPlaintext string) error
	SendPasswordResetEmail(to, tokenPlaintext string) error
}

// Service is the authentication orchestrator. It holds no long-lived state
// beyond injected collaborators; all account state lives in the repository.
type Service struct {
	repo     *repository.Repository
	hasher   *Hasher
	tokens   *token.Issuer
	activity *activity.Service
	mailer   Mailer

	loginLimiter    *ratelimit.Limiter
	registerLimiter *ratelimit.Limiter
	resetLimiter    *ratelimit.Limiter

	now func() time.Time
}

// NewService wires the authentication service. The mailer may be nil when
// SMTP is not configured; token emails are then skipped with a warning.
func NewService(repo *repository.Repository, tokens *token.Issuer, log *activity.Service, mailer Mailer) *Service {
	return &Service{
		repo:            repo,
		hasher:          NewHasher(),
		tokens:          tokens,
		activity:        log,
		mailer:          mailer,
		loginLimiter:    ratelimit.New(loginLimit, loginWindow),
		registerLimiter: ratelimit.New(registerLimit, registerWindow),
		resetLimiter:    ratelimit.New(resetLimit, resetWindow),
		now:             time.Now,
	}
}

// Hasher exposes the password hasher, mainly for tests and fixtures.
func (s *Service) Hasher() *Hasher {
	return s.hasher
}

// StartLimiterJanitors prunes idle rate-limit windows in the background until
// the context is cancelled, so the per-address maps do not grow with client
// churn.
func (s *Service) StartLimiterJanitors(ctx context.Context) {
	s.loginLimiter.StartJanitor(ctx, loginWindow)
	s.registerLimiter.StartJanitor(ctx, registerWindow)
	s.resetLimiter.StartJanitor(ctx, resetWindow)
}

// Login authenticates by email or username. The identifier is resolved by
// email first, then by username; both misses collapse into
// ErrInvalidCredentials so callers cannot probe which field failed.
func (s *Service) Login(ctx context.Context, identifier, password, ip, userAgent string) (*models.Account, error) {
	if !s.loginLimiter.Allow(ip) {
		slog.Warn("login_rate_limited", "ip", ip)
		return nil, ErrTooManyAttempts
	}

	account, err := s.repo.GetAccountByEmail(ctx, identifier)
	if errors.Is(err, repository.ErrNotFound) {
		account, err = s.repo.GetAccountByUsername(ctx, identifier)
	}
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Constant-time: burn a bcrypt comparison so unknown
			// identifiers take as long as wrong passwords.
			s.hasher.compareDummy(password)
			slog.Warn("login_failed", "reason", "account_not_found")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to look up account: %w", err)
	}

	now := s.now()
	if account.Locked(now) {
		slog.Warn("login_refused", "account_id", account.ID, "reason", "locked")
		return nil, ErrAccountLocked
	}
	if !account.IsActive {
		slog.Warn("login_refused", "account_id", account.ID, "reason", "inactive")
		return nil, ErrAccountInactive
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return nil, s.recordFailedLogin(ctx, account, now, ip, userAgent)
	}

	if err := s.repo.RecordLogin(ctx, account.ID, now); err != nil {
		return nil, fmt.Errorf("failed to record login: %w", err)
	}
	// The address proved itself; stop counting its earlier attempts.
	s.loginLimiter.Reset(ip)
	s.activity.Record(ctx, account.ID, activity.ActionLogin, nil, ip, userAgent)
	slog.Info("login_success", "account_id", account.ID)

	account.FailedLoginAttempts = 0
	account.LockedUntil = nil
	account.LastLoginAt = &now
	return account, nil
}

// recordFailedLogin increments the failure counter atomically and locks the
// account when the threshold is reached. The triggering failure itself
// answers with ErrAccountLocked.
func (s *Service) recordFailedLogin(ctx context.Context, account *models.Account, now time.Time, ip, userAgent string) error {
	attempts, err := s.repo.IncrementFailedLogins(ctx, account.ID)
	if err != nil {
		return fmt.Errorf("failed to count login failure: %w", err)
	}

	if attempts >= LockThreshold {
		until := now.Add(LockDuration)
		if err := s.repo.LockAccount(ctx, account.ID, until); err != nil {
			return fmt.Errorf("failed to lock account: %w", err)
		}
		s.activity.Record(ctx, account.ID, activity.ActionAccountLocked,
			map[string]any{"attempts": attempts, "until": until.UTC().Format(time.RFC3339)},
			ip, userAgent)
		slog.Warn("account_locked", "account_id", account.ID, "attempts", attempts)
		return ErrAccountLocked
	}

	slog.Warn("login_failed", "account_id", account.ID, "reason", "invalid_password", "attempts", attempts)
	return ErrInvalidCredentials
}

// RegisterParams holds the parameters for account registration.
type RegisterParams struct {
	Username string
	Email    string
	Password string
}

// Register creates a new account, issues an email verification token, and
// sends the verification mail in the background.
func (s *Service) Register(ctx context.Context, params RegisterParams, ip, userAgent string) (*models.Account, error) {
	if !s.registerLimiter.Allow(ip) {
		slog.Warn("register_rate_limited", "ip", ip)
		return nil, ErrTooManyAttempts
	}

	if !usernamePattern.MatchString(params.Username) {
		return nil, ErrInvalidUsername
	}
	if _, err := mail.ParseAddress(params.Email); err != nil {
		return nil, ErrInvalidEmail
	}
	if err := validatePassword(params.Password, params.Username, params.Email); err != nil {
		return nil, err
	}

	// Username and email uniqueness are two distinct checks; either
	// conflict rejects the registration.
	if _, err := s.repo.GetAccountByUsername(ctx, params.Username); err == nil {
		return nil, ErrUsernameTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if _, err := s.repo.GetAccountByEmail(ctx, params.Email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	passwordHash, err := s.hasher.Hash(params.Password)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: passwordHash,
		IsActive:     true,
	}
	if err := s.repo.CreateAccount(ctx, account); err != nil {
		return nil, fmt.Errorf("failed to create account: %w", err)
	}

	plaintext, err := s.tokens.IssueVerification(ctx, account.ID)
	if err != nil {
		return nil, err
	}
	s.sendInBackground("verification_email", account.Email, plaintext, s.mailerVerification())

	s.activity.Record(ctx, account.ID, activity.ActionAccountCreated, nil, ip, userAgent)
	slog.Info("register_success", "account_id", account.ID, "username", params.Username)

	return account, nil
}

// VerifyEmail redeems a verification token and marks the address verified.
func (s *Service) VerifyEmail(ctx context.Context, tokenPlaintext, ip, userAgent string) (*models.Account, error) {
	accountID, err := s.tokens.RedeemVerification(ctx, tokenPlaintext)
	if err != nil {
		return nil, err
	}

	if err := s.repo.MarkEmailVerified(ctx, accountID); err != nil {
		return nil, fmt.Errorf("failed to mark email verified: %w", err)
	}

	s.activity.Record(ctx, accountID, activity.ActionEmailVerified, nil, ip, userAgent)
	slog.Info("email_verified", "account_id", accountID)

	return s.repo.GetAccountByID(ctx, accountID)
}

// RequestPasswordReset issues a reset token when the address is registered.
// The response is identical whether or not the account exists; an unknown
// address simply produces no token and no email.
func (s *Service) RequestPasswordReset(ctx context.Context, email, ip, userAgent string) error {
	if !s.resetLimiter.Allow(ip) {
		slog.Warn("password_reset_rate_limited", "ip", ip)
		return ErrTooManyAttempts
	}

	account, err := s.repo.GetAccountByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			slog.Info("password_reset_requested", "known_account", false)
			return nil
		}
		return fmt.Errorf("failed to look up account: %w", err)
	}

	plaintext, err := s.tokens.IssueReset(ctx, account.ID)
	if err != nil {
		return err
	}
	s.sendInBackground("password_reset_email", account.Email, plaintext, s.mailerReset())

	s.activity.Record(ctx, account.ID, activity.ActionPasswordResetRequested, nil, ip, userAgent)
	slog.Info("password_reset_requested", "known_account", true, "account_id", account.ID)

	return nil
}

// CompletePasswordReset redeems a reset token and stores the new password.
// The password update and the token's used flag commit in one transaction with
// used = 0 as a precondition, so of two concurrent redemptions exactly one
// succeeds and only the winner's password persists.
func (s *Service) CompletePasswordReset(ctx context.Context, tokenPlaintext, newPassword, ip, userAgent string) error {
	record, err := s.tokens.LookupReset(ctx, tokenPlaintext)
	if err != nil {
		return err
	}

	account, err := s.repo.GetAccountByID(ctx, record.AccountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if err := validatePassword(newPassword, account.Username, account.Email); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	ok, err := s.repo.ResetAccountPassword(ctx, account.ID, passwordHash, record.ID)
	if err != nil {
		return fmt.Errorf("failed to reset password: %w", err)
	}
	if !ok {
		return token.ErrTokenAlreadyUsed
	}

	s.activity.Record(ctx, account.ID, activity.ActionPasswordResetCompleted, nil, ip, userAgent)
	slog.Info("password_reset_completed", "account_id", account.ID)

	return nil
}

// ChangePassword replaces the password after re-verifying the current one.
func (s *Service) ChangePassword(ctx context.Context, accountID int64, currentPassword, newPassword, ip, userAgent string) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if !s.hasher.Verify(currentPassword, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	if err := validatePassword(newPassword, account.Username, account.Email); err != nil {
		return err
	}

	passwordHash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.repo.UpdateAccountPassword(ctx, accountID, passwordHash); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}

	s.activity.Record(ctx, accountID, activity.ActionPasswordChanged, nil, ip, userAgent)
	slog.Info("password_changed", "account_id", accountID)

	return nil
}

// ChangeEmail updates the address after password re-verification. The
// verified flag drops and a fresh verification token goes to the new address.
func (s *Service) ChangeEmail(ctx context.Context, accountID int64, password, newEmail, ip, userAgent string) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}

	if !s.hasher.Verify(password, account.PasswordHash) {
		return ErrInvalidCredentials
	}
	if _, err := mail.ParseAddress(newEmail); err != nil {
		return ErrInvalidEmail
	}

	if existing, err := s.repo.GetAccountByEmail(ctx, newEmail); err == nil {
		if existing.ID != accountID {
			return ErrEmailTaken
		}
	} else if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("failed to check email: %w", err)
	}

	if err := s.repo.UpdateAccountEmail(ctx, accountID, newEmail); err != nil {
		return fmt.Errorf("failed to update email: %w", err)
	}

	// Tokens for the previous address are dead weight now.
	if err := s.repo.DeleteAccountEmailVerificationTokens(ctx, accountID); err != nil {
		return fmt.Errorf("failed to clear verification tokens: %w", err)
	}
	plaintext, err := s.tokens.IssueVerification(ctx, accountID)
	if err != nil {
		return err
	}
	s.sendInBackground("verification_email", newEmail, plaintext, s.mailerVerification())

	s.activity.Record(ctx, accountID, activity.ActionEmailChanged,
		map[string]any{"from": account.Email, "to": newEmail}, ip, userAgent)
	slog.Info("email_changed", "account_id", accountID)

	return nil
}

// UpdateProfile stores the optional profile fields.
func (s *Service) UpdateProfile(ctx context.Context, accountID int64, displayName, bio, avatarURL, ip, userAgent string) (*models.Account, error) {
	if err := s.repo.UpdateAccountProfile(ctx, accountID, displayName, bio, avatarURL); err != nil {
		return nil, fmt.Errorf("failed to update profile: %w", err)
	}

	s.activity.Record(ctx, accountID, activity.ActionProfileUpdated, nil, ip, userAgent)

	return s.repo.GetAccountByID(ctx, accountID)
}

// Logout records the logout in the audit trail. Destroying the session is the
// transport layer's job.
func (s *Service) Logout(ctx context.Context, accountID int64, ip, userAgent string) {
	s.activity.Record(ctx, accountID, activity.ActionLogout, nil, ip, userAgent)
	slog.Info("logout", "account_id", accountID)
}

// Deactivate flips the account inactive after password re-verification.
func (s *Service) Deactivate(ctx context.Context, accountID int64, password, ip, userAgent string) error {
	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.repo.SetAccountActive(ctx, accountID, false); err != nil {
		return fmt.Errorf("failed to deactivate account: %w", err)
	}

	s.activity.Record(ctx, accountID, activity.ActionAccountDeactivated, nil, ip, userAgent)
	slog.Info("account_deactivated", "account_id", accountID)

	return nil
}

// Delete removes the account and everything it owns. Both the password and
// the confirmation phrase are required; a stolen session alone must not be
// able to destroy an account.
func (s *Service) Delete(ctx context.Context, accountID int64, password, confirmation string) error {
	if confirmation != DeleteConfirmationPhrase {
		return ErrWrongConfirmation
	}

	account, err := s.repo.GetAccountByID(ctx, accountID)
	if err != nil {
		return fmt.Errorf("failed to load account: %w", err)
	}
	if !s.hasher.Verify(password, account.PasswordHash) {
		return ErrInvalidCredentials
	}

	if err := s.repo.DeleteAccount(ctx, accountID); err != nil {
		return fmt.Errorf("failed to delete account: %w", err)
	}

	// The cascade removed the audit trail with the account, so the deletion
	// itself is only recorded in the server log.
	slog.Info("account_deleted", "account_id", accountID, "username", account.Username)

	return nil
}

// mailerVerification and mailerReset adapt the optional mailer to a uniform
// send function for sendInBackground.
func (s *Service) mailerVerification() func(string, string) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendVerificationEmail
}

func (s *Service) mailerReset() func(string, string) error {
	if s.mailer == nil {
		return nil
	}
	return s.mailer.SendPasswordResetEmail
}

// sendInBackground delivers mail without blocking the request. The triggering
// operation has already succeeded; a delivery failure is only logged.
func (s *Service) sendInBackground(kind, to, tokenPlaintext string, send func(string, string) error) {
	if send == nil {
		slog.Warn("mailer_not_configured", "kind", kind)
		return
	}
	go func() {
		if err := send(to, tokenPlaintext); err != nil {
			slog.Warn("email_send_failed", "kind", kind, "error", err)
		}
	}()
}
