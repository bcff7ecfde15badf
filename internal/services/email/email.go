// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package email delivers transactional mail over SMTP.
package email

import (
	"fmt"
	"strings"

	"github.com/cardbinder/cardbinder/internal/config"
	"github.com/wneessen/go-mail"
)

// Service sends verification and password reset emails.
type Service struct {
	cfg     *config.SMTPConfig
	baseURL string
}

// NewService creates a new email service.
func NewService(cfg *config.SMTPConfig, baseURL string) (*Service, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("SMTP host is required")
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("SMTP from address is required")
	}

	return &Service{
		cfg:     cfg,
		baseURL: strings.TrimSuffix(baseURL, "/"),
	}, nil
}

// SendVerificationEmail sends an address-confirmation link for the token.
func (s *Service) SendVerificationEmail(toEmail, token string) error {
	verifyURL := fmt.Sprintf("%s/auth/verify-email?token=%s", s.baseURL, token)

	subject := "Confirm your email address"
	body := fmt.Sprintf(
		"Welcome to Cardbinder!\n\n"+
			"Open the link below to confirm your email address. The link is valid for 24 hours.\n\n"+
			"%s\n\n"+
			"If you did not create an account, you can ignore this message.\n",
		verifyURL)

	return s.send(toEmail, subject, body)
}

// SendPasswordResetEmail sends a reset link for the token.
func (s *Service) SendPasswordResetEmail(toEmail, token string) error {
	// The link targets the frontend's reset form, which collects the new
	// password and posts it with the token to /auth/password-reset/complete.
	// Unlike verification, a reset cannot finish from a bare GET.
	resetURL := fmt.Sprintf("%s/auth/password-reset?token=%s", s.baseURL, token)

	subject := "Reset your password"
	body := fmt.Sprintf(
		"A password reset was requested for your Cardbinder account.\n\n"+
			"Open the link below to choose a new password. The link is valid for one hour and can be used once.\n\n"+
			"%s\n\n"+
			"If you did not request a reset, you can ignore this message; your password is unchanged.\n",
		resetURL)

	return s.send(toEmail, subject, body)
}

// send sends an email via SMTP using go-mail.
func (s *Service) send(to, subject, body string) error {
	msg := mail.NewMsg()

	if s.cfg.FromName != "" {
		if err := msg.FromFormat(s.cfg.FromName, s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	} else {
		if err := msg.From(s.cfg.From); err != nil {
			return fmt.Errorf("setting from address: %w", err)
		}
	}

	if err := msg.To(to); err != nil {
		return fmt.Errorf("setting to address: %w", err)
	}

	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextPlain, body)

	// Build client options
	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
	}

	// Configure TLS based on config and port
	if s.cfg.TLS {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
		// Use implicit TLS (SSL) for port 465, STARTTLS for others
		if s.cfg.Port == 465 {
			opts = append(opts, mail.WithSSL())
		}
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.NoTLS))
	}

	// Add authentication if credentials are provided
	if s.cfg.Username != "" && s.cfg.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(s.cfg.Username),
			mail.WithPassword(s.cfg.Password),
		)
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("creating mail client: %w", err)
	}

	if err := client.DialAndSend(msg); err != nil {
		return fmt.Errorf("sending email: %w", err)
	}

	return nil
}
