// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package email_test

import (
	"testing"

	"github.com/cardbinder/cardbinder/internal/config"
	"github.com/cardbinder/cardbinder/internal/services/email"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewService(t *testing.T) {
	svc, err := email.NewService(&config.SMTPConfig{
		Host: "mail.example.com",
		Port: 587,
		From: "noreply@example.com",
	}, "https://cardbinder.example.com/")

	require.NoError(t, err)
	assert.NotNil(t, svc)
}

func TestNewService_RequiresHost(t *testing.T) {
	_, err := email.NewService(&config.SMTPConfig{
		From: "noreply@example.com",
	}, "https://cardbinder.example.com")

	assert.ErrorContains(t, err, "SMTP host is required")
}

func TestNewService_RequiresFrom(t *testing.T) {
	_, err := email.NewService(&config.SMTPConfig{
		Host: "mail.example.com",
	}, "https://cardbinder.example.com")

	assert.ErrorContains(t, err, "SMTP from address is required")
}
