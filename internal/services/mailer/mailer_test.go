// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package mailer_test

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/services/mailer"
)

func TestNewDispatcher_Validation(t *testing.T) {
	_, err := mailer.NewDispatcher(&config.SMTPConfig{From: "noreply@example.com"}, "https://portal.example.com", nil)
	assert.ErrorContains(t, err, "SMTP host")

	_, err = mailer.NewDispatcher(&config.SMTPConfig{Host: "smtp.example.com"}, "https://portal.example.com", nil)
	assert.ErrorContains(t, err, "from address")
}

func TestVerifyURL(t *testing.T) {
	cfg := &config.SMTPConfig{Host: "smtp.example.com", From: "noreply@example.com"}

	d, err := mailer.NewDispatcher(cfg, "https://portal.example.com/", nil)
	require.NoError(t, err)

	assert.Equal(t, "https://portal.example.com/verify/abc123", d.VerifyURL("abc123"))
}

func TestDispatchError(t *testing.T) {
	cause := errors.New("connection refused")
	err := &mailer.DispatchError{Email: "jane@example.com", Err: cause}

	assert.Contains(t, err.Error(), "jane@example.com")
	assert.ErrorIs(t, err, cause)
}
