// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/pquerna/otp/totp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
	"codeberg.org/oliverandrich/verify-portal/internal/testutil"
)

func newAuthService(t *testing.T) (*auth.Service, *repository.Repository) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	svc, err := auth.New(repo, &config.AuthConfig{
		JWTSecret:       "test-secret",
		SessionDuration: 24,
	})
	require.NoError(t, err)
	return svc, repo
}

func TestNew_RequiresSecret(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := auth.New(repo, &config.AuthConfig{})

	assert.ErrorContains(t, err, "JWT secret")
}

func TestLogin(t *testing.T) {
	svc, repo := newAuthService(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	result, err := svc.Login(context.Background(), "admin@example.com", "correct horse")

	require.NoError(t, err)
	assert.Equal(t, admin.ID, result.Admin.ID)
	assert.False(t, result.Requires2FA)

	claims, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, admin.ID, claims.AdminID)
	assert.Equal(t, auth.StageFull, claims.Stage)
}

func TestLogin_WrongPassword(t *testing.T) {
	svc, repo := newAuthService(t)
	testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	_, err := svc.Login(context.Background(), "admin@example.com", "battery staple")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_UnknownEmail(t *testing.T) {
	svc, _ := newAuthService(t)

	_, err := svc.Login(context.Background(), "ghost@example.com", "whatever")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestLogin_With2FAEnabledIssuesPendingToken(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	secret, _, err := svc.SetupTwoFactor(ctx, admin.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTwoFactor(ctx, admin.ID, code))

	result, err := svc.Login(ctx, "admin@example.com", "correct horse")

	require.NoError(t, err)
	assert.True(t, result.Requires2FA)

	claims, err := svc.ParseToken(result.Token)
	require.NoError(t, err)
	assert.Equal(t, auth.StagePending2FA, claims.Stage)
}

func TestVerifyTwoFactor(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	secret, otpauthURL, err := svc.SetupTwoFactor(ctx, admin.ID)
	require.NoError(t, err)
	assert.Contains(t, otpauthURL, "otpauth://totp/")

	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTwoFactor(ctx, admin.ID, code))

	code, err = totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	full, err := svc.VerifyTwoFactor(ctx, admin.ID, code)

	require.NoError(t, err)
	claims, err := svc.ParseToken(full)
	require.NoError(t, err)
	assert.Equal(t, auth.StageFull, claims.Stage)
}

func TestVerifyTwoFactor_WrongCode(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	secret, _, err := svc.SetupTwoFactor(ctx, admin.ID)
	require.NoError(t, err)
	code, err := totp.GenerateCode(secret, time.Now())
	require.NoError(t, err)
	require.NoError(t, svc.EnableTwoFactor(ctx, admin.ID, code))

	_, err = svc.VerifyTwoFactor(ctx, admin.ID, "000000")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestVerifyTwoFactor_NotEnabled(t *testing.T) {
	svc, repo := newAuthService(t)
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	_, err := svc.VerifyTwoFactor(context.Background(), admin.ID, "123456")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
}

func TestEnableTwoFactor_WrongCode(t *testing.T) {
	svc, repo := newAuthService(t)
	ctx := context.Background()
	admin := testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	_, _, err := svc.SetupTwoFactor(ctx, admin.ID)
	require.NoError(t, err)

	err = svc.EnableTwoFactor(ctx, admin.ID, "000000")

	assert.ErrorIs(t, err, auth.ErrInvalidCredentials)
	// login stays single-factor until the code is proven
	result, err := svc.Login(ctx, "admin@example.com", "correct horse")
	require.NoError(t, err)
	assert.False(t, result.Requires2FA)
}

func TestHashPassword(t *testing.T) {
	hash, err := auth.HashPassword("correct horse")
	require.NoError(t, err)
	assert.NotEqual(t, "correct horse", hash)
	assert.True(t, len(hash) > 50)
}
