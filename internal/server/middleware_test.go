// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package server

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/config"
	"codeberg.org/oliverandrich/verify-portal/internal/handlers"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
	"codeberg.org/oliverandrich/verify-portal/internal/testutil"
)

func newAuthMiddlewareSetup(t *testing.T) (*auth.Service, string) {
	t.Helper()
	_, repo := testutil.NewTestDB(t)
	svc, err := auth.New(repo, &config.AuthConfig{JWTSecret: "test-secret", SessionDuration: 24})
	require.NoError(t, err)
	testutil.NewTestAdmin(t, repo, "admin@example.com", "correct horse")

	result, err := svc.Login(t.Context(), "admin@example.com", "correct horse")
	require.NoError(t, err)
	return svc, result.Token
}

func callProtected(svc *auth.Service, stage auth.Stage, authHeader string) (*httptest.ResponseRecorder, *auth.Claims) {
	e := echo.New()
	var seen *auth.Claims
	handler := requireAuth(svc, stage)(func(c echo.Context) error {
		seen = handlers.AdminClaims(c)
		return c.NoContent(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/admin/stats", nil)
	if authHeader != "" {
		req.Header.Set(echo.HeaderAuthorization, authHeader)
	}
	rec := httptest.NewRecorder()
	_ = handler(e.NewContext(req, rec))
	return rec, seen
}

func TestRequireAuth(t *testing.T) {
	svc, token := newAuthMiddlewareSetup(t)

	rec, claims := callProtected(svc, auth.StageFull, "Bearer "+token)

	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, claims)
	assert.Equal(t, "admin@example.com", claims.Email)
}

func TestRequireAuth_MissingHeader(t *testing.T) {
	svc, _ := newAuthMiddlewareSetup(t)

	rec, claims := callProtected(svc, auth.StageFull, "")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Nil(t, claims)
}

func TestRequireAuth_MalformedHeader(t *testing.T) {
	svc, token := newAuthMiddlewareSetup(t)

	rec, _ := callProtected(svc, auth.StageFull, "Token "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_ForgedToken(t *testing.T) {
	svc, _ := newAuthMiddlewareSetup(t)

	rec, _ := callProtected(svc, auth.StageFull, "Bearer not.a.real.token")

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuth_StageMismatch(t *testing.T) {
	// a full session token must not pass a pending-2fa gate and vice versa
	svc, token := newAuthMiddlewareSetup(t)

	rec, _ := callProtected(svc, auth.StagePending2FA, "Bearer "+token)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
