// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package testutil provides test helpers and fixtures.
package testutil

import (
	"context"
	"fmt"
	"io"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/require"
	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/verify-portal/internal/database"
	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
)

// NewTestDB creates an in-memory SQLite database for tests.
// Returns both the database connection and the repository for convenience.
func NewTestDB(t *testing.T) (*sqlx.DB, *repository.Repository) {
	t.Helper()
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = db.Close()
	})
	repo := repository.New(db)
	return db, repo
}

// ContactFieldsFixture returns a valid set of contact fields. The suffix
// keeps client numbers and emails unique across fixtures.
func ContactFieldsFixture(suffix string) models.ContactFields {
	return models.ContactFields{
		ClientNumber: "CN-" + suffix,
		FirstName:    "Jamie",
		LastName:     "Doe",
		PhoneNumber:  "+49 30 1234 " + suffix,
		Address:      "Example Street 1, Berlin",
		Email:        fmt.Sprintf("jamie+%s@example.com", suffix),
	}
}

// NewTestContact creates a contact record in the database.
func NewTestContact(t *testing.T, repo *repository.Repository, suffix string) *models.Contact {
	t.Helper()
	contact, err := repo.CreateContact(context.Background(), ContactFieldsFixture(suffix))
	require.NoError(t, err)
	return contact
}

// NewTestAdmin creates an admin account with the given password.
func NewTestAdmin(t *testing.T, repo *repository.Repository, email, password string) *models.Admin {
	t.Helper()
	hash, err := auth.HashPassword(password)
	require.NoError(t, err)
	admin, err := repo.CreateAdmin(context.Background(), email, hash)
	require.NoError(t, err)
	return admin
}

// NewEchoContext creates an Echo context for handler tests.
func NewEchoContext(e *echo.Echo, method, path string, body io.Reader) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}

// NewEchoContextWithHeaders creates an Echo context with custom headers.
func NewEchoContextWithHeaders(e *echo.Echo, method, path string, body io.Reader, headers map[string]string) (echo.Context, *httptest.ResponseRecorder) {
	req := httptest.NewRequest(method, path, body)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	return c, rec
}
