// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package handlers contains all HTTP handlers of the portal API.
package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
)

// Health returns the health status.
func Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}

// ClaimsKey is the echo context key the auth middleware stores claims under.
const ClaimsKey = "admin_claims"

// AdminClaims returns the authenticated admin's claims set by the auth
// middleware, or nil outside an authenticated route.
func AdminClaims(c echo.Context) *auth.Claims {
	claims, _ := c.Get(ClaimsKey).(*auth.Claims)
	return claims
}

// requester captures the calling client for the audit trail.
func requester(c echo.Context) models.RequesterContext {
	return models.RequesterContext{
		IPAddress: c.RealIP(),
		UserAgent: c.Request().UserAgent(),
	}
}

func errorJSON(c echo.Context, status int, message string) error {
	return c.JSON(status, map[string]string{"error": message})
}
