// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/services/auth"
)

// AuthHandlers contains handlers for admin authentication.
type AuthHandlers struct {
	repo *repository.Repository
	auth *auth.Service
}

// NewAuth creates a new AuthHandlers instance.
func NewAuth(repo *repository.Repository, svc *auth.Service) *AuthHandlers {
	return &AuthHandlers{repo: repo, auth: svc}
}

// LoginRequest is the request body for POST /api/auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// Login checks admin credentials and returns a bearer token. When the
// account has a second factor enabled the token only unlocks the 2FA step.
func (h *AuthHandlers) Login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if req.Email == "" || req.Password == "" {
		return errorJSON(c, http.StatusBadRequest, "email and password are required")
	}

	result, err := h.auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "invalid email or password")
		}
		slog.Error("login failed", "error", err, "email", req.Email)
		return errorJSON(c, http.StatusInternalServerError, "login failed")
	}

	if result.Requires2FA {
		return c.JSON(http.StatusOK, map[string]any{
			"token":       result.Token,
			"requires2FA": true,
		})
	}

	return c.JSON(http.StatusOK, map[string]any{
		"admin": result.Admin,
		"token": result.Token,
	})
}

// TwoFactorRequest is the request body for the 2FA endpoints.
type TwoFactorRequest struct {
	Code string `json:"code"`
}

// Verify2FA completes a pending login with a TOTP code and returns a full
// session token.
func (h *AuthHandlers) Verify2FA(c echo.Context) error {
	claims := AdminClaims(c)

	var req TwoFactorRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return errorJSON(c, http.StatusBadRequest, "code is required")
	}

	tokenString, err := h.auth.VerifyTwoFactor(c.Request().Context(), claims.AdminID, req.Code)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "invalid code")
		}
		slog.Error("2fa verification failed", "error", err, "admin_id", claims.AdminID)
		return errorJSON(c, http.StatusInternalServerError, "verification failed")
	}

	return c.JSON(http.StatusOK, map[string]string{"token": tokenString})
}

// Me returns the authenticated admin account.
func (h *AuthHandlers) Me(c echo.Context) error {
	claims := AdminClaims(c)

	admin, err := h.repo.GetAdminByID(c.Request().Context(), claims.AdminID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusUnauthorized, "account no longer exists")
		}
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	return c.JSON(http.StatusOK, map[string]any{"admin": admin})
}

// Setup2FA generates a TOTP secret for the admin. The secret stays disabled
// until Enable2FA proves the admin holds it.
func (h *AuthHandlers) Setup2FA(c echo.Context) error {
	claims := AdminClaims(c)

	secret, otpauthURL, err := h.auth.SetupTwoFactor(c.Request().Context(), claims.AdminID)
	if err != nil {
		slog.Error("2fa setup failed", "error", err, "admin_id", claims.AdminID)
		return errorJSON(c, http.StatusInternalServerError, "setup failed")
	}

	return c.JSON(http.StatusOK, map[string]string{
		"secret": secret,
		"url":    otpauthURL,
	})
}

// Enable2FA turns on the second factor after a successful code check.
func (h *AuthHandlers) Enable2FA(c echo.Context) error {
	claims := AdminClaims(c)

	var req TwoFactorRequest
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return errorJSON(c, http.StatusBadRequest, "code is required")
	}

	if err := h.auth.EnableTwoFactor(c.Request().Context(), claims.AdminID, req.Code); err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			return errorJSON(c, http.StatusUnauthorized, "invalid code")
		}
		return errorJSON(c, http.StatusInternalServerError, "enabling failed")
	}

	return c.JSON(http.StatusOK, map[string]bool{"enabled": true})
}
