// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/token"
	"codeberg.org/oliverandrich/verify-portal/internal/validate"
)

// genericTokenError is the single message for every token problem on the
// public endpoints. NotFound, Expired and lost races are deliberately
// indistinguishable so callers cannot probe which tokens exist or existed.
const genericTokenError = "invalid or expired verification link"

// VerifyHandlers contains the public, unauthenticated verification handlers.
type VerifyHandlers struct {
	repo   *repository.Repository
	issuer *token.Issuer
}

// NewVerify creates a new VerifyHandlers instance.
func NewVerify(repo *repository.Repository, issuer *token.Issuer) *VerifyHandlers {
	return &VerifyHandlers{repo: repo, issuer: issuer}
}

// Get resolves a verification token and returns the record's current fields.
// GET /api/verify/:token
func (h *VerifyHandlers) Get(c echo.Context) error {
	contact, err := h.issuer.Resolve(c.Request().Context(), c.Param("token"))
	if err != nil {
		return h.tokenError(c, err)
	}

	return c.JSON(http.StatusOK, map[string]any{
		"user":       contact.Fields(),
		"hasChanges": contact.HasChanges,
	})
}

// VerifySubmission is the request body for POST /api/verify/:token.
type VerifySubmission struct {
	models.ContactFields
	Action string `json:"action"`
}

// Post accepts a confirm-or-update submission against a token. The token is
// re-resolved at submission time and consumed atomically, so of two racing
// submissions exactly one wins.
// POST /api/verify/:token
func (h *VerifyHandlers) Post(c echo.Context) error {
	plaintext := c.Param("token")
	ctx := c.Request().Context()

	contact, err := h.issuer.Resolve(ctx, plaintext)
	if err != nil {
		return h.tokenError(c, err)
	}

	var submission VerifySubmission
	if err := c.Bind(&submission); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}

	switch submission.Action {
	case "confirm":
		updated, err := h.repo.ConfirmContactByToken(ctx, contact.ID, token.Hash(plaintext), requester(c))
		if err != nil {
			return h.tokenError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status": updated.Status,
		})

	case "update":
		if problems := validate.ContactFields(submission.ContactFields); len(problems) > 0 {
			return c.JSON(http.StatusBadRequest, map[string]any{"errors": problems})
		}
		updated, err := h.repo.UpdateContactByToken(ctx, contact.ID, token.Hash(plaintext), submission.ContactFields, requester(c))
		if err != nil {
			return h.tokenError(c, err)
		}
		return c.JSON(http.StatusOK, map[string]any{
			"status": updated.Status,
		})

	default:
		return errorJSON(c, http.StatusBadRequest, "action must be confirm or update")
	}
}

// tokenError collapses every token failure into one generic 404.
func (h *VerifyHandlers) tokenError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, token.ErrNotFound),
		errors.Is(err, token.ErrExpired),
		errors.Is(err, repository.ErrNotFound),
		errors.Is(err, repository.ErrTokenConflict):
		return errorJSON(c, http.StatusNotFound, genericTokenError)
	default:
		slog.Error("verification failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "verification failed")
	}
}
