// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/services/export"
	"codeberg.org/oliverandrich/verify-portal/internal/services/importer"
	"codeberg.org/oliverandrich/verify-portal/internal/services/mailer"
	"codeberg.org/oliverandrich/verify-portal/internal/validate"
)

// AdminHandlers contains the authenticated roster administration handlers.
type AdminHandlers struct {
	repo       *repository.Repository
	importer   *importer.Service
	dispatcher *mailer.Dispatcher
}

// NewAdmin creates a new AdminHandlers instance.
func NewAdmin(repo *repository.Repository, imp *importer.Service, dispatcher *mailer.Dispatcher) *AdminHandlers {
	return &AdminHandlers{repo: repo, importer: imp, dispatcher: dispatcher}
}

// ListUsers returns one page of contact records.
// GET /api/admin/users?search=&status=&page=&limit=
func (h *AdminHandlers) ListUsers(c echo.Context) error {
	opts := repository.ContactListOptions{
		Search: c.QueryParam("search"),
	}
	if status := c.QueryParam("status"); status != "" {
		s := models.Status(status)
		if !s.Valid() {
			return errorJSON(c, http.StatusBadRequest, "unknown status filter")
		}
		opts.Status = s
	}
	opts.Page, _ = strconv.Atoi(c.QueryParam("page"))
	opts.Limit, _ = strconv.Atoi(c.QueryParam("limit"))

	contacts, total, err := h.repo.ListContacts(c.Request().Context(), opts)
	if err != nil {
		slog.Error("listing contacts failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	if contacts == nil {
		contacts = []models.Contact{}
	}
	return c.JSON(http.StatusOK, map[string]any{
		"users": contacts,
		"total": total,
	})
}

// UpdateUser overwrites a contact's editable fields after an admin review.
// The review clears the has_changes flag and is audited.
// PUT /api/admin/users/:id
func (h *AdminHandlers) UpdateUser(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	var fields models.ContactFields
	if err := c.Bind(&fields); err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid request")
	}
	if problems := validate.ContactFields(fields); len(problems) > 0 {
		return c.JSON(http.StatusBadRequest, map[string]any{"errors": problems})
	}

	ctx := c.Request().Context()
	before, err := h.repo.GetContactByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "record not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	if err := h.repo.UpdateContactFields(ctx, id, fields); err != nil {
		slog.Error("updating contact failed", "error", err, "contact_id", id)
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}
	if err := h.repo.ClearContactChanges(ctx, id); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	beforeFields := before.Fields()
	if err := h.repo.AppendAuditSnapshot(ctx, id, models.ActionUpdated, &beforeFields, &fields, requester(c)); err != nil {
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	contact, err := h.repo.GetContactByID(ctx, id)
	if err != nil {
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, contact)
}

// Import runs the bulk import pipeline on an uploaded spreadsheet.
// POST /api/admin/import (multipart: file, channel)
func (h *AdminHandlers) Import(c echo.Context) error {
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "file is required")
	}
	channelID := c.FormValue("channel")

	file, err := fileHeader.Open()
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "cannot read uploaded file")
	}
	defer func() { _ = file.Close() }()

	report, err := h.importer.Import(c.Request().Context(), fileHeader.Filename, file, channelID, requester(c))
	if err != nil {
		if errors.Is(err, importer.ErrUnsupportedFormat) {
			return errorJSON(c, http.StatusBadRequest, err.Error())
		}
		slog.Error("import failed", "error", err, "file", fileHeader.Filename)
		return errorJSON(c, http.StatusBadRequest, fmt.Sprintf("import failed: %v", err))
	}

	return c.JSON(http.StatusOK, report)
}

// ResendEmail reissues the contact's token and resends the verification
// email.
// POST /api/admin/resend-email/:id
func (h *AdminHandlers) ResendEmail(c echo.Context) error {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return errorJSON(c, http.StatusBadRequest, "invalid id")
	}

	ctx := c.Request().Context()
	contact, err := h.repo.GetContactByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorJSON(c, http.StatusNotFound, "record not found")
		}
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	if err := h.dispatcher.Resend(ctx, contact); err != nil {
		var dispatchErr *mailer.DispatchError
		if errors.As(err, &dispatchErr) {
			slog.Warn("resend failed", "contact_id", id, "error", err)
			return errorJSON(c, http.StatusBadGateway, "email could not be sent")
		}
		return errorJSON(c, http.StatusInternalServerError, "resend failed")
	}

	return c.JSON(http.StatusOK, map[string]bool{"ok": true})
}

// Export streams the roster as CSV or XLSX.
// GET /api/admin/export?format=csv|xlsx
func (h *AdminHandlers) Export(c echo.Context) error {
	format := c.QueryParam("format")
	if format == "" {
		format = "csv"
	}

	contacts, err := h.repo.ListAllContacts(c.Request().Context())
	if err != nil {
		slog.Error("export failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}

	var payload []byte
	var contentType string
	switch format {
	case "csv":
		payload, err = export.CSV(contacts)
		contentType = "text/csv"
	case "xlsx":
		payload, err = export.XLSX(contacts)
		contentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	default:
		return errorJSON(c, http.StatusBadRequest, "format must be csv or xlsx")
	}
	if err != nil {
		slog.Error("export rendering failed", "error", err, "format", format)
		return errorJSON(c, http.StatusInternalServerError, "export failed")
	}

	c.Response().Header().Set(echo.HeaderContentDisposition,
		fmt.Sprintf(`attachment; filename=%q`, export.Filename(format)))
	return c.Blob(http.StatusOK, contentType, payload)
}

// Stats returns the dashboard statistics.
// GET /api/admin/stats
func (h *AdminHandlers) Stats(c echo.Context) error {
	stats, err := h.repo.GetContactStats(c.Request().Context())
	if err != nil {
		slog.Error("stats failed", "error", err)
		return errorJSON(c, http.StatusInternalServerError, "database error")
	}
	return c.JSON(http.StatusOK, stats)
}
