// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package importer implements the bulk import pipeline: parse an uploaded
// spreadsheet, upsert contact records row by row, report progress over the
// push channel, then reissue tokens and fan out verification emails.
package importer

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/sse"
	"codeberg.org/oliverandrich/verify-portal/internal/token"
	"codeberg.org/oliverandrich/verify-portal/internal/validate"
)

// Notifier sends a verification email for a freshly issued token.
type Notifier interface {
	Send(ctx context.Context, contact *models.Contact, plaintext string) error
}

// RowFailure describes one rejected row. Row numbers are 1-based over the
// data rows of the uploaded file.
type RowFailure struct {
	Row    int    `json:"row"`
	Reason string `json:"reason"`
}

// Report is the structured outcome of one import run. Upserts that committed
// stay committed even when the notification step degrades the report.
type Report struct {
	TotalRows      int          `json:"totalRows"`
	Imported       int          `json:"imported"`
	Failures       []RowFailure `json:"failures"`
	Pending        int          `json:"pending"`
	EmailsSent     int          `json:"emailsSent"`
	DispatchErrors []string     `json:"dispatchErrors,omitempty"`
}

// Service runs imports against the record store.
type Service struct {
	repo     *repository.Repository
	issuer   *token.Issuer
	notifier Notifier
	hub      *sse.Hub
}

// New creates a new import service.
func New(repo *repository.Repository, issuer *token.Issuer, notifier Notifier, hub *sse.Hub) *Service {
	return &Service{
		repo:     repo,
		issuer:   issuer,
		notifier: notifier,
		hub:      hub,
	}
}

// Import runs the full pipeline for one uploaded file. A file that cannot be
// parsed aborts before any upsert; a row that fails validation is recorded in
// the report and skipped; dispatcher failures are reported but never roll
// back committed upserts. Progress is pushed to the given channel id after
// every row; nobody listening is fine.
func (s *Service) Import(ctx context.Context, filename string, file io.Reader, channelID string, req models.RequesterContext) (*Report, error) {
	rows, err := ParseFile(filename, file)
	if err != nil {
		return nil, err
	}

	report := &Report{TotalRows: len(rows)}
	affected := make([]int64, 0, len(rows))

	for i, fields := range rows {
		contactID, err := s.upsertRow(ctx, fields, req)
		if err != nil {
			report.Failures = append(report.Failures, RowFailure{Row: i + 1, Reason: err.Error()})
		} else {
			report.Imported++
			affected = append(affected, contactID)
		}

		s.publishProgress(channelID, i+1, len(rows))
	}

	s.notifyAffected(ctx, affected, report)

	slog.Info("import finished",
		"file", filename,
		"total", report.TotalRows,
		"imported", report.Imported,
		"failed", len(report.Failures),
		"emails_sent", report.EmailsSent,
	)

	return report, nil
}

// upsertRow validates one row and inserts or updates the matching contact.
// The lookup key is client_number first, email as the documented fallback.
// A row whose client_number and email match two different existing records
// is rejected instead of silently picking one.
func (s *Service) upsertRow(ctx context.Context, fields models.ContactFields, req models.RequesterContext) (int64, error) {
	if problems := validate.ContactFields(fields); len(problems) > 0 {
		return 0, errors.New(strings.Join(problems, "; "))
	}

	byNumber, err := s.lookup(ctx, s.repo.GetContactByClientNumber, fields.ClientNumber)
	if err != nil {
		return 0, fmt.Errorf("looking up client number: %w", err)
	}
	byEmail, err := s.lookup(ctx, s.repo.GetContactByEmail, fields.Email)
	if err != nil {
		return 0, fmt.Errorf("looking up email: %w", err)
	}

	if byNumber != nil && byEmail != nil && byNumber.ID != byEmail.ID {
		return 0, fmt.Errorf("client_number matches record %d but email matches record %d",
			byNumber.ID, byEmail.ID)
	}

	existing := byNumber
	if existing == nil {
		existing = byEmail
	}

	if existing == nil {
		contact, err := s.repo.CreateContact(ctx, fields)
		if err != nil {
			return 0, fmt.Errorf("inserting record: %w", err)
		}
		if err := s.repo.AppendAuditSnapshot(ctx, contact.ID, models.ActionCreated, nil, &fields, req); err != nil {
			return 0, fmt.Errorf("appending audit entry: %w", err)
		}
		return contact.ID, nil
	}

	before := existing.Fields()
	if err := s.repo.ReplaceContactForImport(ctx, existing.ID, fields); err != nil {
		return 0, fmt.Errorf("updating record: %w", err)
	}
	if err := s.repo.AppendAuditSnapshot(ctx, existing.ID, models.ActionUpdated, &before, &fields, req); err != nil {
		return 0, fmt.Errorf("appending audit entry: %w", err)
	}
	return existing.ID, nil
}

func (s *Service) lookup(ctx context.Context, get func(context.Context, string) (*models.Contact, error), key string) (*models.Contact, error) {
	contact, err := get(ctx, key)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return contact, nil
}

// notifyAffected reissues a token for every upserted record and sends the
// verification email. Each failure downgrades the report for that record
// only.
func (s *Service) notifyAffected(ctx context.Context, affected []int64, report *Report) {
	for _, contactID := range affected {
		plaintext, _, err := s.issuer.Issue(ctx, contactID)
		if err != nil {
			report.DispatchErrors = append(report.DispatchErrors,
				fmt.Sprintf("record %d: issuing token: %v", contactID, err))
			continue
		}
		report.Pending++

		contact, err := s.repo.GetContactByID(ctx, contactID)
		if err != nil {
			report.DispatchErrors = append(report.DispatchErrors,
				fmt.Sprintf("record %d: loading record: %v", contactID, err))
			continue
		}

		if err := s.notifier.Send(ctx, contact, plaintext); err != nil {
			slog.Warn("verification email failed", "contact_id", contactID, "error", err)
			report.DispatchErrors = append(report.DispatchErrors, err.Error())
			continue
		}
		report.EmailsSent++
	}
}

func (s *Service) publishProgress(channelID string, done, total int) {
	if channelID == "" || total == 0 {
		return
	}
	s.hub.Publish(channelID, sse.FormatProgress(done*100/total))
}
