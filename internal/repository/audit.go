// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/vinovest/sqlx"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// AppendAudit writes one immutable audit entry. The audit_logs table is
// append-only; no method on the repository updates or deletes entries.
func (r *Repository) AppendAudit(ctx context.Context, contactID int64, action models.Action, oldData, newData string, req models.RequesterContext) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO audit_logs (contact_id, action, old_data, new_data, ip_address, user_agent, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		contactID, action, nullable(oldData), nullable(newData),
		nullable(req.IPAddress), nullable(req.UserAgent), time.Now())
	return err
}

// AppendAuditSnapshot marshals the snapshots and appends an entry.
func (r *Repository) AppendAuditSnapshot(ctx context.Context, contactID int64, action models.Action, oldFields, newFields *models.ContactFields, req models.RequesterContext) error {
	oldData, newData := "", ""
	var err error
	if oldFields != nil {
		if oldData, err = snapshotJSON(*oldFields); err != nil {
			return err
		}
	}
	if newFields != nil {
		if newData, err = snapshotJSON(*newFields); err != nil {
			return err
		}
	}
	return r.AppendAudit(ctx, contactID, action, oldData, newData, req)
}

// ListAuditEntries returns the audit trail for a contact, newest first.
func (r *Repository) ListAuditEntries(ctx context.Context, contactID int64) ([]models.AuditEntry, error) {
	var entries []models.AuditEntry
	err := r.db.SelectContext(ctx, &entries,
		`SELECT * FROM audit_logs WHERE contact_id = ? ORDER BY timestamp DESC, id DESC`, contactID)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// CountAuditEntries returns the number of entries for a contact.
func (r *Repository) CountAuditEntries(ctx context.Context, contactID int64) (int64, error) {
	var count int64
	err := r.db.GetContext(ctx, &count,
		`SELECT COUNT(*) FROM audit_logs WHERE contact_id = ?`, contactID)
	if err != nil {
		return 0, err
	}
	return count, nil
}

// appendAuditTx writes an audit entry inside an open transaction so that a
// record mutation and its audit entry commit as one unit.
func appendAuditTx(ctx context.Context, tx *sqlx.Tx, contactID int64, action models.Action, oldData, newData string, req models.RequesterContext) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO audit_logs (contact_id, action, old_data, new_data, ip_address, user_agent, timestamp)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		contactID, action, nullable(oldData), nullable(newData),
		nullable(req.IPAddress), nullable(req.UserAgent), time.Now())
	return err
}

// snapshotJSON serializes contact fields for an audit snapshot.
func snapshotJSON(f models.ContactFields) (string, error) {
	data, err := json.Marshal(f)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// requireRow maps a zero-row update to ErrNotFound.
func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// requireClaim maps a zero-row conditional token update to ErrTokenConflict.
func requireClaim(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrTokenConflict
	}
	return nil
}
