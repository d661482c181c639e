// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// GetContactByID retrieves a contact by its ID.
func (r *Repository) GetContactByID(ctx context.Context, id int64) (*models.Contact, error) {
	var c models.Contact
	if err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// GetContactByClientNumber retrieves a contact by its external client number.
func (r *Repository) GetContactByClientNumber(ctx context.Context, clientNumber string) (*models.Contact, error) {
	var c models.Contact
	err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE client_number = ?`, clientNumber)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// GetContactByEmail retrieves a contact by email address.
func (r *Repository) GetContactByEmail(ctx context.Context, email string) (*models.Contact, error) {
	var c models.Contact
	err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE email = ?`, email)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// GetContactByTokenHash retrieves a contact by the hash of its active token.
func (r *Repository) GetContactByTokenHash(ctx context.Context, tokenHash string) (*models.Contact, error) {
	var c models.Contact
	err := r.db.GetContext(ctx, &c, `SELECT * FROM contacts WHERE token_hash = ?`, tokenHash)
	if err != nil {
		return nil, wrapError(err)
	}
	return &c, nil
}

// CreateContact inserts a new contact with status pending and returns it.
func (r *Repository) CreateContact(ctx context.Context, f models.ContactFields) (*models.Contact, error) {
	now := time.Now()
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO contacts (client_number, first_name, last_name, phone_number, alt_number,
		                       address, email, status, has_changes, group_template, created_at, last_updated)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, 0, ?, ?, ?)`,
		f.ClientNumber, f.FirstName, f.LastName, f.PhoneNumber, nullable(f.AltNumber),
		f.Address, f.Email, models.StatusPending, nullable(f.GroupTemplate), now, now)
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetContactByID(ctx, id)
}

// ReplaceContactForImport overwrites the editable fields of an existing
// contact during import and resets it to pending for a fresh verification
// cycle. The active token is left untouched; bulk reissue supersedes it.
func (r *Repository) ReplaceContactForImport(ctx context.Context, id int64, f models.ContactFields) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		 SET client_number = ?, first_name = ?, last_name = ?, phone_number = ?, alt_number = ?,
		     address = ?, email = ?, status = ?, has_changes = 0, group_template = ?, last_updated = ?
		 WHERE id = ?`,
		f.ClientNumber, f.FirstName, f.LastName, f.PhoneNumber, nullable(f.AltNumber),
		f.Address, f.Email, models.StatusPending, nullable(f.GroupTemplate), time.Now(), id)
	return err
}

// UpdateContactFields overwrites the editable fields of a contact without
// touching its verification state. Used for admin edits.
func (r *Repository) UpdateContactFields(ctx context.Context, id int64, f models.ContactFields) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts
		 SET client_number = ?, first_name = ?, last_name = ?, phone_number = ?, alt_number = ?,
		     address = ?, email = ?, group_template = ?, last_updated = ?
		 WHERE id = ?`,
		f.ClientNumber, f.FirstName, f.LastName, f.PhoneNumber, nullable(f.AltNumber),
		f.Address, f.Email, nullable(f.GroupTemplate), time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ClearContactChanges resets the has_changes review flag on a contact.
func (r *Repository) ClearContactChanges(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET has_changes = 0, last_updated = ? WHERE id = ?`, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// SetContactToken stores a new token hash and expiry on a contact, replacing
// any previously issued token. The unique index on token_hash guarantees a
// token resolves to at most one contact. The status is left untouched so a
// resend does not re-open an already confirmed record; only the import path
// resets a contact to pending.
func (r *Repository) SetContactToken(ctx context.Context, id int64, tokenHash string, expiry time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE contacts SET token_hash = ?, token_expiry = ?, last_updated = ? WHERE id = ?`,
		tokenHash, expiry, time.Now(), id)
	if err != nil {
		return err
	}
	return requireRow(res)
}

// ConfirmContactByToken transitions a contact to confirmed and clears its
// token, keyed on the token hash so only one of two racing submissions can
// win. The audit entry is written in the same transaction; losing the race
// returns ErrTokenConflict.
func (r *Repository) ConfirmContactByToken(ctx context.Context, id int64, tokenHash string, req models.RequesterContext) (*models.Contact, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx,
		`UPDATE contacts
		 SET status = ?, token_hash = NULL, token_expiry = NULL, last_updated = ?
		 WHERE id = ? AND token_hash = ?`,
		models.StatusConfirmed, time.Now(), id, tokenHash)
	if err != nil {
		return nil, err
	}
	if err := requireClaim(res); err != nil {
		return nil, err
	}

	var c models.Contact
	if err := tx.GetContext(ctx, &c, `SELECT * FROM contacts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}

	snapshot, err := snapshotJSON(c.Fields())
	if err != nil {
		return nil, err
	}
	if err := appendAuditTx(ctx, tx, c.ID, models.ActionConfirmed, snapshot, snapshot, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &c, nil
}

// UpdateContactByToken overwrites a contact's fields with a client submission,
// transitions it to updated, flags it for admin review and clears the token.
// Atomicity mirrors ConfirmContactByToken.
func (r *Repository) UpdateContactByToken(ctx context.Context, id int64, tokenHash string, f models.ContactFields, req models.RequesterContext) (*models.Contact, error) {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	var before models.Contact
	if err := tx.GetContext(ctx, &before, `SELECT * FROM contacts WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}

	res, err := tx.ExecContext(ctx,
		`UPDATE contacts
		 SET client_number = ?, first_name = ?, last_name = ?, phone_number = ?, alt_number = ?,
		     address = ?, email = ?, status = ?, has_changes = 1,
		     token_hash = NULL, token_expiry = NULL, last_updated = ?
		 WHERE id = ? AND token_hash = ?`,
		f.ClientNumber, f.FirstName, f.LastName, f.PhoneNumber, nullable(f.AltNumber),
		f.Address, f.Email, models.StatusUpdated, time.Now(), id, tokenHash)
	if err != nil {
		return nil, err
	}
	if err := requireClaim(res); err != nil {
		return nil, err
	}

	oldSnapshot, err := snapshotJSON(before.Fields())
	if err != nil {
		return nil, err
	}
	newSnapshot, err := snapshotJSON(f)
	if err != nil {
		return nil, err
	}
	if err := appendAuditTx(ctx, tx, id, models.ActionUpdated, oldSnapshot, newSnapshot, req); err != nil {
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return r.GetContactByID(ctx, id)
}

// ContactListOptions control filtering and pagination for ListContacts.
type ContactListOptions struct {
	Search string        // matches client_number, name or email
	Status models.Status // empty means all
	Page   int           // 1-based
	Limit  int
}

// ListContacts returns one page of contacts plus the total match count.
func (r *Repository) ListContacts(ctx context.Context, opts ContactListOptions) ([]models.Contact, int64, error) {
	where := []string{"1 = 1"}
	args := []any{}

	if opts.Search != "" {
		where = append(where,
			`(client_number LIKE ? OR first_name LIKE ? OR last_name LIKE ? OR email LIKE ?)`)
		pattern := "%" + opts.Search + "%"
		args = append(args, pattern, pattern, pattern, pattern)
	}
	if opts.Status != "" {
		where = append(where, "status = ?")
		args = append(args, opts.Status)
	}

	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := fmt.Sprintf(`SELECT COUNT(*) FROM contacts WHERE %s`, clause)
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, err
	}

	if opts.Limit <= 0 {
		opts.Limit = 25
	}
	if opts.Page <= 0 {
		opts.Page = 1
	}
	offset := (opts.Page - 1) * opts.Limit

	var contacts []models.Contact
	listQuery := fmt.Sprintf(
		`SELECT * FROM contacts WHERE %s ORDER BY last_updated DESC, id DESC LIMIT ? OFFSET ?`, clause)
	listArgs := append(args, opts.Limit, offset)
	if err := r.db.SelectContext(ctx, &contacts, listQuery, listArgs...); err != nil {
		return nil, 0, err
	}

	return contacts, total, nil
}

// ListAllContacts returns the full roster ordered by client number, for export.
func (r *Repository) ListAllContacts(ctx context.Context) ([]models.Contact, error) {
	var contacts []models.Contact
	err := r.db.SelectContext(ctx, &contacts,
		`SELECT * FROM contacts ORDER BY client_number, id`)
	if err != nil {
		return nil, err
	}
	return contacts, nil
}

// ContactStats aggregates the dashboard numbers.
type ContactStats struct {
	TotalUsers        int64   `db:"total_users" json:"totalUsers"`
	Confirmed         int64   `db:"confirmed" json:"confirmed"`
	Updated           int64   `db:"updated" json:"updated"`
	Pending           int64   `db:"pending" json:"pending"`
	ConfirmationRate  float64 `db:"-" json:"confirmationRate"`
	TodayUpdates      int64   `db:"today_updates" json:"todayUpdates"`
	RecentUpdateCount int64   `db:"recent_update_count" json:"recentUpdateCount"`
}

// GetContactStats computes roster statistics in a single pass.
func (r *Repository) GetContactStats(ctx context.Context) (*ContactStats, error) {
	var stats ContactStats
	err := r.db.GetContext(ctx, &stats, `
		SELECT
			COUNT(*) AS total_users,
			COALESCE(SUM(CASE WHEN status = 'confirmed' THEN 1 ELSE 0 END), 0) AS confirmed,
			COALESCE(SUM(CASE WHEN status = 'updated' THEN 1 ELSE 0 END), 0) AS updated,
			COALESCE(SUM(CASE WHEN status = 'pending' THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN status = 'updated' AND date(last_updated) = date('now', 'localtime') THEN 1 ELSE 0 END), 0) AS today_updates,
			COALESCE(SUM(CASE WHEN has_changes = 1 THEN 1 ELSE 0 END), 0) AS recent_update_count
		FROM contacts`)
	if err != nil {
		return nil, err
	}

	if stats.TotalUsers > 0 {
		responded := stats.Confirmed + stats.Updated
		stats.ConfirmationRate = float64(responded) / float64(stats.TotalUsers) * 100
	}
	return &stats, nil
}

// nullable maps an empty string to NULL.
func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
