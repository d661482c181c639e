// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository

import (
	"context"
	"time"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// GetAdminByID retrieves an admin account by ID.
func (r *Repository) GetAdminByID(ctx context.Context, id int64) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE id = ?`, id); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// GetAdminByEmail retrieves an admin account by email address.
func (r *Repository) GetAdminByEmail(ctx context.Context, email string) (*models.Admin, error) {
	var admin models.Admin
	if err := r.db.GetContext(ctx, &admin, `SELECT * FROM admins WHERE email = ?`, email); err != nil {
		return nil, wrapError(err)
	}
	return &admin, nil
}

// CreateAdmin creates a new admin account and returns it.
func (r *Repository) CreateAdmin(ctx context.Context, email, passwordHash string) (*models.Admin, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO admins (email, password_hash, created_at) VALUES (?, ?, ?)`,
		email, passwordHash, time.Now())
	if err != nil {
		return nil, err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, err
	}
	return r.GetAdminByID(ctx, id)
}

// CountAdmins returns the total number of admin accounts.
func (r *Repository) CountAdmins(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM admins`); err != nil {
		return 0, err
	}
	return count, nil
}

// GetAdminSecurity retrieves the second-factor settings for an admin.
// Returns ErrNotFound when the admin never set up a second factor.
func (r *Repository) GetAdminSecurity(ctx context.Context, adminID int64) (*models.AdminSecurity, error) {
	var sec models.AdminSecurity
	err := r.db.GetContext(ctx, &sec, `SELECT * FROM admin_security WHERE admin_id = ?`, adminID)
	if err != nil {
		return nil, wrapError(err)
	}
	return &sec, nil
}

// UpsertAdminSecurity stores or replaces the second-factor settings for an admin.
func (r *Repository) UpsertAdminSecurity(ctx context.Context, adminID int64, secret string, enabled bool) error {
	now := time.Now()
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO admin_security (admin_id, two_factor_secret, two_factor_enabled, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (admin_id) DO UPDATE
		 SET two_factor_secret = excluded.two_factor_secret,
		     two_factor_enabled = excluded.two_factor_enabled,
		     updated_at = excluded.updated_at`,
		adminID, nullable(secret), enabled, now, now)
	return err
}
