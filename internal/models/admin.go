// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Admin is an administrator account for the portal.
type Admin struct { //nolint:govet // fieldalignment: readability over optimization
	ID           int64     `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}

// AdminSecurity holds the optional second factor for an admin account.
type AdminSecurity struct { //nolint:govet // fieldalignment: readability over optimization
	ID               int64          `db:"id" json:"id"`
	AdminID          int64          `db:"admin_id" json:"admin_id"`
	TwoFactorSecret  sql.NullString `db:"two_factor_secret" json:"-"`
	TwoFactorEnabled bool           `db:"two_factor_enabled" json:"two_factor_enabled"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}
