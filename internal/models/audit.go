// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Action names the state-changing event an audit entry records.
type Action string

const (
	ActionCreated   Action = "created"
	ActionConfirmed Action = "confirmed"
	ActionUpdated   Action = "updated"
)

// AuditEntry is one immutable row of the append-only audit ledger.
// Entries are never updated or deleted.
type AuditEntry struct { //nolint:govet // fieldalignment: readability over optimization
	ID        int64          `db:"id" json:"id"`
	ContactID int64          `db:"contact_id" json:"contact_id"`
	Action    Action         `db:"action" json:"action"`
	OldData   sql.NullString `db:"old_data" json:"old_data"` // JSON snapshot before the change
	NewData   sql.NullString `db:"new_data" json:"new_data"` // JSON snapshot after the change
	IPAddress sql.NullString `db:"ip_address" json:"ip_address"`
	UserAgent sql.NullString `db:"user_agent" json:"user_agent"`
	Timestamp time.Time      `db:"timestamp" json:"timestamp"`
}

// RequesterContext captures who triggered a state change, for the audit trail.
type RequesterContext struct {
	IPAddress string
	UserAgent string
}
