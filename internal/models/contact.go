// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models

import (
	"database/sql"
	"time"
)

// Status describes where a contact is in the verification lifecycle.
type Status string

const (
	// StatusPending means the contact has not responded to the current
	// verification request yet.
	StatusPending Status = "pending"
	// StatusConfirmed means the contact asserted their data is correct.
	StatusConfirmed Status = "confirmed"
	// StatusUpdated means the contact submitted changed data.
	StatusUpdated Status = "updated"
)

// Valid reports whether s is one of the known status values.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusUpdated:
		return true
	}
	return false
}

// Contact is a client contact record subject to verification.
type Contact struct { //nolint:govet // fieldalignment: readability over optimization
	ID            int64          `db:"id" json:"id"`
	ClientNumber  string         `db:"client_number" json:"client_number"`
	FirstName     string         `db:"first_name" json:"first_name"`
	LastName      string         `db:"last_name" json:"last_name"`
	PhoneNumber   string         `db:"phone_number" json:"phone_number"`
	AltNumber     sql.NullString `db:"alt_number" json:"alt_number"`
	Address       string         `db:"address" json:"address"`
	Email         string         `db:"email" json:"email"`
	Status        Status         `db:"status" json:"status"`
	TokenHash     sql.NullString `db:"token_hash" json:"-"` // SHA256 hash of the active token
	TokenExpiry   sql.NullTime   `db:"token_expiry" json:"token_expiry"`
	HasChanges    bool           `db:"has_changes" json:"has_changes"`
	GroupTemplate sql.NullString `db:"group_template" json:"group_template"`
	CreatedAt     time.Time      `db:"created_at" json:"created_at"`
	LastUpdated   time.Time      `db:"last_updated" json:"last_updated"`
}

// ContactFields is the editable subset of a contact record. It is what an
// import row parses into, what the public verification form submits, and what
// an admin edit carries.
type ContactFields struct {
	ClientNumber  string `json:"client_number"`
	FirstName     string `json:"first_name"`
	LastName      string `json:"last_name"`
	PhoneNumber   string `json:"phone_number"`
	AltNumber     string `json:"alt_number"`
	Address       string `json:"address"`
	Email         string `json:"email"`
	GroupTemplate string `json:"group_template"`
}

// Fields returns the editable subset of the contact.
func (c *Contact) Fields() ContactFields {
	return ContactFields{
		ClientNumber:  c.ClientNumber,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		PhoneNumber:   c.PhoneNumber,
		AltNumber:     c.AltNumber.String,
		Address:       c.Address,
		Email:         c.Email,
		GroupTemplate: c.GroupTemplate.String,
	}
}

// ApplyFields overwrites the editable fields of the contact.
func (c *Contact) ApplyFields(f ContactFields) {
	c.ClientNumber = f.ClientNumber
	c.FirstName = f.FirstName
	c.LastName = f.LastName
	c.PhoneNumber = f.PhoneNumber
	c.AltNumber = sql.NullString{String: f.AltNumber, Valid: f.AltNumber != ""}
	c.Address = f.Address
	c.Email = f.Email
	c.GroupTemplate = sql.NullString{String: f.GroupTemplate, Valid: f.GroupTemplate != ""}
}
