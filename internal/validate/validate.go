// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package validate checks contact field submissions. The same rules apply to
// import rows, public verification submissions and admin edits.
package validate

import (
	"net/mail"
	"strings"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// ContactFields returns one message per violated rule, or nil if the fields
// are acceptable.
func ContactFields(f models.ContactFields) []string {
	var problems []string

	required := []struct {
		value string
		label string
	}{
		{f.ClientNumber, "client_number"},
		{f.FirstName, "first_name"},
		{f.LastName, "last_name"},
		{f.PhoneNumber, "phone_number"},
		{f.Address, "address"},
		{f.Email, "email"},
	}
	for _, field := range required {
		if strings.TrimSpace(field.value) == "" {
			problems = append(problems, field.label+" is required")
		}
	}

	if strings.TrimSpace(f.Email) != "" && !ValidEmail(f.Email) {
		problems = append(problems, "invalid email")
	}

	return problems
}

// ValidEmail reports whether the address parses as a bare RFC 5322 address.
func ValidEmail(address string) bool {
	parsed, err := mail.ParseAddress(address)
	if err != nil {
		return false
	}
	// Reject display-name forms like "Jane <jane@example.com>"
	return parsed.Address == strings.TrimSpace(address)
}
