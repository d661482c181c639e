// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package models_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

func TestStatusValid(t *testing.T) {
	assert.True(t, models.StatusPending.Valid())
	assert.True(t, models.StatusConfirmed.Valid())
	assert.True(t, models.StatusUpdated.Valid())
	assert.False(t, models.Status("archived").Valid())
	assert.False(t, models.Status("").Valid())
}

func TestContactFieldsRoundTrip(t *testing.T) {
	contact := &models.Contact{}
	contact.ApplyFields(models.ContactFields{
		ClientNumber:  "CN-1",
		FirstName:     "Jane",
		LastName:      "Doe",
		PhoneNumber:   "+49 30 1",
		AltNumber:     "+49 171 1",
		Address:       "Musterstraße 1",
		Email:         "jane@example.com",
		GroupTemplate: "default",
	})

	fields := contact.Fields()
	assert.Equal(t, "CN-1", fields.ClientNumber)
	assert.Equal(t, "+49 171 1", fields.AltNumber)
	assert.Equal(t, "default", fields.GroupTemplate)
}

func TestApplyFields_EmptyOptionalsBecomeNull(t *testing.T) {
	contact := &models.Contact{}
	contact.ApplyFields(models.ContactFields{ClientNumber: "CN-1"})

	assert.False(t, contact.AltNumber.Valid)
	assert.False(t, contact.GroupTemplate.Valid)
}

func TestContactJSONHidesTokenHash(t *testing.T) {
	contact := models.Contact{ClientNumber: "CN-1"}
	contact.TokenHash.String = "secret-hash"
	contact.TokenHash.Valid = true

	data, err := json.Marshal(contact)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "secret-hash")
	assert.NotContains(t, string(data), "token_hash")
}
