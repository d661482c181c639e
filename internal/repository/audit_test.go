// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/testutil"
)

func TestAppendAuditSnapshot(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")

	before := contact.Fields()
	after := before
	after.Address = "Neue Straße 1"

	err := repo.AppendAuditSnapshot(ctx, contact.ID, models.ActionUpdated, &before, &after,
		models.RequesterContext{IPAddress: "198.51.100.7", UserAgent: "curl/8"})
	require.NoError(t, err)

	entries, err := repo.ListAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)

	entry := entries[0]
	assert.Equal(t, contact.ID, entry.ContactID)
	assert.Equal(t, models.ActionUpdated, entry.Action)
	assert.Contains(t, entry.OldData.String, before.Address)
	assert.Contains(t, entry.NewData.String, "Neue Straße 1")
	assert.Equal(t, "198.51.100.7", entry.IPAddress.String)
	assert.Equal(t, "curl/8", entry.UserAgent.String)
	assert.False(t, entry.Timestamp.IsZero())
}

func TestAppendAuditSnapshot_CreatedHasNoOldData(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	fields := contact.Fields()

	err := repo.AppendAuditSnapshot(ctx, contact.ID, models.ActionCreated, nil, &fields, models.RequesterContext{})
	require.NoError(t, err)

	entries, err := repo.ListAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.False(t, entries[0].OldData.Valid)
	assert.True(t, entries[0].NewData.Valid)
}

func TestListAuditEntries_NewestFirst(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	fields := contact.Fields()

	require.NoError(t, repo.AppendAuditSnapshot(ctx, contact.ID, models.ActionCreated, nil, &fields, models.RequesterContext{}))
	require.NoError(t, repo.AppendAuditSnapshot(ctx, contact.ID, models.ActionConfirmed, &fields, &fields, models.RequesterContext{}))

	entries, err := repo.ListAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	// ordered by id descending when timestamps collide
	assert.Equal(t, models.ActionConfirmed, entries[0].Action)

	count, err := repo.CountAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), count)
}
