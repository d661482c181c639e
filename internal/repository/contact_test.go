// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
	"codeberg.org/oliverandrich/verify-portal/internal/repository"
	"codeberg.org/oliverandrich/verify-portal/internal/testutil"
)

func TestCreateContact(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	fields := testutil.ContactFieldsFixture("100")
	contact, err := repo.CreateContact(ctx, fields)

	require.NoError(t, err)
	assert.NotZero(t, contact.ID)
	assert.Equal(t, fields.ClientNumber, contact.ClientNumber)
	assert.Equal(t, fields.Email, contact.Email)
	assert.Equal(t, models.StatusPending, contact.Status)
	assert.False(t, contact.HasChanges)
	assert.False(t, contact.TokenHash.Valid)
}

func TestGetContactByClientNumber(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	created := testutil.NewTestContact(t, repo, "100")

	contact, err := repo.GetContactByClientNumber(ctx, created.ClientNumber)

	require.NoError(t, err)
	assert.Equal(t, created.ID, contact.ID)
}

func TestGetContactByClientNumber_NotFound(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	_, err := repo.GetContactByClientNumber(context.Background(), "nope")

	assert.ErrorIs(t, err, repository.ErrNotFound)
}

func TestReplaceContactForImport_ResetsStatus(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-1", time.Now().Add(time.Hour)))
	_, err := repo.ConfirmContactByToken(ctx, contact.ID, "hash-1", models.RequesterContext{})
	require.NoError(t, err)

	fields := contact.Fields()
	fields.PhoneNumber = "+49 30 999"
	require.NoError(t, repo.ReplaceContactForImport(ctx, contact.ID, fields))

	reloaded, err := repo.GetContactByID(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, reloaded.Status)
	assert.Equal(t, "+49 30 999", reloaded.PhoneNumber)
	assert.False(t, reloaded.HasChanges)
}

func TestSetContactToken_SupersedesPrevious(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-old", time.Now().Add(time.Hour)))
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-new", time.Now().Add(time.Hour)))

	_, err := repo.GetContactByTokenHash(ctx, "hash-old")
	assert.ErrorIs(t, err, repository.ErrNotFound)

	found, err := repo.GetContactByTokenHash(ctx, "hash-new")
	require.NoError(t, err)
	assert.Equal(t, contact.ID, found.ID)
}

func TestConfirmContactByToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-1", time.Now().Add(time.Hour)))

	confirmed, err := repo.ConfirmContactByToken(ctx, contact.ID, "hash-1",
		models.RequesterContext{IPAddress: "192.0.2.1", UserAgent: "test"})

	require.NoError(t, err)
	assert.Equal(t, models.StatusConfirmed, confirmed.Status)
	assert.False(t, confirmed.TokenHash.Valid)
	assert.False(t, confirmed.TokenExpiry.Valid)

	entries, err := repo.ListAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionConfirmed, entries[0].Action)
	assert.Equal(t, "192.0.2.1", entries[0].IPAddress.String)
}

func TestConfirmContactByToken_SecondClaimLoses(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-1", time.Now().Add(time.Hour)))

	_, err := repo.ConfirmContactByToken(ctx, contact.ID, "hash-1", models.RequesterContext{})
	require.NoError(t, err)

	// The losing submission of a double-submit race: same token, already cleared
	_, err = repo.ConfirmContactByToken(ctx, contact.ID, "hash-1", models.RequesterContext{})
	assert.ErrorIs(t, err, repository.ErrTokenConflict)

	// Exactly one audit entry, no double-counting
	count, err := repo.CountAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(1), count)
}

func TestUpdateContactByToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-1", time.Now().Add(time.Hour)))

	fields := contact.Fields()
	oldPhone := fields.PhoneNumber
	fields.PhoneNumber = "+49 30 555"

	updated, err := repo.UpdateContactByToken(ctx, contact.ID, "hash-1", fields, models.RequesterContext{})

	require.NoError(t, err)
	assert.Equal(t, models.StatusUpdated, updated.Status)
	assert.True(t, updated.HasChanges)
	assert.Equal(t, "+49 30 555", updated.PhoneNumber)
	assert.False(t, updated.TokenHash.Valid)

	entries, err := repo.ListAuditEntries(ctx, contact.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.ActionUpdated, entries[0].Action)
	assert.Contains(t, entries[0].OldData.String, oldPhone)
	assert.Contains(t, entries[0].NewData.String, "+49 30 555")
}

func TestUpdateContactByToken_ConsumedToken(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	contact := testutil.NewTestContact(t, repo, "100")
	require.NoError(t, repo.SetContactToken(ctx, contact.ID, "hash-1", time.Now().Add(time.Hour)))
	_, err := repo.ConfirmContactByToken(ctx, contact.ID, "hash-1", models.RequesterContext{})
	require.NoError(t, err)

	_, err = repo.UpdateContactByToken(ctx, contact.ID, "hash-1", contact.Fields(), models.RequesterContext{})
	assert.ErrorIs(t, err, repository.ErrTokenConflict)
}

func TestListContacts_SearchAndStatus(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.NewTestContact(t, repo, "100")
	testutil.NewTestContact(t, repo, "200")

	require.NoError(t, repo.SetContactToken(ctx, first.ID, "hash-1", time.Now().Add(time.Hour)))
	_, err := repo.ConfirmContactByToken(ctx, first.ID, "hash-1", models.RequesterContext{})
	require.NoError(t, err)

	contacts, total, err := repo.ListContacts(ctx, repository.ContactListOptions{Search: "CN-100"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, contacts, 1)
	assert.Equal(t, first.ID, contacts[0].ID)

	contacts, total, err = repo.ListContacts(ctx, repository.ContactListOptions{Status: models.StatusConfirmed})
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	require.Len(t, contacts, 1)
	assert.Equal(t, models.StatusConfirmed, contacts[0].Status)
}

func TestListContacts_Pagination(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	for _, suffix := range []string{"1", "2", "3", "4", "5"} {
		testutil.NewTestContact(t, repo, suffix)
	}

	contacts, total, err := repo.ListContacts(ctx, repository.ContactListOptions{Page: 2, Limit: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), total)
	assert.Len(t, contacts, 2)
}

func TestGetContactStats(t *testing.T) {
	_, repo := testutil.NewTestDB(t)
	ctx := context.Background()

	first := testutil.NewTestContact(t, repo, "100")
	second := testutil.NewTestContact(t, repo, "200")
	testutil.NewTestContact(t, repo, "300")

	require.NoError(t, repo.SetContactToken(ctx, first.ID, "hash-1", time.Now().Add(time.Hour)))
	_, err := repo.ConfirmContactByToken(ctx, first.ID, "hash-1", models.RequesterContext{})
	require.NoError(t, err)

	require.NoError(t, repo.SetContactToken(ctx, second.ID, "hash-2", time.Now().Add(time.Hour)))
	_, err = repo.UpdateContactByToken(ctx, second.ID, "hash-2", second.Fields(), models.RequesterContext{})
	require.NoError(t, err)

	stats, err := repo.GetContactStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stats.TotalUsers)
	assert.Equal(t, int64(1), stats.Confirmed)
	assert.Equal(t, int64(1), stats.Updated)
	assert.Equal(t, int64(1), stats.Pending)
	assert.Equal(t, int64(1), stats.RecentUpdateCount)
	assert.InDelta(t, 66.6, stats.ConfirmationRate, 1.0)
}

func TestGetContactStats_EmptyRoster(t *testing.T) {
	_, repo := testutil.NewTestDB(t)

	stats, err := repo.GetContactStats(context.Background())

	require.NoError(t, err)
	assert.Equal(t, int64(0), stats.TotalUsers)
	assert.Equal(t, float64(0), stats.ConfirmationRate)
}
