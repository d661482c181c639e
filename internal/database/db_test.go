// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package database_test

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/oliverandrich/verify-portal/internal/database"
)

func TestOpen_Memory(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Ping())

	// migrations ran
	var tables []string
	err = db.Select(&tables, `SELECT name FROM sqlite_master WHERE type = 'table' ORDER BY name`)
	require.NoError(t, err)
	assert.Contains(t, tables, "contacts")
	assert.Contains(t, tables, "admins")
	assert.Contains(t, tables, "admin_security")
	assert.Contains(t, tables, "audit_logs")
}

func TestOpen_CreatesDirectory(t *testing.T) {
	dir := t.TempDir()
	dsn := filepath.Join(dir, "nested", "portal.db")

	db, err := database.Open(dsn)
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	require.NoError(t, db.Ping())
	assert.FileExists(t, filepath.Join(dir, "nested", "portal.db"))
}

func TestOpen_ForeignKeysEnabled(t *testing.T) {
	db, err := database.Open(":memory:")
	require.NoError(t, err)
	defer func() { _ = db.Close() }()

	var enabled int
	require.NoError(t, db.Get(&enabled, "PRAGMA foreign_keys"))
	assert.Equal(t, 1, enabled)
}
