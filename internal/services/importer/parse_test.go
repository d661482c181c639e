// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package importer_test

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"codeberg.org/oliverandrich/verify-portal/internal/services/importer"
)

func TestParseFile_CSVWithHeader(t *testing.T) {
	csv := strings.Join([]string{
		"Client Number,First Name,Last Name,Phone Number,Alt Number,Address,Email,Group Template",
		"CN-1,Jane,Doe,+49 30 1,,Musterstraße 1,jane@example.com,default",
		"CN-2,John,Roe,+49 30 2,+49 171 2,Beispielweg 2,john@example.com,",
	}, "\n")

	rows, err := importer.ParseFile("roster.csv", strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "CN-1", rows[0].ClientNumber)
	assert.Equal(t, "Jane", rows[0].FirstName)
	assert.Equal(t, "jane@example.com", rows[0].Email)
	assert.Equal(t, "default", rows[0].GroupTemplate)
	assert.Equal(t, "+49 171 2", rows[1].AltNumber)
}

func TestParseFile_CSVWithoutHeader(t *testing.T) {
	csv := "CN-1,Jane,Doe,+49 30 1,,Musterstraße 1,jane@example.com,default\n"

	rows, err := importer.ParseFile("roster.csv", strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CN-1", rows[0].ClientNumber)
	assert.Equal(t, "Doe", rows[0].LastName)
}

func TestParseFile_CSVSkipsEmptyRows(t *testing.T) {
	csv := strings.Join([]string{
		"client_number,first_name,last_name,phone_number,alt_number,address,email,group_template",
		"CN-1,Jane,Doe,+49 30 1,,Musterstraße 1,jane@example.com,",
		",,,,,,,",
		"",
	}, "\n")

	rows, err := importer.ParseFile("roster.csv", strings.NewReader(csv))

	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestParseFile_CSVShortRows(t *testing.T) {
	// trailing optional columns omitted entirely
	csv := "CN-1,Jane,Doe,+49 30 1\n"

	rows, err := importer.ParseFile("roster.csv", strings.NewReader(csv))

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "+49 30 1", rows[0].PhoneNumber)
	assert.Empty(t, rows[0].Email)
}

func TestParseFile_XLSX(t *testing.T) {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)
	require.NoError(t, f.SetSheetRow(sheet, "A1", &[]any{
		"client_number", "first_name", "last_name", "phone_number",
		"alt_number", "address", "email", "group_template",
	}))
	require.NoError(t, f.SetSheetRow(sheet, "A2", &[]any{
		"CN-1", "Jane", "Doe", "+49 30 1", "", "Musterstraße 1", "jane@example.com", "",
	}))

	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	rows, err := importer.ParseFile("roster.xlsx", &buf)

	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "CN-1", rows[0].ClientNumber)
	assert.Equal(t, "jane@example.com", rows[0].Email)
}

func TestParseFile_UnsupportedFormat(t *testing.T) {
	_, err := importer.ParseFile("roster.pdf", strings.NewReader("nope"))

	assert.ErrorIs(t, err, importer.ErrUnsupportedFormat)
}

func TestParseFile_CorruptXLSX(t *testing.T) {
	_, err := importer.ParseFile("roster.xlsx", strings.NewReader("this is not a zip"))

	assert.Error(t, err)
}
