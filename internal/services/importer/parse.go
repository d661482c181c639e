// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

package importer

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// ErrUnsupportedFormat is returned for uploads that are neither CSV nor XLSX.
var ErrUnsupportedFormat = errors.New("unsupported file format, expected .csv or .xlsx")

// columnOrder is the positional layout for files without a header row. It
// matches the column order of the roster export.
var columnOrder = []string{
	"client_number",
	"first_name",
	"last_name",
	"phone_number",
	"alt_number",
	"address",
	"email",
	"group_template",
}

// ParseFile reads an uploaded spreadsheet into candidate contact fields.
// The file format is chosen by extension. A file that cannot be parsed at
// all fails here, before any database write.
func ParseFile(filename string, r io.Reader) ([]models.ContactFields, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".csv":
		return parseCSV(r)
	case ".xlsx":
		return parseXLSX(r)
	default:
		return nil, ErrUnsupportedFormat
	}
}

func parseCSV(r io.Reader) ([]models.ContactFields, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1 // rows may omit trailing optional columns
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing CSV: %w", err)
	}

	return rowsToFields(records), nil
}

func parseXLSX(r io.Reader) ([]models.ContactFields, error) {
	f, err := excelize.OpenReader(r)
	if err != nil {
		return nil, fmt.Errorf("parsing XLSX: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("parsing XLSX: workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("reading XLSX rows: %w", err)
	}

	return rowsToFields(rows), nil
}

// rowsToFields maps raw rows to contact fields. When the first row looks like
// a header it defines the column mapping by name; otherwise all rows are data
// and columns map positionally.
func rowsToFields(rows [][]string) []models.ContactFields {
	if len(rows) == 0 {
		return nil
	}

	index := positionalIndex()
	data := rows
	if headerIndex, ok := headerColumnIndex(rows[0]); ok {
		index = headerIndex
		data = rows[1:]
	}

	fields := make([]models.ContactFields, 0, len(data))
	for _, row := range data {
		if emptyRow(row) {
			continue
		}
		fields = append(fields, rowToFields(row, index))
	}
	return fields
}

func positionalIndex() map[string]int {
	index := make(map[string]int, len(columnOrder))
	for i, name := range columnOrder {
		index[name] = i
	}
	return index
}

// headerColumnIndex builds a column map from a header row. A row counts as a
// header if it names the client number column.
func headerColumnIndex(row []string) (map[string]int, bool) {
	index := make(map[string]int)
	for i, cell := range row {
		index[normalizeHeader(cell)] = i
	}
	if _, ok := index["client_number"]; !ok {
		return nil, false
	}
	return index, true
}

func normalizeHeader(cell string) string {
	cell = strings.ToLower(strings.TrimSpace(cell))
	cell = strings.ReplaceAll(cell, " ", "_")
	cell = strings.ReplaceAll(cell, "-", "_")
	return cell
}

func rowToFields(row []string, index map[string]int) models.ContactFields {
	cell := func(name string) string {
		i, ok := index[name]
		if !ok || i >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[i])
	}

	return models.ContactFields{
		ClientNumber:  cell("client_number"),
		FirstName:     cell("first_name"),
		LastName:      cell("last_name"),
		PhoneNumber:   cell("phone_number"),
		AltNumber:     cell("alt_number"),
		Address:       cell("address"),
		Email:         cell("email"),
		GroupTemplate: cell("group_template"),
	}
}

func emptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
