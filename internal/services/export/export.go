// Copyright 2025 Oliver Andrich
// Licensed under the EUPL-1.2

// Package export renders the contact roster as a downloadable CSV or XLSX
// file.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"codeberg.org/oliverandrich/verify-portal/internal/models"
)

// Header is the exported column layout. The import parser accepts the same
// header, so an exported file can be re-imported unchanged.
var Header = []string{
	"Client Number",
	"First Name",
	"Last Name",
	"Phone Number",
	"Alt Number",
	"Address",
	"Email",
	"Group Template",
	"Status",
	"Last Updated",
}

const sheetName = "Clients"

// Filename returns the content-disposition filename for the given format.
func Filename(format string) string {
	return fmt.Sprintf("clients-export-%s.%s", time.Now().Format("2006-01-02"), format)
}

// CSV renders the roster as CSV with a header row.
func CSV(contacts []models.Contact) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(Header); err != nil {
		return nil, err
	}
	for _, c := range contacts {
		if err := w.Write(contactRow(c)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// XLSX renders the roster as an XLSX workbook with a styled header row.
func XLSX(contacts []models.Contact) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating sheet: %w", err)
	}
	if err := f.DeleteSheet("Sheet1"); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("removing default sheet: %w", err)
	}
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}

	for col, header := range Header {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("converting coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("writing header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("styling header cell %s: %w", cell, err)
		}
	}

	for rowIdx, c := range contacts {
		for col, value := range contactRow(c) {
			cell, err := excelize.CoordinatesToCellName(col+1, rowIdx+2)
			if err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("converting coordinates: %w", err)
			}
			if err := f.SetCellValue(sheetName, cell, value); err != nil {
				_ = f.Close()
				return nil, fmt.Errorf("writing cell %s: %w", cell, err)
			}
		}
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("writing workbook: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func contactRow(c models.Contact) []string {
	return []string{
		c.ClientNumber,
		c.FirstName,
		c.LastName,
		c.PhoneNumber,
		c.AltNumber.String,
		c.Address,
		c.Email,
		c.GroupTemplate.String,
		string(c.Status),
		c.LastUpdated.Format(time.RFC3339),
	}
}
