package extract

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/xhad/tutor/internal/models"
)

const cellDelimiter = " | "

// spreadsheetExtractor handles the CSV variant directly and workbook
// variants through excelize.
type spreadsheetExtractor struct{}

func (e *spreadsheetExtractor) Extract(_ context.Context, content []byte, filename string) (string, models.Metadata, error) {
	if strings.ToLower(filepath.Ext(filename)) == ".csv" {
		return e.extractCSV(content)
	}
	return e.extractWorkbook(content, filename)
}

func (e *spreadsheetExtractor) extractCSV(content []byte) (string, models.Metadata, error) {
	decoded, encoding := decodeText(content)

	reader := csv.NewReader(strings.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	rows, err := reader.ReadAll()
	if err != nil {
		return "", nil, fmt.Errorf("parse csv: %w", err)
	}

	var sb strings.Builder
	rowCount := 0
	for _, row := range rows {
		if isEmptyRow(row) {
			continue
		}
		sb.WriteString(strings.Join(row, cellDelimiter))
		sb.WriteString("\n")
		rowCount++
	}

	meta := models.Metadata{
		"row_count":      rowCount,
		"encoding":       encoding,
		"format_details": "CSV File",
	}
	return strings.TrimSpace(sb.String()), meta, nil
}

func (e *spreadsheetExtractor) extractWorkbook(content []byte, filename string) (string, models.Metadata, error) {
	f, err := excelize.OpenReader(bytes.NewReader(content))
	if err != nil {
		return "", nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	var sb strings.Builder
	sheets := f.GetSheetList()
	for _, sheet := range sheets {
		fmt.Fprintf(&sb, "\n--- Sheet: %s ---\n", sheet)
		rows, err := f.GetRows(sheet)
		if err != nil {
			return "", nil, fmt.Errorf("read sheet %q: %w", sheet, err)
		}
		for _, row := range rows {
			cells := make([]string, 0, len(row))
			for _, cell := range row {
				if strings.TrimSpace(cell) != "" {
					cells = append(cells, cell)
				}
			}
			if len(cells) > 0 {
				sb.WriteString(strings.Join(cells, cellDelimiter))
				sb.WriteString("\n")
			}
		}
	}

	meta := models.Metadata{
		"sheet_count":    len(sheets),
		"format_details": fmt.Sprintf("Excel Spreadsheet (%s)", strings.ToLower(filepath.Ext(filename))),
	}
	return strings.TrimSpace(sb.String()), meta, nil
}

func isEmptyRow(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
