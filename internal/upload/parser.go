package upload

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"
)

// sheetData holds the header row and data rows of the first worksheet.
type sheetData struct {
	headers []string
	rows    [][]string
}

// parseSheet opens a spreadsheet payload and extracts the first worksheet.
// The first non-empty row is taken as the header row.
func parseSheet(payload []byte) (sheetData, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return sheetData{}, fmt.Errorf("failed to open spreadsheet: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return sheetData{}, errors.New("spreadsheet has no sheets")
	}

	records, err := f.GetRows(sheets[0])
	if err != nil {
		return sheetData{}, fmt.Errorf("failed to read rows: %w", err)
	}

	var headers []string
	var rows [][]string
	for _, row := range records {
		if rowIsBlank(row) {
			continue
		}
		if headers == nil {
			headers = trimRow(row)
			continue
		}
		rows = append(rows, padRow(row, len(headers)))
	}

	if headers == nil {
		return sheetData{}, errors.New("header row could not be detected")
	}

	return sheetData{headers: headers, rows: rows}, nil
}

func rowIsBlank(row []string) bool {
	for _, cell := range row {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}

func trimRow(row []string) []string {
	trimmed := make([]string, len(row))
	for i, cell := range row {
		trimmed[i] = strings.TrimSpace(cell)
	}
	return trimmed
}

func padRow(row []string, length int) []string {
	if len(row) >= length {
		return row[:length]
	}
	padded := make([]string, length)
	copy(padded, row)
	return padded
}
