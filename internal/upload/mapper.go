package upload

import (
	"log"
	"strings"
)

// Record maps backend column names to normalized scalars. Values are string,
// int64, float64, or nil.
type Record map[string]any

// mapRows transforms raw sheet rows into sanitized records using the kind's
// column map. Rows whose every mapped field is empty are dropped.
func mapRows(cfg Config, sheet sheetData) []Record {
	sourceIndex := make(map[string]int, len(sheet.headers))
	for idx, header := range sheet.headers {
		key := normalizeHeader(header)
		if key == "" {
			continue
		}
		if _, ok := sourceIndex[key]; !ok {
			sourceIndex[key] = idx
		}
	}

	records := make([]Record, 0, len(sheet.rows))
	for rowIdx, row := range sheet.rows {
		record := make(Record, len(cfg.Columns))
		empty := true

		for _, mapping := range cfg.Columns {
			colIdx, found := sourceIndex[normalizeHeader(mapping.Source)]
			if !found || colIdx >= len(row) {
				record[mapping.Target] = nil
				continue
			}

			raw := row[colIdx]
			value, err := mapping.Transform(raw)
			if err != nil {
				// Fall back to a truncated, stripped string rather than
				// dropping the row.
				if cleaned := sanitizeText(raw); cleaned != "" {
					log.Printf("[UPLOAD] row %d column %s: %v, keeping sanitized text", rowIdx+2, mapping.Target, err)
					record[mapping.Target] = cleaned
					empty = false
				} else {
					record[mapping.Target] = nil
				}
				continue
			}

			record[mapping.Target] = value
			if value != nil {
				empty = false
			}
		}

		if empty {
			continue
		}
		records = append(records, record)
	}

	return records
}

func normalizeHeader(header string) string {
	return strings.ToLower(strings.TrimSpace(header))
}
