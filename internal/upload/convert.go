package upload

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
)

// maxTextLength caps every free-text value written to the backend.
const maxTextLength = 500

// Spreadsheet serial dates count days from this epoch (the 1900 date system,
// offset by the historical leap-year bug).
var excelEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

var dateLayouts = []string{
	"2006-01-02",
	"02/01/2006",
	"02-01-2006",
	"2/1/2006",
	"02/01/06",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

var clockLayouts = []string{
	"15:04:05",
	"15:04",
	"2006-01-02 15:04:05",
	"02/01/2006 15:04:05",
	time.RFC3339,
}

// ToText sanitizes a free-text cell: markup characters are stripped and the
// result is truncated to the backend length cap. Empty values map to nil.
func ToText(raw string) (any, error) {
	cleaned := sanitizeText(raw)
	if cleaned == "" {
		return nil, nil
	}
	return cleaned, nil
}

func sanitizeText(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(trimmed))
	for _, r := range trimmed {
		switch r {
		case '<', '>', '"', '\'':
			continue
		}
		b.WriteRune(r)
	}
	cleaned := strings.TrimSpace(b.String())

	runes := []rune(cleaned)
	if len(runes) > maxTextLength {
		cleaned = string(runes[:maxTextLength])
	}
	return cleaned
}

// ToISODate converts a cell holding a calendar date into an ISO-8601 date
// string. Accepts ISO dates, day/month/year text, datetimes, and raw
// spreadsheet day serials.
func ToISODate(raw string) (any, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	for _, layout := range dateLayouts {
		if ts, err := time.Parse(layout, value); err == nil {
			return ts.Format("2006-01-02"), nil
		}
	}

	if serial, err := strconv.ParseFloat(value, 64); err == nil && serial >= 1 {
		days := int(serial)
		return excelEpoch.AddDate(0, 0, days).Format("2006-01-02"), nil
	}

	return nil, fmt.Errorf("unrecognized date %q", value)
}

// ToClockTime converts a duration or time-of-day cell into an HH:MM:SS string.
// Accepts HH:MM:SS (canonicalized, so round-trips are stable), datetimes with
// an embedded time-of-day, fraction-of-day values, and plain seconds counts.
func ToClockTime(raw string) (any, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}

	if strings.Contains(value, ":") {
		for _, layout := range clockLayouts {
			if ts, err := time.Parse(layout, value); err == nil {
				return ts.Format("15:04:05"), nil
			}
		}
		return nil, fmt.Errorf("unrecognized time %q", value)
	}

	number, err := strconv.ParseFloat(normalizeDecimal(value), 64)
	if err != nil || number < 0 {
		return nil, fmt.Errorf("unrecognized duration %q", value)
	}
	if number < 1 {
		return FractionOfDayToClock(number), nil
	}
	return SecondsToClock(int64(math.Round(number))), nil
}

// FractionOfDayToClock formats a fraction-of-day duration as HH:MM:SS.
func FractionOfDayToClock(fraction float64) string {
	return SecondsToClock(int64(math.Round(fraction * 86400)))
}

// SecondsToClock formats a seconds count as HH:MM:SS.
func SecondsToClock(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d:%02d", seconds/3600, (seconds%3600)/60, seconds%60)
}

// ToInteger converts a numeric cell into an int64, accepting float
// representations that are losslessly integral.
func ToInteger(raw string) (any, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	if i, err := strconv.ParseInt(value, 10, 64); err == nil {
		return i, nil
	}
	if f, err := strconv.ParseFloat(normalizeDecimal(value), 64); err == nil && math.Mod(f, 1) == 0 {
		return int64(f), nil
	}
	return nil, fmt.Errorf("unable to coerce %q to integer", value)
}

// ToNumber converts a numeric cell into a float64, accepting Brazilian
// decimal-comma formatting ("1.234,56").
func ToNumber(raw string) (any, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(normalizeDecimal(value), 64)
	if err != nil {
		return nil, fmt.Errorf("unable to coerce %q to number", value)
	}
	return f, nil
}

func normalizeDecimal(value string) string {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ",") {
		if strings.Contains(value, ".") {
			// "1.234,56" -> "1234.56"
			value = strings.ReplaceAll(value, ".", "")
		}
		value = strings.ReplaceAll(value, ",", ".")
	}
	return value
}
