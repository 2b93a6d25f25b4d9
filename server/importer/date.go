package importer

import (
	"strconv"
	"strings"
	"time"
)

// Spreadsheet day serials count from the 1900 date system epoch.
var serialEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)

// dateLayouts are tried in order. Day-first layouts outrank the month-first
// fallback because the source files are Argentine.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02T15:04:05",
	"2006/01/02",
	"02/01/2006",
	"2/1/2006",
	"02-01-2006",
	"02.01.2006",
	"01-02-06", // excelize's default display format for date cells
}

// NormalizeDate parses a raw date cell into YYYY-MM-DD. A blank cell is a
// legitimate "no value" and reports ("", true); an unparseable cell reports
// ok=false, and the caller decides whether the field was mandatory.
func NormalizeDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", true
	}

	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, trimmed); err == nil {
			return t.Format("2006-01-02"), true
		}
	}

	// Not a date string; a bare number is a day serial.
	if serial, err := strconv.ParseFloat(trimmed, 64); err == nil && serial >= 0 && serial < 300000 {
		return serialEpoch.AddDate(0, 0, int(serial)).Format("2006-01-02"), true
	}

	return "", false
}
