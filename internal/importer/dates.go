package importer

import (
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// maxSerialDate is 9999-12-31 in spreadsheet serial form.
const maxSerialDate = 2958465

// dateLayouts are tried in order; US month-first forms come before
// day-first forms so "03/04/2024" is March 4th.
var dateLayouts = []string{
	"1/2/2006",
	"01/02/2006",
	"1/2/06",
	"1-2-2006",
	"01-02-06",
	"1/2/2006 15:04",
	"1/2/2006 15:04:05",
	"1/2/2006 3:04:05 PM",
	"1/2/2006 3:04 PM",
	"2006-01-02",
	"2006/01/02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"Jan 2, 2006",
	"January 2, 2006",
	"Mon, Jan 2, 2006",
	"Monday, January 2, 2006",
	"2 Jan 2006",
	"02 Jan 2006",
	"2 January 2006",
	"02-01-2006",
}

// ParseDate resolves a cell into a calendar date at midnight UTC.
// Numeric cells, and text cells that are nothing but digits, are spreadsheet
// serial dates. Everything else goes through dateLayouts.
func ParseDate(c domain.CellValue) (time.Time, error) {
	switch c.Kind {
	case domain.CellNumber:
		return serialToDate(c.Number)
	case domain.CellText:
		s := strings.TrimSpace(c.Text)
		if s == "" {
			return time.Time{}, fmt.Errorf("empty date")
		}
		if isDigits(s) {
			n, err := strconv.ParseFloat(s, 64)
			if err == nil && n >= 1 && n <= maxSerialDate {
				return serialToDate(n)
			}
		}
		for _, layout := range dateLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				return truncateDate(t), nil
			}
		}
		return time.Time{}, fmt.Errorf("unable to parse date: %q", s)
	default:
		return time.Time{}, fmt.Errorf("empty date")
	}
}

// serialToDate decodes a spreadsheet serial date as day (serial-1) of January
// 1900. Stored entries were produced under this convention, which lands on the
// same calendar date spreadsheets display for modern serials (44927 is
// 2023-01-01). excelize.ExcelDateToTime differs below serial 61, where it
// reproduces the 1900 leap-year bug.
func serialToDate(serial float64) (time.Time, error) {
	if math.IsNaN(serial) || serial < 1 || serial > maxSerialDate {
		return time.Time{}, fmt.Errorf("serial date out of range: %v", serial)
	}
	days := int(math.Floor(serial))
	return time.Date(1900, time.January, days-1, 0, 0, 0, 0, time.UTC), nil
}

func truncateDate(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func isDigits(s string) bool {
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return s != ""
}
