// Package importer turns uploaded schedule spreadsheets into daily itineraries.
// Everything here is a pure function over bytes and rows: no database, no
// network. The service layer decides what to do with the itineraries.
package importer

import (
	"strings"
	"unicode"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// DetectHeaders infers which columns hold the date, start address, end address,
// and notes by keyword heuristics over the column names. The first matching
// column wins each field. Undetected fields are left empty.
//
// Most keywords match as case-insensitive substrings ("Trip Date", "Comments").
// The short direction keywords do not: "to" and "from" must be whole words and
// "start" and "end" must begin a word, so "Customer Address" or "Vendor
// Location" fall back to the generic address column instead of the end column.
func DetectHeaders(columns []string) domain.HeaderMapping {
	var m domain.HeaderMapping
	for _, col := range columns {
		h := newHeader(col)
		switch {
		case m.Date == "" && h.isDate():
			m.Date = col
		case m.StartAddress == "" && h.isStart():
			m.StartAddress = col
		case m.EndAddress == "" && h.isEnd():
			m.EndAddress = col
		case m.StartAddress == "" && m.EndAddress == "" && h.isGenericAddress():
			// One generic "Address" column is treated as the stop address.
			m.StartAddress = col
		case m.Notes == "" && h.isNotes():
			m.Notes = col
		}
	}
	return m
}

// DetectHeadersFromTable is DetectHeaders over a parsed table's header row.
func DetectHeadersFromTable(t domain.Table) domain.HeaderMapping {
	if len(t.Rows) == 0 {
		return domain.HeaderMapping{}
	}
	return DetectHeaders(t.Columns)
}

type header struct {
	lower  string
	tokens []string
}

func newHeader(col string) header {
	lower := strings.ToLower(strings.TrimSpace(col))
	return header{
		lower: lower,
		tokens: strings.FieldsFunc(lower, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}),
	}
}

func (h header) contains(words ...string) bool {
	for _, w := range words {
		if strings.Contains(h.lower, w) {
			return true
		}
	}
	return false
}

func (h header) hasWord(words ...string) bool {
	for _, t := range h.tokens {
		for _, w := range words {
			if t == w {
				return true
			}
		}
	}
	return false
}

func (h header) hasWordPrefix(prefix string) bool {
	for _, t := range h.tokens {
		if strings.HasPrefix(t, prefix) {
			return true
		}
	}
	return false
}

func (h header) equals(words ...string) bool {
	for _, w := range words {
		if h.lower == w {
			return true
		}
	}
	return false
}

func (h header) isDate() bool {
	return h.contains("date", "day")
}

func (h header) isPlace() bool {
	return h.contains("address", "location")
}

func (h header) isStart() bool {
	return (h.hasWordPrefix("start") && (h.isPlace() || h.hasWord("from"))) ||
		h.contains("origin", "departure") ||
		(h.hasWord("from") && h.isPlace()) ||
		h.equals("start", "from")
}

func (h header) isEnd() bool {
	return (h.hasWordPrefix("end") && (h.isPlace() || h.hasWord("to"))) ||
		h.contains("destination", "arrival") ||
		(h.hasWord("to") && h.isPlace()) ||
		h.equals("end", "to", "destination")
}

func (h header) isGenericAddress() bool {
	return h.isPlace()
}

func (h header) isNotes() bool {
	return h.contains("note", "comment", "description")
}
