package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// CellKind tags the variant held by a CellValue.
type CellKind int

const (
	CellEmpty CellKind = iota
	CellText
	CellNumber
)

// CellValue is a single spreadsheet cell: empty, text, or a number.
// Spreadsheet dates usually arrive as numbers (serial dates) from XLSX and as
// text from CSV.
type CellValue struct {
	Kind   CellKind
	Text   string
	Number float64
}

// Text returns a text cell.
func Text(s string) CellValue {
	if s == "" {
		return CellValue{}
	}
	return CellValue{Kind: CellText, Text: s}
}

// Number returns a numeric cell.
func Number(f float64) CellValue {
	return CellValue{Kind: CellNumber, Number: f}
}

// IsEmpty reports whether the cell holds no value or only whitespace.
func (c CellValue) IsEmpty() bool {
	return c.Kind == CellEmpty || (c.Kind == CellText && strings.TrimSpace(c.Text) == "")
}

// String renders the cell for display. Numbers use the shortest exact form.
func (c CellValue) String() string {
	switch c.Kind {
	case CellText:
		return c.Text
	case CellNumber:
		return strconv.FormatFloat(c.Number, 'f', -1, 64)
	default:
		return ""
	}
}

// MarshalJSON encodes the cell as a JSON string, number, or null.
func (c CellValue) MarshalJSON() ([]byte, error) {
	switch c.Kind {
	case CellText:
		return json.Marshal(c.Text)
	case CellNumber:
		return json.Marshal(c.Number)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON string, number, boolean, or null.
func (c *CellValue) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*c = CellValue{}
		return nil
	}
	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*c = Text(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(data, &b); err != nil {
			return err
		}
		*c = Text(strconv.FormatBool(b))
	default:
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return fmt.Errorf("cell value: %w", err)
		}
		*c = Number(f)
	}
	return nil
}

// RawRow maps a spreadsheet column name to its cell value.
type RawRow map[string]CellValue

// Get returns the cell under column, or an empty cell when column is "" or absent.
func (r RawRow) Get(column string) CellValue {
	if column == "" {
		return CellValue{}
	}
	return r[column]
}

// Table is the output of the tabular parser: the header row in file order
// plus one RawRow per data line.
type Table struct {
	Columns []string
	Rows    []RawRow
}

// HeaderMapping names the columns holding each semantic field.
// Empty fields were not detected and must be treated as unavailable.
type HeaderMapping struct {
	Date         string `json:"date,omitempty"`
	StartAddress string `json:"start_address,omitempty"`
	EndAddress   string `json:"end_address,omitempty"`
	Notes        string `json:"notes,omitempty"`
}
