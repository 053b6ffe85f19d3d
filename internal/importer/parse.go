package importer

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// Parse converts an uploaded file into a Table, dispatching on the file
// extension: .csv is comma separated, .txt is tab separated when its header
// line contains a tab and comma separated otherwise, .xlsx/.xls read the
// first sheet. The first line is always the header row.
func Parse(data []byte, fileName string) (domain.Table, error) {
	switch strings.ToLower(filepath.Ext(fileName)) {
	case ".csv":
		return parseDelimited(data, ',')
	case ".txt":
		return parseDelimited(data, sniffDelimiter(data))
	case ".xlsx", ".xls":
		return parseWorkbook(data)
	default:
		return domain.Table{}, fmt.Errorf("importer.Parse: %w: %q", domain.ErrUnsupportedFormat, filepath.Ext(fileName))
	}
}

func sniffDelimiter(data []byte) rune {
	firstLine := data
	if i := bytes.IndexByte(data, '\n'); i >= 0 {
		firstLine = data[:i]
	}
	if bytes.IndexByte(firstLine, '\t') >= 0 {
		return '\t'
	}
	return ','
}

func parseDelimited(data []byte, delim rune) (domain.Table, error) {
	r := csv.NewReader(bytes.NewReader(bytes.TrimPrefix(data, []byte("\ufeff"))))
	r.Comma = delim
	r.FieldsPerRecord = -1
	r.LazyQuotes = true
	r.TrimLeadingSpace = true

	var records [][]string
	for {
		rec, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return domain.Table{}, fmt.Errorf("importer.Parse: %w: %v", domain.ErrValidation, err)
		}
		records = append(records, rec)
	}
	return buildTable(records, func(s string) domain.CellValue { return domain.Text(s) }), nil
}

func parseWorkbook(data []byte) (domain.Table, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		// Legacy BIFF .xls and corrupt archives land here.
		return domain.Table{}, fmt.Errorf("importer.Parse: %w: cannot open workbook: %v", domain.ErrUnsupportedFormat, err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return domain.Table{}, fmt.Errorf("importer.Parse: %w: workbook has no sheets", domain.ErrValidation)
	}

	// Raw values keep date cells as serial numbers instead of display strings.
	rows, err := f.GetRows(sheets[0], excelize.Options{RawCellValue: true})
	if err != nil {
		return domain.Table{}, fmt.Errorf("importer.Parse: read rows: %w", err)
	}
	return buildTable(rows, workbookCell), nil
}

// workbookCell types a raw workbook value: anything that parses as a number is numeric.
func workbookCell(s string) domain.CellValue {
	t := strings.TrimSpace(s)
	if t == "" {
		return domain.CellValue{}
	}
	if f, err := strconv.ParseFloat(t, 64); err == nil {
		return domain.Number(f)
	}
	return domain.Text(s)
}

func buildTable(records [][]string, cell func(string) domain.CellValue) domain.Table {
	if len(records) == 0 {
		return domain.Table{}
	}

	columns := make([]string, len(records[0]))
	for i, h := range records[0] {
		name := strings.TrimSpace(h)
		if name == "" {
			name = fmt.Sprintf("Column %d", i+1)
		}
		columns[i] = name
	}

	t := domain.Table{Columns: columns, Rows: make([]domain.RawRow, 0, len(records)-1)}
	for _, rec := range records[1:] {
		row := make(domain.RawRow, len(columns))
		blank := true
		for i, col := range columns {
			var v domain.CellValue
			if i < len(rec) {
				v = cell(rec[i])
			}
			if !v.IsEmpty() {
				blank = false
			}
			row[col] = v
		}
		if blank {
			continue
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}
