package handler

import (
	"bytes"
	"encoding/csv"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

const (
	formatCSV  = "csv"
	formatXLSX = "xlsx"

	xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	exportSheet     = "Schedule"
)

// exportHeaders defines the column names written as the first row of any export.
var exportHeaders = []string{
	"entry_id", "date", "start_address", "end_address",
	"distance_miles", "amount", "is_hotel_stay", "status",
	"error_message", "notes",
}

// ExportSchedule handles GET /schedule/export.
// Supports ?from= / ?to= and ?format=csv (default) or ?format=xlsx.
func (s *Server) ExportSchedule(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	format := r.URL.Query().Get("format")
	if format == "" {
		format = formatCSV
	}
	if format != formatCSV && format != formatXLSX {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "format must be csv or xlsx")
		return
	}

	dr, err := bindDateRange(r)
	if err != nil {
		requestError(w, err.Error())
		return
	}

	rows, err := s.export.Export(r.Context(), userID, dr)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	var (
		body        bytes.Buffer
		contentType string
	)
	switch format {
	case formatXLSX:
		contentType = xlsxContentType
		err = writeXLSX(&body, rows)
	default:
		contentType = "text/csv"
		err = writeCSV(&body, rows)
	}
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", `attachment; filename="schedule.`+format+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(body.Len()))
	w.WriteHeader(http.StatusOK)
	_, _ = body.WriteTo(w)
}

// writeCSV encodes rows as CSV with a header line.
func writeCSV(buf *bytes.Buffer, rows []domain.ExportRow) error {
	w := csv.NewWriter(buf)
	//nolint:errcheck // bytes.Buffer.Write never returns an error; w.Error reports anything else.
	w.Write(exportHeaders)
	for _, r := range rows {
		//nolint:errcheck
		w.Write(exportRowToRecord(r))
	}
	w.Flush()
	return w.Error()
}

// writeXLSX encodes rows as a single-sheet workbook. Numbers and booleans
// keep their cell types so spreadsheet sums work.
func writeXLSX(buf *bytes.Buffer, rows []domain.ExportRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return err
	}

	header := make([]any, len(exportHeaders))
	for i, h := range exportHeaders {
		header[i] = h
	}
	if err := f.SetSheetRow(exportSheet, "A1", &header); err != nil {
		return err
	}

	for i, r := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		values := []any{
			r.EntryID, r.Date, r.StartAddress, r.EndAddress,
			r.Distance, r.Amount, r.IsHotelStay, r.Status,
			r.ErrorMessage, r.Notes,
		}
		if err := f.SetSheetRow(exportSheet, cell, &values); err != nil {
			return err
		}
	}

	if err := f.SetPanes(exportSheet, &excelize.Panes{
		Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft",
	}); err != nil {
		return err
	}

	_, err := f.WriteTo(buf)
	return err
}

// exportRowToRecord encodes a domain.ExportRow as a flat string slice.
func exportRowToRecord(r domain.ExportRow) []string {
	return []string{
		r.EntryID,
		r.Date,
		r.StartAddress,
		r.EndAddress,
		strconv.FormatFloat(r.Distance, 'f', 2, 64),
		strconv.FormatFloat(r.Amount, 'f', 2, 64),
		strconv.FormatBool(r.IsHotelStay),
		r.Status,
		r.ErrorMessage,
		r.Notes,
	}
}
