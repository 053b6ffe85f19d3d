package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/oapi-codegen/runtime"
	openapi_types "github.com/oapi-codegen/runtime/types"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/middleware"
)

// multipartMemory is how much of an upload is buffered in memory before
// spilling to temp files. MaxBodySize caps the total.
const multipartMemory = 8 << 20

// PreviewResponse is the body of POST /imports/preview.
type PreviewResponse struct {
	FileName string               `json:"file_name"`
	FileHash string               `json:"file_hash"`
	Columns  []string             `json:"columns"`
	Mapping  domain.HeaderMapping `json:"mapping"`
	RowCount int                  `json:"row_count"`
	Rows     []domain.RawRow      `json:"rows"`
}

// DayOutcome is one day of an ImportSummaryResponse.
type DayOutcome struct {
	Date         openapi_types.Date `json:"date"`
	Status       string             `json:"status"`
	EntryID      *uuid.UUID         `json:"entry_id,omitempty"`
	Distance     float64            `json:"distance"`
	Amount       float64            `json:"amount"`
	IsHotelStay  bool               `json:"is_hotel_stay"`
	Skipped      bool               `json:"skipped,omitempty"`
	ErrorMessage *string            `json:"error_message,omitempty"`
}

// ImportSummaryResponse is the body of a completed POST /imports.
type ImportSummaryResponse struct {
	EntriesProcessed  int          `json:"entries_processed"`
	NewDatesProcessed int          `json:"new_dates_processed"`
	SkippedDuplicates int          `json:"skipped_duplicates"`
	RowsProcessed     int          `json:"rows_processed"`
	InvalidRows       int          `json:"invalid_rows"`
	FailedDates       int          `json:"failed_dates"`
	Days              []DayOutcome `json:"days"`
}

// QueuedImportResponse is the body of POST /imports?async=true.
type QueuedImportResponse struct {
	TaskID string `json:"task_id"`
}

// ImportError is one record of GET /imports/errors.
type ImportError struct {
	Id        uuid.UUID      `json:"id"`
	Message   string         `json:"message"`
	Context   map[string]any `json:"context"`
	CreatedAt time.Time      `json:"created_at"`
}

// currentUser returns the authenticated user, writing 401 if there is none.
func currentUser(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, ok := middleware.UserID(r.Context())
	if !ok {
		writeErrorBody(w, http.StatusUnauthorized, "unauthorized", "authentication required")
	}
	return id, ok
}

// PreviewImport handles POST /imports/preview.
// The multipart field "file" is parsed and its column mapping inferred; nothing is stored.
func (s *Server) PreviewImport(w http.ResponseWriter, r *http.Request) {
	if _, ok := currentUser(w, r); !ok {
		return
	}

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, err)
			return
		}
		requestError(w, "expected a multipart/form-data body with a \"file\" field")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		requestError(w, "missing \"file\" field")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	p, err := s.imports.Preview(header.Filename, data)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, PreviewResponse{
		FileName: p.FileName,
		FileHash: p.FileHash,
		Columns:  p.Columns,
		Mapping:  p.Mapping,
		RowCount: len(p.Rows),
		Rows:     p.Rows,
	})
}

// CreateImport handles POST /imports.
// With ?async=true the import is queued and 202 is returned with the task ID.
func (s *Server) CreateImport(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	async := false
	if v := r.URL.Query().Get("async"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			requestError(w, "async must be true or false")
			return
		}
		async = b
	}

	var req domain.ImportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, r, err)
			return
		}
		requestError(w, "invalid JSON body: "+err.Error())
		return
	}
	if len(req.Rows) == 0 {
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", "rows must not be empty")
		return
	}

	if async {
		if s.queue == nil {
			writeErrorBody(w, http.StatusServiceUnavailable, "queue_unavailable", "background imports are not configured")
			return
		}
		id, err := s.queue.EnqueueImport(r.Context(), userID, req)
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusAccepted, QueuedImportResponse{TaskID: id})
		return
	}

	summary, err := s.imports.ProcessImport(r.Context(), userID, req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, summaryToResponse(summary))
}

// ListImportErrors handles GET /imports/errors.
// Returns the newest error-log records first; ?limit= defaults to 50, max 200.
func (s *Server) ListImportErrors(w http.ResponseWriter, r *http.Request) {
	userID, ok := currentUser(w, r)
	if !ok {
		return
	}

	var limit *int
	if err := runtime.BindQueryParameter("form", true, false, "limit", r.URL.Query(), &limit); err != nil {
		requestError(w, "invalid limit: "+err.Error())
		return
	}
	n := 0
	if limit != nil {
		n = *limit
	}

	logs, err := s.imports.RecentErrors(r.Context(), userID, n)
	if err != nil {
		s.writeError(w, r, err)
		return
	}

	out := make([]ImportError, len(logs))
	for i, l := range logs {
		fields := l.Context
		if fields == nil {
			fields = map[string]any{}
		}
		out[i] = ImportError{Id: l.ID, Message: l.Message, Context: fields, CreatedAt: l.CreatedAt}
	}
	writeJSON(w, http.StatusOK, out)
}

func summaryToResponse(sum domain.ImportSummary) ImportSummaryResponse {
	days := make([]DayOutcome, 0, len(sum.Days))
	for _, d := range sum.Days {
		out := DayOutcome{
			Date:        openapi_types.Date{Time: d.Date},
			Status:      string(d.Status),
			Distance:    d.Distance,
			Amount:      d.Amount,
			IsHotelStay: d.IsHotelStay,
			Skipped:     d.Skipped,
		}
		if d.EntryID != uuid.Nil {
			id := d.EntryID
			out.EntryID = &id
		}
		if d.ErrorMessage != "" {
			msg := d.ErrorMessage
			out.ErrorMessage = &msg
		}
		days = append(days, out)
	}
	return ImportSummaryResponse{
		EntriesProcessed:  sum.EntriesProcessed,
		NewDatesProcessed: sum.NewDatesProcessed,
		SkippedDuplicates: sum.SkippedDuplicates,
		RowsProcessed:     sum.RowsProcessed,
		InvalidRows:       sum.InvalidRows,
		FailedDates:       sum.FailedDates,
		Days:              days,
	}
}
