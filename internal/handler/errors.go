package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/middleware"
)

// ErrorDetail is the body of every error response.
type ErrorDetail struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

// ErrorResponse wraps ErrorDetail as {"error": {...}}.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// writeJSON encodes v with the given status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck // the status line is already sent; nothing useful to do on failure.
	json.NewEncoder(w).Encode(v)
}

func writeErrorBody(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{Error: ErrorDetail{Code: code, Message: message}})
}

// requestError responds to input rejected before reaching the service layer
// (e.g. missing or malformed body).
func requestError(w http.ResponseWriter, message string) {
	writeErrorBody(w, http.StatusBadRequest, "bad_request", message)
}

// writeError maps a service error onto an HTTP status and error code.
// Unrecognised errors are logged and reported as 500 without their text.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var dup *domain.DuplicateFileError
	var tooLarge *http.MaxBytesError

	switch {
	case errors.As(err, &dup):
		writeJSON(w, http.StatusConflict, ErrorResponse{Error: ErrorDetail{
			Code:    "duplicate_file",
			Message: "this file was already imported",
			Details: map[string]any{
				"file_hash":    dup.FileHash,
				"processed_at": dup.ProcessedAt.UTC().Format(time.RFC3339),
				"record_count": dup.RecordCount,
			},
		}})
	case errors.Is(err, domain.ErrImportInProgress):
		writeErrorBody(w, http.StatusConflict, "import_in_progress", "another import is already running for this user")
	case errors.Is(err, domain.ErrNotFound):
		writeErrorBody(w, http.StatusNotFound, "not_found", "schedule entry not found")
	case errors.Is(err, domain.ErrConfiguration):
		writeErrorBody(w, http.StatusUnprocessableEntity, "configuration_error", unwrapMessage(err, domain.ErrConfiguration))
	case errors.Is(err, domain.ErrValidation):
		writeErrorBody(w, http.StatusUnprocessableEntity, "validation_error", unwrapMessage(err, domain.ErrValidation))
	case errors.Is(err, domain.ErrUnsupportedFormat):
		writeErrorBody(w, http.StatusUnprocessableEntity, "unsupported_format", unwrapMessage(err, domain.ErrUnsupportedFormat))
	case errors.As(err, &tooLarge):
		writeErrorBody(w, http.StatusRequestEntityTooLarge, "too_large", "request body too large")
	default:
		userID, _ := middleware.UserID(r.Context())
		s.log.ErrorContext(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "user_id", userID, "error", err)
		writeErrorBody(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}

// unwrapMessage extracts the human-readable part after a wrapped sentinel.
// e.g. "service.ImportService.ProcessImport: validation error: no date column mapped"
// → "no date column mapped"
func unwrapMessage(err, sentinel error) string {
	msg := err.Error()
	marker := sentinel.Error() + ": "
	if i := strings.Index(msg, marker); i >= 0 {
		return msg[i+len(marker):]
	}
	return sentinel.Error()
}
