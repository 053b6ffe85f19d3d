package domain

import (
	"errors"
	"fmt"
	"time"
)

// ErrNotFound is returned by repo and service functions when the requested
// resource does not exist in the database.
// Handlers should map this to HTTP 404.
var ErrNotFound = errors.New("not found")

// ErrValidation is returned by service functions when input fails business
// rule validation (e.g. missing date column mapping, negative mileage rate).
// Handlers should map this to HTTP 422 Unprocessable Entity.
var ErrValidation = errors.New("validation error")

// ErrConfiguration is returned when the user's settings are missing a value an
// import cannot run without (routing API key, default start address).
// It aborts the whole import before any day is processed.
var ErrConfiguration = errors.New("configuration error")

// ErrDuplicateFile is returned when a file hash was already imported for the user.
// Handlers should map this to HTTP 409 Conflict.
var ErrDuplicateFile = errors.New("file already processed")

// ErrImportInProgress is returned when another import for the same user holds the lock.
var ErrImportInProgress = errors.New("import already in progress")

// ErrDuplicateDate is returned by the repo when a second live entry would be
// created for the same user and calendar date.
var ErrDuplicateDate = errors.New("schedule entry already exists for date")

// ErrUnsupportedFormat is returned by the tabular parser for unknown file extensions.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// ErrRouteNotFound is returned by a routing provider when it cannot resolve
// an address or find a route between two addresses.
var ErrRouteNotFound = errors.New("route not found")

// DuplicateFileError reports the receipt of the earlier import of the same file.
// It unwraps to ErrDuplicateFile.
type DuplicateFileError struct {
	FileHash    string
	ProcessedAt time.Time
	RecordCount int
}

func (e *DuplicateFileError) Error() string {
	return fmt.Sprintf("file %s already processed at %s (%d records)",
		e.FileHash, e.ProcessedAt.UTC().Format(time.RFC3339), e.RecordCount)
}

func (e *DuplicateFileError) Unwrap() error {
	return ErrDuplicateFile
}
