// Package domain contains the core data types for the mileage logbook.
// This package has no database or network dependencies and is imported by
// every other internal package (importer, routing, repo, service, handler).
package domain

import (
	"time"

	"github.com/google/uuid"
)

// DateLayout is the canonical calendar-date format used for keys, storage, and JSON.
const DateLayout = "2006-01-02"

// ProcessingStatus is the lifecycle state of a ScheduleEntry.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusCalculated ProcessingStatus = "calculated"
	StatusError      ProcessingStatus = "error"
)

// ScheduleEntry is the persisted summary of one calendar day for one user.
// At most one non-deleted entry exists per (UserID, Date); later imports that
// touch the same date merge into it rather than creating a second row.
type ScheduleEntry struct {
	ID                 uuid.UUID
	UserID             uuid.UUID
	Date               time.Time // midnight UTC
	StartAddress       string
	EndAddress         string
	CalculatedDistance float64 // miles
	CalculatedAmount   float64 // distance × mileage rate
	IsHotelStay        bool
	ProcessingStatus   ProcessingStatus
	ErrorMessage       string // set iff ProcessingStatus == StatusError
	Notes              string
	OriginalData       [][]RawRow // one batch of rows per import that touched this date
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// ProcessedFile is the receipt proving a file's bytes were already imported for a user.
type ProcessedFile struct {
	UserID      uuid.UUID
	FileHash    string
	FileName    string
	ProcessedAt time.Time
	RecordCount int
}

// ImportErrorLog is an append-only audit record of a failed import day or
// rejected rows.
type ImportErrorLog struct {
	ID        uuid.UUID
	UserID    uuid.UUID
	Message   string
	Context   map[string]any
	CreatedAt time.Time
}

// UserSettings holds the per-user values an import reads before it starts.
type UserSettings struct {
	UserID              uuid.UUID
	APIKey              string
	DefaultStartAddress string
	DefaultEndAddress   string
	MileageRate         float64
	UpdatedAt           time.Time
}

// EffectiveEndAddress is where a normal day ends: the configured end address,
// or the start address when none is configured.
func (s UserSettings) EffectiveEndAddress() string {
	if s.DefaultEndAddress != "" {
		return s.DefaultEndAddress
	}
	return s.DefaultStartAddress
}

// DateKey formats t as a calendar-date key ("2006-01-02").
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}
