package domain

import (
	"time"

	"github.com/google/uuid"
)

// ImportRequest is a parsed-and-mapped row set handed to the import engine.
// FileHash and FileName are optional; when FileHash is set the file-level
// dedup gate applies.
type ImportRequest struct {
	Rows        []RawRow      `json:"rows"`
	Mapping     HeaderMapping `json:"mapping"`
	MileageRate float64       `json:"mileage_rate,omitempty"`
	FileHash    string        `json:"file_hash,omitempty"`
	FileName    string        `json:"file_name,omitempty"`
}

// DayOutcome reports what happened to one calendar day during an import.
type DayOutcome struct {
	Date         time.Time        `json:"date"`
	Status       ProcessingStatus `json:"status"`
	EntryID      uuid.UUID        `json:"entry_id"`
	Distance     float64          `json:"distance"`
	Amount       float64          `json:"amount"`
	IsHotelStay  bool             `json:"is_hotel_stay"`
	Skipped      bool             `json:"skipped,omitempty"`
	ErrorMessage string           `json:"error_message,omitempty"`
}

// ImportSummary is the result of a completed import run.
type ImportSummary struct {
	EntriesProcessed  int          `json:"entries_processed"`   // entries created or updated, including error entries
	NewDatesProcessed int          `json:"new_dates_processed"` // dates that had no entry before this run
	SkippedDuplicates int          `json:"skipped_duplicates"`  // days an interrupted run of the same file already merged
	RowsProcessed     int          `json:"rows_processed"`
	InvalidRows       int          `json:"invalid_rows"` // rows rejected for a missing or unparseable date
	FailedDates       int          `json:"failed_dates"`
	Days              []DayOutcome `json:"days"`
}

// ImportPreview is what a user sees before confirming an import: the parsed
// table, the inferred column mapping, and the hash that gates re-imports.
type ImportPreview struct {
	FileName string
	FileHash string
	Columns  []string
	Mapping  HeaderMapping
	Rows     []RawRow
}
