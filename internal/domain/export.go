package domain

// ExportRow is a single row in the schedule export: one row per calendar day.
// Dates are "2006-01-02" strings so CSV and XLSX writers need no formatting.
type ExportRow struct {
	EntryID      string
	Date         string
	StartAddress string
	EndAddress   string
	Distance     float64
	Amount       float64
	IsHotelStay  bool
	Status       string
	ErrorMessage string
	Notes        string
}
