package domain

import (
	"strings"
	"time"
)

// ItineraryStop is one visit on a day, in spreadsheet order.
type ItineraryStop struct {
	Address string
	Notes   string
	IsHotel bool
	Row     RawRow
}

// Itinerary is one day's ordered stops. It is never persisted directly.
type Itinerary struct {
	Date  time.Time
	Stops []ItineraryStop

	// HotelIndex is the index of the first hotel stop, or -1.
	HotelIndex int
}

// IsHotelStay reports whether any stop that day was an overnight stay.
func (it Itinerary) IsHotelStay() bool {
	return it.HotelIndex >= 0
}

// HotelAddress returns the address of the first hotel stop, or "".
func (it Itinerary) HotelAddress() string {
	if it.HotelIndex < 0 || it.HotelIndex >= len(it.Stops) {
		return ""
	}
	return it.Stops[it.HotelIndex].Address
}

// Rows returns the raw rows that contributed to the day.
func (it Itinerary) Rows() []RawRow {
	rows := make([]RawRow, 0, len(it.Stops))
	for _, s := range it.Stops {
		rows = append(rows, s.Row)
	}
	return rows
}

// Summary renders the day's stops and flags as a single human-readable line.
func (it Itinerary) Summary() string {
	parts := make([]string, 0, len(it.Stops))
	for _, s := range it.Stops {
		label := strings.TrimSpace(s.Address)
		if label == "" {
			label = "(no address)"
		}
		if n := strings.TrimSpace(s.Notes); n != "" {
			label += " (" + n + ")"
		}
		parts = append(parts, label)
	}
	out := "Stops: " + strings.Join(parts, " -> ")
	if it.IsHotelStay() {
		out += "; hotel stay at " + it.HotelAddress()
	}
	return out
}

// RouteLeg is the result of one routing-provider call.
type RouteLeg struct {
	DistanceMiles        float64
	DurationSeconds      int
	ResolvedStartAddress string
	ResolvedEndAddress   string
}

// DayResult is the stitched route for one day.
type DayResult struct {
	Date            time.Time
	StartAddress    string
	EndAddress      string
	Distance        float64
	Amount          float64
	DurationSeconds int
	Legs            int
	IsHotelStay     bool
	Notes           string
	Rows            []RawRow
}

// MergeDay folds a freshly computed day into an existing entry: distance and
// amount are summed, notes concatenated, the hotel flag unioned, and the new
// rows appended. The status is forced to calculated.
func MergeDay(existing ScheduleEntry, r DayResult) ScheduleEntry {
	merged := existing
	merged.CalculatedDistance = existing.CalculatedDistance + r.Distance
	merged.CalculatedAmount = existing.CalculatedAmount + r.Amount
	switch {
	case existing.Notes == "":
		merged.Notes = r.Notes
	case r.Notes != "":
		merged.Notes = existing.Notes + " | " + r.Notes
	}
	merged.IsHotelStay = existing.IsHotelStay || r.IsHotelStay
	merged.OriginalData = appendBatch(existing.OriginalData, r.Rows)
	merged.ProcessingStatus = StatusCalculated
	merged.ErrorMessage = ""
	if merged.StartAddress == "" {
		merged.StartAddress = r.StartAddress
	}
	if r.EndAddress != "" {
		merged.EndAddress = r.EndAddress
	}
	return merged
}

// NewDayEntry builds the entry for a date that has no prior entry.
func NewDayEntry(r DayResult) ScheduleEntry {
	return ScheduleEntry{
		Date:               r.Date,
		StartAddress:       r.StartAddress,
		EndAddress:         r.EndAddress,
		CalculatedDistance: r.Distance,
		CalculatedAmount:   r.Amount,
		IsHotelStay:        r.IsHotelStay,
		ProcessingStatus:   StatusCalculated,
		Notes:              r.Notes,
		OriginalData:       [][]RawRow{r.Rows},
	}
}

func appendBatch(batches [][]RawRow, rows []RawRow) [][]RawRow {
	out := make([][]RawRow, 0, len(batches)+1)
	out = append(out, batches...)
	return append(out, rows)
}
