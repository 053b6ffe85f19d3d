package importer

import (
	"sort"
	"strings"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// hotelKeywords mark a stop as an overnight stay when found in its notes.
var hotelKeywords = []string{
	"hotel", "motel", "inn", "lodge", "resort", "stay",
	"overnight", "lodging", "accommodation",
}

// RejectedRow is a row that could not be assigned to a calendar date.
type RejectedRow struct {
	Index  int
	Reason string
	Row    domain.RawRow
}

// BuildItineraries groups rows by calendar date and returns one itinerary per
// date, sorted ascending. Rows keep their spreadsheet order within a day.
// Rows with a missing or unparseable date are returned separately.
func BuildItineraries(rows []domain.RawRow, m domain.HeaderMapping) ([]domain.Itinerary, []RejectedRow) {
	byDate := make(map[string]*domain.Itinerary)
	var rejected []RejectedRow

	for i, row := range rows {
		date, err := ParseDate(row.Get(m.Date))
		if err != nil {
			rejected = append(rejected, RejectedRow{Index: i, Reason: err.Error(), Row: row})
			continue
		}

		key := domain.DateKey(date)
		it, ok := byDate[key]
		if !ok {
			it = &domain.Itinerary{Date: date, HotelIndex: -1}
			byDate[key] = it
		}

		stop := domain.ItineraryStop{
			Address: strings.TrimSpace(row.Get(m.StartAddress).String()),
			Notes:   strings.TrimSpace(row.Get(m.Notes).String()),
			Row:     row,
		}
		stop.IsHotel = IsHotelNote(stop.Notes)
		if stop.IsHotel && it.HotelIndex < 0 {
			it.HotelIndex = len(it.Stops)
		}
		it.Stops = append(it.Stops, stop)
	}

	out := make([]domain.Itinerary, 0, len(byDate))
	for _, it := range byDate {
		out = append(out, *it)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out, rejected
}

// IsHotelNote reports whether notes mention an overnight stay.
func IsHotelNote(notes string) bool {
	lower := strings.ToLower(notes)
	for _, kw := range hotelKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
