package routing

import (
	"context"
	"fmt"
	"strings"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// Stitcher chains single-leg provider calls into one route per day.
type Stitcher struct {
	provider Provider
}

// NewStitcher constructs a Stitcher backed by provider.
func NewStitcher(provider Provider) *Stitcher {
	return &Stitcher{provider: provider}
}

// StitchDay routes start → each stop in order → end, skipping the final leg to
// end when the day is a hotel stay. Legs whose destination is blank or equal to
// the current location are not sent to the provider. Any provider error fails
// the whole day.
func (s *Stitcher) StitchDay(ctx context.Context, it domain.Itinerary, start, end, apiKey string, mileageRate float64) (domain.DayResult, error) {
	path := make([]string, 0, len(it.Stops)+1)
	for _, stop := range it.Stops {
		path = append(path, stop.Address)
	}

	effectiveEnd := end
	if it.IsHotelStay() {
		effectiveEnd = it.HotelAddress()
	} else {
		path = append(path, end)
	}

	res := domain.DayResult{
		Date:         it.Date,
		StartAddress: start,
		EndAddress:   effectiveEnd,
		IsHotelStay:  it.IsHotelStay(),
		Notes:        it.Summary(),
		Rows:         it.Rows(),
	}

	current := strings.TrimSpace(start)
	for _, next := range path {
		next = strings.TrimSpace(next)
		if next == "" || strings.EqualFold(current, next) {
			continue
		}
		leg, err := s.provider.Route(ctx, current, next, apiKey)
		if err != nil {
			return domain.DayResult{}, fmt.Errorf("leg %q -> %q: %w", current, next, err)
		}
		res.Distance += leg.DistanceMiles
		res.DurationSeconds += leg.DurationSeconds
		res.Legs++
		current = next
	}

	res.Amount = res.Distance * mileageRate
	return res, nil
}
