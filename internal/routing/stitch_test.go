package routing_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pkordes/mileage-logbook/internal/domain"
	"github.com/pkordes/mileage-logbook/internal/routing"
)

type call struct{ from, to string }

// recordingProvider returns a fixed distance per leg and records every call.
type recordingProvider struct {
	miles float64
	fail  map[string]error // keyed by destination
	calls []call
}

func (p *recordingProvider) Route(_ context.Context, from, to, _ string) (domain.RouteLeg, error) {
	p.calls = append(p.calls, call{from, to})
	if err, ok := p.fail[to]; ok {
		return domain.RouteLeg{}, err
	}
	return domain.RouteLeg{DistanceMiles: p.miles, DurationSeconds: 600, ResolvedStartAddress: from, ResolvedEndAddress: to}, nil
}

func itinerary(hotelIndex int, stops ...domain.ItineraryStop) domain.Itinerary {
	return domain.Itinerary{
		Date:       time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC),
		Stops:      stops,
		HotelIndex: hotelIndex,
	}
}

func stop(addr string) domain.ItineraryStop {
	return domain.ItineraryStop{Address: addr, Row: domain.RawRow{"Address": domain.Text(addr)}}
}

func TestStitchDay_RoundTrip(t *testing.T) {
	p := &recordingProvider{miles: 10}
	s := routing.NewStitcher(p)

	got, err := s.StitchDay(context.Background(), itinerary(-1, stop("A"), stop("B")), "Home", "Home", "key", 0.5)

	require.NoError(t, err)
	assert.Equal(t, []call{{"Home", "A"}, {"A", "B"}, {"B", "Home"}}, p.calls)
	assert.InDelta(t, 30.0, got.Distance, 1e-9)
	assert.InDelta(t, 15.0, got.Amount, 1e-9)
	assert.Equal(t, 3, got.Legs)
	assert.Equal(t, "Home", got.StartAddress)
	assert.Equal(t, "Home", got.EndAddress)
	assert.False(t, got.IsHotelStay)
	assert.Len(t, got.Rows, 2)
}

func TestStitchDay_HotelSkipsReturnLeg(t *testing.T) {
	p := &recordingProvider{miles: 10}
	s := routing.NewStitcher(p)
	hotel := stop("Inn on Main")
	hotel.IsHotel = true

	got, err := s.StitchDay(context.Background(), itinerary(1, stop("A"), hotel), "Home", "Office", "key", 1)

	require.NoError(t, err)
	assert.Equal(t, []call{{"Home", "A"}, {"A", "Inn on Main"}}, p.calls)
	assert.True(t, got.IsHotelStay)
	assert.Equal(t, "Inn on Main", got.EndAddress)
	assert.InDelta(t, 20.0, got.Distance, 1e-9)
}

func TestStitchDay_ZeroLegDay(t *testing.T) {
	p := &recordingProvider{miles: 10}
	s := routing.NewStitcher(p)

	got, err := s.StitchDay(context.Background(), itinerary(-1, stop(" home ")), "Home", "Home", "key", 0.67)

	require.NoError(t, err)
	assert.Empty(t, p.calls, "identical addresses must not reach the provider")
	assert.Zero(t, got.Distance)
	assert.Zero(t, got.Amount)
}

func TestStitchDay_BlankStopsSkipped(t *testing.T) {
	p := &recordingProvider{miles: 5}
	s := routing.NewStitcher(p)

	_, err := s.StitchDay(context.Background(), itinerary(-1, stop(""), stop("A"), stop("A")), "Home", "Office", "key", 1)

	require.NoError(t, err)
	assert.Equal(t, []call{{"Home", "A"}, {"A", "Office"}}, p.calls)
}

func TestStitchDay_ProviderErrorFailsDay(t *testing.T) {
	boom := errors.New("quota exceeded")
	p := &recordingProvider{miles: 5, fail: map[string]error{"B": boom}}
	s := routing.NewStitcher(p)

	_, err := s.StitchDay(context.Background(), itinerary(-1, stop("A"), stop("B"), stop("C")), "Home", "Home", "key", 1)

	require.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), `"A" -> "B"`)
	assert.Len(t, p.calls, 2, "no further legs after a failure")
}
