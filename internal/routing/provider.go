// Package routing computes driving distances for daily itineraries.
// A Provider answers single origin→destination questions; the Stitcher chains
// those answers into one multi-leg route per day.
package routing

import (
	"context"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// MetersPerMile is the conversion used for every calculated mile. It is
// deliberately 1609.34, not 1609.344; stored totals depend on it.
const MetersPerMile = 1609.34

// Provider resolves one leg between two free-form addresses.
type Provider interface {
	Route(ctx context.Context, origin, destination, apiKey string) (domain.RouteLeg, error)
}

// ProviderFunc adapts a function to the Provider interface.
type ProviderFunc func(ctx context.Context, origin, destination, apiKey string) (domain.RouteLeg, error)

// Route calls f.
func (f ProviderFunc) Route(ctx context.Context, origin, destination, apiKey string) (domain.RouteLeg, error) {
	return f(ctx, origin, destination, apiKey)
}
