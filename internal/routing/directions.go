package routing

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkordes/mileage-logbook/internal/domain"
)

// DefaultBaseURL is the public directions API host.
const DefaultBaseURL = "https://maps.googleapis.com"

const directionsPath = "/maps/api/directions/json"

// DirectionsClient is a Provider backed by a Google-Directions-compatible JSON API.
type DirectionsClient struct {
	baseURL string
	http    *http.Client
	retry   RetryConfig
	log     *slog.Logger
}

// NewDirectionsClient constructs a DirectionsClient. An empty baseURL selects
// DefaultBaseURL; a nil httpClient selects http.DefaultClient.
func NewDirectionsClient(baseURL string, httpClient *http.Client, retry RetryConfig, log *slog.Logger) *DirectionsClient {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	if log == nil {
		log = slog.Default()
	}
	return &DirectionsClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		retry:   retry,
		log:     log,
	}
}

type directionsResponse struct {
	Status       string `json:"status"`
	ErrorMessage string `json:"error_message"`
	Routes       []struct {
		Legs []struct {
			Distance struct {
				Value float64 `json:"value"`
			} `json:"distance"`
			Duration struct {
				Value int `json:"value"`
			} `json:"duration"`
			StartAddress string `json:"start_address"`
			EndAddress   string `json:"end_address"`
		} `json:"legs"`
	} `json:"routes"`
}

// Route requests driving directions from origin to destination and returns the
// first leg of the first route. Unknown addresses fail with domain.ErrRouteNotFound.
func (c *DirectionsClient) Route(ctx context.Context, origin, destination, apiKey string) (domain.RouteLeg, error) {
	leg, err := WithRetry(ctx, c.retry, c.log, func(ctx context.Context) (domain.RouteLeg, error) {
		return c.route(ctx, origin, destination, apiKey)
	})
	if err != nil {
		return domain.RouteLeg{}, fmt.Errorf("routing.DirectionsClient.Route: %w", err)
	}
	return leg, nil
}

func (c *DirectionsClient) route(ctx context.Context, origin, destination, apiKey string) (domain.RouteLeg, error) {
	q := url.Values{}
	q.Set("origin", origin)
	q.Set("destination", destination)
	q.Set("mode", "driving")
	q.Set("key", apiKey)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+directionsPath+"?"+q.Encode(), nil)
	if err != nil {
		return domain.RouteLeg{}, Permanent(err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		// The request URL carries the API key; keep it out of error messages.
		var uerr *url.Error
		if errors.As(err, &uerr) {
			err = uerr.Err
		}
		return domain.RouteLeg{}, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return domain.RouteLeg{}, err
	}
	switch {
	case resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests:
		return domain.RouteLeg{}, fmt.Errorf("directions api: http %d", resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return domain.RouteLeg{}, Permanent(fmt.Errorf("directions api: http %d", resp.StatusCode))
	}

	var dr directionsResponse
	if err := json.Unmarshal(body, &dr); err != nil {
		return domain.RouteLeg{}, Permanent(fmt.Errorf("directions api: decode: %w", err))
	}

	switch dr.Status {
	case "OK":
	case "NOT_FOUND", "ZERO_RESULTS":
		return domain.RouteLeg{}, Permanent(fmt.Errorf("%w: %s", domain.ErrRouteNotFound, strings.ToLower(dr.Status)))
	case "OVER_QUERY_LIMIT", "UNKNOWN_ERROR":
		return domain.RouteLeg{}, statusError(dr)
	default:
		return domain.RouteLeg{}, Permanent(statusError(dr))
	}

	if len(dr.Routes) == 0 || len(dr.Routes[0].Legs) == 0 {
		return domain.RouteLeg{}, Permanent(fmt.Errorf("%w: empty route", domain.ErrRouteNotFound))
	}
	leg := dr.Routes[0].Legs[0]
	return domain.RouteLeg{
		DistanceMiles:        leg.Distance.Value / MetersPerMile,
		DurationSeconds:      leg.Duration.Value,
		ResolvedStartAddress: leg.StartAddress,
		ResolvedEndAddress:   leg.EndAddress,
	}, nil
}

func statusError(dr directionsResponse) error {
	if dr.ErrorMessage != "" {
		return errors.New("directions api: " + dr.Status + ": " + dr.ErrorMessage)
	}
	return errors.New("directions api: " + dr.Status)
}
