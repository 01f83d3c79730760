// Package geocode implements the shipping.Geocoder port against the Google
// Maps Geocoding API.
package geocode

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"

	"github.com/noisycontents/fulfillment/internal/domain/shipping"
)

const (
	defaultBaseURL  = "https://maps.googleapis.com/maps/api/geocode/json"
	defaultPace     = 100 * time.Millisecond
	maxResponseSize = 10 * 1024 * 1024
)

// ErrMissingAPIKey indicates the client was built without credentials.
var ErrMissingAPIKey = errors.New("geocode: missing API key")

// GoogleMapsClient resolves addresses through the Geocoding API. Calls are
// paced so a run of a few hundred addresses stays inside the per-second
// quota.
type GoogleMapsClient struct {
	apiKey     string
	baseURL    string
	pace       time.Duration
	httpClient *http.Client
	logger     *zap.Logger

	lastCall time.Time
}

// Option configures a GoogleMapsClient.
type Option func(*GoogleMapsClient)

// WithBaseURL overrides the API endpoint, used in tests.
func WithBaseURL(u string) Option {
	return func(c *GoogleMapsClient) { c.baseURL = u }
}

// WithPace overrides the minimum delay between consecutive calls.
func WithPace(d time.Duration) Option {
	return func(c *GoogleMapsClient) { c.pace = d }
}

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *GoogleMapsClient) { c.httpClient = h }
}

// NewGoogleMapsClient creates a paced geocoding client.
func NewGoogleMapsClient(apiKey string, logger *zap.Logger, opts ...Option) (*GoogleMapsClient, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &GoogleMapsClient{
		apiKey:     apiKey,
		baseURL:    defaultBaseURL,
		pace:       defaultPace,
		httpClient: &http.Client{Timeout: 10 * time.Second},
		logger:     logger,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

var _ shipping.Geocoder = (*GoogleMapsClient)(nil)

// Wire envelope of the Geocoding API.

type geocodeResponse struct {
	Status  string          `json:"status"`
	Results []geocodeResult `json:"results"`
}

type geocodeResult struct {
	FormattedAddress  string             `json:"formatted_address"`
	AddressComponents []geocodeComponent `json:"address_components"`
}

type geocodeComponent struct {
	LongName  string   `json:"long_name"`
	ShortName string   `json:"short_name"`
	Types     []string `json:"types"`
}

func (c geocodeComponent) hasType(t string) bool {
	for _, ct := range c.Types {
		if ct == t {
			return true
		}
	}
	return false
}

// Geocode resolves one address. A response with no match returns (nil, nil)
// so callers can fall back to the raw address without treating it as a
// failure.
func (c *GoogleMapsClient) Geocode(ctx context.Context, address string) (*shipping.GeocodeResult, error) {
	if address == "" {
		return nil, nil
	}
	if err := c.waitPace(ctx); err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("address", address)
	query.Set("key", c.apiKey)
	query.Set("language", "en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+query.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("geocode: failed to create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("geocode: failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("geocode: HTTP %d", resp.StatusCode)
	}

	var decoded geocodeResponse
	if err := json.Unmarshal(body, &decoded); err != nil {
		return nil, fmt.Errorf("geocode: invalid response: %w", err)
	}
	if decoded.Status != "OK" || len(decoded.Results) == 0 {
		c.logger.Debug("no geocoding match",
			zap.String("address", address),
			zap.String("status", decoded.Status))
		return nil, nil
	}

	best := decoded.Results[0]
	out := &shipping.GeocodeResult{Formatted: best.FormattedAddress}
	for _, comp := range best.AddressComponents {
		switch {
		case comp.hasType("street_number"):
			out.Components.StreetNumber = comp.LongName
		case comp.hasType("route"):
			out.Components.Route = comp.LongName
		case comp.hasType("subpremise"):
			out.Components.Subpremise = comp.LongName
		case comp.hasType("locality"):
			out.Components.Locality = comp.LongName
		case comp.hasType("postal_code"):
			out.Components.PostalCode = comp.LongName
		case comp.hasType("country"):
			out.Components.Country = comp.LongName
			out.Components.CountryCode = comp.ShortName
		}
	}
	return out, nil
}

// waitPace blocks until the minimum interval since the previous call has
// passed. Single-goroutine by contract, like the rest of the run.
func (c *GoogleMapsClient) waitPace(ctx context.Context) error {
	if c.pace <= 0 {
		return nil
	}
	elapsed := time.Since(c.lastCall)
	if wait := c.pace - elapsed; wait > 0 {
		timer := time.NewTimer(wait)
		defer timer.Stop()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-timer.C:
		}
	}
	c.lastCall = time.Now()
	return nil
}
