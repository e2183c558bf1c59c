package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/zipweather/zip-weather-service/internal/models"
	"github.com/zipweather/zip-weather-service/internal/observability"
)

// GeocodingClient resolves a postal code (plus optional country code) into
// coordinates. Implementations perform no retries; call-budget policy belongs
// to the service layer.
type GeocodingClient interface {
	Resolve(ctx context.Context, postalCode, countryCode string) (models.Coordinates, error)
}

// NominatimClient implements GeocodingClient against a Nominatim-style search
// endpoint. Exactly one match is requested; the first result wins.
type NominatimClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewNominatimClient creates a geocoding client for the given base URL
// (e.g. "https://nominatim.openstreetmap.org/search").
func NewNominatimClient(baseURL string, timeout time.Duration) (*NominatimClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("geocoding base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid geocoding base URL: %w", err)
	}
	return &NominatimClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// nominatimMatch is one search result. lat/lon arrive as JSON strings.
type nominatimMatch struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

// Resolve implements GeocodingClient. Returns ErrLocationNotFound on an empty
// match array and wrapped ErrUpstreamFailure on transport or parse failure.
func (c *NominatimClient) Resolve(ctx context.Context, postalCode, countryCode string) (models.Coordinates, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, postalCode, countryCode)
	if err != nil {
		observability.GeocodingCallsTotal.WithLabelValues("error").Inc()
		return models.Coordinates{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.GeocodingCallsTotal.WithLabelValues("error").Inc()
		observability.GeocodingCallDurationSeconds.WithLabelValues("error").Observe(duration)
		return models.Coordinates{}, fmt.Errorf("%w: geocoding request: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.GeocodingCallsTotal.WithLabelValues(status).Inc()
	observability.GeocodingCallDurationSeconds.WithLabelValues(status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.Coordinates{}, fmt.Errorf("%w: geocoding HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: read geocoding response: %v", ErrUpstreamFailure, err)
	}

	var matches []nominatimMatch
	if err := json.Unmarshal(body, &matches); err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: parse geocoding response: %v", ErrUpstreamFailure, err)
	}
	if len(matches) == 0 {
		return models.Coordinates{}, fmt.Errorf("%w: postal code %s", ErrLocationNotFound, postalCode)
	}

	lat, err := strconv.ParseFloat(matches[0].Lat, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: parse latitude %q: %v", ErrUpstreamFailure, matches[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(matches[0].Lon, 64)
	if err != nil {
		return models.Coordinates{}, fmt.Errorf("%w: parse longitude %q: %v", ErrUpstreamFailure, matches[0].Lon, err)
	}

	return models.Coordinates{Latitude: lat, Longitude: lon}, nil
}

// buildRequest constructs the search request. countrycodes is omitted when
// blank so the provider falls back to a global search.
func (c *NominatimClient) buildRequest(ctx context.Context, postalCode, countryCode string) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	params := url.Values{}
	params.Set("format", "json")
	params.Set("postalcode", postalCode)
	if countryCode != "" {
		params.Set("countrycodes", countryCode)
	}
	params.Set("limit", "1")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
