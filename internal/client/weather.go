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

// WeatherClient fetches current conditions and today's min/max for a
// coordinate pair. FromCache is always false on results it produces.
type WeatherClient interface {
	Fetch(ctx context.Context, latitude, longitude float64) (models.WeatherResult, error)
}

// OpenMeteoClient implements WeatherClient against an Open-Meteo-style
// forecast endpoint.
type OpenMeteoClient struct {
	baseURL string
	timeout time.Duration
	client  *http.Client
}

// NewOpenMeteoClient creates a weather client for the given base URL
// (e.g. "https://api.open-meteo.com/v1/forecast").
func NewOpenMeteoClient(baseURL string, timeout time.Duration) (*OpenMeteoClient, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("weather base URL is required")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid weather base URL: %w", err)
	}
	return &OpenMeteoClient{
		baseURL: baseURL,
		timeout: timeout,
		client:  &http.Client{Timeout: timeout},
	}, nil
}

// openMeteoResponse is the subset of the forecast payload we consume.
// Daily is kept raw so the extended forecast can carry it verbatim.
type openMeteoResponse struct {
	CurrentWeather struct {
		Temperature float64 `json:"temperature"`
	} `json:"current_weather"`
	Daily json.RawMessage `json:"daily"`
}

type openMeteoDaily struct {
	TemperatureMax []float64 `json:"temperature_2m_max"`
	TemperatureMin []float64 `json:"temperature_2m_min"`
}

// Fetch implements WeatherClient. Missing current_weather or empty daily
// series are reported as wrapped ErrUpstreamFailure.
func (c *OpenMeteoClient) Fetch(ctx context.Context, latitude, longitude float64) (models.WeatherResult, error) {
	start := time.Now()

	reqCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	req, err := c.buildRequest(reqCtx, latitude, longitude)
	if err != nil {
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		return models.WeatherResult{}, fmt.Errorf("build request: %w", err)
	}

	if corrID := extractCorrelationID(ctx); corrID != "" {
		req.Header.Set("X-Correlation-ID", corrID)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		duration := time.Since(start).Seconds()
		observability.WeatherAPICallsTotal.WithLabelValues("error").Inc()
		observability.WeatherAPICallDurationSeconds.WithLabelValues("error").Observe(duration)
		return models.WeatherResult{}, fmt.Errorf("%w: weather request: %v", ErrUpstreamFailure, err)
	}
	defer resp.Body.Close()

	duration := time.Since(start).Seconds()
	status := statusLabel(resp.StatusCode)
	observability.WeatherAPICallsTotal.WithLabelValues(status).Inc()
	observability.WeatherAPICallDurationSeconds.WithLabelValues(status).Observe(duration)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.WeatherResult{}, fmt.Errorf("%w: weather HTTP %d", ErrUpstreamFailure, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return models.WeatherResult{}, fmt.Errorf("%w: read weather response: %v", ErrUpstreamFailure, err)
	}

	var apiResp openMeteoResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return models.WeatherResult{}, fmt.Errorf("%w: parse weather response: %v", ErrUpstreamFailure, err)
	}
	if len(apiResp.Daily) == 0 {
		return models.WeatherResult{}, fmt.Errorf("%w: weather response missing daily series", ErrUpstreamFailure)
	}

	var daily openMeteoDaily
	if err := json.Unmarshal(apiResp.Daily, &daily); err != nil {
		return models.WeatherResult{}, fmt.Errorf("%w: parse daily series: %v", ErrUpstreamFailure, err)
	}
	if len(daily.TemperatureMax) == 0 || len(daily.TemperatureMin) == 0 {
		return models.WeatherResult{}, fmt.Errorf("%w: weather response missing daily temperatures", ErrUpstreamFailure)
	}

	return models.WeatherResult{
		CurrentTemp:      apiResp.CurrentWeather.Temperature,
		MinTemp:          daily.TemperatureMin[0],
		MaxTemp:          daily.TemperatureMax[0],
		ExtendedForecast: string(apiResp.Daily),
		FromCache:        false,
	}, nil
}

// buildRequest constructs the forecast request for today's current conditions
// plus daily min/max in the location's own timezone.
func (c *OpenMeteoClient) buildRequest(ctx context.Context, latitude, longitude float64) (*http.Request, error) {
	base, err := url.Parse(c.baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}

	params := url.Values{}
	params.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	params.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	params.Set("current_weather", "true")
	params.Set("daily", "temperature_2m_max,temperature_2m_min")
	params.Set("timezone", "auto")
	base.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, "GET", base.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	return req, nil
}
