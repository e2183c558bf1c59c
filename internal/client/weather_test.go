package client

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

const openMeteoPayload = `{
	"current_weather": {"temperature": 20.0, "windspeed": 11.2},
	"daily": {
		"time": ["2026-09-01"],
		"temperature_2m_max": [25.0],
		"temperature_2m_min": [15.0]
	}
}`

// TestOpenMeteoClient_Fetch_Success verifies query parameters and mapping of
// current plus daily[0] temperatures.
func TestOpenMeteoClient_Fetch_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		if q.Get("latitude") != "40.7128" {
			t.Errorf("latitude = %q, want 40.7128", q.Get("latitude"))
		}
		if q.Get("longitude") != "-74.006" {
			t.Errorf("longitude = %q, want -74.006", q.Get("longitude"))
		}
		if q.Get("current_weather") != "true" {
			t.Errorf("current_weather = %q, want true", q.Get("current_weather"))
		}
		if q.Get("daily") != "temperature_2m_max,temperature_2m_min" {
			t.Errorf("daily = %q", q.Get("daily"))
		}
		if q.Get("timezone") != "auto" {
			t.Errorf("timezone = %q, want auto", q.Get("timezone"))
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(openMeteoPayload))
	}))
	defer srv.Close()

	c, err := NewOpenMeteoClient(srv.URL, 2*time.Second)
	if err != nil {
		t.Fatalf("NewOpenMeteoClient() error = %v", err)
	}

	result, err := c.Fetch(context.Background(), 40.7128, -74.0060)
	if err != nil {
		t.Fatalf("Fetch() error = %v", err)
	}
	if result.CurrentTemp != 20.0 {
		t.Errorf("CurrentTemp = %v, want 20.0", result.CurrentTemp)
	}
	if result.MinTemp != 15.0 {
		t.Errorf("MinTemp = %v, want 15.0", result.MinTemp)
	}
	if result.MaxTemp != 25.0 {
		t.Errorf("MaxTemp = %v, want 25.0", result.MaxTemp)
	}
	if result.FromCache {
		t.Error("FromCache = true, want false from client")
	}
	if !strings.Contains(result.ExtendedForecast, "temperature_2m_max") {
		t.Errorf("ExtendedForecast = %q, want raw daily block", result.ExtendedForecast)
	}
	var daily map[string]interface{}
	if err := json.Unmarshal([]byte(result.ExtendedForecast), &daily); err != nil {
		t.Errorf("ExtendedForecast is not valid JSON: %v", err)
	}
}

// TestOpenMeteoClient_Fetch_MissingFields verifies incomplete payloads map to
// ErrUpstreamFailure.
func TestOpenMeteoClient_Fetch_MissingFields(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{
			name: "no daily block",
			body: `{"current_weather": {"temperature": 20.0}}`,
		},
		{
			name: "empty daily arrays",
			body: `{"current_weather": {"temperature": 20.0}, "daily": {"temperature_2m_max": [], "temperature_2m_min": []}}`,
		},
		{
			name: "malformed body",
			body: `{not json`,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				_, _ = w.Write([]byte(tc.body))
			}))
			defer srv.Close()

			c, _ := NewOpenMeteoClient(srv.URL, 2*time.Second)
			_, err := c.Fetch(context.Background(), 40.0, -74.0)
			if !errors.Is(err, ErrUpstreamFailure) {
				t.Fatalf("Fetch() error = %v, want ErrUpstreamFailure", err)
			}
		})
	}
}

// TestOpenMeteoClient_Fetch_ServerError verifies non-2xx maps to
// ErrUpstreamFailure.
func TestOpenMeteoClient_Fetch_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c, _ := NewOpenMeteoClient(srv.URL, 2*time.Second)
	_, err := c.Fetch(context.Background(), 40.0, -74.0)
	if !errors.Is(err, ErrUpstreamFailure) {
		t.Fatalf("Fetch() error = %v, want ErrUpstreamFailure", err)
	}
}
