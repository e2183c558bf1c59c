package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// TestCorrelationIDMiddleware verifies a correlation ID is assigned, echoed
// in the response header, and made available to handlers via context.
func TestCorrelationIDMiddleware(t *testing.T) {
	router := mux.NewRouter()
	router.Use(CorrelationIDMiddleware(zap.NewNop()))
	var seen string
	router.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = r.Context().Value("correlation_id").(string)
		w.WriteHeader(http.StatusOK)
	})

	t.Run("generates id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/health", nil))
		if seen == "" {
			t.Error("correlation_id not stored in context")
		}
		if rec.Header().Get("X-Correlation-ID") == "" {
			t.Error("X-Correlation-ID header not set")
		}
	})

	t.Run("propagates inbound id", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/health", nil)
		req.Header.Set("X-Correlation-ID", "test-id-123")
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		if seen != "test-id-123" {
			t.Errorf("correlation_id = %q, want test-id-123", seen)
		}
		if got := rec.Header().Get("X-Correlation-ID"); got != "test-id-123" {
			t.Errorf("header = %q, want test-id-123", got)
		}
	})
}

// TestRateLimitMiddleware verifies inbound requests beyond the bucket get 429
// with the structured error body.
func TestRateLimitMiddleware(t *testing.T) {
	limiter := rate.NewLimiter(rate.Limit(0.001), 1)
	router := mux.NewRouter()
	router.Use(RateLimitMiddleware(limiter))
	router.HandleFunc("/api/v1/weather", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/weather", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/weather", nil))
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	body := decodeErrorBody(t, rec)
	if body.Error != "Exceeded the rate limit" {
		t.Errorf("category = %q", body.Error)
	}
}

// TestRateLimitMiddleware_Disabled verifies a nil limiter passes everything.
func TestRateLimitMiddleware_Disabled(t *testing.T) {
	router := mux.NewRouter()
	router.Use(RateLimitMiddleware(nil))
	router.HandleFunc("/api/v1/weather", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	for i := 0; i < 10; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest("GET", "/api/v1/weather", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("request %d status = %d, want 200", i, rec.Code)
		}
	}
}

// TestGetRoute verifies paths collapse into bounded route labels.
func TestGetRoute(t *testing.T) {
	tests := []struct {
		path string
		want string
	}{
		{"/health", "/health"},
		{"/metrics", "/metrics"},
		{"/api/v1/login", "/api/v1/login"},
		{"/api/v1/weather", "/api/v1/weather"},
		{"/api/v1/weather/refresh", "/api/v1/weather/refresh"},
		{"/favicon.ico", "other"},
	}

	for _, tc := range tests {
		r := httptest.NewRequest("GET", tc.path, nil)
		if got := getRoute(r); got != tc.want {
			t.Errorf("getRoute(%s) = %q, want %q", tc.path, got, tc.want)
		}
	}
}

// TestStatusCodeString verifies status codes collapse into class labels.
func TestStatusCodeString(t *testing.T) {
	tests := []struct {
		code int
		want string
	}{
		{200, "2xx"},
		{404, "4xx"},
		{429, "4xx"},
		{503, "5xx"},
	}
	for _, tc := range tests {
		if got := statusCodeString(tc.code); got != tc.want {
			t.Errorf("statusCodeString(%d) = %q, want %q", tc.code, got, tc.want)
		}
	}
}
