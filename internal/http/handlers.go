package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/zipweather/zip-weather-service/internal/auth"
	"github.com/zipweather/zip-weather-service/internal/client"
	"github.com/zipweather/zip-weather-service/internal/lifecycle"
	"github.com/zipweather/zip-weather-service/internal/models"
	"github.com/zipweather/zip-weather-service/internal/observability"
	"github.com/zipweather/zip-weather-service/internal/ratelimit"
	"github.com/zipweather/zip-weather-service/internal/service"
	"github.com/zipweather/zip-weather-service/internal/validation"
)

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	weatherService *service.WeatherService
	issuer         *auth.TokenIssuer
	logger         *zap.Logger
	cachePing      func() error // optional backend reachability check
	startTime      time.Time
}

// NewHandler returns a new Handler. cachePing may be nil when the cache
// backend has no reachability check (in-memory).
func NewHandler(weatherService *service.WeatherService, issuer *auth.TokenIssuer, logger *zap.Logger, cachePing func() error) *Handler {
	return &Handler{
		weatherService: weatherService,
		issuer:         issuer,
		logger:         logger,
		cachePing:      cachePing,
		startTime:      time.Now(),
	}
}

// errorBody is the structured error payload for every failure response.
type errorBody struct {
	Timestamp string `json:"timestamp"`
	Status    int    `json:"status"`
	Error     string `json:"error"`
	Message   string `json:"message"`
	Details   string `json:"details"`
}

// GetWeather handles GET /api/v1/weather?zipCode=..&countrycodes=..
func (h *Handler) GetWeather(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseWeatherRequest(w, r)
	if !ok {
		return
	}
	result, err := h.weatherService.GetWeather(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// RefreshWeather handles POST /api/v1/weather/refresh?zipCode=..&countrycodes=..
// It bypasses the cache check and overwrites the cached entry.
func (h *Handler) RefreshWeather(w http.ResponseWriter, r *http.Request) {
	req, ok := h.parseWeatherRequest(w, r)
	if !ok {
		return
	}
	result, err := h.weatherService.RefreshWeather(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

// parseWeatherRequest validates query parameters before any orchestration.
func (h *Handler) parseWeatherRequest(w http.ResponseWriter, r *http.Request) (models.WeatherRequest, bool) {
	postalCode, err := validation.ValidatePostalCode(r.URL.Query().Get("zipCode"))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid Request", err.Error(), r.URL.Path)
		return models.WeatherRequest{}, false
	}
	return models.WeatherRequest{
		PostalCode:  postalCode,
		CountryCode: r.URL.Query().Get("countrycodes"),
	}, true
}

// loginRequest is the POST /api/v1/login body.
type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// Login handles POST /api/v1/login. Returns {token} on success, 401 otherwise.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var body loginRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, r, http.StatusBadRequest, "Invalid Request", "malformed login body", r.URL.Path)
		return
	}
	if err := h.issuer.CheckCredentials(body.Username, body.Password); err != nil {
		observability.AuthFailuresTotal.WithLabelValues("credentials").Inc()
		writeError(w, r, http.StatusUnauthorized, "Unauthorized", "invalid username or password", r.URL.Path)
		return
	}
	token, err := h.issuer.Issue(body.Username)
	if err != nil {
		h.logger.Error("token issue failed", zap.Error(err))
		writeError(w, r, http.StatusInternalServerError, "Internal Server Error", "could not issue token", r.URL.Path)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// GetHealth handles GET /health.
func (h *Handler) GetHealth(w http.ResponseWriter, r *http.Request) {
	if lifecycle.IsShuttingDown() {
		writeJSONStatus(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":    "shutting-down",
			"service":   "zip-weather-service",
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
		return
	}
	status := "healthy"
	statusCode := http.StatusOK
	checks := make(map[string]string)
	if h.cachePing != nil {
		if h.cachePing() == nil {
			checks["cache"] = "healthy"
		} else {
			checks["cache"] = "unhealthy"
			status = "degraded"
			statusCode = http.StatusServiceUnavailable
		}
	}
	writeJSONStatus(w, statusCode, map[string]interface{}{
		"status":    status,
		"service":   "zip-weather-service",
		"checks":    checks,
		"uptime":    time.Since(h.startTime).Truncate(time.Second).String(),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

// writeServiceError is the single place that maps service-layer failures to
// transport responses.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var rlErr *ratelimit.Error
	switch {
	case errors.As(err, &rlErr):
		w.Header().Set("Retry-After", strconv.Itoa(rlErr.RetryAfterSeconds))
		writeError(w, r, rlErr.StatusCode, "Exceeded the rate limit", rlErr.Message, strconv.Itoa(rlErr.RetryAfterSeconds))
	case errors.Is(err, client.ErrLocationNotFound):
		writeError(w, r, http.StatusNotFound, "No Data Found", "no match for the given postal code", r.URL.Path)
	case errors.Is(err, client.ErrUpstreamFailure),
		errors.Is(err, context.DeadlineExceeded):
		writeError(w, r, http.StatusServiceUnavailable, "External API Down", "unable to fetch weather data", r.URL.Path)
	default:
		writeError(w, r, http.StatusInternalServerError, "Internal Server Error", "unexpected failure", r.URL.Path)
	}
	if logger, ok := r.Context().Value("logger").(*zap.Logger); ok && logger != nil {
		logger.Debug("request failed", zap.Error(err))
	}
}

// writeJSON writes a JSON response with the specified HTTP status code.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	writeJSONStatus(w, status, v)
}

func writeJSONStatus(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError writes the structured error body carried by every failure:
// timestamp, status, short category, message, and a context string (request
// path or retry-after seconds depending on category).
func writeError(w http.ResponseWriter, r *http.Request, status int, category, message, details string) {
	writeJSONStatus(w, status, errorBody{
		Timestamp: time.Now().UTC().Format(time.RFC3339),
		Status:    status,
		Error:     category,
		Message:   message,
		Details:   details,
	})
}
