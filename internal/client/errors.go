package client

import (
	"context"
	"errors"
)

var (
	// ErrLocationNotFound means the geocoding provider returned zero matches
	// for the postal code. The weather fetch must not be attempted after it.
	ErrLocationNotFound = errors.New("location not found")

	// ErrUpstreamFailure covers transport failures, non-2xx responses and
	// unparseable or incomplete payloads from either provider.
	ErrUpstreamFailure = errors.New("upstream failure")
)

// extractCorrelationID pulls the request correlation ID out of context, if
// set by the HTTP middleware. Empty string when absent.
func extractCorrelationID(ctx context.Context) string {
	if v := ctx.Value("correlation_id"); v != nil {
		if corrID, ok := v.(string); ok {
			return corrID
		}
	}
	return ""
}

// statusLabel buckets an HTTP status code into a stable metric label.
func statusLabel(statusCode int) string {
	if statusCode >= 200 && statusCode < 300 {
		return "success"
	}
	if statusCode == 429 {
		return "rate_limited"
	}
	if statusCode >= 400 && statusCode < 500 {
		return "client_error"
	}
	if statusCode >= 500 {
		return "server_error"
	}
	return "error"
}
