package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/zipweather/zip-weather-service/internal/cache"
	"github.com/zipweather/zip-weather-service/internal/client"
	"github.com/zipweather/zip-weather-service/internal/models"
	"github.com/zipweather/zip-weather-service/internal/observability"
	"github.com/zipweather/zip-weather-service/internal/ratelimit"
)

// WeatherService orchestrates weather retrieval: cache check, then geocoding
// and weather fetch on a miss, each guarded by its own call-budget policy.
// All dependencies are injected; the service holds no global state.
type WeatherService struct {
	geocoder   client.GeocodingClient
	weather    client.WeatherClient
	cache      cache.Cache
	geoLimiter *ratelimit.Policy
	wxLimiter  *ratelimit.Policy
}

// NewWeatherService creates a WeatherService with the provided dependencies.
// geoLimiter guards geocoding calls, wxLimiter guards weather calls; they are
// independent budgets, never shared.
func NewWeatherService(geocoder client.GeocodingClient, weather client.WeatherClient, c cache.Cache, geoLimiter, wxLimiter *ratelimit.Policy) *WeatherService {
	return &WeatherService{
		geocoder:   geocoder,
		weather:    weather,
		cache:      c,
		geoLimiter: geoLimiter,
		wxLimiter:  wxLimiter,
	}
}

// DeriveKey builds the cache key for a request: the postal code alone when
// the country code is blank, else postalCode + "_" + upper(countryCode).
// Country code is case-folded so "us" and "US" share an entry.
func DeriveKey(req models.WeatherRequest) string {
	country := strings.TrimSpace(req.CountryCode)
	if country == "" {
		return req.PostalCode
	}
	return req.PostalCode + "_" + strings.ToUpper(country)
}

// loggerFromContext extracts the request-scoped zap.Logger if present.
func loggerFromContext(ctx context.Context) *zap.Logger {
	if v := ctx.Value("logger"); v != nil {
		if l, ok := v.(*zap.Logger); ok && l != nil {
			return l
		}
	}
	return nil
}

// GetWeather retrieves the weather for a request. A cache hit returns
// immediately with FromCache=true and no upstream calls. On a miss the
// geocoding call runs first (guarded by the coordinates policy), then the
// weather fetch (guarded by the weather policy); the result is stored in the
// cache with FromCache=false before returning.
func (s *WeatherService) GetWeather(ctx context.Context, req models.WeatherRequest) (models.WeatherResult, error) {
	key := DeriveKey(req)
	start := time.Now()
	logger := loggerFromContext(ctx)

	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		observability.CacheErrorsTotal.WithLabelValues("get").Inc()
		if logger != nil {
			logger.Warn("cache get failed", zap.String("key", key), zap.Error(err))
		}
	} else if ok {
		observability.CacheHitsTotal.Inc()
		cached.FromCache = true
		if logger != nil {
			logger.Debug("cache hit", zap.String("key", key))
			logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", true), zap.Duration("duration", time.Since(start)))
		}
		return cached, nil
	}

	observability.CacheMissesTotal.Inc()
	if logger != nil {
		logger.Debug("cache miss, fetching upstream", zap.String("key", key))
	}

	result, err := s.fetchAndStore(ctx, req, key)
	if err != nil {
		return models.WeatherResult{}, err
	}
	if logger != nil {
		logger.Debug("weather served", zap.String("key", key), zap.Bool("cached", false), zap.Duration("duration", time.Since(start)))
	}
	return result, nil
}

// RefreshWeather fetches fresh data unconditionally, overwriting any cached
// entry for the key. The returned result always has FromCache=false.
func (s *WeatherService) RefreshWeather(ctx context.Context, req models.WeatherRequest) (models.WeatherResult, error) {
	key := DeriveKey(req)
	if logger := loggerFromContext(ctx); logger != nil {
		logger.Debug("forced refresh", zap.String("key", key))
	}
	return s.fetchAndStore(ctx, req, key)
}

// fetchAndStore runs the guarded geocode-then-fetch sequence and populates
// the cache on success. A geocoding miss short-circuits: the weather call is
// never attempted after ErrLocationNotFound.
func (s *WeatherService) fetchAndStore(ctx context.Context, req models.WeatherRequest, key string) (models.WeatherResult, error) {
	logger := loggerFromContext(ctx)

	if err := s.geoLimiter.Allow(); err != nil {
		observability.RateLimitTrippedTotal.WithLabelValues("geocoding").Inc()
		if logger != nil {
			logger.Warn("coordinates rate limit tripped", zap.String("key", key))
		}
		return models.WeatherResult{}, err
	}

	coords, err := s.geocoder.Resolve(ctx, req.PostalCode, strings.TrimSpace(req.CountryCode))
	if err != nil {
		if errors.Is(err, client.ErrLocationNotFound) {
			return models.WeatherResult{}, err
		}
		return models.WeatherResult{}, fmt.Errorf("resolve coordinates for %s: %w", key, err)
	}

	if err := s.wxLimiter.Allow(); err != nil {
		observability.RateLimitTrippedTotal.WithLabelValues("weather").Inc()
		if logger != nil {
			logger.Warn("weather rate limit tripped", zap.String("key", key))
		}
		return models.WeatherResult{}, err
	}

	result, err := s.weather.Fetch(ctx, coords.Latitude, coords.Longitude)
	if err != nil {
		return models.WeatherResult{}, fmt.Errorf("fetch weather for %s: %w", key, err)
	}
	result.FromCache = false

	if setErr := s.cache.Set(ctx, key, result); setErr != nil {
		observability.CacheErrorsTotal.WithLabelValues("set").Inc()
		if logger != nil {
			logger.Warn("cache set failed", zap.String("key", key), zap.Error(setErr))
		}
	}
	return result, nil
}
