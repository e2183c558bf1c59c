package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/zipweather/zip-weather-service/internal/models"
	"github.com/zipweather/zip-weather-service/internal/observability"
)

// WeatherRefresher is implemented by the service layer to fetch and store a
// fresh result for a request. Defined here to avoid a circular dependency on
// the service package.
type WeatherRefresher interface {
	RefreshWeather(ctx context.Context, req models.WeatherRequest) (models.WeatherResult, error)
}

// Warmer prefetches weather for a list of postal codes so the first real
// lookups hit the cache.
type Warmer struct {
	refresher WeatherRefresher
	logger    *zap.Logger
}

// NewWarmer creates a Warmer that uses the given refresher and logger.
func NewWarmer(refresher WeatherRefresher, logger *zap.Logger) *Warmer {
	return &Warmer{refresher: refresher, logger: logger}
}

// Warm refreshes each postal code concurrently, populating the cache through
// the service's refresh path. Returns an aggregated error if any code failed.
func (w *Warmer) Warm(ctx context.Context, postalCodes []string) error {
	start := time.Now()
	observability.CacheWarmingTotal.Inc()
	if w.logger != nil {
		w.logger.Info("warming cache", zap.Int("postal_codes", len(postalCodes)))
	}
	var wg sync.WaitGroup
	errCh := make(chan error, len(postalCodes))
	for _, code := range postalCodes {
		code := code
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := w.refresher.RefreshWeather(ctx, models.WeatherRequest{PostalCode: code})
			if err != nil {
				errCh <- fmt.Errorf("warm %s: %w", code, err)
			}
		}()
	}
	wg.Wait()
	close(errCh)
	var errs []error
	for err := range errCh {
		errs = append(errs, err)
	}
	duration := time.Since(start).Seconds()
	observability.CacheWarmingDurationSeconds.Observe(duration)
	if w.logger != nil {
		w.logger.Info("cache warming complete", zap.Int("postal_codes", len(postalCodes)), zap.Int("errors", len(errs)), zap.Float64("duration_seconds", duration))
	}
	if len(errs) > 0 {
		observability.CacheWarmingErrorsTotal.Inc()
		return fmt.Errorf("cache warming: %v", errs)
	}
	return nil
}

// WarmPeriodic runs an initial Warm, then refreshes at the given interval
// until ctx is done.
func (w *Warmer) WarmPeriodic(ctx context.Context, postalCodes []string, interval time.Duration) error {
	if err := w.Warm(ctx, postalCodes); err != nil && w.logger != nil {
		w.logger.Warn("initial cache warm failed", zap.Error(err))
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := w.Warm(ctx, postalCodes); err != nil && w.logger != nil {
				w.logger.Warn("periodic cache warm failed", zap.Error(err))
			}
		}
	}
}
