package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/zipweather/zip-weather-service/internal/auth"
	"github.com/zipweather/zip-weather-service/internal/cache"
	"github.com/zipweather/zip-weather-service/internal/client"
	"github.com/zipweather/zip-weather-service/internal/config"
	httphandler "github.com/zipweather/zip-weather-service/internal/http"
	"github.com/zipweather/zip-weather-service/internal/lifecycle"
	"github.com/zipweather/zip-weather-service/internal/observability"
	"github.com/zipweather/zip-weather-service/internal/ratelimit"
	"github.com/zipweather/zip-weather-service/internal/service"
)

func main() {
	logger, err := observability.NewLogger()
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}

	geocoder, err := client.NewNominatimClient(cfg.GeoAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("geocoding client", zap.Error(err))
	}
	weatherClient, err := client.NewOpenMeteoClient(cfg.WeatherAPIURL, cfg.UpstreamTimeout)
	if err != nil {
		logger.Fatal("weather client", zap.Error(err))
	}

	var cacheSvc cache.Cache
	var cachePing func() error
	var cacheCloser interface{ Close() error }
	switch cfg.CacheBackend {
	case "memcached":
		mc, err := cache.NewMemcachedCache(cfg.MemcachedAddrs, cfg.MemcachedTimeout, cfg.MemcachedMaxIdleConns, cfg.CacheTTL)
		if err != nil {
			logger.Fatal("memcached cache", zap.Error(err))
		}
		cacheSvc = mc
		cachePing = mc.Ping
		cacheCloser = mc
		logger.Info("cache backend: memcached", zap.String("addrs", cfg.MemcachedAddrs))
	case "redis":
		rc, err := cache.NewRedisCache(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB, cfg.CacheTTL)
		if err != nil {
			logger.Fatal("redis cache", zap.Error(err))
		}
		cacheSvc = rc
		cachePing = rc.Ping
		cacheCloser = rc
		logger.Info("cache backend: redis", zap.String("addr", cfg.RedisAddr))
	default:
		cacheSvc = cache.NewInMemoryCache(cfg.CacheMaxEntries, cfg.CacheTTL)
		logger.Info("cache backend: in_memory", zap.Int("max_entries", cfg.CacheMaxEntries), zap.Duration("ttl", cfg.CacheTTL))
	}

	geoLimiter := ratelimit.NewPolicy(cfg.GeoRateLimit, cfg.GeoRateWindow,
		http.StatusTooManyRequests, "coordinates service rate limit", 1200)
	wxLimiter := ratelimit.NewPolicy(cfg.WeatherRateLimit, cfg.WeatherRateWindow,
		http.StatusServiceUnavailable, "weather service rate limit", 3600)

	weatherService := service.NewWeatherService(geocoder, weatherClient, cacheSvc, geoLimiter, wxLimiter)

	issuer, err := auth.NewTokenIssuer(cfg.AuthSecret, cfg.TokenTTL, cfg.AuthUsername, cfg.AuthPassword)
	if err != nil {
		logger.Fatal("token issuer", zap.Error(err))
	}
	if cfg.AuthSecret == "" {
		logger.Warn("no auth secret configured; tokens will not survive restarts")
	}

	var limiter *rate.Limiter
	if cfg.RateLimitRPS > 0 {
		limiter = rate.NewLimiter(rate.Limit(cfg.RateLimitRPS), cfg.RateLimitBurst)
	}
	handler := httphandler.NewHandler(weatherService, issuer, logger, cachePing)

	if len(cfg.WarmPostalCodes) > 0 {
		warmer := cache.NewWarmer(weatherService, logger)
		if cfg.WarmInterval > 0 {
			go func() {
				if err := warmer.WarmPeriodic(context.Background(), cfg.WarmPostalCodes, cfg.WarmInterval); err != nil && err != context.Canceled {
					logger.Error("periodic cache warming stopped", zap.Error(err))
				}
			}()
		} else {
			warmCtx, warmCancel := context.WithTimeout(context.Background(), 30*time.Second)
			if err := warmer.Warm(warmCtx, cfg.WarmPostalCodes); err != nil {
				logger.Warn("cache warming failed", zap.Error(err))
			}
			warmCancel()
		}
	}

	router := mux.NewRouter()
	router.Use(httphandler.CorrelationIDMiddleware(logger))
	router.Use(httphandler.MetricsMiddleware)
	router.HandleFunc("/health", handler.GetHealth).Methods("GET")
	router.Handle("/metrics", observability.MetricsHandler())
	router.HandleFunc("/api/v1/login", handler.Login).Methods("POST")

	weatherRouter := router.PathPrefix("/api/v1/weather").Subrouter()
	weatherRouter.Use(httphandler.AuthMiddleware(issuer))
	weatherRouter.Use(httphandler.RateLimitMiddleware(limiter))
	weatherRouter.Use(httphandler.TimeoutMiddleware(cfg.RequestTimeout))
	weatherRouter.HandleFunc("", handler.GetWeather).Methods("GET")
	weatherRouter.HandleFunc("/refresh", handler.RefreshWeather).Methods("POST")

	srv := &http.Server{
		Addr:         ":" + cfg.ServerPort,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("server starting", zap.String("addr", ":"+cfg.ServerPort))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	<-ctx.Done()
	stop()

	logger.Info("graceful shutdown triggered")
	lifecycle.SetShuttingDown(true)
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}

	inFlight := httphandler.InFlightCount()
	logger.Info("waiting for in-flight requests", zap.Int64("count", inFlight))
	observability.RecordShutdownInFlight(inFlight)
	waitCtx, waitCancel := context.WithTimeout(context.Background(), cfg.ShutdownInFlightTimeout)
	defer waitCancel()
	if err := httphandler.WaitForInFlight(waitCtx, cfg.ShutdownInFlightCheckInterval); err != nil {
		logger.Warn("in-flight requests not completed", zap.Error(err), zap.Int64("remaining", httphandler.InFlightCount()))
	}

	if err := observability.FlushTelemetry(context.Background(), logger); err != nil {
		logger.Error("telemetry flush", zap.Error(err))
	}

	if cacheCloser != nil {
		if err := cacheCloser.Close(); err != nil {
			logger.Error("cache close", zap.Error(err))
		}
	}
	logger.Info("shutdown complete")
}
