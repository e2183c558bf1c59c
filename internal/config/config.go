package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds service configuration loaded from YAML and env.
type Config struct {
	ServerPort string

	GeoAPIURL       string
	WeatherAPIURL   string
	UpstreamTimeout time.Duration

	RequestTimeout time.Duration

	CacheBackend    string // "in_memory", "memcached" or "redis"
	CacheTTL        time.Duration
	CacheMaxEntries int

	MemcachedAddrs        string
	MemcachedTimeout      time.Duration
	MemcachedMaxIdleConns int

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	GeoRateLimit      int
	GeoRateWindow     time.Duration
	WeatherRateLimit  int
	WeatherRateWindow time.Duration

	RateLimitRPS   int
	RateLimitBurst int

	AuthUsername string
	AuthPassword string
	AuthSecret   string
	TokenTTL     time.Duration

	WarmPostalCodes []string
	WarmInterval    time.Duration

	ShutdownTimeout               time.Duration
	ShutdownInFlightTimeout       time.Duration
	ShutdownInFlightCheckInterval time.Duration
}

type fileConfig struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	GeoAPI struct {
		URL string `yaml:"url"`
	} `yaml:"geo_api"`

	WeatherAPI struct {
		URL string `yaml:"url"`
	} `yaml:"weather_api"`

	Upstream struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"upstream"`

	Request struct {
		Timeout string `yaml:"timeout"`
	} `yaml:"request"`

	Cache struct {
		Backend    string `yaml:"backend"`
		TTL        string `yaml:"ttl"`
		MaxEntries int    `yaml:"max_entries"`
		Memcached  struct {
			Addrs        string `yaml:"addrs"`
			Timeout      string `yaml:"timeout"`
			MaxIdleConns int    `yaml:"max_idle_conns"`
		} `yaml:"memcached"`
		Redis struct {
			Addr     string `yaml:"addr"`
			Password string `yaml:"password"`
			DB       int    `yaml:"db"`
		} `yaml:"redis"`
	} `yaml:"cache"`

	RateLimits struct {
		GeoLimit      int    `yaml:"geo_limit"`
		GeoWindow     string `yaml:"geo_window"`
		WeatherLimit  int    `yaml:"weather_limit"`
		WeatherWindow string `yaml:"weather_window"`
		InboundRPS    int    `yaml:"inbound_rps"`
		InboundBurst  int    `yaml:"inbound_burst"`
	} `yaml:"rate_limits"`

	Auth struct {
		Username string `yaml:"username"`
		Password string `yaml:"password"`
		TokenTTL string `yaml:"token_ttl"`
	} `yaml:"auth"`

	Warming struct {
		PostalCodes []string `yaml:"postal_codes"`
		Interval    string   `yaml:"interval"`
	} `yaml:"warming"`

	Shutdown struct {
		Timeout               string `yaml:"timeout"`
		InFlightTimeout       string `yaml:"in_flight_timeout"`
		InFlightCheckInterval string `yaml:"in_flight_check_interval"`
	} `yaml:"shutdown"`
}

type secretsFile struct {
	AuthSecret   string `yaml:"auth_secret"`
	AuthPassword string `yaml:"auth_password"`
}

// Load reads configuration from config/{ENV_NAME}.yaml (default dev) and
// config/secrets.yaml. The JWT signing secret comes from AUTH_SECRET env or
// the secrets file; when absent a random per-process key is generated by the
// auth package. Call from project root.
func Load() (*Config, error) {
	env := os.Getenv("ENV_NAME")
	if env == "" {
		env = "dev"
	}

	cwd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("config: get working directory: %w", err)
	}
	configPath := filepath.Join(cwd, "config", env+".yaml")
	data, err := os.ReadFile(configPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config file not found: %s", configPath)
		}
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return nil, fmt.Errorf("parse config file: %w", err)
	}

	cfg := &Config{}

	cfg.ServerPort = fc.Server.Port
	if cfg.ServerPort == "" {
		cfg.ServerPort = "8080"
	}

	cfg.GeoAPIURL = fc.GeoAPI.URL
	if cfg.GeoAPIURL == "" {
		cfg.GeoAPIURL = "https://nominatim.openstreetmap.org/search"
	}
	cfg.WeatherAPIURL = fc.WeatherAPI.URL
	if cfg.WeatherAPIURL == "" {
		cfg.WeatherAPIURL = "https://api.open-meteo.com/v1/forecast"
	}
	cfg.UpstreamTimeout = parseDuration(fc.Upstream.Timeout, 5*time.Second)
	cfg.RequestTimeout = parseDuration(fc.Request.Timeout, 15*time.Second)

	cfg.CacheBackend = strings.TrimSpace(strings.ToLower(os.Getenv("CACHE_BACKEND")))
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = strings.TrimSpace(strings.ToLower(fc.Cache.Backend))
	}
	if cfg.CacheBackend == "" {
		cfg.CacheBackend = "in_memory"
	}
	cfg.CacheTTL = parseDuration(fc.Cache.TTL, 10*time.Minute)
	cfg.CacheMaxEntries = fc.Cache.MaxEntries
	if cfg.CacheMaxEntries <= 0 {
		cfg.CacheMaxEntries = 100
	}

	cfg.MemcachedAddrs = strings.TrimSpace(os.Getenv("MEMCACHED_ADDRS"))
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = strings.TrimSpace(fc.Cache.Memcached.Addrs)
	}
	if cfg.MemcachedAddrs == "" {
		cfg.MemcachedAddrs = "localhost:11211"
	}
	cfg.MemcachedTimeout = parseDuration(fc.Cache.Memcached.Timeout, 500*time.Millisecond)
	cfg.MemcachedMaxIdleConns = fc.Cache.Memcached.MaxIdleConns
	if cfg.MemcachedMaxIdleConns <= 0 {
		cfg.MemcachedMaxIdleConns = 2
	}

	cfg.RedisAddr = strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = strings.TrimSpace(fc.Cache.Redis.Addr)
	}
	if cfg.RedisAddr == "" {
		cfg.RedisAddr = "localhost:6379"
	}
	cfg.RedisPassword = os.Getenv("REDIS_PASSWORD")
	if cfg.RedisPassword == "" {
		cfg.RedisPassword = fc.Cache.Redis.Password
	}
	cfg.RedisDB = fc.Cache.Redis.DB

	cfg.GeoRateLimit = fc.RateLimits.GeoLimit
	if cfg.GeoRateLimit <= 0 {
		cfg.GeoRateLimit = 5
	}
	cfg.GeoRateWindow = parseDuration(fc.RateLimits.GeoWindow, time.Minute)
	cfg.WeatherRateLimit = fc.RateLimits.WeatherLimit
	if cfg.WeatherRateLimit <= 0 {
		cfg.WeatherRateLimit = 10
	}
	cfg.WeatherRateWindow = parseDuration(fc.RateLimits.WeatherWindow, time.Minute)

	cfg.RateLimitRPS = fc.RateLimits.InboundRPS
	if cfg.RateLimitRPS <= 0 {
		cfg.RateLimitRPS = 100
	}
	cfg.RateLimitBurst = fc.RateLimits.InboundBurst
	if cfg.RateLimitBurst <= 0 {
		cfg.RateLimitBurst = 250
	}

	cfg.AuthUsername = fc.Auth.Username
	if cfg.AuthUsername == "" {
		cfg.AuthUsername = "admin"
	}
	cfg.AuthPassword = os.Getenv("AUTH_PASSWORD")
	cfg.AuthSecret = os.Getenv("AUTH_SECRET")
	if cfg.AuthPassword == "" || cfg.AuthSecret == "" {
		secretsPath := filepath.Join(cwd, "config", "secrets.yaml")
		secretsData, err := os.ReadFile(secretsPath)
		if err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("read secrets file: %w", err)
			}
		} else {
			var sec secretsFile
			if err := yaml.Unmarshal(secretsData, &sec); err != nil {
				return nil, fmt.Errorf("parse secrets file: %w", err)
			}
			if cfg.AuthPassword == "" {
				cfg.AuthPassword = sec.AuthPassword
			}
			if cfg.AuthSecret == "" {
				cfg.AuthSecret = sec.AuthSecret
			}
		}
	}
	if cfg.AuthPassword == "" {
		cfg.AuthPassword = fc.Auth.Password
	}
	if cfg.AuthPassword == "" {
		// development stub credential; replace via AUTH_PASSWORD or secrets.yaml
		cfg.AuthPassword = "password123"
	}
	cfg.TokenTTL = parseDuration(fc.Auth.TokenTTL, 15*time.Minute)

	cfg.WarmPostalCodes = fc.Warming.PostalCodes
	cfg.WarmInterval = parseDurationOrZero(fc.Warming.Interval, 0)

	cfg.ShutdownTimeout = parseDuration(fc.Shutdown.Timeout, 30*time.Second)
	cfg.ShutdownInFlightTimeout = parseDuration(fc.Shutdown.InFlightTimeout, 10*time.Second)
	cfg.ShutdownInFlightCheckInterval = parseDuration(fc.Shutdown.InFlightCheckInterval, 100*time.Millisecond)

	if err := validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseDuration parses a duration string and returns defaultVal if parsing
// fails or the result is <= 0.
func parseDuration(s string, defaultVal time.Duration) time.Duration {
	d := parseDurationOrZero(s, defaultVal)
	if d <= 0 {
		return defaultVal
	}
	return d
}

// parseDurationOrZero parses a duration string, returning defaultVal on empty
// string or parse error. Zero or negative results are returned as-is.
func parseDurationOrZero(s string, defaultVal time.Duration) time.Duration {
	s = strings.TrimSpace(s)
	if s == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return defaultVal
	}
	return d
}

// validate performs post-load validation. The request timeout must exceed the
// upstream timeout so a slow upstream surfaces as 503 rather than a dead
// connection. Auto-adjusts RequestTimeout if needed.
func validate(cfg *Config) error {
	if cfg.UpstreamTimeout <= 0 {
		return fmt.Errorf("upstream.timeout must be positive")
	}
	if cfg.RequestTimeout <= cfg.UpstreamTimeout {
		cfg.RequestTimeout = 2*cfg.UpstreamTimeout + time.Second
	}
	switch cfg.CacheBackend {
	case "in_memory", "memcached", "redis":
		// valid
	default:
		return fmt.Errorf("cache.backend must be in_memory, memcached or redis, got %q", cfg.CacheBackend)
	}
	return nil
}
