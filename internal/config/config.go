// Package config loads service configuration.
//
// Sources, lowest precedence first: built-in defaults, an optional YAML file
// named by CONFIG_FILE, then environment variables (a .env file is loaded
// into the environment when present).
package config

import (
	"errors"
	"fmt"
	"os"
	"storefront-distance-service/internal/services"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const (
	CacheMemory   = "memory"
	CacheRedis    = "redis"
	CachePostgres = "postgres"
	CacheSQLite   = "sqlite"

	RoutingOSRM      = "osrm"
	RoutingHaversine = "haversine"
)

type Config struct {
	Port      string         `yaml:"port"`
	UserAgent string         `yaml:"user_agent"`
	Routing   RoutingConfig  `yaml:"routing"`
	Geocode   GeocodeConfig  `yaml:"geocode"`
	Pipeline  PipelineConfig `yaml:"pipeline"`
	Cache     CacheConfig    `yaml:"cache"`
	Log       LogConfig      `yaml:"log"`
}

type RoutingConfig struct {
	Backend string        `yaml:"backend"` // osrm, haversine
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type GeocodeConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Timeout   time.Duration `yaml:"timeout"`
	RateEvery time.Duration `yaml:"rate_every"`
}

// PipelineConfig tunes pacing of routing requests.
type PipelineConfig struct {
	BatchSize      int           `yaml:"batch_size"`
	QueueDelay     time.Duration `yaml:"queue_delay"`
	BatchDelay     time.Duration `yaml:"batch_delay"`
	RateLimitDelay time.Duration `yaml:"rate_limit_delay"`
}

type CacheConfig struct {
	Backend     string        `yaml:"backend"` // memory, redis, postgres, sqlite
	Size        int           `yaml:"size"`    // 0 = unbounded
	TTL         time.Duration `yaml:"ttl"`     // 0 = never expires
	RedisAddr   string        `yaml:"redis_addr"`
	DatabaseURL string        `yaml:"database_url"`
	SQLitePath  string        `yaml:"sqlite_path"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, console
}

func Default() *Config {
	return &Config{
		Port:      "8080",
		UserAgent: "storefront-distance-service/1.0",
		Routing: RoutingConfig{
			Backend: RoutingOSRM,
			BaseURL: "https://router.project-osrm.org/table/v1",
			Timeout: 10 * time.Second,
		},
		Geocode: GeocodeConfig{
			BaseURL:   "https://nominatim.openstreetmap.org",
			Timeout:   10 * time.Second,
			RateEvery: time.Second,
		},
		Pipeline: PipelineConfig{
			BatchSize:      services.MaxDestinationsPerRequest,
			QueueDelay:     time.Second,
			BatchDelay:     time.Second,
			RateLimitDelay: time.Second,
		},
		Cache: CacheConfig{
			Backend:    CacheMemory,
			RedisAddr:  "localhost:6379",
			SQLitePath: "data/distances.db",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadDotEnv loads .env into the process environment. A missing file is not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("load env file %q: %w", p, err)
		}
	}
	return nil
}

// Load builds the configuration from defaults, the optional YAML file and the environment.
func Load() (*Config, error) {
	cfg := Default()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnvOverrides()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %q: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %q: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() {
	c.Port = Get("PORT", c.Port)
	c.UserAgent = Get("USER_AGENT", c.UserAgent)

	c.Routing.Backend = Get("ROUTING_BACKEND", c.Routing.Backend)
	c.Routing.BaseURL = Get("ROUTING_BASE_URL", c.Routing.BaseURL)
	c.Routing.Timeout = getDuration("HTTP_TIMEOUT", c.Routing.Timeout)

	c.Geocode.BaseURL = Get("GEOCODE_BASE_URL", c.Geocode.BaseURL)
	c.Geocode.Timeout = getDuration("HTTP_TIMEOUT", c.Geocode.Timeout)
	c.Geocode.RateEvery = getDuration("GEOCODE_RATE_EVERY", c.Geocode.RateEvery)

	c.Pipeline.BatchSize = getInt("BATCH_SIZE", c.Pipeline.BatchSize)
	c.Pipeline.QueueDelay = getDuration("QUEUE_DELAY", c.Pipeline.QueueDelay)
	c.Pipeline.BatchDelay = getDuration("BATCH_DELAY", c.Pipeline.BatchDelay)
	c.Pipeline.RateLimitDelay = getDuration("RATE_LIMIT_DELAY", c.Pipeline.RateLimitDelay)

	c.Cache.Backend = Get("CACHE_BACKEND", c.Cache.Backend)
	c.Cache.Size = getInt("CACHE_SIZE", c.Cache.Size)
	c.Cache.TTL = getDuration("CACHE_TTL", c.Cache.TTL)
	c.Cache.RedisAddr = Get("REDIS_ADDR", c.Cache.RedisAddr)
	c.Cache.DatabaseURL = Get("DATABASE_URL", c.Cache.DatabaseURL)
	c.Cache.SQLitePath = Get("SQLITE_PATH", c.Cache.SQLitePath)

	c.Log.Level = Get("LOG_LEVEL", c.Log.Level)
	c.Log.Format = Get("LOG_FORMAT", c.Log.Format)
}

func (c *Config) Validate() error {
	switch c.Routing.Backend {
	case RoutingOSRM, RoutingHaversine:
	default:
		return fmt.Errorf("config: unknown routing backend %q", c.Routing.Backend)
	}

	switch c.Cache.Backend {
	case CacheMemory:
	case CacheRedis:
		if strings.TrimSpace(c.Cache.RedisAddr) == "" {
			return errors.New("config: REDIS_ADDR is required for the redis cache")
		}
	case CachePostgres:
		if strings.TrimSpace(c.Cache.DatabaseURL) == "" {
			return errors.New("config: DATABASE_URL is required for the postgres cache")
		}
	case CacheSQLite:
		if strings.TrimSpace(c.Cache.SQLitePath) == "" {
			return errors.New("config: SQLITE_PATH is required for the sqlite cache")
		}
	default:
		return fmt.Errorf("config: unknown cache backend %q", c.Cache.Backend)
	}

	if c.Pipeline.BatchSize < 1 || c.Pipeline.BatchSize > services.MaxDestinationsPerRequest {
		return fmt.Errorf("config: batch size must be between 1 and %d, got %d",
			services.MaxDestinationsPerRequest, c.Pipeline.BatchSize)
	}
	if c.Pipeline.QueueDelay < 0 || c.Pipeline.BatchDelay < 0 || c.Pipeline.RateLimitDelay < 0 {
		return errors.New("config: pipeline delays must not be negative")
	}
	return nil
}

// Get returns the environment value for key, or fallback when it is unset or empty.
func Get(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}
