package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/titanous/json5"
)

// Sink kinds understood by the sync command
const (
	SinkSupabase = "supabase"
	SinkPostgres = "postgres"
	SinkRedis    = "redis"
)

// Config represents the application configuration. It is built once at
// process entry and only read afterwards.
type Config struct {
	// Persistence
	Sink                 string `json:"sink"`
	SupabaseURL          string `json:"supabase_url"`
	SupabaseKey          string `json:"supabase_key"`
	SupabaseTable        string `json:"supabase_table"`
	DatabaseURL          string `json:"database_url"`
	PostgresAutoMigrate  bool   `json:"postgres_auto_migrate"`
	RedisAddr            string `json:"redis_addr"`
	RedisDB              int    `json:"redis_db"`
	RedisStream          string `json:"redis_stream"`
	RedisStreamMaxLength int    `json:"redis_stream_max_length"`

	// Memcache holds the rate limit cooldown shared between runs. Empty
	// means an in-process cache.
	MemcacheAddr string `json:"memcache_addr"`

	// Politeness, in seconds
	RequestDelayMin   float64 `json:"request_delay_min"`
	RequestDelayMax   float64 `json:"request_delay_max"`
	MaxRetries        int     `json:"max_retries"`
	RateLimitCooldown float64 `json:"rate_limit_cooldown"`

	// Transport
	HTTPTimeout    float64 `json:"http_timeout"`
	HTTPProxyURL   string  `json:"http_proxy_url"`
	ChromeHeadless bool    `json:"chrome_headless"`

	// Source URLs
	IdealistaURL       string `json:"idealista_url"`
	SpainRealEstateURL string `json:"spain_real_estate_url"`
	Region             string `json:"region"`
	RegionID           int    `json:"region_id"`

	// Environment
	Environment string `json:"environment"`
}

// LoadConfig loads the configuration from environment variables with defaults
func LoadConfig() *Config {
	redisDB, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	streamMaxLength, _ := strconv.Atoi(getEnv("REDIS_STREAM_MAX_LENGTH", "10000"))
	delayMin, _ := strconv.ParseFloat(getEnv("REQUEST_DELAY_MIN", "2.0"), 64)
	delayMax, _ := strconv.ParseFloat(getEnv("REQUEST_DELAY_MAX", "5.0"), 64)
	maxRetries, _ := strconv.Atoi(getEnv("MAX_RETRIES", "3"))
	cooldown, _ := strconv.ParseFloat(getEnv("RATE_LIMIT_COOLDOWN_SECONDS", "60"), 64)
	httpTimeout, _ := strconv.ParseFloat(getEnv("HTTP_TIMEOUT_SECONDS", "30"), 64)
	headless, _ := strconv.ParseBool(getEnv("CHROME_HEADLESS", "true"))
	autoMigrate, _ := strconv.ParseBool(getEnv("POSTGRES_AUTO_MIGRATE", "false"))
	regionID, _ := strconv.Atoi(getEnv("REGION_ID", "4120"))

	return &Config{
		Sink:                 getEnv("SINK", SinkSupabase),
		SupabaseURL:          os.Getenv("SUPABASE_URL"),
		SupabaseKey:          os.Getenv("SUPABASE_KEY"),
		SupabaseTable:        getEnv("SUPABASE_TABLE", "properties"),
		DatabaseURL:          os.Getenv("DATABASE_URL"),
		PostgresAutoMigrate:  autoMigrate,
		RedisAddr:            getEnv("REDIS_ADDR", "localhost:6379"),
		RedisDB:              redisDB,
		RedisStream:          getEnv("REDIS_STREAM", "properties"),
		RedisStreamMaxLength: streamMaxLength,
		MemcacheAddr:         os.Getenv("MEMCACHE_ADDR"),
		RequestDelayMin:      delayMin,
		RequestDelayMax:      delayMax,
		MaxRetries:           maxRetries,
		RateLimitCooldown:    cooldown,
		HTTPTimeout:          httpTimeout,
		HTTPProxyURL:         os.Getenv("HTTP_PROXY_URL"),
		ChromeHeadless:       headless,
		IdealistaURL:         strings.TrimRight(getEnv("IDEALISTA_URL", "https://www.idealista.com"), "/"),
		SpainRealEstateURL:   strings.TrimRight(getEnv("SPAIN_REAL_ESTATE_URL", "https://spain-real.estate"), "/"),
		Region:               getEnv("REGION", "Valencian Community"),
		RegionID:             regionID,
		Environment:          getEnv("MIRASCRAPER_ENVIRONMENT", "development"),
	}
}

// Load builds the configuration from the environment and, when path is not
// empty, overlays the JSON5 file at path and its ".local" sibling. Every key
// present in a file overrides, including false and 0.
func Load(path string) (*Config, error) {
	cfg := LoadConfig()
	if path == "" {
		return cfg, nil
	}

	if err := ReadFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	cfg.IdealistaURL = strings.TrimRight(cfg.IdealistaURL, "/")
	cfg.SpainRealEstateURL = strings.TrimRight(cfg.SpainRealEstateURL, "/")
	return cfg, nil
}

// ReadFile decodes a JSON5 file into out, then "<name>.local.<ext>" on top
// of it when present. Keys missing from both files keep the value out
// already had. Returns os.ErrNotExist when neither file exists.
func ReadFile(name string, out any) error {
	found := false
	ext := filepath.Ext(name)
	local := strings.TrimSuffix(name, ext) + ".local" + ext

	for _, file := range []string{name, local} {
		data, err := os.ReadFile(file)
		if err != nil {
			if os.IsNotExist(err) {
				continue
			}
			return err
		}
		if len(data) == 0 {
			continue
		}
		if err := json5.Unmarshal(data, out); err != nil {
			return fmt.Errorf("%s: %w", file, err)
		}
		found = true
	}

	if !found {
		return os.ErrNotExist
	}
	return nil
}

// Validate checks the configuration for obvious mistakes
func (c *Config) Validate() error {
	if c.RequestDelayMin < 0 || c.RequestDelayMax < c.RequestDelayMin {
		return fmt.Errorf("invalid request delay bounds: min=%.1f max=%.1f", c.RequestDelayMin, c.RequestDelayMax)
	}
	if c.MaxRetries < 1 {
		return fmt.Errorf("MAX_RETRIES must be at least 1, got %d", c.MaxRetries)
	}
	switch c.Sink {
	case SinkSupabase, SinkPostgres, SinkRedis:
	default:
		return fmt.Errorf("unknown sink %q", c.Sink)
	}
	return nil
}

// DelayBounds returns the politeness delay bounds as durations
func (c *Config) DelayBounds() (time.Duration, time.Duration) {
	return seconds(c.RequestDelayMin), seconds(c.RequestDelayMax)
}

// Cooldown returns the base wait applied after a 403
func (c *Config) Cooldown() time.Duration {
	return seconds(c.RateLimitCooldown)
}

// Timeout returns the per-request transport timeout
func (c *Config) Timeout() time.Duration {
	return seconds(c.HTTPTimeout)
}

func seconds(v float64) time.Duration {
	return time.Duration(v * float64(time.Second))
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}
