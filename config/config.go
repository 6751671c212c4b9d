package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Fetcher     FetcherConfig
	FX          FXConfig `mapstructure:"fx"`
	Cache       CacheConfig
	Nomenclator NomenclatorConfig
	Classifier  ClassifierConfig
	RateLimit   RateLimitConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           string        `mapstructure:"port"`
	Environment    string        `mapstructure:"environment"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
}

// FetcherConfig holds page fetching configuration
type FetcherConfig struct {
	Type          string        `mapstructure:"type"` // "http" or "browser"
	Timeout       time.Duration `mapstructure:"timeout"`
	UserAgent     string        `mapstructure:"user_agent"`
	RatePerSecond float64       `mapstructure:"rate_per_second"`
	Burst         int           `mapstructure:"burst"`
	CacheTTL      time.Duration `mapstructure:"cache_ttl"`
	Headless      bool          `mapstructure:"headless"`
}

// FXConfig holds exchange rate configuration
type FXConfig struct {
	BaseURL           string        `mapstructure:"base_url"`
	MaxAge            time.Duration `mapstructure:"max_age"`
	Timeout           time.Duration `mapstructure:"timeout"`
	ReferenceCurrency string        `mapstructure:"reference_currency"`
	Strict            bool          `mapstructure:"strict"`
}

// CacheConfig holds cache-related configuration
type CacheConfig struct {
	Type     string `mapstructure:"type"` // "memory" or "redis"
	RedisURL string `mapstructure:"redis_url"`
}

// NomenclatorConfig selects where the NCM catalog is loaded from
type NomenclatorConfig struct {
	Source      string `mapstructure:"source"` // "embedded", "file" or "postgres"
	Path        string `mapstructure:"path"`
	DatabaseURL string `mapstructure:"database_url"`
	Table       string `mapstructure:"table"`
}

// ClassifierConfig holds classification tuning
type ClassifierConfig struct {
	MaxCandidates int  `mapstructure:"max_candidates"`
	MaxQueryTerms int  `mapstructure:"max_query_terms"`
	FuzzyDistance int  `mapstructure:"fuzzy_distance"` // 0 disables typo matching
	Debug         bool `mapstructure:"debug"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	PerIP int `mapstructure:"per_ip"` // requests per minute
}

// Load loads configuration from environment variables and config files
func Load() (*Config, error) {
	if err := loadEnvFile(); err != nil {
		return nil, fmt.Errorf("error reading .env file: %w", err)
	}

	v := viper.New()

	// Set config name and paths
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AddConfigPath("/etc/importlens/")

	// IMPORTLENS_SERVER_PORT -> server.port
	v.SetEnvPrefix("IMPORTLENS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional - will use env vars if file doesn't exist)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}

	normalize(&config)

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// loadEnvFile loads a .env file from the working directory into the process
// environment. A missing file is not an error and existing variables win.
func loadEnvFile() error {
	err := godotenv.Load()
	if err != nil && errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}

// setDefaults sets default configuration values. Every key needs a default
// so that AutomaticEnv can override it during Unmarshal.
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.allowed_origins", []string{"chrome-extension://*"})
	v.SetDefault("server.request_timeout", "45s")

	// Fetcher defaults
	v.SetDefault("fetcher.type", "http")
	v.SetDefault("fetcher.timeout", "20s")
	v.SetDefault("fetcher.user_agent", "")
	v.SetDefault("fetcher.rate_per_second", 1.0)
	v.SetDefault("fetcher.burst", 2)
	v.SetDefault("fetcher.cache_ttl", "1h")
	v.SetDefault("fetcher.headless", true)

	// FX defaults
	v.SetDefault("fx.base_url", "https://dolarapi.com")
	v.SetDefault("fx.max_age", "30m")
	v.SetDefault("fx.timeout", "10s")
	v.SetDefault("fx.reference_currency", "ARS")
	v.SetDefault("fx.strict", false)

	// Cache defaults
	v.SetDefault("cache.type", "memory")
	v.SetDefault("cache.redis_url", "")

	// Nomenclator defaults
	v.SetDefault("nomenclator.source", "embedded")
	v.SetDefault("nomenclator.path", "")
	v.SetDefault("nomenclator.database_url", "")
	v.SetDefault("nomenclator.table", "ncm_entries")

	// Classifier defaults
	v.SetDefault("classifier.max_candidates", 10)
	v.SetDefault("classifier.max_query_terms", 32)
	v.SetDefault("classifier.fuzzy_distance", 1)
	v.SetDefault("classifier.debug", false)

	// Rate limit defaults
	v.SetDefault("ratelimit.per_ip", 60)
}

// normalize cleans up values that arrive as free text from env vars
func normalize(config *Config) {
	config.FX.ReferenceCurrency = strings.ToUpper(strings.TrimSpace(config.FX.ReferenceCurrency))
	config.Fetcher.Type = strings.ToLower(strings.TrimSpace(config.Fetcher.Type))
	config.Cache.Type = strings.ToLower(strings.TrimSpace(config.Cache.Type))
	config.Nomenclator.Source = strings.ToLower(strings.TrimSpace(config.Nomenclator.Source))

	// Env values arrive comma-separated, possibly with spaces
	var origins []string
	for _, value := range config.Server.AllowedOrigins {
		for _, origin := range strings.Split(value, ",") {
			if origin = strings.TrimSpace(origin); origin != "" {
				origins = append(origins, origin)
			}
		}
	}
	config.Server.AllowedOrigins = origins
}

// validate validates the configuration
func validate(config *Config) error {
	if config.Fetcher.Type != "http" && config.Fetcher.Type != "browser" {
		return fmt.Errorf("fetcher type must be 'http' or 'browser', got: %s", config.Fetcher.Type)
	}

	if config.Cache.Type != "memory" && config.Cache.Type != "redis" {
		return fmt.Errorf("cache type must be 'memory' or 'redis', got: %s", config.Cache.Type)
	}

	if config.Cache.Type == "redis" && config.Cache.RedisURL == "" {
		return fmt.Errorf("Redis URL is required when cache type is 'redis'")
	}

	switch config.Nomenclator.Source {
	case "embedded":
	case "file":
		if config.Nomenclator.Path == "" {
			return fmt.Errorf("nomenclator path is required when source is 'file'")
		}
	case "postgres":
		if config.Nomenclator.DatabaseURL == "" {
			return fmt.Errorf("nomenclator database URL is required when source is 'postgres'")
		}
	default:
		return fmt.Errorf("nomenclator source must be 'embedded', 'file' or 'postgres', got: %s", config.Nomenclator.Source)
	}

	if len(config.FX.ReferenceCurrency) != 3 {
		return fmt.Errorf("fx reference currency must be an ISO 4217 code, got: %q", config.FX.ReferenceCurrency)
	}

	if config.FX.MaxAge <= 0 {
		return fmt.Errorf("fx max age must be positive, got: %s", config.FX.MaxAge)
	}

	if config.FX.BaseURL == "" {
		return fmt.Errorf("fx base URL is required")
	}

	if config.Classifier.FuzzyDistance < 0 || config.Classifier.FuzzyDistance > 2 {
		return fmt.Errorf("classifier fuzzy distance must be between 0 and 2, got: %d", config.Classifier.FuzzyDistance)
	}

	if config.RateLimit.PerIP < 0 {
		return fmt.Errorf("ratelimit per_ip must not be negative, got: %d", config.RateLimit.PerIP)
	}

	return nil
}
