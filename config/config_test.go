package config

import (
	"os"
	"strings"
	"testing"
	"time"
)

var configEnvVars = []string{
	"IMPORTLENS_SERVER_PORT",
	"IMPORTLENS_SERVER_ENVIRONMENT",
	"IMPORTLENS_SERVER_ALLOWED_ORIGINS",
	"IMPORTLENS_SERVER_REQUEST_TIMEOUT",
	"IMPORTLENS_FETCHER_TYPE",
	"IMPORTLENS_FETCHER_TIMEOUT",
	"IMPORTLENS_FETCHER_RATE_PER_SECOND",
	"IMPORTLENS_FETCHER_CACHE_TTL",
	"IMPORTLENS_FX_BASE_URL",
	"IMPORTLENS_FX_MAX_AGE",
	"IMPORTLENS_FX_REFERENCE_CURRENCY",
	"IMPORTLENS_FX_STRICT",
	"IMPORTLENS_CACHE_TYPE",
	"IMPORTLENS_CACHE_REDIS_URL",
	"IMPORTLENS_NOMENCLATOR_SOURCE",
	"IMPORTLENS_NOMENCLATOR_PATH",
	"IMPORTLENS_NOMENCLATOR_DATABASE_URL",
	"IMPORTLENS_CLASSIFIER_MAX_CANDIDATES",
	"IMPORTLENS_CLASSIFIER_FUZZY_DISTANCE",
	"IMPORTLENS_CLASSIFIER_DEBUG",
	"IMPORTLENS_RATELIMIT_PER_IP",
}

func cleanupEnv() {
	for _, name := range configEnvVars {
		os.Unsetenv(name)
	}
}

// inTempDir runs the test from an empty directory so no config.yaml or .env
// from the repository leaks in.
func inTempDir(t *testing.T) {
	t.Helper()
	originalDir, _ := os.Getwd()
	t.Cleanup(func() { os.Chdir(originalDir) })
	os.Chdir(t.TempDir())
}

func TestLoad(t *testing.T) {
	t.Run("loads with defaults when no env vars set", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("Server.Port = %s, want 8080", cfg.Server.Port)
		}
		if cfg.Server.Environment != "development" {
			t.Errorf("Server.Environment = %s, want development", cfg.Server.Environment)
		}
		if cfg.Server.RequestTimeout != 45*time.Second {
			t.Errorf("Server.RequestTimeout = %v, want 45s", cfg.Server.RequestTimeout)
		}
		if cfg.Fetcher.Type != "http" {
			t.Errorf("Fetcher.Type = %s, want http", cfg.Fetcher.Type)
		}
		if cfg.Fetcher.CacheTTL != time.Hour {
			t.Errorf("Fetcher.CacheTTL = %v, want 1h", cfg.Fetcher.CacheTTL)
		}
		if cfg.FX.BaseURL != "https://dolarapi.com" {
			t.Errorf("FX.BaseURL = %s, want https://dolarapi.com", cfg.FX.BaseURL)
		}
		if cfg.FX.MaxAge != 30*time.Minute {
			t.Errorf("FX.MaxAge = %v, want 30m", cfg.FX.MaxAge)
		}
		if cfg.FX.ReferenceCurrency != "ARS" {
			t.Errorf("FX.ReferenceCurrency = %s, want ARS", cfg.FX.ReferenceCurrency)
		}
		if cfg.FX.Strict {
			t.Errorf("FX.Strict = true, want false")
		}
		if cfg.Cache.Type != "memory" {
			t.Errorf("Cache.Type = %s, want memory", cfg.Cache.Type)
		}
		if cfg.Nomenclator.Source != "embedded" {
			t.Errorf("Nomenclator.Source = %s, want embedded", cfg.Nomenclator.Source)
		}
		if cfg.Classifier.MaxCandidates != 10 || cfg.Classifier.MaxQueryTerms != 32 {
			t.Errorf("Classifier = %+v, want 10 candidates / 32 terms", cfg.Classifier)
		}
		if cfg.Classifier.FuzzyDistance != 1 {
			t.Errorf("Classifier.FuzzyDistance = %d, want 1", cfg.Classifier.FuzzyDistance)
		}
		if cfg.RateLimit.PerIP != 60 {
			t.Errorf("RateLimit.PerIP = %d, want 60", cfg.RateLimit.PerIP)
		}
	})

	t.Run("loads custom values from environment variables", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)
		os.Setenv("IMPORTLENS_SERVER_PORT", "9090")
		os.Setenv("IMPORTLENS_SERVER_ENVIRONMENT", "production")
		os.Setenv("IMPORTLENS_SERVER_ALLOWED_ORIGINS", "chrome-extension://*, https://app.importlens.io")
		os.Setenv("IMPORTLENS_FETCHER_TYPE", "Browser")
		os.Setenv("IMPORTLENS_FETCHER_RATE_PER_SECOND", "0.5")
		os.Setenv("IMPORTLENS_FX_BASE_URL", "https://fx.internal")
		os.Setenv("IMPORTLENS_FX_MAX_AGE", "5m")
		os.Setenv("IMPORTLENS_FX_REFERENCE_CURRENCY", "usd")
		os.Setenv("IMPORTLENS_FX_STRICT", "true")
		os.Setenv("IMPORTLENS_CACHE_TYPE", "redis")
		os.Setenv("IMPORTLENS_CACHE_REDIS_URL", "redis://localhost:6379/0")
		os.Setenv("IMPORTLENS_NOMENCLATOR_SOURCE", "postgres")
		os.Setenv("IMPORTLENS_NOMENCLATOR_DATABASE_URL", "postgres://localhost/ncm")
		os.Setenv("IMPORTLENS_CLASSIFIER_MAX_CANDIDATES", "5")
		os.Setenv("IMPORTLENS_RATELIMIT_PER_IP", "200")
		defer cleanupEnv()

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}

		if cfg.Server.Port != "9090" {
			t.Errorf("Server.Port = %s, want 9090", cfg.Server.Port)
		}
		if cfg.Server.Environment != "production" {
			t.Errorf("Server.Environment = %s, want production", cfg.Server.Environment)
		}
		if strings.Join(cfg.Server.AllowedOrigins, "|") != "chrome-extension://*|https://app.importlens.io" {
			t.Errorf("Server.AllowedOrigins = %v", cfg.Server.AllowedOrigins)
		}
		if cfg.Fetcher.Type != "browser" {
			t.Errorf("Fetcher.Type = %s, want browser", cfg.Fetcher.Type)
		}
		if cfg.Fetcher.RatePerSecond != 0.5 {
			t.Errorf("Fetcher.RatePerSecond = %v, want 0.5", cfg.Fetcher.RatePerSecond)
		}
		if cfg.FX.BaseURL != "https://fx.internal" {
			t.Errorf("FX.BaseURL = %s, want https://fx.internal", cfg.FX.BaseURL)
		}
		if cfg.FX.MaxAge != 5*time.Minute {
			t.Errorf("FX.MaxAge = %v, want 5m", cfg.FX.MaxAge)
		}
		if cfg.FX.ReferenceCurrency != "USD" {
			t.Errorf("FX.ReferenceCurrency = %s, want USD", cfg.FX.ReferenceCurrency)
		}
		if !cfg.FX.Strict {
			t.Errorf("FX.Strict = false, want true")
		}
		if cfg.Cache.Type != "redis" || cfg.Cache.RedisURL != "redis://localhost:6379/0" {
			t.Errorf("Cache = %+v", cfg.Cache)
		}
		if cfg.Nomenclator.Source != "postgres" || cfg.Nomenclator.DatabaseURL != "postgres://localhost/ncm" {
			t.Errorf("Nomenclator = %+v", cfg.Nomenclator)
		}
		if cfg.Classifier.MaxCandidates != 5 {
			t.Errorf("Classifier.MaxCandidates = %d, want 5", cfg.Classifier.MaxCandidates)
		}
		if cfg.RateLimit.PerIP != 200 {
			t.Errorf("RateLimit.PerIP = %d, want 200", cfg.RateLimit.PerIP)
		}
	})

	t.Run("fails validation for invalid cache type", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)
		os.Setenv("IMPORTLENS_CACHE_TYPE", "memcached")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for invalid cache type")
		}
	})

	t.Run("fails validation for out of range fuzzy distance", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)
		os.Setenv("IMPORTLENS_CLASSIFIER_FUZZY_DISTANCE", "3")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for fuzzy distance 3")
		}
	})

	t.Run("fails validation when redis URL missing for redis cache", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)
		os.Setenv("IMPORTLENS_CACHE_TYPE", "redis")
		defer cleanupEnv()

		if _, err := Load(); err == nil {
			t.Error("Load() error = nil, want error for missing redis URL")
		}
	})

	t.Run("reads values from .env file", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)
		defer cleanupEnv()

		if err := os.WriteFile(".env", []byte("IMPORTLENS_SERVER_PORT=7070\n"), 0644); err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.Server.Port != "7070" {
			t.Errorf("Server.Port = %s, want 7070", cfg.Server.Port)
		}
	})

	t.Run("reads config.yaml", func(t *testing.T) {
		cleanupEnv()
		inTempDir(t)

		yaml := "fx:\n  reference_currency: BRL\n  strict: true\nclassifier:\n  max_query_terms: 12\n"
		if err := os.WriteFile("config.yaml", []byte(yaml), 0644); err != nil {
			t.Fatalf("Failed to create config.yaml: %v", err)
		}

		cfg, err := Load()
		if err != nil {
			t.Fatalf("Load() error = %v, want nil", err)
		}
		if cfg.FX.ReferenceCurrency != "BRL" || !cfg.FX.Strict {
			t.Errorf("FX = %+v, want BRL strict", cfg.FX)
		}
		if cfg.Classifier.MaxQueryTerms != 12 {
			t.Errorf("Classifier.MaxQueryTerms = %d, want 12", cfg.Classifier.MaxQueryTerms)
		}
	})
}

func TestLoadEnvFile(t *testing.T) {
	t.Run("returns nil when .env file doesn't exist", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		err := loadEnvFile()
		if err != nil {
			t.Errorf("loadEnvFile() error = %v, want nil when file doesn't exist", err)
		}
	})

	t.Run("loads variables from .env file", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		// Create .env file
		envContent := `
# Comment line
TEST_VAR_1=value1
TEST_VAR_2=value2

# Another comment
TEST_VAR_3=value3
`
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		// Clear any existing values
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_VAR_1") != "value1" {
			t.Errorf("TEST_VAR_1 = %s, want value1", os.Getenv("TEST_VAR_1"))
		}
		if os.Getenv("TEST_VAR_2") != "value2" {
			t.Errorf("TEST_VAR_2 = %s, want value2", os.Getenv("TEST_VAR_2"))
		}
		if os.Getenv("TEST_VAR_3") != "value3" {
			t.Errorf("TEST_VAR_3 = %s, want value3", os.Getenv("TEST_VAR_3"))
		}

		// Cleanup
		os.Unsetenv("TEST_VAR_1")
		os.Unsetenv("TEST_VAR_2")
		os.Unsetenv("TEST_VAR_3")
	})

	t.Run("skips empty lines and comments", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		// Create .env file with various formats
		envContent := `
# This is a comment
   # This is also a comment

TEST_SKIP_1=value1

TEST_SKIP_2=value2
# TEST_COMMENTED=should_not_load
`
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		os.Unsetenv("TEST_SKIP_1")
		os.Unsetenv("TEST_SKIP_2")
		os.Unsetenv("TEST_COMMENTED")

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		if os.Getenv("TEST_SKIP_1") != "value1" {
			t.Errorf("TEST_SKIP_1 not loaded correctly")
		}
		if os.Getenv("TEST_SKIP_2") != "value2" {
			t.Errorf("TEST_SKIP_2 not loaded correctly")
		}
		if os.Getenv("TEST_COMMENTED") != "" {
			t.Errorf("TEST_COMMENTED should not be loaded from comment")
		}

		os.Unsetenv("TEST_SKIP_1")
		os.Unsetenv("TEST_SKIP_2")
	})

	t.Run("doesn't override existing environment variables", func(t *testing.T) {
		// Save current directory
		originalDir, _ := os.Getwd()
		defer os.Chdir(originalDir)

		// Create temp directory
		tempDir := t.TempDir()
		os.Chdir(tempDir)

		// Set existing env var
		os.Setenv("TEST_OVERRIDE", "existing-value")

		// Create .env file that tries to override
		envContent := "TEST_OVERRIDE=new-value"
		err := os.WriteFile(".env", []byte(envContent), 0644)
		if err != nil {
			t.Fatalf("Failed to create test .env file: %v", err)
		}

		err = loadEnvFile()
		if err != nil {
			t.Fatalf("loadEnvFile() error = %v, want nil", err)
		}

		// Should still have original value
		if os.Getenv("TEST_OVERRIDE") != "existing-value" {
			t.Errorf("TEST_OVERRIDE = %s, want existing-value (should not override)", os.Getenv("TEST_OVERRIDE"))
		}

		os.Unsetenv("TEST_OVERRIDE")
	})
}

func validConfig() *Config {
	return &Config{
		Fetcher:     FetcherConfig{Type: "http"},
		FX:          FXConfig{BaseURL: "https://dolarapi.com", MaxAge: 30 * time.Minute, ReferenceCurrency: "ARS"},
		Cache:       CacheConfig{Type: "memory"},
		Nomenclator: NomenclatorConfig{Source: "embedded"},
		RateLimit:   RateLimitConfig{PerIP: 60},
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "validates successfully with defaults", mutate: func(*Config) {}},
		{name: "browser fetcher", mutate: func(c *Config) { c.Fetcher.Type = "browser" }},
		{name: "unknown fetcher", mutate: func(c *Config) { c.Fetcher.Type = "curl" }, wantErr: true},
		{name: "invalid cache type", mutate: func(c *Config) { c.Cache.Type = "disk" }, wantErr: true},
		{
			name: "redis cache with URL",
			mutate: func(c *Config) {
				c.Cache.Type = "redis"
				c.Cache.RedisURL = "redis://localhost:6379"
			},
		},
		{name: "redis cache without URL", mutate: func(c *Config) { c.Cache.Type = "redis" }, wantErr: true},
		{name: "file nomenclator without path", mutate: func(c *Config) { c.Nomenclator.Source = "file" }, wantErr: true},
		{
			name: "file nomenclator with path",
			mutate: func(c *Config) {
				c.Nomenclator.Source = "file"
				c.Nomenclator.Path = "/srv/ncm.json"
			},
		},
		{name: "postgres nomenclator without URL", mutate: func(c *Config) { c.Nomenclator.Source = "postgres" }, wantErr: true},
		{name: "unknown nomenclator source", mutate: func(c *Config) { c.Nomenclator.Source = "s3" }, wantErr: true},
		{name: "bad reference currency", mutate: func(c *Config) { c.FX.ReferenceCurrency = "PESOS" }, wantErr: true},
		{name: "zero fx max age", mutate: func(c *Config) { c.FX.MaxAge = 0 }, wantErr: true},
		{name: "missing fx base URL", mutate: func(c *Config) { c.FX.BaseURL = "" }, wantErr: true},
		{name: "negative per-ip limit", mutate: func(c *Config) { c.RateLimit.PerIP = -1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)

			err := validate(cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
