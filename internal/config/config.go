// Package config provides centralized configuration for the notes-e2e suite.
// Values are layered: built-in defaults, then an optional YAML file named by
// NOTES_E2E_CONFIG, then environment variables. CLI flags are applied last by
// internal/cli through the exported fields.
package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultBaseURL is the public practice deployment of the notes application.
	DefaultBaseURL = "https://practice.expandtesting.com/notes/"

	defaultArtifactRegion = "auto"
)

// Config holds all suite configuration.
type Config struct {
	// Target
	BaseURL string `yaml:"base_url"`

	// Fixture store. Empty means a fresh temporary directory per run.
	FixtureDir string `yaml:"fixture_dir"`

	// Browser
	Browser           string        `yaml:"browser"`
	Headless          bool          `yaml:"headless"`
	ActionTimeout     time.Duration `yaml:"action_timeout"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	ResponseTimeout   time.Duration `yaml:"response_timeout"`

	// API client
	APITimeout time.Duration `yaml:"api_timeout"`
	RateRPS    float64       `yaml:"rate_rps"`
	RateBurst  int           `yaml:"rate_burst"`

	// Runner
	Parallel int    `yaml:"parallel"`
	LogLevel string `yaml:"log_level"`

	// Reports
	ReportDir   string `yaml:"report_dir"`
	MetricsFile string `yaml:"metrics_file"`

	// Artifact upload (S3-compatible). Disabled when bucket is empty.
	ArtifactEndpoint  string `yaml:"artifact_endpoint"`
	ArtifactRegion    string `yaml:"artifact_region"`
	ArtifactBucket    string `yaml:"artifact_bucket"`
	ArtifactAccessKey string `yaml:"-"`
	ArtifactSecretKey string `yaml:"-"`
	ArtifactPublicURL string `yaml:"artifact_public_url"`
}

// ValidationError represents a configuration validation error with multiple issues.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("configuration validation failed:\n  - %s", strings.Join(e.Errors, "\n  - "))
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		BaseURL:           DefaultBaseURL,
		Browser:           "chromium",
		Headless:          true,
		ActionTimeout:     10 * time.Second,
		NavigationTimeout: 30 * time.Second,
		ResponseTimeout:   60 * time.Second,
		APITimeout:        30 * time.Second,
		RateRPS:           5,
		RateBurst:         10,
		Parallel:          1,
		LogLevel:          "info",
		ReportDir:         "reports",
		ArtifactRegion:    defaultArtifactRegion,
	}
}

// LoadConfig builds configuration from defaults, the YAML file named by
// NOTES_E2E_CONFIG and the environment, then validates it.
func LoadConfig() (*Config, error) {
	cfg, err := Load(FileFromEnv())
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FileFromEnv returns the config file path named by NOTES_E2E_CONFIG.
func FileFromEnv() string {
	return strings.TrimSpace(os.Getenv("NOTES_E2E_CONFIG"))
}

// Load layers defaults, the YAML file at path (if any) and the environment
// without validating, so callers can apply their own overrides first.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path = strings.TrimSpace(path); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return &cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.BaseURL = getEnvOrDefault("NOTES_BASE_URL", c.BaseURL)
	c.FixtureDir = getEnvOrDefault("NOTES_FIXTURE_DIR", c.FixtureDir)

	c.Browser = getEnvOrDefault("NOTES_BROWSER", c.Browser)
	c.Headless = parseBoolOrDefault("NOTES_HEADLESS", c.Headless)
	c.ActionTimeout = parseDurationOrDefault("NOTES_ACTION_TIMEOUT", c.ActionTimeout)
	c.NavigationTimeout = parseDurationOrDefault("NOTES_NAVIGATION_TIMEOUT", c.NavigationTimeout)
	c.ResponseTimeout = parseDurationOrDefault("NOTES_RESPONSE_TIMEOUT", c.ResponseTimeout)

	c.APITimeout = parseDurationOrDefault("NOTES_API_TIMEOUT", c.APITimeout)
	c.RateRPS = parseFloat64OrDefault("NOTES_RATE_RPS", c.RateRPS)
	c.RateBurst = parseIntOrDefault("NOTES_RATE_BURST", c.RateBurst)

	c.Parallel = parseIntOrDefault("NOTES_PARALLEL", c.Parallel)
	c.LogLevel = getEnvOrDefault("NOTES_LOG_LEVEL", c.LogLevel)

	c.ReportDir = getEnvOrDefault("NOTES_REPORT_DIR", c.ReportDir)
	c.MetricsFile = getEnvOrDefault("NOTES_METRICS_FILE", c.MetricsFile)

	c.ArtifactEndpoint = strings.TrimSpace(getEnvOrDefault("NOTES_ARTIFACT_ENDPOINT", c.ArtifactEndpoint))
	c.ArtifactRegion = getEnvOrDefault("NOTES_ARTIFACT_REGION", c.ArtifactRegion)
	c.ArtifactBucket = strings.TrimSpace(getEnvOrDefault("NOTES_ARTIFACT_BUCKET", c.ArtifactBucket))
	c.ArtifactAccessKey = strings.TrimSpace(os.Getenv("AWS_ACCESS_KEY_ID"))
	c.ArtifactSecretKey = strings.TrimSpace(os.Getenv("AWS_SECRET_ACCESS_KEY"))
	c.ArtifactPublicURL = strings.TrimSpace(getEnvOrDefault("NOTES_ARTIFACT_PUBLIC_URL", c.ArtifactPublicURL))
	if c.ArtifactPublicURL == "" && c.ArtifactEndpoint != "" && c.ArtifactBucket != "" {
		c.ArtifactPublicURL = strings.TrimRight(c.ArtifactEndpoint, "/") + "/" + c.ArtifactBucket
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []string

	u, err := url.Parse(c.BaseURL)
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		errs = append(errs, "NOTES_BASE_URL is required")
	case err != nil || u.Scheme == "" || u.Host == "":
		errs = append(errs, fmt.Sprintf("NOTES_BASE_URL %q must be an absolute URL", c.BaseURL))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, "NOTES_BASE_URL must use http or https")
	}

	switch c.Browser {
	case "chromium", "firefox", "webkit":
	default:
		errs = append(errs, fmt.Sprintf("NOTES_BROWSER %q must be one of chromium, firefox, webkit", c.Browser))
	}

	if c.ActionTimeout <= 0 {
		errs = append(errs, "NOTES_ACTION_TIMEOUT must be positive")
	}
	if c.NavigationTimeout <= 0 {
		errs = append(errs, "NOTES_NAVIGATION_TIMEOUT must be positive")
	}
	if c.ResponseTimeout <= 0 {
		errs = append(errs, "NOTES_RESPONSE_TIMEOUT must be positive")
	}
	if c.APITimeout <= 0 {
		errs = append(errs, "NOTES_API_TIMEOUT must be positive")
	}
	if c.RateRPS <= 0 {
		errs = append(errs, "NOTES_RATE_RPS must be positive")
	}
	if c.RateBurst <= 0 {
		errs = append(errs, "NOTES_RATE_BURST must be positive")
	}
	if c.Parallel < 1 {
		errs = append(errs, "NOTES_PARALLEL must be at least 1")
	}

	if c.ArtifactBucket != "" {
		if c.ArtifactAccessKey == "" {
			errs = append(errs, "AWS_ACCESS_KEY_ID is required when NOTES_ARTIFACT_BUCKET is set")
		}
		if c.ArtifactSecretKey == "" {
			errs = append(errs, "AWS_SECRET_ACCESS_KEY is required when NOTES_ARTIFACT_BUCKET is set")
		}
	}

	if len(errs) > 0 {
		return &ValidationError{Errors: errs}
	}
	return nil
}

// APIBaseURL returns the base URL of the JSON API with a trailing slash.
func (c *Config) APIBaseURL() string {
	return strings.TrimRight(c.BaseURL, "/") + "/api/"
}

// AppURL joins a route such as "app/login" onto the base URL.
func (c *Config) AppURL(route string) string {
	return strings.TrimRight(c.BaseURL, "/") + "/" + strings.TrimLeft(route, "/")
}

// ArtifactsEnabled reports whether failure artifacts should be uploaded.
func (c *Config) ArtifactsEnabled() bool {
	return c.ArtifactBucket != ""
}

// Helper functions for parsing environment variables

func getEnvOrDefault(key, defaultValue string) string {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	return value
}

func parseIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseFloat64OrDefault(key string, defaultValue float64) float64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

