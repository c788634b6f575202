// Package config provides configuration loading and management for the application.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds all application configuration
type Config struct {
	// Logging
	LogLevel  string
	LogFormat string

	// HTTP server port for serve mode
	Port string

	// Per-request timeout for upstream API calls
	HTTPTimeout time.Duration

	// Quote cache lifetime. Across documents a 300 second maximum.
	CacheTTL time.Duration

	// Minimum spacing between upstream API calls
	PacingInterval time.Duration

	// Pause between scenario runs
	ScenarioDelay time.Duration

	// Credential for RPC-backed lookups on the quote-source side.
	// The tracker runs without it; the public fee APIs need no key.
	InfuraKey string

	// Base URLs for the protocol fee APIs
	AcrossBaseURL string
	HopBaseURL    string

	// Hop quote parameters
	HopNetwork  string
	HopSlippage string

	// Validation: a fee above MaxFeeRatio * amount is suspicious
	MaxFeeRatio float64

	// Circuit breaker settings
	BreakerMaxFailures      int
	BreakerResetDelay       time.Duration
	BreakerSuccessThreshold int

	// Observability
	MetricsEnabled bool
	OTelEnabled    bool
	OTelEndpoint   string

	// Webhook export of completed comparisons
	ExportWebhookURL string
	ExportAPIKey     string
	ExportInterval   time.Duration
	ExportBatchSize  int

	// Optional YAML file overriding the built-in scenario list
	ScenariosFile string

	// Server-side rate limiting for serve mode
	RequestsPerSecond float64
	BurstSize         int
}

// Load creates a new Config from environment variables. A .env file in the
// working directory is applied first when present.
func Load() *Config {
	if err := godotenv.Load(); err == nil {
		logrus.Debug("Loaded environment from .env file")
	}

	return &Config{
		LogLevel:                GetEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:               GetEnvOrDefault("LOG_FORMAT", "text"),
		Port:                    GetEnvOrDefault("PORT", "8080"),
		HTTPTimeout:             GetEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		CacheTTL:                GetEnvAsDuration("CACHE_TTL", 5*time.Minute),
		PacingInterval:          GetEnvAsDuration("PACING_INTERVAL", 2*time.Second),
		ScenarioDelay:           GetEnvAsDuration("SCENARIO_DELAY", 3*time.Second),
		InfuraKey:               GetEnvOrDefault("INFURA_KEY", ""),
		AcrossBaseURL:           GetEnvOrDefault("ACROSS_BASE_URL", "https://across.to"),
		HopBaseURL:              GetEnvOrDefault("HOP_BASE_URL", "https://api.hop.exchange"),
		HopNetwork:              GetEnvOrDefault("HOP_NETWORK", "mainnet"),
		HopSlippage:             GetEnvOrDefault("HOP_SLIPPAGE", "0.5"),
		MaxFeeRatio:             GetEnvAsFloat("MAX_FEE_RATIO", 1.0),
		BreakerMaxFailures:      GetEnvAsInt("BREAKER_MAX_FAILURES", 3),
		BreakerResetDelay:       GetEnvAsDuration("BREAKER_RESET_DELAY", 5*time.Minute),
		BreakerSuccessThreshold: GetEnvAsInt("BREAKER_SUCCESS_THRESHOLD", 2),
		MetricsEnabled:          GetEnvAsBool("METRICS_ENABLED", true),
		OTelEnabled:             GetEnvAsBool("OTEL_ENABLED", false),
		OTelEndpoint:            GetEnvOrDefault("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ExportWebhookURL:        GetEnvOrDefault("EXPORT_WEBHOOK_URL", ""),
		ExportAPIKey:            GetEnvOrDefault("EXPORT_API_KEY", ""),
		ExportInterval:          GetEnvAsDuration("EXPORT_INTERVAL", 30*time.Second),
		ExportBatchSize:         GetEnvAsInt("EXPORT_BATCH_SIZE", 10),
		ScenariosFile:           GetEnvOrDefault("SCENARIOS_FILE", ""),
		RequestsPerSecond:       GetEnvAsFloat("REQUESTS_PER_SECOND", 5.0),
		BurstSize:               GetEnvAsInt("BURST_SIZE", 10),
	}
}

// Validate reports configuration values no mode can run with.
func (c *Config) Validate() error {
	if c.HTTPTimeout <= 0 {
		return fmt.Errorf("HTTP timeout must be positive, got %s", c.HTTPTimeout)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("cache TTL must not be negative, got %s", c.CacheTTL)
	}
	if c.MaxFeeRatio <= 0 {
		return fmt.Errorf("max fee ratio must be positive, got %f", c.MaxFeeRatio)
	}
	if c.ExportBatchSize <= 0 {
		return fmt.Errorf("export batch size must be positive, got %d", c.ExportBatchSize)
	}
	return nil
}

// GetEnv retrieves an environment variable and whether it exists
func GetEnv(key string) (string, bool) {
	value, exists := os.LookupEnv(key)
	return value, exists
}

// GetEnvOrDefault retrieves an environment variable or returns the default value if not set
func GetEnvOrDefault(key, defaultValue string) string {
	if value, exists := GetEnv(key); exists {
		return value
	}
	return defaultValue
}

// GetEnvAsInt retrieves an environment variable as an integer with a default value
func GetEnvAsInt(key string, defaultValue int) int {
	if value, exists := GetEnv(key); exists {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		logrus.Warnf("Invalid integer for %s, using default %d", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsFloat retrieves an environment variable as a float with a default value
func GetEnvAsFloat(key string, defaultValue float64) float64 {
	if value, exists := GetEnv(key); exists {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		logrus.Warnf("Invalid float for %s, using default %f", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsDuration retrieves an environment variable as a duration with a default value
func GetEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := GetEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.Warnf("Invalid duration for %s, using default %s", key, defaultValue)
	}
	return defaultValue
}

// GetEnvAsBool retrieves an environment variable as a boolean with a default value
func GetEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := GetEnv(key); exists {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
		logrus.Warnf("Invalid boolean for %s, using default %t", key, defaultValue)
	}
	return defaultValue
}
