package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"skywager/database"
)

// Config holds all application configuration
type Config struct {
	// Database configuration
	DatabaseURL  string
	DatabaseName string

	DatabaseMaxConns        int
	DatabaseMaxConnIdleTime time.Duration

	// NATS configuration
	NATSEnabled bool
	NATSServers string // NATS server addresses (comma-separated)

	NATSMaxReconnects int
	NATSReconnectWait time.Duration
	NATSStreamMaxAge  time.Duration

	// Weather provider configuration
	WeatherAPIURL  string
	WeatherAPIKey  string
	WeatherUnits   string
	WeatherTimeout time.Duration

	// HTTP server configuration
	HTTPAddr           string
	CORSAllowedOrigins []string

	// Settlement configuration
	SettlementCron        string // robfig/cron spec with seconds field
	SettlementConcurrency int

	// Odds policy file (optional, YAML/JSON/TOML)
	OddsPolicyFile string

	// OpenTelemetry configuration
	OTelEnabled              bool
	OTelServiceName          string
	OTelExporterType         string // "console", "otlp" or "none"
	OTelOTLPEndpoint         string
	OTelExportIntervalMillis int

	// Logging
	LogLevel  string
	LogFormat string // "json" or "text"

	// Environment
	Environment string // "development", "production" or "test"
}

var (
	instance *Config
	once     sync.Once
	mu       sync.Mutex // Protects instance for test setup
)

// Get returns the global configuration instance
func Get() *Config {
	mu.Lock()
	defer mu.Unlock()

	// If instance is already set (e.g., by tests), return it
	if instance != nil {
		return instance
	}

	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			if os.Getenv("GO_TEST") == "1" || os.Getenv("ENVIRONMENT") == "test" {
				instance = NewTestConfig()
			} else {
				panic(fmt.Sprintf("failed to load config: %v", err))
			}
		}
	})
	return instance
}

// GetDatabaseURL constructs the full database URL by combining base URL and database name
func (c *Config) GetDatabaseURL() string {
	return database.ConstructDatabaseURL(c.DatabaseURL, c.DatabaseName)
}

// load loads configuration from environment variables
func load() (*Config, error) {
	config := &Config{
		DatabaseURL:  os.Getenv("DATABASE_URL"),
		DatabaseName: os.Getenv("DATABASE_NAME"),

		DatabaseMaxConns:        getEnvInt("DATABASE_MAX_CONNS", 0),
		DatabaseMaxConnIdleTime: time.Duration(getEnvInt("DATABASE_MAX_CONN_IDLE_SECONDS", 0)) * time.Second,

		NATSEnabled: getEnvBool("NATS_ENABLED", false),
		NATSServers: getEnvWithDefault("NATS_SERVERS", "nats://nats:4222"),

		NATSMaxReconnects: getEnvInt("NATS_MAX_RECONNECTS", 10),
		NATSReconnectWait: time.Duration(getEnvInt("NATS_RECONNECT_WAIT_SECONDS", 2)) * time.Second,
		NATSStreamMaxAge:  time.Duration(getEnvInt("NATS_STREAM_MAX_AGE_HOURS", 168)) * time.Hour,

		WeatherAPIURL:  getEnvWithDefault("WEATHER_API_URL", "https://api.openweathermap.org/data/2.5"),
		WeatherAPIKey:  os.Getenv("WEATHER_API_KEY"),
		WeatherUnits:   getEnvWithDefault("WEATHER_UNITS", "metric"),
		WeatherTimeout: time.Duration(getEnvInt("WEATHER_TIMEOUT_SECONDS", 10)) * time.Second,

		HTTPAddr:           getEnvWithDefault("HTTP_ADDR", ":8080"),
		CORSAllowedOrigins: splitList(getEnvWithDefault("CORS_ALLOWED_ORIGINS", "*")),

		SettlementCron:        getEnvWithDefault("SETTLEMENT_CRON", "0 */5 * * * *"),
		SettlementConcurrency: getEnvInt("SETTLEMENT_CONCURRENCY", 8),

		OddsPolicyFile: os.Getenv("ODDS_POLICY_FILE"),

		OTelEnabled:              getEnvBool("OTEL_ENABLED", false),
		OTelServiceName:          getEnvWithDefault("OTEL_SERVICE_NAME", "skywager"),
		OTelExporterType:         getEnvWithDefault("OTEL_EXPORTER_TYPE", "console"),
		OTelOTLPEndpoint:         getEnvWithDefault("OTEL_OTLP_ENDPOINT", "otel-collector:4317"),
		OTelExportIntervalMillis: getEnvInt("OTEL_EXPORT_INTERVAL_MILLIS", 30000),

		LogLevel:  getEnvWithDefault("LOG_LEVEL", "info"),
		LogFormat: getEnvWithDefault("LOG_FORMAT", "text"),

		Environment: os.Getenv("ENVIRONMENT"),
	}

	// Set default environment if not specified
	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
		// If DatabaseName is provided, ensure it's not empty
		if config.DatabaseName != "" && strings.TrimSpace(config.DatabaseName) == "" {
			return nil, fmt.Errorf("DATABASE_NAME cannot be empty when provided")
		}
		if config.WeatherAPIKey == "" {
			return nil, fmt.Errorf("WEATHER_API_KEY is required")
		}
	}

	if config.SettlementConcurrency < 1 {
		return nil, fmt.Errorf("SETTLEMENT_CONCURRENCY must be at least 1")
	}

	return config, nil
}

// getEnvWithDefault returns the environment variable value or a default if not set
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Test helpers - only use in tests

// SetTestConfig overrides the global config instance for testing
// This should only be called from test files
func SetTestConfig(testConfig *Config) {
	mu.Lock()
	defer mu.Unlock()
	instance = testConfig
}

// ResetConfig resets the global config instance and sync.Once for testing
// This should only be called from test files
func ResetConfig() {
	mu.Lock()
	defer mu.Unlock()
	instance = nil
	once = sync.Once{}
}

// NewTestConfig creates a minimal config suitable for unit tests
func NewTestConfig() *Config {
	return &Config{
		Environment:           "test",
		WeatherUnits:          "metric",
		WeatherTimeout:        5 * time.Second,
		HTTPAddr:              ":0",
		CORSAllowedOrigins:    []string{"*"},
		SettlementCron:        "0 */5 * * * *",
		SettlementConcurrency: 4,
		OTelExporterType:      "none",
		LogLevel:              "debug",
		LogFormat:             "text",
	}
}
