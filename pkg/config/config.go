// Package config holds application configuration, populated from the
// environment with sensible defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Config holds application configuration
type Config struct {
	// Data sources
	PrometheusURL string
	UsageFile     string
	Kubeconfig    string
	AWSRegion     string

	// Storage
	StorageType   string // postgres, memory
	DatabaseURL   string
	ClickHouse    string // host:port, empty disables usage history
	ClickHouseDB  string
	ClickHouseUsr string
	ClickHousePwd string

	// Analysis
	AnalysisWindow time.Duration
	MinSamples     int
	MinConfidence  float64
	MaxWorkers     int

	// Execution
	DispatchTimeout time.Duration
	WebhookURL      string

	// Logging
	LogLevel  string
	LogFormat string

	// Output
	OutputFormat string // text, csv, json
	Verbose      bool
}

// NewConfig creates a new configuration with defaults
func NewConfig() *Config {
	return &Config{
		PrometheusURL: getEnv("PROMETHEUS_URL", "http://localhost:9090"),
		UsageFile:     getEnv("USAGE_FILE", ""),
		Kubeconfig:    getEnv("KUBECONFIG", ""),
		AWSRegion:     getEnv("AWS_REGION", "us-east-1"),

		StorageType:   getEnv("STORAGE_TYPE", "memory"),
		DatabaseURL:   getEnv("DATABASE_URL", "host=localhost port=5432 user=costuser password=devpassword dbname=costadvisor sslmode=disable"),
		ClickHouse:    getEnv("CLICKHOUSE_ADDR", ""),
		ClickHouseDB:  getEnv("CLICKHOUSE_DB", "default"),
		ClickHouseUsr: getEnv("CLICKHOUSE_USER", "default"),
		ClickHousePwd: getEnv("CLICKHOUSE_PASSWORD", ""),

		AnalysisWindow:  getEnvDuration("ANALYSIS_WINDOW", 30*24*time.Hour),
		MinSamples:      getEnvInt("MIN_SAMPLES", 30),
		MinConfidence:   getEnvFloat("MIN_CONFIDENCE", 0.7),
		MaxWorkers:      getEnvInt("MAX_WORKERS", 8),
		DispatchTimeout: getEnvDuration("DISPATCH_TIMEOUT", 2*time.Minute),
		WebhookURL:      getEnv("NOTIFY_WEBHOOK_URL", ""),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "console"),

		OutputFormat: getEnv("OUTPUT_FORMAT", "text"),
		Verbose:      getEnvBool("VERBOSE", false),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.StorageType != "postgres" && c.StorageType != "memory" {
		return fmt.Errorf("STORAGE_TYPE must be postgres or memory, got %q", c.StorageType)
	}
	if c.StorageType == "postgres" && c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL must be set when storage is postgres")
	}
	if c.AnalysisWindow < 1*time.Hour {
		return fmt.Errorf("analysis window must be at least 1 hour")
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("minimum confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.MinSamples <= 0 {
		return fmt.Errorf("minimum samples must be positive, got %d", c.MinSamples)
	}
	if c.MaxWorkers <= 0 {
		return fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers)
	}
	return nil
}
