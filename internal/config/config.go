package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config holds all configuration for the application
// Following 12-factor app principles, all config is loaded from environment variables.
// Outside production a .env file in the working directory is read first.
type Config struct {
	Server   ServerConfig
	Catalog  CatalogConfig
	Model    ModelConfig
	Pricing  PricingConfig
	Session  SessionConfig
	Events   EventsConfig
	LogLevel string
}

type ServerConfig struct {
	Port            string
	Host            string
	ReadTimeout     int
	WriteTimeout    int
	ShutdownTimeout int
	AllowedOrigins  []string
}

// CatalogConfig selects where the product catalog is read from at startup.
// An empty Driver uses the compiled-in product definition.
type CatalogConfig struct {
	Driver string // "", "sqlite3" or "postgres"
	DSN    string
}

type ModelConfig struct {
	Path                string
	ConfigPath          string
	LabelsPath          string
	ImageWidth          int
	ImageHeight         int
	ConfidenceThreshold float64
	MaxPayloadBytes     int
	MaxPixels           int
}

type PricingConfig struct {
	TaxRate         decimal.Decimal
	UnmatchedPolicy string // "exclude" or "reject"
}

type SessionConfig struct {
	TTL time.Duration
}

type EventsConfig struct {
	KafkaBrokers []string
	ReceiptTopic string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	if getEnv("APP_ENV", "development") != "production" {
		// A missing .env is fine; the environment alone is enough.
		_ = godotenv.Load()
	}

	taxRate, err := getEnvAsDecimal("TAX_RATE", "0.08")
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Port:            getEnv("PORT", "5000"),
			Host:            getEnv("HOST", "0.0.0.0"),
			ReadTimeout:     getEnvAsInt("READ_TIMEOUT", 15),
			WriteTimeout:    getEnvAsInt("WRITE_TIMEOUT", 15),
			ShutdownTimeout: getEnvAsInt("SHUTDOWN_TIMEOUT", 30),
			AllowedOrigins:  getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
		},
		Catalog: CatalogConfig{
			Driver: getEnv("CATALOG_DRIVER", ""),
			DSN:    getEnv("CATALOG_DSN", ""),
		},
		Model: ModelConfig{
			Path:                getEnv("MODEL_PATH", "models/fruit_class.onnx"),
			ConfigPath:          getEnv("MODEL_CONFIG_PATH", ""),
			LabelsPath:          getEnv("MODEL_LABELS_PATH", ""),
			ImageWidth:          getEnvAsInt("MODEL_IMAGE_WIDTH", 244),
			ImageHeight:         getEnvAsInt("MODEL_IMAGE_HEIGHT", 244),
			ConfidenceThreshold: getEnvAsFloat("CONFIDENCE_THRESHOLD", 0.6),
			MaxPayloadBytes:     getEnvAsInt("MAX_IMAGE_BYTES", 10<<20),
			MaxPixels:           getEnvAsInt("MAX_IMAGE_PIXELS", 4096*4096),
		},
		Pricing: PricingConfig{
			TaxRate:         taxRate,
			UnmatchedPolicy: getEnv("UNMATCHED_POLICY", "exclude"),
		},
		Session: SessionConfig{
			TTL: getEnvAsDuration("SESSION_TTL", 30*time.Minute),
		},
		Events: EventsConfig{
			KafkaBrokers: getEnvAsSlice("KAFKA_BROKERS", nil),
			ReceiptTopic: getEnv("KAFKA_RECEIPT_TOPIC", "receipts.completed"),
		},
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	switch c.Catalog.Driver {
	case "":
	case "sqlite3", "postgres":
		if c.Catalog.DSN == "" {
			return fmt.Errorf("CATALOG_DSN is required when CATALOG_DRIVER is %s", c.Catalog.Driver)
		}
	default:
		return fmt.Errorf("invalid catalog driver: %s (must be sqlite3 or postgres)", c.Catalog.Driver)
	}

	if c.Model.ImageWidth <= 0 || c.Model.ImageHeight <= 0 {
		return fmt.Errorf("model image size must be positive, got %dx%d", c.Model.ImageWidth, c.Model.ImageHeight)
	}

	if c.Model.ConfidenceThreshold < 0 || c.Model.ConfidenceThreshold > 1 {
		return fmt.Errorf("CONFIDENCE_THRESHOLD must be within [0,1], got %v", c.Model.ConfidenceThreshold)
	}

	if c.Model.MaxPayloadBytes <= 0 {
		return fmt.Errorf("MAX_IMAGE_BYTES must be positive")
	}

	if c.Model.MaxPixels <= 0 {
		return fmt.Errorf("MAX_IMAGE_PIXELS must be positive")
	}

	if c.Pricing.TaxRate.IsNegative() {
		return fmt.Errorf("invalid tax rate: %s", c.Pricing.TaxRate)
	}

	switch strings.ToLower(c.Pricing.UnmatchedPolicy) {
	case "exclude", "reject":
	default:
		return fmt.Errorf("invalid unmatched policy: %s (must be exclude or reject)", c.Pricing.UnmatchedPolicy)
	}

	if c.Session.TTL <= 0 {
		return fmt.Errorf("SESSION_TTL must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsDecimal returns an error on malformed input; it never falls back to the default.
func getEnvAsDecimal(key, defaultValue string) (decimal.Decimal, error) {
	valueStr := getEnv(key, defaultValue)
	value, err := decimal.NewFromString(strings.TrimSpace(valueStr))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%s: %q is not a decimal number", key, valueStr)
	}
	return value, nil
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	parts := strings.Split(valueStr, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
