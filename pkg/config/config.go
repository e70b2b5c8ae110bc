package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Env      string
	LogLevel string
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Recorder RecorderConfig
	Catalog  CatalogConfig
	OpenAI   OpenAIConfig
	Pipeline PipelineConfig
	OTEL     OTELConfig
}

// ServerConfig holds server configuration
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration // zero keeps scan streams open

	// AllowedOrigins lists CORS origins; empty allows any.
	AllowedOrigins []string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int

	// Enabled turns the extraction cache and scan events on.
	Enabled bool
}

// RecorderConfig selects where scan sessions and extraction records are written.
type RecorderConfig struct {
	Driver     string // postgres, sqlite or memory
	SQLitePath string
}

// CatalogConfig points at an optional operator-supplied catalog file.
type CatalogConfig struct {
	Path string
}

// OpenAIConfig holds OpenAI configuration
type OpenAIConfig struct {
	APIKey         string
	Model          string
	BaseURL        string
	RequestTimeout time.Duration

	// MaxRetries is the number of transport-level retries. Zero keeps the
	// extraction call single-shot.
	MaxRetries     int
	RateLimitRPM   int
	RateLimitBurst int
}

// OTELConfig holds OpenTelemetry configuration
type OTELConfig struct {
	ServiceName    string
	ServiceVersion string
	Endpoint       string
	Enabled        bool
}

// Recorder drivers.
const (
	RecorderPostgres = "postgres"
	RecorderSQLite   = "sqlite"
	RecorderMemory   = "memory"
)

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Env:      getEnv("APP_ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		Server: ServerConfig{
			Host: getEnv("SERVER_HOST", "0.0.0.0"),
			Port: getEnvAsInt("SERVER_PORT", 8080),

			ReadTimeout:    getEnvAsDuration("SERVER_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:   getEnvAsDuration("SERVER_WRITE_TIMEOUT", 0),
			AllowedOrigins: getEnvAsList("ALLOWED_ORIGINS", nil),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnvAsInt("DB_PORT", 5432),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			Database: getEnv("DB_NAME", "medscan"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvAsInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Recorder: RecorderConfig{
			Driver:     strings.ToLower(getEnv("RECORDER_DRIVER", RecorderPostgres)),
			SQLitePath: getEnv("SQLITE_PATH", "medscan.sqlite"),
		},
		Catalog: CatalogConfig{
			Path: getEnv("CATALOG_PATH", ""),
		},
		OpenAI: OpenAIConfig{
			APIKey:         getEnv("OPENAI_API_KEY", ""),
			Model:          getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			BaseURL:        getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			RequestTimeout: getEnvAsDuration("OPENAI_REQUEST_TIMEOUT", 30*time.Second),
			MaxRetries:     getEnvAsInt("OPENAI_MAX_RETRIES", 0),
			RateLimitRPM:   getEnvAsInt("OPENAI_RATE_LIMIT_RPM", 60),
			RateLimitBurst: getEnvAsInt("OPENAI_RATE_LIMIT_BURST", 5),
		},
		Pipeline: loadPipelineConfig(),
		OTEL: OTELConfig{
			ServiceName:    getEnv("OTEL_SERVICE_NAME", "medscan"),
			ServiceVersion: getEnv("OTEL_SERVICE_VERSION", "1.0.0"),
			Endpoint:       getEnv("OTEL_ENDPOINT", ""),
			Enabled:        getEnvAsBool("OTEL_ENABLED", false),
		},
	}

	switch cfg.Recorder.Driver {
	case RecorderPostgres, RecorderSQLite, RecorderMemory:
	default:
		return nil, fmt.Errorf("unsupported RECORDER_DRIVER %q", cfg.Recorder.Driver)
	}

	if err := cfg.Pipeline.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func loadPipelineConfig() PipelineConfig {
	p := DefaultPipelineConfig()
	p.BarcodeConfidence = getEnvAsFloat("PIPELINE_BARCODE_CONFIDENCE", p.BarcodeConfidence)
	p.TextConfidence = getEnvAsFloat("PIPELINE_TEXT_CONFIDENCE", p.TextConfidence)
	p.WarningThreshold = getEnvAsFloat("PIPELINE_WARNING_THRESHOLD", p.WarningThreshold)
	p.CriticalThreshold = getEnvAsFloat("PIPELINE_CRITICAL_THRESHOLD", p.CriticalThreshold)
	p.DegradedConfidence = getEnvAsFloat("PIPELINE_DEGRADED_CONFIDENCE", p.DegradedConfidence)
	p.MinTextLength = getEnvAsInt("PIPELINE_MIN_TEXT_LENGTH", p.MinTextLength)
	p.ExtractionTimeout = getEnvAsDuration("PIPELINE_EXTRACTION_TIMEOUT", p.ExtractionTimeout)
	p.ExtractionFailurePolicy = ExtractionFailurePolicy(strings.ToLower(
		getEnv("EXTRACTION_FAILURE_POLICY", string(p.ExtractionFailurePolicy)),
	))
	p.OutcomeRetention = getEnvAsDuration("PIPELINE_OUTCOME_RETENTION", p.OutcomeRetention)
	p.HighRiskKeywords = getEnvAsList("PIPELINE_HIGH_RISK_KEYWORDS", p.HighRiskKeywords)
	p.CommonGenericKeywords = getEnvAsList("PIPELINE_COMMON_GENERIC_KEYWORDS", p.CommonGenericKeywords)
	return p
}

// DatabaseDSN returns the PostgreSQL connection string
func (c *DatabaseConfig) DatabaseDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(strings.ToLower(part)); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
