package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

const defaultJWTSecret = "change-me-in-production-please"

type Config struct {
	// Server
	Port           string
	AllowedOrigins string

	// Database
	DatabaseURL string

	// JWT
	JWTSecret string

	// Environment
	Environment string

	// Cache
	RedisURL string
	CacheTTL time.Duration

	// Supplier lookups
	LookupTimeout         time.Duration
	LookupConcurrency     int
	RelevanceThreshold    float64
	MaxMatchesPerSupplier int
	MaxItems              int

	// Basket recommendation
	SavingsThreshold decimal.Decimal

	// Requests per minute on compare endpoints; 0 disables limiting
	RateLimitPerMinute int

	// Secret for supplier API keys at rest
	SupplierKeySecret string

	// S3/Garage Storage
	S3Enabled      bool
	S3Endpoint     string
	S3AccessKey    string
	S3SecretKey    string
	S3Bucket       string
	S3UseSSL       bool
	S3Region       string
	PhotoRetention time.Duration

	// Photo text extraction: tesseract, openai or none
	OCREngine    string
	OpenAIAPIKey string
	OpenAIModel  string
}

func Load() *Config {
	jwtSecret := getEnv("JWT_SECRET", defaultJWTSecret)
	return &Config{
		Port:                  getEnv("PORT", "8080"),
		AllowedOrigins:        getEnv("ALLOWED_ORIGINS", "*"),
		DatabaseURL:           getEnv("DATABASE_URL", ""),
		JWTSecret:             jwtSecret,
		Environment:           getEnv("ENVIRONMENT", "development"),
		RedisURL:              getEnv("REDIS_URL", ""),
		CacheTTL:              getDurationEnv("CACHE_TTL_SECONDS", 600) * time.Second,
		LookupTimeout:         getDurationEnv("LOOKUP_TIMEOUT_MS", 5000) * time.Millisecond,
		LookupConcurrency:     getIntEnv("LOOKUP_CONCURRENCY", 12),
		RelevanceThreshold:    getFloatEnv("RELEVANCE_THRESHOLD", 0.3),
		MaxMatchesPerSupplier: getIntEnv("MAX_MATCHES_PER_SUPPLIER", 3),
		MaxItems:              getIntEnv("MAX_ITEMS", 200),
		SavingsThreshold:      getDecimalEnv("SAVINGS_THRESHOLD", "5.00"),
		RateLimitPerMinute:    getIntEnv("RATE_LIMIT_PER_MINUTE", 30),
		SupplierKeySecret:     getEnv("SUPPLIER_KEY_SECRET", jwtSecret),
		S3Enabled:             getBoolEnv("S3_ENABLED", false),
		S3Endpoint:            getEnv("S3_ENDPOINT", "localhost:3900"),
		S3AccessKey:           getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:           getEnv("S3_SECRET_KEY", ""),
		S3Bucket:              getEnv("S3_BUCKET", "material-photos"),
		S3UseSSL:              getBoolEnv("S3_USE_SSL", false),
		S3Region:              getEnv("S3_REGION", "garage"),
		PhotoRetention:        getDurationEnv("PHOTO_RETENTION_DAYS", 30) * 24 * time.Hour,
		OCREngine:             getEnv("OCR_ENGINE", "tesseract"),
		OpenAIAPIKey:          getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:           getEnv("OPENAI_MODEL", "gpt-4o-mini"),
	}
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	var errs []error
	if c.LookupConcurrency <= 0 {
		errs = append(errs, errors.New("LOOKUP_CONCURRENCY must be positive"))
	}
	if c.LookupTimeout <= 0 {
		errs = append(errs, errors.New("LOOKUP_TIMEOUT_MS must be positive"))
	}
	if c.CacheTTL <= 0 {
		errs = append(errs, errors.New("CACHE_TTL_SECONDS must be positive"))
	}
	if c.MaxMatchesPerSupplier <= 0 {
		errs = append(errs, errors.New("MAX_MATCHES_PER_SUPPLIER must be positive"))
	}
	if c.MaxItems <= 0 {
		errs = append(errs, errors.New("MAX_ITEMS must be positive"))
	}
	if c.RelevanceThreshold <= 0 || c.RelevanceThreshold > 1 {
		errs = append(errs, errors.New("RELEVANCE_THRESHOLD must be in (0, 1]"))
	}
	if c.SavingsThreshold.IsNegative() {
		errs = append(errs, errors.New("SAVINGS_THRESHOLD must not be negative"))
	}
	if c.RateLimitPerMinute < 0 {
		errs = append(errs, errors.New("RATE_LIMIT_PER_MINUTE must not be negative"))
	}
	switch c.OCREngine {
	case "tesseract", "none":
	case "openai":
		if c.OpenAIAPIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when OCR_ENGINE=openai"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown OCR_ENGINE %q", c.OCREngine))
	}
	if c.IsProduction() && c.JWTSecret == defaultJWTSecret {
		errs = append(errs, errors.New("JWT_SECRET must be set in production"))
	}
	return errors.Join(errs...)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getDecimalEnv(key, defaultValue string) decimal.Decimal {
	if value := os.Getenv(key); value != "" {
		if d, err := decimal.NewFromString(value); err == nil {
			return d
		}
	}
	return decimal.RequireFromString(defaultValue)
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return time.Duration(intVal)
		}
	}
	return time.Duration(defaultValue)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
