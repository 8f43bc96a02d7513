package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Fraud policy defaults. Weights are fractions of the 0-100 score.
const (
	DefaultFraudThreshold           = 70.0
	DefaultWeightDisposableEmail    = 0.25
	DefaultWeightSuspiciousName     = 0.20
	DefaultWeightAdminImpersonation = 0.30
	DefaultWeightInvalidPhone       = 0.15
	DefaultWeightInconsistentAddr   = 0.10
	DefaultWeightCombinedRisk       = 0.15
	DefaultCombinedMinIndicators    = 3
	DefaultMinAddressLength         = 10
)

// Config holds all application configuration
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Fraud    FraudConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
	MinConns int
}

// RedisConfig holds Redis configuration. An empty Host disables the cache.
type RedisConfig struct {
	Host            string
	Port            string
	Password        string
	DB              int
	StatsTTLSeconds int
}

// JWTConfig holds the secret used to verify admin tokens
type JWTConfig struct {
	Secret string
}

// FraudConfig holds the registration risk scoring policy.
// It is read once at startup and never reloaded.
type FraudConfig struct {
	Threshold                 float64
	WeightDisposableEmail     float64
	WeightSuspiciousName      float64
	WeightAdminImpersonation  float64
	WeightInvalidPhone        float64
	WeightInconsistentAddress float64
	WeightCombinedRisk        float64
	CombinedMinIndicators     int
	MinAddressLength          int
	DisposableDomainsFile     string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	p := &parser{}

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 10),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "carbonledger"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
			MaxConns: getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns: getEnvAsInt("DB_MIN_CONNS", 5),
		},
		Redis: RedisConfig{
			Host:            getEnv("REDIS_HOST", ""),
			Port:            getEnv("REDIS_PORT", "6379"),
			Password:        getEnv("REDIS_PASSWORD", ""),
			DB:              getEnvAsInt("REDIS_DB", 0),
			StatsTTLSeconds: getEnvAsInt("REDIS_STATS_TTL_SECONDS", 30),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
		},
		Fraud: FraudConfig{
			Threshold:                 p.float("FRAUD_THRESHOLD", DefaultFraudThreshold),
			WeightDisposableEmail:     p.float("FRAUD_WEIGHT_DISPOSABLE_EMAIL", DefaultWeightDisposableEmail),
			WeightSuspiciousName:      p.float("FRAUD_WEIGHT_SUSPICIOUS_NAME", DefaultWeightSuspiciousName),
			WeightAdminImpersonation:  p.float("FRAUD_WEIGHT_ADMIN_IMPERSONATION", DefaultWeightAdminImpersonation),
			WeightInvalidPhone:        p.float("FRAUD_WEIGHT_INVALID_PHONE", DefaultWeightInvalidPhone),
			WeightInconsistentAddress: p.float("FRAUD_WEIGHT_INCONSISTENT_ADDRESS", DefaultWeightInconsistentAddr),
			WeightCombinedRisk:        p.float("FRAUD_WEIGHT_COMBINED_RISK", DefaultWeightCombinedRisk),
			CombinedMinIndicators:     p.int("FRAUD_COMBINED_MIN_INDICATORS", DefaultCombinedMinIndicators),
			MinAddressLength:          p.int("FRAUD_MIN_ADDRESS_LENGTH", DefaultMinAddressLength),
			DisposableDomainsFile:     getEnv("FRAUD_DISPOSABLE_DOMAINS_FILE", ""),
		},
	}

	if err := errors.Join(p.errs...); err != nil {
		return nil, err
	}
	if err := cfg.Fraud.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// DefaultFraudConfig returns the documented policy defaults.
func DefaultFraudConfig() FraudConfig {
	return FraudConfig{
		Threshold:                 DefaultFraudThreshold,
		WeightDisposableEmail:     DefaultWeightDisposableEmail,
		WeightSuspiciousName:      DefaultWeightSuspiciousName,
		WeightAdminImpersonation:  DefaultWeightAdminImpersonation,
		WeightInvalidPhone:        DefaultWeightInvalidPhone,
		WeightInconsistentAddress: DefaultWeightInconsistentAddr,
		WeightCombinedRisk:        DefaultWeightCombinedRisk,
		CombinedMinIndicators:     DefaultCombinedMinIndicators,
		MinAddressLength:          DefaultMinAddressLength,
	}
}

// Validate reports every out-of-range policy value.
func (c *FraudConfig) Validate() error {
	var errs []error

	if math.IsNaN(c.Threshold) || c.Threshold < 0 || c.Threshold > 100 {
		errs = append(errs, fmt.Errorf("fraud threshold %.2f outside [0,100]", c.Threshold))
	}

	weights := []struct {
		name  string
		value float64
	}{
		{"disposable email", c.WeightDisposableEmail},
		{"suspicious name", c.WeightSuspiciousName},
		{"admin impersonation", c.WeightAdminImpersonation},
		{"invalid phone", c.WeightInvalidPhone},
		{"inconsistent address", c.WeightInconsistentAddress},
		{"combined risk", c.WeightCombinedRisk},
	}
	for _, w := range weights {
		if math.IsNaN(w.value) || w.value < 0 || w.value > 1 {
			errs = append(errs, fmt.Errorf("%s weight %.2f outside [0,1]", w.name, w.value))
		}
	}

	if c.CombinedMinIndicators < 1 {
		errs = append(errs, fmt.Errorf("combined risk minimum indicators must be positive, got %d", c.CombinedMinIndicators))
	}
	if c.MinAddressLength < 0 {
		errs = append(errs, fmt.Errorf("minimum address length must not be negative, got %d", c.MinAddressLength))
	}

	if len(errs) > 0 {
		return fmt.Errorf("invalid fraud configuration: %w", errors.Join(errs...))
	}
	return nil
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// MigrationURL returns the connection URL expected by golang-migrate
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Enabled reports whether a Redis host was configured
func (c *RedisConfig) Enabled() bool {
	return c.Host != ""
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// AllowedOrigins splits CORSOrigins into a trimmed list
func (c *ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// parser collects parse failures for settings where a silent fallback to the
// default would change scoring behaviour.
type parser struct {
	errs []error
}

func (p *parser) float(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseFloat(valueStr, 64)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return value
}

func (p *parser) int(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		p.errs = append(p.errs, fmt.Errorf("%s: %w", key, err))
		return defaultValue
	}
	return value
}
