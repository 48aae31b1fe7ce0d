package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// MaxClassifierRetries caps how often one message is re-sent to the classifier
const MaxClassifierRetries = 1

// Store drivers accepted by STORE_DRIVER
const (
	StoreDriverPostgres = "postgres"
	StoreDriverMemory   = "memory"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	Classifier ClassifierConfig
	Scan       ScanConfig
	Geo        GeoConfig
	Tracing    TracingConfig
	Sentry     SentryConfig
	RateLimit  RateLimitConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port         string
	Environment  string
	ServiceName  string
	ReadTimeout  int
	WriteTimeout int
	CORSOrigins  string // Comma-separated list of allowed origins
	StoreDriver  string
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host          string
	Port          string
	User          string
	Password      string
	DBName        string
	SSLMode       string
	MaxConns      int
	MinConns      int
	RunMigrations bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	Enabled  bool
}

// NATSConfig holds NATS JetStream configuration
type NATSConfig struct {
	URL     string
	Stream  string
	Enabled bool
}

// ClassifierConfig holds the external scoring endpoint configuration
type ClassifierConfig struct {
	BaseURL          string
	Path             string
	Timeout          time.Duration
	BreakerInterval  int
	BreakerTimeout   int
	FailureThreshold int
	SuccessThreshold int
}

// ScanConfig tunes the scan orchestrator
type ScanConfig struct {
	Workers           int
	Deadline          time.Duration
	ClassifierRetries int
	RetryBackoff      time.Duration
	LockTTL           time.Duration
}

// GeoConfig tunes the alert geo-query engine and location store
type GeoConfig struct {
	TieBreakRadiusKm float64
	LocationTTL      time.Duration
}

// TracingConfig holds OpenTelemetry exporter configuration
type TracingConfig struct {
	Endpoint string
	Enabled  bool
}

// RateLimitConfig configures the Redis token-bucket limiter guarding write endpoints
type RateLimitConfig struct {
	Enabled        bool
	WindowSeconds  int
	DefaultLimit   int
	DefaultBurst   int
	AnonymousLimit int
	AnonymousBurst int
	RedisPrefix    string
	// EndpointOverrides is keyed by route template, e.g. "/api/v1/users/:user_id/scans".
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides the defaults for one route. Zero limits and
// windows keep the default; bursts of zero are honoured.
type EndpointRateLimitConfig struct {
	AuthenticatedLimit int
	AuthenticatedBurst int
	AnonymousLimit     int
	AnonymousBurst     int
	WindowSeconds      int
}

// Window returns the default refill window
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
}

// SentryConfig holds Sentry configuration
type SentryConfig struct {
	DSN string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			Environment:  getEnv("ENVIRONMENT", "development"),
			ServiceName:  serviceName,
			ReadTimeout:  getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout: getEnvAsInt("WRITE_TIMEOUT", 200),
			CORSOrigins:  getEnv("CORS_ORIGINS", "http://localhost:3000"),
			StoreDriver:  getEnv("STORE_DRIVER", StoreDriverPostgres),
		},
		Database: DatabaseConfig{
			Host:          getEnv("DB_HOST", "localhost"),
			Port:          getEnv("DB_PORT", "5432"),
			User:          getEnv("DB_USER", "postgres"),
			Password:      getEnv("DB_PASSWORD", "postgres"),
			DBName:        getEnv("DB_NAME", "finsight"),
			SSLMode:       getEnv("DB_SSLMODE", "disable"),
			MaxConns:      getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:      getEnvAsInt("DB_MIN_CONNS", 5),
			RunMigrations: getEnvAsBool("DB_RUN_MIGRATIONS", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		NATS: NATSConfig{
			URL:     getEnv("NATS_URL", "nats://localhost:4222"),
			Stream:  getEnv("NATS_STREAM", "FINSIGHT"),
			Enabled: getEnvAsBool("NATS_ENABLED", false),
		},
		Classifier: ClassifierConfig{
			BaseURL:          getEnv("CLASSIFIER_URL", "http://localhost:8000"),
			Path:             getEnv("CLASSIFIER_PATH", "/predict-spam"),
			Timeout:          getEnvAsDuration("CLASSIFIER_TIMEOUT", 15*time.Second),
			BreakerInterval:  getEnvAsInt("CLASSIFIER_BREAKER_INTERVAL", 60),
			BreakerTimeout:   getEnvAsInt("CLASSIFIER_BREAKER_TIMEOUT", 30),
			FailureThreshold: getEnvAsInt("CLASSIFIER_BREAKER_FAILURES", 5),
			SuccessThreshold: getEnvAsInt("CLASSIFIER_BREAKER_SUCCESSES", 1),
		},
		Scan: ScanConfig{
			Workers:           getEnvAsInt("SCAN_WORKERS", 4),
			Deadline:          getEnvAsDuration("SCAN_DEADLINE", 3*time.Minute),
			ClassifierRetries: getEnvAsInt("SCAN_CLASSIFIER_RETRIES", 1),
			RetryBackoff:      getEnvAsDuration("SCAN_RETRY_BACKOFF", 500*time.Millisecond),
			LockTTL:           getEnvAsDuration("SCAN_LOCK_TTL", 5*time.Minute),
		},
		Geo: GeoConfig{
			TieBreakRadiusKm: getEnvAsFloat("GEO_TIE_BREAK_RADIUS_KM", 2.0),
			LocationTTL:      getEnvAsDuration("GEO_LOCATION_TTL", 24*time.Hour),
		},
		Tracing: TracingConfig{
			Endpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Enabled:  getEnvAsBool("TRACING_ENABLED", false),
		},
		Sentry: SentryConfig{
			DSN: getEnv("SENTRY_DSN", ""),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:   getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 120),
			DefaultBurst:   getEnvAsInt("RATE_LIMIT_DEFAULT_BURST", 20),
			AnonymousLimit: getEnvAsInt("RATE_LIMIT_ANON_LIMIT", 30),
			AnonymousBurst: getEnvAsInt("RATE_LIMIT_ANON_BURST", 5),
			RedisPrefix:    getEnv("RATE_LIMIT_PREFIX", "rl"),
			EndpointOverrides: map[string]EndpointRateLimitConfig{
				"/api/v1/users/:user_id/scans": {
					AuthenticatedLimit: getEnvAsInt("RATE_LIMIT_SCAN_LIMIT", 6),
					AuthenticatedBurst: getEnvAsInt("RATE_LIMIT_SCAN_BURST", 2),
				},
			},
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations the service cannot run with
func (c *Config) Validate() error {
	switch c.Server.StoreDriver {
	case StoreDriverPostgres, StoreDriverMemory:
	default:
		return fmt.Errorf("unsupported STORE_DRIVER %q", c.Server.StoreDriver)
	}
	if c.Scan.Workers <= 0 {
		return fmt.Errorf("SCAN_WORKERS must be positive, got %d", c.Scan.Workers)
	}
	if c.Scan.ClassifierRetries < 0 || c.Scan.ClassifierRetries > MaxClassifierRetries {
		return fmt.Errorf("SCAN_CLASSIFIER_RETRIES must be between 0 and %d, got %d", MaxClassifierRetries, c.Scan.ClassifierRetries)
	}
	if c.Geo.TieBreakRadiusKm <= 0 {
		return fmt.Errorf("GEO_TIE_BREAK_RADIUS_KM must be positive, got %v", c.Geo.TieBreakRadiusKm)
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

// MigrationURL returns the connection URL understood by the pgx/v5 migrate driver
func (c *DatabaseConfig) MigrationURL() string {
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// RedisAddr returns the Redis address
func (c *RedisConfig) RedisAddr() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
