package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	NATS       NATSConfig
	JWT        JWTConfig
	Registry   RegistryConfig
	Cache      CacheConfig
	RateLimit  RateLimitConfig
	Resilience ResilienceConfig
	Tracing    TracingConfig
	Sentry     SentryConfig
	Secrets    SecretsConfig
	Storage    StorageConfig
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port           string
	Environment    string
	ServiceName    string
	Version        string
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout time.Duration
	MaxBodyBytes   int64
	CORSOrigins    string // Comma-separated list of allowed origins
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConns       int
	MinConns       int
	// MigrationsPath is a golang-migrate source URL such as
	// file://db/migrations. Empty uses the migrations embedded in the binary.
	MigrationsPath string
	AutoMigrate    bool
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// NATSConfig holds the event bus connection settings
type NATSConfig struct {
	URL        string
	StreamName string
	Enabled    bool
}

// JWTConfig holds JWT configuration for admin endpoints
type JWTConfig struct {
	Secret string
	Issuer string
}

// RegistryConfig tells the classifier where to load its issuer and
// pattern lists from. An empty Source uses the built-in defaults.
type RegistryConfig struct {
	Source string // local path or s3://bucket/key
}

// CacheConfig holds Redis cache tuning
type CacheConfig struct {
	RecentChecksTTL time.Duration
	CheckTTL        time.Duration
	KeyPrefix       string
}

// RateLimitConfig configures the Redis-backed token bucket limiter. Limit
// tokens refill over each window; Burst adds headroom on top of Limit.
type RateLimitConfig struct {
	Enabled           bool
	WindowSeconds     int
	DefaultLimit      int
	DefaultBurst      int
	AnonymousLimit    int
	AnonymousBurst    int
	RedisPrefix       string
	EndpointOverrides map[string]EndpointRateLimitConfig
}

// EndpointRateLimitConfig overrides the defaults for a single route
type EndpointRateLimitConfig struct {
	AuthenticatedLimit int
	AuthenticatedBurst int
	AnonymousLimit     int
	AnonymousBurst     int
	WindowSeconds      int
}

// ResilienceConfig holds retry and circuit breaker knobs for persistence
type ResilienceConfig struct {
	RetryMaxAttempts       int
	RetryInitialBackoff    time.Duration
	RetryMaxBackoff        time.Duration
	BreakerEnabled         bool
	BreakerIntervalSeconds int
	BreakerTimeoutSeconds  int
	BreakerFailureLimit    int
	BreakerSuccessLimit    int
}

// TracingConfig holds OpenTelemetry exporter settings
type TracingConfig struct {
	Enabled      bool
	OTLPEndpoint string
	SampleRatio  float64
}

// SentryConfig holds error reporting settings
type SentryConfig struct {
	DSN              string
	TracesSampleRate float64
}

// SecretsConfig selects the secret backend used to resolve credentials.
// Each *Ref is a reference in the form [provider://]path[@version][#key].
type SecretsConfig struct {
	Provider          string
	CacheTTL          time.Duration
	DatabasePassRef   string
	JWTSecretRef      string
	VaultAddress      string
	VaultToken        string
	VaultNamespace    string
	VaultMount        string
	AWSRegion         string
	AWSEndpoint       string
	GCPProjectID      string
	GCPCredentialFile string
}

// StorageConfig holds S3 settings used for remote registry files
type StorageConfig struct {
	Region    string
	Endpoint  string
	AccessKey string
	SecretKey string
}

// Load loads configuration from environment variables
func Load(serviceName string) (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Port:           getEnv("PORT", "8080"),
			Environment:    getEnv("ENVIRONMENT", "development"),
			ServiceName:    serviceName,
			Version:        getEnv("SERVICE_VERSION", "1.0.0"),
			ReadTimeout:    getEnvAsInt("READ_TIMEOUT", 10),
			WriteTimeout:   getEnvAsInt("WRITE_TIMEOUT", 10),
			RequestTimeout: getEnvAsDuration("REQUEST_TIMEOUT", 5*time.Second),
			MaxBodyBytes:   int64(getEnvAsInt("MAX_BODY_BYTES", 64*1024)),
			CORSOrigins:    getEnv("CORS_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "upiguard"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       getEnvAsInt("DB_MAX_CONNS", 25),
			MinConns:       getEnvAsInt("DB_MIN_CONNS", 5),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", ""),
			AutoMigrate:    getEnvAsBool("DB_AUTO_MIGRATE", true),
		},
		Redis: RedisConfig{
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL:        getEnv("NATS_URL", "nats://localhost:4222"),
			StreamName: getEnv("NATS_STREAM", "UPIGUARD"),
			Enabled:    getEnvAsBool("NATS_ENABLED", false),
		},
		JWT: JWTConfig{
			Secret: getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			Issuer: getEnv("JWT_ISSUER", "upi-guard"),
		},
		Registry: RegistryConfig{
			Source: getEnv("REGISTRY_SOURCE", ""),
		},
		Cache: CacheConfig{
			RecentChecksTTL: getEnvAsDuration("CACHE_RECENT_CHECKS_TTL", 30*time.Second),
			CheckTTL:        getEnvAsDuration("CACHE_CHECK_TTL", 10*time.Minute),
			KeyPrefix:       getEnv("CACHE_KEY_PREFIX", "upiguard"),
		},
		RateLimit: RateLimitConfig{
			Enabled:        getEnvAsBool("RATE_LIMIT_ENABLED", true),
			WindowSeconds:  getEnvAsInt("RATE_LIMIT_WINDOW_SECONDS", 60),
			DefaultLimit:   getEnvAsInt("RATE_LIMIT_DEFAULT_LIMIT", 120),
			DefaultBurst:   getEnvAsInt("RATE_LIMIT_DEFAULT_BURST", 20),
			AnonymousLimit: getEnvAsInt("RATE_LIMIT_ANON_LIMIT", 60),
			AnonymousBurst: getEnvAsInt("RATE_LIMIT_ANON_BURST", 10),
			RedisPrefix:    getEnv("RATE_LIMIT_PREFIX", "rl"),
			EndpointOverrides: map[string]EndpointRateLimitConfig{
				"/api/v1/reports": {
					AnonymousLimit: getEnvAsInt("RATE_LIMIT_REPORTS_LIMIT", 5),
					AnonymousBurst: 0,
					WindowSeconds:  getEnvAsInt("RATE_LIMIT_REPORTS_WINDOW_SECONDS", 300),
				},
			},
		},
		Resilience: ResilienceConfig{
			RetryMaxAttempts:       getEnvAsInt("DB_RETRY_MAX_ATTEMPTS", 3),
			RetryInitialBackoff:    getEnvAsDuration("DB_RETRY_INITIAL_BACKOFF", 100*time.Millisecond),
			RetryMaxBackoff:        getEnvAsDuration("DB_RETRY_MAX_BACKOFF", 2*time.Second),
			BreakerEnabled:         getEnvAsBool("DB_BREAKER_ENABLED", true),
			BreakerIntervalSeconds: getEnvAsInt("DB_BREAKER_INTERVAL_SECONDS", 60),
			BreakerTimeoutSeconds:  getEnvAsInt("DB_BREAKER_TIMEOUT_SECONDS", 30),
			BreakerFailureLimit:    getEnvAsInt("DB_BREAKER_FAILURE_THRESHOLD", 5),
			BreakerSuccessLimit:    getEnvAsInt("DB_BREAKER_SUCCESS_THRESHOLD", 1),
		},
		Tracing: TracingConfig{
			Enabled:      getEnvAsBool("TRACING_ENABLED", false),
			OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			SampleRatio:  getEnvAsFloat("TRACING_SAMPLE_RATIO", 1.0),
		},
		Sentry: SentryConfig{
			DSN:              getEnv("SENTRY_DSN", ""),
			TracesSampleRate: getEnvAsFloat("SENTRY_TRACES_SAMPLE_RATE", 0.1),
		},
		Secrets: SecretsConfig{
			Provider:          getEnv("SECRETS_PROVIDER", ""),
			CacheTTL:          getEnvAsDuration("SECRETS_CACHE_TTL", 5*time.Minute),
			DatabasePassRef:   getEnv("SECRETS_DB_PASSWORD_REF", ""),
			JWTSecretRef:      getEnv("SECRETS_JWT_SECRET_REF", ""),
			VaultAddress:      getEnv("VAULT_ADDR", ""),
			VaultToken:        getEnv("VAULT_TOKEN", ""),
			VaultNamespace:    getEnv("VAULT_NAMESPACE", ""),
			VaultMount:        getEnv("VAULT_MOUNT", "secret"),
			AWSRegion:         getEnv("AWS_REGION", ""),
			AWSEndpoint:       getEnv("AWS_SECRETS_ENDPOINT", ""),
			GCPProjectID:      getEnv("GCP_PROJECT_ID", ""),
			GCPCredentialFile: getEnv("GOOGLE_APPLICATION_CREDENTIALS", ""),
		},
		Storage: StorageConfig{
			Region:    getEnv("S3_REGION", getEnv("AWS_REGION", "ap-south-1")),
			Endpoint:  getEnv("S3_ENDPOINT", ""),
			AccessKey: getEnv("S3_ACCESS_KEY", ""),
			SecretKey: getEnv("S3_SECRET_KEY", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate rejects configurations that cannot start the service
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("config: PORT must not be empty")
	}
	if c.Database.MaxConns < c.Database.MinConns {
		return fmt.Errorf("config: DB_MAX_CONNS (%d) must be >= DB_MIN_CONNS (%d)", c.Database.MaxConns, c.Database.MinConns)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("config: TRACING_SAMPLE_RATIO must be within [0,1], got %v", c.Tracing.SampleRatio)
	}
	if c.IsProduction() && c.JWT.Secret == "your-secret-key-change-in-production" && c.Secrets.JWTSecretRef == "" {
		return fmt.Errorf("config: JWT_SECRET must be set in production")
	}
	return nil
}

// IsProduction reports whether the service runs in production mode
func (c *Config) IsProduction() bool {
	return c.Server.Environment == "production"
}

// AllowedOrigins splits the CORS origin list
func (c *ServerConfig) AllowedOrigins() []string {
	var origins []string
	for _, o := range strings.Split(c.CORSOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	return origins
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode,
	)
}

// URL returns the database connection string in URL form, as expected by
// the migration driver
func (c *DatabaseConfig) URL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Window returns the refill window, one minute when unset
func (c RateLimitConfig) Window() time.Duration {
	if c.WindowSeconds <= 0 {
		return time.Minute
	}
	return time.Duration(c.WindowSeconds) * time.Second
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

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
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

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}
