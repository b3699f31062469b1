// Package config handles loading and validation of application configuration
// from environment variables.
package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/AgriPilot/agripilot-backend/logger"
	"github.com/spf13/viper"
)

// Environment represents the application's running environment.
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvProduction  Environment = "production"

	minSecretLength = 32
)

// ServerConfig holds server-specific configuration.
type ServerConfig struct {
	Environment    Environment `mapstructure:"ENVIRONMENT"`
	Port           string      `mapstructure:"PORT"`
	AllowedOrigins []string    `mapstructure:"ALLOWED_ORIGINS"`
	Version        string      `mapstructure:"VERSION"`
	FrontendURL    string      `mapstructure:"FRONTEND_URL"`
}

// DatabaseConfig holds PostgreSQL connection details.
type DatabaseConfig struct {
	Host         string `mapstructure:"HOST"`
	Port         int    `mapstructure:"PORT"`
	User         string `mapstructure:"USER"`
	Password     string `mapstructure:"PASSWORD"`
	Name         string `mapstructure:"NAME"`
	SSLMode      string `mapstructure:"SSL_MODE"`
	MaxOpenConns int    `mapstructure:"MAX_OPEN_CONNS"`
	MaxIdleConns int    `mapstructure:"MAX_IDLE_CONNS"`
	ConnMaxLife  string `mapstructure:"CONN_MAX_LIFE"`
}

// URL returns a postgres:// connection URL suitable for golang-migrate and
// other URL-based tools.
func (c *DatabaseConfig) URL() string {
	sslmode := c.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(c.User),
		url.QueryEscape(c.Password),
		c.Host,
		c.Port,
		c.Name,
		sslmode,
	)
}

// RedisConfig holds Redis connection details.
type RedisConfig struct {
	Address      string `mapstructure:"ADDRESS"`
	Password     string `mapstructure:"PASSWORD"`
	DB           int    `mapstructure:"DB"`
	UseTLS       bool   `mapstructure:"USE_TLS"`
	PoolSize     int    `mapstructure:"POOL_SIZE"`
	MinIdleConns int    `mapstructure:"MIN_IDLE_CONNS"`
}

// SupabaseConfig holds the Supabase project credentials used for JWT
// validation and reviewer profile lookups.
type SupabaseConfig struct {
	URL        string `mapstructure:"URL"`
	AnonKey    string `mapstructure:"ANON_KEY"`
	ServiceKey string `mapstructure:"SERVICE_KEY"`
	JWTSecret  string `mapstructure:"JWT_SECRET"`
}

// FunctionsConfig holds settings for the extraction edge functions API.
type FunctionsConfig struct {
	// BaseURL is the root of the deployed edge functions,
	// e.g. https://<project>.supabase.co/functions/v1
	BaseURL        string `mapstructure:"BASE_URL"`
	APIKey         string `mapstructure:"API_KEY"`
	TimeoutSeconds int    `mapstructure:"TIMEOUT_SECONDS"`
}

// ExtractionConfig holds reconciliation settings.
type ExtractionConfig struct {
	// FieldmapProfile is an optional path to a YAML profile overriding the
	// built-in field mapping dictionary. Empty means built-in only.
	FieldmapProfile string `mapstructure:"FIELDMAP_PROFILE"`
}

// StorageConfig holds the S3-compatible document store settings.
type StorageConfig struct {
	Endpoint        string `mapstructure:"ENDPOINT"`
	Region          string `mapstructure:"REGION"`
	Bucket          string `mapstructure:"BUCKET"`
	AccessKeyID     string `mapstructure:"ACCESS_KEY_ID"`
	SecretAccessKey string `mapstructure:"SECRET_ACCESS_KEY"`
	// MaxUploadBytes caps document upload size. Defaults to 25 MiB.
	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`
}

// EmailConfig holds configuration for reviewer notification emails.
type EmailConfig struct {
	FromAddress  string `mapstructure:"FROM_ADDRESS"`
	FromName     string `mapstructure:"FROM_NAME"`
	ResendAPIKey string `mapstructure:"RESEND_API_KEY"`
	Enabled      bool   `mapstructure:"ENABLED"`
}

// EventServiceConfig holds configuration for the Redis progress event bus.
type EventServiceConfig struct {
	PublishTimeoutSeconds   int `mapstructure:"PUBLISH_TIMEOUT_SECONDS"`
	SubscribeTimeoutSeconds int `mapstructure:"SUBSCRIBE_TIMEOUT_SECONDS"`
	EventBufferSize         int `mapstructure:"EVENT_BUFFER_SIZE"`
}

// RateLimitConfig holds configuration for rate limiting mutating endpoints.
type RateLimitConfig struct {
	RequestsPerMinute int `mapstructure:"REQUESTS_PER_MINUTE"`
	WindowSeconds     int `mapstructure:"WINDOW_SECONDS"`
}

// WorkerPoolConfig holds configuration for the pipeline worker pool.
type WorkerPoolConfig struct {
	MaxWorkers             int `mapstructure:"MAX_WORKERS"`
	QueueSize              int `mapstructure:"QUEUE_SIZE"`
	ShutdownTimeoutSeconds int `mapstructure:"SHUTDOWN_TIMEOUT_SECONDS"`
}

// Config aggregates all application configuration sections.
type Config struct {
	Server       ServerConfig       `mapstructure:"SERVER"`
	Database     DatabaseConfig     `mapstructure:"DATABASE"`
	Redis        RedisConfig        `mapstructure:"REDIS"`
	Supabase     SupabaseConfig     `mapstructure:"SUPABASE"`
	Functions    FunctionsConfig    `mapstructure:"FUNCTIONS"`
	Extraction   ExtractionConfig   `mapstructure:"EXTRACTION"`
	Storage      StorageConfig      `mapstructure:"STORAGE"`
	Email        EmailConfig        `mapstructure:"EMAIL"`
	EventService EventServiceConfig `mapstructure:"EVENT_SERVICE"`
	RateLimit    RateLimitConfig    `mapstructure:"RATE_LIMIT"`
	WorkerPool   WorkerPoolConfig   `mapstructure:"WORKER_POOL"`
}

// IsDevelopment returns true when running in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.Server.Environment == EnvDevelopment
}

// IsProduction returns true when running in the production environment.
func (c *Config) IsProduction() bool {
	return c.Server.Environment == EnvProduction
}

func bindEnvVars(v *viper.Viper, bindings [][2]string) error {
	for _, b := range bindings {
		if err := v.BindEnv(b[0], b[1]); err != nil {
			return fmt.Errorf("failed to bind %s: %w", b[0], err)
		}
	}
	return nil
}

// LoadConfig loads configuration from environment variables using Viper,
// applies defaults, unmarshals, and validates the result.
func LoadConfig() (*Config, error) {
	v := viper.New()
	log := logger.GetLogger()

	v.SetDefault("SERVER.ENVIRONMENT", EnvDevelopment)
	v.SetDefault("SERVER.PORT", "8080")
	v.SetDefault("SERVER.ALLOWED_ORIGINS", []string{"*"})
	v.SetDefault("DATABASE.HOST", "localhost")
	v.SetDefault("DATABASE.PORT", 5432)
	v.SetDefault("DATABASE.USER", "postgres")
	v.SetDefault("DATABASE.PASSWORD", "")
	v.SetDefault("DATABASE.NAME", "agripilot_dev")
	v.SetDefault("DATABASE.SSL_MODE", "disable")
	v.SetDefault("DATABASE.MAX_OPEN_CONNS", 5)
	v.SetDefault("DATABASE.MAX_IDLE_CONNS", 2)
	v.SetDefault("DATABASE.CONN_MAX_LIFE", "1h")
	v.SetDefault("REDIS.ADDRESS", "localhost:6379")
	v.SetDefault("REDIS.PASSWORD", "")
	v.SetDefault("REDIS.DB", 0)
	v.SetDefault("REDIS.USE_TLS", false)
	v.SetDefault("REDIS.POOL_SIZE", 3)
	v.SetDefault("REDIS.MIN_IDLE_CONNS", 1)
	v.SetDefault("FUNCTIONS.TIMEOUT_SECONDS", 60)
	v.SetDefault("STORAGE.REGION", "auto")
	v.SetDefault("STORAGE.MAX_UPLOAD_BYTES", int64(25<<20))
	v.SetDefault("EMAIL.ENABLED", false)
	v.SetDefault("EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", 5)
	v.SetDefault("EVENT_SERVICE.SUBSCRIBE_TIMEOUT_SECONDS", 10)
	v.SetDefault("EVENT_SERVICE.EVENT_BUFFER_SIZE", 100)
	v.SetDefault("RATE_LIMIT.REQUESTS_PER_MINUTE", 60)
	v.SetDefault("RATE_LIMIT.WINDOW_SECONDS", 60)
	v.SetDefault("WORKER_POOL.MAX_WORKERS", 4)
	v.SetDefault("WORKER_POOL.QUEUE_SIZE", 100)
	v.SetDefault("WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", 30)
	v.SetDefault("LOG_LEVEL", "info")

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	envBindings := [][2]string{
		{"SERVER.ENVIRONMENT", "SERVER_ENVIRONMENT"},
		{"SERVER.PORT", "PORT"},
		{"SERVER.ALLOWED_ORIGINS", "ALLOWED_ORIGINS"},
		{"SERVER.FRONTEND_URL", "FRONTEND_URL"},
		{"DATABASE.HOST", "DB_HOST"},
		{"DATABASE.PORT", "DB_PORT"},
		{"DATABASE.USER", "DB_USER"},
		{"DATABASE.PASSWORD", "DB_PASSWORD"},
		{"DATABASE.NAME", "DB_NAME"},
		{"DATABASE.SSL_MODE", "DB_SSL_MODE"},
		{"REDIS.ADDRESS", "REDIS_ADDRESS"},
		{"REDIS.PASSWORD", "REDIS_PASSWORD"},
		{"REDIS.DB", "REDIS_DB"},
		{"REDIS.USE_TLS", "REDIS_USE_TLS"},
		{"SUPABASE.URL", "SUPABASE_URL"},
		{"SUPABASE.ANON_KEY", "SUPABASE_ANON_KEY"},
		{"SUPABASE.SERVICE_KEY", "SUPABASE_SERVICE_KEY"},
		{"SUPABASE.JWT_SECRET", "SUPABASE_JWT_SECRET"},
		{"FUNCTIONS.BASE_URL", "FUNCTIONS_BASE_URL"},
		{"FUNCTIONS.API_KEY", "FUNCTIONS_API_KEY"},
		{"FUNCTIONS.TIMEOUT_SECONDS", "FUNCTIONS_TIMEOUT_SECONDS"},
		{"EXTRACTION.FIELDMAP_PROFILE", "EXTRACTION_FIELDMAP_PROFILE"},
		{"STORAGE.ENDPOINT", "STORAGE_ENDPOINT"},
		{"STORAGE.REGION", "STORAGE_REGION"},
		{"STORAGE.BUCKET", "STORAGE_BUCKET"},
		{"STORAGE.ACCESS_KEY_ID", "STORAGE_ACCESS_KEY_ID"},
		{"STORAGE.SECRET_ACCESS_KEY", "STORAGE_SECRET_ACCESS_KEY"},
		{"STORAGE.MAX_UPLOAD_BYTES", "STORAGE_MAX_UPLOAD_BYTES"},
		{"EMAIL.FROM_ADDRESS", "EMAIL_FROM_ADDRESS"},
		{"EMAIL.FROM_NAME", "EMAIL_FROM_NAME"},
		{"EMAIL.RESEND_API_KEY", "RESEND_API_KEY"},
		{"EMAIL.ENABLED", "EMAIL_ENABLED"},
		{"EVENT_SERVICE.PUBLISH_TIMEOUT_SECONDS", "EVENT_SERVICE_PUBLISH_TIMEOUT_SECONDS"},
		{"EVENT_SERVICE.SUBSCRIBE_TIMEOUT_SECONDS", "EVENT_SERVICE_SUBSCRIBE_TIMEOUT_SECONDS"},
		{"EVENT_SERVICE.EVENT_BUFFER_SIZE", "EVENT_SERVICE_EVENT_BUFFER_SIZE"},
		{"RATE_LIMIT.REQUESTS_PER_MINUTE", "RATE_LIMIT_REQUESTS_PER_MINUTE"},
		{"RATE_LIMIT.WINDOW_SECONDS", "RATE_LIMIT_WINDOW_SECONDS"},
		{"WORKER_POOL.MAX_WORKERS", "WORKER_POOL_MAX_WORKERS"},
		{"WORKER_POOL.QUEUE_SIZE", "WORKER_POOL_QUEUE_SIZE"},
		{"WORKER_POOL.SHUTDOWN_TIMEOUT_SECONDS", "WORKER_POOL_SHUTDOWN_TIMEOUT_SECONDS"},
	}

	if err := bindEnvVars(v, envBindings); err != nil {
		return nil, err
	}

	log.Infow("Configuration loaded",
		"environment", v.GetString("SERVER.ENVIRONMENT"),
		"server_port", v.GetString("SERVER.PORT"),
		"db_host", v.GetString("DATABASE.HOST"),
		"functions_base_url", v.GetString("FUNCTIONS.BASE_URL"),
		"worker_pool_max_workers", v.GetInt("WORKER_POOL.MAX_WORKERS"),
	)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config unmarshal failed: %w", err)
	}

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	log.Info("Configuration validated successfully")
	return &cfg, nil
}

func validateConfig(cfg *Config) error {
	log := logger.GetLogger()

	if cfg.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if !containsWildcard(cfg.Server.AllowedOrigins) {
		for _, origin := range cfg.Server.AllowedOrigins {
			if _, err := url.ParseRequestURI(origin); err != nil {
				return fmt.Errorf("invalid allowed origin '%s': %w", origin, err)
			}
		}
	}

	if cfg.Database.Host == "" {
		return fmt.Errorf("database host is required")
	}
	if cfg.Database.User == "" {
		return fmt.Errorf("database user is required")
	}
	if cfg.Database.Password == "" {
		log.Warn("Database password is not set. Ensure this is intended (e.g., trusted auth).")
	}
	if cfg.Database.Name == "" {
		return fmt.Errorf("database name is required")
	}

	if cfg.Redis.Address == "" {
		return fmt.Errorf("redis address is required")
	}

	if cfg.Supabase.URL == "" {
		return fmt.Errorf("supabase URL is required")
	}
	if cfg.Supabase.AnonKey == "" {
		return fmt.Errorf("supabase anon key is required")
	}
	if len(cfg.Supabase.JWTSecret) < minSecretLength {
		return fmt.Errorf("supabase JWT secret must be at least %d characters long", minSecretLength)
	}

	if cfg.Functions.BaseURL == "" {
		return fmt.Errorf("functions base URL is required")
	}
	if _, err := url.ParseRequestURI(cfg.Functions.BaseURL); err != nil {
		return fmt.Errorf("invalid functions base URL: %w", err)
	}
	if cfg.Functions.TimeoutSeconds <= 0 {
		return fmt.Errorf("functions timeout must be positive")
	}

	if cfg.Storage.Bucket == "" {
		return fmt.Errorf("storage bucket is required")
	}
	if cfg.Storage.MaxUploadBytes <= 0 {
		return fmt.Errorf("storage max upload bytes must be positive")
	}

	if cfg.Email.Enabled && cfg.Email.ResendAPIKey == "" {
		log.Warn("Resend API key not set, auto-disabling email notifications")
		cfg.Email.Enabled = false
	}
	if cfg.Email.Enabled && cfg.Email.FromAddress == "" {
		return fmt.Errorf("email from address is required when email is enabled")
	}

	if cfg.EventService.PublishTimeoutSeconds <= 0 {
		return fmt.Errorf("event service publish timeout must be positive")
	}
	if cfg.EventService.SubscribeTimeoutSeconds <= 0 {
		return fmt.Errorf("event service subscribe timeout must be positive")
	}
	if cfg.EventService.EventBufferSize <= 0 {
		return fmt.Errorf("event service buffer size must be positive")
	}

	if cfg.RateLimit.RequestsPerMinute <= 0 {
		return fmt.Errorf("rate limit requests per minute must be positive")
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		return fmt.Errorf("rate limit window seconds must be positive")
	}

	if cfg.WorkerPool.MaxWorkers <= 0 {
		return fmt.Errorf("worker pool max workers must be positive")
	}
	if cfg.WorkerPool.QueueSize <= 0 {
		return fmt.Errorf("worker pool queue size must be positive")
	}
	if cfg.WorkerPool.ShutdownTimeoutSeconds <= 0 {
		return fmt.Errorf("worker pool shutdown timeout must be positive")
	}

	return nil
}

func containsWildcard(origins []string) bool {
	for _, origin := range origins {
		if origin == "*" {
			return true
		}
	}
	return false
}
