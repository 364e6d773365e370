package config

import (
	"fmt"

	pkgconfig "github.com/giftflow/giftflow/pkg/config"
)

// Config holds all configuration for the giftflow service. It is built once
// at process start and injected; business logic never reads the environment
// directly.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost          string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort          int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser          string `env:"POSTGRES_USER" envDefault:"giftflow"`
	PostgresPass          string `env:"POSTGRES_PASSWORD" envDefault:"giftflow_secret"`
	PostgresDB            string `env:"POSTGRES_DB" envDefault:"giftflow_db"`
	PostgresSSL           string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`
	DBMaxConns            int    `env:"DB_MAX_CONNS" envDefault:"10"`
	DBMinConns            int    `env:"DB_MIN_CONNS" envDefault:"2"`
	DBMaxConnLifetimeMins int    `env:"DB_MAX_CONN_LIFETIME_MINS" envDefault:"60"`
	DBMaxConnIdleTimeMins int    `env:"DB_MAX_CONN_IDLE_TIME_MINS" envDefault:"30"`
	SlowQueryThresholdMs  int    `env:"SLOW_QUERY_THRESHOLD_MS" envDefault:"200"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT
	JWTSecret        string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	JWTAccessExpiry  string `env:"JWT_ACCESS_TOKEN_EXPIRY" envDefault:"24h"`
	JWTRefreshExpiry string `env:"JWT_REFRESH_TOKEN_EXPIRY" envDefault:"168h"`

	// Payment processor (Stripe)
	ProcessorName          string `env:"PROCESSOR" envDefault:"mock"`
	StripeAPIKey           string `env:"STRIPE_API_KEY"`
	StripeWebhookSecret    string `env:"STRIPE_WEBHOOK_SECRET"`
	ProcessorMaxRetries    int    `env:"PROCESSOR_MAX_RETRIES" envDefault:"3"`
	ProcessorTimeoutSecs   int    `env:"PROCESSOR_TIMEOUT_SECS" envDefault:"30"`
	Currency               string `env:"CURRENCY" envDefault:"aud"`
	AccountCountry         string `env:"ACCOUNT_COUNTRY" envDefault:"AU"`
	PlatformDescription    string `env:"PLATFORM_DESCRIPTION" envDefault:"Giftflow gift collections"`
	ProcessorBreakerMaxReq int    `env:"PROCESSOR_BREAKER_MAX_REQUESTS" envDefault:"3"`

	// Object storage (S3 / MinIO)
	StorageBackend  string `env:"STORAGE_BACKEND" envDefault:"memory"`
	S3Endpoint      string `env:"S3_ENDPOINT"`
	S3Region        string `env:"S3_REGION" envDefault:"ap-southeast-2"`
	S3Bucket        string `env:"S3_BUCKET" envDefault:"giftflow"`
	S3AccessKey     string `env:"S3_ACCESS_KEY"`
	S3SecretKey     string `env:"S3_SECRET_KEY"`
	SignedURLTTLMin int    `env:"SIGNED_URL_TTL_MINS" envDefault:"60"`

	// SMTP
	SMTPHost string `env:"SMTP_HOST" envDefault:"localhost"`
	SMTPPort int    `env:"SMTP_PORT" envDefault:"587"`
	SMTPUser string `env:"SMTP_USER"`
	SMTPPass string `env:"SMTP_PASSWORD"`
	MailFrom string `env:"MAIL_FROM" envDefault:"no-reply@giftflow.example"`
	// Base URL embedded into verification links.
	PublicBaseURL string `env:"PUBLIC_BASE_URL" envDefault:"http://localhost:8080"`

	// Business rules. Each verification document slot has its own size cap.
	AcceptanceWindowDays   int `env:"EVENT_ACCEPTANCE_WINDOW_DAYS" envDefault:"7"`
	MinimumAge             int `env:"MINIMUM_AGE" envDefault:"18"`
	DocFrontMaxSizeMB      int `env:"DOCUMENT_FRONT_MAX_SIZE_MB" envDefault:"5"`
	DocBackMaxSizeMB       int `env:"DOCUMENT_BACK_MAX_SIZE_MB" envDefault:"5"`
	DocAdditionalMaxSizeMB int `env:"DOCUMENT_ADDITIONAL_MAX_SIZE_MB" envDefault:"10"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"*" envSeparator:","`

	// OpenTelemetry
	OTELEnabled    bool    `env:"OTEL_ENABLED" envDefault:"false"`
	OTELEndpoint   string  `env:"OTEL_EXPORTER_OTLP_ENDPOINT" envDefault:"localhost:4318"`
	OTELSampleRate float64 `env:"OTEL_SAMPLE_RATE" envDefault:"1.0"`

	// pprof access
	PprofAllowedCIDRs []string `env:"PPROF_ALLOWED_CIDRS" envDefault:"127.0.0.1/32" envSeparator:","`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load giftflow config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}

	// In non-development environments, require an explicitly set, strong JWT
	// secret and real processor credentials.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
		if cfg.ProcessorName == "stripe" && cfg.StripeAPIKey == "" {
			return nil, fmt.Errorf("STRIPE_API_KEY must be set when PROCESSOR=stripe in %q mode", cfg.Environment)
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}
