// internal/config/config.go
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Environment string
	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	AWS         AWSConfig
	Payment     PaymentConfig
	Email       EmailConfig
	Kafka       KafkaConfig
	Importer    ImporterConfig
	Logging     LoggingConfig
	I18n        I18nConfig
	Frontend    FrontendConfig
}

type FrontendConfig struct {
	BaseURL        string
	AllowedOrigins []string
}

type ServerConfig struct {
	Port         string
	Host         string
	ReadTimeout  int
	WriteTimeout int
	IdleTimeout  int
}

type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Database     string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	MaxLifetime  int
	LogLevel     string
}

type JWTConfig struct {
	SecretKey      string
	AccessTokenTTL int // in hours
}

type AWSConfig struct {
	Region          string
	AccessKeyID     string
	SecretAccessKey string
	S3Bucket        string
}

type PaymentConfig struct {
	Provider              string // stripe | conekta
	Currency              string
	TaxRate               float64
	GatewayTimeout        time.Duration
	AllowedCountries      []string
	SuccessPath           string
	CancelPath            string
	StripeSecretKey       string
	StripeWebhookSecret   string
	StripeAPIURL          string
	ConektaPrivateKey     string
	ConektaWebhookSecret  string
	ConektaAPIURL         string
	NotificationWorkers   int
	WebhookMaxBodyBytes   int64
	CheckoutRatePerSecond int
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
	ReplyTo      string
}

type KafkaConfig struct {
	Brokers    []string
	OrderTopic string
}

type ImporterConfig struct {
	UploadDir        string
	SentinelCategory string
	SweepSpec        string
	SweepBatchSize   int
	FetchTimeout     time.Duration
	MaxSlugRetries   int
}

type LoggingConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

type I18nConfig struct {
	DefaultLocale string
	LocalesPath   string
}

func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	config := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Port:         getEnv("SERVER_PORT", "1337"),
			Host:         getEnv("SERVER_HOST", "localhost"),
			ReadTimeout:  getEnvAsInt("SERVER_READ_TIMEOUT", 15),
			WriteTimeout: getEnvAsInt("SERVER_WRITE_TIMEOUT", 30),
			IdleTimeout:  getEnvAsInt("SERVER_IDLE_TIMEOUT", 60),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnv("DB_PORT", "5432"),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Database:     getEnv("DB_NAME", "storefront"),
			SSLMode:      getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 25),
			MaxLifetime:  getEnvAsInt("DB_MAX_LIFETIME", 300),
			LogLevel:     getEnv("DB_LOG_LEVEL", "silent"),
		},
		JWT: JWTConfig{
			SecretKey:      getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getEnvAsInt("JWT_ACCESS_TTL", 24),
		},
		AWS: AWSConfig{
			Region:          getEnv("AWS_REGION", "us-east-1"),
			AccessKeyID:     getEnv("AWS_ACCESS_KEY_ID", ""),
			SecretAccessKey: getEnv("AWS_SECRET_ACCESS_KEY", ""),
			S3Bucket:        getEnv("AWS_S3_BUCKET", "storefront-imports"),
		},
		Payment: PaymentConfig{
			Provider:              strings.ToLower(getEnv("PAYMENT_PROVIDER", "stripe")),
			Currency:              strings.ToLower(getEnv("PAYMENT_CURRENCY", "mxn")),
			TaxRate:               getEnvAsFloat("PAYMENT_TAX_RATE", 0.16),
			GatewayTimeout:        getEnvAsDuration("PAYMENT_GATEWAY_TIMEOUT", 10*time.Second),
			AllowedCountries:      getEnvAsSlice("PAYMENT_ALLOWED_COUNTRIES", []string{"MX"}),
			SuccessPath:           getEnv("PAYMENT_SUCCESS_PATH", "/success"),
			CancelPath:            getEnv("PAYMENT_CANCEL_PATH", "/successError"),
			StripeSecretKey:       getEnv("STRIPE_KEY", ""),
			StripeWebhookSecret:   getEnv("STRIPE_WEBHOOK_SECRET", ""),
			StripeAPIURL:          getEnv("STRIPE_API_URL", ""),
			ConektaPrivateKey:     getEnv("CONEKTA_PRIVATE_KEY", ""),
			ConektaWebhookSecret:  getEnv("CONEKTA_WEBHOOK_SECRET", ""),
			ConektaAPIURL:         getEnv("CONEKTA_API_URL", "https://api.conekta.io"),
			NotificationWorkers:   getEnvAsInt("NOTIFICATION_WORKERS", 8),
			WebhookMaxBodyBytes:   int64(getEnvAsInt("WEBHOOK_MAX_BODY_BYTES", 1<<20)),
			CheckoutRatePerSecond: getEnvAsInt("CHECKOUT_RATE_PER_SECOND", 5),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 465),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("SMTP_FROM", "soporte@refaccionesixoye.mx"),
			FromName:     getEnv("SMTP_FROM_NAME", "Refacciones Ixoye"),
			ReplyTo:      getEnv("SMTP_REPLY_TO", "soporte@refaccionesixoye.mx"),
		},
		Kafka: KafkaConfig{
			Brokers:    getEnvAsSlice("KAFKA_BROKERS", nil),
			OrderTopic: getEnv("KAFKA_ORDER_TOPIC", "storefront.order.events"),
		},
		Importer: ImporterConfig{
			UploadDir:        getEnv("IMPORT_UPLOAD_DIR", "./uploads/imports"),
			SentinelCategory: getEnv("IMPORT_SENTINEL_CATEGORY", "Sin Clasificar"),
			SweepSpec:        getEnv("IMPORT_SWEEP_SPEC", "@every 1m"),
			SweepBatchSize:   getEnvAsInt("IMPORT_SWEEP_BATCH_SIZE", 5),
			FetchTimeout:     getEnvAsDuration("IMPORT_FETCH_TIMEOUT", 60*time.Second),
			MaxSlugRetries:   getEnvAsInt("IMPORT_MAX_SLUG_RETRIES", 5),
		},
		Logging: LoggingConfig{
			Level:      getEnv("LOG_LEVEL", "info"),
			File:       getEnv("LOG_FILE", ""),
			MaxSizeMB:  getEnvAsInt("LOG_MAX_SIZE_MB", 100),
			MaxBackups: getEnvAsInt("LOG_MAX_BACKUPS", 5),
			MaxAgeDays: getEnvAsInt("LOG_MAX_AGE_DAYS", 30),
		},
		I18n: I18nConfig{
			DefaultLocale: getEnv("DEFAULT_LOCALE", "es"),
			LocalesPath:   getEnv("LOCALES_PATH", "./internal/i18n/locales"),
		},
		Frontend: FrontendConfig{
			BaseURL:        strings.TrimRight(getEnv("CLIENT_URL", "http://localhost:3000"), "/"),
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
		},
	}

	return config, config.Validate()
}

func (c *Config) Validate() error {
	if c.JWT.SecretKey == "your-secret-key-change-in-production" && c.Environment == "production" {
		return fmt.Errorf("JWT secret key must be changed in production")
	}

	if c.Database.Password == "" && c.Environment == "production" {
		return fmt.Errorf("database password is required in production")
	}

	switch c.Payment.Provider {
	case "stripe":
		if c.Environment == "production" && (c.Payment.StripeSecretKey == "" || c.Payment.StripeWebhookSecret == "") {
			return fmt.Errorf("STRIPE_KEY and STRIPE_WEBHOOK_SECRET are required in production")
		}
	case "conekta":
		if c.Environment == "production" && (c.Payment.ConektaPrivateKey == "" || c.Payment.ConektaWebhookSecret == "") {
			return fmt.Errorf("CONEKTA_PRIVATE_KEY and CONEKTA_WEBHOOK_SECRET are required in production")
		}
	default:
		return fmt.Errorf("unsupported payment provider %q", c.Payment.Provider)
	}

	if c.Payment.TaxRate < 0 {
		return fmt.Errorf("tax rate must be non-negative")
	}

	if c.Payment.GatewayTimeout <= 0 {
		return fmt.Errorf("payment gateway timeout must be positive")
	}

	return nil
}

// SuccessURL is where the gateway sends the buyer after paying.
func (c *Config) SuccessURL() string {
	return c.Frontend.BaseURL + c.Payment.SuccessPath
}

func (c *Config) CancelURL() string {
	return c.Frontend.BaseURL + c.Payment.CancelPath
}

// Helper functions
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
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

func getEnvAsSlice(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
