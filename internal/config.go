package internal

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env      string
	Port     int
	LogLevel string

	// Quote store
	StorePath       string
	StoreStrictRead bool

	// Mail transport: "smtp" or "api"
	MailProvider string

	// SMTP Configuration
	SMTPHost     string
	SMTPPort     int
	SMTPUsername string
	SMTPPassword string

	// HTTP mail API configuration (Postmark-compatible)
	MailAPIURL   string
	MailAPIToken string

	// Sender identity
	MailFrom     string
	MailFromName string
	MailReplyTo  string

	// Reply delivery retry policy
	MailMaxRetries     int
	MailRetryBaseDelay time.Duration
	MailSendTimeout    time.Duration

	// Branding for outgoing emails
	CompanyName  string
	CompanyLogo  string
	WebsiteURL   string
	SupportEmail string
	ReplyURL     string

	// Attachment storage: "local" or "r2"
	StorageProvider string

	// Local storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// R2 storage (production)
	R2AccountID       string
	R2AccessKeyID     string
	R2SecretAccessKey string
	R2BucketName      string
	R2PublicURL       string

	// Rate limiting
	RateLimitMax    int
	RateLimitWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		StorePath:       getEnv("STORE_PATH", "./data/quotes.json"),
		StoreStrictRead: getEnvBool("STORE_STRICT_READ", false),

		MailProvider: getEnv("MAIL_PROVIDER", "smtp"),

		// SMTP defaults for Mailhog (development)
		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnvInt("SMTP_PORT", 1025),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),

		MailAPIURL:   getEnv("MAIL_API_URL", ""),
		MailAPIToken: getEnv("MAIL_API_TOKEN", ""),

		MailFrom:     getEnv("MAIL_FROM", "devis@piecesautodistrib.fr"),
		MailFromName: getEnv("MAIL_FROM_NAME", "Pièces Auto Distrib"),
		MailReplyTo:  getEnv("MAIL_REPLY_TO", ""),

		MailMaxRetries:     getEnvInt("MAIL_MAX_RETRIES", 2),
		MailRetryBaseDelay: getEnvDuration("MAIL_RETRY_BASE_DELAY", 1*time.Second),
		MailSendTimeout:    getEnvDuration("MAIL_SEND_TIMEOUT", 15*time.Second),

		CompanyName:  getEnv("COMPANY_NAME", ""),
		CompanyLogo:  getEnv("COMPANY_LOGO_URL", ""),
		WebsiteURL:   getEnv("WEBSITE_URL", ""),
		SupportEmail: getEnv("SUPPORT_EMAIL", ""),
		ReplyURL:     getEnv("REPLY_URL", ""),

		// Storage defaults to local filesystem for development
		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		// R2 configuration (production only)
		R2AccountID:       getEnv("R2_ACCOUNT_ID", ""),
		R2AccessKeyID:     getEnv("R2_ACCESS_KEY_ID", ""),
		R2SecretAccessKey: getEnv("R2_SECRET_ACCESS_KEY", ""),
		R2BucketName:      getEnv("R2_BUCKET_NAME", ""),
		R2PublicURL:       getEnv("R2_PUBLIC_URL", ""),

		RateLimitMax:    getEnvInt("RATE_LIMIT_MAX", 60),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		// Metrics authentication
		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	// Validate mail transport configuration
	switch cfg.MailProvider {
	case "smtp":
		if cfg.SMTPHost == "" {
			return nil, fmt.Errorf("SMTP_HOST is required when MAIL_PROVIDER is 'smtp'")
		}
	case "api":
		if cfg.MailAPIURL == "" {
			return nil, fmt.Errorf("MAIL_API_URL is required when MAIL_PROVIDER is 'api'")
		}
		if cfg.MailAPIToken == "" {
			return nil, fmt.Errorf("MAIL_API_TOKEN is required when MAIL_PROVIDER is 'api'")
		}
	default:
		return nil, fmt.Errorf("MAIL_PROVIDER must be either 'smtp' or 'api', got: %s", cfg.MailProvider)
	}

	// Validate storage configuration
	if cfg.StorageProvider == "r2" {
		if cfg.R2AccountID == "" {
			return nil, fmt.Errorf("R2_ACCOUNT_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2AccessKeyID == "" {
			return nil, fmt.Errorf("R2_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2SecretAccessKey == "" {
			return nil, fmt.Errorf("R2_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'r2'")
		}
		if cfg.R2BucketName == "" {
			return nil, fmt.Errorf("R2_BUCKET_NAME is required when STORAGE_PROVIDER is 'r2'")
		}
	} else if cfg.StorageProvider != "local" {
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'r2', got: %s", cfg.StorageProvider)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
