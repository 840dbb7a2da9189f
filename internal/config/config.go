package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/fx"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string

	// AppURL is the externally reachable base URL of this app. FastEditor
	// callback URLs are derived from it.
	AppURL string

	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int

	RedisAddr     string
	RedisPassword string

	FastEditorBaseURL string
	FastEditorTimeout time.Duration

	PlatformAPIBaseURL string
	PlatformAPIVersion string
	PlatformTimeout    time.Duration
	WebhookSecret      string

	RateProviderURL     string
	RateProviderTimeout time.Duration

	// BillingCurrency is the normalized currency every usage fee is stored
	// and charged in.
	BillingCurrency string
}

// Module provides Config to the fx graph.
var Module = fx.Module("config", fx.Provide(Load), fx.Provide(NewBillingConfigHolder))

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AppName:     getenv("APP_SERVICE", "editorbridge"),
		AppVersion:  getenv("APP_VERSION", "0.1.0"),
		Environment: getenv("ENVIRONMENT", "development"),
		AppURL:      strings.TrimRight(getenv("APP_URL", "http://localhost:8080"), "/"),

		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "editorbridge"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 25),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),

		RedisAddr:     getenv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getenv("REDIS_PASSWORD", ""),

		FastEditorBaseURL: strings.TrimRight(getenv("FASTEDITOR_BASE_URL", "https://api.fasteditor.com"), "/"),
		FastEditorTimeout: getenvDuration("FASTEDITOR_TIMEOUT", 15*time.Second),

		PlatformAPIBaseURL: strings.TrimRight(getenv("PLATFORM_API_BASE_URL", ""), "/"),
		PlatformAPIVersion: getenv("PLATFORM_API_VERSION", "2024-10"),
		PlatformTimeout:    getenvDuration("PLATFORM_TIMEOUT", 15*time.Second),
		WebhookSecret:      strings.TrimSpace(getenv("PLATFORM_WEBHOOK_SECRET", "")),

		RateProviderURL:     getenv("RATE_PROVIDER_URL", "https://open.er-api.com/v6/latest/EUR"),
		RateProviderTimeout: getenvDuration("RATE_PROVIDER_TIMEOUT", 20*time.Second),

		BillingCurrency: strings.ToUpper(getenv("BILLING_CURRENCY", "EUR")),
	}
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
