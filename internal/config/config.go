package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	AppMode      string
	Port         string
	Database     DatabaseConfig
	JWT          JWTConfig
	Cookie       CookieConfig
	Redis        RedisConfig
	Payment      PaymentConfig
	Notification NotificationConfig
}

// DatabaseConfig holds database connection and pool configuration
type DatabaseConfig struct {
	Host                string
	Port                string
	User                string
	Password            string
	DBName              string
	MaxIdleConns        int
	MaxOpenConns        int
	ConnMaxLifetimeMins int
}

// JWTConfig holds token signing configuration
type JWTConfig struct {
	Secret           string
	RefreshSecret    string
	AccessTokenMins  int
	RefreshTokenDays int
}

// CookieConfig holds cookie configuration
type CookieConfig struct {
	Secure   bool
	SameSite string
	Domain   string
}

// RedisConfig holds redis configuration. Redis backs the webhook replay
// guard; when Addr is empty the guard falls back to process memory.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// PaymentConfig holds payment gateway configuration
type PaymentConfig struct {
	Provider            string // active provider name; "sandbox" in dev
	BaseURL             string
	APIKey              string
	WebhookSecret       string
	SignatureHeader     string
	FreshnessWindowSecs int // replay window for webhook timestamps
}

// NotificationConfig holds delivery engine configuration
type NotificationConfig struct {
	SweepIntervalSecs int
	DispatchBatch     int
	MaxRetries        int
	EmailGatewayURL   string
	EmailGatewayKey   string
	SMSGatewayURL     string
	SMSGatewayKey     string
	PushGatewayURL    string
	PushGatewayKey    string
}

// Global config instance
var AppConfig *Config

// Load reads configuration from .env file and environment variables
func Load() (*Config, error) {
	// Load .env file (ignore error if file doesn't exist in production)
	if err := godotenv.Load(); err != nil {
		log.Println("Warning: .env file not found, using environment variables")
	}

	// Get APP_MODE (default to "dev") - trim spaces for Windows compatibility
	appMode := strings.TrimSpace(getEnv("APP_MODE", "dev"))
	if appMode != "dev" && appMode != "prod" {
		return nil, fmt.Errorf("invalid APP_MODE: '%s' (must be 'dev' or 'prod')", appMode)
	}

	config := &Config{
		AppMode:      appMode,
		Port:         getEnv("PORT", "3000"),
		Database:     loadDatabaseConfig(appMode),
		JWT:          loadJWTConfig(appMode),
		Cookie:       loadCookieConfig(appMode),
		Redis:        loadRedisConfig(),
		Payment:      loadPaymentConfig(appMode),
		Notification: loadNotificationConfig(),
	}

	// Set global config
	AppConfig = config

	log.Printf("✅ Configuration loaded successfully [MODE: %s]", appMode)
	return config, nil
}

// loadDatabaseConfig loads database config based on mode
func loadDatabaseConfig(mode string) DatabaseConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	maxIdle, _ := strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", "10"))
	maxOpen, _ := strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", "100"))
	lifetime, _ := strconv.Atoi(getEnv("DB_CONN_MAX_LIFETIME_MINS", "60"))

	return DatabaseConfig{
		Host:                getEnv(prefix+"DB_HOST", "localhost"),
		Port:                getEnv(prefix+"DB_PORT", "3306"),
		User:                getEnv(prefix+"DB_USER", "root"),
		Password:            getEnv(prefix+"DB_PASS", ""),
		DBName:              getEnv(prefix+"DB_NAME", "shopcore"),
		MaxIdleConns:        maxIdle,
		MaxOpenConns:        maxOpen,
		ConnMaxLifetimeMins: lifetime,
	}
}

// loadJWTConfig loads JWT config based on mode
func loadJWTConfig(mode string) JWTConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	accessMins, _ := strconv.Atoi(getEnv("ACCESS_TOKEN_MINUTES", "15"))
	refreshDays, _ := strconv.Atoi(getEnv("REFRESH_TOKEN_DAYS", "7"))

	return JWTConfig{
		Secret:           getEnv(prefix+"JWT_SECRET", "default_secret"),
		RefreshSecret:    getEnv(prefix+"JWT_REFRESH_SECRET", "default_refresh_secret"),
		AccessTokenMins:  accessMins,
		RefreshTokenDays: refreshDays,
	}
}

// loadCookieConfig loads cookie config based on mode
func loadCookieConfig(mode string) CookieConfig {
	prefix := "DEV_"
	if mode == "prod" {
		prefix = "PROD_"
	}

	secure, _ := strconv.ParseBool(getEnv(prefix+"COOKIE_SECURE", "false"))

	return CookieConfig{
		Secure:   secure,
		SameSite: getEnv("COOKIE_SAMESITE", "lax"),
		Domain:   getEnv("COOKIE_DOMAIN", ""),
	}
}

// loadRedisConfig loads redis config
func loadRedisConfig() RedisConfig {
	db, _ := strconv.Atoi(getEnv("REDIS_DB", "0"))
	return RedisConfig{
		Addr:     getEnv("REDIS_ADDR", ""),
		Password: getEnv("REDIS_PASSWORD", ""),
		DB:       db,
	}
}

// loadPaymentConfig loads payment gateway config based on mode
func loadPaymentConfig(mode string) PaymentConfig {
	prefix := "DEV_"
	defaultProvider := "sandbox"
	if mode == "prod" {
		prefix = "PROD_"
		defaultProvider = "payrail"
	}

	window, _ := strconv.Atoi(getEnv("WEBHOOK_FRESHNESS_SECONDS", "300"))

	return PaymentConfig{
		Provider:            getEnv("PAYMENT_PROVIDER", defaultProvider),
		BaseURL:             getEnv(prefix+"PAYMENT_BASE_URL", ""),
		APIKey:              getEnv(prefix+"PAYMENT_API_KEY", ""),
		WebhookSecret:       getEnv(prefix+"WEBHOOK_SECRET", "default_webhook_secret"),
		SignatureHeader:     getEnv("WEBHOOK_SIGNATURE_HEADER", "X-Webhook-Signature"),
		FreshnessWindowSecs: window,
	}
}

// loadNotificationConfig loads delivery engine config
func loadNotificationConfig() NotificationConfig {
	sweep, _ := strconv.Atoi(getEnv("NOTIFY_SWEEP_SECONDS", "60"))
	batch, _ := strconv.Atoi(getEnv("NOTIFY_DISPATCH_BATCH", "100"))
	retries, _ := strconv.Atoi(getEnv("NOTIFY_MAX_RETRIES", "3"))

	return NotificationConfig{
		SweepIntervalSecs: sweep,
		DispatchBatch:     batch,
		MaxRetries:        retries,
		EmailGatewayURL:   getEnv("EMAIL_GATEWAY_URL", ""),
		EmailGatewayKey:   getEnv("EMAIL_GATEWAY_KEY", ""),
		SMSGatewayURL:     getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey:     getEnv("SMS_GATEWAY_KEY", ""),
		PushGatewayURL:    getEnv("PUSH_GATEWAY_URL", ""),
		PushGatewayKey:    getEnv("PUSH_GATEWAY_KEY", ""),
	}
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// IsDev returns true if running in development mode
func (c *Config) IsDev() bool {
	return c.AppMode == "dev"
}

// IsProd returns true if running in production mode
func (c *Config) IsProd() bool {
	return c.AppMode == "prod"
}

// GetAllowedOrigins returns allowed origins for CORS
func (c *Config) GetAllowedOrigins() string {
	origins := getEnv("ALLOWED_ORIGINS", "")
	if origins == "" {
		if c.IsDev() {
			return "*"
		}
		// Default production origins
		return "https://shop.example.com"
	}
	return origins
}
