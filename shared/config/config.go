package config

import (
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	// Service
	AppName string
	Port    string

	Environment string
	FrontendURL string
	StaticDir   string

	// Database
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string

	// Redis
	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       string

	// Sessions / OAuth
	SessionSecret      string
	AuthCookieSecure   bool
	OAuth2ClientID     string
	OAuth2ClientSecret string
	OAuth2URI          string
	OAuth2CallbackURL  string

	// Admin API (bcrypt hash of the admin token)
	AdminAPITokenHash string

	// Tenant routing
	AppRootDomain     string
	AppRootScheme     string
	FallbackLaunchURL string

	// Remote services
	ProvisionerURL string
	BillingAPIURL  string
	BillingAPIKey  string

	// Instances
	DefaultInstanceVersion string

	// Rate Limiting
	RateLimitMaxRequests       string
	RateLimitTimeWindowSeconds string
	RateLimitBlockMinutes      string
}

var cfg *Config

// LoadConfig loads configuration from environment variables
func LoadConfig() {
	envPaths := []string{
		".env",
		"../.env",
		"../../.env",
	}

	envLoaded := false
	for _, path := range envPaths {
		if err := godotenv.Load(path); err == nil {
			log.Printf("✅ Environment loaded from: %s", path)
			envLoaded = true
			break
		}
	}

	if !envLoaded {
		log.Println("Warning: .env file not found, using system environment variables")
	}

	environment := getEnv("ENVIRONMENT", "development")

	cfg = &Config{
		AppName:     getEnv("APP_SERVICE", "railzway-console"),
		Port:        getEnv("PORT", "8081"),
		Environment: environment,
		FrontendURL: getEnv("FRONTEND_URL", "http://localhost:3000"),
		StaticDir:   getEnv("STATIC_DIR", "./public"),

		DBHost:     getEnv("DB_HOST", "localhost"),
		DBPort:     getEnv("DB_PORT", "5432"),
		DBUser:     getEnv("DB_USER", "postgres"),
		DBPassword: getEnv("DB_PASSWORD", ""),
		DBName:     getEnv("DB_NAME", "railzway_console"),
		DBSSLMode:  getEnv("DB_SSLMODE", "disable"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnv("REDIS_DB", "0"),

		SessionSecret:      getEnv("SESSION_SECRET", "change-this-session-secret"),
		AuthCookieSecure:   environment == "production" || getEnvAsBool("AUTH_COOKIE_SECURE", false),
		OAuth2ClientID:     strings.TrimSpace(getEnv("OAUTH2_CLIENT_ID", "")),
		OAuth2ClientSecret: strings.TrimSpace(getEnv("OAUTH2_CLIENT_SECRET", "")),
		OAuth2URI:          strings.TrimSpace(getEnv("OAUTH2_URI", "")),
		OAuth2CallbackURL:  strings.TrimSpace(getEnv("OAUTH2_CALLBACK_URL", "http://localhost:8081/auth/callback")),

		AdminAPITokenHash: strings.TrimSpace(getEnv("ADMIN_API_TOKEN_HASH", "")),

		AppRootDomain:     strings.TrimLeft(strings.TrimSpace(getEnv("APP_ROOT_DOMAIN", "railzway.com")), "."),
		AppRootScheme:     strings.TrimSpace(getEnv("APP_ROOT_SCHEME", "")),
		FallbackLaunchURL: strings.TrimSpace(getEnv("FALLBACK_LAUNCH_URL", "")),

		ProvisionerURL: getEnv("PROVISIONER_URL", "http://localhost:4646"),
		BillingAPIURL:  getEnv("BILLING_API_URL", "http://localhost:8080"),
		BillingAPIKey:  strings.TrimSpace(getEnv("BILLING_API_KEY", "")),

		DefaultInstanceVersion: getEnv("DEFAULT_INSTANCE_VERSION", "v1.6.0"),

		RateLimitMaxRequests:       getEnv("RATE_LIMIT_MAX_REQUESTS", "100"),
		RateLimitTimeWindowSeconds: getEnv("RATE_LIMIT_TIME_WINDOW_SECONDS", "60"),
		RateLimitBlockMinutes:      getEnv("RATE_LIMIT_BLOCK_DURATION_MINUTES", "15"),
	}

	log.Println("✅ Configuration loaded successfully")
}

// GetConfig returns the current configuration
func GetConfig() *Config {
	if cfg == nil {
		LoadConfig()
	}
	return cfg
}

// GetRateLimitMaxRequests returns the rate limit max requests as integer
func (c *Config) GetRateLimitMaxRequests() int {
	if value, err := strconv.Atoi(c.RateLimitMaxRequests); err == nil {
		return value
	}
	return 100
}

// GetRateLimitTimeWindowSeconds returns the rate limit time window as integer
func (c *Config) GetRateLimitTimeWindowSeconds() int {
	if value, err := strconv.Atoi(c.RateLimitTimeWindowSeconds); err == nil {
		return value
	}
	return 60
}

// GetRateLimitBlockMinutes returns the rate limit block duration as integer
func (c *Config) GetRateLimitBlockMinutes() int {
	if value, err := strconv.Atoi(c.RateLimitBlockMinutes); err == nil {
		return value
	}
	return 15
}

// getEnv gets environment variable with default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}
