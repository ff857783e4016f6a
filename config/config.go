package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"go.temporal.io/sdk/client"
)

// AppConfig holds all configuration for the checkout processes.
// Values come from a .env file when present, then from the environment.
type AppConfig struct {
	// Core
	Port         string
	DatabasePath string
	LogLevel     string

	// Temporal
	TemporalHostPort  string
	TemporalNamespace string

	// Underwriting backend
	BackendBaseURL string
	BackendAPIKey  string

	// Redirect-based verification partner
	VouchStartURL            string
	VouchCustomerID          string
	VouchRevolutDatasourceID string
	VouchBinanceDatasourceID string
	VouchEtherfiDatasourceID string

	// Resume tokens carried through the partner redirect
	ResumeSecret   string
	ResumeTokenTTL time.Duration

	// Storefront
	AppBaseURL         string
	APIBaseURL         string
	CORSAllowedOrigins []string
	RateLimitPerSecond int
	RateLimitBurst     int

	// Lookups
	PriceSpotURL    string
	BalanceCacheTTL time.Duration
	PriceCacheTTL   time.Duration
}

// Load reads configuration. Missing secrets degrade the features that need
// them and are reported as warnings.
func Load() *AppConfig {
	errEnv := godotenv.Load()
	if errEnv != nil {
		errEnv = godotenv.Load("../.env")
	}
	if errEnv != nil {
		if os.IsNotExist(errEnv) {
			log.Println("Info: No .env file found. Relying on OS environment variables.")
		} else {
			log.Printf("Warning: Error loading .env file: %v. Relying on OS environment variables.", errEnv)
		}
	}

	appBaseURL := getEnv("APP_BASE_URL", "http://localhost:5173")
	apiBaseURL := getEnv("API_BASE_URL", "http://localhost:8080")

	cfg := &AppConfig{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "./checkout.db"),
		LogLevel:     getEnv("LOG_LEVEL", "info"),

		TemporalHostPort:  getEnv("TEMPORAL_HOST_PORT", client.DefaultHostPort),
		TemporalNamespace: getEnv("TEMPORAL_NAMESPACE", client.DefaultNamespace),

		BackendBaseURL: strings.TrimRight(getOptionalEnv("YUMI_BACKEND_URL"), "/"),
		BackendAPIKey:  getOptionalEnv("YUMI_API_KEY"),

		VouchStartURL:            getEnv("VOUCH_START_URL", "https://app.getvouch.io/start"),
		VouchCustomerID:          getOptionalEnv("VOUCH_CUSTOMER_ID"),
		VouchRevolutDatasourceID: getOptionalEnv("VOUCH_REVOLUT_DATASOURCE_ID"),
		VouchBinanceDatasourceID: getOptionalEnv("VOUCH_BINANCE_DATASOURCE_ID"),
		VouchEtherfiDatasourceID: getOptionalEnv("VOUCH_ETHERFI_DATASOURCE_ID"),

		ResumeSecret:   getOptionalEnv("RESUME_TOKEN_SECRET"),
		ResumeTokenTTL: getEnvAsDuration("RESUME_TOKEN_TTL", time.Hour),

		AppBaseURL:         appBaseURL,
		APIBaseURL:         apiBaseURL,
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{appBaseURL}),
		RateLimitPerSecond: getEnvAsInt("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 20),

		PriceSpotURL:    getEnv("PRICE_SPOT_URL", "https://api.coinbase.com/v2/prices/ETH-USD/spot"),
		BalanceCacheTTL: getEnvAsDuration("BALANCE_CACHE_TTL", 30*time.Second),
		PriceCacheTTL:   getEnvAsDuration("PRICE_CACHE_TTL", 60*time.Second),
	}

	for key, val := range map[string]string{
		"YUMI_BACKEND_URL":    cfg.BackendBaseURL,
		"YUMI_API_KEY":        cfg.BackendAPIKey,
		"RESUME_TOKEN_SECRET": cfg.ResumeSecret,
	} {
		if val == "" {
			log.Printf("WARNING: %s is not set; dependent features will degrade.", key)
		}
	}

	log.Printf("Configuration loaded: Port=%s, LogLevel=%s, DBPath=%s, Temporal=%s/%s",
		cfg.Port, cfg.LogLevel, cfg.DatabasePath, cfg.TemporalHostPort, cfg.TemporalNamespace)
	return cfg
}

// getEnv retrieves an environment variable or returns a fallback value.
func getEnv(key, fallback string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return fallback
}

func getOptionalEnv(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

// getEnvAsInt retrieves an environment variable as an integer or returns a fallback.
func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid integer value for %s ('%s'), using default: %d", key, valueStr, fallback)
	return fallback
}

// getEnvAsDuration retrieves an environment variable as a time.Duration or returns a fallback.
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	log.Printf("Invalid duration value for %s ('%s'), using default: %s", key, valueStr, fallback.String())
	return fallback
}

// getEnvAsList splits a comma-separated variable.
func getEnvAsList(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	var out []string
	for _, v := range strings.Split(valueStr, ",") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}
