package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the application
type Config struct {
	// Server configuration
	Server ServerConfig

	// Database configuration
	Database DatabaseConfig

	// Redis configuration
	Redis RedisConfig

	// Remote business API configuration
	Services ServicesConfig

	// Booking and capacity configuration
	Booking BookingConfig

	// CORS configuration
	CORS CORSConfig

	// Metrics configuration
	Metrics MetricsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port        string
	Environment string // development, staging, production
	LogLevel    string // debug, info, warn, error
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	URL                string
	MaxConnections     int
	MaxIdleConnections int
	ConnMaxLifetime    time.Duration
}

// RedisConfig holds Redis connection configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// ServicesConfig holds the base URLs and timeouts for the remote business
// API the wizard consumes (flight schedule, pricing, promo validation,
// customer/vehicle persistence)
type ServicesConfig struct {
	FlightsURL   string
	PricingURL   string
	PromoURL     string
	CustomersURL string
	Timeout      time.Duration
}

// BookingConfig holds wizard business configuration
type BookingConfig struct {
	// FacilityDailyCapacity is the facility-wide ceiling on vehicles booked
	// per calendar day used by the date-range availability check
	FacilityDailyCapacity int

	// MinLeadDays is the number of days from today to the earliest bookable
	// drop-off date; restored drafts with earlier dates are discarded
	MinLeadDays int

	// FlightsCacheTTL controls how long catalog responses are cached
	FlightsCacheTTL time.Duration

	// SessionIdleTTL bounds how long an untouched wizard session keeps its
	// in-memory derived state; the durable draft is unaffected and the
	// session is rebuilt from it on the next request. Zero disables eviction
	SessionIdleTTL time.Duration
}

// CORSConfig holds CORS-related configuration
type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

// MetricsConfig holds Prometheus metrics configuration
type MetricsConfig struct {
	Enabled bool
	Path    string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (for local development)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	config := &Config{
		Server: ServerConfig{
			Port:        getEnv("PORT", "8080"),
			Environment: getEnv("ENVIRONMENT", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
		},
		Database: DatabaseConfig{
			URL:                getEnv("DATABASE_URL", ""),
			MaxConnections:     getEnvAsInt("DATABASE_MAX_CONNECTIONS", 10),
			MaxIdleConnections: getEnvAsInt("DATABASE_MAX_IDLE_CONNECTIONS", 5),
			ConnMaxLifetime:    time.Duration(getEnvAsInt("DATABASE_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Services: ServicesConfig{
			FlightsURL:   getEnv("FLIGHTS_API_URL", ""),
			PricingURL:   getEnv("PRICING_API_URL", ""),
			PromoURL:     getEnv("PROMO_API_URL", ""),
			CustomersURL: getEnv("CUSTOMERS_API_URL", ""),
			Timeout:      time.Duration(getEnvAsInt("SERVICES_TIMEOUT_SECONDS", 30)) * time.Second,
		},
		Booking: BookingConfig{
			FacilityDailyCapacity: getEnvAsInt("FACILITY_DAILY_CAPACITY", 120),
			MinLeadDays:           getEnvAsInt("MIN_LEAD_DAYS", 1),
			FlightsCacheTTL:       time.Duration(getEnvAsInt("FLIGHTS_CACHE_TTL_SECONDS", 300)) * time.Second,
			SessionIdleTTL:        time.Duration(getEnvAsInt("SESSION_IDLE_TTL_SECONDS", 1800)) * time.Second,
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsSlice("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods: getEnvAsSlice("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}),
			AllowedHeaders: getEnvAsSlice("CORS_ALLOWED_HEADERS", []string{"Content-Type", "X-Wizard-Session"}),
		},
		Metrics: MetricsConfig{
			Enabled: getEnvAsBool("METRICS_ENABLED", true),
			Path:    getEnv("METRICS_PATH", "/metrics"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.URL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if c.Services.FlightsURL == "" {
		return fmt.Errorf("FLIGHTS_API_URL is required")
	}

	if c.Services.PricingURL == "" {
		return fmt.Errorf("PRICING_API_URL is required")
	}

	if c.Services.PromoURL == "" {
		return fmt.Errorf("PROMO_API_URL is required")
	}

	if c.Services.CustomersURL == "" {
		return fmt.Errorf("CUSTOMERS_API_URL is required")
	}

	if c.Booking.FacilityDailyCapacity <= 0 {
		return fmt.Errorf("FACILITY_DAILY_CAPACITY must be positive")
	}

	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as an integer with a default value
func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

// getEnvAsBool gets an environment variable as a boolean with a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

// getEnvAsSlice gets an environment variable as a comma-separated slice
func getEnvAsSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := strings.Split(value, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return parts
	}
	return defaultValue
}
