package config

import (
	"os"
	"strconv"
	"strings"
)

// Config holds process-wide settings, initialized once at startup and
// read-only thereafter. The scheduling engine itself depends only on the
// fields under "Scheduling engine"; everything else wires the HTTP
// and worker entry points.
type Config struct {
	Port        string
	Environment string

	DatabaseURL string
	RedisURL    string

	JWTSecret string

	// Scheduling engine
	BookingSlotsQueryMaxMS   int64
	EventInstancesQueryMaxMS int64
	ReminderIntervalMS       int64
	ExpansionJobIntervalMS   int64
	AccountCreationSecret    string

	// Third-party calendar provider OAuth clients, consumed by
	// provider.CalendarProviderFactory.
	GoogleClientID       string
	GoogleClientSecret   string
	GoogleRedirectURL    string
	MicrosoftClientID    string
	MicrosoftClientSecret string
	MicrosoftRedirectURL string
	MicrosoftTenantID    string

	AllowedOrigins []string
}

func Load() (*Config, error) {
	return &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENV", "development"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret: getEnv("JWT_SECRET", ""),

		BookingSlotsQueryMaxMS:   getEnvInt64("BOOKING_SLOTS_QUERY_MAX_MS", 86_400_000),
		EventInstancesQueryMaxMS: getEnvInt64("EVENT_INSTANCES_QUERY_MAX_MS", 86_400_000*31),
		ReminderIntervalMS:       getEnvInt64("REMINDER_INTERVAL_MS", 60_000),
		ExpansionJobIntervalMS:   getEnvInt64("EXPANSION_JOB_INTERVAL_MS", 300_000),
		AccountCreationSecret:    getEnv("ACCOUNT_CREATION_SECRET", ""),

		GoogleClientID:        getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret:    getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:     getEnv("GOOGLE_REDIRECT_URL", ""),
		MicrosoftClientID:     getEnv("MICROSOFT_CLIENT_ID", ""),
		MicrosoftClientSecret: getEnv("MICROSOFT_CLIENT_SECRET", ""),
		MicrosoftRedirectURL:  getEnv("MICROSOFT_REDIRECT_URL", ""),
		MicrosoftTenantID:     getEnv("MICROSOFT_TENANT_ID", ""),

		AllowedOrigins: getEnvSlice("ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
	}, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		return strings.Split(value, ",")
	}
	return defaultValue
}

// IsDevelopment returns true if running in development mode
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
