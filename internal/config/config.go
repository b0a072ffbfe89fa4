package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the dispatch API
type Config struct {
	// HTTP
	Port                string
	AllowedOrigins      []string
	RequestTimeout      time.Duration
	ShutdownGracePeriod time.Duration

	// Database
	DatabaseDriver string // "sqlite" or "postgres"
	SQLitePath     string
	DatabaseURL    string
	SeedData       bool

	// Suggestion lifecycle
	ImplementationDelay time.Duration
}

// Load reads .env files from the working directory, then configuration from
// environment variables with sensible defaults
func Load() *Config {
	// Load base .env first, then .env.local (which overrides for local development)
	_ = godotenv.Load(".env")
	_ = godotenv.Overload(".env.local")

	cfg := &Config{
		Port:                getEnv("PORT", "8081"),
		AllowedOrigins:      getEnvList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000", "http://localhost:5173"}),
		RequestTimeout:      time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 5)) * time.Second,
		ShutdownGracePeriod: time.Duration(getEnvInt("SHUTDOWN_GRACE_SECONDS", 10)) * time.Second,

		DatabaseDriver: getEnv("DATABASE_DRIVER", "sqlite"),
		SQLitePath:     getEnv("SQLITE_DATABASE", "./data/dispatch.db"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		SeedData:       getEnvBool("SEED_DATA", true),

		ImplementationDelay: time.Duration(getEnvInt("IMPLEMENTATION_DELAY_MS", 3000)) * time.Millisecond,
	}

	if cfg.DatabaseDriver == "postgres" && cfg.DatabaseURL == "" {
		log.Println("Warning: DATABASE_DRIVER=postgres but DATABASE_URL is empty, falling back to sqlite")
		cfg.DatabaseDriver = "sqlite"
	}

	return cfg
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvList(key string, defaultValue []string) []string {
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
