package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config carries every knob the service needs. It is built once in main and
// handed to the components that need it; nothing reads the environment after
// startup.
type Config struct {
	Env      string
	HTTPAddr string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// EventLogDSN is optional; when empty the broadcast audit log is off.
	EventLogDSN string

	JWTSecret string

	ConnectionTTL time.Duration
}

// Load reads the optional .env file and the process environment.
func Load() (*Config, error) {
	// .env is a development convenience, absence is fine
	_ = godotenv.Load()

	cfg := &Config{
		Env:           getEnv("APP_ENV", "development"),
		HTTPAddr:      getEnv("HTTP_ADDR", ":8080"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		JWTSecret:     os.Getenv("JWT_SECRET"),
		ConnectionTTL: time.Hour,
	}

	if v := os.Getenv("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid REDIS_DB %q: %w", v, err)
		}
		cfg.RedisDB = db
	}

	if v := os.Getenv("CONNECTION_TTL_SECONDS"); v != "" {
		secs, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("invalid CONNECTION_TTL_SECONDS %q: %w", v, err)
		}
		cfg.ConnectionTTL = time.Duration(secs) * time.Second
	}

	// Event log DSN assembled from the usual DB_* variables when present.
	if host := os.Getenv("DB_HOST"); host != "" {
		cfg.EventLogDSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true",
			os.Getenv("DB_USER"),
			os.Getenv("DB_PASSWORD"),
			host,
			getEnv("DB_PORT", "3306"),
			os.Getenv("DB_NAME"),
		)
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
