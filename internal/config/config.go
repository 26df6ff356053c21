package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config holds process configuration. Business settings that may change
// while the till is running live in the database config table instead.
type Config struct {
	DatabaseURL  string
	Port         string
	Env          string
	JWTSecret    string
	SecretKey    string
	RegisterName string

	CardTerminalBaseURL string
	CardTerminalAPIKey  string
	CardPollInterval    time.Duration
}

// Load reads configuration from the environment, after loading a .env
// file if one is present.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		Port:                getenv("APP_PORT", "8080"),
		Env:                 getenv("APP_ENV", "production"),
		JWTSecret:           getenv("JWT_SECRET", "dev_secret"),
		SecretKey:           os.Getenv("TILL_SECRET_KEY"),
		RegisterName:        getenv("TILL_REGISTER_NAME", hostname()),
		CardTerminalBaseURL: os.Getenv("CARD_TERMINAL_BASE_URL"),
		CardTerminalAPIKey:  os.Getenv("CARD_TERMINAL_API_KEY"),
		CardPollInterval:    2 * time.Second,
	}
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = "postgres://postgres@localhost:5432/till?sslmode=disable"
	}
	if _, err := strconv.Atoi(cfg.Port); err != nil {
		cfg.Port = "8080"
	}
	if v := os.Getenv("CARD_POLL_INTERVAL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil && d > 0 {
			cfg.CardPollInterval = d
		}
	}
	return cfg
}

// Development reports whether the process runs in development mode.
func (c Config) Development() bool { return c.Env == "development" }

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "till"
	}
	return h
}
