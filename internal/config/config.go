// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	APIURL         string
	WSURL          string // Defaults to APIURL; scheme is rewritten to ws/wss when dialing.
	StatePath      string
	ReconnectDelay time.Duration
	Language       string
	LogLevel       slog.Level
	LogJSON        bool
	DevServer      DevServerConfig
}

// DevServerConfig controls the development backend.
type DevServerConfig struct {
	Port        string
	UserEmail   string
	Password    string
	FrontendURL string

	// ConversationTTL closes chat conversations idle this long. Zero disables it.
	ConversationTTL time.Duration
	SweepInterval   time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	apiURL := getEnv("CONSOLE_API_URL", "http://127.0.0.1:8000/")

	cfg := &Config{
		APIURL:         apiURL,
		WSURL:          getEnv("CONSOLE_WS_URL", apiURL),
		StatePath:      getEnv("CONSOLE_STATE_PATH", "./data/console.db"),
		ReconnectDelay: getEnvDuration("CONSOLE_RECONNECT_DELAY", 3*time.Second),
		Language:       getEnv("CONSOLE_LANGUAGE", "en"),
		LogLevel:       getEnvLevel("LOG_LEVEL", slog.LevelInfo),
		LogJSON:        getEnvBool("LOG_JSON", true),
		DevServer: DevServerConfig{
			Port:            getEnv("PORT", "8000"),
			UserEmail:       getEnv("DEV_USER_EMAIL", "a@b.com"),
			Password:        getEnv("DEV_USER_PASSWORD", "secret"),
			FrontendURL:     getEnv("FRONTEND_URL", ""),
			ConversationTTL: getEnvDuration("DEV_CONVERSATION_TTL", 30*time.Minute),
			SweepInterval:   getEnvDuration("DEV_SWEEP_INTERVAL", time.Minute),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required configuration fields are set.
func (c *Config) Validate() error {
	if c.APIURL == "" {
		return fmt.Errorf("CONSOLE_API_URL cannot be empty")
	}
	if _, err := url.ParseRequestURI(c.APIURL); err != nil {
		return fmt.Errorf("CONSOLE_API_URL is not a valid URL: %w", err)
	}
	if c.WSURL == "" {
		return fmt.Errorf("CONSOLE_WS_URL cannot be empty")
	}
	if c.StatePath == "" {
		return fmt.Errorf("CONSOLE_STATE_PATH cannot be empty")
	}
	if c.ReconnectDelay <= 0 {
		return fmt.Errorf("CONSOLE_RECONNECT_DELAY must be > 0")
	}
	if c.DevServer.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.DevServer.SweepInterval < 0 {
		return fmt.Errorf("DEV_SWEEP_INTERVAL cannot be negative")
	}
	return nil
}

// IsDevelopment returns true if the dev server has no explicit frontend origin.
func (c *Config) IsDevelopment() bool {
	return c.DevServer.FrontendURL == "" ||
		strings.Contains(c.DevServer.FrontendURL, "localhost") ||
		strings.Contains(c.DevServer.FrontendURL, "127.0.0.1")
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

// getEnvDuration accepts Go durations ("3s") or bare milliseconds ("3000").
func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	value = strings.TrimSpace(value)
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	if ms := getEnvInt(key, -1); ms >= 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}

func getEnvLevel(key string, fallback slog.Level) slog.Level {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(value))); err != nil {
		return fallback
	}
	return level
}
