// Package config loads server configuration from the environment.
package config

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds settings for the projection server and the optional run
// history store.
type Config struct {
	Port        int
	LogLevel    string
	DatabaseURL string
	CORSOrigins []string
}

// Load reads configuration from environment variables and an optional
// .env file. DatabaseURL is optional: without it the server simply skips
// run persistence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		Port:        parseInt(k.String("METERSIM_PORT"), 8080),
		LogLevel:    valueOrDefault(k.String("METERSIM_LOG_LEVEL"), "info"),
		DatabaseURL: k.String("DATABASE_URL"),
		CORSOrigins: splitAndTrim(valueOrDefault(k.String("METERSIM_CORS_ORIGINS"), "*")),
	}

	if cfg.Port <= 0 || cfg.Port > 65535 {
		return nil, fmt.Errorf("invalid METERSIM_PORT %d", cfg.Port)
	}
	return cfg, nil
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	return value
}

func parseInt(value string, fallback int) int {
	if strings.TrimSpace(value) == "" {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func splitAndTrim(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
