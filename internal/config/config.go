// Package config loads slotswap settings from the environment.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds process-wide settings. Command-line flags override it.
type Config struct {
	DBPath          string        `env:"SLOTSWAP_DB"               envDefault:"slotswap.db"`
	HTTPAddr        string        `env:"SLOTSWAP_HTTP_ADDR"        envDefault:"127.0.0.1:8080"`
	JWTSecret       string        `env:"SLOTSWAP_JWT_SECRET"`
	JWTIssuer       string        `env:"SLOTSWAP_JWT_ISSUER"       envDefault:"slotswap"`
	TokenTTL        time.Duration `env:"SLOTSWAP_TOKEN_TTL"        envDefault:"168h"`
	RedisAddr       string        `env:"SLOTSWAP_REDIS_ADDR"`
	RedisChannel    string        `env:"SLOTSWAP_REDIS_CHANNEL"    envDefault:"slotswap.swaps"`
	ShutdownTimeout time.Duration `env:"SLOTSWAP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
}

// ParseEnv loads configuration from environment variables.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config from the environment and trims string values.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	cfg.DBPath = strings.TrimSpace(cfg.DBPath)
	cfg.HTTPAddr = strings.TrimSpace(cfg.HTTPAddr)
	cfg.JWTSecret = strings.TrimSpace(cfg.JWTSecret)
	cfg.JWTIssuer = strings.TrimSpace(cfg.JWTIssuer)
	cfg.RedisAddr = strings.TrimSpace(cfg.RedisAddr)
	cfg.RedisChannel = strings.TrimSpace(cfg.RedisChannel)
	return cfg, nil
}

// RequireSecret fails when no token secret is configured.
// Commands that verify or issue tokens call it; local commands do not.
func (c Config) RequireSecret() error {
	if c.JWTSecret == "" {
		return errors.New("SLOTSWAP_JWT_SECRET is required")
	}
	return nil
}

// NotificationsEnabled reports whether swap notices should go to Redis.
func (c Config) NotificationsEnabled() bool {
	return c.RedisAddr != ""
}
