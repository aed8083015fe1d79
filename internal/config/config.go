// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all runtime configuration.
type Config struct {
	// Environment: development, staging, production
	Env string

	// HTTP
	Port           string
	FrontendURL    string
	AllowedOrigins []string

	// Datastores
	AppDatabaseURL    string
	PromecDatabaseURL string

	// Security
	SecretKey        string
	SigningAlgorithm string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration

	// Mail
	ResendAPIKey string
	SenderEmail  string
	SenderName   string

	// Logging
	LogLevel string
}

// Load reads configuration from environment variables, with an optional
// .env file for local development.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // .env is optional
	v.AutomaticEnv()

	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_PORT", "8000")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("SIGNING_ALGORITHM", "HS256")
	v.SetDefault("ACCESS_TOKEN_TTL", "15m")
	v.SetDefault("REFRESH_TOKEN_TTL", "8h")
	v.SetDefault("SENDER_NAME", "MECSA")

	cfg := &Config{
		Env:               v.GetString("APP_ENV"),
		Port:              v.GetString("APP_PORT"),
		FrontendURL:       v.GetString("FRONTEND_URL"),
		AllowedOrigins:    splitCSV(v.GetString("ALLOWED_ORIGINS")),
		AppDatabaseURL:    v.GetString("DATABASE_URL"),
		PromecDatabaseURL: v.GetString("PROMEC_DATABASE_URL"),
		SecretKey:         v.GetString("SECRET_KEY"),
		SigningAlgorithm:  v.GetString("SIGNING_ALGORITHM"),
		AccessTokenTTL:    v.GetDuration("ACCESS_TOKEN_TTL"),
		RefreshTokenTTL:   v.GetDuration("REFRESH_TOKEN_TTL"),
		ResendAPIKey:      v.GetString("RESEND_API_KEY"),
		SenderEmail:       v.GetString("SENDER_EMAIL"),
		SenderName:        v.GetString("SENDER_NAME"),
		LogLevel:          v.GetString("LOG_LEVEL"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	var missing []string
	if c.AppDatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}
	if c.PromecDatabaseURL == "" {
		missing = append(missing, "PROMEC_DATABASE_URL")
	}
	if c.SecretKey == "" {
		missing = append(missing, "SECRET_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	if c.SigningAlgorithm != "HS256" {
		return fmt.Errorf("unsupported signing algorithm %q", c.SigningAlgorithm)
	}
	return nil
}

// IsProduction reports whether the app runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
