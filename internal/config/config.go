package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/v2"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	AppEnv             string
	Port               string
	DBHost             string
	DBPort             string
	DBUser             string
	DBPassword         string
	DBName             string
	DBSSLMode          string
	LogLevel           string
	LogFormat          string
	CORSAllowedOrigins []string
	KafkaBrokers       []string
	KafkaTopic         string
	SeedDefaults       bool
}

// Load reads configs/.env (if present) and then the process environment.
func Load() (*Config, error) {
	_ = godotenv.Load("configs/.env")

	k := koanf.New(".")
	if err := k.Load(env.Provider("", ".", func(s string) string { return s }), nil); err != nil {
		return nil, fmt.Errorf("load env: %w", err)
	}

	cfg := &Config{
		AppEnv:             valueOrDefault(k.String("APP_ENV"), "development"),
		Port:               valueOrDefault(k.String("PORT"), "8080"),
		DBHost:             valueOrDefault(k.String("DB_HOST"), "localhost"),
		DBPort:             valueOrDefault(k.String("DB_PORT"), "5432"),
		DBUser:             valueOrDefault(k.String("DB_USER"), "postgres"),
		DBPassword:         valueOrDefault(k.String("DB_PASSWORD"), "postgres"),
		DBName:             valueOrDefault(k.String("DB_NAME"), "tax_calculator"),
		DBSSLMode:          valueOrDefault(k.String("DB_SSLMODE"), "disable"),
		LogLevel:           valueOrDefault(k.String("LOG_LEVEL"), "info"),
		LogFormat:          valueOrDefault(k.String("LOG_FORMAT"), "json"),
		CORSAllowedOrigins: splitAndTrim(valueOrDefault(k.String("CORS_ALLOWED_ORIGINS"), "http://localhost:5173,http://127.0.0.1:5173")),
		KafkaBrokers:       splitAndTrim(k.String("KAFKA_BROKERS")),
		KafkaTopic:         valueOrDefault(k.String("KAFKA_TOPIC"), "tax.events"),
		SeedDefaults:       parseBool(valueOrDefault(k.String("SEED_DEFAULTS"), "true")),
	}

	if len(cfg.KafkaBrokers) > 0 && strings.TrimSpace(cfg.KafkaTopic) == "" {
		return nil, fmt.Errorf("KAFKA_TOPIC is required when KAFKA_BROKERS is set")
	}

	return cfg, nil
}

// DSN returns the Postgres connection string.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.DBUser, c.DBPassword),
		Host:     c.DBHost + ":" + c.DBPort,
		Path:     "/" + c.DBName,
		RawQuery: "sslmode=" + url.QueryEscape(c.DBSSLMode),
	}
	return u.String()
}

// HTTPAddr returns the address the HTTP server should bind to.
func (c *Config) HTTPAddr() string {
	port := strings.TrimSpace(c.Port)
	if port == "" {
		port = "8080"
	}
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

// IsProduction reports whether gin should run in release mode.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.AppEnv, "production")
}

func splitAndTrim(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

func valueOrDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func parseBool(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}
