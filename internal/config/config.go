package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/joho/godotenv"
)

const defaultDSN = "host=localhost user=postgres password=postgres dbname=restaurante port=5432 sslmode=disable"

type Config struct {
	AppEnv      string
	HTTPPort    string
	CORSOrigins string
	JWTSecret   string

	// DEFAULT_TENANT is used when a request carries no X-Tenant header.
	// Empty means the header is mandatory.
	DefaultTenant string

	Database DatabaseConfig
	Logger   LoggerConfig
	Stock    StockConfig
	Reports  ReportsConfig
}

type DatabaseConfig struct {
	Driver          string // postgres | sqlite
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string // json | console
}

type StockConfig struct {
	// AllowNegative lets outbound moves drive a balance below zero.
	// Manual write-offs are trusted, so this defaults to true.
	AllowNegative bool
}

type ReportsConfig struct {
	Location *time.Location
}

// Load reads the environment (and a .env file when present) into a Config.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		AppEnv:        getEnv("APP_ENV", "development"),
		HTTPPort:      getEnv("HTTP_PORT", "8080"),
		CORSOrigins:   getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:5173"),
		JWTSecret:     getEnv("JWT_SECRET", ""),
		DefaultTenant: getEnv("DEFAULT_TENANT", ""),
		Database: DatabaseConfig{
			Driver:          strings.ToLower(getEnv("DB_DRIVER", "postgres")),
			DSN:             getEnv("DATABASE_DSN", defaultDSN),
			MaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: time.Duration(getEnvInt("DB_CONN_MAX_LIFETIME", 300)) * time.Second,
		},
		Logger: LoggerConfig{
			Level:    getEnv("LOG_LEVEL", "info"),
			Encoding: getEnv("LOG_ENCODING", "json"),
		},
		Stock: StockConfig{
			AllowNegative: getEnvBool("STOCK_ALLOW_NEGATIVE", true),
		},
	}

	tz := getEnv("REPORT_TIMEZONE", "UTC")
	loc, err := time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid REPORT_TIMEZONE %q: %w", tz, err)
	}
	cfg.Reports.Location = loc

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is not set")
	}
	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters")
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q (supported: postgres, sqlite)", c.Database.Driver)
	}
	switch c.Logger.Encoding {
	case "json", "console":
	default:
		return fmt.Errorf("unsupported LOG_ENCODING %q (supported: json, console)", c.Logger.Encoding)
	}
	return nil
}

// Warnings lists insecure defaults that are acceptable in development only.
func (c *Config) Warnings() []string {
	var out []string
	if c.Database.Driver == "postgres" && c.Database.DSN == defaultDSN {
		out = append(out, "DATABASE_DSN is using the default value, set your own Postgres connection for production")
	}
	if c.CORSOrigins == "http://localhost:5173" {
		out = append(out, "CORS_ALLOWED_ORIGINS is using the default value, set your own domain for production")
	}
	return out
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development" || c.AppEnv == "dev"
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getEnvBool(key string, def bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return def
}
