// Package config loads the service's runtime configuration from the
// environment, applying typed defaults everywhere except the shared
// API secret.
package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config is the fully resolved runtime configuration for one boot of the
// service.
type Config struct {
	APIKey string

	Host string
	Port string

	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration

	DatabasePath string
	MigrationDir string

	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	AllowedOrigins []string

	EnableKeepAlive bool
	AppURL          string

	SlowQueryThreshold time.Duration

	Environment string
}

// defaultAllowedOrigins covers the local dev origin and a placeholder
// production origin, used when ALLOWED_ORIGINS is unset or empty.
var defaultAllowedOrigins = []string{"http://localhost:5173", "https://issue-board.example.com"}

// Load reads the process environment into a Config, applying defaults for
// everything except API_KEY, whose absence is the sole fatal condition.
func Load() (*Config, error) {
	v := viper.New()
	v.AutomaticEnv()

	v.SetDefault("HOST", "0.0.0.0")
	v.SetDefault("PORT", "8080")
	v.SetDefault("SERVER_READ_TIMEOUT", "15s")
	v.SetDefault("SERVER_WRITE_TIMEOUT", "15s")
	v.SetDefault("SERVER_SHUTDOWN_TIMEOUT", "30s")
	v.SetDefault("REQUEST_TIMEOUT", "60s")
	v.SetDefault("DATABASE_PATH", "./data/issue-board.db")
	v.SetDefault("MIGRATION_DIR", "internal/store/migrations")
	v.SetDefault("DB_MAX_OPEN_CONNS", "10")
	v.SetDefault("DB_MAX_IDLE_CONNS", "5")
	v.SetDefault("DB_CONN_MAX_LIFETIME", "1h")
	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("ENABLE_KEEP_ALIVE", "false")
	v.SetDefault("SLOW_QUERY_THRESHOLD", "100ms")
	v.SetDefault("APP_ENV", "production")

	apiKey := v.GetString("API_KEY")
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API_KEY is required and must not be empty")
	}

	cfg := &Config{
		APIKey: apiKey,
		Host:   v.GetString("HOST"),
		Port:   v.GetString("PORT"),

		ReadTimeout:     parseDurationOrDefault(v.GetString("SERVER_READ_TIMEOUT"), 15*time.Second),
		WriteTimeout:    parseDurationOrDefault(v.GetString("SERVER_WRITE_TIMEOUT"), 15*time.Second),
		ShutdownTimeout: parseDurationOrDefault(v.GetString("SERVER_SHUTDOWN_TIMEOUT"), 30*time.Second),
		RequestTimeout:  parseDurationOrDefault(v.GetString("REQUEST_TIMEOUT"), 60*time.Second),

		DatabasePath: v.GetString("DATABASE_PATH"),
		MigrationDir: v.GetString("MIGRATION_DIR"),

		DBMaxOpenConns:    parseIntOrDefault(v.GetString("DB_MAX_OPEN_CONNS"), 10),
		DBMaxIdleConns:    parseIntOrDefault(v.GetString("DB_MAX_IDLE_CONNS"), 5),
		DBConnMaxLifetime: parseDurationOrDefault(v.GetString("DB_CONN_MAX_LIFETIME"), time.Hour),

		AllowedOrigins: parseAllowedOrigins(v.GetString("ALLOWED_ORIGINS")),

		EnableKeepAlive: v.GetBool("ENABLE_KEEP_ALIVE"),
		AppURL:          firstNonEmpty(v.GetString("APP_URL"), v.GetString("RENDER_EXTERNAL_URL")),

		SlowQueryThreshold: parseDurationOrDefault(v.GetString("SLOW_QUERY_THRESHOLD"), 100*time.Millisecond),

		Environment: v.GetString("APP_ENV"),
	}

	return cfg, nil
}

// Addr returns the host:port listen address.
func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// parseAllowedOrigins splits ALLOWED_ORIGINS on commas, trimming whitespace
// around each entry. An empty value falls back to defaultAllowedOrigins.
// See DESIGN.md for the reasoning behind splitting rather than treating the
// whole value as one origin.
func parseAllowedOrigins(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return append([]string(nil), defaultAllowedOrigins...)
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			origins = append(origins, p)
		}
	}
	if len(origins) == 0 {
		return append([]string(nil), defaultAllowedOrigins...)
	}
	return origins
}

// parseDurationOrDefault parses a duration literal, silently falling back to
// def on any parse error; invalid env values are non-fatal by design, only
// API_KEY blocks startup.
func parseDurationOrDefault(raw string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// parseIntOrDefault parses an integer, silently falling back to def on any
// parse error.
func parseIntOrDefault(raw string, def int) int {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
