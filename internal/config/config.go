package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
)

// Config holds runtime configuration for the permtools CLI.
type Config struct {
	// DSN is the store connection string. When empty it is read from DSNFile.
	DSN     string `envconfig:"PERMTOOLS_DSN"`
	DSNFile string `envconfig:"PERMTOOLS_DSN_FILE" default:"dbpasswd"`

	LogFormat string `envconfig:"PERMTOOLS_LOG_FORMAT" default:"text" validate:"oneof=text json"`
	LogLevel  string `envconfig:"PERMTOOLS_LOG_LEVEL" default:"warn"`

	Timeout time.Duration `envconfig:"PERMTOOLS_TIMEOUT" default:"30s"`

	MaxOpenConns    int           `envconfig:"PERMTOOLS_DB_MAX_OPEN_CONNS" default:"4" validate:"gte=0"`
	MaxIdleConns    int           `envconfig:"PERMTOOLS_DB_MAX_IDLE_CONNS" default:"2" validate:"gte=0,ltefield=MaxOpenConns"`
	ConnMaxLifetime time.Duration `envconfig:"PERMTOOLS_DB_CONN_MAX_LIFETIME" default:"30m"`
	ConnMaxIdleTime time.Duration `envconfig:"PERMTOOLS_DB_CONN_MAX_IDLE_TIME" default:"5m"`

	// MetricsTextfile, when set, receives transaction metrics in the
	// Prometheus text format after every run.
	MetricsTextfile string `envconfig:"PERMTOOLS_METRICS_TEXTFILE"`

	// Actor is recorded in the grant audit log. Defaults to $USER.
	Actor string `envconfig:"PERMTOOLS_ACTOR"`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Actor == "" {
		cfg.Actor = os.Getenv("USER")
	}
	if _, err := ParseLevel(cfg.LogLevel); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ResolveDSN returns the DSN, reading the credential file when no DSN was
// given directly. The file's contents are used verbatim apart from
// surrounding whitespace.
func (c *Config) ResolveDSN() (string, error) {
	if c.DSN != "" {
		return c.DSN, nil
	}
	if c.DSNFile == "" {
		return "", errors.New("config: no DSN and no DSN file configured")
	}
	raw, err := os.ReadFile(c.DSNFile)
	if err != nil {
		return "", fmt.Errorf("config: read dsn file: %w", err)
	}
	dsn := strings.TrimSpace(string(raw))
	if dsn == "" {
		return "", fmt.Errorf("config: dsn file %s is empty", c.DSNFile)
	}
	return dsn, nil
}

// ParseLevel maps a level name onto slog levels.
func ParseLevel(name string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(name)); err != nil {
		return 0, fmt.Errorf("config: log level %q: %w", name, err)
	}
	return level, nil
}
