// Package config loads appcanvas settings.
//
// Values are resolved in three layers: built-in defaults, an optional YAML
// file, then APPCANVAS_* environment variables. Command line flags are
// applied on top by the caller.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment override.
const EnvPrefix = "APPCANVAS_"

// MaxExportHistory caps the number of history entries included in an export.
const MaxExportHistory = 100

const DefaultConfigYAML = `# appcanvas configuration
server:
  port: 8080
  shutdown_timeout: 5s

database:
  # postgres or sqlite
  driver: sqlite
  dsn: appcanvas.db

auth:
  jwt_secret: ""
  token_ttl: 24h
  # Unauthenticated GET /api/canvas/{appId}?preview=1. Turn off to require a token.
  allow_preview: true

history:
  export_limit: 100
  # Zero keeps history forever.
  retain_days: 0
  keep_per_canvas: 0
  archive_dir: ""
  prune_interval: 0s

tracing:
  enabled: false
  output: ""

log:
  level: info
  path: ""
  pretty: false

read_only: false
`

type ServerConfig struct {
	Port            int           `yaml:"port"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type AuthConfig struct {
	JWTSecret    string        `yaml:"jwt_secret"`
	TokenTTL     time.Duration `yaml:"token_ttl"`
	AllowPreview bool          `yaml:"allow_preview"`
}

// HistoryConfig controls history export and retention.
type HistoryConfig struct {
	ExportLimit   int           `yaml:"export_limit"`
	RetainDays    int           `yaml:"retain_days"`
	KeepPerCanvas int           `yaml:"keep_per_canvas"`
	ArchiveDir    string        `yaml:"archive_dir"`
	PruneInterval time.Duration `yaml:"prune_interval"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	Output  string `yaml:"output"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Path   string `yaml:"path"`
	Pretty bool   `yaml:"pretty"`
}

// Config holds the runtime configuration for appcanvas.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	History  HistoryConfig  `yaml:"history"`
	Tracing  TracingConfig  `yaml:"tracing"`
	Log      LogConfig      `yaml:"log"`
	ReadOnly bool           `yaml:"read_only"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            8080,
			ShutdownTimeout: 5 * time.Second,
		},
		Database: DatabaseConfig{
			Driver: "sqlite",
			DSN:    "appcanvas.db",
		},
		Auth: AuthConfig{
			TokenTTL:     24 * time.Hour,
			AllowPreview: true,
		},
		History: HistoryConfig{
			ExportLimit: MaxExportHistory,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads path (when not empty) over the defaults and applies environment
// overrides. The result is not validated; call Validate once flags are in.
func Load(path string) (*Config, error) {
	return load(path, os.LookupEnv)
}

func load(path string, lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	if err := cfg.applyEnv(lookup); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := func(name string, dst *string) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			*dst = v
		}
	}
	var errs []error
	num := func(name string, dst *int) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			n, err := strconv.Atoi(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = n
		}
	}
	flag := func(name string, dst *bool) {
		if v, ok := lookup(EnvPrefix + name); ok && v != "" {
			b, err := strconv.ParseBool(strings.TrimSpace(v))
			if err != nil {
				errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, name, err))
				return
			}
			*dst = b
		}
	}

	num("PORT", &c.Server.Port)
	str("DB_DRIVER", &c.Database.Driver)
	str("DB_DSN", &c.Database.DSN)
	str("JWT_SECRET", &c.Auth.JWTSecret)
	flag("ALLOW_PREVIEW", &c.Auth.AllowPreview)
	num("HISTORY_RETAIN_DAYS", &c.History.RetainDays)
	num("HISTORY_KEEP_PER_CANVAS", &c.History.KeepPerCanvas)
	str("HISTORY_ARCHIVE_DIR", &c.History.ArchiveDir)
	flag("TRACING", &c.Tracing.Enabled)
	str("TRACING_OUTPUT", &c.Tracing.Output)
	str("LOG_LEVEL", &c.Log.Level)
	str("LOG_PATH", &c.Log.Path)
	flag("LOG_PRETTY", &c.Log.Pretty)
	flag("READ_ONLY", &c.ReadOnly)

	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Validate checks the settings needed to run the server.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port %d out of range", c.Server.Port))
	}
	switch c.Database.Driver {
	case "postgres", "sqlite":
	default:
		errs = append(errs, fmt.Errorf("database.driver %q must be postgres or sqlite", c.Database.Driver))
	}
	if strings.TrimSpace(c.Database.DSN) == "" {
		errs = append(errs, errors.New("database.dsn is required"))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("auth.jwt_secret is required"))
	}
	if c.History.ExportLimit <= 0 || c.History.ExportLimit > MaxExportHistory {
		errs = append(errs, fmt.Errorf("history.export_limit must be between 1 and %d", MaxExportHistory))
	}
	if c.History.RetainDays < 0 || c.History.KeepPerCanvas < 0 {
		errs = append(errs, errors.New("history retention values must not be negative"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// Addr returns the listen address of the HTTP server.
func (c *Config) Addr() string {
	return fmt.Sprintf(":%d", c.Server.Port)
}

// RetainFor returns the history retention window, zero meaning forever.
func (h HistoryConfig) RetainFor() time.Duration {
	return time.Duration(h.RetainDays) * 24 * time.Hour
}
