// Package config loads gather.yml and applies environment overrides.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gopkg.in/yaml.v3"
)

// Environment variables that override file settings.
const (
	EnvRedisURL  = "GATHER_REDIS_URL"
	EnvNamespace = "GATHER_NAMESPACE"
	EnvHTTPAddr  = "GATHER_HTTP_ADDR"
	EnvJWTSecret = "GATHER_JWT_SECRET"
	EnvLogLevel  = "GATHER_LOG_LEVEL"
)

// DefaultPath is the config file looked up when none is given.
const DefaultPath = "gather.yml"

// GatherConfig represents the top-level gather.yml configuration
type GatherConfig struct {
	Version    string           `yaml:"version"`
	Redis      RedisConfig      `yaml:"redis"`
	HTTP       HTTPConfig       `yaml:"http"`
	Auth       AuthConfig       `yaml:"auth"`
	Log        LogConfig        `yaml:"log"`
	Presence   PresenceConfig   `yaml:"presence"`
	Categories CategoriesConfig `yaml:"categories"`
	Events     EventsConfig     `yaml:"events"`
}

// RedisConfig specifies the document store connection
type RedisConfig struct {
	URL          string        `yaml:"url"`       // redis://[:password@]host:port/db
	Namespace    string        `yaml:"namespace"` // Key prefix, default "default"
	DialTimeout  time.Duration `yaml:"dial_timeout,omitempty"`
	ReadTimeout  time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout time.Duration `yaml:"write_timeout,omitempty"`
}

// HTTPConfig specifies the API server
type HTTPConfig struct {
	Addr            string        `yaml:"addr"`
	ReadTimeout     time.Duration `yaml:"read_timeout,omitempty"`
	WriteTimeout    time.Duration `yaml:"write_timeout,omitempty"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout,omitempty"`
	CORSOrigins     []string      `yaml:"cors_origins,omitempty"` // Empty allows any origin
}

// AuthConfig specifies bearer token verification
type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // HS256 shared secret
	Issuer    string `yaml:"issuer,omitempty"`
}

// LogConfig specifies logger output
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json or console
}

// PresenceConfig specifies heartbeat bookkeeping
type PresenceConfig struct {
	Retention time.Duration `yaml:"retention,omitempty"` // How long stale heartbeats are kept
}

// CategoriesConfig specifies suggestion ranking and the catalog seed file
type CategoriesConfig struct {
	MergeVariants bool   `yaml:"merge_variants"`
	CatalogFile   string `yaml:"catalog_file,omitempty"`
}

// EventsConfig specifies event lifecycle rules
type EventsConfig struct {
	RequireOrganizer bool `yaml:"require_organizer"`
}

// Default returns a configuration with every default applied.
func Default() *GatherConfig {
	c := &GatherConfig{Version: "1.0"}
	_ = c.Validate()
	return c
}

// Validate applies defaults and checks value ranges
func (c *GatherConfig) Validate() error {
	if c.Version != "1.0" {
		return fmt.Errorf("unsupported version: %s (expected: 1.0)", c.Version)
	}

	if c.Redis.URL == "" {
		c.Redis.URL = "redis://localhost:6379/0"
	}
	if c.Redis.Namespace == "" {
		c.Redis.Namespace = "default"
	}
	if strings.ContainsAny(c.Redis.Namespace, ": ") {
		return fmt.Errorf("redis.namespace must not contain ':' or spaces, got %q", c.Redis.Namespace)
	}
	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}

	if c.HTTP.Addr == "" {
		c.HTTP.Addr = ":8080"
	}
	if c.HTTP.ReadTimeout == 0 {
		c.HTTP.ReadTimeout = 15 * time.Second
	}
	if c.HTTP.WriteTimeout == 0 {
		c.HTTP.WriteTimeout = 15 * time.Second
	}
	if c.HTTP.ShutdownTimeout == 0 {
		c.HTTP.ShutdownTimeout = 10 * time.Second
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log.level: %s (must be 'debug', 'info', 'warn' or 'error')", c.Log.Level)
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}
	if c.Log.Format != "json" && c.Log.Format != "console" {
		return fmt.Errorf("invalid log.format: %s (must be 'json' or 'console')", c.Log.Format)
	}

	if c.Presence.Retention == 0 {
		c.Presence.Retention = 24 * time.Hour
	}
	if c.Presence.Retention < 2*time.Minute {
		return fmt.Errorf("presence.retention must be at least the 2m online window, got %s", c.Presence.Retention)
	}

	for _, d := range []struct {
		name  string
		value time.Duration
	}{
		{"redis.dial_timeout", c.Redis.DialTimeout},
		{"redis.read_timeout", c.Redis.ReadTimeout},
		{"redis.write_timeout", c.Redis.WriteTimeout},
		{"http.read_timeout", c.HTTP.ReadTimeout},
		{"http.write_timeout", c.HTTP.WriteTimeout},
		{"http.shutdown_timeout", c.HTTP.ShutdownTimeout},
	} {
		if d.value < 0 {
			return fmt.Errorf("%s must be >= 0, got %s", d.name, d.value)
		}
	}

	return nil
}

// RequireAuth checks the settings the API server cannot run without
func (c *GatherConfig) RequireAuth() error {
	if len(c.Auth.JWTSecret) < 16 {
		return fmt.Errorf("auth.jwt_secret (or %s) must be at least 16 characters", EnvJWTSecret)
	}
	return nil
}

// RedisOptions converts the redis section into go-redis options
func (c *GatherConfig) RedisOptions() (*redis.Options, error) {
	opts, err := redis.ParseURL(c.Redis.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis.url: %w", err)
	}
	opts.DialTimeout = c.Redis.DialTimeout
	opts.ReadTimeout = c.Redis.ReadTimeout
	opts.WriteTimeout = c.Redis.WriteTimeout
	return opts, nil
}

// ApplyEnv overrides file settings with GATHER_* variables found by lookup
func (c *GatherConfig) ApplyEnv(lookup func(string) (string, bool)) {
	if v, ok := lookup(EnvRedisURL); ok && v != "" {
		c.Redis.URL = v
	}
	if v, ok := lookup(EnvNamespace); ok && v != "" {
		c.Redis.Namespace = v
	}
	if v, ok := lookup(EnvHTTPAddr); ok && v != "" {
		c.HTTP.Addr = v
	}
	if v, ok := lookup(EnvJWTSecret); ok && v != "" {
		c.Auth.JWTSecret = v
	}
	if v, ok := lookup(EnvLogLevel); ok && v != "" {
		c.Log.Level = strings.ToLower(v)
	}
}

// Load reads gather.yml from the specified path, applies environment
// overrides and validates the result. A missing file at DefaultPath is not an
// error: defaults and environment are used instead.
func Load(path string) (*GatherConfig, error) {
	config := GatherConfig{Version: "1.0"}

	if path == "" {
		path = DefaultPath
	}
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		config = GatherConfig{}
		if err := yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse YAML: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist) && path == DefaultPath:
		// Defaults plus environment
	default:
		return nil, fmt.Errorf("failed to read config: %w", err)
	}

	config.ApplyEnv(os.LookupEnv)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// LoadDotEnv loads variables from .env files into the process environment
// without overriding variables that are already set. Missing files are skipped.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			return fmt.Errorf("failed to load %s: %w", p, err)
		}
	}
	return nil
}
