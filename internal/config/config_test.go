package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "gather.yml")
	require.NoError(t, os.WriteFile(configPath, []byte(content), 0644))
	return configPath
}

func TestLoad_ValidConfig(t *testing.T) {
	configPath := writeConfig(t, `version: "1.0"
redis:
  url: "redis://cache:6379/2"
  namespace: "staging"
  read_timeout: 2s
http:
  addr: ":9090"
  cors_origins: ["https://app.example.com"]
auth:
  jwt_secret: "0123456789abcdef"
log:
  level: debug
  format: console
presence:
  retention: 6h
categories:
  merge_variants: true
events:
  require_organizer: true
`)

	config, err := Load(configPath)
	require.NoError(t, err)
	assert.Equal(t, "redis://cache:6379/2", config.Redis.URL)
	assert.Equal(t, "staging", config.Redis.Namespace)
	assert.Equal(t, 2*time.Second, config.Redis.ReadTimeout)
	assert.Equal(t, 5*time.Second, config.Redis.DialTimeout, "default applied")
	assert.Equal(t, ":9090", config.HTTP.Addr)
	assert.Equal(t, []string{"https://app.example.com"}, config.HTTP.CORSOrigins)
	assert.Equal(t, "debug", config.Log.Level)
	assert.Equal(t, "console", config.Log.Format)
	assert.Equal(t, 6*time.Hour, config.Presence.Retention)
	assert.True(t, config.Categories.MergeVariants)
	assert.True(t, config.Events.RequireOrganizer)
	assert.NoError(t, config.RequireAuth())
}

func TestLoad_Defaults(t *testing.T) {
	config, err := Load(writeConfig(t, `version: "1.0"`))
	require.NoError(t, err)

	assert.Equal(t, "redis://localhost:6379/0", config.Redis.URL)
	assert.Equal(t, "default", config.Redis.Namespace)
	assert.Equal(t, ":8080", config.HTTP.Addr)
	assert.Equal(t, "info", config.Log.Level)
	assert.Equal(t, "json", config.Log.Format)
	assert.Equal(t, 24*time.Hour, config.Presence.Retention)
	assert.False(t, config.Categories.MergeVariants)
	assert.Error(t, config.RequireAuth(), "no secret configured")
}

func TestLoad_ExampleConfig(t *testing.T) {
	for _, env := range []string{EnvRedisURL, EnvNamespace, EnvHTTPAddr, EnvJWTSecret, EnvLogLevel} {
		t.Setenv(env, "")
	}

	config, err := Load(filepath.Join("..", "..", "configs", "gather.example.yml"))
	require.NoError(t, err)
	assert.Equal(t, []string{"http://localhost:3000"}, config.HTTP.CORSOrigins)
	assert.Equal(t, "configs/categories.yml", config.Categories.CatalogFile)
	assert.Equal(t, "gather", config.Auth.Issuer)
}

func TestLoad_FileNotFound(t *testing.T) {
	config, err := Load("/nonexistent/gather.yml")
	assert.Error(t, err)
	assert.Nil(t, config)
	assert.Contains(t, err.Error(), "failed to read config")
}

func TestLoad_MissingDefaultFileUsesDefaults(t *testing.T) {
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(t.TempDir()))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	config, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "1.0", config.Version)
	assert.Equal(t, "default", config.Redis.Namespace)
}

func TestLoad_InvalidYAML(t *testing.T) {
	config, err := Load(writeConfig(t, "version: \"1.0\"\nredis:\n  - not\n    a map\n"))
	assert.Error(t, err)
	assert.Nil(t, config)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvRedisURL, "redis://env:6379/1")
	t.Setenv(EnvNamespace, "envns")
	t.Setenv(EnvHTTPAddr, ":7000")
	t.Setenv(EnvJWTSecret, "env-secret-long-enough")
	t.Setenv(EnvLogLevel, "WARN")

	config, err := Load(writeConfig(t, `version: "1.0"
redis:
  url: "redis://file:6379/0"
  namespace: "filens"
`))
	require.NoError(t, err)
	assert.Equal(t, "redis://env:6379/1", config.Redis.URL)
	assert.Equal(t, "envns", config.Redis.Namespace)
	assert.Equal(t, ":7000", config.HTTP.Addr)
	assert.Equal(t, "env-secret-long-enough", config.Auth.JWTSecret)
	assert.Equal(t, "warn", config.Log.Level)
}

func TestValidate(t *testing.T) {
	testCases := []struct {
		name    string
		modify  func(c *GatherConfig)
		wantErr string
	}{
		{"bad version", func(c *GatherConfig) { c.Version = "2.0" }, "unsupported version"},
		{"namespace with colon", func(c *GatherConfig) { c.Redis.Namespace = "a:b" }, "redis.namespace"},
		{"bad log level", func(c *GatherConfig) { c.Log.Level = "trace" }, "invalid log.level"},
		{"bad log format", func(c *GatherConfig) { c.Log.Format = "xml" }, "invalid log.format"},
		{"retention below window", func(c *GatherConfig) { c.Presence.Retention = time.Minute }, "presence.retention"},
		{"negative timeout", func(c *GatherConfig) { c.HTTP.ReadTimeout = -time.Second }, "http.read_timeout"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			c := &GatherConfig{Version: "1.0"}
			tc.modify(c)
			err := c.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestRedisOptions(t *testing.T) {
	c := Default()
	c.Redis.URL = "redis://:secret@cache:6380/3"

	opts, err := c.RedisOptions()
	require.NoError(t, err)
	assert.Equal(t, "cache:6380", opts.Addr)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 3, opts.DB)
	assert.Equal(t, 3*time.Second, opts.ReadTimeout)

	c.Redis.URL = "http://nope"
	_, err = c.RedisOptions()
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envPath, []byte("GATHER_TEST_DOTENV=from-file\n"), 0644))
	t.Setenv("GATHER_TEST_DOTENV", "")
	os.Unsetenv("GATHER_TEST_DOTENV")

	require.NoError(t, LoadDotEnv(envPath, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-file", os.Getenv("GATHER_TEST_DOTENV"))
}
