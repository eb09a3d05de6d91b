package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "memory", cfg.Cache.Type)
	assert.Equal(t, time.Hour, cfg.Auth.AccessTTL)
	assert.False(t, cfg.Authz.CacheEnabled)
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr())
	require.NoError(t, cfg.Validate())
}

func TestLoadFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yml := `
server:
  port: 9090
database:
  host: db.internal
  dbname: clinic_test
cache:
  enabled: true
  type: redis
authz:
  cache_enabled: true
log:
  format: console
`
	require.NoError(t, os.WriteFile(path, []byte(yml), 0o600))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("SERVER_PORT", "7070")
	t.Setenv("AUTHZ_CACHE_SINGLE_INSTANCE", "true")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7070, cfg.Server.Port)
	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, 5432, cfg.Database.Port)
	assert.Equal(t, "redis", cfg.Cache.Type)
	assert.True(t, cfg.Authz.CacheEnabled)
	assert.True(t, cfg.Authz.SingleInstance)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.CORS.AllowedOrigins)
	assert.Contains(t, cfg.Database.DSN(), "dbname=clinic_test")
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	base := func() *Config {
		c := &Config{}
		c.applyDefaults()
		c.Auth.JWTSecret = testSecret
		return c
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		ok     bool
	}{
		{"valid", func(*Config) {}, true},
		{"missing secret", func(c *Config) { c.Auth.JWTSecret = "" }, false},
		{"short secret", func(c *Config) { c.Auth.JWTSecret = "short" }, false},
		{"bad cache type", func(c *Config) { c.Cache.Type = "memcached" }, false},
		{"authz cache without cache", func(c *Config) { c.Authz.CacheEnabled = true }, false},
		{"authz memory cache across replicas", func(c *Config) { c.Authz.CacheEnabled = true; c.Cache.Enabled = true }, false},
		{"authz memory cache single instance", func(c *Config) {
			c.Authz.CacheEnabled = true
			c.Cache.Enabled = true
			c.Authz.SingleInstance = true
		}, true},
		{"authz redis cache", func(c *Config) {
			c.Authz.CacheEnabled = true
			c.Cache.Enabled = true
			c.Cache.Type = "redis"
		}, true},
		{"bad port", func(c *Config) { c.Server.Port = 70000 }, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := base()
			tt.mutate(c)
			err := c.Validate()
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}
