package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the service configuration
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Cache    CacheConfig    `yaml:"cache"`
	Auth     AuthConfig     `yaml:"auth"`
	Authz    AuthzConfig    `yaml:"authz"`
	Log      LogConfig      `yaml:"log"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	CORS     CORSConfig     `yaml:"cors"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

type DatabaseConfig struct {
	Host            string        `yaml:"host"`
	Port            int           `yaml:"port"`
	User            string        `yaml:"user"`
	Password        string        `yaml:"password"`
	DBName          string        `yaml:"dbname"`
	SSLMode         string        `yaml:"sslmode"`
	LogLevel        string        `yaml:"log_level"`
	MaxOpenConns    int           `yaml:"max_open_conns"`
	MaxIdleConns    int           `yaml:"max_idle_conns"`
	ConnMaxLifetime time.Duration `yaml:"conn_max_lifetime"`
}

type RedisConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type CacheConfig struct {
	Enabled bool          `yaml:"enabled"`
	Type    string        `yaml:"type"` // memory | redis
	TTL     time.Duration `yaml:"ttl"`
}

type AuthConfig struct {
	JWTSecret string        `yaml:"jwt_secret"`
	Issuer    string        `yaml:"issuer"`
	AccessTTL time.Duration `yaml:"access_ttl"`
}

type AuthzConfig struct {
	// CacheEnabled caches effective permissions per user. Every role and
	// assignment mutation made through this service invalidates the entries.
	//
	// A memory cache lives in one process: an invalidation on one replica
	// never reaches another, and writes made by clinicctl reach none. It is
	// therefore rejected unless SingleInstance is set. With redis every
	// replica sees the invalidation, but a resolve already in flight on
	// another replica may still cache the old set for up to CACHE_TTL.
	CacheEnabled bool `yaml:"cache_enabled"`

	// SingleInstance declares that exactly one server process runs, which
	// allows the memory permission cache.
	SingleInstance bool `yaml:"single_instance"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json | console
}

type MetricsConfig struct {
	Enabled bool `yaml:"enabled"`
}

type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// Load reads .env (if present), the YAML file named by CONFIG_FILE (if set),
// then applies environment overrides and defaults.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var c Config
	if path, ok := getEnvStr("CONFIG_FILE"); ok {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		if err := yaml.Unmarshal(b, &c); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	c.applyDefaults()
	c.applyEnvOverrides()
	return &c, nil
}

func (c *Config) applyDefaults() {
	if c.Server.Host == "" {
		c.Server.Host = "0.0.0.0"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.ReadTimeout == 0 {
		c.Server.ReadTimeout = 15 * time.Second
	}
	if c.Server.WriteTimeout == 0 {
		c.Server.WriteTimeout = 15 * time.Second
	}

	if c.Database.Host == "" {
		c.Database.Host = "localhost"
	}
	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.User == "" {
		c.Database.User = "postgres"
	}
	if c.Database.DBName == "" {
		c.Database.DBName = "clinic"
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.LogLevel == "" {
		c.Database.LogLevel = "warn"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 25
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 5 * time.Minute
	}

	if c.Redis.Host == "" {
		c.Redis.Host = "localhost"
	}
	if c.Redis.Port == 0 {
		c.Redis.Port = 6379
	}

	if c.Cache.Type == "" {
		c.Cache.Type = "memory"
	}
	if c.Cache.TTL == 0 {
		c.Cache.TTL = 5 * time.Minute
	}

	if c.Auth.Issuer == "" {
		c.Auth.Issuer = "clinic-core"
	}
	if c.Auth.AccessTTL == 0 {
		c.Auth.AccessTTL = time.Hour
	}

	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if len(c.CORS.AllowedOrigins) == 0 {
		c.CORS.AllowedOrigins = []string{"*"}
	}
	if len(c.CORS.AllowedMethods) == 0 {
		c.CORS.AllowedMethods = []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"}
	}
	if len(c.CORS.AllowedHeaders) == 0 {
		c.CORS.AllowedHeaders = []string{"Accept", "Authorization", "Content-Type", "X-Tenant-ID", "X-Request-ID"}
	}
}

func (c *Config) applyEnvOverrides() {
	// SERVER
	if v, ok := getEnvStr("SERVER_HOST"); ok {
		c.Server.Host = v
	}
	if v, ok := getEnvInt("SERVER_PORT"); ok {
		c.Server.Port = v
	}
	if v, ok := getEnvDur("SERVER_READ_TIMEOUT"); ok {
		c.Server.ReadTimeout = v
	}
	if v, ok := getEnvDur("SERVER_WRITE_TIMEOUT"); ok {
		c.Server.WriteTimeout = v
	}

	// DATABASE
	if v, ok := getEnvStr("DB_HOST"); ok {
		c.Database.Host = v
	}
	if v, ok := getEnvInt("DB_PORT"); ok {
		c.Database.Port = v
	}
	if v, ok := getEnvStr("DB_USER"); ok {
		c.Database.User = v
	}
	if v, ok := getEnvStr("DB_PASSWORD"); ok {
		c.Database.Password = v
	}
	if v, ok := getEnvStr("DB_NAME"); ok {
		c.Database.DBName = v
	}
	if v, ok := getEnvStr("DB_SSLMODE"); ok {
		c.Database.SSLMode = v
	}
	if v, ok := getEnvStr("DB_LOG_LEVEL"); ok {
		c.Database.LogLevel = v
	}
	if v, ok := getEnvInt("DB_MAX_OPEN_CONNS"); ok {
		c.Database.MaxOpenConns = v
	}
	if v, ok := getEnvInt("DB_MAX_IDLE_CONNS"); ok {
		c.Database.MaxIdleConns = v
	}

	// REDIS
	if v, ok := getEnvStr("REDIS_HOST"); ok {
		c.Redis.Host = v
	}
	if v, ok := getEnvInt("REDIS_PORT"); ok {
		c.Redis.Port = v
	}
	if v, ok := getEnvStr("REDIS_PASSWORD"); ok {
		c.Redis.Password = v
	}
	if v, ok := getEnvInt("REDIS_DB"); ok {
		c.Redis.DB = v
	}

	// CACHE
	if v, ok := getEnvBool("CACHE_ENABLED"); ok {
		c.Cache.Enabled = v
	}
	if v, ok := getEnvStr("CACHE_TYPE"); ok {
		c.Cache.Type = strings.ToLower(v)
	}
	if v, ok := getEnvDur("CACHE_TTL"); ok {
		c.Cache.TTL = v
	}

	// AUTH
	if v, ok := getEnvStr("JWT_SECRET"); ok {
		c.Auth.JWTSecret = v
	}
	if v, ok := getEnvStr("JWT_ISSUER"); ok {
		c.Auth.Issuer = v
	}
	if v, ok := getEnvDur("JWT_ACCESS_TTL"); ok {
		c.Auth.AccessTTL = v
	}
	if v, ok := getEnvBool("AUTHZ_CACHE_ENABLED"); ok {
		c.Authz.CacheEnabled = v
	}
	if v, ok := getEnvBool("AUTHZ_CACHE_SINGLE_INSTANCE"); ok {
		c.Authz.SingleInstance = v
	}

	// LOG
	if v, ok := getEnvStr("LOG_LEVEL"); ok {
		c.Log.Level = strings.ToLower(v)
	}
	if v, ok := getEnvStr("LOG_FORMAT"); ok {
		c.Log.Format = strings.ToLower(v)
	}

	// METRICS
	if v, ok := getEnvBool("METRICS_ENABLED"); ok {
		c.Metrics.Enabled = v
	}

	// CORS
	if v, ok := getEnvCSV("CORS_ALLOWED_ORIGINS"); ok {
		c.CORS.AllowedOrigins = v
	}
	if v, ok := getEnvCSV("CORS_ALLOWED_METHODS"); ok {
		c.CORS.AllowedMethods = v
	}
	if v, ok := getEnvCSV("CORS_ALLOWED_HEADERS"); ok {
		c.CORS.AllowedHeaders = v
	}
}

// Validate checks values the service cannot start without
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server port %d out of range", c.Server.Port))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	} else if len(c.Auth.JWTSecret) < 32 {
		errs = append(errs, errors.New("JWT_SECRET must be at least 32 bytes"))
	}
	switch c.Cache.Type {
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("unknown cache type %q", c.Cache.Type))
	}
	if c.Authz.CacheEnabled && !c.Cache.Enabled {
		errs = append(errs, errors.New("AUTHZ_CACHE_ENABLED requires CACHE_ENABLED"))
	}
	if c.Authz.CacheEnabled && c.Cache.Type == "memory" && !c.Authz.SingleInstance {
		errs = append(errs, errors.New("AUTHZ_CACHE_ENABLED with CACHE_TYPE=memory requires AUTHZ_CACHE_SINGLE_INSTANCE"))
	}
	switch c.Log.Format {
	case "json", "console":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.Log.Format))
	}
	return errors.Join(errs...)
}

// DSN returns the postgres connection string
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode,
	)
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// ---- env helpers ----

func getEnvStr(key string) (string, bool) {
	v := os.Getenv(key)
	return v, v != ""
}

func getEnvInt(key string) (int, bool) {
	if s, ok := getEnvStr(key); ok {
		if i, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
			return i, true
		}
	}
	return 0, false
}

func getEnvBool(key string) (bool, bool) {
	if s, ok := getEnvStr(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(s)); err == nil {
			return b, true
		}
	}
	return false, false
}

func getEnvDur(key string) (time.Duration, bool) {
	if s, ok := getEnvStr(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(s)); err == nil {
			return d, true
		}
	}
	return 0, false
}

func getEnvCSV(key string) ([]string, bool) {
	s, ok := getEnvStr(key)
	if !ok {
		return nil, false
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out, true
}
