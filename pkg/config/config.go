package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"strconv"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigFile is read when present in the working directory.
const DefaultConfigFile = "config.yaml"

// localSessionSecret is only accepted when Env is "local".
const localSessionSecret = "dealership-local-session-secret"

// Config holds all configuration for dealership-engine.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords, keys) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"0.0.0.0"`
	Port     string `yaml:"port" env:"PORT" env-default:"8000"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// LogLevel overrides the environment's default level (debug locally, info elsewhere).
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"SHUTDOWN_TIMEOUT" env-default:"15s"`

	Database  DatabaseConfig  `yaml:"database"`
	Upstream  UpstreamConfig  `yaml:"upstream"`
	Redis     RedisConfig     `yaml:"redis"`
	Session   SessionConfig   `yaml:"session"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

// DatabaseConfig holds PostgreSQL database configuration.
type DatabaseConfig struct {
	Host           string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port           int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User           string `yaml:"user" env:"PGUSER" env-default:"dealership"`
	Password       string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database       string `yaml:"database" env:"PGDATABASE" env-default:"dealership"`
	MaxConnections int32  `yaml:"max_connections" env:"PGMAX_CONNECTIONS" env-default:"25"`
	SSLMode        string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"disable"`
}

// UpstreamConfig points at the dealer/review backend and the sentiment analyzer.
// The lowercase env names are the ones the original deployment used.
type UpstreamConfig struct {
	BackendURL           string `yaml:"backend_url" env:"BACKEND_URL,backend_url" env-default:"http://localhost:3030"`
	SentimentAnalyzerURL string `yaml:"sentiment_analyzer_url" env:"SENTIMENT_ANALYZER_URL,sentiment_analyzer_url" env-default:"http://localhost:5050/"`

	Timeout              time.Duration `yaml:"timeout" env:"UPSTREAM_TIMEOUT" env-default:"30s"`
	MaxRetries           int           `yaml:"max_retries" env:"UPSTREAM_MAX_RETRIES" env-default:"2"`
	BreakerThreshold     uint32        `yaml:"breaker_threshold" env:"UPSTREAM_BREAKER_THRESHOLD" env-default:"5"`
	BreakerCooldown      time.Duration `yaml:"breaker_cooldown" env:"UPSTREAM_BREAKER_COOLDOWN" env-default:"30s"`
	SentimentConcurrency int           `yaml:"sentiment_concurrency" env:"SENTIMENT_CONCURRENCY" env-default:"4"`
}

// RedisConfig holds the optional Redis used to cache sentiment results.
// Caching is disabled when Host is empty.
type RedisConfig struct {
	Host     string `yaml:"host" env:"REDIS_HOST"`
	Port     int    `yaml:"port" env:"REDIS_PORT" env-default:"6379"`
	Password string `yaml:"-" env:"REDIS_PASSWORD"` // Secret - not in YAML
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`

	SentimentTTL time.Duration `yaml:"sentiment_ttl" env:"SENTIMENT_CACHE_TTL" env-default:"24h"`
}

// SessionConfig controls the login session cookie.
type SessionConfig struct {
	Secret string `yaml:"-" env:"SESSION_SECRET"` // Secret - not in YAML

	// MaxAge defaults to two weeks.
	MaxAge time.Duration `yaml:"max_age" env:"SESSION_MAX_AGE" env-default:"336h"`
	Secure bool          `yaml:"secure" env:"SESSION_SECURE" env-default:"false"`
}

// RateLimitConfig bounds login and registration attempts per client IP.
type RateLimitConfig struct {
	AuthRequests int           `yaml:"auth_requests" env:"RATE_LIMIT_AUTH_REQUESTS" env-default:"20"`
	AuthWindow   time.Duration `yaml:"auth_window" env:"RATE_LIMIT_AUTH_WINDOW" env-default:"1m"`
	Disabled     bool          `yaml:"disabled" env:"RATE_LIMIT_DISABLED" env-default:"false"`
}

// Load reads configuration from config.yaml (if it exists) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultConfigFile, version)
}

// LoadFile is Load with an explicit config file path. A missing file is not an error;
// configuration then comes from environment variables and defaults only.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// IsLocal reports whether the server runs in the local development environment.
func (c *Config) IsLocal() bool {
	return c.Env == "local"
}

// Addr returns the listen address for the HTTP server.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}

func (c *Config) validate() error {
	if err := validateServiceURL("backend_url", c.Upstream.BackendURL); err != nil {
		return err
	}
	if err := validateServiceURL("sentiment_analyzer_url", c.Upstream.SentimentAnalyzerURL); err != nil {
		return err
	}

	if c.Upstream.SentimentConcurrency < 1 {
		return fmt.Errorf("sentiment_concurrency must be at least 1, got %d", c.Upstream.SentimentConcurrency)
	}
	if c.Upstream.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative, got %d", c.Upstream.MaxRetries)
	}

	if c.Session.Secret == "" {
		if !c.IsLocal() {
			return errors.New("SESSION_SECRET is required outside the local environment")
		}
		c.Session.Secret = localSessionSecret
	}

	return nil
}

// validateServiceURL ensures an upstream base URL is absolute http(s).
func validateServiceURL(name, raw string) error {
	u, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%s is not a valid URL: %w", name, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("%s must use http or https, got %q", name, raw)
	}
	if u.Host == "" {
		return fmt.Errorf("%s must include a host, got %q", name, raw)
	}
	return nil
}

// ConnectionString returns a postgres:// URL for pgx and golang-migrate.
// Every component is escaped, so empty or space-containing values are safe.
func (c *DatabaseConfig) ConnectionString() string {
	user := url.User(c.User)
	if c.Password != "" {
		user = url.UserPassword(c.User, c.Password)
	}

	u := url.URL{
		Scheme:   "postgres",
		User:     user,
		Host:     net.JoinHostPort(c.Host, strconv.Itoa(c.Port)),
		Path:     "/" + c.Database,
		RawPath:  "/" + url.PathEscape(c.Database),
		RawQuery: url.Values{"sslmode": {c.SSLMode}}.Encode(),
	}
	return u.String()
}
