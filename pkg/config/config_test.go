package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
)

// clearEnv unsets variables that would leak from the developer's shell into a test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{
		"PORT", "ENVIRONMENT", "PGHOST", "SESSION_SECRET",
		"BACKEND_URL", "backend_url", "SENTIMENT_ANALYZER_URL", "sentiment_analyzer_url",
		"UPSTREAM_TIMEOUT", "SENTIMENT_CONCURRENCY", "REDIS_HOST", "SENTIMENT_CACHE_TTL", "LOG_LEVEL",
	} {
		t.Setenv(name, "")
		os.Unsetenv(name)
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoadFile_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "test-version")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Version != "test-version" {
		t.Errorf("expected Version=test-version, got %s", cfg.Version)
	}
	if cfg.Port != "8000" {
		t.Errorf("expected Port=8000, got %s", cfg.Port)
	}
	if cfg.Upstream.BackendURL != "http://localhost:3030" {
		t.Errorf("expected default backend URL, got %s", cfg.Upstream.BackendURL)
	}
	if cfg.Upstream.SentimentAnalyzerURL != "http://localhost:5050/" {
		t.Errorf("expected default sentiment URL, got %s", cfg.Upstream.SentimentAnalyzerURL)
	}
	if cfg.Upstream.Timeout != 30*time.Second {
		t.Errorf("expected 30s upstream timeout, got %v", cfg.Upstream.Timeout)
	}
	if cfg.Session.MaxAge != 14*24*time.Hour {
		t.Errorf("expected two week session max age, got %v", cfg.Session.MaxAge)
	}
	if cfg.Session.Secret != localSessionSecret {
		t.Errorf("expected local session secret fallback, got %q", cfg.Session.Secret)
	}
	if cfg.Redis.Host != "" {
		t.Errorf("expected sentiment cache disabled by default, got REDIS_HOST=%q", cfg.Redis.Host)
	}
	if cfg.Redis.Port != 6379 || cfg.Redis.SentimentTTL != 24*time.Hour {
		t.Errorf("expected redis defaults 6379/24h, got %d/%v", cfg.Redis.Port, cfg.Redis.SentimentTTL)
	}
}

func TestLoadFile_EnvOverridesYAML(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
port: "9000"
env: "local"
database:
  host: "db.example.com"
upstream:
  backend_url: "http://dealers.example.com"
  sentiment_analyzer_url: "http://sentiment.example.com/"
`)

	t.Setenv("PORT", "9100")
	t.Setenv("SENTIMENT_ANALYZER_URL", "https://sentiment.internal/")

	cfg, err := LoadFile(path, "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Port != "9100" {
		t.Errorf("expected Port=9100 (from env), got %s", cfg.Port)
	}
	if cfg.Database.Host != "db.example.com" {
		t.Errorf("expected Database.Host from yaml, got %s", cfg.Database.Host)
	}
	if cfg.Upstream.BackendURL != "http://dealers.example.com" {
		t.Errorf("expected backend URL from yaml, got %s", cfg.Upstream.BackendURL)
	}
	if cfg.Upstream.SentimentAnalyzerURL != "https://sentiment.internal/" {
		t.Errorf("expected sentiment URL from env, got %s", cfg.Upstream.SentimentAnalyzerURL)
	}
}

func TestLoadFile_LegacyLowercaseEnvNames(t *testing.T) {
	clearEnv(t)
	t.Setenv("backend_url", "http://legacy-backend:3030")

	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}

	if cfg.Upstream.BackendURL != "http://legacy-backend:3030" {
		t.Errorf("expected backend URL from legacy env name, got %s", cfg.Upstream.BackendURL)
	}
}

func TestLoadFile_SessionSecretRequiredOutsideLocal(t *testing.T) {
	clearEnv(t)
	t.Setenv("ENVIRONMENT", "production")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err == nil {
		t.Fatal("expected error when SESSION_SECRET is missing in production")
	}
	if !strings.Contains(err.Error(), "SESSION_SECRET") {
		t.Errorf("expected error to mention SESSION_SECRET, got %v", err)
	}

	t.Setenv("SESSION_SECRET", "prod-secret")
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err != nil {
		t.Fatalf("LoadFile() failed: %v", err)
	}
	if cfg.Session.Secret != "prod-secret" {
		t.Errorf("expected session secret from env, got %q", cfg.Session.Secret)
	}
}

func TestLoadFile_InvalidUpstreamURL(t *testing.T) {
	tests := []struct {
		name    string
		url     string
		wantErr string
	}{
		{"missing scheme", "localhost:3030", "backend_url"},
		{"ftp scheme", "ftp://dealers.example.com", "http or https"},
		{"no host", "http://", "host"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("BACKEND_URL", tt.url)

			_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
			if err == nil {
				t.Fatalf("expected error for backend URL %q", tt.url)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadFile_InvalidSentimentConcurrency(t *testing.T) {
	clearEnv(t)
	t.Setenv("SENTIMENT_CONCURRENCY", "0")

	_, err := LoadFile(filepath.Join(t.TempDir(), "missing.yaml"), "v1")
	if err == nil {
		t.Fatal("expected error for zero sentiment concurrency")
	}
}

func TestLoad_ReadsWorkingDirectoryConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
port: "7777"
`)

	originalDir, err := os.Getwd()
	if err != nil {
		t.Fatalf("failed to get working directory: %v", err)
	}
	if err := os.Chdir(filepath.Dir(path)); err != nil {
		t.Fatalf("failed to change directory: %v", err)
	}
	t.Cleanup(func() {
		os.Chdir(originalDir)
	})

	cfg, err := Load("v1")
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != "7777" {
		t.Errorf("expected Port=7777 from config.yaml, got %s", cfg.Port)
	}
	if cfg.Addr() != "0.0.0.0:7777" {
		t.Errorf("expected Addr 0.0.0.0:7777, got %s", cfg.Addr())
	}
}

func TestDatabaseConfig_ConnectionString(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "db",
		Port:     5433,
		User:     "dealer",
		Password: "secret",
		Database: "reviews",
		SSLMode:  "require",
	}

	want := "postgres://dealer:secret@db:5433/reviews?sslmode=require"
	if got := cfg.ConnectionString(); got != want {
		t.Errorf("ConnectionString() = %q, want %q", got, want)
	}
}

func TestDatabaseConfig_ConnectionString_ParsesBack(t *testing.T) {
	tests := []struct {
		name     string
		password string
		database string
	}{
		{"empty password", "", "cars"},
		{"password with space", "p@ss word", "cars"},
		{"password with quotes and equals", `it's=a"test`, "cars"},
		{"database with space", "secret", "car reviews"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DatabaseConfig{
				Host:     "localhost",
				Port:     5432,
				User:     "dealership",
				Password: tt.password,
				Database: tt.database,
				SSLMode:  "disable",
			}

			parsed, err := pgconn.ParseConfig(cfg.ConnectionString())
			if err != nil {
				t.Fatalf("ParseConfig(%q) failed: %v", cfg.ConnectionString(), err)
			}
			if parsed.User != "dealership" {
				t.Errorf("User = %q, want dealership", parsed.User)
			}
			if parsed.Password != tt.password {
				t.Errorf("Password = %q, want %q", parsed.Password, tt.password)
			}
			if parsed.Database != tt.database {
				t.Errorf("Database = %q, want %q", parsed.Database, tt.database)
			}
			if parsed.Host != "localhost" || parsed.Port != 5432 {
				t.Errorf("Host:Port = %s:%d, want localhost:5432", parsed.Host, parsed.Port)
			}
		})
	}
}
