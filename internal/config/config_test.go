package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/client"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvAddr, EnvRedisURL, EnvUserAgent, EnvLogLevel} {
		t.Setenv(key, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.toml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_MissingConfigFallsBackToDefaults(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := Load(filepath.Join(home, "does-not-exist.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("cfg = %+v, want defaults %+v", cfg, Defaults())
	}
	if cfg.BaseURL != client.DefaultBaseURL {
		t.Fatalf("BaseURL = %q, want %q", cfg.BaseURL, client.DefaultBaseURL)
	}
}

func TestLoad_DefaultPathUnderHome(t *testing.T) {
	clearEnv(t)
	home := t.TempDir()
	t.Setenv("HOME", home)

	dir := filepath.Join(home, ".config", "repolist")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`addr = ":9999"`), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":9999" {
		t.Fatalf("Addr = %q, want %q", cfg.Addr, ":9999")
	}
}

func TestLoad_ParsesAndTrimsConfig(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
addr = "  127.0.0.1:7000  "
base_url = "https://github.example.com/api/v3"
user_agent = " my-browser/2.0 "
redis_url = "redis://localhost:6379/2"
log_level = "debug"
log_pretty = true
timeout = "5s"
prefetch_threshold = 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}

	want := Config{
		Addr:              "127.0.0.1:7000",
		BaseURL:           "https://github.example.com/api/v3",
		UserAgent:         "my-browser/2.0",
		RedisURL:          "redis://localhost:6379/2",
		LogLevel:          "debug",
		LogPretty:         true,
		Timeout:           5 * time.Second,
		PrefetchThreshold: 3,
	}
	if cfg != want {
		t.Fatalf("cfg = %+v, want %+v", cfg, want)
	}
}

func TestLoad_EmptyValuesUseDefaults(t *testing.T) {
	clearEnv(t)

	path := writeConfig(t, `
addr = "   "
user_agent = ""
timeout = ""
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg != Defaults() {
		t.Fatalf("cfg = %+v, want defaults", cfg)
	}
}

func TestLoad_EnvironmentOverridesFile(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvAddr, ":7777")
	t.Setenv(EnvRedisURL, "cache:6379")
	t.Setenv(EnvUserAgent, "env-agent/1.0")
	t.Setenv(EnvLogLevel, "warn")

	path := writeConfig(t, `
addr = ":6000"
user_agent = "file-agent/1.0"
log_level = "debug"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":7777" || cfg.RedisURL != "cache:6379" || cfg.UserAgent != "env-agent/1.0" || cfg.LogLevel != "warn" {
		t.Fatalf("environment did not override file: %+v", cfg)
	}
}

func TestLoad_Errors(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{name: "invalid toml", content: `addr = `, wantErr: "parse config"},
		{name: "invalid timeout", content: `timeout = "soon"`, wantErr: "parse timeout"},
		{name: "negative timeout", content: `timeout = "-1s"`, wantErr: "timeout must be positive"},
		{name: "negative threshold", content: `prefetch_threshold = -2`, wantErr: "prefetch_threshold"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)

			_, err := Load(writeConfig(t, tt.content))
			if err == nil {
				t.Fatal("Load returned nil error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %q, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_DotEnv(t *testing.T) {
	clearEnv(t)
	os.Unsetenv(EnvAddr)
	os.Unsetenv(EnvUserAgent)
	t.Setenv(EnvLogLevel, "error")

	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("REPOLIST_ADDR=:5555\nUSER_AGENT=dotenv-agent/1.0\nLOG_LEVEL=debug\n"), 0o600); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	t.Chdir(dir)

	cfg, err := Load(filepath.Join(dir, "missing.toml"))
	if err != nil {
		t.Fatalf("Load returned error: %v", err)
	}
	if cfg.Addr != ":5555" || cfg.UserAgent != "dotenv-agent/1.0" {
		t.Fatalf(".env values not applied: %+v", cfg)
	}
	if cfg.LogLevel != "error" {
		t.Fatalf("LogLevel = %q, an existing variable must win over .env", cfg.LogLevel)
	}
}
