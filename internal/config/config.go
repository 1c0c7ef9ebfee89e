// Package config loads the repolist binary configuration from a TOML file
// and the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/Sternrassler/repolist-client/pkg/client"
	"github.com/Sternrassler/repolist-client/pkg/pagination"
	"github.com/joho/godotenv"
	toml "github.com/pelletier/go-toml/v2"
)

// Config is the resolved configuration of the binary.
type Config struct {
	// Addr is the listen address of the serve command.
	Addr string

	// BaseURL of the GitHub REST API.
	BaseURL string

	// UserAgent sent with every request.
	UserAgent string

	// RedisURL enables the response cache and the quota tracker when set.
	// Either a redis:// URL or host:port.
	RedisURL string

	// LogLevel and LogPretty configure zerolog.
	LogLevel  string
	LogPretty bool

	// Timeout bounds a single GitHub request.
	Timeout time.Duration

	// PrefetchThreshold is how close to the end a referenced item must be
	// for the next page to load.
	PrefetchThreshold int
}

const (
	defaultConfigPath = "~/.config/repolist/config.toml"
	defaultAddr       = ":8080"
	defaultUserAgent  = "repolist-client/0.1.0"
	defaultLogLevel   = "info"
	defaultTimeout    = 30 * time.Second
)

// Environment variables that override the file.
const (
	EnvAddr      = "REPOLIST_ADDR"
	EnvRedisURL  = "REDIS_URL"
	EnvUserAgent = "USER_AGENT"
	EnvLogLevel  = "LOG_LEVEL"
)

// Defaults returns the configuration used when no file is present.
func Defaults() Config {
	return Config{
		Addr:              defaultAddr,
		BaseURL:           client.DefaultBaseURL,
		UserAgent:         defaultUserAgent,
		LogLevel:          defaultLogLevel,
		Timeout:           defaultTimeout,
		PrefetchThreshold: pagination.DefaultPrefetchThreshold,
	}
}

// Load reads the config file at path (the default location when empty),
// falling back to defaults when it is missing, and then applies environment
// overrides. A .env file in the working directory fills in variables that
// are not already set.
func Load(path string) (Config, error) {
	cfg, err := loadFile(path)
	if err != nil {
		return Config{}, err
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks values that cannot be defaulted.
func (c Config) Validate() error {
	if strings.TrimSpace(c.UserAgent) == "" {
		return fmt.Errorf("user_agent must not be empty")
	}
	if c.Timeout <= 0 {
		return fmt.Errorf("timeout must be positive (got %s)", c.Timeout)
	}
	if c.PrefetchThreshold < 1 {
		return fmt.Errorf("prefetch_threshold must be at least 1 (got %d)", c.PrefetchThreshold)
	}
	return nil
}

func loadFile(path string) (Config, error) {
	cfg := Defaults()

	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	file, err := os.Open(resolved)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return cfg, nil
		}
		return Config{}, fmt.Errorf("open config: %w", err)
	}
	defer file.Close()

	bytes, err := io.ReadAll(file)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}

	var raw struct {
		Addr              string `toml:"addr"`
		BaseURL           string `toml:"base_url"`
		UserAgent         string `toml:"user_agent"`
		RedisURL          string `toml:"redis_url"`
		LogLevel          string `toml:"log_level"`
		LogPretty         bool   `toml:"log_pretty"`
		Timeout           string `toml:"timeout"`
		PrefetchThreshold int    `toml:"prefetch_threshold"`
	}
	if err := toml.Unmarshal(bytes, &raw); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}

	setString(&cfg.Addr, raw.Addr)
	setString(&cfg.BaseURL, raw.BaseURL)
	setString(&cfg.UserAgent, raw.UserAgent)
	setString(&cfg.RedisURL, raw.RedisURL)
	setString(&cfg.LogLevel, raw.LogLevel)
	cfg.LogPretty = raw.LogPretty

	if t := strings.TrimSpace(raw.Timeout); t != "" {
		cfg.Timeout, err = time.ParseDuration(t)
		if err != nil {
			return Config{}, fmt.Errorf("parse timeout: %w", err)
		}
	}
	if raw.PrefetchThreshold != 0 {
		cfg.PrefetchThreshold = raw.PrefetchThreshold
	}

	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Addr = getEnv(EnvAddr, cfg.Addr)
	cfg.RedisURL = getEnv(EnvRedisURL, cfg.RedisURL)
	cfg.UserAgent = getEnv(EnvUserAgent, cfg.UserAgent)
	cfg.LogLevel = getEnv(EnvLogLevel, cfg.LogLevel)
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func setString(dst *string, value string) {
	if v := strings.TrimSpace(value); v != "" {
		*dst = v
	}
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func expandPath(path string) (string, error) {
	trimmed := strings.TrimSpace(path)
	if trimmed == "" {
		return "", fmt.Errorf("path is empty")
	}
	if strings.HasPrefix(trimmed, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home dir: %w", err)
		}
		trimmed = filepath.Join(home, strings.TrimPrefix(trimmed, "~"))
	}
	return filepath.Abs(trimmed)
}
