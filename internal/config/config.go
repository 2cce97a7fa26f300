package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config captures everything the client needs at startup.
type Config struct {
	APIURL                string `mapstructure:"api_url"`
	PushServiceURL        string `mapstructure:"push_service_url"`
	DataDir               string `mapstructure:"data_dir"`
	LogFile               string `mapstructure:"log_file"`
	LogLevel              string `mapstructure:"log_level"`
	RequestTimeoutSeconds int    `mapstructure:"request_timeout_seconds"`
	StatusPollSeconds     int    `mapstructure:"status_poll_seconds"`
}

const (
	defaultConfigPath     = "~/.config/adindex/config.toml"
	defaultDataDir        = "~/.local/share/adindex"
	defaultAPIURL         = "http://127.0.0.1:8080"
	defaultPushServiceURL = "http://127.0.0.1:8080/push"
	defaultLogLevel       = "info"
	defaultRequestTimeout = 10
	defaultStatusPoll     = 30

	envPrefix = "ADINDEX"
)

// Load locates and parses the client config, falling back to defaults when
// missing. ADINDEX_* environment variables override file values.
func Load(path string) (Config, error) {
	resolved, err := resolvePath(path)
	if err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("api_url", defaultAPIURL)
	v.SetDefault("push_service_url", defaultPushServiceURL)
	v.SetDefault("data_dir", defaultDataDir)
	v.SetDefault("log_file", "")
	v.SetDefault("log_level", defaultLogLevel)
	v.SetDefault("request_timeout_seconds", defaultRequestTimeout)
	v.SetDefault("status_poll_seconds", defaultStatusPoll)

	if _, err := os.Stat(resolved); err == nil {
		v.SetConfigFile(resolved)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("parse config: %w", err)
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("open config: %w", err)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.APIURL = strings.TrimSpace(c.APIURL)
	if c.APIURL == "" {
		c.APIURL = defaultAPIURL
	}
	c.PushServiceURL = strings.TrimRight(strings.TrimSpace(c.PushServiceURL), "/")
	if c.PushServiceURL == "" {
		c.PushServiceURL = defaultPushServiceURL
	}
	c.DataDir = strings.TrimSpace(c.DataDir)
	if c.DataDir == "" {
		c.DataDir = defaultDataDir
	}
	c.DataDir = mustExpand(c.DataDir)
	c.LogFile = strings.TrimSpace(c.LogFile)
	if c.LogFile == "" {
		c.LogFile = filepath.Join(c.DataDir, "client.log")
	} else {
		c.LogFile = mustExpand(c.LogFile)
	}
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}
	if c.RequestTimeoutSeconds <= 0 {
		c.RequestTimeoutSeconds = defaultRequestTimeout
	}
	if c.StatusPollSeconds <= 0 {
		c.StatusPollSeconds = defaultStatusPoll
	}
}

// StorePath returns the durable key-value store file.
func (c Config) StorePath() string {
	return filepath.Join(c.dataDir(), "store.toml")
}

// SubscriptionPath returns the file backing the push subscription registration.
func (c Config) SubscriptionPath() string {
	return filepath.Join(c.dataDir(), "subscription.json")
}

// RequestTimeout returns the per-request API timeout.
func (c Config) RequestTimeout() time.Duration {
	if c.RequestTimeoutSeconds <= 0 {
		return defaultRequestTimeout * time.Second
	}
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// StatusPollInterval returns how often per-query status is refreshed.
func (c Config) StatusPollInterval() time.Duration {
	if c.StatusPollSeconds <= 0 {
		return defaultStatusPoll * time.Second
	}
	return time.Duration(c.StatusPollSeconds) * time.Second
}

func (c Config) dataDir() string {
	if strings.TrimSpace(c.DataDir) == "" {
		return mustExpand(defaultDataDir)
	}
	return c.DataDir
}

func resolvePath(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return expandPath(defaultConfigPath)
	}
	return expandPath(path)
}

func mustExpand(path string) string {
	expanded, err := expandPath(path)
	if err != nil {
		return path
	}
	return expanded
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
