package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/joseph-ayodele/provider-console/constants"
)

const (
	DefaultAPIURL           = "http://localhost:8000/api"
	DefaultPollInterval     = 2000 * time.Millisecond
	DefaultPageSize         = 100
	DefaultHTTPTimeout      = 30 * time.Second
	DefaultFailureThreshold = 5
	DefaultDBURL            = "file:provider-console.db"
	defaultConfigPath       = "provider-console.yaml"
)

// Config holds all application configuration
type Config struct {
	API      APIConfig      `yaml:"api"`
	Poll     PollConfig     `yaml:"poll"`
	Upload   UploadConfig   `yaml:"upload"`
	Database DatabaseConfig `yaml:"database"`
	Server   ServerConfig   `yaml:"server"`
	Log      LogConfig      `yaml:"log"`

	DownloadDir string `yaml:"download_dir"`
}

// APIConfig describes the validation backend.
type APIConfig struct {
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

// PollConfig holds the shared cadence of status, provider and stats polls.
type PollConfig struct {
	Interval         time.Duration `yaml:"interval"`
	PageSize         int           `yaml:"page_size"`
	FailureThreshold int           `yaml:"failure_threshold"`
}

// UploadConfig holds client-side upload limits and the optional drop directory.
type UploadConfig struct {
	MaxBytes int64         `yaml:"max_bytes"`
	WatchDir string        `yaml:"watch_dir"`
	Debounce time.Duration `yaml:"debounce"`
}

// DatabaseConfig holds the local state store settings
type DatabaseConfig struct {
	DSN             string        `yaml:"dsn"`
	MaxConns        int32         `yaml:"max_conns"`
	MinConns        int32         `yaml:"min_conns"`
	MaxConnLifetime time.Duration `yaml:"max_conn_lifetime"`
	DialTimeout     time.Duration `yaml:"dial_timeout"`
}

// ServerConfig holds the optional gRPC health endpoint address.
type ServerConfig struct {
	HealthAddr string `yaml:"health_addr"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// LoadConfig reads the optional YAML file named by CONFIG_PATH, applies
// environment overrides and fills defaults.
func LoadConfig() (*Config, error) {
	return LoadConfigFile(getEnv("CONFIG_PATH", defaultConfigPath))
}

// LoadConfigFile is LoadConfig with an explicit file path. A missing file is not an error.
func LoadConfigFile(path string) (*Config, error) {
	cfg := &Config{}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, NewAppError(CodeConfig, fmt.Sprintf("parse %s", path), err)
		}
	} else if !os.IsNotExist(err) {
		return nil, NewAppError(CodeConfig, fmt.Sprintf("read %s", path), err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyEnv() {
	envOverride(&c.API.BaseURL, "PROVIDER_API_URL")
	envOverrideDuration(&c.API.Timeout, "HTTP_TIMEOUT")
	envOverrideDuration(&c.Poll.Interval, "POLL_INTERVAL")
	envOverrideInt(&c.Poll.PageSize, "PAGE_SIZE")
	envOverrideInt(&c.Poll.FailureThreshold, "FAILURE_THRESHOLD")
	envOverrideInt64(&c.Upload.MaxBytes, "MAX_UPLOAD_BYTES")
	envOverride(&c.Upload.WatchDir, "WATCH_DIR")
	envOverride(&c.Database.DSN, "DB_URL")
	envOverride(&c.Server.HealthAddr, "HEALTH_ADDR")
	envOverride(&c.Log.Level, "LOG_LEVEL")
	envOverride(&c.Log.Format, "LOG_FORMAT")
	envOverride(&c.DownloadDir, "DOWNLOAD_DIR")
}

func (c *Config) applyDefaults() {
	if c.API.BaseURL == "" {
		c.API.BaseURL = DefaultAPIURL
	}
	c.API.BaseURL = strings.TrimRight(c.API.BaseURL, "/")
	if c.API.Timeout <= 0 {
		c.API.Timeout = DefaultHTTPTimeout
	}
	if c.Poll.Interval <= 0 {
		c.Poll.Interval = DefaultPollInterval
	}
	if c.Poll.PageSize <= 0 {
		c.Poll.PageSize = DefaultPageSize
	}
	// negative disables repeated-failure notifications
	if c.Poll.FailureThreshold == 0 {
		c.Poll.FailureThreshold = DefaultFailureThreshold
	}
	if c.Upload.MaxBytes <= 0 {
		c.Upload.MaxBytes = constants.DefaultMaxUploadBytes
	}
	if c.Upload.Debounce <= 0 {
		c.Upload.Debounce = 500 * time.Millisecond
	}
	if c.Database.DSN == "" {
		c.Database.DSN = DefaultDBURL
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = 4
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = 1
	}
	if c.Database.MaxConnLifetime == 0 {
		c.Database.MaxConnLifetime = 30 * time.Minute
	}
	if c.Database.DialTimeout == 0 {
		c.Database.DialTimeout = 3 * time.Second
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.DownloadDir == "" {
		c.DownloadDir = "."
	}
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	v := NewValidator().
		Field("api.base_url", c.API.BaseURL, Required, HTTPURL).
		Field("database.dsn", c.Database.DSN, Required).
		Field("log.format", c.Log.Format, OneOf("text", "json")).
		Field("log.level", strings.ToLower(c.Log.Level), OneOf("debug", "info", "warn", "error"))
	if c.Poll.Interval < 100*time.Millisecond {
		v.Add(ValidationError{Field: "poll.interval", Value: c.Poll.Interval, Message: "must be at least 100ms"})
	}
	if err := v.Error(); err != nil {
		return NewAppError(CodeConfig, "invalid configuration", err)
	}
	return nil
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envOverride(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func envOverrideInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func envOverrideInt64(dst *int64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

// durations accept Go syntax ("2s") or bare milliseconds ("2000")
func envOverrideDuration(dst *time.Duration, key string) {
	v := os.Getenv(key)
	if v == "" {
		return
	}
	if d, err := time.ParseDuration(v); err == nil {
		*dst = d
		return
	}
	if ms, err := strconv.Atoi(v); err == nil {
		*dst = time.Duration(ms) * time.Millisecond
	}
}
