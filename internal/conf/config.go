// Package conf loads daemon configuration from YAML plus environment
// overrides.
package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds the full daemon configuration.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Remote  RemoteConfig  `mapstructure:"remote"`
	Probe   ProbeConfig   `mapstructure:"probe"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Log     LogConfig     `mapstructure:"log"`
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// StoreConfig selects and configures the durable snapshot store.
type StoreConfig struct {
	// Backend is one of "file", "sqlite", "postgres", "mysql".
	Backend string `mapstructure:"backend"`
	// Path is the snapshot file for the file backend, or the database file
	// for sqlite.
	Path string `mapstructure:"path"`
	// DSN is the connection string for the postgres/mysql backends.
	DSN string `mapstructure:"dsn"`
	// Table overrides the default table name for SQL backends.
	Table string `mapstructure:"table"`
}

// RemoteConfig selects and configures the delivery transport.
type RemoteConfig struct {
	// Transport is "http" or "sqs".
	Transport string `mapstructure:"transport"`
	// BaseURL is the job service API base for the http transport.
	BaseURL string `mapstructure:"base_url"`
	// Token is the bearer token for the http transport.
	Token string `mapstructure:"token"`
	// Region, Endpoint and QueueURL configure the sqs transport.
	Region   string `mapstructure:"region"`
	Endpoint string `mapstructure:"endpoint"`
	QueueURL string `mapstructure:"queue_url"`
}

// ProbeConfig configures the connectivity prober.
type ProbeConfig struct {
	// URL is the reachability check target; defaults to <base_url>/health.
	URL string `mapstructure:"url"`
	// IntervalSeconds is the probe period.
	IntervalSeconds int `mapstructure:"interval_seconds"`
}

// EngineConfig tunes the outbox engine.
type EngineConfig struct {
	MaxAttempts           int `mapstructure:"max_attempts"`
	PassIntervalSeconds   int `mapstructure:"pass_interval_seconds"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
}

// LogConfig configures logging.
type LogConfig struct {
	// Level is a zap level string ("debug", "info", "warn", "error").
	Level string `mapstructure:"level"`
}

// MetricsConfig configures the expvar endpoint.
type MetricsConfig struct {
	// Addr is the listen address for /debug/vars, empty disables it.
	Addr string `mapstructure:"addr"`
}

// PassInterval returns the configured pass interval as a duration.
func (c EngineConfig) PassInterval() time.Duration {
	return time.Duration(c.PassIntervalSeconds) * time.Second
}

// RequestTimeout returns the configured request timeout as a duration.
func (c EngineConfig) RequestTimeout() time.Duration {
	return time.Duration(c.RequestTimeoutSeconds) * time.Second
}

// ProbeInterval returns the configured probe period as a duration.
func (c ProbeConfig) Interval() time.Duration {
	return time.Duration(c.IntervalSeconds) * time.Second
}

// NewConfig reads the config file (optional) and environment variables with
// the ACTIONBOX_ prefix, e.g. ACTIONBOX_REMOTE_BASE_URL.
func NewConfig(path string) (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	// Every key needs a default so AutomaticEnv can populate it without a
	// config file.
	v.SetDefault("store.backend", "file")
	v.SetDefault("store.path", "actionbox.json")
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.table", "")
	v.SetDefault("remote.transport", "http")
	v.SetDefault("remote.base_url", "")
	v.SetDefault("remote.token", "")
	v.SetDefault("remote.region", "")
	v.SetDefault("remote.endpoint", "")
	v.SetDefault("remote.queue_url", "")
	v.SetDefault("probe.url", "")
	v.SetDefault("probe.interval_seconds", 15)
	v.SetDefault("engine.max_attempts", 5)
	v.SetDefault("engine.pass_interval_seconds", 30)
	v.SetDefault("engine.request_timeout_seconds", 30)
	v.SetDefault("log.level", "info")
	v.SetDefault("metrics.addr", ":2112")

	v.SetEnvPrefix("ACTIONBOX")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.Probe.URL == "" && cfg.Remote.BaseURL != "" {
		cfg.Probe.URL = strings.TrimRight(cfg.Remote.BaseURL, "/") + "/health"
	}
	return &cfg, nil
}
