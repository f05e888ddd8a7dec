package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	"github.com/sadopc/worktime/internal/store"
)

// Config holds the complete application configuration
type Config struct {
	Database DatabaseConfig `mapstructure:"database"`
	Logging  LoggingConfig  `mapstructure:"logging"`
	Notify   NotifyConfig   `mapstructure:"notify"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Metrics  MetricsConfig  `mapstructure:"metrics"`
	Presence PresenceConfig `mapstructure:"presence"`
	Report   ReportConfig   `mapstructure:"report"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggingConfig defines logging behavior
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// NotifyConfig defines how trigger notifications are delivered
type NotifyConfig struct {
	Desktop     bool   `mapstructure:"desktop"`
	DedupWindow string `mapstructure:"dedup_window"`
	DedupSize   int    `mapstructure:"dedup_size"`
}

// RedisConfig enables de-duplication shared between processes
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	TTL      string `mapstructure:"ttl"`
}

// MetricsConfig defines the Prometheus endpoint of the watch daemon
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Addr    string `mapstructure:"addr"`
}

// PresenceConfig selects how the current network is sampled
type PresenceConfig struct {
	Sampler       string `mapstructure:"sampler"` // "command" or "static"
	StaticNetwork string `mapstructure:"static_network"`
}

// ReportConfig controls window aggregation
type ReportConfig struct {
	Policy string `mapstructure:"policy"` // "clip" or "starts_in_window"
}

// DefaultPath returns ~/.config/worktime/config.yaml
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "config.yaml"
	}
	return filepath.Join(dir, "worktime", "config.yaml")
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := newViper(configPath)
	return read(v)
}

// Watch loads the configuration and calls onChange with every valid
// configuration written to the file afterwards.
func Watch(configPath string, logger zerolog.Logger, onChange func(*Config)) (*Config, error) {
	v := newViper(configPath)
	cfg, err := read(v)
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(v.ConfigFileUsed()); statErr != nil {
		logger.Debug().Str("config", v.ConfigFileUsed()).Msg("No config file to watch")
		return cfg, nil
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		next, err := decode(v)
		if err != nil {
			logger.Error().Err(err).Str("file", e.Name).Msg("Ignoring invalid configuration change")
			return
		}
		logger.Info().Str("file", e.Name).Msg("Configuration reloaded")
		onChange(next)
	})
	v.WatchConfig()
	return cfg, nil
}

func newViper(configPath string) *viper.Viper {
	v := viper.New()

	setDefaults(v)

	if configPath == "" {
		configPath = DefaultPath()
	}
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("WORKTIME")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

func read(v *viper.Viper) (*Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found, use defaults and environment variables
	}
	return decode(v)
}

func decode(v *viper.Viper) (*Config, error) {
	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := validate(&config); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &config, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("database.path", "")

	v.SetDefault("logging.level", "warn")
	v.SetDefault("logging.format", "text")

	v.SetDefault("notify.desktop", true)
	v.SetDefault("notify.dedup_window", "1h")
	v.SetDefault("notify.dedup_size", 64)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", "1h")

	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.addr", "127.0.0.1:9464")

	v.SetDefault("presence.sampler", "command")
	v.SetDefault("presence.static_network", "")

	v.SetDefault("report.policy", "clip")
}

// validate validates the configuration
func validate(cfg *Config) error {
	if cfg.Database.Path == "" {
		path, err := store.DefaultDBPath()
		if err != nil {
			return fmt.Errorf("resolve database path: %w", err)
		}
		cfg.Database.Path = path
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %q", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "json", "text":
	default:
		return fmt.Errorf("invalid log format: %q", cfg.Logging.Format)
	}

	if _, err := time.ParseDuration(cfg.Notify.DedupWindow); err != nil {
		return fmt.Errorf("invalid notify.dedup_window: %w", err)
	}
	if cfg.Redis.Enabled {
		if cfg.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if _, err := time.ParseDuration(cfg.Redis.TTL); err != nil {
			return fmt.Errorf("invalid redis.ttl: %w", err)
		}
	}
	if cfg.Metrics.Enabled && cfg.Metrics.Addr == "" {
		return fmt.Errorf("metrics.addr is required when metrics are enabled")
	}

	switch cfg.Presence.Sampler {
	case "command":
	case "static":
		if cfg.Presence.StaticNetwork == "" {
			return fmt.Errorf("presence.static_network is required for the static sampler")
		}
	default:
		return fmt.Errorf("invalid presence.sampler: %q", cfg.Presence.Sampler)
	}

	switch cfg.Report.Policy {
	case "clip", "starts_in_window":
	default:
		return fmt.Errorf("invalid report.policy: %q", cfg.Report.Policy)
	}
	return nil
}

// ParseDuration parses a duration string with a fallback
func ParseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		return fallback
	}
	return d
}
