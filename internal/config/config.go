// Package config loads application configuration through viper, from a
// YAML file and BANDS_* environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// Config holds every setting the core components need.
type Config struct {
	// DataDir holds the store, device identity, and legacy artifacts.
	DataDir string `mapstructure:"data_dir" yaml:"data_dir"`

	// Year is the current festival year; catalog operations only ever
	// touch this year's rows.
	Year int `mapstructure:"year" yaml:"year"`

	// BandsURL and EventsURL are the CSV feed locations.
	BandsURL  string `mapstructure:"bands_url" yaml:"bands_url"`
	EventsURL string `mapstructure:"events_url" yaml:"events_url"`

	// DropDir is watched by the daemon for manually supplied feeds.
	DropDir string `mapstructure:"drop_dir" yaml:"drop_dir"`

	// RefreshSchedule is the daemon's cron spec for periodic refresh.
	RefreshSchedule string `mapstructure:"refresh_schedule" yaml:"refresh_schedule"`

	// CloudURL is the shared key-value service endpoint. Empty keeps
	// the install offline-only.
	CloudURL string `mapstructure:"cloud_url" yaml:"cloud_url"`

	// LogFile receives rotated logs. Empty logs to stderr.
	LogFile string `mapstructure:"log_file" yaml:"log_file"`

	// HTTPTimeout bounds feed and cloud requests.
	HTTPTimeout time.Duration `mapstructure:"http_timeout" yaml:"http_timeout"`
}

// Default returns the built-in configuration.
func Default() *Config {
	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	return &Config{
		DataDir:         filepath.Join(home, ".bands"),
		Year:            time.Now().Year(),
		RefreshSchedule: "@every 6h",
		HTTPTimeout:     30 * time.Second,
	}
}

// Load reads configuration from path (optional; "" means defaults and
// environment only) with environment overrides like BANDS_YEAR.
func Load(path string) (*Config, error) {
	v := viper.New()

	def := Default()
	v.SetDefault("data_dir", def.DataDir)
	v.SetDefault("year", def.Year)
	v.SetDefault("refresh_schedule", def.RefreshSchedule)
	v.SetDefault("http_timeout", def.HTTPTimeout)

	v.SetEnvPrefix("BANDS")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	if cfg.Year <= 0 {
		return nil, fmt.Errorf("year must be positive (got %d)", cfg.Year)
	}
	return &cfg, nil
}

// WriteDefault writes a starter YAML config to path.
// Refuses to overwrite an existing file.
func WriteDefault(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	data, err := yaml.Marshal(Default())
	if err != nil {
		return fmt.Errorf("failed to marshal default config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Write persists the configuration as YAML to path, overwriting any
// existing file. Used after settings change at runtime, such as a year
// change.
func (c *Config) Write(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// StorePath returns the SQLite database location.
func (c *Config) StorePath() string {
	return filepath.Join(c.DataDir, "catalog.db")
}

// DeviceIDPath returns the per-install identity file location.
func (c *Config) DeviceIDPath() string {
	return filepath.Join(c.DataDir, "device-id")
}

// LegacyStorePath returns the legacy bbolt database location.
func (c *Config) LegacyStorePath() string {
	return filepath.Join(c.DataDir, "legacy.db")
}

// FlatFilePath returns the legacy flat-file priority export location.
func (c *Config) FlatFilePath() string {
	return filepath.Join(c.DataDir, "priorities.export")
}
