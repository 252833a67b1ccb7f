// Package daemon manages the habitloop runtime lifecycle and configuration.
package daemon

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"

	"github.com/habitloop/habitloop/internal/app/engagement"
)

// Config holds all daemon configuration.
type Config struct {
	API           APIConfig          `toml:"api"`
	Engagement    EngagementConfig   `toml:"engagement"`
	Notifications NotificationConfig `toml:"notifications"`
	Logging       LoggingConfig      `toml:"logging"`
}

// APIConfig controls the HTTP API server.
type APIConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	Metrics     bool     `toml:"metrics"`
}

// EngagementConfig tunes XP and achievement scoring.
type EngagementConfig struct {
	XPPerCompletion int64  `toml:"xp_per_completion"`
	CatalogFile     string `toml:"catalog_file"` // empty = built-in catalog
	LookbackDays    int    `toml:"lookback_days"`
	StatsWindowDays int    `toml:"stats_window_days"`
}

// NotificationConfig controls notification throttling.
type NotificationConfig struct {
	MaxPerDay  int    `toml:"max_per_day"`
	QuietStart string `toml:"quiet_start"`
	QuietEnd   string `toml:"quiet_end"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `toml:"level"`  // debug, info, warn, error
	Format string `toml:"format"` // text or json
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:        "127.0.0.1",
			Port:        8420,
			CORSOrigins: []string{"*"},
			Metrics:     true,
		},
		Engagement: EngagementConfig{
			XPPerCompletion: 10,
			LookbackDays:    engagement.MaxStreakLookback,
			StatsWindowDays: 30,
		},
		Notifications: NotificationConfig{
			MaxPerDay:  3,
			QuietStart: "22:00",
			QuietEnd:   "08:00",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig reads $HABITLOOP_HOME/config.toml, falling back to defaults,
// then applies environment overrides. A .env file in the working directory
// is loaded first; variables already set in the environment win.
func LoadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := DefaultConfig()
	path := ConfigPath()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	return cfg, cfg.Validate()
}

// applyEnv overlays HABITLOOP_* environment variables.
func applyEnv(cfg *Config) error {
	if v := os.Getenv("HABITLOOP_API_HOST"); v != "" {
		cfg.API.Host = v
	}
	if v := os.Getenv("HABITLOOP_API_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("HABITLOOP_API_PORT: %w", err)
		}
		cfg.API.Port = port
	}
	if v := os.Getenv("HABITLOOP_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("HABITLOOP_CATALOG"); v != "" {
		cfg.Engagement.CatalogFile = v
	}
	return nil
}

// Validate rejects configurations the daemon cannot run with.
func (c Config) Validate() error {
	if c.API.Port < 1 || c.API.Port > 65535 {
		return fmt.Errorf("api.port %d out of range", c.API.Port)
	}
	if c.Engagement.XPPerCompletion < 0 {
		return fmt.Errorf("engagement.xp_per_completion must not be negative")
	}
	if c.Engagement.LookbackDays < 1 || c.Engagement.LookbackDays > engagement.MaxStreakLookback {
		return fmt.Errorf("engagement.lookback_days must be 1..%d", engagement.MaxStreakLookback)
	}
	if c.Engagement.StatsWindowDays < 1 {
		return fmt.Errorf("engagement.stats_window_days must be positive")
	}
	if c.Notifications.MaxPerDay < 0 {
		return fmt.Errorf("notifications.max_per_day must not be negative")
	}
	for name, v := range map[string]string{
		"notifications.quiet_start": c.Notifications.QuietStart,
		"notifications.quiet_end":   c.Notifications.QuietEnd,
	} {
		if !engagement.ValidHHMM(v) {
			return fmt.Errorf("%s %q is not HH:MM", name, v)
		}
	}
	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q unknown", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q unknown", c.Logging.Format)
	}
	return nil
}

// SaveConfig writes the config to ConfigPath.
func SaveConfig(cfg Config) error {
	path := ConfigPath()
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	encoder := toml.NewEncoder(f)
	return encoder.Encode(cfg)
}

// ConfigPath returns $HABITLOOP_HOME/config.toml.
func ConfigPath() string {
	return filepath.Join(habitloopHome(), "config.toml")
}

// habitloopHome returns the habitloop data directory.
func habitloopHome() string {
	if env := os.Getenv("HABITLOOP_HOME"); env != "" {
		return env
	}
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".habitloop")
}
