package config

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete crewsync configuration
type Config struct {
	Engine  EngineConfig  `mapstructure:"engine"`
	Health  HealthConfig  `mapstructure:"health"`
	Watch   WatchConfig   `mapstructure:"watch"`
	Paths   PathsConfig   `mapstructure:"paths"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// EngineConfig controls the reconciliation loop
type EngineConfig struct {
	// TickIntervalSeconds is how often health and analytics recompute (default: 30)
	TickIntervalSeconds int `mapstructure:"tick_interval_seconds"`
}

// HealthConfig controls unresponsiveness and staleness detection
type HealthConfig struct {
	// ActiveTaskThresholdMinutes marks a member with an in-progress task
	// unresponsive after this much silence (default: 5)
	ActiveTaskThresholdMinutes int `mapstructure:"active_task_threshold_minutes"`
	// IdleThresholdMinutes marks any member unresponsive after this much
	// silence regardless of task state (default: 10)
	IdleThresholdMinutes int `mapstructure:"idle_threshold_minutes"`
	// StaleTeamThresholdMinutes is how long a team may go without any file
	// activity before it is archived and cleaned up (default: 120)
	StaleTeamThresholdMinutes int `mapstructure:"stale_team_threshold_minutes"`
}

// WatchConfig controls the filesystem watcher
type WatchConfig struct {
	// DebounceMs is the quiet period before a file change is processed (default: 100)
	DebounceMs int `mapstructure:"debounce_ms"`
}

// PathsConfig controls where crewsync reads and stores data
type PathsConfig struct {
	// TeamsDir is the directory holding one subdirectory per team.
	// Supports ~ for home directory expansion (default: ~/.crewsync/teams)
	TeamsDir string `mapstructure:"teams_dir"`
	// ArchiveDB is the SQLite database file for archived sessions (default: ~/.crewsync/archive.db)
	ArchiveDB string `mapstructure:"archive_db"`
	// HooksDir is where notification hook state is written (default: ~/.crewsync/hooks)
	HooksDir string `mapstructure:"hooks_dir"`
	// TemplatesDir is where team templates are stored (default: ~/.crewsync/templates)
	TemplatesDir string `mapstructure:"templates_dir"`
	// VoiceConfig is the YAML file describing the notification voice (default: ~/.crewsync/voice.yaml)
	VoiceConfig string `mapstructure:"voice_config"`
}

// LoggingConfig controls debug logging behavior
type LoggingConfig struct {
	// Enabled controls whether logging is enabled (default: true)
	Enabled bool `mapstructure:"enabled"`
	// Level is the log level: "debug", "info", "warn", "error" (default: "info")
	Level string `mapstructure:"level"`
	// File is the log file path; empty logs to stderr
	File string `mapstructure:"file"`
}

// TickInterval returns the engine tick interval as a time.Duration
func (c *EngineConfig) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalSeconds) * time.Second
}

// ActiveTaskThreshold returns the active-task silence threshold as a time.Duration
func (c *HealthConfig) ActiveTaskThreshold() time.Duration {
	return time.Duration(c.ActiveTaskThresholdMinutes) * time.Minute
}

// IdleThreshold returns the idle silence threshold as a time.Duration
func (c *HealthConfig) IdleThreshold() time.Duration {
	return time.Duration(c.IdleThresholdMinutes) * time.Minute
}

// StaleTeamThreshold returns the team staleness threshold as a time.Duration
func (c *HealthConfig) StaleTeamThreshold() time.Duration {
	return time.Duration(c.StaleTeamThresholdMinutes) * time.Minute
}

// Debounce returns the watcher debounce as a time.Duration
func (c *WatchConfig) Debounce() time.Duration {
	return time.Duration(c.DebounceMs) * time.Millisecond
}

// expandHome expands a leading ~ to the user's home directory.
func expandHome(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
		return path
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

// ResolveTeamsDir returns TeamsDir with ~ expanded.
func (p *PathsConfig) ResolveTeamsDir() string { return expandHome(p.TeamsDir) }

// ResolveArchiveDB returns ArchiveDB with ~ expanded.
func (p *PathsConfig) ResolveArchiveDB() string { return expandHome(p.ArchiveDB) }

// ResolveHooksDir returns HooksDir with ~ expanded.
func (p *PathsConfig) ResolveHooksDir() string { return expandHome(p.HooksDir) }

// ResolveTemplatesDir returns TemplatesDir with ~ expanded.
func (p *PathsConfig) ResolveTemplatesDir() string { return expandHome(p.TemplatesDir) }

// ResolveVoiceConfig returns VoiceConfig with ~ expanded.
func (p *PathsConfig) ResolveVoiceConfig() string { return expandHome(p.VoiceConfig) }

// Default returns a Config with sensible default values
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			TickIntervalSeconds: 30,
		},
		Health: HealthConfig{
			ActiveTaskThresholdMinutes: 5,
			IdleThresholdMinutes:       10,
			StaleTeamThresholdMinutes:  120,
		},
		Watch: WatchConfig{
			DebounceMs: 100,
		},
		Paths: PathsConfig{
			TeamsDir:     "~/.crewsync/teams",
			ArchiveDB:    "~/.crewsync/archive.db",
			HooksDir:     "~/.crewsync/hooks",
			TemplatesDir: "~/.crewsync/templates",
			VoiceConfig:  "~/.crewsync/voice.yaml",
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
			File:    "",
		},
	}
}

// SetDefaults registers default values with viper
func SetDefaults() {
	defaults := Default()

	// Engine defaults
	viper.SetDefault("engine.tick_interval_seconds", defaults.Engine.TickIntervalSeconds)

	// Health defaults
	viper.SetDefault("health.active_task_threshold_minutes", defaults.Health.ActiveTaskThresholdMinutes)
	viper.SetDefault("health.idle_threshold_minutes", defaults.Health.IdleThresholdMinutes)
	viper.SetDefault("health.stale_team_threshold_minutes", defaults.Health.StaleTeamThresholdMinutes)

	// Watch defaults
	viper.SetDefault("watch.debounce_ms", defaults.Watch.DebounceMs)

	// Paths defaults
	viper.SetDefault("paths.teams_dir", defaults.Paths.TeamsDir)
	viper.SetDefault("paths.archive_db", defaults.Paths.ArchiveDB)
	viper.SetDefault("paths.hooks_dir", defaults.Paths.HooksDir)
	viper.SetDefault("paths.templates_dir", defaults.Paths.TemplatesDir)
	viper.SetDefault("paths.voice_config", defaults.Paths.VoiceConfig)

	// Logging defaults
	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.level", defaults.Logging.Level)
	viper.SetDefault("logging.file", defaults.Logging.File)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "crewsync")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".crewsync"
	}
	return filepath.Join(home, ".config", "crewsync")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}
