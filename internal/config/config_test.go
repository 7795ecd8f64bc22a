package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Engine.TickIntervalSeconds != 30 {
		t.Errorf("TickIntervalSeconds = %d, want 30", cfg.Engine.TickIntervalSeconds)
	}
	if cfg.Health.ActiveTaskThresholdMinutes != 5 {
		t.Errorf("ActiveTaskThresholdMinutes = %d, want 5", cfg.Health.ActiveTaskThresholdMinutes)
	}
	if cfg.Health.IdleThresholdMinutes != 10 {
		t.Errorf("IdleThresholdMinutes = %d, want 10", cfg.Health.IdleThresholdMinutes)
	}
	if cfg.Watch.DebounceMs != 100 {
		t.Errorf("DebounceMs = %d, want 100", cfg.Watch.DebounceMs)
	}
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want info", cfg.Logging.Level)
	}

	if errs := cfg.Validate(); len(errs) != 0 {
		t.Errorf("default config failed validation: %v", errs)
	}
}

func TestDurationAccessors(t *testing.T) {
	cfg := Default()
	if got := cfg.Engine.TickInterval(); got != 30*time.Second {
		t.Errorf("TickInterval = %v, want 30s", got)
	}
	if got := cfg.Health.ActiveTaskThreshold(); got != 5*time.Minute {
		t.Errorf("ActiveTaskThreshold = %v, want 5m", got)
	}
	if got := cfg.Health.IdleThreshold(); got != 10*time.Minute {
		t.Errorf("IdleThreshold = %v, want 10m", got)
	}
	if got := cfg.Watch.Debounce(); got != 100*time.Millisecond {
		t.Errorf("Debounce = %v, want 100ms", got)
	}
}

func TestLoadWithOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
engine:
  tick_interval_seconds: 10
health:
  idle_threshold_minutes: 20
paths:
  teams_dir: /tmp/crewsync-teams
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.SetConfigFile(path)
	if err := viper.ReadInConfig(); err != nil {
		t.Fatalf("ReadInConfig: %v", err)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Engine.TickIntervalSeconds != 10 {
		t.Errorf("TickIntervalSeconds = %d, want 10", cfg.Engine.TickIntervalSeconds)
	}
	if cfg.Health.IdleThresholdMinutes != 20 {
		t.Errorf("IdleThresholdMinutes = %d, want 20", cfg.Health.IdleThresholdMinutes)
	}
	if cfg.Paths.TeamsDir != "/tmp/crewsync-teams" {
		t.Errorf("TeamsDir = %q", cfg.Paths.TeamsDir)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want debug", cfg.Logging.Level)
	}

	// Keys not in the file keep their defaults.
	if cfg.Health.ActiveTaskThresholdMinutes != 5 {
		t.Errorf("ActiveTaskThresholdMinutes = %d, want default 5", cfg.Health.ActiveTaskThresholdMinutes)
	}
	if cfg.Watch.DebounceMs != 100 {
		t.Errorf("DebounceMs = %d, want default 100", cfg.Watch.DebounceMs)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	viper.Reset()
	t.Cleanup(viper.Reset)
	SetDefaults()
	viper.Set("engine.tick_interval_seconds", 0)

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestResolvePaths(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("no home directory")
	}

	p := PathsConfig{TeamsDir: "~/.crewsync/teams", ArchiveDB: "/var/db/archive.db"}
	if got, want := p.ResolveTeamsDir(), filepath.Join(home, ".crewsync", "teams"); got != want {
		t.Errorf("ResolveTeamsDir = %q, want %q", got, want)
	}
	if got := p.ResolveArchiveDB(); got != "/var/db/archive.db" {
		t.Errorf("ResolveArchiveDB = %q, absolute path should pass through", got)
	}
}
