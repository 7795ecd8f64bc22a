// Package hooks manages notification-hook installation. When at least
// one team is active, a single global hook replaces the per-project
// ones so a supervising team does not produce duplicate notifications;
// when the last team goes away the arrangement is reversed.
package hooks

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// VoiceConfig describes the notification voice installed with the
// global hook. Loaded from the operator's YAML voice file.
type VoiceConfig struct {
	Voice   string  `yaml:"voice" json:"voice"`
	Rate    int     `yaml:"rate" json:"rate"`
	Volume  float64 `yaml:"volume" json:"volume"`
	Enabled bool    `yaml:"enabled" json:"enabled"`
}

// DefaultVoiceConfig returns the fallback voice used when no voice file
// exists.
func DefaultVoiceConfig() VoiceConfig {
	return VoiceConfig{Voice: "system", Rate: 200, Volume: 1.0, Enabled: true}
}

// LoadVoiceConfig reads a VoiceConfig from a YAML file. A missing file
// yields the default config rather than an error.
func LoadVoiceConfig(path string) (VoiceConfig, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return DefaultVoiceConfig(), nil
	}
	if err != nil {
		return VoiceConfig{}, fmt.Errorf("hooks: read voice config: %w", err)
	}
	var cfg VoiceConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return VoiceConfig{}, fmt.Errorf("hooks: parse voice config: %w", err)
	}
	return cfg, nil
}

// Service installs and removes notification hooks. Implementations are
// best-effort; the engine treats every failure as non-fatal.
type Service interface {
	InstallGlobal(voice VoiceConfig) error
	RemoveGlobal() error
	SetLocalOverride(suppressed bool) error
}

const (
	globalHookFile    = "global-hook.json"
	localOverrideFile = "local-override"
)

// FileService is a Service persisting hook state under a directory:
// the global hook as a JSON file, the local-override flag as a marker
// file whose presence means "project hooks suppressed".
type FileService struct {
	dir string
}

// NewFileService creates a FileService rooted at dir.
func NewFileService(dir string) *FileService {
	return &FileService{dir: dir}
}

// InstallGlobal writes the global hook file with the given voice.
func (s *FileService) InstallGlobal(voice VoiceConfig) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("hooks: create hooks directory: %w", err)
	}
	data, err := json.MarshalIndent(voice, "", "  ")
	if err != nil {
		return fmt.Errorf("hooks: marshal global hook: %w", err)
	}
	if err := os.WriteFile(filepath.Join(s.dir, globalHookFile), data, 0o644); err != nil {
		return fmt.Errorf("hooks: write global hook: %w", err)
	}
	return nil
}

// RemoveGlobal deletes the global hook file. Removing an absent hook is
// not an error.
func (s *FileService) RemoveGlobal() error {
	err := os.Remove(filepath.Join(s.dir, globalHookFile))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hooks: remove global hook: %w", err)
	}
	return nil
}

// SetLocalOverride creates or removes the local-override marker.
func (s *FileService) SetLocalOverride(suppressed bool) error {
	path := filepath.Join(s.dir, localOverrideFile)
	if suppressed {
		if err := os.MkdirAll(s.dir, 0o755); err != nil {
			return fmt.Errorf("hooks: create hooks directory: %w", err)
		}
		if err := os.WriteFile(path, []byte("suppressed\n"), 0o644); err != nil {
			return fmt.Errorf("hooks: write local override: %w", err)
		}
		return nil
	}
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("hooks: remove local override: %w", err)
	}
	return nil
}

// GlobalInstalled reports whether the global hook file exists.
func (s *FileService) GlobalInstalled() bool {
	_, err := os.Stat(filepath.Join(s.dir, globalHookFile))
	return err == nil
}

// LocalOverridden reports whether the local-override marker exists.
func (s *FileService) LocalOverridden() bool {
	_, err := os.Stat(filepath.Join(s.dir, localOverrideFile))
	return err == nil
}
