package hooks

import (
	"os"
	"path/filepath"
	"testing"
)

func TestFileService_InstallAndRemoveGlobal(t *testing.T) {
	dir := t.TempDir()
	svc := NewFileService(dir)

	if svc.GlobalInstalled() {
		t.Fatal("global hook reported installed before install")
	}
	if err := svc.InstallGlobal(VoiceConfig{Voice: "ava", Rate: 180, Volume: 0.8, Enabled: true}); err != nil {
		t.Fatalf("InstallGlobal: %v", err)
	}
	if !svc.GlobalInstalled() {
		t.Fatal("global hook not reported installed")
	}
	if err := svc.RemoveGlobal(); err != nil {
		t.Fatalf("RemoveGlobal: %v", err)
	}
	if svc.GlobalInstalled() {
		t.Fatal("global hook still reported installed after removal")
	}
}

func TestFileService_RemoveGlobalIdempotent(t *testing.T) {
	svc := NewFileService(t.TempDir())
	if err := svc.RemoveGlobal(); err != nil {
		t.Fatalf("removing absent hook should not error, got %v", err)
	}
}

func TestFileService_LocalOverride(t *testing.T) {
	svc := NewFileService(t.TempDir())

	if err := svc.SetLocalOverride(true); err != nil {
		t.Fatalf("SetLocalOverride(true): %v", err)
	}
	if !svc.LocalOverridden() {
		t.Fatal("expected local override marker present")
	}
	if err := svc.SetLocalOverride(false); err != nil {
		t.Fatalf("SetLocalOverride(false): %v", err)
	}
	if svc.LocalOverridden() {
		t.Fatal("expected local override marker removed")
	}
	// Clearing an already-clear override is fine.
	if err := svc.SetLocalOverride(false); err != nil {
		t.Fatalf("clearing absent override should not error, got %v", err)
	}
}

func TestLoadVoiceConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.yaml")
	content := "voice: serena\nrate: 210\nvolume: 0.5\nenabled: true\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadVoiceConfig(path)
	if err != nil {
		t.Fatalf("LoadVoiceConfig: %v", err)
	}
	if cfg.Voice != "serena" || cfg.Rate != 210 || cfg.Volume != 0.5 || !cfg.Enabled {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestLoadVoiceConfig_MissingFileUsesDefault(t *testing.T) {
	cfg, err := LoadVoiceConfig(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("missing file should not error, got %v", err)
	}
	if cfg != DefaultVoiceConfig() {
		t.Fatalf("expected default config, got %+v", cfg)
	}
}

func TestLoadVoiceConfig_Malformed(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "voice.yaml")
	if err := os.WriteFile(path, []byte("voice: [unclosed"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadVoiceConfig(path); err == nil {
		t.Fatal("expected error for malformed YAML")
	}
}
