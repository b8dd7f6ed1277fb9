package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Provider != "google" || cfg.Model != "gemini-2.5-flash" {
		t.Fatalf("unexpected provider/model %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.Temperature != 0.3 {
		t.Errorf("expected temperature 0.3, got %v", cfg.Temperature)
	}
	if cfg.CompactionThreshold != 0.75 || cfg.MaxContextTokens != 128000 || cfg.TurnTokenCeiling != 4000 {
		t.Errorf("unexpected budget defaults: %+v", cfg)
	}
	if cfg.RetryAttempts != 3 || cfg.RetryBackoff() != 60*time.Second {
		t.Errorf("unexpected retry defaults: %d attempts, %s backoff", cfg.RetryAttempts, cfg.RetryBackoff())
	}
	if cfg.AttemptTimeout() != 5*time.Minute {
		t.Errorf("expected 300s attempt timeout, got %s", cfg.AttemptTimeout())
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config should validate: %v", err)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRounds != 40 {
		t.Errorf("expected default max rounds, got %d", cfg.MaxRounds)
	}
}

func TestLoadOverlaysFileValues(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	data := `{"provider": "openai", "model": "gpt-4o-mini", "retry_backoff_seconds": 5, "compaction_threshold": 0.5}`
	if err := os.WriteFile(path, []byte(data), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Provider != "openai" || cfg.Model != "gpt-4o-mini" {
		t.Errorf("file values not applied: %s/%s", cfg.Provider, cfg.Model)
	}
	if cfg.RetryBackoff() != 5*time.Second {
		t.Errorf("expected 5s backoff, got %s", cfg.RetryBackoff())
	}
	if cfg.CompactionThreshold != 0.5 {
		t.Errorf("expected threshold 0.5, got %v", cfg.CompactionThreshold)
	}
	if cfg.RetryAttempts != 3 {
		t.Errorf("expected default retry attempts to remain, got %d", cfg.RetryAttempts)
	}
}

func TestLoadRejectsInvalidJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte("{"), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv(EnvLogLevel, "debug")
	t.Setenv(EnvLogPath, "-")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.json"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.LogLevel != "debug" || cfg.LogPath != "-" {
		t.Errorf("env overrides not applied: %s %s", cfg.LogLevel, cfg.LogPath)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.json")
	cfg := DefaultConfig()
	cfg.MaxRounds = 12

	if err := cfg.Save(path); err != nil {
		t.Fatalf("save failed: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if loaded.MaxRounds != 12 {
		t.Errorf("expected max rounds 12, got %d", loaded.MaxRounds)
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.CompactionThreshold = 1.5
	if err := cfg.Validate(); err == nil {
		t.Error("expected threshold error")
	}

	cfg = DefaultConfig()
	cfg.MaxRounds = -1
	if err := cfg.Validate(); err == nil {
		t.Error("expected max rounds error")
	}
}
