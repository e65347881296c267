package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSaveAndLoad(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	cfg := Default()
	cfg.DefaultProfile = "work"
	cfg.IPM.ForegroundDelay.Duration = 1500 * time.Millisecond
	if err := Save(path, cfg); err != nil {
		t.Fatalf("Save() error = %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if loaded.DefaultProfile != "work" {
		t.Errorf("DefaultProfile = %q, want %q", loaded.DefaultProfile, "work")
	}
	if loaded.IPM.ForegroundDelay.Duration != 1500*time.Millisecond {
		t.Errorf("ForegroundDelay = %v, want 1.5s", loaded.IPM.ForegroundDelay.Duration)
	}
}

func TestLoadMissing(t *testing.T) {
	_, err := Load("/nonexistent/config.toml")
	if err == nil {
		t.Error("Load() expected error for missing file")
	}
}

func TestSavePermissions(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")

	if err := Save(path, &Config{DefaultProfile: "main"}); err != nil {
		t.Fatal(err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	perm := info.Mode().Perm()
	if perm != 0600 {
		t.Errorf("file permission = %o, want 0600", perm)
	}
}

func TestLoadWithEnvDefaults(t *testing.T) {
	tmpDir := t.TempDir()

	cfg, err := LoadWithEnv(filepath.Join(tmpDir, "missing.toml"), filepath.Join(tmpDir, ".env"))
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.IPM.ForegroundDelay.Duration != time.Second {
		t.Errorf("ForegroundDelay = %v, want 1s", cfg.IPM.ForegroundDelay.Duration)
	}
	if cfg.IPM.DisplayScreen != "ipm" {
		t.Errorf("DisplayScreen = %q, want ipm", cfg.IPM.DisplayScreen)
	}
	if cfg.Outbox.BatchSize != 50 {
		t.Errorf("BatchSize = %d, want 50", cfg.Outbox.BatchSize)
	}
}

func TestLoadWithEnvOverlay(t *testing.T) {
	tmpDir := t.TempDir()
	path := filepath.Join(tmpDir, "config.toml")
	envPath := filepath.Join(tmpDir, ".env")

	if err := Save(path, &Config{DefaultProfile: "main", API: APIConfig{APIKey: "from-file"}}); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(envPath, []byte("CONNECT_PLATFORM=ios\nCONNECT_FOREGROUND_DELAY=250ms\n"), 0600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CONNECT_API_KEY", "from-env")
	// godotenv.Load sets variables in the process; make sure they are cleaned up.
	t.Setenv("CONNECT_PLATFORM", "")
	t.Setenv("CONNECT_FOREGROUND_DELAY", "")
	_ = os.Unsetenv("CONNECT_PLATFORM")
	_ = os.Unsetenv("CONNECT_FOREGROUND_DELAY")

	cfg, err := LoadWithEnv(path, envPath)
	if err != nil {
		t.Fatalf("LoadWithEnv() error = %v", err)
	}
	if cfg.API.APIKey != "from-env" {
		t.Errorf("APIKey = %q, want from-env", cfg.API.APIKey)
	}
	if cfg.API.Platform != "ios" {
		t.Errorf("Platform = %q, want ios", cfg.API.Platform)
	}
	if cfg.IPM.ForegroundDelay.Duration != 250*time.Millisecond {
		t.Errorf("ForegroundDelay = %v, want 250ms", cfg.IPM.ForegroundDelay.Duration)
	}
}

func TestLoadWithEnvRejectsBadDuration(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("CONNECT_API_TIMEOUT", "soon")

	if _, err := LoadWithEnv(filepath.Join(tmpDir, "config.toml"), ""); err == nil {
		t.Error("LoadWithEnv() expected error for invalid CONNECT_API_TIMEOUT")
	}
}
