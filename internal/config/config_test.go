package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), FileName)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/data")
	t.Setenv("USER", "tester")

	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}

	if cfg.Port != DefaultPort || cfg.Host != "127.0.0.1" {
		t.Errorf("Addr() = %s", cfg.Addr())
	}
	if cfg.IdleTimeoutDuration() != 300*time.Second {
		t.Errorf("IdleTimeout = %d", cfg.IdleTimeout)
	}
	if cfg.Watcher.DebounceWindow() != 30*time.Second || cfg.Watcher.WindowPollInterval() != 15*time.Second {
		t.Errorf("watcher = %+v", cfg.Watcher)
	}
	if cfg.Watcher.EnableWindowTracker {
		t.Error("window tracker should be off by default")
	}
	if cfg.DatabasePath != filepath.Join("/data", "timeforged", "timeforged.db") {
		t.Errorf("DatabasePath = %q", cfg.DatabasePath)
	}
	if cfg.Username != "tester" {
		t.Errorf("Username = %q, want tester", cfg.Username)
	}
}

func TestLoad_File(t *testing.T) {
	path := writeConfig(t, `
host = "0.0.0.0"
port = 7000
idle_timeout = 600

[watcher]
debounce_secs = 10
enable_window_tracker = true
ignore_patterns = ["*.tmp", "generated"]
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Addr() != "0.0.0.0:7000" {
		t.Errorf("Addr() = %q", cfg.Addr())
	}
	if cfg.IdleTimeout != 600 {
		t.Errorf("IdleTimeout = %d, want 600", cfg.IdleTimeout)
	}
	if cfg.Watcher.DebounceSecs != 10 || !cfg.Watcher.EnableWindowTracker {
		t.Errorf("watcher = %+v", cfg.Watcher)
	}
	if cfg.Watcher.WindowPollSecs != 15 {
		t.Errorf("unset keys should keep defaults, WindowPollSecs = %d", cfg.Watcher.WindowPollSecs)
	}
	if strings.Join(cfg.Watcher.IgnorePatterns, ",") != "*.tmp,generated" {
		t.Errorf("IgnorePatterns = %v", cfg.Watcher.IgnorePatterns)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := writeConfig(t, "port = 7000\n")
	t.Setenv("TF_PORT", "8123")
	t.Setenv("TF_IDLE_TIMEOUT", "120")
	t.Setenv("TF_WATCHER_DEBOUNCE_SECS", "5")
	t.Setenv("TF_DATABASE_URL", "sqlite:///var/lib/tf.db?mode=rwc")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() failed: %v", err)
	}
	if cfg.Port != 8123 {
		t.Errorf("Port = %d, want env override 8123", cfg.Port)
	}
	if cfg.IdleTimeout != 120 {
		t.Errorf("IdleTimeout = %d, want 120", cfg.IdleTimeout)
	}
	if cfg.Watcher.DebounceSecs != 5 {
		t.Errorf("DebounceSecs = %d, want 5", cfg.Watcher.DebounceSecs)
	}
	if cfg.DatabasePath != "/var/lib/tf.db" {
		t.Errorf("DatabasePath = %q, want /var/lib/tf.db", cfg.DatabasePath)
	}
}

func TestLoad_Invalid(t *testing.T) {
	if _, err := Load(writeConfig(t, "idle_timeout = 0\n")); err == nil {
		t.Error("Load() should reject a zero idle timeout")
	}
	if _, err := Load(writeConfig(t, "port = [\n")); err == nil {
		t.Error("Load() should reject malformed TOML")
	}
}

func TestDirs(t *testing.T) {
	t.Setenv("XDG_CONFIG_HOME", "/cfg")
	if got := DefaultPath(); got != filepath.Join("/cfg", "timeforged", FileName) {
		t.Errorf("DefaultPath() = %q", got)
	}

	t.Setenv("XDG_CONFIG_HOME", "")
	t.Setenv("HOME", "/home/me")
	if got := ConfigDir(); got != filepath.Join("/home/me", ".config", "timeforged") {
		t.Errorf("ConfigDir() = %q", got)
	}
}
