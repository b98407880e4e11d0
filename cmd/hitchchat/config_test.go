package main

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfig(t *testing.T) {
	cfg := defaultConfig()

	if len(cfg.Relays) == 0 {
		t.Fatal("expected default relays, got empty")
	}
	if cfg.Channel != "hitchwiki" {
		t.Errorf("Channel = %q, want %q", cfg.Channel, "hitchwiki")
	}
	if cfg.MaxMessages != 200 {
		t.Errorf("MaxMessages = %d, want 200", cfg.MaxMessages)
	}
}

func TestConfigPath(t *testing.T) {
	t.Run("flag takes priority", func(t *testing.T) {
		got := configPath("/my/flag/path.toml")
		if got != "/my/flag/path.toml" {
			t.Errorf("configPath with flag = %q, want %q", got, "/my/flag/path.toml")
		}
	})

	t.Run("env var when no flag", func(t *testing.T) {
		t.Setenv("HITCHCHAT_CONFIG", "/env/path.toml")
		got := configPath("")
		if got != "/env/path.toml" {
			t.Errorf("configPath with env = %q, want %q", got, "/env/path.toml")
		}
	})

	t.Run("default when no flag or env", func(t *testing.T) {
		t.Setenv("HITCHCHAT_CONFIG", "")
		got := configPath("")
		home, err := os.UserHomeDir()
		if err != nil {
			t.Fatalf("os.UserHomeDir() failed: %v", err)
		}
		want := filepath.Join(home, ".config", "hitchchat", "config.toml")
		if got != want {
			t.Errorf("configPath default = %q, want %q", got, want)
		}
	})
}

func TestLoadConfig(t *testing.T) {
	t.Run("missing file returns defaults", func(t *testing.T) {
		cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nonexistent.toml"))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Relays) == 0 {
			t.Error("expected default relays")
		}
	})

	t.Run("valid TOML parses", func(t *testing.T) {
		cfgFile := filepath.Join(t.TempDir(), "config.toml")
		content := `
relays = ["wss://relay.example.org"]
channel = "testlane"
nip05_domains = ["hitchwiki.org"]
max_messages = 50
`
		if err := os.WriteFile(cfgFile, []byte(content), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := LoadConfig(cfgFile)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(cfg.Relays) != 1 || cfg.Relays[0] != "wss://relay.example.org" {
			t.Errorf("Relays = %v, want single example relay", cfg.Relays)
		}
		if cfg.Channel != "testlane" {
			t.Errorf("Channel = %q, want testlane", cfg.Channel)
		}
		if cfg.MaxMessages != 50 {
			t.Errorf("MaxMessages = %d, want 50", cfg.MaxMessages)
		}
		if cfg.StateDir == "" {
			t.Error("StateDir not defaulted to config dir")
		}
	})

	t.Run("explicitly empty relay list refused", func(t *testing.T) {
		cfgFile := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(cfgFile, []byte("relays = []\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(cfgFile); err == nil {
			t.Fatal("LoadConfig with empty relay list succeeded, want error")
		}
	})

	t.Run("empty channel refused", func(t *testing.T) {
		cfgFile := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(cfgFile, []byte("channel = \"\"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(cfgFile); err == nil {
			t.Fatal("LoadConfig with empty channel succeeded, want error")
		}
	})

	t.Run("malformed TOML errors", func(t *testing.T) {
		cfgFile := filepath.Join(t.TempDir(), "config.toml")
		if err := os.WriteFile(cfgFile, []byte("relays = [broken"), 0o644); err != nil {
			t.Fatal(err)
		}
		if _, err := LoadConfig(cfgFile); err == nil {
			t.Fatal("LoadConfig with malformed TOML succeeded, want error")
		}
	})
}
