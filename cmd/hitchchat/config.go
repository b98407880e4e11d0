package main

import (
	"errors"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
)

type Config struct {
	Relays        []string `toml:"relays"`
	Channel       string   `toml:"channel"`
	Nip05Domains  []string `toml:"nip05_domains"`
	StateDir      string   `toml:"state_dir"`
	TranscriptDir string   `toml:"transcript_dir"` // empty disables the flat-file transcript
	MaxMessages   int      `toml:"max_messages"`
}

func defaultConfig() Config {
	return Config{
		Relays: []string{
			"wss://relay.damus.io",
			"wss://relay.nostr.band",
			"wss://nos.lol",
		},
		Channel:     "hitchwiki",
		MaxMessages: 200,
	}
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("HITCHCHAT_CONFIG"); p != "" {
		return p
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "config.toml"
	}
	return filepath.Join(home, ".config", "hitchchat", "config.toml")
}

func LoadConfig(flagPath string) (Config, error) {
	cfg := defaultConfig()

	path := configPath(flagPath)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, err
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return cfg, err
	}

	// A client with no relays can neither read nor write; refuse to start
	// rather than render a silently dead timeline.
	if len(cfg.Relays) == 0 {
		return cfg, errors.New("config must list at least one relay")
	}
	if cfg.Channel == "" {
		return cfg, errors.New("config must name a channel")
	}
	if cfg.MaxMessages <= 0 {
		cfg.MaxMessages = 200
	}
	if cfg.StateDir == "" {
		cfg.StateDir = filepath.Dir(path)
	}

	return cfg, nil
}

// identityPath is where the active identity is persisted.
func (c Config) identityPath() string {
	return filepath.Join(c.StateDir, "identity.json")
}

// cachePath is where recent channel history is persisted.
func (c Config) cachePath() string {
	return filepath.Join(c.StateDir, "messages.json")
}
