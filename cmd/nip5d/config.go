package main

import (
	"errors"
	"os"

	"github.com/BurntSushi/toml"
)

// Config drives the identity daemon. Names maps wiki account names to
// public keys, hex or npub; a static file stands in for the wiki's user
// preference store.
type Config struct {
	Listen       string            `toml:"listen"`
	Names        map[string]string `toml:"names"`
	Nip05Domains []string          `toml:"nip05_domains"` // when set, verified logins must also appear on one of these
	ChallengeTTL int               `toml:"challenge_ttl"` // seconds
}

func defaultConfig() Config {
	return Config{
		Listen:       ":8085",
		Names:        map[string]string{},
		ChallengeTTL: 300,
	}
}

func configPath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if p := os.Getenv("NIP5D_CONFIG"); p != "" {
		return p
	}
	return "nip5d.toml"
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

	if cfg.Listen == "" {
		return cfg, errors.New("listen address must not be empty")
	}
	if cfg.ChallengeTTL <= 0 {
		cfg.ChallengeTTL = 300
	}
	if cfg.Names == nil {
		cfg.Names = map[string]string{}
	}

	return cfg, nil
}
