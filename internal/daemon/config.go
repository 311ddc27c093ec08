// Package daemon holds server configuration, loaded from a TOML file with
// sensible defaults for every field.
package daemon

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the full server configuration.
type Config struct {
	API       APIConfig       `toml:"api"`
	Storage   StorageConfig   `toml:"storage"`
	Generator GeneratorConfig `toml:"generator"`
	Credits   CreditsConfig   `toml:"credits"`
}

// APIConfig configures the HTTP listener.
type APIConfig struct {
	Host           string `toml:"host"`
	Port           int    `toml:"port"`
	MetricsEnabled bool   `toml:"metrics_enabled"`
}

// StorageConfig configures the sqlite ledger store.
type StorageConfig struct {
	Path string `toml:"path"`
}

// GeneratorConfig configures the external generation service. An empty
// endpoint selects the built-in placeholder generator.
type GeneratorConfig struct {
	Endpoint string `toml:"endpoint"`
	Timeout  string `toml:"timeout"` // Go duration string, e.g. "30s"
}

// CreditsConfig holds the credit economy constants.
type CreditsConfig struct {
	SignupBonus    int64 `toml:"signup_bonus"`
	ReferralReward int64 `toml:"referral_reward"`
	GenerationCost int64 `toml:"generation_cost"`
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		API: APIConfig{
			Host:           "127.0.0.1",
			Port:           8080,
			MetricsEnabled: true,
		},
		Storage: StorageConfig{
			Path: "loguvo.db",
		},
		Generator: GeneratorConfig{
			Endpoint: "",
			Timeout:  "30s",
		},
		Credits: CreditsConfig{
			SignupBonus:    10,
			ReferralReward: 5,
			GenerationCost: 1,
		},
	}
}

// Load reads the config at path over the defaults. A missing file is not an
// error: it yields the defaults unchanged.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()
	if path == "" {
		return cfg, nil
	}
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

// Addr returns the host:port listen address.
func (a APIConfig) Addr() string {
	return fmt.Sprintf("%s:%d", a.Host, a.Port)
}

// TimeoutDuration parses the generator timeout, falling back to 30s on a
// missing or malformed value.
func (g GeneratorConfig) TimeoutDuration() time.Duration {
	d, err := time.ParseDuration(g.Timeout)
	if err != nil || d <= 0 {
		return 30 * time.Second
	}
	return d
}
