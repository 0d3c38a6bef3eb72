// Package config loads the node's YAML configuration (§6.2): store
// location, quorum fractions, sampling intervals, and the handful of
// network parameters spec.md calls out explicitly (epoch link/signer,
// work difficulty threshold).
package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the root node configuration document.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Quorum    QuorumConfig    `yaml:"quorum"`
	Work      WorkConfig      `yaml:"work"`
	Network   NetworkConfig   `yaml:"network"`
	Logging   LoggingConfig   `yaml:"logging"`
	Unchecked UncheckedConfig `yaml:"unchecked"`
}

type StoreConfig struct {
	Path    string `yaml:"path"`
	Timeout string `yaml:"timeout"`
}

type QuorumConfig struct {
	// OnlineWeightMinimumPercent is the percentage of the total delegated
	// weight, summed once at startup, that becomes the online-weight
	// minimum: the sampler adds it to its median window, and elections
	// need at least that much total tally to switch winner or confirm.
	OnlineWeightMinimumPercent float64 `yaml:"online_weight_minimum_percent"`
	ConfirmationQuorumPercent  float64 `yaml:"confirmation_quorum_percent"`
	SampleIntervalSeconds      int     `yaml:"sample_interval_seconds"`
	WindowSize                 int     `yaml:"window_size"`
}

type WorkConfig struct {
	DifficultyThreshold uint64 `yaml:"difficulty_threshold"`
}

type NetworkConfig struct {
	EpochLinkHex   string `yaml:"epoch_link_hex"`
	EpochSignerHex string `yaml:"epoch_signer_hex"`
	GenesisHex     string `yaml:"genesis_hex"`
}

type LoggingConfig struct {
	Level       string `yaml:"level"`
	Development bool   `yaml:"development"`
}

type UncheckedConfig struct {
	TTLHours int `yaml:"ttl_hours"`
	MaxSize  int `yaml:"max_size"`
}

// Default returns the configuration a fresh node starts from absent a
// config file.
func Default() Config {
	return Config{
		Store:     StoreConfig{Path: "ledger.db", Timeout: "1s"},
		Quorum:    QuorumConfig{OnlineWeightMinimumPercent: 10, ConfirmationQuorumPercent: 67, SampleIntervalSeconds: 300, WindowSize: 4032},
		Work:      WorkConfig{DifficultyThreshold: 0xffffffc000000000},
		Logging:   LoggingConfig{Level: "info"},
		Unchecked: UncheckedConfig{TTLHours: 48, MaxSize: 65536},
	}
}

// Load reads and parses a YAML config file at path, falling back to
// Default()'s values for anything the file omits.
func Load(path string) (Config, error) {
	cfg := Default()
	raw, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
