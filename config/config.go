// Package config loads and validates the YAML configuration file. YAML is
// tried first with a JSON fallback, so either format works.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"tradegate/risk"
)

// Config is the complete application configuration.
type Config struct {
	Account AccountConfig `json:"account" yaml:"account"`
	Risk    risk.Params   `json:"risk" yaml:"risk"`
	Replay  ReplayConfig  `json:"replay" yaml:"replay"`
	Live    LiveConfig    `json:"live" yaml:"live"`
	Journal JournalConfig `json:"journal" yaml:"journal"`
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

type AccountConfig struct {
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital"`
}

type ReplayConfig struct {
	Strategy     string            `json:"strategy" yaml:"strategy"`
	Start        string            `json:"start" yaml:"start"` // YYYY-MM-DD
	End          string            `json:"end" yaml:"end"`
	LookbackDays int               `json:"lookback_days" yaml:"lookback_days"`
	Bars         map[string]string `json:"bars" yaml:"bars"` // symbol -> CSV path
	SectorMap    string            `json:"sector_map,omitempty" yaml:"sector_map,omitempty"`
	ResultPath   string            `json:"result_path,omitempty" yaml:"result_path,omitempty"`
}

type LiveConfig struct {
	Symbols         []string `json:"symbols" yaml:"symbols"`
	Strategy        string   `json:"strategy" yaml:"strategy"`
	CycleInterval   string   `json:"cycle_interval" yaml:"cycle_interval"`     // e.g. "1m"
	RefreshInterval string   `json:"refresh_interval" yaml:"refresh_interval"` // e.g. "30s"
}

type JournalConfig struct {
	Type       string `json:"type" yaml:"type"` // "csv", "sqlite", or "none"
	TradesFile string `json:"trades_file,omitempty" yaml:"trades_file,omitempty"`
	EquityFile string `json:"equity_file,omitempty" yaml:"equity_file,omitempty"`
	DBPath     string `json:"db_path,omitempty" yaml:"db_path,omitempty"`
}

type LoggingConfig struct {
	Level string `json:"level" yaml:"level"` // debug|info|warn|error
}

// LoadFromFile loads configuration from a YAML or JSON file.
func LoadFromFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jsonErr := json.Unmarshal(data, cfg); jsonErr != nil {
			return nil, fmt.Errorf("parse config (tried YAML and JSON): %w", err)
		}
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Validate checks the configuration for contradictions before anything
// runs with it.
func (c *Config) Validate() error {
	if c.Account.InitialCapital <= 0 {
		return fmt.Errorf("account.initial_capital must be positive")
	}
	if err := c.Risk.Validate(); err != nil {
		return fmt.Errorf("risk: %w", err)
	}
	switch c.Journal.Type {
	case "csv":
		if c.Journal.TradesFile == "" || c.Journal.EquityFile == "" {
			return fmt.Errorf("journal trades_file and equity_file required for csv type")
		}
	case "sqlite":
		if c.Journal.DBPath == "" {
			return fmt.Errorf("journal db_path required for sqlite type")
		}
	case "none", "":
	default:
		return fmt.Errorf("journal.type must be 'csv', 'sqlite', or 'none'")
	}
	switch strings.ToLower(c.Logging.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level must be debug|info|warn|error")
	}
	return nil
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Account: AccountConfig{InitialCapital: 100000},
		Risk:    risk.DefaultParams(),
		Replay: ReplayConfig{
			Strategy:     "momentum",
			LookbackDays: 30,
		},
		Live: LiveConfig{
			Strategy:        "momentum",
			CycleInterval:   "1m",
			RefreshInterval: "30s",
		},
		Journal: JournalConfig{Type: "none"},
		Logging: LoggingConfig{Level: "info"},
	}
}
