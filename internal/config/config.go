// Package config loads application configuration from a YAML file with
// environment variable overrides and sane defaults.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Config is the full application configuration.
type Config struct {
	Database   DatabaseSection   `yaml:"database"`
	Ledger     LedgerSection     `yaml:"ledger"`
	Enrichment EnrichmentSection `yaml:"enrichment"`
	Redis      RedisSection      `yaml:"redis"`
	Monitor    MonitorSection    `yaml:"monitor"`
}

// DatabaseSection configures the verdict source.
type DatabaseSection struct {
	URL                 string `yaml:"url"`
	QueryTimeoutSeconds int    `yaml:"query_timeout_seconds"`
}

// LedgerSection configures the signed ledger itself.
type LedgerSection struct {
	Dir            string `yaml:"dir"`
	RulesetVersion string `yaml:"ruleset_version"`
	PrivateKeyEnv  string `yaml:"private_key_env"`
}

// EnrichmentSection configures the price/supply lookups.
type EnrichmentSection struct {
	PriceURL       string  `yaml:"price_url"`
	RPCURL         string  `yaml:"rpc_url"`
	TimeoutSeconds int     `yaml:"timeout_seconds"`
	RatePerSecond  float64 `yaml:"rate_per_second"`
}

// RedisSection configures the optional identity index. Empty Addr disables
// it.
type RedisSection struct {
	Addr string `yaml:"addr"`
	DB   int    `yaml:"db"`
}

// MonitorSection configures the monitoring HTTP server.
type MonitorSection struct {
	Listen string `yaml:"listen"`
}

// Load reads configuration from the YAML file at path (if it exists), then
// applies SIGLEDGER_* environment overrides and defaults. An empty path
// skips the file entirely.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("read config file %s: %w", path, err)
			}
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(&cfg)
	applyDefaults(&cfg)
	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SIGLEDGER_DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("SIGLEDGER_SIGNALS_DIR"); v != "" {
		cfg.Ledger.Dir = v
	}
	if v := os.Getenv("SIGLEDGER_REDIS_ADDR"); v != "" {
		cfg.Redis.Addr = v
	}
	if v := os.Getenv("SIGLEDGER_REDIS_DB"); v != "" {
		if db, err := strconv.Atoi(v); err == nil {
			cfg.Redis.DB = db
		}
	}
	if v := os.Getenv("SIGLEDGER_MONITOR_LISTEN"); v != "" {
		cfg.Monitor.Listen = v
	}
	if v := os.Getenv("SOLANA_RPC_URL"); v != "" {
		cfg.Enrichment.RPCURL = v
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Database.QueryTimeoutSeconds == 0 {
		cfg.Database.QueryTimeoutSeconds = 10
	}
	if cfg.Ledger.Dir == "" {
		cfg.Ledger.Dir = "signals"
	}
	if cfg.Ledger.RulesetVersion == "" {
		cfg.Ledger.RulesetVersion = "1.1.0"
	}
	if cfg.Ledger.PrivateKeyEnv == "" {
		cfg.Ledger.PrivateKeyEnv = "LEDGER_PRIVATE_KEY"
	}
	if cfg.Enrichment.PriceURL == "" {
		cfg.Enrichment.PriceURL = "https://api.jup.ag/price/v2"
	}
	if cfg.Enrichment.TimeoutSeconds == 0 {
		cfg.Enrichment.TimeoutSeconds = 5
	}
	if cfg.Enrichment.RatePerSecond == 0 {
		cfg.Enrichment.RatePerSecond = 4
	}
	if cfg.Monitor.Listen == "" {
		cfg.Monitor.Listen = ":8087"
	}
}
