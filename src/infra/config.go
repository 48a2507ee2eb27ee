package infra

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all runtime settings. LoadConfig reads them from a YAML file
// and then applies environment overrides.
type Config struct {
	Server struct {
		Addr           string `yaml:"addr"`
		PushIntervalMS int    `yaml:"push_interval_ms"`
	} `yaml:"server"`

	Book struct {
		TickSize  string `yaml:"tick_size"` // decimal string, e.g. "0.01"
		PruneHour int    `yaml:"prune_hour"`
	} `yaml:"book"`

	Logging struct {
		Level string `yaml:"level"`
		Dir   string `yaml:"dir"`
	} `yaml:"logging"`
}

// DefaultConfig returns the settings used when no config file is given.
func DefaultConfig() *Config {
	cfg := &Config{}
	cfg.Server.Addr = ":8080"
	cfg.Server.PushIntervalMS = 500
	cfg.Book.TickSize = "0.01"
	cfg.Book.PruneHour = 16
	cfg.Logging.Level = "info"
	cfg.Logging.Dir = "logs"
	return cfg
}

// LoadConfig reads and parses the config file, starting from defaults so
// omitted keys keep their default values.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}

	overrideWithEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return fmt.Errorf("server addr is required")
	}
	if c.Server.PushIntervalMS <= 0 {
		return fmt.Errorf("push interval must be positive")
	}
	tick, err := decimal.NewFromString(c.Book.TickSize)
	if err != nil {
		return fmt.Errorf("invalid tick size %q: %w", c.Book.TickSize, err)
	}
	if !tick.IsPositive() {
		return fmt.Errorf("tick size must be positive: %s", c.Book.TickSize)
	}
	if c.Book.PruneHour < 0 || c.Book.PruneHour > 23 {
		return fmt.Errorf("prune hour must be within 0-23: %d", c.Book.PruneHour)
	}
	return nil
}

// TickDecimal returns the tick size as a decimal. Only meaningful on a
// config that passed Validate.
func (c *Config) TickDecimal() decimal.Decimal {
	tick, _ := decimal.NewFromString(c.Book.TickSize)
	return tick
}

// overrideWithEnv overrides settings from environment variables when present.
func overrideWithEnv(cfg *Config) {
	if addr := os.Getenv("LOB_ADDR"); addr != "" {
		cfg.Server.Addr = addr
	}
	if level := os.Getenv("LOB_LOG_LEVEL"); level != "" {
		cfg.Logging.Level = level
	}
}
