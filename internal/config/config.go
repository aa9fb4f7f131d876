package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Config defines engine configuration.
type Config struct {
	DB    DBConfig    `yaml:"db"`
	Log   LogConfig   `yaml:"log"`
	Stats StatsConfig `yaml:"stats"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
}

// StatsConfig tunes the counter engine.
type StatsConfig struct {
	// FanOutLimit bounds concurrent per-recipient counter updates.
	FanOutLimit int `yaml:"fan_out_limit"`
	// MutatorTimeout bounds a single counter store call.
	MutatorTimeout time.Duration `yaml:"mutator_timeout"`
}

// Load reads configuration from an optional YAML file and environment variables.
func Load() (Config, error) {
	cfg := Config{
		DB: DBConfig{
			Path: "chat3.db",
		},
		Log: LogConfig{
			Level: "info",
		},
		Stats: StatsConfig{
			FanOutLimit:    8,
			MutatorTimeout: 5 * time.Second,
		},
	}

	if path := os.Getenv("CHAT3_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	if dbPath := os.Getenv("CHAT3_DB_PATH"); dbPath != "" {
		cfg.DB.Path = dbPath
	}
	if level := os.Getenv("CHAT3_LOG_LEVEL"); level != "" {
		cfg.Log.Level = level
	}
	if limitStr := os.Getenv("CHAT3_FAN_OUT_LIMIT"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHAT3_FAN_OUT_LIMIT: %w", err)
		}
		cfg.Stats.FanOutLimit = limit
	}
	if timeoutStr := os.Getenv("CHAT3_MUTATOR_TIMEOUT"); timeoutStr != "" {
		timeout, err := time.ParseDuration(timeoutStr)
		if err != nil {
			return Config{}, fmt.Errorf("invalid CHAT3_MUTATOR_TIMEOUT: %w", err)
		}
		cfg.Stats.MutatorTimeout = timeout
	}

	if cfg.Stats.FanOutLimit <= 0 {
		cfg.Stats.FanOutLimit = 8
	}
	if cfg.Stats.MutatorTimeout <= 0 {
		cfg.Stats.MutatorTimeout = 5 * time.Second
	}

	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}
