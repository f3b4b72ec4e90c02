package main

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the YAML application configuration. Database settings come
// from DB_* environment variables instead (see internal/dbconfig).
type Config struct {
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`

	Auction struct {
		// StartingPoints is the balance a team's ledger row opens with.
		StartingPoints int64 `yaml:"starting_points"`
	} `yaml:"auction"`

	Relay struct {
		// Mode is "off", "publish" (primary node mirrors events to
		// NATS) or "mirror" (rebroadcast-only node fed from NATS).
		Mode   string `yaml:"mode"`
		URL    string `yaml:"url"`
		Stream string `yaml:"stream"`
	} `yaml:"relay"`
}

const (
	RelayModeOff     = "off"
	RelayModePublish = "publish"
	RelayModeMirror  = "mirror"
)

func defaultConfig() *Config {
	var cfg Config
	cfg.Server.Port = getEnv("PORT", "8080")
	cfg.Auction.StartingPoints = 1000
	cfg.Relay.Mode = RelayModeOff
	cfg.Relay.URL = getEnv("NATS_URL", "nats://localhost:4222")
	cfg.Relay.Stream = "AUCTION_EVENTS"
	return &cfg
}

func loadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if cfg.Server.Port == "" {
		cfg.Server.Port = getEnv("PORT", "8080")
	}
	if cfg.Relay.Mode == "" {
		cfg.Relay.Mode = RelayModeOff
	}
	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
