package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ServerConfig holds configuration for the hpcq server.
type ServerConfig struct {
	Addr      string `yaml:"addr"`       // Listen address (default ":8080")
	LogLevel  string `yaml:"log_level"`  // Log level: debug, info, warn, error
	LogFormat string `yaml:"log_format"` // Log format: text, json

	DBDriver string `yaml:"db_driver"` // "sqlite" (default) or "postgres"
	DBPath   string `yaml:"db_path"`   // SQLite database path (default ~/.hpcq/hpcq.db, ":memory:" for testing)
	DBConn   string `yaml:"db_conn"`   // Postgres connection string (db_driver=postgres)

	Quantum int `yaml:"quantum"` // Round Robin time slice in seconds (default 5)

	// DrainSchedule is an optional cron expression; when set the server
	// drains the queue automatically with DrainAlgorithm.
	DrainSchedule  string `yaml:"drain_schedule"`
	DrainAlgorithm string `yaml:"drain_algorithm"`
}

// DefaultServerConfig returns sensible defaults.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:           ":8080",
		LogLevel:       "info",
		LogFormat:      "text",
		DBDriver:       "sqlite",
		DrainAlgorithm: "round_robin",
	}
}

// Load reads a YAML config file over the defaults. A missing path returns
// the defaults unchanged.
func Load(path string) (ServerConfig, error) {
	cfg := DefaultServerConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
