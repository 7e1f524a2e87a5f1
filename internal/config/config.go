// Package config loads server and CLI configuration.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Store drivers.
const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

// Config holds everything the nodegraph binary needs to start.
type Config struct {
	Listen      string `yaml:"listen"`
	Store       string `yaml:"store"`
	DatabaseURL string `yaml:"database_url,omitempty"`
	SQLitePath  string `yaml:"sqlite_path,omitempty"`
	LogLevel    string `yaml:"log_level"`
	LogFormat   string `yaml:"log_format"`
	// NodeTypes is the path to a node-type catalog. Empty means any type
	// string is accepted and nodes start without ports.
	NodeTypes   string `yaml:"node_types,omitempty"`
	Acyclic     bool   `yaml:"acyclic"`
	HistorySize int    `yaml:"history_size,omitempty"`
}

// Default returns the configuration used when nothing is set.
func Default() Config {
	return Config{
		Listen:     ":8080",
		Store:      DriverSQLite,
		SQLitePath: "nodegraph.db",
		LogLevel:   "info",
		LogFormat:  "text",
	}
}

// Load builds a Config from defaults, the YAML file at path (skipped when
// path is empty), a .env file in the working directory, and the environment,
// in that order.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parsing config: %w", err)
		}
	}

	// A missing .env is fine.
	_ = godotenv.Load()

	if err := cfg.applyEnv(); err != nil {
		return Config{}, err
	}
	return cfg, cfg.Validate()
}

func (c *Config) applyEnv() error {
	for name, dst := range map[string]*string{
		"NODEGRAPH_LISTEN":      &c.Listen,
		"NODEGRAPH_STORE":       &c.Store,
		"DATABASE_URL":          &c.DatabaseURL,
		"NODEGRAPH_SQLITE_PATH": &c.SQLitePath,
		"NODEGRAPH_LOG_LEVEL":   &c.LogLevel,
		"NODEGRAPH_LOG_FORMAT":  &c.LogFormat,
		"NODEGRAPH_NODE_TYPES":  &c.NodeTypes,
	} {
		if v, ok := os.LookupEnv(name); ok {
			*dst = v
		}
	}
	if v, ok := os.LookupEnv("NODEGRAPH_ACYCLIC"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("NODEGRAPH_ACYCLIC: %w", err)
		}
		c.Acyclic = b
	}
	return nil
}

// Validate checks the store driver and the fields it requires.
func (c Config) Validate() error {
	var errs []error
	switch c.Store {
	case DriverPostgres:
		if c.DatabaseURL == "" {
			errs = append(errs, errors.New("database_url is required for the postgres store"))
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			errs = append(errs, errors.New("sqlite_path is required for the sqlite store"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown store %q", c.Store))
	}
	switch c.LogFormat {
	case "text", "json":
	default:
		errs = append(errs, fmt.Errorf("unknown log format %q", c.LogFormat))
	}
	if c.HistorySize < 0 {
		errs = append(errs, errors.New("history_size must not be negative"))
	}
	return errors.Join(errs...)
}
