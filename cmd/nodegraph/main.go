// Package main provides the nodegraph CLI entry point.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/internal/config"
	"github.com/meikuraledutech/nodegraph/internal/logging"
	"github.com/meikuraledutech/nodegraph/postgres"
	"github.com/meikuraledutech/nodegraph/sqlite"
	"github.com/meikuraledutech/nodegraph/workspace"
	"github.com/spf13/cobra"
)

// Version is set at build time via ldflags
var Version = "dev"

var configPath string

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", err)
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:   "nodegraph",
	Short: "Serve, store and inspect node graphs",
	Long: `nodegraph hosts an editable node graph behind an HTTP API and keeps
saved scenes in PostgreSQL or SQLite.

Configuration comes from an optional YAML file (--config), a .env file
and NODEGRAPH_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML config file")
	rootCmd.Version = Version
}

// env is what every subcommand starts from.
type env struct {
	cfg    config.Config
	logger *slog.Logger
}

func loadEnv() (*env, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, err
	}
	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger}, nil
}

// openStore connects to the configured store. The returned func releases it.
func (e *env) openStore(ctx context.Context) (nodegraph.Store, func(), error) {
	l := e.logger.With("component", "store")
	switch e.cfg.Store {
	case config.DriverPostgres:
		pool, err := pgxpool.New(ctx, e.cfg.DatabaseURL)
		if err != nil {
			return nil, nil, fmt.Errorf("connect: %w", err)
		}
		return postgres.New(pool, postgres.WithLogger(l)), pool.Close, nil
	case config.DriverSQLite:
		s, err := sqlite.Open(e.cfg.SQLitePath, sqlite.WithLogger(l))
		if err != nil {
			return nil, nil, err
		}
		return s, func() { s.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown store %q", e.cfg.Store)
}

// newWorkspace builds an empty workspace with the configured node types and
// connection policy.
func (e *env) newWorkspace() (*workspace.Workspace, error) {
	opts := []workspace.Option{workspace.WithLogger(e.logger)}
	if e.cfg.NodeTypes != "" {
		cat, err := config.LoadCatalog(e.cfg.NodeTypes)
		if err != nil {
			return nil, err
		}
		r, err := cat.Registry()
		if err != nil {
			return nil, err
		}
		opts = append(opts, workspace.WithRegistry(r))
	}
	if e.cfg.Acyclic {
		opts = append(opts, workspace.WithPolicy(nodegraph.AcyclicPolicy{}))
	}
	if e.cfg.HistorySize > 0 {
		opts = append(opts, workspace.WithHistoryLimit(e.cfg.HistorySize))
	}
	return workspace.New(opts...), nil
}

// readDocument decodes a scene document from a JSON file.
func readDocument(path string) (*nodegraph.Document, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	var doc nodegraph.Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return &doc, nil
}

// outputJSON writes a value as formatted JSON to stdout.
func outputJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
