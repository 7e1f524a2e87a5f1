// Package sqlite implements nodegraph.Store on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/meikuraledutech/nodegraph"
	_ "modernc.org/sqlite"
)

var _ nodegraph.Store = (*Store)(nil)

// Store keeps scenes in a single SQLite file.
type Store struct {
	db     *sql.DB
	logger *slog.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) { s.logger = l }
}

// Open opens or creates a database at path. The schema is not created; call
// CreateSchema.
func Open(path string, opts ...Option) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: open sqlite: %w", err)
	}
	// SQLite doesn't support concurrent writes.
	db.SetMaxOpenConns(1)

	s := &Store{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

const schemaSQL = `
	CREATE TABLE IF NOT EXISTS graph_scenes (
		id TEXT PRIMARY KEY,
		group_records TEXT NOT NULL DEFAULT '[]',
		comment_records TEXT NOT NULL DEFAULT '[]',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS graph_nodes (
		scene_id TEXT NOT NULL,
		node_id INTEGER NOT NULL,
		data TEXT NOT NULL,
		PRIMARY KEY (scene_id, node_id)
	);

	CREATE TABLE IF NOT EXISTS graph_connections (
		scene_id TEXT NOT NULL,
		out_node_id INTEGER NOT NULL,
		out_port_index INTEGER NOT NULL,
		in_node_id INTEGER NOT NULL,
		in_port_index INTEGER NOT NULL,
		PRIMARY KEY (scene_id, out_node_id, out_port_index, in_node_id, in_port_index)
	);
`

// CreateSchema creates the scene tables if they don't exist.
func (s *Store) CreateSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, schemaSQL)
	return err
}

// DropSchema drops the scene tables.
func (s *Store) DropSchema(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `
		DROP TABLE IF EXISTS graph_connections;
		DROP TABLE IF EXISTS graph_nodes;
		DROP TABLE IF EXISTS graph_scenes;
	`)
	return err
}
