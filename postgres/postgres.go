// Package postgres implements nodegraph.Store on PostgreSQL via pgx.
package postgres

import (
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/meikuraledutech/nodegraph"
)

var _ nodegraph.Store = (*PGStore)(nil)

// PGStore implements nodegraph.Store using PostgreSQL via pgx.
type PGStore struct {
	db     *pgxpool.Pool
	logger *slog.Logger
}

// Option configures a PGStore.
type Option func(*PGStore)

// WithLogger sets the store's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *PGStore) { s.logger = l }
}

// New creates a new PGStore backed by the given pgx connection pool.
func New(db *pgxpool.Pool, opts ...Option) *PGStore {
	s := &PGStore{db: db, logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(s)
	}
	return s
}
