package postgres

import "context"

const schemaSQL = `
CREATE TABLE IF NOT EXISTS graph_scenes (
    id              TEXT PRIMARY KEY,
    group_records   JSONB NOT NULL DEFAULT '[]',
    comment_records JSONB NOT NULL DEFAULT '[]',
    created_at      TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS graph_nodes (
    scene_id TEXT   NOT NULL REFERENCES graph_scenes(id) ON DELETE CASCADE,
    node_id  BIGINT NOT NULL,
    data     JSONB  NOT NULL DEFAULT '{}',
    PRIMARY KEY (scene_id, node_id)
);

CREATE TABLE IF NOT EXISTS graph_connections (
    scene_id       TEXT   NOT NULL,
    out_node_id    BIGINT NOT NULL,
    out_port_index BIGINT NOT NULL,
    in_node_id     BIGINT NOT NULL,
    in_port_index  BIGINT NOT NULL,
    PRIMARY KEY (scene_id, out_node_id, out_port_index, in_node_id, in_port_index),
    FOREIGN KEY (scene_id, out_node_id) REFERENCES graph_nodes(scene_id, node_id) ON DELETE CASCADE,
    FOREIGN KEY (scene_id, in_node_id)  REFERENCES graph_nodes(scene_id, node_id) ON DELETE CASCADE
);

CREATE INDEX IF NOT EXISTS idx_graph_connections_in ON graph_connections(scene_id, in_node_id);
`

// CreateSchema creates the graph_scenes, graph_nodes and graph_connections
// tables if they don't exist.
func (s *PGStore) CreateSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, schemaSQL)
	return err
}

// DropSchema drops all scene tables.
func (s *PGStore) DropSchema(ctx context.Context) error {
	_, err := s.db.Exec(ctx, `DROP TABLE IF EXISTS graph_connections, graph_nodes, graph_scenes CASCADE;`)
	return err
}
