package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/meikuraledutech/nodegraph"
)

// SaveScene stores doc under id in one transaction, replacing any previous
// contents of the scene.
func (s *PGStore) SaveScene(ctx context.Context, id string, doc *nodegraph.Document) error {
	groups, err := json.Marshal(orEmpty(doc.Groups))
	if err != nil {
		return fmt.Errorf("nodegraph: encode groups: %w", err)
	}
	comments, err := json.Marshal(orEmpty(doc.Comments))
	if err != nil {
		return fmt.Errorf("nodegraph: encode comments: %w", err)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("nodegraph: begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	// Replace semantics: nodes and connections go with the cascade.
	if _, err := tx.Exec(ctx, `DELETE FROM graph_scenes WHERE id = $1`, id); err != nil {
		return fmt.Errorf("nodegraph: delete scene: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO graph_scenes (id, group_records, comment_records) VALUES ($1, $2, $3)`,
		id, groups, comments,
	); err != nil {
		return fmt.Errorf("nodegraph: insert scene: %w", err)
	}

	batch := &pgx.Batch{}
	for _, n := range doc.Nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("nodegraph: encode node %d: %w", n.ID, err)
		}
		batch.Queue(`INSERT INTO graph_nodes (scene_id, node_id, data) VALUES ($1, $2, $3)`,
			id, int64(n.ID), data)
	}
	for _, c := range doc.Connections {
		batch.Queue(`INSERT INTO graph_connections (scene_id, out_node_id, out_port_index, in_node_id, in_port_index)
VALUES ($1, $2, $3, $4, $5)`,
			id, int64(c.OutNodeID), int64(c.OutPortIndex), int64(c.InNodeID), int64(c.InPortIndex))
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("nodegraph: insert scene contents: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("nodegraph: commit: %w", err)
	}
	s.logger.Debug("scene saved", "scene", id, "nodes", len(doc.Nodes), "connections", len(doc.Connections))
	return nil
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

// LoadScene reads a full scene. Returns nil, nil if the scene doesn't exist.
func (s *PGStore) LoadScene(ctx context.Context, id string) (*nodegraph.Document, error) {
	var groups, comments []byte
	err := s.db.QueryRow(ctx,
		`SELECT group_records, comment_records FROM graph_scenes WHERE id = $1`, id,
	).Scan(&groups, &comments)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("nodegraph: get scene: %w", err)
	}

	doc := &nodegraph.Document{
		Nodes:       []nodegraph.NodeDocument{},
		Connections: []nodegraph.ConnectionDocument{},
	}
	if err := json.Unmarshal(groups, &doc.Groups); err != nil {
		return nil, fmt.Errorf("nodegraph: decode groups: %w", err)
	}
	if err := json.Unmarshal(comments, &doc.Comments); err != nil {
		return nil, fmt.Errorf("nodegraph: decode comments: %w", err)
	}

	rows, err := s.db.Query(ctx,
		`SELECT data FROM graph_nodes WHERE scene_id = $1 ORDER BY node_id`, id)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: query nodes: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var data []byte
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("nodegraph: scan node: %w", err)
		}
		var n nodegraph.NodeDocument
		if err := json.Unmarshal(data, &n); err != nil {
			return nil, fmt.Errorf("nodegraph: decode node: %w", err)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows nodes: %w", err)
	}

	rows, err = s.db.Query(ctx,
		`SELECT out_node_id, out_port_index, in_node_id, in_port_index FROM graph_connections
WHERE scene_id = $1 ORDER BY out_node_id, out_port_index, in_node_id, in_port_index`, id)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: query connections: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var outNode, outPort, inNode, inPort int64
		if err := rows.Scan(&outNode, &outPort, &inNode, &inPort); err != nil {
			return nil, fmt.Errorf("nodegraph: scan connection: %w", err)
		}
		doc.Connections = append(doc.Connections, nodegraph.ConnectionDocument{
			OutNodeID:    nodegraph.NodeID(outNode),
			OutPortIndex: nodegraph.PortIndex(outPort),
			InNodeID:     nodegraph.NodeID(inNode),
			InPortIndex:  nodegraph.PortIndex(inPort),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows connections: %w", err)
	}

	return doc, nil
}

// DeleteScene removes a scene with all of its nodes and connections.
// Returns ErrSceneNotFound if the scene doesn't exist.
func (s *PGStore) DeleteScene(ctx context.Context, id string) error {
	ct, err := s.db.Exec(ctx, `DELETE FROM graph_scenes WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("nodegraph: delete scene: %w", err)
	}
	if ct.RowsAffected() == 0 {
		return nodegraph.ErrSceneNotFound
	}
	return nil
}

// ListScenes returns a summary of every stored scene, ordered by id.
// Returns an empty slice (not nil) if none found.
func (s *PGStore) ListScenes(ctx context.Context) ([]nodegraph.SceneInfo, error) {
	rows, err := s.db.Query(ctx, `
SELECT s.id,
       (SELECT COUNT(*) FROM graph_nodes n WHERE n.scene_id = s.id),
       (SELECT COUNT(*) FROM graph_connections c WHERE c.scene_id = s.id),
       s.updated_at
FROM graph_scenes s
ORDER BY s.id`)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: list scenes: %w", err)
	}
	defer rows.Close()

	scenes := []nodegraph.SceneInfo{}
	for rows.Next() {
		var (
			info         nodegraph.SceneInfo
			nodes, conns int64
		)
		if err := rows.Scan(&info.ID, &nodes, &conns, &info.UpdatedAt); err != nil {
			return nil, fmt.Errorf("nodegraph: scan scene: %w", err)
		}
		info.Nodes, info.Connections = int(nodes), int(conns)
		scenes = append(scenes, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows scenes: %w", err)
	}

	return scenes, nil
}
