package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/meikuraledutech/nodegraph"
)

// SaveScene stores doc under id, replacing any previous contents.
func (s *Store) SaveScene(ctx context.Context, id string, doc *nodegraph.Document) error {
	groups, err := json.Marshal(orEmpty(doc.Groups))
	if err != nil {
		return fmt.Errorf("nodegraph: encode groups: %w", err)
	}
	comments, err := json.Marshal(orEmpty(doc.Comments))
	if err != nil {
		return fmt.Errorf("nodegraph: encode comments: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("nodegraph: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteScene(ctx, tx, id); err != nil && !errors.Is(err, errNoScene) {
		return err
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO graph_scenes (id, group_records, comment_records, updated_at) VALUES (?, ?, ?, ?)`,
		id, string(groups), string(comments), time.Now().UTC().UnixNano(),
	); err != nil {
		return fmt.Errorf("nodegraph: insert scene: %w", err)
	}

	nodeStmt, err := tx.PrepareContext(ctx, `INSERT INTO graph_nodes (scene_id, node_id, data) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("nodegraph: preparing node insert: %w", err)
	}
	defer nodeStmt.Close()
	for _, n := range doc.Nodes {
		data, err := json.Marshal(n)
		if err != nil {
			return fmt.Errorf("nodegraph: encode node %d: %w", n.ID, err)
		}
		if _, err := nodeStmt.ExecContext(ctx, id, int64(n.ID), string(data)); err != nil {
			return fmt.Errorf("nodegraph: insert node %d: %w", n.ID, err)
		}
	}

	connStmt, err := tx.PrepareContext(ctx, `
		INSERT INTO graph_connections (scene_id, out_node_id, out_port_index, in_node_id, in_port_index)
		VALUES (?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("nodegraph: preparing connection insert: %w", err)
	}
	defer connStmt.Close()
	for _, c := range doc.Connections {
		if _, err := connStmt.ExecContext(ctx, id,
			int64(c.OutNodeID), int64(c.OutPortIndex), int64(c.InNodeID), int64(c.InPortIndex),
		); err != nil {
			return fmt.Errorf("nodegraph: insert connection %s: %w", c.ConnectionID(), err)
		}
	}

	if err := tx.Commit(); err != nil {
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

// deleteScene removes every row of a scene. It returns errNoScene when the
// scene row did not exist.
func deleteScene(ctx context.Context, tx *sql.Tx, id string) error {
	for _, table := range []string{"graph_connections", "graph_nodes"} {
		if _, err := tx.ExecContext(ctx, `DELETE FROM `+table+` WHERE scene_id = ?`, id); err != nil {
			return fmt.Errorf("nodegraph: clearing %s: %w", table, err)
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM graph_scenes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("nodegraph: delete scene: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return errNoScene
	}
	return nil
}

var errNoScene = errors.New("no scene row")

// LoadScene returns nil, nil if the scene doesn't exist.
func (s *Store) LoadScene(ctx context.Context, id string) (*nodegraph.Document, error) {
	var groups, comments string
	err := s.db.QueryRowContext(ctx,
		`SELECT group_records, comment_records FROM graph_scenes WHERE id = ?`, id,
	).Scan(&groups, &comments)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("nodegraph: get scene: %w", err)
	}

	doc := &nodegraph.Document{
		Nodes:       []nodegraph.NodeDocument{},
		Connections: []nodegraph.ConnectionDocument{},
	}
	if err := json.Unmarshal([]byte(groups), &doc.Groups); err != nil {
		return nil, fmt.Errorf("nodegraph: decode groups: %w", err)
	}
	if err := json.Unmarshal([]byte(comments), &doc.Comments); err != nil {
		return nil, fmt.Errorf("nodegraph: decode comments: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT data FROM graph_nodes WHERE scene_id = ? ORDER BY node_id`, id)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: query nodes: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var data string
		if err := rows.Scan(&data); err != nil {
			return nil, fmt.Errorf("nodegraph: scan node: %w", err)
		}
		var n nodegraph.NodeDocument
		if err := json.Unmarshal([]byte(data), &n); err != nil {
			return nil, fmt.Errorf("nodegraph: decode node: %w", err)
		}
		doc.Nodes = append(doc.Nodes, n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows nodes: %w", err)
	}

	crows, err := s.db.QueryContext(ctx, `
		SELECT out_node_id, out_port_index, in_node_id, in_port_index FROM graph_connections
		WHERE scene_id = ? ORDER BY out_node_id, out_port_index, in_node_id, in_port_index
	`, id)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: query connections: %w", err)
	}
	defer crows.Close()
	for crows.Next() {
		var outNode, outPort, inNode, inPort int64
		if err := crows.Scan(&outNode, &outPort, &inNode, &inPort); err != nil {
			return nil, fmt.Errorf("nodegraph: scan connection: %w", err)
		}
		doc.Connections = append(doc.Connections, nodegraph.ConnectionDocument{
			OutNodeID:    nodegraph.NodeID(outNode),
			OutPortIndex: nodegraph.PortIndex(outPort),
			InNodeID:     nodegraph.NodeID(inNode),
			InPortIndex:  nodegraph.PortIndex(inPort),
		})
	}
	if err := crows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows connections: %w", err)
	}

	return doc, nil
}

// DeleteScene removes a scene. Returns ErrSceneNotFound if it doesn't exist.
func (s *Store) DeleteScene(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("nodegraph: begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deleteScene(ctx, tx, id); err != nil {
		if errors.Is(err, errNoScene) {
			return nodegraph.ErrSceneNotFound
		}
		return err
	}
	return tx.Commit()
}

// ListScenes returns a summary of every stored scene, ordered by id.
func (s *Store) ListScenes(ctx context.Context) ([]nodegraph.SceneInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT s.id,
			(SELECT COUNT(*) FROM graph_nodes n WHERE n.scene_id = s.id),
			(SELECT COUNT(*) FROM graph_connections c WHERE c.scene_id = s.id),
			s.updated_at
		FROM graph_scenes s
		ORDER BY s.id
	`)
	if err != nil {
		return nil, fmt.Errorf("nodegraph: list scenes: %w", err)
	}
	defer rows.Close()

	scenes := []nodegraph.SceneInfo{}
	for rows.Next() {
		var (
			info    nodegraph.SceneInfo
			updated int64
		)
		if err := rows.Scan(&info.ID, &info.Nodes, &info.Connections, &updated); err != nil {
			return nil, fmt.Errorf("nodegraph: scan scene: %w", err)
		}
		info.UpdatedAt = time.Unix(0, updated).UTC()
		scenes = append(scenes, info)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("nodegraph: rows scenes: %w", err)
	}
	return scenes, nil
}
