package comment

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
)

// Snapshot returns every comment as a persistence record.
func (m *Manager) Snapshot() []nodegraph.CommentRecord {
	comments := m.Comments()
	out := make([]nodegraph.CommentRecord, len(comments))
	for i, c := range comments {
		out[i] = nodegraph.CommentRecord{
			ID:       c.ID,
			Text:     c.Text,
			Rect:     c.Rect,
			Parent:   c.parent,
			Nodes:    c.Nodes(),
			Children: c.Children(),
		}
	}
	return out
}

// RestoreRecords recreates comments from records. Nesting is rebuilt from
// each record's parent, and ownership is re-derived from geometry once all
// comments exist.
func (m *Manager) RestoreRecords(records []nodegraph.CommentRecord) error {
	for _, r := range records {
		if _, exists := m.comments[r.ID]; exists {
			return fmt.Errorf("comment: restore %s: already exists", r.ID)
		}
		m.newComment(r.ID, r.Text, r.Rect)
	}
	for _, r := range records {
		if r.Parent == uuid.Nil {
			continue
		}
		p, ok := m.comments[r.Parent]
		if !ok {
			return fmt.Errorf("comment: restore %s: unknown parent %s", r.ID, r.Parent)
		}
		p.children = append(p.children, r.ID)
		m.comments[r.ID].parent = r.Parent
	}
	for _, r := range records {
		c := m.comments[r.ID]
		for _, n := range r.Nodes {
			if !m.model.NodeExists(n) {
				return fmt.Errorf("comment: restore %s: %w: %d", r.ID, nodegraph.ErrNodeNotFound, n)
			}
			if owner, owned := m.owner[n]; owned {
				return fmt.Errorf("comment: restore %s: node %d already owned by %s", r.ID, n, owner)
			}
			c.nodes = append(c.nodes, n)
			m.owner[n] = r.ID
		}
	}
	for _, r := range records {
		m.evict(r.ID)
	}
	return nil
}
