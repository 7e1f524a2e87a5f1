package workspace

import (
	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/comment"
	"github.com/meikuraledutech/nodegraph/group"
	"github.com/meikuraledutech/nodegraph/history"
)

// deleteNodes wraps history.DeleteSelection and puts restored nodes back
// into the groups and comments they were taken out of.
type deleteNodes struct {
	*history.DeleteSelection

	groups   *group.Manager
	comments *comment.Manager

	grouped   map[uuid.UUID]nodegraph.GroupRecord
	commented map[nodegraph.NodeID]uuid.UUID
}

func (c *deleteNodes) Do() error {
	c.grouped = make(map[uuid.UUID]nodegraph.GroupRecord)
	c.commented = make(map[nodegraph.NodeID]uuid.UUID)
	for _, n := range c.Nodes {
		if !c.Model.NodeExists(n) {
			continue
		}
		if gid, ok := c.groups.GroupOf(n); ok {
			rec, seen := c.grouped[gid]
			if !seen {
				g, _ := c.groups.Group(gid)
				rec = nodegraph.GroupRecord{ID: gid, Name: g.Name}
			}
			rec.Nodes = append(rec.Nodes, n)
			c.grouped[gid] = rec
		}
		if cid, ok := c.comments.CommentOf(n); ok {
			c.commented[n] = cid
		}
	}
	return c.DeleteSelection.Do()
}

func (c *deleteNodes) Undo() error {
	if err := c.DeleteSelection.Undo(); err != nil {
		return err
	}
	for gid, rec := range c.grouped {
		if _, ok := c.groups.Group(gid); !ok {
			// Deleting every member removed the group.
			if err := c.groups.RestoreRecords([]nodegraph.GroupRecord{rec}); err != nil {
				return err
			}
			continue
		}
		for _, n := range rec.Nodes {
			c.groups.AddNode(gid, n)
		}
	}
	for n, cid := range c.commented {
		c.comments.AddNode(cid, n)
	}
	return nil
}
