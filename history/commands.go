package history

import (
	"fmt"
	"slices"

	"github.com/meikuraledutech/nodegraph"
)

// CreateNode adds a node of Type at Position. Redo restores the node under
// the id it was first given.
type CreateNode struct {
	Model    nodegraph.Model
	Type     string
	Position nodegraph.Point

	id      nodegraph.NodeID
	created bool
	saved   *nodegraph.NodeDocument
}

func (c *CreateNode) Name() string { return "create node" }

// ID returns the created node's id, or InvalidNodeID before the first Do.
func (c *CreateNode) ID() nodegraph.NodeID {
	if !c.created {
		return nodegraph.InvalidNodeID
	}
	return c.id
}

func (c *CreateNode) Do() error {
	if c.saved != nil {
		if err := c.Model.LoadNode(*c.saved); err != nil {
			return fmt.Errorf("history: create node: %w", err)
		}
		c.saved = nil
		return nil
	}
	id := c.Model.AddNode(c.Type)
	if !id.Valid() {
		return fmt.Errorf("history: create node: %w: %q", nodegraph.ErrUnknownNodeType, c.Type)
	}
	c.Model.SetNodeData(id, nodegraph.RolePosition, c.Position)
	c.id, c.created = id, true
	return nil
}

func (c *CreateNode) Undo() error {
	if !c.Model.NodeExists(c.id) {
		return fmt.Errorf("history: undo create node %d: %w", c.id, nodegraph.ErrNodeNotFound)
	}
	doc := c.Model.SaveNode(c.id)
	c.saved = &doc
	c.Model.DeleteNode(c.id)
	return nil
}

// DeleteSelection deletes Connections and Nodes together with every
// connection incident to those nodes. Undo restores nodes under their
// original ids, then the connections.
type DeleteSelection struct {
	Model       nodegraph.Model
	Nodes       []nodegraph.NodeID
	Connections []nodegraph.ConnectionID

	nodes []nodegraph.NodeDocument
	conns []nodegraph.ConnectionID
}

func (c *DeleteSelection) Name() string { return "delete" }

func (c *DeleteSelection) Do() error {
	c.nodes = c.nodes[:0]
	c.conns = c.conns[:0]
	for _, id := range c.Connections {
		if c.Model.ConnectionExists(id) && !slices.Contains(c.conns, id) {
			c.conns = append(c.conns, id)
		}
	}
	for _, n := range c.Nodes {
		if !c.Model.NodeExists(n) || slices.ContainsFunc(c.nodes, func(d nodegraph.NodeDocument) bool { return d.ID == n }) {
			continue
		}
		for _, id := range c.Model.AllConnectionIDs(n) {
			if !slices.Contains(c.conns, id) {
				c.conns = append(c.conns, id)
			}
		}
		c.nodes = append(c.nodes, c.Model.SaveNode(n))
	}
	if len(c.nodes) == 0 && len(c.conns) == 0 {
		return fmt.Errorf("history: delete: %w: empty selection", nodegraph.ErrNodeNotFound)
	}

	for _, id := range c.conns {
		c.Model.DeleteConnection(id)
	}
	for _, d := range c.nodes {
		c.Model.DeleteNode(d.ID)
	}
	return nil
}

func (c *DeleteSelection) Undo() error {
	for _, d := range c.nodes {
		if err := c.Model.LoadNode(d); err != nil {
			return fmt.Errorf("history: undo delete: %w", err)
		}
	}
	for _, id := range c.conns {
		if !c.Model.AddConnection(id) {
			return fmt.Errorf("history: undo delete: %w: %s", nodegraph.ErrInvalidConnection, id)
		}
	}
	return nil
}

// MoveNodes offsets every node in Nodes by Delta.
type MoveNodes struct {
	Model nodegraph.Model
	Nodes []nodegraph.NodeID
	Delta nodegraph.Point
}

func (c *MoveNodes) Name() string { return "move" }

func (c *MoveNodes) Do() error   { return c.shift(c.Delta) }
func (c *MoveNodes) Undo() error { return c.shift(c.Delta.Neg()) }

func (c *MoveNodes) shift(d nodegraph.Point) error {
	for _, n := range c.Nodes {
		if !c.Model.NodeExists(n) {
			return fmt.Errorf("history: move: %w: %d", nodegraph.ErrNodeNotFound, n)
		}
	}
	for _, n := range c.Nodes {
		pos := nodegraph.NodeValue[nodegraph.Point](c.Model, n, nodegraph.RolePosition)
		c.Model.SetNodeData(n, nodegraph.RolePosition, pos.Add(d))
	}
	return nil
}

// Connect adds ID the way an interactive drop does: connections occupying a
// One-policy endpoint are replaced. Undo removes ID and restores them.
type Connect struct {
	Model nodegraph.Model
	ID    nodegraph.ConnectionID

	replaced []nodegraph.ConnectionID
}

func (c *Connect) Name() string { return "connect" }

func (c *Connect) Do() error {
	before := slices.Concat(
		c.Model.Connections(c.ID.OutNode, nodegraph.PortOut, c.ID.OutPort),
		c.Model.Connections(c.ID.InNode, nodegraph.PortIn, c.ID.InPort),
	)
	if !nodegraph.ConnectReplacing(c.Model, c.ID) {
		return fmt.Errorf("history: connect: %w: %s", nodegraph.ErrInvalidConnection, c.ID)
	}
	c.replaced = c.replaced[:0]
	for _, id := range before {
		if !c.Model.ConnectionExists(id) && !slices.Contains(c.replaced, id) {
			c.replaced = append(c.replaced, id)
		}
	}
	return nil
}

func (c *Connect) Undo() error {
	if !c.Model.DeleteConnection(c.ID) {
		return fmt.Errorf("history: undo connect: %w: %s", nodegraph.ErrInvalidConnection, c.ID)
	}
	for _, id := range c.replaced {
		c.Model.AddConnection(id)
	}
	return nil
}

// Disconnect removes ID.
type Disconnect struct {
	Model nodegraph.Model
	ID    nodegraph.ConnectionID
}

func (c *Disconnect) Name() string { return "disconnect" }

func (c *Disconnect) Do() error {
	if !c.Model.DetachPossible(c.ID) || !c.Model.DeleteConnection(c.ID) {
		return fmt.Errorf("history: disconnect: %w: %s", nodegraph.ErrInvalidConnection, c.ID)
	}
	return nil
}

func (c *Disconnect) Undo() error {
	if !c.Model.AddConnection(c.ID) {
		return fmt.Errorf("history: undo disconnect: %w: %s", nodegraph.ErrInvalidConnection, c.ID)
	}
	return nil
}
