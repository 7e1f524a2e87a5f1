// Package scene keeps one graphics object per model node and connection,
// driven by the model's change events.
package scene

import (
	"cmp"
	"log/slog"
	"slices"

	"github.com/meikuraledutech/nodegraph"
)

// NodeObject is the scene-side counterpart of a node.
type NodeObject struct {
	ID       nodegraph.NodeID
	Position nodegraph.Point
	// Dirty is set whenever the node needs repainting and cleared by the
	// renderer through Scene.MarkClean.
	Dirty bool

	size      nodegraph.Size
	sizeValid bool
}

// ConnectionObject is the scene-side counterpart of a connection.
type ConnectionObject struct {
	ID nodegraph.ConnectionID
}

// Scene mirrors a model. It owns every NodeObject and ConnectionObject and
// hands out ids, not long-lived pointers, to other layers.
type Scene struct {
	model    nodegraph.Model
	geometry Geometry
	logger   *slog.Logger

	nodes map[nodegraph.NodeID]*NodeObject
	conns map[nodegraph.ConnectionID]*ConnectionObject
	draft *Draft

	// Nodes between a PortsAboutToBe* event and its closing event.
	suspended map[nodegraph.NodeID]bool
	selected  map[nodegraph.NodeID]bool

	unsubscribe func()
}

// Option configures a Scene.
type Option func(*Scene)

// WithGeometry replaces DefaultGeometry{DefaultStyle()}.
func WithGeometry(g Geometry) Option {
	return func(s *Scene) { s.geometry = g }
}

// WithLogger sets the scene's logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) { s.logger = l }
}

// New creates a scene for m, subscribes to its events and populates it.
func New(m nodegraph.Model, opts ...Option) *Scene {
	s := &Scene{
		model:     m,
		geometry:  DefaultGeometry{Style: DefaultStyle()},
		logger:    slog.New(slog.DiscardHandler),
		nodes:     make(map[nodegraph.NodeID]*NodeObject),
		conns:     make(map[nodegraph.ConnectionID]*ConnectionObject),
		suspended: make(map[nodegraph.NodeID]bool),
		selected:  make(map[nodegraph.NodeID]bool),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.unsubscribe = m.Subscribe(s.handle)
	s.Populate()
	return s
}

// Close stops listening to the model.
func (s *Scene) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
	}
}

// Model returns the model the scene mirrors.
func (s *Scene) Model() nodegraph.Model { return s.model }

// Geometry returns the scene's geometry provider.
func (s *Scene) Geometry() Geometry { return s.geometry }

// Populate rebuilds every graphics object. Nodes are discovered breadth
// first along Out-port connections, restarting from each unvisited node so
// disconnected components and isolated nodes are covered.
func (s *Scene) Populate() {
	clear(s.nodes)
	clear(s.conns)
	clear(s.suspended)
	s.draft = nil

	visited := make(map[nodegraph.NodeID]bool)
	for _, start := range s.model.AllNodeIDs() {
		if visited[start] {
			continue
		}
		visited[start] = true
		queue := []nodegraph.NodeID{start}
		for len(queue) > 0 {
			id := queue[0]
			queue = queue[1:]
			s.addNode(id)

			outs := nodegraph.PortCount(s.model, id, nodegraph.PortOut)
			for i := range outs {
				for _, c := range s.model.Connections(id, nodegraph.PortOut, nodegraph.PortIndex(i)) {
					s.conns[c] = &ConnectionObject{ID: c}
					if !visited[c.InNode] {
						visited[c.InNode] = true
						queue = append(queue, c.InNode)
					}
				}
			}
		}
	}
	s.logger.Debug("scene populated", "nodes", len(s.nodes), "connections", len(s.conns))
}

func (s *Scene) addNode(id nodegraph.NodeID) {
	s.nodes[id] = &NodeObject{
		ID:       id,
		Position: nodegraph.NodeValue[nodegraph.Point](s.model, id, nodegraph.RolePosition),
		Dirty:    true,
	}
}

func (s *Scene) handle(ev nodegraph.Event) {
	switch ev.Kind {
	case nodegraph.NodeCreated:
		s.addNode(ev.Node)

	case nodegraph.NodeDeleted:
		delete(s.nodes, ev.Node)
		delete(s.suspended, ev.Node)
		delete(s.selected, ev.Node)
		if s.draft != nil && s.draft.ID.Node(s.draft.Anchor) == ev.Node {
			s.draft = nil
		}

	case nodegraph.NodePositionUpdated:
		n, ok := s.nodes[ev.Node]
		if !ok {
			s.logger.Debug("position update for unknown node", "node", ev.Node)
			return
		}
		n.Position = nodegraph.NodeValue[nodegraph.Point](s.model, ev.Node, nodegraph.RolePosition)
		n.Dirty = true

	case nodegraph.NodeUpdated:
		s.invalidate(ev.Node)

	case nodegraph.NodeFlagsUpdated, nodegraph.PortDataSet:
		s.markDirty(ev.Node)

	case nodegraph.ConnectionCreated:
		s.conns[ev.Connection] = &ConnectionObject{ID: ev.Connection}
		s.markDirty(ev.Connection.OutNode)
		s.markDirty(ev.Connection.InNode)

	case nodegraph.ConnectionDeleted:
		delete(s.conns, ev.Connection)
		if s.draft != nil && s.draft.ID == ev.Connection {
			s.draft = nil
		}
		s.markDirty(ev.Connection.OutNode)
		s.markDirty(ev.Connection.InNode)

	case nodegraph.PortsAboutToBeInserted, nodegraph.PortsAboutToBeDeleted:
		s.suspended[ev.Node] = true

	case nodegraph.PortsInserted, nodegraph.PortsDeleted:
		delete(s.suspended, ev.Node)
		s.invalidate(ev.Node)

	case nodegraph.ModelReset:
		s.Populate()
	}
}

// markDirty flags a node for repaint unless it is inside a port mutation
// bracket; the closing event marks it once.
func (s *Scene) markDirty(id nodegraph.NodeID) {
	if s.suspended[id] {
		return
	}
	if n, ok := s.nodes[id]; ok {
		n.Dirty = true
	}
}

// invalidate drops the cached size and marks the node dirty.
func (s *Scene) invalidate(id nodegraph.NodeID) {
	if n, ok := s.nodes[id]; ok {
		n.sizeValid = false
		n.Dirty = true
	}
}

// Node returns the graphics object for id.
func (s *Scene) Node(id nodegraph.NodeID) (*NodeObject, bool) {
	n, ok := s.nodes[id]
	return n, ok
}

// Connection returns the graphics object for c.
func (s *Scene) Connection(c nodegraph.ConnectionID) (*ConnectionObject, bool) {
	o, ok := s.conns[c]
	return o, ok
}

// NodeIDs returns the ids of all node objects in ascending order.
func (s *Scene) NodeIDs() []nodegraph.NodeID {
	ids := make([]nodegraph.NodeID, 0, len(s.nodes))
	for id := range s.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// ConnectionIDs returns the ids of all connection objects in a stable order.
func (s *Scene) ConnectionIDs() []nodegraph.ConnectionID {
	ids := make([]nodegraph.ConnectionID, 0, len(s.conns))
	for c := range s.conns {
		ids = append(ids, c)
	}
	slices.SortFunc(ids, func(a, b nodegraph.ConnectionID) int {
		return cmp.Or(
			cmp.Compare(a.OutNode, b.OutNode),
			cmp.Compare(a.OutPort, b.OutPort),
			cmp.Compare(a.InNode, b.InNode),
			cmp.Compare(a.InPort, b.InPort),
		)
	})
	return ids
}

// MarkClean clears a node's dirty flag after it has been repainted.
func (s *Scene) MarkClean(id nodegraph.NodeID) {
	if n, ok := s.nodes[id]; ok {
		n.Dirty = false
	}
}

// NodeBounds returns the node's scene rectangle. Sizes are computed lazily
// and cached until the node changes.
func (s *Scene) NodeBounds(id nodegraph.NodeID) (nodegraph.Rect, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return nodegraph.Rect{}, false
	}
	if !n.sizeValid {
		n.size = s.geometry.Size(s.model, id)
		n.sizeValid = true
	}
	return nodegraph.RectAt(n.Position, n.size), true
}

// PortScenePosition returns a port's anchor in scene coordinates.
func (s *Scene) PortScenePosition(id nodegraph.NodeID, t nodegraph.PortType, port nodegraph.PortIndex) (nodegraph.Point, bool) {
	n, ok := s.nodes[id]
	if !ok {
		return nodegraph.Point{}, false
	}
	return n.Position.Add(s.geometry.PortPosition(s.model, id, t, port)), true
}

// MoveNode sets a node's position through the model.
func (s *Scene) MoveNode(id nodegraph.NodeID, to nodegraph.Point) bool {
	return s.model.SetNodeData(id, nodegraph.RolePosition, to)
}

// Clear deletes every node from the model. The scene empties itself through
// the resulting events.
func (s *Scene) Clear() {
	for _, id := range s.model.AllNodeIDs() {
		s.model.DeleteNode(id)
	}
}

// Select adds nodes to the selection.
func (s *Scene) Select(ids ...nodegraph.NodeID) {
	for _, id := range ids {
		if _, ok := s.nodes[id]; ok {
			s.selected[id] = true
		}
	}
}

// ClearSelection empties the selection.
func (s *Scene) ClearSelection() { clear(s.selected) }

// SelectedNodes returns the selected node ids in ascending order.
func (s *Scene) SelectedNodes() []nodegraph.NodeID {
	ids := make([]nodegraph.NodeID, 0, len(s.selected))
	for id := range s.selected {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}
