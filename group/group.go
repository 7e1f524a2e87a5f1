// Package group partitions nodes into named groups that move together. A
// node belongs to at most one group.
package group

import (
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
)

// Bounds reports a node's scene rectangle. *scene.Scene implements it.
type Bounds interface {
	NodeBounds(id nodegraph.NodeID) (nodegraph.Rect, bool)
}

// Group is a named, ordered set of nodes.
type Group struct {
	ID    uuid.UUID
	Name  string
	nodes []nodegraph.NodeID
}

// Nodes returns the member ids in insertion order.
func (g *Group) Nodes() []nodegraph.NodeID { return slices.Clone(g.nodes) }

// Contains reports whether id is a member.
func (g *Group) Contains(id nodegraph.NodeID) bool { return slices.Contains(g.nodes, id) }

// Manager owns every group of one model. Membership is exclusive and checked
// on every mutating call; violations are rejected without effect.
type Manager struct {
	model  nodegraph.Model
	bounds Bounds
	logger *slog.Logger

	groups map[uuid.UUID]*Group
	owner  map[nodegraph.NodeID]uuid.UUID

	unsubscribe func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager for model. Deleted nodes leave their group,
// and a group left empty is deleted.
func NewManager(model nodegraph.Model, bounds Bounds, opts ...Option) *Manager {
	m := &Manager{
		model:  model,
		bounds: bounds,
		logger: slog.New(slog.DiscardHandler),
		groups: make(map[uuid.UUID]*Group),
		owner:  make(map[nodegraph.NodeID]uuid.UUID),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.unsubscribe = model.Subscribe(m.handle)
	return m
}

// Close stops listening to the model.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

func (m *Manager) handle(ev nodegraph.Event) {
	switch ev.Kind {
	case nodegraph.NodeDeleted:
		if gid, ok := m.owner[ev.Node]; ok {
			m.RemoveNode(gid, ev.Node)
		}
	case nodegraph.ModelReset:
		m.Reset()
	}
}

// Create groups the given nodes under name. It fails without effect when the
// list is empty, contains a missing or repeated node, or contains a node
// that already belongs to a group.
func (m *Manager) Create(nodes []nodegraph.NodeID, name string) (uuid.UUID, bool) {
	return m.create(uuid.New(), nodes, name)
}

func (m *Manager) create(id uuid.UUID, nodes []nodegraph.NodeID, name string) (uuid.UUID, bool) {
	if len(nodes) == 0 {
		return uuid.Nil, false
	}
	if _, taken := m.groups[id]; taken {
		return uuid.Nil, false
	}
	seen := make(map[nodegraph.NodeID]bool, len(nodes))
	for _, n := range nodes {
		if !m.model.NodeExists(n) || seen[n] {
			m.logger.Debug("create group rejected: bad node", "node", n)
			return uuid.Nil, false
		}
		if other, ok := m.owner[n]; ok {
			m.logger.Debug("create group rejected: node already grouped", "node", n, "group", other)
			return uuid.Nil, false
		}
		seen[n] = true
	}

	g := &Group{ID: id, Name: name, nodes: slices.Clone(nodes)}
	m.groups[id] = g
	for _, n := range nodes {
		m.owner[n] = id
	}
	return id, true
}

// AddNode adds a node to a group. It is a no-op returning false when the
// node is missing or belongs to another group.
func (m *Manager) AddNode(gid uuid.UUID, id nodegraph.NodeID) bool {
	g, ok := m.groups[gid]
	if !ok || !m.model.NodeExists(id) {
		return false
	}
	if owner, grouped := m.owner[id]; grouped {
		return owner == gid
	}
	g.nodes = append(g.nodes, id)
	m.owner[id] = gid
	return true
}

// RemoveNode takes a node out of a group. Removing the last member deletes
// the group.
func (m *Manager) RemoveNode(gid uuid.UUID, id nodegraph.NodeID) bool {
	g, ok := m.groups[gid]
	if !ok || m.owner[id] != gid {
		return false
	}
	g.nodes = slices.DeleteFunc(g.nodes, func(n nodegraph.NodeID) bool { return n == id })
	delete(m.owner, id)
	if len(g.nodes) == 0 {
		delete(m.groups, gid)
	}
	return true
}

// Delete ungroups every member. The nodes themselves stay in the model.
func (m *Manager) Delete(gid uuid.UUID) bool {
	g, ok := m.groups[gid]
	if !ok {
		return false
	}
	for _, n := range g.nodes {
		delete(m.owner, n)
	}
	delete(m.groups, gid)
	return true
}

// Reset drops every group.
func (m *Manager) Reset() {
	clear(m.groups)
	clear(m.owner)
}

// Group returns the group with the given id.
func (m *Manager) Group(gid uuid.UUID) (*Group, bool) {
	g, ok := m.groups[gid]
	return g, ok
}

// GroupOf returns the group a node belongs to.
func (m *Manager) GroupOf(id nodegraph.NodeID) (uuid.UUID, bool) {
	gid, ok := m.owner[id]
	return gid, ok
}

// Groups returns all groups ordered by name, then id.
func (m *Manager) Groups() []*Group {
	out := make([]*Group, 0, len(m.groups))
	for _, g := range m.groups {
		out = append(out, g)
	}
	slices.SortFunc(out, func(a, b *Group) int {
		if c := strings.Compare(a.Name, b.Name); c != 0 {
			return c
		}
		return strings.Compare(a.ID.String(), b.ID.String())
	})
	return out
}

// Bounds returns the union of the member nodes' rectangles.
func (m *Manager) Bounds(gid uuid.UUID) (nodegraph.Rect, bool) {
	g, ok := m.groups[gid]
	if !ok {
		return nodegraph.Rect{}, false
	}
	var r nodegraph.Rect
	for _, n := range g.nodes {
		if b, ok := m.bounds.NodeBounds(n); ok {
			r = r.Union(b)
		}
	}
	return r, true
}

// Move translates every member by delta through the model's Position
// attribute, keeping the members' relative layout.
func (m *Manager) Move(gid uuid.UUID, delta nodegraph.Point) bool {
	g, ok := m.groups[gid]
	if !ok {
		return false
	}
	for _, n := range g.nodes {
		pos := nodegraph.NodeValue[nodegraph.Point](m.model, n, nodegraph.RolePosition)
		m.model.SetNodeData(n, nodegraph.RolePosition, pos.Add(delta))
	}
	return true
}

// Snapshot returns every group as a persistence record.
func (m *Manager) Snapshot() []nodegraph.GroupRecord {
	groups := m.Groups()
	out := make([]nodegraph.GroupRecord, len(groups))
	for i, g := range groups {
		out[i] = nodegraph.GroupRecord{ID: g.ID, Name: g.Name, Nodes: g.Nodes()}
	}
	return out
}

// RestoreRecords recreates groups from records whose nodes already exist in
// the model.
func (m *Manager) RestoreRecords(records []nodegraph.GroupRecord) error {
	for _, r := range records {
		if _, ok := m.create(r.ID, r.Nodes, r.Name); !ok {
			return fmt.Errorf("group: restore %s: invalid membership", r.ID)
		}
	}
	return nil
}
