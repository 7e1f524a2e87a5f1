// Package comment implements nestable annotation regions. A comment owns a
// set of nodes and child comments; ownership is exclusive and re-derived from
// geometry whenever comments move, resize or change parent.
package comment

import (
	"log/slog"
	"math"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
)

// Layout constants, in scene units.
const (
	Padding       = 20
	HeaderHeight  = 30
	MinWidth      = 150
	MinHeight     = 100
	DefaultWidth  = 200
	DefaultHeight = 150
)

// Bounds reports a node's scene rectangle. *scene.Scene implements it.
type Bounds interface {
	NodeBounds(id nodegraph.NodeID) (nodegraph.Rect, bool)
}

// Comment is an annotation region.
type Comment struct {
	ID   uuid.UUID
	Text string
	Rect nodegraph.Rect

	parent   uuid.UUID
	nodes    []nodegraph.NodeID
	children []uuid.UUID
}

// Parent returns the parent comment, if any.
func (c *Comment) Parent() (uuid.UUID, bool) { return c.parent, c.parent != uuid.Nil }

// Nodes returns the direct member nodes.
func (c *Comment) Nodes() []nodegraph.NodeID { return slices.Clone(c.nodes) }

// Children returns the direct child comments.
func (c *Comment) Children() []uuid.UUID { return slices.Clone(c.children) }

// HasNode reports whether id is a direct member.
func (c *Comment) HasNode(id nodegraph.NodeID) bool { return slices.Contains(c.nodes, id) }

// HasChild reports whether id is a direct child.
func (c *Comment) HasChild(id uuid.UUID) bool { return slices.Contains(c.children, id) }

// Manager owns every comment of one model.
type Manager struct {
	model  nodegraph.Model
	bounds Bounds
	logger *slog.Logger

	comments map[uuid.UUID]*Comment
	owner    map[nodegraph.NodeID]uuid.UUID

	// Set while the manager moves nodes itself.
	moving bool

	unsubscribe func()
}

// Option configures a Manager.
type Option func(*Manager)

// WithLogger sets the manager's logger.
func WithLogger(l *slog.Logger) Option {
	return func(m *Manager) { m.logger = l }
}

// NewManager creates a manager for model. bounds must already be tracking
// the model so node rectangles are current when the manager is notified.
func NewManager(model nodegraph.Model, bounds Bounds, opts ...Option) *Manager {
	m := &Manager{
		model:    model,
		bounds:   bounds,
		logger:   slog.New(slog.DiscardHandler),
		comments: make(map[uuid.UUID]*Comment),
		owner:    make(map[nodegraph.NodeID]uuid.UUID),
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
		if cid, ok := m.owner[ev.Node]; ok {
			m.RemoveNode(cid, ev.Node)
		}
	case nodegraph.NodePositionUpdated, nodegraph.NodeUpdated, nodegraph.PortsInserted, nodegraph.PortsDeleted:
		if m.moving {
			return
		}
		// The node may now lie inside one of its owner's children.
		if cid, ok := m.owner[ev.Node]; ok {
			m.evict(cid)
		}
	case nodegraph.ModelReset:
		m.Reset()
	}
}

// Comment returns the comment with the given id.
func (m *Manager) Comment(id uuid.UUID) (*Comment, bool) {
	c, ok := m.comments[id]
	return c, ok
}

// CommentOf returns the comment that directly owns a node.
func (m *Manager) CommentOf(id nodegraph.NodeID) (uuid.UUID, bool) {
	cid, ok := m.owner[id]
	return cid, ok
}

// Comments returns every comment ordered by id.
func (m *Manager) Comments() []*Comment {
	out := make([]*Comment, 0, len(m.comments))
	for _, c := range m.comments {
		out = append(out, c)
	}
	slices.SortFunc(out, func(a, b *Comment) int { return strings.Compare(a.ID.String(), b.ID.String()) })
	return out
}

// Reset drops every comment.
func (m *Manager) Reset() {
	clear(m.comments)
	clear(m.owner)
}

// Create adds a comment covering rect. An empty rect gets the default size;
// smaller sizes are raised to the minimum. A comment created inside another
// becomes its child.
func (m *Manager) Create(text string, rect nodegraph.Rect) uuid.UUID {
	if rect.Empty() {
		rect.W, rect.H = DefaultWidth, DefaultHeight
	}
	c := m.newComment(uuid.New(), text, clampSize(rect))
	m.reparent(c.ID)
	return c.ID
}

func (m *Manager) newComment(id uuid.UUID, text string, rect nodegraph.Rect) *Comment {
	c := &Comment{ID: id, Text: text, Rect: rect}
	m.comments[id] = c
	return c
}

func clampSize(r nodegraph.Rect) nodegraph.Rect {
	r.W = max(r.W, MinWidth)
	r.H = max(r.H, MinHeight)
	return r
}

// CreateFromSelection wraps the selected nodes and comments in a new
// comment. Selected comments become its children; selected nodes move to
// it unless they already sit inside one of the selected comments.
func (m *Manager) CreateFromSelection(nodes []nodegraph.NodeID, comments []uuid.UUID) (uuid.UUID, bool) {
	comments = m.outermost(comments)

	var area nodegraph.Rect
	for _, n := range nodes {
		if b, ok := m.bounds.NodeBounds(n); ok {
			area = area.Union(b)
		}
	}
	for _, cid := range comments {
		area = area.Union(m.comments[cid].Rect)
	}
	if area.Empty() {
		return uuid.Nil, false
	}

	c := m.newComment(uuid.New(), "", clampSize(pad(area)))

	inSelection := make(map[uuid.UUID]bool)
	for _, cid := range comments {
		for _, d := range m.subtree(cid) {
			inSelection[d] = true
		}
		m.AddChildComment(c.ID, cid)
	}
	for _, n := range nodes {
		if owner, ok := m.owner[n]; ok {
			if inSelection[owner] {
				continue
			}
			m.RemoveNode(owner, n)
		}
		m.AddNode(c.ID, n)
	}

	m.reparent(c.ID)
	return c.ID, true
}

// outermost filters ids down to existing comments that have no ancestor in
// the same list.
func (m *Manager) outermost(ids []uuid.UUID) []uuid.UUID {
	set := make(map[uuid.UUID]bool, len(ids))
	for _, id := range ids {
		if _, ok := m.comments[id]; ok {
			set[id] = true
		}
	}
	var out []uuid.UUID
	for _, id := range ids {
		if !set[id] {
			continue
		}
		covered := false
		for p := m.comments[id].parent; p != uuid.Nil; p = m.comments[p].parent {
			if set[p] {
				covered = true
				break
			}
		}
		if !covered && !slices.Contains(out, id) {
			out = append(out, id)
		}
	}
	return out
}

// Delete removes a comment. Its children move to its parent, or become
// top-level; its nodes are released.
func (m *Manager) Delete(id uuid.UUID) bool {
	c, ok := m.comments[id]
	if !ok {
		return false
	}
	for _, n := range c.nodes {
		delete(m.owner, n)
	}
	parent := c.parent
	if parent != uuid.Nil {
		p := m.comments[parent]
		p.children = slices.DeleteFunc(p.children, func(x uuid.UUID) bool { return x == id })
	}
	for _, child := range c.children {
		m.comments[child].parent = uuid.Nil
		if parent != uuid.Nil {
			m.attach(parent, child)
		}
	}
	delete(m.comments, id)

	if parent != uuid.Nil {
		m.recomputeUp(parent)
	}
	return true
}

// SetText replaces a comment's text.
func (m *Manager) SetText(id uuid.UUID, text string) bool {
	c, ok := m.comments[id]
	if !ok {
		return false
	}
	c.Text = text
	return true
}

// AddNode makes a node a direct member. It is rejected when the node is
// missing, belongs to any other comment, or lies inside one of this
// comment's children.
func (m *Manager) AddNode(id uuid.UUID, n nodegraph.NodeID) bool {
	c, ok := m.comments[id]
	if !ok || !m.model.NodeExists(n) {
		return false
	}
	if owner, owned := m.owner[n]; owned {
		if owner != id {
			m.logger.Debug("comment add node rejected: owned elsewhere", "node", n, "owner", owner)
		}
		return false
	}
	if m.insideChild(c, n) {
		m.logger.Debug("comment add node rejected: inside child", "node", n, "comment", id)
		return false
	}
	c.nodes = append(c.nodes, n)
	m.owner[n] = id
	m.recomputeUp(id)
	return true
}

// RemoveNode drops a direct member.
func (m *Manager) RemoveNode(id uuid.UUID, n nodegraph.NodeID) bool {
	if m.owner[n] != id || id == uuid.Nil {
		return false
	}
	m.detachNode(id, n)
	m.recomputeUp(id)
	return true
}

func (m *Manager) detachNode(id uuid.UUID, n nodegraph.NodeID) {
	if c, ok := m.comments[id]; ok {
		c.nodes = slices.DeleteFunc(c.nodes, func(x nodegraph.NodeID) bool { return x == n })
	}
	delete(m.owner, n)
}

// AddChildComment nests child under parent, detaching it from any previous
// parent. Parent members that lie inside the child are evicted. Nesting a
// comment under itself or one of its descendants is rejected.
func (m *Manager) AddChildComment(parent, child uuid.UUID) bool {
	p, ok := m.comments[parent]
	if !ok {
		return false
	}
	c, ok := m.comments[child]
	if !ok || c.parent == parent || slices.Contains(m.subtree(child), parent) {
		return false
	}
	if c.parent != uuid.Nil {
		m.unlink(c.parent, child)
	}
	m.attach(p.ID, child)
	m.recomputeUp(parent)
	return true
}

// RemoveChildComment un-nests child. Parent members still lying inside the
// child's rectangle are purged from the parent as well.
func (m *Manager) RemoveChildComment(parent, child uuid.UUID) bool {
	p, ok := m.comments[parent]
	if !ok || !p.HasChild(child) {
		return false
	}
	rect := m.comments[child].Rect
	m.unlink(parent, child)
	for _, n := range p.Nodes() {
		if b, ok := m.bounds.NodeBounds(n); ok && rect.Contains(b) {
			m.detachNode(parent, n)
		}
	}
	m.recomputeUp(parent)
	return true
}

func (m *Manager) attach(parent, child uuid.UUID) {
	p := m.comments[parent]
	p.children = append(p.children, child)
	m.comments[child].parent = parent
	m.evict(parent)
}

func (m *Manager) unlink(parent, child uuid.UUID) {
	p := m.comments[parent]
	p.children = slices.DeleteFunc(p.children, func(x uuid.UUID) bool { return x == child })
	m.comments[child].parent = uuid.Nil
}

// Move translates a comment, every comment nested in it and all of their
// member nodes by delta, then re-derives the comment's parent from geometry.
func (m *Manager) Move(id uuid.UUID, delta nodegraph.Point) bool {
	if _, ok := m.comments[id]; !ok {
		return false
	}

	var nodes []nodegraph.NodeID
	for _, cid := range m.subtree(id) {
		c := m.comments[cid]
		c.Rect = c.Rect.Translate(delta)
		nodes = append(nodes, c.nodes...)
	}

	m.moving = true
	for _, n := range nodes {
		pos := nodegraph.NodeValue[nodegraph.Point](m.model, n, nodegraph.RolePosition)
		m.model.SetNodeData(n, nodegraph.RolePosition, pos.Add(delta))
	}
	m.moving = false

	m.reparent(id)
	if p := m.comments[id].parent; p != uuid.Nil {
		m.evict(p)
	}
	return true
}

// Resize sets a comment's size, keeping its origin. Free nodes that now lie
// inside it, and outside its children, are adopted.
func (m *Manager) Resize(id uuid.UUID, size nodegraph.Size) bool {
	c, ok := m.comments[id]
	if !ok {
		return false
	}
	c.Rect = clampSize(nodegraph.Rect{X: c.Rect.X, Y: c.Rect.Y, W: size.W, H: size.H})

	for _, n := range m.model.AllNodeIDs() {
		if _, owned := m.owner[n]; owned {
			continue
		}
		b, ok := m.bounds.NodeBounds(n)
		if ok && c.Rect.Contains(b) && !m.insideChild(c, n) {
			c.nodes = append(c.nodes, n)
			m.owner[n] = id
		}
	}

	m.reparent(id)
	if p := c.parent; p != uuid.Nil {
		m.evict(p)
	}
	return true
}

// subtree returns id followed by all of its descendants, walked with an
// explicit stack.
func (m *Manager) subtree(id uuid.UUID) []uuid.UUID {
	var out []uuid.UUID
	stack := []uuid.UUID{id}
	for len(stack) > 0 {
		cid := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		c, ok := m.comments[cid]
		if !ok {
			continue
		}
		out = append(out, cid)
		stack = append(stack, c.children...)
	}
	return out
}

// reparent attaches id to the smallest other comment containing it, or
// detaches it when none does. Its own descendants are never candidates.
func (m *Manager) reparent(id uuid.UUID) {
	c := m.comments[id]
	excluded := make(map[uuid.UUID]bool)
	for _, d := range m.subtree(id) {
		excluded[d] = true
	}

	best, bestArea := uuid.Nil, math.Inf(1)
	for oid, o := range m.comments {
		if excluded[oid] || !o.Rect.Contains(c.Rect) {
			continue
		}
		area := o.Rect.Area()
		if area < bestArea || (area == bestArea && oid.String() < best.String()) {
			best, bestArea = oid, area
		}
	}

	if best == c.parent {
		return
	}
	if c.parent != uuid.Nil {
		m.unlink(c.parent, id)
	}
	if best != uuid.Nil {
		m.attach(best, id)
	}
}

// evict drops direct members of id that lie inside one of its children.
func (m *Manager) evict(id uuid.UUID) {
	c, ok := m.comments[id]
	if !ok {
		return
	}
	for _, n := range c.Nodes() {
		if m.insideChild(c, n) {
			m.detachNode(id, n)
		}
	}
}

func (m *Manager) insideChild(c *Comment, n nodegraph.NodeID) bool {
	b, ok := m.bounds.NodeBounds(n)
	if !ok {
		return false
	}
	for _, child := range c.children {
		if m.comments[child].Rect.Contains(b) {
			return true
		}
	}
	return false
}

// recomputeUp refits id to its contents, then each ancestor in turn, evicting
// ancestor members that a refitted child now covers.
func (m *Manager) recomputeUp(id uuid.UUID) {
	for id != uuid.Nil {
		c := m.comments[id]
		m.refit(c)
		if c.parent != uuid.Nil {
			m.evict(c.parent)
		}
		id = c.parent
	}
}

// refit sets the rectangle to the union of member nodes and children plus
// padding and header. A comment with no contents keeps its rectangle.
func (m *Manager) refit(c *Comment) {
	var content nodegraph.Rect
	for _, n := range c.nodes {
		if b, ok := m.bounds.NodeBounds(n); ok {
			content = content.Union(b)
		}
	}
	for _, child := range c.children {
		content = content.Union(m.comments[child].Rect)
	}
	if content.Empty() {
		return
	}
	c.Rect = clampSize(pad(content))
}

func pad(r nodegraph.Rect) nodegraph.Rect {
	return r.Adjust(Padding, Padding+HeaderHeight, Padding, Padding)
}
