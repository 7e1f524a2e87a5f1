// Package workspace ties a graph to its scene, groups, comments and edit
// history, and serializes access to all of them.
package workspace

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
	"github.com/meikuraledutech/nodegraph/comment"
	"github.com/meikuraledutech/nodegraph/group"
	"github.com/meikuraledutech/nodegraph/history"
	"github.com/meikuraledutech/nodegraph/scene"
)

// ErrInvalidSelection is returned when a group or comment cannot be built
// from the given nodes.
var ErrInvalidSelection = errors.New("workspace: invalid selection")

// Workspace is safe for concurrent use. Components reached through View
// must not be retained outside the callback.
type Workspace struct {
	mu sync.Mutex

	graph    *nodegraph.Graph
	scene    *scene.Scene
	groups   *group.Manager
	comments *comment.Manager
	history  *history.Stack
	logger   *slog.Logger
}

type options struct {
	graph   []nodegraph.Option
	scene   []scene.Option
	history []history.Option
	logger  *slog.Logger
}

// Option configures a Workspace.
type Option func(*options)

// WithRegistry restricts node creation to registered types.
func WithRegistry(r *nodegraph.Registry) Option {
	return func(o *options) { o.graph = append(o.graph, nodegraph.WithRegistry(r)) }
}

// WithPolicy sets the graph's connection policy.
func WithPolicy(p nodegraph.Policy) Option {
	return func(o *options) { o.graph = append(o.graph, nodegraph.WithPolicy(p)) }
}

// WithGeometry sets the scene's geometry provider.
func WithGeometry(g scene.Geometry) Option {
	return func(o *options) { o.scene = append(o.scene, scene.WithGeometry(g)) }
}

// WithHistoryLimit bounds the undo depth.
func WithHistoryLimit(n int) Option {
	return func(o *options) { o.history = append(o.history, history.WithLimit(n)) }
}

// WithLogger sets the logger shared by every component.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// New creates an empty workspace.
func New(opts ...Option) *Workspace {
	o := &options{logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(o)
	}
	l := o.logger

	g := nodegraph.NewGraph(append(o.graph, nodegraph.WithLogger(l.With("component", "graph")))...)
	// The scene subscribes first so node bounds are current when the group
	// and comment managers see the same event.
	s := scene.New(g, append(o.scene, scene.WithLogger(l.With("component", "scene")))...)
	return &Workspace{
		graph:    g,
		scene:    s,
		groups:   group.NewManager(g, s, group.WithLogger(l.With("component", "group"))),
		comments: comment.NewManager(g, s, comment.WithLogger(l.With("component", "comment"))),
		history:  history.NewStack(append(o.history, history.WithLogger(l.With("component", "history")))...),
		logger:   l,
	}
}

// View is the set of components handed to Read and Write callbacks.
type View struct {
	Graph    *nodegraph.Graph
	Scene    *scene.Scene
	Groups   *group.Manager
	Comments *comment.Manager
	History  *history.Stack
}

func (w *Workspace) view() View {
	return View{Graph: w.graph, Scene: w.scene, Groups: w.groups, Comments: w.comments, History: w.history}
}

// Read runs fn with the workspace locked.
func (w *Workspace) Read(fn func(View)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	fn(w.view())
}

// Write runs fn with the workspace locked. Edits made directly through the
// view bypass the history, so the history is cleared afterwards.
func (w *Workspace) Write(fn func(View) error) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	err := fn(w.view())
	w.history.Clear()
	return err
}

// Document captures the whole workspace.
func (w *Workspace) Document() *nodegraph.Document {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.document()
}

func (w *Workspace) document() *nodegraph.Document {
	doc := nodegraph.Save(w.graph)
	doc.Groups = w.groups.Snapshot()
	doc.Comments = w.comments.Snapshot()
	return doc
}

// Load replaces the workspace contents with doc. On failure the workspace is
// left empty.
func (w *Workspace) Load(doc *nodegraph.Document) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.history.Clear()
	w.graph.Reset()
	if err := w.load(doc); err != nil {
		w.graph.Reset()
		return err
	}
	w.logger.Info("workspace loaded", "nodes", len(doc.Nodes), "connections", len(doc.Connections),
		"groups", len(doc.Groups), "comments", len(doc.Comments))
	return nil
}

func (w *Workspace) load(doc *nodegraph.Document) error {
	if err := nodegraph.Load(w.graph, doc); err != nil {
		return err
	}
	if err := w.groups.RestoreRecords(doc.Groups); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	if err := w.comments.RestoreRecords(doc.Comments); err != nil {
		return fmt.Errorf("workspace: %w", err)
	}
	return nil
}

// Reset empties the workspace.
func (w *Workspace) Reset() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.history.Clear()
	w.graph.Reset()
}

// CreateNode adds a node and records it in the history.
func (w *Workspace) CreateNode(nodeType string, at nodegraph.Point) (nodegraph.NodeID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	cmd := &history.CreateNode{Model: w.graph, Type: nodeType, Position: at}
	if err := w.history.Push(cmd); err != nil {
		return nodegraph.InvalidNodeID, err
	}
	return cmd.ID(), nil
}

// DeleteNodes deletes nodes and their connections. Undo restores their
// group and comment membership.
func (w *Workspace) DeleteNodes(ids ...nodegraph.NodeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Push(&deleteNodes{
		DeleteSelection: &history.DeleteSelection{Model: w.graph, Nodes: ids},
		groups:          w.groups,
		comments:        w.comments,
	})
}

// MoveNodes offsets nodes by delta.
func (w *Workspace) MoveNodes(delta nodegraph.Point, ids ...nodegraph.NodeID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Push(&history.MoveNodes{Model: w.graph, Nodes: ids, Delta: delta})
}

// SetNodePosition moves one node to an absolute position.
func (w *Workspace) SetNodePosition(id nodegraph.NodeID, to nodegraph.Point) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.graph.NodeExists(id) {
		return fmt.Errorf("workspace: move %d: %w", id, nodegraph.ErrNodeNotFound)
	}
	from := nodegraph.NodeValue[nodegraph.Point](w.graph, id, nodegraph.RolePosition)
	return w.history.Push(&history.MoveNodes{Model: w.graph, Nodes: []nodegraph.NodeID{id}, Delta: to.Sub(from)})
}

// Connect adds c, replacing occupants of single-connection ports.
func (w *Workspace) Connect(c nodegraph.ConnectionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Push(&history.Connect{Model: w.graph, ID: c})
}

// Disconnect removes c.
func (w *Workspace) Disconnect(c nodegraph.ConnectionID) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Push(&history.Disconnect{Model: w.graph, ID: c})
}

// InsertPorts runs the port insertion protocol. Connection ids held by
// recorded commands go stale, so the history is cleared.
func (w *Workspace) InsertPorts(id nodegraph.NodeID, t nodegraph.PortType, first, last nodegraph.PortIndex) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.graph.NodeExists(id) {
		return fmt.Errorf("workspace: insert ports on %d: %w", id, nodegraph.ErrNodeNotFound)
	}
	if !w.graph.InsertPorts(id, t, first, last) {
		return fmt.Errorf("workspace: insert ports [%d,%d] on %d: %w", first, last, id, ErrInvalidSelection)
	}
	w.history.Clear()
	return nil
}

// DeletePorts runs the port deletion protocol.
func (w *Workspace) DeletePorts(id nodegraph.NodeID, t nodegraph.PortType, first, last nodegraph.PortIndex) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if !w.graph.NodeExists(id) {
		return fmt.Errorf("workspace: delete ports on %d: %w", id, nodegraph.ErrNodeNotFound)
	}
	if !w.graph.DeletePorts(id, t, first, last) {
		return fmt.Errorf("workspace: delete ports [%d,%d] on %d: %w", first, last, id, ErrInvalidSelection)
	}
	w.history.Clear()
	return nil
}

// CreateGroup groups nodes under name.
func (w *Workspace) CreateGroup(name string, nodes ...nodegraph.NodeID) (uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	gid, ok := w.groups.Create(nodes, name)
	if !ok {
		return uuid.Nil, fmt.Errorf("workspace: group %q: %w", name, ErrInvalidSelection)
	}
	return gid, nil
}

// CreateComment adds a comment. With nodes or comments it wraps them,
// otherwise it covers rect.
func (w *Workspace) CreateComment(text string, rect nodegraph.Rect, nodes []nodegraph.NodeID, comments []uuid.UUID) (uuid.UUID, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(nodes) == 0 && len(comments) == 0 {
		return w.comments.Create(text, rect), nil
	}
	cid, ok := w.comments.CreateFromSelection(nodes, comments)
	if !ok {
		return uuid.Nil, fmt.Errorf("workspace: comment: %w", ErrInvalidSelection)
	}
	w.comments.SetText(cid, text)
	return cid, nil
}

// Undo reverts the last recorded edit.
func (w *Workspace) Undo() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Undo()
}

// Redo re-applies the last undone edit.
func (w *Workspace) Redo() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.history.Redo()
}

// Close detaches every component from the graph.
func (w *Workspace) Close() {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.comments.Close()
	w.groups.Close()
	w.scene.Close()
}
