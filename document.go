package nodegraph

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
)

// PortDocument is the persisted form of one port.
type PortDocument struct {
	DataType       DataType         `json:"dataType"`
	Policy         ConnectionPolicy `json:"policy"`
	Caption        string           `json:"caption,omitempty"`
	CaptionVisible bool             `json:"captionVisible,omitempty"`
}

// NodeDocument is the persisted form of a node. A nil port list means "not
// recorded": loading then falls back to the registry spec for that side.
type NodeDocument struct {
	ID             NodeID          `json:"id"`
	Type           string          `json:"type,omitempty"`
	Position       Point           `json:"position"`
	Size           Size            `json:"size,omitzero"`
	Caption        string          `json:"caption,omitempty"`
	CaptionVisible *bool           `json:"captionVisible,omitempty"`
	Flags          NodeFlags       `json:"flags,omitempty"`
	In             []PortDocument  `json:"inPorts"`
	Out            []PortDocument  `json:"outPorts"`
	Internal       json.RawMessage `json:"internal-data,omitempty"`
}

// ConnectionDocument is the persisted form of a connection. The In node is
// written as "intNodeId" for compatibility with existing files; "inNodeId" is
// accepted on input.
type ConnectionDocument struct {
	OutNodeID    NodeID    `json:"outNodeId"`
	OutPortIndex PortIndex `json:"outPortIndex"`
	InNodeID     NodeID    `json:"intNodeId"`
	InPortIndex  PortIndex `json:"inPortIndex"`
}

func (d *ConnectionDocument) UnmarshalJSON(b []byte) error {
	var raw struct {
		OutNodeID    NodeID    `json:"outNodeId"`
		OutPortIndex PortIndex `json:"outPortIndex"`
		IntNodeID    *NodeID   `json:"intNodeId"`
		InNodeID     *NodeID   `json:"inNodeId"`
		InPortIndex  PortIndex `json:"inPortIndex"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	in := InvalidNodeID
	switch {
	case raw.IntNodeID != nil:
		in = *raw.IntNodeID
	case raw.InNodeID != nil:
		in = *raw.InNodeID
	}
	*d = ConnectionDocument{
		OutNodeID:    raw.OutNodeID,
		OutPortIndex: raw.OutPortIndex,
		InNodeID:     in,
		InPortIndex:  raw.InPortIndex,
	}
	return nil
}

// ConnectionID returns the 4-tuple the document describes.
func (d ConnectionDocument) ConnectionID() ConnectionID {
	return ConnectionID{OutNode: d.OutNodeID, OutPort: d.OutPortIndex, InNode: d.InNodeID, InPort: d.InPortIndex}
}

// GroupRecord is the persisted form of a node group.
type GroupRecord struct {
	ID    uuid.UUID `json:"id"`
	Name  string    `json:"name"`
	Nodes []NodeID  `json:"nodes"`
}

// CommentRecord is the persisted form of a comment. Parent is uuid.Nil for
// top-level comments.
type CommentRecord struct {
	ID       uuid.UUID   `json:"id"`
	Text     string      `json:"text"`
	Rect     Rect        `json:"rect"`
	Parent   uuid.UUID   `json:"parent"`
	Nodes    []NodeID    `json:"nodes"`
	Children []uuid.UUID `json:"children"`
}

// Document is a whole saved scene.
type Document struct {
	Nodes       []NodeDocument       `json:"nodes"`
	Connections []ConnectionDocument `json:"connections"`
	Groups      []GroupRecord        `json:"groups,omitempty"`
	Comments    []CommentRecord      `json:"comments,omitempty"`
}

// Save captures every node and connection of m. Groups and comments are
// filled in by their owners.
func Save(m Model) *Document {
	doc := &Document{
		Nodes:       []NodeDocument{},
		Connections: []ConnectionDocument{},
	}
	for _, id := range m.AllNodeIDs() {
		doc.Nodes = append(doc.Nodes, m.SaveNode(id))
		for _, c := range m.AllConnectionIDs(id) {
			// Each connection is listed once, from its Out node.
			if c.OutNode == id {
				doc.Connections = append(doc.Connections, m.SaveConnection(c))
			}
		}
	}
	return doc
}

// Load restores doc's nodes, then its connections, into m.
func Load(m Model, doc *Document) error {
	for _, n := range doc.Nodes {
		if err := m.LoadNode(n); err != nil {
			return fmt.Errorf("nodegraph: load node %d: %w", n.ID, err)
		}
	}
	for _, c := range doc.Connections {
		if !m.LoadConnection(c) {
			return fmt.Errorf("%w: %s", ErrInvalidConnection, c.ConnectionID())
		}
	}
	return nil
}

// SaveNode implements Model. An unknown id yields a document with
// InvalidNodeID.
func (g *Graph) SaveNode(id NodeID) NodeDocument {
	rec, ok := g.nodes[id]
	if !ok {
		return NodeDocument{ID: InvalidNodeID}
	}
	visible := rec.captionVisible
	return NodeDocument{
		ID:             id,
		Type:           rec.typ,
		Position:       rec.pos,
		Size:           rec.size,
		Caption:        rec.caption,
		CaptionVisible: &visible,
		Flags:          rec.flags,
		In:             savePorts(rec.ports[PortIn]),
		Out:            savePorts(rec.ports[PortOut]),
		Internal:       rec.internal,
	}
}

func savePorts(ports []portRecord) []PortDocument {
	out := make([]PortDocument, len(ports))
	for i, p := range ports {
		out[i] = PortDocument{
			DataType:       p.dataType,
			Policy:         p.policy,
			Caption:        p.caption,
			CaptionVisible: p.captionVisible,
		}
	}
	return out
}

// LoadNode restores a node under its saved id and advances the id counter
// past it.
func (g *Graph) LoadNode(doc NodeDocument) error {
	if !doc.ID.Valid() {
		return fmt.Errorf("%w: invalid id", ErrNodeNotFound)
	}
	if g.NodeExists(doc.ID) {
		return ErrNodeExists
	}
	if len(doc.In) > MaxPorts || len(doc.Out) > MaxPorts {
		return fmt.Errorf("nodegraph: node %d: more than %d ports on one side", doc.ID, MaxPorts)
	}

	rec := &nodeRecord{typ: doc.Type, captionVisible: true}
	if g.registry != nil {
		spec, ok := g.registry.Lookup(doc.Type)
		switch {
		case ok:
			applySpec(rec, spec)
		case doc.In == nil || doc.Out == nil:
			return fmt.Errorf("%w: %q", ErrUnknownNodeType, doc.Type)
		}
	}

	rec.pos = doc.Position
	rec.size = doc.Size
	if doc.Caption != "" {
		rec.caption = doc.Caption
	}
	if doc.CaptionVisible != nil {
		rec.captionVisible = *doc.CaptionVisible
	}
	if doc.Flags != NoFlags {
		rec.flags = doc.Flags
	}
	rec.internal = doc.Internal
	if doc.In != nil {
		rec.ports[PortIn] = loadPorts(doc.In)
	}
	if doc.Out != nil {
		rec.ports[PortOut] = loadPorts(doc.Out)
	}

	g.nodes[doc.ID] = rec
	// doc.ID is valid, so the counter saturates at InvalidNodeID.
	g.nextID = max(g.nextID, doc.ID+1)
	g.bus.Publish(Event{Kind: NodeCreated, Node: doc.ID})
	return nil
}

func loadPorts(docs []PortDocument) []portRecord {
	out := make([]portRecord, len(docs))
	for i, d := range docs {
		out[i] = portRecord{
			dataType:       d.DataType,
			policy:         d.Policy,
			caption:        d.Caption,
			captionVisible: d.CaptionVisible,
		}
	}
	return out
}

// SaveConnection implements Model.
func (g *Graph) SaveConnection(c ConnectionID) ConnectionDocument {
	return ConnectionDocument{OutNodeID: c.OutNode, OutPortIndex: c.OutPort, InNodeID: c.InNode, InPortIndex: c.InPort}
}

// LoadConnection re-adds a saved connection.
func (g *Graph) LoadConnection(doc ConnectionDocument) bool {
	return g.AddConnection(doc.ConnectionID())
}
