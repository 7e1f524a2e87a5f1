package group

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/meikuraledutech/nodegraph"
)

// Document is a self-contained copy of a group: its nodes and the
// connections running between them.
type Document struct {
	ID          uuid.UUID                      `json:"id"`
	Name        string                         `json:"name"`
	Nodes       []nodegraph.NodeDocument       `json:"nodes"`
	Connections []nodegraph.ConnectionDocument `json:"connections"`
}

// Save serializes a group. Connections with an endpoint outside the group
// are left out.
func (m *Manager) Save(gid uuid.UUID) (*Document, bool) {
	g, ok := m.groups[gid]
	if !ok {
		return nil, false
	}
	doc := &Document{
		ID:          g.ID,
		Name:        g.Name,
		Nodes:       []nodegraph.NodeDocument{},
		Connections: []nodegraph.ConnectionDocument{},
	}
	for _, n := range g.nodes {
		doc.Nodes = append(doc.Nodes, m.model.SaveNode(n))
		for _, c := range m.model.AllConnectionIDs(n) {
			if c.OutNode == n && g.Contains(c.InNode) {
				doc.Connections = append(doc.Connections, m.model.SaveConnection(c))
			}
		}
	}
	return doc, true
}

// Restore recreates a saved group with freshly allocated node ids, offset
// by delta. It returns the new group's id and the old-to-new id mapping.
func (m *Manager) Restore(doc *Document, delta nodegraph.Point) (uuid.UUID, map[nodegraph.NodeID]nodegraph.NodeID, error) {
	mapping := make(map[nodegraph.NodeID]nodegraph.NodeID, len(doc.Nodes))
	created := make([]nodegraph.NodeID, 0, len(doc.Nodes))
	for _, nd := range doc.Nodes {
		id := m.model.AddNode(nd.Type)
		if !id.Valid() {
			return uuid.Nil, nil, fmt.Errorf("group: restore node %d: %w: %q", nd.ID, nodegraph.ErrUnknownNodeType, nd.Type)
		}
		nd.Position = nd.Position.Add(delta)
		copyNode(m.model, id, nd)
		mapping[nd.ID] = id
		created = append(created, id)
	}

	for _, cd := range doc.Connections {
		out, okOut := mapping[cd.OutNodeID]
		in, okIn := mapping[cd.InNodeID]
		if !okOut || !okIn {
			continue
		}
		c := nodegraph.ConnectionID{OutNode: out, OutPort: cd.OutPortIndex, InNode: in, InPort: cd.InPortIndex}
		if !m.model.AddConnection(c) {
			m.logger.Debug("restore group: connection dropped", "connection", c.String())
		}
	}

	gid, ok := m.Create(created, doc.Name)
	if !ok {
		return uuid.Nil, nil, fmt.Errorf("group: restore %q: could not create group", doc.Name)
	}
	return gid, mapping, nil
}

// copyNode applies a saved node's attributes to a freshly created node.
func copyNode(m nodegraph.Model, id nodegraph.NodeID, nd nodegraph.NodeDocument) {
	m.SetNodeData(id, nodegraph.RolePosition, nd.Position)
	if !nd.Size.Empty() {
		m.SetNodeData(id, nodegraph.RoleSize, nd.Size)
	}
	if nd.Caption != "" {
		m.SetNodeData(id, nodegraph.RoleCaption, nd.Caption)
	}
	if nd.CaptionVisible != nil {
		m.SetNodeData(id, nodegraph.RoleCaptionVisible, *nd.CaptionVisible)
	}
	if nd.Internal != nil {
		m.SetNodeData(id, nodegraph.RoleInternalData, nd.Internal)
	}
	copyPorts(m, id, nodegraph.PortIn, nd.In)
	copyPorts(m, id, nodegraph.PortOut, nd.Out)
	if nd.Flags != nodegraph.NoFlags {
		m.SetNodeData(id, nodegraph.RoleFlags, nd.Flags)
	}
}

func copyPorts(m nodegraph.Model, id nodegraph.NodeID, t nodegraph.PortType, ports []nodegraph.PortDocument) {
	if ports == nil {
		return
	}
	m.SetNodeData(id, nodegraph.PortCountRole(t), uint(len(ports)))
	for i, p := range ports {
		idx := nodegraph.PortIndex(i)
		m.SetPortData(id, t, idx, nodegraph.PortRoleDataType, p.DataType)
		m.SetPortData(id, t, idx, nodegraph.PortRoleConnectionPolicy, p.Policy)
		m.SetPortData(id, t, idx, nodegraph.PortRoleCaption, p.Caption)
		m.SetPortData(id, t, idx, nodegraph.PortRoleCaptionVisible, p.CaptionVisible)
	}
}
