package nodegraph

// Policy decides whether a connection may be created. Models consult their
// policy in ConnectionPossible; AddConnection itself only checks structure.
type Policy interface {
	ConnectionPossible(m Model, c ConnectionID) bool
}

// PolicyFunc adapts a function to Policy.
type PolicyFunc func(m Model, c ConnectionID) bool

func (f PolicyFunc) ConnectionPossible(m Model, c ConnectionID) bool { return f(m, c) }

// TypePolicy is the default policy. It accepts a connection when both
// endpoints exist, the ports are in range, the nodes differ, the connection
// is new, the two ports carry the same DataType id, and neither port is a
// One-policy port that is already occupied.
type TypePolicy struct{}

func (TypePolicy) ConnectionPossible(m Model, c ConnectionID) bool {
	if !structurallyPossible(m, c) {
		return false
	}
	outType := PortValue[DataType](m, c.OutNode, PortOut, c.OutPort, PortRoleDataType)
	inType := PortValue[DataType](m, c.InNode, PortIn, c.InPort, PortRoleDataType)
	if outType.ID != inType.ID {
		return false
	}
	return vacant(m, c, PortOut) && vacant(m, c, PortIn)
}

func structurallyPossible(m Model, c ConnectionID) bool {
	if !c.Complete() || c.OutNode == c.InNode {
		return false
	}
	if !m.NodeExists(c.OutNode) || !m.NodeExists(c.InNode) {
		return false
	}
	if uint(c.OutPort) >= PortCount(m, c.OutNode, PortOut) || uint(c.InPort) >= PortCount(m, c.InNode, PortIn) {
		return false
	}
	return !m.ConnectionExists(c)
}

func vacant(m Model, c ConnectionID, side PortType) bool {
	return len(occupants(m, c, side)) == 0
}

// occupants returns the connections blocking side of c under a One policy.
func occupants(m Model, c ConnectionID, side PortType) []ConnectionID {
	node, port := c.Node(side), c.Port(side)
	if PortValue[ConnectionPolicy](m, node, side, port, PortRoleConnectionPolicy) != PolicyOne {
		return nil
	}
	return m.Connections(node, side, port)
}

// ConnectReplacing adds c, first removing the connections that occupy a
// One-policy endpoint when that is the only obstacle. If c is still rejected
// the removed connections are restored. It reports whether c was added.
func ConnectReplacing(m Model, c ConnectionID) bool {
	if m.ConnectionPossible(c) {
		return m.AddConnection(c)
	}

	evicted := append(occupants(m, c, PortOut), occupants(m, c, PortIn)...)
	if len(evicted) == 0 {
		return false
	}
	for _, o := range evicted {
		if !m.DetachPossible(o) {
			return false
		}
	}
	for _, o := range evicted {
		m.DeleteConnection(o)
	}
	if m.ConnectionPossible(c) && m.AddConnection(c) {
		return true
	}
	for _, o := range evicted {
		m.AddConnection(o)
	}
	return false
}
