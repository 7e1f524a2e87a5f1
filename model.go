package nodegraph

import "errors"

var (
	ErrNodeNotFound      = errors.New("nodegraph: node not found")
	ErrNodeExists        = errors.New("nodegraph: node already exists")
	ErrUnknownNodeType   = errors.New("nodegraph: unknown node type")
	ErrDuplicateNodeType = errors.New("nodegraph: node type already registered")
	ErrInvalidConnection = errors.New("nodegraph: invalid connection")
	ErrCycleDetected     = errors.New("nodegraph: cycle detected, graph is not acyclic")
	ErrSceneNotFound     = errors.New("nodegraph: scene not found")
)

// Model is the system of record for graph structure and attributes.
//
// Reads with unknown ids return zero values instead of failing; mutations on
// unknown ids are no-ops that return false. Every successful mutation
// publishes an Event to the model's listeners before returning.
type Model interface {
	// Subscribe registers a listener for change events.
	Subscribe(fn Listener) (unsubscribe func())

	AllNodeIDs() []NodeID
	NodeExists(id NodeID) bool
	AddNode(nodeType string) NodeID
	DeleteNode(id NodeID) bool

	// AllConnectionIDs returns the connections incident to a node in either direction.
	AllConnectionIDs(id NodeID) []ConnectionID
	// Connections returns the connections attached to a single port.
	Connections(id NodeID, t PortType, port PortIndex) []ConnectionID
	ConnectionExists(c ConnectionID) bool
	// ConnectionPossible applies the model's connection policy.
	ConnectionPossible(c ConnectionID) bool
	// DetachPossible reports whether an existing connection may be pulled off a port.
	DetachPossible(c ConnectionID) bool
	// AddConnection inserts c. Only structural validity is checked; the
	// connection policy is the caller's to consult, so explicit overrides work.
	AddConnection(c ConnectionID) bool
	DeleteConnection(c ConnectionID) bool

	NodeData(id NodeID, role NodeRole) any
	SetNodeData(id NodeID, role NodeRole, value any) bool
	NodeFlags(id NodeID) NodeFlags
	PortData(id NodeID, t PortType, port PortIndex, role PortRole) any
	SetPortData(id NodeID, t PortType, port PortIndex, role PortRole, value any) bool

	// InsertPorts adds last-first+1 ports at position first, re-homing
	// connections on later ports.
	InsertPorts(id NodeID, t PortType, first, last PortIndex) bool
	// DeletePorts removes ports [first, last], dropping their connections and
	// re-homing connections on later ports.
	DeletePorts(id NodeID, t PortType, first, last PortIndex) bool

	SaveNode(id NodeID) NodeDocument
	LoadNode(doc NodeDocument) error
	SaveConnection(c ConnectionID) ConnectionDocument
	LoadConnection(doc ConnectionDocument) bool
}

// NodeValue reads a node attribute as T, returning T's zero value when the
// node or attribute is missing or of another type.
func NodeValue[T any](m Model, id NodeID, role NodeRole) T {
	v, _ := m.NodeData(id, role).(T)
	return v
}

// PortValue reads a port attribute as T.
func PortValue[T any](m Model, id NodeID, t PortType, port PortIndex, role PortRole) T {
	v, _ := m.PortData(id, t, port, role).(T)
	return v
}

// PortCount returns the number of ports on one side of a node.
func PortCount(m Model, id NodeID, t PortType) uint {
	return NodeValue[uint](m, id, PortCountRole(t))
}
