package nodegraph

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newNode adds an untyped node with the given port counts.
func newNode(t *testing.T, g *Graph, in, out uint) NodeID {
	t.Helper()
	id := g.AddNode("test")
	require.True(t, id.Valid())
	require.True(t, g.SetNodeData(id, RoleInPortCount, in))
	require.True(t, g.SetNodeData(id, RoleOutPortCount, out))
	return id
}

// recordKinds subscribes to g and collects event kinds.
func recordKinds(g *Graph) *[]EventKind {
	var kinds []EventKind
	g.Subscribe(func(ev Event) { kinds = append(kinds, ev.Kind) })
	return &kinds
}

func TestGraph_BasicConnect(t *testing.T) {
	g := NewGraph()
	a := g.AddNode("")
	b := g.AddNode("")
	require.Equal(t, NodeID(0), a)
	require.Equal(t, NodeID(1), b)

	for _, id := range []NodeID{a, b} {
		require.True(t, g.SetNodeData(id, RoleInPortCount, uint(1)))
		require.True(t, g.SetNodeData(id, RoleOutPortCount, uint(1)))
	}

	c := ConnectionID{OutNode: 0, OutPort: 0, InNode: 1, InPort: 0}
	require.True(t, g.ConnectionPossible(c))
	require.True(t, g.AddConnection(c))
	assert.True(t, g.ConnectionExists(c))

	require.True(t, g.DeleteNode(0))
	assert.False(t, g.ConnectionExists(c))
	assert.False(t, g.NodeExists(0))
	assert.Empty(t, g.AllConnectionIDs(1))
}

func TestGraph_AddNodeIDsAreUnique(t *testing.T) {
	g := NewGraph()
	seen := make(map[NodeID]bool)
	for i := 0; i < 50; i++ {
		id := g.AddNode("test")
		require.False(t, seen[id], "duplicate id %d", id)
		seen[id] = true
		if i%5 == 0 {
			g.DeleteNode(id)
		}
	}
	// Deleted ids are not reused.
	assert.Equal(t, NodeID(50), g.AddNode("test"))
}

func TestGraph_AddConnectionRejectsDuplicatesAndBadEndpoints(t *testing.T) {
	g := NewGraph()
	a := newNode(t, g, 0, 1)
	b := newNode(t, g, 1, 0)
	c := ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}

	require.True(t, g.AddConnection(c))
	assert.False(t, g.AddConnection(c))
	assert.Len(t, g.AllConnectionIDs(a), 1)

	assert.False(t, g.AddConnection(ConnectionID{OutNode: a, OutPort: 1, InNode: b, InPort: 0}))
	assert.False(t, g.AddConnection(ConnectionID{OutNode: a, OutPort: 0, InNode: 99, InPort: 0}))
	assert.False(t, g.AddConnection(c.Detach(PortIn)))
	assert.False(t, g.DeleteConnection(ConnectionID{OutNode: b, OutPort: 0, InNode: a, InPort: 0}))
}

func TestGraph_DeleteNodeRemovesIncidentConnectionsFirst(t *testing.T) {
	g := NewGraph()
	a := newNode(t, g, 0, 1)
	b := newNode(t, g, 1, 1)
	c := newNode(t, g, 1, 0)
	ab := ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}
	bc := ConnectionID{OutNode: b, OutPort: 0, InNode: c, InPort: 0}
	require.True(t, g.AddConnection(ab))
	require.True(t, g.AddConnection(bc))

	var events []Event
	g.Subscribe(func(ev Event) { events = append(events, ev) })

	require.True(t, g.DeleteNode(b))
	require.NotEmpty(t, events)
	assert.Equal(t, NodeDeleted, events[len(events)-1].Kind)

	var deleted []ConnectionID
	for _, ev := range events {
		if ev.Kind == ConnectionDeleted {
			deleted = append(deleted, ev.Connection)
		}
	}
	assert.ElementsMatch(t, []ConnectionID{ab, bc}, deleted)
	assert.Equal(t, []NodeID{a, c}, g.AllNodeIDs())
	assert.Empty(t, g.AllConnectionIDs(a))
	assert.Empty(t, g.AllConnectionIDs(c))
	assert.False(t, g.DeleteNode(b))
}

func TestGraph_PermissiveReads(t *testing.T) {
	g := NewGraph()
	assert.Nil(t, g.NodeData(42, RolePosition))
	assert.Nil(t, g.PortData(42, PortIn, 0, PortRoleData))
	assert.Empty(t, g.AllConnectionIDs(42))
	assert.Empty(t, g.Connections(42, PortOut, 0))
	assert.Equal(t, NoFlags, g.NodeFlags(42))
	assert.Equal(t, Point{}, NodeValue[Point](g, 42, RolePosition))
	assert.Zero(t, PortCount(g, 42, PortIn))

	assert.False(t, g.SetNodeData(42, RolePosition, Point{X: 1}))
	assert.False(t, g.SetPortData(42, PortIn, 0, PortRoleCaption, "x"))
	assert.False(t, g.InsertPorts(42, PortIn, 0, 0))
}

func TestGraph_SetNodeData(t *testing.T) {
	g := NewGraph()
	id := g.AddNode("source")

	var events []Event
	g.Subscribe(func(ev Event) { events = append(events, ev) })

	assert.False(t, g.SetNodeData(id, RoleType, "other"), "type is read-only")
	assert.Equal(t, "source", NodeValue[string](g, id, RoleType))

	assert.False(t, g.SetNodeData(id, RolePosition, "not a point"))
	require.True(t, g.SetNodeData(id, RolePosition, Point{X: 10, Y: 20}))
	assert.Equal(t, Point{X: 10, Y: 20}, NodeValue[Point](g, id, RolePosition))

	require.True(t, g.SetNodeData(id, RoleCaption, "Source"))
	require.True(t, g.SetNodeData(id, RoleFlags, FlagLocked|FlagResizable))
	require.True(t, g.SetNodeData(id, RoleValidationState, ValidationState{State: Warning, Message: "check input"}))
	require.True(t, g.SetNodeData(id, RoleInternalData, []byte(`{"v":1}`)))

	require.Len(t, events, 5)
	assert.Equal(t, Event{Kind: NodePositionUpdated, Node: id}, events[0])
	assert.Equal(t, NodeUpdated, events[1].Kind)
	assert.Equal(t, NodeFlagsUpdated, events[2].Kind)
	assert.Equal(t, NodeUpdated, events[3].Kind)
	assert.Equal(t, NodeUpdated, events[4].Kind)

	assert.True(t, g.NodeFlags(id).Has(FlagLocked))
	assert.Equal(t, "check input", NodeValue[ValidationState](g, id, RoleValidationState).Message)
	assert.JSONEq(t, `{"v":1}`, string(NodeValue[json.RawMessage](g, id, RoleInternalData)))
}

func TestGraph_PortCountGoesThroughProtocol(t *testing.T) {
	g := NewGraph()
	a := newNode(t, g, 0, 3)
	b := newNode(t, g, 3, 0)
	for i := PortIndex(0); i < 3; i++ {
		require.True(t, g.AddConnection(ConnectionID{OutNode: a, OutPort: i, InNode: b, InPort: i}))
	}
	kinds := recordKinds(g)

	require.True(t, g.SetNodeData(a, RoleOutPortCount, 1))
	assert.Equal(t, uint(1), PortCount(g, a, PortOut))
	assert.Equal(t, []ConnectionID{{OutNode: a, OutPort: 0, InNode: b, InPort: 0}}, g.AllConnectionIDs(a))
	assert.Equal(t, PortsAboutToBeDeleted, (*kinds)[0])
	assert.Equal(t, PortsDeleted, (*kinds)[len(*kinds)-1])

	assert.False(t, g.SetNodeData(a, RoleOutPortCount, -1))
}

func TestGraph_DefaultPortPolicies(t *testing.T) {
	g := NewGraph()
	id := newNode(t, g, 1, 1)
	assert.Equal(t, PolicyOne, PortValue[ConnectionPolicy](g, id, PortIn, 0, PortRoleConnectionPolicy))
	assert.Equal(t, PolicyMany, PortValue[ConnectionPolicy](g, id, PortOut, 0, PortRoleConnectionPolicy))
}

func TestGraph_DataPropagation(t *testing.T) {
	g := NewGraph()
	src := newNode(t, g, 0, 1)
	dst1 := newNode(t, g, 1, 0)
	dst2 := newNode(t, g, 1, 0)

	require.True(t, g.SetPortData(src, PortOut, 0, PortRoleData, 42))
	c1 := ConnectionID{OutNode: src, OutPort: 0, InNode: dst1, InPort: 0}
	require.True(t, g.AddConnection(c1))
	assert.Equal(t, 42, g.PortData(dst1, PortIn, 0, PortRoleData))

	require.True(t, g.AddConnection(ConnectionID{OutNode: src, OutPort: 0, InNode: dst2, InPort: 0}))
	require.True(t, g.SetPortData(src, PortOut, 0, PortRoleData, 7))
	assert.Equal(t, 7, g.PortData(dst1, PortIn, 0, PortRoleData))
	assert.Equal(t, 7, g.PortData(dst2, PortIn, 0, PortRoleData))

	require.True(t, g.DeleteConnection(c1))
	assert.Nil(t, g.PortData(dst1, PortIn, 0, PortRoleData))
	assert.Equal(t, 7, g.PortData(dst2, PortIn, 0, PortRoleData))
}

func TestGraph_DetachPossible(t *testing.T) {
	g := NewGraph()
	a := newNode(t, g, 0, 1)
	b := newNode(t, g, 1, 0)
	c := ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}
	require.True(t, g.AddConnection(c))

	assert.True(t, g.DetachPossible(c))
	require.True(t, g.SetNodeData(b, RoleFlags, FlagLocked))
	assert.False(t, g.DetachPossible(c))
}

func TestGraph_Unsubscribe(t *testing.T) {
	g := NewGraph()
	var first, second int
	unsubscribe := g.Subscribe(func(Event) { first++ })
	g.Subscribe(func(Event) { second++ })

	g.AddNode("x")
	unsubscribe()
	g.AddNode("x")

	assert.Equal(t, 1, first)
	assert.Equal(t, 2, second)
}

func TestGraph_ListenersRunInRegistrationOrder(t *testing.T) {
	g := NewGraph()
	var order []string
	g.Subscribe(func(Event) { order = append(order, "a") })
	g.Subscribe(func(Event) { order = append(order, "b") })
	g.AddNode("x")
	assert.Equal(t, []string{"a", "b"}, order)
}

func TestGraph_Reset(t *testing.T) {
	g := NewGraph()
	a := newNode(t, g, 0, 1)
	b := newNode(t, g, 1, 0)
	require.True(t, g.AddConnection(ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}))
	kinds := recordKinds(g)

	g.Reset()
	assert.Equal(t, []EventKind{ModelReset}, *kinds)
	assert.Empty(t, g.AllNodeIDs())
	assert.Equal(t, NodeID(0), g.AddNode("x"))
}
