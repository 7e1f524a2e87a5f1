package nodegraph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func typedRegistry(t *testing.T) *Registry {
	t.Helper()
	reg := NewRegistry()
	num := DataType{ID: "number", Name: "Number"}
	txt := DataType{ID: "text", Name: "Text"}
	require.NoError(t, reg.Register("number", NodeSpec{Out: []PortSpec{{DataType: num, Policy: PolicyMany}}}))
	require.NoError(t, reg.Register("text", NodeSpec{Out: []PortSpec{{DataType: txt, Policy: PolicyMany}}}))
	require.NoError(t, reg.Register("sink", NodeSpec{In: []PortSpec{{DataType: num, Policy: PolicyOne}}}))
	return reg
}

func TestTypePolicy(t *testing.T) {
	g := NewGraph(WithRegistry(typedRegistry(t)))
	n1 := g.AddNode("number")
	n2 := g.AddNode("number")
	txt := g.AddNode("text")
	sink := g.AddNode("sink")

	first := ConnectionID{OutNode: n1, OutPort: 0, InNode: sink, InPort: 0}
	assert.False(t, g.ConnectionPossible(ConnectionID{OutNode: txt, OutPort: 0, InNode: sink, InPort: 0}), "type mismatch")
	assert.False(t, g.ConnectionPossible(ConnectionID{OutNode: n1, OutPort: 1, InNode: sink, InPort: 0}), "port out of range")
	assert.False(t, g.ConnectionPossible(first.Detach(PortIn)), "draft")
	require.True(t, g.ConnectionPossible(first))
	require.True(t, g.AddConnection(first))

	assert.False(t, g.ConnectionPossible(first), "duplicate")
	assert.False(t, g.ConnectionPossible(ConnectionID{OutNode: n2, OutPort: 0, InNode: sink, InPort: 0}), "occupied One port")

	plain := NewGraph()
	loop := newNode(t, plain, 1, 1)
	assert.False(t, plain.ConnectionPossible(ConnectionID{OutNode: loop, OutPort: 0, InNode: loop, InPort: 0}), "self loop")
}

func TestConnectReplacing(t *testing.T) {
	g := NewGraph(WithRegistry(typedRegistry(t)))
	n1 := g.AddNode("number")
	n2 := g.AddNode("number")
	sink := g.AddNode("sink")
	old := ConnectionID{OutNode: n1, OutPort: 0, InNode: sink, InPort: 0}
	next := ConnectionID{OutNode: n2, OutPort: 0, InNode: sink, InPort: 0}
	require.True(t, g.AddConnection(old))

	require.True(t, ConnectReplacing(g, next))
	assert.False(t, g.ConnectionExists(old))
	assert.True(t, g.ConnectionExists(next))
	assert.Equal(t, []ConnectionID{next}, g.Connections(sink, PortIn, 0))
}

func TestConnectReplacing_RestoresOnFailure(t *testing.T) {
	g := NewGraph(WithRegistry(typedRegistry(t)))
	n1 := g.AddNode("number")
	txt := g.AddNode("text")
	sink := g.AddNode("sink")
	old := ConnectionID{OutNode: n1, OutPort: 0, InNode: sink, InPort: 0}
	require.True(t, g.AddConnection(old))

	assert.False(t, ConnectReplacing(g, ConnectionID{OutNode: txt, OutPort: 0, InNode: sink, InPort: 0}))
	assert.True(t, g.ConnectionExists(old))
}

func TestConnectReplacing_LockedEndpoint(t *testing.T) {
	g := NewGraph(WithRegistry(typedRegistry(t)))
	n1 := g.AddNode("number")
	n2 := g.AddNode("number")
	sink := g.AddNode("sink")
	old := ConnectionID{OutNode: n1, OutPort: 0, InNode: sink, InPort: 0}
	require.True(t, g.AddConnection(old))
	require.True(t, g.SetNodeData(n1, RoleFlags, FlagLocked))

	assert.False(t, ConnectReplacing(g, ConnectionID{OutNode: n2, OutPort: 0, InNode: sink, InPort: 0}))
	assert.True(t, g.ConnectionExists(old))
}

func TestAcyclicPolicy(t *testing.T) {
	g := NewGraph(WithPolicy(AcyclicPolicy{}))
	a := newNode(t, g, 1, 1)
	b := newNode(t, g, 1, 1)
	c := newNode(t, g, 1, 1)
	require.True(t, g.AddConnection(ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}))
	require.True(t, g.AddConnection(ConnectionID{OutNode: b, OutPort: 0, InNode: c, InPort: 0}))

	back := ConnectionID{OutNode: c, OutPort: 0, InNode: a, InPort: 0}
	assert.True(t, WouldCycle(g, back))
	assert.False(t, g.ConnectionPossible(back))

	order, err := TopologicalOrder(g)
	require.NoError(t, err)
	assert.Equal(t, []NodeID{a, b, c}, order)

	// AddConnection only checks structure, so the cycle can still be forced.
	require.True(t, g.AddConnection(back))
	_, err = TopologicalOrder(g)
	assert.ErrorIs(t, err, ErrCycleDetected)
}

func TestPolicyFunc(t *testing.T) {
	deny := PolicyFunc(func(Model, ConnectionID) bool { return false })
	g := NewGraph(WithPolicy(AcyclicPolicy{Base: deny}))
	a := newNode(t, g, 0, 1)
	b := newNode(t, g, 1, 0)
	assert.False(t, g.ConnectionPossible(ConnectionID{OutNode: a, OutPort: 0, InNode: b, InPort: 0}))
}
