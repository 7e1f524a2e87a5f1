// Package nodegraph is a headless node-graph editor core: a graph model with
// typed, indexed ports, a port-shift protocol for dynamic ports, and change
// events that scene, grouping and comment layers use to stay in sync.
package nodegraph

import (
	"fmt"
	"math"
	"strconv"
)

// NodeID identifies a node within one model. Ids are allocated from a
// monotonically increasing counter and never reused while the model lives.
type NodeID uint32

// PortIndex addresses a port positionally within (node, port type).
type PortIndex uint32

const (
	// InvalidNodeID denotes "no node".
	InvalidNodeID NodeID = math.MaxUint32
	// InvalidPortIndex denotes "no port".
	InvalidPortIndex PortIndex = math.MaxUint32
)

// Valid reports whether id is not the sentinel.
func (id NodeID) Valid() bool { return id != InvalidNodeID }

// Valid reports whether i is not the sentinel.
func (i PortIndex) Valid() bool { return i != InvalidPortIndex }

// PortType distinguishes input and output ports.
type PortType uint8

const (
	PortIn PortType = iota
	PortOut
	PortNone
)

// Opposite maps In to Out and Out to In. None stays None.
func (t PortType) Opposite() PortType {
	switch t {
	case PortIn:
		return PortOut
	case PortOut:
		return PortIn
	}
	return PortNone
}

// Valid reports whether t is In or Out.
func (t PortType) Valid() bool { return t == PortIn || t == PortOut }

func (t PortType) String() string {
	switch t {
	case PortIn:
		return "in"
	case PortOut:
		return "out"
	}
	return "none"
}

func (t PortType) MarshalText() ([]byte, error) { return []byte(t.String()), nil }

func (t *PortType) UnmarshalText(b []byte) error {
	switch string(b) {
	case "in":
		*t = PortIn
	case "out":
		*t = PortOut
	case "none":
		*t = PortNone
	default:
		return fmt.Errorf("nodegraph: unknown port type %q", b)
	}
	return nil
}

// ConnectionID is the 4-tuple identifying a directed edge from an Out port to
// an In port. One side may hold the invalid sentinels while a connection is
// being drafted.
type ConnectionID struct {
	OutNode NodeID
	OutPort PortIndex
	InNode  NodeID
	InPort  PortIndex
}

// Node returns the node on the given side, or InvalidNodeID for PortNone.
func (c ConnectionID) Node(t PortType) NodeID {
	switch t {
	case PortOut:
		return c.OutNode
	case PortIn:
		return c.InNode
	}
	return InvalidNodeID
}

// Port returns the port index on the given side, or InvalidPortIndex for PortNone.
func (c ConnectionID) Port(t PortType) PortIndex {
	switch t {
	case PortOut:
		return c.OutPort
	case PortIn:
		return c.InPort
	}
	return InvalidPortIndex
}

// Complete reports whether both endpoints are set.
func (c ConnectionID) Complete() bool {
	return c.OutNode.Valid() && c.OutPort.Valid() && c.InNode.Valid() && c.InPort.Valid()
}

// Invert swaps the Out side and the In side as a unit.
func (c ConnectionID) Invert() ConnectionID {
	return ConnectionID{OutNode: c.InNode, OutPort: c.InPort, InNode: c.OutNode, InPort: c.OutPort}
}

// Detach clears the given side, producing a draft that keeps the other end.
func (c ConnectionID) Detach(side PortType) ConnectionID {
	if side == PortOut {
		c.OutNode, c.OutPort = InvalidNodeID, InvalidPortIndex
	} else {
		c.InNode, c.InPort = InvalidNodeID, InvalidPortIndex
	}
	return c
}

// CompleteWith fills whichever side is missing. The Out side is filled when
// its node is invalid, otherwise the In side is overwritten.
func (c ConnectionID) CompleteWith(node NodeID, port PortIndex) ConnectionID {
	if !c.OutNode.Valid() {
		c.OutNode, c.OutPort = node, port
	} else {
		c.InNode, c.InPort = node, port
	}
	return c
}

// MissingSide returns the side still awaiting an endpoint, or PortNone if the
// id is complete.
func (c ConnectionID) MissingSide() PortType {
	switch {
	case !c.OutNode.Valid():
		return PortOut
	case !c.InNode.Valid():
		return PortIn
	}
	return PortNone
}

// Shift returns c with the index on the given side replaced by port.
func (c ConnectionID) Shift(side PortType, port PortIndex) ConnectionID {
	if side == PortOut {
		c.OutPort = port
	} else if side == PortIn {
		c.InPort = port
	}
	return c
}

func (c ConnectionID) String() string {
	return fmt.Sprintf("(%s, %s, %s, %s)",
		formatID(uint32(c.OutNode)), formatID(uint32(c.OutPort)),
		formatID(uint32(c.InNode)), formatID(uint32(c.InPort)))
}

func formatID(v uint32) string {
	if v == math.MaxUint32 {
		return "INVALID"
	}
	return strconv.FormatUint(uint64(v), 10)
}

// Draft builds an incomplete connection anchored at the given endpoint, as
// when a drag starts from a port.
func Draft(side PortType, node NodeID, port PortIndex) ConnectionID {
	if side == PortIn {
		return ConnectionID{OutNode: InvalidNodeID, OutPort: InvalidPortIndex, InNode: node, InPort: port}
	}
	return ConnectionID{OutNode: node, OutPort: port, InNode: InvalidNodeID, InPort: InvalidPortIndex}
}
