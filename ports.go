package nodegraph

import "slices"

// MaxPorts bounds the number of ports on one side of a node.
const MaxPorts = 1 << 16

// InsertPorts adds last-first+1 ports of type t at index first. Connections
// on ports at or after first are re-homed to index+k. first may equal the
// current count to append. The call fails without effect when the side
// would exceed MaxPorts.
func (g *Graph) InsertPorts(id NodeID, t PortType, first, last PortIndex) bool {
	rec, ok := g.nodes[id]
	if !ok || !t.Valid() {
		return false
	}
	n := PortIndex(len(rec.ports[t]))
	if first > n || last < first || !last.Valid() {
		return false
	}
	// last is valid, so k cannot wrap.
	k := last - first + 1
	if uint64(n)+uint64(k) > MaxPorts {
		g.logger.Debug("insert ports rejected: too many ports", "node", id, "type", t, "count", n, "adding", k)
		return false
	}

	g.bus.Publish(Event{Kind: PortsAboutToBeInserted, Node: id, PortType: t, First: first, Last: last})

	shifted := g.detachRange(id, t, first, n, func(i PortIndex) PortIndex { return i + k })

	fresh := make([]portRecord, k)
	for i := range fresh {
		fresh[i] = newPortRecord(t)
	}
	rec.ports[t] = slices.Insert(rec.ports[t], int(first), fresh...)

	for _, c := range shifted {
		g.insertConnection(c)
	}

	g.bus.Publish(Event{Kind: PortsInserted, Node: id, PortType: t, First: first, Last: last})
	return true
}

// DeletePorts removes ports [first, last] of type t, clamping last to the
// current count. Connections on removed ports are deleted; connections on
// later ports move down by the number of removed ports.
func (g *Graph) DeletePorts(id NodeID, t PortType, first, last PortIndex) bool {
	rec, ok := g.nodes[id]
	if !ok || !t.Valid() {
		return false
	}
	n := PortIndex(len(rec.ports[t]))
	if n == 0 || first > n-1 || last < first {
		return false
	}
	last = min(last, n-1)
	removed := last - first + 1

	g.bus.Publish(Event{Kind: PortsAboutToBeDeleted, Node: id, PortType: t, First: first, Last: last})

	// Connections on doomed ports are never re-homed.
	for i := first; i <= last; i++ {
		for _, c := range g.Connections(id, t, i) {
			g.DeleteConnection(c)
		}
	}

	shifted := g.detachRange(id, t, last+1, n, func(i PortIndex) PortIndex { return i - removed })

	rec.ports[t] = slices.Delete(rec.ports[t], int(first), int(last)+1)

	for _, c := range shifted {
		g.insertConnection(c)
	}

	g.bus.Publish(Event{Kind: PortsDeleted, Node: id, PortType: t, First: first, Last: last})
	return true
}

// detachRange removes every connection attached to ports [from, to) of
// (id, t) and returns them re-indexed by shift. Port data is untouched: it
// travels with the port records.
func (g *Graph) detachRange(id NodeID, t PortType, from, to PortIndex, shift func(PortIndex) PortIndex) []ConnectionID {
	var shifted []ConnectionID
	for i := from; i < to; i++ {
		for _, c := range g.Connections(id, t, i) {
			shifted = append(shifted, c.Shift(t, shift(i)))
			g.removeConnection(c)
		}
	}
	return shifted
}
