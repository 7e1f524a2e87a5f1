package nodegraph

import "slices"

// AcyclicPolicy wraps another policy and also rejects any connection that
// would close a directed cycle. A nil Base means TypePolicy.
type AcyclicPolicy struct {
	Base Policy
}

func (p AcyclicPolicy) ConnectionPossible(m Model, c ConnectionID) bool {
	base := p.Base
	if base == nil {
		base = TypePolicy{}
	}
	return base.ConnectionPossible(m, c) && !WouldCycle(m, c)
}

// WouldCycle reports whether adding c creates a path from c.InNode back to
// c.OutNode.
func WouldCycle(m Model, c ConnectionID) bool {
	if c.OutNode == c.InNode {
		return true
	}
	seen := map[NodeID]bool{c.InNode: true}
	queue := []NodeID{c.InNode}
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		for _, next := range successors(m, id) {
			if next == c.OutNode {
				return true
			}
			if !seen[next] {
				seen[next] = true
				queue = append(queue, next)
			}
		}
	}
	return false
}

func successors(m Model, id NodeID) []NodeID {
	var out []NodeID
	for _, c := range m.AllConnectionIDs(id) {
		if c.OutNode == id {
			out = append(out, c.InNode)
		}
	}
	return out
}

// TopologicalOrder returns the nodes of m ordered so every connection runs
// from an earlier node to a later one. It fails with ErrCycleDetected when
// no such order exists.
func TopologicalOrder(m Model) ([]NodeID, error) {
	const (
		unvisited = 0
		visiting  = 1
		visited   = 2
	)

	ids := m.AllNodeIDs()
	state := make(map[NodeID]int, len(ids))
	order := make([]NodeID, 0, len(ids))

	var dfs func(id NodeID) bool
	dfs = func(id NodeID) bool {
		state[id] = visiting
		for _, next := range successors(m, id) {
			switch state[next] {
			case visiting:
				return true
			case unvisited:
				if dfs(next) {
					return true
				}
			}
		}
		state[id] = visited
		order = append(order, id)
		return false
	}

	for _, id := range ids {
		if state[id] == unvisited && dfs(id) {
			return nil, ErrCycleDetected
		}
	}

	// Post-order yields sinks first.
	slices.Reverse(order)
	return order, nil
}
