package scene

import "github.com/meikuraledutech/nodegraph"

// Draft is a connection being dragged: one end is attached to a port, the
// other follows the pointer. It is owned by the scene and is never part of
// the connection map.
type Draft struct {
	ID nodegraph.ConnectionID
	// Anchor is the side that is attached.
	Anchor nodegraph.PortType
	// End is the loose end in scene coordinates.
	End nodegraph.Point
}

// StartDraft begins dragging a new connection from a port, replacing any
// draft in progress.
func (s *Scene) StartDraft(side nodegraph.PortType, node nodegraph.NodeID, port nodegraph.PortIndex) (*Draft, bool) {
	if !side.Valid() || uint(port) >= nodegraph.PortCount(s.model, node, side) {
		return nil, false
	}
	pos, ok := s.PortScenePosition(node, side, port)
	if !ok {
		return nil, false
	}
	s.draft = &Draft{ID: nodegraph.Draft(side, node, port), Anchor: side, End: pos}
	return s.draft, true
}

// DetachConnection pulls the given side of c off its port: c is deleted
// from the model and a draft anchored at the other side takes its place.
func (s *Scene) DetachConnection(c nodegraph.ConnectionID, side nodegraph.PortType) (*Draft, bool) {
	if !side.Valid() || !s.model.ConnectionExists(c) || !s.model.DetachPossible(c) {
		return nil, false
	}
	end, _ := s.PortScenePosition(c.Node(side), side, c.Port(side))
	if !s.model.DeleteConnection(c) {
		return nil, false
	}
	s.draft = &Draft{ID: c.Detach(side), Anchor: side.Opposite(), End: end}
	return s.draft, true
}

// CurrentDraft returns the draft in progress, or nil.
func (s *Scene) CurrentDraft() *Draft { return s.draft }

// MoveDraft moves the loose end of the draft.
func (s *Scene) MoveDraft(to nodegraph.Point) {
	if s.draft != nil {
		s.draft.End = to
	}
}

// CommitDraft attaches the loose end to (node, port) and promotes the draft
// to a model connection. An occupied One-policy port is taken over. The
// draft is discarded whether or not the connection was accepted.
func (s *Scene) CommitDraft(node nodegraph.NodeID, port nodegraph.PortIndex) bool {
	if s.draft == nil {
		return false
	}
	c := s.draft.ID.CompleteWith(node, port)
	s.draft = nil

	if !nodegraph.ConnectReplacing(s.model, c) {
		s.logger.Debug("draft rejected", "connection", c.String())
		return false
	}
	return true
}

// AbandonDraft discards the draft without touching the model.
func (s *Scene) AbandonDraft() { s.draft = nil }
