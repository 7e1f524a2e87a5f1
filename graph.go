package nodegraph

import (
	"cmp"
	"encoding/json"
	"log/slog"
	"slices"
)

// Graph is the default in-memory Model.
//
// A Graph is not safe for concurrent use: all calls, and the listeners they
// notify, run on the caller's goroutine. Listeners may read the graph while
// being notified but must not mutate the entity they are being told about.
type Graph struct {
	bus      Bus
	policy   Policy
	registry *Registry
	logger   *slog.Logger

	nextID   NodeID
	nodes    map[NodeID]*nodeRecord
	conns    map[ConnectionID]struct{}
	attached map[portKey]map[ConnectionID]struct{}
}

type portKey struct {
	node NodeID
	side PortType
	port PortIndex
}

type nodeRecord struct {
	typ            string
	pos            Point
	size           Size
	caption        string
	captionVisible bool
	style          any
	internal       json.RawMessage
	widget         any
	validation     ValidationState
	status         ProcessingStatus
	flags          NodeFlags
	ports          [2][]portRecord
}

type portRecord struct {
	data           any
	dataType       DataType
	policy         ConnectionPolicy
	caption        string
	captionVisible bool
}

func newPortRecord(t PortType) portRecord {
	if t == PortOut {
		return portRecord{policy: PolicyMany}
	}
	return portRecord{policy: PolicyOne}
}

func portRecordFromSpec(s PortSpec) portRecord {
	return portRecord{
		dataType:       s.DataType,
		policy:         s.Policy,
		caption:        s.Caption,
		captionVisible: s.CaptionVisible,
	}
}

// Option configures a Graph.
type Option func(*Graph)

// WithPolicy replaces the default TypePolicy.
func WithPolicy(p Policy) Option {
	return func(g *Graph) { g.policy = p }
}

// WithRegistry makes AddNode initialize nodes from registered specs and
// reject unregistered types.
func WithRegistry(r *Registry) Option {
	return func(g *Graph) { g.registry = r }
}

// WithLogger sets the logger used for rejected mutations.
func WithLogger(l *slog.Logger) Option {
	return func(g *Graph) { g.logger = l }
}

// NewGraph creates an empty graph.
func NewGraph(opts ...Option) *Graph {
	g := &Graph{
		policy:   TypePolicy{},
		logger:   slog.New(slog.DiscardHandler),
		nodes:    make(map[NodeID]*nodeRecord),
		conns:    make(map[ConnectionID]struct{}),
		attached: make(map[portKey]map[ConnectionID]struct{}),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Subscribe implements Model.
func (g *Graph) Subscribe(fn Listener) func() { return g.bus.Subscribe(fn) }

// Registry returns the registry the graph was built with, or nil.
func (g *Graph) Registry() *Registry { return g.registry }

// AllNodeIDs returns every live node id in ascending order.
func (g *Graph) AllNodeIDs() []NodeID {
	ids := make([]NodeID, 0, len(g.nodes))
	for id := range g.nodes {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// NodeExists implements Model.
func (g *Graph) NodeExists(id NodeID) bool {
	_, ok := g.nodes[id]
	return ok
}

// AddNode allocates a fresh id and creates a node of the given type. With a
// registry, unregistered types yield InvalidNodeID, as does an exhausted id
// space.
func (g *Graph) AddNode(nodeType string) NodeID {
	rec := &nodeRecord{typ: nodeType, captionVisible: true}
	if g.registry != nil {
		spec, ok := g.registry.Lookup(nodeType)
		if !ok {
			g.logger.Debug("add node rejected: unknown type", "type", nodeType)
			return InvalidNodeID
		}
		applySpec(rec, spec)
	}

	id := g.allocID()
	if !id.Valid() {
		g.logger.Warn("add node rejected: node ids exhausted", "type", nodeType)
		return InvalidNodeID
	}
	g.nodes[id] = rec
	g.bus.Publish(Event{Kind: NodeCreated, Node: id})
	return id
}

func applySpec(rec *nodeRecord, spec NodeSpec) {
	rec.caption = spec.Caption
	rec.captionVisible = spec.CaptionVisible
	rec.flags = spec.Flags
	rec.ports[PortIn] = make([]portRecord, len(spec.In))
	for i, p := range spec.In {
		rec.ports[PortIn][i] = portRecordFromSpec(p)
	}
	rec.ports[PortOut] = make([]portRecord, len(spec.Out))
	for i, p := range spec.Out {
		rec.ports[PortOut][i] = portRecordFromSpec(p)
	}
}

// allocID returns the next free id, or InvalidNodeID once the counter has
// reached the sentinel. The counter never wraps.
func (g *Graph) allocID() NodeID {
	for g.nextID.Valid() {
		id := g.nextID
		g.nextID++
		if _, taken := g.nodes[id]; !taken {
			return id
		}
	}
	return InvalidNodeID
}

// DeleteNode removes every incident connection, then the node itself.
func (g *Graph) DeleteNode(id NodeID) bool {
	if !g.NodeExists(id) {
		return false
	}
	for _, c := range g.AllConnectionIDs(id) {
		g.DeleteConnection(c)
	}
	delete(g.nodes, id)
	g.bus.Publish(Event{Kind: NodeDeleted, Node: id})
	return true
}

// Reset drops all nodes and connections and restarts id allocation.
// Listeners receive a single ModelReset event.
func (g *Graph) Reset() {
	g.nextID = 0
	g.nodes = make(map[NodeID]*nodeRecord)
	g.conns = make(map[ConnectionID]struct{})
	g.attached = make(map[portKey]map[ConnectionID]struct{})
	g.bus.Publish(Event{Kind: ModelReset})
}

// AllConnectionIDs implements Model.
func (g *Graph) AllConnectionIDs(id NodeID) []ConnectionID {
	rec, ok := g.nodes[id]
	if !ok {
		return nil
	}
	var out []ConnectionID
	for _, side := range []PortType{PortOut, PortIn} {
		for i := range rec.ports[side] {
			for c := range g.attached[portKey{id, side, PortIndex(i)}] {
				// A self-loop is attached on both sides of the same node.
				if side == PortIn && c.OutNode == id {
					continue
				}
				out = append(out, c)
			}
		}
	}
	sortConnections(out)
	return out
}

// Connections implements Model.
func (g *Graph) Connections(id NodeID, t PortType, port PortIndex) []ConnectionID {
	set := g.attached[portKey{id, t, port}]
	if len(set) == 0 {
		return nil
	}
	out := make([]ConnectionID, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	sortConnections(out)
	return out
}

func sortConnections(cs []ConnectionID) {
	slices.SortFunc(cs, func(a, b ConnectionID) int {
		return cmp.Or(
			cmp.Compare(a.OutNode, b.OutNode),
			cmp.Compare(a.OutPort, b.OutPort),
			cmp.Compare(a.InNode, b.InNode),
			cmp.Compare(a.InPort, b.InPort),
		)
	})
}

// ConnectionExists implements Model.
func (g *Graph) ConnectionExists(c ConnectionID) bool {
	_, ok := g.conns[c]
	return ok
}

// ConnectionPossible consults the graph's policy.
func (g *Graph) ConnectionPossible(c ConnectionID) bool {
	return g.policy.ConnectionPossible(g, c)
}

// DetachPossible is false when either endpoint node is locked.
func (g *Graph) DetachPossible(c ConnectionID) bool {
	return !g.NodeFlags(c.OutNode).Has(FlagLocked) && !g.NodeFlags(c.InNode).Has(FlagLocked)
}

// AddConnection inserts c when both endpoints exist and it is not already
// present. The Out port's data is then pushed to the In port.
func (g *Graph) AddConnection(c ConnectionID) bool {
	if !g.endpointsValid(c) {
		g.logger.Debug("add connection rejected: invalid endpoints", "connection", c.String())
		return false
	}
	if g.ConnectionExists(c) {
		g.logger.Debug("add connection rejected: duplicate", "connection", c.String())
		return false
	}
	g.insertConnection(c)

	data := g.nodes[c.OutNode].ports[PortOut][c.OutPort].data
	g.setInData(c.InNode, c.InPort, data)
	return true
}

func (g *Graph) insertConnection(c ConnectionID) {
	g.conns[c] = struct{}{}
	for _, side := range []PortType{PortOut, PortIn} {
		key := portKey{c.Node(side), side, c.Port(side)}
		if g.attached[key] == nil {
			g.attached[key] = make(map[ConnectionID]struct{})
		}
		g.attached[key][c] = struct{}{}
	}
	g.bus.Publish(Event{Kind: ConnectionCreated, Connection: c})
}

func (g *Graph) endpointsValid(c ConnectionID) bool {
	if !c.Complete() {
		return false
	}
	out, ok := g.nodes[c.OutNode]
	if !ok || int(c.OutPort) >= len(out.ports[PortOut]) {
		return false
	}
	in, ok := g.nodes[c.InNode]
	if !ok || int(c.InPort) >= len(in.ports[PortIn]) {
		return false
	}
	return true
}

// DeleteConnection removes c and clears the data held by its In port.
func (g *Graph) DeleteConnection(c ConnectionID) bool {
	if !g.removeConnection(c) {
		return false
	}
	g.setInData(c.InNode, c.InPort, nil)
	return true
}

func (g *Graph) removeConnection(c ConnectionID) bool {
	if _, ok := g.conns[c]; !ok {
		return false
	}
	delete(g.conns, c)
	for _, side := range []PortType{PortOut, PortIn} {
		key := portKey{c.Node(side), side, c.Port(side)}
		delete(g.attached[key], c)
		if len(g.attached[key]) == 0 {
			delete(g.attached, key)
		}
	}
	g.bus.Publish(Event{Kind: ConnectionDeleted, Connection: c})
	return true
}

func (g *Graph) setInData(id NodeID, port PortIndex, data any) {
	rec, ok := g.nodes[id]
	if !ok || int(port) >= len(rec.ports[PortIn]) {
		return
	}
	rec.ports[PortIn][port].data = data
	g.bus.Publish(Event{Kind: PortDataSet, Node: id, PortType: PortIn, First: port, Last: port})
}

// NodeData implements Model.
func (g *Graph) NodeData(id NodeID, role NodeRole) any {
	rec, ok := g.nodes[id]
	if !ok {
		return nil
	}
	switch role {
	case RoleType:
		return rec.typ
	case RolePosition:
		return rec.pos
	case RoleSize:
		return rec.size
	case RoleCaptionVisible:
		return rec.captionVisible
	case RoleCaption:
		return rec.caption
	case RoleStyle:
		return rec.style
	case RoleInternalData:
		return rec.internal
	case RoleInPortCount:
		return uint(len(rec.ports[PortIn]))
	case RoleOutPortCount:
		return uint(len(rec.ports[PortOut]))
	case RoleWidget:
		return rec.widget
	case RoleValidationState:
		return rec.validation
	case RoleProcessingStatus:
		return rec.status
	case RoleFlags:
		return rec.flags
	}
	return nil
}

// SetNodeData writes a node attribute. Type is read-only; port counts are
// routed through InsertPorts/DeletePorts. Values of the wrong type are
// rejected.
func (g *Graph) SetNodeData(id NodeID, role NodeRole, value any) bool {
	rec, ok := g.nodes[id]
	if !ok {
		return false
	}

	kind := NodeUpdated
	switch role {
	case RolePosition:
		p, ok := value.(Point)
		if !ok {
			return false
		}
		rec.pos = p
		kind = NodePositionUpdated
	case RoleSize:
		s, ok := value.(Size)
		if !ok {
			return false
		}
		rec.size = s
	case RoleCaptionVisible:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		rec.captionVisible = b
	case RoleCaption:
		s, ok := value.(string)
		if !ok {
			return false
		}
		rec.caption = s
	case RoleStyle:
		rec.style = value
	case RoleInternalData:
		switch v := value.(type) {
		case json.RawMessage:
			rec.internal = v
		case []byte:
			rec.internal = json.RawMessage(v)
		default:
			return false
		}
	case RoleWidget:
		rec.widget = value
	case RoleValidationState:
		v, ok := value.(ValidationState)
		if !ok {
			return false
		}
		rec.validation = v
	case RoleProcessingStatus:
		v, ok := value.(ProcessingStatus)
		if !ok {
			return false
		}
		rec.status = v
	case RoleFlags:
		f, ok := value.(NodeFlags)
		if !ok {
			return false
		}
		rec.flags = f
		kind = NodeFlagsUpdated
	case RoleInPortCount, RoleOutPortCount:
		n, ok := toCount(value)
		if !ok {
			return false
		}
		return g.resizePorts(id, portTypeOfCountRole(role), n)
	default:
		return false
	}

	g.bus.Publish(Event{Kind: kind, Node: id})
	return true
}

func portTypeOfCountRole(role NodeRole) PortType {
	if role == RoleInPortCount {
		return PortIn
	}
	return PortOut
}

func toCount(v any) (uint, bool) {
	switch n := v.(type) {
	case uint:
		return n, true
	case uint32:
		return uint(n), true
	case int:
		if n >= 0 {
			return uint(n), true
		}
	}
	return 0, false
}

// resizePorts grows by appending or shrinks by dropping the tail, through the
// port mutation protocol.
func (g *Graph) resizePorts(id NodeID, t PortType, n uint) bool {
	if n > MaxPorts {
		return false
	}
	cur := uint(len(g.nodes[id].ports[t]))
	switch {
	case n > cur:
		return g.InsertPorts(id, t, PortIndex(cur), PortIndex(n-1))
	case n < cur:
		return g.DeletePorts(id, t, PortIndex(n), PortIndex(cur-1))
	}
	return true
}

// NodeFlags implements Model.
func (g *Graph) NodeFlags(id NodeID) NodeFlags {
	if rec, ok := g.nodes[id]; ok {
		return rec.flags
	}
	return NoFlags
}

func (g *Graph) port(id NodeID, t PortType, port PortIndex) *portRecord {
	rec, ok := g.nodes[id]
	if !ok || !t.Valid() || int(port) >= len(rec.ports[t]) {
		return nil
	}
	return &rec.ports[t][port]
}

// PortData implements Model.
func (g *Graph) PortData(id NodeID, t PortType, port PortIndex, role PortRole) any {
	p := g.port(id, t, port)
	if p == nil {
		return nil
	}
	switch role {
	case PortRoleData:
		return p.data
	case PortRoleDataType:
		return p.dataType
	case PortRoleConnectionPolicy:
		return p.policy
	case PortRoleCaptionVisible:
		return p.captionVisible
	case PortRoleCaption:
		return p.caption
	}
	return nil
}

// SetPortData writes a port attribute. Data written to an Out port is pushed
// to every In port connected to it.
func (g *Graph) SetPortData(id NodeID, t PortType, port PortIndex, role PortRole, value any) bool {
	p := g.port(id, t, port)
	if p == nil {
		return false
	}
	switch role {
	case PortRoleData:
		p.data = value
	case PortRoleDataType:
		dt, ok := value.(DataType)
		if !ok {
			return false
		}
		p.dataType = dt
	case PortRoleConnectionPolicy:
		cp, ok := value.(ConnectionPolicy)
		if !ok {
			return false
		}
		p.policy = cp
	case PortRoleCaptionVisible:
		b, ok := value.(bool)
		if !ok {
			return false
		}
		p.captionVisible = b
	case PortRoleCaption:
		s, ok := value.(string)
		if !ok {
			return false
		}
		p.caption = s
	default:
		return false
	}

	g.bus.Publish(Event{Kind: PortDataSet, Node: id, PortType: t, First: port, Last: port})

	if role == PortRoleData && t == PortOut {
		for _, c := range g.Connections(id, PortOut, port) {
			g.setInData(c.InNode, c.InPort, value)
		}
	}
	return true
}
