package nodegraph

import "fmt"

// EventKind enumerates the model's change notifications.
type EventKind int

const (
	NodeCreated EventKind = iota
	NodeDeleted
	NodeUpdated
	NodePositionUpdated
	NodeFlagsUpdated
	ConnectionCreated
	ConnectionDeleted
	PortsAboutToBeInserted
	PortsInserted
	PortsAboutToBeDeleted
	PortsDeleted
	PortDataSet
	ModelReset
)

var eventNames = [...]string{
	"node-created", "node-deleted", "node-updated", "node-position-updated", "node-flags-updated",
	"connection-created", "connection-deleted",
	"ports-about-to-be-inserted", "ports-inserted", "ports-about-to-be-deleted", "ports-deleted",
	"port-data-set", "model-reset",
}

func (k EventKind) String() string {
	if k >= 0 && int(k) < len(eventNames) {
		return eventNames[k]
	}
	return fmt.Sprintf("event(%d)", int(k))
}

// Event is a single change notification. Only the fields relevant to Kind are
// set: Node for node and port events, Connection for connection events, and
// PortType/First/Last for port events.
type Event struct {
	Kind       EventKind
	Node       NodeID
	Connection ConnectionID
	PortType   PortType
	First      PortIndex
	Last       PortIndex
}

// Listener receives events synchronously on the mutating goroutine.
type Listener func(Event)

// Bus is an ordered listener list. Listeners run in registration order before
// the publishing call returns. A Bus is not safe for concurrent use.
type Bus struct {
	next      int
	listeners []subscription
}

type subscription struct {
	id int
	fn Listener
}

// Subscribe registers fn and returns a function that removes it.
func (b *Bus) Subscribe(fn Listener) (unsubscribe func()) {
	b.next++
	id := b.next
	b.listeners = append(b.listeners, subscription{id: id, fn: fn})
	return func() {
		for i, s := range b.listeners {
			if s.id == id {
				b.listeners = append(b.listeners[:i:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// Publish delivers ev to every listener registered at the time of the call.
func (b *Bus) Publish(ev Event) {
	// Snapshot so listeners may (un)subscribe while being notified.
	ls := append([]subscription(nil), b.listeners...)
	for _, s := range ls {
		s.fn(ev)
	}
}
