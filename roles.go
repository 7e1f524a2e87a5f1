package nodegraph

import "fmt"

// NodeRole selects a node attribute in NodeData / SetNodeData.
type NodeRole int

const (
	RoleType             NodeRole = iota // string, read-only after creation
	RolePosition                         // Point
	RoleSize                             // Size
	RoleCaptionVisible                   // bool
	RoleCaption                          // string
	RoleStyle                            // opaque theme payload
	RoleInternalData                     // json.RawMessage owned by the node type
	RoleInPortCount                      // uint
	RoleOutPortCount                     // uint
	RoleWidget                           // opaque handle owned by the delegate
	RoleValidationState                  // ValidationState
	RoleProcessingStatus                 // ProcessingStatus
	RoleFlags                            // NodeFlags
)

var nodeRoleNames = [...]string{
	"type", "position", "size", "caption-visible", "caption", "style", "internal-data",
	"in-port-count", "out-port-count", "widget", "validation-state", "processing-status", "flags",
}

func (r NodeRole) String() string {
	if r >= 0 && int(r) < len(nodeRoleNames) {
		return nodeRoleNames[r]
	}
	return fmt.Sprintf("node-role(%d)", int(r))
}

// PortCountRole returns the count role for the given side.
func PortCountRole(t PortType) NodeRole {
	if t == PortIn {
		return RoleInPortCount
	}
	return RoleOutPortCount
}

// PortRole selects a port attribute in PortData / SetPortData.
type PortRole int

const (
	PortRoleData             PortRole = iota // opaque payload
	PortRoleDataType                         // DataType
	PortRoleConnectionPolicy                 // ConnectionPolicy
	PortRoleCaptionVisible                   // bool
	PortRoleCaption                          // string
)

// NodeFlags is a bitset of node behaviors.
type NodeFlags uint8

const (
	FlagResizable NodeFlags = 1 << iota
	FlagLocked
	NoFlags NodeFlags = 0
)

// Has reports whether all bits of f2 are set in f.
func (f NodeFlags) Has(f2 NodeFlags) bool { return f&f2 == f2 }

// ConnectionPolicy limits how many connections a port accepts.
type ConnectionPolicy int

const (
	PolicyOne ConnectionPolicy = iota
	PolicyMany
)

func (p ConnectionPolicy) String() string {
	if p == PolicyMany {
		return "many"
	}
	return "one"
}

// ParseConnectionPolicy accepts "one" and "many". Anything else is "one".
func ParseConnectionPolicy(s string) ConnectionPolicy {
	if s == "many" {
		return PolicyMany
	}
	return PolicyOne
}

func (p ConnectionPolicy) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *ConnectionPolicy) UnmarshalText(b []byte) error {
	*p = ParseConnectionPolicy(string(b))
	return nil
}

// DataType describes what flows through a port. Connections require equal ids
// under the default policy.
type DataType struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name,omitempty" yaml:"name"`
}

// Validity is the severity of a node's validation state.
type Validity int

const (
	Valid Validity = iota
	Warning
	Error
)

// ValidationState reports whether a node's current configuration is usable.
type ValidationState struct {
	State   Validity
	Message string
}

// ProcessingStatus is the node's computation status as shown to users.
type ProcessingStatus int

const (
	StatusNone ProcessingStatus = iota
	StatusUpdated
	StatusProcessing
	StatusPending
	StatusEmpty
	StatusFailed
	StatusPartial
)

var statusNames = [...]string{"none", "updated", "processing", "pending", "empty", "failed", "partial"}

func (s ProcessingStatus) String() string {
	if s >= 0 && int(s) < len(statusNames) {
		return statusNames[s]
	}
	return fmt.Sprintf("status(%d)", int(s))
}
