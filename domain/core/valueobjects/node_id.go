package valueobjects

import (
	"errors"
	"strings"
)

// NodeID is a value object identifying a node in the capability graph.
// Node IDs are semantic ("station_alpha", "cap_port_scan") rather than
// opaque, so the only structural requirement is a non-empty identifier
// without the edge-key separator.
type NodeID struct {
	value string
}

// NewNodeID creates a NodeID from an identifier string
func NewNodeID(id string) (NodeID, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return NodeID{}, errors.New("node ID cannot be empty")
	}
	if strings.Contains(id, "->") {
		return NodeID{}, errors.New("node ID cannot contain the edge separator '->'")
	}
	return NodeID{value: id}, nil
}

// MustNodeID creates a NodeID and panics on invalid input.
// Only for use with compile-time constants such as the core node set.
func MustNodeID(id string) NodeID {
	nodeID, err := NewNodeID(id)
	if err != nil {
		panic(err)
	}
	return nodeID
}

// String returns the string representation of the NodeID
func (id NodeID) String() string {
	return id.value
}

// Equals checks if two NodeIDs are equal
func (id NodeID) Equals(other NodeID) bool {
	return id.value == other.value
}

// IsZero checks if the NodeID is the zero value
func (id NodeID) IsZero() bool {
	return id.value == ""
}

// MarshalJSON implements json.Marshaler
func (id NodeID) MarshalJSON() ([]byte, error) {
	return []byte(`"` + id.value + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler
func (id *NodeID) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		return nil
	}
	if len(data) < 2 || data[0] != '"' || data[len(data)-1] != '"' {
		return errors.New("NodeID must be a string")
	}
	id.value = string(data[1 : len(data)-1])
	return nil
}
