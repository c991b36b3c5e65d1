package aggregates

import (
	"time"

	"neuralmesh/domain/core/entities"
)

// Subgraph is a point-in-time snapshot of a station's owned slice of the
// graph plus the foreign endpoints of its boundary edges. It is computed
// on demand for transmission and never persisted as such.
type Subgraph struct {
	Nodes       []*entities.Node `json:"nodes"`
	Edges       []*Edge          `json:"edges"`
	StationID   string           `json:"station_id"`
	ExtractedAt time.Time        `json:"extracted_at"`
}

// NodeIDs returns the IDs of all nodes in the snapshot
func (s *Subgraph) NodeIDs() []string {
	ids := make([]string, 0, len(s.Nodes))
	for _, node := range s.Nodes {
		ids = append(ids, node.ID().String())
	}
	return ids
}

// ContainsNode reports whether the snapshot carries the given node
func (s *Subgraph) ContainsNode(nodeID string) bool {
	for _, node := range s.Nodes {
		if node.ID().String() == nodeID {
			return true
		}
	}
	return false
}
