package services

import (
	"sync"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/domain/events"
	pkgerrors "neuralmesh/pkg/errors"
)

// StationGraph is the station's live in-memory view of the capability
// graph. It serializes access to the underlying aggregate so telemetry
// ingestion and read queries can interleave safely with an in-progress
// maturation cycle.
type StationGraph struct {
	mu    sync.RWMutex
	graph *aggregates.Graph
}

// NewStationGraph wraps a graph aggregate for concurrent use
func NewStationGraph(graph *aggregates.Graph) *StationGraph {
	return &StationGraph{graph: graph}
}

// StationID returns the owning station's ID
func (s *StationGraph) StationID() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.StationID()
}

// AddNode registers a node in the local view
func (s *StationGraph) AddNode(node *entities.Node) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.AddNode(node)
}

// GetNode retrieves a node by ID
func (s *StationGraph) GetNode(nodeID valueobjects.NodeID) (*entities.Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.GetNode(nodeID)
}

// Snapshot returns detached copies of the node and edge sets. Callers
// may read them after the lock is released; telemetry landing on the
// live graph never touches a snapshot.
func (s *StationGraph) Snapshot() ([]*entities.Node, []*aggregates.Edge) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	nodes := s.graph.Nodes()
	for i, node := range nodes {
		nodes[i] = node.Clone()
	}
	edges := s.graph.Edges()
	for i, edge := range edges {
		edges[i] = edge.Clone()
	}
	return nodes, edges
}

// Counts returns the node and edge counts
func (s *StationGraph) Counts() (nodes, edges int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.NodeCount(), s.graph.EdgeCount()
}

// RecordActivation routes one telemetry sample to a node or edge,
// whichever the target ID names
func (s *StationGraph) RecordActivation(targetID string, latencyMs int64, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.graph.GetEdge(targetID); ok {
		return s.graph.RecordEdgeActivation(targetID, latencyMs, success)
	}

	nodeID, err := valueobjects.NewNodeID(targetID)
	if err != nil {
		return pkgerrors.NewValidationError("invalid activation target: " + targetID)
	}
	return s.graph.RecordNodeActivation(nodeID, latencyMs, success)
}

// RecordCoActivation notes simultaneous use of two nodes
func (s *StationGraph) RecordCoActivation(a, b valueobjects.NodeID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.RecordCoActivation(a, b)
}

// CoActivationLedger returns a copy of the pair-usage counts
func (s *StationGraph) CoActivationLedger() map[string]int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.graph.CoActivationLedger()
}

// ResetCoActivationLedger clears the ledger after a synaptogenesis pass
func (s *StationGraph) ResetCoActivationLedger() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph.ResetCoActivationLedger()
}

// ApplyProposal applies an approved mutation under the write lock
func (s *StationGraph) ApplyProposal(proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.graph.ApplyProposal(proposal)
}

// SetFitness writes a computed fitness score back to a node and advances
// its maturation phase
func (s *StationGraph) SetFitness(nodeID valueobjects.NodeID, score float64, advance func(*entities.Node)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	node, ok := s.graph.GetNode(nodeID)
	if !ok {
		return pkgerrors.NewNotFoundError("node " + nodeID.String())
	}
	node.SetFitness(score)
	if advance != nil {
		advance(node)
	}
	return nil
}

// MergeRemote folds a merged snapshot back into the live view. Entries
// owned by this station are skipped: the live graph is already
// authoritative for them, and the snapshot copies may predate telemetry
// that landed since the merge was computed.
func (s *StationGraph) MergeRemote(merged *aggregates.Subgraph) {
	s.mu.Lock()
	defer s.mu.Unlock()

	own := s.graph.StationID()
	for _, node := range merged.Nodes {
		if node.IsOwnedBy(own) {
			continue
		}
		s.graph.PutNode(node)
	}
	for _, edge := range merged.Edges {
		if edge.OwnerStationID == own {
			continue
		}
		s.graph.PutEdge(edge)
	}
}

// DrainEvents returns and clears the uncommitted domain events
func (s *StationGraph) DrainEvents() []events.DomainEvent {
	s.mu.Lock()
	defer s.mu.Unlock()

	drained := s.graph.GetUncommittedEvents()
	s.graph.MarkEventsAsCommitted()
	return drained
}
