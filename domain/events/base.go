package events

import (
	"time"

	"neuralmesh/domain/core/valueobjects"
)

// DomainEvent is the base interface for all domain events
// Events represent something that has happened in the past
type DomainEvent interface {
	GetAggregateID() string
	GetEventType() string
	GetTimestamp() time.Time
	GetStationID() string
}

// BaseEvent provides common event fields
type BaseEvent struct {
	AggregateID string    `json:"aggregate_id"`
	EventType   string    `json:"event_type"`
	Timestamp   time.Time `json:"timestamp"`
	StationID   string    `json:"station_id"`
}

func (e BaseEvent) GetAggregateID() string  { return e.AggregateID }
func (e BaseEvent) GetEventType() string    { return e.EventType }
func (e BaseEvent) GetTimestamp() time.Time { return e.Timestamp }
func (e BaseEvent) GetStationID() string    { return e.StationID }

// Node events

// NodeRegistered is raised when a node joins the capability graph
type NodeRegistered struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	NodeType string              `json:"node_type"`
}

// NewNodeRegistered creates a NodeRegistered event
func NewNodeRegistered(nodeID valueobjects.NodeID, nodeType, stationID string, timestamp time.Time) NodeRegistered {
	return NodeRegistered{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.registered",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		NodeID:   nodeID,
		NodeType: nodeType,
	}
}

// NodeActivated is raised when execution telemetry lands on a node
type NodeActivated struct {
	BaseEvent
	NodeID    valueobjects.NodeID `json:"node_id"`
	LatencyMs int64               `json:"latency_ms"`
	Success   bool                `json:"success"`
}

// NewNodeActivated creates a NodeActivated event
func NewNodeActivated(nodeID valueobjects.NodeID, stationID string, latencyMs int64, success bool, timestamp time.Time) NodeActivated {
	return NodeActivated{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.activated",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		NodeID:    nodeID,
		LatencyMs: latencyMs,
		Success:   success,
	}
}

// NodePhaseAdvanced is raised when a node moves to a later maturation phase
type NodePhaseAdvanced struct {
	BaseEvent
	NodeID   valueobjects.NodeID `json:"node_id"`
	OldPhase string              `json:"old_phase"`
	NewPhase string              `json:"new_phase"`
}

// NewNodePhaseAdvanced creates a NodePhaseAdvanced event
func NewNodePhaseAdvanced(nodeID valueobjects.NodeID, stationID, oldPhase, newPhase string, timestamp time.Time) NodePhaseAdvanced {
	return NodePhaseAdvanced{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.phase_advanced",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		NodeID:   nodeID,
		OldPhase: oldPhase,
		NewPhase: newPhase,
	}
}

// NodePruned is raised when a node is removed by an approved pruning proposal
type NodePruned struct {
	BaseEvent
	NodeID valueobjects.NodeID `json:"node_id"`
	Reason string              `json:"reason"`
}

// NewNodePruned creates a NodePruned event
func NewNodePruned(nodeID valueobjects.NodeID, stationID, reason string, timestamp time.Time) NodePruned {
	return NodePruned{
		BaseEvent: BaseEvent{
			AggregateID: nodeID.String(),
			EventType:   "node.pruned",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		NodeID: nodeID,
		Reason: reason,
	}
}

// Edge events

// EdgeCreated is raised when synaptogenesis connects two nodes
type EdgeCreated struct {
	BaseEvent
	EdgeID   string              `json:"edge_id"`
	SourceID valueobjects.NodeID `json:"source_id"`
	TargetID valueobjects.NodeID `json:"target_id"`
	Weight   float64             `json:"weight"`
}

// NewEdgeCreated creates an EdgeCreated event
func NewEdgeCreated(edgeID string, sourceID, targetID valueobjects.NodeID, stationID string, weight float64, timestamp time.Time) EdgeCreated {
	return EdgeCreated{
		BaseEvent: BaseEvent{
			AggregateID: edgeID,
			EventType:   "edge.created",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		EdgeID:   edgeID,
		SourceID: sourceID,
		TargetID: targetID,
		Weight:   weight,
	}
}

// EdgeMyelinated is raised when a high-traffic edge is reinforced
type EdgeMyelinated struct {
	BaseEvent
	EdgeID string `json:"edge_id"`
}

// NewEdgeMyelinated creates an EdgeMyelinated event
func NewEdgeMyelinated(edgeID, stationID string, timestamp time.Time) EdgeMyelinated {
	return EdgeMyelinated{
		BaseEvent: BaseEvent{
			AggregateID: edgeID,
			EventType:   "edge.myelinated",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		EdgeID: edgeID,
	}
}

// EdgePruned is raised when a low-value edge is removed
type EdgePruned struct {
	BaseEvent
	EdgeID string `json:"edge_id"`
	Reason string `json:"reason"`
}

// NewEdgePruned creates an EdgePruned event
func NewEdgePruned(edgeID, stationID, reason string, timestamp time.Time) EdgePruned {
	return EdgePruned{
		BaseEvent: BaseEvent{
			AggregateID: edgeID,
			EventType:   "edge.pruned",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		EdgeID: edgeID,
		Reason: reason,
	}
}

// Consensus events

// ConsensusResolved is raised when a cross-station vote reaches an outcome
type ConsensusResolved struct {
	BaseEvent
	ProposalID string            `json:"proposal_id"`
	Approved   bool              `json:"approved"`
	Votes      map[string]string `json:"votes"`
}

// NewConsensusResolved creates a ConsensusResolved event
func NewConsensusResolved(proposalID, stationID string, approved bool, votes map[string]string, timestamp time.Time) ConsensusResolved {
	return ConsensusResolved{
		BaseEvent: BaseEvent{
			AggregateID: proposalID,
			EventType:   "consensus.resolved",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		ProposalID: proposalID,
		Approved:   approved,
		Votes:      votes,
	}
}

// Replication events

// SubgraphMerged is raised when a remote subgraph is merged into the local view
type SubgraphMerged struct {
	BaseEvent
	RemoteStationID string `json:"remote_station_id"`
	NodesMerged     int    `json:"nodes_merged"`
	EdgesMerged     int    `json:"edges_merged"`
}

// NewSubgraphMerged creates a SubgraphMerged event
func NewSubgraphMerged(localStationID, remoteStationID string, nodesMerged, edgesMerged int, timestamp time.Time) SubgraphMerged {
	return SubgraphMerged{
		BaseEvent: BaseEvent{
			AggregateID: localStationID,
			EventType:   "subgraph.merged",
			Timestamp:   timestamp,
			StationID:   localStationID,
		},
		RemoteStationID: remoteStationID,
		NodesMerged:     nodesMerged,
		EdgesMerged:     edgesMerged,
	}
}

// MaturationCycleCompleted is raised at the end of every maturation pass
type MaturationCycleCompleted struct {
	BaseEvent
	ProposalsGenerated int           `json:"proposals_generated"`
	ProposalsApplied   int           `json:"proposals_applied"`
	PendingConsensus   int           `json:"pending_consensus"`
	Duration           time.Duration `json:"duration"`
}

// NewMaturationCycleCompleted creates a MaturationCycleCompleted event
func NewMaturationCycleCompleted(stationID string, generated, applied, pending int, duration time.Duration, timestamp time.Time) MaturationCycleCompleted {
	return MaturationCycleCompleted{
		BaseEvent: BaseEvent{
			AggregateID: stationID,
			EventType:   "maturation.cycle_completed",
			Timestamp:   timestamp,
			StationID:   stationID,
		},
		ProposalsGenerated: generated,
		ProposalsApplied:   applied,
		PendingConsensus:   pending,
		Duration:           duration,
	}
}
