package entities

import (
	"encoding/json"
	"time"

	"neuralmesh/domain/config"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/domain/events"
	pkgerrors "neuralmesh/pkg/errors"
)

// NodeType classifies what a graph node represents
type NodeType string

const (
	NodeTypeStation    NodeType = "station"
	NodeTypeCapability NodeType = "capability"
	NodeTypeModel      NodeType = "model"
	NodeTypeSynthetic  NodeType = "synthetic"
)

// NodeStatus represents the lifecycle state of a node
type NodeStatus string

const (
	StatusActive NodeStatus = "active"
	StatusPruned NodeStatus = "pruned"
)

// MaturationPhase is the coarse lifecycle stage of a node.
// Phases only ever move forward for a given node.
type MaturationPhase string

const (
	PhaseGenesis    MaturationPhase = "genesis"
	PhaseGrowth     MaturationPhase = "growth"
	PhaseMaturation MaturationPhase = "maturation"
	PhaseStable     MaturationPhase = "stable"
)

var phaseOrder = map[MaturationPhase]int{
	PhaseGenesis:    0,
	PhaseGrowth:     1,
	PhaseMaturation: 2,
	PhaseStable:     3,
}

// Node is a capability graph vertex with its accumulated usage telemetry.
// This is a rich domain model with encapsulated mutation rules; counters
// are only ever touched through RecordActivation.
type Node struct {
	id              valueobjects.NodeID
	nodeType        NodeType
	ownerStationID  string
	status          NodeStatus
	maturationPhase MaturationPhase
	fitnessScore    float64
	activationCount int64
	totalLatencyMs  int64
	successCount    int64
	failureCount    int64
	lastActivated   *time.Time
	createdAt       time.Time
	updatedAt       time.Time
	version         int

	events []events.DomainEvent
}

// NewNode creates a new node owned by the given station
func NewNode(id valueobjects.NodeID, nodeType NodeType, ownerStationID string) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if ownerStationID == "" {
		return nil, pkgerrors.NewValidationError("ownerStationID cannot be empty")
	}
	switch nodeType {
	case NodeTypeStation, NodeTypeCapability, NodeTypeModel, NodeTypeSynthetic:
	default:
		return nil, pkgerrors.NewValidationError("unknown node type: " + string(nodeType))
	}

	now := time.Now()
	node := &Node{
		id:              id,
		nodeType:        nodeType,
		ownerStationID:  ownerStationID,
		status:          StatusActive,
		maturationPhase: PhaseGenesis,
		createdAt:       now,
		updatedAt:       now,
		version:         1,
		events:          []events.DomainEvent{},
	}

	node.addEvent(events.NewNodeRegistered(id, string(nodeType), ownerStationID, now))

	return node, nil
}

// ReconstructNode rebuilds a node from repository data with preserved
// counters and timestamps. No events are raised.
func ReconstructNode(
	id valueobjects.NodeID,
	nodeType NodeType,
	ownerStationID string,
	status NodeStatus,
	phase MaturationPhase,
	fitnessScore float64,
	activationCount, totalLatencyMs, successCount, failureCount int64,
	lastActivated *time.Time,
	createdAt, updatedAt time.Time,
	version int,
) (*Node, error) {
	if id.IsZero() {
		return nil, pkgerrors.NewValidationError("node ID cannot be empty")
	}
	if ownerStationID == "" {
		return nil, pkgerrors.NewValidationError("ownerStationID cannot be empty")
	}

	return &Node{
		id:              id,
		nodeType:        nodeType,
		ownerStationID:  ownerStationID,
		status:          status,
		maturationPhase: phase,
		fitnessScore:    fitnessScore,
		activationCount: activationCount,
		totalLatencyMs:  totalLatencyMs,
		successCount:    successCount,
		failureCount:    failureCount,
		lastActivated:   lastActivated,
		createdAt:       createdAt,
		updatedAt:       updatedAt,
		version:         version,
		events:          []events.DomainEvent{},
	}, nil
}

// Clone returns a detached copy of the node. The copy shares no memory
// with the original and carries no uncommitted events, so it can be read
// outside the graph lock while telemetry keeps mutating the original.
func (n *Node) Clone() *Node {
	clone := *n
	if n.lastActivated != nil {
		last := *n.lastActivated
		clone.lastActivated = &last
	}
	clone.events = []events.DomainEvent{}
	return &clone
}

// ID returns the node's unique identifier
func (n *Node) ID() valueobjects.NodeID {
	return n.id
}

// Type returns what this node represents
func (n *Node) Type() NodeType {
	return n.nodeType
}

// OwnerStationID returns the station that owns this node
func (n *Node) OwnerStationID() string {
	return n.ownerStationID
}

// Status returns the node's lifecycle state
func (n *Node) Status() NodeStatus {
	return n.status
}

// IsPruned reports whether the node has been pruned
func (n *Node) IsPruned() bool {
	return n.status == StatusPruned
}

// Phase returns the node's maturation phase
func (n *Node) Phase() MaturationPhase {
	return n.maturationPhase
}

// FitnessScore returns the last computed fitness score
func (n *Node) FitnessScore() float64 {
	return n.fitnessScore
}

// ActivationCount returns the total number of recorded activations
func (n *Node) ActivationCount() int64 {
	return n.activationCount
}

// TotalLatencyMs returns the accumulated latency across all activations
func (n *Node) TotalLatencyMs() int64 {
	return n.totalLatencyMs
}

// SuccessCount returns the number of successful activations
func (n *Node) SuccessCount() int64 {
	return n.successCount
}

// FailureCount returns the number of failed activations
func (n *Node) FailureCount() int64 {
	return n.failureCount
}

// LastActivated returns when the node was last activated, or nil if never
func (n *Node) LastActivated() *time.Time {
	return n.lastActivated
}

// AvgLatencyMs returns the mean per-attempt latency, or zero with no attempts
func (n *Node) AvgLatencyMs() float64 {
	attempts := n.successCount + n.failureCount
	if attempts == 0 {
		return 0
	}
	return float64(n.totalLatencyMs) / float64(attempts)
}

// CreatedAt returns when the node was created
func (n *Node) CreatedAt() time.Time {
	return n.createdAt
}

// UpdatedAt returns when the node was last updated
func (n *Node) UpdatedAt() time.Time {
	return n.updatedAt
}

// Version returns the node's version for optimistic locking
func (n *Node) Version() int {
	return n.version
}

// RecordActivation folds one traversal step of execution telemetry into
// the node's counters
func (n *Node) RecordActivation(latencyMs int64, success bool) error {
	if n.status == StatusPruned {
		return pkgerrors.NewValidationError("cannot activate a pruned node")
	}
	if latencyMs < 0 {
		return pkgerrors.NewValidationError("latency cannot be negative")
	}

	now := time.Now()
	n.activationCount++
	n.totalLatencyMs += latencyMs
	if success {
		n.successCount++
	} else {
		n.failureCount++
	}
	n.lastActivated = &now
	n.updatedAt = now
	n.version++

	n.addEvent(events.NewNodeActivated(n.id, n.ownerStationID, latencyMs, success, now))

	return nil
}

// SetFitness stores a freshly computed fitness score
func (n *Node) SetFitness(score float64) {
	if score < 0 {
		score = 0
	}
	if score > 100 {
		score = 100
	}
	n.fitnessScore = score
	n.updatedAt = time.Now()
}

// AdvancePhase moves the node forward through its maturation phases based
// on accumulated activations. Phases never move backward.
func (n *Node) AdvancePhase(cfg *config.DomainConfig) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	target := PhaseGenesis
	switch {
	case n.activationCount >= cfg.StablePhaseActivations:
		target = PhaseStable
	case n.activationCount >= cfg.MaturationPhaseActivations:
		target = PhaseMaturation
	case n.activationCount >= cfg.GrowthPhaseActivations:
		target = PhaseGrowth
	}

	if phaseOrder[target] <= phaseOrder[n.maturationPhase] {
		return
	}

	old := n.maturationPhase
	n.maturationPhase = target
	n.updatedAt = time.Now()

	n.addEvent(events.NewNodePhaseAdvanced(n.id, n.ownerStationID, string(old), string(target), n.updatedAt))
}

// Prune marks the node as pruned. Pruning an already pruned node is a no-op.
func (n *Node) Prune(reason string) {
	if n.status == StatusPruned {
		return
	}

	n.status = StatusPruned
	n.updatedAt = time.Now()
	n.version++

	n.addEvent(events.NewNodePruned(n.id, n.ownerStationID, reason, n.updatedAt))
}

// IsOwnedBy reports whether the given station owns this node
func (n *Node) IsOwnedBy(stationID string) bool {
	return n.ownerStationID == stationID
}

// GetUncommittedEvents returns all uncommitted domain events
func (n *Node) GetUncommittedEvents() []events.DomainEvent {
	return n.events
}

// MarkEventsAsCommitted clears the uncommitted events
func (n *Node) MarkEventsAsCommitted() {
	n.events = []events.DomainEvent{}
}

func (n *Node) addEvent(event events.DomainEvent) {
	n.events = append(n.events, event)
}

// nodeJSON is the wire shape used when a node crosses a process
// boundary (replication deltas, relay payloads)
type nodeJSON struct {
	ID              string     `json:"id"`
	Type            NodeType   `json:"type"`
	OwnerStationID  string     `json:"owner_station_id"`
	Status          NodeStatus `json:"status"`
	Phase           string     `json:"phase"`
	FitnessScore    float64    `json:"fitness_score"`
	ActivationCount int64      `json:"activation_count"`
	TotalLatencyMs  int64      `json:"total_latency_ms"`
	SuccessCount    int64      `json:"success_count"`
	FailureCount    int64      `json:"failure_count"`
	LastActivated   *time.Time `json:"last_activated,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
	Version         int        `json:"version"`
}

// MarshalJSON implements json.Marshaler
func (n *Node) MarshalJSON() ([]byte, error) {
	return json.Marshal(nodeJSON{
		ID:              n.id.String(),
		Type:            n.nodeType,
		OwnerStationID:  n.ownerStationID,
		Status:          n.status,
		Phase:           string(n.maturationPhase),
		FitnessScore:    n.fitnessScore,
		ActivationCount: n.activationCount,
		TotalLatencyMs:  n.totalLatencyMs,
		SuccessCount:    n.successCount,
		FailureCount:    n.failureCount,
		LastActivated:   n.lastActivated,
		CreatedAt:       n.createdAt,
		UpdatedAt:       n.updatedAt,
		Version:         n.version,
	})
}

// UnmarshalJSON implements json.Unmarshaler. Deserialized nodes carry
// no uncommitted events.
func (n *Node) UnmarshalJSON(data []byte) error {
	var wire nodeJSON
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	id, err := valueobjects.NewNodeID(wire.ID)
	if err != nil {
		return err
	}

	n.id = id
	n.nodeType = wire.Type
	n.ownerStationID = wire.OwnerStationID
	n.status = wire.Status
	n.maturationPhase = MaturationPhase(wire.Phase)
	n.fitnessScore = wire.FitnessScore
	n.activationCount = wire.ActivationCount
	n.totalLatencyMs = wire.TotalLatencyMs
	n.successCount = wire.SuccessCount
	n.failureCount = wire.FailureCount
	n.lastActivated = wire.LastActivated
	n.createdAt = wire.CreatedAt
	n.updatedAt = wire.UpdatedAt
	n.version = wire.Version
	n.events = []events.DomainEvent{}

	return nil
}
