package aggregates

import (
	"time"

	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/domain/events"
	pkgerrors "neuralmesh/pkg/errors"
)

// EdgeType defines the kind of relationship an edge carries
type EdgeType string

const (
	EdgeTypeDataFlow    EdgeType = "data_flow"
	EdgeTypeActivation  EdgeType = "activation"
	EdgeTypeAssociation EdgeType = "association"
)

// Edge is a directed relationship between two nodes. Its ID is derived
// deterministically from the ordered endpoint pair, which enforces the
// at-most-one-edge-per-direction invariant at the storage key level.
type Edge struct {
	ID                string              `json:"id"`
	SourceID          valueobjects.NodeID `json:"source_id"`
	TargetID          valueobjects.NodeID `json:"target_id"`
	Type              EdgeType            `json:"type"`
	Weight            float64             `json:"weight"`
	Myelinated        bool                `json:"myelinated"`
	ActivationCount   int64               `json:"activation_count"`
	CoActivationCount int64               `json:"co_activation_count"`
	AvgLatencyMs      float64             `json:"avg_latency_ms"`
	OwnerStationID    string              `json:"owner_station_id"`
	CreatedAt         time.Time           `json:"created_at"`
}

// EdgeID derives the deterministic edge identifier for an ordered pair
func EdgeID(sourceID, targetID valueobjects.NodeID) string {
	return sourceID.String() + "->" + targetID.String()
}

// Clone returns a detached copy of the edge
func (e *Edge) Clone() *Edge {
	clone := *e
	return &clone
}

// Graph is the aggregate root for a station's local view of the
// capability graph. It holds every node and edge the station knows about
// (owned and cached foreign copies) plus the co-activation ledger that
// feeds synaptogenesis.
type Graph struct {
	stationID    string
	nodes        map[valueobjects.NodeID]*entities.Node
	edges        map[string]*Edge
	coActivation map[string]int
	updatedAt    time.Time
	version      int
	events       []events.DomainEvent
}

// NewGraph creates an empty local graph for a station
func NewGraph(stationID string) (*Graph, error) {
	if stationID == "" {
		return nil, pkgerrors.NewValidationError("stationID cannot be empty")
	}

	return &Graph{
		stationID:    stationID,
		nodes:        make(map[valueobjects.NodeID]*entities.Node),
		edges:        make(map[string]*Edge),
		coActivation: make(map[string]int),
		updatedAt:    time.Now(),
		version:      1,
		events:       []events.DomainEvent{},
	}, nil
}

// StationID returns the station this graph view belongs to
func (g *Graph) StationID() string {
	return g.stationID
}

// NodeCount returns the number of nodes in the local view
func (g *Graph) NodeCount() int {
	return len(g.nodes)
}

// EdgeCount returns the number of edges in the local view
func (g *Graph) EdgeCount() int {
	return len(g.edges)
}

// UpdatedAt returns when the graph was last mutated
func (g *Graph) UpdatedAt() time.Time {
	return g.updatedAt
}

// Version returns the graph's mutation counter
func (g *Graph) Version() int {
	return g.version
}

// AddNode adds a node to the local view
func (g *Graph) AddNode(node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	if _, exists := g.nodes[node.ID()]; exists {
		return pkgerrors.NewConflictError("node already exists in graph")
	}

	g.nodes[node.ID()] = node
	g.touch()

	return nil
}

// PutNode inserts or replaces a node without raising an error on
// collision. Used by subgraph merging where replacement is the point.
func (g *Graph) PutNode(node *entities.Node) {
	if node == nil {
		return
	}
	g.nodes[node.ID()] = node
	g.touch()
}

// GetNode retrieves a node by ID
func (g *Graph) GetNode(nodeID valueobjects.NodeID) (*entities.Node, bool) {
	node, ok := g.nodes[nodeID]
	return node, ok
}

// Nodes returns a copy of the node set
func (g *Graph) Nodes() []*entities.Node {
	nodes := make([]*entities.Node, 0, len(g.nodes))
	for _, node := range g.nodes {
		nodes = append(nodes, node)
	}
	return nodes
}

// Edges returns a copy of the edge set
func (g *Graph) Edges() []*Edge {
	edges := make([]*Edge, 0, len(g.edges))
	for _, edge := range g.edges {
		edges = append(edges, edge)
	}
	return edges
}

// GetEdge retrieves an edge by its deterministic ID
func (g *Graph) GetEdge(edgeID string) (*Edge, bool) {
	edge, ok := g.edges[edgeID]
	return edge, ok
}

// HasEdgeBetween reports whether an edge exists in either direction
// between two nodes
func (g *Graph) HasEdgeBetween(a, b valueobjects.NodeID) bool {
	if _, ok := g.edges[EdgeID(a, b)]; ok {
		return true
	}
	_, ok := g.edges[EdgeID(b, a)]
	return ok
}

// ConnectNodes creates an edge between two existing, unpruned nodes.
// At most one edge may exist per ordered pair.
func (g *Graph) ConnectNodes(sourceID, targetID valueobjects.NodeID, edgeType EdgeType, weight float64) (*Edge, error) {
	source, sourceExists := g.nodes[sourceID]
	target, targetExists := g.nodes[targetID]
	if !sourceExists || !targetExists {
		return nil, pkgerrors.NewValidationError("both nodes must exist in graph")
	}
	if source.IsPruned() || target.IsPruned() {
		return nil, pkgerrors.NewValidationError("cannot connect pruned nodes")
	}
	if sourceID.Equals(targetID) {
		return nil, pkgerrors.NewValidationError("cannot connect node to itself")
	}

	edgeID := EdgeID(sourceID, targetID)
	if _, exists := g.edges[edgeID]; exists {
		return nil, pkgerrors.NewConflictError("edge already exists")
	}

	if weight < 0 {
		weight = 0
	}
	if weight > 1 {
		weight = 1
	}

	now := time.Now()
	edge := &Edge{
		ID:             edgeID,
		SourceID:       sourceID,
		TargetID:       targetID,
		Type:           edgeType,
		Weight:         weight,
		OwnerStationID: g.stationID,
		CreatedAt:      now,
	}

	g.edges[edgeID] = edge
	g.touch()

	g.addEvent(events.NewEdgeCreated(edgeID, sourceID, targetID, g.stationID, weight, now))

	return edge, nil
}

// PutEdge inserts or replaces an edge. Used by subgraph merging.
func (g *Graph) PutEdge(edge *Edge) {
	if edge == nil {
		return
	}
	g.edges[edge.ID] = edge
	g.touch()
}

// RecordNodeActivation routes execution telemetry to a node
func (g *Graph) RecordNodeActivation(nodeID valueobjects.NodeID, latencyMs int64, success bool) error {
	node, ok := g.nodes[nodeID]
	if !ok {
		return pkgerrors.NewNotFoundError("node " + nodeID.String())
	}
	return node.RecordActivation(latencyMs, success)
}

// RecordEdgeActivation routes execution telemetry to an edge and ticks
// the endpoint pair's co-activation counter
func (g *Graph) RecordEdgeActivation(edgeID string, latencyMs int64, success bool) error {
	edge, ok := g.edges[edgeID]
	if !ok {
		return pkgerrors.NewNotFoundError("edge " + edgeID)
	}
	if latencyMs < 0 {
		return pkgerrors.NewValidationError("latency cannot be negative")
	}

	// Running average keeps the row small; exact totals live on the nodes.
	total := edge.AvgLatencyMs*float64(edge.ActivationCount) + float64(latencyMs)
	edge.ActivationCount++
	edge.AvgLatencyMs = total / float64(edge.ActivationCount)
	edge.CoActivationCount++
	g.touch()

	return nil
}

// RecordCoActivation notes that two nodes were observed in simultaneous
// use. The ledger key is direction-normalized at proposal time, not here.
func (g *Graph) RecordCoActivation(a, b valueobjects.NodeID) {
	if a.IsZero() || b.IsZero() || a.Equals(b) {
		return
	}
	g.coActivation[EdgeID(a, b)]++
	g.touch()
}

// CoActivationLedger returns a copy of the pair-usage counts
func (g *Graph) CoActivationLedger() map[string]int {
	ledger := make(map[string]int, len(g.coActivation))
	for k, v := range g.coActivation {
		ledger[k] = v
	}
	return ledger
}

// ResetCoActivationLedger clears pair-usage counts after a synaptogenesis
// pass has consumed them
func (g *Graph) ResetCoActivationLedger() {
	g.coActivation = make(map[string]int)
}

// ApplyProposal applies an approved mutation to the local view. All
// mutation types are idempotent: re-applying a proposal whose effect is
// already present is a successful no-op, and so is a target a peer has
// already removed, which is what makes replicated application across
// stations order-tolerant.
func (g *Graph) ApplyProposal(proposal entities.Proposal) error {
	switch proposal.Type {
	case entities.ProposalEdgeMyelinated:
		edge, ok := g.edges[proposal.TargetID]
		if !ok {
			return nil
		}
		if edge.Myelinated {
			return nil
		}
		edge.Myelinated = true
		g.touch()
		g.addEvent(events.NewEdgeMyelinated(edge.ID, g.stationID, time.Now()))
		return nil

	case entities.ProposalEdgePruned:
		if _, ok := g.edges[proposal.TargetID]; !ok {
			return nil
		}
		delete(g.edges, proposal.TargetID)
		g.touch()
		g.addEvent(events.NewEdgePruned(proposal.TargetID, g.stationID, proposal.Reason, time.Now()))
		return nil

	case entities.ProposalNodePruned:
		nodeID, err := valueobjects.NewNodeID(proposal.TargetID)
		if err != nil {
			return pkgerrors.NewValidationError("invalid node target: " + proposal.TargetID)
		}
		node, ok := g.nodes[nodeID]
		if !ok {
			return nil
		}
		if node.IsPruned() {
			return nil
		}
		node.Prune(proposal.Reason)
		// Pruned nodes keep no live edges.
		for id, edge := range g.edges {
			if edge.SourceID.Equals(nodeID) || edge.TargetID.Equals(nodeID) {
				delete(g.edges, id)
			}
		}
		g.touch()
		return nil

	case entities.ProposalEdgeCreated:
		if proposal.Changes.SourceID == nil || proposal.Changes.TargetID == nil {
			return pkgerrors.NewValidationError("edge_created proposal missing endpoints")
		}
		sourceID := *proposal.Changes.SourceID
		targetID := *proposal.Changes.TargetID
		if g.HasEdgeBetween(sourceID, targetID) {
			return nil
		}
		weight := 0.0
		if proposal.Changes.Weight != nil {
			weight = *proposal.Changes.Weight
		}
		_, err := g.ConnectNodes(sourceID, targetID, EdgeTypeAssociation, weight)
		return err

	default:
		return pkgerrors.NewValidationError("unknown proposal type: " + string(proposal.Type))
	}
}

// GetUncommittedEvents returns uncommitted events from the graph and
// every node in it
func (g *Graph) GetUncommittedEvents() []events.DomainEvent {
	all := make([]events.DomainEvent, len(g.events))
	copy(all, g.events)
	for _, node := range g.nodes {
		all = append(all, node.GetUncommittedEvents()...)
	}
	return all
}

// MarkEventsAsCommitted clears all uncommitted events
func (g *Graph) MarkEventsAsCommitted() {
	g.events = []events.DomainEvent{}
	for _, node := range g.nodes {
		node.MarkEventsAsCommitted()
	}
}

func (g *Graph) addEvent(event events.DomainEvent) {
	g.events = append(g.events, event)
}

func (g *Graph) touch() {
	g.updatedAt = time.Now()
	g.version++
}
