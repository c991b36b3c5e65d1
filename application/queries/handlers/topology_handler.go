package handlers

import (
	"context"
	"time"

	"neuralmesh/application/queries"
	"neuralmesh/application/queries/bus"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/entities"
	pkgerrors "neuralmesh/pkg/errors"
)

// TopologyNode is the wire shape of one node in the topology snapshot
type TopologyNode struct {
	ID              string     `json:"id"`
	Type            string     `json:"type"`
	OwnerStationID  string     `json:"owner_station_id"`
	Status          string     `json:"status"`
	Phase           string     `json:"phase"`
	FitnessScore    float64    `json:"fitness_score"`
	ActivationCount int64      `json:"activation_count"`
	LastActivated   *time.Time `json:"last_activated,omitempty"`
}

// TopologyEdge is the wire shape of one edge in the topology snapshot
type TopologyEdge struct {
	ID              string  `json:"id"`
	SourceID        string  `json:"source_id"`
	TargetID        string  `json:"target_id"`
	Type            string  `json:"type"`
	Weight          float64 `json:"weight"`
	Myelinated      bool    `json:"myelinated"`
	ActivationCount int64   `json:"activation_count"`
	OwnerStationID  string  `json:"owner_station_id"`
}

// Topology is the full snapshot of the station's merged graph view
type Topology struct {
	StationID string         `json:"station_id"`
	Nodes     []TopologyNode `json:"nodes"`
	Edges     []TopologyEdge `json:"edges"`
	Timestamp time.Time      `json:"timestamp"`
}

// TopologyHandler answers the topology snapshot query
type TopologyHandler struct {
	graph *services.StationGraph
}

// NewTopologyHandler creates the topology query handler
func NewTopologyHandler(graph *services.StationGraph) *TopologyHandler {
	return &TopologyHandler{graph: graph}
}

// Handle implements bus.QueryHandler
func (h *TopologyHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(queries.GetTopologyQuery); !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for TopologyHandler")
	}

	nodes, edges := h.graph.Snapshot()

	topology := &Topology{
		StationID: h.graph.StationID(),
		Nodes:     make([]TopologyNode, 0, len(nodes)),
		Edges:     make([]TopologyEdge, 0, len(edges)),
		Timestamp: time.Now(),
	}

	for _, node := range nodes {
		topology.Nodes = append(topology.Nodes, toTopologyNode(node))
	}
	for _, edge := range edges {
		topology.Edges = append(topology.Edges, TopologyEdge{
			ID:              edge.ID,
			SourceID:        edge.SourceID.String(),
			TargetID:        edge.TargetID.String(),
			Type:            string(edge.Type),
			Weight:          edge.Weight,
			Myelinated:      edge.Myelinated,
			ActivationCount: edge.ActivationCount,
			OwnerStationID:  edge.OwnerStationID,
		})
	}

	return topology, nil
}

func toTopologyNode(node *entities.Node) TopologyNode {
	return TopologyNode{
		ID:              node.ID().String(),
		Type:            string(node.Type()),
		OwnerStationID:  node.OwnerStationID(),
		Status:          string(node.Status()),
		Phase:           string(node.Phase()),
		FitnessScore:    node.FitnessScore(),
		ActivationCount: node.ActivationCount(),
		LastActivated:   node.LastActivated(),
	}
}
