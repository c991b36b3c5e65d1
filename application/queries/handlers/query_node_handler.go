package handlers

import (
	"context"

	"neuralmesh/application/queries"
	"neuralmesh/application/queries/bus"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/valueobjects"
	domainservices "neuralmesh/domain/services"
	pkgerrors "neuralmesh/pkg/errors"
)

// NodeDetail is one node's full telemetry and a freshly computed fitness
// score against the current network state
type NodeDetail struct {
	Node         TopologyNode   `json:"node"`
	Fitness      float64        `json:"fitness"`
	AvgLatencyMs float64        `json:"avg_latency_ms"`
	SuccessRate  float64        `json:"success_rate"`
	Edges        []TopologyEdge `json:"edges"`
}

// QueryNodeHandler answers the single-node detail query
type QueryNodeHandler struct {
	graph   *services.StationGraph
	fitness *domainservices.FitnessEngine
}

// NewQueryNodeHandler creates the node detail query handler
func NewQueryNodeHandler(graph *services.StationGraph, fitness *domainservices.FitnessEngine) *QueryNodeHandler {
	return &QueryNodeHandler{graph: graph, fitness: fitness}
}

// Handle implements bus.QueryHandler
func (h *QueryNodeHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	q, ok := query.(queries.QueryNodeQuery)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for QueryNodeHandler")
	}

	nodeID, err := valueobjects.NewNodeID(q.NodeID)
	if err != nil {
		return nil, err
	}

	node, exists := h.graph.GetNode(nodeID)
	if !exists {
		return nil, pkgerrors.NewNotFoundError("node " + q.NodeID)
	}

	nodes, edges := h.graph.Snapshot()
	stats := domainservices.ComputeGlobalStats(nodes)

	detail := &NodeDetail{
		Node:         toTopologyNode(node),
		Fitness:      h.fitness.NodeFitness(node, edges, stats),
		AvgLatencyMs: node.AvgLatencyMs(),
	}

	attempts := node.SuccessCount() + node.FailureCount()
	if attempts > 0 {
		detail.SuccessRate = float64(node.SuccessCount()) / float64(attempts)
	}

	for _, edge := range edges {
		if !edge.SourceID.Equals(nodeID) && !edge.TargetID.Equals(nodeID) {
			continue
		}
		detail.Edges = append(detail.Edges, TopologyEdge{
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

	return detail, nil
}
