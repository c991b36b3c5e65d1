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

// StationStatus is the station summary returned by the status query
type StationStatus struct {
	StationID        string    `json:"station_id"`
	NodeCount        int       `json:"node_count"`
	EdgeCount        int       `json:"edge_count"`
	MyelinatedEdges  int       `json:"myelinated_edges"`
	PrunedNodes      int       `json:"pruned_nodes"`
	AvgFitness       float64   `json:"avg_fitness"`
	PendingConsensus int       `json:"pending_consensus"`
	QueuedDeltas     int       `json:"queued_deltas"`
	Timestamp        time.Time `json:"timestamp"`
}

// StatusHandler answers the station summary query
type StatusHandler struct {
	graph       *services.StationGraph
	consensus   *services.ConsensusCoordinator
	replication *services.ReplicationDriver
}

// NewStatusHandler creates the status query handler
func NewStatusHandler(graph *services.StationGraph, consensus *services.ConsensusCoordinator, replication *services.ReplicationDriver) *StatusHandler {
	return &StatusHandler{graph: graph, consensus: consensus, replication: replication}
}

// Handle implements bus.QueryHandler
func (h *StatusHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(queries.GetStatusQuery); !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for StatusHandler")
	}

	nodes, edges := h.graph.Snapshot()

	status := &StationStatus{
		StationID:        h.graph.StationID(),
		NodeCount:        len(nodes),
		EdgeCount:        len(edges),
		PendingConsensus: len(h.consensus.Pending()),
		QueuedDeltas:     h.replication.QueueDepth(ctx),
		Timestamp:        time.Now(),
	}

	var fitnessTotal float64
	var active int
	for _, node := range nodes {
		if node.IsPruned() {
			status.PrunedNodes++
			continue
		}
		if node.Status() == entities.StatusActive {
			fitnessTotal += node.FitnessScore()
			active++
		}
	}
	if active > 0 {
		status.AvgFitness = fitnessTotal / float64(active)
	}

	for _, edge := range edges {
		if edge.Myelinated {
			status.MyelinatedEdges++
		}
	}

	return status, nil
}
