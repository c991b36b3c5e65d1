package handlers

import (
	"context"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/services"
	pkgerrors "neuralmesh/pkg/errors"
)

// MergeReceipt reports what an inbound delta changed. A station's own
// delta reflected back through the relay merges nothing.
type MergeReceipt struct {
	SourceStationID string `json:"source_station_id"`
	NodesMerged     int    `json:"nodes_merged"`
	EdgesMerged     int    `json:"edges_merged"`
}

// MergeSubgraphHandler folds peer deltas into the local graph view
type MergeSubgraphHandler struct {
	evolution *services.EvolutionService
}

// NewMergeSubgraphHandler creates the subgraph intake handler
func NewMergeSubgraphHandler(evolution *services.EvolutionService) *MergeSubgraphHandler {
	return &MergeSubgraphHandler{evolution: evolution}
}

// Handle implements bus.CommandHandler
func (h *MergeSubgraphHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.MergeSubgraphCommand)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid command type for MergeSubgraphHandler")
	}

	nodesMerged, edgesMerged, err := h.evolution.MergeRemoteSubgraph(ctx, c.Subgraph)
	if err != nil {
		return nil, err
	}

	return &MergeReceipt{
		SourceStationID: c.Subgraph.StationID,
		NodesMerged:     nodesMerged,
		EdgesMerged:     edgesMerged,
	}, nil
}
