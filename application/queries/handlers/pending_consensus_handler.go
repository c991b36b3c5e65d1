package handlers

import (
	"context"

	"neuralmesh/application/queries"
	"neuralmesh/application/queries/bus"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/entities"
	pkgerrors "neuralmesh/pkg/errors"
)

// PendingConsensusHandler lists in-flight consensus requests
type PendingConsensusHandler struct {
	consensus *services.ConsensusCoordinator
}

// NewPendingConsensusHandler creates the consensus listing handler
func NewPendingConsensusHandler(consensus *services.ConsensusCoordinator) *PendingConsensusHandler {
	return &PendingConsensusHandler{consensus: consensus}
}

// Handle implements bus.QueryHandler
func (h *PendingConsensusHandler) Handle(ctx context.Context, query bus.Query) (interface{}, error) {
	if _, ok := query.(queries.GetPendingConsensusQuery); !ok {
		return nil, pkgerrors.NewInternalError("invalid query type for PendingConsensusHandler")
	}

	pending := h.consensus.Pending()
	if pending == nil {
		pending = []*entities.ConsensusRequest{}
	}
	return pending, nil
}
