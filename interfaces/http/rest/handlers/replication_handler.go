package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/pkg/common"
)

const maxSubgraphBodyBytes = 4 * 1024 * 1024

// ReplicationHandler accepts replicated subgraph deltas from peer
// stations
type ReplicationHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewReplicationHandler creates a new replication handler
func NewReplicationHandler(commandBus *bus.CommandBus, logger *zap.Logger) *ReplicationHandler {
	return &ReplicationHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// MergeSubgraph handles POST /replication/subgraph
func (h *ReplicationHandler) MergeSubgraph(w http.ResponseWriter, r *http.Request) {
	var subgraph aggregates.Subgraph
	if err := common.ParseJSONBody(r, &subgraph, maxSubgraphBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.MergeSubgraphCommand{Subgraph: &subgraph}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, result)
}
