package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/queries"
	querybus "neuralmesh/application/queries/bus"
	"neuralmesh/pkg/common"
)

// EvolutionHandler triggers maturation passes and serves the consensus
// surface
type EvolutionHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewEvolutionHandler creates a new evolution handler
func NewEvolutionHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *EvolutionHandler {
	return &EvolutionHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// RunMaturation handles POST /neural/evolve. A pass already in flight
// yields a report with Skipped set, not an error.
func (h *EvolutionHandler) RunMaturation(w http.ResponseWriter, r *http.Request) {
	result, err := h.commandBus.Send(r.Context(), commands.RunMaturationCommand{})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// ListConsensus handles GET /consensus
func (h *EvolutionHandler) ListConsensus(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetPendingConsensusQuery{})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// CastVoteRequest represents the request body for voting on a proposal
type CastVoteRequest struct {
	StationID string `json:"station_id"`
	Vote      string `json:"vote"`
}

// CastVote handles POST /consensus/{proposalID}/vote
func (h *EvolutionHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	proposalID := chi.URLParam(r, "proposalID")

	var req CastVoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.CastVoteCommand{
		ProposalID: proposalID,
		StationID:  req.StationID,
		Vote:       req.Vote,
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}
