package handlers

import (
	"context"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/entities"
	pkgerrors "neuralmesh/pkg/errors"
)

// VoteResult reports what a vote did to its consensus request
type VoteResult struct {
	ProposalID string                    `json:"proposal_id"`
	Accepted   bool                      `json:"accepted"`
	Resolution services.ResolutionStatus `json:"resolution"`
}

// CastVoteHandler records peer votes and applies any resolution the vote
// completes
type CastVoteHandler struct {
	evolution *services.EvolutionService
}

// NewCastVoteHandler creates the vote handler
func NewCastVoteHandler(evolution *services.EvolutionService) *CastVoteHandler {
	return &CastVoteHandler{evolution: evolution}
}

// Handle implements bus.CommandHandler
func (h *CastVoteHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.CastVoteCommand)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid command type for CastVoteHandler")
	}

	status, err := h.evolution.CastVote(ctx, c.ProposalID, c.StationID, entities.Vote(c.Vote))
	if err != nil {
		return nil, err
	}

	return &VoteResult{
		ProposalID: c.ProposalID,
		Accepted:   status != services.ResolutionNotFound,
		Resolution: status,
	}, nil
}
