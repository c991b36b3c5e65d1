package handlers

import (
	"context"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/services"
	pkgerrors "neuralmesh/pkg/errors"
)

// RunMaturationHandler triggers one maturation pass through the
// evolution service
type RunMaturationHandler struct {
	evolution *services.EvolutionService
}

// NewRunMaturationHandler creates the maturation trigger handler
func NewRunMaturationHandler(evolution *services.EvolutionService) *RunMaturationHandler {
	return &RunMaturationHandler{evolution: evolution}
}

// Handle implements bus.CommandHandler
func (h *RunMaturationHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	if _, ok := cmd.(commands.RunMaturationCommand); !ok {
		return nil, pkgerrors.NewInternalError("invalid command type for RunMaturationHandler")
	}
	return h.evolution.RunCycle(ctx)
}
