package handlers

import (
	"context"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/ports"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	pkgerrors "neuralmesh/pkg/errors"
)

// RegisterNodeHandler adds a node to the local slice and persists it
type RegisterNodeHandler struct {
	stationID string
	graph     *services.StationGraph
	nodeRepo  ports.NodeRepository
}

// NewRegisterNodeHandler creates the node registration handler
func NewRegisterNodeHandler(stationID string, graph *services.StationGraph, nodeRepo ports.NodeRepository) *RegisterNodeHandler {
	return &RegisterNodeHandler{stationID: stationID, graph: graph, nodeRepo: nodeRepo}
}

// Handle implements bus.CommandHandler
func (h *RegisterNodeHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RegisterNodeCommand)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid command type for RegisterNodeHandler")
	}

	nodeID, err := valueobjects.NewNodeID(c.NodeID)
	if err != nil {
		return nil, err
	}

	node, err := entities.NewNode(nodeID, entities.NodeType(c.NodeType), h.stationID)
	if err != nil {
		return nil, err
	}

	if err := h.graph.AddNode(node); err != nil {
		return nil, err
	}
	if err := h.nodeRepo.Save(ctx, node); err != nil {
		return nil, pkgerrors.NewDatabaseError("save node", err)
	}

	return node, nil
}
