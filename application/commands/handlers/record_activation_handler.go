package handlers

import (
	"context"

	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/ports"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	pkgerrors "neuralmesh/pkg/errors"
)

// ActivationResult reports what one telemetry sample touched
type ActivationResult struct {
	TargetID      string `json:"target_id"`
	Registered    bool   `json:"registered"`
	CoActivations int    `json:"co_activations"`
}

// RecordActivationHandler ingests execution telemetry. Unknown node
// targets are registered on first sight as synthetic nodes owned by this
// station, which is how synthetic nodes enter the graph at all.
type RecordActivationHandler struct {
	stationID string
	graph     *services.StationGraph
	nodeRepo  ports.NodeRepository
	logger    *zap.Logger
}

// NewRecordActivationHandler creates the telemetry ingestion handler
func NewRecordActivationHandler(stationID string, graph *services.StationGraph, nodeRepo ports.NodeRepository, logger *zap.Logger) *RecordActivationHandler {
	return &RecordActivationHandler{
		stationID: stationID,
		graph:     graph,
		nodeRepo:  nodeRepo,
		logger:    logger,
	}
}

// Handle implements bus.CommandHandler
func (h *RecordActivationHandler) Handle(ctx context.Context, cmd bus.Command) (interface{}, error) {
	c, ok := cmd.(commands.RecordActivationCommand)
	if !ok {
		return nil, pkgerrors.NewInternalError("invalid command type for RecordActivationHandler")
	}

	result := &ActivationResult{TargetID: c.TargetID}

	registered, err := h.ensureTarget(ctx, c.TargetID)
	if err != nil {
		return nil, err
	}
	result.Registered = registered

	if err := h.graph.RecordActivation(c.TargetID, c.LatencyMs, c.Success); err != nil {
		return nil, err
	}

	targetNodeID, targetErr := valueobjects.NewNodeID(c.TargetID)
	for _, other := range c.CoActivatedWith {
		otherID, err := valueobjects.NewNodeID(other)
		if err != nil || targetErr != nil {
			continue
		}
		h.graph.RecordCoActivation(targetNodeID, otherID)
		result.CoActivations++
	}

	return result, nil
}

// ensureTarget registers an unknown node target as a synthetic node.
// Edge targets and already-known nodes pass through untouched.
func (h *RecordActivationHandler) ensureTarget(ctx context.Context, targetID string) (bool, error) {
	nodeID, err := valueobjects.NewNodeID(targetID)
	if err != nil {
		// Edge IDs contain the arrow and fail NodeID validation; the
		// graph routes them by edge lookup.
		return false, nil
	}

	if _, exists := h.graph.GetNode(nodeID); exists {
		return false, nil
	}

	node, err := entities.NewNode(nodeID, entities.NodeTypeSynthetic, h.stationID)
	if err != nil {
		return false, err
	}
	if err := h.graph.AddNode(node); err != nil {
		return false, err
	}
	if err := h.nodeRepo.Save(ctx, node); err != nil {
		h.logger.Warn("Failed to persist synthetic node", zap.String("nodeID", targetID), zap.Error(err))
	}

	h.logger.Debug("Registered synthetic node from telemetry", zap.String("nodeID", targetID))
	return true, nil
}
