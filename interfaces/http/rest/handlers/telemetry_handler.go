package handlers

import (
	"net/http"

	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/pkg/common"
)

const maxActivationBodyBytes = 64 * 1024

// TelemetryHandler ingests execution telemetry from capability executors
type TelemetryHandler struct {
	commandBus *bus.CommandBus
	logger     *zap.Logger
}

// NewTelemetryHandler creates a new telemetry handler
func NewTelemetryHandler(commandBus *bus.CommandBus, logger *zap.Logger) *TelemetryHandler {
	return &TelemetryHandler{
		commandBus: commandBus,
		logger:     logger,
	}
}

// RecordActivationRequest represents one activation sample
type RecordActivationRequest struct {
	TargetID        string   `json:"target_id"`
	LatencyMs       int64    `json:"latency_ms"`
	Success         bool     `json:"success"`
	CoActivatedWith []string `json:"co_activated_with,omitempty"`
}

// RecordActivation handles POST /telemetry/activations
func (h *TelemetryHandler) RecordActivation(w http.ResponseWriter, r *http.Request) {
	var req RecordActivationRequest
	if err := common.ParseJSONBody(r, &req, maxActivationBodyBytes); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.RecordActivationCommand{
		TargetID:        req.TargetID,
		LatencyMs:       req.LatencyMs,
		Success:         req.Success,
		CoActivatedWith: req.CoActivatedWith,
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusAccepted, result)
}
