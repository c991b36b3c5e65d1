package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	"neuralmesh/application/queries"
	querybus "neuralmesh/application/queries/bus"
	"neuralmesh/pkg/common"
	pkgerrors "neuralmesh/pkg/errors"
)

// StationHandler serves the station's read surface and node registration
type StationHandler struct {
	commandBus *bus.CommandBus
	queryBus   *querybus.QueryBus
	logger     *zap.Logger
}

// NewStationHandler creates a new station handler
func NewStationHandler(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	logger *zap.Logger,
) *StationHandler {
	return &StationHandler{
		commandBus: commandBus,
		queryBus:   queryBus,
		logger:     logger,
	}
}

// GetStatus handles GET /neural/status
func (h *StationHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetStatusQuery{})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// GetTopology handles GET /neural/topology
func (h *StationHandler) GetTopology(w http.ResponseWriter, r *http.Request) {
	result, err := h.queryBus.Ask(r.Context(), queries.GetTopologyQuery{})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// QueryNode handles GET /neural/query?node=<id>
func (h *StationHandler) QueryNode(w http.ResponseWriter, r *http.Request) {
	nodeID := r.URL.Query().Get("node")

	result, err := h.queryBus.Ask(r.Context(), queries.QueryNodeQuery{NodeID: nodeID})
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusOK, result)
}

// RegisterNodeRequest represents the request body for registering a node
type RegisterNodeRequest struct {
	NodeID   string `json:"node_id"`
	NodeType string `json:"node_type"`
}

// RegisterNode handles POST /neural/nodes
func (h *StationHandler) RegisterNode(w http.ResponseWriter, r *http.Request) {
	var req RegisterNodeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, "Invalid request body: "+err.Error())
		return
	}

	cmd := commands.RegisterNodeCommand{
		NodeID:   req.NodeID,
		NodeType: req.NodeType,
	}

	result, err := h.commandBus.Send(r.Context(), cmd)
	if err != nil {
		respondAppError(w, h.logger, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, result)
}

// respondAppError maps application errors onto HTTP responses
func respondAppError(w http.ResponseWriter, logger *zap.Logger, err error) {
	if appErr := pkgerrors.GetAppError(err); appErr != nil {
		if appErr.HTTPStatus >= 500 {
			logger.Error("Request failed", zap.Error(err))
		}
		common.RespondError(w, appErr.HTTPStatus, string(appErr.Type), appErr.Message)
		return
	}

	logger.Error("Request failed", zap.Error(err))
	common.RespondError(w, http.StatusBadRequest, common.StandardErrorCodes.BadRequest, err.Error())
}
