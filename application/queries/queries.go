package queries

import (
	pkgerrors "neuralmesh/pkg/errors"
)

// GetStatusQuery asks for the station summary
type GetStatusQuery struct{}

// Validate implements the Query interface
func (q GetStatusQuery) Validate() error { return nil }

// GetTopologyQuery asks for the full merged topology snapshot
type GetTopologyQuery struct{}

// Validate implements the Query interface
func (q GetTopologyQuery) Validate() error { return nil }

// GetPendingConsensusQuery lists in-flight consensus requests
type GetPendingConsensusQuery struct{}

// Validate implements the Query interface
func (q GetPendingConsensusQuery) Validate() error { return nil }

// QueryNodeQuery asks for one node's detail and fitness breakdown
type QueryNodeQuery struct {
	NodeID string `json:"node_id"`
}

// Validate implements the Query interface
func (q QueryNodeQuery) Validate() error {
	if q.NodeID == "" {
		return pkgerrors.NewValidationError("node_id is required")
	}
	return nil
}
