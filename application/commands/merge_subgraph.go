package commands

import (
	"neuralmesh/domain/core/aggregates"
)

// MergeSubgraphCommand folds a peer station's replicated delta into the
// local graph view. The station-to-station intake route and the relay
// consumer both dispatch it.
type MergeSubgraphCommand struct {
	Subgraph *aggregates.Subgraph `json:"subgraph" validate:"required"`
}

// Validate implements the Command interface
func (c MergeSubgraphCommand) Validate() error {
	if err := validate.Struct(c); err != nil {
		return err
	}
	return validate.Var(c.Subgraph.StationID, "required")
}
