package commands

// CastVoteCommand records a station's position on a pending destructive
// proposal
type CastVoteCommand struct {
	ProposalID string `json:"proposal_id" validate:"required"`
	StationID  string `json:"station_id" validate:"required"`
	Vote       string `json:"vote" validate:"required,oneof=approve reject"`
}

// Validate implements the Command interface
func (c CastVoteCommand) Validate() error {
	return validate.Struct(c)
}
