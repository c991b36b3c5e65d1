package entities

import (
	"time"

	"github.com/google/uuid"

	"neuralmesh/domain/core/valueobjects"
	pkgerrors "neuralmesh/pkg/errors"
)

// ProposalType identifies the structural mutation a proposal describes
type ProposalType string

const (
	ProposalEdgeMyelinated ProposalType = "edge_myelinated"
	ProposalEdgePruned     ProposalType = "edge_pruned"
	ProposalNodePruned     ProposalType = "node_pruned"
	ProposalEdgeCreated    ProposalType = "edge_created"
)

// MutationClass separates additive mutations, applied immediately, from
// destructive ones that must clear cross-station consensus first
type MutationClass string

const (
	MutationReinforcing MutationClass = "reinforcing"
	MutationDestructive MutationClass = "destructive"
)

// ProposalChanges is the partial patch applied when a proposal is approved.
// Nil pointers mean "leave unchanged".
type ProposalChanges struct {
	Weight     *float64             `json:"weight,omitempty"`
	Myelinated *bool                `json:"myelinated,omitempty"`
	Status     *string              `json:"status,omitempty"`
	SourceID   *valueobjects.NodeID `json:"source_id,omitempty"`
	TargetID   *valueobjects.NodeID `json:"target_id,omitempty"`
}

// Proposal is an immutable record of a candidate graph mutation
type Proposal struct {
	ID       string          `json:"id"`
	Type     ProposalType    `json:"type"`
	TargetID string          `json:"target_id"`
	Reason   string          `json:"reason"`
	Class    MutationClass   `json:"class"`
	Changes  ProposalChanges `json:"changes"`
}

// NewProposal creates a proposal with a fresh ID
func NewProposal(pType ProposalType, targetID, reason string, class MutationClass, changes ProposalChanges) Proposal {
	return Proposal{
		ID:       uuid.New().String(),
		Type:     pType,
		TargetID: targetID,
		Reason:   reason,
		Class:    class,
		Changes:  changes,
	}
}

// RequiresApproval reports whether this proposal must pass consensus
// before being applied
func (p Proposal) RequiresApproval() bool {
	return p.Class == MutationDestructive
}

// Vote is one station's position on a pending proposal
type Vote string

const (
	VoteApprove Vote = "approve"
	VoteReject  Vote = "reject"
	// VoteTimeout is assigned implicitly to affected stations that never
	// voted before the window closed. It tallies as approve: silence is
	// non-objection, trading strict consent for availability.
	VoteTimeout Vote = "timeout"
)

// ConsensusRequest tracks a cross-station vote on a destructive proposal
type ConsensusRequest struct {
	ProposalID         string          `json:"proposal_id"`
	Proposal           Proposal        `json:"proposal"`
	ProposerStationID  string          `json:"proposer_station_id"`
	AffectedStationIDs []string        `json:"affected_station_ids"`
	Votes              map[string]Vote `json:"votes"`
	CreatedAt          time.Time       `json:"created_at"`
	ExpiresAt          time.Time       `json:"expires_at"`
}

// NewConsensusRequest creates a consensus request with an empty vote set
func NewConsensusRequest(proposal Proposal, proposerStationID string, affectedStationIDs []string, now time.Time, window time.Duration) (*ConsensusRequest, error) {
	if proposal.ID == "" {
		return nil, pkgerrors.NewValidationError("proposal must have an ID")
	}
	if len(affectedStationIDs) < 2 {
		return nil, pkgerrors.NewValidationError("consensus requires at least two affected stations")
	}

	affected := make([]string, len(affectedStationIDs))
	copy(affected, affectedStationIDs)

	return &ConsensusRequest{
		ProposalID:         proposal.ID,
		Proposal:           proposal,
		ProposerStationID:  proposerStationID,
		AffectedStationIDs: affected,
		Votes:              make(map[string]Vote),
		CreatedAt:          now,
		ExpiresAt:          now.Add(window),
	}, nil
}

// IsAffected reports whether a station is part of this request's vote set
func (r *ConsensusRequest) IsAffected(stationID string) bool {
	for _, id := range r.AffectedStationIDs {
		if id == stationID {
			return true
		}
	}
	return false
}

// AllVoted reports whether every affected station has cast a vote
func (r *ConsensusRequest) AllVoted() bool {
	for _, id := range r.AffectedStationIDs {
		if _, ok := r.Votes[id]; !ok {
			return false
		}
	}
	return true
}

// Expired reports whether the voting window has closed
func (r *ConsensusRequest) Expired(now time.Time) bool {
	return !now.Before(r.ExpiresAt)
}

// FillTimeouts assigns the implicit timeout vote to every affected station
// that has not voted
func (r *ConsensusRequest) FillTimeouts() {
	for _, id := range r.AffectedStationIDs {
		if _, ok := r.Votes[id]; !ok {
			r.Votes[id] = VoteTimeout
		}
	}
}

// Tally counts the final vote set. Timeout counts as approve.
func (r *ConsensusRequest) Tally() (approvals, rejections int) {
	for _, v := range r.Votes {
		switch v {
		case VoteApprove, VoteTimeout:
			approvals++
		case VoteReject:
			rejections++
		}
	}
	return approvals, rejections
}
