package services

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"neuralmesh/domain/core/entities"
	pkgerrors "neuralmesh/pkg/errors"
)

// ResolutionStatus is the outcome of a resolution attempt
type ResolutionStatus string

const (
	ResolutionPending  ResolutionStatus = "pending"
	ResolutionApproved ResolutionStatus = "approved"
	ResolutionRejected ResolutionStatus = "rejected"
	ResolutionNotFound ResolutionStatus = "not_found"
)

// Resolution is the result of resolving a consensus request
type Resolution struct {
	Status   ResolutionStatus         `json:"status"`
	Proposal entities.Proposal        `json:"proposal,omitempty"`
	Votes    map[string]entities.Vote `json:"votes,omitempty"`
}

// ConsensusCoordinator tracks in-flight cross-station votes. Requests are
// independent records keyed by proposal ID, so each gets its own lock;
// there is no global serialization beyond the map itself.
//
// Known trust assumption, preserved from the protocol design: an affected
// station that is permanently unreachable approves every proposal by
// default through the timeout vote. The protocol favors graph growth
// over strict consent.
type ConsensusCoordinator struct {
	mu       sync.RWMutex
	requests map[string]*consensusEntry

	window time.Duration
	now    func() time.Time
	logger *zap.Logger
}

type consensusEntry struct {
	mu      sync.Mutex
	request *entities.ConsensusRequest
}

// NewConsensusCoordinator creates a coordinator with the given voting window
func NewConsensusCoordinator(window time.Duration, logger *zap.Logger) *ConsensusCoordinator {
	return &ConsensusCoordinator{
		requests: make(map[string]*consensusEntry),
		window:   window,
		now:      time.Now,
		logger:   logger,
	}
}

// WithClock overrides the coordinator's clock. Test hook.
func (c *ConsensusCoordinator) WithClock(now func() time.Time) *ConsensusCoordinator {
	c.now = now
	return c
}

// Propose opens a vote on a destructive proposal touching more than one
// station
func (c *ConsensusCoordinator) Propose(proposal entities.Proposal, proposerStationID string, affectedStationIDs []string) (*entities.ConsensusRequest, error) {
	request, err := entities.NewConsensusRequest(proposal, proposerStationID, affectedStationIDs, c.now(), c.window)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, exists := c.requests[proposal.ID]; exists {
		return nil, pkgerrors.NewConflictError("consensus already pending for proposal " + proposal.ID)
	}
	c.requests[proposal.ID] = &consensusEntry{request: request}

	c.logger.Info("Consensus requested",
		zap.String("proposalID", proposal.ID),
		zap.String("type", string(proposal.Type)),
		zap.String("proposer", proposerStationID),
		zap.Strings("affected", affectedStationIDs),
		zap.Time("expiresAt", request.ExpiresAt),
	)

	return request, nil
}

// CastVote records a station's vote. Voting again overwrites the earlier
// vote. Returns false, without error, for unknown proposal IDs or voters
// outside the affected set.
func (c *ConsensusCoordinator) CastVote(proposalID, stationID string, vote entities.Vote) bool {
	entry := c.entry(proposalID)
	if entry == nil {
		return false
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.request == nil || !entry.request.IsAffected(stationID) {
		return false
	}

	entry.request.Votes[stationID] = vote

	c.logger.Debug("Vote cast",
		zap.String("proposalID", proposalID),
		zap.String("station", stationID),
		zap.String("vote", string(vote)),
	)

	return true
}

// Resolve attempts to close a vote. While affected stations are missing
// and the window is open it reports pending with no side effect. Once
// every station has voted, or the window has elapsed, non-voters receive
// the implicit timeout vote and the majority decides. Resolution is
// one-shot: the request is deleted, and a second call reports not found.
func (c *ConsensusCoordinator) Resolve(proposalID string) Resolution {
	entry := c.entry(proposalID)
	if entry == nil {
		return Resolution{Status: ResolutionNotFound}
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	request := entry.request
	if request == nil {
		return Resolution{Status: ResolutionNotFound}
	}

	if !request.AllVoted() && !request.Expired(c.now()) {
		return Resolution{Status: ResolutionPending}
	}

	request.FillTimeouts()
	approvals, rejections := request.Tally()

	status := ResolutionRejected
	if approvals > rejections {
		status = ResolutionApproved
	}

	votes := make(map[string]entities.Vote, len(request.Votes))
	for station, vote := range request.Votes {
		votes[station] = vote
	}

	// One-shot: the request and its vote set are gone after resolution.
	entry.request = nil
	c.mu.Lock()
	delete(c.requests, proposalID)
	c.mu.Unlock()

	c.logger.Info("Consensus resolved",
		zap.String("proposalID", proposalID),
		zap.String("outcome", string(status)),
		zap.Int("approvals", approvals),
		zap.Int("rejections", rejections),
	)

	return Resolution{Status: status, Proposal: request.Proposal, Votes: votes}
}

// ResolveDue resolves every request whose vote set is complete or whose
// window has elapsed, and returns the outcomes
func (c *ConsensusCoordinator) ResolveDue() []Resolution {
	var due []string
	now := c.now()

	c.mu.RLock()
	for id, entry := range c.requests {
		entry.mu.Lock()
		if entry.request != nil && (entry.request.AllVoted() || entry.request.Expired(now)) {
			due = append(due, id)
		}
		entry.mu.Unlock()
	}
	c.mu.RUnlock()

	resolutions := make([]Resolution, 0, len(due))
	for _, id := range due {
		resolution := c.Resolve(id)
		if resolution.Status == ResolutionApproved || resolution.Status == ResolutionRejected {
			resolutions = append(resolutions, resolution)
		}
	}
	return resolutions
}

// Pending returns a copy of all in-flight consensus requests
func (c *ConsensusCoordinator) Pending() []*entities.ConsensusRequest {
	c.mu.RLock()
	defer c.mu.RUnlock()

	pending := make([]*entities.ConsensusRequest, 0, len(c.requests))
	for _, entry := range c.requests {
		entry.mu.Lock()
		if entry.request != nil {
			snapshot := *entry.request
			snapshot.Votes = make(map[string]entities.Vote, len(entry.request.Votes))
			for station, vote := range entry.request.Votes {
				snapshot.Votes[station] = vote
			}
			pending = append(pending, &snapshot)
		}
		entry.mu.Unlock()
	}
	return pending
}

func (c *ConsensusCoordinator) entry(proposalID string) *consensusEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.requests[proposalID]
}
