package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neuralmesh/domain/core/entities"
)

func destructiveProposal() entities.Proposal {
	status := string(entities.StatusPruned)
	return entities.NewProposal(
		entities.ProposalNodePruned, "syn_node", "test",
		entities.MutationDestructive,
		entities.ProposalChanges{Status: &status},
	)
}

// testClock drives the coordinator's view of time in tests.
type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time          { return c.now }
func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCoordinator(window time.Duration) (*ConsensusCoordinator, *testClock) {
	clock := &testClock{now: time.Now()}
	coordinator := NewConsensusCoordinator(window, zap.NewNop()).WithClock(clock.Now)
	return coordinator, clock
}

func TestPropose(t *testing.T) {
	coordinator, _ := newTestCoordinator(5 * time.Minute)
	proposal := destructiveProposal()

	t.Run("requires at least two affected stations", func(t *testing.T) {
		_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha"})
		assert.Error(t, err)
	})

	t.Run("opens a vote with an empty vote set", func(t *testing.T) {
		request, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
		require.NoError(t, err)
		assert.Equal(t, proposal.ID, request.ProposalID)
		assert.Empty(t, request.Votes)
		assert.Len(t, coordinator.Pending(), 1)
	})

	t.Run("rejects a duplicate proposal", func(t *testing.T) {
		_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
		assert.Error(t, err)
	})
}

func TestCastVote(t *testing.T) {
	coordinator, _ := newTestCoordinator(5 * time.Minute)
	proposal := destructiveProposal()
	_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
	require.NoError(t, err)

	assert.False(t, coordinator.CastVote("nonexistent", "station_alpha", entities.VoteApprove))
	assert.False(t, coordinator.CastVote(proposal.ID, "station_outsider", entities.VoteApprove))
	assert.True(t, coordinator.CastVote(proposal.ID, "station_beta", entities.VoteReject))

	// A later vote from the same station overwrites the earlier one.
	assert.True(t, coordinator.CastVote(proposal.ID, "station_beta", entities.VoteApprove))

	pending := coordinator.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, entities.VoteApprove, pending[0].Votes["station_beta"])
}

func TestResolve(t *testing.T) {
	t.Run("pending while votes are missing and the window is open", func(t *testing.T) {
		coordinator, _ := newTestCoordinator(5 * time.Minute)
		proposal := destructiveProposal()
		_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
		require.NoError(t, err)

		resolution := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionPending, resolution.Status)
		assert.Len(t, coordinator.Pending(), 1, "pending resolution has no side effect")
	})

	t.Run("complete vote set resolves by majority", func(t *testing.T) {
		coordinator, _ := newTestCoordinator(5 * time.Minute)
		proposal := destructiveProposal()
		affected := []string{"station_alpha", "station_beta", "station_gamma"}
		_, err := coordinator.Propose(proposal, "station_alpha", affected)
		require.NoError(t, err)

		coordinator.CastVote(proposal.ID, "station_alpha", entities.VoteApprove)
		coordinator.CastVote(proposal.ID, "station_beta", entities.VoteApprove)
		coordinator.CastVote(proposal.ID, "station_gamma", entities.VoteReject)

		resolution := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionApproved, resolution.Status)
		assert.Equal(t, proposal.ID, resolution.Proposal.ID)
		assert.Len(t, resolution.Votes, 3)
	})

	t.Run("unanimous rejection resolves rejected", func(t *testing.T) {
		coordinator, _ := newTestCoordinator(5 * time.Minute)
		proposal := destructiveProposal()
		_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
		require.NoError(t, err)

		coordinator.CastVote(proposal.ID, "station_alpha", entities.VoteReject)
		coordinator.CastVote(proposal.ID, "station_beta", entities.VoteReject)

		resolution := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionRejected, resolution.Status)
	})

	t.Run("silent stations approve once the window closes", func(t *testing.T) {
		coordinator, clock := newTestCoordinator(5 * time.Minute)
		proposal := destructiveProposal()
		affected := []string{"station_alpha", "station_beta", "station_gamma"}
		_, err := coordinator.Propose(proposal, "station_alpha", affected)
		require.NoError(t, err)

		coordinator.CastVote(proposal.ID, "station_gamma", entities.VoteReject)
		clock.Advance(5*time.Minute + time.Second)

		resolution := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionApproved, resolution.Status)
		assert.Equal(t, entities.VoteTimeout, resolution.Votes["station_alpha"])
		assert.Equal(t, entities.VoteTimeout, resolution.Votes["station_beta"])
		assert.Equal(t, entities.VoteReject, resolution.Votes["station_gamma"])
	})

	t.Run("resolution is one-shot", func(t *testing.T) {
		coordinator, clock := newTestCoordinator(5 * time.Minute)
		proposal := destructiveProposal()
		_, err := coordinator.Propose(proposal, "station_alpha", []string{"station_alpha", "station_beta"})
		require.NoError(t, err)
		clock.Advance(6 * time.Minute)

		first := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionApproved, first.Status)

		second := coordinator.Resolve(proposal.ID)
		assert.Equal(t, ResolutionNotFound, second.Status)
		assert.Empty(t, coordinator.Pending())
	})

	t.Run("unknown proposal reports not found", func(t *testing.T) {
		coordinator, _ := newTestCoordinator(5 * time.Minute)
		resolution := coordinator.Resolve("nonexistent")
		assert.Equal(t, ResolutionNotFound, resolution.Status)
	})
}

func TestResolveDue(t *testing.T) {
	coordinator, clock := newTestCoordinator(5 * time.Minute)

	expired := destructiveProposal()
	_, err := coordinator.Propose(expired, "station_alpha", []string{"station_alpha", "station_beta"})
	require.NoError(t, err)

	clock.Advance(6 * time.Minute)

	// Opened after the clock advanced, so its window is still live.
	live := destructiveProposal()
	_, err = coordinator.Propose(live, "station_alpha", []string{"station_alpha", "station_beta"})
	require.NoError(t, err)

	complete := destructiveProposal()
	_, err = coordinator.Propose(complete, "station_alpha", []string{"station_alpha", "station_beta"})
	require.NoError(t, err)
	coordinator.CastVote(complete.ID, "station_alpha", entities.VoteApprove)
	coordinator.CastVote(complete.ID, "station_beta", entities.VoteApprove)

	resolutions := coordinator.ResolveDue()
	assert.Len(t, resolutions, 2)

	pending := coordinator.Pending()
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ProposalID)
}
