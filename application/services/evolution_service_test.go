package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	domainservices "neuralmesh/domain/services"
	"neuralmesh/infrastructure/persistence/memory"
	"neuralmesh/infrastructure/reachability"
)

type evolutionFixture struct {
	service   *EvolutionService
	graph     *StationGraph
	graphAgg  *aggregates.Graph
	consensus *ConsensusCoordinator
	nodeRepo  ports.NodeRepository
	lock      ports.MaturationLock
	clock     *testClock
}

func newEvolutionFixture(t *testing.T, cfg *config.DomainConfig) *evolutionFixture {
	t.Helper()

	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	graphAgg, err := aggregates.NewGraph("station_alpha")
	require.NoError(t, err)
	graph := NewStationGraph(graphAgg)

	clock := &testClock{now: time.Now()}
	consensus := NewConsensusCoordinator(cfg.ConsensusWindow, zap.NewNop()).WithClock(clock.Now)

	nodeRepo := memory.NewNodeRepository()
	edgeRepo := memory.NewEdgeRepository()
	driver := NewReplicationDriver(
		"station_alpha",
		reachability.NewStaticProbe(true, true),
		nodeRepo,
		edgeRepo,
		&captureRelay{},
		memory.NewReplicationQueue(),
		domainservices.NewSubgraphManager(),
		zap.NewNop(),
	)

	lock := memory.NewMaturationLock()
	service := NewEvolutionService(
		"station_alpha",
		graph,
		domainservices.NewFitnessEngine(cfg),
		domainservices.NewProposalGenerator(cfg),
		domainservices.NewSubgraphManager(),
		consensus,
		driver,
		memory.NewEventStore(),
		lock,
		cfg,
		zap.NewNop(),
	)

	return &evolutionFixture{
		service:   service,
		graph:     graph,
		graphAgg:  graphAgg,
		consensus: consensus,
		nodeRepo:  nodeRepo,
		lock:      lock,
		clock:     clock,
	}
}

func addCapability(t *testing.T, fixture *evolutionFixture, id, owner string) *entities.Node {
	t.Helper()

	node, err := entities.NewNode(valueobjects.MustNodeID(id), entities.NodeTypeCapability, owner)
	require.NoError(t, err)
	require.NoError(t, fixture.graph.AddNode(node))
	return node
}

func TestRunCycleMyelination(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)

	a := addCapability(t, fixture, "cap_a", "station_alpha")
	addCapability(t, fixture, "cap_b", "station_alpha")

	edge, err := fixture.graphAgg.ConnectNodes(a.ID(), valueobjects.MustNodeID("cap_b"), aggregates.EdgeTypeDataFlow, 0.8)
	require.NoError(t, err)
	edge.ActivationCount = 150

	report, err := fixture.service.RunCycle(ctx)
	require.NoError(t, err)

	assert.False(t, report.Skipped)
	assert.Equal(t, 2, report.NodesScored)
	assert.Equal(t, 1, report.ProposalsGenerated)
	assert.Equal(t, 1, report.ProposalsApplied)
	assert.Zero(t, report.PendingConsensus)
	assert.Equal(t, ModeDirect, report.ReplicationMode)

	assert.True(t, edge.Myelinated)
	assert.Greater(t, a.FitnessScore(), 0.0)

	// Direct mode pushed the owned delta into the shared store.
	stored, err := fixture.nodeRepo.GetAll(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestRunCycleDestructiveConsensus(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)

	// A failing, stale synthetic node next to a foreign neighbor: prunable,
	// but only with the neighbor's owner on board.
	stale := time.Now().Add(-8 * 24 * time.Hour)
	candidate, err := entities.ReconstructNode(
		valueobjects.MustNodeID("syn_weak"), entities.NodeTypeSynthetic, "station_alpha",
		entities.StatusActive, entities.PhaseGrowth,
		5, 10, 50000, 0, 10,
		&stale, stale, stale, 1,
	)
	require.NoError(t, err)
	require.NoError(t, fixture.graph.AddNode(candidate))
	addCapability(t, fixture, "cap_theirs", "station_beta")

	// A healthy fast node keeps the global latency reference low so the
	// candidate's score lands under the pruning floor.
	healthy, err := entities.ReconstructNode(
		valueobjects.MustNodeID("cap_fast"), entities.NodeTypeCapability, "station_alpha",
		entities.StatusActive, entities.PhaseMaturation,
		90, 100, 1000, 100, 0,
		nil, stale, stale, 1,
	)
	require.NoError(t, err)
	require.NoError(t, fixture.graph.AddNode(healthy))

	_, err = fixture.graphAgg.ConnectNodes(candidate.ID(), valueobjects.MustNodeID("cap_theirs"), aggregates.EdgeTypeDataFlow, 0.3)
	require.NoError(t, err)

	report, err := fixture.service.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ProposalsGenerated)
	assert.Zero(t, report.ProposalsApplied)
	assert.Equal(t, 1, report.PendingConsensus)
	assert.False(t, candidate.IsPruned(), "destructive mutation waits for consensus")

	pending := fixture.service.PendingConsensus()
	require.Len(t, pending, 1)
	request := pending[0]
	assert.ElementsMatch(t, []string{"station_alpha", "station_beta"}, request.AffectedStationIDs)
	assert.Equal(t, entities.VoteApprove, request.Votes["station_alpha"], "proposer approves its own proposal")

	// The neighbor's approval completes the vote set and applies the prune.
	status, err := fixture.service.CastVote(ctx, request.ProposalID, "station_beta", entities.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, ResolutionApproved, status)
	assert.True(t, candidate.IsPruned())
	assert.Zero(t, fixture.graphAgg.EdgeCount(), "pruned node keeps no live edges")
	assert.Empty(t, fixture.service.PendingConsensus())
}

func TestRunCycleResolvesExpiredConsensus(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)

	stale := time.Now().Add(-8 * 24 * time.Hour)
	candidate, err := entities.ReconstructNode(
		valueobjects.MustNodeID("syn_weak"), entities.NodeTypeSynthetic, "station_alpha",
		entities.StatusActive, entities.PhaseGrowth,
		5, 10, 50000, 0, 10,
		&stale, stale, stale, 1,
	)
	require.NoError(t, err)
	require.NoError(t, fixture.graph.AddNode(candidate))
	addCapability(t, fixture, "cap_theirs", "station_beta")

	healthy, err := entities.ReconstructNode(
		valueobjects.MustNodeID("cap_fast"), entities.NodeTypeCapability, "station_alpha",
		entities.StatusActive, entities.PhaseMaturation,
		90, 100, 1000, 100, 0,
		nil, stale, stale, 1,
	)
	require.NoError(t, err)
	require.NoError(t, fixture.graph.AddNode(healthy))

	_, err = fixture.graphAgg.ConnectNodes(candidate.ID(), valueobjects.MustNodeID("cap_theirs"), aggregates.EdgeTypeDataFlow, 0.3)
	require.NoError(t, err)

	_, err = fixture.service.RunCycle(ctx)
	require.NoError(t, err)
	require.Len(t, fixture.service.PendingConsensus(), 1)

	// The neighbor never answers. Once the window closes the next cycle
	// sweeps the vote, counts the silence as approval, and prunes.
	fixture.clock.Advance(6 * time.Minute)

	report, err := fixture.service.RunCycle(ctx)
	require.NoError(t, err)

	assert.True(t, candidate.IsPruned())
	assert.GreaterOrEqual(t, report.ProposalsApplied, 1)

	// The second cycle re-proposed the prune before the sweep landed, so
	// one fresh vote remains in flight. Its eventual approval is a no-op
	// against the already-pruned node.
	assert.Len(t, fixture.service.PendingConsensus(), 1)
}

func TestRunCycleSynaptogenesis(t *testing.T) {
	ctx := context.Background()
	cfg := config.DefaultDomainConfig()
	cfg.SynaptogenesisMinCoActivations = 2
	fixture := newEvolutionFixture(t, cfg)

	a := addCapability(t, fixture, "cap_a", "station_alpha")
	b := addCapability(t, fixture, "cap_b", "station_alpha")

	fixture.graph.RecordCoActivation(a.ID(), b.ID())
	fixture.graph.RecordCoActivation(a.ID(), b.ID())

	report, err := fixture.service.RunCycle(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, report.ProposalsGenerated)
	assert.Equal(t, 1, report.ProposalsApplied)

	edge, ok := fixture.graphAgg.GetEdge("cap_a->cap_b")
	require.True(t, ok)
	assert.Equal(t, aggregates.EdgeTypeAssociation, edge.Type)
	assert.InDelta(t, 0.02, edge.Weight, 0.001)

	assert.Empty(t, fixture.graph.CoActivationLedger(), "ledger is consumed each cycle")
}

func TestRunCycleSkipsWhenLockHeld(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)
	addCapability(t, fixture, "cap_a", "station_alpha")

	_, acquired, err := fixture.lock.TryAcquire(ctx, "station_alpha", time.Minute)
	require.NoError(t, err)
	require.True(t, acquired)

	report, err := fixture.service.RunCycle(ctx)
	require.NoError(t, err)
	assert.True(t, report.Skipped)
	assert.Zero(t, report.NodesScored)
}

func TestRunCycleConcurrentWithTelemetry(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)

	a := addCapability(t, fixture, "cap_a", "station_alpha")
	addCapability(t, fixture, "cap_b", "station_alpha")
	_, err := fixture.graphAgg.ConnectNodes(a.ID(), valueobjects.MustNodeID("cap_b"), aggregates.EdgeTypeDataFlow, 0.5)
	require.NoError(t, err)

	// Telemetry keeps landing while maturation cycles score the same
	// nodes and edges from their snapshot.
	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			_ = fixture.graph.RecordActivation("cap_a", 10, true)
			_ = fixture.graph.RecordActivation("cap_a->cap_b", 10, true)
		}
	}()

	for i := 0; i < 20; i++ {
		_, err := fixture.service.RunCycle(ctx)
		require.NoError(t, err)
	}
	<-done

	assert.EqualValues(t, 200, a.ActivationCount())
}

func TestCastVoteUnknownProposal(t *testing.T) {
	fixture := newEvolutionFixture(t, nil)

	status, err := fixture.service.CastVote(context.Background(), "nonexistent", "station_beta", entities.VoteApprove)
	require.NoError(t, err)
	assert.Equal(t, ResolutionNotFound, status)
}

func TestMergeRemoteSubgraph(t *testing.T) {
	ctx := context.Background()
	fixture := newEvolutionFixture(t, nil)
	addCapability(t, fixture, "cap_mine", "station_alpha")

	remote := deltaWithNode(t, "cap_theirs", "station_beta")
	nodesMerged, edgesMerged, err := fixture.service.MergeRemoteSubgraph(ctx, remote)
	require.NoError(t, err)
	assert.Equal(t, 1, nodesMerged)
	assert.Zero(t, edgesMerged)

	_, ok := fixture.graph.GetNode(valueobjects.MustNodeID("cap_theirs"))
	assert.True(t, ok)

	// A station's own delta coming back through the relay changes nothing.
	echo := deltaWithNode(t, "cap_echo", "station_alpha")
	nodesMerged, _, err = fixture.service.MergeRemoteSubgraph(ctx, echo)
	require.NoError(t, err)
	assert.Zero(t, nodesMerged)
	_, ok = fixture.graph.GetNode(valueobjects.MustNodeID("cap_echo"))
	assert.False(t, ok)
}
