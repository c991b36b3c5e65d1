package aggregates

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

func graphWithNodes(t *testing.T, nodeIDs ...string) *Graph {
	t.Helper()

	graph, err := NewGraph("station_alpha")
	require.NoError(t, err)

	for _, id := range nodeIDs {
		node, err := entities.NewNode(valueobjects.MustNodeID(id), entities.NodeTypeCapability, "station_alpha")
		require.NoError(t, err)
		require.NoError(t, graph.AddNode(node))
	}
	return graph
}

func TestNewGraph(t *testing.T) {
	_, err := NewGraph("")
	assert.Error(t, err)

	graph, err := NewGraph("station_alpha")
	require.NoError(t, err)
	assert.Equal(t, "station_alpha", graph.StationID())
	assert.Zero(t, graph.NodeCount())
}

func TestAddNode(t *testing.T) {
	graph := graphWithNodes(t, "cap_a")

	dup, err := entities.NewNode(valueobjects.MustNodeID("cap_a"), entities.NodeTypeCapability, "station_alpha")
	require.NoError(t, err)

	assert.Error(t, graph.AddNode(dup))
	assert.Error(t, graph.AddNode(nil))
	assert.Equal(t, 1, graph.NodeCount())
}

func TestConnectNodes(t *testing.T) {
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	t.Run("creates a directed edge with a deterministic ID", func(t *testing.T) {
		graph := graphWithNodes(t, "cap_a", "cap_b")

		edge, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.6)
		require.NoError(t, err)
		assert.Equal(t, "cap_a->cap_b", edge.ID)
		assert.Equal(t, "station_alpha", edge.OwnerStationID)
		assert.True(t, graph.HasEdgeBetween(a, b))
		assert.True(t, graph.HasEdgeBetween(b, a))
	})

	t.Run("weight is clamped to the unit interval", func(t *testing.T) {
		graph := graphWithNodes(t, "cap_a", "cap_b")

		edge, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 3.5)
		require.NoError(t, err)
		assert.Equal(t, 1.0, edge.Weight)
	})

	t.Run("rejects invalid endpoints", func(t *testing.T) {
		graph := graphWithNodes(t, "cap_a", "cap_b")

		_, err := graph.ConnectNodes(a, valueobjects.MustNodeID("cap_missing"), EdgeTypeDataFlow, 0.5)
		assert.Error(t, err)

		_, err = graph.ConnectNodes(a, a, EdgeTypeDataFlow, 0.5)
		assert.Error(t, err)

		_, err = graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.5)
		require.NoError(t, err)
		_, err = graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.5)
		assert.Error(t, err, "one edge per ordered pair")

		// The opposite direction is a distinct edge.
		_, err = graph.ConnectNodes(b, a, EdgeTypeDataFlow, 0.5)
		assert.NoError(t, err)
	})

	t.Run("rejects pruned endpoints", func(t *testing.T) {
		graph := graphWithNodes(t, "cap_a", "cap_b")
		node, ok := graph.GetNode(b)
		require.True(t, ok)
		node.Prune("test")

		_, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.5)
		assert.Error(t, err)
	})
}

func TestRecordEdgeActivation(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	_, err := graph.ConnectNodes(a, b, EdgeTypeActivation, 0.5)
	require.NoError(t, err)

	edgeID := EdgeID(a, b)
	require.NoError(t, graph.RecordEdgeActivation(edgeID, 10, true))
	require.NoError(t, graph.RecordEdgeActivation(edgeID, 20, false))

	edge, ok := graph.GetEdge(edgeID)
	require.True(t, ok)
	assert.Equal(t, int64(2), edge.ActivationCount)
	assert.Equal(t, int64(2), edge.CoActivationCount)
	assert.InDelta(t, 15.0, edge.AvgLatencyMs, 0.001)

	assert.Error(t, graph.RecordEdgeActivation(edgeID, -1, true))
	assert.Error(t, graph.RecordEdgeActivation("cap_x->cap_y", 10, true))
}

func TestCoActivationLedger(t *testing.T) {
	graph := graphWithNodes(t)
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	graph.RecordCoActivation(a, b)
	graph.RecordCoActivation(a, b)
	graph.RecordCoActivation(a, a)
	graph.RecordCoActivation(valueobjects.NodeID{}, b)

	ledger := graph.CoActivationLedger()
	assert.Equal(t, map[string]int{"cap_a->cap_b": 2}, ledger)

	// The returned ledger is a copy.
	ledger["cap_a->cap_b"] = 100
	assert.Equal(t, 2, graph.CoActivationLedger()["cap_a->cap_b"])

	graph.ResetCoActivationLedger()
	assert.Empty(t, graph.CoActivationLedger())
}

func TestApplyProposalMyelination(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")
	_, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.8)
	require.NoError(t, err)

	myelinated := true
	proposal := entities.NewProposal(
		entities.ProposalEdgeMyelinated, "cap_a->cap_b", "test",
		entities.MutationReinforcing,
		entities.ProposalChanges{Myelinated: &myelinated},
	)

	require.NoError(t, graph.ApplyProposal(proposal))
	edge, _ := graph.GetEdge("cap_a->cap_b")
	assert.True(t, edge.Myelinated)

	// Re-application is a no-op, not an error.
	require.NoError(t, graph.ApplyProposal(proposal))

	// A target a peer already pruned is a no-op, not an error, so replayed
	// mutations commute.
	missing := entities.NewProposal(
		entities.ProposalEdgeMyelinated, "cap_x->cap_y", "test",
		entities.MutationReinforcing, entities.ProposalChanges{},
	)
	assert.NoError(t, graph.ApplyProposal(missing))
}

func TestApplyProposalEdgePruned(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")
	_, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.1)
	require.NoError(t, err)

	proposal := entities.NewProposal(
		entities.ProposalEdgePruned, "cap_a->cap_b", "test",
		entities.MutationReinforcing, entities.ProposalChanges{},
	)

	require.NoError(t, graph.ApplyProposal(proposal))
	assert.Zero(t, graph.EdgeCount())

	// Already absent: successful no-op.
	require.NoError(t, graph.ApplyProposal(proposal))
}

func TestApplyProposalNodePruned(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b", "cap_c")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")
	c := valueobjects.MustNodeID("cap_c")
	_, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.5)
	require.NoError(t, err)
	_, err = graph.ConnectNodes(c, a, EdgeTypeDataFlow, 0.5)
	require.NoError(t, err)
	_, err = graph.ConnectNodes(b, c, EdgeTypeDataFlow, 0.5)
	require.NoError(t, err)

	status := string(entities.StatusPruned)
	proposal := entities.NewProposal(
		entities.ProposalNodePruned, "cap_a", "test",
		entities.MutationDestructive,
		entities.ProposalChanges{Status: &status},
	)

	require.NoError(t, graph.ApplyProposal(proposal))

	node, ok := graph.GetNode(a)
	require.True(t, ok)
	assert.True(t, node.IsPruned())

	// Incident edges are removed with the node; unrelated edges survive.
	assert.Equal(t, 1, graph.EdgeCount())
	assert.True(t, graph.HasEdgeBetween(b, c))

	require.NoError(t, graph.ApplyProposal(proposal))

	// A node another station already removed entirely is a no-op too.
	absent := entities.NewProposal(
		entities.ProposalNodePruned, "cap_gone", "test",
		entities.MutationDestructive, entities.ProposalChanges{Status: &status},
	)
	assert.NoError(t, graph.ApplyProposal(absent))
}

func TestApplyProposalEdgeCreated(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	weight := 0.3
	proposal := entities.NewProposal(
		entities.ProposalEdgeCreated, "cap_a->cap_b", "test",
		entities.MutationReinforcing,
		entities.ProposalChanges{Weight: &weight, SourceID: &a, TargetID: &b},
	)

	require.NoError(t, graph.ApplyProposal(proposal))
	edge, ok := graph.GetEdge("cap_a->cap_b")
	require.True(t, ok)
	assert.Equal(t, 0.3, edge.Weight)
	assert.Equal(t, EdgeTypeAssociation, edge.Type)

	// An edge in either direction makes re-application a no-op.
	require.NoError(t, graph.ApplyProposal(proposal))
	assert.Equal(t, 1, graph.EdgeCount())

	bad := entities.NewProposal(
		entities.ProposalEdgeCreated, "cap_a->cap_b", "test",
		entities.MutationReinforcing, entities.ProposalChanges{},
	)
	assert.Error(t, graph.ApplyProposal(bad))
}

func TestGraphEventAccumulation(t *testing.T) {
	graph := graphWithNodes(t, "cap_a", "cap_b")
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	// Two NodeRegistered events from construction.
	assert.Len(t, graph.GetUncommittedEvents(), 2)

	_, err := graph.ConnectNodes(a, b, EdgeTypeDataFlow, 0.5)
	require.NoError(t, err)
	require.NoError(t, graph.RecordNodeActivation(a, 10, true))

	assert.Len(t, graph.GetUncommittedEvents(), 4)

	graph.MarkEventsAsCommitted()
	assert.Empty(t, graph.GetUncommittedEvents())
}
