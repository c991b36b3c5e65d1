package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

func syntheticNode(t *testing.T, id string, fitness float64, lastActivated *time.Time) *entities.Node {
	t.Helper()

	nodeID, err := valueobjects.NewNodeID(id)
	require.NoError(t, err)

	created := time.Now().Add(-30 * 24 * time.Hour)
	node, err := entities.ReconstructNode(
		nodeID, entities.NodeTypeSynthetic, "station_alpha",
		entities.StatusActive, entities.PhaseGrowth,
		fitness, 5, 50, 4, 1,
		lastActivated, created, created, 1,
	)
	require.NoError(t, err)
	return node
}

func TestMyelinationPass(t *testing.T) {
	gen := NewProposalGenerator(config.DefaultDomainConfig())
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	tests := []struct {
		name string
		edge *aggregates.Edge
		want int
	}{
		{
			name: "qualifying edge",
			edge: &aggregates.Edge{ID: "cap_a->cap_b", SourceID: a, TargetID: b, Weight: 0.8, ActivationCount: 150},
			want: 1,
		},
		{
			name: "already myelinated",
			edge: &aggregates.Edge{ID: "cap_a->cap_b", SourceID: a, TargetID: b, Weight: 0.8, ActivationCount: 150, Myelinated: true},
			want: 0,
		},
		{
			name: "traffic below threshold",
			edge: &aggregates.Edge{ID: "cap_a->cap_b", SourceID: a, TargetID: b, Weight: 0.8, ActivationCount: 99},
			want: 0,
		},
		{
			name: "weight below threshold",
			edge: &aggregates.Edge{ID: "cap_a->cap_b", SourceID: a, TargetID: b, Weight: 0.69, ActivationCount: 150},
			want: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			proposals := gen.MyelinationPass([]*aggregates.Edge{tt.edge})
			require.Len(t, proposals, tt.want)

			if tt.want == 1 {
				p := proposals[0]
				assert.Equal(t, entities.ProposalEdgeMyelinated, p.Type)
				assert.Equal(t, "cap_a->cap_b", p.TargetID)
				assert.Equal(t, entities.MutationReinforcing, p.Class)
				assert.False(t, p.RequiresApproval())
				require.NotNil(t, p.Changes.Myelinated)
				assert.True(t, *p.Changes.Myelinated)
			}
		})
	}
}

func TestPruningPassNodes(t *testing.T) {
	cfg := config.DefaultDomainConfig()
	cfg.CoreNodeIDs = []string{"syn_core"}
	gen := NewProposalGenerator(cfg)

	now := time.Now()
	stale := now.Add(-8 * 24 * time.Hour)
	fresh := now.Add(-time.Hour)

	t.Run("unfit inactive synthetic node is proposed", func(t *testing.T) {
		node := syntheticNode(t, "syn_stale", 10, &stale)

		proposals := gen.PruningPass([]*entities.Node{node}, nil, now)
		require.Len(t, proposals, 1)
		assert.Equal(t, entities.ProposalNodePruned, proposals[0].Type)
		assert.Equal(t, "syn_stale", proposals[0].TargetID)
		assert.Equal(t, entities.MutationDestructive, proposals[0].Class)
		assert.True(t, proposals[0].RequiresApproval())
	})

	t.Run("never-activated node measured from creation", func(t *testing.T) {
		node := syntheticNode(t, "syn_idle", 10, nil)

		proposals := gen.PruningPass([]*entities.Node{node}, nil, now)
		require.Len(t, proposals, 1)
	})

	t.Run("exempt nodes are skipped", func(t *testing.T) {
		nonSynthetic, err := entities.NewNode(valueobjects.MustNodeID("cap_real"), entities.NodeTypeCapability, "station_alpha")
		require.NoError(t, err)

		alreadyPruned := syntheticNode(t, "syn_gone", 10, &stale)
		alreadyPruned.Prune("test")

		nodes := []*entities.Node{
			nonSynthetic,
			syntheticNode(t, "syn_core", 10, &stale),  // protected core set
			syntheticNode(t, "syn_fit", 80, &stale),   // fitness above floor
			syntheticNode(t, "syn_busy", 10, &fresh),  // recently active
			alreadyPruned,
		}

		proposals := gen.PruningPass(nodes, nil, now)
		assert.Empty(t, proposals)
	})
}

func TestPruningPassEdges(t *testing.T) {
	gen := NewProposalGenerator(nil)
	a := valueobjects.MustNodeID("cap_a")
	b := valueobjects.MustNodeID("cap_b")

	edges := []*aggregates.Edge{
		{ID: "cap_a->cap_b", SourceID: a, TargetID: b, Weight: 0.1, ActivationCount: 3},
		{ID: "cap_b->cap_a", SourceID: b, TargetID: a, Weight: 0.1, ActivationCount: 10}, // traffic too high
		{ID: "cap_a->cap_c", SourceID: a, TargetID: valueobjects.MustNodeID("cap_c"), Weight: 0.5, ActivationCount: 3}, // weight too high
	}

	proposals := gen.PruningPass(nil, edges, time.Now())
	require.Len(t, proposals, 1)
	assert.Equal(t, entities.ProposalEdgePruned, proposals[0].Type)
	assert.Equal(t, "cap_a->cap_b", proposals[0].TargetID)
	assert.Equal(t, entities.MutationReinforcing, proposals[0].Class)
}

func TestSynaptogenesisPass(t *testing.T) {
	gen := NewProposalGenerator(config.DefaultDomainConfig())

	active := map[string]*entities.Node{}
	for _, id := range []string{"cap_a", "cap_b", "cap_c"} {
		node, err := entities.NewNode(valueobjects.MustNodeID(id), entities.NodeTypeCapability, "station_alpha")
		require.NoError(t, err)
		active[id] = node
	}
	pruned := syntheticNode(t, "syn_dead", 10, nil)
	pruned.Prune("test")
	active["syn_dead"] = pruned

	lookup := func(id valueobjects.NodeID) (*entities.Node, bool) {
		node, ok := active[id.String()]
		return node, ok
	}
	noEdges := func(a, b valueobjects.NodeID) bool { return false }

	t.Run("frequent pair yields an edge proposal", func(t *testing.T) {
		proposals := gen.SynaptogenesisPass(map[string]int{"cap_a->cap_b": 20}, lookup, noEdges)
		require.Len(t, proposals, 1)

		p := proposals[0]
		assert.Equal(t, entities.ProposalEdgeCreated, p.Type)
		assert.Equal(t, "cap_a->cap_b", p.TargetID)
		assert.Equal(t, entities.MutationReinforcing, p.Class)
		require.NotNil(t, p.Changes.Weight)
		assert.InDelta(t, 0.2, *p.Changes.Weight, 0.001)
		require.NotNil(t, p.Changes.SourceID)
		require.NotNil(t, p.Changes.TargetID)
		assert.Equal(t, "cap_a", p.Changes.SourceID.String())
		assert.Equal(t, "cap_b", p.Changes.TargetID.String())
	})

	t.Run("initial weight is capped", func(t *testing.T) {
		proposals := gen.SynaptogenesisPass(map[string]int{"cap_a->cap_b": 120}, lookup, noEdges)
		require.Len(t, proposals, 1)
		assert.InDelta(t, 0.5, *proposals[0].Changes.Weight, 0.001)
	})

	t.Run("disqualified pairs are skipped", func(t *testing.T) {
		ledger := map[string]int{
			"cap_a->cap_c":    9,  // below co-activation threshold
			"cap_a->cap_gone": 20, // missing endpoint
			"cap_a->syn_dead": 20, // pruned endpoint
			"malformed":       20, // no separator
		}

		proposals := gen.SynaptogenesisPass(ledger, lookup, noEdges)
		assert.Empty(t, proposals)
	})

	t.Run("existing edge in either direction blocks the pair", func(t *testing.T) {
		hasEdge := func(a, b valueobjects.NodeID) bool {
			return (a.String() == "cap_a" && b.String() == "cap_b") ||
				(a.String() == "cap_b" && b.String() == "cap_a")
		}

		proposals := gen.SynaptogenesisPass(map[string]int{"cap_b->cap_a": 20}, lookup, hasEdge)
		assert.Empty(t, proposals)
	})
}
