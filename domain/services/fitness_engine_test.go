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

func telemetryNode(t *testing.T, id string, activations, latencyMs, successes, failures int64) *entities.Node {
	t.Helper()

	nodeID, err := valueobjects.NewNodeID(id)
	require.NoError(t, err)

	now := time.Now()
	node, err := entities.ReconstructNode(
		nodeID, entities.NodeTypeCapability, "station_alpha",
		entities.StatusActive, entities.PhaseGrowth,
		0, activations, latencyMs, successes, failures,
		&now, now.Add(-time.Hour), now, 1,
	)
	require.NoError(t, err)
	return node
}

func TestComputeGlobalStats(t *testing.T) {
	t.Run("empty node set", func(t *testing.T) {
		stats := ComputeGlobalStats(nil)
		assert.Zero(t, stats.AvgLatencyMs)
		assert.Zero(t, stats.MaxActivations)
	})

	t.Run("aggregates latency and activations", func(t *testing.T) {
		nodes := []*entities.Node{
			telemetryNode(t, "cap_scan", 10, 1000, 8, 2),
			telemetryNode(t, "cap_parse", 50, 500, 10, 0),
		}

		stats := ComputeGlobalStats(nodes)
		assert.Equal(t, int64(50), stats.MaxActivations)
		assert.InDelta(t, 75.0, stats.AvgLatencyMs, 0.001) // 1500ms over 20 attempts
	})
}

func TestNodeFitness(t *testing.T) {
	engine := NewFitnessEngine(config.DefaultDomainConfig())

	t.Run("no history scores neutrally", func(t *testing.T) {
		node := telemetryNode(t, "cap_new", 0, 0, 0, 0)

		// Success, latency, and utilization each earn half credit;
		// connectivity earns nothing for an isolated node.
		score := engine.NodeFitness(node, nil, GlobalStats{})
		assert.InDelta(t, 45.0, score, 0.001)
	})

	t.Run("perfect node scores at the ceiling", func(t *testing.T) {
		node := telemetryNode(t, "cap_fast", 100, 100, 100, 0)
		edge := &aggregates.Edge{
			ID:       "cap_fast->cap_other",
			SourceID: node.ID(),
			TargetID: valueobjects.MustNodeID("cap_other"),
			Weight:   1.0,
		}
		stats := GlobalStats{AvgLatencyMs: 50, MaxActivations: 100}

		score := engine.NodeFitness(node, []*aggregates.Edge{edge}, stats)
		assert.InDelta(t, 100.0, score, 0.001)
	})

	t.Run("failing slow node scores near the floor", func(t *testing.T) {
		node := telemetryNode(t, "cap_slow", 2, 10000, 0, 2)
		stats := GlobalStats{AvgLatencyMs: 10, MaxActivations: 1000}

		score := engine.NodeFitness(node, nil, stats)
		assert.Less(t, score, 10.0)
		assert.GreaterOrEqual(t, score, 0.0)
	})

	t.Run("connectivity averages incident edge weights", func(t *testing.T) {
		node := telemetryNode(t, "cap_hub", 0, 0, 0, 0)
		other := valueobjects.MustNodeID("cap_other")
		edges := []*aggregates.Edge{
			{ID: "cap_hub->cap_other", SourceID: node.ID(), TargetID: other, Weight: 0.8},
			{ID: "cap_other->cap_hub", SourceID: other, TargetID: node.ID(), Weight: 0.4},
			{ID: "cap_other->cap_far", SourceID: other, TargetID: valueobjects.MustNodeID("cap_far"), Weight: 1.0},
		}

		// 45 from the neutral components plus 0.10 * avg(0.8, 0.4) * 100.
		score := engine.NodeFitness(node, edges, GlobalStats{})
		assert.InDelta(t, 51.0, score, 0.001)
	})
}

func TestEdgeFitness(t *testing.T) {
	engine := NewFitnessEngine(nil)

	tests := []struct {
		name string
		edge *aggregates.Edge
		want float64
	}{
		{
			name: "unused edge scores zero",
			edge: &aggregates.Edge{Weight: 0.9, ActivationCount: 0},
			want: 0,
		},
		{
			name: "weight times log traffic",
			edge: &aggregates.Edge{Weight: 0.8, ActivationCount: 7},
			want: 2.4, // 0.8 * log2(8)
		},
		{
			name: "myelination bonus",
			edge: &aggregates.Edge{Weight: 0.8, ActivationCount: 7, Myelinated: true},
			want: 3.6,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, engine.EdgeFitness(tt.edge), 0.001)
		})
	}

	t.Run("capped at 100", func(t *testing.T) {
		edge := &aggregates.Edge{Weight: 1.0, ActivationCount: 1 << 62, Myelinated: true}
		assert.Equal(t, 100.0, engine.EdgeFitness(edge))
	})
}
