package entities

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralmesh/domain/config"
	"neuralmesh/domain/core/valueobjects"
)

func TestNewNode(t *testing.T) {
	t.Run("valid node starts active in genesis", func(t *testing.T) {
		node, err := NewNode(valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "station_alpha")
		require.NoError(t, err)

		assert.Equal(t, StatusActive, node.Status())
		assert.Equal(t, PhaseGenesis, node.Phase())
		assert.Equal(t, 1, node.Version())
		assert.True(t, node.IsOwnedBy("station_alpha"))
		assert.Len(t, node.GetUncommittedEvents(), 1)
	})

	t.Run("rejects invalid input", func(t *testing.T) {
		_, err := NewNode(valueobjects.NodeID{}, NodeTypeCapability, "station_alpha")
		assert.Error(t, err)

		_, err = NewNode(valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "")
		assert.Error(t, err)

		_, err = NewNode(valueobjects.MustNodeID("cap_scan"), NodeType("alien"), "station_alpha")
		assert.Error(t, err)
	})
}

func TestRecordActivation(t *testing.T) {
	node, err := NewNode(valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "station_alpha")
	require.NoError(t, err)

	require.NoError(t, node.RecordActivation(100, true))
	require.NoError(t, node.RecordActivation(200, false))

	assert.Equal(t, int64(2), node.ActivationCount())
	assert.Equal(t, int64(300), node.TotalLatencyMs())
	assert.Equal(t, int64(1), node.SuccessCount())
	assert.Equal(t, int64(1), node.FailureCount())
	assert.InDelta(t, 150.0, node.AvgLatencyMs(), 0.001)
	assert.NotNil(t, node.LastActivated())

	assert.Error(t, node.RecordActivation(-1, true))

	node.Prune("test")
	assert.Error(t, node.RecordActivation(100, true), "pruned nodes take no telemetry")
}

func TestAdvancePhase(t *testing.T) {
	cfg := config.DefaultDomainConfig()

	t.Run("phase follows activation volume", func(t *testing.T) {
		tests := []struct {
			activations int64
			want        MaturationPhase
		}{
			{0, PhaseGenesis},
			{9, PhaseGenesis},
			{10, PhaseGrowth},
			{100, PhaseMaturation},
			{1000, PhaseStable},
		}

		for _, tt := range tests {
			now := time.Now()
			node, err := ReconstructNode(
				valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "station_alpha",
				StatusActive, PhaseGenesis,
				0, tt.activations, 0, tt.activations, 0,
				nil, now, now, 1,
			)
			require.NoError(t, err)

			node.AdvancePhase(cfg)
			assert.Equal(t, tt.want, node.Phase(), "%d activations", tt.activations)
		}
	})

	t.Run("phases never move backward", func(t *testing.T) {
		now := time.Now()
		node, err := ReconstructNode(
			valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "station_alpha",
			StatusActive, PhaseStable,
			0, 5, 0, 5, 0,
			nil, now, now, 1,
		)
		require.NoError(t, err)

		node.AdvancePhase(cfg)
		assert.Equal(t, PhaseStable, node.Phase())
		assert.Empty(t, node.GetUncommittedEvents())
	})
}

func TestPrune(t *testing.T) {
	node, err := NewNode(valueobjects.MustNodeID("syn_tmp"), NodeTypeSynthetic, "station_alpha")
	require.NoError(t, err)
	node.MarkEventsAsCommitted()

	node.Prune("low fitness")
	assert.True(t, node.IsPruned())
	assert.Len(t, node.GetUncommittedEvents(), 1)

	// Idempotent: no second event, no version bump.
	version := node.Version()
	node.Prune("again")
	assert.Equal(t, version, node.Version())
	assert.Len(t, node.GetUncommittedEvents(), 1)
}

func TestNodeWireFormat(t *testing.T) {
	node, err := NewNode(valueobjects.MustNodeID("cap_scan"), NodeTypeCapability, "station_alpha")
	require.NoError(t, err)
	require.NoError(t, node.RecordActivation(120, true))
	node.SetFitness(73.5)

	data, err := json.Marshal(node)
	require.NoError(t, err)

	var decoded Node
	require.NoError(t, json.Unmarshal(data, &decoded))

	assert.True(t, decoded.ID().Equals(node.ID()))
	assert.Equal(t, node.OwnerStationID(), decoded.OwnerStationID())
	assert.Equal(t, node.ActivationCount(), decoded.ActivationCount())
	assert.Equal(t, node.FitnessScore(), decoded.FitnessScore())
	assert.Equal(t, node.Version(), decoded.Version())
	assert.Empty(t, decoded.GetUncommittedEvents(), "deserialized nodes carry no events")
}
