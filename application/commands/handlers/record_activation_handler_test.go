package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/services"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/infrastructure/persistence/memory"
)

func newActivationFixture(t *testing.T) (*RecordActivationHandler, *services.StationGraph, *aggregates.Graph) {
	t.Helper()

	graphAgg, err := aggregates.NewGraph("station_alpha")
	require.NoError(t, err)
	graph := services.NewStationGraph(graphAgg)

	handler := NewRecordActivationHandler("station_alpha", graph, memory.NewNodeRepository(), zap.NewNop())
	return handler, graph, graphAgg
}

func TestRecordActivationHandler(t *testing.T) {
	ctx := context.Background()

	t.Run("known node takes the sample", func(t *testing.T) {
		handler, graph, _ := newActivationFixture(t)
		node, err := entities.NewNode(valueobjects.MustNodeID("cap_scan"), entities.NodeTypeCapability, "station_alpha")
		require.NoError(t, err)
		require.NoError(t, graph.AddNode(node))

		result, err := handler.Handle(ctx, commands.RecordActivationCommand{
			TargetID: "cap_scan", LatencyMs: 40, Success: true,
		})
		require.NoError(t, err)

		activation := result.(*ActivationResult)
		assert.False(t, activation.Registered)
		assert.Equal(t, int64(1), node.ActivationCount())
		assert.Equal(t, int64(1), node.SuccessCount())
	})

	t.Run("unknown node target is registered as synthetic", func(t *testing.T) {
		handler, graph, _ := newActivationFixture(t)

		result, err := handler.Handle(ctx, commands.RecordActivationCommand{
			TargetID: "syn_discovered", LatencyMs: 10, Success: true,
		})
		require.NoError(t, err)

		activation := result.(*ActivationResult)
		assert.True(t, activation.Registered)

		node, ok := graph.GetNode(valueobjects.MustNodeID("syn_discovered"))
		require.True(t, ok)
		assert.Equal(t, entities.NodeTypeSynthetic, node.Type())
		assert.True(t, node.IsOwnedBy("station_alpha"))
		assert.Equal(t, int64(1), node.ActivationCount())
	})

	t.Run("edge target routes to the edge", func(t *testing.T) {
		handler, graph, graphAgg := newActivationFixture(t)
		for _, id := range []string{"cap_a", "cap_b"} {
			node, err := entities.NewNode(valueobjects.MustNodeID(id), entities.NodeTypeCapability, "station_alpha")
			require.NoError(t, err)
			require.NoError(t, graph.AddNode(node))
		}
		_, err := graphAgg.ConnectNodes(valueobjects.MustNodeID("cap_a"), valueobjects.MustNodeID("cap_b"), aggregates.EdgeTypeDataFlow, 0.5)
		require.NoError(t, err)

		result, err := handler.Handle(ctx, commands.RecordActivationCommand{
			TargetID: "cap_a->cap_b", LatencyMs: 25, Success: true,
		})
		require.NoError(t, err)
		assert.False(t, result.(*ActivationResult).Registered)

		edge, ok := graphAgg.GetEdge("cap_a->cap_b")
		require.True(t, ok)
		assert.Equal(t, int64(1), edge.ActivationCount)
	})

	t.Run("co-activations feed the ledger", func(t *testing.T) {
		handler, graph, _ := newActivationFixture(t)

		result, err := handler.Handle(ctx, commands.RecordActivationCommand{
			TargetID:        "cap_a",
			LatencyMs:       10,
			Success:         true,
			CoActivatedWith: []string{"cap_b", "cap_c"},
		})
		require.NoError(t, err)

		assert.Equal(t, 2, result.(*ActivationResult).CoActivations)
		ledger := graph.CoActivationLedger()
		assert.Equal(t, 1, ledger["cap_a->cap_b"])
		assert.Equal(t, 1, ledger["cap_a->cap_c"])
	})
}
