package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

func ownedNode(t *testing.T, id, stationID string) *entities.Node {
	t.Helper()

	node, err := entities.NewNode(valueobjects.MustNodeID(id), entities.NodeTypeCapability, stationID)
	require.NoError(t, err)
	return node
}

func edgeBetween(source, target *entities.Node, owner string, weight float64) *aggregates.Edge {
	return &aggregates.Edge{
		ID:             aggregates.EdgeID(source.ID(), target.ID()),
		SourceID:       source.ID(),
		TargetID:       target.ID(),
		Type:           aggregates.EdgeTypeDataFlow,
		Weight:         weight,
		OwnerStationID: owner,
		CreatedAt:      time.Now(),
	}
}

func nodeIDs(sub *aggregates.Subgraph) map[string]bool {
	ids := make(map[string]bool, len(sub.Nodes))
	for _, node := range sub.Nodes {
		ids[node.ID().String()] = true
	}
	return ids
}

func TestSubgraphExtract(t *testing.T) {
	mgr := NewSubgraphManager()

	local := ownedNode(t, "cap_local", "station_alpha")
	local2 := ownedNode(t, "cap_local2", "station_alpha")
	foreign := ownedNode(t, "cap_foreign", "station_beta")
	farForeign := ownedNode(t, "cap_far", "station_gamma")
	orphanForeign := ownedNode(t, "cap_orphan", "station_beta")

	allNodes := []*entities.Node{local, local2, foreign, farForeign, orphanForeign}
	allEdges := []*aggregates.Edge{
		edgeBetween(local, local2, "station_alpha", 0.6),
		edgeBetween(local, foreign, "station_alpha", 0.4),
		edgeBetween(foreign, farForeign, "station_beta", 0.8), // no owned endpoint
	}

	sub := mgr.Extract(allNodes, allEdges, "station_alpha")

	assert.Equal(t, "station_alpha", sub.StationID)
	require.Len(t, sub.Edges, 2)

	ids := nodeIDs(sub)
	assert.True(t, ids["cap_local"])
	assert.True(t, ids["cap_local2"])
	// Foreign endpoint of an owned edge rides along for edge-closure.
	assert.True(t, ids["cap_foreign"])
	// Foreign nodes with no owned edge stay home.
	assert.False(t, ids["cap_far"])
	assert.False(t, ids["cap_orphan"])

	// Every edge endpoint must resolve inside the snapshot.
	for _, edge := range sub.Edges {
		assert.True(t, ids[edge.SourceID.String()], "dangling source %s", edge.SourceID)
		assert.True(t, ids[edge.TargetID.String()], "dangling target %s", edge.TargetID)
	}
}

func TestSubgraphMerge(t *testing.T) {
	mgr := NewSubgraphManager()

	t.Run("locally owned entries win collisions", func(t *testing.T) {
		localNode := ownedNode(t, "cap_shared", "station_alpha")
		localNode.SetFitness(90)

		remoteCopy := ownedNode(t, "cap_shared", "station_alpha")
		remoteCopy.SetFitness(10)

		localEdgePeer := ownedNode(t, "cap_peer", "station_alpha")
		localEdge := edgeBetween(localNode, localEdgePeer, "station_alpha", 0.9)
		remoteEdgeCopy := edgeBetween(localNode, localEdgePeer, "station_alpha", 0.1)

		local := &aggregates.Subgraph{
			Nodes:     []*entities.Node{localNode, localEdgePeer},
			Edges:     []*aggregates.Edge{localEdge},
			StationID: "station_alpha",
		}
		remote := &aggregates.Subgraph{
			Nodes:     []*entities.Node{remoteCopy},
			Edges:     []*aggregates.Edge{remoteEdgeCopy},
			StationID: "station_beta",
		}

		merged := mgr.Merge(local, remote)

		require.Len(t, merged.Nodes, 2)
		for _, node := range merged.Nodes {
			if node.ID().String() == "cap_shared" {
				assert.Equal(t, 90.0, node.FitnessScore())
			}
		}
		require.Len(t, merged.Edges, 1)
		assert.Equal(t, 0.9, merged.Edges[0].Weight)
	})

	t.Run("remote copies of foreign entries win", func(t *testing.T) {
		staleForeign := ownedNode(t, "cap_theirs", "station_beta")
		staleForeign.SetFitness(10)

		freshForeign := ownedNode(t, "cap_theirs", "station_beta")
		freshForeign.SetFitness(70)

		local := &aggregates.Subgraph{
			Nodes:     []*entities.Node{staleForeign},
			StationID: "station_alpha",
		}
		remote := &aggregates.Subgraph{
			Nodes:     []*entities.Node{freshForeign},
			StationID: "station_beta",
		}

		merged := mgr.Merge(local, remote)
		require.Len(t, merged.Nodes, 1)
		assert.Equal(t, 70.0, merged.Nodes[0].FitnessScore())
	})

	t.Run("merge is idempotent", func(t *testing.T) {
		local := &aggregates.Subgraph{
			Nodes:     []*entities.Node{ownedNode(t, "cap_mine", "station_alpha")},
			StationID: "station_alpha",
		}
		remote := &aggregates.Subgraph{
			Nodes:     []*entities.Node{ownedNode(t, "cap_theirs", "station_beta")},
			StationID: "station_beta",
		}

		once := mgr.Merge(local, remote)
		twice := mgr.Merge(once, remote)

		assert.Equal(t, nodeIDs(once), nodeIDs(twice))
		assert.Len(t, twice.Nodes, 2)
	})
}
