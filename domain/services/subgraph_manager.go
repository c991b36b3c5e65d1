package services

import (
	"time"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

// SubgraphManager computes the locally-owned slice of the graph for
// transmission and folds remote slices back into a local view. Both
// operations are pure functions over snapshots.
type SubgraphManager struct{}

// NewSubgraphManager creates a subgraph manager
func NewSubgraphManager() *SubgraphManager {
	return &SubgraphManager{}
}

// Extract returns the station's owned nodes, every edge with at least one
// owned endpoint, and the foreign endpoint of each such edge. The result
// is edge-closed: no edge references a node absent from the snapshot.
func (m *SubgraphManager) Extract(allNodes []*entities.Node, allEdges []*aggregates.Edge, stationID string) *aggregates.Subgraph {
	byID := make(map[valueobjects.NodeID]*entities.Node, len(allNodes))
	for _, node := range allNodes {
		byID[node.ID()] = node
	}

	included := make(map[valueobjects.NodeID]*entities.Node)
	for _, node := range allNodes {
		if node.IsOwnedBy(stationID) {
			included[node.ID()] = node
		}
	}

	var edges []*aggregates.Edge
	for _, edge := range allEdges {
		source, sourceKnown := byID[edge.SourceID]
		target, targetKnown := byID[edge.TargetID]
		if !sourceKnown || !targetKnown {
			continue
		}
		if !source.IsOwnedBy(stationID) && !target.IsOwnedBy(stationID) {
			continue
		}

		edges = append(edges, edge)
		// Pull in foreign endpoints to keep the snapshot edge-closed.
		included[edge.SourceID] = source
		included[edge.TargetID] = target
	}

	nodes := make([]*entities.Node, 0, len(included))
	for _, node := range included {
		nodes = append(nodes, node)
	}

	return &aggregates.Subgraph{
		Nodes:       nodes,
		Edges:       edges,
		StationID:   stationID,
		ExtractedAt: time.Now(),
	}
}

// Merge unions a remote subgraph into the local one. On collision, nodes
// and edges owned by the local station always keep their local copy;
// remote copies of locally-owned data are informational only. Everything
// else takes the remote copy, which is assumed fresher. Merge is
// idempotent: merging the same remote twice yields the same result.
func (m *SubgraphManager) Merge(local, remote *aggregates.Subgraph) *aggregates.Subgraph {
	nodes := make(map[valueobjects.NodeID]*entities.Node, len(local.Nodes))
	for _, node := range local.Nodes {
		nodes[node.ID()] = node
	}
	for _, node := range remote.Nodes {
		existing, exists := nodes[node.ID()]
		if exists && existing.IsOwnedBy(local.StationID) {
			continue
		}
		nodes[node.ID()] = node
	}

	edges := make(map[string]*aggregates.Edge, len(local.Edges))
	for _, edge := range local.Edges {
		edges[edge.ID] = edge
	}
	for _, edge := range remote.Edges {
		existing, exists := edges[edge.ID]
		if exists && existing.OwnerStationID == local.StationID {
			continue
		}
		edges[edge.ID] = edge
	}

	mergedNodes := make([]*entities.Node, 0, len(nodes))
	for _, node := range nodes {
		mergedNodes = append(mergedNodes, node)
	}
	mergedEdges := make([]*aggregates.Edge, 0, len(edges))
	for _, edge := range edges {
		mergedEdges = append(mergedEdges, edge)
	}

	return &aggregates.Subgraph{
		Nodes:       mergedNodes,
		Edges:       mergedEdges,
		StationID:   local.StationID,
		ExtractedAt: time.Now(),
	}
}
