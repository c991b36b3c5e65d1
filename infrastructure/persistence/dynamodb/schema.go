package dynamodb

import (
	"fmt"
	"time"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

// Single-table layout:
//
//	node rows    PK=STATION#<station>  SK=NODE#<id>      GSI1PK=NODE#<id>    GSI1SK=METADATA
//	edge rows    PK=STATION#<station>  SK=EDGE#<id>      GSI1PK=EDGE#<id>    GSI1SK=METADATA
//	audit rows   PK=EVENTS#<aggregate> SK=EVENT#<ts>#<id>
//	queue rows   PK=RQUEUE#<station>   SK=DELTA#<ts>#<id>
//	lock rows    PK=LOCK#<resource>    SK=LOCK
const (
	entityTypeNode  = "NODE"
	entityTypeEdge  = "EDGE"
	entityTypeEvent = "EVOLUTION_EVENT"
	entityTypeDelta = "REPLICATION_DELTA"
)

// nodeItem is the DynamoDB row shape for a graph node
type nodeItem struct {
	PK              string  `dynamodbav:"PK"`
	SK              string  `dynamodbav:"SK"`
	GSI1PK          string  `dynamodbav:"GSI1PK"`
	GSI1SK          string  `dynamodbav:"GSI1SK"`
	EntityType      string  `dynamodbav:"EntityType"`
	NodeID          string  `dynamodbav:"NodeID"`
	NodeType        string  `dynamodbav:"NodeType"`
	OwnerStationID  string  `dynamodbav:"OwnerStationID"`
	Status          string  `dynamodbav:"Status"`
	MaturationPhase string  `dynamodbav:"MaturationPhase"`
	FitnessScore    float64 `dynamodbav:"FitnessScore"`
	ActivationCount int64   `dynamodbav:"ActivationCount"`
	TotalLatencyMs  int64   `dynamodbav:"TotalLatencyMs"`
	SuccessCount    int64   `dynamodbav:"SuccessCount"`
	FailureCount    int64   `dynamodbav:"FailureCount"`
	LastActivated   string  `dynamodbav:"LastActivated,omitempty"`
	CreatedAt       string  `dynamodbav:"CreatedAt"`
	UpdatedAt       string  `dynamodbav:"UpdatedAt"`
	Version         int     `dynamodbav:"Version"`
}

// edgeItem is the DynamoDB row shape for a graph edge
type edgeItem struct {
	PK                string  `dynamodbav:"PK"`
	SK                string  `dynamodbav:"SK"`
	GSI1PK            string  `dynamodbav:"GSI1PK"`
	GSI1SK            string  `dynamodbav:"GSI1SK"`
	EntityType        string  `dynamodbav:"EntityType"`
	EdgeID            string  `dynamodbav:"EdgeID"`
	SourceID          string  `dynamodbav:"SourceID"`
	TargetID          string  `dynamodbav:"TargetID"`
	EdgeType          string  `dynamodbav:"EdgeType"`
	Weight            float64 `dynamodbav:"Weight"`
	Myelinated        bool    `dynamodbav:"Myelinated"`
	ActivationCount   int64   `dynamodbav:"ActivationCount"`
	CoActivationCount int64   `dynamodbav:"CoActivationCount"`
	AvgLatencyMs      float64 `dynamodbav:"AvgLatencyMs"`
	OwnerStationID    string  `dynamodbav:"OwnerStationID"`
	CreatedAt         string  `dynamodbav:"CreatedAt"`
}

func nodeToItem(node *entities.Node) nodeItem {
	item := nodeItem{
		PK:              fmt.Sprintf("STATION#%s", node.OwnerStationID()),
		SK:              fmt.Sprintf("NODE#%s", node.ID().String()),
		GSI1PK:          fmt.Sprintf("NODE#%s", node.ID().String()),
		GSI1SK:          "METADATA",
		EntityType:      entityTypeNode,
		NodeID:          node.ID().String(),
		NodeType:        string(node.Type()),
		OwnerStationID:  node.OwnerStationID(),
		Status:          string(node.Status()),
		MaturationPhase: string(node.Phase()),
		FitnessScore:    node.FitnessScore(),
		ActivationCount: node.ActivationCount(),
		TotalLatencyMs:  node.TotalLatencyMs(),
		SuccessCount:    node.SuccessCount(),
		FailureCount:    node.FailureCount(),
		CreatedAt:       node.CreatedAt().Format(time.RFC3339Nano),
		UpdatedAt:       node.UpdatedAt().Format(time.RFC3339Nano),
		Version:         node.Version(),
	}
	if last := node.LastActivated(); last != nil {
		item.LastActivated = last.Format(time.RFC3339Nano)
	}
	return item
}

func itemToNode(item nodeItem) (*entities.Node, error) {
	nodeID, err := valueobjects.NewNodeID(item.NodeID)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CreatedAt: %w", err)
	}
	updatedAt, err := time.Parse(time.RFC3339Nano, item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse UpdatedAt: %w", err)
	}

	var lastActivated *time.Time
	if item.LastActivated != "" {
		t, err := time.Parse(time.RFC3339Nano, item.LastActivated)
		if err != nil {
			return nil, fmt.Errorf("failed to parse LastActivated: %w", err)
		}
		lastActivated = &t
	}

	return entities.ReconstructNode(
		nodeID,
		entities.NodeType(item.NodeType),
		item.OwnerStationID,
		entities.NodeStatus(item.Status),
		entities.MaturationPhase(item.MaturationPhase),
		item.FitnessScore,
		item.ActivationCount,
		item.TotalLatencyMs,
		item.SuccessCount,
		item.FailureCount,
		lastActivated,
		createdAt,
		updatedAt,
		item.Version,
	)
}

func edgeToItem(edge *aggregates.Edge) edgeItem {
	return edgeItem{
		PK:                fmt.Sprintf("STATION#%s", edge.OwnerStationID),
		SK:                fmt.Sprintf("EDGE#%s", edge.ID),
		GSI1PK:            fmt.Sprintf("EDGE#%s", edge.ID),
		GSI1SK:            "METADATA",
		EntityType:        entityTypeEdge,
		EdgeID:            edge.ID,
		SourceID:          edge.SourceID.String(),
		TargetID:          edge.TargetID.String(),
		EdgeType:          string(edge.Type),
		Weight:            edge.Weight,
		Myelinated:        edge.Myelinated,
		ActivationCount:   edge.ActivationCount,
		CoActivationCount: edge.CoActivationCount,
		AvgLatencyMs:      edge.AvgLatencyMs,
		OwnerStationID:    edge.OwnerStationID,
		CreatedAt:         edge.CreatedAt.Format(time.RFC3339Nano),
	}
}

func itemToEdge(item edgeItem) (*aggregates.Edge, error) {
	sourceID, err := valueobjects.NewNodeID(item.SourceID)
	if err != nil {
		return nil, err
	}
	targetID, err := valueobjects.NewNodeID(item.TargetID)
	if err != nil {
		return nil, err
	}

	createdAt, err := time.Parse(time.RFC3339Nano, item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse CreatedAt: %w", err)
	}

	return &aggregates.Edge{
		ID:                item.EdgeID,
		SourceID:          sourceID,
		TargetID:          targetID,
		Type:              aggregates.EdgeType(item.EdgeType),
		Weight:            item.Weight,
		Myelinated:        item.Myelinated,
		ActivationCount:   item.ActivationCount,
		CoActivationCount: item.CoActivationCount,
		AvgLatencyMs:      item.AvgLatencyMs,
		OwnerStationID:    item.OwnerStationID,
		CreatedAt:         createdAt,
	}, nil
}
