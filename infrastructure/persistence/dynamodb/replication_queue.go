package dynamodb

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/aggregates"
	pkgerrors "neuralmesh/pkg/errors"
)

// queueItem is the DynamoDB row shape for one queued replication delta.
// The sort key starts with the enqueue timestamp, so a key-ordered query
// returns deltas in FIFO order.
type queueItem struct {
	PK         string `dynamodbav:"PK"` // RQUEUE#<station_id>
	SK         string `dynamodbav:"SK"` // DELTA#<timestamp>#<delta_id>
	EntityType string `dynamodbav:"EntityType"`
	DeltaID    string `dynamodbav:"DeltaID"`
	StationID  string `dynamodbav:"StationID"`
	Payload    string `dynamodbav:"Payload"`
	QueuedAt   string `dynamodbav:"QueuedAt"`
}

// ReplicationQueue implements ports.ReplicationQueue on DynamoDB queue
// rows, surviving process restarts while the station is offline
type ReplicationQueue struct {
	client    *dynamodb.Client
	tableName string
	stationID string
	logger    *zap.Logger
}

// NewReplicationQueue creates a DynamoDB-backed replication queue
func NewReplicationQueue(client *dynamodb.Client, tableName, stationID string, logger *zap.Logger) ports.ReplicationQueue {
	return &ReplicationQueue{
		client:    client,
		tableName: tableName,
		stationID: stationID,
		logger:    logger,
	}
}

// Enqueue appends a delta to the tail of the queue
func (q *ReplicationQueue) Enqueue(ctx context.Context, subgraph *aggregates.Subgraph) error {
	payload, err := json.Marshal(subgraph)
	if err != nil {
		return fmt.Errorf("failed to marshal subgraph: %w", err)
	}

	now := time.Now()
	deltaID := uuid.New().String()

	item := queueItem{
		PK:         fmt.Sprintf("RQUEUE#%s", q.stationID),
		SK:         fmt.Sprintf("DELTA#%s#%s", now.UTC().Format(time.RFC3339Nano), deltaID),
		EntityType: entityTypeDelta,
		DeltaID:    deltaID,
		StationID:  q.stationID,
		Payload:    string(payload),
		QueuedAt:   now.Format(time.RFC3339Nano),
	}

	av, err := attributevalue.MarshalMap(item)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(q.tableName),
		Item:      av,
	}

	if _, err := q.client.PutItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("enqueue delta", err)
	}

	q.logger.Debug("Delta queued",
		zap.String("deltaID", deltaID),
		zap.Int("nodes", len(subgraph.Nodes)),
		zap.Int("edges", len(subgraph.Edges)),
	)

	return nil
}

// Oldest returns up to limit deltas from the head, oldest first
func (q *ReplicationQueue) Oldest(ctx context.Context, limit int) ([]ports.QueuedDelta, error) {
	if limit <= 0 {
		limit = 25
	}

	input := &dynamodb.QueryInput{
		TableName:              aws.String(q.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("RQUEUE#%s", q.stationID)},
			":sk": &types.AttributeValueMemberS{Value: "DELTA#"},
		},
		ScanIndexForward: aws.Bool(true),
		Limit:            aws.Int32(int32(limit)),
	}

	result, err := q.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query replication queue", err)
	}

	deltas := make([]ports.QueuedDelta, 0, len(result.Items))
	for _, raw := range result.Items {
		var item queueItem
		if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
			q.logger.Warn("Failed to unmarshal queue item", zap.Error(err))
			continue
		}

		var subgraph aggregates.Subgraph
		if err := json.Unmarshal([]byte(item.Payload), &subgraph); err != nil {
			q.logger.Warn("Failed to decode queued delta",
				zap.String("deltaID", item.DeltaID),
				zap.Error(err),
			)
			continue
		}

		queuedAt, err := time.Parse(time.RFC3339Nano, item.QueuedAt)
		if err != nil {
			queuedAt = time.Time{}
		}

		deltas = append(deltas, ports.QueuedDelta{
			ID:       item.SK,
			Subgraph: &subgraph,
			QueuedAt: queuedAt,
		})
	}

	return deltas, nil
}

// Remove deletes a flushed delta by its sort key
func (q *ReplicationQueue) Remove(ctx context.Context, id string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(q.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("RQUEUE#%s", q.stationID)},
			"SK": &types.AttributeValueMemberS{Value: id},
		},
	}

	if _, err := q.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("remove queued delta", err)
	}
	return nil
}

// Depth counts the queued deltas
func (q *ReplicationQueue) Depth(ctx context.Context) (int, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(q.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("RQUEUE#%s", q.stationID)},
			":sk": &types.AttributeValueMemberS{Value: "DELTA#"},
		},
		Select: types.SelectCount,
	}

	result, err := q.client.Query(ctx, input)
	if err != nil {
		return 0, pkgerrors.NewDatabaseError("count replication queue", err)
	}

	return int(result.Count), nil
}
