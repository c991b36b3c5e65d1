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

	"neuralmesh/domain/events"
	pkgerrors "neuralmesh/pkg/errors"
)

// PublishStatus tracks an audit row through the outbox
type PublishStatus string

const (
	PublishStatusPending   PublishStatus = "pending"
	PublishStatusPublished PublishStatus = "published"
	PublishStatusFailed    PublishStatus = "failed"
)

const maxPublishAttempts = 3

// EventRecord is the DynamoDB row shape for one evolution audit event.
// Rows land as pending; the outbox processor drains them to the relay
// bus and flips the status.
type EventRecord struct {
	PK          string                 `dynamodbav:"PK"` // EVENTS#<aggregate_id>
	SK          string                 `dynamodbav:"SK"` // EVENT#<timestamp>#<event_id>
	EntityType  string                 `dynamodbav:"EntityType"`
	EventID     string                 `dynamodbav:"EventID"`
	EventType   string                 `dynamodbav:"EventType"`
	AggregateID string                 `dynamodbav:"AggregateID"`
	StationID   string                 `dynamodbav:"StationID"`
	EventData   map[string]interface{} `dynamodbav:"EventData"`
	Timestamp   string                 `dynamodbav:"Timestamp"`

	PublishStatus   string `dynamodbav:"PublishStatus"`
	PublishAttempts int    `dynamodbav:"PublishAttempts"`
	LastPublishTry  string `dynamodbav:"LastPublishTry,omitempty"`
	PublishedAt     string `dynamodbav:"PublishedAt,omitempty"`
	ErrorMessage    string `dynamodbav:"ErrorMessage,omitempty"`

	TTL int64 `dynamodbav:"TTL,omitempty"`
}

// EvolutionEventStore persists the audit trail of graph mutations with
// the outbox pattern
type EvolutionEventStore struct {
	client    *dynamodb.Client
	tableName string
}

// NewEvolutionEventStore creates a DynamoDB-backed evolution event store
func NewEvolutionEventStore(client *dynamodb.Client, tableName string) *EvolutionEventStore {
	return &EvolutionEventStore{
		client:    client,
		tableName: tableName,
	}
}

// Append persists domain events as pending audit rows
func (es *EvolutionEventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(domainEvents))
	for _, event := range domainEvents {
		record, err := eventToRecord(event)
		if err != nil {
			return fmt.Errorf("failed to convert event to record: %w", err)
		}

		item, err := attributevalue.MarshalMap(record)
		if err != nil {
			return fmt.Errorf("failed to marshal event record: %w", err)
		}

		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: item},
		})
	}

	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				es.tableName: writeRequests[i:end],
			},
		}

		result, err := es.client.BatchWriteItem(ctx, input)
		if err != nil {
			return pkgerrors.NewDatabaseError("append events", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return pkgerrors.NewDatabaseError("append events",
				fmt.Errorf("%d events unprocessed", len(result.UnprocessedItems[es.tableName])))
		}
	}

	return nil
}

// GetByAggregate retrieves audit events for one aggregate in timestamp
// order. Rows come back as generic base events; the audit trail is for
// inspection, not replay.
func (es *EvolutionEventStore) GetByAggregate(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(es.tableName),
		KeyConditionExpression: aws.String("PK = :pk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EVENTS#%s", aggregateID)},
		},
		ScanIndexForward: aws.Bool(true),
	}

	var all []events.DomainEvent
	for {
		result, err := es.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query events", err)
		}

		for _, raw := range result.Items {
			var record EventRecord
			if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
				return nil, fmt.Errorf("failed to unmarshal event record: %w", err)
			}

			timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
			if err != nil {
				return nil, fmt.Errorf("failed to parse event timestamp: %w", err)
			}

			all = append(all, events.BaseEvent{
				AggregateID: record.AggregateID,
				EventType:   record.EventType,
				Timestamp:   timestamp,
				StationID:   record.StationID,
			})
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return all, nil
}

// GetPending retrieves audit rows that have not been published yet
func (es *EvolutionEventStore) GetPending(ctx context.Context, limit int32) ([]*EventRecord, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}

	input := &dynamodb.ScanInput{
		TableName:        aws.String(es.tableName),
		FilterExpression: aws.String("PublishStatus = :status AND begins_with(PK, :prefix)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status": &types.AttributeValueMemberS{Value: string(PublishStatusPending)},
			":prefix": &types.AttributeValueMemberS{Value: "EVENTS#"},
		},
		Limit: aws.Int32(limit),
	}

	result, err := es.client.Scan(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("scan pending events", err)
	}

	records := make([]*EventRecord, 0, len(result.Items))
	for _, raw := range result.Items {
		var record EventRecord
		if err := attributevalue.UnmarshalMap(raw, &record); err != nil {
			continue
		}
		records = append(records, &record)
	}

	return records, nil
}

// MarkPublished flips an audit row to published
func (es *EvolutionEventStore) MarkPublished(ctx context.Context, pk, sk string) error {
	now := time.Now().Format(time.RFC3339)

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET PublishStatus = :published, PublishedAt = :publishedAt"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":published":   &types.AttributeValueMemberS{Value: string(PublishStatusPublished)},
			":publishedAt": &types.AttributeValueMemberS{Value: now},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("mark event published", err)
	}
	return nil
}

// MarkFailed records a publish failure. Rows stay pending for retry
// until the attempt budget is spent.
func (es *EvolutionEventStore) MarkFailed(ctx context.Context, pk, sk, errorMsg string, attempts int) error {
	now := time.Now().Format(time.RFC3339)

	status := string(PublishStatusFailed)
	if attempts < maxPublishAttempts {
		status = string(PublishStatusPending)
	}

	input := &dynamodb.UpdateItemInput{
		TableName: aws.String(es.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: pk},
			"SK": &types.AttributeValueMemberS{Value: sk},
		},
		UpdateExpression: aws.String("SET PublishStatus = :status, PublishAttempts = :attempts, LastPublishTry = :lastTry, ErrorMessage = :error"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":status":   &types.AttributeValueMemberS{Value: status},
			":attempts": &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", attempts)},
			":lastTry":  &types.AttributeValueMemberS{Value: now},
			":error":    &types.AttributeValueMemberS{Value: errorMsg},
		},
		ConditionExpression: aws.String("attribute_exists(PK)"),
	}

	if _, err := es.client.UpdateItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("mark event failed", err)
	}
	return nil
}

func eventToRecord(event events.DomainEvent) (*EventRecord, error) {
	eventData := make(map[string]interface{})
	eventBytes, err := json.Marshal(event)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal event: %w", err)
	}
	if err := json.Unmarshal(eventBytes, &eventData); err != nil {
		return nil, fmt.Errorf("failed to unmarshal event to map: %w", err)
	}

	timestamp := event.GetTimestamp()
	eventID := uuid.New().String()

	// Audit rows age out after a year.
	ttl := timestamp.Add(365 * 24 * time.Hour).Unix()

	return &EventRecord{
		PK:          fmt.Sprintf("EVENTS#%s", event.GetAggregateID()),
		SK:          fmt.Sprintf("EVENT#%s#%s", timestamp.Format(time.RFC3339Nano), eventID),
		EntityType:  entityTypeEvent,
		EventID:     eventID,
		EventType:   event.GetEventType(),
		AggregateID: event.GetAggregateID(),
		StationID:   event.GetStationID(),
		EventData:   eventData,
		Timestamp:   timestamp.Format(time.RFC3339Nano),

		PublishStatus:   string(PublishStatusPending),
		PublishAttempts: 0,

		TTL: ttl,
	}, nil
}
