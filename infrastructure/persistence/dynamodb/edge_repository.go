package dynamodb

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/expression"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/aggregates"
	pkgerrors "neuralmesh/pkg/errors"
)

// EdgeRepository implements ports.EdgeRepository on the shared
// single-table layout
type EdgeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewEdgeRepository creates a DynamoDB-backed edge repository
func NewEdgeRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.EdgeRepository {
	return &EdgeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists an edge row
func (r *EdgeRepository) Save(ctx context.Context, edge *aggregates.Edge) error {
	av, err := attributevalue.MarshalMap(edgeToItem(edge))
	if err != nil {
		return fmt.Errorf("failed to marshal edge: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save edge",
			zap.Error(err),
			zap.String("edgeID", edge.ID),
		)
		return pkgerrors.NewDatabaseError("save edge", err)
	}

	return nil
}

// GetByID retrieves an edge by its deterministic ID via GSI1
func (r *EdgeRepository) GetByID(ctx context.Context, edgeID string) (*aggregates.Edge, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("EDGE#%s", edgeID)},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query edge", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("edge " + edgeID)
	}

	var item edgeItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal edge: %w", err)
	}

	return itemToEdge(item)
}

// GetByStationID retrieves every edge owned by a station
func (r *EdgeRepository) GetByStationID(ctx context.Context, stationID string) ([]*aggregates.Edge, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("STATION#%s", stationID)},
			":sk": &types.AttributeValueMemberS{Value: "EDGE#"},
		},
	}

	var edges []*aggregates.Edge
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query station edges", err)
		}

		for _, raw := range result.Items {
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal edge item", zap.Error(err))
				continue
			}
			edge, err := itemToEdge(item)
			if err != nil {
				r.logger.Warn("Failed to reconstruct edge",
					zap.String("edgeID", item.EdgeID),
					zap.Error(err),
				)
				continue
			}
			edges = append(edges, edge)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return edges, nil
}

// GetAll scans every edge row visible to this station
func (r *EdgeRepository) GetAll(ctx context.Context) ([]*aggregates.Edge, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityTypeEdge))).
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build scan expression: %w", err)
	}

	input := &dynamodb.ScanInput{
		TableName:                 aws.String(r.tableName),
		FilterExpression:          expr.Filter(),
		ExpressionAttributeNames:  expr.Names(),
		ExpressionAttributeValues: expr.Values(),
	}

	var edges []*aggregates.Edge
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan edges", err)
		}

		for _, raw := range result.Items {
			var item edgeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			edge, err := itemToEdge(item)
			if err != nil {
				continue
			}
			edges = append(edges, edge)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return edges, nil
}

// BulkSave writes edges in batches of 25
func (r *EdgeRepository) BulkSave(ctx context.Context, edges []*aggregates.Edge) error {
	if len(edges) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(edges))
	for _, edge := range edges {
		av, err := attributevalue.MarshalMap(edgeToItem(edge))
		if err != nil {
			return fmt.Errorf("failed to marshal edge: %w", err)
		}
		writeRequests = append(writeRequests, types.WriteRequest{
			PutRequest: &types.PutRequest{Item: av},
		})
	}

	for i := 0; i < len(writeRequests); i += 25 {
		end := i + 25
		if end > len(writeRequests) {
			end = len(writeRequests)
		}

		input := &dynamodb.BatchWriteItemInput{
			RequestItems: map[string][]types.WriteRequest{
				r.tableName: writeRequests[i:end],
			},
		}

		result, err := r.client.BatchWriteItem(ctx, input)
		if err != nil {
			return pkgerrors.NewDatabaseError("bulk save edges", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return pkgerrors.NewDatabaseError("bulk save edges",
				fmt.Errorf("%d items unprocessed", len(result.UnprocessedItems[r.tableName])))
		}
	}

	return nil
}

// Delete removes an edge row
func (r *EdgeRepository) Delete(ctx context.Context, edgeID string) error {
	edge, err := r.GetByID(ctx, edgeID)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("STATION#%s", edge.OwnerStationID)},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("EDGE#%s", edgeID)},
		},
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete edge", err)
	}

	r.logger.Debug("Edge deleted", zap.String("edgeID", edgeID))
	return nil
}
