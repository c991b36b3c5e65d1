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
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	pkgerrors "neuralmesh/pkg/errors"
)

// NodeRepository implements ports.NodeRepository on the shared
// single-table layout
type NodeRepository struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewNodeRepository creates a DynamoDB-backed node repository
func NewNodeRepository(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.NodeRepository {
	return &NodeRepository{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// Save persists a node row
func (r *NodeRepository) Save(ctx context.Context, node *entities.Node) error {
	av, err := attributevalue.MarshalMap(nodeToItem(node))
	if err != nil {
		return fmt.Errorf("failed to marshal node: %w", err)
	}

	input := &dynamodb.PutItemInput{
		TableName: aws.String(r.tableName),
		Item:      av,
	}

	if _, err := r.client.PutItem(ctx, input); err != nil {
		r.logger.Error("Failed to save node",
			zap.Error(err),
			zap.String("nodeID", node.ID().String()),
		)
		return pkgerrors.NewDatabaseError("save node", err)
	}

	return nil
}

// GetByID retrieves a node by ID via the GSI1 metadata projection
func (r *NodeRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		IndexName:              aws.String("GSI1"),
		KeyConditionExpression: aws.String("GSI1PK = :pk AND GSI1SK = :sk"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("NODE#%s", id.String())},
			":sk": &types.AttributeValueMemberS{Value: "METADATA"},
		},
		Limit: aws.Int32(1),
	}

	result, err := r.client.Query(ctx, input)
	if err != nil {
		return nil, pkgerrors.NewDatabaseError("query node", err)
	}
	if len(result.Items) == 0 {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}

	var item nodeItem
	if err := attributevalue.UnmarshalMap(result.Items[0], &item); err != nil {
		return nil, fmt.Errorf("failed to unmarshal node: %w", err)
	}

	return itemToNode(item)
}

// GetByStationID retrieves every node owned by a station
func (r *NodeRepository) GetByStationID(ctx context.Context, stationID string) ([]*entities.Node, error) {
	input := &dynamodb.QueryInput{
		TableName:              aws.String(r.tableName),
		KeyConditionExpression: aws.String("PK = :pk AND begins_with(SK, :sk)"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":pk": &types.AttributeValueMemberS{Value: fmt.Sprintf("STATION#%s", stationID)},
			":sk": &types.AttributeValueMemberS{Value: "NODE#"},
		},
	}

	var nodes []*entities.Node
	for {
		result, err := r.client.Query(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("query station nodes", err)
		}

		for _, raw := range result.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				r.logger.Warn("Failed to unmarshal node item", zap.Error(err))
				continue
			}
			node, err := itemToNode(item)
			if err != nil {
				r.logger.Warn("Failed to reconstruct node",
					zap.String("nodeID", item.NodeID),
					zap.Error(err),
				)
				continue
			}
			nodes = append(nodes, node)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return nodes, nil
}

// GetAll scans every node row visible to this station
func (r *NodeRepository) GetAll(ctx context.Context) ([]*entities.Node, error) {
	expr, err := expression.NewBuilder().
		WithFilter(expression.Name("EntityType").Equal(expression.Value(entityTypeNode))).
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

	var nodes []*entities.Node
	for {
		result, err := r.client.Scan(ctx, input)
		if err != nil {
			return nil, pkgerrors.NewDatabaseError("scan nodes", err)
		}

		for _, raw := range result.Items {
			var item nodeItem
			if err := attributevalue.UnmarshalMap(raw, &item); err != nil {
				continue
			}
			node, err := itemToNode(item)
			if err != nil {
				continue
			}
			nodes = append(nodes, node)
		}

		if result.LastEvaluatedKey == nil {
			break
		}
		input.ExclusiveStartKey = result.LastEvaluatedKey
	}

	return nodes, nil
}

// BulkSave writes nodes in batches of 25, the BatchWriteItem limit
func (r *NodeRepository) BulkSave(ctx context.Context, nodes []*entities.Node) error {
	if len(nodes) == 0 {
		return nil
	}

	writeRequests := make([]types.WriteRequest, 0, len(nodes))
	for _, node := range nodes {
		av, err := attributevalue.MarshalMap(nodeToItem(node))
		if err != nil {
			return fmt.Errorf("failed to marshal node: %w", err)
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
			return pkgerrors.NewDatabaseError("bulk save nodes", err)
		}
		if len(result.UnprocessedItems) > 0 {
			return pkgerrors.NewDatabaseError("bulk save nodes",
				fmt.Errorf("%d items unprocessed", len(result.UnprocessedItems[r.tableName])))
		}
	}

	return nil
}

// Delete removes a node row. The owner is resolved first since the
// partition key carries the station.
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	node, err := r.GetByID(ctx, id)
	if err != nil {
		if pkgerrors.IsNotFound(err) {
			return nil
		}
		return err
	}

	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(r.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("STATION#%s", node.OwnerStationID())},
			"SK": &types.AttributeValueMemberS{Value: fmt.Sprintf("NODE#%s", id.String())},
		},
	}

	if _, err := r.client.DeleteItem(ctx, input); err != nil {
		return pkgerrors.NewDatabaseError("delete node", err)
	}

	r.logger.Debug("Node deleted", zap.String("nodeID", id.String()))
	return nil
}
