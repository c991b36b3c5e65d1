package dynamodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"neuralmesh/application/ports"
	pkgerrors "neuralmesh/pkg/errors"
)

// MaturationLock implements ports.MaturationLock with a DynamoDB
// conditional write. The lock row carries a TTL, so a crashed holder's
// lock expires on its own and the next cycle can take it.
type MaturationLock struct {
	client    *dynamodb.Client
	tableName string
	logger    *zap.Logger
}

// NewMaturationLock creates a DynamoDB-backed maturation lock
func NewMaturationLock(client *dynamodb.Client, tableName string, logger *zap.Logger) ports.MaturationLock {
	return &MaturationLock{
		client:    client,
		tableName: tableName,
		logger:    logger,
	}
}

// TryAcquire attempts one conditional write. Contention is not an
// error; the caller skips its cycle when acquired is false.
func (l *MaturationLock) TryAcquire(ctx context.Context, stationID string, ttl time.Duration) (func(context.Context) error, bool, error) {
	lockID := uuid.New().String()
	now := time.Now()
	expiresAt := now.Add(ttl)

	item := map[string]types.AttributeValue{
		"PK":         &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#MATURATION#%s", stationID)},
		"SK":         &types.AttributeValueMemberS{Value: "LOCK"},
		"LockID":     &types.AttributeValueMemberS{Value: lockID},
		"AcquiredAt": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		"ExpiresAt":  &types.AttributeValueMemberS{Value: expiresAt.Format(time.RFC3339)},
		"TTL":        &types.AttributeValueMemberN{Value: fmt.Sprintf("%d", expiresAt.Unix())},
	}

	input := &dynamodb.PutItemInput{
		TableName:           aws.String(l.tableName),
		Item:                item,
		ConditionExpression: aws.String("attribute_not_exists(PK) OR ExpiresAt < :now"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":now": &types.AttributeValueMemberS{Value: now.Format(time.RFC3339)},
		},
	}

	if _, err := l.client.PutItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			l.logger.Debug("Maturation lock already held", zap.String("station", stationID))
			return nil, false, nil
		}
		return nil, false, pkgerrors.NewDatabaseError("acquire maturation lock", err)
	}

	l.logger.Debug("Maturation lock acquired",
		zap.String("station", stationID),
		zap.String("lockID", lockID),
		zap.Duration("ttl", ttl),
	)

	release := func(ctx context.Context) error {
		return l.release(ctx, stationID, lockID)
	}
	return release, true, nil
}

func (l *MaturationLock) release(ctx context.Context, stationID, lockID string) error {
	input := &dynamodb.DeleteItemInput{
		TableName: aws.String(l.tableName),
		Key: map[string]types.AttributeValue{
			"PK": &types.AttributeValueMemberS{Value: fmt.Sprintf("LOCK#MATURATION#%s", stationID)},
			"SK": &types.AttributeValueMemberS{Value: "LOCK"},
		},
		ConditionExpression: aws.String("LockID = :lockId"),
		ExpressionAttributeValues: map[string]types.AttributeValue{
			":lockId": &types.AttributeValueMemberS{Value: lockID},
		},
	}

	if _, err := l.client.DeleteItem(ctx, input); err != nil {
		var conditionFailed *types.ConditionalCheckFailedException
		if errors.As(err, &conditionFailed) {
			// Expired and taken by someone else; nothing left to release.
			return nil
		}
		return pkgerrors.NewDatabaseError("release maturation lock", err)
	}

	return nil
}
