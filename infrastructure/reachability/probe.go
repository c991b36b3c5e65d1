package reachability

import (
	"context"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"neuralmesh/application/ports"
)

// Probe reports whether the shared store and the relay hub respond.
// Results are cached briefly so a maturation cycle does not hammer the
// endpoints with health checks.
type Probe struct {
	dynamoClient *dynamodb.Client
	eventClient  *eventbridge.Client
	tableName    string
	eventBusName string
	timeout      time.Duration
	cacheTTL     time.Duration
	logger       *zap.Logger

	mu              sync.Mutex
	storeReachable  bool
	storeCheckedAt  time.Time
	relayReachable  bool
	relayCheckedAt  time.Time
}

// NewProbe creates a reachability probe against the configured store
// and relay endpoints
func NewProbe(dynamoClient *dynamodb.Client, eventClient *eventbridge.Client, tableName, eventBusName string, logger *zap.Logger) ports.ReachabilityProbe {
	return &Probe{
		dynamoClient: dynamoClient,
		eventClient:  eventClient,
		tableName:    tableName,
		eventBusName: eventBusName,
		timeout:      2 * time.Second,
		cacheTTL:     15 * time.Second,
		logger:       logger,
	}
}

// IsPrimaryStoreReachable pings the DynamoDB table
func (p *Probe) IsPrimaryStoreReachable(ctx context.Context) bool {
	p.mu.Lock()
	if time.Since(p.storeCheckedAt) < p.cacheTTL {
		reachable := p.storeReachable
		p.mu.Unlock()
		return reachable
	}
	p.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.dynamoClient.DescribeTable(checkCtx, &dynamodb.DescribeTableInput{
		TableName: aws.String(p.tableName),
	})
	reachable := err == nil
	if err != nil {
		p.logger.Debug("Primary store unreachable", zap.Error(err))
	}

	p.mu.Lock()
	p.storeReachable = reachable
	p.storeCheckedAt = time.Now()
	p.mu.Unlock()

	return reachable
}

// IsRelayReachable pings the EventBridge bus
func (p *Probe) IsRelayReachable(ctx context.Context) bool {
	p.mu.Lock()
	if time.Since(p.relayCheckedAt) < p.cacheTTL {
		reachable := p.relayReachable
		p.mu.Unlock()
		return reachable
	}
	p.mu.Unlock()

	checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	_, err := p.eventClient.DescribeEventBus(checkCtx, &eventbridge.DescribeEventBusInput{
		Name: aws.String(p.eventBusName),
	})
	reachable := err == nil
	if err != nil {
		p.logger.Debug("Relay unreachable", zap.Error(err))
	}

	p.mu.Lock()
	p.relayReachable = reachable
	p.relayCheckedAt = time.Now()
	p.mu.Unlock()

	return reachable
}
