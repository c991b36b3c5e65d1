package eventbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"github.com/aws/aws-sdk-go-v2/service/eventbridge/types"
	"go.uber.org/zap"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/events"
	pkgerrors "neuralmesh/pkg/errors"
)

const (
	eventSource        = "neuralmesh.station"
	detailTypeSubgraph = "subgraph.delta"
)

// RelayPublisher pushes subgraph deltas and domain events to the shared
// EventBridge bus. In relay mode the bus is the hub that stores and
// forwards a station's delta to its peers.
type RelayPublisher struct {
	client       *eventbridge.Client
	eventBusName string
	stationID    string
	logger       *zap.Logger
}

// NewRelayPublisher creates an EventBridge-backed relay publisher
func NewRelayPublisher(client *eventbridge.Client, eventBusName, stationID string, logger *zap.Logger) *RelayPublisher {
	return &RelayPublisher{
		client:       client,
		eventBusName: eventBusName,
		stationID:    stationID,
		logger:       logger,
	}
}

// PublishSubgraph hands a subgraph delta to the relay hub
func (p *RelayPublisher) PublishSubgraph(ctx context.Context, subgraph *aggregates.Subgraph) error {
	detail, err := json.Marshal(subgraph)
	if err != nil {
		return fmt.Errorf("failed to marshal subgraph: %w", err)
	}

	input := &eventbridge.PutEventsInput{
		Entries: []types.PutEventsRequestEntry{
			{
				EventBusName: aws.String(p.eventBusName),
				Source:       aws.String(eventSource),
				DetailType:   aws.String(detailTypeSubgraph),
				Detail:       aws.String(string(detail)),
				Resources: []string{
					fmt.Sprintf("arn:aws:neuralmesh::%s", subgraph.StationID),
				},
			},
		},
	}

	result, err := p.client.PutEvents(ctx, input)
	if err != nil {
		return pkgerrors.NewNetworkError("failed to publish subgraph to relay", err)
	}
	if result.FailedEntryCount > 0 {
		entry := result.Entries[0]
		return pkgerrors.NewNetworkError(
			fmt.Sprintf("relay rejected subgraph delta: %s", aws.ToString(entry.ErrorCode)), nil)
	}

	p.logger.Debug("Subgraph delta published to relay",
		zap.String("station", subgraph.StationID),
		zap.Int("nodes", len(subgraph.Nodes)),
		zap.Int("edges", len(subgraph.Edges)),
	)

	return nil
}

// Publish sends domain events to the shared bus. EventBridge caps
// PutEvents at 10 entries per call.
func (p *RelayPublisher) Publish(ctx context.Context, domainEvents []events.DomainEvent) error {
	if len(domainEvents) == 0 {
		return nil
	}

	const batchSize = 10
	for i := 0; i < len(domainEvents); i += batchSize {
		end := i + batchSize
		if end > len(domainEvents) {
			end = len(domainEvents)
		}
		if err := p.publishBatch(ctx, domainEvents[i:end]); err != nil {
			return err
		}
	}
	return nil
}

func (p *RelayPublisher) publishBatch(ctx context.Context, domainEvents []events.DomainEvent) error {
	entries := make([]types.PutEventsRequestEntry, 0, len(domainEvents))

	for _, event := range domainEvents {
		detail, err := json.Marshal(event)
		if err != nil {
			p.logger.Error("Failed to marshal event",
				zap.Error(err),
				zap.String("eventType", event.GetEventType()),
			)
			continue
		}

		entries = append(entries, types.PutEventsRequestEntry{
			EventBusName: aws.String(p.eventBusName),
			Source:       aws.String(eventSource),
			DetailType:   aws.String(event.GetEventType()),
			Detail:       aws.String(string(detail)),
			Time:         aws.Time(event.GetTimestamp()),
			Resources: []string{
				fmt.Sprintf("arn:aws:neuralmesh::%s", event.GetAggregateID()),
			},
		})
	}

	if len(entries) == 0 {
		return nil
	}

	result, err := p.client.PutEvents(ctx, &eventbridge.PutEventsInput{Entries: entries})
	if err != nil {
		return pkgerrors.NewNetworkError("failed to publish events to relay", err)
	}

	if result.FailedEntryCount > 0 {
		for i, entry := range result.Entries {
			if entry.ErrorCode != nil {
				p.logger.Error("Failed to publish event",
					zap.String("eventType", domainEvents[i].GetEventType()),
					zap.String("errorCode", *entry.ErrorCode),
					zap.String("errorMessage", aws.ToString(entry.ErrorMessage)),
				)
			}
		}
		return pkgerrors.NewNetworkError(
			fmt.Sprintf("%d events failed to publish", result.FailedEntryCount), nil)
	}

	p.logger.Debug("Events published to relay",
		zap.Int("count", len(entries)),
		zap.String("eventBus", p.eventBusName),
	)

	return nil
}
