package dynamodb

import (
	"context"
	"time"

	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/events"
)

// OutboxProcessor drains pending audit rows to the shared event bus.
// Rows that fail to publish stay pending and are retried on the next
// tick until their attempt budget runs out.
type OutboxProcessor struct {
	store     *EvolutionEventStore
	publisher ports.EventPublisher
	logger    *zap.Logger
	interval  time.Duration
	batchSize int32

	stopChan    chan struct{}
	stoppedChan chan struct{}
}

// NewOutboxProcessor creates an outbox processor
func NewOutboxProcessor(store *EvolutionEventStore, publisher ports.EventPublisher, interval time.Duration, logger *zap.Logger) *OutboxProcessor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &OutboxProcessor{
		store:       store,
		publisher:   publisher,
		logger:      logger,
		interval:    interval,
		batchSize:   50,
		stopChan:    make(chan struct{}),
		stoppedChan: make(chan struct{}),
	}
}

// Start runs the drain loop until Stop is called
func (p *OutboxProcessor) Start(ctx context.Context) {
	go p.run(ctx)
}

// Stop signals the loop to exit and waits for it to finish
func (p *OutboxProcessor) Stop() {
	close(p.stopChan)
	<-p.stoppedChan
}

func (p *OutboxProcessor) run(ctx context.Context) {
	defer close(p.stoppedChan)

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	p.logger.Info("Outbox processor started", zap.Duration("interval", p.interval))

	for {
		select {
		case <-p.stopChan:
			p.logger.Info("Outbox processor stopped")
			return
		case <-ctx.Done():
			p.logger.Info("Outbox processor context cancelled")
			return
		case <-ticker.C:
			if err := p.ProcessPending(ctx); err != nil {
				p.logger.Warn("Outbox drain failed", zap.Error(err))
			}
		}
	}
}

// ProcessPending drains one batch of pending audit rows
func (p *OutboxProcessor) ProcessPending(ctx context.Context) error {
	records, err := p.store.GetPending(ctx, p.batchSize)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	published := 0
	for _, record := range records {
		timestamp, err := time.Parse(time.RFC3339Nano, record.Timestamp)
		if err != nil {
			timestamp = time.Now()
		}

		event := events.BaseEvent{
			AggregateID: record.AggregateID,
			EventType:   record.EventType,
			Timestamp:   timestamp,
			StationID:   record.StationID,
		}

		if err := p.publisher.Publish(ctx, []events.DomainEvent{event}); err != nil {
			if markErr := p.store.MarkFailed(ctx, record.PK, record.SK, err.Error(), record.PublishAttempts+1); markErr != nil {
				p.logger.Warn("Failed to mark event as failed",
					zap.String("eventID", record.EventID),
					zap.Error(markErr),
				)
			}
			continue
		}

		if err := p.store.MarkPublished(ctx, record.PK, record.SK); err != nil {
			p.logger.Warn("Failed to mark event as published",
				zap.String("eventID", record.EventID),
				zap.Error(err),
			)
			continue
		}
		published++
	}

	if published > 0 {
		p.logger.Debug("Outbox batch drained",
			zap.Int("published", published),
			zap.Int("batch", len(records)),
		)
	}

	return nil
}
