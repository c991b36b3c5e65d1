package memory

import (
	"context"
	"sync"

	"neuralmesh/application/ports"
	"neuralmesh/domain/events"
)

// EventStore is an append-only in-memory audit trail
type EventStore struct {
	mu     sync.RWMutex
	events map[string][]events.DomainEvent
}

// NewEventStore creates an empty in-memory event store
func NewEventStore() ports.EvolutionEventStore {
	return &EventStore{events: make(map[string][]events.DomainEvent)}
}

// Append records domain events in arrival order
func (s *EventStore) Append(ctx context.Context, domainEvents []events.DomainEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, event := range domainEvents {
		key := event.GetAggregateID()
		s.events[key] = append(s.events[key], event)
	}
	return nil
}

// GetByAggregate retrieves events for one aggregate in append order
func (s *EventStore) GetByAggregate(ctx context.Context, aggregateID string) ([]events.DomainEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[aggregateID]
	out := make([]events.DomainEvent, len(stored))
	copy(out, stored)
	return out, nil
}
