package ports

import (
	"context"
	"time"

	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/domain/events"
)

// NodeRepository defines the persistence port for graph nodes.
// The domain does not know which store implements it.
type NodeRepository interface {
	// Save persists a node (create or update)
	Save(ctx context.Context, node *entities.Node) error

	// GetByID retrieves a node by its ID
	GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error)

	// GetByStationID retrieves all nodes owned by a station
	GetByStationID(ctx context.Context, stationID string) ([]*entities.Node, error)

	// GetAll retrieves every node visible to this station
	GetAll(ctx context.Context) ([]*entities.Node, error)

	// BulkSave saves multiple nodes in one round trip
	BulkSave(ctx context.Context, nodes []*entities.Node) error

	// Delete removes a node row
	Delete(ctx context.Context, id valueobjects.NodeID) error
}

// EdgeRepository defines the persistence port for graph edges
type EdgeRepository interface {
	// Save persists an edge (create or update)
	Save(ctx context.Context, edge *aggregates.Edge) error

	// GetByID retrieves an edge by its deterministic ID
	GetByID(ctx context.Context, edgeID string) (*aggregates.Edge, error)

	// GetByStationID retrieves all edges owned by a station
	GetByStationID(ctx context.Context, stationID string) ([]*aggregates.Edge, error)

	// GetAll retrieves every edge visible to this station
	GetAll(ctx context.Context) ([]*aggregates.Edge, error)

	// BulkSave saves multiple edges in one round trip
	BulkSave(ctx context.Context, edges []*aggregates.Edge) error

	// Delete removes an edge row
	Delete(ctx context.Context, edgeID string) error
}

// EvolutionEventStore records the audit trail of graph mutations using
// the outbox pattern: rows land as pending and a background publisher
// drains them to the event bus.
type EvolutionEventStore interface {
	// Append persists domain events as pending audit rows
	Append(ctx context.Context, domainEvents []events.DomainEvent) error

	// GetByAggregate retrieves audit events for one aggregate in order
	GetByAggregate(ctx context.Context, aggregateID string) ([]events.DomainEvent, error)
}

// EventPublisher pushes domain events to the shared bus
type EventPublisher interface {
	Publish(ctx context.Context, domainEvents []events.DomainEvent) error
}

// RelayPublisher is the store-and-forward hub transport: a station that
// cannot reach the primary store hands its subgraph delta to the relay
type RelayPublisher interface {
	PublishSubgraph(ctx context.Context, subgraph *aggregates.Subgraph) error
}

// QueuedDelta is a subgraph delta waiting for connectivity to return
type QueuedDelta struct {
	ID       string
	Subgraph *aggregates.Subgraph
	QueuedAt time.Time
}

// ReplicationQueue is the local FIFO of outbound deltas. Replay order is
// preserved so a later delta never lands before one it depends on.
type ReplicationQueue interface {
	// Enqueue appends a delta to the tail of the queue
	Enqueue(ctx context.Context, subgraph *aggregates.Subgraph) error

	// Oldest returns up to limit deltas from the head, oldest first
	Oldest(ctx context.Context, limit int) ([]QueuedDelta, error)

	// Remove deletes a flushed delta
	Remove(ctx context.Context, id string) error

	// Depth returns the number of queued deltas
	Depth(ctx context.Context) (int, error)
}

// ReachabilityProbe reports whether the shared persistence backend and
// the relay hub are currently reachable
type ReachabilityProbe interface {
	IsPrimaryStoreReachable(ctx context.Context) bool
	IsRelayReachable(ctx context.Context) bool
}

// MaturationLock guarantees a single in-flight maturation pass per
// station across process replicas
type MaturationLock interface {
	// TryAcquire attempts to take the lock. When acquired is false the
	// caller skips its cycle; it does not wait.
	TryAcquire(ctx context.Context, stationID string, ttl time.Duration) (release func(context.Context) error, acquired bool, err error)
}
