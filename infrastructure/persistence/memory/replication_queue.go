package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/aggregates"
	pkgerrors "neuralmesh/pkg/errors"
)

// ReplicationQueue is a slice-backed FIFO of outbound deltas
type ReplicationQueue struct {
	mu     sync.Mutex
	deltas []ports.QueuedDelta
}

// NewReplicationQueue creates an empty in-memory replication queue
func NewReplicationQueue() ports.ReplicationQueue {
	return &ReplicationQueue{}
}

// Enqueue appends a delta to the tail
func (q *ReplicationQueue) Enqueue(ctx context.Context, subgraph *aggregates.Subgraph) error {
	if subgraph == nil {
		return pkgerrors.NewValidationError("subgraph cannot be nil")
	}
	q.mu.Lock()
	defer q.mu.Unlock()
	q.deltas = append(q.deltas, ports.QueuedDelta{
		ID:       uuid.New().String(),
		Subgraph: subgraph,
		QueuedAt: time.Now(),
	})
	return nil
}

// Oldest returns up to limit deltas from the head, oldest first
func (q *ReplicationQueue) Oldest(ctx context.Context, limit int) ([]ports.QueuedDelta, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if limit <= 0 || limit > len(q.deltas) {
		limit = len(q.deltas)
	}
	out := make([]ports.QueuedDelta, limit)
	copy(out, q.deltas[:limit])
	return out, nil
}

// Remove deletes a delta by ID
func (q *ReplicationQueue) Remove(ctx context.Context, id string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	for i, delta := range q.deltas {
		if delta.ID == id {
			q.deltas = append(q.deltas[:i], q.deltas[i+1:]...)
			return nil
		}
	}
	return nil
}

// Depth returns the number of queued deltas
func (q *ReplicationQueue) Depth(ctx context.Context) (int, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.deltas), nil
}
