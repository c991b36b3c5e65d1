package memory

import (
	"context"
	"sync"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/aggregates"
	pkgerrors "neuralmesh/pkg/errors"
)

// EdgeRepository is a map-backed edge store for offline mode and tests
type EdgeRepository struct {
	mu    sync.RWMutex
	edges map[string]*aggregates.Edge
}

// NewEdgeRepository creates an empty in-memory edge repository
func NewEdgeRepository() ports.EdgeRepository {
	return &EdgeRepository{edges: make(map[string]*aggregates.Edge)}
}

// Save stores an edge
func (r *EdgeRepository) Save(ctx context.Context, edge *aggregates.Edge) error {
	if edge == nil {
		return pkgerrors.NewValidationError("edge cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.edges[edge.ID] = edge
	return nil
}

// GetByID retrieves an edge by its deterministic ID
func (r *EdgeRepository) GetByID(ctx context.Context, edgeID string) (*aggregates.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	edge, ok := r.edges[edgeID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("edge " + edgeID)
	}
	return edge, nil
}

// GetByStationID retrieves all edges owned by a station
func (r *EdgeRepository) GetByStationID(ctx context.Context, stationID string) ([]*aggregates.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var edges []*aggregates.Edge
	for _, edge := range r.edges {
		if edge.OwnerStationID == stationID {
			edges = append(edges, edge)
		}
	}
	return edges, nil
}

// GetAll retrieves every stored edge
func (r *EdgeRepository) GetAll(ctx context.Context) ([]*aggregates.Edge, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	edges := make([]*aggregates.Edge, 0, len(r.edges))
	for _, edge := range r.edges {
		edges = append(edges, edge)
	}
	return edges, nil
}

// BulkSave stores multiple edges
func (r *EdgeRepository) BulkSave(ctx context.Context, edges []*aggregates.Edge) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, edge := range edges {
		if edge == nil {
			continue
		}
		r.edges[edge.ID] = edge
	}
	return nil
}

// Delete removes an edge
func (r *EdgeRepository) Delete(ctx context.Context, edgeID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.edges, edgeID)
	return nil
}
