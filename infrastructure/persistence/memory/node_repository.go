package memory

import (
	"context"
	"sync"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	pkgerrors "neuralmesh/pkg/errors"
)

// NodeRepository is a map-backed node store for offline mode and tests
type NodeRepository struct {
	mu    sync.RWMutex
	nodes map[valueobjects.NodeID]*entities.Node
}

// NewNodeRepository creates an empty in-memory node repository
func NewNodeRepository() ports.NodeRepository {
	return &NodeRepository{nodes: make(map[valueobjects.NodeID]*entities.Node)}
}

// Save stores a node
func (r *NodeRepository) Save(ctx context.Context, node *entities.Node) error {
	if node == nil {
		return pkgerrors.NewValidationError("node cannot be nil")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.nodes[node.ID()] = node
	return nil
}

// GetByID retrieves a node by ID
func (r *NodeRepository) GetByID(ctx context.Context, id valueobjects.NodeID) (*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	node, ok := r.nodes[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("node " + id.String())
	}
	return node, nil
}

// GetByStationID retrieves all nodes owned by a station
func (r *NodeRepository) GetByStationID(ctx context.Context, stationID string) ([]*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var nodes []*entities.Node
	for _, node := range r.nodes {
		if node.IsOwnedBy(stationID) {
			nodes = append(nodes, node)
		}
	}
	return nodes, nil
}

// GetAll retrieves every stored node
func (r *NodeRepository) GetAll(ctx context.Context) ([]*entities.Node, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	nodes := make([]*entities.Node, 0, len(r.nodes))
	for _, node := range r.nodes {
		nodes = append(nodes, node)
	}
	return nodes, nil
}

// BulkSave stores multiple nodes
func (r *NodeRepository) BulkSave(ctx context.Context, nodes []*entities.Node) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, node := range nodes {
		if node == nil {
			continue
		}
		r.nodes[node.ID()] = node
	}
	return nil
}

// Delete removes a node
func (r *NodeRepository) Delete(ctx context.Context, id valueobjects.NodeID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.nodes, id)
	return nil
}
