package services

import (
	"context"

	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/core/aggregates"
	domainservices "neuralmesh/domain/services"
	pkgerrors "neuralmesh/pkg/errors"
)

// ReplicationMode is the propagation strategy a station uses for a given
// outbound delta
type ReplicationMode string

const (
	// ModeDirect writes the subgraph straight into the shared store
	ModeDirect ReplicationMode = "direct"
	// ModeRelay hands the subgraph to the hub for store-and-forward
	ModeRelay ReplicationMode = "relay"
	// ModeQueue appends the subgraph to the local FIFO for later replay
	ModeQueue ReplicationMode = "queue"
)

// ReplicationDriver propagates graph mutations to peer stations. It
// probes reachability before each delta, picks the richest available
// mode, and replays the local queue in FIFO order once connectivity
// returns. Unreachability is never fatal; the queue mode always works.
type ReplicationDriver struct {
	stationID string
	probe     ports.ReachabilityProbe
	nodeRepo  ports.NodeRepository
	edgeRepo  ports.EdgeRepository
	relay     ports.RelayPublisher
	queue     ports.ReplicationQueue
	subgraphs *domainservices.SubgraphManager
	logger    *zap.Logger
}

// NewReplicationDriver creates a replication driver
func NewReplicationDriver(
	stationID string,
	probe ports.ReachabilityProbe,
	nodeRepo ports.NodeRepository,
	edgeRepo ports.EdgeRepository,
	relay ports.RelayPublisher,
	queue ports.ReplicationQueue,
	subgraphs *domainservices.SubgraphManager,
	logger *zap.Logger,
) *ReplicationDriver {
	return &ReplicationDriver{
		stationID: stationID,
		probe:     probe,
		nodeRepo:  nodeRepo,
		edgeRepo:  edgeRepo,
		relay:     relay,
		queue:     queue,
		subgraphs: subgraphs,
		logger:    logger,
	}
}

// SelectMode picks the propagation strategy for the current connectivity
func (d *ReplicationDriver) SelectMode(ctx context.Context) ReplicationMode {
	if d.probe.IsPrimaryStoreReachable(ctx) {
		return ModeDirect
	}
	if d.probe.IsRelayReachable(ctx) {
		return ModeRelay
	}
	return ModeQueue
}

// Replicate propagates a subgraph delta using the best available mode.
// In direct mode any queued deltas are flushed first, oldest first, so
// replay order is preserved.
func (d *ReplicationDriver) Replicate(ctx context.Context, subgraph *aggregates.Subgraph) (ReplicationMode, error) {
	mode := d.SelectMode(ctx)

	switch mode {
	case ModeDirect:
		if err := d.flushQueue(ctx); err != nil {
			// A failed flush means connectivity is flakier than the
			// probe suggested; fall back to queueing this delta too.
			d.logger.Warn("Queue flush failed, queueing delta", zap.Error(err))
			return ModeQueue, d.queue.Enqueue(ctx, subgraph)
		}
		if err := d.writeDirect(ctx, subgraph); err != nil {
			return ModeQueue, d.queue.Enqueue(ctx, subgraph)
		}
		return ModeDirect, nil

	case ModeRelay:
		if err := d.relay.PublishSubgraph(ctx, subgraph); err != nil {
			d.logger.Warn("Relay publish failed, queueing delta", zap.Error(err))
			return ModeQueue, d.queue.Enqueue(ctx, subgraph)
		}
		return ModeRelay, nil

	default:
		return ModeQueue, d.queue.Enqueue(ctx, subgraph)
	}
}

// MergeIncoming folds a remote station's subgraph into the local live
// view. Locally-owned data always wins collisions.
func (d *ReplicationDriver) MergeIncoming(ctx context.Context, graph *StationGraph, remote *aggregates.Subgraph) (nodesMerged, edgesMerged int, err error) {
	if remote == nil {
		return 0, 0, pkgerrors.NewValidationError("remote subgraph cannot be nil")
	}
	if remote.StationID == d.stationID {
		// Our own delta reflected back through the relay; nothing to do.
		return 0, 0, nil
	}

	nodes, edges := graph.Snapshot()
	local := &aggregates.Subgraph{
		Nodes:     nodes,
		Edges:     edges,
		StationID: d.stationID,
	}

	merged := d.subgraphs.Merge(local, remote)
	graph.MergeRemote(merged)

	d.logger.Info("Merged remote subgraph",
		zap.String("remoteStation", remote.StationID),
		zap.Int("remoteNodes", len(remote.Nodes)),
		zap.Int("remoteEdges", len(remote.Edges)),
	)

	return len(remote.Nodes), len(remote.Edges), nil
}

// QueueDepth reports the number of deltas waiting for connectivity
func (d *ReplicationDriver) QueueDepth(ctx context.Context) int {
	depth, err := d.queue.Depth(ctx)
	if err != nil {
		return 0
	}
	return depth
}

func (d *ReplicationDriver) flushQueue(ctx context.Context) error {
	for {
		queued, err := d.queue.Oldest(ctx, 25)
		if err != nil {
			return pkgerrors.Wrap(err, "reading replication queue")
		}
		if len(queued) == 0 {
			return nil
		}

		for _, delta := range queued {
			if err := d.writeDirect(ctx, delta.Subgraph); err != nil {
				// Stop at the first failure to keep FIFO order intact.
				return pkgerrors.Wrap(err, "replaying queued delta")
			}
			if err := d.queue.Remove(ctx, delta.ID); err != nil {
				return pkgerrors.Wrap(err, "removing flushed delta")
			}
		}

		d.logger.Info("Flushed replication queue batch", zap.Int("deltas", len(queued)))
	}
}

func (d *ReplicationDriver) writeDirect(ctx context.Context, subgraph *aggregates.Subgraph) error {
	if err := d.nodeRepo.BulkSave(ctx, subgraph.Nodes); err != nil {
		return pkgerrors.NewDatabaseError("replicate nodes", err)
	}
	if err := d.edgeRepo.BulkSave(ctx, subgraph.Edges); err != nil {
		return pkgerrors.NewDatabaseError("replicate edges", err)
	}
	return nil
}
