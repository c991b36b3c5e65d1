package services

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"neuralmesh/application/ports"
	"neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
	"neuralmesh/domain/events"
	domainservices "neuralmesh/domain/services"
)

// MaturationReport summarizes one maturation cycle
type MaturationReport struct {
	Skipped            bool            `json:"skipped"`
	NodesScored        int             `json:"nodes_scored"`
	ProposalsGenerated int             `json:"proposals_generated"`
	ProposalsApplied   int             `json:"proposals_applied"`
	PendingConsensus   int             `json:"pending_consensus"`
	ReplicationMode    ReplicationMode `json:"replication_mode,omitempty"`
	Duration           time.Duration   `json:"duration"`
}

// EvolutionService orchestrates the periodic maturation cycle: score
// fitness, generate mutation proposals, apply what it can, route the
// rest through consensus, and replicate the resulting delta.
//
// At most one cycle runs at a time. A process-local guard skips
// re-entrant ticks and a distributed lock covers station replicas, so
// overlapping cycles never double-apply a proposal.
type EvolutionService struct {
	stationID   string
	graph       *StationGraph
	fitness     *domainservices.FitnessEngine
	generator   *domainservices.ProposalGenerator
	subgraphs   *domainservices.SubgraphManager
	consensus   *ConsensusCoordinator
	replication *ReplicationDriver
	eventStore  ports.EvolutionEventStore
	lock        ports.MaturationLock
	cfg         *config.DomainConfig
	logger      *zap.Logger

	inFlight atomic.Bool
}

// NewEvolutionService creates the maturation orchestrator
func NewEvolutionService(
	stationID string,
	graph *StationGraph,
	fitness *domainservices.FitnessEngine,
	generator *domainservices.ProposalGenerator,
	subgraphs *domainservices.SubgraphManager,
	consensus *ConsensusCoordinator,
	replication *ReplicationDriver,
	eventStore ports.EvolutionEventStore,
	lock ports.MaturationLock,
	cfg *config.DomainConfig,
	logger *zap.Logger,
) *EvolutionService {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &EvolutionService{
		stationID:   stationID,
		graph:       graph,
		fitness:     fitness,
		generator:   generator,
		subgraphs:   subgraphs,
		consensus:   consensus,
		replication: replication,
		eventStore:  eventStore,
		lock:        lock,
		cfg:         cfg,
		logger:      logger,
	}
}

// RunCycle executes one full maturation pass. A cycle that cannot take
// the lock reports skipped rather than waiting; the next tick retries.
func (s *EvolutionService) RunCycle(ctx context.Context) (*MaturationReport, error) {
	if !s.inFlight.CompareAndSwap(false, true) {
		return &MaturationReport{Skipped: true}, nil
	}
	defer s.inFlight.Store(false)

	release, acquired, err := s.lock.TryAcquire(ctx, s.stationID, s.cfg.MaturationLockTTL)
	if err != nil {
		return nil, err
	}
	if !acquired {
		s.logger.Debug("Maturation lock held elsewhere, skipping cycle")
		return &MaturationReport{Skipped: true}, nil
	}
	defer func() {
		if releaseErr := release(ctx); releaseErr != nil {
			s.logger.Warn("Failed to release maturation lock", zap.Error(releaseErr))
		}
	}()

	started := time.Now()
	report := &MaturationReport{}

	nodes, edges := s.graph.Snapshot()

	report.NodesScored = s.scoreFitness(nodes, edges)

	proposals := s.generateProposals(nodes, edges, started)
	report.ProposalsGenerated = len(proposals)

	applied, opened := s.routeProposals(proposals, nodes, edges)
	report.ProposalsApplied = applied
	if opened > 0 {
		s.logger.Debug("Opened consensus votes", zap.Int("count", opened))
	}

	// Votes may have landed since the last cycle; sweep what is due.
	for _, resolution := range s.consensus.ResolveDue() {
		if resolution.Status == ResolutionApproved {
			if err := s.graph.ApplyProposal(resolution.Proposal); err != nil {
				s.logger.Warn("Failed to apply approved proposal",
					zap.String("proposalID", resolution.Proposal.ID),
					zap.Error(err),
				)
				continue
			}
			report.ProposalsApplied++
		}
		s.recordResolution(ctx, resolution)
	}

	report.PendingConsensus = len(s.consensus.Pending())

	mode, replErr := s.replicate(ctx)
	if replErr != nil {
		s.logger.Error("Replication failed", zap.Error(replErr))
	}
	report.ReplicationMode = mode

	s.persistEvents(ctx, report, started)

	report.Duration = time.Since(started)
	s.logger.Info("Maturation cycle completed",
		zap.Int("nodesScored", report.NodesScored),
		zap.Int("generated", report.ProposalsGenerated),
		zap.Int("applied", report.ProposalsApplied),
		zap.Int("pendingConsensus", report.PendingConsensus),
		zap.String("replicationMode", string(mode)),
		zap.Duration("duration", report.Duration),
	)

	return report, nil
}

// CastVote records a peer station's vote and immediately attempts
// resolution, applying the proposal if the vote completed an approval
func (s *EvolutionService) CastVote(ctx context.Context, proposalID, stationID string, vote entities.Vote) (ResolutionStatus, error) {
	if !s.consensus.CastVote(proposalID, stationID, vote) {
		return ResolutionNotFound, nil
	}

	resolution := s.consensus.Resolve(proposalID)
	switch resolution.Status {
	case ResolutionApproved:
		if err := s.graph.ApplyProposal(resolution.Proposal); err != nil {
			return resolution.Status, err
		}
		s.recordResolution(ctx, resolution)
	case ResolutionRejected:
		s.recordResolution(ctx, resolution)
	}

	return resolution.Status, nil
}

// PendingConsensus lists in-flight consensus requests
func (s *EvolutionService) PendingConsensus() []*entities.ConsensusRequest {
	return s.consensus.Pending()
}

// MergeRemoteSubgraph folds a peer station's delta into the local view
// and reports how many nodes and edges it carried
func (s *EvolutionService) MergeRemoteSubgraph(ctx context.Context, remote *aggregates.Subgraph) (nodesMerged, edgesMerged int, err error) {
	nodesMerged, edgesMerged, err = s.replication.MergeIncoming(ctx, s.graph, remote)
	if err != nil {
		return 0, 0, err
	}
	if nodesMerged == 0 && edgesMerged == 0 {
		return 0, 0, nil
	}

	merged := events.NewSubgraphMerged(s.stationID, remote.StationID, nodesMerged, edgesMerged, time.Now())
	if err := s.eventStore.Append(ctx, []events.DomainEvent{merged}); err != nil {
		s.logger.Warn("Failed to record merge event", zap.Error(err))
	}
	return nodesMerged, edgesMerged, nil
}

func (s *EvolutionService) scoreFitness(nodes []*entities.Node, edges []*aggregates.Edge) int {
	stats := domainservices.ComputeGlobalStats(nodes)
	scored := 0

	for _, node := range nodes {
		if node.IsPruned() {
			continue
		}
		score := s.fitness.NodeFitness(node, edges, stats)
		err := s.graph.SetFitness(node.ID(), score, func(n *entities.Node) {
			n.AdvancePhase(s.cfg)
		})
		if err != nil {
			continue
		}
		scored++
	}

	return scored
}

func (s *EvolutionService) generateProposals(nodes []*entities.Node, edges []*aggregates.Edge, now time.Time) []entities.Proposal {
	proposals := s.generator.MyelinationPass(edges)
	proposals = append(proposals, s.generator.PruningPass(nodes, edges, now)...)

	edgeIDs := make(map[string]bool, len(edges))
	for _, edge := range edges {
		edgeIDs[edge.ID] = true
	}

	synaptic := s.generator.SynaptogenesisPass(
		s.graph.CoActivationLedger(),
		func(id valueobjects.NodeID) (*entities.Node, bool) { return s.graph.GetNode(id) },
		func(a, b valueobjects.NodeID) bool {
			return edgeIDs[aggregates.EdgeID(a, b)] || edgeIDs[aggregates.EdgeID(b, a)]
		},
	)
	if len(synaptic) > 0 {
		proposals = append(proposals, synaptic...)
	}
	// The ledger is consumed whether or not any pair qualified; counts do
	// not accumulate across cycles.
	s.graph.ResetCoActivationLedger()

	return proposals
}

// routeProposals applies reinforcing proposals immediately, in generation
// order, and opens consensus on destructive ones that touch other
// stations. A destructive proposal whose blast radius is entirely local
// skips the vote. A failed application is logged and skipped; it never
// aborts the remaining proposals.
func (s *EvolutionService) routeProposals(proposals []entities.Proposal, nodes []*entities.Node, edges []*aggregates.Edge) (applied, opened int) {
	for _, proposal := range proposals {
		if !proposal.RequiresApproval() {
			if err := s.graph.ApplyProposal(proposal); err != nil {
				s.logger.Warn("Failed to apply proposal",
					zap.String("proposalID", proposal.ID),
					zap.String("type", string(proposal.Type)),
					zap.Error(err),
				)
				continue
			}
			applied++
			continue
		}

		affected := s.affectedStations(proposal, nodes, edges)
		if len(affected) < 2 {
			if err := s.graph.ApplyProposal(proposal); err != nil {
				s.logger.Warn("Failed to apply local destructive proposal",
					zap.String("proposalID", proposal.ID),
					zap.Error(err),
				)
				continue
			}
			applied++
			continue
		}

		if _, err := s.consensus.Propose(proposal, s.stationID, affected); err != nil {
			s.logger.Warn("Failed to open consensus",
				zap.String("proposalID", proposal.ID),
				zap.Error(err),
			)
			continue
		}
		// The proposer's own position is never in doubt.
		s.consensus.CastVote(proposal.ID, s.stationID, entities.VoteApprove)
		opened++
	}

	return applied, opened
}

// affectedStations computes the owners whose graph slice a destructive
// proposal touches: the target node's owner plus the owner of every node
// adjacent to it
func (s *EvolutionService) affectedStations(proposal entities.Proposal, nodes []*entities.Node, edges []*aggregates.Edge) []string {
	targetID, err := valueobjects.NewNodeID(proposal.TargetID)
	if err != nil {
		return nil
	}

	owners := make(map[string]bool)

	byID := make(map[valueobjects.NodeID]*entities.Node, len(nodes))
	for _, node := range nodes {
		byID[node.ID()] = node
	}

	if target, ok := byID[targetID]; ok {
		owners[target.OwnerStationID()] = true
	}

	for _, edge := range edges {
		var neighborID valueobjects.NodeID
		switch {
		case edge.SourceID.Equals(targetID):
			neighborID = edge.TargetID
		case edge.TargetID.Equals(targetID):
			neighborID = edge.SourceID
		default:
			continue
		}
		if neighbor, ok := byID[neighborID]; ok {
			owners[neighbor.OwnerStationID()] = true
		}
	}

	affected := make([]string, 0, len(owners))
	for owner := range owners {
		affected = append(affected, owner)
	}
	return affected
}

func (s *EvolutionService) replicate(ctx context.Context) (ReplicationMode, error) {
	nodes, edges := s.graph.Snapshot()
	delta := s.subgraphs.Extract(nodes, edges, s.stationID)
	if len(delta.Nodes) == 0 && len(delta.Edges) == 0 {
		return "", nil
	}
	return s.replication.Replicate(ctx, delta)
}

func (s *EvolutionService) recordResolution(ctx context.Context, resolution Resolution) {
	votes := make(map[string]string, len(resolution.Votes))
	for station, vote := range resolution.Votes {
		votes[station] = string(vote)
	}

	event := events.NewConsensusResolved(
		resolution.Proposal.ID,
		s.stationID,
		resolution.Status == ResolutionApproved,
		votes,
		time.Now(),
	)
	if err := s.eventStore.Append(ctx, []events.DomainEvent{event}); err != nil {
		s.logger.Warn("Failed to record consensus resolution", zap.Error(err))
	}
}

func (s *EvolutionService) persistEvents(ctx context.Context, report *MaturationReport, started time.Time) {
	drained := s.graph.DrainEvents()
	cycleEvent := events.NewMaturationCycleCompleted(
		s.stationID,
		report.ProposalsGenerated,
		report.ProposalsApplied,
		report.PendingConsensus,
		time.Since(started),
		time.Now(),
	)
	drained = append(drained, cycleEvent)

	if err := s.eventStore.Append(ctx, drained); err != nil {
		s.logger.Warn("Failed to persist cycle events", zap.Error(err))
	}
}
