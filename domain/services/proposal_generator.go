package services

import (
	"fmt"
	"strings"
	"time"

	"neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
	"neuralmesh/domain/core/valueobjects"
)

// ProposalGenerator scans a graph snapshot and emits candidate structural
// mutations. All three passes are side-effect free and order-insensitive;
// each emits at most one proposal per qualifying entity. Entities that
// would violate an invariant (core nodes, existing edge directions) are
// filtered out here, never surfaced as errors.
type ProposalGenerator struct {
	cfg *config.DomainConfig
}

// NewProposalGenerator creates a generator with the given thresholds
func NewProposalGenerator(cfg *config.DomainConfig) *ProposalGenerator {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &ProposalGenerator{cfg: cfg}
}

// MyelinationPass proposes reinforcing every non-myelinated edge whose
// traffic and weight both clear the thresholds. Myelination is purely
// additive, so it never requires approval.
func (g *ProposalGenerator) MyelinationPass(edges []*aggregates.Edge) []entities.Proposal {
	var proposals []entities.Proposal
	seen := make(map[string]bool)

	for _, edge := range edges {
		if edge.Myelinated || seen[edge.ID] {
			continue
		}
		if edge.ActivationCount < g.cfg.MyelinationMinActivations {
			continue
		}
		if edge.Weight < g.cfg.MyelinationMinWeight {
			continue
		}

		seen[edge.ID] = true
		myelinated := true
		proposals = append(proposals, entities.NewProposal(
			entities.ProposalEdgeMyelinated,
			edge.ID,
			fmt.Sprintf("edge cleared myelination thresholds: %d activations, weight %.2f",
				edge.ActivationCount, edge.Weight),
			entities.MutationReinforcing,
			entities.ProposalChanges{Myelinated: &myelinated},
		))
	}

	return proposals
}

// PruningPass proposes removing low-value entities. Only synthetic,
// non-core, still-active nodes qualify; node pruning is destructive and
// requires consensus. Edge pruning is cheap to undo and applies locally.
func (g *ProposalGenerator) PruningPass(nodes []*entities.Node, edges []*aggregates.Edge, now time.Time) []entities.Proposal {
	var proposals []entities.Proposal
	seen := make(map[string]bool)

	for _, node := range nodes {
		if node.Type() != entities.NodeTypeSynthetic {
			continue
		}
		if g.cfg.IsCoreNode(node.ID().String()) {
			continue
		}
		if node.IsPruned() || seen[node.ID().String()] {
			continue
		}
		if node.FitnessScore() >= g.cfg.PruneMinFitness {
			continue
		}
		last := node.LastActivated()
		if last == nil {
			// Never activated: measure inactivity from creation.
			created := node.CreatedAt()
			last = &created
		}
		if now.Sub(*last) <= g.cfg.PruneInactivity {
			continue
		}

		seen[node.ID().String()] = true
		status := string(entities.StatusPruned)
		proposals = append(proposals, entities.NewProposal(
			entities.ProposalNodePruned,
			node.ID().String(),
			fmt.Sprintf("synthetic node below fitness floor (%.1f < %.1f) and inactive for %s",
				node.FitnessScore(), g.cfg.PruneMinFitness, now.Sub(*last).Round(time.Hour)),
			entities.MutationDestructive,
			entities.ProposalChanges{Status: &status},
		))
	}

	for _, edge := range edges {
		if seen[edge.ID] {
			continue
		}
		if edge.Weight >= g.cfg.EdgePruneMaxWeight {
			continue
		}
		if edge.ActivationCount >= g.cfg.EdgePruneMaxActivations {
			continue
		}

		seen[edge.ID] = true
		proposals = append(proposals, entities.NewProposal(
			entities.ProposalEdgePruned,
			edge.ID,
			fmt.Sprintf("edge below weight floor (%.2f) with %d activations",
				edge.Weight, edge.ActivationCount),
			entities.MutationReinforcing,
			entities.ProposalChanges{},
		))
	}

	return proposals
}

// SynaptogenesisPass proposes new edges between node pairs observed in
// frequent simultaneous use. A pair is skipped if an edge already exists
// in either direction, or if either endpoint is missing or pruned.
func (g *ProposalGenerator) SynaptogenesisPass(
	coActivation map[string]int,
	nodeLookup func(valueobjects.NodeID) (*entities.Node, bool),
	edgeExists func(a, b valueobjects.NodeID) bool,
) []entities.Proposal {
	var proposals []entities.Proposal
	seen := make(map[string]bool)

	for pairKey, count := range coActivation {
		if count < g.cfg.SynaptogenesisMinCoActivations {
			continue
		}

		sourceID, targetID, ok := splitPairKey(pairKey)
		if !ok || seen[pairKey] {
			continue
		}
		if edgeExists(sourceID, targetID) {
			continue
		}

		source, sourceOK := nodeLookup(sourceID)
		target, targetOK := nodeLookup(targetID)
		if !sourceOK || !targetOK || source.IsPruned() || target.IsPruned() {
			continue
		}

		seen[pairKey] = true
		weight := float64(count) / g.cfg.SynaptogenesisWeightDivisor
		if weight > g.cfg.SynaptogenesisMaxInitialWeight {
			weight = g.cfg.SynaptogenesisMaxInitialWeight
		}

		src, tgt := sourceID, targetID
		proposals = append(proposals, entities.NewProposal(
			entities.ProposalEdgeCreated,
			pairKey,
			fmt.Sprintf("nodes co-activated %d times without a direct edge", count),
			entities.MutationReinforcing,
			entities.ProposalChanges{
				Weight:   &weight,
				SourceID: &src,
				TargetID: &tgt,
			},
		))
	}

	return proposals
}

func splitPairKey(key string) (valueobjects.NodeID, valueobjects.NodeID, bool) {
	parts := strings.SplitN(key, "->", 2)
	if len(parts) != 2 {
		return valueobjects.NodeID{}, valueobjects.NodeID{}, false
	}
	source, err := valueobjects.NewNodeID(parts[0])
	if err != nil {
		return valueobjects.NodeID{}, valueobjects.NodeID{}, false
	}
	target, err := valueobjects.NewNodeID(parts[1])
	if err != nil {
		return valueobjects.NodeID{}, valueobjects.NodeID{}, false
	}
	return source, target, true
}
