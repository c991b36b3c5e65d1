package services

import (
	"math"

	"neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	"neuralmesh/domain/core/entities"
)

// GlobalStats carries the network-wide reference points a fitness pass
// scores against. It is recomputed by a full node scan before every pass;
// it is never maintained incrementally, so stale stats cannot leak into a
// later pass.
type GlobalStats struct {
	AvgLatencyMs   float64
	MaxActivations int64
}

// ComputeGlobalStats derives the reference stats from the current node set
func ComputeGlobalStats(nodes []*entities.Node) GlobalStats {
	var totalLatency, totalAttempts, maxActivations int64

	for _, node := range nodes {
		totalLatency += node.TotalLatencyMs()
		totalAttempts += node.SuccessCount() + node.FailureCount()
		if node.ActivationCount() > maxActivations {
			maxActivations = node.ActivationCount()
		}
	}

	stats := GlobalStats{MaxActivations: maxActivations}
	if totalAttempts > 0 {
		stats.AvgLatencyMs = float64(totalLatency) / float64(totalAttempts)
	}
	return stats
}

// FitnessEngine scores nodes and edges from their accumulated telemetry.
// All methods are pure; the engine holds only its weight configuration.
type FitnessEngine struct {
	cfg *config.DomainConfig
}

// NewFitnessEngine creates a fitness engine with the given thresholds
func NewFitnessEngine(cfg *config.DomainConfig) *FitnessEngine {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}
	return &FitnessEngine{cfg: cfg}
}

// NodeFitness scores a node into [0,100] as a weighted sum of success
// rate, relative latency, relative utilization, and edge connectivity.
// Nodes with no history score neutrally rather than being penalized.
func (e *FitnessEngine) NodeFitness(node *entities.Node, allEdges []*aggregates.Edge, stats GlobalStats) float64 {
	score := e.cfg.SuccessWeight*e.successComponent(node) +
		e.cfg.LatencyWeight*e.latencyComponent(node, stats) +
		e.cfg.UtilizationWeight*e.utilizationComponent(node, stats) +
		e.cfg.ConnectivityWeight*e.connectivityComponent(node, allEdges)

	return clamp(score*100, 0, 100)
}

// EdgeFitness scores an edge independently of any node:
// min(100, weight * log2(activations+1) * myelination bonus)
func (e *FitnessEngine) EdgeFitness(edge *aggregates.Edge) float64 {
	bonus := 1.0
	if edge.Myelinated {
		bonus = 1.5
	}
	score := edge.Weight * math.Log2(float64(edge.ActivationCount)+1) * bonus
	return math.Min(100, score)
}

func (e *FitnessEngine) successComponent(node *entities.Node) float64 {
	attempts := node.SuccessCount() + node.FailureCount()
	if attempts == 0 {
		// Neutral credit so newly created nodes are not penalized.
		return 0.5
	}
	return float64(node.SuccessCount()) / float64(attempts)
}

func (e *FitnessEngine) latencyComponent(node *entities.Node, stats GlobalStats) float64 {
	attempts := node.SuccessCount() + node.FailureCount()
	if attempts == 0 || stats.AvgLatencyMs <= 0 {
		return 0.5
	}
	own := node.AvgLatencyMs()
	if own <= 0 {
		// Faster than anything measured: full latency credit.
		return 1.0
	}
	return math.Min(1.0, stats.AvgLatencyMs/own)
}

func (e *FitnessEngine) utilizationComponent(node *entities.Node, stats GlobalStats) float64 {
	if stats.MaxActivations == 0 {
		return 0.5
	}
	return math.Min(1.0, float64(node.ActivationCount())/float64(stats.MaxActivations))
}

func (e *FitnessEngine) connectivityComponent(node *entities.Node, allEdges []*aggregates.Edge) float64 {
	var total float64
	var count int
	for _, edge := range allEdges {
		if edge.SourceID.Equals(node.ID()) || edge.TargetID.Equals(node.ID()) {
			total += edge.Weight
			count++
		}
	}
	if count == 0 {
		// Isolated nodes earn nothing here.
		return 0
	}
	return total / float64(count)
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
