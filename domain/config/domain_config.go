package config

import "time"

// DomainConfig holds all configurable maturation rules and thresholds
type DomainConfig struct {
	// Fitness weights (must sum to 1.0)
	SuccessWeight      float64
	LatencyWeight      float64
	UtilizationWeight  float64
	ConnectivityWeight float64

	// Myelination thresholds
	MyelinationMinActivations int64
	MyelinationMinWeight      float64

	// Node pruning thresholds
	PruneMinFitness    float64
	PruneInactivity    time.Duration
	CoreNodeIDs        []string

	// Edge pruning thresholds
	EdgePruneMaxWeight      float64
	EdgePruneMaxActivations int64

	// Synaptogenesis thresholds
	SynaptogenesisMinCoActivations int
	SynaptogenesisMaxInitialWeight float64
	SynaptogenesisWeightDivisor    float64

	// Consensus
	ConsensusWindow time.Duration

	// Maturation phase advancement (activation counts)
	GrowthPhaseActivations     int64
	MaturationPhaseActivations int64
	StablePhaseActivations     int64

	// Maturation cycle
	MaturationInterval time.Duration
	MaturationLockTTL  time.Duration

	// Edge constraints
	MaxEdgeWeight     float64
	MinEdgeWeight     float64
	DefaultEdgeWeight float64
}

// DefaultDomainConfig returns the default maturation configuration
func DefaultDomainConfig() *DomainConfig {
	return &DomainConfig{
		SuccessWeight:      0.40,
		LatencyWeight:      0.30,
		UtilizationWeight:  0.20,
		ConnectivityWeight: 0.10,

		MyelinationMinActivations: 100,
		MyelinationMinWeight:      0.7,

		PruneMinFitness: 30,
		PruneInactivity: 7 * 24 * time.Hour,
		CoreNodeIDs:     []string{},

		EdgePruneMaxWeight:      0.2,
		EdgePruneMaxActivations: 5,

		SynaptogenesisMinCoActivations: 10,
		SynaptogenesisMaxInitialWeight: 0.5,
		SynaptogenesisWeightDivisor:    100,

		ConsensusWindow: 5 * time.Minute,

		GrowthPhaseActivations:     10,
		MaturationPhaseActivations: 100,
		StablePhaseActivations:     1000,

		MaturationInterval: 10 * time.Minute,
		MaturationLockTTL:  2 * time.Minute,

		MaxEdgeWeight:     1.0,
		MinEdgeWeight:     0.0,
		DefaultEdgeWeight: 0.5,
	}
}

// DevelopmentDomainConfig returns thresholds loosened for local experiments
func DevelopmentDomainConfig() *DomainConfig {
	cfg := DefaultDomainConfig()

	cfg.MyelinationMinActivations = 5
	cfg.MyelinationMinWeight = 0.3
	cfg.PruneInactivity = time.Hour
	cfg.SynaptogenesisMinCoActivations = 2
	cfg.MaturationInterval = time.Minute
	cfg.ConsensusWindow = 30 * time.Second

	return cfg
}

// LoadDomainConfig loads domain configuration based on environment
func LoadDomainConfig(environment string) *DomainConfig {
	switch environment {
	case "development":
		return DevelopmentDomainConfig()
	default:
		return DefaultDomainConfig()
	}
}

// IsCoreNode reports whether the given node ID belongs to the protected
// core set that is never prunable
func (c *DomainConfig) IsCoreNode(nodeID string) bool {
	for _, id := range c.CoreNodeIDs {
		if id == nodeID {
			return true
		}
	}
	return false
}
