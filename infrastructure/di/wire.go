//go:build wireinject
// +build wireinject

package di

import (
	"context"

	"github.com/google/wire"

	"neuralmesh/infrastructure/config"
)

// SuperSet is the main provider set containing all providers
var SuperSet = wire.NewSet(
	ProvideLogger,
	ProvideAWSConfig,
	ProvideDynamoDBClient,
	ProvideEventBridgeClient,
	ProvideCloudWatchClient,
	ProvideDomainConfig,
	ProvideNodeRepository,
	ProvideEdgeRepository,
	ProvideEventStore,
	ProvideReplicationQueue,
	ProvideMaturationLock,
	ProvideReachabilityProbe,
	ProvideRelayPublisher,
	ProvideEventPublisher,
	ProvideOutboxProcessor,
	ProvideStationGraph,
	ProvideFitnessEngine,
	ProvideProposalGenerator,
	ProvideSubgraphManager,
	ProvideConsensusCoordinator,
	ProvideReplicationDriver,
	ProvideEvolutionService,
	ProvideCommandBus,
	ProvideQueryBus,
	ProvideJWTValidator,
	ProvideRateLimiter,
	ProvideMetrics,
	ProvideTracer,
	wire.Struct(new(Container), "*"),
)

// InitializeContainer creates a fully wired container
func InitializeContainer(ctx context.Context, cfg *config.Config) (*Container, error) {
	wire.Build(SuperSet)
	return nil, nil // Wire will replace this
}
