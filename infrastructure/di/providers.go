package di

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awscloudwatch "github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	awsdynamodb "github.com/aws/aws-sdk-go-v2/service/dynamodb"
	awseventbridge "github.com/aws/aws-sdk-go-v2/service/eventbridge"
	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/commands/bus"
	commandhandlers "neuralmesh/application/commands/handlers"
	"neuralmesh/application/ports"
	"neuralmesh/application/queries"
	querybus "neuralmesh/application/queries/bus"
	queryhandlers "neuralmesh/application/queries/handlers"
	"neuralmesh/application/services"
	domainconfig "neuralmesh/domain/config"
	"neuralmesh/domain/core/aggregates"
	domainservices "neuralmesh/domain/services"
	"neuralmesh/infrastructure/config"
	"neuralmesh/infrastructure/messaging/eventbridge"
	"neuralmesh/infrastructure/persistence/dynamodb"
	"neuralmesh/infrastructure/persistence/memory"
	"neuralmesh/infrastructure/reachability"
	"neuralmesh/pkg/auth"
	"neuralmesh/pkg/observability"
)

// ProvideLogger creates a new logger instance
func ProvideLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Environment == "production" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// ProvideAWSConfig creates AWS configuration
func ProvideAWSConfig(ctx context.Context, cfg *config.Config) (aws.Config, error) {
	return awsconfig.LoadDefaultConfig(ctx,
		awsconfig.WithRegion(cfg.AWSRegion),
	)
}

// ProvideDynamoDBClient creates a DynamoDB client
func ProvideDynamoDBClient(awsCfg aws.Config) *awsdynamodb.Client {
	return awsdynamodb.NewFromConfig(awsCfg)
}

// ProvideEventBridgeClient creates an EventBridge client
func ProvideEventBridgeClient(awsCfg aws.Config) *awseventbridge.Client {
	return awseventbridge.NewFromConfig(awsCfg)
}

// ProvideCloudWatchClient creates a CloudWatch client
func ProvideCloudWatchClient(awsCfg aws.Config) *awscloudwatch.Client {
	return awscloudwatch.NewFromConfig(awsCfg)
}

// ProvideDomainConfig loads maturation thresholds for the environment and
// applies the operational overrides
func ProvideDomainConfig(cfg *config.Config) *domainconfig.DomainConfig {
	domainCfg := domainconfig.LoadDomainConfig(cfg.Environment)
	if cfg.MaturationInterval > 0 {
		domainCfg.MaturationInterval = cfg.MaturationInterval
	}
	if cfg.MaturationLockTTL > 0 {
		domainCfg.MaturationLockTTL = cfg.MaturationLockTTL
	}
	return domainCfg
}

// ProvideNodeRepository creates a node repository. Offline stations use
// the in-memory store.
func ProvideNodeRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.NodeRepository {
	if cfg.OfflineMode {
		return memory.NewNodeRepository()
	}
	return dynamodb.NewNodeRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEdgeRepository creates an edge repository
func ProvideEdgeRepository(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.EdgeRepository {
	if cfg.OfflineMode {
		return memory.NewEdgeRepository()
	}
	return dynamodb.NewEdgeRepository(client, cfg.DynamoDBTable, logger)
}

// ProvideEventStore creates the audit event store
func ProvideEventStore(client *awsdynamodb.Client, cfg *config.Config) ports.EvolutionEventStore {
	if cfg.OfflineMode {
		return memory.NewEventStore()
	}
	return dynamodb.NewEvolutionEventStore(client, cfg.DynamoDBTable)
}

// ProvideReplicationQueue creates the local FIFO of outbound deltas
func ProvideReplicationQueue(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.ReplicationQueue {
	if cfg.OfflineMode {
		return memory.NewReplicationQueue()
	}
	return dynamodb.NewReplicationQueue(client, cfg.DynamoDBTable, cfg.StationID, logger)
}

// ProvideMaturationLock creates the cross-replica maturation lock
func ProvideMaturationLock(client *awsdynamodb.Client, cfg *config.Config, logger *zap.Logger) ports.MaturationLock {
	if cfg.OfflineMode {
		return memory.NewMaturationLock()
	}
	return dynamodb.NewMaturationLock(client, cfg.DynamoDBTable, logger)
}

// ProvideReachabilityProbe creates the connectivity probe. Offline
// stations pin both endpoints unreachable so every delta queues locally.
func ProvideReachabilityProbe(
	dynamoClient *awsdynamodb.Client,
	eventClient *awseventbridge.Client,
	cfg *config.Config,
	logger *zap.Logger,
) ports.ReachabilityProbe {
	if cfg.OfflineMode {
		return reachability.NewStaticProbe(false, false)
	}
	return reachability.NewProbe(dynamoClient, eventClient, cfg.DynamoDBTable, cfg.EventBusName, logger)
}

// ProvideRelayPublisher creates the EventBridge relay transport
func ProvideRelayPublisher(client *awseventbridge.Client, cfg *config.Config, logger *zap.Logger) *eventbridge.RelayPublisher {
	return eventbridge.NewRelayPublisher(client, cfg.EventBusName, cfg.StationID, logger)
}

// ProvideEventPublisher exposes the relay as the outbox's event sink
func ProvideEventPublisher(relay *eventbridge.RelayPublisher) ports.EventPublisher {
	return relay
}

// ProvideOutboxProcessor creates the background publisher that drains
// pending audit rows to the bus. Offline stations run no outbox; the
// in-memory store keeps its events local.
func ProvideOutboxProcessor(
	store ports.EvolutionEventStore,
	publisher ports.EventPublisher,
	cfg *config.Config,
	logger *zap.Logger,
) *dynamodb.OutboxProcessor {
	dynamoStore, ok := store.(*dynamodb.EvolutionEventStore)
	if !ok || cfg.OfflineMode {
		return nil
	}
	return dynamodb.NewOutboxProcessor(dynamoStore, publisher, 0, logger)
}

// ProvideStationGraph builds the in-memory view and hydrates it from the
// store
func ProvideStationGraph(
	ctx context.Context,
	cfg *config.Config,
	nodeRepo ports.NodeRepository,
	edgeRepo ports.EdgeRepository,
	logger *zap.Logger,
) (*services.StationGraph, error) {
	graph, err := aggregates.NewGraph(cfg.StationID)
	if err != nil {
		return nil, err
	}

	nodes, err := nodeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load nodes: %w", err)
	}
	for _, node := range nodes {
		graph.PutNode(node)
	}

	edges, err := edgeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load edges: %w", err)
	}
	for _, edge := range edges {
		graph.PutEdge(edge)
	}

	logger.Info("Station graph hydrated",
		zap.String("stationID", cfg.StationID),
		zap.Int("nodes", len(nodes)),
		zap.Int("edges", len(edges)),
	)

	return services.NewStationGraph(graph), nil
}

// ProvideFitnessEngine creates the fitness scorer
func ProvideFitnessEngine(domainCfg *domainconfig.DomainConfig) *domainservices.FitnessEngine {
	return domainservices.NewFitnessEngine(domainCfg)
}

// ProvideProposalGenerator creates the mutation proposal generator
func ProvideProposalGenerator(domainCfg *domainconfig.DomainConfig) *domainservices.ProposalGenerator {
	return domainservices.NewProposalGenerator(domainCfg)
}

// ProvideSubgraphManager creates the subgraph extract/merge service
func ProvideSubgraphManager() *domainservices.SubgraphManager {
	return domainservices.NewSubgraphManager()
}

// ProvideConsensusCoordinator creates the vote tracker
func ProvideConsensusCoordinator(domainCfg *domainconfig.DomainConfig, logger *zap.Logger) *services.ConsensusCoordinator {
	return services.NewConsensusCoordinator(domainCfg.ConsensusWindow, logger)
}

// ProvideReplicationDriver creates the three-mode replication driver
func ProvideReplicationDriver(
	cfg *config.Config,
	probe ports.ReachabilityProbe,
	nodeRepo ports.NodeRepository,
	edgeRepo ports.EdgeRepository,
	relay *eventbridge.RelayPublisher,
	queue ports.ReplicationQueue,
	subgraphs *domainservices.SubgraphManager,
	logger *zap.Logger,
) *services.ReplicationDriver {
	return services.NewReplicationDriver(
		cfg.StationID,
		probe,
		nodeRepo,
		edgeRepo,
		relay,
		queue,
		subgraphs,
		logger,
	)
}

// ProvideEvolutionService creates the maturation orchestrator
func ProvideEvolutionService(
	cfg *config.Config,
	graph *services.StationGraph,
	fitness *domainservices.FitnessEngine,
	generator *domainservices.ProposalGenerator,
	subgraphs *domainservices.SubgraphManager,
	consensus *services.ConsensusCoordinator,
	replication *services.ReplicationDriver,
	eventStore ports.EvolutionEventStore,
	lock ports.MaturationLock,
	domainCfg *domainconfig.DomainConfig,
	logger *zap.Logger,
) *services.EvolutionService {
	return services.NewEvolutionService(
		cfg.StationID,
		graph,
		fitness,
		generator,
		subgraphs,
		consensus,
		replication,
		eventStore,
		lock,
		domainCfg,
		logger,
	)
}

// ProvideCommandBus creates a command bus with registered handlers
func ProvideCommandBus(
	cfg *config.Config,
	graph *services.StationGraph,
	nodeRepo ports.NodeRepository,
	evolution *services.EvolutionService,
	logger *zap.Logger,
) (*bus.CommandBus, error) {
	commandBus := bus.NewCommandBus()
	logging := bus.LoggingMiddleware(logger)

	register := func(cmd bus.Command, handler bus.CommandHandler) error {
		return commandBus.Register(cmd, bus.Chain(handler, logging))
	}

	if err := register(commands.RecordActivationCommand{},
		commandhandlers.NewRecordActivationHandler(cfg.StationID, graph, nodeRepo, logger)); err != nil {
		return nil, err
	}
	if err := register(commands.RunMaturationCommand{},
		commandhandlers.NewRunMaturationHandler(evolution)); err != nil {
		return nil, err
	}
	if err := register(commands.CastVoteCommand{},
		commandhandlers.NewCastVoteHandler(evolution)); err != nil {
		return nil, err
	}
	if err := register(commands.RegisterNodeCommand{},
		commandhandlers.NewRegisterNodeHandler(cfg.StationID, graph, nodeRepo)); err != nil {
		return nil, err
	}
	if err := register(commands.MergeSubgraphCommand{},
		commandhandlers.NewMergeSubgraphHandler(evolution)); err != nil {
		return nil, err
	}

	return commandBus, nil
}

// ProvideQueryBus creates a query bus with registered handlers
func ProvideQueryBus(
	graph *services.StationGraph,
	consensus *services.ConsensusCoordinator,
	replication *services.ReplicationDriver,
	fitness *domainservices.FitnessEngine,
) (*querybus.QueryBus, error) {
	queryBus := querybus.NewQueryBus()

	if err := queryBus.Register(queries.GetStatusQuery{},
		queryhandlers.NewStatusHandler(graph, consensus, replication)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.GetTopologyQuery{},
		queryhandlers.NewTopologyHandler(graph)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.GetPendingConsensusQuery{},
		queryhandlers.NewPendingConsensusHandler(consensus)); err != nil {
		return nil, err
	}
	if err := queryBus.Register(queries.QueryNodeQuery{},
		queryhandlers.NewQueryNodeHandler(graph, fitness)); err != nil {
		return nil, err
	}

	return queryBus, nil
}

// ProvideJWTValidator creates the bearer token validator
func ProvideJWTValidator(cfg *config.Config) *auth.JWTValidator {
	secret := cfg.JWTSecret
	if secret == "" {
		secret = "development-secret-change-in-production"
	}
	return auth.NewJWTValidator(secret, cfg.JWTIssuer)
}

// ProvideRateLimiter creates the telemetry ingestion rate limiter
func ProvideRateLimiter(cfg *config.Config) *auth.IPRateLimiter {
	return auth.NewIPRateLimiter(cfg.ActivationRateLimit)
}

// ProvideMetrics creates the CloudWatch metrics publisher. Metrics are
// skipped entirely when disabled.
func ProvideMetrics(client *awscloudwatch.Client, cfg *config.Config, logger *zap.Logger) *observability.Metrics {
	namespace := fmt.Sprintf("NeuralMesh/%s", cfg.Environment)
	if !cfg.EnableMetrics {
		client = nil
	}
	return observability.NewMetrics(namespace, cfg.StationID, client, logger)
}

// ProvideTracer creates the X-Ray tracer
func ProvideTracer(cfg *config.Config) *observability.Tracer {
	return observability.NewTracer("neuralmesh-station")
}
