package di

import (
	"go.uber.org/zap"

	"neuralmesh/application/commands/bus"
	"neuralmesh/application/ports"
	querybus "neuralmesh/application/queries/bus"
	"neuralmesh/application/services"
	"neuralmesh/infrastructure/config"
	"neuralmesh/infrastructure/persistence/dynamodb"
	"neuralmesh/pkg/auth"
	"neuralmesh/pkg/observability"
)

// Container holds all application dependencies
type Container struct {
	Config           *config.Config
	Logger           *zap.Logger
	NodeRepo         ports.NodeRepository
	EdgeRepo         ports.EdgeRepository
	EventStore       ports.EvolutionEventStore
	ReplicationQueue ports.ReplicationQueue
	StationGraph     *services.StationGraph
	Evolution        *services.EvolutionService
	Replication      *services.ReplicationDriver
	Consensus        *services.ConsensusCoordinator
	OutboxProcessor  *dynamodb.OutboxProcessor
	CommandBus       *bus.CommandBus
	QueryBus         *querybus.QueryBus
	JWTValidator     *auth.JWTValidator
	RateLimiter      *auth.IPRateLimiter
	Metrics          *observability.Metrics
	Tracer           *observability.Tracer
}
