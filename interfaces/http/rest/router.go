package rest

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"neuralmesh/application/commands/bus"
	querybus "neuralmesh/application/queries/bus"
	"neuralmesh/interfaces/http/rest/handlers"
	"neuralmesh/interfaces/http/rest/middleware"
	"neuralmesh/pkg/auth"
)

// Router creates and configures the HTTP router
type Router struct {
	commandBus   *bus.CommandBus
	queryBus     *querybus.QueryBus
	jwtValidator *auth.JWTValidator
	rateLimiter  *auth.IPRateLimiter
	enableCORS   bool
	logger       *zap.Logger
}

// NewRouter creates a new router instance
func NewRouter(
	commandBus *bus.CommandBus,
	queryBus *querybus.QueryBus,
	jwtValidator *auth.JWTValidator,
	rateLimiter *auth.IPRateLimiter,
	enableCORS bool,
	logger *zap.Logger,
) *Router {
	return &Router{
		commandBus:   commandBus,
		queryBus:     queryBus,
		jwtValidator: jwtValidator,
		rateLimiter:  rateLimiter,
		enableCORS:   enableCORS,
		logger:       logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	// Global middleware
	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))

	if rt.enableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins:   []string{"*"},
			AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// Health check
	router.Get("/health", rt.healthCheck)

	stationHandler := handlers.NewStationHandler(rt.commandBus, rt.queryBus, rt.logger)
	evolutionHandler := handlers.NewEvolutionHandler(rt.commandBus, rt.queryBus, rt.logger)
	telemetryHandler := handlers.NewTelemetryHandler(rt.commandBus, rt.logger)
	replicationHandler := handlers.NewReplicationHandler(rt.commandBus, rt.logger)

	authenticate := middleware.Authenticate(rt.jwtValidator, rt.logger)

	router.Route("/api/v1", func(r chi.Router) {
		// Read surface
		r.Route("/neural", func(r chi.Router) {
			r.Get("/status", stationHandler.GetStatus)
			r.Get("/topology", stationHandler.GetTopology)
			r.Get("/query", stationHandler.QueryNode)

			// Mutations require a bearer token
			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/evolve", evolutionHandler.RunMaturation)
				r.Post("/nodes", stationHandler.RegisterNode)
			})
		})

		// Consensus surface; voting is a station-to-station mutation
		r.Route("/consensus", func(r chi.Router) {
			r.Get("/", evolutionHandler.ListConsensus)

			r.Group(func(r chi.Router) {
				r.Use(authenticate)
				r.Post("/{proposalID}/vote", evolutionHandler.CastVote)
			})
		})

		// Station-to-station delta intake; peers authenticate like any
		// other mutating caller
		r.Route("/replication", func(r chi.Router) {
			r.Use(authenticate)
			r.Post("/subgraph", replicationHandler.MergeSubgraph)
		})

		// Telemetry ingestion is high-volume and rate limited per client
		r.Route("/telemetry", func(r chi.Router) {
			r.Use(middleware.RateLimit(rt.rateLimiter))
			r.Post("/activations", telemetryHandler.RecordActivation)
		})
	})

	return router
}

// healthCheck handles health check requests
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy"}`))
}
