package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"neuralmesh/application/commands"
	"neuralmesh/application/services"
	"neuralmesh/infrastructure/config"
	"neuralmesh/infrastructure/di"
	"neuralmesh/interfaces/http/rest"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize dependency container
	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}

	// Create router
	router := rest.NewRouter(
		container.CommandBus,
		container.QueryBus,
		container.JWTValidator,
		container.RateLimiter,
		cfg.EnableCORS,
		container.Logger,
	)

	handler := router.Setup()

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Background outbox drain (absent in offline mode)
	if container.OutboxProcessor != nil {
		container.OutboxProcessor.Start(ctx)
	}

	// Periodic maturation ticker
	go runMaturationTicker(ctx, container, cfg.MaturationInterval)

	// Start server in goroutine
	go func() {
		container.Logger.Info("Starting station",
			zap.String("address", cfg.ServerAddress),
			zap.String("stationID", cfg.StationID),
			zap.String("environment", cfg.Environment),
			zap.Bool("offline", cfg.OfflineMode),
		)

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			container.Logger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	// Graceful shutdown
	container.Logger.Info("Shutting down station...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		container.Logger.Error("Server shutdown error", zap.Error(err))
	}

	cancel()
	if container.OutboxProcessor != nil {
		container.OutboxProcessor.Stop()
	}

	if err := container.Logger.Sync(); err != nil {
		log.Printf("Failed to sync logger: %v", err)
	}

	log.Println("Station stopped")
}

// runMaturationTicker triggers a maturation pass on a fixed interval.
// Skipped passes (lock held elsewhere) are normal and only logged at
// debug level by the service itself.
func runMaturationTicker(ctx context.Context, container *di.Container, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	container.Logger.Info("Maturation ticker started", zap.Duration("interval", interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := runMaturationPass(ctx, container); err != nil {
				container.Logger.Error("Scheduled maturation pass failed", zap.Error(err))
			}
		}
	}
}

// runMaturationPass sends the cycle command and feeds the report into
// metrics, inside a trace segment when tracing is on
func runMaturationPass(ctx context.Context, container *di.Container) error {
	run := func(ctx context.Context) error {
		result, err := container.CommandBus.Send(ctx, commands.RunMaturationCommand{})
		if err != nil {
			container.Metrics.RecordError(ctx, "maturation_cycle")
			return err
		}

		if report, ok := result.(*services.MaturationReport); ok && !report.Skipped {
			container.Metrics.RecordMaturationPass(ctx, report.Duration, report.ProposalsGenerated, report.ProposalsApplied)
			if report.ReplicationMode != "" {
				container.Metrics.RecordReplicationMode(ctx, string(report.ReplicationMode))
			}
			container.Metrics.RecordQueueDepth(ctx, container.Replication.QueueDepth(ctx))
		}
		return nil
	}

	if container.Config.EnableTracing {
		return container.Tracer.TraceSegment(ctx, "maturation.cycle", run)
	}
	return run(ctx)
}
