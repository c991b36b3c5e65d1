// Command evolve runs a single maturation pass against the configured
// station and prints the resulting report. Useful for cron-driven
// stations and debugging thresholds.
package main

import (
	"context"
	"encoding/json"
	"log"
	"os"

	"neuralmesh/infrastructure/config"
	"neuralmesh/infrastructure/di"
)

func main() {
	ctx := context.Background()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	container, err := di.InitializeContainer(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to initialize container: %v", err)
	}
	defer container.Logger.Sync()

	report, err := container.Evolution.RunCycle(ctx)
	if err != nil {
		log.Fatalf("Maturation pass failed: %v", err)
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		log.Fatalf("Failed to encode report: %v", err)
	}
}
