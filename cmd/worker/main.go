package main

import (
	"context"
	"flag"
	"log"

	"github.com/venturelink/deal-service/internal/app/bootstrap"
)

// The worker drains the transactional outbox to the broker. It shares the
// bootstrap wiring with the API process so both read the same config.
func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the service config file")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("outbox worker bootstrap: %v", err)
	}
	if err := runtime.RunWorker(ctx); err != nil {
		log.Fatalf("outbox worker stopped: %v", err)
	}
}
