package main

import (
	"context"
	"flag"
	"log"

	"github.com/venturelink/deal-service/internal/app/bootstrap"
)

func main() {
	configPath := flag.String("config", "configs/default.yaml", "path to the service config file")
	flag.Parse()

	ctx := context.Background()
	runtime, err := bootstrap.NewRuntime(ctx, *configPath)
	if err != nil {
		log.Fatalf("api bootstrap: %v", err)
	}
	if err := runtime.RunAPI(ctx); err != nil {
		log.Fatalf("api stopped: %v", err)
	}
}
