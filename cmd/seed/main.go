package main

import (
	"context"
	"time"

	"bookit/internal/seed"
	"bookit/pkg/config"
)

const JobName = "seed"

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	cfg := config.Load(JobName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting demo catalogue seed job")
	if err := seed.Run(ctx, cfg.Client.Mongo, cfg.MongoDatabaseName); err != nil {
		cfg.Log.Fatal("Seed job failed", "error", err)
	}
}
