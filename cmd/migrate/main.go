package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	mongoMigration "github.com/sirsanndy/room-booking-sub001/internal/migrations/mongo"
	"github.com/sirsanndy/room-booking-sub001/pkg/config"
)

const JobName = "mongo-migration"

func main() {
	seed := flag.Bool("seed", false, "seed rooms and holidays after migrating")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()
	cfg := config.Load(JobName)
	cfg.SetMongo()
	cfg.Log.Info("Starting Mongo migration job")
	defer cfg.GracefulShutdown()

	migrateMongo(ctx, cfg)
	if *seed {
		seedMongo(ctx, cfg)
	}

	fmt.Println("Migration completed successfully.")
}

func migrateMongo(ctx context.Context, cfg *config.Config) {
	if err := mongoMigration.RunMigration(ctx, cfg.Client.Mongo.Client, cfg.MongoDatabaseName); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
}

func seedMongo(ctx context.Context, cfg *config.Config) {
	if err := mongoMigration.RunSeed(ctx, cfg.Client.Mongo.Client, cfg.MongoDatabaseName); err != nil {
		log.Fatalf("Seed failed: %v", err)
	}
}
