package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/service"
)

func main() {
	csvPath := flag.String("ingredients", "data/ingredients.csv", "CSV file of name,measurement_unit rows")
	skipTags := flag.Bool("skip-tags", false, "do not seed the breakfast, lunch and dinner tags")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}
	log, err := logger.New(string(config.GetEnvironment()), cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := run(ctx, cfg, log, *csvPath, !*skipTags); err != nil {
		log.Fatal("import failed", "error", err)
	}
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger, csvPath string, seedTags bool) error {
	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	if err := database.RunMigrations(ctx, db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	catalog := service.NewCatalogService(db, log)

	f, err := os.Open(csvPath)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", csvPath, err)
	}
	defer f.Close()

	inserted, err := catalog.ImportIngredients(ctx, f)
	if err != nil {
		return err
	}
	log.Info("ingredients loaded", "file", csvPath, "inserted", inserted)

	if seedTags {
		added, err := catalog.SeedTags(ctx)
		if err != nil {
			return err
		}
		log.Info("tags seeded", "inserted", added)
	}
	return nil
}
