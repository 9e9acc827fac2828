package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"github.com/pageza/foodgram/backend/config"
	"github.com/pageza/foodgram/backend/internal/database"
	"github.com/pageza/foodgram/backend/internal/logger"
	"github.com/pageza/foodgram/backend/internal/middleware"
	"github.com/pageza/foodgram/backend/internal/router"
	"github.com/pageza/foodgram/backend/internal/server"
	"github.com/pageza/foodgram/backend/internal/service"
	"github.com/pageza/foodgram/backend/internal/storage"
)

const healthInterval = 30 * time.Second

func main() {
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

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, log); err != nil {
		log.Fatal("server exited with error", "error", err)
	}
	log.Info("server stopped")
}

func run(ctx context.Context, cfg *config.Config, log *logger.Logger) error {
	db, err := database.Open(cfg, log)
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	if err := database.RunMigrations(ctx, db, log); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisClient, err := database.NewRedisClient(cfg, log)
	if err != nil {
		return err
	}

	var (
		denylist      service.TokenDenylist
		recipeLimiter *middleware.RateLimiter
	)
	if redisClient != nil {
		defer redisClient.Close()
		denylist = service.NewRedisDenylist(redisClient)
		recipeLimiter = middleware.NewRecipeCreationRateLimiter(redisClient, cfg.RecipeCreationPerHour, log.With("component", "rate_limit"))
	} else {
		denylist = service.NewMemoryDenylist(cfg.TokenTTL)
	}

	images, mediaRoot, err := imageStore(ctx, cfg, log)
	if err != nil {
		return err
	}

	catalog := service.NewCatalogService(db, log)
	services := router.Services{
		Auth:     service.NewAuthService(db, denylist, cfg.JWTSecret, cfg.TokenTTL, log),
		Users:    service.NewUserService(db, log),
		Recipes:  service.NewRecipeService(db, images, log),
		Shopping: service.NewShoppingService(db, log),
		Catalog:  catalog,
	}
	handler := router.SetupRouter(db, services, router.Options{
		CORSOrigins:   cfg.CORSOrigins,
		PageSize:      cfg.PageSize,
		MediaURL:      cfg.MediaURL,
		MediaRoot:     mediaRoot,
		RecipeLimiter: recipeLimiter,
	}, log)

	srv := server.New(cfg, handler, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Run(gctx)
	})
	g.Go(func() error {
		monitorDatabase(gctx, db, log)
		return nil
	})
	return g.Wait()
}

// monitorDatabase logs lost database connectivity until ctx is done.
func monitorDatabase(ctx context.Context, db *gorm.DB, log *logger.Logger) {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			if err := database.HealthCheck(pingCtx, db); err != nil && ctx.Err() == nil {
				log.Error("database health check failed", "error", err)
			}
			cancel()
		}
	}
}

// imageStore picks S3 when a bucket is configured and the local media
// directory otherwise. The returned media root is empty for S3.
func imageStore(ctx context.Context, cfg *config.Config, log *logger.Logger) (storage.ImageStore, string, error) {
	if cfg.UseS3() {
		s3cfg, err := config.NewS3Config(ctx, cfg)
		if err != nil {
			return nil, "", fmt.Errorf("failed to configure s3: %w", err)
		}
		log.Info("storing recipe images in s3", "bucket", s3cfg.BucketName, "region", s3cfg.Region)
		return storage.NewS3Store(s3cfg.Client, s3cfg.BucketName, s3cfg.Region, log), "", nil
	}

	if err := os.MkdirAll(cfg.MediaRoot, 0o755); err != nil {
		return nil, "", fmt.Errorf("failed to create media root: %w", err)
	}
	log.Info("storing recipe images locally", "root", cfg.MediaRoot)
	return storage.NewLocalStore(cfg.MediaRoot, cfg.MediaURL), cfg.MediaRoot, nil
}
