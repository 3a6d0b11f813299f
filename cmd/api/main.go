package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/inventory-backend/api"
	"github.com/angelmondragon/inventory-backend/api/controllers"
	"github.com/angelmondragon/inventory-backend/api/routes"
	"github.com/angelmondragon/inventory-backend/internal/exports"
	"github.com/angelmondragon/inventory-backend/internal/projects"
	"github.com/angelmondragon/inventory-backend/internal/rooms"
	"github.com/angelmondragon/inventory-backend/internal/upload"
	"github.com/angelmondragon/inventory-backend/pkg/blobstore"
	"github.com/angelmondragon/inventory-backend/pkg/config"
	"github.com/angelmondragon/inventory-backend/pkg/db"
	"github.com/angelmondragon/inventory-backend/pkg/kvstore"
	"github.com/angelmondragon/inventory-backend/pkg/logger"
	"github.com/angelmondragon/inventory-backend/pkg/mailer"
	"github.com/angelmondragon/inventory-backend/pkg/metrics"
	"github.com/angelmondragon/inventory-backend/pkg/migrate"
	"github.com/angelmondragon/inventory-backend/pkg/redis"
	"github.com/angelmondragon/inventory-backend/pkg/transcoder"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
		Format:      logger.ParseFormat(cfg.App.LogFormat),
		Version:     cfg.App.Version,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	dbClient, err := db.New(ctx, cfg.DB, cfg.FeatureFlags.UseSQLite, logg)
	requireResource(ctx, logg, "database", err)
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	err = migrate.MaybeRunDev(ctx, cfg, logg, dbClient)
	requireResource(ctx, logg, "dev migrations", err)

	health := map[string]controllers.Pinger{"db": dbClient, "redis": nil}

	var idempotencyStore redis.IdempotencyStore
	if cfg.Redis.Enabled() {
		redisClient, err := redis.New(ctx, cfg.Redis, logg)
		requireResource(ctx, logg, "redis", err)
		defer func() {
			if err := redisClient.Close(); err != nil {
				logg.Error(context.Background(), "error closing redis", err)
			}
		}()
		idempotencyStore = redisClient
		health["redis"] = redisClient
	} else if cfg.App.IsProd() {
		requireResource(ctx, logg, "redis", errors.New("redis is required in prod for idempotency keys"))
	} else {
		logg.Warn(ctx, "redis not configured, idempotency keys are not enforced")
	}

	blob, err := newBlobStore(ctx, cfg)
	requireResource(ctx, logg, "blob store", err)
	health["blob"] = blob

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	coordinator, err := upload.NewCoordinator(upload.CoordinatorParams{
		Store:       blob,
		Bucket:      cfg.Blob.Bucket,
		PartSize:    cfg.Upload.PartSize,
		Concurrency: cfg.Upload.Concurrency,
		Metrics:     metrics.NewUploadMetrics(registry),
		Logger:      logg,
	})
	requireResource(ctx, logg, "upload coordinator", err)

	uploadService, err := upload.NewService(coordinator)
	requireResource(ctx, logg, "upload service", err)

	store := kvstore.NewRepository(dbClient.DB())

	projectService, err := projects.NewService(store, logg)
	requireResource(ctx, logg, "project service", err)

	scanner, err := rooms.NewScanner(store, cfg.Rooms.ScanPageSize)
	requireResource(ctx, logg, "room scanner", err)

	enrichmentBucket := strings.TrimSpace(cfg.Enrichment.Bucket)
	if enrichmentBucket == "" {
		enrichmentBucket = cfg.Blob.Bucket
	}
	enricher, err := rooms.NewEnricher(rooms.EnricherParams{
		Store:        blob,
		Bucket:       enrichmentBucket,
		OutputPrefix: cfg.Enrichment.OutputPrefix,
		Concurrency:  cfg.Enrichment.Concurrency,
		Metrics:      metrics.NewEnrichmentMetrics(registry),
		Logger:       logg,
	})
	requireResource(ctx, logg, "enricher", err)

	roomParams := rooms.ServiceParams{
		Store:           store,
		Projects:        projectService,
		Scanner:         scanner,
		Enricher:        enricher,
		DefaultImageURL: cfg.Rooms.DefaultImageURL,
		Logger:          logg,
	}
	if cfg.Thumbnail.Enabled {
		thumbnails, err := transcoder.NewFFmpeg(cfg.Thumbnail, coordinator, logg)
		requireResource(ctx, logg, "thumbnail generator", err)
		roomParams.Thumbnails = thumbnails
	}
	roomService, err := rooms.NewService(roomParams)
	requireResource(ctx, logg, "room service", err)

	var exportService exports.Service
	if driver := cfg.Mail.DriverName(); driver != "" {
		relay, err := mailer.NewRelay(ctx, cfg.Mail)
		requireResource(ctx, logg, driver+" mail relay", err)
		exportService, err = exports.NewService(roomService, relay, cfg.Export, logg)
		requireResource(ctx, logg, "export service", err)
	} else {
		logg.Warn(ctx, "mail relay not configured, exports are disabled")
	}

	handler := routes.NewRouter(cfg, logg, routes.Dependencies{
		Health:           health,
		IdempotencyStore: idempotencyStore,
		Metrics:          promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}),
		Uploads:          uploadService,
		Projects:         projectService,
		Rooms:            roomService,
		Exports:          exportService,
	})

	port := os.Getenv("PORT")
	if port != "" {
		cfg.App.Port = port
	}
	server := api.NewServer(cfg, handler)

	serverCtx := logg.WithFields(ctx, map[string]any{
		"env":         cfg.App.Env,
		"addr":        server.Addr,
		"blob_driver": cfg.Blob.DriverName(),
		"db_dialect":  dbClient.Dialect(),
	})
	logg.Info(serverCtx, "starting api server")

	if err := api.Serve(serverCtx, server, logg); err != nil && err != http.ErrServerClosed {
		logg.Error(serverCtx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(serverCtx, "api server stopped")
}

func newBlobStore(ctx context.Context, cfg *config.Config) (blobstore.Store, error) {
	switch cfg.Blob.DriverName() {
	case config.BlobDriverMinio:
		return blobstore.NewMinioStore(ctx, cfg.Minio, cfg.Blob)
	case config.BlobDriverS3:
		return blobstore.NewS3Store(ctx, cfg.S3, cfg.Blob)
	default:
		return nil, fmt.Errorf("unsupported blob driver %q", cfg.Blob.Driver)
	}
}

func requireResource(ctx context.Context, logg *logger.Logger, resource string, err error) {
	if err == nil {
		return
	}
	logg.Error(ctx, fmt.Sprintf("resource not working: %s", resource), err)
	os.Exit(1)
}
