package main

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"artkeeper/internal/assets"
	"artkeeper/internal/cache"
	"artkeeper/internal/catalog"
	"artkeeper/internal/config"
	"artkeeper/internal/database"
	"artkeeper/internal/handlers"
	"artkeeper/internal/imaging"
	"artkeeper/internal/jobs"
	"artkeeper/internal/linkcache"
	"artkeeper/internal/log"
	"artkeeper/internal/repository"
	"artkeeper/internal/resolve"
	"artkeeper/internal/server"
	"artkeeper/internal/service"
	"artkeeper/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment)

	ctx := context.Background()

	dbPool, err := database.NewPostgresPool(ctx, cfg.Postgres)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect postgres")
	}

	var redisClient *redis.Client
	var verdictStore linkcache.VerdictStore = linkcache.NewMemoryStore()
	if cfg.Redis.Enabled {
		redisClient, err = cache.NewRedisClient(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		verdictStore = linkcache.NewRedisStore(redisClient, logger)
	}

	var coverStore *storage.CoverStore
	if cfg.Storage.Enabled {
		coverStore, err = storage.NewCoverStore(cfg.Storage)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to init cover store")
		}
		if err := coverStore.EnsureBucket(ctx); err != nil {
			logger.Warn().Err(err).Msg("ensure cover bucket failed")
		}
	}

	checker := linkcache.NewHTTPChecker(cfg.Catalog.UserAgent, cfg.Catalog.ImageBase, cfg.LinkCache.CheckTimeout)
	links := linkcache.New(verdictStore, checker, cfg.LinkCache, logger)

	catalogClient := catalog.NewClient(cfg.Catalog, logger)
	resolver := resolve.NewOrchestrator(catalogClient, links, logger)

	layout := imaging.Layout{
		ScaleRatio:       cfg.Artwork.ScaleRatio,
		HorizontalOffset: cfg.Artwork.HorizontalOffset,
		VerticalOffset:   cfg.Artwork.VerticalOffset,
		Spacing:          cfg.Artwork.Spacing,
	}
	compositor := imaging.NewCompositor(assets.NewDir(cfg.Artwork.AssetDir), layout, cfg.Artwork.JPEGQuality, logger)

	itemRepo := repository.NewItemRepository(dbPool)

	var covers service.CoverPublisher
	if coverStore != nil {
		covers = coverStore
	}
	artwork := service.NewArtworkService(itemRepo, compositor, covers, cfg, logger)

	handlerSet := handlers.NewHandlerSet(logger, artwork, resolver, links, dbPool, redisClient, cfg)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	var trimmer jobs.CoverTrimmer
	if coverStore != nil {
		trimmer = coverStore
	}
	scheduler := jobs.NewScheduler(links, trimmer, cfg.Artwork.LatestCovers, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, dbPool, redisClient)
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, db *pgxpool.Pool, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
		if err := srv.Shutdown(context.Background()); err != nil {
			logger.Error().Err(err).Msg("forced shutdown failed")
		}
	}

	if scheduler != nil {
		cancel := scheduler.Stop()
		cancel()
	}

	db.Close()
	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
