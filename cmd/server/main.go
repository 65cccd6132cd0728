package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/badmuriss/warpcms-sub000/content"
	"github.com/badmuriss/warpcms-sub000/content/handlers"
	"github.com/badmuriss/warpcms-sub000/content/repository"
	"github.com/badmuriss/warpcms-sub000/content/services"
	"github.com/badmuriss/warpcms-sub000/internal/cache"
	"github.com/badmuriss/warpcms-sub000/internal/database/postgres"
	"github.com/badmuriss/warpcms-sub000/internal/filter"
	"github.com/badmuriss/warpcms-sub000/internal/pkg/log"
	platformconfig "github.com/badmuriss/warpcms-sub000/internal/platform/config"
	"github.com/badmuriss/warpcms-sub000/storage/provider"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
)

func main() {
	cfg, err := platformconfig.LoadFromEnv()
	if err != nil {
		log.Error("Failed to load platform config: %v", err)
		os.Exit(1)
	}
	if cfg.Server.Debug {
		log.SetDebug(true)
	}

	registry, err := loadRegistry(cfg.Filter)
	if err != nil {
		log.Error("Failed to load filter registry: %v", err)
		os.Exit(1)
	}

	ctx := context.Background()
	pgClient, err := postgres.NewClient(ctx, &cfg.Database.Postgres)
	if err != nil {
		log.Error("Failed to create postgres client: %v", err)
		os.Exit(1)
	}
	defer pgClient.Close()

	tiered, err := cache.New(cacheConfig(cfg.Cache))
	if err != nil {
		log.Error("Failed to create cache: %v", err)
		os.Exit(1)
	}
	defer tiered.Close()

	opts := []services.Option{services.WithCache(tiered)}
	blobs, err := provider.NewProvider(&cfg.Storage)
	switch {
	case errors.Is(err, provider.ErrNotConfigured):
		log.Info("Blob storage not configured, media rows are served without urls")
	case err != nil:
		log.Error("Failed to create blob provider: %v", err)
		os.Exit(1)
	default:
		opts = append(opts, services.WithBlobProvider(blobs, cfg.Storage.PresignTTL))
	}

	listService := services.NewListService(
		filter.NewCompiler(registry),
		repository.NewPostgresRepository(pgClient),
		opts...,
	)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			var fe *fiber.Error
			if errors.As(err, &fe) {
				code = fe.Code
			}
			log.ErrorWithContext(c.UserContext(), "[ErrorHandler] Path: %s, Error: %v, Code: %d", c.Path(), err, code)

			// handler already wrote a response
			if len(c.Response().Body()) > 0 {
				return nil
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   err.Error(),
				"code":    "INTERNAL_ERROR",
				"details": []string{},
			})
		},
	})

	app.Use(cors.New(cors.Config{
		AllowOrigins:     strings.Join(cfg.Server.CORSOrigins, ","),
		AllowCredentials: !contains(cfg.Server.CORSOrigins, "*"),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization, X-Request-ID",
		AllowMethods:     "GET, POST, DELETE, OPTIONS",
		ExposeHeaders:    "X-Cache, X-Cache-Source, X-Request-ID",
	}))

	content.RegisterRoutes(app, &content.ContentHandlers{
		ListHandler: handlers.NewListHandler(listService, handlers.HandlerConfig{
			DefaultLimit: cfg.Filter.DefaultLimit,
			ExposeQuery:  cfg.Server.ExposeQuery,
		}),
	}, cfg)

	go func() {
		quit := make(chan os.Signal, 1)
		signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
		<-quit
		log.Info("Shutting down")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Error("Shutdown: %v", err)
		}
	}()

	log.Info("Starting WarpCMS list API on %s (tables: %s)", cfg.Address(), strings.Join(registry.Tables(), ", "))
	if err := app.Listen(cfg.Address()); err != nil {
		log.Error("Server stopped: %v", err)
	}
}

func loadRegistry(cfg platformconfig.FilterConfig) (*filter.Registry, error) {
	if cfg.SchemaFile == "" {
		return filter.DefaultRegistry(), nil
	}
	return filter.LoadRegistryFile(cfg.SchemaFile)
}

func cacheConfig(cfg platformconfig.CacheConfig) *cache.CacheConfig {
	return &cache.CacheConfig{
		Enabled:           cfg.Enabled,
		TTL:               cfg.TTL,
		Prefix:            cfg.Prefix,
		Backend:           cache.CacheType(cfg.Backend),
		MaxMemory:         cfg.MaxMemory,
		CleanupInterval:   cfg.CleanupInterval,
		CompressThreshold: cfg.CompressThreshold,
		Redis: cache.RedisConfig{
			Address:      cfg.Redis.Address,
			Password:     cfg.Redis.Password,
			Database:     cfg.Redis.Database,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
			MaxConnAge:   cfg.Redis.MaxConnAge,
			Cluster: cache.ClusterConfig{
				Enabled:   cfg.Redis.Cluster.Enabled,
				Addresses: cfg.Redis.Cluster.Addresses,
			},
		},
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
