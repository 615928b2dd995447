package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/tradepulse/backend/internal/analytics"
	"github.com/tradepulse/backend/internal/api/handlers"
	"github.com/tradepulse/backend/internal/cache/redis"
	"github.com/tradepulse/backend/internal/companies"
	"github.com/tradepulse/backend/internal/dataset"
	"github.com/tradepulse/backend/internal/metrics"
	"github.com/tradepulse/backend/internal/middleware/ratelimit"
	"github.com/tradepulse/backend/internal/middleware/security"
	"github.com/tradepulse/backend/internal/middleware/validation"
	"github.com/tradepulse/backend/internal/storage/sqlite"
	"github.com/tradepulse/backend/pkg/config"
	appLogger "github.com/tradepulse/backend/pkg/logger"
	"github.com/tradepulse/backend/pkg/retry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	err = appLogger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.OutputPath)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer appLogger.Sync()

	appLogger.Info("Starting TradePulse analytics API")

	metrics.Init()

	db, err := sqlite.NewClient(cfg.Dataset.DSN)
	if err != nil {
		appLogger.Fatal("Failed to create SQLite client", zap.Error(err))
	}
	defer db.Close()

	if err := db.InitSchema(); err != nil {
		appLogger.Fatal("Failed to initialize schema", zap.Error(err))
	}

	loader := dataset.NewLoader(db, cfg.Dataset.Path)
	if err := loader.Ensure(context.Background()); err != nil {
		appLogger.Fatal("Failed to load shipment dataset", zap.Error(err))
	}

	var viewCache handlers.ViewCache
	if cfg.Cache.Enabled {
		var cacheClient *redis.Client
		err := retry.Do(context.Background(), retry.Config{Logger: appLogger.Log}, func() error {
			var connectErr error
			cacheClient, connectErr = redis.NewClient(
				cfg.Cache.Host,
				cfg.Cache.Port,
				cfg.Cache.Password,
				cfg.Cache.DB,
				time.Duration(cfg.Cache.TTLSeconds)*time.Second,
			)
			return connectErr
		})
		if err != nil {
			appLogger.Warn("View cache unavailable, serving uncached", zap.Error(err))
		} else {
			defer cacheClient.Close()
			viewCache = cacheClient
		}
	}

	aggregator := companies.NewAggregator(db)
	engine := analytics.NewEngine(db)

	app := fiber.New(fiber.Config{
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	})

	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowHeaders: "Origin, Content-Type, Accept",
		AllowMethods: "GET, OPTIONS",
	}))
	app.Use(security.HeadersMiddleware(security.HeadersConfig{
		IsDevelopment: cfg.Server.Development,
	}))
	app.Use(validation.Middleware(validation.Config{Logger: appLogger.Log}))

	if cfg.RateLimit.Enabled {
		limiter := ratelimit.New(ratelimit.Config{
			MaxRequestsPerMinute: cfg.RateLimit.MaxRequestsPerMinute,
			Logger:               appLogger.Log,
		})
		defer limiter.Stop()
		app.Use(limiter.Middleware())
	}

	shipmentsHandler := handlers.NewShipmentsHandler(db)
	companiesHandler := handlers.NewCompaniesHandler(aggregator)
	statsHandler := handlers.NewStatsHandler(engine, viewCache)
	countriesHandler := handlers.NewCountriesHandler(engine, viewCache)

	api := app.Group("/api/v1")

	api.Get("/shipments", shipmentsHandler.ListShipments)
	api.Get("/companies", companiesHandler.ListCompanies)
	api.Get("/companies/:name", companiesHandler.GetCompanyDetails)
	api.Get("/countries", countriesHandler.ListCountries)
	api.Get("/stats", statsHandler.GetStats)

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "healthy",
			"time":   time.Now().Unix(),
		})
	})

	app.Get("/metrics", metrics.MetricsHandler())

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	appLogger.Info("Server starting", zap.String("address", addr))

	go func() {
		if err := app.Listen(addr); err != nil {
			appLogger.Fatal("Server failed to start", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Server shutting down gracefully...")
	app.Shutdown()
	appLogger.Info("Server stopped")
}
