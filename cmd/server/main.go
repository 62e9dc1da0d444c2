// Package main is the entry point for the Stockwatch API
package main

import (
	"fmt"
	"log"
	"math/rand"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/nsvirk/stockwatchapi/internal/api"
	"github.com/nsvirk/stockwatchapi/internal/api/middleware"
	"github.com/nsvirk/stockwatchapi/internal/config"
	"github.com/nsvirk/stockwatchapi/internal/repository"
	"github.com/nsvirk/stockwatchapi/internal/service"
	"github.com/nsvirk/stockwatchapi/pkg/utils/zaplogger"
)

func main() {
	// Load .env if present
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Print the configuration
	fmt.Println(cfg.String())

	// Setup logger
	defer zaplogger.Sync()
	zaplogger.SetLogLevel(cfg.ServerLogLevel)
	zaplogger.Info(config.SingleLine)
	zaplogger.Info(cfg.APIName + " - " + cfg.APIVersion + " initialized")
	zaplogger.Info(config.SingleLine)

	// Select the store: Postgres when a DSN is configured, in-memory otherwise
	var store repository.Store
	if cfg.PostgresDsn != "" {
		db, err := repository.ConnectPostgres(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Postgres: %v", err)
		}
		store = repository.NewPostgresStore(db)
		zaplogger.Info("Postgres store initialized")
	} else {
		store = repository.NewMemoryStore()
		zaplogger.Info("In-memory store initialized")
	}

	// Connect Redis when configured
	var publishService *service.PublishService
	if cfg.RedisHost != "" {
		redisClient, err := repository.ConnectRedis(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		zaplogger.Info("Redis initialized")
		publishService = service.NewPublishService(redisClient, cfg.PostgresDsn)
	} else {
		publishService = service.NewPublishService(nil, "")
	}

	// Process-lifetime random source driving the synthetic price motion
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))

	// Seed sample data into an empty store
	if cfg.SeedEnabled() {
		if err := service.SeedSampleData(store, rng); err != nil {
			log.Fatalf("Failed to seed sample data: %v", err)
		}
	}

	// Setup services
	instrumentService := service.NewInstrumentService(store)
	refreshService := service.NewRefreshService(store, rng, cfg.FaultProbability(), cfg.RefreshDelay())

	// Create a new Echo instance
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Setup middleware
	middleware.SetupLoggerMiddleware(e)

	// Setup routes
	api.SetupRoutes(e, cfg, instrumentService, refreshService, publishService)

	// Setup and start cron jobs
	cronService := service.NewCronService(cfg, refreshService, publishService)
	cronService.Start()

	// Bridge Postgres refresh notifications to Redis
	go publishService.BridgePostgresNotifications()

	// Start the server
	startServer(e, cfg)
}

// startServer starts the Echo server on the specified port
func startServer(e *echo.Echo, cfg *config.Config) {
	port := cfg.ServerPort
	if port == "" {
		port = "3007"
	}
	zaplogger.Info("SERVER STARTED ON PORT " + port)
	e.Logger.Fatal(e.Start(":" + port))
}
