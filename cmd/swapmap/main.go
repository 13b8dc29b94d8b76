package main

import (
	"context"
	"errors"
	stdlog "log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"swapmap/internal/analytics"
	httpapi "swapmap/internal/api/http"
	"swapmap/internal/batteryid"
	"swapmap/internal/cache"
	"swapmap/internal/config"
	"swapmap/internal/logging"
	"swapmap/internal/metadata"
	"swapmap/internal/scheduler"
	"swapmap/internal/station"
	"swapmap/internal/station/suppliers"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		stdlog.Fatalf("failed to load config: %v", err)
	}

	log := logging.New(cfg.AppEnv, cfg.LogLevel)

	// Shared HTTP client for outbound supplier calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Supplier clients.
	energo := suppliers.NewEnergo(httpClient, cfg.EnergoBaseURL, cfg.EnergoLogin, cfg.EnergoPassword, log)
	boltwatt := suppliers.NewBoltwatt(httpClient, cfg.BoltwattBaseURL, cfg.BoltwattAPIKey)
	adapter := station.NewAdapter(log, energo, boltwatt)

	// TTL cache shared by handlers and the poller.
	c, err := cache.New(cfg.CacheTTL, 1024)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create cache")
	}

	// Static station metadata.
	registry := metadata.NewRegistry(log, cfg.GeocoderAPIKey)
	if err := registry.LoadFile(cfg.StationMetadataFile); err != nil {
		log.Fatal().Err(err).Msg("failed to load station metadata")
	}

	// Battery id indirection map (build-time artifact).
	ids, err := batteryid.LoadFile(cfg.BatteryIDMapFile)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			log.Fatal().Err(err).Msg("failed to load battery id map")
		}
		log.Warn().Str("path", cfg.BatteryIDMapFile).Msg("battery id map missing; all battery lookups will be rejected")
		ids = batteryid.Empty()
	}
	log.Info().Int("battery_ids", ids.Len()).Msg("battery id map loaded")

	// QR-scan analytics with flat-file persistence.
	tracker, err := analytics.NewTracker(cfg.AnalyticsFile, cfg.AnalyticsFlushSize, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to open analytics store")
	}

	// Core service joining live supplier data with static metadata.
	service := station.NewService(adapter, c, registry, ids, log)

	// Background loops: station refresh, order monitoring, token keep-alive.
	sched := scheduler.New(service, energo, tracker, scheduler.Intervals{
		StationPoll: cfg.StationPollInterval,
		OrderPoll:   cfg.OrderPollInterval,
		KeepAlive:   cfg.KeepAliveInterval,
	}, log)
	if err := sched.Start(context.Background()); err != nil {
		log.Fatal().Err(err).Msg("failed to start scheduler")
	}

	app := fiber.New(fiber.Config{
		AppName:               "swapmap",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			// Centralized error response
			code := fiber.StatusInternalServerError
			msg := "internal server error"
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
				msg = e.Message
			} else if cfg.Development() {
				msg = err.Error()
			}
			return c.Status(code).JSON(fiber.Map{
				"error": msg,
			})
		},
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())
	app.Use(cors.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":    "ok",
			"service":   "swapmap",
			"cache":     service.CacheStats(),
			"suppliers": service.Health(c.Context()),
		})
	})

	// API routes.
	httpapi.RegisterRoutes(app, httpapi.Deps{
		Service:     service,
		Metadata:    registry,
		Analytics:   tracker,
		Token:       energo,
		Development: cfg.Development(),
	})

	// Static map front-end and admin pages.
	app.Static("/", cfg.PublicDir)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Error().Err(err).Msg("fiber server stopped")
		}
	}()
	log.Info().Str("port", cfg.Port).Str("env", cfg.AppEnv).Msg("swapmap listening")

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	// Stop scheduling future ticks and persist analytics before exit.
	sched.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}
}
