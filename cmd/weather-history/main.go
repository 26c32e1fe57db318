package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	httpapi "github.com/i474232898/weather-history/internal/api/http"
	"github.com/i474232898/weather-history/internal/chart"
	"github.com/i474232898/weather-history/internal/config"
	"github.com/i474232898/weather-history/internal/scheduler"
	"github.com/i474232898/weather-history/internal/store"
	"github.com/i474232898/weather-history/internal/weather"
	"github.com/i474232898/weather-history/internal/weather/providers"
)

func main() {
	// Load configuration.
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	// Shared HTTP client for outbound provider calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	provider, err := providers.New(providers.Settings{
		Name:       cfg.Provider,
		APIKey:     cfg.APIKey(),
		BaseURL:    cfg.BaseURL,
		HTTP:       providers.HTTPClientConfig{Client: httpClient},
		RateLimit:  cfg.RateLimit,
		RateBurst:  cfg.RateBurst,
		MaxRetries: cfg.MaxRetries,
	})
	if err != nil {
		log.Fatalf("failed to configure weather provider: %v", err)
	}

	var history weather.Store
	switch cfg.HistoryBackend {
	case "memory":
		history = store.NewMemoryStore(0)
		log.Println("INFO: history kept in memory only")
	default:
		history = store.NewXLSXStore(cfg.HistoryFile)
		log.Printf("INFO: history file %s", cfg.HistoryFile)
	}

	// Core service orchestrating the provider and the history store.
	service := weather.NewService(history, provider, nil)

	// Scheduler for the automatic searches; idle until started from the UI.
	sched := scheduler.New(service, cfg.FetchInterval, nil)
	defer sched.Shutdown()

	chartOpts := chart.DefaultOptions()
	chartOpts.Width = cfg.ChartWidth
	chartOpts.Height = cfg.ChartHeight
	charts := chart.NewRenderer(cfg.ChartFile, chartOpts)

	// Basic app configuration
	app := fiber.New(fiber.Config{
		AppName:               "weather-history",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          40 * time.Second,
		ErrorHandler:          httpapi.ErrorHandler,
	})

	// Global middleware
	app.Use(logger.New())
	app.Use(recover.New())

	// Basic health endpoint
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "weather-history",
		})
	})

	httpapi.RegisterRoutes(app, service, sched, charts)

	go func() {
		log.Printf("INFO: listening on :%s", cfg.Port)
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Printf("fiber server stopped: %v", err)
		}
	}()

	// Wait for termination signal
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("error during shutdown: %v", err)
	}
}
