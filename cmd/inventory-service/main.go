package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/marketbay/marketbay-backend/internal/inventory/cache"
	"github.com/marketbay/marketbay-backend/internal/inventory/domain"
	"github.com/marketbay/marketbay-backend/internal/inventory/events"
	"github.com/marketbay/marketbay-backend/internal/inventory/handler"
	"github.com/marketbay/marketbay-backend/internal/inventory/repository"
	"github.com/marketbay/marketbay-backend/internal/inventory/service"
	"github.com/marketbay/marketbay-backend/pkg/config"
	"github.com/marketbay/marketbay-backend/pkg/database"
	"github.com/marketbay/marketbay-backend/pkg/httputil"
	"github.com/marketbay/marketbay-backend/pkg/logger"
	"github.com/marketbay/marketbay-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("inventory-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("inventory-service", cfg.Server.Environment)
	log.Info().Msg("starting Inventory Service")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to database
	db, err := database.New(&cfg.Database, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer db.Close()

	// Connect to RabbitMQ
	rmq, err := messaging.New(&cfg.RabbitMQ, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to RabbitMQ")
	}
	defer rmq.Close()

	// Initialize event publisher
	publisher, err := events.NewInventoryEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Forecast cache: Redis when configured, in-process otherwise
	var forecastCache domain.Cache
	var redisCache *cache.Redis
	if cfg.Redis.Addr != "" {
		redisCache, err = cache.NewRedis(ctx, &cfg.Redis, log)
		if err != nil {
			log.Fatal().Err(err).Msg("failed to connect to Redis")
		}
		defer redisCache.Close()
		forecastCache = redisCache
	} else {
		log.Info().Msg("using in-process forecast cache")
		forecastCache = cache.NewMemory()
	}

	// Initialize repositories
	productRepo := repository.NewProductRepository(db)
	salesRepo := repository.NewSalesRepository(db)

	var reservationRepo domain.ReservationRepository
	if cfg.Reservation.Store == "postgres" {
		reservationRepo = repository.NewReservationRepository(db)
	} else {
		log.Info().Msg("using in-memory reservation store")
		reservationRepo = repository.NewMemoryReservationRepository()
	}

	// Initialize services
	alertEngine := service.NewAlertEngine(cfg.Forecast.OverstockMultiplier)
	reservationManager := service.NewReservationManager(
		productRepo, reservationRepo, forecastCache, publisher, alertEngine,
		cfg.Reservation.DefaultTTL, log,
	)
	forecastService := service.NewForecastService(
		productRepo, salesRepo, forecastCache, alertEngine, publisher,
		cfg.Forecast, log,
	)

	// Start the expiry sweeper
	sweeper := service.NewReservationSweeper(reservationManager, cfg.Reservation.SweepInterval, log)
	sweeper.Start(ctx)
	defer sweeper.Stop()

	// Initialize handlers
	reservationHandler := handler.NewReservationHandler(reservationManager, log)
	forecastHandler := handler.NewForecastHandler(forecastService, log)

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		health := map[string]interface{}{
			"status":   "healthy",
			"service":  "inventory-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		}
		if redisCache != nil {
			health["redis"] = redisCache.Health(r.Context())
		}
		httputil.JSON(w, http.StatusOK, health)
	})

	// API routes
	r.Route("/api/v1/inventory", func(r chi.Router) {
		// Reservation routes
		r.Route("/reservations", func(r chi.Router) {
			r.Post("/", reservationHandler.Reserve)
			r.Post("/{id}/confirm", reservationHandler.Confirm)
			r.Post("/{id}/cancel", reservationHandler.Cancel)
		})

		// Stock routes
		r.Route("/products/{productId}", func(r chi.Router) {
			r.Get("/available", reservationHandler.AvailableStock)
			r.Put("/stock", reservationHandler.UpdateStock)
			r.Get("/forecast", forecastHandler.Forecast)
		})

		// Seller analytics routes
		r.Route("/sellers/{sellerId}", func(r chi.Router) {
			r.Get("/alerts", forecastHandler.Alerts)
			r.Get("/restock-recommendations", forecastHandler.RestockRecommendations)
			r.Get("/forecasts", forecastHandler.BulkForecast)
		})
	})

	// Create server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	// Start server
	go func() {
		log.Info().Str("addr", addr).Msg("server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server")

	// Cancel context to stop the sweeper
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
