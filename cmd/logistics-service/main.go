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

	"github.com/careflow/careflow-backend/internal/logistics/consumers"
	"github.com/careflow/careflow-backend/internal/logistics/events"
	"github.com/careflow/careflow-backend/internal/logistics/handler"
	"github.com/careflow/careflow-backend/internal/logistics/repository"
	"github.com/careflow/careflow-backend/internal/logistics/service"
	"github.com/careflow/careflow-backend/pkg/config"
	"github.com/careflow/careflow-backend/pkg/database"
	"github.com/careflow/careflow-backend/pkg/httputil"
	"github.com/careflow/careflow-backend/pkg/logger"
	"github.com/careflow/careflow-backend/pkg/messaging"
)

func main() {
	// Load configuration with validation (fails fast in production if required config is missing)
	cfg, err := config.LoadWithValidation("logistics-service")
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log := logger.New("logistics-service", cfg.Server.Environment)
	log.Info().Msg("starting Logistics Service")

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
	publisher, err := events.NewLogisticsEventPublisher(rmq, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create event publisher")
	}

	// Initialize repositories
	locationRepo := repository.NewLocationRepository(db)
	itemRepo := repository.NewItemRepository(db)
	stockRepo := repository.NewStockRepository(db)
	movementRepo := repository.NewMovementRepository(db, stockRepo)
	entityCacheRepo := repository.NewEntityCacheRepository(db)

	// Initialize services
	locationService := service.NewLocationService(locationRepo, entityCacheRepo, publisher, log)
	itemService := service.NewItemService(itemRepo, stockRepo, log)
	movementService := service.NewMovementService(movementRepo, locationRepo, itemRepo, stockRepo, publisher, log)
	inventoryService := service.NewInventoryService(itemRepo, locationRepo, stockRepo, log)

	// Initialize handlers
	locationHandler := handler.NewLocationHandler(locationService, log)
	itemHandler := handler.NewItemHandler(itemService, log)
	movementHandler := handler.NewMovementHandler(movementService, log)
	inventoryHandler := handler.NewInventoryHandler(inventoryService, log)

	// Start registry event consumer
	registryConsumer, err := consumers.NewRegistryEventConsumer(rmq, entityCacheRepo, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to create registry event consumer")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := registryConsumer.Start(ctx); err != nil {
		log.Fatal().Err(err).Msg("failed to start registry event consumer")
	}

	// Create router
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RealIP)
	r.Use(httputil.RequestID)
	r.Use(httputil.Logger(log))
	r.Use(httputil.Recoverer(log))
	r.Use(middleware.Timeout(60 * time.Second))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:3000", "http://localhost:5173", "https://app.careflow.de"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		httputil.JSON(w, http.StatusOK, map[string]interface{}{
			"status":   "healthy",
			"service":  "logistics-service",
			"database": db.Health(r.Context()),
			"rabbitmq": rmq.Health(),
		})
	})

	// API routes
	r.Route("/api/v1/logistics", func(r chi.Router) {
		r.Use(httputil.Authenticator(&cfg.JWT))

		// Location routes
		r.Route("/locations", func(r chi.Router) {
			r.Get("/", locationHandler.List)
			r.Post("/", locationHandler.Create)
			r.Get("/{id}", locationHandler.Get)
			r.Delete("/{id}", locationHandler.Delete)
			r.Get("/{id}/inventory", inventoryHandler.LocationInventory)
		})

		// Item routes
		r.Route("/items", func(r chi.Router) {
			r.Get("/", itemHandler.List)
			r.Post("/", itemHandler.Create)
			r.Get("/{id}", itemHandler.Get)
			r.Put("/{id}", itemHandler.Update)
			r.Get("/{id}/balance", inventoryHandler.ItemBalance)
		})

		// Movement routes
		r.Route("/movements", func(r chi.Router) {
			r.Get("/", movementHandler.List)
			r.Post("/", movementHandler.Create)
			r.Get("/{id}", movementHandler.Get)
			r.Post("/{id}/approve", movementHandler.Approve)
			r.Post("/{id}/reject", movementHandler.Reject)
			r.Post("/{id}/loss", movementHandler.ReportLoss)
		})

		// Inventory read side
		r.Get("/inventory/balance", inventoryHandler.Balance)
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

	// Cancel context to stop consumers
	cancel()

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("server forced to shutdown")
	}

	log.Info().Msg("server stopped")
}
