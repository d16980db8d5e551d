package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/pillme/nutrition-service/internal/adapters/handler"
	"github.com/pillme/nutrition-service/internal/adapters/middleware"
	"github.com/pillme/nutrition-service/internal/adapters/repository"
	"github.com/pillme/nutrition-service/internal/config"
	"github.com/pillme/nutrition-service/internal/core/services"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Connect to database with retry logic
	db, err := config.ConnectDatabase(cfg.DatabaseURL, 5, 2*time.Second)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize schema and seed data unless explicitly disabled
	if os.Getenv("SKIP_DB_INIT") != "true" {
		if err := config.InitDatabase(db); err != nil {
			log.Fatalf("Failed to initialize database schema: %v", err)
		}
	}

	// Initialize RabbitMQ publisher for risk alerts
	rabbitMQPublisher, err := repository.NewRabbitMQPublisher(cfg.RabbitMQURL, cfg.AlertQueueName)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ publisher: %v", err)
	}
	defer rabbitMQPublisher.Close()

	// Initialize repositories
	sqlRepo := repository.NewSQLRepository(db)

	// Initialize services
	profileService := services.NewProfileService(sqlRepo)
	statusService := services.NewStatusService(sqlRepo, sqlRepo, sqlRepo, rabbitMQPublisher)
	groupService := services.NewGroupService(sqlRepo, sqlRepo)

	// Initialize RabbitMQ consumer for profile creation
	// This consumer runs in the same pod as the nutrition-service and processes
	// profile creation requests from the identity-service via RabbitMQ
	profileConsumer, err := repository.NewProfileConsumer(cfg.RabbitMQURL, cfg.ProfileQueueName, profileService)
	if err != nil {
		log.Fatalf("Failed to initialize RabbitMQ profile consumer: %v", err)
	}
	defer profileConsumer.Close()

	// Start profile consumer in background goroutine (non-blocking).
	// In multi-replica deployments each replica has its own consumer and
	// RabbitMQ distributes messages across replicas using round-robin.
	consumerCtx, consumerCancel := context.WithCancel(context.Background())
	defer consumerCancel()
	go func() {
		if err := profileConsumer.StartConsuming(consumerCtx); err != nil {
			log.Printf("Profile consumer error: %v", err)
		}
	}()
	log.Println("Profile consumer started in background, listening for profile creation requests")

	// Initialize handlers
	profileHandler := handler.NewProfileHandler(profileService)
	statusHandler := handler.NewStatusHandler(statusService)
	groupHandler := handler.NewGroupHandler(groupService)
	healthHandler := handler.NewHealthHandler(db)

	// Initialize JWT middleware
	authMiddleware := middleware.NewAuthMiddleware(cfg.JWTPublicKey)

	// Setup HTTP router
	mux := http.NewServeMux()

	// Health endpoints (OpenShift compatible, no auth required)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /health", healthHandler.Health)
	mux.HandleFunc("GET /health/ready", healthHandler.Ready)
	mux.HandleFunc("GET /health/live", healthHandler.Live)

	// Profile endpoints
	mux.HandleFunc("GET /profile", authMiddleware.RequireAuth(profileHandler.GetProfile))
	mux.HandleFunc("PUT /profile", authMiddleware.RequireAuth(profileHandler.UpdateProfile))

	// Nutrient status endpoint
	mux.HandleFunc("GET /nutrients/status", authMiddleware.RequireAuth(statusHandler.ListNutrientStatus))

	// POST /reference-standards - ADMIN only
	mux.HandleFunc("POST /reference-standards", authMiddleware.RequireRole("ADMIN", statusHandler.UpsertReferenceStandard))

	// Nutrient group endpoints - owner only
	mux.HandleFunc("POST /nutrient-groups", authMiddleware.RequireAuth(groupHandler.CreateGroup))
	mux.HandleFunc("GET /nutrient-groups", authMiddleware.RequireAuth(groupHandler.ListGroups))
	mux.HandleFunc("GET /nutrient-groups/{group_id}", authMiddleware.RequireAuth(groupHandler.GetGroup))
	mux.HandleFunc("PUT /nutrient-groups/{group_id}", authMiddleware.RequireAuth(groupHandler.UpdateGroup))
	mux.HandleFunc("DELETE /nutrient-groups/{group_id}", authMiddleware.RequireAuth(groupHandler.DeleteGroup))

	// Wrap mux with metrics middleware to track all HTTP requests
	loggedRouter := middleware.MetricsMiddleware(mux)

	// Create HTTP server
	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      loggedRouter,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in goroutine
	go func() {
		log.Printf("Starting Nutrition Service on :%s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down server...")

	// Cancel consumer context first to stop processing new messages
	consumerCancel()
	log.Println("Profile consumer stopped")

	// Stop the token cache janitor
	authMiddleware.Stop()

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	log.Println("Server exited")
}
