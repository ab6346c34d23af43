package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"github.com/mru-images/immune-child-tracker-app-final/internal/api"
	"github.com/mru-images/immune-child-tracker-app-final/internal/config"
	"github.com/mru-images/immune-child-tracker-app-final/internal/logging"
	"github.com/mru-images/immune-child-tracker-app-final/internal/notify"
	"github.com/mru-images/immune-child-tracker-app-final/internal/repository"
	"github.com/mru-images/immune-child-tracker-app-final/internal/service"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	logger, err := logging.NewLogger(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to set up logger: %v", err)
	}
	defer logger.Sync()

	// Set up database connection
	db, err := config.SetupDatabase(cfg)
	if err != nil {
		logger.Fatal("Failed to set up database", zap.Error(err))
	}
	defer db.Close()

	// Create repository
	repo := repository.NewPostgresRepository(db)

	// Change events stay in-process unless Redis is configured, in which
	// case they fan out across instances through pub/sub.
	hub := notify.NewHub()
	var broker notify.Broker = hub
	if cfg.Redis.Addr != "" {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("Failed to connect to Redis", zap.Error(err))
		}
		redisBroker := notify.NewRedisBroker(context.Background(), client, hub, logger)
		defer redisBroker.Close()
		broker = redisBroker
	}

	// Create service
	svc := service.NewDefaultService(repo, broker, cfg.Auth.JWTSecret)

	// Create API handler
	handler := api.NewHandler(svc, logger)

	// Set up Gin router
	router := gin.Default()

	// Add middleware for JWT secret
	router.Use(func(c *gin.Context) {
		c.Set("jwtSecret", []byte(cfg.Auth.JWTSecret))
		c.Next()
	})

	// Set up routes
	handler.SetupRoutes(router)

	// Start server
	serverAddr := fmt.Sprintf(":%d", cfg.Server.Port)
	logger.Info("Starting server", zap.String("addr", serverAddr))
	if err := http.ListenAndServe(serverAddr, router); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
