package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BROWN1213/picknic/internal/api/handlers"
	"github.com/BROWN1213/picknic/internal/api/routes"
	"github.com/BROWN1213/picknic/internal/config"
	"github.com/BROWN1213/picknic/internal/database"
	"github.com/BROWN1213/picknic/internal/repositories/postgres"
	"github.com/BROWN1213/picknic/internal/services"
	"github.com/BROWN1213/picknic/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config:", err)
	}

	slog.Info("Starting picknic server")

	redisClient, err := database.NewRedisConnection(&cfg.Redis)
	if err != nil {
		slog.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()

	db, err := database.NewPostgresConnection(cfg.Database.DSN())
	if err != nil {
		slog.Error("Failed to connect to PostgreSQL", "error", err)
		os.Exit(1)
	}

	imageStore, err := storage.NewMinIOStore(&cfg.Storage)
	if err != nil {
		slog.Error("Failed to connect to MinIO", "error", err)
		os.Exit(1)
	}

	// Repositories
	pollRepo := postgres.NewPollRepository(db)
	userRepo := postgres.NewUserRepository(db)

	// Services
	scoreIndex := services.NewScoreIndex(redisClient)
	rateLimiter := services.NewRateLimiter(redisClient)
	rankResolver := services.NewRankResolver(scoreIndex, userRepo)
	voteService := services.NewVoteService(pollRepo, scoreIndex, rateLimiter, cfg.Limits)
	aggregateService := services.NewAggregateService(pollRepo, userRepo)
	userService := services.NewUserService(userRepo, scoreIndex, rankResolver, cfg.JWT.Secret, cfg.JWT.ExpirationTime)

	// HTTP surface
	router := routes.NewRouter(
		handlers.NewPollHandler(voteService, imageStore),
		handlers.NewUserHandler(userService),
		handlers.NewRankingHandler(rankResolver),
		handlers.NewAdminHandler(aggregateService),
		cfg.JWT.Secret,
	)
	router.SetupRoutes()

	server := &http.Server{
		Addr:         fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port),
		Handler:      router.GetEngine(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		slog.Info("Server starting", "address", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("Server shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
	}

	slog.Info("Server stopped")
}
