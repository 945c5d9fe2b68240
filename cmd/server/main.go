package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/contentgraph/api/internal/config"
	httpinfra "github.com/contentgraph/api/internal/infra/http"
	"github.com/contentgraph/api/internal/infra/postgres"
	"github.com/contentgraph/api/internal/infra/redis"
	"github.com/contentgraph/api/pkg/logger"
	"github.com/contentgraph/api/pkg/validator"
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		log := logger.NewDefault()
		log.Error("failed to load configuration", "error", err)
		return 1
	}

	log := logger.New(logger.Config{Level: cfg.Log.Level, Format: cfg.Log.Format})
	log.Info("starting application", "app", cfg.App.Name, "env", cfg.App.Env)

	db, err := postgres.New(&cfg.Database)
	if err != nil {
		log.Error("failed to connect to database", "error", err)
		return 1
	}
	defer closeWithLog(db, "database", log)
	log.Info("database connected")

	redisClient, err := redis.New(&cfg.Redis, log)
	if err != nil {
		log.Error("failed to connect to redis", "error", err)
		return 1
	}
	defer closeWithLog(redisClient, "redis", log)
	log.Info("redis connected")

	repos := NewRepositories(db, log)

	// The schema marker gates migrations; a current install is a no-op.
	if err := repos.Schema.EnsureSchema(ctx); err != nil {
		log.Error("failed to ensure schema", "error", err)
		return 1
	}
	log.Info("schema current")

	services := NewServices(cfg, repos, redisClient, log)
	log.Info("services initialized")

	jobClient, err := NewJobClient(cfg, log)
	if err != nil {
		log.Error("failed to initialize job client", "error", err)
		return 1
	}
	defer closeWithLog(jobClient, "job client", log)
	services.Content.SetCleanupQueue(jobClient)

	v := validator.New()
	handlers := NewHandlers(db, redisClient, repos, services, jobClient, v, log)

	server := httpinfra.NewServer(cfg, log)
	httpinfra.RegisterRoutes(server.Router(), handlers)

	workers, err := NewWorkers(cfg, services, log)
	if err != nil {
		log.Error("failed to initialize workers", "error", err)
		return 1
	}

	if err := services.Scheduler.Start(); err != nil {
		log.Error("failed to start scan scheduler", "error", err)
		return 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(workers.Start)
	log.Info("application started", "http_addr", cfg.Server.Addr())

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case <-quit:
	case <-gctx.Done():
	}

	log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	services.Scheduler.Stop()
	workers.Stop()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
		return 1
	}

	if err := g.Wait(); err != nil {
		log.Error("component error", "error", err)
		return 1
	}

	log.Info("application stopped")
	return 0
}

type closer interface {
	Close() error
}

func closeWithLog(c closer, name string, log *logger.Logger) {
	if err := c.Close(); err != nil {
		log.Error("failed to close "+name, "error", err)
	}
}
