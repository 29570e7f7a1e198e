package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jwebster45206/turn-engine/internal/config"
	"github.com/jwebster45206/turn-engine/internal/logger"
	"github.com/jwebster45206/turn-engine/internal/resolver"
	"github.com/jwebster45206/turn-engine/internal/services"
	"github.com/jwebster45206/turn-engine/internal/services/events"
	"github.com/jwebster45206/turn-engine/internal/services/queue"
	"github.com/jwebster45206/turn-engine/internal/sessions"
	"github.com/jwebster45206/turn-engine/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	log := logger.Setup(cfg)

	if cfg.RedisURL == "" {
		log.Error("REDIS_URL is required for the worker")
		os.Exit(1)
	}

	log.Info("Starting Turn Engine Worker",
		"environment", cfg.Environment,
		"workers", cfg.WorkerCount,
		"llm_provider", cfg.LLMProvider)

	redisSvc, err := services.NewRedisService(cfg.RedisURL, log)
	if err != nil {
		log.Error("Invalid Redis URL", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisSvc.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}()

	redisCtx, redisCancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer redisCancel()
	if err := redisSvc.WaitForConnection(redisCtx, 10, 2*time.Second); err != nil {
		log.Error("Failed to connect to Redis", "error", err)
		os.Exit(1)
	}
	log.Info("Redis connection established successfully")

	initCtx, initCancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer initCancel()

	llmService, err := services.New(initCtx, cfg.ProviderConfig(), log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmService.(io.Closer); ok {
		defer func() { _ = closer.Close() }()
	}
	if err := llmService.InitModel(initCtx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}
	log.Info("LLM service initialized successfully", "model", cfg.ModelName)

	store := sessions.NewRedisStore(redisSvc.Client(), cfg.SessionTTL, log)
	turnQueue := queue.NewTurnQueue(redisSvc.Client(), log)
	broadcaster := events.NewBroadcaster(redisSvc.Client(), log)
	processor := worker.NewTurnProcessor(store, resolver.New(llmService, cfg.Resolver(), log), log)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	prefix := os.Getenv("WORKER_ID")
	g, gctx := errgroup.WithContext(ctx)
	for i := 0; i < cfg.WorkerCount; i++ {
		var id string
		if prefix != "" {
			id = fmt.Sprintf("%s-%d", prefix, i)
		}
		w := worker.New(turnQueue, processor, broadcaster, log, id)
		g.Go(func() error {
			return w.Run(gctx)
		})
	}

	log.Info("Workers started, waiting for requests...")

	if err := g.Wait(); err != nil {
		log.Error("Worker error", "error", err)
		os.Exit(1)
	}

	log.Info("Worker exited")
}
