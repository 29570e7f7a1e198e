package main

import (
	"context"
	"errors"
	"io"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jwebster45206/turn-engine/internal/config"
	"github.com/jwebster45206/turn-engine/internal/handlers"
	"github.com/jwebster45206/turn-engine/internal/logger"
	"github.com/jwebster45206/turn-engine/internal/middleware"
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

	log.Info("Starting Turn Engine API",
		"port", cfg.Port,
		"environment", cfg.Environment,
		"llm_provider", cfg.LLMProvider,
		"model_name", cfg.ModelName)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	llmService, err := services.New(ctx, cfg.ProviderConfig(), log)
	if err != nil {
		log.Error("Failed to create LLM service", "error", err)
		os.Exit(1)
	}
	if closer, ok := llmService.(io.Closer); ok {
		defer func() {
			if err := closer.Close(); err != nil {
				log.Error("Error closing LLM client", "error", err)
			}
		}()
	}
	if err := llmService.InitModel(ctx, cfg.ModelName); err != nil {
		log.Error("Failed to initialize LLM model", "error", err, "model", cfg.ModelName)
		os.Exit(1)
	}

	r := resolver.New(llmService, cfg.Resolver(), log)

	mux := http.NewServeMux()
	mux.Handle("/v1/turn", handlers.NewTurnHandler(r, log))

	var redisSvc *services.RedisService
	if cfg.RedisURL != "" {
		redisSvc, err = services.NewRedisService(cfg.RedisURL, log)
		if err != nil {
			log.Error("Invalid Redis URL", "error", err)
			os.Exit(1)
		}
		redisCtx, redisCancel := context.WithTimeout(context.Background(), 2*time.Minute)
		defer redisCancel()
		if err := redisSvc.WaitForConnection(redisCtx, 10, 2*time.Second); err != nil {
			log.Error("Failed to connect to Redis", "error", err)
			os.Exit(1)
		}

		store := sessions.NewRedisStore(redisSvc.Client(), cfg.SessionTTL, log)
		turnQueue := queue.NewTurnQueue(redisSvc.Client(), log)
		broadcaster := events.NewBroadcaster(redisSvc.Client(), log)
		processor := worker.NewTurnProcessor(store, r, log)

		sessionsHandler := handlers.NewSessionsHandler(store, processor, turnQueue, broadcaster, log)
		mux.Handle("/v1/sessions", sessionsHandler)
		mux.Handle("/v1/sessions/", sessionsHandler)
		mux.Handle("/v1/events/sessions/", handlers.NewEventsHandler(broadcaster, log))
		log.Info("Session routes enabled")
	} else {
		log.Warn("REDIS_URL not set; serving stateless turns only")
	}

	mux.Handle("/health", newHealthHandler(redisSvc, log))

	server := &http.Server{
		Addr:        ":" + cfg.Port,
		Handler:     middleware.CORS(middleware.Logger(mux)),
		ReadTimeout: 15 * time.Second,
		// No WriteTimeout: the SSE endpoint streams indefinitely.
		IdleTimeout: 60 * time.Second,
	}

	go func() {
		log.Info("Server starting", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("Server failed to start", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Server is shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", "error", err)
	}

	if redisSvc != nil {
		if err := redisSvc.Close(); err != nil {
			log.Error("Error closing Redis connection", "error", err)
		}
	}

	log.Info("Server exited")
}

// newHealthHandler avoids handing a typed nil to the handler.
func newHealthHandler(redisSvc *services.RedisService, log *slog.Logger) http.Handler {
	if redisSvc == nil {
		return handlers.NewHealthHandler(nil, log)
	}
	return handlers.NewHealthHandler(redisSvc, log)
}
