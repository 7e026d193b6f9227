package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/kasuwa/searchstream/internal/devserver"
	"github.com/kasuwa/searchstream/internal/infrastructure/clients/redis"
	"github.com/kasuwa/searchstream/internal/infrastructure/observability"
	"github.com/kasuwa/searchstream/pkg/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load configuration")
	}

	observability.InitLogger("searchstream-devserver", cfg.Environment)
	log.Info().Msg("starting devserver")

	// Redis backs the cache-token result store; the devserver still works
	// without it, just with cache tokens disabled.
	var cache *devserver.ResultCache
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	redisClient, err := redis.NewClient(pingCtx, &cfg.Redis)
	pingCancel()
	if err != nil {
		log.Warn().Err(err).Msg("redis unavailable, result cache disabled")
	} else {
		defer redisClient.Close()
		cache = devserver.NewResultCache(redisClient)
		log.Info().Msg("result cache initialized")
	}

	server := devserver.New(cache, *observability.GetLogger())

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	server.Routes(mux)

	var handler http.Handler = mux
	handler = devserver.CORSMiddleware(handler)
	handler = devserver.LoggingMiddleware(*observability.GetLogger(), handler)

	httpServer := &http.Server{
		Addr:         cfg.Server.ListenAddr(),
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 0, // streaming connections stay open
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		log.Info().Str("addr", httpServer.Addr).Msg("devserver listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("devserver failed to start")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("devserver shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("error during shutdown")
	}

	log.Info().Msg("devserver stopped")
}
