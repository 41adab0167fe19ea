package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nflpickem/ingestion/internal/api"
	"nflpickem/ingestion/internal/cache"
	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/metrics"
	"nflpickem/ingestion/internal/repository"
	"nflpickem/ingestion/internal/scheduler"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// Load configuration
	cfg := config.MustLoad()

	// Setup logger
	setupLogger(cfg)

	log.Info().Msg("Starting NFL pick'em ingestion worker")
	log.Info().
		Str("env", cfg.AppEnv).
		Str("log_level", cfg.LogLevel).
		Int("season", cfg.DefaultSeason()).
		Msg("Configuration loaded")

	// Create context that listens for cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigChan
		log.Info().Msg("Received shutdown signal, gracefully shutting down...")
		cancel()
	}()

	// Initialize database connection
	db, err := repository.NewDatabase(ctx, cfg.RepositoryConfig())
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()
	log.Info().Msg("Database connection established")

	// Initialize feed client
	feedClient := client.NewClient(cfg.FeedTimeout, cfg.FeedMaxRetries)

	// Initialize Redis client
	var locker ingest.Locker
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cfg.CacheConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without lock and cache")
		} else {
			defer redisCache.Close()
			locker = redisCache
			feedClient = feedClient.WithCache(redisCache, cfg.FeedCacheTTL)
			log.Info().Str("addr", cfg.RedisAddr()).Msg("Redis cache connected")
		}
	}

	svc := ingest.NewService(db, feedClient, locker, ingest.Options{
		ScheduleFeedURL: cfg.ScheduleFeedURL,
		ScoreFeedURL:    cfg.ScoreFeedURL,
		ScoreboardURL:   cfg.ESPNScoreboardURL,
		LockTTL:         cfg.LockTTL,
	})

	// Start metrics HTTP server
	go startMetricsServer(cfg.MetricsPort)

	// Update system uptime and pool metrics
	startTime := time.Now()
	go func() {
		ticker := time.NewTicker(10 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.SystemUptime.Set(time.Since(startTime).Seconds())
				if err := db.Health(ctx); err != nil {
					log.Warn().Err(err).Msg("Database health check failed")
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	// Create and start scheduler
	sched := scheduler.NewScheduler(cfg, svc)

	if cfg.EnableScheduler {
		log.Info().Msg("Starting scheduler...")
		if err := sched.Start(ctx); err != nil {
			log.Fatal().Err(err).Msg("Failed to start scheduler")
		}
	}

	// Start API server
	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           api.NewRouter(svc, db, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.HTTPWriteTimeout(),
	}
	go func() {
		log.Info().Int("port", cfg.HTTPPort).Msg("Starting API server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error().Err(err).Msg("API server failed")
			cancel()
		}
	}()

	// Keep running until context is cancelled
	<-ctx.Done()

	// Graceful shutdown
	log.Info().Msg("Shutting down API server...")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("API server shutdown failed")
	}

	if cfg.EnableScheduler {
		log.Info().Msg("Shutting down scheduler...")
		sched.Stop()
	}

	log.Info().Msg("Worker shutdown complete")
}

// setupLogger configures the zerolog logger
func setupLogger(cfg *config.Config) {
	// Pretty console logging in development
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stdout,
			TimeFormat: time.RFC3339,
		})
	}

	// Set log level
	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel)
		if err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)

	log.Info().
		Str("level", level.String()).
		Msg("Logger initialized")
}

// startMetricsServer starts the Prometheus metrics HTTP server
func startMetricsServer(port int) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	// Health check endpoint
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"healthy"}`))
	})

	addr := fmt.Sprintf(":%d", port)
	log.Info().Int("port", port).Msg("Starting metrics server")

	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Error().Err(err).Msg("Metrics server failed")
	}
}
