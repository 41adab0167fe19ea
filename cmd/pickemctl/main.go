// Command pickemctl runs ingestion jobs and schema migrations from the shell.
//
// Usage:
//
//	pickemctl schedule --season 2025
//	pickemctl scores --season 2025 --week 3 --source espn
//	pickemctl tiebreakers --season 2025
//	pickemctl import-file data/schedule.csv --season 2025
//	pickemctl backfill --season 2025
//	pickemctl migrate up
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"nflpickem/ingestion/internal/cache"
	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/repository"
	"nflpickem/ingestion/internal/repository/memory"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// globalFlags are shared by every ingestion command
type globalFlags struct {
	season int
	dryRun bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	flags := &globalFlags{}

	root := &cobra.Command{
		Use:           "pickemctl",
		Short:         "NFL pick'em schedule and score ingestion CLI",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().IntVar(&flags.season, "season", 0, "Season year (default SCHEDULE_SEASON or current UTC year)")
	root.PersistentFlags().BoolVar(&flags.dryRun, "dry-run", false, "Run against an in-memory store instead of Postgres")

	root.AddCommand(scheduleCmd(flags))
	root.AddCommand(scoresCmd(flags))
	root.AddCommand(tiebreakersCmd(flags))
	root.AddCommand(importFileCmd(flags))
	root.AddCommand(backfillCmd(flags))
	root.AddCommand(migrateCmd())

	return root
}

// setupLogger configures the zerolog logger from the loaded config
func setupLogger(cfg *config.Config) {
	if cfg.IsDevelopment() {
		log.Logger = log.Output(zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: time.RFC3339,
		})
	}

	level := zerolog.InfoLevel
	if cfg.LogLevel != "" {
		if parsedLevel, err := zerolog.ParseLevel(cfg.LogLevel); err == nil {
			level = parsedLevel
		}
	}
	zerolog.SetGlobalLevel(level)
}

// env is everything an ingestion command needs
type env struct {
	cfg    *config.Config
	season int
	svc    *ingest.Service
	close  func()
}

// runIngest loads config, wires the service, and runs fn with a context
// canceled on SIGINT or SIGTERM.
func runIngest(flags *globalFlags, fn func(ctx context.Context, e *env) error) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg)

	e, err := newEnv(ctx, cfg, flags)
	if err != nil {
		return err
	}
	defer e.close()

	return fn(ctx, e)
}

func newEnv(ctx context.Context, cfg *config.Config, flags *globalFlags) (*env, error) {
	season := flags.season
	if season == 0 {
		season = cfg.DefaultSeason()
	}

	feedClient := client.NewClient(cfg.FeedTimeout, cfg.FeedMaxRetries)
	opts := ingest.Options{
		ScheduleFeedURL: cfg.ScheduleFeedURL,
		ScoreFeedURL:    cfg.ScoreFeedURL,
		ScoreboardURL:   cfg.ESPNScoreboardURL,
		LockTTL:         cfg.LockTTL,
	}

	if flags.dryRun {
		log.Info().Int("season", season).Msg("Dry run, writing to an in-memory store")
		return &env{
			cfg:    cfg,
			season: season,
			svc:    ingest.NewService(memory.New(), feedClient, nil, opts),
			close:  func() {},
		}, nil
	}

	db, err := repository.NewDatabase(ctx, cfg.RepositoryConfig())
	if err != nil {
		return nil, err
	}
	closers := []func(){db.Close}

	var locker ingest.Locker
	if cfg.RedisEnabled {
		redisCache, err := cache.NewRedisCache(cfg.CacheConfig())
		if err != nil {
			log.Warn().Err(err).Msg("Failed to connect to Redis - continuing without lock and cache")
		} else {
			locker = redisCache
			feedClient = feedClient.WithCache(redisCache, cfg.FeedCacheTTL)
			closers = append(closers, func() { redisCache.Close() })
		}
	}

	return &env{
		cfg:    cfg,
		season: season,
		svc:    ingest.NewService(db, feedClient, locker, opts),
		close: func() {
			for i := len(closers) - 1; i >= 0; i-- {
				closers[i]()
			}
		},
	}, nil
}

// printJSON writes v to w as indented JSON
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to write result: %w", err)
	}
	return nil
}
