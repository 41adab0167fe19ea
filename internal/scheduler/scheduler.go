package scheduler

import (
	"context"
	"fmt"
	"time"

	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/ingest"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog/log"
)

// Ingestor is the part of ingest.Service the scheduler drives
type Ingestor interface {
	SyncSchedule(ctx context.Context, season int) (ingest.ScheduleResult, error)
	ApplyScores(ctx context.Context, req ingest.ScoreRequest) (ingest.ScoreResult, error)
}

// Scheduler runs the schedule import and score sync on cron schedules.
// A job that is still running when its next tick fires is skipped.
type Scheduler struct {
	cfg      *config.Config
	ingestor Ingestor
	cron     *cron.Cron
}

// NewScheduler creates a new scheduler instance
func NewScheduler(cfg *config.Config, ingestor Ingestor) *Scheduler {
	return &Scheduler{
		cfg:      cfg,
		ingestor: ingestor,
		cron: cron.New(
			cron.WithLocation(time.UTC),
			cron.WithChain(cron.Recover(cronLogger{}), cron.SkipIfStillRunning(cronLogger{})),
		),
	}
}

// Start registers the jobs and starts the cron runner. Jobs run with ctx.
func (s *Scheduler) Start(ctx context.Context) error {
	log.Info().Msg("Scheduler starting...")

	if _, err := s.cron.AddFunc(s.cfg.ScheduleImportCron, func() {
		s.runScheduleImport(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule schedule import: %w", err)
	}

	if _, err := s.cron.AddFunc(s.cfg.ScoreSyncCron, func() {
		s.runScoreSync(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule score sync: %w", err)
	}

	s.cron.Start()
	log.Info().
		Str("schedule_import", s.cfg.ScheduleImportCron).
		Str("score_sync", s.cfg.ScoreSyncCron).
		Msg("Ingestion jobs scheduled")

	return nil
}

// Stop stops the cron runner and waits for running jobs to finish
func (s *Scheduler) Stop() {
	log.Info().Msg("Stopping scheduler...")
	<-s.cron.Stop().Done()
	log.Info().Msg("Scheduler stopped")
}

func (s *Scheduler) runScheduleImport(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	season := s.cfg.DefaultSeason()
	log.Info().Int("season", season).Msg("Running scheduled schedule import")

	res, err := s.ingestor.SyncSchedule(ctx, season)
	if err != nil {
		log.Error().Err(err).Int("season", season).Msg("Scheduled schedule import failed")
		return
	}
	log.Info().
		Int("season", season).
		Int("games", res.Games).
		Int("weeks", res.Weeks).
		Int("tiebreakers", res.Tiebreakers.Assigned).
		Msg("Scheduled schedule import complete")
}

func (s *Scheduler) runScoreSync(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	season := s.cfg.DefaultSeason()
	log.Debug().Int("season", season).Msg("Running scheduled score sync")

	res, err := s.ingestor.ApplyScores(ctx, ingest.ScoreRequest{
		Season: season,
		Source: ingest.SourceNflverse,
	})
	if err != nil {
		log.Error().Err(err).Int("season", season).Msg("Scheduled score sync failed")
		return
	}
	log.Info().
		Int("season", season).
		Ints("weeks", res.Weeks).
		Int("updated", res.Updated).
		Msg("Scheduled score sync complete")
}

// cronLogger adapts zerolog to cron.Logger
type cronLogger struct{}

func (cronLogger) Info(msg string, keysAndValues ...interface{}) {
	log.Debug().Fields(keysAndValues).Msg("cron: " + msg)
}

func (cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	log.Error().Err(err).Fields(keysAndValues).Msg("cron: " + msg)
}
