package main

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

// --------------------------------------------------------------------------
// ingestion commands
// --------------------------------------------------------------------------

func scheduleCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "schedule",
		Short: "Import the schedule feed and assign missing tiebreakers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(flags, func(ctx context.Context, e *env) error {
				res, err := e.svc.SyncSchedule(ctx, e.season)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func scoresCmd(flags *globalFlags) *cobra.Command {
	var (
		week     int
		allWeeks bool
		source   string
	)
	cmd := &cobra.Command{
		Use:   "scores",
		Short: "Apply final and live scores to stored games",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			src, err := ingest.ParseScoreSource(source)
			if err != nil {
				return err
			}
			return runIngest(flags, func(ctx context.Context, e *env) error {
				res, err := e.svc.ApplyScores(ctx, ingest.ScoreRequest{
					Season:   e.season,
					Week:     week,
					AllWeeks: allWeeks,
					Source:   src,
				})
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
	cmd.Flags().IntVar(&week, "week", 0, "Single week to score")
	cmd.Flags().BoolVar(&allWeeks, "all-weeks", false, "Score every week of the season")
	cmd.Flags().StringVar(&source, "source", string(ingest.SourceNflverse), "Score source: nflverse or espn")
	return cmd
}

func tiebreakersCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "tiebreakers",
		Short: "Give every week without a tiebreaker one random game",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(flags, func(ctx context.Context, e *env) error {
				res, err := e.svc.EnsureTiebreakers(ctx, e.season)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func importFileCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "import-file <path>",
		Short: "Import a schedule CSV from disk",
		Long: "Import a schedule CSV from disk. The canonical columns are\n" +
			"season,week,kickoff,home,away,is_tiebreaker; any feed columns the\n" +
			"schedule resolver understands also work. is_tiebreaker is ignored.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(flags, func(ctx context.Context, e *env) error {
				res, err := importFile(ctx, e.svc, args[0], e.season)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

// importFile runs the schedule import over a local CSV, then the tiebreaker pass
func importFile(ctx context.Context, svc *ingest.Service, path string, season int) (ingest.ScheduleResult, error) {
	f, err := os.Open(path)
	if err != nil {
		return ingest.ScheduleResult{Season: season}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	records := feed.ParseCSVReader(f)
	log.Info().Str("path", path).Int("records", len(records)).Msg("Schedule file parsed")

	res, err := svc.ImportSchedule(ctx, season, records)
	if err != nil {
		return res, err
	}
	tb, err := svc.EnsureTiebreakers(ctx, season)
	res.Tiebreakers = tb
	return res, err
}

// backfillResult combines the schedule and score passes of a backfill
type backfillResult struct {
	Schedule ingest.ScheduleResult `json:"schedule"`
	Scores   ingest.ScoreResult    `json:"scores"`
}

func backfillCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "backfill",
		Short: "Import the schedule, then apply scores for every week of the season",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runIngest(flags, func(ctx context.Context, e *env) error {
				res, err := backfill(ctx, e.svc, e.season)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), res)
			})
		},
	}
}

func backfill(ctx context.Context, svc *ingest.Service, season int) (backfillResult, error) {
	var res backfillResult

	sched, err := svc.SyncSchedule(ctx, season)
	res.Schedule = sched
	if err != nil {
		return res, fmt.Errorf("failed to import schedule: %w", err)
	}

	scores, err := svc.ApplyScores(ctx, ingest.ScoreRequest{
		Season:   season,
		AllWeeks: true,
		Source:   ingest.SourceNflverse,
	})
	res.Scores = scores
	if err != nil {
		return res, fmt.Errorf("failed to apply scores: %w", err)
	}

	log.Info().
		Int("season", season).
		Int("games", sched.Games).
		Int("scores", scores.Updated).
		Msg("Backfill complete")
	return res, nil
}

// --------------------------------------------------------------------------
// migrate command
// --------------------------------------------------------------------------

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply or inspect the database schema migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *repository.Migrator) error {
				return m.Up()
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations (default 1 step)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n <= 0 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}
			return withMigrator(func(m *repository.Migrator) error {
				return m.Down(steps)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withMigrator(func(m *repository.Migrator) error {
				version, dirty, ok, err := m.Version()
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty=%t)\n", version, dirty)
				return nil
			})
		},
	})

	return cmd
}

func withMigrator(fn func(m *repository.Migrator) error) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	setupLogger(cfg)
	m, err := repository.NewMigrator(cfg.RepositoryConfig())
	if err != nil {
		return err
	}
	defer m.Close()
	return fn(m)
}
