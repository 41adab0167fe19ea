package ingest

import (
	"context"
	"fmt"
	"time"

	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/metrics"
	"nflpickem/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

// ScheduleResult summarizes a schedule import.
type ScheduleResult struct {
	Season      int                  `json:"season"`
	Weeks       int                  `json:"weeks"`
	Games       int                  `json:"count"`
	Skipped     int                  `json:"skipped"`
	Rows        []models.ScheduleRow `json:"-"`
	Tiebreakers TiebreakerResult     `json:"tiebreakers"`
}

// ResolveSchedule resolves records and keeps the rows of one season.
// skipped counts records that could not be resolved at all.
func ResolveSchedule(records []feed.Record, season int) (rows []models.ScheduleRow, skipped int) {
	rows = make([]models.ScheduleRow, 0, len(records))
	for _, rec := range records {
		row, ok := ResolveScheduleRow(rec)
		if !ok {
			skipped++
			continue
		}
		if row.Season != season {
			continue
		}
		// the selector owns the tiebreaker flag
		row.IsTiebreaker = false
		rows = append(rows, row)
	}
	return rows, skipped
}

// WeeksFromRows returns the distinct weeks of rows in first-seen order, each
// starting on the earliest kickoff date found among its rows.
func WeeksFromRows(rows []models.ScheduleRow) []models.Week {
	order := make([]int, 0)
	earliest := make(map[int]string)
	seen := make(map[int]bool)
	season := 0

	for _, row := range rows {
		season = row.Season
		if !seen[row.Week] {
			seen[row.Week] = true
			order = append(order, row.Week)
		}
		date := row.KickoffDate()
		if date == "" {
			continue
		}
		if cur, ok := earliest[row.Week]; !ok || date < cur {
			earliest[row.Week] = date
		}
	}

	weeks := make([]models.Week, 0, len(order))
	for _, w := range order {
		week := models.Week{Season: season, Week: w}
		if date, ok := earliest[w]; ok {
			if t, err := time.Parse("2006-01-02", date); err == nil {
				week.StartsOn = &t
			}
		}
		weeks = append(weeks, week)
	}
	return weeks
}

// ImportSchedule upserts the weeks and games of one season from feed records.
// Writes applied before a store error are kept.
func (s *Service) ImportSchedule(ctx context.Context, season int, records []feed.Record) (ScheduleResult, error) {
	result := ScheduleResult{Season: season}
	if season <= 0 {
		return result, fmt.Errorf("%w: season must be positive", ErrInvalidInput)
	}

	rows, skipped := ResolveSchedule(records, season)
	result.Skipped = skipped
	metrics.RecordSkippedRows("schedule", skipped)
	if len(rows) == 0 {
		return result, fmt.Errorf("%w: no schedule rows for season %d", ErrNoRows, season)
	}
	result.Rows = rows

	weeks := WeeksFromRows(rows)
	if err := s.store.UpsertWeeks(ctx, weeks); err != nil {
		return result, fmt.Errorf("failed to upsert weeks: %w", err)
	}
	result.Weeks = len(weeks)

	for _, row := range rows {
		if err := s.store.UpsertGame(ctx, row.Key(), row.KickoffAt()); err != nil {
			metrics.RecordGamesUpserted(result.Games)
			return result, fmt.Errorf("failed to upsert game %s: %w", row.Key(), err)
		}
		result.Games++
	}
	metrics.RecordGamesUpserted(result.Games)

	log.Info().
		Int("season", season).
		Int("weeks", result.Weeks).
		Int("games", result.Games).
		Int("skipped", skipped).
		Msg("Schedule imported")

	return result, nil
}

// SyncSchedule fetches the schedule feed, imports it, and assigns missing
// tiebreakers.
func (s *Service) SyncSchedule(ctx context.Context, season int) (ScheduleResult, error) {
	start := time.Now()
	result, err := s.syncSchedule(ctx, season)
	status := "success"
	if err != nil {
		status = "error"
		metrics.RecordError("schedule", errorType(err))
	}
	metrics.RecordSync("schedule", status, time.Since(start).Seconds())
	return result, err
}

func (s *Service) syncSchedule(ctx context.Context, season int) (ScheduleResult, error) {
	records, err := s.fetcher.FetchCSV(ctx, s.opts.ScheduleFeedURL)
	if err != nil {
		return ScheduleResult{Season: season}, fmt.Errorf("failed to fetch schedule feed: %w", err)
	}

	result, err := s.ImportSchedule(ctx, season, records)
	if err != nil {
		return result, err
	}

	tb, err := s.EnsureTiebreakers(ctx, season)
	result.Tiebreakers = tb
	if err != nil {
		return result, err
	}
	return result, nil
}

// NormalizeSchedule fetches the schedule feed and returns the resolved rows
// of one season without writing anything.
func (s *Service) NormalizeSchedule(ctx context.Context, season int) ([]models.ScheduleRow, error) {
	records, err := s.fetcher.FetchCSV(ctx, s.opts.ScheduleFeedURL)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch schedule feed: %w", err)
	}
	rows, _ := ResolveSchedule(records, season)
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no schedule rows for season %d", ErrNoRows, season)
	}
	return rows, nil
}
