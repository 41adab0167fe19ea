package repository

import (
	"context"
	"fmt"
	"time"

	"nflpickem/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog/log"
)

// WeekRepository handles week database operations
type WeekRepository struct {
	db *Database
}

// UpsertMany inserts weeks in one batch. A null starts_on never replaces a
// stored date.
func (r *WeekRepository) UpsertMany(ctx context.Context, weeks []models.Week) (err error) {
	if len(weeks) == 0 {
		return nil
	}
	start := time.Now()
	defer func() { observe("upsert", "weeks", start, err) }()

	query := `
		INSERT INTO weeks (season, week, starts_on)
		VALUES ($1, $2, $3)
		ON CONFLICT (season, week) DO UPDATE SET
			starts_on = COALESCE(EXCLUDED.starts_on, weeks.starts_on),
			updated_at = NOW()
	`

	batch := &pgx.Batch{}
	for _, w := range weeks {
		batch.Queue(query, w.Season, w.Week, w.StartsOn)
	}

	results := r.db.Pool.SendBatch(ctx, batch)
	defer results.Close()

	for range weeks {
		if _, err = results.Exec(); err != nil {
			return fmt.Errorf("failed to upsert week: %w", err)
		}
	}

	log.Debug().Int("count", len(weeks)).Msg("Weeks upserted")
	return nil
}

// ListWeeks returns the week numbers of a season, ascending
func (r *WeekRepository) ListWeeks(ctx context.Context, season int) ([]int, error) {
	rows, err := r.db.Pool.Query(ctx, `SELECT week FROM weeks WHERE season = $1 ORDER BY week`, season)
	if err != nil {
		return nil, fmt.Errorf("failed to list weeks: %w", err)
	}
	defer rows.Close()

	weeks := []int{}
	for rows.Next() {
		var w int
		if err := rows.Scan(&w); err != nil {
			return nil, fmt.Errorf("failed to scan week: %w", err)
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// Get retrieves one week
func (r *WeekRepository) Get(ctx context.Context, season, week int) (*models.Week, error) {
	var w models.Week
	err := r.db.Pool.QueryRow(ctx,
		`SELECT season, week, starts_on FROM weeks WHERE season = $1 AND week = $2`,
		season, week,
	).Scan(&w.Season, &w.Week, &w.StartsOn)

	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("week %d/%d: %w", season, week, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get week: %w", err)
	}
	return &w, nil
}
