package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nflpickem/ingestion/internal/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
)

const (
	uniqueViolation      = "23505"
	tiebreakerConstraint = "games_one_tiebreaker_per_week"
)

// GameRepository handles game database operations
type GameRepository struct {
	db *Database
}

const gameColumns = `id, season, week, home, away, kickoff, home_score, away_score, winner, is_tiebreaker, created_at, updated_at`

// Upsert inserts a game, or updates only the kickoff of an existing one
func (r *GameRepository) Upsert(ctx context.Context, key models.GameKey, kickoff *time.Time) (err error) {
	start := time.Now()
	defer func() { observe("upsert", "games", start, err) }()

	query := `
		INSERT INTO games (season, week, home, away, kickoff, is_tiebreaker)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (season, week, home, away) DO UPDATE SET
			kickoff = EXCLUDED.kickoff,
			updated_at = NOW()
	`

	_, err = r.db.Pool.Exec(ctx, query, key.Season, key.Week, key.Home, key.Away, kickoff)
	if err != nil {
		return fmt.Errorf("failed to upsert game: %w", err)
	}
	return nil
}

// Get retrieves a game by natural key
func (r *GameRepository) Get(ctx context.Context, key models.GameKey) (*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season = $1 AND week = $2 AND home = $3 AND away = $4
	`

	game, err := scanGame(r.db.Pool.QueryRow(ctx, query, key.Season, key.Week, key.Home, key.Away))
	if err == pgx.ErrNoRows {
		return nil, fmt.Errorf("game %s: %w", key, models.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get game: %w", err)
	}
	return game, nil
}

// ListByWeek retrieves the games of one week ordered by id
func (r *GameRepository) ListByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season = $1 AND week = $2
		ORDER BY id
	`
	return r.list(ctx, query, season, week)
}

// ListBySeason retrieves the games of one season ordered by kickoff
func (r *GameRepository) ListBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	query := `SELECT ` + gameColumns + `
		FROM games
		WHERE season = $1
		ORDER BY week, kickoff NULLS LAST, id
	`
	return r.list(ctx, query, season)
}

func (r *GameRepository) list(ctx context.Context, query string, args ...any) ([]*models.Game, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query games: %w", err)
	}
	defer rows.Close()

	games := []*models.Game{}
	for rows.Next() {
		game, err := scanGame(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan game: %w", err)
		}
		games = append(games, game)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating games: %w", err)
	}
	return games, nil
}

// Keys returns the natural keys of one week's games
func (r *GameRepository) Keys(ctx context.Context, season, week int) ([]models.GameKey, error) {
	rows, err := r.db.Pool.Query(ctx,
		`SELECT home, away FROM games WHERE season = $1 AND week = $2`,
		season, week,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query game keys: %w", err)
	}
	defer rows.Close()

	keys := []models.GameKey{}
	for rows.Next() {
		k := models.GameKey{Season: season, Week: week}
		if err := rows.Scan(&k.Home, &k.Away); err != nil {
			return nil, fmt.Errorf("failed to scan game key: %w", err)
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}

// HasTiebreaker reports whether a week already has its tiebreaker
func (r *GameRepository) HasTiebreaker(ctx context.Context, season, week int) (bool, error) {
	var exists bool
	err := r.db.Pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM games WHERE season = $1 AND week = $2 AND is_tiebreaker)`,
		season, week,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check tiebreaker: %w", err)
	}
	return exists, nil
}

// AssignTiebreaker makes gameID the week's only tiebreaker in one statement.
// It refuses when another game already holds the flag; that case, and a
// concurrent writer tripping the partial unique index, yield
// models.ErrTiebreakerConflict.
func (r *GameRepository) AssignTiebreaker(ctx context.Context, season, week int, gameID int64) (err error) {
	start := time.Now()
	defer func() { observe("assign_tiebreaker", "games", start, err) }()

	query := `
		UPDATE games
		SET is_tiebreaker = (id = $3),
		    updated_at = NOW()
		WHERE season = $1 AND week = $2
		  AND NOT EXISTS (
		      SELECT 1 FROM games t
		      WHERE t.season = $1 AND t.week = $2 AND t.is_tiebreaker AND t.id <> $3
		  )
	`

	tag, err := r.db.Pool.Exec(ctx, query, season, week, gameID)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation && pgErr.ConstraintName == tiebreakerConstraint {
			return models.ErrTiebreakerConflict
		}
		return fmt.Errorf("failed to assign tiebreaker: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return models.ErrTiebreakerConflict
	}

	log.Debug().
		Int("season", season).
		Int("week", week).
		Int64("game_id", gameID).
		Msg("Tiebreaker stored")
	return nil
}

// UpdateScore writes both scores and, unless unset, the winner
func (r *GameRepository) UpdateScore(ctx context.Context, key models.GameKey, home, away int, winner models.Winner) (n int64, err error) {
	start := time.Now()
	defer func() { observe("update_score", "games", start, err) }()

	var w *string
	if winner != models.WinnerUnset {
		s := string(winner)
		w = &s
	}

	query := `
		UPDATE games
		SET home_score = $5,
		    away_score = $6,
		    winner = COALESCE($7, winner),
		    updated_at = NOW()
		WHERE season = $1 AND week = $2 AND home = $3 AND away = $4
	`

	tag, err := r.db.Pool.Exec(ctx, query, key.Season, key.Week, key.Home, key.Away, home, away, w)
	if err != nil {
		return 0, fmt.Errorf("failed to update score: %w", err)
	}
	return tag.RowsAffected(), nil
}

// WeeksNeedingScores returns weeks with an undecided game that has kicked off
func (r *GameRepository) WeeksNeedingScores(ctx context.Context, season int, now time.Time) ([]int, error) {
	rows, err := r.db.Pool.Query(ctx, `
		SELECT DISTINCT week
		FROM games
		WHERE season = $1 AND winner IS NULL AND kickoff < $2
		ORDER BY week
	`, season, now)
	if err != nil {
		return nil, fmt.Errorf("failed to query weeks needing scores: %w", err)
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

func scanGame(row pgx.Row) (*models.Game, error) {
	var (
		game   models.Game
		winner *string
	)
	err := row.Scan(
		&game.ID, &game.Season, &game.Week, &game.Home, &game.Away,
		&game.Kickoff, &game.HomeScore, &game.AwayScore, &winner, &game.IsTiebreaker,
		&game.CreatedAt, &game.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if winner != nil {
		game.Winner = models.Winner(*winner)
	}
	return &game, nil
}
