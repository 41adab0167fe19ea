package repository

import (
	"context"
	"time"

	"nflpickem/ingestion/internal/models"
)

// The methods below let *Database serve as the ingestion store.

func (db *Database) UpsertWeeks(ctx context.Context, weeks []models.Week) error {
	return db.Weeks.UpsertMany(ctx, weeks)
}

func (db *Database) UpsertGame(ctx context.Context, key models.GameKey, kickoff *time.Time) error {
	return db.Games.Upsert(ctx, key, kickoff)
}

func (db *Database) ListWeeks(ctx context.Context, season int) ([]int, error) {
	return db.Weeks.ListWeeks(ctx, season)
}

func (db *Database) HasTiebreaker(ctx context.Context, season, week int) (bool, error) {
	return db.Games.HasTiebreaker(ctx, season, week)
}

func (db *Database) ListGamesByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	return db.Games.ListByWeek(ctx, season, week)
}

func (db *Database) ListGamesBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	return db.Games.ListBySeason(ctx, season)
}

func (db *Database) AssignTiebreaker(ctx context.Context, season, week int, gameID int64) error {
	return db.Games.AssignTiebreaker(ctx, season, week, gameID)
}

func (db *Database) GameKeys(ctx context.Context, season, week int) ([]models.GameKey, error) {
	return db.Games.Keys(ctx, season, week)
}

func (db *Database) UpdateScore(ctx context.Context, key models.GameKey, home, away int, winner models.Winner) (int64, error) {
	return db.Games.UpdateScore(ctx, key, home, away, winner)
}

func (db *Database) GetGame(ctx context.Context, key models.GameKey) (*models.Game, error) {
	return db.Games.Get(ctx, key)
}

func (db *Database) WeeksNeedingScores(ctx context.Context, season int, now time.Time) ([]int, error) {
	return db.Games.WeeksNeedingScores(ctx, season, now)
}
