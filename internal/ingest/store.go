package ingest

import (
	"context"
	"time"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/models"
)

// Store is the persistence the ingestion pipeline needs.
type Store interface {
	// UpsertWeeks inserts weeks by (season, week). A nil StartsOn never
	// overwrites a stored date.
	UpsertWeeks(ctx context.Context, weeks []models.Week) error

	// UpsertGame inserts a game with is_tiebreaker=false, or updates only the
	// kickoff of an existing game with the same natural key.
	UpsertGame(ctx context.Context, key models.GameKey, kickoff *time.Time) error

	// ListWeeks returns the week numbers stored for a season, ascending.
	ListWeeks(ctx context.Context, season int) ([]int, error)

	HasTiebreaker(ctx context.Context, season, week int) (bool, error)
	ListGamesByWeek(ctx context.Context, season, week int) ([]*models.Game, error)
	ListGamesBySeason(ctx context.Context, season int) ([]*models.Game, error)

	// AssignTiebreaker marks gameID as the only tiebreaker of its week.
	// Returns models.ErrTiebreakerConflict if another writer won the race.
	AssignTiebreaker(ctx context.Context, season, week int, gameID int64) error

	GameKeys(ctx context.Context, season, week int) ([]models.GameKey, error)

	// UpdateScore writes both scores, and the winner unless it is unset.
	// Returns the number of rows changed.
	UpdateScore(ctx context.Context, key models.GameKey, home, away int, winner models.Winner) (int64, error)

	GetGame(ctx context.Context, key models.GameKey) (*models.Game, error)

	// WeeksNeedingScores returns weeks with at least one undecided game whose
	// kickoff is before now, ascending.
	WeeksNeedingScores(ctx context.Context, season int, now time.Time) ([]int, error)
}

// Fetcher retrieves upstream feeds.
type Fetcher interface {
	FetchCSV(ctx context.Context, url string) ([]feed.Record, error)
	FetchScoreboard(ctx context.Context, url string, season, week int) (*client.Scoreboard, error)
}

// Locker serializes runs across processes. Acquire reports ok=false when
// another holder has the key.
type Locker interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}
