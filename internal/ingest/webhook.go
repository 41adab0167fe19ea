package ingest

import (
	"context"
	"fmt"

	"nflpickem/ingestion/internal/metrics"
	"nflpickem/ingestion/internal/models"
	"nflpickem/ingestion/internal/teams"

	"github.com/rs/zerolog/log"
)

// ApplyScoreUpdate writes a single pushed result and returns the stored game.
func (s *Service) ApplyScoreUpdate(ctx context.Context, u models.ScoreUpdate) (*models.Game, error) {
	if u.Season <= 0 || u.Week <= 0 {
		return nil, fmt.Errorf("%w: season and week are required", ErrInvalidInput)
	}
	home := teams.Normalize(u.Home)
	away := teams.Normalize(u.Away)
	if home == "" || away == "" {
		return nil, fmt.Errorf("%w: home and away are required", ErrInvalidInput)
	}
	if u.HomeScore == nil || u.AwayScore == nil {
		return nil, fmt.Errorf("%w: home_score and away_score are required", ErrInvalidInput)
	}
	if *u.HomeScore < 0 || *u.AwayScore < 0 {
		return nil, fmt.Errorf("%w: scores must not be negative", ErrInvalidInput)
	}

	key := models.GameKey{Season: u.Season, Week: u.Week, Home: home, Away: away}
	n, err := s.store.UpdateScore(ctx, key, *u.HomeScore, *u.AwayScore, models.WinnerFor(*u.HomeScore, *u.AwayScore))
	if err != nil {
		return nil, fmt.Errorf("failed to update score for %s: %w", key, err)
	}
	if n == 0 {
		return nil, fmt.Errorf("game %s: %w", key, ErrNotFound)
	}
	metrics.RecordScoresApplied(int(n))

	game, err := s.store.GetGame(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("failed to load game %s: %w", key, err)
	}

	log.Info().
		Str("game", key.String()).
		Int("home_score", *u.HomeScore).
		Int("away_score", *u.AwayScore).
		Msg("Score webhook applied")

	return game, nil
}
