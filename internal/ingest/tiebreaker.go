package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"nflpickem/ingestion/internal/metrics"
	"nflpickem/ingestion/internal/models"

	"github.com/rs/zerolog/log"
)

const tiebreakerLockKey = "pickem:lock:tiebreakers:%d"

// lockPoll is how often a busy run lock is retried.
var lockPoll = 250 * time.Millisecond

// TiebreakerResult summarizes a tiebreaker pass.
type TiebreakerResult struct {
	Assigned int `json:"assigned"`
	Skipped  int `json:"skipped"`
}

// EnsureTiebreakers gives every week of the season without a tiebreaker one
// randomly chosen game, preferring games with a known kickoff.
func (s *Service) EnsureTiebreakers(ctx context.Context, season int) (TiebreakerResult, error) {
	start := time.Now()

	release, err := s.lock(ctx, fmt.Sprintf(tiebreakerLockKey, season))
	if err != nil {
		return TiebreakerResult{}, err
	}
	defer release()

	result, err := s.ensureTiebreakers(ctx, season)
	status := "success"
	if err != nil {
		status = "error"
		metrics.RecordError("tiebreaker", errorType(err))
	}
	metrics.RecordSync("tiebreaker", status, time.Since(start).Seconds())

	log.Info().
		Int("season", season).
		Int("assigned", result.Assigned).
		Int("skipped", result.Skipped).
		Msg("Tiebreaker pass complete")

	return result, err
}

func (s *Service) ensureTiebreakers(ctx context.Context, season int) (TiebreakerResult, error) {
	var result TiebreakerResult

	weeks, err := s.store.ListWeeks(ctx, season)
	if err != nil {
		return result, fmt.Errorf("failed to list weeks: %w", err)
	}

	for _, week := range weeks {
		has, err := s.store.HasTiebreaker(ctx, season, week)
		if err != nil {
			return result, fmt.Errorf("failed to check tiebreaker for week %d: %w", week, err)
		}
		if has {
			result.Skipped++
			continue
		}

		games, err := s.store.ListGamesByWeek(ctx, season, week)
		if err != nil {
			return result, fmt.Errorf("failed to list games for week %d: %w", week, err)
		}
		if len(games) == 0 {
			result.Skipped++
			continue
		}

		pick := s.pickTiebreaker(games)
		err = s.store.AssignTiebreaker(ctx, season, week, pick.ID)
		if errors.Is(err, ErrTiebreakerConflict) {
			log.Debug().
				Int("season", season).
				Int("week", week).
				Msg("Tiebreaker already assigned by another run")
			result.Skipped++
			continue
		}
		if err != nil {
			return result, fmt.Errorf("failed to assign tiebreaker for week %d: %w", week, err)
		}

		metrics.RecordTiebreakerAssigned()
		result.Assigned++
		log.Debug().
			Int("season", season).
			Int("week", week).
			Str("game", pick.Key().String()).
			Msg("Tiebreaker assigned")
	}

	return result, nil
}

// pickTiebreaker chooses uniformly among games with a kickoff, or among all
// games when none has one.
func (s *Service) pickTiebreaker(games []*models.Game) *models.Game {
	candidates := make([]*models.Game, 0, len(games))
	for _, g := range games {
		if g.Kickoff != nil {
			candidates = append(candidates, g)
		}
	}
	if len(candidates) == 0 {
		candidates = games
	}
	return candidates[s.intn(len(candidates))]
}

// lock takes the run lock for key when a Locker is configured. A busy lock is
// polled until it frees up or LockTTL passes. After that, or when the locker
// fails, the run proceeds unlocked; the store still rejects a second
// tiebreaker per week.
func (s *Service) lock(ctx context.Context, key string) (func(), error) {
	noop := func() {}
	if s.locker == nil {
		return noop, nil
	}

	deadline := time.Now().Add(s.opts.LockTTL)
	for {
		release, ok, err := s.locker.Acquire(ctx, key, s.opts.LockTTL)
		if err != nil {
			metrics.RecordLock("error")
			log.Warn().Err(err).Str("key", key).Msg("Run lock unavailable, continuing without it")
			return noop, nil
		}
		if ok {
			metrics.RecordLock("acquired")
			return release, nil
		}

		metrics.RecordLock("busy")
		if time.Now().After(deadline) {
			log.Warn().Str("key", key).Msg("Run lock still held, continuing without it")
			return noop, nil
		}

		select {
		case <-ctx.Done():
			return noop, ctx.Err()
		case <-time.After(lockPoll):
		}
	}
}
