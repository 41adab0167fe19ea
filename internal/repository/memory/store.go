// Package memory is an in-process store with the same write semantics as the
// Postgres repository. It backs tests and dry runs.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"nflpickem/ingestion/internal/models"
)

type weekKey struct {
	season int
	week   int
}

// Calls counts write operations.
type Calls struct {
	UpsertWeeks      int
	UpsertGame       int
	AssignTiebreaker int
	UpdateScore      int
}

// Store keeps weeks and games in maps guarded by a mutex
type Store struct {
	mu     sync.Mutex
	nextID int64
	weeks  map[weekKey]models.Week
	games  map[models.GameKey]*models.Game
	calls  Calls
	fail   map[string]error
	now    func() time.Time
}

// New creates an empty store
func New() *Store {
	return &Store{
		weeks: make(map[weekKey]models.Week),
		games: make(map[models.GameKey]*models.Game),
		fail:  make(map[string]error),
		now:   time.Now,
	}
}

// FailOn makes the named operation return err until cleared with a nil err.
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.fail, op)
		return
	}
	s.fail[op] = err
}

// Calls returns the write counters
func (s *Store) Calls() Calls {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// Health always succeeds
func (s *Store) Health(ctx context.Context) error {
	return ctx.Err()
}

// Close is a no-op
func (s *Store) Close() {}

func (s *Store) failure(op string) error {
	return s.fail[op]
}

// UpsertWeeks inserts weeks, keeping a stored starts_on when the new one is nil
func (s *Store) UpsertWeeks(ctx context.Context, weeks []models.Week) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.UpsertWeeks++
	if err := s.failure("UpsertWeeks"); err != nil {
		return err
	}

	for _, w := range weeks {
		k := weekKey{w.Season, w.Week}
		if existing, ok := s.weeks[k]; ok && w.StartsOn == nil {
			w.StartsOn = existing.StartsOn
		}
		s.weeks[k] = models.Week{Season: w.Season, Week: w.Week, StartsOn: copyTime(w.StartsOn)}
	}
	return nil
}

// UpsertGame inserts a game or updates the kickoff of an existing one
func (s *Store) UpsertGame(ctx context.Context, key models.GameKey, kickoff *time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.UpsertGame++
	if err := s.failure("UpsertGame"); err != nil {
		return err
	}

	now := s.now()
	if g, ok := s.games[key]; ok {
		g.Kickoff = copyTime(kickoff)
		g.UpdatedAt = now
		return nil
	}

	s.nextID++
	s.games[key] = &models.Game{
		ID:        s.nextID,
		Season:    key.Season,
		Week:      key.Week,
		Home:      key.Home,
		Away:      key.Away,
		Kickoff:   copyTime(kickoff),
		CreatedAt: now,
		UpdatedAt: now,
	}
	return nil
}

// ListWeeks returns the stored weeks of a season, ascending
func (s *Store) ListWeeks(ctx context.Context, season int) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListWeeks"); err != nil {
		return nil, err
	}

	weeks := []int{}
	for k := range s.weeks {
		if k.season == season {
			weeks = append(weeks, k.week)
		}
	}
	sort.Ints(weeks)
	return weeks, nil
}

// GetWeek returns one stored week
func (s *Store) GetWeek(ctx context.Context, season, week int) (*models.Week, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.weeks[weekKey{season, week}]
	if !ok {
		return nil, models.ErrNotFound
	}
	w.StartsOn = copyTime(w.StartsOn)
	return &w, nil
}

// HasTiebreaker reports whether the week has a tiebreaker game
func (s *Store) HasTiebreaker(ctx context.Context, season, week int) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("HasTiebreaker"); err != nil {
		return false, err
	}

	for k, g := range s.games {
		if k.Season == season && k.Week == week && g.IsTiebreaker {
			return true, nil
		}
	}
	return false, nil
}

// ListGamesByWeek returns the games of a week ordered by id
func (s *Store) ListGamesByWeek(ctx context.Context, season, week int) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListGamesByWeek"); err != nil {
		return nil, err
	}
	return s.collect(func(g *models.Game) bool { return g.Season == season && g.Week == week }), nil
}

// ListGamesBySeason returns the games of a season ordered by id
func (s *Store) ListGamesBySeason(ctx context.Context, season int) ([]*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("ListGamesBySeason"); err != nil {
		return nil, err
	}
	return s.collect(func(g *models.Game) bool { return g.Season == season }), nil
}

// AssignTiebreaker marks gameID as the week's only tiebreaker. Another game
// already holding the flag yields models.ErrTiebreakerConflict.
func (s *Store) AssignTiebreaker(ctx context.Context, season, week int, gameID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.AssignTiebreaker++
	if err := s.failure("AssignTiebreaker"); err != nil {
		return err
	}

	var target *models.Game
	for _, g := range s.games {
		if g.Season != season || g.Week != week {
			continue
		}
		if g.IsTiebreaker && g.ID != gameID {
			return models.ErrTiebreakerConflict
		}
		if g.ID == gameID {
			target = g
		}
	}
	if target == nil {
		return models.ErrNotFound
	}
	target.IsTiebreaker = true
	target.UpdatedAt = s.now()
	return nil
}

// GameKeys returns the natural keys of a week's games
func (s *Store) GameKeys(ctx context.Context, season, week int) ([]models.GameKey, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GameKeys"); err != nil {
		return nil, err
	}

	keys := []models.GameKey{}
	for _, g := range s.collect(func(g *models.Game) bool { return g.Season == season && g.Week == week }) {
		keys = append(keys, g.Key())
	}
	return keys, nil
}

// UpdateScore writes scores and, unless unset, the winner
func (s *Store) UpdateScore(ctx context.Context, key models.GameKey, home, away int, winner models.Winner) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls.UpdateScore++
	if err := s.failure("UpdateScore"); err != nil {
		return 0, err
	}

	g, ok := s.games[key]
	if !ok {
		return 0, nil
	}
	g.HomeScore = &home
	g.AwayScore = &away
	if winner != models.WinnerUnset {
		g.Winner = winner
	}
	g.UpdatedAt = s.now()
	return 1, nil
}

// GetGame returns one game by natural key
func (s *Store) GetGame(ctx context.Context, key models.GameKey) (*models.Game, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("GetGame"); err != nil {
		return nil, err
	}

	g, ok := s.games[key]
	if !ok {
		return nil, models.ErrNotFound
	}
	return copyGame(g), nil
}

// WeeksNeedingScores returns weeks with an undecided game that has kicked off
func (s *Store) WeeksNeedingScores(ctx context.Context, season int, now time.Time) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failure("WeeksNeedingScores"); err != nil {
		return nil, err
	}

	set := make(map[int]bool)
	for _, g := range s.games {
		if g.Season == season && g.Winner == models.WinnerUnset && g.Kickoff != nil && g.Kickoff.Before(now) {
			set[g.Week] = true
		}
	}
	weeks := make([]int, 0, len(set))
	for w := range set {
		weeks = append(weeks, w)
	}
	sort.Ints(weeks)
	return weeks, nil
}

// SetTiebreaker forces the flag on a game, bypassing the one-per-week rule.
// Only meant for seeding broken states in tests.
func (s *Store) SetTiebreaker(key models.GameKey, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if g, ok := s.games[key]; ok {
		g.IsTiebreaker = on
	}
}

func (s *Store) collect(match func(*models.Game) bool) []*models.Game {
	out := []*models.Game{}
	for _, g := range s.games {
		if match(g) {
			out = append(out, copyGame(g))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func copyGame(g *models.Game) *models.Game {
	c := *g
	c.Kickoff = copyTime(g.Kickoff)
	if g.HomeScore != nil {
		v := *g.HomeScore
		c.HomeScore = &v
	}
	if g.AwayScore != nil {
		v := *g.AwayScore
		c.AwayScore = &v
	}
	return &c
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	c := *t
	return &c
}
