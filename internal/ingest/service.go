// Package ingest normalizes schedule and score feeds into weeks and games and
// keeps one tiebreaker game per week.
package ingest

import (
	"math/rand"
	"sync"
	"time"
)

// Default feed locations.
const (
	DefaultScheduleFeedURL = "https://raw.githubusercontent.com/nflverse/nfldata/master/data/games.csv"
	DefaultScoreFeedURL    = DefaultScheduleFeedURL
	DefaultScoreboardURL   = "https://site.api.espn.com/apis/site/v2/sports/football/nfl/scoreboard"
)

// Options configures a Service. Zero values fall back to defaults.
type Options struct {
	ScheduleFeedURL string
	ScoreFeedURL    string
	ScoreboardURL   string

	// LockTTL bounds how long a tiebreaker pass holds the run lock.
	LockTTL time.Duration

	// ESPNConcurrency caps parallel scoreboard fetches.
	ESPNConcurrency int

	Rand *rand.Rand
	Now  func() time.Time
}

// Service runs schedule and score ingestion against a Store.
type Service struct {
	store   Store
	fetcher Fetcher
	locker  Locker
	opts    Options

	randMu sync.Mutex
}

// NewService creates a Service. locker may be nil.
func NewService(store Store, fetcher Fetcher, locker Locker, opts Options) *Service {
	if opts.ScheduleFeedURL == "" {
		opts.ScheduleFeedURL = DefaultScheduleFeedURL
	}
	if opts.ScoreFeedURL == "" {
		opts.ScoreFeedURL = DefaultScoreFeedURL
	}
	if opts.ScoreboardURL == "" {
		opts.ScoreboardURL = DefaultScoreboardURL
	}
	if opts.LockTTL <= 0 {
		opts.LockTTL = 2 * time.Minute
	}
	if opts.ESPNConcurrency <= 0 {
		opts.ESPNConcurrency = 4
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	return &Service{
		store:   store,
		fetcher: fetcher,
		locker:  locker,
		opts:    opts,
	}
}

func (s *Service) intn(n int) int {
	s.randMu.Lock()
	defer s.randMu.Unlock()
	return s.opts.Rand.Intn(n)
}
