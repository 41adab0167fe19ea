package ingest

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"testing"
	"time"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/repository/memory"
)

var _ Store = (*memory.Store)(nil)

type fakeFetcher struct {
	mu       sync.Mutex
	csv      map[string]string
	boards   map[int]*client.Scoreboard
	csvErr   error
	boardErr error
	csvCalls int
	weeks    []int
}

func newFakeFetcher() *fakeFetcher {
	return &fakeFetcher{
		csv:    make(map[string]string),
		boards: make(map[int]*client.Scoreboard),
	}
}

func (f *fakeFetcher) FetchCSV(ctx context.Context, url string) ([]feed.Record, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.csvCalls++
	if f.csvErr != nil {
		return nil, f.csvErr
	}
	return feed.ParseCSV(f.csv[url]), nil
}

func (f *fakeFetcher) FetchScoreboard(ctx context.Context, url string, season, week int) (*client.Scoreboard, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.weeks = append(f.weeks, week)
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	if b, ok := f.boards[week]; ok {
		return b, nil
	}
	return &client.Scoreboard{}, nil
}

const (
	testScheduleURL = "http://feed.test/schedule.csv"
	testScoreURL    = "http://feed.test/scores.csv"
	testBoardURL    = "http://feed.test/scoreboard"
)

var testNow = time.Date(2025, 9, 20, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, store *memory.Store, fetcher Fetcher, locker Locker) *Service {
	t.Helper()
	return NewService(store, fetcher, locker, Options{
		ScheduleFeedURL: testScheduleURL,
		ScoreFeedURL:    testScoreURL,
		ScoreboardURL:   testBoardURL,
		LockTTL:         50 * time.Millisecond,
		Rand:            rand.New(rand.NewSource(7)),
		Now:             func() time.Time { return testNow },
	})
}

// nflverseHeader mirrors the columns of nfldata games.csv that matter here.
const nflverseHeader = "game_id,season,game_type,week,gameday,weekday,gametime,away_team,away_score,home_team,home_score"

type game struct {
	season, week int
	day, clock   string
	away, home   string
	awayScore    string
	homeScore    string
}

func nflverseCSV(games ...game) string {
	var b strings.Builder
	b.WriteString(nflverseHeader + "\n")
	for _, g := range games {
		fmt.Fprintf(&b, "%d_%02d_%s_%s,%d,REG,%d,%s,Sunday,%s,%s,%s,%s,%s\n",
			g.season, g.week, g.away, g.home, g.season, g.week, g.day, g.clock,
			g.away, g.awayScore, g.home, g.homeScore)
	}
	return b.String()
}

// sixteenGames is one full week: 16 distinct matchups on the same season/week.
func sixteenGames(season, week int) []game {
	codes := []string{
		"ARI", "ATL", "BAL", "BUF", "CAR", "CHI", "CIN", "CLE",
		"DAL", "DEN", "DET", "GB", "HOU", "IND", "JAX", "KC",
		"LAC", "LAR", "LV", "MIA", "MIN", "NE", "NO", "NYG",
		"NYJ", "PHI", "PIT", "SEA", "SF", "TB", "TEN", "WAS",
	}
	games := make([]game, 0, 16)
	for i := 0; i < 16; i++ {
		games = append(games, game{
			season: season, week: week,
			day: "2025-09-07", clock: "13:00",
			away: codes[2*i], home: codes[2*i+1],
		})
	}
	games[0].day = "2025-09-04"
	games[0].clock = "20:20"
	return games
}
