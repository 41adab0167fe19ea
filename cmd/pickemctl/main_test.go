package main

import (
	"context"
	"math/rand"
	"os"
	"path/filepath"
	"testing"
	"time"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/models"
	"nflpickem/ingestion/internal/repository/memory"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const canonicalCSV = `season,week,kickoff,home,away,is_tiebreaker
2025,1,2025-09-07T20:25:00Z,KC,LAC,true
2025,1,2025-09-07T17:00:00Z,GNB,DET,false
2025,2,,BUF,NYJ,false
`

const gamesCSV = `season,week,gameday,gametime,away_team,away_score,home_team,home_score
2025,1,2025-09-07,20:25,LAC,21,KC,27
2025,2,2025-09-14,13:00,NYJ,10,BUF,30
`

type csvFetcher struct{ body string }

func (f csvFetcher) FetchCSV(ctx context.Context, url string) ([]feed.Record, error) {
	return feed.ParseCSV(f.body), nil
}

func (f csvFetcher) FetchScoreboard(ctx context.Context, url string, season, week int) (*client.Scoreboard, error) {
	return &client.Scoreboard{}, nil
}

func newService(store *memory.Store, body string) *ingest.Service {
	return ingest.NewService(store, csvFetcher{body: body}, nil, ingest.Options{
		Rand: rand.New(rand.NewSource(3)),
		Now:  func() time.Time { return time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC) },
	})
}

func TestImportFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.csv")
	require.NoError(t, os.WriteFile(path, []byte(canonicalCSV), 0o644))

	store := memory.New()
	res, err := importFile(context.Background(), newService(store, ""), path, 2025)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Games)
	assert.Equal(t, 2, res.Weeks)
	assert.Equal(t, 2, res.Tiebreakers.Assigned)

	games, err := store.ListGamesByWeek(context.Background(), 2025, 1)
	require.NoError(t, err)
	flagged := 0
	for _, g := range games {
		if g.IsTiebreaker {
			flagged++
		}
	}
	assert.Equal(t, 1, flagged, "file flags never add a second tiebreaker")

	week, err := store.GetWeek(context.Background(), 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, week.StartsOn)
	assert.Equal(t, "2025-09-07", week.StartsOn.Format("2006-01-02"))
}

func TestImportFile_Missing(t *testing.T) {
	_, err := importFile(context.Background(), newService(memory.New(), ""), "/nonexistent/schedule.csv", 2025)
	assert.Error(t, err)
}

func TestImportFile_NoRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.csv")
	require.NoError(t, os.WriteFile(path, []byte("season,week,home,away\n"), 0o644))

	_, err := importFile(context.Background(), newService(memory.New(), ""), path, 2025)
	assert.ErrorIs(t, err, ingest.ErrNoRows)
}

func TestBackfill(t *testing.T) {
	store := memory.New()
	res, err := backfill(context.Background(), newService(store, gamesCSV), 2025)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Schedule.Games)
	assert.Equal(t, []int{1, 2}, res.Scores.Weeks)
	assert.Equal(t, 2, res.Scores.Updated)

	game, err := store.GetGame(context.Background(), models.GameKey{Season: 2025, Week: 2, Home: "BUF", Away: "NYJ"})
	require.NoError(t, err)
	assert.Equal(t, models.WinnerHome, game.Winner)
}

func TestRootCommand(t *testing.T) {
	root := newRootCmd()

	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"schedule", "scores", "tiebreakers", "import-file", "backfill", "migrate"} {
		assert.True(t, names[want], want)
	}

	require.NotNil(t, root.PersistentFlags().Lookup("dry-run"))
	require.NotNil(t, root.PersistentFlags().Lookup("season"))
}

func TestScoresCommand_BadSource(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"scores", "--source", "yahoo"})
	root.SetOut(new(discard))
	root.SetErr(new(discard))

	err := root.Execute()
	assert.ErrorIs(t, err, ingest.ErrInvalidInput)
}

func TestMigrateDown_BadSteps(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"migrate", "down", "zero"})
	root.SetOut(new(discard))
	root.SetErr(new(discard))

	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "steps")
}

type discard struct{}

func (*discard) Write(p []byte) (int, error) { return len(p), nil }

func TestSetupLogger_UsesConfig(t *testing.T) {
	prevLogger, prevLevel := log.Logger, zerolog.GlobalLevel()
	t.Cleanup(func() {
		log.Logger = prevLogger
		zerolog.SetGlobalLevel(prevLevel)
	})
	t.Setenv("LOG_LEVEL", "error")

	setupLogger(&config.Config{AppEnv: "development", LogLevel: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(&config.Config{AppEnv: "production", LogLevel: "bogus"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
