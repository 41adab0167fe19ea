package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"nflpickem/ingestion/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestUpsertWeeks_KeepsStoredDate(t *testing.T) {
	ctx := context.Background()
	s := New()
	day := time.Date(2025, 9, 4, 0, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertWeeks(ctx, []models.Week{{Season: 2025, Week: 1, StartsOn: &day}}))
	require.NoError(t, s.UpsertWeeks(ctx, []models.Week{{Season: 2025, Week: 1}}))

	w, err := s.GetWeek(ctx, 2025, 1)
	require.NoError(t, err)
	require.NotNil(t, w.StartsOn)
	assert.True(t, day.Equal(*w.StartsOn))

	later := day.AddDate(0, 0, 1)
	require.NoError(t, s.UpsertWeeks(ctx, []models.Week{{Season: 2025, Week: 1, StartsOn: &later}}))
	w, err = s.GetWeek(ctx, 2025, 1)
	require.NoError(t, err)
	assert.True(t, later.Equal(*w.StartsOn))
}

func TestUpsertGame_UpdatesKickoffOnly(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := models.GameKey{Season: 2025, Week: 1, Home: "BUF", Away: "BAL"}
	first := time.Date(2025, 9, 7, 20, 20, 0, 0, time.UTC)
	moved := first.Add(3 * time.Hour)

	require.NoError(t, s.UpsertGame(ctx, key, &first))
	_, err := s.UpdateScore(ctx, key, 41, 40, models.WinnerHome)
	require.NoError(t, err)
	require.NoError(t, s.AssignTiebreaker(ctx, 2025, 1, 1))
	require.NoError(t, s.UpsertGame(ctx, key, &moved))

	g, err := s.GetGame(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, int64(1), g.ID)
	assert.True(t, moved.Equal(*g.Kickoff))
	assert.Equal(t, 41, *g.HomeScore)
	assert.Equal(t, models.WinnerHome, g.Winner)
	assert.True(t, g.IsTiebreaker, "re-import must not clear the tiebreaker")
}

func TestAssignTiebreaker_Conflict(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := models.GameKey{Season: 2025, Week: 2, Home: "KC", Away: "PHI"}
	b := models.GameKey{Season: 2025, Week: 2, Home: "DAL", Away: "NYG"}
	require.NoError(t, s.UpsertGame(ctx, a, nil))
	require.NoError(t, s.UpsertGame(ctx, b, nil))

	require.NoError(t, s.AssignTiebreaker(ctx, 2025, 2, 1))
	err := s.AssignTiebreaker(ctx, 2025, 2, 2)
	assert.True(t, errors.Is(err, models.ErrTiebreakerConflict))

	err = s.AssignTiebreaker(ctx, 2025, 2, 99)
	assert.True(t, errors.Is(err, models.ErrNotFound))
}

func TestUpdateScore_TieKeepsWinner(t *testing.T) {
	ctx := context.Background()
	s := New()
	key := models.GameKey{Season: 2025, Week: 3, Home: "SF", Away: "LAR"}
	require.NoError(t, s.UpsertGame(ctx, key, nil))

	n, err := s.UpdateScore(ctx, key, 20, 20, models.WinnerUnset)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	g, err := s.GetGame(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, models.WinnerUnset, g.Winner)
	assert.Equal(t, 20, *g.AwayScore)

	n, err = s.UpdateScore(ctx, models.GameKey{Season: 2025, Week: 3, Home: "X", Away: "Y"}, 1, 0, models.WinnerHome)
	require.NoError(t, err)
	assert.Equal(t, int64(0), n)
}

func TestWeeksNeedingScores(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2025, 9, 20, 0, 0, 0, 0, time.UTC)
	past := now.Add(-48 * time.Hour)
	future := now.Add(48 * time.Hour)

	require.NoError(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 2, Home: "A", Away: "B"}, &past))
	require.NoError(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 1, Home: "C", Away: "D"}, &past))
	require.NoError(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 3, Home: "E", Away: "F"}, &future))
	require.NoError(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 4, Home: "G", Away: "H"}, nil))
	_, err := s.UpdateScore(ctx, models.GameKey{Season: 2025, Week: 1, Home: "C", Away: "D"}, 10, 3, models.WinnerHome)
	require.NoError(t, err)

	weeks, err := s.WeeksNeedingScores(ctx, 2025, now)
	require.NoError(t, err)
	assert.Equal(t, []int{2}, weeks)
}

func TestFailOn(t *testing.T) {
	ctx := context.Background()
	s := New()
	boom := errors.New("boom")

	s.FailOn("UpsertGame", boom)
	assert.ErrorIs(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 1, Home: "A", Away: "B"}, nil), boom)

	s.FailOn("UpsertGame", nil)
	assert.NoError(t, s.UpsertGame(ctx, models.GameKey{Season: 2025, Week: 1, Home: "A", Away: "B"}, nil))
	assert.Equal(t, 2, s.Calls().UpsertGame)
}
