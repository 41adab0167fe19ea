package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/config"
	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/ingest"
	"nflpickem/ingestion/internal/models"
	"nflpickem/ingestion/internal/repository/memory"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	scheduleURL = "http://feed.test/games.csv"
	boardURL    = "http://feed.test/scoreboard"
	cronSecret  = "cron-s3cret"
	hookSecret  = "hook-s3cret"
)

const gamesCSV = `game_id,season,game_type,week,gameday,weekday,gametime,away_team,away_score,home_team,home_score
2025_01_BAL_BUF,2025,REG,1,2025-09-07,Sunday,20:20,BAL,40,BUF,41
2025_01_LAC_KC,2025,REG,1,2025-09-05,Friday,20:00,LAC,21,KC,27
2025_01_NYG_WAS,2025,REG,1,2025-09-07,Sunday,13:00,NYG,6,WAS,21
2024_01_NYG_WAS,2024,REG,1,2024-09-08,Sunday,13:00,NYG,18,WAS,28
`

type fakeFetcher struct {
	csv      string
	csvErr   error
	board    *client.Scoreboard
	boardErr error
}

func (f *fakeFetcher) FetchCSV(ctx context.Context, url string) ([]feed.Record, error) {
	if f.csvErr != nil {
		return nil, f.csvErr
	}
	return feed.ParseCSV(f.csv), nil
}

func (f *fakeFetcher) FetchScoreboard(ctx context.Context, url string, season, week int) (*client.Scoreboard, error) {
	if f.boardErr != nil {
		return nil, f.boardErr
	}
	if f.board == nil {
		return &client.Scoreboard{}, nil
	}
	return f.board, nil
}

type failingHealth struct{}

func (failingHealth) Health(ctx context.Context) error { return errors.New("down") }

type testEnv struct {
	store   *memory.Store
	fetcher *fakeFetcher
	cfg     *config.Config
	router  http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	store := memory.New()
	fetcher := &fakeFetcher{csv: gamesCSV}
	cfg := &config.Config{
		ScheduleSeason:   2025,
		CronSecret:       cronSecret,
		WebhookSecret:    hookSecret,
		CORSAllowOrigins: []string{"*"},
	}
	svc := ingest.NewService(store, fetcher, nil, ingest.Options{
		ScheduleFeedURL: scheduleURL,
		ScoreFeedURL:    scheduleURL,
		ScoreboardURL:   boardURL,
		Rand:            rand.New(rand.NewSource(1)),
		Now:             func() time.Time { return time.Date(2025, 9, 6, 0, 0, 0, 0, time.UTC) },
	})
	return &testEnv{store: store, fetcher: fetcher, cfg: cfg, router: NewRouter(svc, store, cfg)}
}

func (e *testEnv) do(method, target, body string, headers map[string]string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func (e *testEnv) cron(target string) *httptest.ResponseRecorder {
	return e.do(http.MethodPost, target, "", map[string]string{CronSecretHeader: cronSecret})
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "healthy", decode(t, rec)["status"])

	rec = env.do(http.MethodGet, "/health/db", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "connected", decode(t, rec)["database"])
}

func TestHealthDB_Unavailable(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(nil, failingHealth{}, env.cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health/db", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestCronRequiresSecret(t *testing.T) {
	env := newTestEnv(t)

	for _, path := range []string{"/api/cron/import-schedule", "/api/cron/score", "/api/cron/tiebreakers"} {
		rec := env.do(http.MethodPost, path, "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
		assert.Equal(t, "unauthorized", decode(t, rec)["error"])

		rec = env.do(http.MethodPost, path, "", map[string]string{CronSecretHeader: "wrong"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	assert.Equal(t, 0, env.store.Calls().UpsertGame)
}

func TestCronRejectedWhenSecretUnset(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.CronSecret = ""
	router := NewRouter(nil, env.store, env.cfg)

	req := httptest.NewRequest(http.MethodPost, "/api/cron/import-schedule", nil)
	req.Header.Set(CronSecretHeader, "")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestImportSchedule(t *testing.T) {
	env := newTestEnv(t)

	rec := env.cron("/api/cron/import-schedule")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(2025), body["season"])
	assert.Equal(t, float64(3), body["count"])
	assert.Equal(t, float64(1), body["weeks"])
	assert.Equal(t, map[string]interface{}{"assigned": float64(1), "skipped": float64(0)}, body["tiebreakers"])

	games, err := env.store.ListGamesBySeason(context.Background(), 2025)
	require.NoError(t, err)
	assert.Len(t, games, 3)
}

func TestImportSchedule_Errors(t *testing.T) {
	tests := []struct {
		name   string
		target string
		setup  func(*testEnv)
		status int
	}{
		{"bad season", "/api/cron/import-schedule?season=abc", nil, http.StatusBadRequest},
		{"negative season", "/api/cron/import-schedule?season=-1", nil, http.StatusBadRequest},
		{"no rows for season", "/api/cron/import-schedule?season=1999", nil, http.StatusNotFound},
		{"upstream failure", "/api/cron/import-schedule", func(e *testEnv) {
			e.fetcher.csvErr = &client.StatusError{URL: scheduleURL, StatusCode: 502}
		}, http.StatusInternalServerError},
		{"store failure", "/api/cron/import-schedule", func(e *testEnv) {
			e.store.FailOn("UpsertGame", errors.New("disk full"))
		}, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			if tt.setup != nil {
				tt.setup(env)
			}
			rec := env.cron(tt.target)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, decode(t, rec)["error"])
		})
	}
}

func TestSyncScores(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.cron("/api/cron/import-schedule").Code)

	rec := env.cron("/api/cron/score?week=1")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	assert.Equal(t, float64(3), body["updated"])
	assert.Equal(t, []interface{}{float64(1)}, body["weeks"])
	assert.Equal(t, map[string]interface{}{"1": float64(3)}, body["by_week"])

	game, err := env.store.GetGame(context.Background(), models.GameKey{Season: 2025, Week: 1, Home: "BUF", Away: "BAL"})
	require.NoError(t, err)
	assert.Equal(t, models.WinnerHome, game.Winner)
}

func TestSyncScores_BadParams(t *testing.T) {
	env := newTestEnv(t)

	assert.Equal(t, http.StatusBadRequest, env.cron("/api/cron/score?week=zero").Code)
	assert.Equal(t, http.StatusBadRequest, env.cron("/api/cron/score?source=yahoo").Code)
}

func TestSyncScores_ESPN(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.cron("/api/cron/import-schedule").Code)
	env.fetcher.board = &client.Scoreboard{Events: []client.ESPNEvent{{
		Competitions: []client.ESPNCompetition{{
			Competitors: []client.ESPNCompetitor{
				{HomeAway: "home", Score: "10", Team: client.ESPNTeam{Abbreviation: "WSH"}},
				{HomeAway: "away", Score: "3", Team: client.ESPNTeam{Abbreviation: "NYG"}},
			},
			Status: client.ESPNStatus{Type: client.ESPNStatusType{State: "in"}},
		}},
	}}}

	rec := env.cron("/api/cron/score?week=1&source=espn")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(1), decode(t, rec)["updated"])

	game, err := env.store.GetGame(context.Background(), models.GameKey{Season: 2025, Week: 1, Home: "WAS", Away: "NYG"})
	require.NoError(t, err)
	assert.Equal(t, 10, *game.HomeScore)
	assert.Equal(t, models.WinnerUnset, game.Winner)
}

func TestEnsureTiebreakers(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.cron("/api/cron/import-schedule").Code)

	rec := env.cron("/api/cron/tiebreakers?season=2025")
	require.Equal(t, http.StatusOK, rec.Code)

	body := decode(t, rec)
	assert.Equal(t, float64(0), body["assigned"])
	assert.Equal(t, float64(1), body["skipped"])
}

func TestNflverseAdapter(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/adapters/nflverse?season=2025", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/csv")

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, strings.Join(feed.CanonicalHeader, ","), lines[0])
	assert.Contains(t, rec.Body.String(), "2025,1,2025-09-07T20:20:00Z,BUF,BAL,false")

	rec = env.do(http.MethodGet, "/api/adapters/nflverse?season=1999", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestESPNAdapter(t *testing.T) {
	env := newTestEnv(t)
	env.fetcher.board = &client.Scoreboard{
		Season: &client.ESPNSeason{Year: 2025},
		Week:   &client.ESPNWeek{Number: 2},
		Events: []client.ESPNEvent{{
			Competitions: []client.ESPNCompetition{{
				Competitors: []client.ESPNCompetitor{
					{HomeAway: "home", Score: "27", Team: client.ESPNTeam{Abbreviation: "GB"}},
					{HomeAway: "away", Score: "18", Team: client.ESPNTeam{Abbreviation: "WSH"}},
				},
				Status: client.ESPNStatus{Type: client.ESPNStatusType{State: "post"}},
			}},
		}},
	}

	rec := env.do(http.MethodGet, "/api/adapters/espn", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []models.ScoreRow
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &rows))
	assert.Equal(t, []models.ScoreRow{{
		Season: 2025, Week: 2, Home: "GB", Away: "WAS",
		HomeScore: 27, AwayScore: 18, State: models.StatePost,
	}}, rows)

	env.fetcher.boardErr = &client.StatusError{URL: boardURL, StatusCode: 500}
	rec = env.do(http.MethodGet, "/api/adapters/espn?season=2025&week=2", "", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)

	rec = env.do(http.MethodGet, "/api/adapters/espn?week=x", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestScoreWebhook(t *testing.T) {
	env := newTestEnv(t)
	require.Equal(t, http.StatusOK, env.cron("/api/cron/import-schedule").Code)
	auth := map[string]string{WebhookSecretHeader: hookSecret}

	rec := env.do(http.MethodPost, "/api/webhooks/score", `{}`, map[string]string{WebhookSecretHeader: "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = env.do(http.MethodPost, "/api/webhooks/score", `{not json`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/webhooks/score", `{"season":2025,"week":1,"home":"KC"}`, auth)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(http.MethodPost, "/api/webhooks/score",
		`{"season":2025,"week":1,"home":"DEN","away":"LV","home_score":1,"away_score":0}`, auth)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(http.MethodPost, "/api/webhooks/score",
		`{"season":2025,"week":1,"home":"kan","away":"LAC","home_score":27,"away_score":21}`, auth)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	body := decode(t, rec)
	assert.Equal(t, true, body["ok"])
	game := body["game"].(map[string]interface{})
	assert.Equal(t, "KC", game["home"])
	assert.Equal(t, "HOME", game["winner"])
	assert.Equal(t, float64(27), game["home_score"])
}

func TestCurrentWeek(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(http.MethodGet, "/api/weeks/current", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, map[string]interface{}{"season": float64(2025), "week": float64(1)}, decode(t, rec))

	require.Equal(t, http.StatusOK, env.cron("/api/cron/import-schedule").Code)
	rec = env.do(http.MethodGet, "/api/weeks/current?season=2025", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), decode(t, rec)["week"])
}

func TestRateLimit(t *testing.T) {
	env := newTestEnv(t)
	env.cfg.RateLimitRequests = 2
	env.cfg.RateLimitWindow = time.Minute
	router := NewRouter(nil, env.store, env.cfg)

	call := func() int {
		req := httptest.NewRequest(http.MethodGet, "/health", nil)
		req.RemoteAddr = "10.0.0.1:5555"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		return rec.Code
	}

	assert.Equal(t, http.StatusOK, call())
	assert.Equal(t, http.StatusTooManyRequests, call())
}

type panickingService struct{ Service }

func (panickingService) CurrentWeek(ctx context.Context, season int) (int, error) {
	panic("boom")
}

func TestRecoverer(t *testing.T) {
	env := newTestEnv(t)
	router := NewRouter(panickingService{}, env.store, env.cfg)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/weeks/current", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestStatusFor(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("wrap: %w", ingest.ErrInvalidInput), http.StatusBadRequest},
		{fmt.Errorf("wrap: %w", ingest.ErrNoRows), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", models.ErrNotFound), http.StatusNotFound},
		{&client.StatusError{StatusCode: 503}, http.StatusInternalServerError},
		{errors.New("anything"), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, statusFor(tt.err), tt.err.Error())
	}
}
