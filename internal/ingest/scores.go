package ingest

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"nflpickem/ingestion/internal/client"
	"nflpickem/ingestion/internal/metrics"
	"nflpickem/ingestion/internal/models"

	"github.com/rs/zerolog/log"
	"github.com/sourcegraph/conc/pool"
)

// ScoreSource selects the score feed.
type ScoreSource string

const (
	SourceNflverse ScoreSource = "nflverse"
	SourceESPN     ScoreSource = "espn"
)

// ParseScoreSource parses a source name. Empty selects nflverse.
func ParseScoreSource(s string) (ScoreSource, error) {
	switch ScoreSource(strings.ToLower(strings.TrimSpace(s))) {
	case "", SourceNflverse:
		return SourceNflverse, nil
	case SourceESPN:
		return SourceESPN, nil
	default:
		return "", fmt.Errorf("%w: unknown score source %q", ErrInvalidInput, s)
	}
}

// ScoreRequest selects what ApplyScores reconciles. Week 0 means unset.
type ScoreRequest struct {
	Season   int
	Week     int
	AllWeeks bool
	Source   ScoreSource
}

// ScoreResult summarizes a score reconciliation.
type ScoreResult struct {
	Season  int         `json:"season"`
	Weeks   []int       `json:"weeks"`
	Updated int         `json:"updated"`
	ByWeek  map[int]int `json:"by_week"`
	Skipped int         `json:"skipped"`
}

// ApplyScores pulls scores from the requested source and writes them onto the
// known games of the target weeks.
func (s *Service) ApplyScores(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	start := time.Now()
	if req.Source == "" {
		req.Source = SourceNflverse
	}
	result, err := s.applyScores(ctx, req)
	status := "success"
	if err != nil {
		status = "error"
		metrics.RecordError("scores", errorType(err))
	}
	metrics.RecordSync("scores_"+string(req.Source), status, time.Since(start).Seconds())
	return result, err
}

func (s *Service) applyScores(ctx context.Context, req ScoreRequest) (ScoreResult, error) {
	result := ScoreResult{Season: req.Season, Weeks: []int{}, ByWeek: map[int]int{}}
	if req.Season <= 0 {
		return result, fmt.Errorf("%w: season must be positive", ErrInvalidInput)
	}
	if req.Week < 0 {
		return result, fmt.Errorf("%w: week must be positive", ErrInvalidInput)
	}

	var (
		rows    []models.ScoreRow
		weeks   []int
		skipped int
		err     error
	)
	switch req.Source {
	case SourceNflverse:
		rows, weeks, skipped, err = s.nflverseScores(ctx, req)
	case SourceESPN:
		rows, weeks, skipped, err = s.espnScores(ctx, req)
	default:
		err = fmt.Errorf("%w: unknown score source %q", ErrInvalidInput, req.Source)
	}
	if err != nil {
		return result, err
	}
	result.Weeks = weeks
	result.Skipped = skipped

	byWeek := make(map[int][]models.ScoreRow)
	for _, row := range rows {
		byWeek[row.Week] = append(byWeek[row.Week], row)
	}

	for _, week := range weeks {
		result.ByWeek[week] = 0
		batch := byWeek[week]
		if len(batch) == 0 {
			continue
		}

		keys, err := s.store.GameKeys(ctx, req.Season, week)
		if err != nil {
			return result, fmt.Errorf("failed to load games for week %d: %w", week, err)
		}
		known := make(map[models.Pair]bool, len(keys))
		for _, k := range keys {
			known[k.Pair()] = true
		}

		for _, row := range batch {
			if !known[row.Pair()] {
				result.Skipped++
				log.Debug().
					Int("season", req.Season).
					Int("week", week).
					Str("home", row.Home).
					Str("away", row.Away).
					Msg("Skipping score for unknown game")
				continue
			}

			key := models.GameKey{Season: req.Season, Week: week, Home: row.Home, Away: row.Away}
			n, err := s.store.UpdateScore(ctx, key, row.HomeScore, row.AwayScore, row.Winner())
			if err != nil {
				return result, fmt.Errorf("failed to update score for %s: %w", key, err)
			}
			result.Updated += int(n)
			result.ByWeek[week] += int(n)
			metrics.RecordScoresApplied(int(n))
		}
	}

	metrics.RecordSkippedRows("score", result.Skipped)
	log.Info().
		Int("season", req.Season).
		Ints("weeks", result.Weeks).
		Int("updated", result.Updated).
		Int("skipped", result.Skipped).
		Str("source", string(req.Source)).
		Msg("Scores applied")

	return result, nil
}

func (s *Service) nflverseScores(ctx context.Context, req ScoreRequest) ([]models.ScoreRow, []int, int, error) {
	records, err := s.fetcher.FetchCSV(ctx, s.opts.ScoreFeedURL)
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to fetch score feed: %w", err)
	}

	var (
		rows    []models.ScoreRow
		skipped int
	)
	feedWeeks := make(map[int]bool)
	for _, rec := range records {
		season, ok := parseInt(rec.Pick(seasonFields...))
		if !ok || season != req.Season {
			continue
		}
		if week, ok := parseInt(rec.Pick(weekFields...)); ok {
			feedWeeks[week] = true
		}

		row, ok := ResolveScoreRow(rec)
		if !ok {
			skipped++
			continue
		}
		rows = append(rows, row)
	}

	var weeks []int
	switch {
	case req.Week > 0:
		weeks = []int{req.Week}
	case req.AllWeeks:
		weeks = sortedKeys(feedWeeks)
	default:
		weeks, err = s.store.WeeksNeedingScores(ctx, req.Season, s.opts.Now())
		if err != nil {
			return nil, nil, 0, fmt.Errorf("failed to find weeks needing scores: %w", err)
		}
	}

	// rows outside the target weeks are not part of this run
	target := make(map[int]bool, len(weeks))
	for _, w := range weeks {
		target[w] = true
	}
	kept := rows[:0]
	for _, row := range rows {
		if target[row.Week] {
			kept = append(kept, row)
		}
	}

	return kept, nonNil(weeks), skipped, nil
}

func (s *Service) espnScores(ctx context.Context, req ScoreRequest) ([]models.ScoreRow, []int, int, error) {
	var (
		weeks []int
		err   error
	)
	switch {
	case req.Week > 0:
		weeks = []int{req.Week}
	case req.AllWeeks:
		weeks, err = s.store.ListWeeks(ctx, req.Season)
	default:
		weeks, err = s.store.WeeksNeedingScores(ctx, req.Season, s.opts.Now())
	}
	if err != nil {
		return nil, nil, 0, fmt.Errorf("failed to select weeks: %w", err)
	}
	if len(weeks) == 0 {
		return nil, []int{}, 0, nil
	}

	type weekRows struct {
		rows    []models.ScoreRow
		skipped int
	}

	p := pool.NewWithResults[weekRows]().
		WithContext(ctx).
		WithMaxGoroutines(s.opts.ESPNConcurrency).
		WithCancelOnError()
	for _, week := range weeks {
		p.Go(func(ctx context.Context) (weekRows, error) {
			board, err := s.fetcher.FetchScoreboard(ctx, s.opts.ScoreboardURL, req.Season, week)
			if err != nil {
				return weekRows{}, fmt.Errorf("failed to fetch scoreboard for week %d: %w", week, err)
			}
			rows, skipped := ScoreboardToRows(board, req.Season, week)

			// pre-game entries carry no score yet
			live := rows[:0]
			for _, row := range rows {
				if row.State == models.StatePre {
					continue
				}
				row.Season, row.Week = req.Season, week
				live = append(live, row)
			}
			return weekRows{rows: live, skipped: skipped}, nil
		})
	}

	results, err := p.Wait()
	if err != nil {
		return nil, nil, 0, err
	}

	var (
		rows    []models.ScoreRow
		skipped int
	)
	for _, r := range results {
		rows = append(rows, r.rows...)
		skipped += r.skipped
	}
	sort.SliceStable(rows, func(i, j int) bool { return rows[i].Week < rows[j].Week })

	return rows, weeks, skipped, nil
}

// ScoreboardRows fetches the ESPN scoreboard and returns its normalized rows.
// Zero season or week asks ESPN for the current slate.
func (s *Service) ScoreboardRows(ctx context.Context, season, week int) ([]models.ScoreRow, error) {
	board, err := s.fetcher.FetchScoreboard(ctx, s.opts.ScoreboardURL, season, week)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch scoreboard: %w", err)
	}
	rows, _ := ScoreboardToRows(board, season, week)
	return rows, nil
}

// ScoreboardToRows converts scoreboard events into score rows. Season and week
// come from the event, then the board, then the given fallbacks. Events
// without both teams or with non-numeric scores are skipped.
func ScoreboardToRows(board *client.Scoreboard, season, week int) ([]models.ScoreRow, int) {
	rows := make([]models.ScoreRow, 0, len(board.Events))
	skipped := 0

	boardSeason := firstNonZero(board.SeasonYear(), season)
	boardWeek := firstNonZero(board.WeekNumber(), week)

	for _, ev := range board.Events {
		if len(ev.Competitions) == 0 {
			skipped++
			continue
		}
		comp := ev.Competitions[0]

		var home, away *client.ESPNCompetitor
		for i := range comp.Competitors {
			switch comp.Competitors[i].HomeAway {
			case "home":
				home = &comp.Competitors[i]
			case "away":
				away = &comp.Competitors[i]
			}
		}
		if home == nil || away == nil {
			skipped++
			continue
		}

		homeCode := normalizeTeam(home.Team.Code())
		awayCode := normalizeTeam(away.Team.Code())
		homeScore, okHome := parseScore(home.Score)
		awayScore, okAway := parseScore(away.Score)
		if homeCode == "" || awayCode == "" || !okHome || !okAway {
			skipped++
			continue
		}

		row := models.ScoreRow{
			Season:    boardSeason,
			Week:      boardWeek,
			Home:      homeCode,
			Away:      awayCode,
			HomeScore: homeScore,
			AwayScore: awayScore,
			State:     eventState(ev, comp),
		}
		if ev.Season != nil && ev.Season.Year != 0 {
			row.Season = ev.Season.Year
		}
		if ev.Week != nil && ev.Week.Number != 0 {
			row.Week = ev.Week.Number
		}
		rows = append(rows, row)
	}

	return rows, skipped
}

func eventState(ev client.ESPNEvent, comp client.ESPNCompetition) models.ScoreState {
	state := comp.Status.Type.State
	if state == "" {
		state = ev.Status.Type.State
	}
	switch models.ScoreState(strings.ToLower(state)) {
	case models.StatePost:
		return models.StatePost
	case models.StateIn:
		return models.StateIn
	default:
		return models.StatePre
	}
}

// parseScore treats a missing score as 0, matching ESPN's pre-game payloads.
func parseScore(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return parseInt(s)
	}
	return n, true
}

func firstNonZero(vals ...int) int {
	for _, v := range vals {
		if v != 0 {
			return v
		}
	}
	return 0
}

func sortedKeys(m map[int]bool) []int {
	keys := make([]int, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

func nonNil(weeks []int) []int {
	if weeks == nil {
		return []int{}
	}
	return weeks
}
