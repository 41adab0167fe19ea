package ingest

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"nflpickem/ingestion/internal/feed"
	"nflpickem/ingestion/internal/models"
	"nflpickem/ingestion/internal/teams"

	"github.com/rs/zerolog/log"
)

// Field aliases in priority order. Headers are lower-cased by the parser.
var (
	seasonFields  = []string{"season", "year"}
	weekFields    = []string{"week", "game_week"}
	homeFields    = []string{"home_team", "home", "team_home", "team_h"}
	awayFields    = []string{"away_team", "away", "team_away", "team_a"}
	kickoffFields = []string{"kickoff", "start_time", "game_datetime", "gamedatetime", "game_time_eastern", "starttime"}
	dateFields    = []string{"gameday", "date", "game_date"}
	timeFields    = []string{"gametime", "time", "game_time", "game_time_eastern"}

	homeScoreFields = []string{"home_score", "home_pts", "home_points", "home_score_total"}
	awayScoreFields = []string{"away_score", "away_pts", "away_points", "away_score_total"}
	scoreHomeFields = []string{"home_team", "home"}
	scoreAwayFields = []string{"away_team", "away"}
)

var clockHHMM = regexp.MustCompile(`^\d{1,2}:\d{2}$`)

// ResolveScheduleRow maps a feed record onto a schedule row. ok is false when
// season, week, home or away cannot be resolved.
func ResolveScheduleRow(rec feed.Record) (models.ScheduleRow, bool) {
	season, ok := parseInt(rec.Pick(seasonFields...))
	if !ok {
		return models.ScheduleRow{}, false
	}
	week, ok := parseInt(rec.Pick(weekFields...))
	if !ok {
		return models.ScheduleRow{}, false
	}
	home := normalizeTeam(rec.Pick(homeFields...))
	away := normalizeTeam(rec.Pick(awayFields...))
	if home == "" || away == "" {
		return models.ScheduleRow{}, false
	}

	return models.ScheduleRow{
		Season:       season,
		Week:         week,
		Home:         home,
		Away:         away,
		Kickoff:      ResolveKickoff(rec),
		IsTiebreaker: parseBool(rec.Pick("is_tiebreaker")),
	}, true
}

// ResolveKickoff returns the kickoff string of a record, or "" when none of
// the kickoff fields yields a value starting with YYYY-MM-DD.
func ResolveKickoff(rec feed.Record) string {
	if combined := rec.Pick(kickoffFields...); models.HasDatePrefix(combined) {
		return combined
	}
	return ComposeKickoff(rec.Pick(dateFields...), rec.Pick(timeFields...))
}

// ComposeKickoff joins a date and a clock time into date+"T"+time+"Z".
// HH:MM is padded to HH:MM:00. The result must start with YYYY-MM-DD.
func ComposeKickoff(date, clock string) string {
	date = strings.TrimSpace(date)
	clock = strings.TrimSpace(clock)
	if date == "" || clock == "" {
		return ""
	}
	if clockHHMM.MatchString(clock) {
		clock += ":00"
	}
	composed := date + "T" + clock + "Z"
	if !models.HasDatePrefix(composed) {
		return ""
	}
	return composed
}

// ParseKickoff parses a resolved kickoff string. Unparseable values are nil.
func ParseKickoff(s string) *time.Time {
	return models.ParseKickoff(s)
}

// ResolveScoreRow maps a score feed record onto a score row. ok is false when
// season, week, teams or either score is missing or non-numeric.
func ResolveScoreRow(rec feed.Record) (models.ScoreRow, bool) {
	season, ok := parseInt(rec.Pick(seasonFields...))
	if !ok {
		return models.ScoreRow{}, false
	}
	week, ok := parseInt(rec.Pick(weekFields...))
	if !ok {
		return models.ScoreRow{}, false
	}
	home := normalizeTeam(rec.Pick(scoreHomeFields...))
	away := normalizeTeam(rec.Pick(scoreAwayFields...))
	if home == "" || away == "" {
		return models.ScoreRow{}, false
	}
	homeScore, ok := parseInt(rec.Pick(homeScoreFields...))
	if !ok {
		return models.ScoreRow{}, false
	}
	awayScore, ok := parseInt(rec.Pick(awayScoreFields...))
	if !ok {
		return models.ScoreRow{}, false
	}

	return models.ScoreRow{
		Season:    season,
		Week:      week,
		Home:      home,
		Away:      away,
		HomeScore: homeScore,
		AwayScore: awayScore,
	}, true
}

// parseInt accepts integers and integral floats such as "1.0".
// normalizeTeam canonicalizes a team code. Codes outside the franchise list
// still pass through so relocations don't drop games.
func normalizeTeam(code string) string {
	c := teams.Normalize(code)
	if c != "" && !teams.Canonical(c) {
		log.Debug().Str("code", c).Msg("Unknown team code")
	}
	return c
}

func parseInt(s string) (int, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	return int(f), true
}

func parseBool(s string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(s))
	return err == nil && b
}
