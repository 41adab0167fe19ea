package models

import (
	"regexp"
	"strconv"
	"time"
)

// Winner is the decided side of a game. The zero value means undecided.
type Winner string

const (
	WinnerHome  Winner = "HOME"
	WinnerAway  Winner = "AWAY"
	WinnerUnset Winner = ""
)

// WinnerFor returns the winner for a final score. Ties leave the winner unset.
func WinnerFor(home, away int) Winner {
	switch {
	case home > away:
		return WinnerHome
	case away > home:
		return WinnerAway
	default:
		return WinnerUnset
	}
}

// Week is one round of a season.
type Week struct {
	Season   int        `db:"season" json:"season"`
	Week     int        `db:"week" json:"week"`
	StartsOn *time.Time `db:"starts_on" json:"starts_on,omitempty"`
}

// Game represents one NFL matchup, keyed by (season, week, home, away)
type Game struct {
	ID           int64      `db:"id" json:"id"`
	Season       int        `db:"season" json:"season"`
	Week         int        `db:"week" json:"week"`
	Home         string     `db:"home" json:"home"`
	Away         string     `db:"away" json:"away"`
	Kickoff      *time.Time `db:"kickoff" json:"kickoff,omitempty"`
	HomeScore    *int       `db:"home_score" json:"home_score,omitempty"`
	AwayScore    *int       `db:"away_score" json:"away_score,omitempty"`
	Winner       Winner     `db:"winner" json:"winner,omitempty"`
	IsTiebreaker bool       `db:"is_tiebreaker" json:"is_tiebreaker"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// Key returns the natural key of the game
func (g *Game) Key() GameKey {
	return GameKey{Season: g.Season, Week: g.Week, Home: g.Home, Away: g.Away}
}

// GameKey is the natural key of a game.
type GameKey struct {
	Season int    `json:"season"`
	Week   int    `json:"week"`
	Home   string `json:"home"`
	Away   string `json:"away"`
}

// Pair identifies the matchup inside a week.
type Pair struct {
	Home string
	Away string
}

// Pair returns the (home, away) part of the key
func (k GameKey) Pair() Pair {
	return Pair{Home: k.Home, Away: k.Away}
}

func (k GameKey) String() string {
	return strconv.Itoa(k.Season) + "/" + strconv.Itoa(k.Week) + "/" + k.Away + "@" + k.Home
}

var datePrefix = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)

// HasDatePrefix reports whether s starts with a YYYY-MM-DD date.
func HasDatePrefix(s string) bool {
	return datePrefix.MatchString(s)
}

// ScheduleRow is one resolved schedule feed row.
type ScheduleRow struct {
	Season       int    `json:"season"`
	Week         int    `json:"week"`
	Home         string `json:"home"`
	Away         string `json:"away"`
	Kickoff      string `json:"kickoff,omitempty"`
	IsTiebreaker bool   `json:"is_tiebreaker"`
}

// Key returns the natural key of the row
func (r ScheduleRow) Key() GameKey {
	return GameKey{Season: r.Season, Week: r.Week, Home: r.Home, Away: r.Away}
}

// KickoffDate returns the YYYY-MM-DD prefix of the kickoff, or "".
func (r ScheduleRow) KickoffDate() string {
	if !HasDatePrefix(r.Kickoff) {
		return ""
	}
	return r.Kickoff[:10]
}

// KickoffAt parses the kickoff string. Unparseable values yield nil.
func (r ScheduleRow) KickoffAt() *time.Time {
	return ParseKickoff(r.Kickoff)
}

var kickoffLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05Z",
	"2006-01-02T15:04:05",
	"2006-01-02T15:04Z",
	"2006-01-02T15:04",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseKickoff parses the kickoff formats seen in schedule feeds.
// Values without a zone are taken as UTC.
func ParseKickoff(s string) *time.Time {
	if !HasDatePrefix(s) {
		return nil
	}
	for _, layout := range kickoffLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			utc := t.UTC()
			return &utc
		}
	}
	return nil
}

// ScoreState is the progress of a game as reported by the scoreboard.
type ScoreState string

const (
	StatePre  ScoreState = "pre"
	StateIn   ScoreState = "in"
	StatePost ScoreState = "post"
)

// ScoreRow is one resolved score feed row.
type ScoreRow struct {
	Season    int        `json:"season"`
	Week      int        `json:"week"`
	Home      string     `json:"home"`
	Away      string     `json:"away"`
	HomeScore int        `json:"home_score"`
	AwayScore int        `json:"away_score"`
	State     ScoreState `json:"state,omitempty"`
}

// Pair returns the matchup of the row
func (r ScoreRow) Pair() Pair {
	return Pair{Home: r.Home, Away: r.Away}
}

// Winner returns the winner to record for this row. Rows from a source that
// reports state only decide a winner once the game is final.
func (r ScoreRow) Winner() Winner {
	if r.State != "" && r.State != StatePost {
		return WinnerUnset
	}
	return WinnerFor(r.HomeScore, r.AwayScore)
}

// ScoreUpdate is a single pushed result.
type ScoreUpdate struct {
	Season    int    `json:"season"`
	Week      int    `json:"week"`
	Home      string `json:"home"`
	Away      string `json:"away"`
	HomeScore *int   `json:"home_score"`
	AwayScore *int   `json:"away_score"`
}
