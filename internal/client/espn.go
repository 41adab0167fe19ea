package client

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
)

// Scoreboard is the subset of the ESPN scoreboard response we read
type Scoreboard struct {
	Season  *ESPNSeason  `json:"season"`
	Week    *ESPNWeek    `json:"week"`
	Leagues []ESPNLeague `json:"leagues"`
	Events  []ESPNEvent  `json:"events"`
}

// ESPNLeague carries the league-level season when the top level lacks one
type ESPNLeague struct {
	Season *ESPNSeason `json:"season"`
}

// ESPNSeason identifies the season year
type ESPNSeason struct {
	Year int `json:"year"`
	Type int `json:"type"`
}

// ESPNWeek identifies the week number
type ESPNWeek struct {
	Number int `json:"number"`
}

// ESPNEvent represents a single game event
type ESPNEvent struct {
	ID           string            `json:"id"`
	Date         string            `json:"date"`
	Season       *ESPNSeason       `json:"season"`
	Week         *ESPNWeek         `json:"week"`
	Competitions []ESPNCompetition `json:"competitions"`
	Status       ESPNStatus        `json:"status"`
}

// ESPNCompetition represents the competition details
type ESPNCompetition struct {
	ID          string           `json:"id"`
	Date        string           `json:"date"`
	Competitors []ESPNCompetitor `json:"competitors"`
	Status      ESPNStatus       `json:"status"`
}

// ESPNCompetitor represents a team in the competition
type ESPNCompetitor struct {
	ID       string   `json:"id"`
	HomeAway string   `json:"homeAway"`
	Winner   bool     `json:"winner"`
	Team     ESPNTeam `json:"team"`
	Score    string   `json:"score"`
}

// ESPNTeam represents team details
type ESPNTeam struct {
	ID               string `json:"id"`
	Name             string `json:"name"`
	Abbreviation     string `json:"abbreviation"`
	ShortDisplayName string `json:"shortDisplayName"`
}

// Code returns the best available short identifier for the team
func (t ESPNTeam) Code() string {
	switch {
	case t.Abbreviation != "":
		return t.Abbreviation
	case t.ShortDisplayName != "":
		return t.ShortDisplayName
	default:
		return t.Name
	}
}

// ESPNStatus represents the game status
type ESPNStatus struct {
	Type ESPNStatusType `json:"type"`
}

// ESPNStatusType represents the status type details
type ESPNStatusType struct {
	Name      string `json:"name"`
	State     string `json:"state"`
	Completed bool   `json:"completed"`
}

// SeasonYear returns the season of the board, falling back to the league entry
func (s *Scoreboard) SeasonYear() int {
	if s.Season != nil && s.Season.Year != 0 {
		return s.Season.Year
	}
	for _, l := range s.Leagues {
		if l.Season != nil && l.Season.Year != 0 {
			return l.Season.Year
		}
	}
	return 0
}

// WeekNumber returns the week of the board, or 0 when absent
func (s *Scoreboard) WeekNumber() int {
	if s.Week != nil {
		return s.Week.Number
	}
	return 0
}

// regularSeason is ESPN's seasontype for regular season games
const regularSeason = 2

// FetchScoreboard fetches the ESPN scoreboard. Zero season or week leaves the
// parameter off so ESPN answers with the current slate.
func (c *Client) FetchScoreboard(ctx context.Context, rawURL string, season, week int) (*Scoreboard, error) {
	params := url.Values{}
	if season > 0 {
		params.Set("season", strconv.Itoa(season))
	}
	if week > 0 {
		params.Set("week", strconv.Itoa(week))
		params.Set("seasontype", strconv.Itoa(regularSeason))
	}

	body, err := c.get(ctx, "espn", rawURL, params, "application/json")
	if err != nil {
		return nil, err
	}

	var board Scoreboard
	if err := json.Unmarshal(body, &board); err != nil {
		return nil, fmt.Errorf("failed to unmarshal scoreboard: %w", err)
	}
	return &board, nil
}
