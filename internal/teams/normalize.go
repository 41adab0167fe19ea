package teams

import "strings"

// aliases maps every spelling seen in upstream feeds (PFR, nflverse, ESPN)
// to the canonical code stored on games.
var aliases = map[string]string{
	"ARI": "ARI", "ATL": "ATL", "BAL": "BAL", "BUF": "BUF",
	"CAR": "CAR", "CHI": "CHI", "CIN": "CIN", "CLE": "CLE",
	"DAL": "DAL", "DEN": "DEN", "DET": "DET", "GB": "GB", "GNB": "GB",
	"HOU": "HOU", "IND": "IND", "JAX": "JAX", "JAC": "JAX",
	"KC": "KC", "KAN": "KC", "LAC": "LAC", "LAR": "LAR",
	"LV": "LV", "LVR": "LV", "MIA": "MIA", "MIN": "MIN",
	"NE": "NE", "NWE": "NE", "NO": "NO", "NOR": "NO",
	"NYG": "NYG", "NYJ": "NYJ", "PHI": "PHI", "PIT": "PIT",
	"SEA": "SEA", "SF": "SF", "SFO": "SF", "TB": "TB", "TAM": "TB",
	"TEN": "TEN", "WAS": "WAS", "WSH": "WAS",
}

// Normalize returns the canonical team code for an abbreviation.
// Unknown codes are upper-cased and passed through; empty input yields "".
func Normalize(code string) string {
	c := strings.ToUpper(strings.TrimSpace(code))
	if c == "" {
		return ""
	}
	if canonical, ok := aliases[c]; ok {
		return canonical
	}
	return c
}

// Canonical reports whether code is one of the current franchise codes.
func Canonical(code string) bool {
	c, ok := aliases[code]
	return ok && c == code
}
