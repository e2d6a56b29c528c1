package podds

import (
	"fmt"
	"strings"
	"time"
)

// Match is one historical fixture as published by football-data.co.uk.
// Optional numeric fields hold -1 when the source did not carry them
type Match struct {
	// Primary key
	ID string `json:"id" column:"id" dbtype:"TEXT" primary:"true" index:"true"`
	// Info
	Div      string    `json:"div" column:"div" dbtype:"TEXT" index:"true"`
	Date     time.Time `json:"date" column:"date" dbtype:"DATETIME" index:"true"`
	HomeTeam string    `json:"homeTeam" column:"homeTeam" dbtype:"TEXT NOT NULL" index:"true"`
	AwayTeam string    `json:"awayTeam" column:"awayTeam" dbtype:"TEXT NOT NULL" index:"true"`
	Source   string    `json:"source,omitempty" column:"source" dbtype:"TEXT"`

	// Result (FTHG, FTAG, HTHG, HTAG)
	HomeGoals         int `json:"homeGoals" column:"homeGoals" dbtype:"INTEGER DEFAULT -1"`
	AwayGoals         int `json:"awayGoals" column:"awayGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeHomeGoals int `json:"halfTimeHomeGoals" column:"halfTimeHomeGoals" dbtype:"INTEGER DEFAULT -1"`
	HalfTimeAwayGoals int `json:"halfTimeAwayGoals" column:"halfTimeAwayGoals" dbtype:"INTEGER DEFAULT -1"`

	// Action (HC, AC)
	HomeCorners int `json:"homeCorners" column:"homeCorners" dbtype:"INTEGER DEFAULT -1"`
	AwayCorners int `json:"awayCorners" column:"awayCorners" dbtype:"INTEGER DEFAULT -1"`

	// Discipline (HY, AY, HR, AR, HF, AF)
	HomeYellowCards int `json:"homeYellowCards" column:"homeYellowCards" dbtype:"INTEGER DEFAULT -1"`
	AwayYellowCards int `json:"awayYellowCards" column:"awayYellowCards" dbtype:"INTEGER DEFAULT -1"`
	HomeRedCards    int `json:"homeRedCards" column:"homeRedCards" dbtype:"INTEGER DEFAULT -1"`
	AwayRedCards    int `json:"awayRedCards" column:"awayRedCards" dbtype:"INTEGER DEFAULT -1"`
	HomeFouls       int `json:"homeFouls" column:"homeFouls" dbtype:"INTEGER DEFAULT -1"`
	AwayFouls       int `json:"awayFouls" column:"awayFouls" dbtype:"INTEGER DEFAULT -1"`

	// Average market odds
	HomeOdds    float64 `json:"homeOdds" column:"homeOdds" dbtype:"REAL DEFAULT -1.0"`
	DrawOdds    float64 `json:"drawOdds" column:"drawOdds" dbtype:"REAL DEFAULT -1.0"`
	AwayOdds    float64 `json:"awayOdds" column:"awayOdds" dbtype:"REAL DEFAULT -1.0"`
	Over25Odds  float64 `json:"over25Odds" column:"over25Odds" dbtype:"REAL DEFAULT -1.0"`
	Under25Odds float64 `json:"under25Odds" column:"under25Odds" dbtype:"REAL DEFAULT -1.0"`
}

// NewMatch creates a match with every optional value marked absent
func NewMatch() *Match {
	return &Match{
		HomeGoals:         -1,
		AwayGoals:         -1,
		HalfTimeHomeGoals: -1,
		HalfTimeAwayGoals: -1,
		HomeCorners:       -1,
		AwayCorners:       -1,
		HomeYellowCards:   -1,
		AwayYellowCards:   -1,
		HomeRedCards:      -1,
		AwayRedCards:      -1,
		HomeFouls:         -1,
		AwayFouls:         -1,
		HomeOdds:          -1,
		DrawOdds:          -1,
		AwayOdds:          -1,
		Over25Odds:        -1,
		Under25Odds:       -1,
	}
}

// HasBeenPlayed returns true if the full time score is known
func (m *Match) HasBeenPlayed() bool {
	return m.HomeGoals >= 0 && m.AwayGoals >= 0
}

// Has reports whether the match carries the given optional column for both sides
func (m *Match) Has(c Column) bool {
	switch c {
	case ColumnCorners:
		return m.HomeCorners >= 0 && m.AwayCorners >= 0
	case ColumnYellowCards:
		return m.HomeYellowCards >= 0 && m.AwayYellowCards >= 0
	case ColumnFouls:
		return m.HomeFouls >= 0 && m.AwayFouls >= 0
	case ColumnMatchOdds:
		return m.HomeOdds > 0 && m.DrawOdds > 0 && m.AwayOdds > 0
	case ColumnTotalOdds:
		return m.Over25Odds > 0 && m.Under25Odds > 0
	}
	return false
}

// Involves reports whether team played in this match, in either role
func (m *Match) Involves(team string) bool {
	return SameTeam(m.HomeTeam, team) || SameTeam(m.AwayTeam, team)
}

// Played reports whether team played in this match in the given role
func (m *Match) Played(team string, venue Venue) bool {
	if venue == Home {
		return SameTeam(m.HomeTeam, team)
	}
	return SameTeam(m.AwayTeam, team)
}

// GoalsFor returns the goals scored by the side in the given role
func (m *Match) GoalsFor(venue Venue) int {
	if venue == Home {
		return m.HomeGoals
	}
	return m.AwayGoals
}

// GoalsAgainst returns the goals conceded by the side in the given role
func (m *Match) GoalsAgainst(venue Venue) int {
	return m.GoalsFor(venue.Opposite())
}

// BothScored returns true if both sides found the net
func (m *Match) BothScored() bool {
	return m.HomeGoals > 0 && m.AwayGoals > 0
}

func (m *Match) String() string {
	return fmt.Sprintf("%s %s %d-%d %s", m.Date.Format("2006-01-02"), m.HomeTeam, m.HomeGoals, m.AwayGoals, m.AwayTeam)
}

// SameTeam compares team identifiers ignoring case and surrounding whitespace
func SameTeam(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}

/////////////////////////////////////////////////////////////////////////
////// Persistable Interface Implementation
/////////////////////////////////////////////////////////////////////////

// GetPrimaryKey returns the primary key as a map
func (m *Match) GetPrimaryKey() map[string]any {
	return map[string]any{
		"id": m.ID,
	}
}

// SetPrimaryKey sets the primary key from a map
func (m *Match) SetPrimaryKey(pk map[string]any) error {
	if id, ok := pk["id"]; ok {
		if idStr, ok := id.(string); ok {
			m.ID = idStr
			return nil
		}
		return fmt.Errorf("primary key 'id' must be a string")
	}
	return fmt.Errorf("primary key 'id' not found")
}

// GetTableName returns the table name for matches
func (m *Match) GetTableName() string {
	return "match"
}

// BeforeSave derives the ID from the fixture when none was given
func (m *Match) BeforeSave() error {
	if m.HomeTeam == "" || m.AwayTeam == "" {
		return fmt.Errorf("match has no teams")
	}
	if m.ID == "" {
		m.ID = MatchID(m.Div, m.Date, m.HomeTeam, m.AwayTeam)
	}
	return nil
}

// MatchID builds a stable identifier for a fixture
func MatchID(div string, date time.Time, home, away string) string {
	slug := func(s string) string {
		return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), " ", "_")
	}
	return fmt.Sprintf("%s-%s-%s-%s", slug(div), date.Format("20060102"), slug(home), slug(away))
}

/////////////////////////////////////////////////////////////////////////
////// Columns and venues
/////////////////////////////////////////////////////////////////////////

// Column names an optional group of source columns
type Column string

const (
	ColumnCorners     Column = "corners"      // HC, AC
	ColumnYellowCards Column = "yellow_cards" // HY, AY
	ColumnFouls       Column = "fouls"        // HF, AF
	ColumnMatchOdds   Column = "match_odds"   // AvgH, AvgD, AvgA
	ColumnTotalOdds   Column = "total_odds"   // Avg>2.5, Avg<2.5
)

// AllColumns lists the optional columns in a stable order
var AllColumns = []Column{ColumnCorners, ColumnYellowCards, ColumnFouls, ColumnMatchOdds, ColumnTotalOdds}

// Venue is the role a team plays in a fixture
type Venue int

const (
	Home Venue = iota
	Away
)

// Opposite returns the other role
func (v Venue) Opposite() Venue {
	if v == Home {
		return Away
	}
	return Home
}

func (v Venue) String() string {
	if v == Home {
		return "home"
	}
	return "away"
}
