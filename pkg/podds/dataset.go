package podds

import (
	"fmt"
	"sort"
	"strings"

	"github.com/richard-senior/podds/internal/logger"
)

// Dataset is the read-only set of played matches every prediction is computed from.
// It is built once by a loader and shared; nothing mutates it after NewDataset returns
type Dataset struct {
	matches []Match
	teams   []string
	lookup  map[string]string
	columns map[Column]bool
	means   LeagueMeans
}

// LeagueMeans holds league-wide per-match averages.
// Secondary averages are 0 when no record carried the column
type LeagueMeans struct {
	Matches       int      `json:"matches"`
	HomeGoals     float64  `json:"homeGoals"`
	AwayGoals     float64  `json:"awayGoals"`
	Corners       float64  `json:"corners"`
	YellowCards   float64  `json:"yellowCards"`
	Fouls         float64  `json:"fouls"`
	Over25Implied *float64 `json:"over25Implied,omitempty"`
}

// Goals returns the mean goals scored by sides playing in the given role
func (l LeagueMeans) Goals(venue Venue) float64 {
	if venue == Home {
		return l.HomeGoals
	}
	return l.AwayGoals
}

// PerMatch returns the mean total per match for a secondary column, 0 when unknown
func (l LeagueMeans) PerMatch(c Column) float64 {
	switch c {
	case ColumnCorners:
		return l.Corners
	case ColumnYellowCards:
		return l.YellowCards
	case ColumnFouls:
		return l.Fouls
	}
	return 0
}

// NewDataset copies the played matches, in the order given, into an immutable dataset.
// Unplayed fixtures and nil entries are ignored
func NewDataset(matches []*Match) (*Dataset, error) {
	d := &Dataset{
		lookup:  make(map[string]string),
		columns: make(map[Column]bool),
	}

	var homeGoals, awayGoals int
	var corners, cornersN, yellows, yellowsN, fouls, foulsN int
	var over25, over25N float64

	skipped := 0
	for _, m := range matches {
		if m == nil || !m.HasBeenPlayed() {
			skipped++
			continue
		}
		if strings.TrimSpace(m.HomeTeam) == "" || strings.TrimSpace(m.AwayTeam) == "" {
			skipped++
			continue
		}
		rec := *m
		rec.HomeTeam = d.canonical(rec.HomeTeam)
		rec.AwayTeam = d.canonical(rec.AwayTeam)
		d.matches = append(d.matches, rec)

		homeGoals += rec.HomeGoals
		awayGoals += rec.AwayGoals

		for _, c := range AllColumns {
			if rec.Has(c) {
				d.columns[c] = true
			}
		}
		if rec.Has(ColumnCorners) {
			corners += rec.HomeCorners + rec.AwayCorners
			cornersN++
		}
		if rec.Has(ColumnYellowCards) {
			yellows += rec.HomeYellowCards + rec.AwayYellowCards
			yellowsN++
		}
		if rec.Has(ColumnFouls) {
			fouls += rec.HomeFouls + rec.AwayFouls
			foulsN++
		}
		if p, ok := rec.Over25Implied(); ok {
			over25 += p
			over25N++
		}
	}

	if len(d.matches) == 0 {
		return nil, fmt.Errorf("failed to build dataset from %d records: %w", len(matches), ErrEmptyDataset)
	}

	n := float64(len(d.matches))
	d.means = LeagueMeans{
		Matches:   len(d.matches),
		HomeGoals: float64(homeGoals) / n,
		AwayGoals: float64(awayGoals) / n,
	}
	if cornersN > 0 {
		d.means.Corners = float64(corners) / float64(cornersN)
	}
	if yellowsN > 0 {
		d.means.YellowCards = float64(yellows) / float64(yellowsN)
	}
	if foulsN > 0 {
		d.means.Fouls = float64(fouls) / float64(foulsN)
	}
	if over25N > 0 {
		mean := over25 / over25N
		d.means.Over25Implied = &mean
	}

	sort.Strings(d.teams)

	logger.Debug(fmt.Sprintf("Dataset built with %d matches, %d teams, %d records skipped",
		len(d.matches), len(d.teams), skipped))
	return d, nil
}

// canonical returns the first seen spelling of a team, registering it when new
func (d *Dataset) canonical(team string) string {
	team = strings.TrimSpace(team)
	key := strings.ToLower(team)
	if existing, ok := d.lookup[key]; ok {
		return existing
	}
	d.lookup[key] = team
	d.teams = append(d.teams, team)
	return team
}

// Len returns the number of matches in the dataset
func (d *Dataset) Len() int {
	return len(d.matches)
}

// Matches returns a copy of the matches in dataset order
func (d *Dataset) Matches() []Match {
	out := make([]Match, len(d.matches))
	copy(out, d.matches)
	return out
}

// Teams returns every team identifier, sorted
func (d *Dataset) Teams() []string {
	out := make([]string, len(d.teams))
	copy(out, d.teams)
	return out
}

// Team resolves an identifier to the dataset's spelling
func (d *Dataset) Team(name string) (string, bool) {
	team, ok := d.lookup[strings.ToLower(strings.TrimSpace(name))]
	return team, ok
}

// HasTeam returns true if the team played at least one match
func (d *Dataset) HasTeam(name string) bool {
	_, ok := d.Team(name)
	return ok
}

// HasColumn returns true if at least one record carried the column
func (d *Dataset) HasColumn(c Column) bool {
	return d.columns[c]
}

// Columns lists the optional columns present in the source
func (d *Dataset) Columns() []Column {
	var out []Column
	for _, c := range AllColumns {
		if d.columns[c] {
			out = append(out, c)
		}
	}
	return out
}

// Means returns the league-wide averages
func (d *Dataset) Means() LeagueMeans {
	return d.means
}

// TeamMatches returns the last k matches team played in the given role, oldest first.
// k <= 0 returns all of them
func (d *Dataset) TeamMatches(team string, venue Venue, k int) []Match {
	return d.tail(k, func(m *Match) bool { return m.Played(team, venue) })
}

// RecentMatches returns the last k matches team played in either role, oldest first
func (d *Dataset) RecentMatches(team string, k int) []Match {
	return d.tail(k, func(m *Match) bool { return m.Involves(team) })
}

// Meetings returns the last n matches between the two teams in either orientation
func (d *Dataset) Meetings(a, b string, n int) []Match {
	return d.tail(n, func(m *Match) bool {
		return (SameTeam(m.HomeTeam, a) && SameTeam(m.AwayTeam, b)) ||
			(SameTeam(m.HomeTeam, b) && SameTeam(m.AwayTeam, a))
	})
}

// LatestFixture returns the most recent match with home hosting away that carries the column
func (d *Dataset) LatestFixture(home, away string, c Column) (Match, bool) {
	found := d.tail(1, func(m *Match) bool {
		return SameTeam(m.HomeTeam, home) && SameTeam(m.AwayTeam, away) && m.Has(c)
	})
	if len(found) == 0 {
		return Match{}, false
	}
	return found[0], true
}

// LatestMeeting returns the most recent match between the teams, either orientation, that carries the column
func (d *Dataset) LatestMeeting(a, b string, c Column) (Match, bool) {
	found := d.tail(1, func(m *Match) bool {
		return m.Has(c) && ((SameTeam(m.HomeTeam, a) && SameTeam(m.AwayTeam, b)) ||
			(SameTeam(m.HomeTeam, b) && SameTeam(m.AwayTeam, a)))
	})
	if len(found) == 0 {
		return Match{}, false
	}
	return found[0], true
}

// tail walks the dataset backwards collecting up to k matches, then restores dataset order
func (d *Dataset) tail(k int, keep func(m *Match) bool) []Match {
	var out []Match
	for i := len(d.matches) - 1; i >= 0; i-- {
		if k > 0 && len(out) == k {
			break
		}
		if keep(&d.matches[i]) {
			out = append(out, d.matches[i])
		}
	}
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}
