package podds

import "math"

// TeamForm is a team's recency weighted scoring record in one venue role
type TeamForm struct {
	Team         string  `json:"team"`
	Venue        string  `json:"venue"`
	Matches      int     `json:"matches"`
	GoalsFor     float64 `json:"goalsFor"`
	GoalsAgainst float64 `json:"goalsAgainst"`
}

// StrengthFactors are attack and defense multipliers relative to the league. 1.0 is average
type StrengthFactors struct {
	Attack  float64 `json:"attack"`
	Defense float64 `json:"defense"`
}

// NeutralStrength is used whenever a team has no usable history
func NeutralStrength() StrengthFactors {
	return StrengthFactors{Attack: 1.0, Defense: 1.0}
}

// RecencyWeights returns exp(linspace(-1, 0, n)): the oldest value gets e^-1, the newest e^0.
// A single value gets e^-1
func RecencyWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = math.Exp(-1)
		return weights
	}
	step := 1.0 / float64(n-1)
	for i := range weights {
		weights[i] = math.Exp(-1 + step*float64(i))
	}
	return weights
}

// WeightedAverage averages values, oldest first, with RecencyWeights.
// ok is false when there is nothing to average
func WeightedAverage(values []float64) (avg float64, ok bool) {
	if len(values) == 0 {
		return 0, false
	}
	weights := RecencyWeights(len(values))
	var sum, total float64
	for i, v := range values {
		sum += v * weights[i]
		total += weights[i]
	}
	if total <= 0 {
		return 0, false
	}
	avg = sum / total
	if math.IsNaN(avg) || math.IsInf(avg, 0) {
		return 0, false
	}
	return avg, true
}

// TeamForm computes weighted goals for and against over the team's last k matches in the role
func (d *Dataset) TeamForm(team string, venue Venue, k int) TeamForm {
	form := TeamForm{Team: team, Venue: venue.String()}
	matches := d.TeamMatches(team, venue, k)
	if len(matches) == 0 {
		return form
	}

	scored := make([]float64, len(matches))
	conceded := make([]float64, len(matches))
	for i := range matches {
		scored[i] = float64(matches[i].GoalsFor(venue))
		conceded[i] = float64(matches[i].GoalsAgainst(venue))
	}
	form.Matches = len(matches)
	form.GoalsFor, _ = WeightedAverage(scored)
	form.GoalsAgainst, _ = WeightedAverage(conceded)
	return form
}

// TeamStrength converts a team's form in the role into multipliers.
// Attack divides goals scored by the league mean for the role, defense divides goals
// conceded by the league mean for the opposite role. Missing history yields 1.0
func (d *Dataset) TeamStrength(team string, venue Venue, k int) StrengthFactors {
	strength := NeutralStrength()
	form := d.TeamForm(team, venue, k)
	if form.Matches == 0 {
		return strength
	}
	if mean := d.means.Goals(venue); mean > 0 {
		strength.Attack = form.GoalsFor / mean
	}
	if mean := d.means.Goals(venue.Opposite()); mean > 0 {
		strength.Defense = form.GoalsAgainst / mean
	}
	return strength
}

// Stat reads one secondary statistic for the side playing in a role, -1 when absent
type Stat struct {
	Name    string
	Column  Column
	Default float64
	Value   func(m *Match, venue Venue) int
}

var (
	StatCornersWon = Stat{
		Name:    "corners won",
		Column:  ColumnCorners,
		Default: 5.0,
		Value: func(m *Match, venue Venue) int {
			if venue == Home {
				return m.HomeCorners
			}
			return m.AwayCorners
		},
	}
	StatCornersConceded = Stat{
		Name:    "corners conceded",
		Column:  ColumnCorners,
		Default: 5.0,
		Value: func(m *Match, venue Venue) int {
			return StatCornersWon.Value(m, venue.Opposite())
		},
	}
	StatYellowCards = Stat{
		Name:    "yellow cards",
		Column:  ColumnYellowCards,
		Default: 1.5,
		Value: func(m *Match, venue Venue) int {
			if venue == Home {
				return m.HomeYellowCards
			}
			return m.AwayYellowCards
		},
	}
	StatFouls = Stat{
		Name:    "fouls",
		Column:  ColumnFouls,
		Default: 10,
		Value: func(m *Match, venue Venue) int {
			if venue == Home {
				return m.HomeFouls
			}
			return m.AwayFouls
		},
	}
)

// Fallback is half the league per-match average when known, otherwise the fixed default
func (d *Dataset) Fallback(stat Stat) float64 {
	if mean := d.means.PerMatch(stat.Column); mean > 0 {
		return mean / 2
	}
	return stat.Default
}

// WeightedStat returns the recency weighted average of a secondary statistic over the
// team's last k matches in the role that carried it. ok is false when the fallback was used
func (d *Dataset) WeightedStat(team string, venue Venue, k int, stat Stat) (value float64, ok bool) {
	var values []float64
	for _, m := range d.TeamMatches(team, venue, 0) {
		if v := stat.Value(&m, venue); v >= 0 {
			values = append(values, float64(v))
		}
	}
	if k > 0 && len(values) > k {
		values = values[len(values)-k:]
	}
	if avg, ok := WeightedAverage(values); ok {
		return avg, true
	}
	return d.Fallback(stat), false
}

// HeadToHead holds multiplicative corrections for each side's expected goals
type HeadToHead struct {
	Home     float64 `json:"home"`
	Away     float64 `json:"away"`
	Meetings int     `json:"meetings"`
}

// NeutralHeadToHead applies no correction
func NeutralHeadToHead() HeadToHead {
	return HeadToHead{Home: 1.0, Away: 1.0}
}

const (
	headToHeadScale = 0.05 // multiplier change per goal of average differential
	headToHeadLimit = 0.2  // the correction never moves further than this from 1.0
)

// HeadToHeadCorrection looks at the last n meetings in either orientation. Each side's
// factor is 1 plus 0.05 times the mean goal difference in the meetings it hosted,
// clamped to ±0.2. A side that hosted none of them keeps 1.0
func (d *Dataset) HeadToHeadCorrection(home, away string, n int) HeadToHead {
	h2h := NeutralHeadToHead()
	meetings := d.Meetings(home, away, n)
	h2h.Meetings = len(meetings)

	factor := func(host string) float64 {
		var diff, count int
		for _, m := range meetings {
			if SameTeam(m.HomeTeam, host) {
				diff += m.HomeGoals - m.AwayGoals
				count++
			}
		}
		if count == 0 {
			return 1.0
		}
		adjust := headToHeadScale * float64(diff) / float64(count)
		return 1 + clamp(adjust, -headToHeadLimit, headToHeadLimit)
	}

	h2h.Home = factor(home)
	h2h.Away = factor(away)
	return h2h
}

// HistoricalBTTSRate is the mean of both teams' both-teams-scored frequency over their
// last n matches in either role. One team without history yields the other's rate
func (d *Dataset) HistoricalBTTSRate(home, away string, n int) (float64, bool) {
	rate := func(team string) (float64, bool) {
		matches := d.RecentMatches(team, n)
		if len(matches) == 0 {
			return 0, false
		}
		both := 0
		for i := range matches {
			if matches[i].BothScored() {
				both++
			}
		}
		return float64(both) / float64(len(matches)), true
	}

	h, hok := rate(home)
	a, aok := rate(away)
	switch {
	case hok && aok:
		return (h + a) / 2, true
	case hok:
		return h, true
	case aok:
		return a, true
	}
	return 0, false
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
