package podds

import "fmt"

// Outcome is one side of the 1X2 market
type Outcome string

const (
	OutcomeHome Outcome = "home"
	OutcomeDraw Outcome = "draw"
	OutcomeAway Outcome = "away"
)

// Outcomes in market order
var Outcomes = []Outcome{OutcomeHome, OutcomeDraw, OutcomeAway}

// Code returns the 1X2 market code
func (o Outcome) Code() string {
	switch o {
	case OutcomeHome:
		return "1"
	case OutcomeDraw:
		return "X"
	case OutcomeAway:
		return "2"
	}
	return ""
}

// OutcomeProbabilities is the home win, draw, away win triple
type OutcomeProbabilities struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Get returns the probability of one outcome
func (p OutcomeProbabilities) Get(o Outcome) float64 {
	switch o {
	case OutcomeHome:
		return p.Home
	case OutcomeDraw:
		return p.Draw
	case OutcomeAway:
		return p.Away
	}
	return 0
}

// Sum should be 1 within sampling noise
func (p OutcomeProbabilities) Sum() float64 {
	return p.Home + p.Draw + p.Away
}

// MatchOdds are decimal 1X2 odds
type MatchOdds struct {
	Home float64 `json:"home"`
	Draw float64 `json:"draw"`
	Away float64 `json:"away"`
}

// Get returns the odds for one outcome
func (o MatchOdds) Get(outcome Outcome) float64 {
	switch outcome {
	case OutcomeHome:
		return o.Home
	case OutcomeDraw:
		return o.Draw
	case OutcomeAway:
		return o.Away
	}
	return 0
}

// Valid returns true when all three prices are positive
func (o MatchOdds) Valid() bool {
	return o.Home > 0 && o.Draw > 0 && o.Away > 0
}

// Implied returns the bookmaker's implied probabilities with the margin removed
func (o MatchOdds) Implied() OutcomeProbabilities {
	p := NormalizeProbabilities(ImpliedProbability(o.Home), ImpliedProbability(o.Draw), ImpliedProbability(o.Away))
	return OutcomeProbabilities{Home: p[0], Draw: p[1], Away: p[2]}
}

// ImpliedProbability converts decimal odds to 1/odds, 0 for non-positive odds
func ImpliedProbability(odds float64) float64 {
	if odds <= 0 {
		return 0
	}
	return 1 / odds
}

// NormalizeProbabilities scales the values to sum to 1. A non-positive sum gives all zeros
func NormalizeProbabilities(ps ...float64) []float64 {
	out := make([]float64, len(ps))
	var sum float64
	for _, p := range ps {
		sum += p
	}
	if sum <= 0 {
		return out
	}
	for i, p := range ps {
		out[i] = p / sum
	}
	return out
}

// Odds returns the match's 1X2 average odds when all three are present
func (m *Match) Odds() (MatchOdds, bool) {
	if !m.Has(ColumnMatchOdds) {
		return MatchOdds{}, false
	}
	return MatchOdds{Home: m.HomeOdds, Draw: m.DrawOdds, Away: m.AwayOdds}, true
}

// Over25Implied returns the normalized probability of over 2.5 goals implied by the O/U prices
func (m *Match) Over25Implied() (float64, bool) {
	if !m.Has(ColumnTotalOdds) {
		return 0, false
	}
	p := NormalizeProbabilities(ImpliedProbability(m.Over25Odds), ImpliedProbability(m.Under25Odds))
	return p[0], true
}

// ValueBetEdge compares the model and the market for one outcome
type ValueBetEdge struct {
	Outcome   Outcome `json:"outcome"`
	Simulated float64 `json:"simulated"`
	Implied   float64 `json:"implied"`
	Edge      float64 `json:"edge"`
	Odds      float64 `json:"odds"`
}

// ValueBetReport lists every edge and the ones that cleared the threshold.
// Note explains an empty report
type ValueBetReport struct {
	Fixture   string               `json:"fixture,omitempty"`
	Odds      *MatchOdds           `json:"odds,omitempty"`
	MinEdge   float64              `json:"minEdge"`
	Simulated OutcomeProbabilities `json:"simulated"`
	Implied   OutcomeProbabilities `json:"implied"`
	Edges     []ValueBetEdge       `json:"edges,omitempty"`
	Bets      []ValueBetEdge       `json:"bets"`
	Note      string               `json:"note,omitempty"`
}

// HasValue returns true if at least one outcome cleared the threshold
func (r ValueBetReport) HasValue() bool {
	return len(r.Bets) > 0
}

// DetectValueBets flags each outcome whose simulated probability beats the normalized
// implied probability by strictly more than minEdge
func DetectValueBets(sim OutcomeProbabilities, odds MatchOdds, minEdge float64) ValueBetReport {
	report := ValueBetReport{
		Odds:      &odds,
		MinEdge:   minEdge,
		Simulated: sim,
		Bets:      []ValueBetEdge{},
	}
	if !odds.Valid() {
		report.Note = "odds must all be positive"
		return report
	}

	report.Implied = odds.Implied()
	for _, o := range Outcomes {
		edge := ValueBetEdge{
			Outcome:   o,
			Simulated: sim.Get(o),
			Implied:   report.Implied.Get(o),
			Odds:      odds.Get(o),
		}
		edge.Edge = edge.Simulated - edge.Implied
		report.Edges = append(report.Edges, edge)
		if edge.Edge > minEdge {
			report.Bets = append(report.Bets, edge)
		}
	}
	if len(report.Bets) == 0 {
		report.Note = fmt.Sprintf("no outcome beats the market by more than %.0f%%", minEdge*100)
	}
	return report
}
