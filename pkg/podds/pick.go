package podds

import (
	"fmt"
	"sort"
)

// PickKind classifies a recommendation
type PickKind string

const (
	PickTooRisky     PickKind = "too_risky"
	PickDoubleChance PickKind = "double_chance"
	PickSingle       PickKind = "single"
)

// Pick is the single human facing recommendation for a fixture
type Pick struct {
	Kind       PickKind  `json:"kind"`
	Outcomes   []Outcome `json:"outcomes,omitempty"`
	Code       string    `json:"code,omitempty"`
	Label      string    `json:"label"`
	Confidence int       `json:"confidence"`
}

// PickPolicy holds the thresholds, in percentage points
type PickPolicy struct {
	RiskySpread     float64
	RiskyCeiling    float64
	DoubleChanceGap float64
}

// DefaultPickPolicy: flat below 50% within 10 points is too risky, a leader within 15 points of second is double chance
func DefaultPickPolicy() PickPolicy {
	return PickPolicy{RiskySpread: 10, RiskyCeiling: 50, DoubleChanceGap: 15}
}

// thresholds are compared in percentage points and 0.38-0.28 is not exactly 0.10 in floating point
const pickTolerance = 1e-9

// RecommendPick applies the default policy
func RecommendPick(p OutcomeProbabilities) Pick {
	return DefaultPickPolicy().Recommend(p)
}

type rankedOutcome struct {
	outcome Outcome
	pct     float64
}

// Recommend evaluates, in order:
//  1. max − min ≤ RiskySpread and max < RiskyCeiling: too risky
//  2. max − second ≤ DoubleChanceGap: double chance on the top two
//  3. otherwise the single leader
//
// Equal probabilities keep home, draw, away order
func (pp PickPolicy) Recommend(p OutcomeProbabilities) Pick {
	ranked := []rankedOutcome{
		{OutcomeHome, p.Home * 100},
		{OutcomeDraw, p.Draw * 100},
		{OutcomeAway, p.Away * 100},
	}
	sort.SliceStable(ranked, func(i, j int) bool { return ranked[i].pct > ranked[j].pct })

	maxPct, secondPct, minPct := ranked[0].pct, ranked[1].pct, ranked[2].pct

	if maxPct-minPct <= pp.RiskySpread+pickTolerance && maxPct < pp.RiskyCeiling {
		return Pick{Kind: PickTooRisky, Label: "Too risky to bet", Confidence: 2}
	}

	confidence := int(4 + 4*maxPct/100)
	if maxPct-secondPct <= pp.DoubleChanceGap+pickTolerance {
		pair := []Outcome{ranked[0].outcome, ranked[1].outcome}
		// name the pair in market order so the code reads 1X, X2 or 12
		sort.Slice(pair, func(i, j int) bool { return outcomeIndex(pair[i]) < outcomeIndex(pair[j]) })
		pick := Pick{
			Kind:       PickDoubleChance,
			Outcomes:   pair,
			Code:       pair[0].Code() + pair[1].Code(),
			Confidence: confidence,
		}
		pick.Label = pick.Describe("Home", "Away")
		return pick
	}

	pick := Pick{
		Kind:       PickSingle,
		Outcomes:   []Outcome{ranked[0].outcome},
		Code:       ranked[0].outcome.Code(),
		Confidence: confidence,
	}
	pick.Label = pick.Describe("Home", "Away")
	return pick
}

func outcomeIndex(o Outcome) int {
	for i, candidate := range Outcomes {
		if candidate == o {
			return i
		}
	}
	return len(Outcomes)
}

// Describe renders the recommendation with team names
func (p Pick) Describe(home, away string) string {
	name := func(o Outcome) string {
		switch o {
		case OutcomeHome:
			return home
		case OutcomeAway:
			return away
		}
		return "Draw"
	}

	switch p.Kind {
	case PickTooRisky:
		return "Too risky to bet"
	case PickDoubleChance:
		if len(p.Outcomes) == 2 {
			return fmt.Sprintf("Double chance %s (%s or %s)", p.Code, name(p.Outcomes[0]), name(p.Outcomes[1]))
		}
	case PickSingle:
		if len(p.Outcomes) == 1 {
			if p.Outcomes[0] == OutcomeDraw {
				return "Draw"
			}
			return fmt.Sprintf("%s win", name(p.Outcomes[0]))
		}
	}
	return p.Label
}
