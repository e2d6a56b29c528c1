package podds

import "math"

// ExpectedGoals are the Poisson rates for each side
type ExpectedGoals struct {
	Home float64 `json:"home"`
	Away float64 `json:"away"`
}

// Total returns the expected goals in the match
func (e ExpectedGoals) Total() float64 {
	return e.Home + e.Away
}

// EstimateExpectedGoals derives both rates from the teams' multipliers:
//
//	λh = meanHome × homeAttack / max(MinDefense, awayDefense) × h2h.Home
//	λa = meanAway × awayAttack / max(MinDefense, homeDefense) × h2h.Away
//
// Both are clamped to [MinExpectedGoals, MaxExpectedGoals]
func EstimateExpectedGoals(home, away StrengthFactors, means LeagueMeans, h2h HeadToHead, cfg *Config) ExpectedGoals {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	home = sanitizeStrength(home)
	away = sanitizeStrength(away)
	h2h.Home = sanitizeFactor(h2h.Home)
	h2h.Away = sanitizeFactor(h2h.Away)

	lh := means.HomeGoals * home.Attack / math.Max(cfg.MinDefense, away.Defense) * h2h.Home
	la := means.AwayGoals * away.Attack / math.Max(cfg.MinDefense, home.Defense) * h2h.Away

	return ExpectedGoals{
		Home: clampRate(lh, cfg),
		Away: clampRate(la, cfg),
	}
}

func sanitizeStrength(s StrengthFactors) StrengthFactors {
	return StrengthFactors{
		Attack:  sanitizeFactor(s.Attack),
		Defense: sanitizeFactor(s.Defense),
	}
}

// sanitizeFactor replaces NaN, infinite or negative multipliers with 1.0.
// Zero is a real value: a side that never scored, or never conceded
func sanitizeFactor(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 1.0
	}
	return v
}

func clampRate(v float64, cfg *Config) float64 {
	if math.IsNaN(v) {
		return cfg.MinExpectedGoals
	}
	return clamp(v, cfg.MinExpectedGoals, cfg.MaxExpectedGoals)
}
