package podds

import "fmt"

// Config contains every tunable that influences a prediction.
// This centralizes the magic numbers so they can be adjusted from the YAML config file
type Config struct {
	// === SIMULATION ===

	// Monte Carlo trial counts per market
	OutcomeSimulations  int `yaml:"outcome_simulations" json:"outcomeSimulations"`    // 1X2 trials (default: 3000)
	BTTSSimulations     int `yaml:"btts_simulations" json:"bttsSimulations"`          // both teams to score trials (default: 3000)
	GoalsSimulations    int `yaml:"goals_simulations" json:"goalsSimulations"`        // over/under trials (default: 3000)
	HandicapSimulations int `yaml:"handicap_simulations" json:"handicapSimulations"`  // handicap trials (default: 3000)
	CornersSimulations  int `yaml:"corners_simulations" json:"cornersSimulations"`    // corners trials (default: 2000)
	CardsSimulations    int `yaml:"cards_simulations" json:"cardsSimulations"`        // yellow card trials (default: 1000)
	ValueBetSimulations int `yaml:"value_bet_simulations" json:"valueBetSimulations"` // value bet trials (default: 5000)
	MaxGoals            int `yaml:"max_goals" json:"maxGoals"`                        // cap on any single Poisson draw (default: 30)
	MaxSimulations      int `yaml:"max_simulations" json:"maxSimulations"`            // largest per request trial count accepted (default: 10000)

	// === FORM ===

	LastMatches        int `yaml:"last_matches" json:"lastMatches"`                // form window per venue role (default: 10)
	BTTSHistoryMatches int `yaml:"btts_history_matches" json:"bttsHistoryMatches"` // window for the historical BTTS rate (default: 20)

	// === EXPECTED GOALS ===

	MinExpectedGoals float64 `yaml:"min_expected_goals" json:"minExpectedGoals"` // lower clamp for λ (default: 0.1)
	MaxExpectedGoals float64 `yaml:"max_expected_goals" json:"maxExpectedGoals"` // upper clamp for λ (default: 5.0)
	MinDefense       float64 `yaml:"min_defense" json:"minDefense"`              // floor for a defense multiplier before division (default: 0.1)

	// Head to head correction
	HeadToHead        bool `yaml:"head_to_head" json:"headToHead"`                // apply the meeting history correction (default: true)
	HeadToHeadMatches int  `yaml:"head_to_head_matches" json:"headToHeadMatches"` // meetings considered (default: 5)

	// === BLENDING ===

	BTTSSimWeight  float64 `yaml:"btts_sim_weight" json:"bttsSimWeight"`   // α for BTTS (default: 2.5)
	BTTSRefWeight  float64 `yaml:"btts_ref_weight" json:"bttsRefWeight"`   // β for BTTS (default: 1.5)
	GoalsSimWeight float64 `yaml:"goals_sim_weight" json:"goalsSimWeight"` // α for over 2.5 (default: 3.0)
	GoalsRefWeight float64 `yaml:"goals_ref_weight" json:"goalsRefWeight"` // β for over 2.5 (default: 1.0)

	// === VALUE BETS ===

	MinEdge float64 `yaml:"min_edge" json:"minEdge"` // minimum edge for a value bet (default: 0.05)

	// === PICK POLICY (percentage points) ===

	RiskySpread     float64 `yaml:"risky_spread" json:"riskySpread"`           // max-min at or below this is flat (default: 10)
	RiskyCeiling    float64 `yaml:"risky_ceiling" json:"riskyCeiling"`         // a flat market below this leader is too risky (default: 50)
	DoubleChanceGap float64 `yaml:"double_chance_gap" json:"doubleChanceGap"` // max-second at or below this suggests double chance (default: 15)

	// === SECONDARY MARKETS ===

	CornersFloor      float64 `yaml:"corners_floor" json:"cornersFloor"`            // minimum expected corners per side (default: 0.5)
	CardsFloor        float64 `yaml:"cards_floor" json:"cardsFloor"`                // minimum expected yellow cards per side (default: 0.2)
	CardsYellowWeight float64 `yaml:"cards_yellow_weight" json:"cardsYellowWeight"` // share of the card rate taken from yellows (default: 0.7)
	CardsFoulWeight   float64 `yaml:"cards_foul_weight" json:"cardsFoulWeight"`     // share of the card rate taken from fouls (default: 0.3)
	FoulsPerCard      float64 `yaml:"fouls_per_card" json:"foulsPerCard"`           // fouls converted to one card (default: 5)
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		OutcomeSimulations:  3000,
		BTTSSimulations:     3000,
		GoalsSimulations:    3000,
		HandicapSimulations: 3000,
		CornersSimulations:  2000,
		CardsSimulations:    1000,
		ValueBetSimulations: 5000,
		MaxGoals:            30,
		MaxSimulations:      10000,

		LastMatches:        10,
		BTTSHistoryMatches: 20,

		MinExpectedGoals: 0.1,
		MaxExpectedGoals: 5.0,
		MinDefense:       0.1,

		HeadToHead:        true,
		HeadToHeadMatches: 5,

		BTTSSimWeight:  2.5,
		BTTSRefWeight:  1.5,
		GoalsSimWeight: 3.0,
		GoalsRefWeight: 1.0,

		MinEdge: 0.05,

		RiskySpread:     10,
		RiskyCeiling:    50,
		DoubleChanceGap: 15,

		CornersFloor:      0.5,
		CardsFloor:        0.2,
		CardsYellowWeight: 0.7,
		CardsFoulWeight:   0.3,
		FoulsPerCard:      5,
	}
}

// PickPolicy extracts the recommendation thresholds
func (c *Config) PickPolicy() PickPolicy {
	return PickPolicy{
		RiskySpread:     c.RiskySpread,
		RiskyCeiling:    c.RiskyCeiling,
		DoubleChanceGap: c.DoubleChanceGap,
	}
}

// Validate checks that the configuration values are sensible
func (c *Config) Validate() error {
	counts := []struct {
		name  string
		value int
	}{
		{"OutcomeSimulations", c.OutcomeSimulations},
		{"BTTSSimulations", c.BTTSSimulations},
		{"GoalsSimulations", c.GoalsSimulations},
		{"HandicapSimulations", c.HandicapSimulations},
		{"CornersSimulations", c.CornersSimulations},
		{"CardsSimulations", c.CardsSimulations},
		{"ValueBetSimulations", c.ValueBetSimulations},
		{"MaxGoals", c.MaxGoals},
		{"MaxSimulations", c.MaxSimulations},
		{"LastMatches", c.LastMatches},
		{"BTTSHistoryMatches", c.BTTSHistoryMatches},
	}
	for _, count := range counts {
		if count.value <= 0 {
			return fmt.Errorf("%s must be positive, got: %d", count.name, count.value)
		}
	}

	for _, count := range counts[:7] {
		if count.value > c.MaxSimulations {
			return fmt.Errorf("%s must not exceed MaxSimulations %d, got: %d", count.name, c.MaxSimulations, count.value)
		}
	}

	if c.HeadToHead && c.HeadToHeadMatches <= 0 {
		return fmt.Errorf("HeadToHeadMatches must be positive when HeadToHead is enabled, got: %d", c.HeadToHeadMatches)
	}

	if c.MinExpectedGoals <= 0 {
		return fmt.Errorf("MinExpectedGoals must be positive, got: %f", c.MinExpectedGoals)
	}
	if c.MaxExpectedGoals < c.MinExpectedGoals {
		return fmt.Errorf("MaxExpectedGoals must be >= MinExpectedGoals, got: %f < %f", c.MaxExpectedGoals, c.MinExpectedGoals)
	}
	if c.MinDefense <= 0 {
		return fmt.Errorf("MinDefense must be positive, got: %f", c.MinDefense)
	}

	if c.BTTSSimWeight < 0 || c.BTTSRefWeight < 0 || c.BTTSSimWeight+c.BTTSRefWeight <= 0 {
		return fmt.Errorf("BTTS blend weights must be non-negative with a positive sum, got: %f, %f", c.BTTSSimWeight, c.BTTSRefWeight)
	}
	if c.GoalsSimWeight < 0 || c.GoalsRefWeight < 0 || c.GoalsSimWeight+c.GoalsRefWeight <= 0 {
		return fmt.Errorf("goals blend weights must be non-negative with a positive sum, got: %f, %f", c.GoalsSimWeight, c.GoalsRefWeight)
	}

	if c.MinEdge < 0 || c.MinEdge >= 1 {
		return fmt.Errorf("MinEdge must be between 0 and 1, got: %f", c.MinEdge)
	}

	if c.RiskySpread < 0 || c.RiskyCeiling < 0 || c.RiskyCeiling > 100 || c.DoubleChanceGap < 0 {
		return fmt.Errorf("pick thresholds must be percentages, got: spread %f, ceiling %f, gap %f",
			c.RiskySpread, c.RiskyCeiling, c.DoubleChanceGap)
	}

	if c.CornersFloor < 0 || c.CardsFloor < 0 {
		return fmt.Errorf("secondary market floors must be non-negative, got: %f, %f", c.CornersFloor, c.CardsFloor)
	}
	if c.FoulsPerCard <= 0 {
		return fmt.Errorf("FoulsPerCard must be positive, got: %f", c.FoulsPerCard)
	}

	return nil
}
