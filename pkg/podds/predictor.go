package podds

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/richard-senior/podds/internal/logger"
)

// Predictor runs the market analyzers against one dataset.
// It is safe for concurrent use: every call gets its own random source and sample buffers
type Predictor struct {
	dataset *Dataset
	config  *Config
	sources SourceFactory
}

// Option configures a Predictor
type Option func(*Predictor)

// WithSourceFactory replaces the time seeded sources, tests use SeededFactory
func WithSourceFactory(f SourceFactory) Option {
	return func(p *Predictor) {
		if f != nil {
			p.sources = f
		}
	}
}

// NewPredictor validates the configuration and binds it to the dataset
func NewPredictor(dataset *Dataset, cfg *Config, opts ...Option) (*Predictor, error) {
	if dataset == nil || dataset.Len() == 0 {
		return nil, fmt.Errorf("failed to create predictor: %w", ErrEmptyDataset)
	}
	if cfg == nil {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid podds configuration: %w", err)
	}
	p := &Predictor{
		dataset: dataset,
		config:  cfg,
		sources: NewTimeSource,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p, nil
}

// Dataset returns the dataset predictions are drawn from
func (p *Predictor) Dataset() *Dataset {
	return p.dataset
}

// Config returns the engine configuration
func (p *Predictor) Config() *Config {
	return p.config
}

// Request names a fixture and optionally overrides the defaults
type Request struct {
	Home        string   `json:"home"`
	Away        string   `json:"away"`
	Simulations int      `json:"simulations,omitempty"` // 0 uses each market's default
	LastMatches int      `json:"lastMatches,omitempty"` // 0 uses the configured form window
	MinEdge     *float64 `json:"minEdge,omitempty"`     // nil uses the configured threshold
}

// fixture is a validated request with the model inputs computed once
type fixture struct {
	home     string
	away     string
	window   int
	trials   int
	minEdge  float64
	strength struct {
		home StrengthFactors
		away StrengthFactors
	}
	h2h    HeadToHead
	lambda ExpectedGoals
	notes  []string
}

// resolve validates the request and estimates the expected goals for the fixture
func (p *Predictor) resolve(req Request) (*fixture, error) {
	if strings.TrimSpace(req.Home) == "" || strings.TrimSpace(req.Away) == "" {
		return nil, fmt.Errorf("home and away team are required: %w", ErrInvalidRequest)
	}
	if req.Simulations < 0 || req.Simulations > p.config.MaxSimulations {
		return nil, fmt.Errorf("simulations must be between 0 and %d, got %d: %w", p.config.MaxSimulations, req.Simulations, ErrInvalidRequest)
	}
	if req.LastMatches < 0 {
		return nil, fmt.Errorf("last matches must not be negative, got %d: %w", req.LastMatches, ErrInvalidRequest)
	}
	if req.MinEdge != nil && (math.IsNaN(*req.MinEdge) || *req.MinEdge < 0 || *req.MinEdge >= 1) {
		return nil, fmt.Errorf("min edge must be between 0 and 1, got %f: %w", *req.MinEdge, ErrInvalidRequest)
	}
	if SameTeam(req.Home, req.Away) {
		return nil, fmt.Errorf("cannot predict %s against itself: %w", req.Home, ErrSameTeam)
	}

	home, ok := p.dataset.Team(req.Home)
	if !ok {
		return nil, fmt.Errorf("unknown home team %q: %w", req.Home, ErrUnknownTeam)
	}
	away, ok := p.dataset.Team(req.Away)
	if !ok {
		return nil, fmt.Errorf("unknown away team %q: %w", req.Away, ErrUnknownTeam)
	}

	f := &fixture{
		home:    home,
		away:    away,
		window:  p.config.LastMatches,
		trials:  req.Simulations,
		minEdge: p.config.MinEdge,
	}
	if req.LastMatches > 0 {
		f.window = req.LastMatches
	}
	if req.MinEdge != nil {
		f.minEdge = *req.MinEdge
	}

	if len(p.dataset.TeamMatches(home, Home, 1)) == 0 {
		f.notes = append(f.notes, fmt.Sprintf("%s has no home matches, using league average strength", home))
	}
	if len(p.dataset.TeamMatches(away, Away, 1)) == 0 {
		f.notes = append(f.notes, fmt.Sprintf("%s has no away matches, using league average strength", away))
	}
	f.strength.home = p.dataset.TeamStrength(home, Home, f.window)
	f.strength.away = p.dataset.TeamStrength(away, Away, f.window)

	f.h2h = NeutralHeadToHead()
	if p.config.HeadToHead {
		f.h2h = p.dataset.HeadToHeadCorrection(home, away, p.config.HeadToHeadMatches)
	}

	f.lambda = EstimateExpectedGoals(f.strength.home, f.strength.away, p.dataset.Means(), f.h2h, p.config)
	logger.Debug(fmt.Sprintf("%s v %s expected goals %.3f - %.3f", home, away, f.lambda.Home, f.lambda.Away))
	return f, nil
}

// simulate runs the shared simulation primitive with a fresh source
func (p *Predictor) simulate(lh, la float64, n int) *Samples {
	return NewSimulator(p.sources(), p.config.MaxGoals).Simulate(lh, la, n)
}

// trialsFor returns the request override or the market default
func (f *fixture) trialsFor(def int) int {
	if f.trials > 0 {
		return f.trials
	}
	return def
}

// ExpectedGoals returns the model's rates for the fixture without simulating
func (p *Predictor) ExpectedGoals(req Request) (ExpectedGoals, error) {
	f, err := p.resolve(req)
	if err != nil {
		return ExpectedGoals{}, err
	}
	return f.lambda, nil
}

// Prediction is the combined result of every analyzer for one fixture
type Prediction struct {
	ID              string               `json:"id"`
	Home            string               `json:"home"`
	Away            string               `json:"away"`
	GeneratedAt     time.Time            `json:"generatedAt"`
	LastMatches     int                  `json:"lastMatches"`
	HomeStrength    StrengthFactors      `json:"homeStrength"`
	AwayStrength    StrengthFactors      `json:"awayStrength"`
	HeadToHead      HeadToHead           `json:"headToHead"`
	ExpectedGoals   ExpectedGoals        `json:"expectedGoals"`
	Outcomes        OutcomeProbabilities `json:"outcomes"`
	MostLikelyScore Score                `json:"mostLikelyScore"`
	TopScores       []ScoreProbability   `json:"topScores,omitempty"`
	Markets         []MarketProbability  `json:"markets"`
	ValueBets       *ValueBetReport      `json:"valueBets,omitempty"`
	Pick            Pick                 `json:"pick"`
	Notes           []string             `json:"notes,omitempty"`
}

// Market returns the named market probability
func (p *Prediction) Market(market, name string) (MarketProbability, bool) {
	for _, m := range p.Markets {
		if m.Market == market && m.Name == name {
			return m, true
		}
	}
	return MarketProbability{}, false
}

// Predict runs every analyzer and assembles the result
func (p *Predictor) Predict(req Request) (*Prediction, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}

	outcome := p.outcome(f)
	prediction := &Prediction{
		ID:              uuid.NewString(),
		Home:            f.home,
		Away:            f.away,
		GeneratedAt:     time.Now().UTC(),
		LastMatches:     f.window,
		HomeStrength:    f.strength.home,
		AwayStrength:    f.strength.away,
		HeadToHead:      f.h2h,
		ExpectedGoals:   f.lambda,
		Outcomes:        outcome.Outcomes,
		MostLikelyScore: outcome.MostLikelyScore,
		TopScores:       outcome.TopScores,
		Pick:            outcome.Pick,
		Notes:           append([]string(nil), f.notes...),
	}

	for _, market := range []*MarketResult{
		p.btts(f),
		p.goals(f),
		p.handicap(f),
		p.corners(f),
		p.cards(f),
	} {
		prediction.Markets = append(prediction.Markets, market.Probabilities...)
		if market.Note != "" {
			prediction.Notes = append(prediction.Notes, market.Note)
		}
	}

	valueBets := p.valueBets(f)
	prediction.ValueBets = valueBets
	if valueBets.Note != "" {
		prediction.Notes = append(prediction.Notes, valueBets.Note)
	}

	logger.Debug(fmt.Sprintf("Prediction %s for %s v %s: %s", prediction.ID, f.home, f.away, prediction.Pick.Label))
	return prediction, nil
}
