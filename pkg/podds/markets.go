package podds

import (
	"fmt"
	"math"
)

// Market groups
const (
	MarketBTTS     = "btts"
	MarketGoals    = "goals"
	MarketHandicap = "handicap"
	MarketCorners  = "corners"
	MarketCards    = "cards"
)

var (
	goalLines         = []float64{0.5, 1.5, 2.5, 3.5}
	sideCornerLines   = []float64{3.5, 5.5, 7.5}
	totalCornerLines  = []float64{8.5, 9.5, 11.5, 12.5}
	cardLines         = []float64{1.5, 2.5, 3.5, 4.5, 5.5}
	homeHandicapLines = []float64{-0.5, -1, -1.5}
	awayHandicapLines = []float64{0.5, 1, 1.5}
	blendedGoalsLine  = 2.5
	bttsMarketName    = "Both teams to score"
)

// MarketProbability is one named market. Final is set only when the simulation was blended
// with a reference, Reference only when a reference existed
type MarketProbability struct {
	Market    string   `json:"market"`
	Name      string   `json:"name"`
	Simulated float64  `json:"simulated"`
	Reference *float64 `json:"reference,omitempty"`
	Final     *float64 `json:"final,omitempty"`
}

// Value returns the blended probability when there is one, otherwise the simulated one
func (m MarketProbability) Value() float64 {
	if m.Final != nil {
		return *m.Final
	}
	return m.Simulated
}

// MarketResult is the output of one secondary market analyzer
type MarketResult struct {
	Home          string              `json:"home"`
	Away          string              `json:"away"`
	Market        string              `json:"market"`
	Rates         ExpectedGoals       `json:"rates"`
	Simulations   int                 `json:"simulations"`
	Probabilities []MarketProbability `json:"probabilities"`
	Note          string              `json:"note,omitempty"`
}

// Get returns the named probability
func (r *MarketResult) Get(name string) (MarketProbability, bool) {
	for _, m := range r.Probabilities {
		if m.Name == name {
			return m, true
		}
	}
	return MarketProbability{}, false
}

func (r *MarketResult) add(name string, simulated float64) {
	r.Probabilities = append(r.Probabilities, MarketProbability{Market: r.Market, Name: name, Simulated: simulated})
}

func (r *MarketResult) addBlended(name string, simulated float64, ref *float64, alpha, beta float64) {
	mp := MarketProbability{Market: r.Market, Name: name, Simulated: simulated}
	if ref != nil {
		reference := *ref
		final := BlendWithReference(simulated, ref, alpha, beta)
		mp.Reference = &reference
		mp.Final = &final
	}
	r.Probabilities = append(r.Probabilities, mp)
}

func newMarketResult(f *fixture, market string, rates ExpectedGoals) *MarketResult {
	return &MarketResult{
		Home:          f.home,
		Away:          f.away,
		Market:        market,
		Rates:         rates,
		Probabilities: []MarketProbability{},
	}
}

// OverName formats an over line such as "Over 2.5"
func OverName(prefix string, line float64) string {
	if prefix == "" {
		return fmt.Sprintf("Over %.1f", line)
	}
	return fmt.Sprintf("%s over %.1f", prefix, line)
}

// HandicapName formats a handicap line such as "Home -1" or "Away +0.5"
func HandicapName(side Venue, line float64) string {
	label := "Home"
	if side == Away {
		label = "Away"
	}
	return fmt.Sprintf("%s %+g", label, line)
}

/////////////////////////////////////////////////////////////////////////
////// 1X2
/////////////////////////////////////////////////////////////////////////

// OutcomeResult is the 1X2 analysis
type OutcomeResult struct {
	Home            string               `json:"home"`
	Away            string               `json:"away"`
	ExpectedGoals   ExpectedGoals        `json:"expectedGoals"`
	Simulations     int                  `json:"simulations"`
	Outcomes        OutcomeProbabilities `json:"outcomes"`
	MostLikelyScore Score                `json:"mostLikelyScore"`
	TopScores       []ScoreProbability   `json:"topScores"`
	Pick            Pick                 `json:"pick"`
}

// Outcome simulates the fixture and recommends a pick
func (p *Predictor) Outcome(req Request) (*OutcomeResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.outcome(f), nil
}

func (p *Predictor) outcome(f *fixture) *OutcomeResult {
	n := f.trialsFor(p.config.OutcomeSimulations)
	samples := p.simulate(f.lambda.Home, f.lambda.Away, n)
	scores := samples.Scores()

	result := &OutcomeResult{
		Home:            f.home,
		Away:            f.away,
		ExpectedGoals:   f.lambda,
		Simulations:     n,
		Outcomes:        samples.Outcomes(),
		MostLikelyScore: scores.MostLikely(),
		TopScores:       scores.Top(5),
	}
	result.Pick = p.config.PickPolicy().Recommend(result.Outcomes)
	result.Pick.Label = result.Pick.Describe(f.home, f.away)
	return result
}

/////////////////////////////////////////////////////////////////////////
////// Goals markets
/////////////////////////////////////////////////////////////////////////

// BTTS blends the simulated both-teams-to-score probability with the teams' recent frequency
func (p *Predictor) BTTS(req Request) (*MarketResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.btts(f), nil
}

func (p *Predictor) btts(f *fixture) *MarketResult {
	result := newMarketResult(f, MarketBTTS, f.lambda)
	result.Simulations = f.trialsFor(p.config.BTTSSimulations)
	samples := p.simulate(f.lambda.Home, f.lambda.Away, result.Simulations)

	var ref *float64
	if rate, ok := p.dataset.HistoricalBTTSRate(f.home, f.away, p.config.BTTSHistoryMatches); ok {
		ref = &rate
	} else {
		result.Note = "no match history for a BTTS reference, simulated value used"
	}
	result.addBlended(bttsMarketName, samples.BothScore(), ref, p.config.BTTSSimWeight, p.config.BTTSRefWeight)
	return result
}

// Goals reports total goals over lines, blending over 2.5 with the bookmaker's price
func (p *Predictor) Goals(req Request) (*MarketResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.goals(f), nil
}

func (p *Predictor) goals(f *fixture) *MarketResult {
	result := newMarketResult(f, MarketGoals, f.lambda)
	result.Simulations = f.trialsFor(p.config.GoalsSimulations)
	samples := p.simulate(f.lambda.Home, f.lambda.Away, result.Simulations)

	ref := p.over25Reference(f)
	if ref == nil {
		result.Note = "no over/under 2.5 odds available, simulated value used"
	}
	for _, line := range goalLines {
		if line == blendedGoalsLine {
			result.addBlended(OverName("", line), samples.TotalOver(line), ref, p.config.GoalsSimWeight, p.config.GoalsRefWeight)
			continue
		}
		result.add(OverName("", line), samples.TotalOver(line))
	}
	return result
}

// over25Reference prefers the latest meeting's price, then the league average
func (p *Predictor) over25Reference(f *fixture) *float64 {
	if m, ok := p.dataset.LatestMeeting(f.home, f.away, ColumnTotalOdds); ok {
		if implied, ok := m.Over25Implied(); ok {
			return &implied
		}
	}
	if mean := p.dataset.Means().Over25Implied; mean != nil {
		v := *mean
		return &v
	}
	return nil
}

// Handicap reports cover probabilities for the usual Asian lines
func (p *Predictor) Handicap(req Request) (*MarketResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.handicap(f), nil
}

func (p *Predictor) handicap(f *fixture) *MarketResult {
	result := newMarketResult(f, MarketHandicap, f.lambda)
	result.Simulations = f.trialsFor(p.config.HandicapSimulations)
	samples := p.simulate(f.lambda.Home, f.lambda.Away, result.Simulations)

	addLine := func(side Venue, line float64) {
		name := HandicapName(side, line)
		result.add(name, samples.HandicapCover(side, line))
		if line == math.Trunc(line) {
			result.add(name+" push", samples.HandicapPush(side, line))
		}
	}
	for _, line := range homeHandicapLines {
		addLine(Home, line)
	}
	for _, line := range awayHandicapLines {
		addLine(Away, line)
	}
	return result
}

/////////////////////////////////////////////////////////////////////////
////// Secondary markets
/////////////////////////////////////////////////////////////////////////

// Corners simulates corner counts from each side's corners won and the opponent's corners conceded
func (p *Predictor) Corners(req Request) (*MarketResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.corners(f), nil
}

func (p *Predictor) corners(f *fixture) *MarketResult {
	if !p.dataset.HasColumn(ColumnCorners) {
		result := newMarketResult(f, MarketCorners, ExpectedGoals{})
		result.Note = "corner data (HC/AC) not available"
		return result
	}

	homeWon, _ := p.dataset.WeightedStat(f.home, Home, f.window, StatCornersWon)
	awayConceded, _ := p.dataset.WeightedStat(f.away, Away, f.window, StatCornersConceded)
	awayWon, _ := p.dataset.WeightedStat(f.away, Away, f.window, StatCornersWon)
	homeConceded, _ := p.dataset.WeightedStat(f.home, Home, f.window, StatCornersConceded)

	rates := ExpectedGoals{
		Home: math.Max(p.config.CornersFloor, (homeWon+awayConceded)/2),
		Away: math.Max(p.config.CornersFloor, (awayWon+homeConceded)/2),
	}
	result := newMarketResult(f, MarketCorners, rates)
	result.Simulations = f.trialsFor(p.config.CornersSimulations)
	samples := p.simulate(rates.Home, rates.Away, result.Simulations)

	for _, line := range sideCornerLines {
		result.add(OverName(f.home, line), samples.HomeOver(line))
	}
	for _, line := range sideCornerLines {
		result.add(OverName(f.away, line), samples.AwayOver(line))
	}
	for _, line := range totalCornerLines {
		result.add(OverName("Total", line), samples.TotalOver(line))
	}
	return result
}

// Cards simulates yellow cards from each side's yellows and fouls
func (p *Predictor) Cards(req Request) (*MarketResult, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.cards(f), nil
}

func (p *Predictor) cards(f *fixture) *MarketResult {
	if !p.dataset.HasColumn(ColumnYellowCards) || !p.dataset.HasColumn(ColumnFouls) {
		result := newMarketResult(f, MarketCards, ExpectedGoals{})
		result.Note = "card data (HY/AY/HF/AF) not available"
		return result
	}

	rate := func(team string, venue Venue) float64 {
		yellows, _ := p.dataset.WeightedStat(team, venue, f.window, StatYellowCards)
		fouls, _ := p.dataset.WeightedStat(team, venue, f.window, StatFouls)
		lambda := p.config.CardsYellowWeight*yellows + p.config.CardsFoulWeight*(fouls/p.config.FoulsPerCard)
		return math.Max(p.config.CardsFloor, lambda)
	}
	rates := ExpectedGoals{Home: rate(f.home, Home), Away: rate(f.away, Away)}

	result := newMarketResult(f, MarketCards, rates)
	result.Simulations = f.trialsFor(p.config.CardsSimulations)
	samples := p.simulate(rates.Home, rates.Away, result.Simulations)

	for _, line := range cardLines {
		result.add(OverName(f.home, line), samples.HomeOver(line))
	}
	for _, line := range cardLines {
		result.add(OverName(f.away, line), samples.AwayOver(line))
	}
	for _, line := range cardLines {
		result.add(OverName("Total", line), samples.TotalOver(line))
	}
	return result
}

/////////////////////////////////////////////////////////////////////////
////// Value bets
/////////////////////////////////////////////////////////////////////////

// ValueBets compares the model with the odds of the latest fixture between the teams in this orientation.
// No fixture or no edge yields an informational report, not an error
func (p *Predictor) ValueBets(req Request) (*ValueBetReport, error) {
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.valueBets(f), nil
}

func (p *Predictor) valueBets(f *fixture) *ValueBetReport {
	m, ok := p.dataset.LatestFixture(f.home, f.away, ColumnMatchOdds)
	if !ok {
		return &ValueBetReport{
			MinEdge: f.minEdge,
			Bets:    []ValueBetEdge{},
			Note:    fmt.Sprintf("no %s v %s fixture with match odds found", f.home, f.away),
		}
	}
	odds, _ := m.Odds()
	report := p.detect(f, odds)
	report.Fixture = m.String()
	return report
}

// ValueBetsForOdds compares the model with caller supplied odds
func (p *Predictor) ValueBetsForOdds(req Request, odds MatchOdds) (*ValueBetReport, error) {
	if !odds.Valid() {
		return nil, fmt.Errorf("odds must all be positive, got %.2f/%.2f/%.2f: %w", odds.Home, odds.Draw, odds.Away, ErrInvalidRequest)
	}
	f, err := p.resolve(req)
	if err != nil {
		return nil, err
	}
	return p.detect(f, odds), nil
}

func (p *Predictor) detect(f *fixture, odds MatchOdds) *ValueBetReport {
	samples := p.simulate(f.lambda.Home, f.lambda.Away, f.trialsFor(p.config.ValueBetSimulations))
	report := DetectValueBets(samples.Outcomes(), odds, f.minEdge)
	return &report
}
