package podds

import (
	"math"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestPredictor(t *testing.T, d *Dataset) *Predictor {
	t.Helper()
	p, err := NewPredictor(d, DefaultConfig(), WithSourceFactory(SeededFactory(42)))
	require.NoError(t, err, "predictor should build")
	return p
}

func TestNewPredictorValidation(t *testing.T) {
	_, err := NewPredictor(nil, nil)
	assert.ErrorIs(t, err, ErrEmptyDataset)

	cfg := DefaultConfig()
	cfg.MinDefense = 0
	_, err = NewPredictor(leagueDataset(t), cfg)
	assert.Error(t, err)

	p, err := NewPredictor(leagueDataset(t), nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), p.Config())
}

func TestPredictorRejectsBadRequests(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	_, err := p.Predict(Request{Home: "Arsenal", Away: "arsenal"})
	assert.ErrorIs(t, err, ErrSameTeam)
	assert.True(t, IsRequestError(err))

	_, err = p.Outcome(Request{Home: "Arsenal", Away: "Liverpool"})
	assert.ErrorIs(t, err, ErrUnknownTeam)

	_, err = p.BTTS(Request{Home: "", Away: "Chelsea"})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	_, err = p.Goals(Request{Home: "Arsenal", Away: "Chelsea", Simulations: -5})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	edge := 1.5
	_, err = p.ValueBets(Request{Home: "Arsenal", Away: "Chelsea", MinEdge: &edge})
	assert.ErrorIs(t, err, ErrInvalidRequest)

	nan := math.NaN()
	_, err = p.ValueBets(Request{Home: "Arsenal", Away: "Chelsea", MinEdge: &nan})
	assert.ErrorIs(t, err, ErrInvalidRequest)
	_, err = p.ValueBetsForOdds(Request{Home: "Arsenal", Away: "Chelsea", MinEdge: &nan}, MatchOdds{Home: 2, Draw: 3.4, Away: 4})
	assert.ErrorIs(t, err, ErrInvalidRequest, "a NaN edge would let every bet through")
}

func TestPredictorCapsSimulations(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))
	limit := p.Config().MaxSimulations

	for _, n := range []int{limit + 1, 1 << 40} {
		_, err := p.Outcome(Request{Home: "Arsenal", Away: "Chelsea", Simulations: n})
		assert.ErrorIs(t, err, ErrInvalidRequest, "%d simulations", n)
		_, err = p.Predict(Request{Home: "Arsenal", Away: "Chelsea", Simulations: n})
		assert.ErrorIs(t, err, ErrInvalidRequest, "%d simulations", n)
	}

	result, err := p.Outcome(Request{Home: "Arsenal", Away: "Chelsea", Simulations: limit})
	require.NoError(t, err)
	assert.Equal(t, limit, result.Simulations)
}

func TestOutcomeAnalyzer(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	result, err := p.Outcome(Request{Home: "arsenal", Away: "Fulham"})
	require.NoError(t, err)

	assert.Equal(t, "Arsenal", result.Home)
	assert.Equal(t, 3000, result.Simulations)
	assert.InDelta(t, 1.0, result.Outcomes.Sum(), 0.03)
	assert.Greater(t, result.Outcomes.Home, result.Outcomes.Away, "the strong side at home should be favoured")
	assert.GreaterOrEqual(t, result.ExpectedGoals.Home, 0.1)
	assert.LessOrEqual(t, result.ExpectedGoals.Home, 5.0)
	assert.NotEmpty(t, result.TopScores)
	assert.Contains(t, []PickKind{PickSingle, PickDoubleChance, PickTooRisky}, result.Pick.Kind)
	assert.NotContains(t, result.Pick.Label, "Home win", "label should use team names")
}

func TestOutcomeAnalyzerHonoursSimulationOverride(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	result, err := p.Outcome(Request{Home: "Chelsea", Away: "Everton", Simulations: 500})
	require.NoError(t, err)
	assert.Equal(t, 500, result.Simulations)
}

func TestBTTSAnalyzerBlendsWithHistory(t *testing.T) {
	d := leagueDataset(t)
	p := newTestPredictor(t, d)

	result, err := p.BTTS(Request{Home: "Chelsea", Away: "Everton"})
	require.NoError(t, err)
	require.Len(t, result.Probabilities, 1)

	mp := result.Probabilities[0]
	require.NotNil(t, mp.Reference)
	require.NotNil(t, mp.Final)
	rate, ok := d.HistoricalBTTSRate("Chelsea", "Everton", 20)
	require.True(t, ok)
	assert.InDelta(t, rate, *mp.Reference, 1e-12)
	assert.InDelta(t, Blend(mp.Simulated, rate, 2.5, 1.5), *mp.Final, 1e-12)
}

func TestGoalsAnalyzer(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	result, err := p.Goals(Request{Home: "Arsenal", Away: "Chelsea"})
	require.NoError(t, err)
	require.Len(t, result.Probabilities, 4)

	var previous = 1.0
	for _, mp := range result.Probabilities {
		assert.LessOrEqual(t, mp.Simulated, previous, "higher lines are never more likely")
		previous = mp.Simulated
	}

	over25, ok := result.Get("Over 2.5")
	require.True(t, ok)
	require.NotNil(t, over25.Reference)
	assert.InDelta(t, (1/1.9)/((1/1.9)+(1/1.95)), *over25.Reference, 1e-9)
	assert.InDelta(t, Blend(over25.Simulated, *over25.Reference, 3, 1), *over25.Final, 1e-12)

	over15, ok := result.Get("Over 1.5")
	require.True(t, ok)
	assert.Nil(t, over15.Final)
}

func TestGoalsAnalyzerWithoutOddsIsUnblended(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 2, 1), played("B", "A", 0, 0)})
	require.NoError(t, err)
	p := newTestPredictor(t, d)

	result, err := p.Goals(Request{Home: "A", Away: "B"})
	require.NoError(t, err)
	over25, ok := result.Get("Over 2.5")
	require.True(t, ok)
	assert.Nil(t, over25.Reference)
	assert.Nil(t, over25.Final)
	assert.Equal(t, over25.Simulated, over25.Value())
	assert.NotEmpty(t, result.Note)
}

func TestHandicapAnalyzer(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	result, err := p.Handicap(Request{Home: "Arsenal", Away: "Fulham"})
	require.NoError(t, err)

	names := make([]string, 0, len(result.Probabilities))
	for _, mp := range result.Probabilities {
		names = append(names, mp.Name)
	}
	assert.Equal(t, []string{
		"Home -0.5", "Home -1", "Home -1 push", "Home -1.5",
		"Away +0.5", "Away +1", "Away +1 push", "Away +1.5",
	}, names)

	minusHalf, _ := result.Get("Home -0.5")
	minusOneAndHalf, _ := result.Get("Home -1.5")
	assert.GreaterOrEqual(t, minusHalf.Simulated, minusOneAndHalf.Simulated)

	plusHalf, _ := result.Get("Away +0.5")
	assert.InDelta(t, 1.0, minusHalf.Simulated+plusHalf.Simulated, 1e-9, "same seed, complementary lines")
}

func TestCornersAndCardsAnalyzers(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))
	req := Request{Home: "Arsenal", Away: "Everton"}

	corners, err := p.Corners(req)
	require.NoError(t, err)
	assert.Empty(t, corners.Note)
	assert.Equal(t, 2000, corners.Simulations)
	assert.Len(t, corners.Probabilities, 10)
	assert.GreaterOrEqual(t, corners.Rates.Home, 0.5)
	_, ok := corners.Get("Total over 9.5")
	assert.True(t, ok)

	cards, err := p.Cards(req)
	require.NoError(t, err)
	assert.Empty(t, cards.Note)
	assert.Equal(t, 1000, cards.Simulations)
	assert.Len(t, cards.Probabilities, 15)
	// yellows average 1.5 for home sides, fouls 10: 0.7*y + 0.3*2
	assert.InDelta(t, 0.7*1.5+0.6, cards.Rates.Home, 0.4)
}

func TestSecondaryMarketsDegradeWithoutColumns(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 2, 1), played("B", "A", 1, 1)})
	require.NoError(t, err)
	p := newTestPredictor(t, d)

	corners, err := p.Corners(Request{Home: "A", Away: "B"})
	require.NoError(t, err)
	assert.Empty(t, corners.Probabilities)
	assert.Contains(t, corners.Note, "HC/AC")

	cards, err := p.Cards(Request{Home: "A", Away: "B"})
	require.NoError(t, err)
	assert.Empty(t, cards.Probabilities)
	assert.NotEmpty(t, cards.Note)
}

func TestValueBetsFromLatestFixture(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	zero := 0.0
	report, err := p.ValueBets(Request{Home: "Arsenal", Away: "Fulham", MinEdge: &zero})
	require.NoError(t, err)
	require.NotNil(t, report.Odds)
	assert.Contains(t, report.Fixture, "Arsenal")
	assert.Len(t, report.Edges, 3)
	assert.InDelta(t, 1.0, report.Implied.Sum(), 1e-9)
	for _, bet := range report.Bets {
		assert.Greater(t, bet.Edge, 0.0)
	}
}

func TestValueBetsWithoutFixtureIsInformational(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 2, 1), played("B", "A", 1, 1)})
	require.NoError(t, err)
	p := newTestPredictor(t, d)

	report, err := p.ValueBets(Request{Home: "A", Away: "B"})
	require.NoError(t, err)
	assert.Empty(t, report.Bets)
	assert.NotEmpty(t, report.Note)
}

func TestValueBetsForOdds(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	report, err := p.ValueBetsForOdds(Request{Home: "Arsenal", Away: "Fulham"}, MatchOdds{Home: 10, Draw: 10, Away: 1.05})
	require.NoError(t, err)
	require.NotEmpty(t, report.Bets, "a big home favourite priced as an outsider is value")
	assert.Equal(t, OutcomeHome, report.Bets[0].Outcome)

	_, err = p.ValueBetsForOdds(Request{Home: "Arsenal", Away: "Fulham"}, MatchOdds{Home: 0, Draw: 3, Away: 3})
	assert.ErrorIs(t, err, ErrInvalidRequest)
}

func TestPredictAssemblesEveryMarket(t *testing.T) {
	p := newTestPredictor(t, leagueDataset(t))

	prediction, err := p.Predict(Request{Home: "Chelsea", Away: "Arsenal", LastMatches: 5})
	require.NoError(t, err)

	_, err = uuid.Parse(prediction.ID)
	assert.NoError(t, err)
	assert.Equal(t, 5, prediction.LastMatches)
	assert.InDelta(t, 1.0, prediction.Outcomes.Sum(), 0.03)
	assert.False(t, prediction.GeneratedAt.IsZero())
	require.NotNil(t, prediction.ValueBets)

	for _, market := range []string{MarketBTTS, MarketGoals, MarketHandicap, MarketCorners, MarketCards} {
		found := false
		for _, mp := range prediction.Markets {
			if mp.Market == market {
				found = true
				break
			}
		}
		assert.True(t, found, "market %s missing", market)
	}

	btts, ok := prediction.Market(MarketBTTS, "Both teams to score")
	require.True(t, ok)
	assert.NotNil(t, btts.Final)
}

func TestPredictNotesMissingHistory(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 2, 1), played("A", "C", 1, 1)})
	require.NoError(t, err)
	p := newTestPredictor(t, d)

	// B never hosted and A never travelled
	prediction, err := p.Predict(Request{Home: "B", Away: "A"})
	require.NoError(t, err)
	assert.Equal(t, NeutralStrength(), prediction.HomeStrength)
	assert.Equal(t, NeutralStrength(), prediction.AwayStrength)
	assert.NotEmpty(t, prediction.Notes)
	assert.InDelta(t, d.Means().HomeGoals, prediction.ExpectedGoals.Home, 1e-12)
}

func TestPredictorIsSafeForConcurrentUse(t *testing.T) {
	p, err := NewPredictor(leagueDataset(t), nil)
	require.NoError(t, err)

	var wg sync.WaitGroup
	errs := make(chan error, 8)
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Predict(Request{Home: "Arsenal", Away: "Everton", Simulations: 200})
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		assert.NoError(t, err)
	}
}
