package podds

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRecencyWeights(t *testing.T) {
	assert.Nil(t, RecencyWeights(0))
	assert.Equal(t, []float64{math.Exp(-1)}, RecencyWeights(1))

	w := RecencyWeights(3)
	require.Len(t, w, 3)
	assert.InDelta(t, math.Exp(-1), w[0], 1e-12)
	assert.InDelta(t, math.Exp(-0.5), w[1], 1e-12)
	assert.InDelta(t, 1.0, w[2], 1e-12)
}

func TestWeightedAverage(t *testing.T) {
	_, ok := WeightedAverage(nil)
	assert.False(t, ok)

	avg, ok := WeightedAverage([]float64{4})
	assert.True(t, ok)
	assert.InDelta(t, 4.0, avg, 1e-12)

	e := math.Exp(-1)
	avg, ok = WeightedAverage([]float64{0, 1})
	assert.True(t, ok)
	assert.InDelta(t, 1/(1+e), avg, 1e-12)
	assert.Greater(t, avg, 0.5, "recent values weigh more")
}

func TestTeamStrengthFromWeightedForm(t *testing.T) {
	// home mean 1, away mean 1/3
	d, err := NewDataset([]*Match{
		played("A", "B", 2, 0),
		played("A", "C", 1, 1),
		played("B", "C", 0, 0),
	})
	require.NoError(t, err)

	e := math.Exp(-1)
	form := d.TeamForm("A", Home, 10)
	assert.Equal(t, 2, form.Matches)
	assert.InDelta(t, (2*e+1)/(e+1), form.GoalsFor, 1e-12)
	assert.InDelta(t, 1/(e+1), form.GoalsAgainst, 1e-12)

	s := d.TeamStrength("A", Home, 10)
	assert.InDelta(t, (2*e+1)/(e+1), s.Attack, 1e-12)
	assert.InDelta(t, (1/(e+1))/(1.0/3.0), s.Defense, 1e-12)

	// the window keeps only the latest match
	s = d.TeamStrength("A", Home, 1)
	assert.InDelta(t, 1.0, s.Attack, 1e-12)
	assert.InDelta(t, 3.0, s.Defense, 1e-12)
}

func TestTeamStrengthWithoutHistoryIsNeutral(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 2, 0)})
	require.NoError(t, err)

	assert.Equal(t, NeutralStrength(), d.TeamStrength("B", Home, 10), "B never played at home")
	assert.Equal(t, NeutralStrength(), d.TeamStrength("Nobody", Away, 10))
}

func TestTeamStrengthWithZeroLeagueMean(t *testing.T) {
	d, err := NewDataset([]*Match{played("A", "B", 0, 0)})
	require.NoError(t, err)
	assert.Equal(t, NeutralStrength(), d.TeamStrength("A", Home, 10))
}

func TestWeightedStatFallbacks(t *testing.T) {
	bare, err := NewDataset([]*Match{played("A", "B", 1, 0)})
	require.NoError(t, err)

	v, ok := bare.WeightedStat("A", Home, 10, StatCornersWon)
	assert.False(t, ok)
	assert.Equal(t, 5.0, v)
	v, _ = bare.WeightedStat("A", Home, 10, StatYellowCards)
	assert.Equal(t, 1.5, v)
	v, _ = bare.WeightedStat("A", Home, 10, StatFouls)
	assert.Equal(t, 10.0, v)

	withCorners := played("A", "B", 1, 0)
	withCorners.HomeCorners = 7
	withCorners.AwayCorners = 5
	d, err := NewDataset([]*Match{withCorners, played("C", "A", 0, 0)})
	require.NoError(t, err)

	v, ok = d.WeightedStat("A", Home, 10, StatCornersWon)
	assert.True(t, ok)
	assert.Equal(t, 7.0, v)
	v, ok = d.WeightedStat("A", Home, 10, StatCornersConceded)
	assert.True(t, ok)
	assert.Equal(t, 5.0, v)

	// C has no corner records: half of the league's 12 per match
	v, ok = d.WeightedStat("C", Home, 10, StatCornersWon)
	assert.False(t, ok)
	assert.Equal(t, 6.0, v)
}

func TestHeadToHeadCorrection(t *testing.T) {
	d, err := NewDataset([]*Match{
		played("A", "B", 3, 1),
		played("B", "A", 1, 1),
		played("A", "B", 2, 2),
		played("C", "A", 5, 0),
	})
	require.NoError(t, err)

	h2h := d.HeadToHeadCorrection("A", "B", 5)
	assert.Equal(t, 3, h2h.Meetings)
	assert.InDelta(t, 1.05, h2h.Home, 1e-12, "A hosted twice with mean differential +1")
	assert.InDelta(t, 1.0, h2h.Away, 1e-12, "B hosted once with a draw")

	none := d.HeadToHeadCorrection("B", "C", 5)
	assert.Equal(t, NeutralHeadToHead(), none)
}

func TestHeadToHeadCorrectionIsClamped(t *testing.T) {
	d, err := NewDataset([]*Match{
		played("A", "B", 9, 0),
		played("B", "A", 0, 8),
	})
	require.NoError(t, err)

	h2h := d.HeadToHeadCorrection("A", "B", 5)
	assert.InDelta(t, 1.2, h2h.Home, 1e-12)
	assert.InDelta(t, 0.8, h2h.Away, 1e-12)
}

func TestHeadToHeadUsesLastMeetingsOnly(t *testing.T) {
	var matches []*Match
	matches = append(matches, played("A", "B", 0, 4))
	for i := 0; i < 5; i++ {
		matches = append(matches, played("A", "B", 1, 1))
	}
	d, err := NewDataset(matches)
	require.NoError(t, err)

	h2h := d.HeadToHeadCorrection("A", "B", 5)
	assert.Equal(t, 5, h2h.Meetings)
	assert.InDelta(t, 1.0, h2h.Home, 1e-12)
}

func TestHistoricalBTTSRate(t *testing.T) {
	d, err := NewDataset([]*Match{
		played("A", "B", 1, 1),
		played("A", "C", 1, 0),
		played("C", "B", 2, 2),
		played("C", "D", 0, 0),
	})
	require.NoError(t, err)

	rate, ok := d.HistoricalBTTSRate("A", "B", 20)
	require.True(t, ok)
	// A: 1 of 2, B: 2 of 2
	assert.InDelta(t, 0.75, rate, 1e-12)

	rate, ok = d.HistoricalBTTSRate("A", "Nobody", 20)
	require.True(t, ok)
	assert.InDelta(t, 0.5, rate, 1e-12)

	_, ok = d.HistoricalBTTSRate("X", "Y", 20)
	assert.False(t, ok)
}
