package podds

import (
	"math"
	"math/rand"
	randv2 "math/rand/v2"
	"sort"
)

// RandSource is the randomness the simulator draws from. *rand.Rand satisfies it
type RandSource interface {
	Float64() float64
	NormFloat64() float64
}

// SourceFactory hands out a fresh source per simulation
type SourceFactory func() RandSource

// NewTimeSource returns an independent randomly seeded source.
// Seeds come from the runtime generator, so sources created in the same instant still differ
func NewTimeSource() RandSource {
	return randv2.New(randv2.NewPCG(randv2.Uint64(), randv2.Uint64()))
}

// NewSeededSource returns a reproducible source
func NewSeededSource(seed int64) RandSource {
	return rand.New(rand.NewSource(seed))
}

// SeededFactory returns a factory whose sources are all seeded identically
func SeededFactory(seed int64) SourceFactory {
	return func() RandSource { return NewSeededSource(seed) }
}

// DefaultMaxGoals bounds any single draw
const DefaultMaxGoals = 30

// normalApproximationThreshold is the rate above which a normal approximation replaces Knuth's method
const normalApproximationThreshold = 30.0

// Simulator draws paired Poisson goal counts
type Simulator struct {
	Source   RandSource
	MaxGoals int
}

// NewSimulator creates a simulator, falling back to a time seeded source and the default cap
func NewSimulator(source RandSource, maxGoals int) *Simulator {
	if source == nil {
		source = NewTimeSource()
	}
	if maxGoals <= 0 {
		maxGoals = DefaultMaxGoals
	}
	return &Simulator{Source: source, MaxGoals: maxGoals}
}

// Simulate draws n independent (home, away) pairs from Poisson(lh) and Poisson(la)
func (s *Simulator) Simulate(lh, la float64, n int) *Samples {
	if n <= 0 {
		return &Samples{}
	}
	samples := &Samples{
		home: make([]int, n),
		away: make([]int, n),
	}
	for i := 0; i < n; i++ {
		samples.home[i] = s.draw(lh)
		samples.away[i] = s.draw(la)
	}
	return samples
}

// draw returns one Poisson variate capped at MaxGoals
func (s *Simulator) draw(lambda float64) int {
	k := poissonRandom(lambda, s.Source)
	if s.MaxGoals > 0 && k > s.MaxGoals {
		k = s.MaxGoals
	}
	return k
}

// poissonRandom generates a Poisson-distributed random number using Knuth's algorithm,
// or a rounded normal approximation for large lambda
func poissonRandom(lambda float64, rng RandSource) int {
	if lambda <= 0 || math.IsNaN(lambda) {
		return 0
	}
	if lambda < normalApproximationThreshold {
		L := math.Exp(-lambda)
		k := 0
		p := 1.0
		for {
			k++
			p *= rng.Float64()
			if p <= L {
				break
			}
		}
		return k - 1
	}
	normal := rng.NormFloat64()
	result := int(math.Round(lambda + math.Sqrt(lambda)*normal))
	if result < 0 {
		return 0
	}
	return result
}

/////////////////////////////////////////////////////////////////////////
////// Samples
/////////////////////////////////////////////////////////////////////////

// Samples is one set of simulated scorelines. Every market reads its statistic off it
type Samples struct {
	home []int
	away []int
}

// NewSamples builds a sample set from known scorelines, mostly for tests
func NewSamples(scores ...Score) *Samples {
	s := &Samples{
		home: make([]int, len(scores)),
		away: make([]int, len(scores)),
	}
	for i, sc := range scores {
		s.home[i] = sc.Home
		s.away[i] = sc.Away
	}
	return s
}

// Len returns the number of trials
func (s *Samples) Len() int {
	return len(s.home)
}

// Probability returns the share of trials satisfying pred, 0 for an empty set
func (s *Samples) Probability(pred func(home, away int) bool) float64 {
	if len(s.home) == 0 {
		return 0
	}
	hits := 0
	for i := range s.home {
		if pred(s.home[i], s.away[i]) {
			hits++
		}
	}
	return float64(hits) / float64(len(s.home))
}

// Outcomes tallies home wins, draws and away wins
func (s *Samples) Outcomes() OutcomeProbabilities {
	if len(s.home) == 0 {
		return OutcomeProbabilities{}
	}
	var h, d, a int
	for i := range s.home {
		switch {
		case s.home[i] > s.away[i]:
			h++
		case s.home[i] == s.away[i]:
			d++
		default:
			a++
		}
	}
	n := float64(len(s.home))
	return OutcomeProbabilities{
		Home: float64(h) / n,
		Draw: float64(d) / n,
		Away: float64(a) / n,
	}
}

// Scores tallies the scorelines in the order they were first drawn
func (s *Samples) Scores() *ScoreDistribution {
	dist := newScoreDistribution()
	for i := range s.home {
		dist.add(Score{Home: s.home[i], Away: s.away[i]})
	}
	return dist
}

// MostLikelyScore returns the most frequent scoreline; ties go to the first drawn
func (s *Samples) MostLikelyScore() Score {
	return s.Scores().MostLikely()
}

// BothScore is the probability both sides score
func (s *Samples) BothScore() float64 {
	return s.Probability(func(h, a int) bool { return h > 0 && a > 0 })
}

// TotalOver is the probability the combined count exceeds the line
func (s *Samples) TotalOver(line float64) float64 {
	return s.Probability(func(h, a int) bool { return float64(h+a) > line })
}

// HomeOver is the probability the home count exceeds the line
func (s *Samples) HomeOver(line float64) float64 {
	return s.Probability(func(h, _ int) bool { return float64(h) > line })
}

// AwayOver is the probability the away count exceeds the line
func (s *Samples) AwayOver(line float64) float64 {
	return s.Probability(func(_, a int) bool { return float64(a) > line })
}

// HandicapCover is the probability that side, given the line, wins outright:
// (own − opponent) + line > 0
func (s *Samples) HandicapCover(side Venue, line float64) float64 {
	return s.Probability(func(h, a int) bool { return handicapMargin(side, line, h, a) > 0 })
}

// HandicapPush is the probability the stake is returned on an integer line
func (s *Samples) HandicapPush(side Venue, line float64) float64 {
	if line != math.Trunc(line) {
		return 0
	}
	return s.Probability(func(h, a int) bool { return handicapMargin(side, line, h, a) == 0 })
}

func handicapMargin(side Venue, line float64, h, a int) float64 {
	if side == Home {
		return float64(h-a) + line
	}
	return float64(a-h) + line
}

/////////////////////////////////////////////////////////////////////////
////// Score distribution
/////////////////////////////////////////////////////////////////////////

// Score is a scoreline
type Score struct {
	Home int `json:"home"`
	Away int `json:"away"`
}

// ScoreProbability pairs a scoreline with its simulated frequency
type ScoreProbability struct {
	Score       Score   `json:"score"`
	Probability float64 `json:"probability"`
}

// ScoreDistribution counts scorelines and remembers the order they first appeared
type ScoreDistribution struct {
	counts map[Score]int
	order  []Score
	total  int
}

func newScoreDistribution() *ScoreDistribution {
	return &ScoreDistribution{counts: make(map[Score]int)}
}

func (d *ScoreDistribution) add(s Score) {
	if _, ok := d.counts[s]; !ok {
		d.order = append(d.order, s)
	}
	d.counts[s]++
	d.total++
}

// Total returns the number of trials tallied
func (d *ScoreDistribution) Total() int {
	return d.total
}

// Count returns how often s was drawn
func (d *ScoreDistribution) Count(s Score) int {
	return d.counts[s]
}

// Probability returns the share of trials that ended s
func (d *ScoreDistribution) Probability(s Score) float64 {
	if d.total == 0 {
		return 0
	}
	return float64(d.counts[s]) / float64(d.total)
}

// MostLikely returns the most frequent scoreline, the first seen on ties, 0-0 when empty
func (d *ScoreDistribution) MostLikely() Score {
	var best Score
	bestCount := 0
	for _, s := range d.order {
		if c := d.counts[s]; c > bestCount {
			best = s
			bestCount = c
		}
	}
	return best
}

// Top returns up to n scorelines by frequency, ties in first seen order
func (d *ScoreDistribution) Top(n int) []ScoreProbability {
	ranked := make([]Score, len(d.order))
	copy(ranked, d.order)
	sort.SliceStable(ranked, func(i, j int) bool {
		return d.counts[ranked[i]] > d.counts[ranked[j]]
	})
	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	out := make([]ScoreProbability, len(ranked))
	for i, s := range ranked {
		out[i] = ScoreProbability{Score: s, Probability: d.Probability(s)}
	}
	return out
}
