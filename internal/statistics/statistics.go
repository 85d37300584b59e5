// Package statistics summarises simulated coinflip games from the house's
// point of view.
package statistics

import (
	"fmt"
	"math"
	"sort"

	"github.com/ryanschwarting/coinflip/internal/outcome"
)

// GameResult is the outcome of a single settled game.
type GameResult struct {
	Result outcome.Result
	Won    bool   // player's side came up
	Amount uint64 // stake in lamports
	Payout uint64 // lamports returned to the player
}

// HouseNet is the house's gain in stakes: +1 for a player loss, -1 for a
// player win, 0 for a push.
func (r GameResult) HouseNet() float64 {
	if r.Amount == 0 {
		return 0
	}
	return (float64(r.Amount) - float64(r.Payout)) / float64(r.Amount)
}

// Statistics tracks a run of games.
type Statistics struct {
	Games  int
	Sum    float64
	SumSq  float64   // sum of squares for variance
	Values []float64 // every house net, for median and percentiles

	Results    map[outcome.Result]int
	PlayerWins int

	Staked uint64
	Paid   uint64
}

// New returns empty statistics.
func New() *Statistics {
	return &Statistics{Results: make(map[outcome.Result]int)}
}

// Add incorporates a settled game.
func (s *Statistics) Add(r GameResult) {
	if s.Results == nil {
		s.Results = make(map[outcome.Result]int)
	}
	net := r.HouseNet()
	s.Games++
	s.Sum += net
	s.SumSq += net * net
	s.Values = append(s.Values, net)

	s.Results[r.Result]++
	if r.Won {
		s.PlayerWins++
	}
	s.Staked += r.Amount
	s.Paid += r.Payout
}

// Mean returns the observed house edge per game, in stakes.
func (s *Statistics) Mean() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.Sum / float64(s.Games)
}

// Variance returns the sample variance
func (s *Statistics) Variance() float64 {
	if s.Games < 2 {
		return 0
	}
	mean := s.Mean()
	return (s.SumSq - float64(s.Games)*mean*mean) / float64(s.Games-1)
}

func (s *Statistics) StdDev() float64 {
	return math.Sqrt(s.Variance())
}

// StdError returns the standard error of the mean
func (s *Statistics) StdError() float64 {
	if s.Games == 0 {
		return 0
	}
	return s.StdDev() / math.Sqrt(float64(s.Games))
}

// ConfidenceInterval95 returns the 95% confidence interval for the edge.
func (s *Statistics) ConfidenceInterval95() (float64, float64) {
	mean := s.Mean()
	margin := 1.96 * s.StdError()
	return mean - margin, mean + margin
}

// Frequency returns the share of games that ended in r.
func (s *Statistics) Frequency(r outcome.Result) float64 {
	if s.Games == 0 {
		return 0
	}
	return float64(s.Results[r]) / float64(s.Games)
}

// Median returns the median house net
func (s *Statistics) Median() float64 {
	return s.Percentile(0.5)
}

// Percentile returns the house net at p (0.0 to 1.0), interpolating between
// neighbours.
func (s *Statistics) Percentile(p float64) float64 {
	if len(s.Values) == 0 {
		return 0
	}
	sorted := make([]float64, len(s.Values))
	copy(sorted, s.Values)
	sort.Float64s(sorted)

	index := p * float64(len(sorted)-1)
	lower := int(index)
	upper := lower + 1
	if upper >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	weight := index - float64(lower)
	return sorted[lower]*(1-weight) + sorted[upper]*weight
}

// ExpectedEdge is the house edge, in stakes, on a bet that pays when side
// comes up. Ties refund the stake.
func ExpectedEdge(rule outcome.Rule, side outcome.Result) float64 {
	m := float64(rule.Modulus)
	opt1 := float64(rule.Opt1Below-rule.TieBelow) / m
	opt2 := float64(rule.Modulus-rule.Opt1Below) / m
	if side == outcome.Option1Wins {
		return opt2 - opt1
	}
	return opt1 - opt2
}

// Validate checks the counters agree with each other.
func (s *Statistics) Validate() error {
	if s.Games <= 0 {
		return fmt.Errorf("invalid games count: %d", s.Games)
	}
	if len(s.Values) != s.Games {
		return fmt.Errorf("values length (%d) does not match games (%d)", len(s.Values), s.Games)
	}
	total := 0
	for _, n := range s.Results {
		total += n
	}
	if total != s.Games {
		return fmt.Errorf("result counts (%d) do not match games (%d)", total, s.Games)
	}
	if s.PlayerWins > s.Games {
		return fmt.Errorf("player wins (%d) exceed games (%d)", s.PlayerWins, s.Games)
	}
	// A payout is never more than twice the stake.
	if s.Paid > 2*s.Staked {
		return fmt.Errorf("paid %d exceeds twice the staked %d", s.Paid, s.Staked)
	}
	return nil
}
