package statistics

import (
	"math"
	"testing"

	"github.com/ryanschwarting/coinflip/internal/outcome"
)

const stake = 100_000_000

func win() GameResult  { return GameResult{Result: outcome.Option1Wins, Won: true, Amount: stake, Payout: 2 * stake} }
func loss() GameResult { return GameResult{Result: outcome.Option2Wins, Amount: stake} }
func tie() GameResult  { return GameResult{Result: outcome.Tie, Amount: stake, Payout: stake} }

func TestStatistics_Empty(t *testing.T) {
	stats := New()

	if stats.Mean() != 0 {
		t.Errorf("Expected mean of 0 for empty stats, got %f", stats.Mean())
	}
	if stats.Variance() != 0 {
		t.Errorf("Expected variance of 0 for empty stats, got %f", stats.Variance())
	}
	if stats.StdError() != 0 {
		t.Errorf("Expected stderr of 0 for empty stats, got %f", stats.StdError())
	}
	if stats.Median() != 0 {
		t.Errorf("Expected median of 0 for empty stats, got %f", stats.Median())
	}
	if stats.Frequency(outcome.Tie) != 0 {
		t.Errorf("Expected tie frequency of 0 for empty stats, got %f", stats.Frequency(outcome.Tie))
	}
	if err := stats.Validate(); err == nil {
		t.Error("Expected empty stats to fail validation")
	}
}

func TestHouseNet(t *testing.T) {
	tests := []struct {
		name string
		r    GameResult
		want float64
	}{
		{"player wins", win(), -1},
		{"player loses", loss(), 1},
		{"push", tie(), 0},
		{"refund", GameResult{Result: outcome.Void, Amount: stake, Payout: stake}, 0},
		{"zero stake", GameResult{}, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.r.HouseNet(); got != tt.want {
				t.Errorf("HouseNet() = %f, want %f", got, tt.want)
			}
		})
	}
}

func TestStatistics_MultipleValues(t *testing.T) {
	stats := New()
	for _, r := range []GameResult{win(), loss(), loss(), tie(), loss()} {
		stats.Add(r)
	}

	if stats.Games != 5 {
		t.Fatalf("Expected 5 games, got %d", stats.Games)
	}
	// -1 +1 +1 0 +1
	if math.Abs(stats.Mean()-0.4) > 1e-9 {
		t.Errorf("Expected mean of 0.4, got %f", stats.Mean())
	}
	// sum of squares 4, mean 0.4: (4 - 5*0.16) / 4 = 0.8
	if math.Abs(stats.Variance()-0.8) > 1e-9 {
		t.Errorf("Expected variance of 0.8, got %f", stats.Variance())
	}
	if stats.Median() != 1 {
		t.Errorf("Expected median of 1, got %f", stats.Median())
	}
	if stats.Percentile(0) != -1 || stats.Percentile(1) != 1 {
		t.Errorf("Expected range [-1, 1], got [%f, %f]", stats.Percentile(0), stats.Percentile(1))
	}
	if stats.PlayerWins != 1 {
		t.Errorf("Expected 1 player win, got %d", stats.PlayerWins)
	}
	if stats.Results[outcome.Option2Wins] != 3 {
		t.Errorf("Expected 3 option2 results, got %d", stats.Results[outcome.Option2Wins])
	}
	if got := stats.Frequency(outcome.Tie); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("Expected tie frequency 0.2, got %f", got)
	}
	if stats.Staked != 5*stake || stats.Paid != 3*stake {
		t.Errorf("Expected staked/paid %d/%d, got %d/%d", 5*stake, 3*stake, stats.Staked, stats.Paid)
	}

	low, high := stats.ConfidenceInterval95()
	if low >= stats.Mean() || high <= stats.Mean() {
		t.Errorf("Confidence interval [%f, %f] does not contain mean %f", low, high, stats.Mean())
	}
	if err := stats.Validate(); err != nil {
		t.Errorf("Validate() = %v", err)
	}
}

func TestStatistics_ValidateCatchesCorruption(t *testing.T) {
	stats := New()
	stats.Add(win())
	stats.Add(loss())

	stats.Results[outcome.Tie]++
	if err := stats.Validate(); err == nil {
		t.Error("Expected mismatched result counts to fail validation")
	}

	stats = New()
	stats.Add(loss())
	stats.Paid = 3 * stake
	if err := stats.Validate(); err == nil {
		t.Error("Expected overpayment to fail validation")
	}
}

func TestExpectedEdge(t *testing.T) {
	// 95 buckets each side, ties push.
	if got := ExpectedEdge(outcome.RuleV1, outcome.Option1Wins); got != 0 {
		t.Errorf("ExpectedEdge(v1, option1) = %f, want 0", got)
	}
	if got := ExpectedEdge(outcome.RuleV1, outcome.Option2Wins); got != 0 {
		t.Errorf("ExpectedEdge(v1, option2) = %f, want 0", got)
	}

	skewed := outcome.Rule{Version: 99, Modulus: 100, TieBelow: 0, Opt1Below: 40}
	if got := ExpectedEdge(skewed, outcome.Option1Wins); math.Abs(got-0.2) > 1e-9 {
		t.Errorf("ExpectedEdge(skewed, option1) = %f, want 0.2", got)
	}
	if got := ExpectedEdge(skewed, outcome.Option2Wins); math.Abs(got+0.2) > 1e-9 {
		t.Errorf("ExpectedEdge(skewed, option2) = %f, want -0.2", got)
	}
}
