// Package outcome maps fulfilled randomness to a coinflip result.
//
// The mapping is part of the wire protocol: two settlements of the same random
// value must agree regardless of platform. Any change to the modulus or the
// thresholds gets a new Rule version rather than an edit to an existing one.
package outcome

import (
	"encoding/binary"
	"fmt"
)

// Result is the resolved outcome of a game.
type Result uint8

const (
	// None marks an unresolved game.
	None Result = iota
	Option1Wins
	Option2Wins
	Tie
	// Void is recorded when a game is cancelled or expired and its stake refunded.
	// No rule ever produces it.
	Void
)

func (r Result) String() string {
	switch r {
	case None:
		return "none"
	case Option1Wins:
		return "option1_wins"
	case Option2Wins:
		return "option2_wins"
	case Tie:
		return "tie"
	case Void:
		return "void"
	default:
		return fmt.Sprintf("result(%d)", uint8(r))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (r Result) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (r *Result) UnmarshalText(text []byte) error {
	switch string(text) {
	case "none", "":
		*r = None
	case "option1_wins":
		*r = Option1Wins
	case "option2_wins":
		*r = Option2Wins
	case "tie":
		*r = Tie
	case "void":
		*r = Void
	default:
		return fmt.Errorf("unknown result %q", text)
	}
	return nil
}

// Rule is a versioned randomness-to-outcome mapping.
type Rule struct {
	Version   uint16
	Modulus   uint64
	TieBelow  uint64 // v < TieBelow => Tie
	Opt1Below uint64 // TieBelow <= v < Opt1Below => Option1Wins, otherwise Option2Wins
}

// RuleV1 is the launch rule: 5% tie, 47.5% each side.
var RuleV1 = Rule{
	Version:   1,
	Modulus:   200,
	TieBelow:  10,
	Opt1Below: 105,
}

// Current is the rule new games are settled with.
var Current = RuleV1

// Bucket reduces a random value to [0, Modulus). The first eight bytes are read
// as a little-endian uint64; shorter inputs are zero-padded.
func (r Rule) Bucket(random []byte) uint64 {
	var buf [8]byte
	copy(buf[:], random)
	return binary.LittleEndian.Uint64(buf[:]) % r.Modulus
}

// Classify maps an already-reduced bucket value to a result.
func (r Rule) Classify(v uint64) Result {
	switch {
	case v < r.TieBelow:
		return Tie
	case v < r.Opt1Below:
		return Option1Wins
	default:
		return Option2Wins
	}
}

// Resolve computes the result for a fulfilled random value.
func (r Rule) Resolve(random []byte) Result {
	return r.Classify(r.Bucket(random))
}

// Validate checks the thresholds are ordered and inside the modulus.
func (r Rule) Validate() error {
	if r.Modulus == 0 {
		return fmt.Errorf("rule v%d: modulus must be positive", r.Version)
	}
	if r.TieBelow > r.Opt1Below || r.Opt1Below > r.Modulus {
		return fmt.Errorf("rule v%d: thresholds out of order", r.Version)
	}
	return nil
}

// ByVersion returns a known rule.
func ByVersion(v uint16) (Rule, bool) {
	switch v {
	case RuleV1.Version:
		return RuleV1, true
	}
	return Rule{}, false
}
