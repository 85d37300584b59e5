package coinflip

import (
	"fmt"
	"time"

	"github.com/ryanschwarting/coinflip/internal/address"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/outcome"
)

// Choice is the side a player bets on.
type Choice uint8

const (
	Option1 Choice = iota + 1
	Option2
	// ChoiceTie is reserved. A tie always refunds, so it cannot be bet on.
	ChoiceTie
)

func (c Choice) String() string {
	switch c {
	case Option1:
		return "option1"
	case Option2:
		return "option2"
	case ChoiceTie:
		return "tie"
	default:
		return fmt.Sprintf("choice(%d)", uint8(c))
	}
}

// Valid reports whether the choice can be bet on.
func (c Choice) Valid() bool {
	return c == Option1 || c == Option2
}

// Wins reports whether a result pays this choice.
func (c Choice) Wins(r outcome.Result) bool {
	return (c == Option1 && r == outcome.Option1Wins) || (c == Option2 && r == outcome.Option2Wins)
}

func (c Choice) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

func (c *Choice) UnmarshalText(text []byte) error {
	parsed, err := ParseChoice(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// ParseChoice parses "option1", "option2" or "tie".
func ParseChoice(s string) (Choice, error) {
	switch s {
	case "option1", "1":
		return Option1, nil
	case "option2", "2":
		return Option2, nil
	case "tie":
		return ChoiceTie, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidChoice, s)
}

// Status is a game's lifecycle position. It only moves forward.
type Status uint8

const (
	Waiting Status = iota
	Processing
	Finished
)

func (s Status) String() string {
	switch s {
	case Waiting:
		return "waiting"
	case Processing:
		return "processing"
	case Finished:
		return "finished"
	default:
		return fmt.Sprintf("status(%d)", uint8(s))
	}
}

func (s Status) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *Status) UnmarshalText(text []byte) error {
	switch string(text) {
	case "waiting":
		*s = Waiting
	case "processing":
		*s = Processing
	case "finished":
		*s = Finished
	default:
		return fmt.Errorf("unknown status %q", text)
	}
	return nil
}

// Game is the record for one game in a room.
type Game struct {
	RoomID   string          `json:"room_id"`
	Address  address.Address `json:"address"`
	Sequence uint32          `json:"sequence"`
	Player   string          `json:"player"`
	Amount   uint64          `json:"amount"`
	Choice   Choice          `json:"player_choice"`

	Force     *oracle.Seed `json:"force,omitempty"`
	RequestID string       `json:"request_id,omitempty"`

	Status      Status         `json:"status"`
	Result      outcome.Result `json:"result"`
	Roll        *uint64        `json:"roll,omitempty"`
	RuleVersion uint16         `json:"rule_version,omitempty"`
	Payout      uint64         `json:"payout"`
	Claimed     bool           `json:"claimed"`

	CreatedAt      time.Time `json:"created_at"`
	LastActionTime time.Time `json:"last_action_time"`
}

// Settled reports whether the game owes nothing more: finished, and either
// claimed or with nothing to pay.
func (g *Game) Settled() bool {
	return g.Status == Finished && (g.Claimed || g.Payout == 0)
}

// Liability is what the treasury currently holds locked for this game.
func (g *Game) Liability() uint64 {
	switch {
	case g.Status != Finished:
		return g.Amount * 2
	case g.Claimed:
		return 0
	default:
		return g.Payout
	}
}

func (g *Game) clone() *Game {
	c := *g
	if g.Force != nil {
		f := *g.Force
		c.Force = &f
	}
	if g.Roll != nil {
		r := *g.Roll
		c.Roll = &r
	}
	return &c
}

// payout is what the treasury owes the player for a result.
func payout(choice Choice, result outcome.Result, amount uint64) uint64 {
	switch {
	case result == outcome.Tie:
		return amount
	case choice.Wins(result):
		return amount * 2
	default:
		return 0
	}
}
