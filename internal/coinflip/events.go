package coinflip

import (
	"time"

	"github.com/ryanschwarting/coinflip/internal/ledger"
)

// EventType names a committed transition.
type EventType string

const (
	EventGameCreated     EventType = "game_created"
	EventGamePlayed      EventType = "game_played"
	EventGameFinished    EventType = "game_finished"
	EventGameClaimed     EventType = "game_claimed"
	EventGameRefunded    EventType = "game_refunded"
	EventTreasuryUpdated EventType = "treasury_updated"
	EventAccountCredited EventType = "account_credited"
)

// Event describes a committed transition. The records it carries are
// snapshots, safe to keep.
type Event struct {
	Type     EventType        `json:"type"`
	Time     time.Time        `json:"time"`
	Game     *Game            `json:"game,omitempty"`
	Treasury *ledger.Treasury `json:"treasury,omitempty"`
	Account  *ledger.Account  `json:"account,omitempty"`
}

// Subscriber receives events after their transition is durable.
type Subscriber interface {
	OnEvent(Event)
}

// SubscriberFunc adapts a function to Subscriber.
type SubscriberFunc func(Event)

func (f SubscriberFunc) OnEvent(e Event) { f(e) }

// Subscribe registers s for all later events.
func (c *Controller) Subscribe(s Subscriber) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	c.subscribers = append(c.subscribers, s)
}

func (c *Controller) publish(events []Event) {
	if len(events) == 0 {
		return
	}
	c.subMu.RLock()
	subs := append([]Subscriber(nil), c.subscribers...)
	c.subMu.RUnlock()

	for _, e := range events {
		for _, s := range subs {
			s.OnEvent(e)
		}
	}
}
