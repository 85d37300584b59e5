// Package coinflip implements the game lifecycle state machine and its
// settlement against the treasury.
//
// Every exported operation is one atomic transition: it loads the records it
// touches, validates, mutates copies and commits them in a single store batch.
// A failed operation writes nothing.
package coinflip

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/ryanschwarting/coinflip/internal/address"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/outcome"
	"github.com/ryanschwarting/coinflip/internal/store"
)

// LamportsPerSOL is the base unit scale of the house currency.
const LamportsPerSOL = ledger.LamportsPerSOL

// Limits are the house rules.
type Limits struct {
	MinBet            uint64
	MaxBet            uint64
	Reserve           uint64 // withdrawals never dip into this
	RestrictFunding   bool   // only the authority may fund
	RoomCooldown      time.Duration
	WaitingTTL        time.Duration
	ProcessingTimeout time.Duration
}

// DefaultLimits returns the launch house rules.
func DefaultLimits() Limits {
	return Limits{
		MinBet:            5 * LamportsPerSOL / 100, // 0.05 SOL
		MaxBet:            10 * LamportsPerSOL,
		RoomCooldown:      30 * time.Second,
		WaitingTTL:        time.Hour,
		ProcessingTimeout: 10 * time.Minute,
	}
}

// Controller runs the coinflip state machine.
type Controller struct {
	// mu serializes every transition. The treasury balance is a single shared
	// counter and each game transition also touches it. Oracle requests are
	// made under mu so a game asks for randomness once; oracle reads are not.
	mu sync.Mutex

	store  store.Store
	oracle oracle.Oracle
	rule   outcome.Rule
	limits Limits
	clock  quartz.Clock
	logger *log.Logger

	subMu       sync.RWMutex
	subscribers []Subscriber
}

// Option configures a Controller.
type Option func(*Controller)

// WithClock sets the clock used for timestamps and expiry.
func WithClock(clock quartz.Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithLimits sets the house rules.
func WithLimits(limits Limits) Option {
	return func(c *Controller) { c.limits = limits }
}

// WithRule sets the outcome rule new games settle with.
func WithRule(rule outcome.Rule) Option {
	return func(c *Controller) { c.rule = rule }
}

// New creates a controller over st, settling against o.
func New(st store.Store, o oracle.Oracle, logger *log.Logger, opts ...Option) *Controller {
	c := &Controller{
		store:  st,
		oracle: o,
		rule:   outcome.Current,
		limits: DefaultLimits(),
		clock:  quartz.NewReal(),
		logger: logger.WithPrefix("coinflip"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Limits returns the house rules in force.
func (c *Controller) Limits() Limits {
	return c.limits
}

// run executes fn as one atomic transition and publishes its events once the
// batch is durable.
func (c *Controller) run(fn func(tx *txn) error) error {
	c.mu.Lock()
	tx := &txn{c: c, now: c.clock.Now(), accounts: make(map[string]*ledger.Account)}
	err := fn(tx)
	if err == nil {
		err = tx.commit()
	}
	c.mu.Unlock()

	if err != nil {
		return err
	}
	c.publish(tx.events)
	return nil
}

// view runs fn under the transition lock without committing anything.
func (c *Controller) view(fn func(tx *txn) error) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	tx := &txn{c: c, now: c.clock.Now(), accounts: make(map[string]*ledger.Account)}
	return fn(tx)
}

// txn is the working set of one transition.
type txn struct {
	c        *Controller
	now      time.Time
	batch    store.Batch
	treasury *ledger.Treasury
	accounts map[string]*ledger.Account
	games    []*Game
	events   []Event
}

func (tx *txn) loadTreasury() (*ledger.Treasury, error) {
	if tx.treasury != nil {
		return tx.treasury, nil
	}
	t := &ledger.Treasury{}
	if err := tx.get(treasuryKey(), t); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	tx.treasury = t
	return t, nil
}

// initializedTreasury loads the treasury and fails if it was never created.
func (tx *txn) initializedTreasury() (*ledger.Treasury, error) {
	t, err := tx.loadTreasury()
	if err != nil {
		return nil, err
	}
	if !t.Initialized {
		return nil, ErrNotInitialized
	}
	return t, nil
}

func (tx *txn) loadAccount(owner string) (*ledger.Account, error) {
	if a, ok := tx.accounts[owner]; ok {
		return a, nil
	}
	a := &ledger.Account{Owner: owner}
	if err := tx.get(accountKey(owner), a); err != nil && !errors.Is(err, store.ErrNotFound) {
		return nil, err
	}
	tx.accounts[owner] = a
	return a, nil
}

// loadGame returns a mutable copy of the room's game, or nil if the room is empty.
func (tx *txn) loadGame(roomID string) (*Game, error) {
	for _, g := range tx.games {
		if g.RoomID == roomID {
			return g, nil
		}
	}
	g := &Game{}
	err := tx.get(gameKey(roomID), g)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	tx.games = append(tx.games, g)
	return g, nil
}

// mustGame is loadGame that treats an empty room as an error.
func (tx *txn) mustGame(roomID string) (*Game, error) {
	g, err := tx.loadGame(roomID)
	if err != nil {
		return nil, err
	}
	if g == nil {
		return nil, fmt.Errorf("%w: %s", ErrRoomNotFound, roomID)
	}
	return g, nil
}

// putGame stages g as the live record of its room.
func (tx *txn) putGame(g *Game) {
	for i, existing := range tx.games {
		if existing.RoomID == g.RoomID {
			tx.games[i] = g
			return
		}
	}
	tx.games = append(tx.games, g)
}

func (tx *txn) emit(kind EventType, g *Game) {
	e := Event{Type: kind, Time: tx.now}
	if g != nil {
		e.Game = g.clone()
	}
	tx.events = append(tx.events, e)
}

func (tx *txn) emitTreasury(t *ledger.Treasury) {
	snapshot := *t
	tx.events = append(tx.events, Event{Type: EventTreasuryUpdated, Time: tx.now, Treasury: &snapshot})
}

func (tx *txn) emitAccount(a *ledger.Account) {
	snapshot := *a
	tx.events = append(tx.events, Event{Type: EventAccountCredited, Time: tx.now, Account: &snapshot})
}

func (tx *txn) get(key []byte, v any) error {
	raw, err := tx.c.store.Get(key)
	if err != nil {
		return err
	}
	return unmarshal(key, raw, v)
}

func unmarshal(key, raw []byte, v any) error {
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("decode %s: %w", key, err)
	}
	return nil
}

func (tx *txn) put(key []byte, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	tx.batch.Put(key, raw)
	return nil
}

// commit writes every loaded record back in one batch. Untouched records are
// rewritten with their own bytes, which is harmless and keeps this simple.
func (tx *txn) commit() error {
	if tx.treasury != nil {
		if err := tx.put(treasuryKey(), tx.treasury); err != nil {
			return err
		}
	}
	for owner, a := range tx.accounts {
		if err := tx.put(accountKey(owner), a); err != nil {
			return err
		}
	}
	for _, g := range tx.games {
		if err := tx.put(gameKey(g.RoomID), g); err != nil {
			return err
		}
	}
	if tx.batch.Len() == 0 {
		return nil
	}
	return tx.c.store.Write(&tx.batch)
}

func treasuryKey() []byte {
	return address.Key(address.TagTreasury, address.Treasury())
}

func accountKey(owner string) []byte {
	return address.Key(address.TagAccount, address.Account(owner))
}

func gameKey(roomID string) []byte {
	return address.Key(address.TagCoinflip, address.Game(roomID))
}

func receiptKey(roomID string, seq uint32) []byte {
	return address.Key(address.TagReceipt, address.Receipt(roomID, seq))
}

func forceKey(force oracle.Seed) []byte {
	return address.Key(address.TagRandomness, address.Randomness(force))
}

// forceUse records which game consumed a force.
type forceUse struct {
	RoomID   string    `json:"room_id"`
	Sequence uint32    `json:"sequence"`
	UsedAt   time.Time `json:"used_at"`
}

// treasuryErr maps ledger failures on the treasury to the public taxonomy.
func treasuryErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientTreasuryFunds, err)
	case errors.Is(err, ledger.ErrOverflow):
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	case errors.Is(err, ledger.ErrInvalidAmount):
		return fmt.Errorf("%w: %v", ErrInvalidAmount, err)
	}
	return err
}

// accountErr maps ledger failures on a player account to the public taxonomy.
func accountErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return fmt.Errorf("%w: %v", ErrInsufficientPlayerFunds, err)
	case errors.Is(err, ledger.ErrOverflow):
		return fmt.Errorf("%w: %v", ErrArithmeticOverflow, err)
	}
	return err
}
