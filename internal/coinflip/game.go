package coinflip

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/ryanschwarting/coinflip/internal/address"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/roomid"
	"github.com/ryanschwarting/coinflip/internal/store"
)

// CreateParams are the terms of a new game.
type CreateParams struct {
	Player string
	RoomID string
	Amount uint64
	Choice Choice
}

// Create opens a game in a room and escrows the stake into the treasury.
func (c *Controller) Create(ctx context.Context, p CreateParams) (*Game, error) {
	var created *Game
	err := c.run(func(tx *txn) error {
		g, err := c.create(tx, p)
		created = g
		return err
	})
	if err != nil {
		c.logger.Debug("Create rejected", "room", p.RoomID, "player", p.Player, "error", err)
		return nil, err
	}
	c.logger.Info("Game created", "room", p.RoomID, "player", p.Player, "amount", p.Amount, "choice", p.Choice)
	return created.clone(), nil
}

// Play requests randomness for a waiting game with the given force.
func (c *Controller) Play(ctx context.Context, player, roomID string, force oracle.Seed) (*Game, error) {
	var played *Game
	err := c.run(func(tx *txn) error {
		g, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		if err := c.play(ctx, tx, g, player, force); err != nil {
			return err
		}
		played = g
		return nil
	})
	if err != nil {
		c.logger.Debug("Play rejected", "room", roomID, "player", player, "error", err)
		return nil, err
	}
	c.logger.Info("Game started", "room", roomID, "request", played.RequestID)
	return played.clone(), nil
}

// CreateAndPlay creates a game and plays it in one transition. No one can
// observe the game in Waiting.
func (c *Controller) CreateAndPlay(ctx context.Context, p CreateParams, force oracle.Seed) (*Game, error) {
	var played *Game
	err := c.run(func(tx *txn) error {
		g, err := c.create(tx, p)
		if err != nil {
			return err
		}
		if err := c.play(ctx, tx, g, p.Player, force); err != nil {
			return err
		}
		played = g
		return nil
	})
	if err != nil {
		c.logger.Debug("CreateAndPlay rejected", "room", p.RoomID, "player", p.Player, "error", err)
		return nil, err
	}
	c.logger.Info("Game created and started", "room", p.RoomID, "player", p.Player, "amount", p.Amount, "choice", p.Choice)
	return played.clone(), nil
}

func (c *Controller) create(tx *txn, p CreateParams) (*Game, error) {
	if err := roomid.Validate(p.RoomID); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRoomID, err)
	}
	if !p.Choice.Valid() {
		return nil, fmt.Errorf("%w: %s", ErrInvalidChoice, p.Choice)
	}
	if p.Amount == 0 {
		return nil, fmt.Errorf("%w: stake must be positive", ErrInvalidAmount)
	}
	if p.Amount < c.limits.MinBet {
		return nil, fmt.Errorf("%w: stake %d below minimum %d", ErrInvalidAmount, p.Amount, c.limits.MinBet)
	}
	if c.limits.MaxBet > 0 && p.Amount > c.limits.MaxBet {
		return nil, fmt.Errorf("%w: stake %d above maximum %d", ErrInvalidAmount, p.Amount, c.limits.MaxBet)
	}

	treasury, err := tx.initializedTreasury()
	if err != nil {
		return nil, err
	}
	if treasury.Paused {
		return nil, ErrTreasuryPaused
	}

	var seq uint32
	existing, err := tx.loadGame(p.RoomID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if !existing.Settled() {
			return nil, fmt.Errorf("%w: %s is %s", ErrDuplicateRoom, p.RoomID, existing.Status)
		}
		if wait := c.limits.RoomCooldown - tx.now.Sub(existing.LastActionTime); wait > 0 {
			return nil, fmt.Errorf("%w: %s reusable in %s", ErrRoomCooldown, p.RoomID, wait)
		}
		// The settled game stays on record as a receipt.
		if err := tx.put(receiptKey(p.RoomID, existing.Sequence), existing); err != nil {
			return nil, err
		}
		seq = existing.Sequence + 1
	}

	account, err := tx.loadAccount(p.Player)
	if err != nil {
		return nil, err
	}
	if err := account.Debit(p.Amount); err != nil {
		return nil, accountErr(err)
	}
	if err := treasury.Escrow(p.Amount); err != nil {
		return nil, treasuryErr(err)
	}

	g := &Game{
		RoomID:         p.RoomID,
		Address:        address.Game(p.RoomID),
		Sequence:       seq,
		Player:         p.Player,
		Amount:         p.Amount,
		Choice:         p.Choice,
		Status:         Waiting,
		CreatedAt:      tx.now,
		LastActionTime: tx.now,
	}
	tx.putGame(g)
	tx.emit(EventGameCreated, g)
	return g, nil
}

func (c *Controller) play(ctx context.Context, tx *txn, g *Game, player string, force oracle.Seed) error {
	if g.Player != player {
		return fmt.Errorf("%w: %s does not own room %s", ErrUnauthorized, player, g.RoomID)
	}
	if g.Status != Waiting {
		return fmt.Errorf("%w: room %s is %s", ErrWrongStatus, g.RoomID, g.Status)
	}

	// The oracle only remembers seeds for its own lifetime; the store remembers
	// them for good.
	used := forceUse{}
	switch err := tx.get(forceKey(force), &used); {
	case err == nil:
		return fmt.Errorf("%w: %s already played room %s", ErrForceReused, force, used.RoomID)
	case !errors.Is(err, store.ErrNotFound):
		return err
	}

	id, err := c.oracle.Request(ctx, force)
	switch {
	case errors.Is(err, oracle.ErrAlreadyRequested):
		return fmt.Errorf("%w: %v", ErrForceReused, err)
	case err != nil:
		return fmt.Errorf("%w: %v", ErrOracleUnavailable, err)
	}

	if err := tx.put(forceKey(force), forceUse{RoomID: g.RoomID, Sequence: g.Sequence, UsedAt: tx.now}); err != nil {
		return err
	}

	f := force
	g.Force = &f
	g.RequestID = id
	g.Status = Processing
	g.LastActionTime = tx.now
	tx.emit(EventGamePlayed, g)
	return nil
}

// Finalize settles a processing game from its fulfilled randomness. Anyone may
// call it. Until the oracle fulfills it fails with ErrRandomnessNotReady and
// changes nothing, so callers poll it.
func (c *Controller) Finalize(ctx context.Context, roomID string, force oracle.Seed) (*Game, error) {
	// Read before taking the lock so a slow oracle stalls only this caller. A
	// fulfilled value never changes and the game is checked again below.
	random, readErr := c.oracle.Randomness(ctx, force)

	var finished *Game
	err := c.run(func(tx *txn) error {
		g, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		switch g.Status {
		case Finished:
			return fmt.Errorf("%w: room %s", ErrAlreadyFinished, roomID)
		case Waiting:
			return fmt.Errorf("%w: room %s has not been played", ErrWrongStatus, roomID)
		}
		if g.Force == nil || *g.Force != force {
			return fmt.Errorf("%w: room %s", ErrForceMismatch, roomID)
		}

		switch {
		case errors.Is(readErr, oracle.ErrNotFulfilled):
			return fmt.Errorf("%w: room %s", ErrRandomnessNotReady, roomID)
		case readErr != nil:
			return fmt.Errorf("%w: %v", ErrOracleUnavailable, readErr)
		}

		treasury, err := tx.loadTreasury()
		if err != nil {
			return err
		}

		roll := c.rule.Bucket(random)
		result := c.rule.Classify(roll)
		owed := payout(g.Choice, result, g.Amount)
		if err := treasury.Resolve(g.Amount, owed); err != nil {
			return treasuryErr(err)
		}

		g.Status = Finished
		g.Result = result
		g.Roll = &roll
		g.RuleVersion = c.rule.Version
		g.Payout = owed
		g.LastActionTime = tx.now
		tx.emit(EventGameFinished, g)
		finished = g
		return nil
	})
	if err != nil {
		c.logger.Debug("Finalize rejected", "room", roomID, "error", err)
		return nil, err
	}
	c.logger.Info("Game finished", "room", roomID, "roll", *finished.Roll, "result", finished.Result, "payout", finished.Payout)
	return finished.clone(), nil
}

// Claim pays a finished game's payout to its player. It succeeds once per
// game; a losing game's claim only marks it claimed.
func (c *Controller) Claim(ctx context.Context, player, roomID string) (*Game, error) {
	var claimed *Game
	err := c.run(func(tx *txn) error {
		g, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		if g.Player != player {
			return fmt.Errorf("%w: %s does not own room %s", ErrUnauthorized, player, roomID)
		}
		if g.Status != Finished {
			return fmt.Errorf("%w: room %s is %s", ErrWrongStatus, roomID, g.Status)
		}
		if g.Claimed {
			return fmt.Errorf("%w: room %s", ErrAlreadyClaimed, roomID)
		}

		if g.Payout > 0 {
			treasury, err := tx.loadTreasury()
			if err != nil {
				return err
			}
			account, err := tx.loadAccount(g.Player)
			if err != nil {
				return err
			}
			if err := treasury.Pay(g.Payout); err != nil {
				return treasuryErr(err)
			}
			if err := account.Credit(g.Payout); err != nil {
				return accountErr(err)
			}
		}

		g.Claimed = true
		g.LastActionTime = tx.now
		tx.emit(EventGameClaimed, g)
		claimed = g
		return nil
	})
	if err != nil {
		c.logger.Debug("Claim rejected", "room", roomID, "player", player, "error", err)
		return nil, err
	}
	c.logger.Info("Rewards claimed", "room", roomID, "player", player, "payout", claimed.Payout)
	return claimed.clone(), nil
}

// Game returns the live record for a room.
func (c *Controller) Game(roomID string) (*Game, error) {
	var g *Game
	err := c.view(func(tx *txn) error {
		var err error
		g, err = tx.mustGame(roomID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return g.clone(), nil
}

// Receipts returns the archived games of a room, oldest first.
func (c *Controller) Receipts(roomID string) ([]*Game, error) {
	var receipts []*Game
	err := c.view(func(tx *txn) error {
		live, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		for seq := uint32(0); seq < live.Sequence; seq++ {
			g := &Game{}
			if err := tx.get(receiptKey(roomID, seq), g); err != nil {
				return fmt.Errorf("receipt %d of %s: %w", seq, roomID, err)
			}
			receipts = append(receipts, g)
		}
		return nil
	})
	return receipts, err
}

// Games returns every live game record ordered by room id.
func (c *Controller) Games() ([]*Game, error) {
	var games []*Game
	err := c.view(func(tx *txn) error {
		var err error
		games, err = c.scanGames()
		return err
	})
	return games, err
}

// scanGames reads every live game. Callers hold the transition lock.
func (c *Controller) scanGames() ([]*Game, error) {
	var games []*Game
	err := c.store.Scan(address.Prefix(address.TagCoinflip), func(key, value []byte) error {
		g := &Game{}
		if err := unmarshal(key, value, g); err != nil {
			return err
		}
		games = append(games, g)
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(games, func(i, j int) bool { return games[i].RoomID < games[j].RoomID })
	return games, nil
}
