package coinflip

import (
	"context"
	"fmt"

	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/outcome"
)

// Cancel lets a player take back the stake of a game that was never played.
func (c *Controller) Cancel(ctx context.Context, player, roomID string) (*Game, error) {
	var voided *Game
	err := c.run(func(tx *txn) error {
		g, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		if g.Player != player {
			return fmt.Errorf("%w: %s does not own room %s", ErrUnauthorized, player, roomID)
		}
		if g.Status != Waiting {
			return fmt.Errorf("%w: room %s is %s", ErrWrongStatus, roomID, g.Status)
		}
		if err := c.refund(tx, g); err != nil {
			return err
		}
		voided = g
		return nil
	})
	if err != nil {
		return nil, err
	}
	c.logger.Info("Game cancelled", "room", roomID, "player", player)
	return voided.clone(), nil
}

// Expire refunds a game stuck in flight. Anyone may call it. A waiting game
// expires after WaitingTTL; a processing game after ProcessingTimeout, and
// only while its randomness is still unfulfilled. Fulfilled games must be
// finalized instead.
func (c *Controller) Expire(ctx context.Context, roomID string) (*Game, error) {
	checked, fulfilled := c.fulfilledOutsideLock(ctx, roomID)

	var voided *Game
	err := c.run(func(tx *txn) error {
		g, err := tx.mustGame(roomID)
		if err != nil {
			return err
		}
		idle := tx.now.Sub(g.LastActionTime)
		switch g.Status {
		case Finished:
			return fmt.Errorf("%w: room %s", ErrAlreadyFinished, roomID)
		case Waiting:
			if idle < c.limits.WaitingTTL {
				return fmt.Errorf("%w: room %s waits %s more", ErrNotExpired, roomID, c.limits.WaitingTTL-idle)
			}
		case Processing:
			if idle < c.limits.ProcessingTimeout {
				return fmt.Errorf("%w: room %s times out in %s", ErrNotExpired, roomID, c.limits.ProcessingTimeout-idle)
			}
			if checked == nil || *checked != *g.Force {
				return fmt.Errorf("%w: room %s changed while checking the oracle", ErrWrongStatus, roomID)
			}
			if fulfilled {
				return fmt.Errorf("%w: room %s has randomness, finalize it", ErrWrongStatus, roomID)
			}
		}
		if err := c.refund(tx, g); err != nil {
			return err
		}
		voided = g
		return nil
	})
	if err != nil {
		c.logger.Debug("Expire rejected", "room", roomID, "error", err)
		return nil, err
	}
	c.logger.Warn("Game expired", "room", roomID, "player", voided.Player, "amount", voided.Amount)
	return voided.clone(), nil
}

// fulfilledOutsideLock asks the oracle about a processing game's force
// without holding the transition lock. It returns the force it checked, or nil
// if the game was not processing. An oracle error counts as unfulfilled.
func (c *Controller) fulfilledOutsideLock(ctx context.Context, roomID string) (*oracle.Seed, bool) {
	var force *oracle.Seed
	_ = c.view(func(tx *txn) error {
		g, err := tx.loadGame(roomID)
		if err == nil && g != nil && g.Status == Processing && g.Force != nil {
			f := *g.Force
			force = &f
		}
		return nil
	})
	if force == nil {
		return nil, false
	}
	ok, err := c.oracle.IsFulfilled(ctx, *force)
	return force, err == nil && ok
}

// refund voids g and returns its stake to the player at once.
func (c *Controller) refund(tx *txn, g *Game) error {
	t, err := tx.loadTreasury()
	if err != nil {
		return err
	}
	account, err := tx.loadAccount(g.Player)
	if err != nil {
		return err
	}
	if err := t.Refund(g.Amount); err != nil {
		return treasuryErr(err)
	}
	if err := account.Credit(g.Amount); err != nil {
		return accountErr(err)
	}
	g.Status = Finished
	g.Result = outcome.Void
	g.Payout = g.Amount
	g.Claimed = true
	g.LastActionTime = tx.now
	tx.emit(EventGameRefunded, g)
	return nil
}
