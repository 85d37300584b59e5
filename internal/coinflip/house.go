package coinflip

import (
	"context"
	"fmt"

	"github.com/ryanschwarting/coinflip/internal/ledger"
)

// InitializeHouse creates the treasury with caller as its authority. It runs
// once per deployment.
func (c *Controller) InitializeHouse(ctx context.Context, caller string) (ledger.Treasury, error) {
	var snapshot ledger.Treasury
	err := c.run(func(tx *txn) error {
		t, err := tx.loadTreasury()
		if err != nil {
			return err
		}
		if t.Initialized {
			return fmt.Errorf("%w: authority is %s", ErrAlreadyInitialized, t.Authority)
		}
		*t = ledger.Treasury{Authority: caller, Initialized: true}
		tx.emitTreasury(t)
		snapshot = *t
		return nil
	})
	if err != nil {
		return ledger.Treasury{}, err
	}
	c.logger.Info("House initialized", "authority", caller)
	return snapshot, nil
}

// FundTreasury moves amount from funder's account into the treasury. Funding
// is allowed while paused.
func (c *Controller) FundTreasury(ctx context.Context, funder string, amount uint64) (ledger.Treasury, error) {
	var snapshot ledger.Treasury
	err := c.run(func(tx *txn) error {
		if amount == 0 {
			return fmt.Errorf("%w: funding must be positive", ErrInvalidAmount)
		}
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		if c.limits.RestrictFunding && funder != t.Authority {
			return fmt.Errorf("%w: only the authority may fund", ErrUnauthorized)
		}
		account, err := tx.loadAccount(funder)
		if err != nil {
			return err
		}
		if err := account.Debit(amount); err != nil {
			return accountErr(err)
		}
		if err := t.Fund(amount); err != nil {
			return treasuryErr(err)
		}
		tx.emitTreasury(t)
		snapshot = *t
		return nil
	})
	if err != nil {
		c.logger.Debug("Fund rejected", "funder", funder, "amount", amount, "error", err)
		return ledger.Treasury{}, err
	}
	c.logger.Info("Treasury funded", "funder", funder, "amount", amount, "balance", snapshot.Balance)
	return snapshot, nil
}

// WithdrawHouseFunds moves amount from the treasury to the authority. Locked
// funds and the configured reserve stay behind.
func (c *Controller) WithdrawHouseFunds(ctx context.Context, caller string, amount uint64) (ledger.Treasury, error) {
	var snapshot ledger.Treasury
	err := c.run(func(tx *txn) error {
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		if caller != t.Authority {
			return fmt.Errorf("%w: %s is not the authority", ErrUnauthorized, caller)
		}
		if amount == 0 {
			return fmt.Errorf("%w: withdrawal must be positive", ErrInvalidAmount)
		}
		account, err := tx.loadAccount(caller)
		if err != nil {
			return err
		}
		if err := t.Withdraw(amount, c.limits.Reserve); err != nil {
			return treasuryErr(err)
		}
		if err := account.Credit(amount); err != nil {
			return accountErr(err)
		}
		tx.emitTreasury(t)
		snapshot = *t
		return nil
	})
	if err != nil {
		c.logger.Debug("Withdraw rejected", "caller", caller, "amount", amount, "error", err)
		return ledger.Treasury{}, err
	}
	c.logger.Info("House funds withdrawn", "amount", amount, "balance", snapshot.Balance)
	return snapshot, nil
}

// TogglePause flips the paused flag and returns the new value.
func (c *Controller) TogglePause(ctx context.Context, caller string) (bool, error) {
	var paused bool
	err := c.run(func(tx *txn) error {
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		if caller != t.Authority {
			return fmt.Errorf("%w: %s is not the authority", ErrUnauthorized, caller)
		}
		t.Paused = !t.Paused
		paused = t.Paused
		tx.emitTreasury(t)
		return nil
	})
	if err != nil {
		return false, err
	}
	c.logger.Info("Pause toggled", "paused", paused)
	return paused, nil
}

// Airdrop credits a player account out of thin air. It is the authority's
// faucet for local and simulated deployments.
func (c *Controller) Airdrop(ctx context.Context, caller, owner string, amount uint64) (ledger.Account, error) {
	var snapshot ledger.Account
	err := c.run(func(tx *txn) error {
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		if caller != t.Authority {
			return fmt.Errorf("%w: %s is not the authority", ErrUnauthorized, caller)
		}
		if amount == 0 {
			return fmt.Errorf("%w: airdrop must be positive", ErrInvalidAmount)
		}
		account, err := tx.loadAccount(owner)
		if err != nil {
			return err
		}
		if err := account.Credit(amount); err != nil {
			return accountErr(err)
		}
		tx.emitAccount(account)
		snapshot = *account
		return nil
	})
	if err != nil {
		return ledger.Account{}, err
	}
	c.logger.Debug("Airdrop", "owner", owner, "amount", amount)
	return snapshot, nil
}

// Treasury returns the current treasury record.
func (c *Controller) Treasury() (ledger.Treasury, error) {
	var snapshot ledger.Treasury
	err := c.view(func(tx *txn) error {
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		snapshot = *t
		return nil
	})
	return snapshot, err
}

// Balance returns owner's spendable balance.
func (c *Controller) Balance(owner string) (uint64, error) {
	var balance uint64
	err := c.view(func(tx *txn) error {
		a, err := tx.loadAccount(owner)
		if err != nil {
			return err
		}
		balance = a.Balance
		return nil
	})
	return balance, err
}

// Audit checks the treasury accounting identity and that the locked amount
// equals the outstanding liability of every live game.
func (c *Controller) Audit() error {
	return c.view(func(tx *txn) error {
		t, err := tx.initializedTreasury()
		if err != nil {
			return err
		}
		if err := t.Audit(); err != nil {
			return err
		}
		games, err := c.scanGames()
		if err != nil {
			return err
		}
		var owed uint64
		for _, g := range games {
			if owed, err = ledger.Add(owed, g.Liability()); err != nil {
				return err
			}
		}
		if owed != t.Locked {
			return fmt.Errorf("treasury audit: locked %d, games owe %d", t.Locked, owed)
		}
		return nil
	})
}
