package main

import (
	"fmt"

	"github.com/ryanschwarting/coinflip/internal/ledger"
)

// InitCmd makes the caller the treasury authority.
type InitCmd struct {
	RemoteFlags `embed:""`
}

func (c *InitCmd) Run() error {
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	t, err := cl.InitializeHouse(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderTreasury(t))
	return nil
}

// FundCmd adds house money.
type FundCmd struct {
	RemoteFlags `embed:""`
	Amount      string `arg:"" help:"Amount in SOL (e.g. 2.5)"`
}

func (c *FundCmd) Run() error {
	amount, err := ledger.ParseSOL(c.Amount)
	if err != nil {
		return err
	}
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	t, err := cl.FundTreasury(ctx, amount)
	if err != nil {
		return err
	}
	fmt.Println(renderTreasury(t))
	return nil
}

// WithdrawCmd takes house money out to the authority.
type WithdrawCmd struct {
	RemoteFlags `embed:""`
	Amount      string `arg:"" help:"Amount in SOL"`
}

func (c *WithdrawCmd) Run() error {
	amount, err := ledger.ParseSOL(c.Amount)
	if err != nil {
		return err
	}
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	t, err := cl.WithdrawHouseFunds(ctx, amount)
	if err != nil {
		return err
	}
	fmt.Println(renderTreasury(t))
	return nil
}

// PauseCmd toggles whether new games are accepted.
type PauseCmd struct {
	RemoteFlags `embed:""`
}

func (c *PauseCmd) Run() error {
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	paused, err := cl.TogglePause(ctx)
	if err != nil {
		return err
	}
	if paused {
		fmt.Println(lossStyle.Render("Treasury paused: new games are rejected"))
	} else {
		fmt.Println(winStyle.Render("Treasury resumed"))
	}
	return nil
}

// TreasuryCmd shows the treasury.
type TreasuryCmd struct {
	RemoteFlags `embed:""`
}

func (c *TreasuryCmd) Run() error {
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	t, err := cl.Treasury(ctx)
	if err != nil {
		return err
	}
	fmt.Println(renderTreasury(t))
	return nil
}

// AirdropCmd credits an account from nothing. Authority only.
type AirdropCmd struct {
	RemoteFlags `embed:""`
	Owner       string `arg:"" help:"Account to credit"`
	Amount      string `arg:"" help:"Amount in SOL"`
}

func (c *AirdropCmd) Run() error {
	amount, err := ledger.ParseSOL(c.Amount)
	if err != nil {
		return err
	}
	cl, _, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, cancel := c.requestContext()
	defer cancel()
	balance, err := cl.Airdrop(ctx, c.Owner, amount)
	if err != nil {
		return err
	}
	fmt.Println(row(c.Owner, sol(balance)))
	return nil
}
