package main

import (
	"context"
	"errors"
	"fmt"

	"github.com/ryanschwarting/coinflip/internal/client"
	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/randutil"
	"github.com/ryanschwarting/coinflip/internal/roomid"
)

// PlayCmd creates a room, plays it, waits for the flip and claims.
type PlayCmd struct {
	RemoteFlags `embed:""`
	Amount      string `arg:"" optional:"" help:"Stake in SOL (default from profile)"`
	Choice      string `arg:"" optional:"" help:"Side to bet on, option1 or option2 (default from profile)"`
	Room        string `short:"r" help:"Room id (random if empty)"`
	NoClaim     bool   `name:"no-claim" help:"Stop after the result is known"`
}

func (c *PlayCmd) Run() error {
	profile, err := c.load()
	if err != nil {
		return err
	}
	if c.Amount == "" {
		c.Amount = profile.Play.Amount
	}
	if c.Choice == "" {
		c.Choice = profile.Play.Choice
	}
	amount, err := ledger.ParseSOL(c.Amount)
	if err != nil {
		return err
	}
	choice, err := coinflip.ParseChoice(c.Choice)
	if err != nil {
		return err
	}
	if !choice.Valid() {
		return fmt.Errorf("%w: bet on option1 or option2", coinflip.ErrInvalidChoice)
	}
	room := c.Room
	if room == "" {
		room = roomid.Generate()
	} else if err := roomid.Validate(room); err != nil {
		return err
	}

	cl, logger, err := c.connect()
	if err != nil {
		return err
	}
	defer cl.Close()

	ctx, stop := signalContext(logger)
	defer stop()

	force := oracle.Seed(randutil.Force())
	reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
	g, err := cl.CreateAndPlay(reqCtx, room, amount, choice, force)
	cancel()
	if err != nil {
		return err
	}
	fmt.Println(row("room", g.RoomID))
	fmt.Println(row("waiting", "for randomness..."))

	poller := client.NewPoller(logger)
	poller.Interval, _ = profile.PollInterval()
	poller.Attempts = profile.Play.PollAttempts
	g, err = poller.Finalize(ctx, cl, room, force)
	if err != nil {
		if errors.Is(err, coinflip.ErrRandomnessNotReady) {
			return fmt.Errorf("room %s still waiting for randomness; finalize it later: %w", room, err)
		}
		return err
	}

	if !c.NoClaim {
		reqCtx, cancel := context.WithTimeout(ctx, c.Timeout)
		g, err = cl.Claim(reqCtx, room)
		cancel()
		if err != nil {
			return err
		}
	}
	fmt.Println(renderGame(g))

	reqCtx, cancel = context.WithTimeout(ctx, c.Timeout)
	defer cancel()
	balance, err := cl.Balance(reqCtx, cl.Player())
	if err != nil {
		return err
	}
	fmt.Println(row("balance", sol(balance)))
	return nil
}
