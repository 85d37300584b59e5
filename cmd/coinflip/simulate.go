package main

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/ryanschwarting/coinflip/internal/client"
	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/outcome"
	"github.com/ryanschwarting/coinflip/internal/randutil"
	"github.com/ryanschwarting/coinflip/internal/roomid"
	"github.com/ryanschwarting/coinflip/internal/statistics"
	"github.com/ryanschwarting/coinflip/internal/store"
)

const simAuthority = "house"

// SimulateCmd plays many games against an in-process house and reports the
// house edge it observed.
type SimulateCmd struct {
	Games       int    `short:"n" default:"1000" help:"Number of games to play"`
	Players     int    `default:"8" help:"Number of distinct players"`
	Amount      string `default:"0.1" help:"Stake per game in SOL"`
	Seed        int64  `default:"1" help:"Seed for rooms, choices, forces and the oracle key"`
	Concurrency int    `short:"j" default:"8" help:"Games in flight at once"`
	LogLevel    string `name:"log-level" default:"warn" enum:"debug,info,warn,error" help:"Log level"`
}

type simGame struct {
	player string
	room   string
	choice coinflip.Choice
	force  oracle.Seed
}

func (c *SimulateCmd) Run() error {
	if c.Games <= 0 || c.Players <= 0 {
		return fmt.Errorf("games and players must be positive")
	}
	amount, err := ledger.ParseSOL(c.Amount)
	if err != nil {
		return err
	}
	logger := setupLogger(c.LogLevel)
	rng := randutil.New(c.Seed)

	keySeed := randutil.ForceFrom(rng)
	o, err := oracle.NewLocal(keySeed[:], 0, quartz.NewReal(), logger)
	if err != nil {
		return err
	}
	ctrl := coinflip.New(store.NewMemory(), o, logger)

	ctx, stop := signalContext(logger)
	defer stop()

	// Each player can afford every game it might be dealt, and the house can
	// cover all of them at once.
	perPlayer := amount * uint64(c.Games/c.Players+1)
	bankroll := amount * uint64(c.Games+1)
	if _, err := ctrl.InitializeHouse(ctx, simAuthority); err != nil {
		return err
	}
	if _, err := ctrl.Airdrop(ctx, simAuthority, simAuthority, bankroll); err != nil {
		return err
	}
	if _, err := ctrl.FundTreasury(ctx, simAuthority, bankroll); err != nil {
		return err
	}
	players := make([]string, c.Players)
	for i := range players {
		players[i] = fmt.Sprintf("player-%d", i+1)
		if _, err := ctrl.Airdrop(ctx, simAuthority, players[i], perPlayer); err != nil {
			return err
		}
	}

	// Draw everything up front so a seed replays the same games whatever
	// the scheduling.
	rooms := roomid.NewGenerator(rng)
	plan := make([]simGame, c.Games)
	for i := range plan {
		choice := coinflip.Option1
		if rng.IntN(2) == 1 {
			choice = coinflip.Option2
		}
		plan[i] = simGame{
			player: players[i%len(players)],
			room:   fmt.Sprintf("%s-%d", rooms.Generate(), i),
			choice: choice,
			force:  randutil.ForceFrom(rng),
		}
	}

	poller := client.NewPoller(logger)
	poller.Interval = 10 * time.Millisecond
	var mu sync.Mutex
	stats := statistics.New()
	start := time.Now()

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(c.Concurrency, 1))
	for _, sg := range plan {
		g.Go(func() error {
			_, err := ctrl.CreateAndPlay(gctx, coinflip.CreateParams{
				Player: sg.player,
				RoomID: sg.room,
				Amount: amount,
				Choice: sg.choice,
			}, sg.force)
			if err != nil {
				return fmt.Errorf("room %s: %w", sg.room, err)
			}
			if _, err := poller.Finalize(gctx, ctrl, sg.room, sg.force); err != nil {
				return fmt.Errorf("room %s: %w", sg.room, err)
			}
			game, err := ctrl.Claim(gctx, sg.player, sg.room)
			if err != nil {
				return fmt.Errorf("room %s: %w", sg.room, err)
			}
			mu.Lock()
			stats.Add(statistics.GameResult{
				Result: game.Result,
				Won:    game.Choice.Wins(game.Result),
				Amount: game.Amount,
				Payout: game.Payout,
			})
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	elapsed := time.Since(start)

	if err := ctrl.Audit(); err != nil {
		return fmt.Errorf("audit failed: %w", err)
	}
	if err := stats.Validate(); err != nil {
		return err
	}
	treasury, err := ctrl.Treasury()
	if err != nil {
		return err
	}

	fmt.Println(c.render(stats, treasury, bankroll, elapsed))
	return nil
}

func (c *SimulateCmd) render(s *statistics.Statistics, t ledger.Treasury, bankroll uint64, elapsed time.Duration) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("Simulated %d games (seed %d)", s.Games, c.Seed)) + "\n")
	for _, r := range []outcome.Result{outcome.Option1Wins, outcome.Option2Wins, outcome.Tie} {
		b.WriteString(row(r.String(), fmt.Sprintf("%d (%.2f%%)", s.Results[r], 100*s.Frequency(r))) + "\n")
	}
	b.WriteString(row("wins", winStyle.Render(fmt.Sprint(s.PlayerWins))) + "\n")
	b.WriteString(row("staked", sol(s.Staked)) + "\n")
	b.WriteString(row("paid out", sol(s.Paid)) + "\n")

	low, high := s.ConfidenceInterval95()
	b.WriteString(row("edge", fmt.Sprintf("%+.4f (95%% CI %+.4f to %+.4f, expected %+.4f)",
		s.Mean(), low, high, statistics.ExpectedEdge(outcome.Current, outcome.Option1Wins))) + "\n")

	if t.Balance >= bankroll {
		b.WriteString(row("house net", winStyle.Render("+"+sol(t.Balance-bankroll))) + "\n")
	} else {
		b.WriteString(row("house net", lossStyle.Render("-"+sol(bankroll-t.Balance))) + "\n")
	}
	b.WriteString(row("elapsed", elapsed.Round(time.Millisecond)))
	return b.String()
}
