package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version  kong.VersionFlag `short:"v" help:"Show version"`
	Server   ServerCmd        `cmd:"" help:"Run the coinflip server"`
	Init     InitCmd          `cmd:"" help:"Initialize the house treasury as its authority"`
	Fund     FundCmd          `cmd:"" help:"Move SOL from your account into the treasury"`
	Withdraw WithdrawCmd      `cmd:"" help:"Withdraw house funds to the authority"`
	Pause    PauseCmd         `cmd:"" help:"Toggle the treasury pause flag"`
	Treasury TreasuryCmd      `cmd:"" help:"Show the treasury"`
	Airdrop  AirdropCmd       `cmd:"" help:"Credit a player account (authority only)"`
	Play     PlayCmd          `cmd:"" help:"Play one coinflip end to end"`
	Export   ExportCmd        `cmd:"" help:"Export a room's game and receipts to JSON"`
	Simulate SimulateCmd      `cmd:"" help:"Run many games against an in-process house"`
	Health   HealthCmd        `cmd:"" help:"Wait for a server to report healthy"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("coinflip"),
		kong.Description("Coinflip wagering house backed by verifiable randomness"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
