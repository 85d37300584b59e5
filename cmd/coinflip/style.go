package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/outcome"
	"github.com/ryanschwarting/coinflip/internal/server"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Width(12).
			Foreground(lipgloss.Color("12"))

	winStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("10"))

	lossStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("9"))

	tieStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("11"))
)

func sol(lamports uint64) string {
	return ledger.FormatSOL(lamports) + " SOL"
}

func row(label string, value any) string {
	return labelStyle.Render(label) + fmt.Sprint(value)
}

func renderTreasury(t server.TreasuryData) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("House treasury") + "\n")
	b.WriteString(row("authority", t.Authority) + "\n")
	b.WriteString(row("balance", sol(t.Balance)) + "\n")
	b.WriteString(row("locked", sol(t.Locked)) + "\n")
	b.WriteString(row("free", sol(t.Free)) + "\n")
	b.WriteString(row("paused", t.Paused))
	return b.String()
}

func renderGame(g *coinflip.Game) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Room "+g.RoomID) + "\n")
	b.WriteString(row("address", g.Address) + "\n")
	b.WriteString(row("player", g.Player) + "\n")
	b.WriteString(row("stake", sol(g.Amount)) + "\n")
	b.WriteString(row("choice", g.Choice) + "\n")
	b.WriteString(row("status", g.Status))
	if g.Roll != nil {
		b.WriteString("\n" + row("roll", fmt.Sprintf("%d / %d", *g.Roll, outcome.Current.Modulus)))
	}
	if g.Status == coinflip.Finished {
		b.WriteString("\n" + row("result", renderResult(g)))
		b.WriteString("\n" + row("payout", sol(g.Payout)))
		b.WriteString("\n" + row("claimed", g.Claimed))
	}
	return b.String()
}

func renderResult(g *coinflip.Game) string {
	switch {
	case g.Result == outcome.Tie || g.Result == outcome.Void:
		return tieStyle.Render(g.Result.String())
	case g.Choice.Wins(g.Result):
		return winStyle.Render(g.Result.String() + " (you win)")
	default:
		return lossStyle.Render(g.Result.String() + " (you lose)")
	}
}
