package server

import (
	"sort"
	"sync"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/outcome"
	"github.com/ryanschwarting/coinflip/internal/statistics"
)

// PlayerStats tracks one player's settled games since the server started.
type PlayerStats struct {
	Player  string `json:"player"`
	Games   int    `json:"games"`
	Wins    int    `json:"wins"`
	Losses  int    `json:"losses"`
	Ties    int    `json:"ties"`
	Refunds int    `json:"refunds"`
	Staked  uint64 `json:"staked"`
	Paid    uint64 `json:"paid"`
}

// Net is the player's result in lamports; negative when down.
func (p PlayerStats) Net() int64 {
	return int64(p.Paid) - int64(p.Staked)
}

// StatsSnapshot is the /stats response.
type StatsSnapshot struct {
	Games     int            `json:"games"`
	Refunds   int            `json:"refunds"`
	Results   map[string]int `json:"results"`
	Staked    uint64         `json:"staked"`
	Paid      uint64         `json:"paid"`
	HouseEdge float64        `json:"houseEdge"`
	EdgeLow   float64        `json:"edgeLow"`
	EdgeHigh  float64        `json:"edgeHigh"`
	Players   []PlayerStats  `json:"players"`
}

// StatsCollector builds live statistics from controller events. Refunded
// games count per player but stay out of the house edge.
type StatsCollector struct {
	mu      sync.RWMutex
	house   *statistics.Statistics
	refunds int
	players map[string]*PlayerStats
}

// NewStatsCollector creates an empty collector.
func NewStatsCollector() *StatsCollector {
	return &StatsCollector{
		house:   statistics.New(),
		players: make(map[string]*PlayerStats),
	}
}

// OnEvent implements coinflip.Subscriber.
func (s *StatsCollector) OnEvent(e coinflip.Event) {
	if e.Game == nil {
		return
	}
	switch e.Type {
	case coinflip.EventGameFinished:
		s.recordFinished(e.Game)
	case coinflip.EventGameRefunded:
		s.recordRefund(e.Game)
	}
}

func (s *StatsCollector) player(name string) *PlayerStats {
	p, ok := s.players[name]
	if !ok {
		p = &PlayerStats{Player: name}
		s.players[name] = p
	}
	return p
}

func (s *StatsCollector) recordFinished(g *coinflip.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()

	won := g.Choice.Wins(g.Result)
	s.house.Add(statistics.GameResult{
		Result: g.Result,
		Won:    won,
		Amount: g.Amount,
		Payout: g.Payout,
	})

	p := s.player(g.Player)
	p.Games++
	p.Staked += g.Amount
	p.Paid += g.Payout
	switch {
	case g.Result == outcome.Tie:
		p.Ties++
	case won:
		p.Wins++
	default:
		p.Losses++
	}
}

func (s *StatsCollector) recordRefund(g *coinflip.Game) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.refunds++
	s.player(g.Player).Refunds++
}

// Snapshot returns a copy of the current statistics, players sorted by name.
func (s *StatsCollector) Snapshot() StatsSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := StatsSnapshot{
		Games:     s.house.Games,
		Refunds:   s.refunds,
		Results:   make(map[string]int, len(s.house.Results)),
		Staked:    s.house.Staked,
		Paid:      s.house.Paid,
		HouseEdge: s.house.Mean(),
		Players:   make([]PlayerStats, 0, len(s.players)),
	}
	snap.EdgeLow, snap.EdgeHigh = s.house.ConfidenceInterval95()
	for r, n := range s.house.Results {
		snap.Results[r.String()] = n
	}
	for _, p := range s.players {
		snap.Players = append(snap.Players, *p)
	}
	sort.Slice(snap.Players, func(i, j int) bool {
		return snap.Players[i].Player < snap.Players[j].Player
	})
	return snap
}
