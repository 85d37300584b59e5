package server

import (
	"encoding/json"
	"time"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/ledger"
	"github.com/ryanschwarting/coinflip/internal/oracle"
)

// Message represents the base WebSocket message structure
type Message struct {
	Type      MessageType     `json:"type"`
	Data      json.RawMessage `json:"data"`
	Timestamp time.Time       `json:"timestamp"`
	RequestID string          `json:"requestId,omitempty"`
}

// NewMessage creates a new message with the current timestamp
func NewMessage(messageType MessageType, data interface{}) (*Message, error) {
	dataBytes, err := json.Marshal(data)
	if err != nil {
		return nil, err
	}

	return &Message{
		Type:      messageType,
		Data:      dataBytes,
		Timestamp: time.Now(),
	}, nil
}

// Client → Server Messages

type AuthData struct {
	Token string `json:"token"`
}

type AmountData struct {
	Amount uint64 `json:"amount"`
}

type AirdropData struct {
	Owner  string `json:"owner"`
	Amount uint64 `json:"amount"`
}

type CreateData struct {
	RoomID string          `json:"roomId"`
	Amount uint64          `json:"amount"`
	Choice coinflip.Choice `json:"playerChoice"`
}

type PlayData struct {
	RoomID string      `json:"roomId"`
	Force  oracle.Seed `json:"force"`
}

type CreateAndPlayData struct {
	RoomID string          `json:"roomId"`
	Amount uint64          `json:"amount"`
	Choice coinflip.Choice `json:"playerChoice"`
	Force  oracle.Seed     `json:"force"`
}

type RoomData struct {
	RoomID string `json:"roomId"`
}

// BalanceQueryData asks for an account balance. An empty owner means the
// caller's own account.
type BalanceQueryData struct {
	Owner string `json:"owner,omitempty"`
}

// Server → Client Messages

type AuthResponseData struct {
	Success bool   `json:"success"`
	Player  string `json:"player,omitempty"`
}

type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type GameData struct {
	Game *coinflip.Game `json:"game"`
}

type GamesData struct {
	Games []*coinflip.Game `json:"games"`
}

type TreasuryData struct {
	ledger.Treasury
	Free uint64 `json:"free"`
}

type BalanceData struct {
	Owner   string `json:"owner"`
	Balance uint64 `json:"balance"`
}

type PauseData struct {
	Paused bool `json:"paused"`
}

// TreasuryDataFrom adds the derived free balance to a treasury record.
func TreasuryDataFrom(t ledger.Treasury) TreasuryData {
	return TreasuryData{Treasury: t, Free: t.Free()}
}
