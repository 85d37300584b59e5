// Package client talks to a coinflip server over its WebSocket protocol.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/oracle"
	"github.com/ryanschwarting/coinflip/internal/server"
)

// ErrClosed is returned for requests on a closed client.
var ErrClosed = errors.New("client: connection closed")

// EventHandler receives events pushed by the server.
type EventHandler func(coinflip.Event)

// Client is an authenticated connection to a coinflip server. It is safe for
// concurrent use; responses are matched to requests by request id.
type Client struct {
	conn    *websocket.Conn
	logger  *log.Logger
	player  string
	writeMu sync.Mutex

	mu        sync.Mutex
	pending   map[string]chan *server.Message
	handlers  []EventHandler
	closed    bool
	closeOnce sync.Once
	done      chan struct{}
}

// Dial connects to serverURL and authenticates with token.
func Dial(ctx context.Context, serverURL, token string, logger *log.Logger) (*Client, error) {
	u, err := url.Parse(serverURL)
	if err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	switch u.Scheme {
	case "http":
		u.Scheme = "ws"
	case "https":
		u.Scheme = "wss"
	case "ws", "wss":
	default:
		u.Scheme = "ws"
	}
	if u.Path == "" || u.Path == "/" {
		u.Path = "/ws"
	}

	logger = logger.WithPrefix("client")
	logger.Debug("Connecting to server", "url", u.String())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn:    conn,
		logger:  logger,
		pending: make(map[string]chan *server.Message),
		done:    make(chan struct{}),
	}
	go c.readMessages()

	var resp server.AuthResponseData
	if err := c.call(ctx, server.MessageTypeAuth, server.AuthData{Token: token}, &resp); err != nil {
		_ = c.Close()
		return nil, fmt.Errorf("authenticate: %w", err)
	}
	c.player = resp.Player
	logger.Debug("Authenticated", "player", c.player)
	return c, nil
}

// Player is the identity the server granted this connection.
func (c *Client) Player() string {
	return c.player
}

// OnEvent registers a handler for server pushed events.
func (c *Client) OnEvent(h EventHandler) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.handlers = append(c.handlers, h)
}

// Close closes the connection. Pending requests fail with ErrClosed.
func (c *Client) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		c.mu.Unlock()

		c.writeMu.Lock()
		_ = c.conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.writeMu.Unlock()
		err = c.conn.Close()
		<-c.done
	})
	return err
}

// call sends a request and decodes its result into out. Error replies come
// back as the matching coinflip error.
func (c *Client) call(ctx context.Context, kind server.MessageType, data, out interface{}) error {
	msg, err := server.NewMessage(kind, data)
	if err != nil {
		return err
	}
	msg.RequestID = uuid.NewString()
	reply := make(chan *server.Message, 1)

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrClosed
	}
	c.pending[msg.RequestID] = reply
	c.mu.Unlock()
	defer func() {
		c.mu.Lock()
		delete(c.pending, msg.RequestID)
		c.mu.Unlock()
	}()

	c.writeMu.Lock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	err = c.conn.WriteJSON(msg)
	c.writeMu.Unlock()
	if err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}

	select {
	case resp, ok := <-reply:
		if !ok {
			return ErrClosed
		}
		if resp.Type == server.MessageTypeError {
			var e server.ErrorData
			if err := json.Unmarshal(resp.Data, &e); err != nil {
				return fmt.Errorf("decode error reply: %w", err)
			}
			return coinflip.FromCode(e.Code, e.Message)
		}
		if out == nil {
			return nil
		}
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return fmt.Errorf("decode %s reply: %w", kind, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (c *Client) readMessages() {
	defer func() {
		c.mu.Lock()
		c.closed = true
		for id, ch := range c.pending {
			close(ch)
			delete(c.pending, id)
		}
		c.mu.Unlock()
		close(c.done)
	}()

	for {
		var msg server.Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}

		if msg.Type == server.MessageTypeEvent {
			c.dispatchEvent(&msg)
			continue
		}

		c.mu.Lock()
		ch, ok := c.pending[msg.RequestID]
		if ok {
			delete(c.pending, msg.RequestID)
		}
		c.mu.Unlock()
		if !ok {
			c.logger.Debug("Dropping unmatched reply", "type", msg.Type, "request", msg.RequestID)
			continue
		}
		ch <- &msg
	}
}

func (c *Client) dispatchEvent(msg *server.Message) {
	var e coinflip.Event
	if err := json.Unmarshal(msg.Data, &e); err != nil {
		c.logger.Warn("Failed to decode event", "error", err)
		return
	}
	c.mu.Lock()
	handlers := append([]EventHandler(nil), c.handlers...)
	c.mu.Unlock()
	for _, h := range handlers {
		h(e)
	}
}

// InitializeHouse makes the caller the treasury authority.
func (c *Client) InitializeHouse(ctx context.Context) (server.TreasuryData, error) {
	var t server.TreasuryData
	err := c.call(ctx, server.MessageTypeInitializeHouse, struct{}{}, &t)
	return t, err
}

// FundTreasury moves amount lamports from the caller into the treasury.
func (c *Client) FundTreasury(ctx context.Context, amount uint64) (server.TreasuryData, error) {
	var t server.TreasuryData
	err := c.call(ctx, server.MessageTypeFundTreasury, server.AmountData{Amount: amount}, &t)
	return t, err
}

// WithdrawHouseFunds moves amount lamports from the treasury to the authority.
func (c *Client) WithdrawHouseFunds(ctx context.Context, amount uint64) (server.TreasuryData, error) {
	var t server.TreasuryData
	err := c.call(ctx, server.MessageTypeWithdraw, server.AmountData{Amount: amount}, &t)
	return t, err
}

// TogglePause flips the treasury pause flag.
func (c *Client) TogglePause(ctx context.Context) (bool, error) {
	var p server.PauseData
	err := c.call(ctx, server.MessageTypeTogglePause, struct{}{}, &p)
	return p.Paused, err
}

// Airdrop credits owner's account. Authority only.
func (c *Client) Airdrop(ctx context.Context, owner string, amount uint64) (uint64, error) {
	var b server.BalanceData
	err := c.call(ctx, server.MessageTypeAirdrop, server.AirdropData{Owner: owner, Amount: amount}, &b)
	return b.Balance, err
}

// Treasury returns the treasury record.
func (c *Client) Treasury(ctx context.Context) (server.TreasuryData, error) {
	var t server.TreasuryData
	err := c.call(ctx, server.MessageTypeGetTreasury, struct{}{}, &t)
	return t, err
}

// Balance returns owner's balance, or the caller's when owner is empty.
func (c *Client) Balance(ctx context.Context, owner string) (uint64, error) {
	var b server.BalanceData
	err := c.call(ctx, server.MessageTypeGetBalance, server.BalanceQueryData{Owner: owner}, &b)
	return b.Balance, err
}

// Create opens a game in roomID.
func (c *Client) Create(ctx context.Context, roomID string, amount uint64, choice coinflip.Choice) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeCreate, server.CreateData{RoomID: roomID, Amount: amount, Choice: choice})
}

// Play requests randomness for a waiting game.
func (c *Client) Play(ctx context.Context, roomID string, force oracle.Seed) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypePlay, server.PlayData{RoomID: roomID, Force: force})
}

// CreateAndPlay creates and plays a game in one step.
func (c *Client) CreateAndPlay(ctx context.Context, roomID string, amount uint64, choice coinflip.Choice, force oracle.Seed) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeCreateAndPlay, server.CreateAndPlayData{
		RoomID: roomID, Amount: amount, Choice: choice, Force: force,
	})
}

// Finalize settles a processing game once its randomness is fulfilled.
func (c *Client) Finalize(ctx context.Context, roomID string, force oracle.Seed) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeFinalize, server.PlayData{RoomID: roomID, Force: force})
}

// Claim collects a finished game's payout.
func (c *Client) Claim(ctx context.Context, roomID string) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeClaim, server.RoomData{RoomID: roomID})
}

// Cancel voids the caller's waiting game.
func (c *Client) Cancel(ctx context.Context, roomID string) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeCancel, server.RoomData{RoomID: roomID})
}

// Expire refunds a game stuck past its deadline.
func (c *Client) Expire(ctx context.Context, roomID string) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeExpire, server.RoomData{RoomID: roomID})
}

// Game returns the live game of a room.
func (c *Client) Game(ctx context.Context, roomID string) (*coinflip.Game, error) {
	return c.game(ctx, server.MessageTypeGetGame, server.RoomData{RoomID: roomID})
}

// Receipts returns the archived games of a room.
func (c *Client) Receipts(ctx context.Context, roomID string) ([]*coinflip.Game, error) {
	var g server.GamesData
	err := c.call(ctx, server.MessageTypeGetReceipts, server.RoomData{RoomID: roomID}, &g)
	return g.Games, err
}

// Games lists every live game.
func (c *Client) Games(ctx context.Context) ([]*coinflip.Game, error) {
	var g server.GamesData
	err := c.call(ctx, server.MessageTypeListGames, struct{}{}, &g)
	return g.Games, err
}

func (c *Client) game(ctx context.Context, kind server.MessageType, data interface{}) (*coinflip.Game, error) {
	var g server.GameData
	if err := c.call(ctx, kind, data, &g); err != nil {
		return nil, err
	}
	return g.Game, nil
}
