package server

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"

	"github.com/ryanschwarting/coinflip/internal/auth"
	"github.com/ryanschwarting/coinflip/internal/coinflip"
)

// Connection represents a WebSocket connection to a client
type Connection struct {
	conn      *websocket.Conn
	send      chan *Message
	player    string
	logger    *log.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	mu        sync.RWMutex
	closeOnce sync.Once
	ctrl      *coinflip.Controller
	validator auth.Validator
}

// NewConnection creates a new connection wrapper
func NewConnection(conn *websocket.Conn, logger *log.Logger, ctrl *coinflip.Controller, validator auth.Validator) *Connection {
	ctx, cancel := context.WithCancel(context.Background())

	return &Connection{
		conn:      conn,
		send:      make(chan *Message, 256),
		logger:    logger.WithPrefix("conn"),
		ctx:       ctx,
		cancel:    cancel,
		ctrl:      ctrl,
		validator: validator,
	}
}

// Start begins handling the connection
func (c *Connection) Start() {
	go c.writePump()
	go c.readPump()
}

// Done is closed once the connection has shut down.
func (c *Connection) Done() <-chan struct{} {
	return c.ctx.Done()
}

// Close closes the connection
func (c *Connection) Close() error {
	var err error
	c.closeOnce.Do(func() {
		c.mu.Lock()
		c.cancel()
		close(c.send)
		c.mu.Unlock()
		err = c.conn.Close()
	})
	return err
}

// SendMessage queues a message for the client
func (c *Connection) SendMessage(msg *Message) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.ctx.Err() != nil {
		return ErrConnectionClosed
	}
	select {
	case c.send <- msg:
		return nil
	default:
		c.logger.Warn("Connection send buffer full, dropping connection", "player", c.player)
		go func() { _ = c.Close() }()
		return ErrConnectionClosed
	}
}

// SetPlayer associates this connection with a player
func (c *Connection) SetPlayer(player string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.player = player
}

// GetPlayer returns the associated player
func (c *Connection) GetPlayer() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.player
}

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer
	maxMessageSize = 8192
)

var (
	ErrConnectionClosed = websocket.ErrCloseSent
)

// readPump handles incoming messages from the client
func (c *Connection) readPump() {
	defer func() { _ = c.Close() }()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		var msg Message
		if err := c.conn.ReadJSON(&msg); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Error("WebSocket error", "error", err)
			}
			return
		}
		c.handleMessage(&msg)
	}
}

// writePump handles outgoing messages to the client
func (c *Connection) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(message); err != nil {
				c.logger.Error("Failed to write message", "error", err)
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// handleMessage processes one request and answers it with a result or an
// error carrying the same request id.
func (c *Connection) handleMessage(msg *Message) {
	c.logger.Debug("Received message", "type", msg.Type, "player", c.GetPlayer(), "request", msg.RequestID)

	if msg.Type == MessageTypeAuth {
		var data AuthData
		if err := json.Unmarshal(msg.Data, &data); err != nil {
			c.sendError(msg.RequestID, CodeInvalidMessage, "Failed to parse auth data")
			return
		}
		c.handleAuth(msg.RequestID, data)
		return
	}

	player := c.GetPlayer()
	if player == "" {
		c.sendError(msg.RequestID, CodeNotAuthenticated, "Must authenticate first")
		return
	}

	result, err := c.dispatch(msg, player)
	var bad *payloadError
	switch {
	case errors.As(err, &bad):
		c.sendError(msg.RequestID, bad.code, bad.message)
	case err != nil:
		c.sendError(msg.RequestID, coinflip.Code(err), err.Error())
	default:
		c.reply(msg.RequestID, MessageTypeResult, result)
	}
}

// dispatch runs a request as player.
func (c *Connection) dispatch(msg *Message, player string) (interface{}, error) {
	ctx, ctrl := c.ctx, c.ctrl

	switch msg.Type {
	case MessageTypeInitializeHouse:
		t, err := ctrl.InitializeHouse(ctx, player)
		return TreasuryDataFrom(t), err

	case MessageTypeFundTreasury:
		var data AmountData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		t, err := ctrl.FundTreasury(ctx, player, data.Amount)
		return TreasuryDataFrom(t), err

	case MessageTypeWithdraw:
		var data AmountData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		t, err := ctrl.WithdrawHouseFunds(ctx, player, data.Amount)
		return TreasuryDataFrom(t), err

	case MessageTypeTogglePause:
		paused, err := ctrl.TogglePause(ctx, player)
		return PauseData{Paused: paused}, err

	case MessageTypeAirdrop:
		var data AirdropData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		a, err := ctrl.Airdrop(ctx, player, data.Owner, data.Amount)
		return BalanceData{Owner: a.Owner, Balance: a.Balance}, err

	case MessageTypeCreate:
		var data CreateData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Create(ctx, coinflip.CreateParams{
			Player: player, RoomID: data.RoomID, Amount: data.Amount, Choice: data.Choice,
		}))

	case MessageTypePlay:
		var data PlayData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Play(ctx, player, data.RoomID, data.Force))

	case MessageTypeCreateAndPlay:
		var data CreateAndPlayData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.CreateAndPlay(ctx, coinflip.CreateParams{
			Player: player, RoomID: data.RoomID, Amount: data.Amount, Choice: data.Choice,
		}, data.Force))

	case MessageTypeFinalize:
		var data PlayData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Finalize(ctx, data.RoomID, data.Force))

	case MessageTypeClaim:
		var data RoomData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Claim(ctx, player, data.RoomID))

	case MessageTypeCancel:
		var data RoomData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Cancel(ctx, player, data.RoomID))

	case MessageTypeExpire:
		var data RoomData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Expire(ctx, data.RoomID))

	case MessageTypeGetGame:
		var data RoomData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		return gameResult(ctrl.Game(data.RoomID))

	case MessageTypeGetReceipts:
		var data RoomData
		if err := decode(msg, &data); err != nil {
			return nil, err
		}
		games, err := ctrl.Receipts(data.RoomID)
		return GamesData{Games: games}, err

	case MessageTypeListGames:
		games, err := ctrl.Games()
		return GamesData{Games: games}, err

	case MessageTypeGetTreasury:
		t, err := ctrl.Treasury()
		return TreasuryDataFrom(t), err

	case MessageTypeGetBalance:
		var data BalanceQueryData
		if len(msg.Data) > 0 && string(msg.Data) != "null" {
			if err := decode(msg, &data); err != nil {
				return nil, err
			}
		}
		if data.Owner == "" {
			data.Owner = player
		}
		balance, err := ctrl.Balance(data.Owner)
		return BalanceData{Owner: data.Owner, Balance: balance}, err
	}

	return nil, &payloadError{code: CodeUnknownType, message: "Unknown message type: " + msg.Type.String()}
}

func gameResult(g *coinflip.Game, err error) (interface{}, error) {
	return GameData{Game: g}, err
}

// payloadError is a protocol failure, reported with a protocol code.
type payloadError struct {
	code    string
	message string
}

func (e *payloadError) Error() string { return e.message }

func decode(msg *Message, v interface{}) error {
	if err := json.Unmarshal(msg.Data, v); err != nil {
		return &payloadError{code: CodeInvalidMessage, message: "Failed to parse " + msg.Type.String() + " data: " + err.Error()}
	}
	return nil
}

func (c *Connection) handleAuth(requestID string, data AuthData) {
	identity, err := c.validator.Validate(c.ctx, data.Token)
	if err != nil {
		code := CodeInvalidAuth
		if errors.Is(err, auth.ErrUnavailable) {
			code = CodeAuthUnavailable
		}
		c.logger.Info("Auth rejected", "error", err)
		c.sendError(requestID, code, err.Error())
		return
	}

	c.SetPlayer(identity.Player)
	c.logger.Info("Player authenticated", "player", identity.Player)
	c.reply(requestID, MessageTypeAuthResponse, AuthResponseData{Success: true, Player: identity.Player})
}

func (c *Connection) reply(requestID string, kind MessageType, data interface{}) {
	msg, err := NewMessage(kind, data)
	if err != nil {
		c.logger.Error("Failed to create message", "type", kind, "error", err)
		return
	}
	msg.RequestID = requestID
	_ = c.SendMessage(msg)
}

// sendError sends an error message to the client
func (c *Connection) sendError(requestID, code, message string) {
	c.reply(requestID, MessageTypeError, ErrorData{Code: code, Message: message})
}
