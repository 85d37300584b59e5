// Package server exposes the coinflip controller over a WebSocket JSON
// protocol, with a few plain HTTP endpoints alongside.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/gorilla/websocket"
	"golang.org/x/sync/errgroup"

	"github.com/ryanschwarting/coinflip/internal/auth"
	"github.com/ryanschwarting/coinflip/internal/coinflip"
	"github.com/ryanschwarting/coinflip/internal/oracle"
)

// Server represents the WebSocket server
type Server struct {
	upgrader    websocket.Upgrader
	connections map[*Connection]bool
	logger      *log.Logger
	mu          sync.RWMutex
	ctrl        *coinflip.Controller
	validator   auth.Validator
	oracle      *oracle.Handler
	stats       *StatsCollector
}

// Option configures a Server.
type Option func(*Server)

// WithValidator sets how connection tokens are checked. The default trusts
// the token as the player name.
func WithValidator(v auth.Validator) Option {
	return func(s *Server) { s.validator = v }
}

// WithOracleHandler serves the oracle HTTP API from this server.
func WithOracleHandler(h *oracle.Handler) Option {
	return func(s *Server) { s.oracle = h }
}

// NewServer creates a new WebSocket server for ctrl and subscribes it to the
// controller's events.
func NewServer(ctrl *coinflip.Controller, logger *log.Logger, opts ...Option) *Server {
	s := &Server{
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
		},
		connections: make(map[*Connection]bool),
		logger:      logger.WithPrefix("server"),
		ctrl:        ctrl,
		validator:   auth.NewNoopValidator(),
		stats:       NewStatsCollector(),
	}
	for _, opt := range opts {
		opt(s)
	}
	ctrl.Subscribe(s)
	ctrl.Subscribe(s.stats)
	return s
}

// Handler returns the HTTP routes of the server.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("GET /treasury", s.handleTreasury)
	mux.HandleFunc("GET /stats", s.handleStats)
	if s.oracle != nil {
		s.oracle.Register(mux)
	}
	return mux
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Serve(ctx context.Context, addr string) error {
	httpServer := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.logger.Info("Starting WebSocket server", "addr", addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		s.Stop()
		return httpServer.Shutdown(shutdownCtx)
	})
	return g.Wait()
}

// Stop closes all client connections.
func (s *Server) Stop() {
	s.mu.Lock()
	conns := make([]*Connection, 0, len(s.connections))
	for conn := range s.connections {
		conns = append(conns, conn)
	}
	s.mu.Unlock()

	for _, conn := range conns {
		_ = conn.Close()
	}
}

func (s *Server) register(conn *Connection) {
	s.mu.Lock()
	s.connections[conn] = true
	total := len(s.connections)
	s.mu.Unlock()
	s.logger.Info("Client connected", "total", total)
}

func (s *Server) unregister(conn *Connection) {
	s.mu.Lock()
	delete(s.connections, conn)
	total := len(s.connections)
	s.mu.Unlock()
	_ = conn.Close()
	s.logger.Info("Client disconnected", "player", conn.GetPlayer(), "total", total)
}

// handleWebSocket handles WebSocket upgrade requests
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := NewConnection(conn, s.logger, s.ctrl, s.validator)
	s.register(client)
	client.Start()

	go func() {
		<-client.Done()
		s.unregister(client)
	}()
}

// handleHealth handles health check requests
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "OK")
}

// handleTreasury reports the treasury record for dashboards and scripts.
func (s *Server) handleTreasury(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	t, err := s.ctrl.Treasury()
	if err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, coinflip.ErrNotInitialized) {
			status = http.StatusNotFound
		}
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(ErrorData{Code: coinflip.Code(err), Message: err.Error()})
		return
	}
	_ = json.NewEncoder(w).Encode(TreasuryDataFrom(t))
}

// Stats returns the live settlement statistics.
func (s *Server) Stats() StatsSnapshot {
	return s.stats.Snapshot()
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(s.stats.Snapshot())
}

// OnEvent broadcasts a committed transition to every authenticated client.
func (s *Server) OnEvent(e coinflip.Event) {
	msg, err := NewMessage(MessageTypeEvent, e)
	if err != nil {
		s.logger.Error("Failed to encode event", "type", e.Type, "error", err)
		return
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for conn := range s.connections {
		if conn.GetPlayer() == "" {
			continue
		}
		if err := conn.SendMessage(msg); err == nil {
			count++
		}
	}
	s.logger.Debug("Broadcast event", "type", e.Type, "recipients", count)
}

// ConnectedPlayers returns the players with an open, authenticated connection.
func (s *Server) ConnectedPlayers() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var players []string
	for conn := range s.connections {
		if player := conn.GetPlayer(); player != "" {
			players = append(players, player)
		}
	}
	return players
}
