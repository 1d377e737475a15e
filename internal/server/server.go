// Package server is the websocket transport: it upgrades connections,
// decodes inbound envelopes, routes them to the room registry or the room
// owning the sender, and replies with per-connection errors. All game
// state lives behind the registry; this package holds none.
package server

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/hexhavoc/hexhavoc-server/internal/game"
	"github.com/hexhavoc/hexhavoc-server/internal/grid"
)

// inboundMessage is the union of all client-issued envelopes. Type selects
// which fields are meaningful.
type inboundMessage struct {
	Type string `json:"type"`

	// join
	RoomID         string               `json:"roomId,omitempty"`
	Name           string               `json:"name,omitempty"`
	Personality    string               `json:"personality,omitempty"`
	Wallet         string               `json:"wallet,omitempty"`
	Strategy       *game.Strategy       `json:"strategy,omitempty"`
	AllianceParams *game.AlliancePolicy `json:"allianceParams,omitempty"`

	// join, action, alliance
	PlayerID string `json:"playerId,omitempty"`

	// action
	Hex    *grid.Coord `json:"hex,omitempty"`
	Action string      `json:"action,omitempty"`

	// alliance
	TargetPlayerID string `json:"targetPlayerId,omitempty"`
}

// Server routes websocket traffic into the game core.
type Server struct {
	registry *game.Registry
	engine   *game.Engine
	upgrader websocket.Upgrader
	logger   *zap.Logger

	// base context handed to room turn loops; cancelled on shutdown.
	ctx context.Context
}

// New creates the transport server.
func New(ctx context.Context, registry *game.Registry, engine *game.Engine, logger *zap.Logger) *Server {
	return &Server{
		registry: registry,
		engine:   engine,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
		ctx:    ctx,
	}
}

// Handler returns the HTTP handler exposing the websocket endpoint and a
// health probe.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.serveWS)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	return mux
}

func (s *Server) serveWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", zap.Error(err))
		return
	}
	c := newClient(conn, s.logger)
	go c.writePump()
	s.readLoop(c)
}

// readLoop processes inbound messages for one connection until it drops.
// A malformed message gets a per-connection error reply and never affects
// the room or other connections.
func (s *Server) readLoop(c *client) {
	defer func() {
		c.Close()
		if c.playerID != "" {
			if room, ok := s.registry.Get(c.roomID); ok {
				room.Disconnect(c.playerID)
			}
		}
	}()

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			c.logger.Debug("connection closed", zap.Error(err))
			return
		}

		var msg inboundMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			s.replyError(c, "Invalid message format")
			continue
		}

		switch msg.Type {
		case "join":
			s.handleJoin(c, msg)
		case "action":
			s.handleAction(c, msg)
		case "alliance":
			s.handleAlliance(c, msg)
		default:
			s.replyError(c, "Unknown message type")
		}
	}
}

func (s *Server) handleJoin(c *client, msg inboundMessage) {
	if msg.RoomID == "" || msg.PlayerID == "" || msg.Name == "" {
		s.replyError(c, "Missing required join fields")
		return
	}
	if c.playerID != "" {
		s.replyError(c, "Already joined a room")
		return
	}

	room := s.registry.GetOrCreate(msg.RoomID)

	p := game.NewPlayer(msg.PlayerID, msg.Name, msg.Personality)
	p.Wallet = msg.Wallet
	p.Strategy = msg.Strategy
	p.Alliance = msg.AllianceParams

	started, err := room.Join(p, c)
	if err != nil {
		s.replyError(c, err.Error())
		return
	}
	c.roomID = msg.RoomID
	c.playerID = msg.PlayerID

	s.logger.Info("player joined",
		zap.String("room_id", msg.RoomID),
		zap.String("player", msg.Name),
	)

	if started {
		s.engine.Start(s.ctx, room)
	}
}

func (s *Server) handleAction(c *client, msg inboundMessage) {
	if msg.PlayerID == "" || msg.Hex == nil || msg.Action == "" {
		s.replyError(c, "Missing required action fields")
		return
	}
	room, ok := s.registry.FindByPlayer(msg.PlayerID)
	if !ok {
		s.replyError(c, "Player is not in a room")
		return
	}
	if err := room.HandleAction(msg.PlayerID, *msg.Hex, msg.Action); err != nil {
		s.replyError(c, err.Error())
	}
}

func (s *Server) handleAlliance(c *client, msg inboundMessage) {
	if msg.PlayerID == "" || msg.TargetPlayerID == "" {
		s.replyError(c, "Missing required alliance fields")
		return
	}
	room, ok := s.registry.FindByPlayer(msg.PlayerID)
	if !ok {
		s.replyError(c, "Player is not in a room")
		return
	}
	if err := room.HandleAllianceProposal(msg.PlayerID, msg.TargetPlayerID); err != nil {
		s.replyError(c, err.Error())
	}
}

func (s *Server) replyError(c *client, message string) {
	if err := c.Send(game.NewErrorEnvelope(message)); err != nil {
		s.logger.Debug("failed to send error reply", zap.Error(err))
	}
}
