package server

import (
	"encoding/json"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// sendBufferSize bounds the per-connection outbound queue.
const sendBufferSize = 256

// client wraps one websocket connection. It implements game.Sender; the
// game core only ever sees this interface, never the socket. roomID and
// playerID are the transport-side lookup from connection to player-in-room,
// set once on join and read only by the connection's own read goroutine.
type client struct {
	id     string
	conn   *websocket.Conn
	send   chan []byte
	closed chan struct{}
	once   sync.Once
	logger *zap.Logger

	roomID   string
	playerID string
}

func newClient(conn *websocket.Conn, logger *zap.Logger) *client {
	id := uuid.NewString()
	return &client{
		id:     id,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		closed: make(chan struct{}),
		logger: logger.With(zap.String("conn_id", id)),
	}
}

// Send enqueues an envelope for delivery. It never blocks: a closed
// connection or a full buffer returns an error that the broadcast path
// logs and swallows.
func (c *client) Send(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	select {
	case <-c.closed:
		return errors.New("connection closed")
	default:
	}
	select {
	case c.send <- data:
		return nil
	default:
		return errors.New("send buffer full")
	}
}

// Close shuts the connection down. Safe to call more than once.
func (c *client) Close() error {
	c.once.Do(func() { close(c.closed) })
	return nil
}

// writePump delivers queued envelopes until the connection closes. On
// close it drains what is already queued so the final broadcast still
// reaches the peer.
func (c *client) writePump() {
	defer c.conn.Close()
	for {
		select {
		case msg := <-c.send:
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				c.logger.Debug("write failed", zap.Error(err))
				return
			}
		case <-c.closed:
			for {
				select {
				case msg := <-c.send:
					if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
						c.logger.Debug("write failed", zap.Error(err))
						return
					}
				default:
					return
				}
			}
		}
	}
}
