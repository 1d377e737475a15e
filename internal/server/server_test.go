package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexhavoc/hexhavoc-server/internal/agent"
	"github.com/hexhavoc/hexhavoc-server/internal/game"
)

// zeroClock removes all pacing delays so games over the wire finish
// within the test's read deadline.
type zeroClock struct{}

func (zeroClock) Sleep(ctx context.Context, d time.Duration) {}

// outbound is the union of everything the server writes to a connection.
type outbound struct {
	Type          string             `json:"type"`
	Message       string             `json:"message"`
	PlayerCount   int                `json:"playerCount"`
	Started       bool               `json:"started"`
	CurrentPlayer string             `json:"currentPlayer"`
	Grid          []json.RawMessage  `json:"grid"`
	Players       []json.RawMessage  `json:"players"`
	FinalResults  *game.FinalResults `json:"finalResults"`
}

type testServer struct {
	srv *httptest.Server
	reg *game.Registry
}

func newTestServer(t *testing.T, opts game.Options, engineCfg game.EngineConfig, clock game.Clock) *testServer {
	t.Helper()
	logger := zap.NewNop()
	reg := game.NewRegistry(opts, logger)
	engine := game.NewEngine(reg, agent.NewScripted(), nil, clock, engineCfg, logger)
	s := New(context.Background(), reg, engine, logger)
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(srv.Close)
	return &testServer{srv: srv, reg: reg}
}

// defaultTestServer keeps games from starting their loop during the test
// by parking the engine on a long start delay.
func defaultTestServer(t *testing.T) *testServer {
	return newTestServer(t,
		game.Options{GridRadius: 3, Capacity: 4, MaxTurns: 10, Seed: 7},
		game.EngineConfig{StartDelay: time.Minute},
		game.NewRealClock(),
	)
}

func (ts *testServer) dial(t *testing.T) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(ts.srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func send(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(v))
}

func read(t *testing.T, conn *websocket.Conn) outbound {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var msg outbound
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func joinMsg(playerID, name string) map[string]any {
	return map[string]any{
		"type":        "join",
		"roomId":      "default",
		"playerId":    playerID,
		"name":        name,
		"personality": "cunning",
	}
}

func TestHealthz(t *testing.T) {
	ts := defaultTestServer(t)

	resp, err := http.Get(ts.srv.URL + "/healthz")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestJoinBroadcastsLobbyState(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, joinMsg("p1", "P1"))

	msg := read(t, conn)
	assert.Equal(t, "update", msg.Type)
	assert.Equal(t, "Waiting for 3 more players...", msg.Message)
	assert.Equal(t, 1, msg.PlayerCount)
	assert.False(t, msg.Started)
	assert.Len(t, msg.Grid, 37)
	assert.Len(t, msg.Players, 1)
}

func TestJoinFourthPlayerStartsGame(t *testing.T) {
	ts := defaultTestServer(t)

	conns := make([]*websocket.Conn, 4)
	for i := range conns {
		conns[i] = ts.dial(t)
		send(t, conns[i], joinMsg(fmt.Sprintf("p%d", i+1), fmt.Sprintf("P%d", i+1)))
		read(t, conns[i])
	}

	// The first connection saw every subsequent join; the last broadcast it
	// got is the start announcement.
	var last outbound
	for i := 0; i < 3; i++ {
		last = read(t, conns[0])
	}
	assert.Equal(t, "All players joined! Starting game...", last.Message)
	assert.True(t, last.Started)
	assert.Equal(t, 4, last.PlayerCount)
}

func TestMalformedMessage(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte("{not json")))

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Invalid message format", msg.Message)
}

func TestUnknownMessageType(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, map[string]any{"type": "teleport"})

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Unknown message type", msg.Message)
}

func TestJoinMissingFields(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, map[string]any{"type": "join", "roomId": "default"})

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Missing required join fields", msg.Message)
}

func TestJoinTwiceRejected(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, joinMsg("p1", "P1"))
	read(t, conn)

	send(t, conn, joinMsg("p9", "P9"))
	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Already joined a room", msg.Message)
}

func TestJoinFullRoomRejected(t *testing.T) {
	ts := defaultTestServer(t)

	for i := 0; i < 4; i++ {
		conn := ts.dial(t)
		send(t, conn, joinMsg(fmt.Sprintf("p%d", i+1), fmt.Sprintf("P%d", i+1)))
		read(t, conn)
	}

	late := ts.dial(t)
	send(t, late, joinMsg("p5", "P5"))

	msg := read(t, late)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Room is full", msg.Message)
}

func TestActionWithoutRoom(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, map[string]any{
		"type":     "action",
		"playerId": "ghost",
		"hex":      map[string]int{"q": 0, "r": 0},
		"action":   "expand",
	})

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Player is not in a room", msg.Message)
}

func TestActionValidationErrorReachesOnlySender(t *testing.T) {
	ts := defaultTestServer(t)
	first := ts.dial(t)
	second := ts.dial(t)

	send(t, first, joinMsg("p1", "P1"))
	read(t, first)
	send(t, second, joinMsg("p2", "P2"))
	read(t, second)
	read(t, first) // p2's lobby broadcast

	// p2 acting on p1's turn is rejected on p2's connection only.
	send(t, second, map[string]any{
		"type":     "action",
		"playerId": "p2",
		"hex":      map[string]int{"q": 0, "r": 0},
		"action":   "expand",
	})

	msg := read(t, second)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Not your turn", msg.Message)
}

func TestAllianceMissingFields(t *testing.T) {
	ts := defaultTestServer(t)
	conn := ts.dial(t)

	send(t, conn, map[string]any{"type": "alliance", "playerId": "p1"})

	msg := read(t, conn)
	assert.Equal(t, "error", msg.Type)
	assert.Equal(t, "Missing required alliance fields", msg.Message)
}

func TestLobbyDisconnectRetractsPlayer(t *testing.T) {
	ts := defaultTestServer(t)
	first := ts.dial(t)
	second := ts.dial(t)

	send(t, first, joinMsg("p1", "P1"))
	read(t, first)
	send(t, second, joinMsg("p2", "P2"))
	read(t, second)
	read(t, first)

	require.NoError(t, second.Close())

	msg := read(t, first)
	assert.Equal(t, "P2 left. Waiting for 3 more players...", msg.Message)
	assert.Equal(t, 1, msg.PlayerCount)
}

func TestFullGameOverWebsocket(t *testing.T) {
	ts := newTestServer(t,
		game.Options{GridRadius: 3, Capacity: 4, MaxTurns: 2, Seed: 11},
		game.EngineConfig{},
		zeroClock{},
	)

	conns := make([]*websocket.Conn, 4)
	for i := range conns {
		conns[i] = ts.dial(t)
		send(t, conns[i], joinMsg(fmt.Sprintf("p%d", i+1), fmt.Sprintf("P%d", i+1)))
	}

	// Drain broadcasts until the end envelope arrives.
	var end outbound
	for {
		msg := read(t, conns[0])
		if msg.Type == "end" {
			end = msg
			break
		}
	}

	require.NotNil(t, end.FinalResults)
	assert.Len(t, end.FinalResults.Standings, 4)
	assert.Contains(t, end.Message, "Game Over! Winner:")
	assert.Eventually(t, func() bool { return ts.reg.Count() == 0 }, 2*time.Second, 10*time.Millisecond,
		"room removed once the loop finishes")
}
