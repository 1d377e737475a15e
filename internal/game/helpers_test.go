package game

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/hexhavoc/hexhavoc-server/internal/grid"
)

// captureSender records every envelope instead of writing to a socket.
type captureSender struct {
	mu     sync.Mutex
	sent   []any
	closed bool
}

func (s *captureSender) Send(v any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, v)
	return nil
}

func (s *captureSender) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func (s *captureSender) envelopes(kind string) []*Envelope {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Envelope
	for _, v := range s.sent {
		if env, ok := v.(*Envelope); ok && env.Type == kind {
			out = append(out, env)
		}
	}
	return out
}

func (s *captureSender) errorMessages() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, v := range s.sent {
		if env, ok := v.(ErrorEnvelope); ok {
			out = append(out, env.Message)
		}
	}
	return out
}

func (s *captureSender) lastUpdateMessage() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := len(s.sent) - 1; i >= 0; i-- {
		if env, ok := s.sent[i].(*Envelope); ok && env.Type == KindUpdate {
			return env.Message
		}
	}
	return ""
}

func testOptions() Options {
	return Options{GridRadius: 3, Capacity: 4, MaxTurns: 10, Seed: 42}
}

func newTestRoom(t *testing.T) *Room {
	t.Helper()
	return NewRoom("default", testOptions(), zap.NewNop())
}

// fillRoom joins capacity players named P1..Pn and returns their senders.
func fillRoom(t *testing.T, r *Room, n int) []*captureSender {
	t.Helper()
	senders := make([]*captureSender, n)
	for i := 0; i < n; i++ {
		senders[i] = &captureSender{}
		p := NewPlayer(fmt.Sprintf("p%d", i+1), fmt.Sprintf("P%d", i+1), "ruthless")
		started, err := r.Join(p, senders[i])
		require.NoError(t, err)
		require.Equal(t, i == n-1 && n == r.opts.Capacity, started)
	}
	return senders
}

// requireCountersMatchGrid asserts the territory/resource counters of every
// player equal what the grid actually records for them.
func requireCountersMatchGrid(t *testing.T, r *Room) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		hexes := r.grid.OwnedBy(p.ID)
		resources := 0
		for _, h := range hexes {
			resources += h.Resources
		}
		require.Equal(t, len(hexes), p.Territories, "territory counter for %s", p.Name)
		require.Equal(t, resources, p.Resources, "resource counter for %s", p.Name)
	}
}

// requireRelationshipInvariants asserts exclusive alliances and disjoint
// ally/enemy sets for every player.
func requireRelationshipInvariants(t *testing.T, r *Room) {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, p := range r.players {
		require.LessOrEqual(t, len(p.Allies), 1, "%s exceeds one ally", p.Name)
		for _, a := range p.Allies {
			require.NotContains(t, p.Enemies, a, "%s has %s as both ally and enemy", p.Name, a)
		}
	}
}

// instantClock runs the turn loop with zero delay.
type instantClock struct{}

func (instantClock) Sleep(ctx context.Context, d time.Duration) {}

func gridCoord(q, r int) grid.Coord {
	return grid.Coord{Q: q, R: r}
}

// hexAt returns the room's hex at the given coordinate for assertions.
func hexAt(r *Room, q, ri int) *grid.Hex {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid.At(grid.Coord{Q: q, R: ri})
}
