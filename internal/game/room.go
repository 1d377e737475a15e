package game

import (
	"fmt"
	"math/rand"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/hexhavoc/hexhavoc-server/internal/grid"
)

// Options fixes the shape of a room for its whole lifetime.
type Options struct {
	GridRadius int
	Capacity   int
	MaxTurns   int
	// Seed seeds the room's RNG (resource placement and combat rolls).
	// Zero means seed from the clock.
	Seed int64
}

// startPositions are the corner hexes claimed on join; each joiner takes
// the first position still unclaimed, so corners freed by lobby leavers
// are handed out again.
var startPositions = [4]grid.Coord{
	{Q: -2, R: 0},
	{Q: 2, R: 0},
	{Q: 0, R: -2},
	{Q: 0, R: 2},
}

// Room is a single game: its grid, its players in join order, and the turn
// counter. All state mutation is serialized behind mu; the turn loop and
// inbound message handlers both go through it.
type Room struct {
	ID string

	mu      sync.Mutex
	opts    Options
	grid    *grid.Grid
	players []*Player
	senders map[string]Sender
	started bool
	ended   bool
	turn    int
	rng     *rand.Rand

	logger *zap.Logger
}

// NewRoom creates an empty room with a freshly generated grid.
func NewRoom(id string, opts Options, logger *zap.Logger) *Room {
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))
	return &Room{
		ID:      id,
		opts:    opts,
		grid:    grid.Generate(opts.GridRadius, rng),
		senders: make(map[string]Sender),
		rng:     rng,
		logger:  logger.With(zap.String("room_id", id)),
	}
}

// Join adds a player to the room and claims their starting corner. It
// returns true when this join filled the room and the game should start.
// A join to a full or already started room is rejected without mutating
// state.
func (r *Room) Join(p *Player, sender Sender) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started || len(r.players) >= r.opts.Capacity {
		return false, ErrRoomFull
	}

	r.players = append(r.players, p)
	r.senders[p.ID] = sender

	for _, pos := range startPositions {
		hex := r.grid.At(pos)
		if hex == nil || hex.Owner != "" {
			continue
		}
		hex.Owner = p.ID
		p.Territories++
		p.Resources += hex.Resources
		claimed := pos
		p.corner = &claimed
		break
	}

	needed := r.opts.Capacity - len(r.players)
	var msg string
	switch {
	case needed > 1:
		msg = fmt.Sprintf("Waiting for %d more players...", needed)
	case needed == 1:
		msg = "Waiting for 1 more player..."
	default:
		msg = "All players joined! Starting game..."
		r.started = true
	}
	r.broadcastLocked(KindUpdate, msg)

	if r.started {
		r.logger.Info("room full, game starting",
			zap.Int("players", len(r.players)),
		)
		return true, nil
	}
	return false, nil
}

// Disconnect handles a dropped connection. In the lobby the player's corner
// is retracted and they leave the room; mid-game their territories remain
// in play and only the connection handle is forgotten.
func (r *Room) Disconnect(playerID string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	idx := -1
	for i, p := range r.players {
		if p.ID == playerID {
			idx = i
			break
		}
	}
	if idx == -1 {
		return
	}
	p := r.players[idx]
	delete(r.senders, playerID)

	if !r.started {
		if p.corner != nil {
			if hex := r.grid.At(*p.corner); hex != nil && hex.Owner == p.ID {
				hex.Owner = ""
				p.Territories--
				p.Resources -= hex.Resources
			}
			p.corner = nil
		}
		r.players = append(r.players[:idx], r.players[idx+1:]...)
		r.logger.Info("player left lobby", zap.String("player", p.Name))
		r.broadcastLocked(KindUpdate, fmt.Sprintf("%s left. Waiting for %d more players...",
			p.Name, r.opts.Capacity-len(r.players)))
		return
	}

	r.logger.Info("player disconnected mid-game", zap.String("player", p.Name))
	r.broadcastLocked(KindUpdate,
		fmt.Sprintf("%s disconnected but their territories remain in play.", p.Name))
}

// Started reports whether the game has begun.
func (r *Room) Started() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

// Ended reports whether the game has finished.
func (r *Room) Ended() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.ended
}

// Turn returns the current turn counter.
func (r *Room) Turn() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.turn
}

// MaxTurns returns the room's turn limit.
func (r *Room) MaxTurns() int {
	return r.opts.MaxTurns
}

// WalletByName returns the wallet address of the named player, or empty
// when the player is unknown or gave none.
func (r *Room) WalletByName(name string) string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if p := r.playerByNameLocked(name); p != nil {
		return p.Wallet
	}
	return ""
}

// PlayerCount returns the number of players currently in the room.
func (r *Room) PlayerCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.players)
}

// PlayerIDs returns the player ids in join order.
func (r *Room) PlayerIDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, len(r.players))
	for i, p := range r.players {
		ids[i] = p.ID
	}
	return ids
}

// Player returns the player with the given id.
func (r *Room) Player(id string) (*Player, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	p := r.playerLocked(id)
	return p, p != nil
}

// HasPlayer reports whether the given player id belongs to this room.
func (r *Room) HasPlayer(id string) bool {
	_, ok := r.Player(id)
	return ok
}

// IsConnected reports whether the player still has a live connection.
func (r *Room) IsConnected(playerID string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.senders[playerID] != nil
}

func (r *Room) playerLocked(id string) *Player {
	for _, p := range r.players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

func (r *Room) playerByNameLocked(name string) *Player {
	for _, p := range r.players {
		if strings.EqualFold(p.Name, name) {
			return p
		}
	}
	return nil
}

// currentPlayerLocked returns the player whose turn it is, per the
// canonical turn-index ordering.
func (r *Room) currentPlayerLocked() *Player {
	if len(r.players) == 0 {
		return nil
	}
	return r.players[r.turn%len(r.players)]
}

// AdvanceRound increments the turn counter and returns its new value.
func (r *Room) AdvanceRound() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.turn++
	return r.turn
}

// Broadcast pushes the enriched room state to every connected player.
func (r *Room) Broadcast(kind, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.broadcastLocked(kind, message)
}

func (r *Room) broadcastLocked(kind, message string) {
	env := r.envelopeLocked(kind, message)
	for _, p := range r.players {
		sender := r.senders[p.ID]
		if sender == nil {
			continue
		}
		if err := sender.Send(env); err != nil {
			r.logger.Warn("failed to send update",
				zap.String("player", p.Name),
				zap.Error(err),
			)
		}
	}
	r.logger.Debug("map state", zap.String("map", r.mapDumpLocked()))
	if message != "" {
		r.logger.Info(message)
	}
}

func (r *Room) envelopeLocked(kind, message string) *Envelope {
	players := make([]PlayerSummary, len(r.players))
	for i, p := range r.players {
		players[i] = PlayerSummary{
			ID:          p.ID,
			Name:        p.Name,
			Personality: p.Personality,
			Territories: p.Territories,
			Resources:   p.Resources,
			Allies:      append([]string{}, p.Allies...),
			Enemies:     append([]string{}, p.Enemies...),
			Strategy:    p.Strategy,
			Alliance:    p.Alliance,
		}
	}
	current := ""
	if cp := r.currentPlayerLocked(); cp != nil {
		current = cp.Name
	}
	return &Envelope{
		Type:          kind,
		Grid:          r.grid.Hexes,
		Players:       players,
		Turn:          r.turn,
		Message:       message,
		CurrentPlayer: current,
		PlayerCount:   len(r.players),
		Started:       r.started,
	}
}

// mapDumpLocked renders grid ownership as a single line, "." for neutral.
func (r *Room) mapDumpLocked() string {
	cells := make([]string, len(r.grid.Hexes))
	for i, h := range r.grid.Hexes {
		if h.Owner == "" {
			cells[i] = "."
		} else {
			cells[i] = h.Owner
		}
	}
	return strings.Join(cells, " ")
}

// SendError delivers an error envelope to a single player's connection.
func (r *Room) SendError(playerID, message string) {
	r.mu.Lock()
	sender := r.senders[playerID]
	r.mu.Unlock()
	if sender == nil {
		return
	}
	if err := sender.Send(NewErrorEnvelope(message)); err != nil {
		r.logger.Warn("failed to send error reply", zap.Error(err))
	}
}

// FinalResults computes the end-of-game standings, sorted by territory
// count descending, with winner first.
func (r *Room) FinalResults() *FinalResults {
	r.mu.Lock()
	defer r.mu.Unlock()

	total := r.grid.Size()
	standings := make([]Standing, len(r.players))
	for i, p := range r.players {
		pct := 0
		if total > 0 {
			pct = int(float64(p.Territories)/float64(total)*100 + 0.5)
		}
		standings[i] = Standing{
			Name:              p.Name,
			Personality:       p.Personality,
			Territories:       p.Territories,
			Resources:         p.Resources,
			ControlPercentage: pct,
			Allies:            append([]string{}, p.Allies...),
			Enemies:           append([]string{}, p.Enemies...),
		}
	}
	sort.SliceStable(standings, func(i, j int) bool {
		return standings[i].Territories > standings[j].Territories
	})
	if len(standings) == 0 {
		return &FinalResults{Standings: standings}
	}
	return &FinalResults{Standings: standings, Winner: standings[0]}
}

// BroadcastEnd pushes the end envelope, with final results attached, to
// every connected player.
func (r *Room) BroadcastEnd(results *FinalResults, message string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	env := r.envelopeLocked(KindEnd, message)
	env.FinalResults = results
	for _, p := range r.players {
		sender := r.senders[p.ID]
		if sender == nil {
			continue
		}
		if err := sender.Send(env); err != nil {
			r.logger.Warn("failed to send end envelope",
				zap.String("player", p.Name),
				zap.Error(err),
			)
		}
	}
	r.logger.Info(message)
}

// CloseAll marks the room ended and closes every remaining connection.
// Closing connections is the terminal step of teardown, never a trigger
// for it.
func (r *Room) CloseAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ended = true
	for id, sender := range r.senders {
		if sender == nil {
			continue
		}
		if err := sender.Close(); err != nil {
			r.logger.Warn("failed to close connection", zap.String("player_id", id), zap.Error(err))
		}
	}
	r.senders = make(map[string]Sender)
}
