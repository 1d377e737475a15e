package game

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// DecisionProvider is the external capability that turns a textual game
// state into a free-text decision. It is treated as unreliable: a failure
// costs the player their turn, never the room.
type DecisionProvider interface {
	Decide(ctx context.Context, systemInstruction, prompt string) (string, error)
}

// Payer is the external transfer collaborator invoked once for the winner
// after standings are final.
type Payer interface {
	Transfer(ctx context.Context, amount int64, recipient string) (txHash string, err error)
}

// Clock abstracts the pacing delays of the turn loop so tests can run it
// with zero delay.
type Clock interface {
	Sleep(ctx context.Context, d time.Duration)
}

type realClock struct{}

func (realClock) Sleep(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

// NewRealClock returns a Clock backed by the wall clock.
func NewRealClock() Clock {
	return realClock{}
}

// EngineConfig holds turn-loop pacing and payout parameters.
type EngineConfig struct {
	StartDelay   time.Duration
	TurnDelay    time.Duration
	PayoutAmount int64
}

// Engine drives started rooms through their turn loop. Each started room
// gets exactly one loop goroutine; all room mutation inside the loop goes
// through the room's own lock, so inbound message handling for other rooms
// interleaves freely.
type Engine struct {
	registry *Registry
	provider DecisionProvider
	payer    Payer
	clock    Clock
	cfg      EngineConfig
	logger   *zap.Logger
}

// NewEngine creates a turn engine. payer may be nil when payouts are not
// configured.
func NewEngine(registry *Registry, provider DecisionProvider, payer Payer, clock Clock, cfg EngineConfig, logger *zap.Logger) *Engine {
	if clock == nil {
		clock = realClock{}
	}
	return &Engine{
		registry: registry,
		provider: provider,
		payer:    payer,
		clock:    clock,
		cfg:      cfg,
		logger:   logger,
	}
}

// Start launches the room's turn loop on its own goroutine, after the
// configured start delay so the final lobby broadcast flushes first.
func (e *Engine) Start(ctx context.Context, room *Room) {
	go func() {
		e.clock.Sleep(ctx, e.cfg.StartDelay)
		e.Run(ctx, room)
	}()
}

// Run executes the full turn loop for a started room and tears the room
// down when it terminates. It blocks until the game is over; tests call it
// directly with a zero-delay clock.
func (e *Engine) Run(ctx context.Context, room *Room) {
	logger := e.logger.With(zap.String("room_id", room.ID))
	logger.Info("game loop starting", zap.Int("players", room.PlayerCount()))

	room.Broadcast(KindUpdate, "Game started!")

	for room.Turn() < room.MaxTurns() && room.PlayerCount() > 0 && ctx.Err() == nil {
		turn := room.AdvanceRound()
		logger.Info("turn starting", zap.Int("turn", turn))

		for _, playerID := range room.PlayerIDs() {
			if ctx.Err() != nil {
				break
			}
			p, ok := room.Player(playerID)
			if !ok {
				continue
			}
			if !room.IsConnected(playerID) {
				logger.Debug("skipping disconnected player", zap.String("player", p.Name))
				continue
			}

			reply, err := e.provider.Decide(ctx, room.SystemInstruction(playerID), room.StateDescription(playerID))
			if err != nil {
				logger.Warn("decision provider failed, skipping turn",
					zap.String("player", p.Name),
					zap.Error(err),
				)
				room.Broadcast(KindError, fmt.Sprintf("Error processing %s's turn", p.Name))
				continue
			}

			decision := Classify(reply)
			logger.Info("decision received",
				zap.String("player", p.Name),
				zap.String("kind", string(decision.Kind)),
			)
			room.ApplyDecision(playerID, decision)
			room.Broadcast(KindUpdate, fmt.Sprintf("%s made their move: %s", p.Name, decision.Raw))

			e.clock.Sleep(ctx, e.cfg.TurnDelay)
		}
	}

	e.finish(ctx, room, logger)
}

// finish computes standings, pays out the winner, broadcasts the end
// envelope, closes every connection, and removes the room.
func (e *Engine) finish(ctx context.Context, room *Room, logger *zap.Logger) {
	results := room.FinalResults()

	var message string
	if len(results.Standings) == 0 {
		message = "Game Over! All players left before the game could finish."
	} else {
		winner := results.Winner
		message = fmt.Sprintf("Game Over! Winner: %s (%s) with %d%% control",
			winner.Name, winner.Personality, winner.ControlPercentage)

		if txHash := e.payWinner(ctx, room, winner, logger); txHash != "" {
			message = fmt.Sprintf("%s. Reward sent: %s", message, txHash)
		}
	}

	room.BroadcastEnd(results, message)
	room.CloseAll()
	e.registry.Remove(room.ID)
	logger.Info("game over, room cleaned up")
}

// payWinner invokes the transfer collaborator exactly once for the winning
// player. A missing payer or wallet address skips the transfer; a transfer
// failure is logged and the game still ends normally.
func (e *Engine) payWinner(ctx context.Context, room *Room, winner Standing, logger *zap.Logger) string {
	if e.payer == nil {
		return ""
	}
	wallet := room.WalletByName(winner.Name)
	if wallet == "" {
		logger.Info("winner has no wallet address, skipping payout",
			zap.String("winner", winner.Name))
		return ""
	}
	txHash, err := e.payer.Transfer(ctx, e.cfg.PayoutAmount, wallet)
	if err != nil {
		logger.Error("winner payout failed",
			zap.String("winner", winner.Name),
			zap.Error(err),
		)
		return ""
	}
	logger.Info("winner payout sent",
		zap.String("winner", winner.Name),
		zap.String("tx_hash", txHash),
	)
	return txHash
}
