package game

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/hexhavoc/hexhavoc-server/internal/grid"
)

// attackSuccessChance is the uniform probability that a resolved attack
// captures the target hex.
const attackSuccessChance = 0.5

// ApplyDecision validates and applies one classified decision for the
// acting player. It is the loop-driven entry point; client-issued action
// messages go through HandleAction instead.
func (r *Room) ApplyDecision(playerID string, d Decision) {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil {
		return
	}
	r.logger.Debug("processing decision",
		zap.String("player", p.Name),
		zap.String("kind", string(d.Kind)),
	)

	switch d.Kind {
	case KindExpand:
		r.applyExpandLocked(p)
	case KindAttack:
		r.applyAttackLocked(p)
	case KindAlly:
		r.applyAllyLocked(p, d)
	case KindPeace:
		r.applyPeaceLocked(p, d)
	case KindTrade:
		r.applyTradeLocked(p, d)
	default:
		p.Remember("Held position")
	}
}

// applyExpandLocked claims the first neutral neighbor of the player's
// territory, scanning owned hexes in grid order.
func (r *Room) applyExpandLocked(p *Player) {
	for _, owned := range r.grid.OwnedBy(p.ID) {
		for _, n := range r.grid.Neighbors(owned.Coord()) {
			target := r.grid.At(n)
			if target == nil || target.Owner != "" {
				continue
			}
			target.Owner = p.ID
			p.Territories++
			p.Resources += target.Resources
			p.Remember(fmt.Sprintf("Expanded to (%d, %d)", target.Q, target.R))
			r.broadcastLocked(KindUpdate, fmt.Sprintf("%s expanded their territory", p.Name))
			return
		}
	}
	p.Remember("Failed to expand - no valid adjacent targets")
}

// applyAttackLocked attacks the first neighboring hex owned by another
// player. An ally-owned target aborts the attack outright rather than
// falling through to the next candidate.
func (r *Room) applyAttackLocked(p *Player) {
	for _, owned := range r.grid.OwnedBy(p.ID) {
		for _, n := range r.grid.Neighbors(owned.Coord()) {
			target := r.grid.At(n)
			if target == nil || target.Owner == "" || target.Owner == p.ID {
				continue
			}
			defender := r.playerLocked(target.Owner)
			if defender == nil {
				continue
			}
			if p.IsAlly(defender.ID) {
				p.Remember(fmt.Sprintf("Cannot attack ally %s's territory", defender.Name))
				return
			}
			if r.rng.Float64() < attackSuccessChance {
				r.captureHexLocked(p, defender, target)
				r.broadcastLocked(KindUpdate, fmt.Sprintf(
					"%s captured territory from %s at (%d, %d)",
					p.Name, defender.Name, target.Q, target.R))
			} else {
				p.Remember(fmt.Sprintf("Failed to attack (%d, %d)", target.Q, target.R))
				r.broadcastLocked(KindUpdate, fmt.Sprintf("%s's attack failed", p.Name))
			}
			return
		}
	}
	p.Remember("Failed to attack - no valid adjacent targets")
}

// captureHexLocked transfers the hex from defender to attacker, records the
// mutual enemy relationship, and breaks any alliance between the two.
func (r *Room) captureHexLocked(attacker, defender *Player, hex *grid.Hex) {
	defender.Territories--
	defender.Resources -= hex.Resources

	hex.Owner = attacker.ID
	attacker.Territories++
	attacker.Resources += hex.Resources

	if !attacker.IsEnemy(defender.ID) {
		attacker.addEnemy(defender.ID)
		defender.addEnemy(attacker.ID)
	}
	if attacker.IsAlly(defender.ID) {
		attacker.removeAlly(defender.ID)
		defender.removeAlly(attacker.ID)
	}

	attacker.Remember(fmt.Sprintf("Successfully attacked and captured (%d, %d) from %s",
		hex.Q, hex.R, defender.Name))
	defender.Remember(fmt.Sprintf("Lost territory at (%d, %d) to %s", hex.Q, hex.R, attacker.Name))
}

// applyAllyLocked forms an exclusive alliance with the addressed player.
func (r *Room) applyAllyLocked(p *Player, d Decision) {
	target := r.resolveTargetLocked(p, d)
	if target == nil || p.IsEnemy(target.ID) {
		p.Remember("Failed to form alliance - invalid target")
		return
	}
	if len(p.Allies) > 0 || len(target.Allies) > 0 {
		p.Remember("Cannot form alliance - one faction already has an alliance")
		return
	}
	if p.Alliance != nil && target.Alliance != nil {
		if p.Alliance.GiveMax < target.Alliance.GetMin || target.Alliance.GiveMax < p.Alliance.GetMin {
			p.Remember(fmt.Sprintf("Cannot form alliance with %s - terms not acceptable", target.Name))
			return
		}
	}
	r.formAllianceLocked(p, target)
}

func (r *Room) formAllianceLocked(a, b *Player) {
	a.addAlly(b.ID)
	b.addAlly(a.ID)
	a.removeEnemy(b.ID)
	b.removeEnemy(a.ID)
	a.Remember(fmt.Sprintf("Formed alliance with %s", b.Name))
	b.Remember(fmt.Sprintf("Formed alliance with %s", a.Name))
}

// applyPeaceLocked removes a mutual enemy relationship with the addressed
// player, if one exists.
func (r *Room) applyPeaceLocked(p *Player, d Decision) {
	target := r.resolveTargetLocked(p, d)
	if target != nil && p.IsEnemy(target.ID) {
		p.removeEnemy(target.ID)
		target.removeEnemy(p.ID)
		p.Remember(fmt.Sprintf("Made peace with %s", target.Name))
		target.Remember(fmt.Sprintf("Made peace with %s", p.Name))
		return
	}
	p.Remember("Failed to make peace - invalid target")
}

// applyTradeLocked records a trade with the addressed player. No resources
// actually move; trade is a social action.
func (r *Room) applyTradeLocked(p *Player, d Decision) {
	target := r.resolveTargetLocked(p, d)
	if target == nil {
		p.Remember("Failed to trade - invalid target")
		return
	}
	p.Remember(fmt.Sprintf("Traded with %s", target.Name))
	target.Remember(fmt.Sprintf("Traded with %s", p.Name))
}

// resolveTargetLocked finds the player a decision addresses: by an embedded
// (q, r) coordinate resolved to the hex owner, or by faction name mentioned
// in the text. An explicit coordinate is authoritative: one that lands on a
// neutral, off-grid, or self-owned hex fails the resolution outright rather
// than falling through to name matching. The acting player is never a valid
// target.
func (r *Room) resolveTargetLocked(p *Player, d Decision) *Player {
	if c, ok := d.targetCoord(); ok {
		if hex := r.grid.At(c); hex != nil && hex.Owner != "" && hex.Owner != p.ID {
			return r.playerLocked(hex.Owner)
		}
		return nil
	}
	for _, other := range r.players {
		if other.ID == p.ID {
			continue
		}
		if strings.Contains(d.Raw, strings.ToLower(other.Name)) {
			return other
		}
	}
	return nil
}

// HandleAction applies a client-issued expand or attack against an explicit
// hex. Only the player whose turn it is may act; every rejection leaves
// room state untouched.
func (r *Room) HandleAction(playerID string, target grid.Coord, action string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil {
		return ErrPlayerNotFound
	}
	current := r.currentPlayerLocked()
	if current == nil || current.ID != playerID {
		return ErrNotYourTurn
	}
	hex := r.grid.At(target)
	if hex == nil {
		return ErrUnknownHex
	}

	switch action {
	case "expand":
		if hex.Owner != "" {
			return ErrHexOccupied
		}
		if !grid.IsAdjacent(r.grid.OwnedBy(p.ID), target) {
			return ErrNotAdjacent
		}
		hex.Owner = p.ID
		p.Territories++
		p.Resources += hex.Resources
		p.Remember(fmt.Sprintf("Expanded to (%d, %d)", hex.Q, hex.R))
		r.broadcastLocked(KindUpdate, fmt.Sprintf("%s expanded their territory", p.Name))

	case "attack":
		if hex.Owner == "" || hex.Owner == p.ID {
			return ErrBadAttackTarget
		}
		if !grid.IsAdjacent(r.grid.OwnedBy(p.ID), target) {
			return ErrAttackOutOfRange
		}
		defender := r.playerLocked(hex.Owner)
		if defender == nil {
			return ErrBadAttackTarget
		}
		if p.IsAlly(defender.ID) {
			return ErrBadAttackTarget
		}
		if r.rng.Float64() < attackSuccessChance {
			r.captureHexLocked(p, defender, hex)
			r.broadcastLocked(KindUpdate, fmt.Sprintf(
				"%s captured territory from %s at (%d, %d)",
				p.Name, defender.Name, hex.Q, hex.R))
		} else {
			p.Remember(fmt.Sprintf("Failed to attack (%d, %d)", hex.Q, hex.R))
			r.broadcastLocked(KindUpdate, fmt.Sprintf("%s's attack failed", p.Name))
		}

	default:
		return ErrUnknownAction
	}

	r.turn++
	if next := r.currentPlayerLocked(); next != nil {
		r.broadcastLocked(KindUpdate, fmt.Sprintf("It's now %s's turn", next.Name))
	}
	return nil
}

// HandleAllianceProposal applies a direct client-issued alliance proposal.
// Unlike the loop-driven ally decision it rejects with an error when either
// party's alliance policy is missing or disabled.
func (r *Room) HandleAllianceProposal(playerID, targetID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	target := r.playerLocked(targetID)
	if p == nil || target == nil {
		return ErrPlayerNotFound
	}
	if p.ID == target.ID {
		return ErrSelfAlliance
	}
	if p.Alliance == nil || !p.Alliance.Enabled || target.Alliance == nil || !target.Alliance.Enabled {
		return ErrAllianceDisabled
	}
	if len(p.Allies) > 0 || len(target.Allies) > 0 {
		return ErrAlreadyAllied
	}
	if p.Alliance.GiveMax < target.Alliance.GetMin || target.Alliance.GiveMax < p.Alliance.GetMin {
		return ErrAllianceTerms
	}

	r.formAllianceLocked(p, target)
	r.broadcastLocked(KindUpdate, fmt.Sprintf("%s and %s formed an alliance", p.Name, target.Name))
	return nil
}
