package game

import (
	"fmt"
	"strings"
)

// strategicGuidelines is the fixed advice block appended to every turn
// prompt.
const strategicGuidelines = `Strategic Guidelines:
- Each faction can only have ONE alliance
- Choose allies carefully as you cannot switch allies later
- Alliances lead to shared victory
- Territory control is important for victory
- Consider both short-term and long-term benefits of your actions
- Betraying allies may have long-term consequences
- Only attack when there are valid enemy territories adjacent to your own
- Do not attempt to attack if there are no adjacent enemy territories
- Do not attack allies under any circumstances

Possible actions:
  Expand (take unclaimed adjacent territory)
  Attack (attack adjacent enemy territory - never an ally)
  Ally: <FactionName> (form exclusive alliance for shared victory)
  Peace: <FactionName> (make peace with another faction)
  Trade: <FactionName> (trade resources with another faction)

Your decision:`

// SystemInstruction builds the provider's system message for a player's
// turn, embedding their personality and strategy weights as bias text.
func (r *Room) SystemInstruction(playerID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil {
		return ""
	}
	var b strings.Builder
	fmt.Fprintf(&b, "You are an AI controlling the faction '%s' with a '%s' personality. Make strategic choices.",
		p.Name, p.Personality)
	if s := p.Strategy; s != nil {
		fmt.Fprintf(&b, " Weigh your choices as: opportunistic %d, aggressive %d, diplomatic %d, defensive %d.",
			s.Opportunistic, s.Aggressive, s.Diplomatic, s.Defensive)
	}
	return b.String()
}

// StateDescription renders the acting player's view of the room as the
// provider's user prompt: turn, identity, holdings, relationships,
// actionable neighbors, recent memory, and the full ownership dump.
func (r *Room) StateDescription(playerID string) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.playerLocked(playerID)
	if p == nil {
		return ""
	}

	neutral, enemy := r.scanNeighborsLocked(p)

	var b strings.Builder
	fmt.Fprintf(&b, "Current Turn: %d\n", r.turn)
	fmt.Fprintf(&b, "Your Faction: %s\n", p.Name)
	fmt.Fprintf(&b, "Personality: %s\n", p.Personality)
	fmt.Fprintf(&b, "Controlled Territories: %d\n", p.Territories)
	fmt.Fprintf(&b, "Allies: %s\n", nameListLocked(r, p.Allies))
	fmt.Fprintf(&b, "Enemies: %s\n", nameListLocked(r, p.Enemies))
	fmt.Fprintf(&b, "Adjacent Neutral Positions: %s\n", joinOrNone(neutral))
	fmt.Fprintf(&b, "Adjacent Enemy Positions: %s\n", joinOrNone(enemy))
	b.WriteString("Recent Actions:\n")
	recent := p.RecentMemory(3)
	if len(recent) == 0 {
		b.WriteString("- No recent actions.\n")
	} else {
		for _, m := range recent {
			fmt.Fprintf(&b, "- %s\n", m)
		}
	}
	fmt.Fprintf(&b, "\nCurrent Grid State:\n%s\n\n", r.mapDumpLocked())
	b.WriteString(strategicGuidelines)
	return b.String()
}

// scanNeighborsLocked collects the coordinates of neutral and attackable
// enemy hexes bordering the player's territory. Allies' hexes are not
// reported as enemy positions.
func (r *Room) scanNeighborsLocked(p *Player) (neutral, enemy []string) {
	seenNeutral := make(map[string]bool)
	seenEnemy := make(map[string]bool)
	for _, owned := range r.grid.OwnedBy(p.ID) {
		for _, n := range r.grid.Neighbors(owned.Coord()) {
			hex := r.grid.At(n)
			if hex == nil {
				continue
			}
			key := fmt.Sprintf("(%d, %d)", n.Q, n.R)
			switch {
			case hex.Owner == "":
				if !seenNeutral[key] {
					seenNeutral[key] = true
					neutral = append(neutral, key)
				}
			case hex.Owner != p.ID && !p.IsAlly(hex.Owner):
				if !seenEnemy[key] {
					seenEnemy[key] = true
					enemy = append(enemy, key)
				}
			}
		}
	}
	return neutral, enemy
}

// nameListLocked maps player ids to display names for prompt text.
func nameListLocked(r *Room, ids []string) string {
	if len(ids) == 0 {
		return "None"
	}
	names := make([]string, 0, len(ids))
	for _, id := range ids {
		if p := r.playerLocked(id); p != nil {
			names = append(names, p.Name)
		}
	}
	if len(names) == 0 {
		return "None"
	}
	return strings.Join(names, ", ")
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "None"
	}
	return strings.Join(items, ", ")
}
