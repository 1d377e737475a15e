package game

import "github.com/hexhavoc/hexhavoc-server/internal/grid"

// Strategy is the four-way behavioral weighting a player configures for
// their faction. The weights only bias the decision-provider prompt; they
// are not validated to sum to anything.
type Strategy struct {
	Opportunistic int `json:"opportunistic"`
	Aggressive    int `json:"aggressive"`
	Diplomatic    int `json:"diplomatic"`
	Defensive     int `json:"defensive"`
}

// AlliancePolicy is a player's standing terms for forming alliances.
type AlliancePolicy struct {
	GiveMax int  `json:"giveMax"`
	GetMin  int  `json:"getMin"`
	Enabled bool `json:"enabled"`
}

// memoryLimit caps how many recent outcomes a player retains.
const memoryLimit = 20

// Player is a faction participating in a room. Territory and resource
// counters mirror grid ownership; the room keeps them in sync as hexes
// change hands.
type Player struct {
	ID          string
	Name        string
	Personality string
	Wallet      string
	Strategy    *Strategy
	Alliance    *AlliancePolicy

	Territories int
	Resources   int
	Allies      []string
	Enemies     []string

	// corner is the start position claimed on join, retracted when the
	// player leaves during the lobby.
	corner *grid.Coord

	memory []string
}

// NewPlayer builds a player with empty relationship sets and no territory.
func NewPlayer(id, name, personality string) *Player {
	return &Player{
		ID:          id,
		Name:        name,
		Personality: personality,
		Allies:      []string{},
		Enemies:     []string{},
		memory:      []string{},
	}
}

// Remember appends an entry to the player's decision memory.
func (p *Player) Remember(entry string) {
	p.memory = append(p.memory, entry)
	if len(p.memory) > memoryLimit {
		p.memory = p.memory[len(p.memory)-memoryLimit:]
	}
}

// RecentMemory returns up to the last n memory entries, oldest first.
func (p *Player) RecentMemory(n int) []string {
	if len(p.memory) <= n {
		return append([]string(nil), p.memory...)
	}
	return append([]string(nil), p.memory[len(p.memory)-n:]...)
}

// IsAlly reports whether the given player id is in the ally set.
func (p *Player) IsAlly(id string) bool {
	return contains(p.Allies, id)
}

// IsEnemy reports whether the given player id is in the enemy set.
func (p *Player) IsEnemy(id string) bool {
	return contains(p.Enemies, id)
}

func (p *Player) addAlly(id string) {
	if !contains(p.Allies, id) {
		p.Allies = append(p.Allies, id)
	}
}

func (p *Player) addEnemy(id string) {
	if !contains(p.Enemies, id) {
		p.Enemies = append(p.Enemies, id)
	}
}

func (p *Player) removeAlly(id string) {
	p.Allies = remove(p.Allies, id)
}

func (p *Player) removeEnemy(id string) {
	p.Enemies = remove(p.Enemies, id)
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}

func remove(list []string, v string) []string {
	for i, item := range list {
		if item == v {
			return append(list[:i], list[i+1:]...)
		}
	}
	return list
}
