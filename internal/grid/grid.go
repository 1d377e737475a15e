// Package grid provides the bounded axial hex grid the game is played on.
package grid

import "math/rand"

// Coord is an axial hex coordinate. The third cube coordinate is implied:
// s = -q - r.
type Coord struct {
	Q int `json:"q"`
	R int `json:"r"`
}

// Hex is a single cell of the grid. Shape and resources are fixed at
// generation; only Owner changes over a room's lifetime.
type Hex struct {
	Q         int    `json:"q"`
	R         int    `json:"r"`
	Owner     string `json:"owner,omitempty"`
	Resources int    `json:"resources"`
}

// Coord returns the hex's coordinate.
func (h *Hex) Coord() Coord {
	return Coord{Q: h.Q, R: h.R}
}

// neighborDirections lists the six axial neighbor offsets.
var neighborDirections = [6]Coord{
	{Q: 1, R: 0},
	{Q: 1, R: -1},
	{Q: 0, R: -1},
	{Q: -1, R: 0},
	{Q: -1, R: 1},
	{Q: 0, R: 1},
}

// maxResources bounds the random per-hex resource value (inclusive range
// [0, maxResources-1]).
const maxResources = 3

// Grid is a hexagonal region of hexes, radius rings around the origin.
type Grid struct {
	Radius int
	Hexes  []*Hex

	byCoord map[Coord]*Hex
}

// Generate builds a hexagonal region of the given radius: every (q, r) with
// |q|, |r| and |q+r| all at most radius. Each hex receives a random resource
// value drawn from rng, which should be seeded per room.
func Generate(radius int, rng *rand.Rand) *Grid {
	g := &Grid{
		Radius:  radius,
		byCoord: make(map[Coord]*Hex),
	}
	for q := -radius; q <= radius; q++ {
		for r := -radius; r <= radius; r++ {
			if abs(q+r) > radius {
				continue
			}
			h := &Hex{Q: q, R: r, Resources: rng.Intn(maxResources)}
			g.Hexes = append(g.Hexes, h)
			g.byCoord[Coord{Q: q, R: r}] = h
		}
	}
	return g
}

// At returns the hex at the given coordinate, or nil if it is outside the
// grid.
func (g *Grid) At(c Coord) *Hex {
	return g.byCoord[c]
}

// Size returns the total number of hexes.
func (g *Grid) Size() int {
	return len(g.Hexes)
}

// Neighbors returns the coordinates of the up-to-six axial neighbors of c
// that lie inside the grid. The bound is the grid's own radius, so neighbor
// filtering always matches the generated shape.
func (g *Grid) Neighbors(c Coord) []Coord {
	out := make([]Coord, 0, 6)
	for _, d := range neighborDirections {
		n := Coord{Q: c.Q + d.Q, R: c.R + d.R}
		if abs(n.Q) <= g.Radius && abs(n.R) <= g.Radius && abs(n.Q+n.R) <= g.Radius {
			out = append(out, n)
		}
	}
	return out
}

// OwnedBy returns, in grid order, every hex owned by the given player.
func (g *Grid) OwnedBy(playerID string) []*Hex {
	var out []*Hex
	for _, h := range g.Hexes {
		if h.Owner == playerID {
			out = append(out, h)
		}
	}
	return out
}

// IsAdjacent reports whether target is adjacent to any of the given hexes.
// This is deliberately a bounding-box check on axial coordinates
// (|dq| <= 1 and |dr| <= 1), not true hex adjacency: it also accepts the
// two diagonal cells at cube distance 2. The rule governs which expand and
// attack targets are accepted, so it is kept as observed behavior.
func IsAdjacent(owned []*Hex, target Coord) bool {
	for _, h := range owned {
		if abs(h.Q-target.Q) <= 1 && abs(h.R-target.R) <= 1 {
			return true
		}
	}
	return false
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
