// Package hex defines the cube-coordinate geometry of the Yinsh board.
//
// A cell is addressed by three integers (q, r, s) with q+r+s == 0. The board
// is the hexagon of radius 5 around the origin with its six corner cells
// removed, which leaves 85 playable intersections.
package hex

import (
	"fmt"
	"sort"
)

// Radius is the largest absolute value any coordinate of an in-bounds cell may take.
const Radius = 5

// Position is a cube coordinate. Positions are compared by value.
type Position struct {
	Q int `json:"q"`
	R int `json:"r"`
	S int `json:"s"`
}

// New builds a position from its three components without validating them.
func New(q, r, s int) Position {
	return Position{Q: q, R: r, S: s}
}

// Origin is the centre cell.
var Origin = Position{}

// Valid reports whether the position satisfies the cube invariant q+r+s == 0.
func (p Position) Valid() bool {
	return p.Q+p.R+p.S == 0
}

// Sorted returns the three components in ascending order.
func (p Position) Sorted() [3]int {
	c := []int{p.Q, p.R, p.S}
	sort.Ints(c)
	return [3]int{c[0], c[1], c[2]}
}

func (p Position) String() string {
	return fmt.Sprintf("(%d,%d,%d)", p.Q, p.R, p.S)
}

// corner is the sorted component triple shared by the six removed corner cells.
var corner = [3]int{-Radius, 0, Radius}

// IsInBounds reports whether p is a playable cell: a valid cube coordinate
// whose components all lie within Radius and which is not one of the six
// corners of the hexagon.
func IsInBounds(p Position) bool {
	if !p.Valid() {
		return false
	}
	if abs(p.Q) > Radius || abs(p.R) > Radius || abs(p.S) > Radius {
		return false
	}
	return p.Sorted() != corner
}

// Cells returns every in-bounds position ordered by q, then r.
func Cells() []Position {
	cells := make([]Position, 0, 85)
	for q := -Radius; q <= Radius; q++ {
		for r := -Radius; r <= Radius; r++ {
			p := New(q, r, -q-r)
			if IsInBounds(p) {
				cells = append(cells, p)
			}
		}
	}
	return cells
}

// Directions are the six unit steps between neighbouring cells. They come in
// opposite pairs, so the three axes are Directions[0:2], [2:4] and [4:6].
var Directions = [6]Position{
	{1, -1, 0}, {-1, 1, 0},
	{1, 0, -1}, {-1, 0, 1},
	{0, 1, -1}, {0, -1, 1},
}

// Add returns p moved by d.
func (p Position) Add(d Position) Position {
	return Position{Q: p.Q + d.Q, R: p.R + d.R, S: p.S + d.S}
}

// Distance is the number of single steps between two valid positions.
func Distance(a, b Position) int {
	return max(abs(a.Q-b.Q), abs(a.R-b.R), abs(a.S-b.S))
}

// Ray lists the in-bounds cells met walking from p in direction d, stopping
// at the edge of the board. p itself is not included.
func Ray(p, d Position) []Position {
	var cells []Position
	for cur := p.Add(d); IsInBounds(cur); cur = cur.Add(d) {
		cells = append(cells, cur)
	}
	return cells
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
