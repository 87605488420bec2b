package engine

import (
	"fmt"
	"strings"

	"github.com/wricardo/yinsh/game/hex"
)

// Board glyphs used by Render
const (
	glyphEmpty       = '.'
	glyphWhiteRing   = 'W'
	glyphBlackRing   = 'B'
	glyphWhiteMarker = 'w'
	glyphBlackMarker = 'b'
)

// Render draws the board as text, one line per r coordinate from -Radius to
// Radius, followed by whose turn it is. Rings are upper case, markers lower
// case, empty cells are dots.
func (s *GameState) Render() string {
	occupant := make(map[hex.Position]rune)
	for _, p := range s.Pieces {
		if p.State == Active && p.Position != nil {
			occupant[*p.Position] = glyph(p)
		}
	}

	var b strings.Builder
	for r := -hex.Radius; r <= hex.Radius; r++ {
		var row strings.Builder
		fmt.Fprintf(&row, "%3d  %s", r, strings.Repeat(" ", absInt(r)))
		for q := -hex.Radius; q <= hex.Radius; q++ {
			p := hex.New(q, r, -q-r)
			if absInt(p.S) > hex.Radius {
				continue
			}
			ch := ' '
			if hex.IsInBounds(p) {
				ch = glyphEmpty
				if o, ok := occupant[p]; ok {
					ch = o
				}
			}
			row.WriteRune(ch)
			row.WriteByte(' ')
		}
		b.WriteString(strings.TrimRight(row.String(), " "))
		b.WriteByte('\n')
	}
	fmt.Fprintf(&b, "%s to move (%s)\n", s.CurrentPlayer, s.Phase)
	return b.String()
}

func glyph(p Piece) rune {
	switch {
	case p.Kind == Ring && p.Color == White:
		return glyphWhiteRing
	case p.Kind == Ring:
		return glyphBlackRing
	case p.Color == White:
		return glyphWhiteMarker
	default:
		return glyphBlackMarker
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
