package engine

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/wricardo/yinsh/game/hex"
)

func TestRender_EmptyBoard(t *testing.T) {
	out := NewInitialState().Render()

	lines := strings.Split(strings.TrimSuffix(out, "\n"), "\n")
	require.Len(t, lines, 2*hex.Radius+2)
	require.Equal(t, 85, strings.Count(out, string(glyphEmpty)))
	require.Contains(t, lines[len(lines)-1], "WHITE to move")
	require.Contains(t, lines[len(lines)-1], "INITIAL_RING_PLACEMENT")
}

func TestRender_Pieces(t *testing.T) {
	s := placeAllRings(t)
	s = Apply(NewPlaceMarker(White, ringSpots[0], hex.New(-2, 2, 0)), s)

	out := s.Render()
	require.Contains(t, out, "BLACK to move")

	board := boardLines(out)
	require.Equal(t, RingsPerColor, strings.Count(board, string(glyphWhiteRing)))
	require.Equal(t, RingsPerColor, strings.Count(board, string(glyphBlackRing)))
	require.Equal(t, 1, strings.Count(board, string(glyphWhiteMarker)))
	require.Equal(t, 85-11, strings.Count(board, string(glyphEmpty)))
}

// boardLines drops the trailing status line
func boardLines(out string) string {
	out = strings.TrimSuffix(out, "\n")
	return out[:strings.LastIndex(out, "\n")]
}
