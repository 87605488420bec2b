// Command analyze prints quick, human-readable heuristics about the setup
// files in the project's setups directory. It summarizes the phase and piece
// counts, how central each color's rings sit, and how many cells each ring
// commands along the three board axes. Rings on the rim are flagged since
// they control the fewest lines.
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/hex"
	"github.com/wricardo/yinsh/game/setup"
)

// RingReport describes a single ring on the board
type RingReport struct {
	Color    engine.Color
	Position hex.Position
	Distance int // steps from the centre
	Reach    int // empty cells reachable in a straight line before a piece or the edge
}

// Analysis is the heuristics computed for one setup
type Analysis struct {
	Name          string
	Summary       engine.Summary
	Rings         []RingReport
	AvgDistance   map[engine.Color]float64
	TotalReach    map[engine.Color]int
	RimRings      []RingReport
	EmptyCells    int
	PlayableCells int
}

func main() {
	setupDir := "setups"
	if len(os.Args) > 1 {
		setupDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(setupDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding setups: %v\n", err)
		os.Exit(1)
	}

	for _, file := range files {
		fmt.Printf("\n=== Analyzing %s ===\n", filepath.Base(file))
		a, err := analyzeFile(file)
		if err != nil {
			fmt.Printf("Error: %v\n", err)
			continue
		}
		printAnalysis(a)
	}
}

func analyzeFile(path string) (*Analysis, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading file: %w", err)
	}

	var s setup.Setup
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parsing JSON: %w", err)
	}
	if err := setup.Validate(&s); err != nil {
		return nil, err
	}
	return analyze(s.Name, s.State), nil
}

func analyze(name string, state *engine.GameState) *Analysis {
	a := &Analysis{
		Name:          name,
		Summary:       state.Summarize(),
		AvgDistance:   map[engine.Color]float64{},
		TotalReach:    map[engine.Color]int{},
		PlayableCells: len(hex.Cells()),
	}
	a.EmptyCells = a.PlayableCells - a.Summary.OccupiedCells

	distances := map[engine.Color]int{}
	for _, p := range state.FilterPieces(engine.Any[engine.Color](), engine.Is(engine.Ring), engine.Is(engine.Active)) {
		r := RingReport{
			Color:    p.Color,
			Position: *p.Position,
			Distance: distance(*p.Position),
			Reach:    reach(state, *p.Position),
		}
		a.Rings = append(a.Rings, r)
		distances[p.Color] += r.Distance
		a.TotalReach[p.Color] += r.Reach
		if r.Distance == hex.Radius {
			a.RimRings = append(a.RimRings, r)
		}
	}

	for color, total := range distances {
		if n := a.Summary.RingsPlaced[color]; n > 0 {
			a.AvgDistance[color] = float64(total) / float64(n)
		}
	}

	sort.Slice(a.Rings, func(i, j int) bool {
		if a.Rings[i].Color != a.Rings[j].Color {
			return a.Rings[i].Color < a.Rings[j].Color
		}
		return a.Rings[i].Reach > a.Rings[j].Reach
	})
	return a
}

// reach counts the empty cells a ring at pos sees along the six directions
func reach(state *engine.GameState, pos hex.Position) int {
	n := 0
	for _, d := range hex.Directions {
		for _, cell := range hex.Ray(pos, d) {
			if state.GetPieceAt(cell) != nil {
				break
			}
			n++
		}
	}
	return n
}

func distance(p hex.Position) int {
	return hex.Distance(hex.Origin, p)
}

func printAnalysis(a *Analysis) {
	sum := a.Summary
	fmt.Printf("Name: %s\n", a.Name)
	fmt.Printf("Phase: %s, %s to move\n", sum.Phase, sum.CurrentPlayer)
	fmt.Printf("Board: %d of %d cells empty\n", a.EmptyCells, a.PlayableCells)
	fmt.Printf("Markers: WHITE %d, BLACK %d, pool %d\n",
		sum.MarkersPlaced[engine.White], sum.MarkersPlaced[engine.Black], sum.MarkersInPool)

	for _, c := range []engine.Color{engine.White, engine.Black} {
		if sum.RingsPlaced[c] == 0 {
			fmt.Printf("%s: no rings on the board (%d in pool)\n", c, sum.RingsInPool[c])
			continue
		}
		fmt.Printf("%s: %d rings, avg distance from centre %.1f, total reach %d\n",
			c, sum.RingsPlaced[c], a.AvgDistance[c], a.TotalReach[c])
	}

	for _, r := range a.Rings {
		fmt.Printf("   %s ring at %s: distance %d, reach %d\n", r.Color, r.Position, r.Distance, r.Reach)
	}

	if len(a.RimRings) > 0 {
		fmt.Printf("⚠️  WARNING: %d rings sit on the rim\n", len(a.RimRings))
		for _, r := range a.RimRings {
			fmt.Printf("   Rim: %s ring at %s\n", r.Color, r.Position)
		}
	} else if len(a.Rings) > 0 {
		fmt.Printf("✅ No rings on the rim\n")
	}

	if sum.Phase == engine.MarkerPlacement && sum.MarkersInPool == 0 {
		fmt.Printf("⚠️  CRITICAL: marker pool is empty, no move is possible\n")
	}
}
