// Command validate checks the setup JSON files in the ../setups directory
// (or the directory given as the first argument). It checks:
//   - JSON structure and required fields
//   - Piece counts, positions and overlaps against the board model
//   - Phase consistency: ring placement progress matches the phase and the
//     player to move
//   - That a game started from the setup can make at least one move
package main

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/wricardo/yinsh/game/engine"
	"github.com/wricardo/yinsh/game/setup"
)

// ValidationResult captures the outcome of validating a single file.
// If Valid is true, Errors contains informational messages; otherwise it
// accumulates the validation errors that were found.
type ValidationResult struct {
	File   string
	Valid  bool
	Errors []string
}

func (r *ValidationResult) fail(format string, args ...interface{}) {
	r.Valid = false
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

// validateSetup loads and validates a single setup file.
func validateSetup(filePath string) ValidationResult {
	result := ValidationResult{
		File:   filepath.Base(filePath),
		Valid:  true,
		Errors: []string{},
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		result.fail("Failed to read file: %v", err)
		return result
	}

	var s setup.Setup
	if err := json.Unmarshal(data, &s); err != nil {
		result.fail("Invalid JSON: %v", err)
		return result
	}

	if err := setup.Validate(&s); err != nil {
		result.fail("%v", err)
		return result
	}

	phase := validatePhase(s.State)
	if !phase.Valid {
		result.Valid = false
	}
	result.Errors = append(result.Errors, phase.Errors...)

	if result.Valid {
		sum := s.State.Summarize()
		result.Errors = append(result.Errors,
			fmt.Sprintf("✓ Name: %s", s.Name),
			fmt.Sprintf("✓ Phase: %s, %s to move", sum.Phase, sum.CurrentPlayer),
			fmt.Sprintf("✓ Rings: WHITE %d, BLACK %d on the board", sum.RingsPlaced[engine.White], sum.RingsPlaced[engine.Black]),
			fmt.Sprintf("✓ Markers: %d on the board, %d in the pool",
				sum.MarkersPlaced[engine.White]+sum.MarkersPlaced[engine.Black], sum.MarkersInPool),
		)
	}

	return result
}

// validatePhase checks that the piece layout is reachable by play for the
// declared phase and player to move. setup.Validate already rejects an
// inconsistent setup; this reports every problem at once for a state built
// by hand.
func validatePhase(state *engine.GameState) ValidationResult {
	result := ValidationResult{
		Valid:  true,
		Errors: []string{},
	}

	for _, problem := range setup.PhaseProblems(state) {
		result.fail("%s", problem)
	}

	if result.Valid {
		sum := state.Summarize()
		placed := sum.RingsPlaced[engine.White] + sum.RingsPlaced[engine.Black]
		result.Errors = append(result.Errors, fmt.Sprintf("✓ Phase consistency: %s with %d rings placed", state.Phase, placed))
	}
	return result
}

// main scans the setup directory for *.json files and validates each one,
// printing a concise report and exiting with non-zero status if any are
// invalid.
func main() {
	setupDir := "../setups"
	if len(os.Args) > 1 {
		setupDir = os.Args[1]
	}

	files, err := filepath.Glob(filepath.Join(setupDir, "*.json"))
	if err != nil {
		fmt.Printf("Error finding setup files: %v\n", err)
		os.Exit(1)
	}
	if len(files) == 0 {
		fmt.Printf("No setup files found in %s\n", setupDir)
		return
	}

	allValid := true
	for _, file := range files {
		result := validateSetup(file)

		fmt.Printf("\n%s %s\n", strings.Repeat("=", 20), result.File)

		if result.Valid {
			fmt.Println("✅ VALID")
			for _, info := range result.Errors {
				fmt.Println("  " + info)
			}
		} else {
			fmt.Println("❌ INVALID")
			allValid = false
			for _, err := range result.Errors {
				if !strings.HasPrefix(err, "✓") {
					fmt.Println("  ❌ " + err)
				}
			}
		}
	}

	fmt.Printf("\n%s\n", strings.Repeat("=", 40))
	if allValid {
		fmt.Println("✅ All setups are valid!")
	} else {
		fmt.Println("❌ Some setups have errors")
		os.Exit(1)
	}
}
