// Package setup manages named starting positions for Yinsh games.
//
// A setup is a JSON document with a name, a description and a full game
// state:
//
//	{
//	  "name": "Rings placed",
//	  "description": "...",
//	  "state": {"pieces": [...], "current_player": "WHITE", "phase": "MARKER_PLACEMENT"}
//	}
//
// Setups live in a directory, one file per setup; the file name without the
// .json extension is the setup ID passed to session creation. The "default"
// setup is the standard empty board and exists even without a file.
//
// Every state is checked with engine.FromSnapshot and PhaseProblems on load
// and on save, so a setup can never seed a session with two pieces on one
// cell, a wrong piece count, or a phase in which nobody can move.
//
// Usage:
//
//	manager, err := setup.NewManager("setups")
//	s, err := manager.LoadSetup("rings-placed")
//	sess, err := sessions.Create("", "rings-placed", s.State)
package setup
