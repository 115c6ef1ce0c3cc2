// Package viz provides terminal visualization for crowd simulations.
//
// The package implements a live TUI using the Bubble Tea framework:
//
//   - [Model]: steps a scene every tick and draws it
//   - [Canvas]: Braille-based pixel canvas for high-fidelity rendering
//   - Theme selection with 5 built-in color schemes
//
// # Key Bindings
//
//	Space - Pause/Resume simulation
//	R     - Reset to initial state
//	+/-   - Double/halve steps per frame
//	T     - Cycle color themes
//	?     - Show help overlay
//	[]    - Time travel (rewind/forward)
package viz
