// Package viz provides terminal-based progress views for analysis runs.
//
// The package implements a live monitor using the Bubble Tea framework:
//
//   - [Monitor]: follows a pipeline event stream case by case
//   - [Curve]: ASCII plot of an equilibrium path with its peak marked
//   - [Sparkline]: compact load-history strip for the live table
//
// # Key Bindings
//
//	Q / Ctrl+C - Quit (the analysis keeps running headless)
//	W          - Toggle the warnings panel
//
// The monitor is read-only: it renders what the pipeline publishes and
// never steers the run.
package viz
