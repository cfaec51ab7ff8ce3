// Package pipeline wires the generator, placement optimiser, rasteriser,
// gap filler, and island cleanup into a single run (spec.md 2 data flow).
// Grounded on the teacher's main.go / game.Game orchestration (main.go,
// game/game.go), which wires config, entity systems, and the render loop
// the same way: one top-level struct holding every subsystem, driven by a
// single Run-style entry point.
package pipeline

import "errors"

// The error taxonomy of spec.md 7, as a closed set of exported sentinels.
// Errors that Run detects itself (configuration and mask checks, phase
// lookups, feature-file and volume setup) wrap one of these via
// fmt.Errorf("...: %w", ...), so callers can distinguish them with
// errors.Is. Errors from the optimiser, rasteriser, gap filler, island
// cleanup and CSV writer are returned as those packages produce them and
// do not wrap these sentinels; ErrInvalidShapeClass, ErrCancelled and
// ErrInternalInvariant are not returned by Run.
var (
	// ErrInvalidInput reports incoherent statistics: zero-sum phase
	// fractions, a degenerate distribution parameter not recoverable by
	// nearest-bin walk, or missing stats for a referenced phase.
	ErrInvalidInput = errors.New("pipeline: invalid input")

	// ErrInvalidShapeClass reports a shape tag outside the enumerated set.
	ErrInvalidShapeClass = errors.New("pipeline: invalid shape class")

	// ErrGeometryMismatch reports non-positive grid dimensions/spacing, or
	// a mask array sized differently from the voxel count.
	ErrGeometryMismatch = errors.New("pipeline: geometry mismatch")

	// ErrIOFailure reports a missing/unparseable feature file or a CSV
	// target path that cannot be created or opened.
	ErrIOFailure = errors.New("pipeline: io failure")

	// ErrCancelled reports cancellation observed between suspension
	// points; output arrays hold a valid but incomplete state.
	ErrCancelled = errors.New("pipeline: cancelled")

	// ErrInternalInvariant reports a design-guaranteed check that failed
	// (a bug). Treated as fatal, reported with context.
	ErrInternalInvariant = errors.New("pipeline: internal invariant violated")
)
