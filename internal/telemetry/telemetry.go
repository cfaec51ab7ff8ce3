// Package telemetry provides the pipeline's structured logging and a
// small per-run statistics summary. Grounded on the teacher's use of
// log/slog throughout telemetry/ (perf.go, stats.go, halloffame.go): one
// *slog.Logger threaded explicitly, never a package-level global, in
// keeping with the PRNG non-singleton rule this spec generalises to every
// other piece of run state.
package telemetry

import (
	"log/slog"
	"time"
)

// RunID tags every log line and the run summary of a single pipeline
// invocation, so the logs of concurrent runs can be told apart (supplements spec.md 5's single-logical-task
// model with a batch-queue-friendly identifier).
type RunID string

// Logger wraps a *slog.Logger with the run's id pre-bound, passed
// explicitly through the pipeline rather than held globally.
type Logger struct {
	base  *slog.Logger
	runID RunID
}

// New builds a Logger for one run, binding the run id as a constant
// attribute on every subsequent log line.
func New(base *slog.Logger, runID RunID) *Logger {
	if base == nil {
		base = slog.Default()
	}
	return &Logger{base: base.With("run_id", string(runID)), runID: runID}
}

// RunID returns the bound run id.
func (l *Logger) RunID() RunID { return l.runID }

// Raw exposes the underlying *slog.Logger for one-off structured log
// lines that don't fit PhaseStart/PhaseEnd/Invariant.
func (l *Logger) Raw() *slog.Logger { return l.base }

// PhaseStart logs a Debug-level start event for a pipeline phase (spec.md
// 5: generation, initial placement, optimisation, rasterisation,
// gap-fill, cleanup).
func (l *Logger) PhaseStart(phase string, attrs ...any) {
	l.base.Debug(phase+"_start", attrs...)
}

// PhaseEnd logs a Debug-level end event with the elapsed duration.
func (l *Logger) PhaseEnd(phase string, start time.Time, attrs ...any) {
	args := append([]any{"elapsed_ms", time.Since(start).Milliseconds()}, attrs...)
	l.base.Debug(phase+"_end", args...)
}

// Invariant logs an InternalInvariant failure at Error level with full
// context before the caller wraps and returns it (spec.md 7).
func (l *Logger) Invariant(msg string, attrs ...any) {
	l.base.Error(msg, attrs...)
}

// Summary is the per-run statistics snapshot surfaced after a successful
// pipeline run (spec.md 8's testable properties observed at the boundary).
type Summary struct {
	RunID           RunID         `json:"run_id"`
	FeatureCount    int           `json:"feature_count"`
	AssignedVoxels  int           `json:"assigned_voxels"`
	BackgroundVoxel int           `json:"background_voxels"`
	FillingError    float64       `json:"filling_error"`
	SizeError       float64       `json:"size_error"`
	NeighborError   float64       `json:"neighbor_error"`
	Elapsed         time.Duration `json:"elapsed"`
}

// LogValue implements slog.LogValuer so a Summary can be logged directly
// as a structured group, matching the teacher's PerfStats.LogValue
// (telemetry/perf.go).
func (s Summary) LogValue() slog.Value {
	return slog.GroupValue(
		slog.String("run_id", string(s.RunID)),
		slog.Int("feature_count", s.FeatureCount),
		slog.Int("assigned_voxels", s.AssignedVoxels),
		slog.Int("background_voxels", s.BackgroundVoxel),
		slog.Float64("filling_error", s.FillingError),
		slog.Float64("size_error", s.SizeError),
		slog.Float64("neighbor_error", s.NeighborError),
		slog.Int64("elapsed_ms", s.Elapsed.Milliseconds()),
	)
}
