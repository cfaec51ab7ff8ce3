// Command microforge drives a single packing-pipeline run from the
// command line: load a run config and phase statistics, execute the
// pipeline, and report a summary. Grounded on the teacher's flag-based
// main.go entry point.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/pthm-cable/microforge/internal/telemetry"

	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/pipeline"
)

var (
	configPath  = flag.String("config", "", "Path to a RunConfig YAML file (empty = embedded defaults)")
	statsPath   = flag.String("stats", "", "Path to a phase-statistics YAML file (empty = embedded defaults)")
	verbose     = flag.Bool("verbose", false, "Enable debug-level structured logging")
	reportGoals = flag.Bool("report-goals", false, "Print final goal-error triple to stdout")
)

func main() {
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	logger := telemetry.New(slog.New(handler), "")

	if err := run(logger); err != nil {
		fmt.Fprintln(os.Stderr, "microforge:", err)
		os.Exit(1)
	}
}

func run(logger *telemetry.Logger) error {
	cfg, err := pipeline.LoadRunConfig(*configPath)
	if err != nil {
		return err
	}

	statsSource, err := phase.LoadYAML(*statsPath)
	if err != nil {
		return err
	}

	result, err := pipeline.Run(context.Background(), cfg, statsSource, nil, logger, nil)
	if err != nil {
		return err
	}

	fmt.Printf("run %s: %d features, %d/%d voxels assigned, filling error %.4f\n",
		result.Summary.RunID, result.Summary.FeatureCount,
		result.Summary.AssignedVoxels, result.Summary.AssignedVoxels+result.Summary.BackgroundVoxel,
		result.Summary.FillingError)

	if *reportGoals {
		fmt.Printf("size error %.4f, neighbor error %.4f\n", result.Summary.SizeError, result.Summary.NeighborError)
	}
	return nil
}
