// Command estimate is the standalone feature-count estimator (spec.md
// 4.9): given phase statistics and a target volume, it runs only the
// generator (no placement) and reports the feature count a UI could show
// before committing to a full pipeline run.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/volume"
)

var (
	statsPath   = flag.String("stats", "", "Path to a phase-statistics YAML file (empty = embedded defaults)")
	phaseIndex  = flag.Int("phase", 1, "Phase index to estimate")
	nx          = flag.Int("nx", 64, "Output grid NX")
	ny          = flag.Int("ny", 64, "Output grid NY")
	nz          = flag.Int("nz", 64, "Output grid NZ")
	spacing     = flag.Float64("spacing", 0.25, "Output grid spacing (uniform per axis)")
	seed        = flag.Int64("seed", 1, "PRNG seed")
)

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "estimate:", err)
		os.Exit(1)
	}
}

func run() error {
	source, err := phase.LoadYAML(*statsPath)
	if err != nil {
		return err
	}

	p, err := source.Phase(*phaseIndex)
	if err != nil {
		return err
	}
	ps, err := source.Stats(*phaseIndex)
	if err != nil {
		return err
	}

	totalVolume := float64(*nx) * float64(*ny) * float64(*nz) * (*spacing) * (*spacing) * (*spacing)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	count, err := volume.EstimateFeatureCount(ctx, p, ps, totalVolume, *seed)
	if err != nil {
		return err
	}

	fmt.Printf("estimated feature count for phase %d: %d\n", *phaseIndex, count)
	return nil
}
