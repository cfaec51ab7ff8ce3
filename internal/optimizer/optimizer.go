// Package optimizer implements the placement optimiser (spec.md 4.4): it
// maintains the set of placed features, their voxel footprints in the
// packing grid, and running errors against the size, neighbourhood, and
// filling goal distributions, performing jump and nudge moves with
// accept/reject by filling-error change.
package optimizer

import (
	"context"
	"fmt"
	"math"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/generator"
	"github.com/pthm-cable/microforge/internal/packing"
	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/rng"
)

// ErrCancelled mirrors spec.md 7's Cancelled category: the caller requested
// cancellation between suspension points.
var ErrCancelled = fmt.Errorf("optimizer: cancelled")

// Progress is an optional callback invoked between suspension points
// (spec.md 5): generation per accepted feature, placement per feature,
// optimisation per-iteration.
type Progress func(phaseName string, done, total int)

// Optimizer places and refines a set of features against one run's goal
// distributions.
type Optimizer struct {
	Grid     *packing.Grid
	Periodic bool
	WorldX   float64
	WorldY   float64
	WorldZ   float64

	TotalVolume float64

	Features []*feature.Feature

	rngCtx   *rng.Context
	trackers map[int32]*SizeHistogramTracker
	stats    map[int32]phase.PhaseStats
	placed   int // index into Features already handled by InitialPlacement

	OnProgress Progress
}

// New builds an Optimizer over an already-sized packing grid.
func New(grid *packing.Grid, periodic bool, worldX, worldY, worldZ, totalVolume float64, seed int64) *Optimizer {
	return &Optimizer{
		Grid:        grid,
		Periodic:    periodic,
		WorldX:      worldX,
		WorldY:      worldY,
		WorldZ:      worldZ,
		TotalVolume: totalVolume,
		rngCtx:      rng.New(seed),
		trackers:    make(map[int32]*SizeHistogramTracker),
		stats:       make(map[int32]phase.PhaseStats),
	}
}

// GenerateForPhase runs spec.md 4.4's generation phase for a single phase:
// repeatedly samples candidates, accepting by size-distribution-error
// acceptance rule, until the phase's target volume is reached.
func (o *Optimizer) GenerateForPhase(ctx context.Context, p phase.Phase, stats phase.PhaseStats) error {
	o.stats[int32(p.Index)] = stats
	tracker := NewSizeHistogramTracker(stats.Size)
	o.trackers[int32(p.Index)] = tracker

	gen := generator.New(p, stats)
	target := p.Fraction * o.TotalVolume
	if !o.Periodic {
		meanP := float64(o.Grid.PX+o.Grid.PY+o.Grid.PZ) / 3
		factor := 0.25 * (1 - math.Pow(meanP-2, 3)/math.Pow(meanP, 3))
		target *= 1 + factor
	}

	var placedVol float64
	iter := 0
	for placedVol < target {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		iter++

		fctx := o.rngCtx.ForFeature()
		cand, err := gen.Generate(fctx)
		if err != nil {
			return err
		}

		errWith := tracker.ErrorWith(cand.EquivDiameter)
		curErr := tracker.Error()
		threshold := 1 - 0.001*float64(iter)

		accept := errWith <= curErr || errWith < threshold || placedVol < 0.75*target
		if !accept {
			continue
		}

		cand.ID = int32(len(o.Features) + 1)
		f := cand
		o.Features = append(o.Features, &f)
		tracker.Commit(f.EquivDiameter)
		placedVol += f.Volume
		iter = 0

		if o.OnProgress != nil {
			o.OnProgress("generate", len(o.Features), -1)
		}
	}
	return nil
}

// InitialPlacement implements spec.md 4.4's initial placement: for every
// generated feature not yet placed, in order, build its footprint once at
// the reference cell, choose a random packing cell, preferring
// non-excluded ones, translate the footprint there, and commit it to the
// grid. Calling this more than once (e.g. once per phase, so a
// precipitate pass layers onto already-placed primary owner counts per
// SPEC_FULL's two-pass sequencing) only places features appended since the
// previous call.
func (o *Optimizer) InitialPlacement(ctx context.Context) error {
	total := len(o.Features)
	for i := o.placed; i < total; i++ {
		f := o.Features[i]
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if err := BuildFootprint(f, o.Grid); err != nil {
			return err
		}
		col, row, plane := o.randomAvailableCell()
		x, y, z := o.Grid.CellCenter(col, row, plane)
		MoveFeature(f, o.Grid, x, y, z)
		o.Grid.AddFootprint(&f.Footprint, 1)

		if o.OnProgress != nil {
			o.OnProgress("place", i+1, total)
		}
	}
	o.placed = total
	RecomputeNeighborhoods(o.Features, o.Periodic, o.WorldX, o.WorldY, o.WorldZ)
	return nil
}

// OptimizationPhase runs 100*(N-firstPrimary) iterations alternating jump
// and nudge moves, accepting a move iff it does not increase the global
// filling error (spec.md 4.4).
func (o *Optimizer) OptimizationPhase(ctx context.Context, firstPrimary int) error {
	n := len(o.Features)
	iterations := 100 * (n - firstPrimary)
	if iterations < 0 {
		iterations = 0
	}

	sum := o.Grid.FillingErrorSum()
	for it := 0; it < iterations; it++ {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("%w: %v", ErrCancelled, err)
		}
		if len(o.Features) == 0 {
			break
		}
		if o.rngCtx.Float64() < 0.5 {
			sum = o.tryJump(sum)
		} else {
			sum = o.tryNudge(sum)
		}
		if o.OnProgress != nil && it%1000 == 0 {
			o.OnProgress("optimize", it, iterations)
		}
	}
	RecomputeNeighborhoods(o.Features, o.Periodic, o.WorldX, o.WorldY, o.WorldZ)
	return nil
}

// tryJump proposes moving a random placed feature to a random available
// packing cell, accepting iff the resulting filling error does not increase.
func (o *Optimizer) tryJump(curSum float64) float64 {
	f := o.Features[o.rngCtx.Intn(len(o.Features))]
	col, row, plane := o.randomAvailableCell()
	x, y, z := o.Grid.CellCenter(col, row, plane)
	return o.proposeMove(f, curSum, x, y, z)
}

// tryNudge proposes perturbing a random placed feature's centroid by a
// uniform shift in +/-2*spacing per axis.
func (o *Optimizer) tryNudge(curSum float64) float64 {
	f := o.Features[o.rngCtx.Intn(len(o.Features))]
	span := 2 * o.Grid.Spacing
	x := f.CentroidX + (o.rngCtx.Float64()*2-1)*span
	y := f.CentroidY + (o.rngCtx.Float64()*2-1)*span
	z := f.CentroidZ + (o.rngCtx.Float64()*2-1)*span
	return o.proposeMove(f, curSum, x, y, z)
}

// proposeMove tentatively removes f from its current position, translates
// it to (x,y,z), and accepts iff the new filling error does not exceed the
// old one; otherwise it reverts both footprint writes (spec.md 4.4).
func (o *Optimizer) proposeMove(f *feature.Feature, curSum, x, y, z float64) float64 {
	oldX, oldY, oldZ := f.CentroidX, f.CentroidY, f.CentroidZ

	d1 := o.Grid.AddFootprint(&f.Footprint, -1)
	MoveFeature(f, o.Grid, x, y, z)
	d2 := o.Grid.AddFootprint(&f.Footprint, 1)

	newSum := curSum + d1 + d2
	ncells := float64(o.Grid.NumCells())
	if newSum/ncells <= curSum/ncells {
		return newSum
	}

	o.Grid.AddFootprint(&f.Footprint, -1)
	MoveFeature(f, o.Grid, oldX, oldY, oldZ)
	o.Grid.AddFootprint(&f.Footprint, 1)
	return curSum
}

// randomAvailableCell picks a packing cell, preferring one with no
// exclusion, per spec.md 4.4 ("weighted towards non-excluded packing cells
// when available").
func (o *Optimizer) randomAvailableCell() (int32, int32, int32) {
	const attempts = 20
	for i := 0; i < attempts; i++ {
		c := int32(o.rngCtx.Intn(o.Grid.PX))
		r := int32(o.rngCtx.Intn(o.Grid.PY))
		p := int32(o.rngCtx.Intn(o.Grid.PZ))
		if !o.Grid.IsExcluded(o.Grid.Index(c, r, p)) {
			return c, r, p
		}
	}
	return int32(o.rngCtx.Intn(o.Grid.PX)), int32(o.rngCtx.Intn(o.Grid.PY)), int32(o.rngCtx.Intn(o.Grid.PZ))
}

// GoalErrors reports the current (filling, size, neighbourhood) error
// triple for diagnostics (spec.md 3, "GoalError triple").
func (o *Optimizer) GoalErrors() (filling, size, neighbor float64) {
	filling = o.Grid.FillingError()
	for idx, tracker := range o.trackers {
		size += tracker.Error()
		neighbor += NeighborError(o.featuresOfPhase(idx), o.stats[idx].Size, o.stats[idx].Neighbor)
	}
	n := float64(len(o.trackers))
	if n > 0 {
		size /= n
		neighbor /= n
	}
	return filling, size, neighbor
}

func (o *Optimizer) featuresOfPhase(idx int32) []*feature.Feature {
	out := make([]*feature.Feature, 0, len(o.Features))
	for _, f := range o.Features {
		if f.Phase == idx {
			out = append(out, f)
		}
	}
	return out
}
