// Package volume implements the labelled output volume (spec.md 4.9): a
// dense, fine-resolution voxel grid holding per-voxel feature-id and
// phase-id arrays, plus an optional mask. Grounded on the teacher's flat
// int32 NavGrid (systems/navgrid.go) for storage shape and wraparound.
package volume

import (
	"context"
	"fmt"

	"github.com/pthm-cable/microforge/internal/generator"
	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/rng"
)

// Unassigned and Background are the sentinel feature-id values (spec.md 4.5):
// -1 means no feature has claimed the voxel yet, 0 means background
// (either gap-filled dry or masked out).
const (
	Unassigned int32 = -1
	Background int32 = 0
)

// Volume is an empty or populated labelled output grid of given extents,
// spacing, and origin (spec.md 4.9).
type Volume struct {
	NX, NY, NZ int
	Spacing    [3]float64
	Origin     [3]float64
	Units      string

	FeatureID []int32
	PhaseID   []int32

	Mask []bool // nil means no mask
}

// ErrGeometryMismatch reports non-positive extents/spacing, or a mask
// array sized differently from the voxel count (spec.md 7).
var ErrGeometryMismatch = fmt.Errorf("volume: geometry mismatch")

// New creates an empty labelled volume: every voxel starts Unassigned,
// every phase-id starts at Background (spec.md 4.9).
func New(nx, ny, nz int, spacing, origin [3]float64, units string, mask []bool) (*Volume, error) {
	if nx <= 0 || ny <= 0 || nz <= 0 {
		return nil, fmt.Errorf("%w: non-positive extents (%d,%d,%d)", ErrGeometryMismatch, nx, ny, nz)
	}
	if spacing[0] <= 0 || spacing[1] <= 0 || spacing[2] <= 0 {
		return nil, fmt.Errorf("%w: non-positive spacing %v", ErrGeometryMismatch, spacing)
	}
	n := nx * ny * nz
	if mask != nil && len(mask) != n {
		return nil, fmt.Errorf("%w: mask length %d != voxel count %d", ErrGeometryMismatch, len(mask), n)
	}

	v := &Volume{
		NX: nx, NY: ny, NZ: nz,
		Spacing: spacing, Origin: origin, Units: units,
		FeatureID: make([]int32, n),
		PhaseID:   make([]int32, n),
		Mask:      mask,
	}
	for i := range v.FeatureID {
		v.FeatureID[i] = Unassigned
	}
	return v, nil
}

// NumVoxels returns NX*NY*NZ.
func (v *Volume) NumVoxels() int { return v.NX * v.NY * v.NZ }

// Index flattens a (x,y,z) voxel index triple to a dense array offset.
func (v *Volume) Index(x, y, z int) int {
	return (z*v.NY+y)*v.NX + x
}

// WorldCenter returns the world coordinate of a voxel's centre.
func (v *Volume) WorldCenter(x, y, z int) (wx, wy, wz float64) {
	wx = v.Origin[0] + (float64(x)+0.5)*v.Spacing[0]
	wy = v.Origin[1] + (float64(y)+0.5)*v.Spacing[1]
	wz = v.Origin[2] + (float64(z)+0.5)*v.Spacing[2]
	return
}

// IsMasked reports whether a voxel index is masked out (always false when
// no mask is present).
func (v *Volume) IsMasked(idx int) bool {
	return v.Mask != nil && !v.Mask[idx]
}

// EstimateFeatureCount simulates spec.md 4.4's generation phase for one
// phase, generator-only (no placement), until the target volume fraction
// is reached, returning the feature count for UI display (spec.md 4.9).
func EstimateFeatureCount(ctx context.Context, p phase.Phase, stats phase.PhaseStats, totalVolume float64, seed int64) (int, error) {
	gen := generator.New(p, stats)
	rctx := rng.New(seed)
	target := p.Fraction * totalVolume

	var placed float64
	var count int
	for placed < target {
		if err := ctx.Err(); err != nil {
			return count, err
		}
		f, err := gen.Generate(rctx.ForFeature())
		if err != nil {
			return count, err
		}
		placed += f.Volume
		count++
	}
	return count, nil
}
