package optimizer

import (
	"math"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/orientation"
	"github.com/pthm-cable/microforge/internal/packing"
	"github.com/pthm-cable/microforge/internal/shapes"
)

// BuildFootprint computes f's footprint as cell offsets relative to cell
// (0,0,0), i.e. as if f's centroid sat exactly on the reference packing
// cell's centre. Because the shape test only depends on the offset between
// a cell's world centre and the feature's centroid, this footprint is
// invariant to translation modulo cell shift (spec.md 4.4 step 1, 9): it is
// computed exactly once and later moved by componentwise integer
// translation (feature.Footprint.Translate), never recomputed from the
// shape query again.
func BuildFootprint(f *feature.Feature, grid *packing.Grid) error {
	ops, err := shapes.For(f.ShapeClass)
	if err != nil {
		return err
	}
	ops.Init()

	g := orientation.Euler{Phi1: f.Phi1, Phi: f.Phi, Phi2: f.Phi2}.ToMatrix()
	ra, rb, rc := f.A, f.B, f.C
	maxR := math.Max(ra, math.Max(rb, rc))

	cellRadius := int(math.Ceil(maxR/grid.Spacing)) + 1

	f.Footprint.Reset()
	for dc := -cellRadius; dc <= cellRadius; dc++ {
		for dr := -cellRadius; dr <= cellRadius; dr++ {
			for dp := -cellRadius; dp <= cellRadius; dp++ {
				wx := float64(dc) * grid.Spacing
				wy := float64(dr) * grid.Spacing
				wz := float64(dp) * grid.Spacing

				// Rotate the world-frame offset into the feature's local
				// frame: local = G * world (G is the passive rotation
				// matrix, crystal/local frame = G * sample frame).
				lx := g.At(0, 0)*wx + g.At(0, 1)*wy + g.At(0, 2)*wz
				ly := g.At(1, 0)*wx + g.At(1, 1)*wy + g.At(1, 2)*wz
				lz := g.At(2, 0)*wx + g.At(2, 1)*wy + g.At(2, 2)*wz

				inside := ops.Inside(lx/ra, ly/rb, lz/rc, f.Omega3)
				if inside >= 0 {
					f.Footprint.Col = append(f.Footprint.Col, int32(dc))
					f.Footprint.Row = append(f.Footprint.Row, int32(dr))
					f.Footprint.Plane = append(f.Footprint.Plane, int32(dp))
					f.Footprint.Inside = append(f.Footprint.Inside, inside)
				}
			}
		}
	}
	// The footprint is relative to cell (0,0,0), so the centroid sits there
	// too; MoveFeature translates both from this reference.
	f.CentroidX, f.CentroidY, f.CentroidZ = grid.CellCenter(0, 0, 0)
	return nil
}

// MoveFeature translates f's centroid to (x,y,z) and shifts its footprint
// by the corresponding integer packing-cell delta (spec.md 3: "translating
// the centroid by delta in world units translates every footprint entry by
// floor(delta/packing-spacing) cells componentwise").
func MoveFeature(f *feature.Feature, grid *packing.Grid, x, y, z float64) {
	oc, or_, op := grid.CellOf(f.CentroidX, f.CentroidY, f.CentroidZ)
	nc, nr, np := grid.CellOf(x, y, z)
	f.Footprint.Translate(nc-oc, nr-or_, np-op)
	f.CentroidX, f.CentroidY, f.CentroidZ = x, y, z
}
