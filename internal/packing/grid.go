// Package packing implements the coarse packing grid: a 3-D integer grid
// at half the linear resolution of the fine output grid, holding per-cell
// ownership and exclusion counts for the placement optimiser. Grounded on
// the teacher's toroidal SpatialGrid (systems/spatial.go) for cell-index
// mapping and wraparound, and its flat-array NavGrid (systems/navgrid.go)
// for the owner/exclusion storage shape.
package packing

import (
	"math"

	"github.com/pthm-cable/microforge/internal/feature"
)

// InsideExclusionThreshold is the fixed inside-value threshold above which
// a footprint entry also increments the cell's exclusion count (spec.md 4.2).
const InsideExclusionThreshold = 0.1

// Grid is the coarse packing grid.
type Grid struct {
	PX, PY, PZ int
	Spacing    float64 // 2x the output grid's spacing
	Periodic   bool

	owner     []int32
	exclusion []int32

	// Pending exclusion deltas from the most recent uncommitted AddFootprint
	// call, consumed by the optimiser on move accept/reject (spec.md 4.2).
	pendingAdd    []int // cell indices newly excluded (0->1) this call
	pendingRemove []int // cell indices newly non-excluded (1->0) this call
}

// New builds a packing grid sized from the output grid's extents and
// spacing: packing spacing = 2x output spacing, packing extents =
// floor(output extents / 2) with a floor of 1 on each axis (spec.md 4.2).
func New(outputNX, outputNY, outputNZ int, outputSpacing float64, periodic bool) *Grid {
	px := outputNX / 2
	py := outputNY / 2
	pz := outputNZ / 2
	if px < 1 {
		px = 1
	}
	if py < 1 {
		py = 1
	}
	if pz < 1 {
		pz = 1
	}

	n := px * py * pz
	return &Grid{
		PX: px, PY: py, PZ: pz,
		Spacing:  outputSpacing * 2,
		Periodic: periodic,
		owner:    make([]int32, n),
		exclusion: make([]int32, n),
	}
}

// NumCells returns the total cell count PX*PY*PZ.
func (g *Grid) NumCells() int { return g.PX * g.PY * g.PZ }

// Index flattens a (col,row,plane) triple, assumed already wrapped/clamped
// into range, to a dense array offset.
func (g *Grid) Index(col, row, plane int32) int {
	return (int(plane)*g.PY+int(row))*g.PX + int(col)
}

// CellOf maps a world coordinate to a packing-grid cell via
// floor((coord - spacing/2)/spacing).
func (g *Grid) CellOf(x, y, z float64) (i, j, k int32) {
	half := g.Spacing / 2
	i = int32(math.Floor((x - half) / g.Spacing))
	j = int32(math.Floor((y - half) / g.Spacing))
	k = int32(math.Floor((z - half) / g.Spacing))
	return
}

// Wrap applies periodic (true modulo, never the repeated add/subtract
// idiom the original source used, which breaks for shifts larger than one
// extent — spec.md 9) or clipped boundary handling to a cell coordinate.
// ok is false when non-periodic and the cell lies outside the grid.
func (g *Grid) Wrap(col, row, plane int32) (c, r, p int32, ok bool) {
	if g.Periodic {
		return mod(col, int32(g.PX)), mod(row, int32(g.PY)), mod(plane, int32(g.PZ)), true
	}
	if col < 0 || col >= int32(g.PX) || row < 0 || row >= int32(g.PY) || plane < 0 || plane >= int32(g.PZ) {
		return 0, 0, 0, false
	}
	return col, row, plane, true
}

// mod is true (always non-negative) modular arithmetic, unlike Go's %
// operator which preserves the dividend's sign.
func mod(v, n int32) int32 {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}

// Owner returns the owner count at a wrapped/clamped cell index.
func (g *Grid) Owner(idx int) int32 { return g.owner[idx] }

// Exclusion returns the exclusion count at a wrapped/clamped cell index.
func (g *Grid) Exclusion(idx int) int32 { return g.exclusion[idx] }

// PendingExclusionAdds returns cell indices newly excluded by the most
// recent AddFootprint call (0->1 transitions), pending commit.
func (g *Grid) PendingExclusionAdds() []int { return g.pendingAdd }

// PendingExclusionRemoves returns cell indices newly non-excluded by the
// most recent AddFootprint call (1->0 transitions), pending commit.
func (g *Grid) PendingExclusionRemoves() []int { return g.pendingRemove }

// AddFootprint adds signedDelta (+1 or -1) to the owner count over f's
// footprint, and for entries whose inside value exceeds
// InsideExclusionThreshold, to the exclusion count too. Newly-excluded and
// newly-non-excluded cells are recorded in the pending lists for the
// optimiser to commit or discard. FillingErrorDelta returns the change to
// the global filling-error sum contributed by this call (spec.md 4.4).
func (g *Grid) AddFootprint(f *feature.Footprint, signedDelta int32) (fillingErrorDelta float64) {
	g.pendingAdd = g.pendingAdd[:0]
	g.pendingRemove = g.pendingRemove[:0]

	for i := 0; i < f.Len(); i++ {
		col, row, plane, ok := g.Wrap(f.Col[i], f.Row[i], f.Plane[i])
		if !ok {
			continue // outside the grid under non-periodic boundaries: no contribution
		}
		idx := g.Index(col, row, plane)

		o := g.owner[idx]
		if signedDelta > 0 {
			fillingErrorDelta += 2*float64(o) - 1
		} else {
			fillingErrorDelta += -2*float64(o) + 3
		}
		g.owner[idx] = o + signedDelta

		if f.Inside[i] > InsideExclusionThreshold {
			before := g.exclusion[idx]
			g.exclusion[idx] = before + signedDelta
			after := g.exclusion[idx]
			if before == 0 && after != 0 {
				g.pendingAdd = append(g.pendingAdd, idx)
			} else if before != 0 && after == 0 {
				g.pendingRemove = append(g.pendingRemove, idx)
			}
		}
	}
	return fillingErrorDelta
}

// IsExcluded reports whether a cell currently has a non-zero exclusion
// count (i.e. is covered by some feature's excluded-depth region).
func (g *Grid) IsExcluded(idx int) bool { return g.exclusion[idx] != 0 }

// CellCenter returns the world coordinate of a packing cell's centre, the
// inverse of CellOf: CellOf(CellCenter(i,j,k)) == (i,j,k).
func (g *Grid) CellCenter(col, row, plane int32) (x, y, z float64) {
	half := g.Spacing / 2
	x = float64(col)*g.Spacing + half
	y = float64(row)*g.Spacing + half
	z = float64(plane)*g.Spacing + half
	return
}

// FillingErrorSum computes the (non-incremental) global filling-error sum
// Sum_c (o(c)-1)^2 over every packing cell, used once to seed the
// optimiser's running total before switching to AddFootprint's incremental
// deltas (spec.md 4.4).
func (g *Grid) FillingErrorSum() float64 {
	var sum float64
	for _, o := range g.owner {
		d := float64(o) - 1
		sum += d * d
	}
	return sum
}

// FillingError returns the normalised global filling error E = sum/Ncells.
func (g *Grid) FillingError() float64 {
	return g.FillingErrorSum() / float64(g.NumCells())
}
