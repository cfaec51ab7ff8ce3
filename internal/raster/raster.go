// Package raster rasterises placed features into the fine output volume
// (spec.md 4.5). Grounded on the teacher's systems.SpatialGrid query loop
// (systems/spatial.go) for the bounding-box/slab decomposition, generalised
// from 2-D cell occupancy to a 3-D compare-and-choose voxel write, and
// parallelised per slab with golang.org/x/sync/errgroup the way the teacher's
// render pipeline fans work out across goroutines.
package raster

import (
	"context"
	"math"
	"sync/atomic"

	"golang.org/x/sync/errgroup"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/orientation"
	"github.com/pthm-cable/microforge/internal/shapes"
	"github.com/pthm-cable/microforge/internal/volume"
)

// packedCell pairs an inside value with the feature id that produced it.
// compareAndChoose does not use it: the store keeps the two halves in
// cellStore's parallel slices. The greater inside value always wins, ties
// broken by the lower feature id (spec.md 4.5, 5).
type packedCell struct {
	inside float64
	id     int32
}

// cellStore holds, per voxel, the current best inside value and its
// feature id in two parallel slices (only the id slot is accessed
// atomically), used only during rasterisation; Volume.FeatureID is written once at the end from it.
type cellStore struct {
	inside []float64
	id     []int32
}

// Options configures a rasterisation run.
type Options struct {
	Periodic bool
	// OnFeature is called after each feature's voxels are committed, for
	// progress reporting (spec.md 5).
	OnFeature func(done, total int)
}

// Rasterize implements spec.md 4.5: for every placed feature, parallel over
// bounding-box slabs, query ShapeOps::Inside per voxel and compare-and-
// choose into the shared id/inside arrays; feature-level iteration is
// itself embarrassingly parallel, so each feature's slabs run concurrently
// via an errgroup while different features run sequentially to keep the
// compare-and-choose simple (ties broken deterministically regardless).
func Rasterize(ctx context.Context, vol *volume.Volume, features []*feature.Feature, opts Options) error {
	store := &cellStore{
		inside: make([]float64, vol.NumVoxels()),
		id:     make([]int32, vol.NumVoxels()),
	}
	for i := range store.id {
		store.id[i] = volume.Unassigned
		store.inside[i] = math.Inf(-1)
	}

	for fi, f := range features {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := rasterizeOne(ctx, vol, store, f, opts.Periodic); err != nil {
			return err
		}
		if opts.OnFeature != nil {
			opts.OnFeature(fi+1, len(features))
		}
	}

	for i := range vol.FeatureID {
		if store.id[i] == volume.Unassigned {
			vol.FeatureID[i] = volume.Unassigned
			continue
		}
		vol.FeatureID[i] = store.id[i]
	}
	return nil
}

// rasterizeOne rasterises a single feature in parallel over bounding-box
// Z-slabs (spec.md 4.5, 5).
func rasterizeOne(ctx context.Context, vol *volume.Volume, store *cellStore, f *feature.Feature, periodic bool) error {
	ops, err := shapes.For(f.ShapeClass)
	if err != nil {
		return err
	}
	ops.Init()

	g := orientation.Euler{Phi1: f.Phi1, Phi: f.Phi, Phi2: f.Phi2}.ToMatrix()
	maxR := math.Max(f.A, math.Max(f.B, f.C))

	minX, maxX := voxelBounds(f.CentroidX, maxR, vol.Spacing[0], vol.Origin[0], vol.NX, periodic)
	minY, maxY := voxelBounds(f.CentroidY, maxR, vol.Spacing[1], vol.Origin[1], vol.NY, periodic)
	minZ, maxZ := voxelBounds(f.CentroidZ, maxR, vol.Spacing[2], vol.Origin[2], vol.NZ, periodic)

	grp, gctx := errgroup.WithContext(ctx)
	for z := minZ; z <= maxZ; z++ {
		z := z
		grp.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			for y := minY; y <= maxY; y++ {
				for x := minX; x <= maxX; x++ {
					vx, vy, vz, ok := wrapVoxel(x, y, z, vol.NX, vol.NY, vol.NZ, periodic)
					if !ok {
						continue
					}
					idx := vol.Index(vx, vy, vz)
					if vol.IsMasked(idx) {
						continue
					}

					wx, wy, wz := vol.WorldCenter(vx, vy, vz)
					dx := wx - f.CentroidX
					dy := wy - f.CentroidY
					dz := wz - f.CentroidZ

					lx := g.At(0, 0)*dx + g.At(0, 1)*dy + g.At(0, 2)*dz
					ly := g.At(1, 0)*dx + g.At(1, 1)*dy + g.At(1, 2)*dz
					lz := g.At(2, 0)*dx + g.At(2, 1)*dy + g.At(2, 2)*dz

					inside := ops.Inside(lx/f.A, ly/f.B, lz/f.C, f.Omega3)
					if inside < 0 {
						continue
					}
					compareAndChoose(store, idx, inside, f.ID)
				}
			}
			return nil
		})
	}
	return grp.Wait()
}

// compareAndChoose writes (inside,id) into the shared store iff it wins
// against the current occupant: strictly greater inside, or equal inside
// with a lower feature id (spec.md 4.5, 5). Uses
// a CAS-style retry loop keyed on the id slot as the synchronisation point.
func compareAndChoose(store *cellStore, idx int, inside float64, id int32) {
	idPtr := &store.id[idx]
	for {
		curID := atomic.LoadInt32(idPtr)
		curInside := store.inside[idx]

		wins := curID == volume.Unassigned || inside > curInside || (inside == curInside && id < curID)
		if !wins {
			return
		}
		if atomic.CompareAndSwapInt32(idPtr, curID, id) {
			store.inside[idx] = inside
			return
		}
		// lost the race; reread and retry
	}
}

// voxelBounds computes an inclusive voxel-index range covering
// [centroid-maxR, centroid+maxR] expanded by one voxel, clamped to
// [0,n-1] when not periodic (spec.md 4.5 step 2).
func voxelBounds(centroid, maxR, spacing, origin float64, n int, periodic bool) (lo, hi int) {
	lo = int(math.Floor((centroid-maxR-origin)/spacing)) - 1
	hi = int(math.Ceil((centroid+maxR-origin)/spacing)) + 1
	if !periodic {
		if lo < 0 {
			lo = 0
		}
		if hi > n-1 {
			hi = n - 1
		}
	}
	return
}

// wrapVoxel applies periodic wraparound or bounds-rejection to a voxel
// index triple (spec.md 4.5 step 2: "with wrap if periodic").
func wrapVoxel(x, y, z, nx, ny, nz int, periodic bool) (vx, vy, vz int, ok bool) {
	if periodic {
		return modInt(x, nx), modInt(y, ny), modInt(z, nz), true
	}
	if x < 0 || x >= nx || y < 0 || y >= ny || z < 0 || z >= nz {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

func modInt(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}
