// Package islands implements island cleanup (spec.md 4.7): flood-fill each
// feature id's connected component under 26-neighbour connectivity, drop
// components smaller than a per-phase minimum-voxel threshold that do not
// touch the volume boundary, re-gapfill, and drop features left without
// voxels. Per-voxel phase ids are written by the pipeline afterwards.
// Grounded on the teacher's flood-fill connected-component pass over
// NavGrid (systems/navgrid.go), generalised from 2-D 8-connectivity to 3-D
// 26-connectivity.
package islands

import (
	"context"
	"math"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/gapfill"
	"github.com/pthm-cable/microforge/internal/volume"
)

// neighbor26 lists the 26 integer offsets of full 3-D connectivity.
var neighbor26 = func() [26][3]int {
	var out [26][3]int
	i := 0
	for dz := -1; dz <= 1; dz++ {
		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				if dx == 0 && dy == 0 && dz == 0 {
					continue
				}
				out[i] = [3]int{dx, dy, dz}
				i++
			}
		}
	}
	return out
}()

// MinVoxelThreshold computes pi*minDia^3/6 divided by voxel volume
// (spec.md 4.7): the per-phase minimum component size below which a
// component is considered spurious.
func MinVoxelThreshold(minDia float64, voxelVolume float64) float64 {
	return math.Pi * minDia * minDia * minDia / 6 / voxelVolume
}

// Clean implements spec.md 4.7: flood-fill every feature id's component,
// drop undersized interior components (re-gapping their voxels), re-invoke
// the gap filler, then recompute each surviving feature's TouchesBoundary
// flag and drop empty features from the table.
func Clean(ctx context.Context, vol *volume.Volume, features []*feature.Feature, minVoxelThresholdByPhase map[int32]float64, periodic bool) ([]*feature.Feature, error) {
	if err := ctx.Err(); err != nil {
		return features, err
	}

	byID := make(map[int32]*feature.Feature, len(features))
	for _, f := range features {
		byID[f.ID] = f
	}

	visited := make([]bool, vol.NumVoxels())
	survivingVoxels := make(map[int32]int) // feature id -> voxel count retained

	for start := 0; start < len(vol.FeatureID); start++ {
		if visited[start] {
			continue
		}
		id := vol.FeatureID[start]
		if id <= 0 {
			visited[start] = true
			continue
		}

		component, touchesBoundary := floodFill(vol, start, id, visited, periodic)

		threshold, ok := minVoxelThresholdByPhase[byID[id].Phase]
		if !ok {
			threshold = 0
		}

		if float64(len(component)) < threshold && !touchesBoundary {
			for _, idx := range component {
				vol.FeatureID[idx] = volume.Unassigned
			}
			continue
		}

		survivingVoxels[id] += len(component)
		if f := byID[id]; f != nil && touchesBoundary {
			f.TouchesBoundary = true
		}
	}

	if _, err := gapfill.Fill(ctx, vol, periodic); err != nil {
		return features, err
	}

	kept := features[:0:0]
	for _, f := range features {
		if survivingVoxels[f.ID] > 0 {
			kept = append(kept, f)
		}
	}
	return kept, nil
}

// floodFill walks the 26-connected component containing idx, marking every
// visited voxel, and reports whether any voxel in the component lies on
// the volume's outer boundary (spec.md 4.7: "does not touch the volume
// boundary").
func floodFill(vol *volume.Volume, start int, id int32, visited []bool, periodic bool) ([]int, bool) {
	stack := []int{start}
	visited[start] = true
	var component []int
	touchesBoundary := false

	for len(stack) > 0 {
		idx := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		component = append(component, idx)

		x, y, z := devoxel(vol, idx)
		if !periodic && onBoundary(x, y, z, vol.NX, vol.NY, vol.NZ) {
			touchesBoundary = true
		}

		for _, n := range neighbor26 {
			nx, ny, nz, ok := wrap(x+n[0], y+n[1], z+n[2], vol.NX, vol.NY, vol.NZ, periodic)
			if !ok {
				continue
			}
			nIdx := vol.Index(nx, ny, nz)
			if visited[nIdx] || vol.FeatureID[nIdx] != id {
				continue
			}
			visited[nIdx] = true
			stack = append(stack, nIdx)
		}
	}
	return component, touchesBoundary
}

func devoxel(vol *volume.Volume, idx int) (x, y, z int) {
	z = idx / (vol.NX * vol.NY)
	rem := idx % (vol.NX * vol.NY)
	y = rem / vol.NX
	x = rem % vol.NX
	return
}

func onBoundary(x, y, z, nx, ny, nz int) bool {
	return x == 0 || y == 0 || z == 0 || x == nx-1 || y == ny-1 || z == nz-1
}

func wrap(x, y, z, nx, ny, nz int, periodic bool) (int, int, int, bool) {
	if periodic {
		return mod(x, nx), mod(y, ny), mod(z, nz), true
	}
	if x < 0 || x >= nx || y < 0 || y >= ny || z < 0 || z >= nz {
		return 0, 0, 0, false
	}
	return x, y, z, true
}

func mod(v, n int) int {
	m := v % n
	if m < 0 {
		m += n
	}
	return m
}
