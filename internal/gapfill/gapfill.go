// Package gapfill implements the 6-neighbour majority-vote gap filler
// (spec.md 4.6): iterates until no voxel changes, each pass tallying
// neighbour ids in a read-only scan and committing decisions afterwards,
// so no voxel's vote sees another voxel's assignment from the same pass. Grounded on the teacher's NavGrid flood/tally passes
// (systems/navgrid.go), which separate a read-only scan phase from a
// commit phase the same way.
package gapfill

import (
	"context"

	"github.com/pthm-cable/microforge/internal/volume"
)

// MaxPasses bounds the fixed-point iteration. Every pass that does not end
// the loop fills at least one voxel, so the bound is only reached by a
// volume with more gap voxels to fill one pass at a time than MaxPasses.
const MaxPasses = 10000

// neighbor6 lists the 6-connected integer offsets.
var neighbor6 = [6][3]int{
	{-1, 0, 0}, {1, 0, 0},
	{0, -1, 0}, {0, 1, 0},
	{0, 0, -1}, {0, 0, 1},
}

// Fill runs the gap filler to a fixed point: every pass tallies, among the
// 6-neighbours of each voxel with id <= 0 (ignoring masked-out voxels),
// the most frequent positive id (tie: lowest id), then commits all
// remembered assignments simultaneously. Once no voxel changes, every voxel
// still Unassigned (masked-out voxels included) is set to Background.
// Returns the number of passes run.
func Fill(ctx context.Context, vol *volume.Volume, periodic bool) (int, error) {
	pass := 0
	for ; pass < MaxPasses; pass++ {
		if err := ctx.Err(); err != nil {
			return pass, err
		}

		decisions := tally(vol, periodic)
		if len(decisions) == 0 {
			break
		}
		for idx, id := range decisions {
			vol.FeatureID[idx] = id
		}
	}
	// Voxels no pass could fill, masked-out ones included, end as background.
	for i, id := range vol.FeatureID {
		if id < 0 {
			vol.FeatureID[i] = volume.Background
		}
	}
	return pass, nil
}

// tally performs one read-only pass, returning the voxel->id assignments
// that would be committed.
func tally(vol *volume.Volume, periodic bool) map[int]int32 {
	decisions := make(map[int]int32)
	for z := 0; z < vol.NZ; z++ {
		for y := 0; y < vol.NY; y++ {
			for x := 0; x < vol.NX; x++ {
				idx := vol.Index(x, y, z)
				if vol.FeatureID[idx] > 0 {
					continue
				}
				if vol.IsMasked(idx) {
					continue
				}

				counts := make(map[int32]int)
				for _, n := range neighbor6 {
					nx, ny, nz, ok := wrap(x+n[0], y+n[1], z+n[2], vol.NX, vol.NY, vol.NZ, periodic)
					if !ok {
						continue
					}
					nIdx := vol.Index(nx, ny, nz)
					if nid := vol.FeatureID[nIdx]; nid > 0 {
						counts[nid]++
					}
				}
				if len(counts) == 0 {
					continue
				}
				decisions[idx] = mostFrequent(counts)
			}
		}
	}
	return decisions
}

// mostFrequent picks the id with the highest tally, ties broken by the
// lowest id (spec.md 4.6).
func mostFrequent(counts map[int32]int) int32 {
	var bestID int32
	var bestCount int
	first := true
	for id, c := range counts {
		if first || c > bestCount || (c == bestCount && id < bestID) {
			bestID, bestCount, first = id, c, false
		}
	}
	return bestID
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
