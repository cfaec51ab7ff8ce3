package islands

import (
	"context"
	"testing"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/volume"
)

func newVol(t *testing.T, nx, ny, nz int) *volume.Volume {
	t.Helper()
	v, err := volume.New(nx, ny, nz, [3]float64{1, 1, 1}, [3]float64{}, "um", nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestMinVoxelThresholdScalesWithDiameterCubed(t *testing.T) {
	small := MinVoxelThreshold(2, 1)
	large := MinVoxelThreshold(4, 1)
	if large <= small*7 {
		t.Errorf("expected ~8x threshold for 2x diameter, got small=%v large=%v", small, large)
	}
}

func TestCleanDropsUndersizedInteriorComponent(t *testing.T) {
	v := newVol(t, 10, 10, 10)
	for i := range v.FeatureID {
		v.FeatureID[i] = volume.Background
	}
	// a single interior voxel blob of feature 1, far from any boundary
	v.FeatureID[v.Index(5, 5, 5)] = 1
	f := &feature.Feature{ID: 1, Phase: 1}

	kept, err := Clean(context.Background(), v, []*feature.Feature{f}, map[int32]float64{1: 100}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 0 {
		t.Errorf("expected the undersized interior feature dropped, kept %d", len(kept))
	}
	if v.FeatureID[v.Index(5, 5, 5)] != volume.Background {
		t.Errorf("expected cleaned voxel to fall back to background, got %d", v.FeatureID[v.Index(5, 5, 5)])
	}
}

func TestCleanKeepsUndersizedBoundaryComponent(t *testing.T) {
	v := newVol(t, 10, 10, 10)
	for i := range v.FeatureID {
		v.FeatureID[i] = volume.Background
	}
	v.FeatureID[v.Index(0, 5, 5)] = 1 // touches the x=0 boundary face
	f := &feature.Feature{ID: 1, Phase: 1}

	kept, err := Clean(context.Background(), v, []*feature.Feature{f}, map[int32]float64{1: 100}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 {
		t.Fatalf("expected boundary-touching feature kept regardless of size, got %d", len(kept))
	}
	if !kept[0].TouchesBoundary {
		t.Error("expected TouchesBoundary set")
	}
}

func TestCleanKeepsLargeInteriorComponent(t *testing.T) {
	v := newVol(t, 10, 10, 10)
	for i := range v.FeatureID {
		v.FeatureID[i] = volume.Background
	}
	for x := 4; x <= 6; x++ {
		for y := 4; y <= 6; y++ {
			for z := 4; z <= 6; z++ {
				v.FeatureID[v.Index(x, y, z)] = 1
			}
		}
	}
	f := &feature.Feature{ID: 1, Phase: 1}
	kept, err := Clean(context.Background(), v, []*feature.Feature{f}, map[int32]float64{1: 5}, false)
	if err != nil {
		t.Fatal(err)
	}
	if len(kept) != 1 {
		t.Errorf("expected large component kept, got %d features", len(kept))
	}
}
