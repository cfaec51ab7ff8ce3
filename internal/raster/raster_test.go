package raster

import (
	"context"
	"testing"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/shapes"
	"github.com/pthm-cable/microforge/internal/volume"
)

func newTestVolume(t *testing.T) *volume.Volume {
	t.Helper()
	v, err := volume.New(10, 10, 10, [3]float64{1, 1, 1}, [3]float64{0, 0, 0}, "um", nil)
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func TestRasterizeAssignsVoxelsInsideSphere(t *testing.T) {
	v := newTestVolume(t)
	f := &feature.Feature{
		ID: 1, Phase: 1, ShapeClass: shapes.Ellipsoid,
		A: 2, B: 2, C: 2,
		CentroidX: 5, CentroidY: 5, CentroidZ: 5,
	}
	if err := Rasterize(context.Background(), v, []*feature.Feature{f}, Options{}); err != nil {
		t.Fatal(err)
	}

	center := v.Index(5, 5, 5)
	if v.FeatureID[center] != 1 {
		t.Errorf("expected centre voxel assigned to feature 1, got %d", v.FeatureID[center])
	}

	far := v.Index(0, 0, 0)
	if v.FeatureID[far] != volume.Unassigned {
		t.Errorf("expected far voxel unassigned, got %d", v.FeatureID[far])
	}
}

func TestRasterizeTiebreakPrefersLowerID(t *testing.T) {
	v := newTestVolume(t)
	f1 := &feature.Feature{ID: 1, Phase: 1, ShapeClass: shapes.Ellipsoid, A: 3, B: 3, C: 3, CentroidX: 5, CentroidY: 5, CentroidZ: 5}
	f2 := &feature.Feature{ID: 2, Phase: 1, ShapeClass: shapes.Ellipsoid, A: 3, B: 3, C: 3, CentroidX: 5, CentroidY: 5, CentroidZ: 5}
	if err := Rasterize(context.Background(), v, []*feature.Feature{f1, f2}, Options{}); err != nil {
		t.Fatal(err)
	}
	center := v.Index(5, 5, 5)
	if v.FeatureID[center] != 1 {
		t.Errorf("expected tie between identically-sized co-located features broken by lower feature id, got %d", v.FeatureID[center])
	}
}

func TestRasterizeRespectsMask(t *testing.T) {
	mask := make([]bool, 1000)
	for i := range mask {
		mask[i] = true
	}
	v, err := volume.New(10, 10, 10, [3]float64{1, 1, 1}, [3]float64{0, 0, 0}, "um", mask)
	if err != nil {
		t.Fatal(err)
	}
	center := v.Index(5, 5, 5)
	mask[center] = false

	f := &feature.Feature{ID: 1, Phase: 1, ShapeClass: shapes.Ellipsoid, A: 2, B: 2, C: 2, CentroidX: 5, CentroidY: 5, CentroidZ: 5}
	if err := Rasterize(context.Background(), v, []*feature.Feature{f}, Options{}); err != nil {
		t.Fatal(err)
	}
	if v.FeatureID[center] != volume.Unassigned {
		t.Errorf("expected masked voxel left unassigned, got %d", v.FeatureID[center])
	}
}

func TestRasterizeCancellation(t *testing.T) {
	v := newTestVolume(t)
	f := &feature.Feature{ID: 1, Phase: 1, ShapeClass: shapes.Ellipsoid, A: 2, B: 2, C: 2, CentroidX: 5, CentroidY: 5, CentroidZ: 5}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := Rasterize(ctx, v, []*feature.Feature{f}, Options{}); err == nil {
		t.Fatal("expected cancellation error")
	}
}
