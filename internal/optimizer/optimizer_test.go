package optimizer

import (
	"context"
	"testing"

	"github.com/pthm-cable/microforge/internal/packing"
	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/shapes"
)

func testPhaseStats() (phase.Phase, phase.PhaseStats) {
	betaAll := func(n int, a, b float64) []phase.BetaParams {
		out := make([]phase.BetaParams, n)
		for i := range out {
			out[i] = phase.BetaParams{Alpha: a, Beta: b}
		}
		return out
	}
	stats := phase.PhaseStats{
		Size:     phase.SizeDistribution{Mu: 0.8, Sigma: 0.1, MinDia: 2.0, MaxDia: 4.0, BinStep: 1.0},
		BOverA:   betaAll(4, 10, 10),
		COverA:   betaAll(4, 8, 10),
		Omega3:   betaAll(4, 10, 10),
		Neighbor: make([]phase.NeighborBin, 4),
	}
	p := phase.Phase{Index: 1, Kind: phase.Primary, ShapeTag: shapes.Ellipsoid, Fraction: 1.0}
	return p, stats
}

func TestGenerateForPhaseReachesTargetVolume(t *testing.T) {
	grid := packing.New(20, 20, 20, 1.0, true)
	o := New(grid, true, 20, 20, 20, 8000, 7)
	p, stats := testPhaseStats()
	if err := o.GenerateForPhase(context.Background(), p, stats); err != nil {
		t.Fatal(err)
	}
	if len(o.Features) == 0 {
		t.Fatal("expected at least one generated feature")
	}
	var vol float64
	for _, f := range o.Features {
		vol += f.Volume
	}
	if vol < p.Fraction*o.TotalVolume*0.5 {
		t.Errorf("generated volume %v too far below target %v", vol, p.Fraction*o.TotalVolume)
	}
}

func TestInitialPlacementCommitsEveryFeature(t *testing.T) {
	grid := packing.New(20, 20, 20, 1.0, true)
	o := New(grid, true, 20, 20, 20, 4000, 11)
	p, stats := testPhaseStats()
	if err := o.GenerateForPhase(context.Background(), p, stats); err != nil {
		t.Fatal(err)
	}
	if err := o.InitialPlacement(context.Background()); err != nil {
		t.Fatal(err)
	}
	for _, f := range o.Features {
		if f.Footprint.Len() == 0 {
			t.Fatalf("feature %d has empty footprint after placement", f.ID)
		}
	}
	if grid.FillingErrorSum() < 0 {
		t.Error("filling error sum should never be negative")
	}
}

func TestOptimizationPhaseNeverIncreasesFillingError(t *testing.T) {
	grid := packing.New(16, 16, 16, 1.0, true)
	o := New(grid, true, 16, 16, 16, 2048, 5)
	p, stats := testPhaseStats()
	if err := o.GenerateForPhase(context.Background(), p, stats); err != nil {
		t.Fatal(err)
	}
	if err := o.InitialPlacement(context.Background()); err != nil {
		t.Fatal(err)
	}

	before := grid.FillingError()
	if err := o.OptimizationPhase(context.Background(), 0); err != nil {
		t.Fatal(err)
	}
	after := grid.FillingError()
	if after > before+1e-9 {
		t.Errorf("filling error increased: before=%v after=%v", before, after)
	}
}

func TestOptimizationPhaseRespectsCancellation(t *testing.T) {
	grid := packing.New(16, 16, 16, 1.0, true)
	o := New(grid, true, 16, 16, 16, 2048, 5)
	p, stats := testPhaseStats()
	if err := o.GenerateForPhase(context.Background(), p, stats); err != nil {
		t.Fatal(err)
	}
	if err := o.InitialPlacement(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := o.OptimizationPhase(ctx, 0); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestGoalErrorsNonNegative(t *testing.T) {
	grid := packing.New(16, 16, 16, 1.0, true)
	o := New(grid, true, 16, 16, 16, 2048, 3)
	p, stats := testPhaseStats()
	if err := o.GenerateForPhase(context.Background(), p, stats); err != nil {
		t.Fatal(err)
	}
	if err := o.InitialPlacement(context.Background()); err != nil {
		t.Fatal(err)
	}
	filling, size, neighbor := o.GoalErrors()
	if filling < 0 || size < -1e-9 || neighbor < -1e-9 {
		t.Errorf("expected non-negative errors, got filling=%v size=%v neighbor=%v", filling, size, neighbor)
	}
}
