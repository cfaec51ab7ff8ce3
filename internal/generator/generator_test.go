package generator

import (
	"math"
	"testing"

	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/rng"
	"github.com/pthm-cable/microforge/internal/shapes"
)

func testStats() phase.PhaseStats {
	betaAll := func(n int, a, b float64) []phase.BetaParams {
		out := make([]phase.BetaParams, n)
		for i := range out {
			out[i] = phase.BetaParams{Alpha: a, Beta: b}
		}
		return out
	}
	return phase.PhaseStats{
		Size:     phase.SizeDistribution{Mu: 1.2, Sigma: 0.15, MinDia: 2.0, MaxDia: 6.0, BinStep: 1.0},
		BOverA:   betaAll(8, 10, 10),
		COverA:   betaAll(8, 8, 10),
		Omega3:   betaAll(8, 10, 10),
		Neighbor: make([]phase.NeighborBin, 8),
	}
}

func testPhase() phase.Phase {
	return phase.Phase{Index: 1, Kind: phase.Primary, ShapeTag: shapes.Ellipsoid, Fraction: 1.0}
}

func TestGenerateWithinDiameterClip(t *testing.T) {
	g := New(testPhase(), testStats())
	ctx := rng.New(1)
	for i := 0; i < 200; i++ {
		f, err := g.Generate(ctx)
		if err != nil {
			t.Fatal(err)
		}
		if f.EquivDiameter < 2.0 || f.EquivDiameter > 6.0 {
			t.Fatalf("diameter %v outside clip range", f.EquivDiameter)
		}
		if f.C > f.B+1e-9 {
			t.Fatalf("expected c/a <= b/a, got B=%v C=%v", f.B, f.C)
		}
	}
}

func TestGenerateEllipsoidForcesOmega3One(t *testing.T) {
	g := New(testPhase(), testStats())
	ctx := rng.New(2)
	f, err := g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if f.Omega3 != 1 {
		t.Errorf("expected omega3=1 for ellipsoid, got %v", f.Omega3)
	}
}

func TestGenerateDeterministicGivenSameSeed(t *testing.T) {
	g := New(testPhase(), testStats())

	ctx1 := rng.New(42)
	f1, err := g.Generate(ctx1)
	if err != nil {
		t.Fatal(err)
	}

	ctx2 := rng.New(42)
	f2, err := g.Generate(ctx2)
	if err != nil {
		t.Fatal(err)
	}

	if f1.EquivDiameter != f2.EquivDiameter || f1.B != f2.B || f1.C != f2.C || f1.Phi1 != f2.Phi1 {
		t.Errorf("expected byte-identical features from the same seed: %+v vs %+v", f1, f2)
	}
}

func TestGenerateVolumeMatchesSphereFormula(t *testing.T) {
	g := New(testPhase(), testStats())
	ctx := rng.New(3)
	f, err := g.Generate(ctx)
	if err != nil {
		t.Fatal(err)
	}
	expected := math.Pi * f.EquivDiameter * f.EquivDiameter * f.EquivDiameter / 6
	if math.Abs(f.Volume-expected) > 1e-9 {
		t.Errorf("expected volume %v, got %v", expected, f.Volume)
	}
}

func TestNearestBinWalkOnDegenerateStats(t *testing.T) {
	stats := testStats()
	stats.BOverA[3] = phase.BetaParams{} // degenerate
	g := New(testPhase(), stats)
	ctx := rng.New(9)
	if _, err := g.Generate(ctx); err != nil {
		t.Fatalf("expected degenerate bin to be recovered by nearest-bin walk, got %v", err)
	}
}
