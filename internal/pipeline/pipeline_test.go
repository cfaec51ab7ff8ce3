package pipeline

import (
	"context"
	"testing"

	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/shapes"
)

type memStatsSource struct {
	phases map[int]phase.Phase
	stats  map[int]phase.PhaseStats
}

func (m memStatsSource) Phase(index int) (phase.Phase, error) {
	p, ok := m.phases[index]
	if !ok {
		return phase.Phase{}, phase.ErrMissingPhase
	}
	return p, nil
}

func (m memStatsSource) Stats(index int) (phase.PhaseStats, error) {
	s, ok := m.stats[index]
	if !ok {
		return phase.PhaseStats{}, phase.ErrMissingPhase
	}
	return s, nil
}

func (m memStatsSource) PhaseIndices() []int {
	out := make([]int, 0, len(m.phases))
	for idx := range m.phases {
		out = append(out, idx)
	}
	return out
}

func smallSource() memStatsSource {
	betaAll := func(n int, a, b float64) []phase.BetaParams {
		out := make([]phase.BetaParams, n)
		for i := range out {
			out[i] = phase.BetaParams{Alpha: a, Beta: b}
		}
		return out
	}
	stats := phase.PhaseStats{
		Size:     phase.SizeDistribution{Mu: 0.7, Sigma: 0.1, MinDia: 2, MaxDia: 3, BinStep: 1.0},
		BOverA:   betaAll(2, 10, 10),
		COverA:   betaAll(2, 8, 10),
		Omega3:   betaAll(2, 10, 10),
		Neighbor: make([]phase.NeighborBin, 2),
	}
	p := phase.Phase{Index: 1, Kind: phase.Primary, ShapeTag: shapes.Ellipsoid, Fraction: 1.0}
	return memStatsSource{
		phases: map[int]phase.Phase{1: p},
		stats:  map[int]phase.PhaseStats{1: stats},
	}
}

func TestRunRejectsNonPositiveExtents(t *testing.T) {
	cfg := RunConfig{NX: 0, NY: 8, NZ: 8, Spacing: [3]float64{1, 1, 1}}
	if _, err := Run(context.Background(), cfg, smallSource(), nil, nil, nil); err == nil {
		t.Fatal("expected geometry mismatch error")
	}
}

func TestRunPlacesAndRefinesPrecipitatePhase(t *testing.T) {
	betaAll := func(n int, a, b float64) []phase.BetaParams {
		out := make([]phase.BetaParams, n)
		for i := range out {
			out[i] = phase.BetaParams{Alpha: a, Beta: b}
		}
		return out
	}
	primaryStats := phase.PhaseStats{
		Size:     phase.SizeDistribution{Mu: 0.7, Sigma: 0.1, MinDia: 2, MaxDia: 3, BinStep: 1.0},
		BOverA:   betaAll(2, 10, 10),
		COverA:   betaAll(2, 8, 10),
		Omega3:   betaAll(2, 10, 10),
		Neighbor: make([]phase.NeighborBin, 2),
	}
	precipStats := phase.PhaseStats{
		Size:     phase.SizeDistribution{Mu: 0.2, Sigma: 0.1, MinDia: 0.5, MaxDia: 1, BinStep: 0.5},
		BOverA:   betaAll(2, 10, 10),
		COverA:   betaAll(2, 8, 10),
		Omega3:   betaAll(2, 10, 10),
		Neighbor: make([]phase.NeighborBin, 2),
	}
	source := memStatsSource{
		phases: map[int]phase.Phase{
			1: {Index: 1, Kind: phase.Primary, ShapeTag: shapes.Ellipsoid, Fraction: 0.5},
			2: {Index: 2, Kind: phase.Precipitate, ShapeTag: shapes.Ellipsoid, Fraction: 0.05},
		},
		stats: map[int]phase.PhaseStats{1: primaryStats, 2: precipStats},
	}

	seed := int64(11)
	cfg := RunConfig{
		NX: 20, NY: 20, NZ: 20,
		Spacing:            [3]float64{1, 1, 1},
		PeriodicBoundaries: true,
		FeatureGeneration:  ModeGenerate,
		SeedOverride:       &seed,
	}
	result, err := Run(context.Background(), cfg, source, nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	var sawPrimary, sawPrecipitate bool
	for _, f := range result.Features {
		switch f.Phase {
		case 1:
			sawPrimary = true
		case 2:
			sawPrecipitate = true
		}
	}
	if !sawPrimary {
		t.Error("expected at least one primary-phase feature")
	}
	if !sawPrecipitate {
		t.Error("expected at least one precipitate-phase feature, placement and refinement should both run on it")
	}
}

func TestRunGeneratesRasterizesAndCleans(t *testing.T) {
	seed := int64(42)
	cfg := RunConfig{
		NX: 16, NY: 16, NZ: 16,
		Spacing:            [3]float64{1, 1, 1},
		PeriodicBoundaries: true,
		FeatureGeneration:  ModeGenerate,
		SeedOverride:       &seed,
	}
	result, err := Run(context.Background(), cfg, smallSource(), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Volume.NumVoxels() != 16*16*16 {
		t.Errorf("unexpected voxel count %d", result.Volume.NumVoxels())
	}
	total := 0
	for _, id := range result.Volume.FeatureID {
		if id > 0 {
			total++
		}
	}
	if total == 0 {
		t.Error("expected some voxels assigned to features")
	}
}

func TestRunRespectsSaveGeometricDescriptionsNone(t *testing.T) {
	seed := int64(7)
	cfg := RunConfig{
		NX: 12, NY: 12, NZ: 12,
		Spacing:                   [3]float64{1, 1, 1},
		PeriodicBoundaries:        true,
		FeatureGeneration:         ModeGenerate,
		SaveGeometricDescriptions: SaveNone,
		SeedOverride:              &seed,
	}
	result, err := Run(context.Background(), cfg, smallSource(), nil, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if result.Features != nil {
		t.Errorf("expected nil features under save=none, got %d", len(result.Features))
	}
}

func TestRunCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	cfg := RunConfig{NX: 8, NY: 8, NZ: 8, Spacing: [3]float64{1, 1, 1}, FeatureGeneration: ModeGenerate}
	if _, err := Run(ctx, cfg, smallSource(), nil, nil, nil); err == nil {
		t.Fatal("expected cancellation error")
	}
}

func TestRunRejectsUseMaskWithoutMask(t *testing.T) {
	cfg := RunConfig{NX: 8, NY: 8, NZ: 8, Spacing: [3]float64{1, 1, 1}, UseMask: true, FeatureGeneration: ModeGenerate}
	if _, err := Run(context.Background(), cfg, smallSource(), nil, nil, nil); err == nil {
		t.Fatal("expected an error when use_mask is set but no mask is supplied")
	}
}

func TestRunHonoursMaskHalfVolume(t *testing.T) {
	// spec.md scenario E: mask out z >= NZ/2, expect no positive feature id there.
	const nx, ny, nz = 16, 16, 16
	mask := make([]bool, nx*ny*nz)
	for z := 0; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				mask[(z*ny+y)*nx+x] = z < nz/2
			}
		}
	}

	seed := int64(5)
	cfg := RunConfig{
		NX: nx, NY: ny, NZ: nz,
		Spacing:            [3]float64{1, 1, 1},
		PeriodicBoundaries: true,
		UseMask:            true,
		FeatureGeneration:  ModeGenerate,
		SeedOverride:       &seed,
	}
	result, err := Run(context.Background(), cfg, smallSource(), mask, nil, nil)
	if err != nil {
		t.Fatal(err)
	}

	for z := nz / 2; z < nz; z++ {
		for y := 0; y < ny; y++ {
			for x := 0; x < nx; x++ {
				idx := result.Volume.Index(x, y, z)
				if result.Volume.FeatureID[idx] > 0 {
					t.Fatalf("voxel (%d,%d,%d) masked out but has feature id %d", x, y, z, result.Volume.FeatureID[idx])
				}
			}
		}
	}
}
