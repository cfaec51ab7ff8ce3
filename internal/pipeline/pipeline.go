package pipeline

import (
	"context"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/gapfill"
	"github.com/pthm-cable/microforge/internal/ioattrs"
	"github.com/pthm-cable/microforge/internal/islands"
	"github.com/pthm-cable/microforge/internal/loader"
	"github.com/pthm-cable/microforge/internal/optimizer"
	"github.com/pthm-cable/microforge/internal/packing"
	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/raster"
	"github.com/pthm-cable/microforge/internal/shapes"
	"github.com/pthm-cable/microforge/internal/telemetry"
	"github.com/pthm-cable/microforge/internal/volume"
)

// ProgressFunc is an optional cooperative-cancellation / progress hook
// surfaced to the caller at every suspension point of spec.md 5.
type ProgressFunc func(phase string, done, total int)

// Result is the pipeline's output surface (spec.md 6): per-voxel arrays
// plus the per-feature attribute table, whose retention is governed by
// RunConfig.SaveGeometricDescriptions.
type Result struct {
	Volume   *volume.Volume
	Features []*feature.Feature
	Summary  telemetry.Summary
}

// Run wires phase statistics, the generator or loader, the placement
// optimiser, the rasteriser, the gap filler, and island cleanup into one
// pipeline execution (spec.md 2's data flow), in the teacher's
// single-struct, single-entry-point orchestration style (main.go). mask is
// the optional per-voxel mask of spec.md 6 (nx*ny*nz bools, true = eligible
// for feature assignment); it is only applied when cfg.UseMask is set and
// is ignored otherwise, so a caller can't silently mask a run it didn't ask
// for.
func Run(ctx context.Context, cfg RunConfig, stats phase.StatsSource, mask []bool, base *telemetry.Logger, onProgress ProgressFunc) (*Result, error) {
	start := time.Now()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if cfg.UseMask && mask == nil {
		return nil, fmt.Errorf("%w: use_mask is set but no mask was supplied", ErrInvalidInput)
	}
	if !cfg.UseMask {
		mask = nil
	}

	runID := telemetry.RunID(uuid.NewString())
	logger := telemetry.New(nil, runID)
	if base != nil {
		logger = telemetry.New(base.Raw(), runID)
	}

	vol, err := volume.New(cfg.NX, cfg.NY, cfg.NZ, cfg.Spacing, cfg.Origin, cfg.Units, mask)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeometryMismatch, err)
	}

	grid := packing.New(cfg.NX, cfg.NY, cfg.NZ, cfg.Spacing[0], cfg.PeriodicBoundaries)
	totalVolume := float64(cfg.NX) * float64(cfg.NY) * float64(cfg.NZ) * cfg.Spacing[0] * cfg.Spacing[1] * cfg.Spacing[2]
	voxelVolume := cfg.Spacing[0] * cfg.Spacing[1] * cfg.Spacing[2]

	indices := stats.PhaseIndices()
	sort.Ints(indices)

	phasesByIdx := make(map[int32]phase.Phase, len(indices))
	for _, idx := range indices {
		p, err := stats.Phase(idx)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		phasesByIdx[int32(p.Index)] = p
	}

	var features []*feature.Feature
	var sizeErr, neighborErr float64

	switch cfg.FeatureGeneration {
	case ModeLoad:
		logger.PhaseStart("load")
		f, err := os.Open(cfg.FeatureFilePath)
		if err != nil {
			return nil, fmt.Errorf("%w: opening %s: %v", ErrIOFailure, cfg.FeatureFilePath, err)
		}
		defer f.Close()

		features, err = loader.Load(f, shapes.Ellipsoid)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrIOFailure, err)
		}
		for _, feat := range features {
			if p, ok := phasesByIdx[feat.Phase]; ok {
				feat.ShapeClass = p.ShapeTag
			}
		}
		logger.PhaseEnd("load", start, "count", len(features))

	case ModeGenerate, "":
		seed := time.Now().UnixNano()
		if cfg.SeedOverride != nil {
			seed = *cfg.SeedOverride
		}
		opt := optimizer.New(grid, cfg.PeriodicBoundaries,
			float64(cfg.NX)*cfg.Spacing[0], float64(cfg.NY)*cfg.Spacing[1], float64(cfg.NZ)*cfg.Spacing[2],
			totalVolume, seed)
		if onProgress != nil {
			opt.OnProgress = optimizer.Progress(onProgress)
		}

		if err := runPhasePass(ctx, opt, stats, indices, phase.Primary, logger); err != nil {
			return nil, err
		}
		if err := opt.OptimizationPhase(ctx, 0); err != nil {
			return nil, err
		}
		firstPrecipitate := len(opt.Features)

		// Precipitate pass, layered onto the same grid's primary owner
		// counts (SPEC_FULL supplemented feature 1).
		if err := runPhasePass(ctx, opt, stats, indices, phase.Precipitate, logger); err != nil {
			return nil, err
		}
		if err := opt.OptimizationPhase(ctx, firstPrecipitate); err != nil {
			return nil, err
		}

		features = opt.Features
		_, sizeErr, neighborErr = opt.GoalErrors()

	default:
		return nil, fmt.Errorf("%w: unrecognised feature_generation %q", ErrInvalidInput, cfg.FeatureGeneration)
	}

	logger.PhaseStart("rasterize")
	if err := raster.Rasterize(ctx, vol, features, raster.Options{
		Periodic:  cfg.PeriodicBoundaries,
		OnFeature: progressAdapter(onProgress, "rasterize"),
	}); err != nil {
		return nil, err
	}
	logger.PhaseEnd("rasterize", start)

	logger.PhaseStart("gapfill")
	if _, err := gapfill.Fill(ctx, vol, cfg.PeriodicBoundaries); err != nil {
		return nil, err
	}
	logger.PhaseEnd("gapfill", start)

	minVoxelThreshold := make(map[int32]float64, len(phasesByIdx))
	for idx, p := range phasesByIdx {
		ps, err := stats.Stats(int(idx))
		if err != nil {
			continue
		}
		minVoxelThreshold[int32(p.Index)] = islands.MinVoxelThreshold(ps.Size.MinDia, voxelVolume)
	}

	logger.PhaseStart("cleanup")
	features, err = islands.Clean(ctx, vol, features, minVoxelThreshold, cfg.PeriodicBoundaries)
	if err != nil {
		return nil, err
	}
	logger.PhaseEnd("cleanup", start)

	applyPhaseIDs(vol, features)

	if cfg.WriteGoalAttributes {
		path := cfg.GoalAttributesPath
		if path == "" {
			path = "goal_attributes.csv"
		}
		if err := ioattrs.WriteFile(path, features); err != nil {
			return nil, err
		}
	}

	if cfg.SaveGeometricDescriptions == SaveNone {
		features = nil
	}

	assigned, background := countAssigned(vol)
	summary := telemetry.Summary{
		RunID:           runID,
		FeatureCount:    len(features),
		AssignedVoxels:  assigned,
		BackgroundVoxel: background,
		FillingError:    grid.FillingError(),
		SizeError:       sizeErr,
		NeighborError:   neighborErr,
		Elapsed:         time.Since(start),
	}
	logger.Raw().Info("run_complete", "summary", summary)

	return &Result{Volume: vol, Features: features, Summary: summary}, nil
}

// runPhasePass generates and places every phase of the given kind, in
// index order, on the shared optimiser.
func runPhasePass(ctx context.Context, opt *optimizer.Optimizer, stats phase.StatsSource, indices []int, kind phase.Kind, logger *telemetry.Logger) error {
	for _, idx := range indices {
		p, err := stats.Phase(idx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		if p.Kind != kind {
			continue
		}
		ps, err := stats.Stats(idx)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}

		phaseStart := time.Now()
		logger.PhaseStart("generate", "phase", idx, "kind", kind)
		if err := opt.GenerateForPhase(ctx, p, ps); err != nil {
			return err
		}
		if err := opt.InitialPlacement(ctx); err != nil {
			return err
		}
		logger.PhaseEnd("generate", phaseStart, "phase", idx, "features", len(opt.Features))
	}
	return nil
}

func applyPhaseIDs(vol *volume.Volume, features []*feature.Feature) {
	byID := make(map[int32]int32, len(features))
	for _, f := range features {
		byID[f.ID] = f.Phase
	}
	for i, id := range vol.FeatureID {
		if id > 0 {
			vol.PhaseID[i] = byID[id]
		}
	}
}

func countAssigned(vol *volume.Volume) (assigned, background int) {
	for _, id := range vol.FeatureID {
		if id > 0 {
			assigned++
		} else {
			background++
		}
	}
	return
}

func progressAdapter(f ProgressFunc, phaseName string) func(done, total int) {
	if f == nil {
		return nil
	}
	return func(done, total int) { f(phaseName, done, total) }
}
