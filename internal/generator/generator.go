// Package generator samples one feature's (volume, diameter bin, aspect
// ratios, orientation, omega3, phase) from per-phase distributions via a
// seeded PRNG (spec.md 4.3). Grounded on the teacher's neural.GenerateMorphology
// (neural/morphology.go) for the shape — candidate draw, rejection/viability
// checks, deterministic-from-seed contract — generalised from a CPPN grid
// query to gonum's distuv samplers.
package generator

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/orientation"
	"github.com/pthm-cable/microforge/internal/phase"
	"github.com/pthm-cable/microforge/internal/rng"
	"github.com/pthm-cable/microforge/internal/shapes"
)

// MaxDiameterRejections bounds the diameter-clip rejection loop of step 1
// so a pathological distribution (entirely outside [minDia,maxDia]) fails
// loudly instead of spinning forever.
const MaxDiameterRejections = 10000

// MaxAspectRejections bounds the c/a > b/a rejection loop of step 2.
const MaxAspectRejections = 10000

// Generator samples Feature records for one phase from its PhaseStats.
type Generator struct {
	Phase phase.Phase
	Stats phase.PhaseStats
	ODF   *orientation.AxisODF
}

// New builds a Generator for a phase, defaulting to a uniform ODF when the
// supplied statistics carry no bin mass.
func New(p phase.Phase, stats phase.PhaseStats) *Generator {
	group := orientation.CubicM3M
	if stats.ODFGroup == int(orientation.HexagonalMmm) {
		group = orientation.HexagonalMmm
	}
	resolution := stats.ODFResolution
	if resolution < 1 {
		resolution = 4
	}

	var odf *orientation.AxisODF
	if len(stats.ODFBinMass) > 0 {
		odf = &orientation.AxisODF{Group: group, Resolution: resolution, BinMass: stats.ODFBinMass}
	} else {
		odf = orientation.Uniform(group, resolution)
	}

	return &Generator{Phase: p, Stats: stats, ODF: odf}
}

// Generate draws one Feature record. ctx is consumed exactly once per call
// (spec.md 4.3: "deterministic in the seed; same seed + same phase
// statistics must yield byte-identical Feature records").
func (g *Generator) Generate(ctx *rng.Context) (feature.Feature, error) {
	d, err := g.sampleDiameter(ctx)
	if err != nil {
		return feature.Feature{}, err
	}
	volume := math.Pi * d * d * d / 6

	bin := feature.DiameterBin(d, g.Stats.Size.MinDia, g.Stats.Size.BinStep, g.Stats.Size.NumBins())

	bOverA, cOverA, err := g.sampleAspectRatios(ctx, bin)
	if err != nil {
		return feature.Feature{}, err
	}

	euler := g.ODF.Sample(ctx.Rand())

	omega3, err := g.sampleOmega3(ctx, bin)
	if err != nil {
		return feature.Feature{}, err
	}
	if g.Phase.ShapeTag == shapes.Ellipsoid {
		omega3 = 1
	}

	ops, err := shapes.For(g.Phase.ShapeTag)
	if err != nil {
		return feature.Feature{}, err
	}
	a := ops.RadiusFrom(volume, omega3, bOverA, cOverA)

	f := feature.Feature{
		Phase:         int32(g.Phase.Index),
		Volume:        volume,
		EquivDiameter: d,
		A:             a,
		B:             a * bOverA,
		C:             a * cOverA,
		Phi1:          euler.Phi1,
		Phi:           euler.Phi,
		Phi2:          euler.Phi2,
		Omega3:        omega3,
		ShapeClass:    g.Phase.ShapeTag,
	}
	return f, nil
}

// sampleDiameter implements spec.md 4.3 step 1: draw a log-diameter from
// Normal(mu,sigma), reject and resample until the exponentiated diameter
// lies in [minDia, maxDia].
func (g *Generator) sampleDiameter(ctx *rng.Context) (float64, error) {
	dist := distuv.Normal{Mu: g.Stats.Size.Mu, Sigma: g.Stats.Size.Sigma, Src: ctx.Rand()}
	for i := 0; i < MaxDiameterRejections; i++ {
		logD := dist.Rand()
		d := math.Exp(logD)
		if d >= g.Stats.Size.MinDia && d <= g.Stats.Size.MaxDia {
			return d, nil
		}
	}
	return 0, fmt.Errorf("generator: %w: diameter distribution never landed in [%v,%v] after %d draws",
		ErrInvalidInput, g.Stats.Size.MinDia, g.Stats.Size.MaxDia, MaxDiameterRejections)
}

// sampleAspectRatios implements spec.md 4.3 step 2: draw b/a and c/a each
// from Beta(alpha,beta) at the diameter bin, rejecting joint draws with
// c/a > b/a by resampling both; degenerate bins walk outward first.
func (g *Generator) sampleAspectRatios(ctx *rng.Context, bin int) (bOverA, cOverA float64, err error) {
	bParams, err := phase.NearestNonDegenerate(g.Stats.BOverA, bin)
	if err != nil {
		return 0, 0, fmt.Errorf("generator: %w: %v", ErrInvalidInput, err)
	}
	cParams, err := phase.NearestNonDegenerate(g.Stats.COverA, bin)
	if err != nil {
		return 0, 0, fmt.Errorf("generator: %w: %v", ErrInvalidInput, err)
	}

	bDist := distuv.Beta{Alpha: bParams.Alpha, Beta: bParams.Beta, Src: ctx.Rand()}
	cDist := distuv.Beta{Alpha: cParams.Alpha, Beta: cParams.Beta, Src: ctx.Rand()}

	for i := 0; i < MaxAspectRejections; i++ {
		b := bDist.Rand()
		c := cDist.Rand()
		if c <= b {
			return b, c, nil
		}
	}
	return 0, 0, fmt.Errorf("generator: %w: c/a > b/a on every draw after %d attempts",
		ErrInvalidInput, MaxAspectRejections)
}

// sampleOmega3 draws irregularity from Beta(alpha,beta) at the diameter
// bin, walking outward from degenerate bins like the aspect-ratio draw.
func (g *Generator) sampleOmega3(ctx *rng.Context, bin int) (float64, error) {
	params, err := phase.NearestNonDegenerate(g.Stats.Omega3, bin)
	if err != nil {
		return 0, fmt.Errorf("generator: %w: %v", ErrInvalidInput, err)
	}
	dist := distuv.Beta{Alpha: params.Alpha, Beta: params.Beta, Src: ctx.Rand()}
	return dist.Rand(), nil
}

// ErrInvalidInput mirrors spec.md 7's InvalidInput category for statistics
// the generator cannot recover from by resampling or bin-walking.
var ErrInvalidInput = fmt.Errorf("generator: invalid input")
