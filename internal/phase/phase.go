// Package phase defines the Phase and PhaseStats data model (spec.md 3)
// and the narrow interface the core consumes phase statistics through
// (spec.md 1: "The core consumes phase-statistics objects through a
// narrow interface"). Grounded on the teacher's config.Config struct tree
// (config/config.go), which is loaded the same way: YAML with an embedded
// defaults fallback.
package phase

import (
	"fmt"

	"github.com/pthm-cable/microforge/internal/shapes"
)

// Kind is the phase category.
type Kind uint8

const (
	Primary Kind = iota
	Precipitate
	Matrix
	Boundary
	Transformation
	UnknownKind
)

// Symmetry is the crystallographic symmetry tag used for ODF bin indexing.
type Symmetry uint8

const (
	SymmetryCubicM3M Symmetry = iota
	SymmetryHexagonalMmm
)

// Phase is one material class with its shape/fraction/symmetry metadata.
type Phase struct {
	Index    int          `yaml:"index"`
	Kind     Kind         `yaml:"kind"`
	Symmetry Symmetry     `yaml:"symmetry"`
	ShapeTag shapes.Class `yaml:"shape"`
	Fraction float64      `yaml:"fraction"`
	Name     string       `yaml:"name"`
}

// SizeDistribution is a lognormal feature-size distribution with clipping,
// per spec.md 3 ("lognormal mu,sigma with min/max diameter clip, bin step").
type SizeDistribution struct {
	Mu      float64 `yaml:"mu"`
	Sigma   float64 `yaml:"sigma"`
	MinDia  float64 `yaml:"min_dia"`
	MaxDia  float64 `yaml:"max_dia"`
	BinStep float64 `yaml:"bin_step"`
}

// NumBins returns the number of diameter histogram bins implied by the
// distribution's clip range and bin step, using the half-offset convention
// of feature.DiameterBin.
func (d SizeDistribution) NumBins() int {
	n := int((d.MaxDia-d.MinDia/2)/d.BinStep) + 1
	if n < 1 {
		n = 1
	}
	return n
}

// BetaParams holds a Beta(alpha, beta) distribution's shape parameters.
// Alpha<=0 || Beta<=0 marks a degenerate (unset) bin (spec.md 4.3 step 2).
type BetaParams struct {
	Alpha float64 `yaml:"alpha"`
	Beta  float64 `yaml:"beta"`
}

// Degenerate reports whether the bin has no usable parameters.
func (b BetaParams) Degenerate() bool { return b.Alpha <= 0 || b.Beta <= 0 }

// NeighborBin is a per-diameter-bin lognormal neighbourhood-count goal.
type NeighborBin struct {
	Mu    float64 `yaml:"mu"`
	Sigma float64 `yaml:"sigma"`
}

// PhaseStats holds every per-phase statistical distribution the generator
// and optimiser draw from (spec.md 3).
type PhaseStats struct {
	Size SizeDistribution `yaml:"size"`

	// Per-diameter-bin aspect ratio parameters, indexed by feature.DiameterBin.
	BOverA []BetaParams `yaml:"b_over_a"`
	COverA []BetaParams `yaml:"c_over_a"`

	// Per-diameter-bin omega3 irregularity parameters.
	Omega3 []BetaParams `yaml:"omega3"`

	// Per-diameter-bin neighbourhood-count goal distribution.
	Neighbor []NeighborBin `yaml:"neighbor"`

	// Axis-ODF probability mass over discrete Euler bins; nil means uniform.
	ODFBinMass    []float64 `yaml:"odf_bin_mass"`
	ODFGroup      int       `yaml:"odf_group"`      // orientation.LaueGroup value, stored as int
	ODFResolution int       `yaml:"odf_resolution"`

	// SizeCorrelationBins is the bin count used for spatial size-correlation
	// goals (spec.md 3). It is loaded with the statistics but no goal-error
	// computation reads it, and no spatial correlation is computed.
	SizeCorrelationBins int `yaml:"size_correlation_bins"`
}

// NearestNonDegenerate walks outward from bin until it finds a non-
// degenerate BetaParams, per spec.md 4.3 step 2 ("walk outward to the
// nearest non-degenerate bin before drawing").
func NearestNonDegenerate(params []BetaParams, bin int) (BetaParams, error) {
	if len(params) == 0 {
		return BetaParams{}, fmt.Errorf("phase: empty parameter table")
	}
	if bin < 0 {
		bin = 0
	}
	if bin >= len(params) {
		bin = len(params) - 1
	}
	if !params[bin].Degenerate() {
		return params[bin], nil
	}
	for offset := 1; offset < len(params); offset++ {
		if lo := bin - offset; lo >= 0 && !params[lo].Degenerate() {
			return params[lo], nil
		}
		if hi := bin + offset; hi < len(params) && !params[hi].Degenerate() {
			return params[hi], nil
		}
	}
	return BetaParams{}, fmt.Errorf("phase: no non-degenerate bin found around %d", bin)
}

// StatsSource is the narrow interface the core consumes phase statistics
// through (spec.md 1, 6): an external collaborator (UI, file loader,
// generated-ensemble-statistics tool) supplies Phase and PhaseStats by
// index; the core never constructs phase statistics itself.
type StatsSource interface {
	Phase(index int) (Phase, error)
	Stats(index int) (PhaseStats, error)
	PhaseIndices() []int
}

// ErrMissingPhase is InvalidInput's cause when a referenced phase has no
// supplied statistics (spec.md 7).
var ErrMissingPhase = fmt.Errorf("phase: missing stats for referenced phase")

// NormalizeFractions scales a set of phase fractions so they sum to 1,
// returning an error if the sum is zero (spec.md 7: InvalidInput on "sum
// of phase fractions zero").
func NormalizeFractions(fractions map[int]float64) (map[int]float64, error) {
	var sum float64
	for _, f := range fractions {
		sum += f
	}
	if sum <= 0 {
		return nil, fmt.Errorf("phase: %w: phase fractions sum to zero", ErrZeroFractionSum)
	}
	out := make(map[int]float64, len(fractions))
	for idx, f := range fractions {
		out[idx] = f / sum
	}
	return out, nil
}

// ErrZeroFractionSum is returned by NormalizeFractions when every supplied
// fraction is zero or negative.
var ErrZeroFractionSum = fmt.Errorf("phase: zero fraction sum")
