package orientation

import (
	"math"
	"math/rand"

	"gonum.org/v1/gonum/stat/sampleuv"
)

// AxisODF is a discretised orientation distribution function: a probability
// mass per Euler bin at a fixed per-axis resolution, for one Laue group.
type AxisODF struct {
	Group      LaueGroup
	Resolution int
	BinMass    []float64 // length Group.NumBins(Resolution), sums to ~1
}

// Sample draws one Euler triple from the ODF: inverse-CDF bin selection
// weighted by BinMass, followed by a uniform perturbation inside the
// selected bin using the orthorhombic symmetry operators to avoid biasing
// all draws toward the bin's canonical corner (spec.md 4.3 step 3).
func (odf *AxisODF) Sample(rng *rand.Rand) Euler {
	if len(odf.BinMass) == 0 {
		return Euler{}
	}
	w := sampleuv.NewWeighted(odf.BinMass, rng)
	bin, ok := w.Take()
	if !ok {
		bin = 0
	}

	base := odf.binLowerCorner(bin)
	step := odf.binStep()

	perturbed := Euler{
		Phi1: base.Phi1 + rng.Float64()*step.Phi1,
		Phi:  base.Phi + rng.Float64()*step.Phi,
		Phi2: base.Phi2 + rng.Float64()*step.Phi2,
	}

	// Apply a random orthorhombic symmetry operator so the perturbation
	// is not systematically biased toward one octant of the bin.
	ops := Orthorhombic.Operators()
	sym := ops[rng.Intn(len(ops))]
	q := sym.Mul(perturbed.ToQuaternion())
	return MatrixToEuler(q.ToMatrix())
}

func (odf *AxisODF) binStep() Euler {
	switch odf.Group {
	case CubicM3M:
		s := (math.Pi / 2) / float64(odf.Resolution)
		return Euler{Phi1: s, Phi: s, Phi2: s}
	case HexagonalMmm:
		return Euler{Phi1: (2 * math.Pi) / float64(6*odf.Resolution), Phi: (math.Pi / 2) / float64(odf.Resolution)}
	default:
		s := (math.Pi / 2) / float64(odf.Resolution)
		return Euler{Phi1: s, Phi: s, Phi2: s}
	}
}

func (odf *AxisODF) binLowerCorner(bin int) Euler {
	res := odf.Resolution
	step := odf.binStep()
	switch odf.Group {
	case CubicM3M:
		k := bin % res
		j := (bin / res) % res
		i := bin / (res * res)
		return Euler{Phi1: float64(i) * step.Phi1, Phi: float64(j) * step.Phi, Phi2: float64(k) * step.Phi2}
	case HexagonalMmm:
		j := bin % res
		i := bin / res
		return Euler{Phi1: float64(i) * step.Phi1, Phi: float64(j) * step.Phi}
	default:
		k := bin % res
		j := (bin / res) % res
		i := bin / (res * res)
		return Euler{Phi1: float64(i) * step.Phi1, Phi: float64(j) * step.Phi, Phi2: float64(k) * step.Phi2}
	}
}

// Uniform returns an AxisODF with uniform mass over every bin, the default
// used when a phase supplies no texture.
func Uniform(group LaueGroup, resolution int) *AxisODF {
	n := group.NumBins(resolution)
	mass := make([]float64, n)
	u := 1.0 / float64(n)
	for i := range mass {
		mass[i] = u
	}
	return &AxisODF{Group: group, Resolution: resolution, BinMass: mass}
}
