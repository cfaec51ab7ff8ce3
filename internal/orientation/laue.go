package orientation

import "math"

// LaueGroup identifies a crystal symmetry class used for ODF bin indexing.
type LaueGroup uint8

const (
	// CubicM3M is the m-3m Laue class (e.g. FCC/BCC metals), 24 proper
	// rotation operators.
	CubicM3M LaueGroup = iota
	// HexagonalMmm is the 6/mmm Laue class, 12 proper rotation operators.
	HexagonalMmm
	// Orthorhombic is the mmm Laue class (4 operators), used for the
	// within-bin perturbation of axis-ODF sampling (spec.md 4.3 step 3).
	Orthorhombic
)

// Operators returns the proper rotation quaternions of the group, applied
// as q_sym * q to enumerate symmetrically equivalent orientations.
func (g LaueGroup) Operators() []Quaternion {
	switch g {
	case CubicM3M:
		return cubicOperators()
	case HexagonalMmm:
		return hexagonalOperators()
	default:
		return orthorhombicOperators()
	}
}

// NumBins returns the number of discrete Euler bins conventionally used for
// this group's fundamental zone at a given per-axis resolution.
func (g LaueGroup) NumBins(resolution int) int {
	switch g {
	case CubicM3M:
		// Fundamental zone phi1 in [0,90), Phi in [0,90), phi2 in [0,90).
		return resolution * resolution * resolution
	case HexagonalMmm:
		// phi1 in [0,360), Phi in [0,90), phi2 in [0,60).
		return 6 * resolution * resolution
	default:
		return resolution * resolution * resolution
	}
}

// BinIndex maps a Bunge Euler triple to a flat bin index for this group's
// fundamental zone at the given per-axis resolution, after reducing e into
// the fundamental zone via ReduceToFundamentalZone.
func (g LaueGroup) BinIndex(e Euler, resolution int) int {
	red := g.ReduceToFundamentalZone(e)
	switch g {
	case CubicM3M:
		step := (math.Pi / 2) / float64(resolution)
		i := clampBin(int(red.Phi1/step), resolution)
		j := clampBin(int(red.Phi/step), resolution)
		k := clampBin(int(red.Phi2/step), resolution)
		return (i*resolution+j)*resolution + k
	case HexagonalMmm:
		step1 := (2 * math.Pi) / float64(6*resolution)
		step2 := (math.Pi / 2) / float64(resolution)
		i := clampBin(int(red.Phi1/step1), 6*resolution)
		j := clampBin(int(red.Phi/step2), resolution)
		return i*resolution + j
	default:
		step := (math.Pi / 2) / float64(resolution)
		i := clampBin(int(red.Phi1/step), resolution)
		j := clampBin(int(red.Phi/step), resolution)
		k := clampBin(int(red.Phi2/step), resolution)
		return (i*resolution+j)*resolution + k
	}
}

func clampBin(v, n int) int {
	if v < 0 {
		return 0
	}
	if v >= n {
		return n - 1
	}
	return v
}

// ReduceToFundamentalZone applies every symmetry operator of the group to e
// and returns the representative with the smallest total Euler-angle norm,
// a standard (if simplistic) canonical-form choice sufficient for bin
// indexing without needing a full misorientation-angle search.
func (g LaueGroup) ReduceToFundamentalZone(e Euler) Euler {
	q := e.ToQuaternion()
	ops := g.Operators()

	best := e
	bestNorm := math.MaxFloat64
	for _, sym := range ops {
		qe := sym.Mul(q)
		eu := MatrixToEuler(qe.ToMatrix())
		n := eu.Phi1*eu.Phi1 + eu.Phi*eu.Phi + eu.Phi2*eu.Phi2
		if n < bestNorm {
			bestNorm = n
			best = eu
		}
	}
	return best
}

func identityQ() Quaternion { return Quaternion{W: 1} }

// cubicOperators enumerates the 24 proper rotations of the cubic point
// group as unit quaternions: identity, 6 face 4-folds (90/180/270deg about
// x/y/z), 8 corner 3-folds (120/240deg about body diagonals), 6 edge
// 2-folds (180deg about face diagonals).
func cubicOperators() []Quaternion {
	ops := []Quaternion{identityQ()}

	axes4 := [][3]float64{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	for _, ax := range axes4 {
		for _, angle := range []float64{math.Pi / 2, math.Pi, 3 * math.Pi / 2} {
			ops = append(ops, axisAngleQuat(ax, angle))
		}
	}

	diag3 := [][3]float64{
		{1, 1, 1}, {1, 1, -1}, {1, -1, 1}, {1, -1, -1},
	}
	for _, ax := range diag3 {
		for _, angle := range []float64{2 * math.Pi / 3, 4 * math.Pi / 3} {
			ops = append(ops, axisAngleQuat(ax, angle))
		}
	}

	edge2 := [][3]float64{
		{1, 1, 0}, {1, -1, 0}, {1, 0, 1}, {1, 0, -1}, {0, 1, 1}, {0, 1, -1},
	}
	for _, ax := range edge2 {
		ops = append(ops, axisAngleQuat(ax, math.Pi))
	}

	return ops
}

// hexagonalOperators enumerates the 12 proper rotations of the 6/mmm Laue
// class: 6-fold about z plus six 2-folds in the basal plane.
func hexagonalOperators() []Quaternion {
	ops := make([]Quaternion, 0, 12)
	for k := 0; k < 6; k++ {
		ops = append(ops, axisAngleQuat([3]float64{0, 0, 1}, float64(k)*math.Pi/3))
	}
	for k := 0; k < 6; k++ {
		theta := float64(k) * math.Pi / 6
		ax := [3]float64{math.Cos(theta), math.Sin(theta), 0}
		ops = append(ops, axisAngleQuat(ax, math.Pi))
	}
	return ops
}

// orthorhombicOperators enumerates the 4 proper rotations of the mmm Laue
// class: identity plus 180-degree rotations about each coordinate axis.
func orthorhombicOperators() []Quaternion {
	return []Quaternion{
		identityQ(),
		axisAngleQuat([3]float64{1, 0, 0}, math.Pi),
		axisAngleQuat([3]float64{0, 1, 0}, math.Pi),
		axisAngleQuat([3]float64{0, 0, 1}, math.Pi),
	}
}

func axisAngleQuat(axis [3]float64, angle float64) Quaternion {
	n := math.Sqrt(axis[0]*axis[0] + axis[1]*axis[1] + axis[2]*axis[2])
	aa := AxisAngle{AX: axis[0] / n, AY: axis[1] / n, AZ: axis[2] / n, Angle: angle}
	return aa.ToQuaternion()
}
