// Package orientation converts between Euler-angle, rotation-matrix,
// quaternion, and axis-angle representations, enumerates Laue-group
// symmetry operators for cubic-m3m and hexagonal-6/mmm crystal classes,
// and samples feature axis orientations from a discretised ODF.
package orientation

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// Euler is a Bunge (z-x-z) Euler triple in radians: (phi1, Phi, phi2).
type Euler struct {
	Phi1, Phi, Phi2 float64
}

// ToMatrix builds the 3x3 passive rotation matrix G for the Bunge
// convention used throughout the packing core: crystal frame = G * sample frame.
func (e Euler) ToMatrix() *mat.Dense {
	c1, s1 := math.Cos(e.Phi1), math.Sin(e.Phi1)
	c, s := math.Cos(e.Phi), math.Sin(e.Phi)
	c2, s2 := math.Cos(e.Phi2), math.Sin(e.Phi2)

	g := mat.NewDense(3, 3, []float64{
		c1*c2 - s1*s2*c, s1*c2 + c1*s2*c, s2 * s,
		-c1*s2 - s1*c2*c, -s1*s2 + c1*c2*c, c2 * s,
		s1 * s, -c1 * s, c,
	})
	return g
}

// MatrixToEuler recovers a Bunge Euler triple from a 3x3 passive rotation
// matrix. Degenerate (Phi close to 0 or pi) cases fold phi2 into phi1.
func MatrixToEuler(g *mat.Dense) Euler {
	g33 := g.At(2, 2)
	if g33 > 1 {
		g33 = 1
	} else if g33 < -1 {
		g33 = -1
	}
	Phi := math.Acos(g33)

	const eps = 1e-9
	if math.Abs(math.Sin(Phi)) < eps {
		// Degenerate: only phi1+phi2 (or phi1-phi2) is determined.
		phi1 := math.Atan2(g.At(0, 1), g.At(0, 0))
		return Euler{Phi1: phi1, Phi: Phi, Phi2: 0}
	}

	phi1 := math.Atan2(g.At(2, 0), -g.At(2, 1))
	phi2 := math.Atan2(g.At(0, 2), g.At(1, 2))
	return Euler{Phi1: normalizeAngle(phi1), Phi: Phi, Phi2: normalizeAngle(phi2)}
}

// Quaternion is a unit quaternion (w, x, y, z).
type Quaternion struct {
	W, X, Y, Z float64
}

// ToQuaternion converts a Bunge Euler triple to a unit quaternion.
func (e Euler) ToQuaternion() Quaternion {
	g := e.ToMatrix()
	return MatrixToQuaternion(g)
}

// MatrixToQuaternion converts a rotation matrix to a unit quaternion using
// the standard trace-based extraction, numerically stable for all rotations.
func MatrixToQuaternion(g *mat.Dense) Quaternion {
	m00, m01, m02 := g.At(0, 0), g.At(0, 1), g.At(0, 2)
	m10, m11, m12 := g.At(1, 0), g.At(1, 1), g.At(1, 2)
	m20, m21, m22 := g.At(2, 0), g.At(2, 1), g.At(2, 2)

	trace := m00 + m11 + m22
	var q Quaternion
	switch {
	case trace > 0:
		s := 0.5 / math.Sqrt(trace+1.0)
		q = Quaternion{W: 0.25 / s, X: (m21 - m12) * s, Y: (m02 - m20) * s, Z: (m10 - m01) * s}
	case m00 > m11 && m00 > m22:
		s := 2.0 * math.Sqrt(1.0+m00-m11-m22)
		q = Quaternion{W: (m21 - m12) / s, X: 0.25 * s, Y: (m01 + m10) / s, Z: (m02 + m20) / s}
	case m11 > m22:
		s := 2.0 * math.Sqrt(1.0+m11-m00-m22)
		q = Quaternion{W: (m02 - m20) / s, X: (m01 + m10) / s, Y: 0.25 * s, Z: (m12 + m21) / s}
	default:
		s := 2.0 * math.Sqrt(1.0+m22-m00-m11)
		q = Quaternion{W: (m10 - m01) / s, X: (m02 + m20) / s, Y: (m12 + m21) / s, Z: 0.25 * s}
	}
	return q.Normalized()
}

// Normalized returns q scaled to unit length.
func (q Quaternion) Normalized() Quaternion {
	n := math.Sqrt(q.W*q.W + q.X*q.X + q.Y*q.Y + q.Z*q.Z)
	if n == 0 {
		return Quaternion{W: 1}
	}
	return Quaternion{W: q.W / n, X: q.X / n, Y: q.Y / n, Z: q.Z / n}
}

// Mul returns the Hamilton product q*r: the rotation r applied first, then q.
func (q Quaternion) Mul(r Quaternion) Quaternion {
	return Quaternion{
		W: q.W*r.W - q.X*r.X - q.Y*r.Y - q.Z*r.Z,
		X: q.W*r.X + q.X*r.W + q.Y*r.Z - q.Z*r.Y,
		Y: q.W*r.Y - q.X*r.Z + q.Y*r.W + q.Z*r.X,
		Z: q.W*r.Z + q.X*r.Y - q.Y*r.X + q.Z*r.W,
	}
}

// ToMatrix converts a unit quaternion to its 3x3 rotation matrix.
func (q Quaternion) ToMatrix() *mat.Dense {
	w, x, y, z := q.W, q.X, q.Y, q.Z
	return mat.NewDense(3, 3, []float64{
		1 - 2*(y*y+z*z), 2 * (x*y - w*z), 2 * (x*z + w*y),
		2 * (x*y + w*z), 1 - 2*(x*x+z*z), 2 * (y*z - w*x),
		2 * (x*z - w*y), 2 * (y*z + w*x), 1 - 2*(x*x+y*y),
	})
}

// AxisAngle is a unit rotation axis plus an angle in radians.
type AxisAngle struct {
	AX, AY, AZ float64
	Angle      float64
}

// ToAxisAngle converts a unit quaternion to axis-angle form.
func (q Quaternion) ToAxisAngle() AxisAngle {
	angle := 2 * math.Acos(clamp(q.W, -1, 1))
	s := math.Sqrt(1 - q.W*q.W)
	if s < 1e-9 {
		return AxisAngle{AX: 1, AY: 0, AZ: 0, Angle: angle}
	}
	return AxisAngle{AX: q.X / s, AY: q.Y / s, AZ: q.Z / s, Angle: angle}
}

// ToQuaternion converts an axis-angle rotation to a unit quaternion.
func (a AxisAngle) ToQuaternion() Quaternion {
	half := a.Angle / 2
	s := math.Sin(half)
	return Quaternion{W: math.Cos(half), X: a.AX * s, Y: a.AY * s, Z: a.AZ * s}.Normalized()
}

func normalizeAngle(a float64) float64 {
	const twoPi = 2 * math.Pi
	for a < 0 {
		a += twoPi
	}
	for a >= twoPi {
		a -= twoPi
	}
	return a
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
