package optimizer

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"

	"github.com/pthm-cable/microforge/internal/feature"
	"github.com/pthm-cable/microforge/internal/phase"
)

// Bhattacharyya returns sum(sqrt(p_i*q_i)) between two histograms of equal
// length, used throughout as a similarity measure (spec.md glossary); the
// error reported by callers is 1 - this value.
func Bhattacharyya(p, q []float64) float64 {
	n := len(p)
	if len(q) < n {
		n = len(q)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += math.Sqrt(p[i] * q[i])
	}
	return sum
}

// normalize scales hist in place to sum to 1, leaving an all-zero
// histogram untouched.
func normalize(hist []float64) {
	var sum float64
	for _, v := range hist {
		sum += v
	}
	if sum <= 0 {
		return
	}
	for i := range hist {
		hist[i] /= sum
	}
}

// goalSizeHistogram discretises a phase's lognormal size distribution into
// the same diameter bins used by feature.DiameterBin, via the density at
// each bin's centre (spec.md 4.4: "Size-distribution error").
func goalSizeHistogram(size phase.SizeDistribution) []float64 {
	n := size.NumBins()
	hist := make([]float64, n)
	dist := distuv.LogNormal{Mu: size.Mu, Sigma: size.Sigma}
	for i := 0; i < n; i++ {
		center := size.MinDia/2 + (float64(i)+0.5)*size.BinStep
		if center <= 0 {
			continue
		}
		hist[i] = dist.Prob(center)
	}
	normalize(hist)
	return hist
}

// SizeHistogramTracker maintains a running, per-phase count histogram so
// the generation phase's acceptance test (spec.md 4.4) can evaluate a
// candidate's effect on the size-distribution error in O(bins) rather than
// O(features).
type SizeHistogramTracker struct {
	size   phase.SizeDistribution
	goal   []float64
	counts []float64
}

// NewSizeHistogramTracker builds a tracker for one phase's size goal.
func NewSizeHistogramTracker(size phase.SizeDistribution) *SizeHistogramTracker {
	n := size.NumBins()
	return &SizeHistogramTracker{
		size:   size,
		goal:   goalSizeHistogram(size),
		counts: make([]float64, n),
	}
}

// ErrorWith returns the size-distribution error (1 - Bhattacharyya) that
// would result if a feature of the given diameter were added, without
// mutating the tracker.
func (t *SizeHistogramTracker) ErrorWith(diameter float64) float64 {
	bin := feature.DiameterBin(diameter, t.size.MinDia, t.size.BinStep, len(t.counts))
	trial := append([]float64(nil), t.counts...)
	trial[bin]++
	normalize(trial)
	return 1 - Bhattacharyya(trial, t.goal)
}

// Error returns the current size-distribution error.
func (t *SizeHistogramTracker) Error() float64 {
	trial := append([]float64(nil), t.counts...)
	normalize(trial)
	return 1 - Bhattacharyya(trial, t.goal)
}

// Commit permanently adds a feature of the given diameter to the histogram.
func (t *SizeHistogramTracker) Commit(diameter float64) {
	bin := feature.DiameterBin(diameter, t.size.MinDia, t.size.BinStep, len(t.counts))
	t.counts[bin]++
}

// NeighborCountBinStep is the fixed count-bin width used to bin
// neighbourhood counts (spec.md 4.4 design value 2).
const NeighborCountBinStep = 2

// NeighborMaxCountBins bounds the count-bin axis of the joint
// (diameterBin, countBin) histogram.
const NeighborMaxCountBins = 32

// RecomputeNeighborhoods performs a full O(n^2) re-tally of each feature's
// same-phase neighbour count: the number of other same-phase features
// whose centroid lies within one feature-diameter box along every axis
// (spec.md 4.4). This replaces the original implementation's
// uninitialized-variable shortcut named as an Open Question in spec.md 9
// with the specified correct full re-tally per call.
func RecomputeNeighborhoods(features []*feature.Feature, periodic bool, worldX, worldY, worldZ float64) {
	n := len(features)
	for i := 0; i < n; i++ {
		features[i].Neighborhood = 0
	}
	for i := 0; i < n; i++ {
		fi := features[i]
		halfBox := fi.EquivDiameter / 2
		for j := 0; j < n; j++ {
			if i == j {
				continue
			}
			fj := features[j]
			if fj.Phase != fi.Phase {
				continue
			}
			dx := boxDelta(fi.CentroidX, fj.CentroidX, worldX, periodic)
			dy := boxDelta(fi.CentroidY, fj.CentroidY, worldY, periodic)
			dz := boxDelta(fi.CentroidZ, fj.CentroidZ, worldZ, periodic)
			if math.Abs(dx) <= halfBox && math.Abs(dy) <= halfBox && math.Abs(dz) <= halfBox {
				fi.Neighborhood++
			}
		}
	}
}

// boxDelta returns the (optionally toroidally-wrapped) shortest delta
// between two coordinates along one axis, mirroring the teacher's
// ToroidalDelta (systems/spatial.go) generalised to an explicit periodic flag.
func boxDelta(a, b, worldSize float64, periodic bool) float64 {
	d := b - a
	if !periodic {
		return d
	}
	if d > worldSize/2 {
		d -= worldSize
	} else if d < -worldSize/2 {
		d += worldSize
	}
	return d
}

// NeighborError computes the neighbourhood-distribution error: simulated
// neighbour counts are binned jointly by diameter-bin and by
// NeighborCountBinStep-wide count bins, normalised to unit total, and
// compared against the goal per-diameter-bin lognormal distributions via
// Bhattacharyya (spec.md 4.4). Each diameter bin's goal row is weighted by
// that bin's share of the simulated size histogram, since the goal
// statistics describe a conditional (count | diameter) distribution, not a
// joint one.
func NeighborError(features []*feature.Feature, size phase.SizeDistribution, neighborGoal []phase.NeighborBin) float64 {
	numDiaBins := size.NumBins()
	if numDiaBins == 0 || len(neighborGoal) == 0 {
		return 0
	}

	sim := make([][]float64, numDiaBins)
	goal := make([][]float64, numDiaBins)
	diaWeight := make([]float64, numDiaBins)

	for db := 0; db < numDiaBins; db++ {
		sim[db] = make([]float64, NeighborMaxCountBins)
		goal[db] = make([]float64, NeighborMaxCountBins)
	}

	for _, f := range features {
		db := feature.DiameterBin(f.EquivDiameter, size.MinDia, size.BinStep, numDiaBins)
		cb := f.Neighborhood / NeighborCountBinStep
		if cb >= NeighborMaxCountBins {
			cb = NeighborMaxCountBins - 1
		}
		sim[db][cb]++
		diaWeight[db]++
	}
	normalize(diaWeight)

	for db := 0; db < numDiaBins; db++ {
		normalize(sim[db])
		if db >= len(neighborGoal) {
			continue
		}
		mu, sigma := neighborGoal[db].Mu, neighborGoal[db].Sigma
		if sigma <= 0 {
			continue
		}
		dist := distuv.LogNormal{Mu: mu, Sigma: sigma}
		for cb := 0; cb < NeighborMaxCountBins; cb++ {
			center := (float64(cb) + 0.5) * NeighborCountBinStep
			if center <= 0 {
				continue
			}
			goal[db][cb] = dist.Prob(center)
		}
		normalize(goal[db])
		for cb := range goal[db] {
			goal[db][cb] *= diaWeight[db]
			sim[db][cb] *= diaWeight[db]
		}
	}

	var bc float64
	for db := 0; db < numDiaBins; db++ {
		bc += Bhattacharyya(sim[db], goal[db])
	}
	return 1 - bc
}
