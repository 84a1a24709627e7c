package model

import (
	"math"

	"gonum.org/v1/gonum/mat"
)

// SumToZeroPrec is the precision of the soft sum-to-zero constraint on each
// spatial-effect vector. The constraint is a pseudo-observation
// sum(field) ~ N(0, 1/SumToZeroPrec), not a hard linear restriction; this
// matches the reference posterior geometry.
const SumToZeroPrec = 10.0

// CARConditional returns the conditional mean and precision of area i's
// spatial effect under the CAR-normal prior with edge weights w (aligned
// with adj.Adj). With all weights 1 the mean is the plain average of the
// neighbors' values and the precision is the neighbor count.
func CARConditional(adj *Adjacency, w []float64, field []float64, i int) (mean, prec float64) {
	var wSum, wvSum float64
	base := adj.Index[i]
	for k, j := range adj.Neighbors(i) {
		wSum += w[base+k]
		wvSum += w[base+k] * field[j]
	}
	return wvSum / wSum, wSum
}

// LerouxConditional returns the conditional mean and precision of area i's
// spatial effect under the Leroux prior with mixing parameter rho and edge
// weights w. rho=1 recovers the CAR conditional; rho=0 gives an independent
// standard Normal.
func LerouxConditional(adj *Adjacency, w []float64, rho float64, field []float64, i int) (mean, prec float64) {
	var wSum, wvSum float64
	base := adj.Index[i]
	for k, j := range adj.Neighbors(i) {
		wSum += w[base+k]
		wvSum += w[base+k] * field[j]
	}
	prec = rho*wSum + (1.0 - rho)
	mean = rho * wvSum / prec
	return mean, prec
}

// CondLogDensity is the log density of a Normal(mean, 1/prec) evaluated at
// x, up to the constant term. The conditional-specification updates for the
// adaptive scales sum these over an area's neighborhood.
func CondLogDensity(x, mean, prec float64) float64 {
	d := x - mean
	return 0.5*math.Log(prec) - 0.5*prec*d*d
}

// LerouxJointLogDensity is the exact joint log density (up to a constant) of
// a spatial field under the Leroux prior: precision Q = rho*(D-W) + (1-rho)*I
// with W symmetrized from the edge weights. The log determinant comes from a
// Cholesky factorization; the rho Metropolis step needs it because the
// normalizing constant depends on rho.
func LerouxJointLogDensity(adj *Adjacency, w []float64, rho float64, field []float64) (float64, error) {
	n := adj.NumAreas
	q := mat.NewSymDense(n, nil)

	for i := 0; i < n; i++ {
		base := adj.Index[i]
		var wSum float64
		for k, j := range adj.Neighbors(i) {
			// Per-area weight strategies are not symmetric across blocks;
			// the joint needs a symmetric W, so average the two entries.
			wij := w[base+k]
			for k2, back := range adj.Neighbors(j) {
				if back == i {
					wij = 0.5 * (wij + w[adj.Index[j]+k2])
					break
				}
			}
			wSum += wij
			if j > i {
				q.SetSym(i, j, -rho*wij)
			}
		}
		q.SetSym(i, i, rho*wSum+(1.0-rho))
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(q); !ok {
		return 0, NonIdentifiablef(-1, "singular Leroux precision at rho=%f", rho)
	}

	v := mat.NewVecDense(n, field)
	var qv mat.VecDense
	qv.MulVec(q, v)
	quad := mat.Dot(v, &qv)

	return 0.5*chol.LogDet() - 0.5*quad, nil
}
