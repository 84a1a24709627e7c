package sampler

import (
	"math"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/rand"
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/stat/distuv"
)

// Random-walk proposal scales for the Metropolis pieces. These are fixed:
// tuning them buys mixing speed, not correctness.
const (
	scaleProposalSD = 0.4
	rhoProposalSD   = 0.1
	rhoEps          = 1e-6
)

// gibbsCore holds the state and update machinery shared by the BYM and
// Leroux sweep engines: the conditional-prior sums, the conjugate intercept
// draw, and the adaptive-scale updates.
type gibbsCore struct {
	spec *model.Spec
	st   *model.State
	gen  *rand.Generator
}

// spatialSums accumulates the weighted neighbor sums for area i. Adaptive
// specs compute sqrt(c_i*c_j) edge weights from the current scales on the
// fly so every conditional always sees the latest c.
func (g *gibbsCore) spatialSums(field []float64, i int) (wSum, wvSum float64) {
	adj := g.spec.Adj
	base := adj.Index[i]
	for k, j := range adj.Neighbors(i) {
		var w float64
		if g.spec.Adaptive {
			w = math.Sqrt(g.st.C[i] * g.st.C[j])
		} else {
			w = g.spec.Weights[base+k]
		}
		wSum += w
		wvSum += w * field[j]
	}
	return wSum, wvSum
}

// carCond is the CAR-normal conditional for area i given the rest of field.
func (g *gibbsCore) carCond(field []float64, i int) (mean, prec float64) {
	wSum, wvSum := g.spatialSums(field, i)
	return wvSum / wSum, wSum
}

// lerouxCond is the Leroux conditional for area i at mixing parameter rho.
func (g *gibbsCore) lerouxCond(field []float64, rho float64, i int) (mean, prec float64) {
	wSum, wvSum := g.spatialSums(field, i)
	prec = rho*wSum + (1.0 - rho)
	return rho * wvSum / prec, prec
}

// edgeWeights materializes the current edge weight vector aligned with
// Adj.Adj (the exact-joint computations need the full vector).
func (g *gibbsCore) edgeWeights() ([]float64, error) {
	if g.spec.Adaptive {
		return model.WeightsFromScales(g.spec.Adj, g.st.C)
	}
	return g.spec.Weights, nil
}

// updateMu draws exp(mu_j) from its conjugate Gamma conditional. The flat
// prior on mu plus the Poisson likelihood make exp(mu) Gamma distributed
// with shape sum(O) and rate sum(E*exp(off)), where off(i) is the linear
// predictor for area i excluding mu and the offset.
func (g *gibbsCore) updateMu(j int, off func(i int) float64) error {
	d := g.spec.Diseases[j]

	var shape, rate float64
	for i := range d.Obs {
		shape += d.Obs[i]
		rate += d.Exp[i] * math.Exp(off(i))
	}
	if !finite(rate) || rate <= 0 {
		return errors.Errorf("degenerate rate %f in intercept update for disease %d", rate, j)
	}

	gd := distuv.Gamma{Alpha: shape, Beta: rate, Src: g.gen}
	draw := gd.Rand()
	if !finite(draw) || draw <= 0 {
		return errors.Errorf("degenerate intercept draw %f for disease %d", draw, j)
	}

	g.st.Mu[j] = math.Log(draw)
	return nil
}

// updateScales runs one Metropolis pass over the per-area scales c. The
// target is the conditional specification: truncated Gamma(tau, tau) prior
// times the local CAR conditionals the scale touches (area i and its
// neighbors, across every disease in the run), supplied by localLogDens.
// Proposals walk log c; candidates below the truncation point are rejected
// outright since the prior has no support there.
func (g *gibbsCore) updateScales(localLogDens func(area int) float64) {
	st := g.st
	tau := 1.0 / (st.SigC * st.SigC)
	prior := distuv.Gamma{Alpha: tau, Beta: tau}

	for i := 0; i < g.spec.Adj.NumAreas; i++ {
		cur := st.C[i]
		x := math.Log(cur)
		xCand := x + scaleProposalSD*g.gen.NormFloat64()
		cand := math.Exp(xCand)
		if cand < model.ScaleTruncLow {
			continue
		}

		lCur := prior.LogProb(cur) + localLogDens(i)
		st.C[i] = cand
		lCand := prior.LogProb(cand) + localLogDens(i)

		// xCand-x is the log-scale proposal Jacobian
		logAccept := lCand - lCur + (xCand - x)
		if math.Log(g.gen.Float64()) < logAccept {
			continue // keep candidate
		}
		st.C[i] = cur
	}
}

// updateSigC slice-samples the scale hyperparameter on (0, SigmaUpper).
// The truncated prior needs its normalizer: each c_i contributes
// log Gamma(c_i; tau, tau) - log(1 - F(trunc)), tau = 1/sigC^2.
func (g *gibbsCore) updateSigC() error {
	st := g.st
	n := float64(len(st.C))

	logp := func(s float64) float64 {
		tau := 1.0 / (s * s)
		gd := distuv.Gamma{Alpha: tau, Beta: tau}

		lp := -n * math.Log(1.0-gd.CDF(model.ScaleTruncLow))
		for _, ci := range st.C {
			lp += gd.LogProb(ci)
		}
		return lp
	}

	s, err := sliceSample(g.gen, st.SigC, 0.5, 1e-3, model.SigmaUpper, logp)
	if err != nil {
		return errors.Wrap(err, "scale hyperparameter update")
	}
	st.SigC = s
	return nil
}

// updateSD slice-samples one standard-deviation hyperparameter on its
// Uniform(0, SigmaUpper) support. logLike must give the log likelihood as a
// function of the candidate sd with everything else fixed.
func (g *gibbsCore) updateSD(cur float64, logLike func(s float64) float64) (float64, error) {
	return sliceSample(g.gen, cur, 0.25, 1e-9, model.SigmaUpper, logLike)
}

func (g *gibbsCore) monitoredCommon() map[string][]float64 {
	st := g.st
	na := g.spec.Adj.NumAreas

	spatial := make([]float64, g.spec.NumDiseases()*na)
	for j := range st.Spatial {
		copy(spatial[j*na:(j+1)*na], st.Spatial[j])
	}

	m := map[string][]float64{
		"mu":            append([]float64(nil), st.Mu...),
		"sigma.spatial": append([]float64(nil), st.SigSpatial...),
		"spatial":       spatial,
	}
	if g.spec.Adaptive {
		m["c"] = append([]float64(nil), st.C...)
		m["sigma.c"] = []float64{st.SigC}
	}
	return m
}

// State exposes the chain's latent state
func (g *gibbsCore) State() *model.State {
	return g.st
}
