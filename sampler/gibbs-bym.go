package sampler

import (
	"math"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/rand"
	"github.com/pkg/errors"
)

// GibbsBYM is the sweep engine for the BYM family: a CAR-normal spatial
// field phi plus an unstructured Normal(0,1) field theta per disease, with
// log lambda = log E + mu + sigma_phi*phi + sigma_theta*theta. The same
// engine serves the univariate model (one disease, fixed edge weights) and
// the multivariate adaptive model (several diseases, shared per-area scales
// estimated jointly).
type GibbsBYM struct {
	gibbsCore
}

// NewGibbsBYM creates a new sweep engine with randomized starting values.
func NewGibbsBYM(gen *rand.Generator, spec *model.Spec) (*GibbsBYM, error) {
	if spec == nil {
		return nil, errors.New("No spec supplied")
	}
	if err := spec.Check(); err != nil {
		return nil, err
	}
	if spec.Family != model.BYM {
		return nil, model.Configf("BYM engine got a %q spec", spec.Family)
	}

	return &GibbsBYM{gibbsCore{
		spec: spec,
		st:   model.NewState(spec, gen),
		gen:  gen,
	}}, nil
}

func (g *GibbsBYM) linPred(i, j int) float64 {
	st := g.st
	return st.Mu[j] + st.SigSpatial[j]*st.Spatial[j][i] + st.SigTheta[j]*st.Theta[j][i]
}

// Sweep performs one full update pass in deterministic order: intercepts,
// then latent sites (phi then theta per area), then the standard
// deviations, then the shared scales for adaptive specs.
func (g *GibbsBYM) Sweep() error {
	nd := g.spec.NumDiseases()
	na := g.spec.Adj.NumAreas
	st := g.st

	for j := 0; j < nd; j++ {
		err := g.updateMu(j, func(i int) float64 {
			return st.SigSpatial[j]*st.Spatial[j][i] + st.SigTheta[j]*st.Theta[j][i]
		})
		if err != nil {
			return err
		}
	}

	for j := 0; j < nd; j++ {
		fieldSum := 0.0
		for _, v := range st.Spatial[j] {
			fieldSum += v
		}

		for i := 0; i < na; i++ {
			if err := g.updatePhi(i, j, &fieldSum); err != nil {
				return err
			}
			if err := g.updateTheta(i, j); err != nil {
				return err
			}
		}
	}

	for j := 0; j < nd; j++ {
		if err := g.updateSDs(j); err != nil {
			return err
		}
	}

	if g.spec.Adaptive {
		g.updateScales(g.localFieldLogDens)
		if err := g.updateSigC(); err != nil {
			return err
		}
	}

	return nil
}

// updatePhi slice-samples one spatial site against its full conditional:
// Poisson likelihood, CAR conditional prior, and the soft sum-to-zero
// pseudo-observation. fieldSum is maintained incrementally by the caller.
func (g *GibbsBYM) updatePhi(i, j int, fieldSum *float64) error {
	st := g.st
	d := g.spec.Diseases[j]
	field := st.Spatial[j]

	m, p := g.carCond(field, i)
	sOther := *fieldSum - field[i]
	sig := st.SigSpatial[j]
	thTerm := st.SigTheta[j] * st.Theta[j][i]

	logp := func(x float64) float64 {
		return d.Obs[i]*sig*x -
			d.Exp[i]*math.Exp(st.Mu[j]+sig*x+thTerm) -
			0.5*p*(x-m)*(x-m) -
			0.5*model.SumToZeroPrec*(sOther+x)*(sOther+x)
	}

	x, err := sliceSample(g.gen, field[i], 1.0, math.Inf(-1), math.Inf(1), logp)
	if err != nil {
		return errors.Wrapf(err, "spatial site update (area %d, disease %d)", i, j)
	}

	*fieldSum += x - field[i]
	field[i] = x
	return nil
}

// updateTheta slice-samples one unstructured site: Poisson likelihood times
// a standard Normal prior.
func (g *GibbsBYM) updateTheta(i, j int) error {
	st := g.st
	d := g.spec.Diseases[j]

	sigT := st.SigTheta[j]
	spTerm := st.SigSpatial[j] * st.Spatial[j][i]

	logp := func(x float64) float64 {
		return d.Obs[i]*sigT*x -
			d.Exp[i]*math.Exp(st.Mu[j]+spTerm+sigT*x) -
			0.5*x*x
	}

	x, err := sliceSample(g.gen, st.Theta[j][i], 1.0, math.Inf(-1), math.Inf(1), logp)
	if err != nil {
		return errors.Wrapf(err, "unstructured site update (area %d, disease %d)", i, j)
	}

	st.Theta[j][i] = x
	return nil
}

// updateSDs slice-samples sigma_phi and sigma_theta on their Uniform(0,5)
// support; only the Poisson likelihood depends on them.
func (g *GibbsBYM) updateSDs(j int) error {
	st := g.st
	d := g.spec.Diseases[j]

	sigPhi, err := g.updateSD(st.SigSpatial[j], func(s float64) float64 {
		t := 0.0
		for i := range d.Obs {
			t += d.Obs[i]*s*st.Spatial[j][i] -
				d.Exp[i]*math.Exp(st.Mu[j]+s*st.Spatial[j][i]+st.SigTheta[j]*st.Theta[j][i])
		}
		return t
	})
	if err != nil {
		return errors.Wrapf(err, "sigma_phi update (disease %d)", j)
	}
	st.SigSpatial[j] = sigPhi

	sigTh, err := g.updateSD(st.SigTheta[j], func(s float64) float64 {
		t := 0.0
		for i := range d.Obs {
			t += d.Obs[i]*s*st.Theta[j][i] -
				d.Exp[i]*math.Exp(st.Mu[j]+st.SigSpatial[j]*st.Spatial[j][i]+s*st.Theta[j][i])
		}
		return t
	})
	if err != nil {
		return errors.Wrapf(err, "sigma_theta update (disease %d)", j)
	}
	st.SigTheta[j] = sigTh

	return nil
}

// localFieldLogDens sums the CAR conditional log densities touched by area
// i's scale: the area itself and its neighbors, for every disease.
func (g *GibbsBYM) localFieldLogDens(i int) float64 {
	lp := 0.0
	for j := range g.spec.Diseases {
		field := g.st.Spatial[j]

		m, p := g.carCond(field, i)
		lp += model.CondLogDensity(field[i], m, p)

		for _, k := range g.spec.Adj.Neighbors(i) {
			mk, pk := g.carCond(field, k)
			lp += model.CondLogDensity(field[k], mk, pk)
		}
	}
	return lp
}

// Lambda returns the fitted rate per cell, column index disease*N+area
func (g *GibbsBYM) Lambda() []float64 {
	na := g.spec.Adj.NumAreas
	out := make([]float64, g.spec.NumDiseases()*na)
	for j, d := range g.spec.Diseases {
		for i := 0; i < na; i++ {
			out[j*na+i] = d.Exp[i] * math.Exp(g.linPred(i, j))
		}
	}
	return out
}

// SMR returns the fitted standardized mortality ratio per cell
func (g *GibbsBYM) SMR() []float64 {
	na := g.spec.Adj.NumAreas
	out := make([]float64, g.spec.NumDiseases()*na)
	for j := range g.spec.Diseases {
		for i := 0; i < na; i++ {
			out[j*na+i] = math.Exp(g.linPred(i, j))
		}
	}
	return out
}

// Monitored returns current values of the monitored quantities
func (g *GibbsBYM) Monitored() map[string][]float64 {
	m := g.monitoredCommon()
	m["sigma.theta"] = append([]float64(nil), g.st.SigTheta...)
	m["smr"] = g.SMR()
	return m
}
