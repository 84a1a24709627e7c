package model

// Model family constant strings - these appear in CLI flags and run results
const (
	BYM    = "BYM"
	LEROUX = "LEROUX"
)

// Hyperprior constants shared by all four model variants. Standard
// deviations get Uniform(0, SigmaUpper); the per-area scales get a
// truncated Gamma(tau, tau) with tau = 1/sigmaC^2 and support above
// ScaleTruncLow so edge weights stay away from zero.
const (
	SigmaUpper    = 5.0
	ScaleTruncLow = 0.001
)

// Spec is one fully-specified hierarchical model: a family (BYM or Leroux),
// the disease slice it runs on, the shared adjacency, and either fixed edge
// weights (univariate runs) or jointly-estimated per-area scales (adaptive
// multivariate runs). A Spec is immutable once checked; chains clone the
// latent state, never the Spec.
type Spec struct {
	Name     string
	Family   string
	Adaptive bool // estimate per-area scales c jointly across diseases

	Adj      *Adjacency
	Diseases []*Disease

	// Weights holds fixed edge weights aligned with Adj.Adj. Required when
	// Adaptive is false; ignored (recomputed from the sampled scales every
	// sweep) when Adaptive is true.
	Weights []float64
}

// Check returns an error if the spec cannot be sampled.
func (s *Spec) Check() error {
	if s.Family != BYM && s.Family != LEROUX {
		return Configf("unknown model family %q", s.Family)
	}
	if s.Adj == nil {
		return Configf("spec %q has no adjacency", s.Name)
	}
	if err := s.Adj.Check(); err != nil {
		return err
	}

	if len(s.Diseases) < 1 {
		return Configf("spec %q has no diseases", s.Name)
	}
	if s.Adaptive && len(s.Diseases) < 2 {
		return Configf("spec %q is adaptive but has only %d disease; the shared scales need several diseases", s.Name, len(s.Diseases))
	}
	for _, d := range s.Diseases {
		if err := d.Check(s.Adj.NumAreas); err != nil {
			return err
		}
	}

	if !s.Adaptive {
		if len(s.Weights) != len(s.Adj.Adj) {
			return Configf("spec %q has %d fixed weights for %d adjacency edges", s.Name, len(s.Weights), len(s.Adj.Adj))
		}
		for k, w := range s.Weights {
			if w <= 0 {
				return Configf("spec %q has non-positive weight %f at edge %d", s.Name, w, k)
			}
		}
	}

	return nil
}

// NumDiseases is a convenience accessor
func (s *Spec) NumDiseases() int {
	return len(s.Diseases)
}

// State holds every unknown of one chain: the latent fields, the
// hyperparameters, and (for adaptive specs) the shared per-area scales.
// Each chain owns exactly one State; nothing here is shared.
type State struct {
	Mu         []float64   // per-disease log-rate intercept
	SigSpatial []float64   // per-disease sd of the spatial field (phi or eta)
	SigTheta   []float64   // per-disease sd of the unstructured field (BYM only)
	Rho        []float64   // per-disease mixing parameter (Leroux only)
	Spatial    [][]float64 // [disease][area] spatial field
	Theta      [][]float64 // [disease][area] unstructured field (BYM only)
	C          []float64   // per-area scales (adaptive) - copied from fixed input otherwise
	SigC       float64
}

// Rand is the slice of the rand.Generator interface State init needs; kept
// tiny so tests can drive it with a fixed sequence.
type Rand interface {
	Float64() float64
	NormFloat64() float64
}

// NewState builds randomized starting values for the given spec. Fields
// start near zero, standard deviations uniform in the middle of their
// support, scales at 1.
func NewState(s *Spec, gen Rand) *State {
	nd := s.NumDiseases()
	na := s.Adj.NumAreas

	st := &State{
		Mu:         make([]float64, nd),
		SigSpatial: make([]float64, nd),
		SigTheta:   make([]float64, nd),
		Rho:        make([]float64, nd),
		Spatial:    make([][]float64, nd),
		Theta:      make([][]float64, nd),
		C:          make([]float64, na),
		SigC:       1.0,
	}

	for j := 0; j < nd; j++ {
		st.Mu[j] = 0.1 * gen.NormFloat64()
		st.SigSpatial[j] = 0.5 + gen.Float64()
		st.SigTheta[j] = 0.5 + gen.Float64()
		st.Rho[j] = 0.2 + 0.6*gen.Float64()
		st.Spatial[j] = make([]float64, na)
		st.Theta[j] = make([]float64, na)
		for i := 0; i < na; i++ {
			st.Spatial[j][i] = 0.1 * gen.NormFloat64()
			st.Theta[j][i] = 0.1 * gen.NormFloat64()
		}
	}

	for i := 0; i < na; i++ {
		st.C[i] = 1.0
	}

	return st
}

// Clone returns a deep copy of the state.
func (st *State) Clone() *State {
	cp := &State{
		Mu:         append([]float64(nil), st.Mu...),
		SigSpatial: append([]float64(nil), st.SigSpatial...),
		SigTheta:   append([]float64(nil), st.SigTheta...),
		Rho:        append([]float64(nil), st.Rho...),
		Spatial:    make([][]float64, len(st.Spatial)),
		Theta:      make([][]float64, len(st.Theta)),
		C:          append([]float64(nil), st.C...),
		SigC:       st.SigC,
	}
	for j := range st.Spatial {
		cp.Spatial[j] = append([]float64(nil), st.Spatial[j]...)
	}
	for j := range st.Theta {
		cp.Theta[j] = append([]float64(nil), st.Theta[j]...)
	}
	return cp
}
