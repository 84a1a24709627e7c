package sampler

import (
	"time"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/rand"
	"github.com/pkg/errors"
)

// A FullSampler advances one chain's entire state by one sweep: every latent
// field value, every hyperparameter, and (for adaptive specs) every per-area
// scale, each updated exactly once in a fixed deterministic order.
type FullSampler interface {
	// Sweep performs one full update pass
	Sweep() error
	// Lambda returns the fitted rate per cell, column index disease*N+area
	Lambda() []float64
	// SMR returns the fitted standardized mortality ratio per cell
	SMR() []float64
	// Monitored returns current values of the monitored scalar/vector
	// quantities (fresh copies, keyed by name)
	Monitored() map[string][]float64
	// State exposes the chain's latent state
	State() *model.State
}

// NewFullSampler builds the sweep engine for the spec's family.
func NewFullSampler(gen *rand.Generator, spec *model.Spec) (FullSampler, error) {
	switch spec.Family {
	case model.BYM:
		return NewGibbsBYM(gen, spec)
	case model.LEROUX:
		return NewGibbsLeroux(gen, spec)
	}
	return nil, model.Configf("no sampler for model family %q", spec.Family)
}

// RunConfig controls one model run: sweep counts, chain count, thinning,
// seeding, and operational limits. Zero values are invalid; start from
// DefaultRunConfig for the reference settings.
type RunConfig struct {
	Iters  int   // total sweeps per chain
	BurnIn int   // leading sweeps discarded per chain
	Thin   int   // record every Thin-th sweep after burn-in
	Chains int   // independent chains
	Seed   int64 // root seed; each chain derives its own stream

	// Timeout limits a single chain's run time (0 = no limit)
	Timeout time.Duration

	// DriftWindow is the deviance window size for the drift statistic
	DriftWindow int

	// Progress, if set, is called after each sweep with the chain index,
	// the 1-based sweep number, and the current deviance drift (NaN until
	// the window fills). Must be safe for concurrent calls.
	Progress func(chain int, sweep int, drift float64) `json:"-" yaml:"-"`
}

// DefaultRunConfig mirrors the reference settings: 3 chains thinned to
// roughly a thousand retained draws total.
func DefaultRunConfig() RunConfig {
	return RunConfig{
		Iters:       100000,
		BurnIn:      30000,
		Thin:        210,
		Chains:      3,
		Seed:        1,
		DriftWindow: 500,
	}
}

// Check validates the configuration before any sampling starts.
func (c *RunConfig) Check() error {
	if c.Iters <= 0 {
		return model.Configf("n_iter must be positive, got %d", c.Iters)
	}
	if c.BurnIn < 0 || c.BurnIn >= c.Iters {
		return model.Configf("n_burnin %d must be in [0, n_iter=%d)", c.BurnIn, c.Iters)
	}
	if c.Thin < 1 {
		return model.Configf("thin must be at least 1, got %d", c.Thin)
	}
	if c.Chains < 1 {
		return model.Configf("n_chains must be at least 1, got %d", c.Chains)
	}
	if c.DriftWindow < 0 {
		return model.Configf("drift window must be non-negative, got %d", c.DriftWindow)
	}
	return nil
}

// DrawsPerChain returns how many draws each chain retains.
func (c *RunConfig) DrawsPerChain() int {
	n := c.Iters - c.BurnIn
	return (n + c.Thin - 1) / c.Thin
}

// chainSeed derives chain k's seed from the root seed. The offset is a
// large prime so nearby root seeds still give disjoint-looking streams.
func (c *RunConfig) chainSeed(k int) int64 {
	return c.Seed + int64(k)*104729
}

func checkFinite(name string, vals []float64) error {
	for i, v := range vals {
		if !finite(v) {
			return errors.Errorf("%s[%d] is not finite (%f)", name, i, v)
		}
	}
	return nil
}
