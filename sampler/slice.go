package sampler

import (
	"math"

	"github.com/CraigKelly/riskmap/rand"
	"github.com/pkg/errors"
)

// sliceSample draws one value from an unnormalized log density using the
// stepping-out and shrinkage procedure (Neal 2003). It is the workhorse for
// every full conditional here that is log-concave but not a named
// distribution: latent sites against the Poisson likelihood, the standard
// deviations on (0, 5), the scale hyperparameter.
//
// x0 is the current value (must be inside (lo, hi)), width the initial
// interval size. lo/hi bound the support; pass +/-Inf for unbounded sides.
func sliceSample(gen *rand.Generator, x0, width, lo, hi float64, logp func(float64) float64) (float64, error) {
	const maxStepOut = 64
	const maxShrink = 256

	f0 := logp(x0)
	if !finite(f0) {
		return 0, errors.Errorf("slice sampling from a non-finite density at %f", x0)
	}

	// Vertical slice level
	logy := f0 + math.Log(gen.Float64())

	// Initial interval placed randomly around x0, then stepped out until
	// both ends are below the slice (or hit the support bounds)
	l := x0 - width*gen.Float64()
	r := l + width

	for k := 0; k < maxStepOut && l > lo && logp(l) > logy; k++ {
		l -= width
	}
	for k := 0; k < maxStepOut && r < hi && logp(r) > logy; k++ {
		r += width
	}
	if l < lo {
		l = lo
	}
	if r > hi {
		r = hi
	}

	// Shrinkage: sample uniformly inside the interval, shrink toward x0 on
	// rejection. Always terminates for a log-concave target.
	for k := 0; k < maxShrink; k++ {
		x := l + gen.Float64()*(r-l)
		if logp(x) >= logy {
			return x, nil
		}
		if x < x0 {
			l = x
		} else {
			r = x
		}
	}

	return 0, errors.Errorf("slice sampler failed to find a point after %d shrink steps from %f", maxShrink, x0)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
