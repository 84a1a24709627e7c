package model

import (
	"gonum.org/v1/gonum/stat/distuv"
)

// PoissonLogPMF is the log probability of observing obs events at rate
// lambda. Exposed here because both the deviance trace and the comparison
// metrics are built on it.
func PoissonLogPMF(obs, lambda float64) float64 {
	p := distuv.Poisson{Lambda: lambda}
	return p.LogProb(obs)
}

// Deviance is -2 times the total Poisson log likelihood of the observed
// counts at the fitted rates. obs and lambda use the same flattened cell
// order.
func Deviance(obs, lambda []float64) float64 {
	d := 0.0
	for k := range obs {
		d += PoissonLogPMF(obs[k], lambda[k])
	}
	return -2.0 * d
}
