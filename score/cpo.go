package score

import (
	"math"

	"github.com/CraigKelly/riskmap/model"
)

// CPOReport holds the conditional predictive ordinates for one disease of a
// run: the per-area leave-one-out predictive density estimates and their
// total log score. Higher (less negative) total means better predictive
// fit. Unstable is set when the harmonic-mean estimator blew up for some
// area; the numbers are then reported but must not be trusted.
type CPOReport struct {
	PerArea  []float64
	TotalLog float64
	Unstable bool
}

// DiseaseCPO computes the harmonic-mean CPO estimate for one disease:
// CPO[i] = 1 / mean over draws of 1/Poisson(O[i]; lambda_draw[i]).
// The mean of inverses runs through log-sum-exp so a single very unlikely
// draw doesn't overflow; any remaining non-finite cell flags the report
// unstable rather than failing the whole table.
func DiseaseCPO(res *model.Result, disease int) (*CPOReport, error) {
	if err := res.Check(); err != nil {
		return nil, err
	}
	if disease < 0 || disease >= len(res.Diseases) {
		return nil, model.Configf("disease index %d out of range for %d diseases", disease, len(res.Diseases))
	}

	draws := res.Lambda.Dense()
	rows, _ := draws.Dims()
	na := res.NumAreas
	lo := disease * na

	rep := &CPOReport{
		PerArea: make([]float64, na),
	}

	negLogs := make([]float64, rows)
	for i := 0; i < na; i++ {
		obs := res.Obs[lo+i]
		for r := 0; r < rows; r++ {
			negLogs[r] = -model.PoissonLogPMF(obs, draws.At(r, lo+i))
		}

		// log of the mean inverse density
		logInvMean := logSumExp(negLogs) - math.Log(float64(rows))
		cpo := math.Exp(-logInvMean)

		rep.PerArea[i] = cpo
		if !finite(cpo) || cpo <= 0 {
			rep.Unstable = true
		}
		rep.TotalLog += -logInvMean
	}

	if !finite(rep.TotalLog) {
		rep.Unstable = true
	}
	return rep, nil
}

func logSumExp(xs []float64) float64 {
	max := math.Inf(-1)
	for _, x := range xs {
		if x > max {
			max = x
		}
	}
	if math.IsInf(max, 0) {
		return max
	}

	sum := 0.0
	for _, x := range xs {
		sum += math.Exp(x - max)
	}
	return max + math.Log(sum)
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
