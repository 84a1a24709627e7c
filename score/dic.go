// Package score computes the posterior model-comparison metrics (DIC, CPO)
// from a completed run's retained draw trajectories. Everything here is a
// pure reduction: no sampling, no mutation, same inputs give same outputs.
package score

import (
	"github.com/CraigKelly/riskmap/model"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// DICReport holds the deviance information criterion decomposition for one
// run (or one disease within a run).
type DICReport struct {
	Dbar float64 // posterior mean deviance
	Dhat float64 // deviance at the posterior mean rates
	PD   float64 // effective parameter count, Dbar - Dhat
	DIC  float64 // Dbar + PD = 2*Dbar - Dhat
}

// DIC computes the criterion over every cell of the run.
func DIC(res *model.Result) (*DICReport, error) {
	if err := res.Check(); err != nil {
		return nil, err
	}
	return dicCols(res, 0, res.Lambda.Cols)
}

// DiseaseDIC computes the criterion restricted to one disease's areas, so
// multivariate runs still yield one scalar per disease for the table.
func DiseaseDIC(res *model.Result, disease int) (*DICReport, error) {
	if err := res.Check(); err != nil {
		return nil, err
	}
	if disease < 0 || disease >= len(res.Diseases) {
		return nil, model.Configf("disease index %d out of range for %d diseases", disease, len(res.Diseases))
	}
	lo := disease * res.NumAreas
	return dicCols(res, lo, lo+res.NumAreas)
}

func dicCols(res *model.Result, lo, hi int) (*DICReport, error) {
	draws := res.Lambda.Dense()
	rows, _ := draws.Dims()

	obs := res.Obs[lo:hi]

	dbar := 0.0
	for r := 0; r < rows; r++ {
		row := draws.RawRowView(r)
		dbar += model.Deviance(obs, row[lo:hi])
	}
	dbar /= float64(rows)

	lamBar := make([]float64, hi-lo)
	var col []float64
	for c := lo; c < hi; c++ {
		col = mat.Col(col, c, draws)
		lamBar[c-lo] = stat.Mean(col, nil)
	}
	dhat := model.Deviance(obs, lamBar)

	rep := &DICReport{
		Dbar: dbar,
		Dhat: dhat,
		PD:   dbar - dhat,
		DIC:  2.0*dbar - dhat,
	}
	if !finite(rep.Dbar) || !finite(rep.Dhat) {
		return nil, model.Numericf("non-finite deviance component (Dbar=%f, Dhat=%f)", rep.Dbar, rep.Dhat)
	}
	return rep, nil
}
