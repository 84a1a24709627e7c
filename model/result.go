package model

import (
	"encoding/json"
	"math"
	"os"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/mat"
)

// DrawMatrix is a retained-draw matrix in a JSON-friendly layout: one row
// per retained draw, one column per (area, disease) cell with column index
// disease*NumAreas + area.
type DrawMatrix struct {
	Rows int       `json:"rows"`
	Cols int       `json:"cols"`
	Data []float64 `json:"data"` // row-major, len Rows*Cols
}

// Dense returns a gonum view over the draw data without copying.
func (dm *DrawMatrix) Dense() *mat.Dense {
	return mat.NewDense(dm.Rows, dm.Cols, dm.Data)
}

// Check validates the matrix shape and that every entry is finite.
func (dm *DrawMatrix) Check() error {
	if dm.Rows < 1 || dm.Cols < 1 || len(dm.Data) != dm.Rows*dm.Cols {
		return Configf("draw matrix %dx%d with %d values", dm.Rows, dm.Cols, len(dm.Data))
	}
	for i, v := range dm.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return Degeneratef(-1, i/dm.Cols, "non-finite value in persisted draws")
		}
	}
	return nil
}

// Result is the immutable record of one completed model run: posterior
// means for every monitored quantity, plus the full retained lambda draw
// trajectory needed by DIC/CPO. Created once per run, never mutated.
type Result struct {
	Name     string   `json:"name"`
	Family   string   `json:"family"`
	Adaptive bool     `json:"adaptive"`
	Diseases []string `json:"diseases"`
	NumAreas int      `json:"num_areas"`

	Chains        int `json:"chains"`
	DrawsPerChain int `json:"draws_per_chain"`

	// Means maps a monitored quantity name ("mu", "sigma.spatial", "rho",
	// "c", "smr", "lambda", ...) to its elementwise posterior mean. Vector
	// quantities indexed per disease use disease order; per-cell quantities
	// use column index disease*NumAreas + area.
	Means map[string][]float64 `json:"means"`

	// Lambda is the full retained-draw trajectory of the fitted rates.
	Lambda *DrawMatrix `json:"lambda"`

	// Obs holds the observed counts flattened in lambda column order, so
	// the comparison engine needs nothing beyond the Result.
	Obs []float64 `json:"obs"`
}

// Check validates a result before the comparison engine consumes it.
func (r *Result) Check() error {
	if r.NumAreas < 1 || len(r.Diseases) < 1 {
		return Configf("result %q has %d areas and %d diseases", r.Name, r.NumAreas, len(r.Diseases))
	}
	if r.Lambda == nil {
		return Configf("result %q has no lambda draws", r.Name)
	}
	if err := r.Lambda.Check(); err != nil {
		return err
	}

	want := r.NumAreas * len(r.Diseases)
	if r.Lambda.Cols != want {
		return Configf("result %q lambda has %d columns, want %d", r.Name, r.Lambda.Cols, want)
	}
	if len(r.Obs) != want {
		return Configf("result %q has %d obs values, want %d", r.Name, len(r.Obs), want)
	}
	if r.Chains > 0 && r.DrawsPerChain > 0 && r.Lambda.Rows != r.Chains*r.DrawsPerChain {
		return Configf("result %q has %d draws from %d chains x %d", r.Name, r.Lambda.Rows, r.Chains, r.DrawsPerChain)
	}
	return nil
}

// Save persists the result as JSON so diagnostics can run later without
// re-sampling.
func (r *Result) Save(path string) error {
	data, err := json.Marshal(r)
	if err != nil {
		return errors.Wrapf(err, "could not encode result %q", r.Name)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return errors.Wrapf(err, "could not write result %q to %s", r.Name, path)
	}
	return nil
}

// LoadResult reads back a persisted run result and validates it.
func LoadResult(path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read result from %s", path)
	}

	r := &Result{}
	if err := json.Unmarshal(data, r); err != nil {
		return nil, errors.Wrapf(err, "could not parse result from %s", path)
	}

	if err := r.Check(); err != nil {
		return nil, errors.Wrapf(err, "persisted result %s is not valid", path)
	}
	return r, nil
}
