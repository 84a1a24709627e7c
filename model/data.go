package model

import (
	"encoding/csv"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Disease is one mortality cause under study: observed and expected counts
// per area. Fixed for the duration of a model run.
type Disease struct {
	ID   int
	Name string
	Obs  []float64 // observed count per area
	Exp  []float64 // expected count per area (offset)
}

// Check validates the disease data against an area count.
func (d *Disease) Check(numAreas int) error {
	if len(d.Obs) != numAreas || len(d.Exp) != numAreas {
		return Configf("disease %q has %d obs / %d exp counts for %d areas",
			d.Name, len(d.Obs), len(d.Exp), numAreas)
	}

	obsTotal := 0.0
	for i, o := range d.Obs {
		if o < 0 {
			return Configf("disease %q has negative observed count at area %d", d.Name, i)
		}
		obsTotal += o
	}
	if obsTotal <= 0 {
		return Configf("disease %q has no observed events anywhere", d.Name)
	}

	for i, e := range d.Exp {
		if e <= 0 {
			return Configf("disease %q has non-positive expected count at area %d", d.Name, i)
		}
	}

	return nil
}

// LoadDiseasesCSV reads an observed/expected count table. The layout is one
// header row then one row per area, with two columns per disease:
//
//	<name>_obs, <name>_exp, <name2>_obs, <name2>_exp, ...
//
// Returns one Disease per obs/exp column pair, all with len(rows) areas.
func LoadDiseasesCSV(path string) ([]*Disease, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not open counts file %s", path)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrapf(err, "could not read header from %s", path)
	}
	if len(header) < 2 || len(header)%2 != 0 {
		return nil, Configf("counts file %s needs obs/exp column pairs, got %d columns", path, len(header))
	}

	nd := len(header) / 2
	diseases := make([]*Disease, nd)
	for j := 0; j < nd; j++ {
		obsName := header[2*j]
		name := obsName
		if len(obsName) > 4 && obsName[len(obsName)-4:] == "_obs" {
			name = obsName[:len(obsName)-4]
		}
		diseases[j] = &Disease{ID: j, Name: name}
	}

	row := 1
	for {
		rec, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrapf(err, "could not read row %d from %s", row, path)
		}
		if len(rec) != len(header) {
			return nil, Configf("row %d in %s has %d fields, header has %d", row, path, len(rec), len(header))
		}

		for j := 0; j < nd; j++ {
			o, err := strconv.ParseFloat(rec[2*j], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad observed count at row %d col %d in %s", row, 2*j, path)
			}
			e, err := strconv.ParseFloat(rec[2*j+1], 64)
			if err != nil {
				return nil, errors.Wrapf(err, "bad expected count at row %d col %d in %s", row, 2*j+1, path)
			}
			diseases[j].Obs = append(diseases[j].Obs, o)
			diseases[j].Exp = append(diseases[j].Exp, e)
		}
		row++
	}

	return diseases, nil
}

// HoldOut returns the disease list with index k removed. Used by the
// leave-one-out driver: a multivariate run fits all diseases but one.
func HoldOut(diseases []*Disease, k int) ([]*Disease, *Disease, error) {
	if k < 0 || k >= len(diseases) {
		return nil, nil, Configf("hold-out index %d out of range for %d diseases", k, len(diseases))
	}

	kept := make([]*Disease, 0, len(diseases)-1)
	for i, d := range diseases {
		if i != k {
			kept = append(kept, d)
		}
	}
	return kept, diseases[k], nil
}
