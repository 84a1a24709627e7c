package model

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLoadDiseasesCSV(t *testing.T) {
	assert := assert.New(t)

	path := filepath.Join(t.TempDir(), "counts.csv")
	content := "copd_obs,copd_exp,asthma_obs,asthma_exp\n" +
		"5,4.0,2,3.5\n" +
		"3,4.0,1,3.5\n" +
		"4,4.0,0,3.5\n" +
		"6,4.0,2,3.5\n"
	assert.NoError(os.WriteFile(path, []byte(content), 0644))

	diseases, err := LoadDiseasesCSV(path)
	assert.NoError(err)
	assert.Len(diseases, 2)

	assert.Equal("copd", diseases[0].Name)
	assert.Equal("asthma", diseases[1].Name)
	assert.InDeltaSlice([]float64{5, 3, 4, 6}, diseases[0].Obs, 1e-12)
	assert.InDeltaSlice([]float64{4, 4, 4, 4}, diseases[0].Exp, 1e-12)
	assert.InDeltaSlice([]float64{2, 1, 0, 2}, diseases[1].Obs, 1e-12)

	for _, d := range diseases {
		assert.NoError(d.Check(4))
	}
}

func TestLoadDiseasesCSVErrors(t *testing.T) {
	assert := assert.New(t)

	dir := t.TempDir()

	_, err := LoadDiseasesCSV(filepath.Join(dir, "missing.csv"))
	assert.Error(err)

	// Odd column count
	odd := filepath.Join(dir, "odd.csv")
	assert.NoError(os.WriteFile(odd, []byte("a_obs,a_exp,b_obs\n1,2,3\n"), 0644))
	_, err = LoadDiseasesCSV(odd)
	assert.Error(err)
	assert.True(IsConfigError(err))

	// Non-numeric cell
	bad := filepath.Join(dir, "bad.csv")
	assert.NoError(os.WriteFile(bad, []byte("a_obs,a_exp\n1,2\nx,2\n"), 0644))
	_, err = LoadDiseasesCSV(bad)
	assert.Error(err)
}
