package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// fixedRand drives NewState with a deterministic sequence
type fixedRand struct{ n int }

func (f *fixedRand) Float64() float64 {
	f.n++
	return float64(f.n%7) / 7.0
}

func (f *fixedRand) NormFloat64() float64 {
	f.n++
	return float64(f.n%5-2) / 2.0
}

func testDisease(name string, numAreas int) *Disease {
	d := &Disease{Name: name}
	for i := 0; i < numAreas; i++ {
		d.Obs = append(d.Obs, float64(3+i%4))
		d.Exp = append(d.Exp, 4.0)
	}
	return d
}

func TestSpecCheck(t *testing.T) {
	assert := assert.New(t)

	adj, err := NewAdjacency(ring(4))
	assert.NoError(err)

	s := &Spec{
		Name:     "uni-bym",
		Family:   BYM,
		Adj:      adj,
		Diseases: []*Disease{testDisease("copd", 4)},
		Weights:  UniformWeights(adj),
	}
	assert.NoError(s.Check())

	// Bad family
	s2 := *s
	s2.Family = "CARTESIAN"
	assert.Error(s2.Check())

	// Adaptive needs several diseases
	s3 := *s
	s3.Adaptive = true
	err = s3.Check()
	assert.Error(err)
	assert.True(IsConfigError(err))

	s3.Diseases = []*Disease{testDisease("copd", 4), testDisease("asthma", 4)}
	s3.Weights = nil
	assert.NoError(s3.Check())

	// Weight / edge count mismatch
	s4 := *s
	s4.Weights = []float64{1, 1}
	assert.Error(s4.Check())

	// Area count mismatch between data and adjacency
	s5 := *s
	s5.Diseases = []*Disease{testDisease("copd", 5)}
	err = s5.Check()
	assert.Error(err)
	assert.True(IsConfigError(err))
}

func TestDiseaseCheck(t *testing.T) {
	assert := assert.New(t)

	d := testDisease("copd", 4)
	assert.NoError(d.Check(4))

	d.Obs[2] = -1
	assert.Error(d.Check(4))
	d.Obs[2] = 3

	d.Exp[0] = 0
	assert.Error(d.Check(4))
	d.Exp[0] = 4

	// No events anywhere is a configuration error, not a sampling failure
	zero := &Disease{Name: "none", Obs: []float64{0, 0}, Exp: []float64{1, 1}}
	err := zero.Check(2)
	assert.Error(err)
	assert.True(IsConfigError(err))
}

func TestStateInitAndClone(t *testing.T) {
	assert := assert.New(t)

	adj, err := NewAdjacency(ring(4))
	assert.NoError(err)
	s := &Spec{
		Name:     "mv",
		Family:   LEROUX,
		Adaptive: true,
		Adj:      adj,
		Diseases: []*Disease{testDisease("a", 4), testDisease("b", 4)},
	}
	assert.NoError(s.Check())

	st := NewState(s, &fixedRand{})
	assert.Len(st.Mu, 2)
	assert.Len(st.Spatial, 2)
	assert.Len(st.Spatial[0], 4)
	assert.Len(st.C, 4)
	for _, c := range st.C {
		assert.True(c > 0)
	}
	for j := range st.SigSpatial {
		assert.True(st.SigSpatial[j] > 0 && st.SigSpatial[j] < SigmaUpper)
		assert.True(st.Rho[j] > 0 && st.Rho[j] < 1)
	}

	cp := st.Clone()
	cp.Spatial[0][0] = 99
	cp.Mu[1] = 99
	cp.C[3] = 99
	assert.NotEqual(st.Spatial[0][0], cp.Spatial[0][0])
	assert.NotEqual(st.Mu[1], cp.Mu[1])
	assert.NotEqual(st.C[3], cp.C[3])
}

func TestHoldOut(t *testing.T) {
	assert := assert.New(t)

	menu := []*Disease{testDisease("a", 4), testDisease("b", 4), testDisease("c", 4)}

	kept, out, err := HoldOut(menu, 1)
	assert.NoError(err)
	assert.Equal("b", out.Name)
	assert.Len(kept, 2)
	assert.Equal("a", kept[0].Name)
	assert.Equal("c", kept[1].Name)

	_, _, err = HoldOut(menu, 3)
	assert.Error(err)
}
