package sampler

import (
	"math"
	"testing"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/rand"
	"github.com/stretchr/testify/assert"
)

func testGen(t *testing.T, seed int64) *rand.Generator {
	gen, err := rand.NewGenerator(seed)
	assert.NoError(t, err)
	return gen
}

func sweepMany(t *testing.T, s FullSampler, n int) {
	for i := 0; i < n; i++ {
		assert.NoError(t, s.Sweep())
	}
}

func TestGibbsBYMSweep(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGibbsBYM(testGen(t, 3), uniSpec(t, model.BYM))
	assert.NoError(err)

	sweepMany(t, g, 50)

	st := g.State()
	assert.Len(st.Mu, 1)
	assert.True(st.SigSpatial[0] > 0 && st.SigSpatial[0] < model.SigmaUpper)
	assert.True(st.SigTheta[0] > 0 && st.SigTheta[0] < model.SigmaUpper)

	lam := g.Lambda()
	assert.Len(lam, 4)
	for _, l := range lam {
		assert.True(l > 0 && finite(l))
	}

	smr := g.SMR()
	for i, s := range smr {
		assert.InDelta(lam[i]/4.0, s, 1e-9) // E is 4 everywhere
	}

	m := g.Monitored()
	assert.Contains(m, "mu")
	assert.Contains(m, "sigma.spatial")
	assert.Contains(m, "sigma.theta")
	assert.Contains(m, "spatial")
	assert.Contains(m, "smr")
	assert.NotContains(m, "rho")
	assert.NotContains(m, "c")
}

func TestGibbsLerouxSweep(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGibbsLeroux(testGen(t, 4), uniSpec(t, model.LEROUX))
	assert.NoError(err)

	sweepMany(t, g, 50)

	st := g.State()
	assert.True(st.Rho[0] > 0 && st.Rho[0] < 1)
	assert.True(st.SigSpatial[0] > 0 && st.SigSpatial[0] < model.SigmaUpper)

	m := g.Monitored()
	assert.Contains(m, "rho")
	assert.NotContains(m, "sigma.theta")
}

func TestGibbsAdaptiveScales(t *testing.T) {
	assert := assert.New(t)

	for _, family := range []string{model.BYM, model.LEROUX} {
		s, err := NewFullSampler(testGen(t, 5), mvSpec(t, family))
		assert.NoError(err)

		sweepMany(t, s, 50)

		st := s.State()
		for i, c := range st.C {
			assert.True(c >= model.ScaleTruncLow, "family %s area %d scale %f", family, i, c)
			assert.True(finite(c))
		}
		assert.True(st.SigC > 0 && st.SigC < model.SigmaUpper)

		// Scales must actually move from their 1.0 start
		moved := false
		for _, c := range st.C {
			if math.Abs(c-1.0) > 1e-9 {
				moved = true
			}
		}
		assert.True(moved, "family %s scales never moved", family)

		m := s.Monitored()
		assert.Contains(m, "c")
		assert.Contains(m, "sigma.c")

		lam := s.Lambda()
		assert.Len(lam, 8) // 2 diseases x 4 areas
	}
}

func TestGibbsFamilyMismatch(t *testing.T) {
	assert := assert.New(t)

	_, err := NewGibbsBYM(testGen(t, 6), uniSpec(t, model.LEROUX))
	assert.Error(err)

	_, err = NewGibbsLeroux(testGen(t, 6), uniSpec(t, model.BYM))
	assert.Error(err)

	_, err = NewGibbsBYM(testGen(t, 6), nil)
	assert.Error(err)
}

func TestGibbsRejectsIsolatedArea(t *testing.T) {
	assert := assert.New(t)

	// Bypass NewAdjacency to get an isolated area into a spec; the sampler
	// constructor must catch it at build time
	adj := &model.Adjacency{
		NumAreas: 3,
		Adj:      []int{1, 0},
		Num:      []int{1, 1, 0},
		Index:    []int{0, 1, 2, 2},
	}
	spec := &model.Spec{
		Name:     "isolated",
		Family:   model.BYM,
		Adj:      adj,
		Diseases: []*model.Disease{ringDisease("copd", []float64{5, 3, 4})},
		Weights:  []float64{1, 1},
	}

	_, err := NewGibbsBYM(testGen(t, 8), spec)
	assert.Error(err)
	assert.True(model.IsNonIdentifiable(err))
}
