package sampler

import (
	"math"
	"testing"

	"github.com/CraigKelly/riskmap/rand"
	"github.com/stretchr/testify/assert"
)

func TestSliceSampleNormal(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(11)
	assert.NoError(err)

	logp := func(x float64) float64 {
		return -0.5 * x * x
	}

	const n = 8000
	x := 0.0
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x, err = sliceSample(gen, x, 1.0, math.Inf(-1), math.Inf(1), logp)
		assert.NoError(err)
		sum += x
		sumSq += x * x
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(0.0, mean, 0.08)
	assert.InDelta(1.0, variance, 0.12)
}

func TestSliceSampleBounded(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(12)
	assert.NoError(err)

	// Flat density on (0, 5): every draw must stay inside the support
	logp := func(x float64) float64 { return 0.0 }

	x := 2.5
	var sum float64
	const n = 4000
	for i := 0; i < n; i++ {
		x, err = sliceSample(gen, x, 1.0, 0.0, 5.0, logp)
		assert.NoError(err)
		assert.True(x >= 0.0 && x <= 5.0)
		sum += x
	}
	assert.InDelta(2.5, sum/n, 0.15)
}

func TestSliceSampleBadDensity(t *testing.T) {
	assert := assert.New(t)

	gen, err := rand.NewGenerator(13)
	assert.NoError(err)

	_, err = sliceSample(gen, 1.0, 1.0, math.Inf(-1), math.Inf(1), func(x float64) float64 {
		return math.NaN()
	})
	assert.Error(err)
}
