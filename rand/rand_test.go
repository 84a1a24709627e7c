package rand

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestGeneratorDeterministic(t *testing.T) {
	assert := assert.New(t)

	g1, err := NewGenerator(42)
	assert.NoError(err)
	g2, err := NewGenerator(42)
	assert.NoError(err)

	for i := 0; i < 64; i++ {
		assert.Equal(g1.Uint64(), g2.Uint64())
	}

	g3, err := NewGenerator(43)
	assert.NoError(err)

	same := 0
	for i := 0; i < 64; i++ {
		if g1.Uint64() == g3.Uint64() {
			same++
		}
	}
	assert.True(same < 4, "Different seeds should give different streams")
}

func TestGeneratorRanges(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGenerator(1)
	assert.NoError(err)

	for i := 0; i < 1024; i++ {
		f := g.Float64()
		assert.True(f >= 0.0 && f < 1.0)

		n := g.Int63n(10)
		assert.True(n >= 0 && n < 10)

		assert.True(g.Int63() >= 0)
	}
}

func TestNormFloat64Moments(t *testing.T) {
	assert := assert.New(t)

	g, err := NewGenerator(7)
	assert.NoError(err)

	const n = 20000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := g.NormFloat64()
		sum += x
		sumSq += x * x
	}

	mean := sum / n
	variance := sumSq/n - mean*mean
	assert.InDelta(0.0, mean, 0.05)
	assert.InDelta(1.0, variance, 0.05)
}
