package score

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCPOMatchesManualComputation(t *testing.T) {
	assert := assert.New(t)

	res := fixtureResult()

	// Manual harmonic mean per area
	lams := [][]float64{
		{2.0, 2.5, 1.5, 2.0}, // area 0 draws
		{3.5, 3.0, 4.0, 3.5}, // area 1 draws
	}
	for i, obs := range res.Obs {
		invSum := 0.0
		for _, l := range lams[i] {
			invSum += 1.0 / math.Exp(logPoisson(obs, l))
		}
		want := 1.0 / (invSum / 4.0)

		rep, err := DiseaseCPO(res, 0)
		assert.NoError(err)
		assert.InDelta(want, rep.PerArea[i], 1e-9)
	}

	rep, err := DiseaseCPO(res, 0)
	assert.NoError(err)
	assert.False(rep.Unstable)

	// Total is the sum of per-area logs
	want := 0.0
	for _, c := range rep.PerArea {
		want += math.Log(c)
	}
	assert.InDelta(want, rep.TotalLog, 1e-9)
}

func TestCPOIdempotent(t *testing.T) {
	assert := assert.New(t)

	res := fixtureResult()

	r1, err := DiseaseCPO(res, 0)
	assert.NoError(err)
	r2, err := DiseaseCPO(res, 0)
	assert.NoError(err)

	// Pure function of its inputs
	assert.InDeltaSlice(r1.PerArea, r2.PerArea, 0)
	assert.Equal(r1.TotalLog, r2.TotalLog)
	assert.Equal(r1.Unstable, r2.Unstable)
}

func TestCPOFlagsInstability(t *testing.T) {
	assert := assert.New(t)

	// A draw with lambda ~ 0 against a positive count sends the inverse
	// density through the roof; the report must flag it, not emit NaN as a
	// silent answer
	res := fixtureResult()
	res.Lambda.Data[0] = 1e-300

	rep, err := DiseaseCPO(res, 0)
	assert.NoError(err)
	assert.True(rep.Unstable)
}

func TestLogSumExp(t *testing.T) {
	assert := assert.New(t)

	xs := []float64{math.Log(1), math.Log(2), math.Log(3)}
	assert.InDelta(math.Log(6), logSumExp(xs), 1e-12)

	// Stable for values that would overflow a naive sum
	big := []float64{1000, 1001}
	want := 1001 + math.Log(1+math.Exp(-1))
	assert.InDelta(want, logSumExp(big), 1e-9)
}
