package sampler

import (
	"context"
	"math"
	"testing"

	"github.com/CraigKelly/riskmap/model"
	"github.com/stretchr/testify/assert"
)

// stubSampler lets chain tests control exactly what comes out of a sweep
type stubSampler struct {
	spec   *model.Spec
	sweeps int
	lam    func(sweep int) []float64
}

func (s *stubSampler) Sweep() error {
	s.sweeps++
	return nil
}

func (s *stubSampler) Lambda() []float64 {
	return s.lam(s.sweeps)
}

func (s *stubSampler) SMR() []float64 {
	return s.Lambda()
}

func (s *stubSampler) Monitored() map[string][]float64 {
	return map[string][]float64{"mu": {0.5}}
}

func (s *stubSampler) State() *model.State {
	return nil
}

func TestChainRetentionAndThinning(t *testing.T) {
	assert := assert.New(t)

	spec := uniSpec(t, model.BYM)
	stub := &stubSampler{
		spec: spec,
		lam: func(sweep int) []float64 {
			v := float64(sweep)
			return []float64{v, v, v, v}
		},
	}

	ch := NewChain(0, spec, stub, 10)
	cfg := &RunConfig{Iters: 50, BurnIn: 20, Thin: 10, Chains: 1, Seed: 1}
	assert.NoError(ch.Run(context.Background(), cfg))

	// Retained sweeps: 21, 31, 41 (every 10th after burn-in)
	assert.Equal(3, ch.DrawCount())
	assert.Equal(int64(50), ch.SweepCount)
	assert.Len(ch.lambdaDraws, 12)
	assert.InDelta(21.0, ch.lambdaDraws[0], 1e-12)
	assert.InDelta(31.0, ch.lambdaDraws[4], 1e-12)
	assert.InDelta(41.0, ch.lambdaDraws[8], 1e-12)

	// Mean accumulation pools the retained sweeps only
	assert.InDelta(0.5*3, ch.meanSums["mu"][0], 1e-12)
	assert.InDelta(21.0+31.0+41.0, ch.meanSums["lambda"][0], 1e-12)
}

func TestChainDegenerateDraw(t *testing.T) {
	assert := assert.New(t)

	spec := uniSpec(t, model.BYM)
	stub := &stubSampler{
		spec: spec,
		lam: func(sweep int) []float64 {
			if sweep == 7 {
				return []float64{1, math.NaN(), 1, 1}
			}
			return []float64{1, 1, 1, 1}
		},
	}

	ch := NewChain(2, spec, stub, 10)
	cfg := &RunConfig{Iters: 10, BurnIn: 0, Thin: 1, Chains: 1, Seed: 1}
	err := ch.Run(context.Background(), cfg)

	// Must fail naming the chain and sweep, not drop the draw
	assert.Error(err)
	assert.True(model.IsDegenerateSample(err))
	assert.Contains(err.Error(), "chain 2")
	assert.Contains(err.Error(), "sweep 7")
}

func TestChainCancellation(t *testing.T) {
	assert := assert.New(t)

	spec := uniSpec(t, model.BYM)
	stub := &stubSampler{
		spec: spec,
		lam:  func(sweep int) []float64 { return []float64{1, 1, 1, 1} },
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ch := NewChain(0, spec, stub, 10)
	cfg := &RunConfig{Iters: 1000, BurnIn: 0, Thin: 1, Chains: 1, Seed: 1}
	err := ch.Run(ctx, cfg)
	assert.Error(err)
	assert.Equal(0, ch.DrawCount())
}

func TestChainProgressCallback(t *testing.T) {
	assert := assert.New(t)

	spec := uniSpec(t, model.BYM)
	stub := &stubSampler{
		spec: spec,
		lam:  func(sweep int) []float64 { return []float64{1, 1, 1, 1} },
	}

	calls := 0
	lastSweep := 0
	cfg := &RunConfig{
		Iters: 25, BurnIn: 0, Thin: 5, Chains: 1, Seed: 1,
		Progress: func(chain, sweep int, drift float64) {
			calls++
			assert.Equal(0, chain)
			lastSweep = sweep
		},
	}

	ch := NewChain(0, spec, stub, 4)
	assert.NoError(ch.Run(context.Background(), cfg))
	assert.Equal(25, calls)
	assert.Equal(25, lastSweep)

	// Constant deviance means zero drift once the window fills
	assert.InDelta(0.0, ch.DevianceWindow.Drift(), 1e-12)
}

func TestMergeChains(t *testing.T) {
	assert := assert.New(t)

	spec := uniSpec(t, model.BYM)
	cfg := &RunConfig{Iters: 3, BurnIn: 0, Thin: 1, Chains: 2, Seed: 1}

	mkChain := func(id int, base float64) *Chain {
		stub := &stubSampler{
			spec: spec,
			lam: func(sweep int) []float64 {
				v := base + float64(sweep)
				return []float64{v, v, v, v}
			},
		}
		ch := NewChain(id, spec, stub, 10)
		assert.NoError(ch.Run(context.Background(), cfg))
		return ch
	}

	ch0 := mkChain(0, 0.0)   // draws 1, 2, 3
	ch1 := mkChain(1, 100.0) // draws 101, 102, 103

	res, err := MergeChains(spec, cfg, []*Chain{ch0, ch1})
	assert.NoError(err)

	// K chains x D draws = K*D rows, chain order preserved, no loss
	assert.Equal(6, res.Lambda.Rows)
	assert.Equal(4, res.Lambda.Cols)
	assert.Equal(2, res.Chains)
	assert.Equal(3, res.DrawsPerChain)

	d := res.Lambda.Dense()
	assert.InDelta(1.0, d.At(0, 0), 1e-12)
	assert.InDelta(3.0, d.At(2, 0), 1e-12)
	assert.InDelta(101.0, d.At(3, 0), 1e-12)
	assert.InDelta(103.0, d.At(5, 0), 1e-12)

	// Pooled mean over all 6 draws
	assert.InDelta((1+2+3+101+102+103)/6.0, res.Means["lambda"][0], 1e-12)
	assert.InDelta(0.5, res.Means["mu"][0], 1e-12)

	// Mismatched draw counts must not merge
	short := mkChain(2, 0.0)
	short.drawCount = 2
	short.lambdaDraws = short.lambdaDraws[:8]
	_, err = MergeChains(spec, cfg, []*Chain{ch0, short})
	assert.Error(err)

	_, err = MergeChains(spec, cfg, []*Chain{})
	assert.Error(err)
}
