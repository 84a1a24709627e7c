package sampler

import (
	"context"

	"github.com/CraigKelly/riskmap/buffer"
	"github.com/CraigKelly/riskmap/model"
	"github.com/pkg/errors"
)

// Chain runs one independent MCMC chain: its own sampler, its own random
// stream, its own draw buffers. Nothing here is shared with other chains;
// the only synchronization point is the merge after every chain completes.
type Chain struct {
	ID      int
	Spec    *model.Spec
	Sampler FullSampler

	// DevianceWindow tracks the recent deviance trace; its half-window
	// drift statistic is surfaced through Progress and the monitor.
	DevianceWindow *buffer.CircularFloat

	SweepCount int64

	lambdaDraws []float64 // retained draws, row-major draws x cells
	drawCount   int
	meanSums    map[string][]float64
}

// NewChain returns a chain ready to run.
func NewChain(id int, spec *model.Spec, samp FullSampler, driftWindow int) *Chain {
	if driftWindow < 2 {
		driftWindow = 2
	}
	return &Chain{
		ID:             id,
		Spec:           spec,
		Sampler:        samp,
		DevianceWindow: buffer.NewCircularFloat(driftWindow),
		meanSums:       make(map[string][]float64),
	}
}

// Run executes cfg.Iters full sweeps, discarding the first cfg.BurnIn and
// recording every cfg.Thin-th sweep thereafter. Cancellation is checked
// between sweeps only, so partial-chain draws are never exposed: a chain
// either finishes all its sweeps or contributes nothing.
func (c *Chain) Run(ctx context.Context, cfg *RunConfig) error {
	obs := flattenObs(c.Spec)

	for sweep := 1; sweep <= cfg.Iters; sweep++ {
		select {
		case <-ctx.Done():
			return errors.Wrapf(ctx.Err(), "chain %d aborted at sweep %d", c.ID, sweep)
		default:
		}

		if err := c.Sampler.Sweep(); err != nil {
			return errors.Wrapf(err, "chain %d failed at sweep %d", c.ID, sweep)
		}
		c.SweepCount++

		lambda := c.Sampler.Lambda()
		dev := model.Deviance(obs, lambda)
		c.DevianceWindow.Add(dev)

		if cfg.Progress != nil {
			cfg.Progress(c.ID, sweep, c.DevianceWindow.Drift())
		}

		if sweep <= cfg.BurnIn || (sweep-cfg.BurnIn-1)%cfg.Thin != 0 {
			continue
		}

		// A non-finite draw is a run failure naming this chain and sweep,
		// never something to drop quietly
		if err := checkFinite("lambda", lambda); err != nil {
			return model.Degeneratef(c.ID, sweep, "%v", err)
		}
		if !finite(dev) {
			return model.Degeneratef(c.ID, sweep, "deviance is not finite")
		}

		c.lambdaDraws = append(c.lambdaDraws, lambda...)
		c.drawCount++

		for name, vals := range c.Sampler.Monitored() {
			if err := checkFinite(name, vals); err != nil {
				return model.Degeneratef(c.ID, sweep, "%v", err)
			}
			sum := c.meanSums[name]
			if sum == nil {
				sum = make([]float64, len(vals))
				c.meanSums[name] = sum
			}
			for k, v := range vals {
				sum[k] += v
			}
		}

		lamSum := c.meanSums["lambda"]
		if lamSum == nil {
			lamSum = make([]float64, len(lambda))
			c.meanSums["lambda"] = lamSum
		}
		for k, v := range lambda {
			lamSum[k] += v
		}
	}

	return nil
}

// DrawCount returns the number of retained draws.
func (c *Chain) DrawCount() int {
	return c.drawCount
}

// flattenObs lays out the observed counts in lambda column order.
func flattenObs(spec *model.Spec) []float64 {
	na := spec.Adj.NumAreas
	out := make([]float64, spec.NumDiseases()*na)
	for j, d := range spec.Diseases {
		copy(out[j*na:(j+1)*na], d.Obs)
	}
	return out
}
