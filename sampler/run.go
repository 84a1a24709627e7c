package sampler

import (
	"context"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/rand"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"
)

// Run executes one complete model run: cfg.Chains independent chains in
// parallel, each with its own derived seed and latent state, merged into a
// single Result after all chains finish. Any chain failure fails the whole
// run - the merged summaries assume every requested chain contributed.
func Run(ctx context.Context, spec *model.Spec, cfg RunConfig) (*model.Result, error) {
	if err := cfg.Check(); err != nil {
		return nil, err
	}
	if err := spec.Check(); err != nil {
		return nil, err
	}

	chains := make([]*Chain, cfg.Chains)

	g, gctx := errgroup.WithContext(ctx)
	for k := 0; k < cfg.Chains; k++ {
		k := k
		g.Go(func() error {
			gen, err := rand.NewGenerator(cfg.chainSeed(k))
			if err != nil {
				return errors.Wrapf(err, "could not seed chain %d", k)
			}

			samp, err := NewFullSampler(gen, spec)
			if err != nil {
				return errors.Wrapf(err, "could not build sampler for chain %d", k)
			}

			ch := NewChain(k, spec, samp, cfg.DriftWindow)
			chains[k] = ch

			cctx := gctx
			if cfg.Timeout > 0 {
				var cancel context.CancelFunc
				cctx, cancel = context.WithTimeout(gctx, cfg.Timeout)
				defer cancel()
			}

			return ch.Run(cctx, &cfg)
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return MergeChains(spec, &cfg, chains)
}

// MergeChains combines completed chains into one Result: retained draws are
// concatenated in chain order (order within a chain preserved), posterior
// means are pooled across all retained draws.
func MergeChains(spec *model.Spec, cfg *RunConfig, chains []*Chain) (*model.Result, error) {
	if len(chains) < 1 {
		return nil, errors.Errorf("Can not merge 0 chains")
	}

	perChain := chains[0].DrawCount()
	cells := spec.Adj.NumAreas * spec.NumDiseases()
	for _, ch := range chains {
		if ch == nil {
			return nil, errors.Errorf("Can not merge: missing chain")
		}
		if ch.DrawCount() != perChain {
			return nil, errors.Errorf("Cannot merge chain with %d draws into %d draws", ch.DrawCount(), perChain)
		}
	}
	if perChain < 1 {
		return nil, errors.Errorf("Chains retained no draws")
	}

	totalDraws := perChain * len(chains)
	data := make([]float64, 0, totalDraws*cells)
	for _, ch := range chains {
		data = append(data, ch.lambdaDraws...)
	}

	means := make(map[string][]float64)
	for _, ch := range chains {
		for name, sums := range ch.meanSums {
			m := means[name]
			if m == nil {
				m = make([]float64, len(sums))
				means[name] = m
			}
			for k, v := range sums {
				m[k] += v
			}
		}
	}
	for _, m := range means {
		for k := range m {
			m[k] /= float64(totalDraws)
		}
	}

	names := make([]string, len(spec.Diseases))
	for j, d := range spec.Diseases {
		names[j] = d.Name
	}

	res := &model.Result{
		Name:          spec.Name,
		Family:        spec.Family,
		Adaptive:      spec.Adaptive,
		Diseases:      names,
		NumAreas:      spec.Adj.NumAreas,
		Chains:        len(chains),
		DrawsPerChain: perChain,
		Means:         means,
		Lambda: &model.DrawMatrix{
			Rows: totalDraws,
			Cols: cells,
			Data: data,
		},
		Obs: flattenObs(spec),
	}

	if err := res.Check(); err != nil {
		return nil, errors.Wrap(err, "merged result is not valid")
	}
	return res, nil
}

// RunLeaveOneOut drives the multivariate models over a fixed disease menu:
// one run per held-out disease, each fitting all the others jointly.
// Results come back in hold-out order. Runs are independent; each is
// already parallel across its chains, so they execute sequentially here.
func RunLeaveOneOut(ctx context.Context, adj *model.Adjacency, diseases []*model.Disease, family string, cfg RunConfig) ([]*model.Result, error) {
	if len(diseases) < 3 {
		return nil, model.Configf("leave-one-out needs at least 3 diseases, got %d", len(diseases))
	}

	results := make([]*model.Result, 0, len(diseases))
	for k := range diseases {
		kept, heldOut, err := model.HoldOut(diseases, k)
		if err != nil {
			return nil, err
		}

		spec := &model.Spec{
			Name:     family + "-without-" + heldOut.Name,
			Family:   family,
			Adaptive: true,
			Adj:      adj,
			Diseases: kept,
		}

		res, err := Run(ctx, spec, cfg)
		if err != nil {
			return nil, errors.Wrapf(err, "leave-one-out run without %q failed", heldOut.Name)
		}
		results = append(results, res)
	}

	return results, nil
}
