package cmd

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/sampler"
)

func runCmd(sp *startupParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Fit one spatial model and persist the merged posterior sample",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(sp, cmd); err != nil {
				return err
			}
			return modelRun(sp)
		},
	}
	return cmd
}

func modelRun(sp *startupParams) error {
	spec, err := buildSpec(sp)
	if err != nil {
		return err
	}

	cfg, mon, err := buildRunConfig(sp)
	if err != nil {
		return err
	}
	if mon != nil {
		defer mon.Stop()
	}

	sp.out.Printf("Model %s: %d areas, %d disease(s), %d chains x %d sweeps\n",
		spec.Name, spec.Adj.NumAreas, len(spec.Diseases), cfg.Chains, cfg.Iters)

	start := time.Now()
	res, err := sampler.Run(context.Background(), spec, cfg)
	if err != nil {
		return err
	}
	sp.out.Printf("Sampling finished in %v: %d retained draws\n", time.Since(start), res.Lambda.Rows)

	reportResult(sp, res)

	outPath := filepath.Join(sp.outDir, res.Name+".json")
	if err := res.Save(outPath); err != nil {
		return err
	}
	sp.out.Printf("Wrote %s\n", outPath)
	return nil
}

// buildSpec assembles the model specification from the flag/config inputs.
func buildSpec(sp *startupParams) (*model.Spec, error) {
	if sp.countsFile == "" {
		return nil, model.Configf("a counts file is required (--counts)")
	}

	adj, err := buildAdjacency(sp)
	if err != nil {
		return nil, err
	}

	all, err := model.LoadDiseasesCSV(sp.countsFile)
	if err != nil {
		return nil, err
	}
	diseases, err := selectDiseases(all, sp.diseases)
	if err != nil {
		return nil, err
	}
	sp.verb("Loaded %d disease(s) from %s", len(diseases), sp.countsFile)

	family := strings.ToUpper(sp.family)
	name := strings.ToLower(family)
	if sp.adaptive {
		name += "-adaptive"
	}

	spec := &model.Spec{
		Name:     name,
		Family:   family,
		Adaptive: sp.adaptive,
		Adj:      adj,
		Diseases: diseases,
	}

	if !sp.adaptive {
		spec.Weights, err = fixedWeights(sp, adj)
		if err != nil {
			return nil, err
		}
	}

	if err := spec.Check(); err != nil {
		return nil, err
	}
	return spec, nil
}

func buildAdjacency(sp *startupParams) (*model.Adjacency, error) {
	if sp.shapeFile != "" && sp.adjFile != "" {
		return nil, model.Configf("give either --shapefile or --adjacency, not both")
	}

	if sp.shapeFile != "" {
		sp.verb("Deriving neighbors from shapefile %s", sp.shapeFile)
		return model.NewAdjacencyFromShapefile(sp.shapeFile)
	}
	if sp.adjFile != "" {
		sp.verb("Reading neighbor list %s", sp.adjFile)
		return model.LoadAdjacencyList(sp.adjFile)
	}
	return nil, model.Configf("a neighbor structure is required (--shapefile or --adjacency)")
}

// fixedWeights turns the optional per-area scale file into edge weights
// for non-adaptive runs. Without a scale file all edges weigh 1.
func fixedWeights(sp *startupParams, adj *model.Adjacency) ([]float64, error) {
	if sp.scalesFile == "" {
		return model.UniformWeights(adj), nil
	}

	scales, err := loadScales(sp.scalesFile, adj.NumAreas)
	if err != nil {
		return nil, err
	}

	switch sp.weightMode {
	case "edges":
		return model.WeightsFromScales(adj, scales)
	case "areas":
		return model.WeightsPerArea(adj, scales)
	default:
		return nil, model.Configf("unknown weight mode %q (want edges or areas)", sp.weightMode)
	}
}

// loadScales reads one positive float per area, whitespace separated.
func loadScales(path string, numAreas int) ([]float64, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "could not read scale file %s", path)
	}

	fields := strings.Fields(string(raw))
	if len(fields) != numAreas {
		return nil, model.Configf("scale file %s has %d values for %d areas", path, len(fields), numAreas)
	}

	scales := make([]float64, len(fields))
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil, errors.Wrapf(err, "bad scale value %q in %s", f, path)
		}
		scales[i] = v
	}
	return scales, nil
}

func selectDiseases(all []*model.Disease, names []string) ([]*model.Disease, error) {
	if len(names) == 0 {
		return all, nil
	}

	byName := make(map[string]*model.Disease, len(all))
	for _, d := range all {
		byName[d.Name] = d
	}

	picked := make([]*model.Disease, 0, len(names))
	for _, n := range names {
		d, ok := byName[n]
		if !ok {
			return nil, model.Configf("disease %q not in counts file", n)
		}
		picked = append(picked, d)
	}
	return picked, nil
}

// buildRunConfig translates the flags into a sampler configuration and,
// if requested, starts the HTTP monitor wired to the progress callback.
func buildRunConfig(sp *startupParams) (sampler.RunConfig, *monitor, error) {
	cfg := sampler.DefaultRunConfig()
	cfg.Iters = sp.iters
	cfg.BurnIn = sp.burnIn
	cfg.Thin = sp.thin
	cfg.Chains = sp.chains
	cfg.Seed = sp.seed
	cfg.Timeout = time.Duration(sp.timeout) * time.Second

	if sp.monitorAddr == "" {
		return cfg, nil, nil
	}

	mon := &monitor{}
	if err := mon.Start(sp.monitorAddr); err != nil {
		return cfg, nil, err
	}

	mon.BurnIn.Set(int64(cfg.BurnIn))
	mon.MaxIters.Set(int64(cfg.Iters))
	mon.Thin.Set(int64(cfg.Thin))
	mon.Chains.Set(int64(cfg.Chains))
	mon.TotalDraws.Set(int64(cfg.DrawsPerChain() * cfg.Chains))

	start := time.Now()
	cfg.Progress = func(chain int, sweep int, drift float64) {
		mon.Sweeps.Add(1)
		mon.RunTime.Set(time.Since(start).Seconds())
		if !math.IsNaN(drift) {
			mon.LastDrift.Set(drift)
		}
	}

	return cfg, mon, nil
}

// reportResult prints the posterior summaries a user wants at a glance.
func reportResult(sp *startupParams, res *model.Result) {
	for j, name := range res.Diseases {
		mu := math.NaN()
		if m, ok := res.Means["mu"]; ok && j < len(m) {
			mu = m[j]
		}
		lo, hi := lambdaRange(res, j)
		sp.out.Printf("  %-20s mean(mu)=%8.4f  mean(lambda) in [%.3f, %.3f]\n", name, mu, lo, hi)
	}

	if !sp.verbose {
		return
	}
	for key, vals := range res.Means {
		if key == "lambda" {
			continue
		}
		if len(vals) <= 4 {
			sp.out.Printf("  mean(%s) = %v\n", key, vals)
		}
	}
}

func lambdaRange(res *model.Result, disease int) (float64, float64) {
	lam, ok := res.Means["lambda"]
	if !ok {
		return math.NaN(), math.NaN()
	}

	lo, hi := math.Inf(1), math.Inf(-1)
	base := disease * res.NumAreas
	for i := 0; i < res.NumAreas; i++ {
		v := lam[base+i]
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}
