package cmd

import (
	"context"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/CraigKelly/riskmap/sampler"
	"github.com/CraigKelly/riskmap/score"
)

func looCmd(sp *startupParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "loo",
		Short: "Leave-one-disease-out sensitivity runs for the adaptive model",
		Long: `Fits the adaptive multivariate model once per disease, each time with
that disease held out, and persists every run. Comparing the runs shows
how much a single disease drives the shared neighbor weights.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(sp, cmd); err != nil {
				return err
			}
			return looRun(sp)
		},
	}
	return cmd
}

func looRun(sp *startupParams) error {
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

	family := strings.ToUpper(sp.family)
	sp.out.Printf("Leave-one-out over %d diseases (%s, adaptive)\n", len(spec.Diseases), family)

	start := time.Now()
	results, err := sampler.RunLeaveOneOut(context.Background(), spec.Adj, spec.Diseases, family, cfg)
	if err != nil {
		return err
	}
	sp.out.Printf("All %d runs finished in %v\n", len(results), time.Since(start))

	for _, res := range results {
		outPath := filepath.Join(sp.outDir, res.Name+".json")
		if err := res.Save(outPath); err != nil {
			return err
		}
		sp.verb("Wrote %s", outPath)
	}

	sp.out.Printf("\n%s", score.FormatTable(score.BuildTable(results)))
	return nil
}
