package cmd

import (
	"path/filepath"
	"sort"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/CraigKelly/riskmap/model"
	"github.com/CraigKelly/riskmap/score"
)

func scoreCmd(sp *startupParams) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score [result.json ...]",
		Short: "Compare persisted runs with DIC and CPO",
		Long: `Loads persisted run results and prints one comparison row per disease
and model. With no arguments every *.json file in the output directory
is scored.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := applyConfig(sp, cmd); err != nil {
				return err
			}
			return scoreRun(sp, args)
		},
	}
	return cmd
}

func scoreRun(sp *startupParams, paths []string) error {
	if len(paths) == 0 {
		found, err := filepath.Glob(filepath.Join(sp.outDir, "*.json"))
		if err != nil {
			return errors.Wrapf(err, "could not list results in %s", sp.outDir)
		}
		sort.Strings(found)
		paths = found
	}
	if len(paths) == 0 {
		return model.Configf("no result files to score in %s", sp.outDir)
	}

	results := make([]*model.Result, 0, len(paths))
	for _, p := range paths {
		res, err := model.LoadResult(p)
		if err != nil {
			return err
		}
		sp.verb("Loaded %s: %s (%d draws)", p, res.Name, res.Lambda.Rows)
		results = append(results, res)
	}

	sp.out.Printf("%s", score.FormatTable(score.BuildTable(results)))
	return nil
}
