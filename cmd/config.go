package cmd

import (
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the persistent flags so a run can be described in a
// YAML file. Flags given on the command line override the file.
type fileConfig struct {
	Counts    string `yaml:"counts"`
	Shapefile string `yaml:"shapefile"`
	Adjacency string `yaml:"adjacency"`

	Family     string   `yaml:"family"`
	Adaptive   bool     `yaml:"adaptive"`
	Diseases   []string `yaml:"diseases"`
	Scales     string   `yaml:"scales"`
	WeightMode string   `yaml:"weight_mode"`

	Iters   int   `yaml:"iters"`
	BurnIn  int   `yaml:"burnin"`
	Thin    int   `yaml:"thin"`
	Chains  int   `yaml:"chains"`
	Seed    int64 `yaml:"seed"`
	Timeout int   `yaml:"timeout"`

	Out     string `yaml:"out"`
	Monitor string `yaml:"monitor"`
}

// applyConfig loads sp.cfgFile (if set) and fills in every parameter whose
// flag was not explicitly given on the command line.
func applyConfig(sp *startupParams, cmd *cobra.Command) error {
	if sp.cfgFile == "" {
		return nil
	}

	raw, err := os.ReadFile(sp.cfgFile)
	if err != nil {
		return errors.Wrapf(err, "could not read config file %s", sp.cfgFile)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(raw, &fc); err != nil {
		return errors.Wrapf(err, "could not parse config file %s", sp.cfgFile)
	}

	set := func(flag string) bool {
		return cmd.Flags().Changed(flag) || cmd.Root().PersistentFlags().Changed(flag)
	}

	if !set("counts") && fc.Counts != "" {
		sp.countsFile = fc.Counts
	}
	if !set("shapefile") && fc.Shapefile != "" {
		sp.shapeFile = fc.Shapefile
	}
	if !set("adjacency") && fc.Adjacency != "" {
		sp.adjFile = fc.Adjacency
	}
	if !set("family") && fc.Family != "" {
		sp.family = fc.Family
	}
	if !set("adaptive") && fc.Adaptive {
		sp.adaptive = true
	}
	if !set("disease") && len(fc.Diseases) > 0 {
		sp.diseases = fc.Diseases
	}
	if !set("scales") && fc.Scales != "" {
		sp.scalesFile = fc.Scales
	}
	if !set("weight-mode") && fc.WeightMode != "" {
		sp.weightMode = fc.WeightMode
	}
	if !set("iters") && fc.Iters > 0 {
		sp.iters = fc.Iters
	}
	if !set("burnin") && fc.BurnIn > 0 {
		sp.burnIn = fc.BurnIn
	}
	if !set("thin") && fc.Thin > 0 {
		sp.thin = fc.Thin
	}
	if !set("chains") && fc.Chains > 0 {
		sp.chains = fc.Chains
	}
	if !set("seed") && fc.Seed != 0 {
		sp.seed = fc.Seed
	}
	if !set("timeout") && fc.Timeout > 0 {
		sp.timeout = fc.Timeout
	}
	if !set("out") && fc.Out != "" {
		sp.outDir = fc.Out
	}
	if !set("monitor") && fc.Monitor != "" {
		sp.monitorAddr = fc.Monitor
	}

	return nil
}
