package cmd

import (
	"fmt"
	"log"
	"os"

	"github.com/spf13/cobra"
)

// startupParams holds everything the workflow commands need: flag values
// and the output logger.
type startupParams struct {
	verbose bool
	cfgFile string

	countsFile string
	shapeFile  string
	adjFile    string

	family     string
	adaptive   bool
	diseases   []string
	scalesFile string
	weightMode string

	iters   int
	burnIn  int
	thin    int
	chains  int
	seed    int64
	timeout int // seconds per chain, 0 = none

	outDir      string
	monitorAddr string

	out *log.Logger
}

func (sp *startupParams) verb(format string, args ...interface{}) {
	if sp.verbose {
		sp.out.Printf(format, args...)
	}
}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "riskmap",
	Short: "Bayesian disease mapping with adaptive CAR spatial models",
	Long: `riskmap fits hierarchical spatial models for disease mortality counts
by MCMC and scores them with posterior diagnostics. Among other features:

  - BYM and Leroux model families, univariate or multivariate
  - Adaptive per-area neighbor weights estimated jointly across diseases
  - Parallel independent chains merged into one posterior sample
  - DIC and CPO model comparison from persisted run results
`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() {
	sp := &startupParams{
		out: log.New(os.Stdout, "", 0),
	}

	pf := rootCmd.PersistentFlags()
	pf.StringVarP(&sp.cfgFile, "config", "c", "", "YAML run config file (flags override)")
	pf.BoolVarP(&sp.verbose, "verbose", "v", false, "Verbose logging (default is much more parsimonious)")

	pf.StringVarP(&sp.countsFile, "counts", "d", "", "CSV file of observed/expected counts per area and disease")
	pf.StringVar(&sp.shapeFile, "shapefile", "", "Polygon shapefile to derive the neighbor structure from")
	pf.StringVar(&sp.adjFile, "adjacency", "", "Plain-text neighbor list (alternative to --shapefile)")

	pf.StringVarP(&sp.family, "family", "f", "BYM", "Model family (BYM or LEROUX)")
	pf.BoolVar(&sp.adaptive, "adaptive", false, "Estimate per-area scales jointly across diseases")
	pf.StringSliceVar(&sp.diseases, "disease", nil, "Disease name(s) to fit (default: all in the counts file)")
	pf.StringVar(&sp.scalesFile, "scales", "", "Per-area scale file for fixed-weight runs")
	pf.StringVar(&sp.weightMode, "weight-mode", "edges", "Fixed-weight strategy from --scales: edges (sqrt(c_i*c_j)) or areas (c per area)")

	pf.IntVar(&sp.iters, "iters", 100000, "Sweeps per chain")
	pf.IntVar(&sp.burnIn, "burnin", 30000, "Burn-in sweeps discarded per chain")
	pf.IntVar(&sp.thin, "thin", 210, "Record every thin-th sweep after burn-in")
	pf.IntVar(&sp.chains, "chains", 3, "Independent chains per run")
	pf.Int64VarP(&sp.seed, "seed", "r", 1, "Random seed to use")
	pf.IntVar(&sp.timeout, "timeout", 0, "Per-chain time limit in seconds (0 = none)")

	pf.StringVarP(&sp.outDir, "out", "o", ".", "Directory for persisted run results")
	pf.StringVar(&sp.monitorAddr, "monitor", "", "Address for the HTTP progress monitor (empty = off)")

	rootCmd.AddCommand(runCmd(sp))
	rootCmd.AddCommand(looCmd(sp))
	rootCmd.AddCommand(scoreCmd(sp))

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
