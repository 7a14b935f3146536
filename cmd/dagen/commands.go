package main

import (
	config "github.com/Vincent-lau/dagen/internal/configs"
	"github.com/Vincent-lau/dagen/internal/pipeline"
	"github.com/spf13/cobra"
)

var (
	configFile string
	envFile    string

	// flags receives command line values; only flags that were set are copied
	// onto the resolved configuration.
	flags = config.Default()

	overrides = map[string]func(c *config.Config){
		"mode":           func(c *config.Config) { c.Mode = flags.Mode },
		"input":          func(c *config.Config) { c.InputFile = flags.InputFile },
		"by-type-dir":    func(c *config.Config) { c.ByTypeDir = flags.ByTypeDir },
		"work-dir":       func(c *config.Config) { c.WorkDir = flags.WorkDir },
		"graph-type":     func(c *config.Config) { c.GraphType = flags.GraphType },
		"k-part":         func(c *config.Config) { c.KPart = flags.KPart },
		"sample-count":   func(c *config.Config) { c.SampleCount = flags.SampleCount },
		"generate-count": func(c *config.Config) { c.GenerateCount = flags.GenerateCount },
		"min-cp":         func(c *config.Config) { c.MinCP = flags.MinCP },
		"max-cp":         func(c *config.Config) { c.MaxCP = flags.MaxCP },
		"ccr":            func(c *config.Config) { c.CCR = flags.CCR },
		"seed":           func(c *config.Config) { c.Seed = flags.Seed },
		"generated":      func(c *config.Config) { c.ReportGenerated = flags.ReportGenerated },
		"metrics-file":   func(c *config.Config) { c.MetricsFile = flags.MetricsFile },
		"metrics-addr":   func(c *config.Config) { c.MetricsAddr = flags.MetricsAddr },
		"cpuprofile":     func(c *config.Config) { c.CpuProfile = flags.CpuProfile },
		"trace":          func(c *config.Config) { c.Trace = flags.Trace },
	}

	rootCmd = &cobra.Command{
		Use:   "dagen",
		Short: "Mine workload DAGs from cluster traces and synthesize similar ones",
		Long: `dagen learns the structure of job DAGs from a decoded cluster trace and
generates new task graphs and instance graphs with the same statistics.

Steps run in order: classify -> learn -> generate -> expand, with report
available after learn or generate.`,
		SilenceUsage:       true,
		PersistentPreRunE:  before,
		PersistentPostRunE: after,
	}

	classifyCmd = &cobra.Command{
		Use:   "classify",
		Short: "Split the input collection into tree, reverse tree and other graphs",
		Args:  cobra.NoArgs,
		RunE:  run(pipeline.Classify),
	}

	learnCmd = &cobra.Command{
		Use:   "learn",
		Short: "Learn the statistics of one graph type and keep example task graphs",
		Args:  cobra.NoArgs,
		RunE:  run(pipeline.Learn),
	}

	generateCmd = &cobra.Command{
		Use:   "generate",
		Short: "Synthesize task graphs from learned statistics",
		Args:  cobra.NoArgs,
		RunE:  run(pipeline.Generate),
	}

	expandCmd = &cobra.Command{
		Use:   "expand",
		Short: "Expand task graphs into instance graphs and simulator workflows",
		Args:  cobra.NoArgs,
		RunE:  run(pipeline.Expand),
	}

	reportCmd = &cobra.Command{
		Use:   "report",
		Short: "Write feature measures and instance graph characteristics",
		Args:  cobra.NoArgs,
		RunE:  run(pipeline.Report),
	}
)

func run(step func(*config.Config) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		return step(cfg)
	}
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configFile, "config", "", "YAML configuration file")
	pf.StringVar(&envFile, "env-file", ".env", "dotenv file loaded before DAGEN_* variables are read")
	pf.StringVar(&flags.Mode, "mode", flags.Mode, "DEV or PROD")
	pf.StringVar(&flags.InputFile, "input", flags.InputFile, "decoded job collection")
	pf.StringVar(&flags.ByTypeDir, "by-type-dir", flags.ByTypeDir, "directory of collections split by shape")
	pf.StringVar(&flags.WorkDir, "work-dir", flags.WorkDir, "directory holding one sub directory per graph type")
	pf.Var(&flags.GraphType, "graph-type", "tree_incr, tree_decr or other")
	pf.Uint64Var(&flags.Seed, "seed", flags.Seed, "random seed, 0 for a time based one")
	pf.Float64Var(&flags.CCR, "ccr", flags.CCR, "computation to communication ratio of instance graphs")
	pf.StringVar(&flags.MetricsFile, "metrics-file", flags.MetricsFile, "write metrics in textfile format here on exit")
	pf.StringVar(&flags.MetricsAddr, "metrics-addr", flags.MetricsAddr, "serve /metrics on this address while running")
	pf.StringVar(&flags.CpuProfile, "cpuprofile", flags.CpuProfile, "write cpu profile to file")
	pf.StringVar(&flags.Trace, "trace", flags.Trace, "write execution trace to file")

	classifyCmd.Flags().IntVar(&flags.KPart, "k-part", flags.KPart, "suffix of the by-type files written")
	learnCmd.Flags().IntVar(&flags.SampleCount, "sample-count", flags.SampleCount, "example graphs kept per critical path band")
	generateCmd.Flags().IntVar(&flags.GenerateCount, "generate-count", flags.GenerateCount, "graphs to synthesize")
	generateCmd.Flags().IntVar(&flags.MinCP, "min-cp", flags.MinCP, "smallest critical path of synthesized graphs")
	generateCmd.Flags().IntVar(&flags.MaxCP, "max-cp", flags.MaxCP, "largest critical path of synthesized graphs")
	reportCmd.Flags().BoolVar(&flags.ReportGenerated, "generated", flags.ReportGenerated, "report on the task graphs directory instead of learned graphs")

	rootCmd.AddCommand(classifyCmd, learnCmd, generateCmd, expandCmd, reportCmd)
}
