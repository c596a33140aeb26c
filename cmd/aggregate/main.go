// Command aggregate runs one stage of the survey results aggregation
// pipeline. Each invocation executes a single wrangler (column totals,
// top-two contributors, or brick consolidation) against a stored batch and
// exits, mirroring the one-event-per-invocation model the pipeline
// orchestrator expects.
package main

import (
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgPath string
	verbose bool

	log = logrus.New()
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Survey results aggregation stage runner",
	Long: `aggregate executes one aggregation stage of the results pipeline.

Each run reads a row-oriented JSON batch from the configured object store
(or queue, for the bricks stage), applies the stage's statistical method,
persists the output batch for the next stage, and publishes a completion
notice carrying the pipeline checkpoint.

The deployment config (store, queue, method endpoint, notifier, metrics)
is file-based; the per-run parameters arrive as an event document passed
to the run subcommands.`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		log.SetFormatter(&logrus.JSONFormatter{})
		if verbose {
			log.SetLevel(logrus.DebugLevel)
		}
	},
}

func main() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c",
		"configs/aggregate.json", "deployment config path (JSON or YAML)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logs")

	rootCmd.AddCommand(runCmd, validateCmd, probeCmd)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
