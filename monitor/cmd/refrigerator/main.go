package main

import (
	"os"

	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "refrigerator",
	Short: "Temperature convergence monitor for a thermoelectric refrigerator.",
	Long: `refrigerator samples thermometers on a fixed tick, tracks the rate of ` +
		`convergence toward each target temperature and scores how well the ` +
		`temperature holds the tolerance band. Readings are appended to a text ` +
		`log and derived values can be written as a Prometheus textfile.`,
	SilenceUsage: true,
}

func main() {
	rootCmd.AddCommand(newRunCmd(), newReplayCmd())
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
