// Command loadbench drives staged load against the scheduling API and
// gates the result on threshold rules.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	cfgFile string
	debug   bool
)

var rootCmd = &cobra.Command{
	Use:     "loadbench",
	Short:   "Load generator for the scheduling API",
	Long:    "loadbench runs weighted user journeys against the scheduling API\nunder a staged concurrency profile and evaluates the run against\nthreshold rules.",
	Version: version,
}

// Execute runs the root command. Exit codes: 0 all thresholds passed,
// 1 threshold failure, 2 setup or wiring failure.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "path to run config YAML")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	rootCmd.CompletionOptions.DisableDefaultCmd = true
}
