package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// version is set at build time via -ldflags.
var version = "dev"

var rootFlags struct {
	runConfig   string
	paramConfig string
	objConfig   string
	logLevel    string
}

var rootCmd = &cobra.Command{
	Use:   "trialctl",
	Short: "Drive detector design trials through the simulation pipeline",
	Long: "trialctl evaluates detector design parameter sets: it materializes\n" +
		"per-trial geometry, runs the simulation and reconstruction stages, and\n" +
		"extracts scalar objectives from the results.",
	CompletionOptions: cobra.CompletionOptions{
		HiddenDefaultCmd: true,
	},
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootFlags.runConfig, "run-config", "run_config.yaml", "Run/environment configuration file")
	pf.StringVar(&rootFlags.paramConfig, "param-config", "param_config.yaml", "Design parameter configuration file")
	pf.StringVar(&rootFlags.objConfig, "objectives-config", "objectives.yaml", "Objectives configuration file")
	pf.StringVar(&rootFlags.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(sweepCmd)
	rootCmd.AddCommand(optimizeCmd)
	rootCmd.AddCommand(objectiveCmd)
	rootCmd.AddCommand(paramsCmd)
	rootCmd.Version = version
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
