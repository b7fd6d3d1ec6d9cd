// Command mineru-api runs the document parsing service and its supporting
// tooling: model provisioning and engine descriptor generation.
package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/docparse/mineru-api/config"
	"github.com/docparse/mineru-api/observability"
)

const version = "1.0.0"

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "mineru-api",
	Short:         "Document parsing API wrapping the magic-pdf pipeline",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to a TOML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

func loadConfig() (config.Config, observability.Logger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return config.Config{}, nil, err
	}
	if verbose {
		cfg.Verbose = true
	}
	return cfg, observability.NewText(os.Stderr, cfg.Verbose), nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		rootCmd.PrintErrf("mineru-api: %v\n", err)
		os.Exit(1)
	}
}
