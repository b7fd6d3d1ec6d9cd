package main

import (
	"github.com/spf13/cobra"

	"github.com/docparse/mineru-api/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Write the engine descriptor JSON and print its location",
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, _, err := loadConfig()
		if err != nil {
			return err
		}
		path, err := cfg.ResolveDescriptorPath()
		if err != nil {
			return err
		}
		if err := config.WriteDescriptor(cfg.Descriptor(), path); err != nil {
			return err
		}
		cmd.Println(path)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
}
