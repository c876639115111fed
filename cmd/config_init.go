package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

var configInitCmd = &cobra.Command{
	Use:   "config-init",
	Short: "Write a config.yaml with the current effective settings",
	Long: `Writes the effective configuration (defaults merged with any existing
config file and BOUNDARY_* environment variables) to a YAML file, so it can
be edited and checked in. Refuses to overwrite unless --force is given.`,
	RunE: func(cmd *cobra.Command, _ []string) error {
		path, _ := cmd.Flags().GetString("output")
		force, _ := cmd.Flags().GetBool("force")

		if !force {
			if _, err := os.Stat(path); err == nil {
				return eris.Errorf("config-init: %s already exists, use --force to overwrite", path)
			}
		}

		data, err := yaml.Marshal(cfg)
		if err != nil {
			return eris.Wrap(err, "config-init: marshal")
		}
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return eris.Wrapf(err, "config-init: write %s", path)
		}

		fmt.Printf("Configuration written to %s\n", path)
		return nil
	},
}

func init() {
	configInitCmd.Flags().String("output", "config.yaml", "destination file")
	configInitCmd.Flags().Bool("force", false, "overwrite an existing file")
	rootCmd.AddCommand(configInitCmd)
}
