package main

import (
	"github.com/spf13/cobra"
)

const defaultConfigPath = "./config.yaml"

func newRootCommand() *cobra.Command {
	var configFlag string

	rootCmd := &cobra.Command{
		Use:           "mycelium",
		Short:         "Self-updating seeding supervisor",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSupervisor(cmd, configFlag)
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configFlag, "config", "c", defaultConfigPath, "Configuration file path (yaml, toml or json)")

	rootCmd.AddCommand(newRunCommand(&configFlag))
	rootCmd.AddCommand(newCheckConfigCommand(&configFlag))
	rootCmd.AddCommand(newVersionCommand())
	return rootCmd
}
