package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mycelium/internal/app"
	"mycelium/internal/config"
)

func newCheckConfigCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "check-config",
		Short: "Validate the configuration file and print the effective settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			mgr := config.NewConfigManager(*configFlag)
			cfg, err := mgr.Load()
			if err != nil {
				return err
			}
			s, err := app.SettingsFromConfig(cfg)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "config OK: %s (%s)\n", mgr.Path(), mgr.Format())
			fmt.Fprintf(out, "  repository:      %s (%s/%s)\n", s.RepoPath, s.Remote, s.Branch)
			fmt.Fprintf(out, "  update interval: %s\n", s.UpdateInterval)
			fmt.Fprintf(out, "  heartbeat:       %s\n", s.HeartbeatInterval)
			fmt.Fprintf(out, "  content dir:     %s\n", s.Session.ContentDir)
			fmt.Fprintf(out, "  tracker:         %s\n", s.Session.Tracker)
			fmt.Fprintf(out, "  ports:           %d-%d\n", s.Session.PortMin, s.Session.PortMax)
			fmt.Fprintf(out, "  restart code:    %d\n", s.RestartExitCode)
			storage := "none"
			if s.StorageEnabled {
				storage = s.Storage.Driver + " " + s.Storage.Path
			}
			fmt.Fprintf(out, "  storage:         %s\n", storage)
			if s.Debug.Enabled {
				fmt.Fprintf(out, "  debug server:    %s\n", s.Debug.Addr)
			}
			return nil
		},
	}
}
