package main

import (
	"os"

	"github.com/spf13/cobra"

	"mycelium/internal/app"
	"mycelium/internal/config"
	logx "mycelium/pkg/logx"
)

func newRunCommand(configFlag *string) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Run the supervisor (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSupervisor(cmd, *configFlag)
		},
	}
}

// loggedError has already been written to the log; main only sets the exit code.
type loggedError struct{ error }

func (e loggedError) Unwrap() error { return e.error }

// runSupervisor blocks until the supervisor stops. A pulled update ends the
// process from inside the update loop with the configured restart code.
func runSupervisor(cmd *cobra.Command, path string) error {
	boot := logx.NewConsole("info").With(logx.String("comp", "main"))
	cfg, err := config.NewConfigManager(path).Load()
	if err != nil {
		boot.Error("config load failed", logx.String("config", path), logx.Err(err))
		return loggedError{err}
	}

	logSvc, log := logx.New(app.LogConfig(cfg))
	defer func() { _ = logSvc.Close() }()
	log.Info("mycelium", logx.String("version", versionString()), logx.String("config", path))

	exit := func(code int) {
		_ = logSvc.Close()
		os.Exit(code)
	}
	a, err := app.Build(cfg, log, exit)
	if err != nil {
		log.Error("startup failed", logx.Err(err))
		return loggedError{err}
	}
	if err := a.Run(cmd.Context()); err != nil {
		// fatal errors are logged by the app; restart requests are not errors
		return loggedError{err}
	}
	return nil
}
