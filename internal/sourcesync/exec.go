package sourcesync

import (
	"context"
	"os"
	"os/exec"
)

// CommandExecutor abstracts command execution so tests can fake git.
type CommandExecutor interface {
	// Run executes a command in dir and returns combined output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// CLIExecutor runs commands with os/exec.
type CLIExecutor struct {
	// Env is appended to the inherited environment.
	Env []string
}

func NewCLIExecutor() *CLIExecutor {
	// never block on a credential prompt; the process runs unattended
	return &CLIExecutor{Env: []string{"GIT_TERMINAL_PROMPT=0", "LC_ALL=C"}}
}

func (e *CLIExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir
	if len(e.Env) > 0 {
		cmd.Env = append(os.Environ(), e.Env...)
	}
	return cmd.CombinedOutput()
}
