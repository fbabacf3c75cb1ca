package lifecycle

import (
	"errors"
	"fmt"
)

// Process exit codes. The restart code is configurable; DefaultExitRestart is
// used when the config leaves it unset.
const (
	ExitSuccess        = 0
	ExitFailure        = 1
	DefaultExitRestart = 3
)

// RestartRequest asks the process to exit with Code so that the outer process
// manager relaunches it on the freshly pulled code.
type RestartRequest struct {
	Code int
}

func (r RestartRequest) Error() string {
	return fmt.Sprintf("restart requested (exit code %d)", r.Code)
}

// ExitFunc terminates the process. os.Exit in production; tests inject a
// recorder that ends the calling goroutine instead.
type ExitFunc func(code int)

// ExitCode maps the outcome of a run to a process exit code.
func ExitCode(err error) int {
	if err == nil {
		return ExitSuccess
	}
	var rr RestartRequest
	if errors.As(err, &rr) && rr.Code != 0 {
		return rr.Code
	}
	return ExitFailure
}
