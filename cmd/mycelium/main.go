package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"mycelium/internal/runtime/lifecycle"
)

func main() {
	cmd := newRootCommand()
	err := cmd.Execute()
	var logged loggedError
	if err != nil && !errors.As(err, &logged) && !errors.Is(err, context.Canceled) {
		fmt.Fprintln(os.Stderr, err)
	}
	os.Exit(lifecycle.ExitCode(err))
}
