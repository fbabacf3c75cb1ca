package app

import (
	"context"
	"time"

	"mycelium/internal/runtime/lifecycle"
)

// sleep waits d and reports whether the loop should continue. It returns
// false as soon as the stop flag is set or ctx is canceled.
func sleep(ctx context.Context, flag *lifecycle.StopFlag, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return flag.Running() && ctx.Err() == nil
	case <-flag.Done():
		return false
	case <-ctx.Done():
		return false
	}
}
