package lifecycle

import (
	"sync"
	"sync/atomic"
)

// StopFlag is the shared "running" flag of the supervisor.
//
// Running is read at the top of every task loop; Done is closed on the first
// Stop so that sleeping tasks wake up immediately instead of waiting out
// their interval.
type StopFlag struct {
	running atomic.Bool
	once    sync.Once
	done    chan struct{}
	reason  atomic.Value // StopReason
}

func NewStopFlag() *StopFlag {
	return &StopFlag{done: make(chan struct{})}
}

// Start marks the flag running. It has no effect once Stop has been called.
func (f *StopFlag) Start() {
	select {
	case <-f.done:
		return
	default:
	}
	f.running.Store(true)
	// a Stop that landed between the check and the store wins
	select {
	case <-f.done:
		f.running.Store(false)
	default:
	}
}

func (f *StopFlag) Running() bool { return f.running.Load() }

// Stop clears the flag. Only the first call records its reason and closes
// Done; it reports whether this call was the one that stopped the flag.
func (f *StopFlag) Stop(reason StopReason) bool {
	f.running.Store(false)
	first := false
	f.once.Do(func() {
		f.reason.Store(reason)
		close(f.done)
		first = true
	})
	return first
}

func (f *StopFlag) Done() <-chan struct{} { return f.done }

// Reason returns the reason passed to the first Stop, or StopUnknown.
func (f *StopFlag) Reason() StopReason {
	if r, ok := f.reason.Load().(StopReason); ok {
		return r
	}
	return StopUnknown
}
