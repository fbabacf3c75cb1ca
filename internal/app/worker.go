package app

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"sync"

	"mycelium/internal/runtime/supervisor"
)

var errWorkerBusy = errors.New("worker already started")

// workerBridge runs exactly one blocking job on a dedicated goroutine.
//
// Cancel only signals intent through the job's context; the job is never
// interrupted. Join waits without a timeout.
type workerBridge struct {
	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	started bool
	done    chan struct{}
	err     error
}

func newWorkerBridge(parent context.Context) *workerBridge {
	ctx, cancel := context.WithCancel(parent)
	return &workerBridge{ctx: ctx, cancel: cancel, done: make(chan struct{})}
}

// Submit starts fn on the worker goroutine. A panic in fn is recovered into
// a *supervisor.PanicError.
func (w *workerBridge) Submit(name string, fn func(ctx context.Context) error) (<-chan struct{}, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.started {
		return w.done, errWorkerBusy
	}
	w.started = true

	go func() {
		var err error
		defer func() {
			w.mu.Lock()
			w.err = err
			w.mu.Unlock()
			close(w.done)
		}()
		defer func() {
			if r := recover(); r != nil {
				err = &supervisor.PanicError{Name: name, Value: r, Stack: string(debug.Stack())}
			}
		}()
		err = fn(w.ctx)
	}()
	return w.done, nil
}

// Err is the job's result once Done is closed.
func (w *workerBridge) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

func (w *workerBridge) Cancel() { w.cancel() }

// Join blocks until the job returns. It returns at once if nothing was submitted.
func (w *workerBridge) Join() {
	w.mu.Lock()
	started := w.started
	w.mu.Unlock()
	if !started {
		return
	}
	<-w.done
}

func (w *workerBridge) String() string {
	w.mu.Lock()
	defer w.mu.Unlock()
	select {
	case <-w.done:
		return fmt.Sprintf("worker(done, err=%v)", w.err)
	default:
	}
	if w.started {
		return "worker(running)"
	}
	return "worker(idle)"
}
