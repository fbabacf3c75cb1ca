package lifecycle

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	logx "mycelium/pkg/logx"
)

// SignalBridge turns SIGINT/SIGTERM into a StopFlag.Stop.
//
// Handle does no blocking work: it logs and flips the flag. Repeated signals
// are logged but only the first one records a stop reason.
type SignalBridge struct {
	flag *StopFlag
	log  logx.Logger

	ch        chan os.Signal
	done      chan struct{}
	closeOnce sync.Once
}

// InstallSignalBridge registers for SIGINT and SIGTERM and starts forwarding
// them to flag until Close is called.
func InstallSignalBridge(flag *StopFlag, log logx.Logger) *SignalBridge {
	b := NewSignalBridge(flag, log)
	b.ch = make(chan os.Signal, 4)
	signal.Notify(b.ch, os.Interrupt, syscall.SIGTERM)
	go func() {
		for {
			select {
			case <-b.done:
				return
			case sig := <-b.ch:
				b.Handle(sig)
			}
		}
	}()
	return b
}

// NewSignalBridge returns a bridge that is not registered with the OS.
func NewSignalBridge(flag *StopFlag, log logx.Logger) *SignalBridge {
	return &SignalBridge{flag: flag, log: log, done: make(chan struct{})}
}

func (b *SignalBridge) Handle(sig os.Signal) {
	reason := ReasonForSignal(sig)
	first := b.flag.Stop(reason)
	b.log.Info("received signal, initiating shutdown",
		logx.String("signal", sig.String()),
		logx.String("reason", string(reason)),
		logx.Bool("first", first),
	)
}

// Close unregisters the bridge. Safe to call multiple times.
func (b *SignalBridge) Close() {
	b.closeOnce.Do(func() {
		if b.ch != nil {
			signal.Stop(b.ch)
		}
		close(b.done)
	})
}

func ReasonForSignal(sig os.Signal) StopReason {
	switch sig {
	case os.Interrupt:
		return StopSIGINT
	case syscall.SIGTERM:
		return StopSIGTERM
	default:
		return StopUnknown
	}
}
