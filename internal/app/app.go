package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"
	"github.com/google/uuid"

	"mycelium/internal/liveness"
	"mycelium/internal/observability/debug"
	"mycelium/internal/observability/metrics"
	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/runtime/supervisor"
	"mycelium/internal/seeding"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// Deps are the collaborators of an App. Source and Engine are required.
type Deps struct {
	Log     logx.Logger
	Source  SourceSync
	Engine  DistributionEngine
	Store   storage.Store
	Metrics *metrics.Metrics

	// Sinks receive every heartbeat after the log sink.
	Sinks []liveness.Sink

	// Exit ends the process with the restart code. When nil (or when it
	// returns), Run reports a lifecycle.RestartRequest instead.
	Exit ExitFunc

	// Notify sends sd_notify states; defaults to liveness.SdNotify.
	Notify liveness.Notify

	// Signals registers the SIGINT/SIGTERM bridge with the OS.
	Signals bool
}

// App is the supervisor: it runs the update monitor, the heartbeat emitter
// and the seeding bridge concurrently and owns the seeding worker.
type App struct {
	set   Settings
	root  logx.Logger // run_id only; components add their own comp
	log   logx.Logger
	src   SourceSync
	eng   DistributionEngine
	store storage.Store
	met   *metrics.Metrics
	exit  ExitFunc
	notif liveness.Notify

	signals bool
	sinks   *liveness.Fanout

	runID   string
	started time.Time
	flag    *lifecycle.StopFlag

	mu     sync.Mutex
	closed bool
	bridge *lifecycle.SignalBridge
	lock   *processLock
	sup    *Supervisor
	tasks  []*Task
	worker *workerBridge
	seed   *seedingBridge
	hb     *heartbeatEmitter
	dbg    *debug.Service

	ran          atomic.Bool
	shutdownOnce sync.Once
}

func NewApp(set Settings, d Deps) (*App, error) {
	if d.Source == nil {
		return nil, errors.New("app: source sync is required")
	}
	if d.Engine == nil {
		return nil, errors.New("app: distribution engine is required")
	}
	if set.UpdateInterval <= 0 || set.HeartbeatInterval <= 0 {
		return nil, errors.New("app: intervals must be > 0")
	}
	if set.RestartExitCode == 0 {
		set.RestartExitCode = lifecycle.DefaultExitRestart
	}

	log := d.Log
	if log.IsZero() {
		log = logx.Nop()
	}
	runID := uuid.NewString()
	log = log.With(logx.String("run_id", runID))

	a := &App{
		set:     set,
		root:    log,
		log:     log.With(logx.String("comp", "app")),
		src:     d.Source,
		eng:     d.Engine,
		store:   d.Store,
		met:     d.Metrics,
		exit:    d.Exit,
		notif:   d.Notify,
		signals: d.Signals,
		runID:   runID,
		flag:    lifecycle.NewStopFlag(),
	}
	if a.notif == nil {
		a.notif = liveness.SdNotify
	}

	a.sinks = liveness.NewFanout(log, append([]liveness.Sink{liveness.LogSink{Log: log}}, d.Sinks...)...)
	a.sinks.OnError = func(sink string, _ error) { a.met.ObserveSinkFailure(sink) }

	if set.Debug.Enabled {
		a.dbg = debug.New(set.Debug, debug.Sources{
			Metrics: a.met.Handler(),
			Status:  func() any { return a.Status() },
			Health:  a.health,
		}, log)
	}
	return a, nil
}

func (a *App) RunID() string { return a.runID }

// StopFlag is the shared running flag of every task.
func (a *App) StopFlag() *lifecycle.StopFlag { return a.flag }

// Run starts the three tasks, blocks until all of them have ended and then
// shuts down. It returns nil on a clean stop, a lifecycle.RestartRequest when
// an update was pulled, or the fatal error that ended the tasks.
func (a *App) Run(ctx context.Context) error {
	if !a.ran.CompareAndSwap(false, true) {
		return errors.New("app: Run called twice")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	lock, err := acquireProcessLock(a.set.LockFile)
	if err != nil {
		return err
	}
	rev := a.revision(ctx)
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		_ = lock.Release()
		return nil
	}
	a.lock = lock
	a.started = time.Now()
	if a.signals {
		a.bridge = lifecycle.InstallSignalBridge(a.flag, a.root.With(logx.String("comp", "signals")))
	} else {
		a.bridge = lifecycle.NewSignalBridge(a.flag, a.root.With(logx.String("comp", "signals")))
	}
	a.banner(rev)
	a.record(storage.EventStarted, "", nil)

	a.flag.Start()
	a.worker = newWorkerBridge(ctx)
	a.sup = NewSupervisor(ctx, WithLogger(a.log), WithCancelOnError(true))

	um := &updateMonitor{
		src:         a.src,
		interval:    a.set.UpdateInterval,
		flag:        a.flag,
		log:         a.root.With(logx.String("comp", "updates")),
		metrics:     a.met,
		record:      a.record,
		restartCode: a.set.RestartExitCode,
		restart:     a.restartProcess,
	}
	a.hb = &heartbeatEmitter{
		sinks:    a.sinks,
		interval: a.set.HeartbeatInterval,
		flag:     a.flag,
		metrics:  a.met,
		runID:    a.runID,
		started:  a.started,
	}
	a.seed = &seedingBridge{
		engine: a.eng,
		opts:   a.set.Session,
		worker: a.worker,
		flag:   a.flag,
		log:    a.root.With(logx.String("comp", "seeding.bridge")),
		record: a.record,
	}
	a.tasks = []*Task{
		a.sup.Go("updates", um.run),
		a.sup.Go("heartbeat", a.hb.run),
		a.sup.Go("seeding", a.seed.run),
	}
	sup := a.sup
	a.mu.Unlock()

	go func() {
		select {
		case <-ctx.Done():
			a.flag.Stop(StopContextDone)
		case <-a.flag.Done():
		}
	}()

	if a.dbg != nil {
		a.dbg.Start(ctx)
	}
	a.sdNotify(daemon.SdNotifyReady)

	err = sup.Wait(context.Background())
	out := a.outcome(ctx, err)
	a.Shutdown()
	return out
}

func (a *App) outcome(ctx context.Context, err error) error {
	var rr lifecycle.RestartRequest
	switch {
	case errors.As(err, &rr):
		return rr
	case err != nil:
		a.flag.Stop(StopFatalError)
		fields := []logx.Field{logx.Err(err)}
		var pe *supervisor.PanicError
		if errors.As(err, &pe) {
			fields = append(fields, logx.Stack(pe.Stack))
		}
		a.log.Error("fatal error", fields...)
		a.record(storage.EventFatal, "", err)
		return err
	case a.flag.Reason() == StopRestart:
		// the exit hook returned without ending the process
		return lifecycle.RestartRequest{Code: a.set.RestartExitCode}
	case ctx.Err() != nil:
		a.flag.Stop(StopContextDone)
		return nil
	default:
		// every task returned on its own
		a.flag.Stop(StopTasksEnded)
		return nil
	}
}

// Shutdown cancels every task, waits for them, then joins the seeding worker
// without a timeout. Only the first call has any effect.
func (a *App) Shutdown() {
	a.shutdownOnce.Do(func() {
		a.flag.Stop(StopAppStop)

		a.mu.Lock()
		a.closed = true
		tasks := a.tasks
		worker := a.worker
		seed := a.seed
		sup := a.sup
		a.mu.Unlock()

		for _, t := range tasks {
			t.Cancel()
		}
		for _, t := range tasks {
			_ = t.Wait(context.Background())
		}
		if worker != nil {
			worker.Cancel()
			a.log.Debug("joining seeding worker")
			worker.Join()
		}
		if seed != nil {
			seed.drain()
		}
		if sup != nil {
			_ = sup.Stop(context.Background())
		}

		if a.dbg != nil {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			a.dbg.Stop(ctx)
			cancel()
		}

		a.sdNotify(daemon.SdNotifyStopping)
		reason := a.flag.Reason()
		a.record(storage.EventStopped, string(reason), nil)

		a.mu.Lock()
		bridge, lock := a.bridge, a.lock
		a.mu.Unlock()
		if bridge != nil {
			bridge.Close()
		}
		if a.store != nil {
			if err := a.store.Close(); err != nil {
				a.log.Warn("storage close failed", logx.Err(err))
			}
		}
		if err := lock.Release(); err != nil {
			a.log.Warn("lock release failed", logx.Err(err))
		}
		a.log.Info("supervisor stopped", logx.String("reason", string(reason)))
	})
}

func (a *App) restartProcess(code int) {
	a.record(storage.EventRestartRequested, fmt.Sprintf("exit_code=%d", code), nil)
	a.sdNotify(daemon.SdNotifyStopping)
	a.log.Info("exiting for restart", logx.Int("exit_code", code))
	if a.exit != nil {
		a.exit(code)
	}
}

// revision asks the source for the checked-out commit, when it can tell.
func (a *App) revision(ctx context.Context) string {
	hp, ok := a.src.(interface {
		Head(ctx context.Context) (string, error)
	})
	if !ok {
		return ""
	}
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	rev, err := hp.Head(ctx)
	if err != nil {
		a.log.Warn("current revision unknown", logx.Err(err))
		return ""
	}
	return rev
}

func (a *App) banner(rev string) {
	s := a.set
	a.log.Info("supervisor starting",
		logx.String("repo", s.RepoPath),
		logx.String("revision", rev),
		logx.String("url", s.RepoURL),
		logx.String("branch", s.Remote+"/"+s.Branch),
		logx.Duration("update_interval", s.UpdateInterval),
		logx.Duration("heartbeat_interval", s.HeartbeatInterval),
		logx.String("content_dir", s.Session.ContentDir),
		logx.String("tracker", s.Session.Tracker),
		logx.Int("restart_exit_code", s.RestartExitCode),
		logx.String("liveness", strings.Join(a.sinks.Sinks(), ",")),
		logx.Bool("storage", a.store != nil),
	)
}

func (a *App) sdNotify(state string) {
	if a.notif == nil {
		return
	}
	if _, err := a.notif(state); err != nil {
		a.log.Debug("sd_notify failed", logx.String("state", state), logx.Err(err))
	}
}

func (a *App) record(kind storage.EventKind, detail string, err error) {
	if a.store == nil {
		return
	}
	e := storage.Event{At: time.Now(), RunID: a.runID, Kind: kind, Detail: detail}
	if err != nil {
		e.Error = err.Error()
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if werr := a.store.AppendEvent(ctx, e); werr != nil {
		a.log.Warn("event not recorded", logx.String("kind", string(kind)), logx.Err(werr))
	}
}

func (a *App) health() error {
	if !a.flag.Running() {
		return fmt.Errorf("stopping (%s)", a.flag.Reason())
	}
	return nil
}

// Status is the document served on /status.
type Status struct {
	RunID      string                         `json:"run_id"`
	Running    bool                           `json:"running"`
	StopReason string                         `json:"stop_reason,omitempty"`
	StartedAt  time.Time                      `json:"started_at"`
	Uptime     string                         `json:"uptime"`
	Heartbeats uint64                         `json:"heartbeats"`
	Worker     string                         `json:"worker"`
	Seeding    *seeding.Status                `json:"seeding,omitempty"`
	Supervisor *supervisor.SupervisorSnapshot `json:"supervisor,omitempty"`
	Debug      *supervisor.SupervisorSnapshot `json:"debug_server,omitempty"`
	Events     []storage.Event                `json:"recent_events,omitempty"`
}

func (a *App) Status() Status {
	a.mu.Lock()
	sup, worker, hb, started := a.sup, a.worker, a.hb, a.started
	a.mu.Unlock()

	st := Status{
		RunID:     a.runID,
		Running:   a.flag.Running(),
		StartedAt: started,
		Worker:    "idle",
	}
	if !st.Running {
		st.StopReason = string(a.flag.Reason())
	}
	if !started.IsZero() {
		st.Uptime = time.Since(started).Truncate(time.Second).String()
	}

	if hb != nil {
		st.Heartbeats = hb.seq.Load()
	}
	if worker != nil {
		st.Worker = worker.String()
	}
	if sup != nil {
		snap := sup.Snapshot()
		st.Supervisor = &snap
	}
	if a.dbg != nil {
		if ds := a.dbg.Supervisor(); ds != nil {
			snap := ds.Snapshot()
			st.Debug = &snap
		}
	}
	if sp, ok := a.eng.(interface{ Status() seeding.Status }); ok {
		s := sp.Status()
		st.Seeding = &s
	}
	if a.store != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		if evs, err := a.store.RecentEvents(ctx, 10); err == nil {
			st.Events = evs
		}
		cancel()
	}
	return st
}
