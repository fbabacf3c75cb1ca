package app

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"sync/atomic"
	"syscall"
	"testing"
	"time"

	"mycelium/internal/liveness"
	"mycelium/internal/observability/debug"
	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/seeding"
	"mycelium/internal/sourcesync"
	"mycelium/internal/storage"
	logx "mycelium/pkg/logx"
)

// ---- fakes ----

type fakeSource struct {
	mu      sync.Mutex
	replies []func() (bool, error) // consumed in order; last one repeats
	polls   atomic.Int32
	pulls   atomic.Int32
	pullErr error

	inflight    atomic.Int32
	maxInflight atomic.Int32
}

func (f *fakeSource) HasUpdates(ctx context.Context) (bool, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		m := f.maxInflight.Load()
		if n <= m || f.maxInflight.CompareAndSwap(m, n) {
			break
		}
	}
	i := int(f.polls.Add(1)) - 1

	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.replies) == 0 {
		return false, nil
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i]()
}

func (f *fakeSource) PullUpdates(ctx context.Context) error {
	f.pulls.Add(1)
	return f.pullErr
}

func noUpdate() (bool, error)  { return false, nil }
func hasUpdate() (bool, error) { return true, nil }
func syncFail() (bool, error) {
	return false, &sourcesync.SyncError{Op: "fetch", Err: errors.New("network unreachable")}
}

type fakeEngine struct {
	run func(ctx context.Context, opts seeding.SessionOptions) error
}

func (f *fakeEngine) RunSession(ctx context.Context, opts seeding.SessionOptions) error {
	if f.run == nil {
		<-ctx.Done()
		return nil
	}
	return f.run(ctx, opts)
}

type countSink struct{ n atomic.Int32 }

func (*countSink) Name() string { return "count" }
func (s *countSink) Emit(context.Context, liveness.Record) error {
	s.n.Add(1)
	return nil
}

type memStore struct {
	mu     sync.Mutex
	events []storage.Event
	hbs    []storage.Heartbeat
	closed int
}

func (m *memStore) AppendEvent(_ context.Context, e storage.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, e)
	return nil
}

func (m *memStore) RecordHeartbeat(_ context.Context, hb storage.Heartbeat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.hbs = append(m.hbs, hb)
	return nil
}

func (m *memStore) LastHeartbeat(context.Context) (storage.Heartbeat, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.hbs) == 0 {
		return storage.Heartbeat{}, false, nil
	}
	return m.hbs[len(m.hbs)-1], true, nil
}

func (m *memStore) RecentEvents(_ context.Context, limit int) ([]storage.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.events
	if limit > 0 && len(out) > limit {
		out = out[len(out)-limit:]
	}
	return append([]storage.Event(nil), out...), nil
}

func (m *memStore) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed++
	return nil
}

func (m *memStore) kinds() []storage.EventKind {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]storage.EventKind, 0, len(m.events))
	for _, e := range m.events {
		out = append(out, e.Kind)
	}
	return out
}

type notifyLog struct {
	mu     sync.Mutex
	states []string
}

func (n *notifyLog) notify(state string) (bool, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.states = append(n.states, state)
	return true, nil
}

func (n *notifyLog) count(state string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	c := 0
	for _, s := range n.states {
		if s == state {
			c++
		}
	}
	return c
}

// ---- helpers ----

func testSettings() Settings {
	return Settings{
		RepoPath:          ".",
		Remote:            "origin",
		Branch:            "main",
		UpdateInterval:    20 * time.Millisecond,
		HeartbeatInterval: 20 * time.Millisecond,
		RestartExitCode:   3,
		Session:           seeding.SessionOptions{ContentDir: "./content", PortMin: 6881, PortMax: 6891},
	}
}

func newTestApp(t *testing.T, set Settings, d Deps) *App {
	t.Helper()
	if d.Source == nil {
		d.Source = &fakeSource{}
	}
	if d.Engine == nil {
		d.Engine = &fakeEngine{}
	}
	if d.Notify == nil {
		d.Notify = (&notifyLog{}).notify
	}
	a, err := NewApp(set, d)
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return a
}

// start runs a in the background; the returned channel yields Run's result.
func start(a *App) <-chan error {
	out := make(chan error, 1)
	go func() { out <- a.Run(context.Background()) }()
	return out
}

func waitRun(t *testing.T, res <-chan error, d time.Duration) error {
	t.Helper()
	select {
	case err := <-res:
		return err
	case <-time.After(d):
		t.Fatalf("Run did not return within %v", d)
		return nil
	}
}

func waitFor(t *testing.T, d time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(d)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(2 * time.Millisecond)
	}
}

// ---- tests ----

func TestNewAppRequiresCollaborators(t *testing.T) {
	if _, err := NewApp(testSettings(), Deps{Engine: &fakeEngine{}}); err == nil {
		t.Fatal("missing source should fail")
	}
	if _, err := NewApp(testSettings(), Deps{Source: &fakeSource{}}); err == nil {
		t.Fatal("missing engine should fail")
	}
	set := testSettings()
	set.HeartbeatInterval = 0
	if _, err := NewApp(set, Deps{Source: &fakeSource{}, Engine: &fakeEngine{}}); err == nil {
		t.Fatal("zero interval should fail")
	}
}

func TestUpdateMonitorPollsAtIntervalWithoutOverlap(t *testing.T) {
	src := &fakeSource{replies: []func() (bool, error){noUpdate}}
	a := newTestApp(t, testSettings(), Deps{Source: src})
	res := start(a)

	time.Sleep(150 * time.Millisecond)
	a.Shutdown()
	if err := waitRun(t, res, 2*time.Second); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}

	polls := src.polls.Load()
	if polls < 2 || polls > 12 {
		t.Fatalf("polls = %d, want roughly one per 20ms over 150ms", polls)
	}
	if got := src.maxInflight.Load(); got != 1 {
		t.Fatalf("max concurrent checks = %d, want 1", got)
	}
	if src.pulls.Load() != 0 {
		t.Fatal("no pull expected without updates")
	}
	after := src.polls.Load()
	time.Sleep(60 * time.Millisecond)
	if src.polls.Load() != after {
		t.Fatal("polling continued after shutdown")
	}
}

func TestUpdateExitsWithRestartCode(t *testing.T) {
	src := &fakeSource{replies: []func() (bool, error){noUpdate, hasUpdate}}
	notes := &notifyLog{}
	store := &memStore{}
	var exitCode atomic.Int32
	exit := func(code int) {
		exitCode.Store(int32(code))
		runtime.Goexit()
	}
	set := testSettings()
	set.RestartExitCode = 42
	a := newTestApp(t, set, Deps{Source: src, Store: store, Exit: exit, Notify: notes.notify})

	err := waitRun(t, start(a), 2*time.Second)
	if got := lifecycle.ExitCode(err); got != 42 {
		t.Fatalf("ExitCode(%v) = %d, want 42", err, got)
	}
	if exitCode.Load() != 42 {
		t.Fatalf("exit hook code = %d, want 42", exitCode.Load())
	}
	if src.pulls.Load() != 1 {
		t.Fatalf("pulls = %d, want 1", src.pulls.Load())
	}
	if a.StopFlag().Reason() != StopRestart {
		t.Fatalf("stop reason = %s", a.StopFlag().Reason())
	}

	polls := src.polls.Load()
	time.Sleep(60 * time.Millisecond)
	if src.polls.Load() != polls {
		t.Fatal("no polling expected after a restart")
	}

	kinds := store.kinds()
	want := []storage.EventKind{storage.EventStarted, storage.EventUpdateDetected, storage.EventRestartRequested, storage.EventStopped}
	if len(kinds) != len(want) {
		t.Fatalf("events = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("events = %v, want %v", kinds, want)
		}
	}
	if notes.count("STOPPING=1") < 1 {
		t.Fatalf("STOPPING not notified: %v", notes.states)
	}
}

func TestRestartWithoutExitHookReturnsRestartRequest(t *testing.T) {
	src := &fakeSource{replies: []func() (bool, error){hasUpdate}}
	a := newTestApp(t, testSettings(), Deps{Source: src})

	err := waitRun(t, start(a), 2*time.Second)
	var rr lifecycle.RestartRequest
	if !errors.As(err, &rr) || rr.Code != 3 {
		t.Fatalf("Run = %v, want RestartRequest{3}", err)
	}
	if lifecycle.ExitCode(err) != 3 {
		t.Fatalf("ExitCode = %d", lifecycle.ExitCode(err))
	}
}

func TestSyncErrorsAreRetriedOnNextPoll(t *testing.T) {
	const failures = 3
	src := &fakeSource{replies: []func() (bool, error){syncFail, syncFail, syncFail, noUpdate}}
	a := newTestApp(t, testSettings(), Deps{Source: src})
	res := start(a)

	waitFor(t, 2*time.Second, func() bool { return src.polls.Load() >= failures+1 })
	if !a.StopFlag().Running() {
		t.Fatal("sync errors must not stop the supervisor")
	}
	a.Shutdown()
	if err := waitRun(t, res, 2*time.Second); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}

func TestPullSyncErrorKeepsPolling(t *testing.T) {
	src := &fakeSource{
		replies: []func() (bool, error){hasUpdate},
		pullErr: &sourcesync.SyncError{Op: "pull", Err: errors.New("not a fast-forward")},
	}
	a := newTestApp(t, testSettings(), Deps{Source: src})
	res := start(a)

	waitFor(t, 2*time.Second, func() bool { return src.pulls.Load() >= 2 })
	if !a.StopFlag().Running() {
		t.Fatal("pull sync error must not stop the supervisor")
	}
	a.Shutdown()
	if err := waitRun(t, res, 2*time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestUnexpectedSourceErrorIsFatal(t *testing.T) {
	src := &fakeSource{replies: []func() (bool, error){
		func() (bool, error) { return false, errors.New("disk on fire") },
	}}
	store := &memStore{}
	a := newTestApp(t, testSettings(), Deps{Source: src, Store: store})

	err := waitRun(t, start(a), 2*time.Second)
	if err == nil || !strings.Contains(err.Error(), "disk on fire") {
		t.Fatalf("Run = %v, want fatal error", err)
	}
	if lifecycle.ExitCode(err) != lifecycle.ExitFailure {
		t.Fatalf("ExitCode = %d, want 1", lifecycle.ExitCode(err))
	}
	if a.StopFlag().Reason() != StopFatalError {
		t.Fatalf("stop reason = %s", a.StopFlag().Reason())
	}
	found := false
	for _, k := range store.kinds() {
		if k == storage.EventFatal {
			found = true
		}
	}
	if !found {
		t.Fatalf("fatal event not recorded: %v", store.kinds())
	}
}

func TestSignalDuringHeartbeatSleepStopsPromptly(t *testing.T) {
	sink := &countSink{}
	set := testSettings()
	set.HeartbeatInterval = time.Hour
	set.UpdateInterval = time.Hour
	a := newTestApp(t, set, Deps{Sinks: []liveness.Sink{sink}})
	res := start(a)

	waitFor(t, time.Second, func() bool { return sink.n.Load() == 1 })
	began := time.Now()
	lifecycle.NewSignalBridge(a.StopFlag(), logx.Nop()).Handle(syscall.SIGTERM)

	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if d := time.Since(began); d > 500*time.Millisecond {
		t.Fatalf("shutdown took %v", d)
	}
	if got := sink.n.Load(); got != 1 {
		t.Fatalf("heartbeats = %d, want 1", got)
	}
	if a.StopFlag().Reason() != StopSIGTERM {
		t.Fatalf("stop reason = %s", a.StopFlag().Reason())
	}
}

func TestStopFlagHaltsBothLoops(t *testing.T) {
	src := &fakeSource{}
	sink := &countSink{}
	a := newTestApp(t, testSettings(), Deps{Source: src, Sinks: []liveness.Sink{sink}})
	res := start(a)

	waitFor(t, time.Second, func() bool { return src.polls.Load() >= 2 && sink.n.Load() >= 2 })
	a.StopFlag().Stop(StopSIGINT)
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
	polls, beats := src.polls.Load(), sink.n.Load()
	time.Sleep(60 * time.Millisecond)
	if src.polls.Load() != polls || sink.n.Load() != beats {
		t.Fatal("loops kept running after stop")
	}
}

func TestShutdownIsIdempotent(t *testing.T) {
	notes := &notifyLog{}
	store := &memStore{}
	a := newTestApp(t, testSettings(), Deps{Notify: notes.notify, Store: store})
	res := start(a)
	waitFor(t, time.Second, func() bool { return notes.count("READY=1") == 1 })

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			a.Shutdown()
		}()
	}
	wg.Wait()
	a.Shutdown()

	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if got := notes.count("STOPPING=1"); got != 1 {
		t.Fatalf("STOPPING notified %d times", got)
	}
	if store.closed != 1 {
		t.Fatalf("store closed %d times", store.closed)
	}
}

func TestShutdownBeforeRun(t *testing.T) {
	src := &fakeSource{}
	a := newTestApp(t, testSettings(), Deps{Source: src})
	a.Shutdown()
	if err := waitRun(t, start(a), time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if src.polls.Load() != 0 {
		t.Fatal("no task should start after Shutdown")
	}
}

func TestRunTwiceFails(t *testing.T) {
	a := newTestApp(t, testSettings(), Deps{})
	res := start(a)
	waitFor(t, time.Second, func() bool { return a.StopFlag().Running() })
	if err := a.Run(context.Background()); err == nil {
		t.Fatal("second Run should fail")
	}
	a.Shutdown()
	_ = waitRun(t, res, time.Second)
}

func TestContextCancelStops(t *testing.T) {
	a := newTestApp(t, testSettings(), Deps{})
	ctx, cancel := context.WithCancel(context.Background())
	res := make(chan error, 1)
	go func() { res <- a.Run(ctx) }()

	waitFor(t, time.Second, func() bool { return a.StopFlag().Running() })
	cancel()
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
	if a.StopFlag().Reason() != StopContextDone {
		t.Fatalf("stop reason = %s", a.StopFlag().Reason())
	}
}

func TestMissingContentDirDoesNotStopSupervisor(t *testing.T) {
	src := &fakeSource{}
	store := &memStore{}
	set := testSettings()
	set.Session.ContentDir = filepath.Join(t.TempDir(), "missing")
	a := newTestApp(t, set, Deps{
		Source: src,
		Engine: seeding.NewEngine(logx.Nop()),
		Store:  store,
	})
	res := start(a)

	waitFor(t, 2*time.Second, func() bool {
		for _, k := range store.kinds() {
			if k == storage.EventSeedingFailed {
				return true
			}
		}
		return false
	})
	polls := src.polls.Load()
	waitFor(t, time.Second, func() bool { return src.polls.Load() > polls })
	if !a.StopFlag().Running() {
		t.Fatal("seeding failure must not stop the supervisor")
	}

	a.Shutdown()
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}

func TestSeedingPanicIsSwallowed(t *testing.T) {
	src := &fakeSource{}
	eng := &fakeEngine{run: func(context.Context, seeding.SessionOptions) error {
		panic("tracker exploded")
	}}
	a := newTestApp(t, testSettings(), Deps{Source: src, Engine: eng})
	res := start(a)

	waitFor(t, time.Second, func() bool { return strings.Contains(a.Status().Worker, "panic") })
	polls := src.polls.Load()
	waitFor(t, time.Second, func() bool { return src.polls.Load() > polls })

	a.Shutdown()
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v, want nil", err)
	}
}

func TestShutdownJoinsSeedingWorker(t *testing.T) {
	var finished atomic.Bool
	eng := &fakeEngine{run: func(ctx context.Context, _ seeding.SessionOptions) error {
		<-ctx.Done()
		time.Sleep(80 * time.Millisecond)
		finished.Store(true)
		return nil
	}}
	a := newTestApp(t, testSettings(), Deps{Engine: eng})
	res := start(a)
	waitFor(t, time.Second, func() bool { return a.Status().Worker == "worker(running)" })

	a.Shutdown()
	if !finished.Load() {
		t.Fatal("Shutdown returned before the seeding worker finished")
	}
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
}

func TestStatusWhileRunning(t *testing.T) {
	a := newTestApp(t, testSettings(), Deps{})
	res := start(a)
	waitFor(t, time.Second, func() bool { return a.Status().Heartbeats >= 1 })

	st := a.Status()
	if st.RunID != a.RunID() || !st.Running {
		t.Fatalf("status = %+v", st)
	}
	if st.Supervisor == nil || len(st.Supervisor.Goroutines) != 3 {
		t.Fatalf("supervisor snapshot = %+v", st.Supervisor)
	}

	a.Shutdown()
	_ = waitRun(t, res, time.Second)
	if st := a.Status(); st.Running || st.StopReason != string(StopAppStop) {
		t.Fatalf("status after stop = %+v", st)
	}
}

func TestSecondInstanceIsLockedOut(t *testing.T) {
	lockPath := filepath.Join(t.TempDir(), "run", "mycelium.lock")
	held, err := acquireProcessLock(lockPath)
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	set := testSettings()
	set.LockFile = lockPath
	a := newTestApp(t, set, Deps{})
	err = waitRun(t, start(a), time.Second)
	if err == nil || !strings.Contains(err.Error(), "another instance") {
		t.Fatalf("Run = %v, want lock error", err)
	}

	if err := held.Release(); err != nil {
		t.Fatalf("release: %v", err)
	}
	again, err := acquireProcessLock(lockPath)
	if err != nil {
		t.Fatalf("reacquire: %v", err)
	}
	_ = again.Release()
	if _, err := os.Stat(lockPath); err != nil {
		t.Fatalf("lock file: %v", err)
	}
}

func TestNilProcessLock(t *testing.T) {
	l, err := acquireProcessLock("")
	if err != nil || l != nil {
		t.Fatalf("acquire(\"\") = %v, %v", l, err)
	}
	if err := l.Release(); err != nil {
		t.Fatalf("nil release: %v", err)
	}
}

type revSource struct {
	*fakeSource
	rev string
}

func (r revSource) Head(context.Context) (string, error) { return r.rev, nil }

type panicSink struct{}

func (panicSink) Name() string { return "panicky" }
func (panicSink) Emit(context.Context, liveness.Record) error {
	panic("sink exploded")
}

func logLines(t *testing.T, buf *bytes.Buffer) []map[string]any {
	t.Helper()
	var out []map[string]any
	for _, line := range bytes.Split(bytes.TrimSpace(buf.Bytes()), []byte("\n")) {
		if len(line) == 0 {
			continue
		}
		if n := bytes.Count(line, []byte(`"comp":`)); n > 1 {
			t.Fatalf("comp logged %d times: %s", n, line)
		}
		var m map[string]any
		if err := json.Unmarshal(line, &m); err != nil {
			t.Fatalf("decode %q: %v", line, err)
		}
		out = append(out, m)
	}
	return out
}

func findLine(lines []map[string]any, msg string) map[string]any {
	for _, m := range lines {
		if m["message"] == msg {
			return m
		}
	}
	return nil
}

func TestComponentLogsCarryOneComp(t *testing.T) {
	var buf bytes.Buffer
	src := &fakeSource{replies: []func() (bool, error){syncFail, noUpdate}}
	a := newTestApp(t, testSettings(), Deps{
		Log:    logx.NewJSON(&buf, "debug"),
		Source: revSource{fakeSource: src, rev: "3f2a9c1d0e"},
	})
	res := start(a)
	waitFor(t, time.Second, func() bool { return src.polls.Load() >= 2 })
	a.Shutdown()
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}

	lines := logLines(t, &buf)
	syncLine := findLine(lines, "code sync error")
	if syncLine == nil || syncLine["comp"] != "updates" {
		t.Fatalf("sync error line = %v", syncLine)
	}
	banner := findLine(lines, "supervisor starting")
	if banner == nil || banner["comp"] != "app" || banner["revision"] != "3f2a9c1d0e" {
		t.Fatalf("banner = %v", banner)
	}
	if hb := findLine(lines, "supervisor running"); hb == nil || hb["comp"] != "heartbeat" {
		t.Fatalf("heartbeat line = %v", hb)
	}
}

func TestHeartbeatPanicIsFatal(t *testing.T) {
	src := &fakeSource{}
	a := newTestApp(t, testSettings(), Deps{Source: src, Sinks: []liveness.Sink{panicSink{}}})

	err := waitRun(t, start(a), 2*time.Second)
	if err == nil || !strings.Contains(err.Error(), "sink exploded") {
		t.Fatalf("Run = %v, want heartbeat panic", err)
	}
	if got := lifecycle.ExitCode(err); got != lifecycle.ExitFailure {
		t.Fatalf("ExitCode = %d, want 1", got)
	}
	if a.StopFlag().Reason() != StopFatalError {
		t.Fatalf("stop reason = %s", a.StopFlag().Reason())
	}
}

func TestSeedingErrorDuringShutdownIsReported(t *testing.T) {
	var buf bytes.Buffer
	store := &memStore{}
	eng := &fakeEngine{run: func(ctx context.Context, _ seeding.SessionOptions) error {
		<-ctx.Done()
		return &seeding.SeedingError{Op: "close", Err: errors.New("tracker gone")}
	}}
	a := newTestApp(t, testSettings(), Deps{Log: logx.NewJSON(&buf, "debug"), Engine: eng, Store: store})
	res := start(a)
	waitFor(t, time.Second, func() bool { return a.Status().Worker == "worker(running)" })

	a.Shutdown()
	if err := waitRun(t, res, time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}

	found := false
	for _, k := range store.kinds() {
		if k == storage.EventSeedingFailed {
			found = true
		}
	}
	if !found {
		t.Fatalf("seeding failure not recorded: %v", store.kinds())
	}
	line := findLine(logLines(t, &buf), "seedbox failed")
	if line == nil || line["comp"] != "seeding.bridge" {
		t.Fatalf("seedbox failed line = %v", line)
	}
}

func TestSeedingCanceledDuringShutdownIsQuiet(t *testing.T) {
	store := &memStore{}
	eng := &fakeEngine{run: func(ctx context.Context, _ seeding.SessionOptions) error {
		<-ctx.Done()
		return ctx.Err()
	}}
	a := newTestApp(t, testSettings(), Deps{Engine: eng, Store: store})
	res := start(a)
	waitFor(t, time.Second, func() bool { return a.Status().Worker == "worker(running)" })
	a.Shutdown()
	_ = waitRun(t, res, time.Second)

	for _, k := range store.kinds() {
		if k == storage.EventSeedingFailed {
			t.Fatalf("canceled session recorded as failure: %v", store.kinds())
		}
	}
}

func TestStatusIncludesDebugServer(t *testing.T) {
	set := testSettings()
	set.Debug = debug.Config{Enabled: true, Addr: "127.0.0.1:0"}
	a := newTestApp(t, set, Deps{})
	res := start(a)
	waitFor(t, 2*time.Second, func() bool { return a.Status().Debug != nil })

	a.Shutdown()
	if err := waitRun(t, res, 2*time.Second); err != nil {
		t.Fatalf("Run = %v", err)
	}
}
