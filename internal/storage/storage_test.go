package storage

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	logx "mycelium/pkg/logx"
)

func TestOpenDisabled(t *testing.T) {
	for _, d := range []string{"", "none", " NONE "} {
		st, err := Open(Config{Driver: d}, logx.Nop())
		if st != nil || err != nil {
			t.Fatalf("Open(%q) = %v, %v; want nil, nil", d, st, err)
		}
	}
	if _, err := Open(Config{Driver: "redis"}, logx.Nop()); err == nil {
		t.Fatal("unknown driver should fail")
	}
}

func exerciseStore(t *testing.T, st Store) {
	t.Helper()
	ctx := context.Background()

	if _, ok, err := st.LastHeartbeat(ctx); err != nil || ok {
		t.Fatalf("empty LastHeartbeat = %v, %v", ok, err)
	}

	for i := 0; i < 5; i++ {
		e := Event{At: time.Now(), RunID: "run-1", Kind: EventStarted, Detail: fmt.Sprintf("n=%d", i)}
		if err := st.AppendEvent(ctx, e); err != nil {
			t.Fatalf("AppendEvent: %v", err)
		}
	}
	if err := st.AppendEvent(ctx, Event{RunID: "run-1", Kind: EventFatal, Error: "boom"}); err != nil {
		t.Fatal(err)
	}

	for seq := uint64(1); seq <= 3; seq++ {
		hb := Heartbeat{At: time.Now(), RunID: "run-1", Seq: seq, PID: 42, UptimeMS: int64(seq) * 1000}
		if err := st.RecordHeartbeat(ctx, hb); err != nil {
			t.Fatalf("RecordHeartbeat: %v", err)
		}
	}

	hb, ok, err := st.LastHeartbeat(ctx)
	if err != nil || !ok {
		t.Fatalf("LastHeartbeat = %v, %v", ok, err)
	}
	if hb.Seq != 3 || hb.PID != 42 || hb.RunID != "run-1" {
		t.Fatalf("last heartbeat = %+v", hb)
	}

	evs, err := st.RecentEvents(ctx, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(evs) != 3 {
		t.Fatalf("events = %d, want 3", len(evs))
	}
	if last := evs[2]; last.Kind != EventFatal || last.Error != "boom" {
		t.Fatalf("newest event = %+v", last)
	}
	if evs[0].Detail != "n=3" {
		t.Fatalf("oldest returned event = %+v", evs[0])
	}

	if err := st.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}
	if err := st.AppendEvent(ctx, Event{Kind: EventStopped}); !errors.Is(err, ErrClosed) {
		t.Fatalf("append after close err = %v, want ErrClosed", err)
	}
	if err := st.Close(); err != nil {
		t.Fatalf("second Close: %v", err)
	}
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	st, err := Open(Config{Driver: "file", Path: filepath.Join(dir, "state", "mycelium.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, st)

	if _, err := os.Stat(filepath.Join(dir, "state", "mycelium.last_heartbeat.json")); err != nil {
		t.Fatalf("heartbeat snapshot missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "state", "mycelium.events.jsonl")); err != nil {
		t.Fatalf("events journal missing: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "mycelium.db")}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	exerciseStore(t, st)
}

func TestSQLiteHeartbeatRetention(t *testing.T) {
	st, err := Open(Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "mycelium.db"), HeartbeatRetention: 10}, logx.Nop())
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()
	ss := st.(*sqliteStore)
	ctx := context.Background()

	for seq := uint64(1); seq <= 120; seq++ {
		if err := st.RecordHeartbeat(ctx, Heartbeat{RunID: "r", Seq: seq}); err != nil {
			t.Fatal(err)
		}
	}
	if err := ss.pruneHeartbeats(ctx); err != nil {
		t.Fatal(err)
	}
	var n int
	if err := ss.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM heartbeats`).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 10 {
		t.Fatalf("heartbeat rows = %d, want 10", n)
	}
	hb, ok, err := st.LastHeartbeat(ctx)
	if err != nil || !ok || hb.Seq != 120 {
		t.Fatalf("LastHeartbeat = %+v, %v, %v", hb, ok, err)
	}
}
