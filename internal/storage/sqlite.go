package storage

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	logx "mycelium/pkg/logx"

	_ "modernc.org/sqlite"
)

//go:embed migrations.sql
var migrationsFS embed.FS

type sqliteStore struct {
	db  *sql.DB
	log logx.Logger

	retention  int
	opCount    atomic.Uint64
	pruneEvery uint64
	closed     atomic.Bool
}

func openSQLite(cfg Config, log logx.Logger) (Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("sqlite path is required")
	}
	path := cfg.Path
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	// SQLite prefers a small number of concurrent writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	st := &sqliteStore{db: db, log: log, retention: cfg.HeartbeatRetention, pruneEvery: 50}
	if st.retention <= 0 {
		st.retention = DefaultHeartbeatRetention
	}

	// Basic pragmas.
	if cfg.BusyTimeout > 0 {
		ms := cfg.BusyTimeout.Milliseconds()
		_, _ = db.Exec(fmt.Sprintf("PRAGMA busy_timeout = %d", ms))
	}
	_, _ = db.Exec("PRAGMA journal_mode = WAL")
	_, _ = db.Exec("PRAGMA synchronous = NORMAL")

	if err := st.migrate(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return st, nil
}

func (s *sqliteStore) migrate(ctx context.Context) error {
	b, err := migrationsFS.ReadFile("migrations.sql")
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, string(b))
	return err
}

func (s *sqliteStore) Close() error {
	if s == nil || s.db == nil || !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.db.Close()
}

func (s *sqliteStore) ready() error {
	if s == nil || s.db == nil {
		return ErrDisabled
	}
	if s.closed.Load() {
		return ErrClosed
	}
	return nil
}

func (s *sqliteStore) AppendEvent(ctx context.Context, e Event) error {
	if err := s.ready(); err != nil {
		return err
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO events(at, run_id, kind, detail, err) VALUES(?,?,?,?,?)`,
		e.At.UTC().Format(time.RFC3339Nano), e.RunID, string(e.Kind), nullStr(e.Detail), nullStr(e.Error),
	)
	return err
}

func (s *sqliteStore) RecordHeartbeat(ctx context.Context, hb Heartbeat) error {
	if err := s.ready(); err != nil {
		return err
	}
	if hb.At.IsZero() {
		hb.At = time.Now()
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO heartbeats(at, run_id, seq, pid, uptime_ms) VALUES(?,?,?,?,?)`,
		hb.At.UTC().Format(time.RFC3339Nano), hb.RunID, int64(hb.Seq), hb.PID, hb.UptimeMS,
	)
	if err == nil && s.opCount.Add(1)%s.pruneEvery == 0 {
		pctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		if perr := s.pruneHeartbeats(pctx); perr != nil {
			s.log.Debug("heartbeat prune failed", logx.Err(perr))
		}
		cancel()
	}
	return err
}

func (s *sqliteStore) LastHeartbeat(ctx context.Context) (Heartbeat, bool, error) {
	if err := s.ready(); err != nil {
		return Heartbeat{}, false, err
	}
	var (
		hb  Heartbeat
		at  string
		seq int64
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT at, run_id, seq, pid, uptime_ms FROM heartbeats ORDER BY id DESC LIMIT 1`,
	).Scan(&at, &hb.RunID, &seq, &hb.PID, &hb.UptimeMS)
	if errors.Is(err, sql.ErrNoRows) {
		return Heartbeat{}, false, nil
	}
	if err != nil {
		return Heartbeat{}, false, err
	}
	hb.Seq = uint64(seq)
	hb.At, _ = time.Parse(time.RFC3339Nano, at)
	return hb, true, nil
}

func (s *sqliteStore) RecentEvents(ctx context.Context, limit int) ([]Event, error) {
	if err := s.ready(); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT at, run_id, kind, detail, err FROM events ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Event
	for rows.Next() {
		var (
			e           Event
			at, kind    string
			detail, msg sql.NullString
		)
		if err := rows.Scan(&at, &e.RunID, &kind, &detail, &msg); err != nil {
			return nil, err
		}
		e.At, _ = time.Parse(time.RFC3339Nano, at)
		e.Kind = EventKind(kind)
		e.Detail = detail.String
		e.Error = msg.String
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// newest last
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out, nil
}

func (s *sqliteStore) pruneHeartbeats(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM heartbeats WHERE id <= (SELECT id FROM heartbeats ORDER BY id DESC LIMIT 1 OFFSET ?)`,
		s.retention)
	return err
}

func nullStr(v string) any {
	if strings.TrimSpace(v) == "" {
		return nil
	}
	return v
}
