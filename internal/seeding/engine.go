package seeding

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync/atomic"
	"time"

	"github.com/fsnotify/fsnotify"

	"mycelium/pkg/logx"
)

const DefaultCreator = "Mycelium Autonomous Seedbox"

// SessionOptions describes one seeding session.
type SessionOptions struct {
	ContentDir     string
	Tracker        string
	PortMin        int
	PortMax        int
	StatusInterval time.Duration

	PieceLength int64
	Creator     string
	NoDHT       bool
	// Watch registers content files created after startup.
	Watch bool
}

// Engine runs seeding sessions.
type Engine struct {
	backend  Backend
	log      logx.Logger
	onStatus func(Status)

	status atomic.Pointer[Status]
}

type Option func(*Engine)

func WithBackend(b Backend) Option { return func(e *Engine) { e.backend = b } }

// WithStatusHook is called on the session goroutine after every status tick.
func WithStatusHook(fn func(Status)) Option { return func(e *Engine) { e.onStatus = fn } }

func NewEngine(log logx.Logger, opts ...Option) *Engine {
	e := &Engine{backend: TorrentBackend{}, log: log.With(logx.String("comp", "seeding"))}
	for _, o := range opts {
		if o != nil {
			o(e)
		}
	}
	return e
}

// Status returns the last published snapshot.
func (e *Engine) Status() Status {
	if p := e.status.Load(); p != nil {
		return *p
	}
	return Status{}
}

// RunSession blocks until ctx is canceled (nil) or the session fails
// (*SeedingError). Setup order: enumerate content, open the session,
// register items, then report status every StatusInterval.
func (e *Engine) RunSession(ctx context.Context, opts SessionOptions) error {
	if opts.StatusInterval <= 0 {
		opts.StatusInterval = 30 * time.Second
	}
	if opts.Creator == "" {
		opts.Creator = DefaultCreator
	}
	if opts.PortMax < opts.PortMin {
		opts.PortMax = opts.PortMin
	}

	e.log.Info("starting seedbox",
		logx.String("content_dir", opts.ContentDir),
		logx.String("tracker", opts.Tracker),
	)

	files, err := ListContent(opts.ContentDir)
	if err != nil {
		return err
	}
	e.log.Info("found files to seed", logx.Int("count", len(files)))

	sess, port, err := e.open(opts)
	if err != nil {
		return err
	}
	defer func() {
		e.log.Info("stopping seedbox")
		if cerr := sess.Close(); cerr != nil {
			e.log.Warn("session close failed", logx.Err(cerr))
		}
		e.publish(Status{UpdatedAt: time.Now()})
	}()
	e.log.Info("session initialized", logx.Int("port", port),
		logx.Int("port_min", opts.PortMin), logx.Int("port_max", opts.PortMax))

	meta := MetaOptions{Tracker: opts.Tracker, Creator: opts.Creator, PieceLength: opts.PieceLength}
	registered := make(map[string]struct{}, len(files))
	for _, f := range files {
		if ctx.Err() != nil {
			return nil
		}
		if e.register(sess, f, meta) {
			registered[f] = struct{}{}
		}
	}
	if len(registered) == 0 {
		return &SeedingError{Op: "register", Path: opts.ContentDir, Err: ErrNoItems}
	}
	e.log.Info("seeding", logx.Int("items", len(registered)))

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	pending := map[string]int64{}
	if opts.Watch {
		w, err := fsnotify.NewWatcher()
		if err == nil {
			err = w.Add(opts.ContentDir)
		}
		if err != nil {
			e.log.Warn("content watch disabled", logx.Err(err))
			if w != nil {
				_ = w.Close()
			}
		} else {
			defer w.Close()
			events, watchErrs = w.Events, w.Errors
		}
	}

	e.report(sess, port)
	t := time.NewTicker(opts.StatusInterval)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Create) || ev.Has(fsnotify.Write) || ev.Has(fsnotify.Rename) {
				if eligibleName(filepath.Base(ev.Name)) {
					_, done := registered[ev.Name]
					if _, seen := pending[ev.Name]; !seen && !done {
						pending[ev.Name] = -1
					}
				}
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			e.log.Warn("content watch error", logx.Err(err))
		case <-t.C:
			e.registerPending(sess, pending, registered, meta)
			e.report(sess, port)
		}
	}
}

func (e *Engine) open(opts SessionOptions) (Session, int, error) {
	var errs []error
	for port := opts.PortMin; port <= opts.PortMax; port++ {
		s, err := e.backend.Open(SessionConfig{DataDir: opts.ContentDir, Port: port, NoDHT: opts.NoDHT})
		if err == nil {
			return s, port, nil
		}
		e.log.Debug("port unavailable", logx.Int("port", port), logx.Err(err))
		errs = append(errs, err)
	}
	return nil, 0, &SeedingError{
		Op:  "listen",
		Err: fmt.Errorf("%w %d-%d: %w", ErrNoFreePort, opts.PortMin, opts.PortMax, errors.Join(errs...)),
	}
}

func (e *Engine) register(sess Session, file string, meta MetaOptions) bool {
	name := filepath.Base(file)
	metaPath, created, err := EnsureMetadata(file, meta)
	if err != nil {
		e.log.Error("failed to add", logx.String("file", name), logx.Err(err))
		return false
	}
	if created {
		e.log.Info("metadata created", logx.String("file", filepath.Base(metaPath)))
	}
	if _, err := sess.Add(metaPath); err != nil {
		e.log.Error("failed to add", logx.String("file", name), logx.Err(err))
		return false
	}
	e.log.Info("added to session", logx.String("file", name))
	return true
}

// registerPending registers watched files once their size is stable across
// two ticks, so half-written files are not hashed.
func (e *Engine) registerPending(sess Session, pending map[string]int64, registered map[string]struct{}, meta MetaOptions) {
	for path, lastSize := range pending {
		st, err := os.Stat(path)
		if err != nil || !st.Mode().IsRegular() {
			delete(pending, path)
			continue
		}
		if st.Size() == 0 || st.Size() != lastSize {
			pending[path] = st.Size()
			continue
		}
		delete(pending, path)
		if e.register(sess, path, meta) {
			registered[path] = struct{}{}
		}
	}
}

func (e *Engine) report(sess Session, port int) {
	items, peers, up := sess.Stats()
	st := Status{
		Active:        items > 0,
		Items:         items,
		Peers:         peers,
		BytesUploaded: up,
		Port:          port,
		UpdatedAt:     time.Now(),
	}
	e.publish(st)
	e.log.Info(st.Summary(),
		logx.Int("items", items),
		logx.Int("peers", peers),
		logx.Int64("bytes_uploaded", up),
	)
}

func (e *Engine) publish(st Status) {
	e.status.Store(&st)
	if e.onStatus != nil {
		e.onStatus(st)
	}
}
