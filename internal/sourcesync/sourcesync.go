// Package sourcesync detects and pulls upstream changes of the working copy
// the process runs from, using the git CLI.
package sourcesync

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"mycelium/pkg/logx"
)

// SyncError is the declared failure of a sync operation. Callers treat it as
// recoverable: the next poll tries again.
type SyncError struct {
	Op     string
	Err    error
	Output string
}

func (e *SyncError) Error() string {
	msg := "sync " + e.Op + ": " + e.Err.Error()
	if e.Output != "" {
		msg += " (" + e.Output + ")"
	}
	return msg
}

func (e *SyncError) Unwrap() error { return e.Err }

// Options configures a Git syncer.
type Options struct {
	RepoPath string
	Remote   string
	Branch   string
	GitBin   string
}

// Git implements change detection with `git fetch` + `git rev-list`.
type Git struct {
	opts Options
	exec CommandExecutor
	log  logx.Logger
}

func NewGit(opts Options, log logx.Logger) *Git {
	return NewGitWithExecutor(opts, NewCLIExecutor(), log)
}

// NewGitWithExecutor creates a Git syncer with a custom executor.
func NewGitWithExecutor(opts Options, ex CommandExecutor, log logx.Logger) *Git {
	if opts.Remote == "" {
		opts.Remote = "origin"
	}
	if opts.GitBin == "" {
		opts.GitBin = "git"
	}
	return &Git{opts: opts, exec: ex, log: log.With(logx.String("comp", "sourcesync"))}
}

func (g *Git) upstream() string { return g.opts.Remote + "/" + g.opts.Branch }

// HasUpdates fetches the tracked branch and reports whether it has commits
// the working copy does not.
func (g *Git) HasUpdates(ctx context.Context) (bool, error) {
	if _, err := g.git(ctx, "fetch", "fetch", "--quiet", g.opts.Remote, g.opts.Branch); err != nil {
		return false, err
	}
	out, err := g.git(ctx, "rev-list", "rev-list", "--count", "HEAD.."+g.upstream())
	if err != nil {
		return false, err
	}
	n, perr := strconv.Atoi(strings.TrimSpace(string(out)))
	if perr != nil {
		return false, &SyncError{Op: "rev-list", Err: fmt.Errorf("unexpected output: %w", perr), Output: trimOutput(out)}
	}
	if n > 0 {
		g.log.Debug("upstream ahead", logx.String("upstream", g.upstream()), logx.Int("commits", n))
	}
	return n > 0, nil
}

// PullUpdates fast-forwards the working copy. Local divergence fails with a
// SyncError rather than creating a merge commit.
func (g *Git) PullUpdates(ctx context.Context) error {
	_, err := g.git(ctx, "pull", "pull", "--ff-only", "--quiet", g.opts.Remote, g.opts.Branch)
	return err
}

// Head returns the current commit of the working copy.
func (g *Git) Head(ctx context.Context) (string, error) {
	out, err := g.git(ctx, "rev-parse", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

func (g *Git) git(ctx context.Context, op string, args ...string) ([]byte, error) {
	out, err := g.exec.Run(ctx, g.opts.RepoPath, g.opts.GitBin, args...)
	if err == nil {
		return out, nil
	}
	// cancellation is not a sync failure
	if cerr := ctx.Err(); cerr != nil {
		return nil, cerr
	}
	return nil, &SyncError{Op: op, Err: err, Output: trimOutput(out)}
}

func trimOutput(b []byte) string {
	b = bytes.TrimSpace(b)
	const limit = 512
	if len(b) > limit {
		b = append(b[:limit:limit], "..."...)
	}
	return string(b)
}

// IsSyncError reports whether err is (or wraps) a *SyncError.
func IsSyncError(err error) bool {
	var se *SyncError
	return errors.As(err, &se)
}
