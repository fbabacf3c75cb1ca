package app

import (
	"context"

	"mycelium/internal/config"
	"mycelium/internal/runtime/lifecycle"
	"mycelium/internal/runtime/supervisor"
	"mycelium/internal/seeding"
)

// ---- Config ----

type Config = config.Config

// ---- Runtime ----

type Supervisor = supervisor.Supervisor

type Task = supervisor.Task

var NewSupervisor = supervisor.NewSupervisor

var WithLogger = supervisor.WithLogger

var WithCancelOnError = supervisor.WithCancelOnError

// ---- Collaborators ----

// SourceSync detects and applies upstream code changes.
// Declared error: *sourcesync.SyncError (recoverable, the next poll retries).
type SourceSync interface {
	HasUpdates(ctx context.Context) (bool, error)
	PullUpdates(ctx context.Context) error
}

// DistributionEngine runs the blocking seeding session until ctx is canceled.
// Declared error: *seeding.SeedingError.
type DistributionEngine interface {
	RunSession(ctx context.Context, opts seeding.SessionOptions) error
}

type ExitFunc = lifecycle.ExitFunc
