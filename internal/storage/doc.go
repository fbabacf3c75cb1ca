package storage

// Package storage provides the optional persistence layer of the supervisor.
//
// It records:
//   - Lifecycle events (started, update detected, restart requested, ...)
//   - Heartbeats (the latest one always; sqlite keeps a bounded history)
