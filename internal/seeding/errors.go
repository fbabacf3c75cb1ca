package seeding

import (
	"errors"
	"fmt"
)

// SeedingError is the declared failure of a session: setup errors (missing
// content dir, nothing to seed, no free port) and runtime failures.
type SeedingError struct {
	Op   string
	Path string
	Err  error
}

func (e *SeedingError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("seeding %s: %s: %v", e.Op, e.Path, e.Err)
	}
	return fmt.Sprintf("seeding %s: %v", e.Op, e.Err)
}

func (e *SeedingError) Unwrap() error { return e.Err }

var (
	ErrContentDirNotFound = errors.New("content directory not found")
	ErrNoFiles            = errors.New("no files found")
	ErrNoItems            = errors.New("no torrents loaded")
	ErrNoFreePort         = errors.New("no free port in range")
)

func IsSeedingError(err error) bool {
	var se *SeedingError
	return errors.As(err, &se)
}
