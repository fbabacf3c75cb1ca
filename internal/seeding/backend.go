package seeding

// SessionConfig is what a Backend needs to open a session.
type SessionConfig struct {
	// DataDir is where item payloads are read from.
	DataDir string
	Port    int
	NoDHT   bool
}

// Backend opens peer sessions. The default is TorrentBackend.
type Backend interface {
	Open(cfg SessionConfig) (Session, error)
}

// Session is one open peer session. It is owned by a single goroutine.
type Session interface {
	// Add registers a metadata file and returns the item's display name.
	Add(metaPath string) (string, error)
	// Stats aggregates peers and uploaded bytes over every registered item.
	Stats() (items, peers int, uploaded int64)
	Close() error
}
