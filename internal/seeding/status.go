package seeding

import (
	"fmt"
	"time"

	"github.com/dustin/go-humanize"
)

// Status is an aggregate snapshot of the session.
type Status struct {
	Active        bool      `json:"active"`
	Items         int       `json:"items"`
	Peers         int       `json:"peers"`
	BytesUploaded int64     `json:"bytes_uploaded"`
	Port          int       `json:"port,omitempty"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Summary renders the periodic status line.
func (s Status) Summary() string {
	up := s.BytesUploaded
	if up < 0 {
		up = 0
	}
	return fmt.Sprintf("Seeding: %d torrents, %d peers, %s uploaded",
		s.Items, s.Peers, humanize.Bytes(uint64(up)))
}
