package seeding

import (
	"errors"
	"fmt"

	"github.com/anacrolix/torrent"
)

// TorrentBackend opens sessions with github.com/anacrolix/torrent.
type TorrentBackend struct{}

func (TorrentBackend) Open(cfg SessionConfig) (Session, error) {
	tc := torrent.NewDefaultClientConfig()
	tc.DataDir = cfg.DataDir
	tc.Seed = true
	tc.NoUpload = false
	tc.ListenPort = cfg.Port
	tc.NoDHT = cfg.NoDHT

	cl, err := torrent.NewClient(tc)
	if err != nil {
		return nil, err
	}
	return &torrentSession{cl: cl, items: make(map[string]*torrent.Torrent)}, nil
}

type torrentSession struct {
	cl    *torrent.Client
	items map[string]*torrent.Torrent
}

func (s *torrentSession) Add(metaPath string) (string, error) {
	if t, ok := s.items[metaPath]; ok {
		return t.Name(), nil
	}
	t, err := s.cl.AddTorrentFromFile(metaPath)
	if err != nil {
		return "", fmt.Errorf("add %s: %w", metaPath, err)
	}
	s.items[metaPath] = t
	return t.Name(), nil
}

func (s *torrentSession) Stats() (items, peers int, uploaded int64) {
	for _, t := range s.items {
		st := t.Stats()
		peers += st.ActivePeers
		uploaded += st.BytesWrittenData.Int64()
	}
	return len(s.items), peers, uploaded
}

func (s *torrentSession) Close() error {
	for _, t := range s.items {
		t.Drop()
	}
	return errors.Join(s.cl.Close()...)
}
