package seeding

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/anacrolix/torrent/bencode"
	"github.com/anacrolix/torrent/metainfo"
)

// MetaSuffix is appended to a content file name to form its metadata path.
const MetaSuffix = ".torrent"

// MetaOptions controls metadata synthesis.
type MetaOptions struct {
	Tracker     string
	Creator     string
	PieceLength int64
}

// MetaPath returns the companion metadata path of a content file.
func MetaPath(contentPath string) string { return contentPath + MetaSuffix }

// EnsureMetadata writes the metadata file for contentPath unless it already
// exists. Output is deterministic for a given file and options: no creation
// date is recorded.
func EnsureMetadata(contentPath string, opts MetaOptions) (metaPath string, created bool, err error) {
	metaPath = MetaPath(contentPath)
	if _, err := os.Stat(metaPath); err == nil {
		return metaPath, false, nil
	} else if !errors.Is(err, fs.ErrNotExist) {
		return "", false, err
	}

	st, err := os.Stat(contentPath)
	if err != nil {
		return "", false, err
	}
	if !st.Mode().IsRegular() {
		return "", false, fmt.Errorf("%s: not a regular file", contentPath)
	}

	info := metainfo.Info{PieceLength: opts.PieceLength}
	if info.PieceLength <= 0 {
		info.PieceLength = metainfo.ChoosePieceLength(st.Size())
	}
	if err := info.BuildFromFilePath(contentPath); err != nil {
		return "", false, fmt.Errorf("hash %s: %w", filepath.Base(contentPath), err)
	}

	mi := metainfo.MetaInfo{
		Announce:  opts.Tracker,
		CreatedBy: opts.Creator,
	}
	if opts.Tracker != "" {
		mi.AnnounceList = [][]string{{opts.Tracker}}
	}
	mi.InfoBytes, err = bencode.Marshal(info)
	if err != nil {
		return "", false, fmt.Errorf("encode info: %w", err)
	}

	if err := writeMetaAtomic(metaPath, &mi); err != nil {
		return "", false, err
	}
	return metaPath, true, nil
}

func writeMetaAtomic(path string, mi *metainfo.MetaInfo) error {
	dir := filepath.Dir(path)
	// dot prefix keeps the temp file out of content enumeration
	f, err := os.CreateTemp(dir, ".mycelium-meta-*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	defer func() { _ = os.Remove(tmp) }()

	if err := mi.Write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("write metadata: %w", err)
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// ListContent returns the eligible top-level regular files of dir, sorted.
// Hidden files and metadata files are skipped.
func ListContent(dir string) ([]string, error) {
	st, err := os.Stat(dir)
	if err != nil || !st.IsDir() {
		return nil, &SeedingError{Op: "load", Path: dir, Err: ErrContentDirNotFound}
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &SeedingError{Op: "load", Path: dir, Err: err}
	}
	var out []string
	for _, e := range entries {
		if !eligibleName(e.Name()) || !e.Type().IsRegular() {
			continue
		}
		out = append(out, filepath.Join(dir, e.Name()))
	}
	if len(out) == 0 {
		return nil, &SeedingError{Op: "load", Path: dir, Err: ErrNoFiles}
	}
	sort.Strings(out)
	return out, nil
}

func eligibleName(name string) bool {
	return name != "" && !strings.HasPrefix(name, ".") && !strings.HasSuffix(name, MetaSuffix)
}
