package feed

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"github.com/rs/zerolog/log"
)

// FileSource replays snapshot drops from a directory tree laid out as
// <root>/<YYYYMMDD>/<HHMMSS>.json, one JSON-encoded SnapshotSet per file.
// Files are consumed in lexical order, which for this layout is time order.
type FileSource struct {
	paths []string
	next  int
}

// NewFileSource indexes every snapshot file under root.
func NewFileSource(root string) (*FileSource, error) {
	days, err := os.ReadDir(root)
	if err != nil {
		return nil, fmt.Errorf("failed to read feed directory: %w", err)
	}

	var paths []string
	for _, day := range days {
		if !day.IsDir() {
			continue
		}
		matches, err := filepath.Glob(filepath.Join(root, day.Name(), "*.json"))
		if err != nil {
			return nil, fmt.Errorf("failed to glob feed files: %w", err)
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	if len(paths) == 0 {
		return nil, fmt.Errorf("no snapshot files under %s", root)
	}
	log.Info().Int("files", len(paths)).Str("dir", root).Msg("file feed indexed")

	return &FileSource{paths: paths}, nil
}

// Fetch decodes the next file. A file that fails to decode is skipped with a
// warning rather than ending the replay.
func (f *FileSource) Fetch(ctx context.Context) (SnapshotSet, error) {
	for f.next < len(f.paths) {
		if err := ctx.Err(); err != nil {
			return SnapshotSet{}, err
		}

		path := f.paths[f.next]
		f.next++

		data, err := os.ReadFile(path)
		if err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping unreadable snapshot file")
			continue
		}

		var set SnapshotSet
		if err := json.Unmarshal(data, &set); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("skipping malformed snapshot file")
			continue
		}
		if len(set.Snapshots) == 0 {
			continue
		}
		return set, nil
	}
	return SnapshotSet{}, ErrExhausted
}

// Remaining reports how many files are left to replay.
func (f *FileSource) Remaining() int {
	return len(f.paths) - f.next
}
