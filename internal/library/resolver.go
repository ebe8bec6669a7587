package library

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Resolve maps a path to its track metadata. Indexed tracks come from the
// catalog; other existing files are read directly without being indexed.
func (l *Library) Resolve(ctx context.Context, path string) (Track, error) {
	t, err := l.Song(ctx, path)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Track{}, err
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Track{}, fmt.Errorf("song %s: %w", path, ErrNotFound)
		}
		return Track{}, err
	}
	return readTrack(path, newCoverResolver(l.coversDir))
}

// ResolveAll resolves every path, keeping order. Paths that resolve to
// nothing are skipped.
func (l *Library) ResolveAll(ctx context.Context, paths []string) ([]Track, error) {
	return l.resolve(ctx, paths, false)
}

// ResolveQueue resolves paths one-to-one, so indices into paths stay valid.
// A path that resolves to nothing becomes a bare track carrying only its
// path and file name; loading it later reports the track as unavailable.
func (l *Library) ResolveQueue(ctx context.Context, paths []string) ([]Track, error) {
	return l.resolve(ctx, paths, true)
}

func (l *Library) resolve(ctx context.Context, paths []string, keepMissing bool) ([]Track, error) {
	indexed, err := l.SongsByPaths(ctx, paths)
	if err != nil {
		return nil, err
	}
	byPath := make(map[string]Track, len(indexed))
	for _, t := range indexed {
		byPath[t.Path] = t
	}

	tracks := make([]Track, 0, len(paths))
	for _, p := range paths {
		if t, ok := byPath[p]; ok {
			tracks = append(tracks, t)
			continue
		}
		t, err := l.Resolve(ctx, p)
		switch {
		case err == nil:
			tracks = append(tracks, t)
		case keepMissing:
			tracks = append(tracks, Track{Path: p, Name: trackName(p)})
		}
	}
	return tracks, nil
}

// trackName is the file name without its extension, the title untagged
// files get.
func trackName(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
