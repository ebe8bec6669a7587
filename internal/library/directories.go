package library

import (
	"context"
	"database/sql"
	"path/filepath"
	"strings"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// Directory is a configured library root.
type Directory struct {
	Path    string `json:"path"`
	AddedAt int64  `json:"added_at"`
}

// withWrite runs fn in a transaction holding the catalog write lock.
func (l *Library) withWrite(ctx context.Context, fn func(tx *sql.Tx) error) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return dbutil.WithTx(ctx, l.db, fn)
}

// Directories returns the configured roots in the order they were added.
func (l *Library) Directories(ctx context.Context) ([]Directory, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()

	rows, err := l.db.QueryContext(ctx, `SELECT path, added_at FROM directories ORDER BY added_at, path`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	dirs := []Directory{}
	for rows.Next() {
		var d Directory
		if err := rows.Scan(&d.Path, &d.AddedAt); err != nil {
			return nil, err
		}
		dirs = append(dirs, d)
	}
	return dirs, rows.Err()
}

// AddDirectory registers a root. Adding an existing root is a no-op.
func (l *Library) AddDirectory(ctx context.Context, path string) (Directory, error) {
	d := Directory{Path: cleanDir(path), AddedAt: l.clock.Now().Unix()}
	err := l.withWrite(ctx, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO directories (path, added_at) VALUES (?, ?)
			ON CONFLICT(path) DO NOTHING
		`, d.Path, d.AddedAt)
		return err
	})
	return d, err
}

// RemoveDirectory unregisters a root and drops the tracks indexed from
// it. The dropped tracks are returned.
func (l *Library) RemoveDirectory(ctx context.Context, path string) ([]Track, error) {
	path = cleanDir(path)
	removed, err := l.queryTracks(ctx, `SELECT `+songColumns+` FROM songs WHERE directory = ? `+songOrder, path)
	if err != nil {
		return nil, err
	}
	err = l.withWrite(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM songs WHERE directory = ?`, path); err != nil {
			return err
		}
		_, err := tx.ExecContext(ctx, `DELETE FROM directories WHERE path = ?`, path)
		return err
	})
	if err != nil {
		return nil, err
	}
	return removed, nil
}

// SeedDirectories adds paths when no directory is configured yet.
func (l *Library) SeedDirectories(ctx context.Context, paths []string) error {
	existing, err := l.Directories(ctx)
	if err != nil || len(existing) > 0 {
		return err
	}
	for _, p := range paths {
		if strings.TrimSpace(p) == "" {
			continue
		}
		if _, err := l.AddDirectory(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func cleanDir(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	return filepath.Clean(path)
}

func dirPaths(dirs []Directory) []string {
	paths := make([]string, len(dirs))
	for i, d := range dirs {
		paths[i] = d.Path
	}
	return paths
}
