package playlists

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"

	dbutil "github.com/llehouerou/wavesd/internal/db"
)

// songs returns the paths of a playlist in position order.
func songs(ctx context.Context, ex dbutil.Executor, id int64) ([]string, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT path FROM playlist_songs
		WHERE playlist_id = ?
		ORDER BY position
	`, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	paths := []string{}
	for rows.Next() {
		var p string
		if err := rows.Scan(&p); err != nil {
			return nil, err
		}
		paths = append(paths, p)
	}
	return paths, rows.Err()
}

func allSongs(ctx context.Context, ex dbutil.Executor) (map[int64][]string, error) {
	rows, err := ex.QueryContext(ctx, `
		SELECT playlist_id, path FROM playlist_songs
		ORDER BY playlist_id, position
	`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	bySong := make(map[int64][]string)
	for rows.Next() {
		var id int64
		var p string
		if err := rows.Scan(&id, &p); err != nil {
			return nil, err
		}
		bySong[id] = append(bySong[id], p)
	}
	return bySong, rows.Err()
}

// writeSongs replaces the songs of a playlist with paths.
func writeSongs(ctx context.Context, tx *sql.Tx, id int64, paths []string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM playlist_songs WHERE playlist_id = ?`, id); err != nil {
		return err
	}
	if len(paths) == 0 {
		return nil
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO playlist_songs (playlist_id, position, path)
		VALUES (?, ?, ?)
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, p := range paths {
		if _, err := stmt.ExecContext(ctx, id, i, p); err != nil {
			return err
		}
	}
	return nil
}

// edit loads the songs of a playlist, lets fn rewrite them and stores the
// result, all in one transaction.
func (s *Store) edit(ctx context.Context, op string, id int64, fn func([]string) ([]string, error)) error {
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM playlists WHERE id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("playlist %d: %w", id, ErrNotFound)
		}
		if err != nil {
			return err
		}

		current, err := songs(ctx, tx, id)
		if err != nil {
			return err
		}
		next, err := fn(current)
		if err != nil {
			return err
		}
		if err := writeSongs(ctx, tx, id, next); err != nil {
			return err
		}
		_, err = tx.ExecContext(ctx, `UPDATE playlists SET updated_at = ? WHERE id = ?`,
			s.clock.Now().Unix(), id)
		return err
	})
	if err == nil || errors.Is(err, ErrNotFound) || errors.Is(err, ErrInvalidOrder) {
		return err
	}
	return dbutil.Persistence(op, err)
}

// AddTracks appends paths to a playlist.
func (s *Store) AddTracks(ctx context.Context, id int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	return s.edit(ctx, "add songs to playlist", id, func(current []string) ([]string, error) {
		return append(current, paths...), nil
	})
}

// RemoveTracks removes every occurrence of paths from a playlist.
func (s *Store) RemoveTracks(ctx context.Context, id int64, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	drop := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		drop[p] = struct{}{}
	}
	return s.edit(ctx, "remove songs from playlist", id, func(current []string) ([]string, error) {
		return slices.DeleteFunc(current, func(p string) bool {
			_, ok := drop[p]
			return ok
		}), nil
	})
}

// Reorder replaces the order of a playlist. paths must hold exactly the
// playlist's songs.
func (s *Store) Reorder(ctx context.Context, id int64, paths []string) error {
	return s.edit(ctx, "reorder playlist", id, func(current []string) ([]string, error) {
		if !sameSongs(current, paths) {
			return nil, ErrInvalidOrder
		}
		return paths, nil
	})
}

func sameSongs(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	counts := make(map[string]int, len(a))
	for _, p := range a {
		counts[p]++
	}
	for _, p := range b {
		counts[p]--
		if counts[p] < 0 {
			return false
		}
	}
	return true
}

// PurgePath removes path from every playlist and returns the ids of the
// playlists that changed.
func (s *Store) PurgePath(ctx context.Context, path string) ([]int64, error) {
	var ids []int64
	err := dbutil.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx,
			`SELECT DISTINCT playlist_id FROM playlist_songs WHERE path = ? ORDER BY playlist_id`, path)
		if err != nil {
			return err
		}
		for rows.Next() {
			var id int64
			if err := rows.Scan(&id); err != nil {
				rows.Close()
				return err
			}
			ids = append(ids, id)
		}
		if err := rows.Close(); err != nil {
			return err
		}

		for _, id := range ids {
			current, err := songs(ctx, tx, id)
			if err != nil {
				return err
			}
			kept := slices.DeleteFunc(current, func(p string) bool { return p == path })
			if err := writeSongs(ctx, tx, id, kept); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, dbutil.Persistence("purge playlist songs", err)
	}
	return ids, nil
}
